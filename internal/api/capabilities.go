package api

import (
	"net/http"

	"github.com/duckgate/duckgate/internal/query/duckdb"
)

type capabilityItem struct {
	Name    string `json:"name"`
	Loaded  bool   `json:"loaded"`
	Skipped bool   `json:"skipped"`
	Error   string `json:"error,omitempty"`
}

func handleCapabilities(deps Dependencies, w http.ResponseWriter, _ *http.Request) {
	if deps.Engine == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"state":        duckdb.StateUninitialized,
			"capabilities": []capabilityItem{},
		})
		return
	}
	capabilities := deps.Engine.Capabilities()
	items := make([]capabilityItem, 0, len(capabilities.Results))
	for _, result := range capabilities.Results {
		items = append(items, capabilityItem{
			Name:    result.Name,
			Loaded:  result.Loaded,
			Skipped: result.Skipped,
			Error:   result.ErrorMessage(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":          deps.Engine.State(),
		"remote_storage": capabilities.RemoteStorage(),
		"table_format":   capabilities.TableFormat(),
		"capabilities":   items,
	})
}
