package api

import (
	"net/http"

	"github.com/duckgate/duckgate/internal/config"
)

// Table listing needs the Iceberg catalog integration; until then the route
// only reports where the warehouse lives.
func handleListTables(cfg config.Config, w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Table listing will be implemented with Iceberg catalog integration",
		"warehouse": cfg.ObjectStore.Warehouse,
	})
}
