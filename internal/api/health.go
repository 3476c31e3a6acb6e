package api

import (
	"context"
	"net/http"
)

// handleHealth is the only route that queries the engine. It runs the
// self-check query through the shared session, so it waits behind any
// statement already in flight.
func handleHealth(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Executor == nil {
		writeDetail(w, http.StatusInternalServerError, "Health check failed: query engine is not configured")
		return
	}
	if err := deps.Executor.Check(context.WithoutCancel(r.Context())); err != nil {
		writeDetail(w, http.StatusInternalServerError, "Health check failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "healthy",
		"duckdb":     "connected",
		"test_query": true,
	})
}
