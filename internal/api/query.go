package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/duckgate/duckgate/internal/observability"
	"github.com/duckgate/duckgate/internal/query"
)

const maxQueryBodyBytes = 1 << 20

type queryRequest struct {
	SQL *string `json:"sql"`
}

type queryResponse struct {
	Columns  []string `json:"columns"`
	Data     [][]any  `json:"data"`
	RowCount int      `json:"row_count"`
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Executor == nil {
		writeDetail(w, http.StatusNotImplemented, "query engine is not configured")
		return
	}

	var request queryRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBodyBytes))
	if err := decoder.Decode(&request); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body: "+err.Error())
		return
	}
	if request.SQL == nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body: field \"sql\" is required")
		return
	}
	if strings.TrimSpace(*request.SQL) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body: field \"sql\" must not be empty")
		return
	}

	// Engine calls cannot be interrupted; a caller hanging up does not
	// cancel the statement.
	ctx := context.WithoutCancel(r.Context())
	result, err := deps.Executor.Run(ctx, *request.SQL)
	if err != nil {
		if errors.Is(err, query.ErrSQLRequired) {
			writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body: field \"sql\" must not be empty")
			return
		}
		message := err.Error()
		if failed, ok := query.IsQueryFailed(err); ok {
			message = failed
		}
		writeDetail(w, http.StatusBadRequest, "Query execution failed: "+message)
		return
	}

	response := queryResponse{Columns: result.Columns, Data: result.Rows, RowCount: len(result.Rows)}
	if response.Columns == nil {
		response.Columns = []string{}
	}
	if response.Data == nil {
		response.Data = [][]any{}
	}
	body, err := json.Marshal(response)
	if err != nil {
		if deps.Logger != nil {
			deps.Logger.ErrorContext(r.Context(), "encode query result",
				observability.TraceAttr(r.Context()),
				slog.Any("error", err),
			)
		}
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Query result could not be encoded: %v", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
