package query

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrSQLRequired        = errors.New("sql is required")
	ErrResultTooLarge     = errors.New("result exceeds max rows")
	ErrSessionUnavailable = errors.New("engine session is unavailable")
)

// Result is a fully materialized result set. Every row holds len(Columns)
// values in column order and RowCount always equals len(Rows).
type Result struct {
	Columns  []string
	Rows     [][]any
	RowCount int
	Duration time.Duration
}

// Session runs one statement against the shared engine connection and hands
// the open rows to consume before the connection is released to the next
// caller.
type Session interface {
	Query(ctx context.Context, sqlText string, consume func(*sql.Rows) error) error
}

// QueryFailedError carries the engine's diagnostic verbatim in Message.
type QueryFailedError struct {
	Message string
	Err     error
}

func (e *QueryFailedError) Error() string {
	return e.Message
}

func (e *QueryFailedError) Unwrap() error {
	return e.Err
}

// HealthCheckFailedError means the session itself is unusable, as opposed
// to a single bad statement.
type HealthCheckFailedError struct {
	Message string
	Err     error
}

func (e *HealthCheckFailedError) Error() string {
	return e.Message
}

func (e *HealthCheckFailedError) Unwrap() error {
	return e.Err
}
