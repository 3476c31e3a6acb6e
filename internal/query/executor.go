package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/duckgate/duckgate/internal/observability"
)

const healthCheckSQL = "SELECT 1 AS test"

// ColumnConverter returns the function that turns scanned values of one
// result column into JSON friendly values. databaseType is the driver's
// type name for the column and may be empty. A nil return falls back to
// NormalizeValue.
type ColumnConverter func(databaseType string) func(value any) any

type ExecutorOptions struct {
	// MaxRows aborts materialization once a result grows past it. Zero
	// leaves results unbounded.
	MaxRows int
	Convert ColumnConverter
	Logger  *slog.Logger
}

// Executor submits caller SQL verbatim to the session. There is no
// rewriting and no allow-list: the endpoint is meant for trusted,
// single-tenant deployments.
type Executor struct {
	session Session
	maxRows int
	convert ColumnConverter
	logger  *slog.Logger
}

func NewExecutor(session Session, opts ExecutorOptions) (*Executor, error) {
	if session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if opts.MaxRows < 0 {
		return nil, fmt.Errorf("max rows must be >= 0")
	}
	return &Executor{
		session: session,
		maxRows: opts.MaxRows,
		convert: opts.Convert,
		logger:  observability.WithComponent(opts.Logger, "query"),
	}, nil
}

func (e *Executor) Run(ctx context.Context, sqlText string) (Result, error) {
	if strings.TrimSpace(sqlText) == "" {
		observability.ObserveQuery(observability.QueryOutcomeRejected, 0, 0)
		return Result{}, ErrSQLRequired
	}

	start := time.Now()
	result, err := e.execute(ctx, sqlText)
	elapsed := time.Since(start)
	if err != nil {
		observability.ObserveQuery(observability.QueryOutcomeFailed, 0, elapsed)
		if e.logger != nil {
			e.logger.DebugContext(ctx, "query failed",
				observability.TraceAttr(ctx),
				slog.String("duration", elapsed.String()),
				slog.Any("error", err),
			)
		}
		return Result{}, &QueryFailedError{Message: err.Error(), Err: err}
	}

	result.Duration = elapsed
	observability.ObserveQuery(observability.QueryOutcomeSuccess, result.RowCount, elapsed)
	return result, nil
}

// Check runs the liveness query and verifies its sentinel value.
func (e *Executor) Check(ctx context.Context) error {
	result, err := e.execute(ctx, healthCheckSQL)
	if err != nil {
		observability.ObserveHealthCheck(false)
		return &HealthCheckFailedError{Message: err.Error(), Err: err}
	}
	if len(result.Rows) != 1 || len(result.Rows[0]) != 1 || !isOne(result.Rows[0][0]) {
		observability.ObserveHealthCheck(false)
		return &HealthCheckFailedError{Message: fmt.Sprintf("unexpected test query result: %v", result.Rows)}
	}
	observability.ObserveHealthCheck(true)
	return nil
}

func (e *Executor) execute(ctx context.Context, sqlText string) (Result, error) {
	var result Result
	err := e.session.Query(ctx, sqlText, func(rows *sql.Rows) error {
		columns, err := rows.Columns()
		if err != nil {
			return err
		}
		converters, err := e.columnConverters(rows, len(columns))
		if err != nil {
			return err
		}

		resultRows := make([][]any, 0)
		for rows.Next() {
			if e.maxRows > 0 && len(resultRows) >= e.maxRows {
				return fmt.Errorf("%w (%d)", ErrResultTooLarge, e.maxRows)
			}
			values := make([]any, len(columns))
			scanTargets := make([]any, len(columns))
			for i := range values {
				scanTargets[i] = &values[i]
			}
			if err := rows.Scan(scanTargets...); err != nil {
				return err
			}
			for i, value := range values {
				values[i] = converters[i](value)
			}
			resultRows = append(resultRows, values)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		result = Result{Columns: columns, Rows: resultRows, RowCount: len(resultRows)}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	if result.Columns == nil {
		result.Columns = []string{}
	}
	if result.Rows == nil {
		result.Rows = [][]any{}
	}
	return result, nil
}

func (e *Executor) columnConverters(rows *sql.Rows, count int) ([]func(any) any, error) {
	converters := make([]func(any) any, count)
	for i := range converters {
		converters[i] = NormalizeValue
	}
	if e.convert == nil {
		return converters, nil
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	for i, columnType := range columnTypes {
		if i >= count {
			break
		}
		if convert := e.convert(columnType.DatabaseTypeName()); convert != nil {
			converters[i] = convert
		}
	}
	return converters, nil
}

// NormalizeValue makes a scanned value safe for encoding/json without
// knowing its column type.
func NormalizeValue(value any) any {
	switch typed := value.(type) {
	case []byte:
		return string(typed)
	case float64:
		return normalizeFloat(typed)
	case float32:
		return normalizeFloat(float64(typed))
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = NormalizeValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = NormalizeValue(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[fmt.Sprint(NormalizeValue(key))] = NormalizeValue(item)
		}
		return out
	default:
		return typed
	}
}

// JSON has no encoding for NaN or infinities.
func normalizeFloat(value float64) any {
	switch {
	case math.IsNaN(value):
		return "NaN"
	case math.IsInf(value, 1):
		return "Infinity"
	case math.IsInf(value, -1):
		return "-Infinity"
	default:
		return value
	}
}

func isOne(value any) bool {
	switch typed := value.(type) {
	case int8:
		return typed == 1
	case int16:
		return typed == 1
	case int32:
		return typed == 1
	case int64:
		return typed == 1
	case int:
		return typed == 1
	case uint8:
		return typed == 1
	case uint16:
		return typed == 1
	case uint32:
		return typed == 1
	case uint64:
		return typed == 1
	case float64:
		return typed == 1
	default:
		return false
	}
}

// IsQueryFailed reports whether err came from the engine rejecting a
// statement, and returns its verbatim message.
func IsQueryFailed(err error) (string, bool) {
	var failed *QueryFailedError
	if errors.As(err, &failed) {
		return failed.Message, true
	}
	return "", false
}
