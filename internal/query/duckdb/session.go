package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/duckgate/duckgate/internal/observability"
	"github.com/duckgate/duckgate/internal/query"
	"github.com/duckgate/duckgate/internal/storage"
)

type RemoteStorageConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	URLStyle        string
}

type SessionConfig struct {
	// ExtensionDirectory points DuckDB at pre-installed extensions so
	// images without registry access can still load httpfs and iceberg.
	ExtensionDirectory string
	RemoteStorage      RemoteStorageConfig
}

// Session owns the single in-memory DuckDB connection shared by every
// request. Statements are serialized; the pool is capped at one connection
// so loaded extensions and SET values are always in effect.
type Session struct {
	db      *sql.DB
	openErr error
	cfg     SessionConfig
	logger  *slog.Logger

	mu sync.Mutex

	initOnce     sync.Once
	stateMu      sync.RWMutex
	state        State
	capabilities Capabilities
}

func Open(cfg SessionConfig, logger *slog.Logger) *Session {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		session := NewSession(nil, cfg, logger)
		session.openErr = fmt.Errorf("open duckdb: %w", err)
		return session
	}
	return NewSession(db, cfg, logger)
}

func NewSession(db *sql.DB, cfg SessionConfig, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = observability.WithComponent(logger, "engine")
	if db != nil {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}
	return &Session{
		db:     db,
		cfg:    cfg,
		logger: logger,
		state:  StateUninitialized,
	}
}

// Initialize loads optional extensions and applies remote storage settings.
// It runs once; every failure is logged and recorded, never returned.
func (s *Session) Initialize(ctx context.Context) Capabilities {
	s.initOnce.Do(func() {
		state, capabilities := s.initialize(ctx)
		for _, result := range capabilities.Results {
			observability.SetCapabilityLoaded(result.Name, result.Loaded)
		}
		s.stateMu.Lock()
		s.state = state
		s.capabilities = capabilities
		s.stateMu.Unlock()
		s.logger.Info("engine session initialized",
			slog.String("state", string(state)),
			slog.Bool("remote_storage", capabilities.RemoteStorage()),
			slog.Bool("table_format", capabilities.TableFormat()),
		)
	})
	return s.Capabilities()
}

func (s *Session) initialize(ctx context.Context) (State, Capabilities) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.connect(ctx); err != nil {
		s.logger.Error("engine connection unavailable; serving in degraded mode", slog.Any("error", err))
		return StateDegraded, Capabilities{Results: []CapabilityResult{
			{Name: CapabilityHTTPFS, Skipped: true},
			{Name: CapabilityIceberg, Skipped: true},
			{Name: CapabilityS3Config, Skipped: true},
		}}
	}

	if dir := strings.TrimSpace(s.cfg.ExtensionDirectory); dir != "" {
		if _, err := s.db.ExecContext(ctx, "SET extension_directory = "+quoteLiteral(dir)); err != nil {
			s.logger.Warn("could not set extension directory", slog.String("dir", dir), slog.Any("error", err))
		}
	}

	httpfs := s.loadExtension(ctx, CapabilityHTTPFS)
	if !httpfs.Loaded {
		s.logger.Warn("httpfs extension unavailable; continuing without S3 support", slog.Any("error", httpfs.Err))
	}

	iceberg := s.loadExtension(ctx, CapabilityIceberg)
	if !iceberg.Loaded {
		s.logger.Warn("iceberg extension unavailable; iceberg queries will fail", slog.Any("error", iceberg.Err))
	}

	s3Config := CapabilityResult{Name: CapabilityS3Config, Skipped: true}
	if httpfs.Loaded {
		s3Config = s.configureRemoteStorage(ctx)
		if !s3Config.Loaded {
			s.logger.Warn("could not configure S3 settings", slog.Any("error", s3Config.Err))
		}
	}

	return StateReady, Capabilities{Results: []CapabilityResult{httpfs, iceberg, s3Config}}
}

func (s *Session) connect(ctx context.Context) error {
	if s.openErr != nil {
		return s.openErr
	}
	if s.db == nil {
		return query.ErrSessionUnavailable
	}
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping duckdb: %w", err)
	}
	return nil
}

// loadExtension still attempts LOAD when INSTALL fails: the extension may
// already be present in the extension directory.
func (s *Session) loadExtension(ctx context.Context, name string) CapabilityResult {
	_, installErr := s.db.ExecContext(ctx, "INSTALL "+name)
	if installErr != nil {
		s.logger.Debug("extension install failed; trying local copy", slog.String("extension", name), slog.Any("error", installErr))
	}
	if _, err := s.db.ExecContext(ctx, "LOAD "+name); err != nil {
		if installErr != nil {
			err = errors.Join(fmt.Errorf("install %s: %w", name, installErr), fmt.Errorf("load %s: %w", name, err))
		} else {
			err = fmt.Errorf("load %s: %w", name, err)
		}
		return CapabilityResult{Name: name, Err: err}
	}
	s.logger.Info("extension loaded", slog.String("extension", name))
	return CapabilityResult{Name: name, Loaded: true}
}

func (s *Session) configureRemoteStorage(ctx context.Context) CapabilityResult {
	remote := s.cfg.RemoteStorage
	endpoint, err := storage.ParseEndpoint(remote.Endpoint, remote.UseSSL)
	if err != nil {
		return CapabilityResult{Name: CapabilityS3Config, Err: fmt.Errorf("s3 endpoint: %w", err)}
	}
	urlStyle := strings.TrimSpace(remote.URLStyle)
	if urlStyle == "" {
		urlStyle = "path"
	}

	settings := []setting{
		{"s3_endpoint", quoteLiteral(endpoint.Host)},
		{"s3_access_key_id", quoteLiteral(remote.AccessKeyID)},
		{"s3_secret_access_key", quoteLiteral(remote.SecretAccessKey)},
		{"s3_use_ssl", fmt.Sprintf("%t", endpoint.Secure)},
		{"s3_url_style", quoteLiteral(urlStyle)},
	}
	if region := strings.TrimSpace(remote.Region); region != "" {
		settings = append(settings, setting{"s3_region", quoteLiteral(region)})
	}

	for _, setting := range settings {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("SET %s = %s", setting.name, setting.value)); err != nil {
			return CapabilityResult{Name: CapabilityS3Config, Err: fmt.Errorf("set %s: %w", setting.name, err)}
		}
	}
	s.logger.Info("s3 settings applied",
		slog.String("endpoint", endpoint.Host),
		slog.Bool("use_ssl", endpoint.Secure),
		slog.String("url_style", urlStyle),
	)
	return CapabilityResult{Name: CapabilityS3Config, Loaded: true}
}

// Query runs sqlText on the shared connection and passes the rows to
// consume while the session lock is held. Engine errors are returned as-is
// so callers can surface the diagnostic verbatim.
func (s *Session) Query(ctx context.Context, sqlText string, consume func(*sql.Rows) error) error {
	if s.db == nil {
		return query.ErrSessionUnavailable
	}

	waitStart := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	observability.ObserveEngineLockWait(time.Since(waitStart))

	rows, err := s.db.QueryContext(ctx, sqlText)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	if err := consume(rows); err != nil {
		return err
	}
	return rows.Err()
}

func (s *Session) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *Session) Capabilities() Capabilities {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	results := make([]CapabilityResult, len(s.capabilities.Results))
	copy(results, s.capabilities.Results)
	return Capabilities{Results: results}
}

func (s *Session) Close() error {
	if s.db == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

type setting struct {
	name  string
	value string
}

func quoteLiteral(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}
