package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// Config holds message store settings.
type Config struct {
	// Driver selects the SQL driver, DriverSQLite or DriverPostgres.
	Driver string `json:"driver"`

	// DSN is the driver-specific data source. For sqlite this is a file
	// path; the connection pragmas are appended here.
	DSN string `json:"dsn"`

	MaxConnections  int           `json:"max_connections"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`

	// EnrichHistory joins sender display names into history reads. Set
	// for course_video deployments.
	EnrichHistory bool `json:"enrich_history"`
}

// sqlitePragmas keeps readers concurrent with the single writer and bounds
// lock waits.
const sqlitePragmas = "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"

// Manager implements interfaces.MessageStore over database/sql. All writes
// funnel through a single goroutine; reads run concurrently on the pool.
type Manager struct {
	db       *sql.DB
	dialect  *dialect
	enrich   bool
	writeCh  chan writeOperation
	shutdown chan struct{}
	wg       sync.WaitGroup
	closed   bool
	mu       sync.RWMutex
	logger   zerolog.Logger
}

// writeOperation carries one queued write and the channel its caller blocks
// on.
type writeOperation struct {
	operation func(*sql.DB) error
	result    chan error
}

// NewManager opens the database, bootstraps the schema where the dialect
// carries one, and starts the write loop.
func NewManager(cfg *Config, logger zerolog.Logger) (*Manager, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("driver %q: %w", cfg.Driver, err)
	}

	dsn := cfg.DSN
	if d.driver == DriverSQLite {
		dsn += sqlitePragmas
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	for _, stmt := range d.schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to bootstrap schema: %w", err)
		}
	}

	m := &Manager{
		db:       db,
		dialect:  d,
		enrich:   cfg.EnrichHistory,
		writeCh:  make(chan writeOperation, 100),
		shutdown: make(chan struct{}),
		logger:   logger.With().Str("component", "store").Str("driver", d.driver).Logger(),
	}

	m.wg.Add(1)
	go m.writeLoop()

	return m, nil
}

// writeLoop processes all write operations in a single goroutine. With
// sqlite this avoids writer contention entirely; with postgres it keeps
// persist completion order deterministic.
func (m *Manager) writeLoop() {
	defer m.wg.Done()

	for {
		select {
		case op := <-m.writeCh:
			op.result <- op.operation(m.db)

		case <-m.shutdown:
			// Answer queued writers so nobody blocks on a loop that
			// is gone.
			for {
				select {
				case op := <-m.writeCh:
					op.result <- ErrManagerClosed
				default:
					m.logger.Debug().Msg("write loop stopped")
					return
				}
			}
		}
	}
}

// executeWrite queues a write operation and waits for its completion.
func (m *Manager) executeWrite(ctx context.Context, operation func(*sql.DB) error) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrManagerClosed
	}
	m.mu.RUnlock()

	result := make(chan error, 1)

	select {
	case m.writeCh <- writeOperation{operation: operation, result: result}:
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(30 * time.Second):
		return ErrWriteTimeout
	case <-m.shutdown:
		return ErrManagerClosed
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HealthCheck validates connectivity and that the schema is reachable.
func (m *Manager) HealthCheck(ctx context.Context) error {
	if err := m.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, m.dialect.healthProbe)
	if err != nil {
		return fmt.Errorf("database read test failed: %w", err)
	}
	return rows.Close()
}

// Close stops the write loop and closes the pool. Safe to call twice.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.shutdown)
	m.wg.Wait()

	if err := m.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
