package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

type handleConfig struct {
	busyTimeout int
}

func defaultHandleConfig() handleConfig {
	return handleConfig{busyTimeout: 5_000}
}

// Option customises how a store handle is opened.
type Option func(*handleConfig)

// WithBusyTimeout sets the SQLite busy timeout in milliseconds. Default: 5000.
func WithBusyTimeout(ms int) Option { return func(c *handleConfig) { c.busyTimeout = ms } }

// Handle is an open, schema-validated, read-only view of a visits database.
// It is safe for concurrent use.
type Handle struct {
	db   *sql.DB
	path string

	mu      sync.Mutex
	pins    int
	retired bool
	closed  bool
}

// Open opens the database at path read-only and validates the visits schema.
func Open(ctx context.Context, path string, opts ...Option) (*Handle, error) {
	cfg := defaultHandleConfig()
	for _, o := range opts {
		o(&cfg)
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, path)
		}
		return nil, fmt.Errorf("stat store: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=%d", path, cfg.busyTimeout)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := validateSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Handle{db: db, path: path}, nil
}

// Path returns the database file the handle was opened from.
func (h *Handle) Path() string { return h.path }

// WithConn runs fn on a connection dedicated to this call. The connection
// is returned to the pool on every exit path.
func (h *Handle) WithConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := h.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	return fn(conn)
}

// pin marks the handle as in use so that retirement defers closing it.
func (h *Handle) pin() {
	h.mu.Lock()
	h.pins++
	h.mu.Unlock()
}

// Release undoes one Cache.Acquire. It returns the close error when this
// was the last pin on a retired handle.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pins > 0 {
		h.pins--
	}
	return h.closeIfIdleLocked()
}

// retire closes the handle once it has no pins left.
func (h *Handle) retire() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.retired = true
	return h.closeIfIdleLocked()
}

func (h *Handle) closeIfIdleLocked() error {
	if !h.retired || h.pins > 0 || h.closed {
		return nil
	}
	h.closed = true
	if err := h.db.Close(); err != nil {
		return fmt.Errorf("close store %s: %w", h.path, err)
	}
	return nil
}
