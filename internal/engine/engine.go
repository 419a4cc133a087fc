package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/runnerr0/recall/internal/canon"
	"github.com/runnerr0/recall/internal/storage"
)

// Config is resolved once at startup and never changes afterwards.
type Config struct {
	DBPath   string
	Location *time.Location // applied to timestamps stored without an offset; nil means time.Local
	Version  string
}

// Engine answers history queries against one visits database.
type Engine struct {
	cfg       *Config
	canon     canon.Canonicalizer
	logger    *slog.Logger
	storeOpts []storage.Option
	cache     *storage.Cache
}

// Option configures an Engine.
type Option func(*Engine)

// WithCanonicalizer replaces canon.Canonify as the URL normalizer.
func WithCanonicalizer(c canon.Canonicalizer) Option {
	return func(e *Engine) {
		if c != nil {
			e.canon = c
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithStoreOptions passes options through to every store handle the engine opens.
func WithStoreOptions(opts ...storage.Option) Option {
	return func(e *Engine) { e.storeOpts = append(e.storeOpts, opts...) }
}

// New creates an engine. No store access happens until the first query.
func New(cfg *Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		canon:  canon.Canonify,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	e.cache = storage.NewCache(e.logger, e.storeOpts...)
	return e
}

// Close releases the cached store handle.
func (e *Engine) Close() error {
	return e.cache.Close()
}

func (e *Engine) location() *time.Location {
	if e.cfg.Location != nil {
		return e.cfg.Location
	}
	return time.Local
}

// withHandle pins the current store handle for the duration of fn. A
// missing store is left for the caller to report.
func (e *Engine) withHandle(ctx context.Context, fn func(h *storage.Handle) error) error {
	h, err := e.cache.Acquire(ctx, e.cfg.DBPath)
	if err == nil {
		defer func() {
			if rerr := h.Release(); rerr != nil {
				e.logger.Warn("closing retired store handle", "db", e.cfg.DBPath, "error", rerr)
			}
		}()
		err = fn(h)
	}

	switch {
	case err == nil:
	case errors.Is(err, storage.ErrStoreNotFound):
	case errors.Is(err, storage.ErrSchemaNotInitialized):
		e.logger.Warn("visits table missing, you may have to run the indexer first",
			"db", e.cfg.DBPath, "error", err)
	case errors.Is(err, context.Canceled):
	default:
		e.logger.Error("store query failed", "db", e.cfg.DBPath, "error", err)
	}
	return err
}
