package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// fileKey identifies one version of a database file.
type fileKey struct {
	path  string
	mtime int64 // UnixNano
}

// Cache memoizes the store handle for a database file, keyed by path and
// modification time. A changed mtime (the indexer rewrote the file) opens a
// fresh handle on the next Acquire and retires the old one.
type Cache struct {
	opts   []Option
	logger *slog.Logger

	mu     sync.RWMutex
	key    fileKey
	handle *Handle
}

// NewCache creates an empty cache. opts are applied to every handle it opens.
func NewCache(logger *slog.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{opts: opts, logger: logger}
}

func statKey(path string) (fileKey, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileKey{}, fmt.Errorf("%w: %s", ErrStoreNotFound, path)
		}
		return fileKey{}, fmt.Errorf("stat store: %w", err)
	}
	return fileKey{path: path, mtime: info.ModTime().UnixNano()}, nil
}

// Acquire returns the pinned handle for path, reopening it if the file
// changed. The handle stays open until Release is called, even if the file
// changes in the meantime.
func (c *Cache) Acquire(ctx context.Context, path string) (*Handle, error) {
	key, err := statKey(path)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	if c.handle != nil && c.key == key {
		h := c.handle
		h.pin()
		c.mu.RUnlock()
		return h, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have reopened while we waited for the write lock.
	if c.handle != nil && c.key == key {
		c.handle.pin()
		return c.handle, nil
	}

	c.logger.Debug("reloading store", "path", path, "mtime", time.Unix(0, key.mtime))
	h, err := Open(ctx, path, c.opts...)
	if err != nil {
		return nil, err
	}

	if c.handle != nil {
		if err := c.handle.retire(); err != nil {
			c.logger.Warn("closing previous store handle", "path", path, "error", err)
		}
	}
	c.key = key
	c.handle = h
	h.pin()
	return h, nil
}

// Close retires the current handle. Handles still pinned close on Release.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	if c.handle != nil {
		err = c.handle.retire()
		c.handle = nil
	}
	c.key = fileKey{}
	return err
}
