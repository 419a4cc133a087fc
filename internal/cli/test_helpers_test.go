package cli

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/runnerr0/recall/internal/canon"
	"github.com/runnerr0/recall/internal/engine"
	"github.com/runnerr0/recall/internal/storage/storagetest"
	"github.com/stretchr/testify/require"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// newTestEngine builds an engine over a fresh database holding rows. URLs
// are matched as given.
func newTestEngine(t *testing.T, rows ...storagetest.Row) *engine.Engine {
	t.Helper()
	return newTestEngineAt(t, storagetest.NewDB(t, rows...))
}

func newTestEngineAt(t *testing.T, path string) *engine.Engine {
	t.Helper()
	e := engine.New(&engine.Config{DBPath: path, Location: time.UTC, Version: "dev"},
		engine.WithCanonicalizer(canon.Identity),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(func() { e.Close() })
	return e
}

// writeConfig writes a config file that keeps logs quiet and returns its path.
func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: error\ntimezone: UTC\n"), 0644))
	return path
}
