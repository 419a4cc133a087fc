package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/runnerr0/recall/internal/storage"
)

// Status is the health report served by /status. Every field is filled in
// even when the store is unusable.
type Status struct {
	Version *string     `json:"version"`
	DB      string      `json:"db"`
	Stats   StatusStats `json:"stats"`
}

// StatusStats holds the visit count, or the error that prevented counting.
type StatusStats struct {
	TotalVisits *int64 `json:"total_visits,omitempty"`
	Error       string `json:"ERROR,omitempty"`
}

// Status runs the version, store and count checks independently.
func (e *Engine) Status(ctx context.Context) Status {
	var st Status

	if v, err := e.version(); err != nil {
		e.logger.Error("determining version", "error", err)
		msg := "ERROR: " + err.Error()
		st.Version = &msg
	} else {
		st.Version = &v
	}

	if _, err := os.Stat(e.cfg.DBPath); err != nil {
		e.logger.Error("checking store", "db", e.cfg.DBPath, "error", err)
		st.DB = fmt.Sprintf("ERROR: db not found/unreadable (expected path %s). You probably forgot to run the indexer first.", e.cfg.DBPath)
	} else {
		st.DB = e.cfg.DBPath
	}

	var total int64
	err := e.withHandle(ctx, func(h *storage.Handle) error {
		var err error
		total, err = h.CountVisits(ctx)
		return err
	})
	if err != nil {
		// withHandle has logged it, or the stat check above has.
		st.Stats.Error = err.Error()
	} else {
		st.Stats.TotalVisits = &total
	}

	return st
}

var errNoVersion = errors.New("version unavailable")

func (e *Engine) version() (string, error) {
	if e.cfg.Version != "" {
		return e.cfg.Version, nil
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version, nil
	}
	return "", errNoVersion
}
