package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/runnerr0/recall/internal/canon"
	"github.com/runnerr0/recall/internal/config"
	"github.com/runnerr0/recall/internal/engine"
	"github.com/runnerr0/recall/internal/logging"
	"github.com/runnerr0/recall/internal/storage"
)

// runtimeEnv is everything a command needs once flags and config are merged.
type runtimeEnv struct {
	cfg    *config.Config
	dbPath string
	engine *engine.Engine
	logger *slog.Logger
}

func (r *runtimeEnv) Close() error { return r.engine.Close() }

// loadConfig reads the --config file, or the default config file (written
// with defaults on first use).
func loadConfig(g *GlobalFlags) (*config.Config, error) {
	if g.Config == "" {
		return config.LoadOrCreate()
	}
	path, err := config.ExpandPath(g.Config)
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

// applyOverrides folds global flags into cfg. Flags win over the file.
func applyOverrides(cfg *config.Config, g *GlobalFlags) error {
	if g.DB != "" {
		path, err := config.ExpandPath(g.DB)
		if err != nil {
			return err
		}
		if path, err = filepath.Abs(path); err != nil {
			return fmt.Errorf("resolving --db: %w", err)
		}
		cfg.Storage.SQLiteFile = path
	}
	if g.Timezone != "" {
		cfg.Timezone = g.Timezone
	}
	if g.Verbose {
		cfg.Logging.Level = "debug"
	}
	return nil
}

// newRuntime loads config, installs the logger and builds the engine.
func newRuntime(g *GlobalFlags, version string) (*runtimeEnv, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	if err := applyOverrides(cfg, g); err != nil {
		return nil, err
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	slog.SetDefault(logger)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	dbPath, err := cfg.DBPath()
	if err != nil {
		return nil, err
	}
	canonicalize, err := canon.NewCached(canon.Canonify, cfg.Canon.CacheSize)
	if err != nil {
		return nil, err
	}

	eng := engine.New(
		&engine.Config{DBPath: dbPath, Location: loc, Version: version},
		engine.WithCanonicalizer(canonicalize),
		engine.WithLogger(logger),
		engine.WithStoreOptions(storage.WithBusyTimeout(cfg.Storage.BusyTimeoutMS)),
	)
	return &runtimeEnv{cfg: cfg, dbPath: dbPath, engine: eng, logger: logger}, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printVisits renders an envelope for humans. label follows "Found N visits".
func printVisits(label string, visits []engine.ShapedVisit) {
	if len(visits) == 0 {
		fmt.Printf("No visits found%s\n", label)
		return
	}

	word := "visits"
	if len(visits) == 1 {
		word = "visit"
	}
	fmt.Printf("Found %d %s%s\n\n", len(visits), word, label)

	for i, v := range visits {
		title := v.Locator.Title
		if title == "" {
			title = v.OriginalURL
		}
		fmt.Printf("%d. %s\n", i+1, title)
		fmt.Printf("   %s\n", v.OriginalURL)

		meta := v.Time + " · " + v.Source
		if v.Duration != nil {
			meta += " · " + formatSeconds(*v.Duration)
		}
		fmt.Printf("   %s\n", meta)

		if v.Context != nil {
			for _, line := range strings.Split(*v.Context, "\n") {
				fmt.Printf("   > %s\n", line)
			}
		}

		if i < len(visits)-1 {
			fmt.Println()
		}
	}
}

// formatSeconds renders a visit duration like "1m30s".
func formatSeconds(s float64) string {
	return time.Duration(s * float64(time.Second)).Round(time.Second).String()
}
