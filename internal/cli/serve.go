package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/runnerr0/recall/internal/server"
)

// Execute implements the go-flags Commander interface for ServeCommand.
func (c *ServeCommand) Execute(args []string) error {
	rt, err := newRuntime(c.globals, c.version)
	if err != nil {
		return err
	}
	defer rt.Close()

	if c.Host != "" {
		rt.cfg.Server.Host = c.Host
	}
	if c.Port != 0 {
		rt.cfg.Server.Port = c.Port
	}

	srv, err := server.New(rt.engine, server.WithLogger(rt.logger))
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt.logger.Info("starting recall", "version", c.version, "db", rt.dbPath, "addr", rt.cfg.ListenAddr())
	if st := rt.engine.Status(ctx); st.Stats.TotalVisits == nil {
		rt.logger.Warn("database not usable yet, queries will fail until the indexer runs", "db", st.DB)
	}
	return srv.Run(ctx, rt.cfg.ListenAddr(), rt.cfg.ShutdownTimeout())
}
