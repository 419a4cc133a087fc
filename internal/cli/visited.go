package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/recall/internal/engine"
)

// Execute implements the go-flags Commander interface for VisitedCommand.
func (c *VisitedCommand) Execute(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("at least one URL is required")
	}

	rt, err := newRuntime(c.globals, c.version)
	if err != nil {
		return err
	}
	defer rt.Close()

	return c.executeWithEngine(context.Background(), rt.engine, args)
}

// executeWithEngine runs the batch check against a provided engine (for testing).
func (c *VisitedCommand) executeWithEngine(ctx context.Context, eng *engine.Engine, urls []string) error {
	visits, err := eng.LookupBatch(ctx, urls, c.ClientVersion)
	if err != nil {
		return fmt.Errorf("visited check failed: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(visits)
	}

	for i, u := range urls {
		v := visits[i]
		if v == nil {
			fmt.Printf("  -  %s\n", u)
			continue
		}
		fmt.Printf("  *  %s  (%s · %s)\n", u, v.Time, v.Source)
	}
	return nil
}
