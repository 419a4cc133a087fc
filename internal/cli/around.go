package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/recall/internal/engine"
)

// moment resolves --timestamp or --at into epoch seconds.
func (c *AroundCommand) moment() (float64, error) {
	switch {
	case c.At != "" && c.Timestamp != 0:
		return 0, fmt.Errorf("use either --timestamp or --at, not both")
	case c.At != "":
		t, err := time.Parse(time.RFC3339Nano, c.At)
		if err != nil {
			return 0, fmt.Errorf("invalid --at value %q: %w", c.At, err)
		}
		return float64(t.UnixNano()) / float64(time.Second), nil
	case c.Timestamp != 0:
		return c.Timestamp, nil
	default:
		return 0, fmt.Errorf("--timestamp or --at is required")
	}
}

// Execute implements the go-flags Commander interface for AroundCommand.
func (c *AroundCommand) Execute(args []string) error {
	ts, err := c.moment()
	if err != nil {
		return err
	}

	rt, err := newRuntime(c.globals, c.version)
	if err != nil {
		return err
	}
	defer rt.Close()

	return c.executeWithEngine(context.Background(), rt.engine, ts)
}

// executeWithEngine runs the window query against a provided engine (for testing).
func (c *AroundCommand) executeWithEngine(ctx context.Context, eng *engine.Engine, ts float64) error {
	env, err := eng.LookupAround(ctx, ts)
	if err != nil {
		return fmt.Errorf("lookup failed: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(env)
	}
	at := time.Unix(0, int64(ts*float64(time.Second))).UTC()
	printVisits(" around "+at.Format(time.RFC3339), env.Visits)
	return nil
}
