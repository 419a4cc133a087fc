package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/runnerr0/recall/internal/engine"
)

// Execute implements the go-flags Commander interface for VisitsCommand.
func (c *VisitsCommand) Execute(args []string) error {
	if c.URL == "" && len(args) > 0 {
		c.URL = args[0]
	}
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("--url is required")
	}

	rt, err := newRuntime(c.globals, c.version)
	if err != nil {
		return err
	}
	defer rt.Close()

	return c.executeWithEngine(context.Background(), rt.engine)
}

// executeWithEngine runs the lookup against a provided engine (for testing).
func (c *VisitsCommand) executeWithEngine(ctx context.Context, eng *engine.Engine) error {
	env, err := eng.Lookup(ctx, c.URL)
	if err != nil {
		return fmt.Errorf("lookup failed: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(env)
	}
	printVisits(fmt.Sprintf(" for %q", env.NormalizedURL), env.Visits)
	return nil
}

// Execute implements the go-flags Commander interface for SearchCommand.
func (c *SearchCommand) Execute(args []string) error {
	query := strings.Join(args, " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("a search query is required")
	}

	rt, err := newRuntime(c.globals, c.version)
	if err != nil {
		return err
	}
	defer rt.Close()

	return c.executeWithEngine(context.Background(), rt.engine, query)
}

// executeWithEngine runs the search against a provided engine (for testing).
func (c *SearchCommand) executeWithEngine(ctx context.Context, eng *engine.Engine, query string) error {
	env, err := eng.Search(ctx, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(env)
	}
	printVisits(fmt.Sprintf(" matching %q", env.NormalizedURL), env.Visits)
	return nil
}
