package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/runnerr0/recall/internal/engine"
)

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	rt, err := newRuntime(c.globals, c.version)
	if err != nil {
		return err
	}
	defer rt.Close()

	return c.executeWithEngine(context.Background(), rt.engine)
}

// executeWithEngine runs status against a provided engine (for testing).
func (c *StatusCommand) executeWithEngine(ctx context.Context, eng *engine.Engine) error {
	st := eng.Status(ctx)

	if c.globals != nil && c.globals.JSON {
		return printJSON(st)
	}
	printStatusHuman(st)
	return nil
}

func printStatusHuman(st engine.Status) {
	fmt.Println("Recall Status")
	fmt.Println("=============")

	version := "unknown"
	if st.Version != nil {
		version = *st.Version
	}
	fmt.Printf("Version:       %s\n", version)

	if strings.HasPrefix(st.DB, "ERROR") {
		fmt.Printf("Database:      %s\n", st.DB)
	} else {
		fmt.Printf("Database:      %s (%s)\n", st.DB, formatBytes(fileSize(st.DB)))
	}

	if st.Stats.TotalVisits != nil {
		fmt.Printf("Visits:        %s\n", formatNumber(*st.Stats.TotalVisits))
	} else {
		fmt.Printf("Visits:        unavailable (%s)\n", st.Stats.Error)
	}
}

// fileSize returns the size of path in bytes, or 0 if it cannot be read.
func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats an int64 with comma separators.
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
		if len(s) > remainder {
			result.WriteString(",")
		}
	}
	for i := remainder; i < len(s); i += 3 {
		if i > remainder {
			result.WriteString(",")
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}
