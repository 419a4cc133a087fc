package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Serve   *ServeCommand
	Status  *StatusCommand
	Visits  *VisitsCommand
	Search  *SearchCommand
	Around  *AroundCommand
	Visited *VisitedCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "recall"
	parser.LongDescription = "Look up your browsing history: which pages you visited, when, and what you noted about them."

	cmds := &commands{
		Serve:   &ServeCommand{globals: &globals, version: version},
		Status:  &StatusCommand{globals: &globals, version: version},
		Visits:  &VisitsCommand{globals: &globals, version: version},
		Search:  &SearchCommand{globals: &globals, version: version},
		Around:  &AroundCommand{globals: &globals, version: version},
		Visited: &VisitedCommand{globals: &globals, version: version},
	}

	parser.AddCommand("serve", "Run the HTTP API", "Serve the browser extension API until interrupted.", cmds.Serve)
	parser.AddCommand("status", "Show database health and statistics", "Show version, database path and visit count.", cmds.Status)
	parser.AddCommand("visits", "Show visits to a URL", "Show visits to a URL, plus annotated visits to pages below it.", cmds.Visits)
	parser.AddCommand("search", "Search visits by substring", "Search URLs, titles and notes for a case-sensitive substring.", cmds.Search)
	parser.AddCommand("around", "Show visits around a point in time", "Show visits from three hours before to two minutes after a timestamp.", cmds.Around)
	parser.AddCommand("visited", "Check which URLs were visited", "Report, for each URL given, whether it was visited.", cmds.Visited)

	return parser, &globals, cmds
}

// Run is the main entry point for the Recall CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("recall %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
