package cli

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config   string `long:"config" description:"Path to config file" default:""`
	DB       string `long:"db" description:"Path to the visits database (overrides config)"`
	Timezone string `long:"timezone" description:"IANA zone for timestamps stored without one (overrides config)"`
	JSON     bool   `long:"json" description:"Output in JSON format"`
	Verbose  bool   `long:"verbose" description:"Enable verbose output"`
	Version  bool   `long:"version" description:"Show version and exit"`
}

// ServeCommand runs the HTTP API for the browser extension.
type ServeCommand struct {
	Host string `long:"host" description:"Listen host (overrides config)"`
	Port int    `long:"port" description:"Listen port (overrides config)"`

	globals *GlobalFlags
	version string
}

// StatusCommand shows version, database path and visit count.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// VisitsCommand shows visits to one URL.
type VisitsCommand struct {
	URL string `long:"url" description:"URL to look up (required)"`

	globals *GlobalFlags
	version string
}

// SearchCommand searches URLs, titles and notes for a substring.
type SearchCommand struct {
	globals *GlobalFlags
	version string
}

// AroundCommand lists visits near a point in time.
type AroundCommand struct {
	Timestamp float64 `long:"timestamp" description:"UTC epoch seconds"`
	At        string  `long:"at" description:"RFC 3339 time, e.g. 2021-01-01T10:00:00Z"`

	globals *GlobalFlags
	version string
}

// VisitedCommand checks many URLs at once.
type VisitedCommand struct {
	ClientVersion string `long:"client-version" description:"Extension version to report (for compatibility logging)"`

	globals *GlobalFlags
	version string
}
