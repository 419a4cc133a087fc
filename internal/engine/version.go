package engine

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Version is a major.minor.patch triple.
type Version struct {
	Major, Minor, Patch int
}

// Less reports whether v is older than o.
func (v Version) Less(o Version) bool {
	if v.Major != o.Major {
		return v.Major < o.Major
	}
	if v.Minor != o.Minor {
		return v.Minor < o.Minor
	}
	return v.Patch < o.Patch
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

var (
	// LegacyVersion stands in for clients that predate version reporting.
	LegacyVersion = Version{0, 11, 14}
	// LatestVersion stands in for clients whose version cannot be parsed.
	LatestVersion = Version{9999, 9999, 9999}
)

// VersionKind records how a ClientVersion was derived.
type VersionKind int

const (
	VersionParsed VersionKind = iota
	VersionLegacy
	VersionUnparseable
)

func (k VersionKind) String() string {
	switch k {
	case VersionParsed:
		return "parsed"
	case VersionLegacy:
		return "legacy"
	case VersionUnparseable:
		return "unparseable"
	}
	return "unknown"
}

// ClientVersion is the outcome of parsing the version an extension reports.
type ClientVersion struct {
	Kind    VersionKind
	Raw     string
	Version Version
}

// ParseClientVersion never fails. An empty string is a legacy client; a
// malformed one is assumed to be newer than anything known.
func ParseClientVersion(raw string, logger *slog.Logger) ClientVersion {
	if raw == "" {
		return ClientVersion{Kind: VersionLegacy, Version: LegacyVersion}
	}

	v, err := parseTriple(raw)
	if err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("malformed client version, assuming latest", "version", raw, "error", err)
		return ClientVersion{Kind: VersionUnparseable, Raw: raw, Version: LatestVersion}
	}
	return ClientVersion{Kind: VersionParsed, Raw: raw, Version: v}
}

func parseTriple(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("expected 3 components, got %d", len(parts))
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, fmt.Errorf("component %d: %w", i, err)
		}
		if n < 0 {
			return Version{}, fmt.Errorf("component %d is negative", i)
		}
		nums[i] = n
	}
	return Version{nums[0], nums[1], nums[2]}, nil
}
