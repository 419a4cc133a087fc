package storage

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // zone suffixes must resolve without system zoneinfo
)

// Layouts carrying an explicit UTC offset.
var offsetLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05-0700",
}

// Layouts without an offset.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// parseVisitTime decodes the dt column. The indexer stores an ISO instant,
// optionally followed by a space and an IANA zone name:
//
//	2020-11-10T06:13:03.196376+00:00 Europe/London
//
// Everything after the last space is a zone hint, unless the whole value
// already parses (a space may separate date and clock).
// Naive values without a usable hint are returned as UTC wall clock with
// floating set; the caller decides which zone they belong to.
func parseVisitTime(raw string) (t time.Time, floating bool, err error) {
	s := strings.TrimSpace(raw)

	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true, nil
		}
	}

	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, false, nil
		}
	}

	instant, zone := s, ""
	if i := strings.LastIndexByte(s, ' '); i >= 0 {
		instant, zone = s[:i], s[i+1:]
	}
	var hint *time.Location
	if zone != "" {
		if loc, err := time.LoadLocation(zone); err == nil {
			hint = loc
		}
	}

	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, instant); err == nil {
			if hint != nil {
				t = t.In(hint)
			}
			return t, false, nil
		}
	}

	// A naive instant with a zone hint is wall time in that zone.
	loc := time.UTC
	if hint != nil {
		loc = hint
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, instant, loc); err == nil {
			return t, hint == nil, nil
		}
	}

	return time.Time{}, false, fmt.Errorf("cannot parse visit timestamp: %q", raw)
}
