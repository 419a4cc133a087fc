package storage

import "time"

// Visit is a single recorded visit, as written by the indexer.
type Visit struct {
	OriginalURL   string
	NormalizedURL string
	Time          time.Time
	Floating      bool   // dt carried no offset or zone; Time is UTC wall clock
	RawTime       string // dt column exactly as stored
	Locator       Locator
	Context       *string
	Duration      *float64 // seconds
	Source        string
}

// HasContext reports whether the visit carries an annotation.
func (v *Visit) HasContext() bool {
	return v.Context != nil
}

// Locator points back at the place the visit was recorded.
type Locator struct {
	Title string
	Href  string
}
