package engine

import (
	"time"

	"github.com/runnerr0/recall/internal/storage"
)

// TimeLayout is how visit timestamps are rendered. It always carries the
// UTC offset.
const TimeLayout = "02 Jan 2006 15:04:05 -0700"

// UnnamedSource is reported for visits whose indexer source is unknown.
const UnnamedSource = "unnamed"

// Locator is the JSON form of storage.Locator.
type Locator struct {
	Title string `json:"title"`
	Href  string `json:"href"`
}

// ShapedVisit is a visit as returned to clients.
type ShapedVisit struct {
	Time          string   `json:"dt"`
	Source        string   `json:"src"`
	Context       *string  `json:"context"`
	Duration      *float64 `json:"duration"`
	Locator       Locator  `json:"locator"`
	OriginalURL   string   `json:"original_url"`
	NormalizedURL string   `json:"normalised_url"`
}

// Envelope wraps the visits found for one query.
type Envelope struct {
	OriginalURL   string        `json:"original_url"`
	NormalizedURL string        `json:"normalised_url"`
	Visits        []ShapedVisit `json:"visits"`
}

// localize anchors a floating timestamp's wall clock in loc.
func localize(v *storage.Visit, loc *time.Location) time.Time {
	t := v.Time
	if !v.Floating {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

func (e *Engine) shape(v *storage.Visit) ShapedVisit {
	src := v.Source
	if src == "" {
		src = UnnamedSource
	}
	return ShapedVisit{
		Time:          localize(v, e.location()).Format(TimeLayout),
		Source:        src,
		Context:       v.Context,
		Duration:      v.Duration,
		Locator:       Locator{Title: v.Locator.Title, Href: v.Locator.Href},
		OriginalURL:   v.OriginalURL,
		NormalizedURL: v.NormalizedURL,
	}
}

func (e *Engine) shapeAll(visits []storage.Visit) []ShapedVisit {
	out := make([]ShapedVisit, len(visits))
	for i := range visits {
		out[i] = e.shape(&visits[i])
	}
	return out
}
