package engine

import (
	"context"
	"sort"

	"github.com/runnerr0/recall/internal/storage"
)

// Lookup returns visits to url itself, plus annotated visits to pages
// below it.
func (e *Engine) Lookup(ctx context.Context, url string) (*Envelope, error) {
	trimmed, key := e.canon.Effective(url)
	return e.query(ctx, trimmed, key, key, (*storage.Handle).FindVisits)
}

// Search returns visits whose URLs, context or title contain query as a
// literal substring. The query is matched as typed, without
// canonicalization; the envelope still reports its canonical key.
func (e *Engine) Search(ctx context.Context, query string) (*Envelope, error) {
	trimmed, key := e.canon.Effective(query)
	return e.query(ctx, trimmed, key, trimmed, (*storage.Handle).SearchVisits)
}

// query runs find with term and wraps the result in an envelope.
func (e *Engine) query(ctx context.Context, trimmed, key, term string,
	find func(*storage.Handle, context.Context, string) ([]storage.Visit, error)) (*Envelope, error) {

	e.logger.Debug("looking up visits", "url", trimmed, "normalized", key, "term", term)

	var visits []storage.Visit
	err := e.withHandle(ctx, func(h *storage.Handle) error {
		var err error
		visits, err = find(h, ctx, term)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &Envelope{
		OriginalURL:   trimmed,
		NormalizedURL: key,
		Visits:        e.shapeAll(visits),
	}, nil
}

// LookupAround returns visits recorded from three hours before to two
// minutes after ts (UTC epoch seconds). The envelope carries no URLs.
func (e *Engine) LookupAround(ctx context.Context, ts float64) (*Envelope, error) {
	var visits []storage.Visit
	err := e.withHandle(ctx, func(h *storage.Handle) error {
		var err error
		visits, err = h.VisitsAround(ctx, ts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Envelope{Visits: e.shapeAll(visits)}, nil
}

// LookupBatch reports, for each of urls, one visit to it or nil. The
// result is aligned with urls. clientVersion is parsed and logged only.
func (e *Engine) LookupBatch(ctx context.Context, urls []string, clientVersion string) ([]*ShapedVisit, error) {
	cv := ParseClientVersion(clientVersion, e.logger)
	e.logger.Debug("batch lookup", "urls", len(urls), "client_version", cv.Version.String(), "version_kind", cv.Kind.String())

	result := make([]*ShapedVisit, len(urls))
	if len(urls) == 0 {
		return result, nil
	}

	keys := make([]string, len(urls))
	unique := make(map[string]struct{}, len(urls))
	for i, u := range urls {
		_, keys[i] = e.canon.Effective(u)
		unique[keys[i]] = struct{}{}
	}
	sorted := make([]string, 0, len(unique))
	for k := range unique {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var found map[string]storage.Visit
	err := e.withHandle(ctx, func(h *storage.Handle) error {
		var err error
		found, err = h.VisitedBatch(ctx, sorted)
		return err
	})
	if err != nil {
		return nil, err
	}

	shaped := make(map[string]*ShapedVisit, len(found))
	for k, v := range found {
		sv := e.shape(&v)
		shaped[k] = &sv
	}
	for i, k := range keys {
		result[i] = shaped[k]
	}

	e.logger.Debug("batch lookup done", "matched", len(found), "distinct", len(sorted))
	return result, nil
}
