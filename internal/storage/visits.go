package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Window around a timestamp searched by VisitsAround.
const (
	AroundBefore = 3 * time.Hour
	AroundAfter  = 2 * time.Minute
)

// FindVisits returns visits whose normalized URL equals key, plus
// descendants (normalized URL prefixed by key) that carry a context.
func (h *Handle) FindVisits(ctx context.Context, key string) ([]Visit, error) {
	query := `SELECT ` + selectColumns("v") + ` FROM visits v
		WHERE v.norm_url = ?
		   OR (v.context IS NOT NULL AND substr(v.norm_url, 1, length(?)) = ?)`
	return h.queryVisits(ctx, query, key, key, key)
}

// SearchVisits returns visits where q is a case-sensitive substring of the
// normalized URL, original URL, context or locator title.
func (h *Handle) SearchVisits(ctx context.Context, q string) ([]Visit, error) {
	query := `SELECT ` + selectColumns("v") + ` FROM visits v
		WHERE instr(v.norm_url, ?) > 0
		   OR instr(v.orig_url, ?) > 0
		   OR instr(v.context, ?) > 0
		   OR instr(v.locator_title, ?) > 0`
	return h.queryVisits(ctx, query, q, q, q, q)
}

// VisitsAround returns visits recorded between AroundBefore before and
// AroundAfter after the given UTC epoch seconds. A space between date and
// clock is rewritten to 'T', then dt is cut at its first remaining space so
// that a trailing zone name does not reach strftime.
func (h *Handle) VisitsAround(ctx context.Context, epoch float64) ([]Visit, error) {
	query := `SELECT ` + selectColumns("v") + ` FROM (
			SELECT *, CASE WHEN substr(dt, 11, 1) = ' '
			               THEN substr(dt, 1, 10) || 'T' || substr(dt, 12)
			               ELSE dt END AS iso
			FROM visits
		) v
		WHERE strftime('%s', substr(v.iso, 1, instr(v.iso || ' ', ' ') - 1)) - ?
		      BETWEEN ? AND ?`
	return h.queryVisits(ctx, query, epoch, -AroundBefore.Seconds(), AroundAfter.Seconds())
}

// VisitedBatch looks up many normalized URLs in a single query and returns
// one visit per matched key. keys must already be deduplicated. When a key
// matches several rows, a row with a context is preferred.
func (h *Handle) VisitedBatch(ctx context.Context, keys []string) (map[string]Visit, error) {
	found := make(map[string]Visit, len(keys))
	if len(keys) == 0 {
		return found, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("(?),", len(keys)), ",")
	query := `WITH cte(queried) AS (VALUES ` + placeholders + `)
		SELECT cte.queried, ` + selectColumns("v") + `
		FROM cte JOIN visits v ON cte.queried = v.norm_url
		ORDER BY v.context IS NULL DESC`

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	err := h.WithConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return mapQueryError(fmt.Errorf("query visited: %w", err))
		}
		defer rows.Close()

		for rows.Next() {
			var queried string
			v, err := scanVisit(rows, &queried)
			if err != nil {
				return err
			}
			// Rows without context sort first; later rows win, but never
			// replace an annotated visit with a bare one.
			if prev, ok := found[queried]; ok && prev.HasContext() && !v.HasContext() {
				continue
			}
			found[queried] = v
		}
		return mapQueryError(rows.Err())
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// CountVisits returns the total number of stored visits.
func (h *Handle) CountVisits(ctx context.Context) (int64, error) {
	var total int64
	err := h.WithConn(ctx, func(conn *sql.Conn) error {
		err := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM visits").Scan(&total)
		if err != nil {
			return mapQueryError(fmt.Errorf("count visits: %w", err))
		}
		return nil
	})
	return total, err
}

// queryVisits executes a visit query on a dedicated connection.
func (h *Handle) queryVisits(ctx context.Context, query string, args ...any) ([]Visit, error) {
	var visits []Visit
	err := h.WithConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return mapQueryError(fmt.Errorf("query visits: %w", err))
		}
		defer rows.Close()

		for rows.Next() {
			v, err := scanVisit(rows)
			if err != nil {
				return err
			}
			visits = append(visits, v)
		}
		return mapQueryError(rows.Err())
	})
	if err != nil {
		return nil, err
	}

	// Return empty slice rather than nil
	if visits == nil {
		visits = []Visit{}
	}
	return visits, nil
}
