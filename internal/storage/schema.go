package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStoreNotFound is returned when the configured database file does not exist.
	ErrStoreNotFound = errors.New("store not found")

	// ErrSchemaNotInitialized is returned when the database exists but the
	// indexer has never written the visits table.
	ErrSchemaNotInitialized = errors.New("visits table not found, run the indexer first")
)

const visitsTable = "visits"

// visitColumns is the fixed column list selected by every visit query.
// scanVisit depends on this order.
var visitColumns = []string{
	"norm_url",
	"orig_url",
	"dt",
	"locator_title",
	"locator_href",
	"src",
	"context",
	"duration",
}

// selectColumns renders visitColumns qualified with a table alias.
func selectColumns(alias string) string {
	cols := make([]string, len(visitColumns))
	for i, c := range visitColumns {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

// validateSchema checks that the visits table exists and has every column
// the decoder reads.
func validateSchema(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", visitsTable)
	if err != nil {
		return fmt.Errorf("read visits schema: %w", err)
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scan visits schema: %w", err)
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read visits schema: %w", err)
	}

	if len(present) == 0 {
		return ErrSchemaNotInitialized
	}

	var missing []string
	for _, c := range visitColumns {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing columns %s", ErrSchemaNotInitialized, strings.Join(missing, ", "))
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanVisit decodes one row selected with visitColumns. prefix receives any
// columns the query selects ahead of the visit columns.
func scanVisit(r rowScanner, prefix ...any) (Visit, error) {
	var (
		v           Visit
		title, href sql.NullString
		src, note   sql.NullString
		duration    sql.NullFloat64
	)

	dest := append(prefix, &v.NormalizedURL, &v.OriginalURL, &v.RawTime,
		&title, &href, &src, &note, &duration)
	if err := r.Scan(dest...); err != nil {
		return Visit{}, fmt.Errorf("scan visit: %w", err)
	}

	t, floating, err := parseVisitTime(v.RawTime)
	if err != nil {
		return Visit{}, err
	}
	v.Time, v.Floating = t, floating

	// Locator is expected for every visit; tolerate rows without one.
	v.Locator = Locator{Title: title.String, Href: href.String}
	v.Source = src.String
	if note.Valid {
		c := note.String
		v.Context = &c
	}
	if duration.Valid {
		d := duration.Float64
		v.Duration = &d
	}
	return v, nil
}

// mapQueryError translates a missing visits table into ErrSchemaNotInitialized.
func mapQueryError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "no such table: "+visitsTable) {
		return fmt.Errorf("%w (%v)", ErrSchemaNotInitialized, err)
	}
	return err
}
