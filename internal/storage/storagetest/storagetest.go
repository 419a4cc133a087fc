// Package storagetest builds visits databases on disk for tests, using the
// same table layout the indexer writes.
//
// Usage:
//
//	path := storagetest.NewDB(t,
//		storagetest.Row{Norm: "ex.com/a", DT: "2021-01-01T10:00:00+00:00"},
//	)
package storagetest

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// Schema is the visits table as created by the indexer.
const Schema = `CREATE TABLE visits (
	norm_url      VARCHAR,
	orig_url      VARCHAR,
	dt            VARCHAR,
	locator_title VARCHAR,
	locator_href  VARCHAR,
	src           VARCHAR,
	context       VARCHAR,
	duration      INTEGER
)`

// Row is one visit to insert. Nil pointers become NULL.
type Row struct {
	Norm     string
	Orig     string
	DT       string
	Title    *string
	Href     *string
	Src      *string
	Context  *string
	Duration *float64
}

// Str returns a pointer to s.
func Str(s string) *string { return &s }

// Seconds returns a pointer to d.
func Seconds(d float64) *float64 { return &d }

// NewDB creates a database with the visits table and rows in a temp dir and
// returns its path.
func NewDB(t testing.TB, rows ...Row) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "visits.sqlite")

	db := open(t, path)
	defer db.Close()

	_, err := db.Exec(Schema)
	require.NoError(t, err)
	insert(t, db, rows)

	return path
}

// NewEmptyDB creates a database file that has no visits table, as if the
// indexer had never run.
func NewEmptyDB(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "empty.sqlite")

	db := open(t, path)
	defer db.Close()

	_, err := db.Exec(`CREATE TABLE unrelated (id INTEGER PRIMARY KEY)`)
	require.NoError(t, err)
	return path
}

// Append inserts rows into an existing database and bumps its mtime so that
// handle caches notice the change.
func Append(t testing.TB, path string, rows ...Row) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)

	db := open(t, path)
	insert(t, db, rows)
	require.NoError(t, db.Close())

	Touch(t, path, info.ModTime().Add(time.Second))
}

// Touch sets the modification time of path.
func Touch(t testing.TB, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func open(t testing.TB, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	return db
}

func insert(t testing.TB, db *sql.DB, rows []Row) {
	t.Helper()
	const insertSQL = `INSERT INTO visits
		(norm_url, orig_url, dt, locator_title, locator_href, src, context, duration)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	for _, r := range rows {
		orig := r.Orig
		if orig == "" {
			orig = "https://" + r.Norm
		}
		_, err := db.Exec(insertSQL, r.Norm, orig, r.DT, r.Title, r.Href, r.Src, r.Context, r.Duration)
		require.NoError(t, err)
	}
}
