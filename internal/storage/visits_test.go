package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/runnerr0/recall/internal/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestHandle(t *testing.T, rows ...storagetest.Row) *Handle {
	t.Helper()
	path := storagetest.NewDB(t, rows...)
	h, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { h.retire() })
	return h
}

func openWritable(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	return db
}

func normURLs(visits []Visit) []string {
	out := make([]string, len(visits))
	for i, v := range visits {
		out[i] = v.NormalizedURL
	}
	sort.Strings(out)
	return out
}

// --- FindVisits ---

func TestFindVisits_ExactMatchIgnoresContext(t *testing.T) {
	h := openTestHandle(t,
		storagetest.Row{Norm: "ex.com/a", DT: "2021-01-01T10:00:00+00:00"},
		storagetest.Row{Norm: "ex.com/a", DT: "2021-01-02T10:00:00+00:00", Context: storagetest.Str("note")},
		storagetest.Row{Norm: "ex.com/b", DT: "2021-01-01T10:00:00+00:00"},
	)

	visits, err := h.FindVisits(context.Background(), "ex.com/a")
	require.NoError(t, err)
	assert.Equal(t, []string{"ex.com/a", "ex.com/a"}, normURLs(visits))
}

func TestFindVisits_DescendantsNeedContext(t *testing.T) {
	h := openTestHandle(t,
		storagetest.Row{Norm: "ex.com/a/child", DT: "2021-01-01T10:00:00+00:00"},
		storagetest.Row{Norm: "ex.com/a/annotated", DT: "2021-01-01T10:00:00+00:00", Context: storagetest.Str("worth it")},
		storagetest.Row{Norm: "ex.com/ab", DT: "2021-01-01T10:00:00+00:00", Context: storagetest.Str("prefix too")},
		storagetest.Row{Norm: "other.com/ex.com/a/x", DT: "2021-01-01T10:00:00+00:00", Context: storagetest.Str("not a prefix")},
	)

	visits, err := h.FindVisits(context.Background(), "ex.com/a")
	require.NoError(t, err)
	assert.Equal(t, []string{"ex.com/a/annotated", "ex.com/ab"}, normURLs(visits))
}

func TestFindVisits_PrefixIsLiteral(t *testing.T) {
	h := openTestHandle(t,
		storagetest.Row{Norm: "ex.com/100%/x", DT: "2021-01-01T10:00:00+00:00", Context: storagetest.Str("c")},
		storagetest.Row{Norm: "ex.com/100a/x", DT: "2021-01-01T10:00:00+00:00", Context: storagetest.Str("c")},
		storagetest.Row{Norm: "EX.com/100%/y", DT: "2021-01-01T10:00:00+00:00", Context: storagetest.Str("c")},
	)

	visits, err := h.FindVisits(context.Background(), "ex.com/100%")
	require.NoError(t, err)
	assert.Equal(t, []string{"ex.com/100%/x"}, normURLs(visits))
}

func TestFindVisits_NoMatchReturnsEmptySlice(t *testing.T) {
	h := openTestHandle(t,
		storagetest.Row{Norm: "ex.com/a", DT: "2021-01-01T10:00:00+00:00"},
	)

	visits, err := h.FindVisits(context.Background(), "nowhere.org")
	require.NoError(t, err)
	assert.NotNil(t, visits)
	assert.Empty(t, visits)
}

func TestFindVisits_DecodesAllFields(t *testing.T) {
	h := openTestHandle(t, storagetest.Row{
		Norm:     "ex.com/a",
		Orig:     "https://www.ex.com/a/",
		DT:       "2021-01-01T10:00:00+01:00",
		Title:    storagetest.Str("Page A"),
		Href:     storagetest.Str("https://www.ex.com/a/"),
		Src:      storagetest.Str("chrome"),
		Context:  storagetest.Str("note"),
		Duration: storagetest.Seconds(42),
	})

	visits, err := h.FindVisits(context.Background(), "ex.com/a")
	require.NoError(t, err)
	require.Len(t, visits, 1)

	v := visits[0]
	assert.Equal(t, "https://www.ex.com/a/", v.OriginalURL)
	assert.Equal(t, "ex.com/a", v.NormalizedURL)
	assert.Equal(t, "2021-01-01T10:00:00+01:00", v.RawTime)
	assert.Equal(t, int64(1609491600), v.Time.Unix())
	assert.Equal(t, Locator{Title: "Page A", Href: "https://www.ex.com/a/"}, v.Locator)
	assert.Equal(t, "chrome", v.Source)
	require.NotNil(t, v.Context)
	assert.Equal(t, "note", *v.Context)
	require.NotNil(t, v.Duration)
	assert.Equal(t, 42.0, *v.Duration)
}

func TestFindVisits_NullLocatorDefaultsToEmpty(t *testing.T) {
	h := openTestHandle(t,
		storagetest.Row{Norm: "ex.com/a", DT: "2021-01-01T10:00:00+00:00"},
	)

	visits, err := h.FindVisits(context.Background(), "ex.com/a")
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.Equal(t, Locator{}, visits[0].Locator)
	assert.Nil(t, visits[0].Context)
	assert.Nil(t, visits[0].Duration)
	assert.Empty(t, visits[0].Source)
}

// --- SearchVisits ---

func TestSearchVisits_MatchesAnyField(t *testing.T) {
	h := openTestHandle(t,
		storagetest.Row{Norm: "golang.org/doc", DT: "2021-01-01T10:00:00+00:00"},
		storagetest.Row{Norm: "a.com", Orig: "https://a.com/?q=golang", DT: "2021-01-01T10:00:00+00:00"},
		storagetest.Row{Norm: "b.com", DT: "2021-01-01T10:00:00+00:00", Context: storagetest.Str("learning golang")},
		storagetest.Row{Norm: "c.com", DT: "2021-01-01T10:00:00+00:00", Title: storagetest.Str("golang weekly")},
		storagetest.Row{Norm: "d.com", DT: "2021-01-01T10:00:00+00:00", Title: storagetest.Str("rust weekly")},
	)

	visits, err := h.SearchVisits(context.Background(), "golang")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.com", "b.com", "c.com", "golang.org/doc"}, normURLs(visits))
}

func TestSearchVisits_CaseSensitive(t *testing.T) {
	h := openTestHandle(t,
		storagetest.Row{Norm: "a.com", DT: "2021-01-01T10:00:00+00:00", Title: storagetest.Str("Golang")},
		storagetest.Row{Norm: "b.com", DT: "2021-01-01T10:00:00+00:00", Title: storagetest.Str("golang")},
	)

	visits, err := h.SearchVisits(context.Background(), "Golang")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.com"}, normURLs(visits))
}

func TestSearchVisits_WildcardsAreLiteral(t *testing.T) {
	h := openTestHandle(t,
		storagetest.Row{Norm: "a.com/50_off", DT: "2021-01-01T10:00:00+00:00"},
		storagetest.Row{Norm: "a.com/50xoff", DT: "2021-01-01T10:00:00+00:00"},
	)

	visits, err := h.SearchVisits(context.Background(), "50_off")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.com/50_off"}, normURLs(visits))
}

// --- VisitsAround ---

func TestVisitsAround_WindowBounds(t *testing.T) {
	base := time.Date(2021, 1, 1, 10, 0, 0, 0, time.UTC)
	at := func(d time.Duration) string { return base.Add(d).Format(time.RFC3339) }

	h := openTestHandle(t,
		storagetest.Row{Norm: "back-edge", DT: at(-3 * time.Hour)},
		storagetest.Row{Norm: "too-early", DT: at(-3*time.Hour - time.Second)},
		storagetest.Row{Norm: "front-edge", DT: at(2 * time.Minute)},
		storagetest.Row{Norm: "too-late", DT: at(2*time.Minute + time.Second)},
		storagetest.Row{Norm: "exact", DT: at(0)},
	)

	visits, err := h.VisitsAround(context.Background(), float64(base.Unix()))
	require.NoError(t, err)
	assert.Equal(t, []string{"back-edge", "exact", "front-edge"}, normURLs(visits))
}

func TestVisitsAround_ZoneSuffixAndOffsets(t *testing.T) {
	h := openTestHandle(t,
		// 10:00 UTC, written with a zone name suffix
		storagetest.Row{Norm: "suffixed", DT: "2021-01-01T10:00:00.196376+00:00 Europe/London"},
		// 10:00 UTC, written in +05:00
		storagetest.Row{Norm: "offset", DT: "2021-01-01T15:00:00+05:00"},
		// 10:00 UTC, space-separated with a zone name suffix
		storagetest.Row{Norm: "spaced", DT: "2021-01-01 10:00:00 Europe/London"},
		// 15:00 UTC, outside the window
		storagetest.Row{Norm: "far", DT: "2021-01-01T15:00:00+00:00"},
		// 15:00 UTC, space-separated, outside the window
		storagetest.Row{Norm: "spaced-far", DT: "2021-01-01 15:00:00 Europe/London"},
	)

	ts := float64(time.Date(2021, 1, 1, 10, 0, 30, 0, time.UTC).Unix())
	visits, err := h.VisitsAround(context.Background(), ts)
	require.NoError(t, err)
	assert.Equal(t, []string{"offset", "spaced", "suffixed"}, normURLs(visits))
}

// --- VisitedBatch ---

func TestVisitedBatch_PrefersVisitWithContext(t *testing.T) {
	h := openTestHandle(t,
		storagetest.Row{Norm: "ex.com/a", DT: "2021-01-01T10:00:00+00:00"},
		storagetest.Row{Norm: "ex.com/a", DT: "2021-01-02T10:00:00+00:00", Context: storagetest.Str("keep me")},
		storagetest.Row{Norm: "ex.com/a", DT: "2021-01-03T10:00:00+00:00"},
		storagetest.Row{Norm: "ex.com/b", DT: "2021-01-01T10:00:00+00:00"},
	)

	found, err := h.VisitedBatch(context.Background(), []string{"ex.com/a", "ex.com/b", "ex.com/c"})
	require.NoError(t, err)
	require.Len(t, found, 2)

	a := found["ex.com/a"]
	require.NotNil(t, a.Context)
	assert.Equal(t, "keep me", *a.Context)
	assert.Equal(t, "ex.com/b", found["ex.com/b"].NormalizedURL)

	_, ok := found["ex.com/c"]
	assert.False(t, ok)
}

func TestVisitedBatch_EmptyKeys(t *testing.T) {
	h := openTestHandle(t)

	found, err := h.VisitedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestVisitedBatch_ManyKeys(t *testing.T) {
	h := openTestHandle(t,
		storagetest.Row{Norm: "k-0500", DT: "2021-01-01T10:00:00+00:00"},
	)

	keys := make([]string, 2000)
	for i := range keys {
		keys[i] = fmt.Sprintf("k-%04d", i)
	}

	found, err := h.VisitedBatch(context.Background(), keys)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

// --- CountVisits ---

func TestCountVisits(t *testing.T) {
	h := openTestHandle(t,
		storagetest.Row{Norm: "a", DT: "2021-01-01T10:00:00+00:00"},
		storagetest.Row{Norm: "a", DT: "2021-01-01T11:00:00+00:00"},
		storagetest.Row{Norm: "b", DT: "2021-01-01T10:00:00+00:00"},
	)

	n, err := h.CountVisits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

// --- schema errors ---

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(context.Background(), "/tmp/recall_nonexistent_12345/visits.sqlite")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStoreNotFound))
}

func TestOpen_NoVisitsTable(t *testing.T) {
	path := storagetest.NewEmptyDB(t)

	_, err := Open(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaNotInitialized))
}

func TestOpen_MissingColumns(t *testing.T) {
	path := storagetest.NewEmptyDB(t)
	db := openWritable(t, path)
	_, err := db.Exec(`CREATE TABLE visits (norm_url VARCHAR, dt VARCHAR)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaNotInitialized))
	assert.Contains(t, err.Error(), "orig_url")
	assert.Contains(t, err.Error(), "locator_title")
}

func TestQuery_TableDroppedAfterOpen(t *testing.T) {
	path := storagetest.NewDB(t,
		storagetest.Row{Norm: "a", DT: "2021-01-01T10:00:00+00:00"},
	)
	h, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { h.retire() })

	db := openWritable(t, path)
	_, err = db.Exec(`DROP TABLE visits`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = h.FindVisits(context.Background(), "a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaNotInitialized))
}

func TestOpen_ReadOnly(t *testing.T) {
	h := openTestHandle(t,
		storagetest.Row{Norm: "a", DT: "2021-01-01T10:00:00+00:00"},
	)

	_, err := h.db.Exec(`DELETE FROM visits`)
	assert.Error(t, err, "handle must not be able to write")
}
