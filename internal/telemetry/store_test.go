package telemetry

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, InitSchema(db))
	return db
}

func TestStoreFlushAccumulatesAcrossCalls(t *testing.T) {
	db := openTestDB(t)
	store, err := NewStore(db)
	require.NoError(t, err)

	require.NoError(t, store.Flush("2026-07-29", FilteredSparse, Stats{
		Count: 2, Min: 10 * time.Millisecond, Max: 20 * time.Millisecond, Mean: 15 * time.Millisecond,
	}))
	require.NoError(t, store.Flush("2026-07-29", FilteredSparse, Stats{
		Count: 1, Min: 5 * time.Millisecond, Max: 50 * time.Millisecond, Mean: 50 * time.Millisecond,
	}))

	totals, err := store.DailyTotals(FilteredSparse, "2026-07-29", "2026-07-29")
	require.NoError(t, err)
	require.Len(t, totals, 1)
	require.Equal(t, int64(3), totals[0].Count)
	require.Equal(t, 5*time.Millisecond, totals[0].Min)
	require.Equal(t, 50*time.Millisecond, totals[0].Max)
}

func TestStoreDailyTotalsFiltersByDateRange(t *testing.T) {
	db := openTestDB(t)
	store, err := NewStore(db)
	require.NoError(t, err)

	require.NoError(t, store.Flush("2026-07-01", FilteredPlain, Stats{Count: 1, Mean: time.Millisecond}))
	require.NoError(t, store.Flush("2026-07-29", FilteredPlain, Stats{Count: 1, Mean: time.Millisecond}))

	totals, err := store.DailyTotals(FilteredPlain, "2026-07-15", "2026-07-31")
	require.NoError(t, err)
	require.Len(t, totals, 1)
	require.Equal(t, "2026-07-29", totals[0].Date)
}

func TestStoreDailyTotalsSeparatesBuckets(t *testing.T) {
	db := openTestDB(t)
	store, err := NewStore(db)
	require.NoError(t, err)

	require.NoError(t, store.Flush("2026-07-29", SmallCardinality, Stats{Count: 4, Mean: time.Millisecond}))
	require.NoError(t, store.Flush("2026-07-29", UnfilteredSparse, Stats{Count: 9, Mean: time.Millisecond}))

	small, err := store.DailyTotals(SmallCardinality, "2026-07-29", "2026-07-29")
	require.NoError(t, err)
	require.Len(t, small, 1)
	require.Equal(t, int64(4), small[0].Count)
}
