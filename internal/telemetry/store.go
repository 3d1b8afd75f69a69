package telemetry

import (
	"database/sql"
	"fmt"
	"time"
)

// Store persists daily per-bucket aggregate counters to SQLite so
// telemetry survives process restarts. It is optional: Index works
// without a Store. Snapshot always reflects only the current process's
// in-memory aggregators; persisted rows are read back via DailyTotals.
type Store struct {
	db *sql.DB
}

// NewStore wraps an already-open database handle. It expects the
// schema to exist; call InitSchema first on a fresh database.
func NewStore(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &Store{db: db}, nil
}

// InitSchema creates the telemetry table if it doesn't exist.
func InitSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS bucket_stats (
		date     TEXT NOT NULL,
		bucket   TEXT NOT NULL,
		count    INTEGER NOT NULL DEFAULT 0,
		total_ns INTEGER NOT NULL DEFAULT 0,
		min_ns   INTEGER NOT NULL DEFAULT 0,
		max_ns   INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, bucket)
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create telemetry schema: %w", err)
	}
	return nil
}

// Flush persists one day's worth of a bucket's aggregate stats,
// accumulating into any existing row for that date and bucket.
func (s *Store) Flush(date string, bucket Bucket, stats Stats) error {
	totalNs := int64(stats.Mean) * stats.Count
	if stats.Count == 0 {
		totalNs = 0
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT INTO bucket_stats (date, bucket, count, total_ns, min_ns, max_ns)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, bucket) DO UPDATE SET
			count    = count + excluded.count,
			total_ns = total_ns + excluded.total_ns,
			min_ns   = CASE WHEN min_ns = 0 OR excluded.min_ns < min_ns THEN excluded.min_ns ELSE min_ns END,
			max_ns   = CASE WHEN excluded.max_ns > max_ns THEN excluded.max_ns ELSE max_ns END
	`, date, string(bucket), stats.Count, totalNs, int64(stats.Min), int64(stats.Max))
	if err != nil {
		return fmt.Errorf("upsert bucket stats: %w", err)
	}

	return tx.Commit()
}

// DailyTotal is one day's accumulated counters for a bucket.
type DailyTotal struct {
	Date  string
	Count int64
	Mean  time.Duration
	Min   time.Duration
	Max   time.Duration
}

// DailyTotals retrieves the accumulated counters for bucket across the
// inclusive date range [from, to], ordered by date ascending.
func (s *Store) DailyTotals(bucket Bucket, from, to string) ([]DailyTotal, error) {
	rows, err := s.db.Query(`
		SELECT date, count, total_ns, min_ns, max_ns
		FROM bucket_stats
		WHERE bucket = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, string(bucket), from, to)
	if err != nil {
		return nil, fmt.Errorf("query daily totals: %w", err)
	}
	defer rows.Close()

	var out []DailyTotal
	for rows.Next() {
		var d DailyTotal
		var totalNs, minNs, maxNs int64
		if err := rows.Scan(&d.Date, &d.Count, &totalNs, &minNs, &maxNs); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		d.Min = time.Duration(minNs)
		d.Max = time.Duration(maxNs)
		if d.Count > 0 {
			d.Mean = time.Duration(totalNs / d.Count)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Close releases resources. The underlying db is not closed since it
// may be shared with other components.
func (s *Store) Close() error {
	return nil
}
