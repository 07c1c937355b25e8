// Package lookupdb persists reference records in a SQLite lookup table.
//
// All records share one table keyed by (category, key). A sync pass marks a
// category stale, re-upserts every record it sees with updated=1, and prunes
// whatever is still stale, so readers always see a consistent (if briefly
// old) dataset while a sync is running.
package lookupdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hamref/refsync/pkg/logging"
)

// ErrNotFound is returned by FindByKey when no record matches.
var ErrNotFound = errors.New("lookupdb: record not found")

// Config holds configuration for the lookup store.
type Config struct {
	// Path is the path to the SQLite database file.
	Path string
	// Synchronous sets the SQLite synchronous pragma.
	// "NORMAL" is the default (good balance of safety and speed).
	Synchronous string
	// CacheSizeKB is the page cache size in KB (default 64MB).
	CacheSizeKB int
}

// DefaultConfig returns a configuration tuned for bulk refresh workloads.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		Synchronous: "NORMAL",
		CacheSizeKB: 65536, // 64MB
	}
}

// Validate checks configuration values.
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("Path is required")
	}
	switch c.Synchronous {
	case "", "OFF", "NORMAL", "FULL":
	default:
		return fmt.Errorf("invalid Synchronous value %q: must be OFF, NORMAL, or FULL", c.Synchronous)
	}
	if c.CacheSizeKB < 0 {
		return fmt.Errorf("CacheSizeKB must be non-negative, got %d", c.CacheSizeKB)
	}
	return nil
}

// Record is one persisted reference entry.
type Record struct {
	Category    string
	SubCategory string
	Key         string
	Name        string
	// Data is the serialized payload of the full source row.
	Data []byte
	Lat  float64
	Lon  float64
	// Flags marks the record active.
	Flags bool
	// Updated is the staleness marker driving pruning.
	Updated bool
}

// Store is a SQLite-backed lookup store.
type Store struct {
	db  *sql.DB
	cfg Config
}

// Open creates or opens the lookup database.
func Open(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Synchronous == "" {
		cfg.Synchronous = "NORMAL"
	}
	if cfg.CacheSizeKB == 0 {
		cfg.CacheSizeKB = DefaultConfig("").CacheSizeKB
	}

	log := logging.WithPhase("lookupdb_open")

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA synchronous=%s", cfg.Synchronous),
		"PRAGMA temp_store=MEMORY",
		fmt.Sprintf("PRAGMA cache_size=-%d", cfg.CacheSizeKB),
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute pragma %q: %w", pragma, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	log.Info().
		Str("db_path", cfg.Path).
		Str("synchronous", cfg.Synchronous).
		Msg("opened lookup store")

	return &Store{db: db, cfg: cfg}, nil
}

func createSchema(db *sql.DB) error {
	createLookups := `
		CREATE TABLE IF NOT EXISTS lookups (
			category TEXT NOT NULL,
			subcategory TEXT NOT NULL DEFAULT '',
			key TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			data TEXT NOT NULL DEFAULT '',
			lat REAL NOT NULL DEFAULT 0,
			lon REAL NOT NULL DEFAULT 0,
			flags INTEGER NOT NULL DEFAULT 0,
			updated INTEGER NOT NULL DEFAULT 1,
			PRIMARY KEY (category, key)
		)
	`
	if _, err := db.Exec(createLookups); err != nil {
		return fmt.Errorf("create lookups table: %w", err)
	}

	// Region-scoped text and bounding-box queries both filter on
	// (category, subcategory) first.
	createRegionIndex := `
		CREATE INDEX IF NOT EXISTS lookups_region
		ON lookups (category, subcategory)
	`
	if _, err := db.Exec(createRegionIndex); err != nil {
		return fmt.Errorf("create region index: %w", err)
	}

	createSyncMeta := `
		CREATE TABLE IF NOT EXISTS sync_meta (
			category TEXT NOT NULL PRIMARY KEY,
			etag TEXT NOT NULL DEFAULT '',
			last_sync INTEGER NOT NULL DEFAULT 0,
			prefixes TEXT NOT NULL DEFAULT '{}'
		)
	`
	if _, err := db.Exec(createSyncMeta); err != nil {
		return fmt.Errorf("create sync_meta table: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// MarkCategoryStale flags every record of the category as stale
// (updated=0) without deleting anything. Returns the number of rows marked.
func (s *Store) MarkCategoryStale(ctx context.Context, category string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE lookups SET updated = 0 WHERE category = ?", category)
	if err != nil {
		return 0, fmt.Errorf("mark category %q stale: %w", category, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

const upsertSQL = `
	INSERT INTO lookups
		(category, subcategory, key, name, data, lat, lon, flags, updated)
	VALUES
		(?, ?, ?, ?, ?, ?, ?, ?, 1)
	ON CONFLICT (category, key) DO UPDATE SET
		subcategory = excluded.subcategory,
		name = excluded.name,
		data = excluded.data,
		lat = excluded.lat,
		lon = excluded.lon,
		flags = excluded.flags,
		updated = 1
`

// UpsertBatch applies one group of records as a single transaction: insert
// where (category, key) is new, otherwise update all mutable fields. Every
// written row gets updated=1. Either all records commit or none do.
func (s *Store) UpsertBatch(ctx context.Context, category string, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare upsert statement: %w", err)
	}

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			category, rec.SubCategory, rec.Key, rec.Name, string(rec.Data),
			rec.Lat, rec.Lon, boolToInt(rec.Flags),
		)
		if err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("upsert %s/%s: %w", category, rec.Key, err)
		}
	}

	stmt.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert batch: %w", err)
	}
	return nil
}

// DeleteStaleRemaining deletes every record of the category still flagged
// stale. Returns the number of rows pruned.
func (s *Store) DeleteStaleRemaining(ctx context.Context, category string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM lookups WHERE category = ? AND updated = 0", category)
	if err != nil {
		return 0, fmt.Errorf("prune stale %q records: %w", category, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DeleteCategory removes every record of the category, used when a feed is
// disabled or removed. Returns the number of rows deleted.
func (s *Store) DeleteCategory(ctx context.Context, category string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM lookups WHERE category = ?", category)
	if err != nil {
		return 0, fmt.Errorf("delete category %q: %w", category, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

const selectColumns = "category, subcategory, key, name, data, lat, lon, flags, updated"

// FindByKey returns the record for (category, key), or ErrNotFound.
func (s *Store) FindByKey(ctx context.Context, category, key string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM lookups WHERE category = ? AND key = ?",
		category, key,
	)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s/%s: %w", category, key, err)
	}
	return rec, nil
}

// FindByText returns active records in the region whose key or name contains
// the substring.
func (s *Store) FindByText(ctx context.Context, category, subCategory, substring string) ([]Record, error) {
	pattern := "%" + substring + "%"
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+` FROM lookups
		 WHERE category = ? AND subcategory = ? AND (key LIKE ? OR name LIKE ?) AND flags = 1`,
		category, subCategory, pattern, pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("search %s/%s for %q: %w", category, subCategory, substring, err)
	}
	return collectRecords(rows)
}

// FindByBoundingBox returns active records in the region whose coordinates
// fall within delta of the target point (inclusive on both axes).
func (s *Store) FindByBoundingBox(ctx context.Context, category, subCategory string, lat, lon, delta float64) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+` FROM lookups
		 WHERE category = ? AND subcategory = ?
		   AND lat BETWEEN ? AND ? AND lon BETWEEN ? AND ?
		   AND flags = 1`,
		category, subCategory, lat-delta, lat+delta, lon-delta, lon+delta,
	)
	if err != nil {
		return nil, fmt.Errorf("bounding box %s/%s: %w", category, subCategory, err)
	}
	return collectRecords(rows)
}

// CountCategory returns the total and active record counts for a category.
func (s *Store) CountCategory(ctx context.Context, category string) (total, active int64, err error) {
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(flags), 0) FROM lookups WHERE category = ?",
		category,
	).Scan(&total, &active)
	if err != nil {
		return 0, 0, fmt.Errorf("count category %q: %w", category, err)
	}
	return total, active, nil
}

func collectRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

func scanRecord(scan func(...any) error) (*Record, error) {
	var rec Record
	var data string
	var flags, updated int
	err := scan(
		&rec.Category, &rec.SubCategory, &rec.Key, &rec.Name, &data,
		&rec.Lat, &rec.Lon, &flags, &updated,
	)
	if err != nil {
		return nil, err
	}
	rec.Data = []byte(data)
	rec.Flags = flags != 0
	rec.Updated = updated != 0
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
