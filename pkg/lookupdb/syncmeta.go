package lookupdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SyncMeta records the outcome of the last successful sync for a category:
// the validator token to send on the next fetch, when the sync finished, and
// the reference-prefix index derived from the feed.
type SyncMeta struct {
	Category string
	ETag     string
	LastSync time.Time
	// Prefixes maps region code to the reference prefix of the first record
	// seen for that region.
	Prefixes map[string]string
}

// SaveSyncMeta stores the category's sync metadata, replacing any previous
// entry.
func (s *Store) SaveSyncMeta(ctx context.Context, meta SyncMeta) error {
	prefixes := meta.Prefixes
	if prefixes == nil {
		prefixes = map[string]string{}
	}
	data, err := json.Marshal(prefixes)
	if err != nil {
		return fmt.Errorf("encode prefixes for %q: %w", meta.Category, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sync_meta (category, etag, last_sync, prefixes)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (category) DO UPDATE SET
			etag = excluded.etag,
			last_sync = excluded.last_sync,
			prefixes = excluded.prefixes`,
		meta.Category, meta.ETag, meta.LastSync.Unix(), string(data),
	)
	if err != nil {
		return fmt.Errorf("save sync meta for %q: %w", meta.Category, err)
	}
	return nil
}

// GetSyncMeta returns the category's sync metadata, or ErrNotFound when the
// category has never completed a sync.
func (s *Store) GetSyncMeta(ctx context.Context, category string) (*SyncMeta, error) {
	var (
		meta     SyncMeta
		lastSync int64
		prefixes string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT category, etag, last_sync, prefixes FROM sync_meta WHERE category = ?",
		category,
	).Scan(&meta.Category, &meta.ETag, &lastSync, &prefixes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load sync meta for %q: %w", category, err)
	}

	meta.LastSync = time.Unix(lastSync, 0)
	if err := json.Unmarshal([]byte(prefixes), &meta.Prefixes); err != nil {
		return nil, fmt.Errorf("decode prefixes for %q: %w", category, err)
	}
	return &meta, nil
}

// DeleteSyncMeta removes the category's sync metadata, so the next sync
// fetches unconditionally.
func (s *Store) DeleteSyncMeta(ctx context.Context, category string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sync_meta WHERE category = ?", category); err != nil {
		return fmt.Errorf("delete sync meta for %q: %w", category, err)
	}
	return nil
}
