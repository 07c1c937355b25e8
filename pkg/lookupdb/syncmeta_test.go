package lookupdb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestSyncMetaRoundTrip(t *testing.T) {
	store, err := Open(DefaultConfig(filepath.Join(t.TempDir(), "lookups.db")))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	if _, err := store.GetSyncMeta(ctx, "pota"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unseen category: err = %v, want ErrNotFound", err)
	}

	finished := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	meta := SyncMeta{
		Category: "pota",
		ETag:     `"abc123"`,
		LastSync: finished,
		Prefixes: map[string]string{"291": "K", "1": "VE"},
	}
	if err := store.SaveSyncMeta(ctx, meta); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.GetSyncMeta(ctx, "pota")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ETag != meta.ETag {
		t.Errorf("ETag = %q, want %q", got.ETag, meta.ETag)
	}
	if !got.LastSync.Equal(finished) {
		t.Errorf("LastSync = %v, want %v", got.LastSync, finished)
	}
	if got.Prefixes["291"] != "K" || got.Prefixes["1"] != "VE" {
		t.Errorf("Prefixes = %v", got.Prefixes)
	}

	// Saving again replaces the previous entry.
	meta.ETag = `"def456"`
	meta.Prefixes = map[string]string{"291": "K"}
	if err := store.SaveSyncMeta(ctx, meta); err != nil {
		t.Fatalf("re-save: %v", err)
	}
	got, err = store.GetSyncMeta(ctx, "pota")
	if err != nil {
		t.Fatalf("get after re-save: %v", err)
	}
	if got.ETag != `"def456"` || len(got.Prefixes) != 1 {
		t.Errorf("after re-save: %+v", got)
	}

	if err := store.DeleteSyncMeta(ctx, "pota"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetSyncMeta(ctx, "pota"); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete: err = %v, want ErrNotFound", err)
	}
}

func TestSyncMetaNilPrefixes(t *testing.T) {
	store, err := Open(DefaultConfig(filepath.Join(t.TempDir(), "lookups.db")))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	if err := store.SaveSyncMeta(ctx, SyncMeta{Category: "wwff", LastSync: time.Now()}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.GetSyncMeta(ctx, "wwff")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Prefixes == nil || len(got.Prefixes) != 0 {
		t.Errorf("Prefixes = %#v, want empty map", got.Prefixes)
	}
}
