package lookupdb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(DefaultConfig(filepath.Join(t.TempDir(), "lookups.db")))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func park(key, sub, name string, lat, lon float64, active bool) Record {
	return Record{
		SubCategory: sub,
		Key:         key,
		Name:        name,
		Data:        []byte(`{"ref":"` + key + `"}`),
		Lat:         lat,
		Lon:         lon,
		Flags:       active,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid default", DefaultConfig("/tmp/test.db"), false},
		{"empty path", Config{}, true},
		{"invalid synchronous", Config{Path: "/tmp/test.db", Synchronous: "MAYBE"}, true},
		{"negative cache", Config{Path: "/tmp/test.db", CacheSizeKB: -1}, true},
		{"empty synchronous uses default", Config{Path: "/tmp/test.db"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestUpsertAndFindByKey(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	recs := []Record{
		park("K-0001", "291", "Example Park", 40.0, -105.0, true),
		park("K-0002", "291", "Other Park", 41.0, -104.0, false),
	}
	if err := store.UpsertBatch(ctx, "pota", recs); err != nil {
		t.Fatalf("UpsertBatch failed: %v", err)
	}

	got, err := store.FindByKey(ctx, "pota", "K-0001")
	if err != nil {
		t.Fatalf("FindByKey failed: %v", err)
	}
	if got.Name != "Example Park" || got.SubCategory != "291" || got.Lat != 40.0 || got.Lon != -105.0 {
		t.Errorf("unexpected record: %+v", got)
	}
	if !got.Updated {
		t.Error("upserted record should have updated=1")
	}

	if _, err := store.FindByKey(ctx, "pota", "K-9999"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing key: err = %v, want ErrNotFound", err)
	}
	if _, err := store.FindByKey(ctx, "wwff", "K-0001"); !errors.Is(err, ErrNotFound) {
		t.Errorf("other category: err = %v, want ErrNotFound", err)
	}
}

func TestUpsertUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if err := store.UpsertBatch(ctx, "pota", []Record{park("K-0001", "291", "Example Park", 40.0, -105.0, true)}); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if err := store.UpsertBatch(ctx, "pota", []Record{park("K-0001", "291", "Example Park", 41.0, -105.0, true)}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	total, _, err := store.CountCategory(ctx, "pota")
	if err != nil {
		t.Fatalf("CountCategory failed: %v", err)
	}
	if total != 1 {
		t.Errorf("total = %d, want 1 (no duplicate for same key)", total)
	}

	got, err := store.FindByKey(ctx, "pota", "K-0001")
	if err != nil {
		t.Fatalf("FindByKey failed: %v", err)
	}
	if got.Lat != 41.0 {
		t.Errorf("lat = %v, want 41.0 after update", got.Lat)
	}
}

func TestStaleMarkAndPrune(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if err := store.UpsertBatch(ctx, "pota", []Record{
		park("K-0001", "291", "Kept", 40, -105, true),
		park("K-0002", "291", "Dropped", 41, -104, true),
	}); err != nil {
		t.Fatalf("seed upsert failed: %v", err)
	}

	marked, err := store.MarkCategoryStale(ctx, "pota")
	if err != nil {
		t.Fatalf("MarkCategoryStale failed: %v", err)
	}
	if marked != 2 {
		t.Errorf("marked = %d, want 2", marked)
	}

	// New pass only confirms K-0001.
	if err := store.UpsertBatch(ctx, "pota", []Record{park("K-0001", "291", "Kept", 40, -105, true)}); err != nil {
		t.Fatalf("refresh upsert failed: %v", err)
	}

	pruned, err := store.DeleteStaleRemaining(ctx, "pota")
	if err != nil {
		t.Fatalf("DeleteStaleRemaining failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("pruned = %d, want 1", pruned)
	}

	if _, err := store.FindByKey(ctx, "pota", "K-0002"); !errors.Is(err, ErrNotFound) {
		t.Errorf("K-0002 should be pruned, err = %v", err)
	}
	if _, err := store.FindByKey(ctx, "pota", "K-0001"); err != nil {
		t.Errorf("K-0001 should survive, err = %v", err)
	}
}

func TestDeleteCategory(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	store.UpsertBatch(ctx, "pota", []Record{park("K-0001", "291", "A", 0, 0, true)})
	store.UpsertBatch(ctx, "wwff", []Record{park("ONFF-0001", "206", "B", 0, 0, true)})

	n, err := store.DeleteCategory(ctx, "pota")
	if err != nil {
		t.Fatalf("DeleteCategory failed: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
	if _, err := store.FindByKey(ctx, "wwff", "ONFF-0001"); err != nil {
		t.Errorf("other category must be untouched, err = %v", err)
	}
}

func TestFindByText(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	store.UpsertBatch(ctx, "pota", []Record{
		park("K-0001", "291", "Rocky Mountain", 40, -105, true),
		park("K-0002", "291", "Yellowstone", 44, -110, true),
		park("K-0003", "291", "Rocky Flats", 39, -105, false), // inactive
		park("K-0004", "1", "Rocky Shore", 50, -4, true),      // other region
	})

	got, err := store.FindByText(ctx, "pota", "291", "Rocky")
	if err != nil {
		t.Fatalf("FindByText failed: %v", err)
	}
	if len(got) != 1 || got[0].Key != "K-0001" {
		t.Errorf("FindByText = %+v, want only active K-0001 in region 291", got)
	}

	// Substring match applies to the key as well as the name.
	got, err = store.FindByText(ctx, "pota", "291", "0002")
	if err != nil {
		t.Fatalf("FindByText failed: %v", err)
	}
	if len(got) != 1 || got[0].Key != "K-0002" {
		t.Errorf("key substring match = %+v, want K-0002", got)
	}
}

func TestFindByBoundingBox(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	store.UpsertBatch(ctx, "pota", []Record{
		park("K-0001", "291", "Near", 40.2, -105.2, true),
		park("K-0002", "291", "Edge", 41.0, -104.0, true),
		park("K-0003", "291", "Far", 45.0, -120.0, true),
		park("K-0004", "291", "Inactive Near", 40.1, -105.1, false),
	})

	got, err := store.FindByBoundingBox(ctx, "pota", "291", 40.0, -105.0, 1.0)
	if err != nil {
		t.Fatalf("FindByBoundingBox failed: %v", err)
	}

	keys := map[string]bool{}
	for _, rec := range got {
		keys[rec.Key] = true
	}
	if !keys["K-0001"] || !keys["K-0002"] {
		t.Errorf("expected K-0001 and inclusive-edge K-0002, got %v", keys)
	}
	if keys["K-0003"] || keys["K-0004"] {
		t.Errorf("far or inactive records must be excluded, got %v", keys)
	}
}
