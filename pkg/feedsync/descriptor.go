package feedsync

import (
	"fmt"

	"github.com/hamref/refsync/pkg/linefetch"
	"github.com/hamref/refsync/pkg/lookupdb"
	"github.com/hamref/refsync/pkg/rowcsv"
)

// DefaultBatchSize is the number of records per upsert transaction. A prime
// group size avoids progress updates landing on visually even boundaries.
const DefaultBatchSize = 223

// Default phase weights. Store writes cost several times more than
// fetching and parsing on the storage backends this runs against.
const (
	DefaultFetchWeight = 1
	DefaultStoreWeight = 3
)

// MapRowFunc converts a header-keyed parsed row into a record. Returning
// ok=false discards the row (it is counted as skipped, not an error).
// Category and Updated on the returned record are managed by the engine.
type MapRowFunc func(row map[string]string) (rec lookupdb.Record, ok bool)

// Descriptor configures one feed for synchronization.
type Descriptor struct {
	// Category partitions the lookup store, e.g. "pota".
	Category string
	// URL is the delimited-text feed location.
	URL string
	// ChunkSize is the fetch window in bytes (default linefetch.DefaultChunkSize).
	ChunkSize int
	// ExpectedRecords is a rough estimate of the feed's row count, used
	// only for progress blending.
	ExpectedRecords int64
	// FetchWeight and StoreWeight are the relative phase costs.
	FetchWeight int
	StoreWeight int
	// Dialect selects the row parsing variant.
	Dialect rowcsv.Dialect
	// MapRow adapts parsed rows to records.
	MapRow MapRowFunc
	// BatchSize is the records-per-transaction group size (default 223).
	BatchSize int
	// SequentialApply defers all store writes until streaming has finished
	// instead of overlapping the two stages.
	SequentialApply bool
}

func (d Descriptor) withDefaults() Descriptor {
	if d.ChunkSize <= 0 {
		d.ChunkSize = linefetch.DefaultChunkSize
	}
	if d.FetchWeight <= 0 {
		d.FetchWeight = DefaultFetchWeight
	}
	if d.StoreWeight <= 0 {
		d.StoreWeight = DefaultStoreWeight
	}
	if d.BatchSize <= 0 {
		d.BatchSize = DefaultBatchSize
	}
	return d
}

func (d Descriptor) validate() error {
	if d.Category == "" {
		return fmt.Errorf("descriptor: Category is required")
	}
	if d.URL == "" {
		return fmt.Errorf("descriptor: URL is required")
	}
	if d.MapRow == nil {
		return fmt.Errorf("descriptor: MapRow is required")
	}
	return nil
}
