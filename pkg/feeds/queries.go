package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hamref/refsync/pkg/lookupdb"
)

// DefaultLocationDelta is the bounding-box half-width in degrees used when
// the caller does not give one.
const DefaultLocationDelta = 1.0

// FindParkByReference returns the park stored under the exact reference,
// or lookupdb.ErrNotFound.
func FindParkByReference(ctx context.Context, store *lookupdb.Store, feed, reference string) (*Park, error) {
	rec, err := store.FindByKey(ctx, feed, reference)
	if err != nil {
		return nil, err
	}
	return decodePark(rec)
}

// FindParksByName returns active parks in the DXCC region whose reference or
// name contains the substring.
func FindParksByName(ctx context.Context, store *lookupdb.Store, feed string, dxccCode int, substring string) ([]Park, error) {
	recs, err := store.FindByText(ctx, feed, fmt.Sprintf("%d", dxccCode), substring)
	if err != nil {
		return nil, err
	}
	return decodeParks(recs)
}

// FindParksByLocation returns active parks in the DXCC region within delta
// degrees of the point on both axes. A non-positive delta uses
// DefaultLocationDelta.
func FindParksByLocation(ctx context.Context, store *lookupdb.Store, feed string, dxccCode int, lat, lon, delta float64) ([]Park, error) {
	if delta <= 0 {
		delta = DefaultLocationDelta
	}
	recs, err := store.FindByBoundingBox(ctx, feed, fmt.Sprintf("%d", dxccCode), lat, lon, delta)
	if err != nil {
		return nil, err
	}
	return decodeParks(recs)
}

// PrefixForRegion returns the reference prefix recorded for the DXCC region
// during the feed's last sync, or "" when the region is unknown.
func PrefixForRegion(ctx context.Context, store *lookupdb.Store, feed string, dxccCode int) (string, error) {
	meta, err := store.GetSyncMeta(ctx, feed)
	if errors.Is(err, lookupdb.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return meta.Prefixes[fmt.Sprintf("%d", dxccCode)], nil
}

func decodePark(rec *lookupdb.Record) (*Park, error) {
	var park Park
	if err := json.Unmarshal(rec.Data, &park); err != nil {
		return nil, fmt.Errorf("decode park %s/%s: %w", rec.Category, rec.Key, err)
	}
	return &park, nil
}

func decodeParks(recs []lookupdb.Record) ([]Park, error) {
	parks := make([]Park, 0, len(recs))
	for i := range recs {
		park, err := decodePark(&recs[i])
		if err != nil {
			return nil, err
		}
		parks = append(parks, *park)
	}
	return parks, nil
}
