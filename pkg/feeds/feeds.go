// Package feeds defines the built-in reference feeds and typed query
// helpers over the records they store.
//
// Each feed adapts one public delimited-text dataset to the sync engine: it
// names the source URL, the parsing dialect, and a row mapper producing
// lookup records with a JSON park payload.
package feeds

import (
	"fmt"
	"sort"
	"time"

	"github.com/hamref/refsync/pkg/feedsync"
)

// Feed is one registered reference dataset.
type Feed struct {
	// Name is the short identifier, also the lookup store category.
	Name string
	// Description is a one-line human summary.
	Description string
	// Descriptor configures the sync engine for this feed.
	Descriptor feedsync.Descriptor
	// MaxAge is how long a completed sync stays fresh before a refresh is
	// recommended.
	MaxAge time.Duration
}

// Park is the JSON payload stored in each record's data column.
type Park struct {
	Reference string  `json:"ref"`
	DXCCCode  int     `json:"dxccCode"`
	Name      string  `json:"name"`
	Active    bool    `json:"active"`
	Grid      string  `json:"grid,omitempty"`
	Lat       float64 `json:"lat,omitempty"`
	Lon       float64 `json:"lon,omitempty"`
	Location  string  `json:"location,omitempty"`
}

var registry = map[string]Feed{}

func register(f Feed) {
	registry[f.Name] = f
}

// ByName returns the feed registered under name.
func ByName(name string) (Feed, error) {
	f, ok := registry[name]
	if !ok {
		return Feed{}, fmt.Errorf("unknown feed %q", name)
	}
	return f, nil
}

// All returns every registered feed, sorted by name.
func All() []Feed {
	out := make([]Feed, 0, len(registry))
	for _, f := range registry {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
