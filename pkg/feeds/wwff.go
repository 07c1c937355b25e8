package feeds

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/hamref/refsync/pkg/feedsync"
	"github.com/hamref/refsync/pkg/grid"
	"github.com/hamref/refsync/pkg/lookupdb"
	"github.com/hamref/refsync/pkg/rowcsv"
)

// WwffURL is the WWFF directory export. Fields may appear quoted or bare.
const WwffURL = "https://wwff.co/wwff-data/wwff_directory.csv"

func init() {
	register(Feed{
		Name:        "wwff",
		Description: "Worldwide Flora and Fauna directory",
		MaxAge:      30 * 24 * time.Hour,
		Descriptor: feedsync.Descriptor{
			Category:        "wwff",
			URL:             WwffURL,
			ExpectedRecords: 63000,
			Dialect:         rowcsv.DialectFlexible,
			MapRow:          mapWwffRow,
		},
	})
}

// mapWwffRow adapts one WWFF directory row. The directory lists deleted and
// proposed references too; only rows with status "active" are kept, so every
// stored record is active by construction.
func mapWwffRow(row map[string]string) (lookupdb.Record, bool) {
	if row["status"] != "active" {
		return lookupdb.Record{}, false
	}
	ref := strings.ToUpper(row["reference"])
	dxcc, _ := strconv.Atoi(row["dxccEnum"])
	if ref == "" || dxcc == 0 {
		return lookupdb.Record{}, false
	}

	lat, _ := strconv.ParseFloat(row["latitude"], 64)
	lon, _ := strconv.ParseFloat(row["longitude"], 64)

	park := Park{
		Reference: ref,
		DXCCCode:  dxcc,
		Name:      row["name"],
		Active:    true,
		Grid:      wwffGrid(row["iaruLocator"], lat, lon),
		Lat:       lat,
		Lon:       lon,
		Location:  row["region"],
	}
	data, err := json.Marshal(park)
	if err != nil {
		return lookupdb.Record{}, false
	}

	return lookupdb.Record{
		SubCategory: strconv.Itoa(dxcc),
		Key:         ref,
		Name:        park.Name,
		Data:        data,
		Lat:         lat,
		Lon:         lon,
		Flags:       true,
	}, true
}

// wwffGrid normalizes the directory's IARU locator, which uses an uppercase
// subsquare pair, to the conventional lowercase form. Rows without a locator
// fall back to one derived from the coordinates.
func wwffGrid(locator string, lat, lon float64) string {
	if locator == "" {
		if lat == 0 && lon == 0 {
			return ""
		}
		return grid.ForCoordinates(lat, lon)
	}
	if n := len(locator); n >= 6 {
		tail := locator[n-2:]
		if isUpperAlpha(tail) {
			return locator[:n-2] + strings.ToLower(tail)
		}
	}
	return locator
}

func isUpperAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
