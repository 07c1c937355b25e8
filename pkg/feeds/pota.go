package feeds

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/hamref/refsync/pkg/feedsync"
	"github.com/hamref/refsync/pkg/lookupdb"
	"github.com/hamref/refsync/pkg/rowcsv"
)

// PotaURL is the full POTA park directory export.
const PotaURL = "https://pota.app/all_parks_ext.csv"

func init() {
	register(Feed{
		Name:        "pota",
		Description: "Parks on the Air park directory",
		MaxAge:      28 * 24 * time.Hour,
		Descriptor: feedsync.Descriptor{
			Category:        "pota",
			URL:             PotaURL,
			ExpectedRecords: 62000,
			Dialect:         rowcsv.DialectQuoted,
			MapRow:          mapPotaRow,
		},
	})
}

// mapPotaRow adapts one POTA directory row. Rows without a reference or a
// resolvable DXCC entity are discarded. Inactive parks are kept but stored
// with the active flag cleared so searches exclude them.
func mapPotaRow(row map[string]string) (lookupdb.Record, bool) {
	ref := row["reference"]
	dxcc, _ := strconv.Atoi(row["entityId"])
	if ref == "" || dxcc == 0 {
		return lookupdb.Record{}, false
	}

	lat, _ := strconv.ParseFloat(row["latitude"], 64)
	lon, _ := strconv.ParseFloat(row["longitude"], 64)

	park := Park{
		Reference: ref,
		DXCCCode:  dxcc,
		Name:      row["name"],
		Active:    row["active"] == "1",
		Grid:      row["grid"],
		Lat:       lat,
		Lon:       lon,
		Location:  row["locationDesc"],
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
		Flags:       park.Active,
	}, true
}
