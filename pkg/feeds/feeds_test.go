package feeds

import (
	"encoding/json"
	"testing"
)

func TestRegistry(t *testing.T) {
	all := All()
	if len(all) != 2 {
		t.Fatalf("All() returned %d feeds, want 2", len(all))
	}
	if all[0].Name != "pota" || all[1].Name != "wwff" {
		t.Errorf("All() order = %q, %q, want pota, wwff", all[0].Name, all[1].Name)
	}

	f, err := ByName("pota")
	if err != nil {
		t.Fatalf("ByName(pota): %v", err)
	}
	if f.Descriptor.Category != "pota" {
		t.Errorf("descriptor category = %q, want pota", f.Descriptor.Category)
	}
	if f.MaxAge <= 0 {
		t.Error("feed must declare a positive MaxAge")
	}

	if _, err := ByName("sota"); err == nil {
		t.Error("ByName should reject unregistered feeds")
	}
}

func TestMapPotaRow(t *testing.T) {
	tests := []struct {
		name   string
		row    map[string]string
		wantOK bool
		check  func(t *testing.T, row map[string]string)
	}{
		{
			name: "active park",
			row: map[string]string{
				"reference": "K-0001", "name": "First Park", "active": "1",
				"entityId": "291", "locationDesc": "US-CO",
				"latitude": "40.0", "longitude": "-105.0", "grid": "DN70",
			},
			wantOK: true,
			check: func(t *testing.T, row map[string]string) {
				rec, _ := mapPotaRow(row)
				if rec.Key != "K-0001" || rec.SubCategory != "291" {
					t.Errorf("key/region = %q/%q", rec.Key, rec.SubCategory)
				}
				if !rec.Flags {
					t.Error("active park must set the active flag")
				}
				if rec.Lat != 40.0 || rec.Lon != -105.0 {
					t.Errorf("coords = %v,%v", rec.Lat, rec.Lon)
				}
				var park Park
				if err := json.Unmarshal(rec.Data, &park); err != nil {
					t.Fatalf("payload: %v", err)
				}
				if park.Reference != "K-0001" || park.DXCCCode != 291 || park.Location != "US-CO" {
					t.Errorf("payload = %+v", park)
				}
			},
		},
		{
			name: "inactive park kept with flag cleared",
			row: map[string]string{
				"reference": "K-0002", "name": "Closed Park", "active": "0",
				"entityId": "291",
			},
			wantOK: true,
			check: func(t *testing.T, row map[string]string) {
				rec, _ := mapPotaRow(row)
				if rec.Flags {
					t.Error("inactive park must not set the active flag")
				}
			},
		},
		{
			name:   "missing reference",
			row:    map[string]string{"name": "No Ref", "entityId": "291"},
			wantOK: false,
		},
		{
			name:   "unresolvable entity",
			row:    map[string]string{"reference": "K-0003", "entityId": "bogus"},
			wantOK: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := mapPotaRow(tc.row)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if tc.check != nil {
				tc.check(t, tc.row)
			}
		})
	}
}

func TestMapWwffRow(t *testing.T) {
	base := func() map[string]string {
		return map[string]string{
			"reference": "kff-0001", "status": "active", "name": "Wild Refuge",
			"dxccEnum": "291", "latitude": "40.0", "longitude": "-105.0",
			"iaruLocator": "DN70MA", "region": "Colorado",
		}
	}

	rec, ok := mapWwffRow(base())
	if !ok {
		t.Fatal("active row must map")
	}
	if rec.Key != "KFF-0001" {
		t.Errorf("reference must be uppercased, got %q", rec.Key)
	}
	if !rec.Flags {
		t.Error("every kept row is active by construction")
	}
	var park Park
	if err := json.Unmarshal(rec.Data, &park); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if park.Grid != "DN70ma" {
		t.Errorf("grid = %q, want subsquare lowercased", park.Grid)
	}
	if park.Location != "Colorado" {
		t.Errorf("location = %q", park.Location)
	}

	deleted := base()
	deleted["status"] = "deleted"
	if _, ok := mapWwffRow(deleted); ok {
		t.Error("non-active rows must be discarded")
	}

	noDxcc := base()
	noDxcc["dxccEnum"] = ""
	if _, ok := mapWwffRow(noDxcc); ok {
		t.Error("rows without a DXCC entity must be discarded")
	}
}

func TestWwffGrid(t *testing.T) {
	tests := []struct {
		name    string
		locator string
		lat     float64
		lon     float64
		want    string
	}{
		{"uppercase subsquare lowered", "DN70MA", 0, 0, "DN70ma"},
		{"already lowercase kept", "DN70ma", 0, 0, "DN70ma"},
		{"four character locator kept", "DN70", 0, 0, "DN70"},
		{"derived from coordinates", "", 40.0, -105.0, "DN70ma"},
		{"no locator no coordinates", "", 0, 0, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := wwffGrid(tc.locator, tc.lat, tc.lon); got != tc.want {
				t.Errorf("wwffGrid(%q, %v, %v) = %q, want %q", tc.locator, tc.lat, tc.lon, got, tc.want)
			}
		})
	}
}
