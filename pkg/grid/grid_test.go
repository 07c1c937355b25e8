package grid

import "testing"

func TestForCoordinates(t *testing.T) {
	tests := []struct {
		name string
		lat  float64
		lon  float64
		want string
	}{
		{"boulder area", 40.0, -105.0, "DN70ma"},
		{"origin", 0.0, 0.0, "JJ00aa"},
		{"brussels area", 50.85, 4.35, "JO20eu"},
		{"south west corner", -90.0, -180.0, "AA00aa"},
		{"north pole clamped", 90.0, 180.0, "RR99xx"},
		{"beyond range clamped", 95.0, 200.0, "RR99xx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ForCoordinates(tt.lat, tt.lon); got != tt.want {
				t.Errorf("ForCoordinates(%v, %v) = %q, want %q", tt.lat, tt.lon, got, tt.want)
			}
		})
	}
}
