// Package grid encodes coordinates as Maidenhead locators.
package grid

// ForCoordinates returns the 6-character Maidenhead locator for a point,
// with the subsquare pair in lowercase (e.g. "DN70ma"). Coordinates are
// clamped to the valid ranges; the north pole and the antimeridian fall in
// the last field rather than overflowing it.
func ForCoordinates(lat, lon float64) string {
	adjLat := clamp(lat+90, 0, 180)
	adjLon := clamp(lon+180, 0, 360)

	fieldLon := clampInt(int(adjLon/20), 17)
	fieldLat := clampInt(int(adjLat/10), 17)

	squareLon := clampInt(int(adjLon/2)-fieldLon*10, 9)
	squareLat := clampInt(int(adjLat)-fieldLat*10, 9)

	// Squares are 2° x 1°, split into 24 subsquares each way.
	subLon := clampInt(int((adjLon-float64(fieldLon*20+squareLon*2))*12), 23)
	subLat := clampInt(int((adjLat-float64(fieldLat*10+squareLat))*24), 23)

	return string([]byte{
		'A' + byte(fieldLon),
		'A' + byte(fieldLat),
		'0' + byte(squareLon),
		'0' + byte(squareLat),
		'a' + byte(subLon),
		'a' + byte(subLat),
	})
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
