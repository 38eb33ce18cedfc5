// Package geo holds the spherical and planar distance helpers used for
// edge weights, snapping and avoid-area tests.
package geo

import "math"

const earthRadiusMeters = 6_371_000.0

func rad(deg float64) float64 { return deg * math.Pi / 180 }

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	sinLat := math.Sin(rad(lat2-lat1) / 2)
	sinLon := math.Sin(rad(lon2-lon1) / 2)
	h := sinLat*sinLat + math.Cos(rad(lat1))*math.Cos(rad(lat2))*sinLon*sinLon
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// degToMeters converts degree-scaled equirectangular distances to meters.
const degToMeters = math.Pi / 180 * earthRadiusMeters

// PointToSegmentDist returns the distance in meters from P to segment AB and
// the position of the closest point along AB in [0, 1].
func PointToSegmentDist(pLat, pLon, aLat, aLon, bLat, bLon float64) (dist float64, ratio float64) {
	cosLat := math.Cos(rad((aLat + bLat) / 2))

	ax := aLon * cosLat
	ay := aLat
	bx := bLon * cosLat
	by := bLat
	px := pLon * cosLat
	py := pLat

	// Compare unprojected coordinates; projection noise can split equal points.
	if aLat == bLat && aLon == bLon {
		ex := px - ax
		ey := py - ay
		return math.Sqrt(ex*ex+ey*ey) * degToMeters, 0
	}

	dx := bx - ax
	dy := by - ay
	lenSq := dx*dx + dy*dy

	var t float64
	if lenSq > 0 {
		t = ((px-ax)*dx + (py-ay)*dy) / lenSq
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
	}

	ex := px - (ax + t*dx)
	ey := py - (ay + t*dy)
	return math.Sqrt(ex*ex+ey*ey) * degToMeters, t
}

// MetersToDegrees converts a distance around latitude lat into the latitude
// and longitude spans that cover it.
func MetersToDegrees(lat, meters float64) (dLat, dLon float64) {
	dLat = meters / degToMeters
	cosLat := math.Cos(rad(lat))
	if cosLat < 1e-6 {
		return dLat, 180
	}
	return dLat, dLat / cosLat
}
