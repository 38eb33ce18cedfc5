package geo

// SegmentsIntersect reports whether segment AB and segment CD share a point.
// Coordinates are treated as planar (lon, lat) pairs, which is accurate for
// the short segments of a road graph.
func SegmentsIntersect(aLat, aLon, bLat, bLon, cLat, cLon, dLat, dLon float64) bool {
	d1 := orientation(cLon, cLat, dLon, dLat, aLon, aLat)
	d2 := orientation(cLon, cLat, dLon, dLat, bLon, bLat)
	d3 := orientation(aLon, aLat, bLon, bLat, cLon, cLat)
	d4 := orientation(aLon, aLat, bLon, bLat, dLon, dLat)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	// Collinear touching cases.
	switch {
	case d1 == 0 && onSegment(cLon, cLat, dLon, dLat, aLon, aLat):
		return true
	case d2 == 0 && onSegment(cLon, cLat, dLon, dLat, bLon, bLat):
		return true
	case d3 == 0 && onSegment(aLon, aLat, bLon, bLat, cLon, cLat):
		return true
	case d4 == 0 && onSegment(aLon, aLat, bLon, bLat, dLon, dLat):
		return true
	}
	return false
}

// orientation returns the sign of the cross product (q-p) x (r-p).
func orientation(px, py, qx, qy, rx, ry float64) float64 {
	return (qx-px)*(ry-py) - (qy-py)*(rx-px)
}

// onSegment reports whether r, known to be collinear with pq, lies within
// the bounding box of pq.
func onSegment(px, py, qx, qy, rx, ry float64) bool {
	return min(px, qx) <= rx && rx <= max(px, qx) &&
		min(py, qy) <= ry && ry <= max(py, qy)
}
