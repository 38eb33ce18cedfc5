package filter

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/tidwall/rtree"

	"corerouter/pkg/geo"
)

// AvoidAreas rejects edges that touch any of a set of polygons: an endpoint
// inside, or the segment crossing a ring. Polygons are indexed by bounding
// box. Coordinates are orb points, i.e. (lon, lat).
type AvoidAreas struct {
	polygons []orb.Polygon
	tree     rtree.RTreeG[int]
}

// NewAvoidAreas indexes the given polygons.
func NewAvoidAreas(polygons ...orb.Polygon) *AvoidAreas {
	a := &AvoidAreas{polygons: polygons}
	for i, p := range polygons {
		b := p.Bound()
		a.tree.Insert([2]float64{b.Min.Lon(), b.Min.Lat()}, [2]float64{b.Max.Lon(), b.Max.Lat()}, i)
	}
	return a
}

// Len returns the number of polygons.
func (a *AvoidAreas) Len() int { return len(a.polygons) }

func (a *AvoidAreas) Evaluate(e Edge) Verdict {
	if a.Touches(e) {
		return Reject
	}
	return Accept
}

// MayReject equals Touches: the polygons are fixed.
func (a *AvoidAreas) MayReject(e Edge) bool { return a.Touches(e) }

// Touches reports whether edge e enters any polygon.
func (a *AvoidAreas) Touches(e Edge) bool {
	from := orb.Point{e.FromLon, e.FromLat}
	to := orb.Point{e.ToLon, e.ToLat}
	b := orb.Bound{Min: from, Max: from}.Extend(to)

	hit := false
	a.tree.Search([2]float64{b.Min.Lon(), b.Min.Lat()}, [2]float64{b.Max.Lon(), b.Max.Lat()},
		func(_, _ [2]float64, i int) bool {
			if polygonTouches(a.polygons[i], from, to) {
				hit = true
				return false
			}
			return true
		})
	return hit
}

func polygonTouches(p orb.Polygon, from, to orb.Point) bool {
	if planar.PolygonContains(p, from) || planar.PolygonContains(p, to) {
		return true
	}
	for _, ring := range p {
		for i := 0; i+1 < len(ring); i++ {
			c, d := ring[i], ring[i+1]
			if geo.SegmentsIntersect(from.Lat(), from.Lon(), to.Lat(), to.Lon(), c.Lat(), c.Lon(), d.Lat(), d.Lon()) {
				return true
			}
		}
	}
	return false
}
