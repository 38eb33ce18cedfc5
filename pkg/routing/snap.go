package routing

import (
	"errors"
	"math"

	"github.com/tidwall/rtree"

	"corerouter/pkg/geo"
	"corerouter/pkg/graph"
)

// DefaultMaxSnapMeters is the snapping radius used when none is configured.
const DefaultMaxSnapMeters = 500.0

// ErrPointTooFar is returned when the query point is too far from any road.
var ErrPointTooFar = errors.New("point too far from road")

// SnapResult is a point snapped onto a base edge.
type SnapResult struct {
	Edge  uint32  // base edge id
	NodeU uint32  // tail of the edge
	NodeV uint32  // head of the edge
	Ratio float64 // 0 at NodeU, 1 at NodeV
	Dist  float64 // meters from the query point to the snapped point
}

// Node returns the edge endpoint closer to the snapped point.
func (r SnapResult) Node() uint32 {
	if r.Ratio <= 0.5 {
		return r.NodeU
	}
	return r.NodeV
}

// Snapper finds the nearest base edge to a coordinate. Edge bounding boxes
// are indexed in an R-tree keyed by (lon, lat).
type Snapper struct {
	chg     *graph.CHGraph
	tree    rtree.RTreeG[uint32]
	maxDist float64
}

// NewSnapper indexes every base edge of chg. maxMeters <= 0 selects
// DefaultMaxSnapMeters.
func NewSnapper(chg *graph.CHGraph, maxMeters float64) *Snapper {
	if maxMeters <= 0 {
		maxMeters = DefaultMaxSnapMeters
	}
	s := &Snapper{chg: chg, maxDist: maxMeters}
	for e := uint32(0); e < chg.NumBaseEdges; e++ {
		u, v := chg.EdgeFrom[e], chg.EdgeTo[e]
		s.tree.Insert(
			[2]float64{math.Min(chg.NodeLon[u], chg.NodeLon[v]), math.Min(chg.NodeLat[u], chg.NodeLat[v])},
			[2]float64{math.Max(chg.NodeLon[u], chg.NodeLon[v]), math.Max(chg.NodeLat[u], chg.NodeLat[v])},
			e)
	}
	return s
}

// Snap finds the nearest base edge within the snapping radius.
func (s *Snapper) Snap(lat, lng float64) (SnapResult, error) {
	dLat, dLon := geo.MetersToDegrees(lat, s.maxDist)
	g := s.chg

	bestDist := math.Inf(1)
	var best SnapResult
	s.tree.Search([2]float64{lng - dLon, lat - dLat}, [2]float64{lng + dLon, lat + dLat},
		func(_, _ [2]float64, e uint32) bool {
			u, v := g.EdgeFrom[e], g.EdgeTo[e]
			d, ratio := geo.PointToSegmentDist(lat, lng, g.NodeLat[u], g.NodeLon[u], g.NodeLat[v], g.NodeLon[v])
			// Ties go to the lower edge id for stable results.
			if d < bestDist || (d == bestDist && e < best.Edge) {
				bestDist = d
				best = SnapResult{Edge: e, NodeU: u, NodeV: v, Ratio: ratio, Dist: d}
			}
			return true
		})

	if bestDist > s.maxDist {
		return SnapResult{}, ErrPointTooFar
	}
	return best, nil
}
