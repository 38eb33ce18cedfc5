// Package filter defines per-query edge filters and derives the core node set
// that keeps them evaluable after contraction.
package filter

import (
	"corerouter/pkg/graph"
)

// Verdict is the outcome of evaluating a filter on one base edge.
type Verdict uint8

const (
	Accept Verdict = iota
	Reject
)

func (v Verdict) String() string {
	if v == Reject {
		return "reject"
	}
	return "accept"
}

// Edge describes one base edge as filters see it.
type Edge struct {
	ID       uint32
	From, To uint32
	FromLat  float64
	FromLon  float64
	ToLat    float64
	ToLon    float64
	Weight   uint32
	OrigID   int64
}

// EdgeFilter decides per base edge whether a query may use it.
//
// MayReject must report true for every edge Evaluate could ever reject under
// any query parameters. It is consulted before contraction to choose the
// core; Evaluate runs at query time.
type EdgeFilter interface {
	Evaluate(e Edge) Verdict
	MayReject(e Edge) bool
}

// GraphEdge describes edge id of g.
func GraphEdge(g *graph.Graph, id uint32) Edge {
	u, v := g.Tail[id], g.Head[id]
	return Edge{
		ID:      id,
		From:    u,
		To:      v,
		FromLat: g.NodeLat[u],
		FromLon: g.NodeLon[u],
		ToLat:   g.NodeLat[v],
		ToLon:   g.NodeLon[v],
		Weight:  g.Weight[id],
		OrigID:  g.OrigID[id],
	}
}

// BaseEdge describes base edge id of a hierarchy. id must be below
// chg.NumBaseEdges.
func BaseEdge(chg *graph.CHGraph, id uint32) Edge {
	u, v := chg.EdgeFrom[id], chg.EdgeTo[id]
	return Edge{
		ID:      id,
		From:    u,
		To:      v,
		FromLat: chg.NodeLat[u],
		FromLon: chg.NodeLon[u],
		ToLat:   chg.NodeLat[v],
		ToLon:   chg.NodeLon[v],
		Weight:  chg.EdgeWeight[id],
		OrigID:  chg.OrigID[id],
	}
}

// Chain rejects an edge when any of its filters does. Filters run in order
// and evaluation stops at the first rejection.
type Chain []EdgeFilter

func (c Chain) Evaluate(e Edge) Verdict {
	for _, f := range c {
		if f.Evaluate(e) == Reject {
			return Reject
		}
	}
	return Accept
}

func (c Chain) MayReject(e Edge) bool {
	for _, f := range c {
		if f.MayReject(e) {
			return true
		}
	}
	return false
}

// Func adapts a fixed predicate. The predicate does not depend on query
// parameters, so it may reject exactly the edges it rejects.
type Func func(e Edge) Verdict

func (f Func) Evaluate(e Edge) Verdict { return f(e) }

func (f Func) MayReject(e Edge) bool { return f(e) == Reject }

// BlockedWays rejects every edge whose original id is blocked, such as
// border crossings or closed roads.
type BlockedWays struct {
	ids map[int64]struct{}
}

// NewBlockedWays blocks the given original ids.
func NewBlockedWays(ids ...int64) *BlockedWays {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return &BlockedWays{ids: m}
}

func (b *BlockedWays) Evaluate(e Edge) Verdict {
	if _, ok := b.ids[e.OrigID]; ok {
		return Reject
	}
	return Accept
}

func (b *BlockedWays) MayReject(e Edge) bool {
	_, ok := b.ids[e.OrigID]
	return ok
}

// Len returns the number of blocked ids.
func (b *BlockedWays) Len() int { return len(b.ids) }

// Limits are the physical restrictions of a way. Zero means unrestricted.
type Limits struct {
	MaxHeight float64
	MaxWeight float64
}

// DimensionLimit rejects edges whose way restrictions the vehicle exceeds.
// The restriction table is fixed; the vehicle varies per query.
type DimensionLimit struct {
	limits map[int64]Limits
	height float64
	weight float64
}

// NewDimensionLimit creates a filter over per-way limits with no vehicle
// set. Use ForVehicle to get a query filter.
func NewDimensionLimit(limits map[int64]Limits) *DimensionLimit {
	return &DimensionLimit{limits: limits}
}

// ForVehicle returns a filter for a vehicle of the given height (meters)
// and weight (tonnes) sharing the same restriction table.
func (d *DimensionLimit) ForVehicle(height, weight float64) *DimensionLimit {
	return &DimensionLimit{limits: d.limits, height: height, weight: weight}
}

func (d *DimensionLimit) Evaluate(e Edge) Verdict {
	l, ok := d.limits[e.OrigID]
	if !ok {
		return Accept
	}
	if l.MaxHeight > 0 && d.height > l.MaxHeight {
		return Reject
	}
	if l.MaxWeight > 0 && d.weight > l.MaxWeight {
		return Reject
	}
	return Accept
}

func (d *DimensionLimit) MayReject(e Edge) bool {
	_, ok := d.limits[e.OrigID]
	return ok
}

// CoreNodes marks both endpoints of every edge that any filter may reject.
// Contracting everything else keeps each such edge an uncontracted core
// edge, so queries can still evaluate it.
func CoreNodes(g *graph.Graph, filters ...EdgeFilter) []bool {
	core := make([]bool, g.NumNodes)
	if len(filters) == 0 {
		return core
	}
	chain := Chain(filters)
	for e := uint32(0); e < g.NumEdges; e++ {
		if chain.MayReject(GraphEdge(g, e)) {
			core[g.Tail[e]] = true
			core[g.Head[e]] = true
		}
	}
	return core
}
