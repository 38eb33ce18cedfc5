package routing

import "corerouter/pkg/graph"

// Path is a route in the base graph.
type Path struct {
	Weight  uint32
	Edges   []uint32 // base edge ids in travel order
	Nodes   []uint32 // len(Edges)+1 nodes, starting at the source
	OrigIDs []int64  // original way id per edge
}

// unpackEdges expands a sequence of CH edges into their base edges.
func unpackEdges(chg *graph.CHGraph, chEdges []uint32) []uint32 {
	base := make([]uint32, 0, len(chEdges))
	for _, e := range chEdges {
		chg.Unpack(e, func(b uint32) bool {
			base = append(base, b)
			return true
		})
	}
	return base
}

// newPath builds a Path from source along the given base edges.
func newPath(chg *graph.CHGraph, source uint32, edges []uint32) *Path {
	p := &Path{
		Edges:   edges,
		Nodes:   make([]uint32, 0, len(edges)+1),
		OrigIDs: make([]int64, 0, len(edges)),
	}
	p.Nodes = append(p.Nodes, source)
	for _, e := range edges {
		p.Weight = graph.AddWeight(p.Weight, chg.EdgeWeight[e])
		p.Nodes = append(p.Nodes, chg.EdgeTo[e])
		p.OrigIDs = append(p.OrigIDs, chg.OrigID[e])
	}
	return p
}
