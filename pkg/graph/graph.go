package graph

// Graph represents a directed multigraph in CSR (Compressed Sparse Row) format.
// Edges are sorted by source node; a reverse index gives O(degree) access to
// the incoming edges of a node.
type Graph struct {
	NumNodes uint32
	NumEdges uint32
	FirstOut []uint32 // len: NumNodes + 1; FirstOut[i]..FirstOut[i+1] are edges from node i
	Tail     []uint32 // len: NumEdges; source node for each edge
	Head     []uint32 // len: NumEdges; target node for each edge
	Weight   []uint32 // len: NumEdges; cost in the profile's unit (millimeters for OSM input)
	OrigID   []int64  // len: NumEdges; external edge id (OSM way id), -1 if unknown

	// Reverse index: InEdge[FirstIn[v]..FirstIn[v+1]] are the ids of edges ending at v.
	FirstIn []uint32 // len: NumNodes + 1
	InEdge  []uint32 // len: NumEdges

	NodeLat []float64 // len: NumNodes
	NodeLon []float64 // len: NumNodes
}

// EdgesFrom returns the range of edge indices for edges originating from node u.
func (g *Graph) EdgesFrom(u uint32) (start, end uint32) {
	return g.FirstOut[u], g.FirstOut[u+1]
}

// EdgesTo returns the ids of the edges ending at node v.
func (g *Graph) EdgesTo(v uint32) []uint32 {
	return g.InEdge[g.FirstIn[v]:g.FirstIn[v+1]]
}

// Degree returns the number of outgoing plus incoming edges of u.
func (g *Graph) Degree(u uint32) int {
	return int(g.FirstOut[u+1]-g.FirstOut[u]) + int(g.FirstIn[u+1]-g.FirstIn[u])
}

// MaxWeight is the largest representable path weight. Sums that reach it
// are treated as unreachable.
const MaxWeight = ^uint32(0)

// AddWeight returns a+b, saturating at MaxWeight.
func AddWeight(a, b uint32) uint32 {
	if s := a + b; s >= a {
		return s
	}
	return MaxWeight
}
