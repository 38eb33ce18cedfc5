package graph

// UnionFind is a disjoint-set forest with path halving and union by size.
type UnionFind struct {
	parent []uint32
	size   []uint32
}

// NewUnionFind returns n singleton sets.
func NewUnionFind(n uint32) *UnionFind {
	uf := &UnionFind{parent: make([]uint32, n), size: make([]uint32, n)}
	for i := range n {
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

// Find returns the representative of the set containing x.
func (uf *UnionFind) Find(x uint32) uint32 {
	p := uf.parent
	for p[x] != x {
		p[x] = p[p[x]]
		x = p[x]
	}
	return x
}

// Union merges the sets containing x and y and reports whether they were
// distinct.
func (uf *UnionFind) Union(x, y uint32) bool {
	rx, ry := uf.Find(x), uf.Find(y)
	if rx == ry {
		return false
	}
	if uf.size[rx] < uf.size[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	return true
}

// Size returns the number of elements in the set containing x.
func (uf *UnionFind) Size(x uint32) uint32 {
	return uf.size[uf.Find(x)]
}

// LargestComponent returns the nodes of the largest weakly connected
// component in ascending order. Ties go to the component holding the
// smallest node id.
func LargestComponent(g *Graph) []uint32 {
	if g.NumNodes == 0 {
		return nil
	}

	uf := NewUnionFind(g.NumNodes)
	for e := range g.NumEdges {
		uf.Union(g.Tail[e], g.Head[e])
	}

	var best uint32
	for v := range g.NumNodes {
		if uf.Size(v) > uf.Size(best) {
			best = v
		}
	}
	root := uf.Find(best)

	nodes := make([]uint32, 0, uf.Size(root))
	for v := range g.NumNodes {
		if uf.Find(v) == root {
			nodes = append(nodes, v)
		}
	}
	return nodes
}

// FilterToComponent returns the subgraph induced by nodes, renumbered in the
// order given. Edge weights and original ids are kept.
func FilterToComponent(g *Graph, nodes []uint32) *Graph {
	if len(nodes) == 0 {
		return &Graph{}
	}

	const dropped = ^uint32(0)
	remap := make([]uint32, g.NumNodes)
	for i := range remap {
		remap[i] = dropped
	}
	n := uint32(len(nodes))
	lat := make([]float64, n)
	lon := make([]float64, n)
	for i, v := range nodes {
		remap[v] = uint32(i)
		lat[i], lon[i] = g.NodeLat[v], g.NodeLon[v]
	}

	var edges []InputEdge
	for e := range g.NumEdges {
		u, v := remap[g.Tail[e]], remap[g.Head[e]]
		if u == dropped || v == dropped {
			continue
		}
		edges = append(edges, InputEdge{From: u, To: v, Weight: g.Weight[e], OrigID: g.OrigID[e]})
	}
	return FromEdges(n, edges, lat, lon)
}
