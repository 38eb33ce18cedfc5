package routing

import (
	"math/rand"

	"corerouter/pkg/graph"
)

func undirected(n uint32, edges [][3]uint32) *graph.Graph {
	var in []graph.InputEdge
	for _, e := range edges {
		in = append(in,
			graph.InputEdge{From: e[0], To: e[1], Weight: e[2], OrigID: int64(len(in))},
			graph.InputEdge{From: e[1], To: e[0], Weight: e[2], OrigID: int64(len(in) + 1)})
	}
	return graph.FromEdges(n, in, nil, nil)
}

// workedGraph is a nine node undirected road network with a known
// distance table.
func workedGraph() *graph.Graph {
	return undirected(9, [][3]uint32{
		{0, 1, 1}, {0, 2, 1}, {0, 3, 5}, {0, 8, 1}, {1, 2, 1}, {1, 8, 2}, {2, 3, 2},
		{3, 4, 2}, {4, 5, 1}, {4, 6, 1}, {5, 7, 1}, {6, 7, 2}, {7, 8, 3},
	})
}

// randomGraph returns a sparse graph with one-way streets and unique
// original ids per edge.
func randomGraph(rng *rand.Rand, n uint32) *graph.Graph {
	var edges []graph.InputEdge
	add := func(u, v, w uint32) {
		edges = append(edges, graph.InputEdge{From: u, To: v, Weight: w, OrigID: int64(len(edges))})
	}
	for v := uint32(1); v < n; v++ {
		u := uint32(rng.Intn(int(v)))
		w := uint32(1 + rng.Intn(20))
		add(u, v, w)
		if rng.Intn(4) != 0 {
			add(v, u, w)
		}
	}
	for i := 0; i < int(n); i++ {
		add(uint32(rng.Intn(int(n))), uint32(rng.Intn(int(n))), uint32(1+rng.Intn(30)))
	}
	return graph.FromEdges(n, edges, nil, nil)
}

func randomCore(rng *rand.Rand, n uint32, p float64) []bool {
	core := make([]bool, n)
	for v := range core {
		core[v] = rng.Float64() < p
	}
	return core
}

func randomNodes(rng *rand.Rand, n uint32, count int) []uint32 {
	nodes := make([]uint32, count)
	for i := range nodes {
		nodes[i] = uint32(rng.Intn(int(n)))
	}
	return nodes
}

// plainDijkstra returns the distances from source on the base graph,
// skipping edges rejected by skip.
func plainDijkstra(g *graph.Graph, source uint32, skip func(e uint32) bool) []uint32 {
	dist := make([]uint32, g.NumNodes)
	for i := range dist {
		dist[i] = Infinity
	}
	done := make([]bool, g.NumNodes)
	dist[source] = 0
	for {
		u, best := uint32(0), uint32(Infinity)
		for v := range dist {
			if !done[v] && dist[v] < best {
				u, best = uint32(v), dist[v]
			}
		}
		if best == Infinity {
			return dist
		}
		done[u] = true
		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			if skip != nil && skip(e) {
				continue
			}
			if d := graph.AddWeight(best, g.Weight[e]); d < dist[g.Head[e]] {
				dist[g.Head[e]] = d
			}
		}
	}
}
