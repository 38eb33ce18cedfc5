package graph

// NoEdge marks the absent skipped edges of a base edge.
const NoEdge int32 = -1

// Shortcut is a synthetic edge replacing the two-hop path Skip1 then Skip2.
// Skip1 and Skip2 are edge ids in the CHGraph edge store.
type Shortcut struct {
	From, To uint32
	Weight   uint32
	Skip1    int32
	Skip2    int32
}

// CHGraph holds the output of contraction hierarchies preprocessing.
// It is immutable once built and safe for concurrent readers.
type CHGraph struct {
	NumNodes     uint32
	NumBaseEdges uint32
	NodeLat      []float64
	NodeLon      []float64

	Rank   []uint32 // permutation of [0, NumNodes); core nodes hold the top ranks
	IsCore []bool

	// Edge store. Ids [0, NumBaseEdges) are the base graph edges with the same
	// ids as in the Graph they were built from; shortcuts follow.
	EdgeFrom   []uint32
	EdgeTo     []uint32
	EdgeWeight []uint32
	EdgeSkip1  []int32 // NoEdge for base edges
	EdgeSkip2  []int32 // NoEdge for base edges
	OrigID     []int64 // len: NumBaseEdges

	// Forward upward graph: edges u→v with rank[u] < rank[v], grouped by u.
	// Only non-core u have entries.
	FwdFirst []uint32
	FwdEdge  []uint32

	// Backward upward graph: edges u→v with rank[u] > rank[v], grouped by v.
	// Only non-core v have entries.
	BwdFirst []uint32
	BwdEdge  []uint32

	// Core graph: every edge whose endpoints are both core, grouped by source
	// (CoreOut) and by target (CoreIn).
	CoreOutFirst []uint32
	CoreOutEdge  []uint32
	CoreInFirst  []uint32
	CoreInEdge   []uint32
}

// NewCHGraph assembles the query graph from the base graph, the final ranks,
// the core set and the shortcuts in creation order.
func NewCHGraph(g *Graph, rank []uint32, core []bool, shortcuts []Shortcut) *CHGraph {
	numBase := g.NumEdges
	numEdges := numBase + uint32(len(shortcuts))

	from := make([]uint32, numEdges)
	to := make([]uint32, numEdges)
	weight := make([]uint32, numEdges)
	skip1 := make([]int32, numEdges)
	skip2 := make([]int32, numEdges)

	copy(from, g.Tail)
	copy(to, g.Head)
	copy(weight, g.Weight)
	for e := uint32(0); e < numBase; e++ {
		skip1[e] = NoEdge
		skip2[e] = NoEdge
	}
	for i, sc := range shortcuts {
		e := numBase + uint32(i)
		from[e] = sc.From
		to[e] = sc.To
		weight[e] = sc.Weight
		skip1[e] = sc.Skip1
		skip2[e] = sc.Skip2
	}

	isCore := make([]bool, g.NumNodes)
	copy(isCore, core)

	origID := make([]int64, numBase)
	copy(origID, g.OrigID)

	c := &CHGraph{
		NumNodes:     g.NumNodes,
		NumBaseEdges: numBase,
		NodeLat:      g.NodeLat,
		NodeLon:      g.NodeLon,
		Rank:         rank,
		IsCore:       isCore,
		EdgeFrom:     from,
		EdgeTo:       to,
		EdgeWeight:   weight,
		EdgeSkip1:    skip1,
		EdgeSkip2:    skip2,
		OrigID:       origID,
	}
	c.buildIndexes()
	return c
}

// buildIndexes derives the upward and core adjacency arrays from the edge
// store, the ranks and the core set.
func (c *CHGraph) buildIndexes() {
	n, m := c.NumNodes, c.NumEdges()
	from, to, rank, isCore := c.EdgeFrom, c.EdgeTo, c.Rank, c.IsCore

	c.FwdFirst, c.FwdEdge = buildCSR(n, m, func(e uint32) (uint32, bool) {
		u, v := from[e], to[e]
		return u, !isCore[u] && rank[u] < rank[v]
	})
	c.BwdFirst, c.BwdEdge = buildCSR(n, m, func(e uint32) (uint32, bool) {
		u, v := from[e], to[e]
		return v, !isCore[v] && rank[u] > rank[v]
	})
	c.CoreOutFirst, c.CoreOutEdge = buildCSR(n, m, func(e uint32) (uint32, bool) {
		return from[e], isCore[from[e]] && isCore[to[e]]
	})
	c.CoreInFirst, c.CoreInEdge = buildCSR(n, m, func(e uint32) (uint32, bool) {
		return to[e], isCore[from[e]] && isCore[to[e]]
	})
}

// NumEdges returns the number of base edges plus shortcuts.
func (c *CHGraph) NumEdges() uint32 { return uint32(len(c.EdgeFrom)) }

// NumShortcuts returns the number of shortcuts in the edge store.
func (c *CHGraph) NumShortcuts() uint32 { return c.NumEdges() - c.NumBaseEdges }

// IsShortcut reports whether edge e is a shortcut.
func (c *CHGraph) IsShortcut(e uint32) bool { return e >= c.NumBaseEdges }

// FwdUp returns the upward edges leaving u.
func (c *CHGraph) FwdUp(u uint32) []uint32 { return c.FwdEdge[c.FwdFirst[u]:c.FwdFirst[u+1]] }

// BwdUp returns the edges entering v from higher-ranked nodes.
func (c *CHGraph) BwdUp(v uint32) []uint32 { return c.BwdEdge[c.BwdFirst[v]:c.BwdFirst[v+1]] }

// CoreOut returns the core edges leaving core node u.
func (c *CHGraph) CoreOut(u uint32) []uint32 {
	return c.CoreOutEdge[c.CoreOutFirst[u]:c.CoreOutFirst[u+1]]
}

// CoreIn returns the core edges entering core node v.
func (c *CHGraph) CoreIn(v uint32) []uint32 {
	return c.CoreInEdge[c.CoreInFirst[v]:c.CoreInFirst[v+1]]
}

// CoreSize returns the number of core nodes.
func (c *CHGraph) CoreSize() uint32 {
	var n uint32
	for _, core := range c.IsCore {
		if core {
			n++
		}
	}
	return n
}

// Middle returns the node a shortcut bypasses.
func (c *CHGraph) Middle(e uint32) uint32 {
	return c.EdgeTo[c.EdgeSkip1[e]]
}

// Unpack calls visit for every base edge represented by e, in path order.
// It stops early when visit returns false and reports whether it completed.
// Uses an explicit stack to avoid recursion on deep shortcuts.
func (c *CHGraph) Unpack(e uint32, visit func(base uint32) bool) bool {
	stack := []uint32{e}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur < c.NumBaseEdges {
			if !visit(cur) {
				return false
			}
			continue
		}
		// Push right half first so the left half is processed first (LIFO).
		stack = append(stack, uint32(c.EdgeSkip2[cur]), uint32(c.EdgeSkip1[cur]))
	}
	return true
}

// Validate checks the structural invariants of the hierarchy.
func (c *CHGraph) Validate() error {
	if err := c.validateRanks(); err != nil {
		return err
	}

	for e := c.NumBaseEdges; e < c.NumEdges(); e++ {
		s1, s2 := c.EdgeSkip1[e], c.EdgeSkip2[e]
		if s1 < 0 || s2 < 0 || uint32(s1) >= e || uint32(s2) >= e {
			return edgeViolation("shortcut skips an invalid edge", e)
		}
		if c.EdgeFrom[s1] != c.EdgeFrom[e] || c.EdgeTo[s2] != c.EdgeTo[e] || c.EdgeTo[s1] != c.EdgeFrom[s2] {
			return edgeViolation("shortcut halves do not form a path", e)
		}
		sum := uint64(c.EdgeWeight[s1]) + uint64(c.EdgeWeight[s2])
		if sum >= uint64(MaxWeight) {
			return edgeViolation("shortcut weight overflows", e)
		}
		if uint32(sum) != c.EdgeWeight[e] {
			return edgeViolation("shortcut weight differs from its halves", e)
		}
		mid := c.Middle(e)
		if c.IsCore[mid] {
			return edgeViolation("shortcut bypasses a core node", e)
		}
		if c.Rank[mid] >= c.Rank[c.EdgeFrom[e]] || c.Rank[mid] >= c.Rank[c.EdgeTo[e]] {
			return edgeViolation("shortcut middle is not below its endpoints", e)
		}
	}

	for u := uint32(0); u < c.NumNodes; u++ {
		for _, e := range c.FwdUp(u) {
			if c.EdgeFrom[e] != u || c.Rank[c.EdgeTo[e]] <= c.Rank[u] {
				return edgeViolation("forward upward edge does not go up", e)
			}
		}
		for _, e := range c.BwdUp(u) {
			if c.EdgeTo[e] != u || c.Rank[c.EdgeFrom[e]] <= c.Rank[u] {
				return edgeViolation("backward upward edge does not go up", e)
			}
		}
	}
	return nil
}

// validateRanks checks that ranks form a permutation with the core on top.
func (c *CHGraph) validateRanks() error {
	n := c.NumNodes
	if uint32(len(c.Rank)) != n || uint32(len(c.IsCore)) != n {
		return &InvariantError{Kind: "rank or core table size mismatch", Node: -1, Edge: -1}
	}

	seen := make([]bool, n)
	maxNonCore := int64(-1)
	minCore := int64(n)
	for v := uint32(0); v < n; v++ {
		r := c.Rank[v]
		if r >= n || seen[r] {
			return NodeViolation("ranks are not a permutation", v)
		}
		seen[r] = true
		if c.IsCore[v] {
			minCore = min(minCore, int64(r))
		} else {
			maxNonCore = max(maxNonCore, int64(r))
		}
	}
	if maxNonCore >= minCore {
		return &InvariantError{Kind: "core node ranked below a contracted node", Node: -1, Edge: -1}
	}
	return nil
}
