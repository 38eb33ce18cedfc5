package ch

import (
	"fmt"
	"sort"
	"time"

	"corerouter/pkg/graph"
	"corerouter/pkg/metrics"
)

// maxOrigCount caps the original-edge term of a single shortcut.
const maxOrigCount = 3

// arc is an entry in the mutable adjacency lists. For out lists to is the
// head, for in lists it is the tail.
type arc struct {
	to     uint32
	weight uint32
	id     uint32 // CH edge id
	orig   int32  // base edges represented, capped at maxOrigCount
}

// candidate is a shortcut that contracting a node would need.
type candidate struct {
	from, to uint32
	weight   uint32
	skip1    uint32
	skip2    uint32
	orig     int32
}

type contractor struct {
	cfg     Config
	n       uint32
	numBase uint32
	core    []bool

	out [][]arc
	in  [][]arc

	contracted          []bool
	contractedNeighbors []int
	level               []int
	gen                 []uint32

	shortcuts []graph.Shortcut
	ws        *witnessState
	pq        minHeap[heapEntry]

	// Scratch for neighbor collection.
	inBuf  []arc
	outBuf []arc
	cands  []candidate
}

// Contract builds a contraction hierarchy over g. Nodes flagged in core are
// never contracted and receive the top ranks in node id order; a nil core
// contracts every node. An all-core graph yields a hierarchy without
// shortcuts.
//
// The result is deterministic for a given graph, core and config. A broken
// invariant is reported as an error wrapping graph.ErrInvariantViolation.
func Contract(g *graph.Graph, core []bool, cfg Config) (*graph.CHGraph, error) {
	start := time.Now()
	log := cfg.logger()

	n := g.NumNodes
	isCore := make([]bool, n)
	if core != nil {
		if uint32(len(core)) != n {
			return nil, fmt.Errorf("core set has %d entries for %d nodes", len(core), n)
		}
		copy(isCore, core)
	}

	c := newContractor(g, isCore, cfg)
	rank := make([]uint32, n)
	order := uint32(0)

	var numCore uint32
	for v := uint32(0); v < n; v++ {
		if isCore[v] {
			numCore++
			continue
		}
		c.pq.Push(heapEntry{node: v, priority: c.priority(v)})
	}

	log.Info("starting contraction", "nodes", n, "edges", g.NumEdges, "core", numCore)

	logInterval := uint32(50000)
	contractedCount := 0

	for c.pq.Len() > 0 {
		entry := c.pq.Pop()
		node := entry.node

		if c.contracted[node] || entry.gen != c.gen[node] {
			continue
		}
		if c.core[node] {
			return nil, graph.NodeViolation("core node in contraction queue", node)
		}

		// Lazy update: contract only if the node is still the cheapest.
		p := c.priority(node)
		if p > entry.priority && c.pq.Len() > 0 && c.pq.Peek().less(heapEntry{node: node, priority: p}) {
			c.gen[node]++
			c.pq.Push(heapEntry{node: node, priority: p, gen: c.gen[node]})
			continue
		}

		c.contract(node)
		rank[node] = order
		order++
		contractedCount++

		if iv := c.cfg.PeriodicUpdateInterval; iv > 0 && contractedCount%iv == 0 {
			c.rebuildQueue()
		}

		remaining := n - numCore - order
		switch {
		case remaining < 1000:
			logInterval = 100
		case remaining < 10000:
			logInterval = 1000
		case remaining < 100000:
			logInterval = 10000
		default:
			logInterval = 50000
		}
		if order%logInterval == 0 {
			log.Info("contraction progress", "contracted", order, "total", n-numCore, "shortcuts", len(c.shortcuts))
		}
	}

	for v := uint32(0); v < n; v++ {
		if c.contracted[v] {
			continue
		}
		if !isCore[v] {
			return nil, graph.NodeViolation("non-core node left uncontracted", v)
		}
		rank[v] = order
		order++
	}

	chg := graph.NewCHGraph(g, rank, isCore, c.shortcuts)
	if err := chg.Validate(); err != nil {
		return nil, fmt.Errorf("validate hierarchy: %w", err)
	}

	ratio := 0.0
	if g.NumEdges > 0 {
		ratio = float64(len(c.shortcuts)) / float64(g.NumEdges)
	}
	log.Info("contraction complete",
		"shortcuts", len(c.shortcuts),
		"shortcut_ratio", fmt.Sprintf("%.2f", ratio),
		"core", numCore,
		"elapsed", time.Since(start))

	metrics.ContractionDuration.Observe(time.Since(start).Seconds())
	metrics.ShortcutsCreated.Add(float64(len(c.shortcuts)))
	metrics.CoreNodes.Set(float64(numCore))

	return chg, nil
}

func newContractor(g *graph.Graph, core []bool, cfg Config) *contractor {
	n := g.NumNodes
	c := &contractor{
		cfg:                 cfg,
		n:                   n,
		numBase:             g.NumEdges,
		core:                core,
		out:                 make([][]arc, n),
		in:                  make([][]arc, n),
		contracted:          make([]bool, n),
		contractedNeighbors: make([]int, n),
		level:               make([]int, n),
		gen:                 make([]uint32, n),
		ws:                  newWitnessState(n),
	}
	for e := uint32(0); e < g.NumEdges; e++ {
		u, v, w := g.Tail[e], g.Head[e], g.Weight[e]
		c.out[u] = append(c.out[u], arc{to: v, weight: w, id: e, orig: 1})
		c.in[v] = append(c.in[v], arc{to: u, weight: w, id: e, orig: 1})
	}
	return c
}

// neighbors collects, per active neighbor of node, the cheapest in-arc and
// out-arc. Results are ordered by neighbor id and stored in c.inBuf and
// c.outBuf. Self loops are dropped.
func (c *contractor) neighbors(node uint32) {
	c.inBuf = cheapestPerNeighbor(c.inBuf[:0], c.in[node], node, c.contracted)
	c.outBuf = cheapestPerNeighbor(c.outBuf[:0], c.out[node], node, c.contracted)
}

func cheapestPerNeighbor(dst, arcs []arc, node uint32, contracted []bool) []arc {
	for _, a := range arcs {
		if a.to != node && !contracted[a.to] {
			dst = append(dst, a)
		}
	}
	sort.SliceStable(dst, func(i, j int) bool {
		if dst[i].to != dst[j].to {
			return dst[i].to < dst[j].to
		}
		return dst[i].weight < dst[j].weight
	})
	// Keep the first arc per neighbor.
	k := 0
	for i := range dst {
		if i > 0 && dst[i].to == dst[k-1].to {
			continue
		}
		dst[k] = dst[i]
		k++
	}
	return dst[:k]
}

// findShortcuts computes the shortcuts needed to contract node, using one
// witness search per incoming neighbor. Expects c.neighbors(node) to have
// filled the neighbor buffers.
func (c *contractor) findShortcuts(node uint32) []candidate {
	c.cands = c.cands[:0]
	if len(c.inBuf) == 0 || len(c.outBuf) == 0 {
		return c.cands
	}

	for _, in := range c.inBuf {
		var maxOut uint32
		for _, out := range c.outBuf {
			if out.to != in.to && out.weight > maxOut {
				maxOut = out.weight
			}
		}
		if maxOut == 0 && !c.hasOtherTarget(in.to) {
			continue
		}

		c.witnessSearch(in.to, node, graph.AddWeight(in.weight, maxOut))

		for _, out := range c.outBuf {
			if out.to == in.to {
				continue
			}
			w := graph.AddWeight(in.weight, out.weight)
			// An equal-cost witness suppresses the shortcut. A saturated
			// weight is unreachable and needs no shortcut either.
			if w == graph.MaxWeight || c.ws.dist[out.to] <= w {
				continue
			}
			c.cands = append(c.cands, candidate{
				from:   in.to,
				to:     out.to,
				weight: w,
				skip1:  in.id,
				skip2:  out.id,
				orig:   min(in.orig+out.orig, maxOrigCount),
			})
		}
	}
	return c.cands
}

// hasOtherTarget reports whether some outgoing neighbor differs from u.
func (c *contractor) hasOtherTarget(u uint32) bool {
	for _, out := range c.outBuf {
		if out.to != u {
			return true
		}
	}
	return false
}

// priority simulates contracting node and scores the result. Lower values
// are contracted first.
func (c *contractor) priority(node uint32) int {
	c.neighbors(node)
	degree := len(c.inBuf) + len(c.outBuf)
	cands := c.findShortcuts(node)

	origEdges := 0
	for _, sc := range cands {
		origEdges += int(sc.orig)
	}

	return c.cfg.EdgeDifferenceWeight*(len(cands)-degree) +
		c.cfg.ContractedNeighborsWeight*c.contractedNeighbors[node] +
		c.cfg.OriginalEdgesWeight*origEdges +
		c.cfg.LevelWeight*c.level[node]
}

// contract removes node from the remaining graph, inserts its shortcuts
// and refreshes the priorities of its neighbors.
func (c *contractor) contract(node uint32) {
	c.neighbors(node)
	cands := c.findShortcuts(node)

	for _, sc := range cands {
		id := c.numBase + uint32(len(c.shortcuts))
		c.shortcuts = append(c.shortcuts, graph.Shortcut{
			From:   sc.from,
			To:     sc.to,
			Weight: sc.weight,
			Skip1:  int32(sc.skip1),
			Skip2:  int32(sc.skip2),
		})
		c.out[sc.from] = append(c.out[sc.from], arc{to: sc.to, weight: sc.weight, id: id, orig: sc.orig})
		c.in[sc.to] = append(c.in[sc.to], arc{to: sc.from, weight: sc.weight, id: id, orig: sc.orig})
	}
	c.contracted[node] = true

	// Distinct active neighbors, in ascending id order.
	neighbors := make([]uint32, 0, len(c.inBuf)+len(c.outBuf))
	for _, a := range c.inBuf {
		neighbors = append(neighbors, a.to)
	}
	for _, a := range c.outBuf {
		neighbors = append(neighbors, a.to)
	}
	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i] < neighbors[j] })

	for i, x := range neighbors {
		if i > 0 && neighbors[i-1] == x {
			continue
		}
		c.contractedNeighbors[x]++
		c.level[x] = max(c.level[x], c.level[node]+1)
		if c.core[x] {
			continue
		}
		c.gen[x]++
		c.pq.Push(heapEntry{node: x, priority: c.priority(x), gen: c.gen[x]})
	}
}

// rebuildQueue recomputes the priority of every remaining non-core node.
func (c *contractor) rebuildQueue() {
	c.pq.Reset()
	for v := uint32(0); v < c.n; v++ {
		if c.contracted[v] || c.core[v] {
			continue
		}
		c.gen[v]++
		c.pq.Push(heapEntry{node: v, priority: c.priority(v), gen: c.gen[v]})
	}
}
