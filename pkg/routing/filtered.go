package routing

import (
	"fmt"

	"corerouter/pkg/filter"
	"corerouter/pkg/graph"
	"corerouter/pkg/landmark"
)

// maxHeuristicExits bounds the backward core frontier the A* heuristic
// minimises over. Beyond it the core phase runs as plain Dijkstra.
const maxHeuristicExits = 16

// searchState is the scratch of one filtered search.
type searchState struct {
	df, db  []uint32 // forward and backward distances
	pf, pb  []uint32 // parent CH edge per direction
	h       []uint32 // cached heuristic, Infinity when unknown
	touched []uint32
	seen    []bool

	exits    []uint32 // core nodes settled by the backward search
	frontier []uint32 // core nodes settled by the forward search
	heap     MinHeap
	allowed  allowedEdges

	visited    int
	maxVisited int
}

func newSearchState(n uint32) *searchState {
	s := &searchState{
		df:      make([]uint32, n),
		db:      make([]uint32, n),
		pf:      make([]uint32, n),
		pb:      make([]uint32, n),
		h:       make([]uint32, n),
		seen:    make([]bool, n),
		allowed: make(allowedEdges),
	}
	for i := range s.df {
		s.df[i], s.db[i], s.h[i] = Infinity, Infinity, Infinity
		s.pf[i], s.pb[i] = noEdge, noEdge
	}
	return s
}

func (s *searchState) reset(maxVisited int) {
	for _, v := range s.touched {
		s.df[v], s.db[v], s.h[v] = Infinity, Infinity, Infinity
		s.pf[v], s.pb[v] = noEdge, noEdge
		s.seen[v] = false
	}
	s.touched = s.touched[:0]
	s.exits = s.exits[:0]
	s.frontier = s.frontier[:0]
	s.heap.Reset()
	clear(s.allowed)
	s.visited = 0
	s.maxVisited = maxVisited
}

func (s *searchState) touch(v uint32) {
	if !s.seen[v] {
		s.seen[v] = true
		s.touched = append(s.touched, v)
	}
}

func (s *searchState) visit() error {
	s.visited++
	if s.maxVisited > 0 && s.visited > s.maxVisited {
		return ErrVisitedNodesExceeded
	}
	return nil
}

// FilteredSearch finds the shortest path from one node to another using
// only edges the filter accepts. Filters may only reject edges between core
// nodes for the result to be exact. A nil filter accepts every edge and a
// nil landmark index turns the core phase into plain Dijkstra. maxVisited
// <= 0 means unlimited.
func FilteredSearch(chg *graph.CHGraph, lm *landmark.Index, from, to uint32, f filter.EdgeFilter, maxVisited int) (*Path, error) {
	return filteredSearch(chg, lm, from, to, f, maxVisited, nil)
}

func filteredSearch(chg *graph.CHGraph, lm *landmark.Index, from, to uint32, f filter.EdgeFilter, maxVisited int, s *searchState) (*Path, error) {
	for _, v := range []uint32{from, to} {
		if v >= chg.NumNodes {
			return nil, fmt.Errorf("node %d: %w", v, ErrInvalidNode)
		}
	}
	if s == nil {
		s = newSearchState(chg.NumNodes)
	}
	s.reset(maxVisited)

	q := &filteredQuery{chg: chg, lm: lm, filter: f, s: s}
	mu, meet := uint32(Infinity), noNode

	if err := q.upward(from, true); err != nil {
		return nil, err
	}
	if err := q.upward(to, false); err != nil {
		return nil, err
	}
	for _, v := range s.touched {
		if d := graph.AddWeight(s.df[v], s.db[v]); d < mu {
			mu, meet = d, v
		}
	}

	if len(s.frontier) > 0 && len(s.exits) > 0 {
		var err error
		if mu, meet, err = q.core(mu, meet); err != nil {
			return nil, err
		}
	}
	if meet == noNode {
		return nil, ErrNotFound
	}

	// Forward parents lead back to from, backward parents on to to.
	var chEdges []uint32
	for v := meet; s.pf[v] != noEdge; v = chg.EdgeFrom[s.pf[v]] {
		chEdges = append(chEdges, s.pf[v])
	}
	for i, j := 0, len(chEdges)-1; i < j; i, j = i+1, j-1 {
		chEdges[i], chEdges[j] = chEdges[j], chEdges[i]
	}
	for v := meet; s.pb[v] != noEdge; v = chg.EdgeTo[s.pb[v]] {
		chEdges = append(chEdges, s.pb[v])
	}

	p := newPath(chg, from, unpackEdges(chg, chEdges))
	if p.Weight != mu {
		return nil, fmt.Errorf("path weight %d differs from distance %d: %w", p.Weight, mu, graph.ErrInvariantViolation)
	}
	return p, nil
}

type filteredQuery struct {
	chg    *graph.CHGraph
	lm     *landmark.Index
	filter filter.EdgeFilter
	s      *searchState
}

func (q *filteredQuery) allows(e uint32) bool {
	return q.s.allowed.allows(q.chg, q.filter, e)
}

// allowedEdges memoises per CH edge whether every base edge under it passes
// a filter.
type allowedEdges map[uint32]bool

func (a allowedEdges) allows(chg *graph.CHGraph, f filter.EdgeFilter, e uint32) bool {
	if f == nil {
		return true
	}
	if ok, found := a[e]; found {
		return ok
	}
	ok := chg.Unpack(e, func(b uint32) bool {
		return f.Evaluate(filter.BaseEdge(chg, b)) == filter.Accept
	})
	a[e] = ok
	return ok
}

// upward runs a Dijkstra over the upward graph of one direction. Core nodes
// are settled but not expanded; they form the core frontier.
func (q *filteredQuery) upward(source uint32, forward bool) error {
	s, chg := q.s, q.chg
	dist, parent := s.db, s.pb
	if forward {
		dist, parent = s.df, s.pf
	}

	s.heap.Reset()
	s.touch(source)
	dist[source] = 0
	s.heap.Push(source, 0)

	for s.heap.Len() > 0 {
		item := s.heap.Pop()
		u := item.Node
		if item.Key > dist[u] {
			continue
		}
		if err := s.visit(); err != nil {
			return err
		}

		if chg.IsCore[u] {
			if forward {
				s.frontier = append(s.frontier, u)
			} else {
				s.exits = append(s.exits, u)
			}
			continue
		}

		edges := chg.BwdUp(u)
		if forward {
			edges = chg.FwdUp(u)
		}
		for _, e := range edges {
			v := chg.EdgeFrom[e]
			if forward {
				v = chg.EdgeTo[e]
			}
			nd := graph.AddWeight(item.Key, chg.EdgeWeight[e])
			if nd >= dist[v] || !q.allows(e) {
				continue
			}
			s.touch(v)
			dist[v] = nd
			parent[v] = e
			s.heap.Push(v, nd)
		}
	}
	return nil
}

// heuristic bounds the remaining distance from core node v to to: the
// cheapest exit plus its backward distance.
func (q *filteredQuery) heuristic(v uint32) uint32 {
	s := q.s
	if q.lm == nil || len(s.exits) > maxHeuristicExits {
		return 0
	}
	if s.h[v] != Infinity {
		return s.h[v]
	}
	best := uint32(Infinity)
	for _, x := range s.exits {
		best = min(best, graph.AddWeight(q.lm.LowerBound(v, x), s.db[x]))
	}
	s.touch(v)
	s.h[v] = best
	return best
}

// core runs A* over the core edges from the forward frontier. Nodes may be
// reopened, so the result only relies on the heuristic being admissible.
// The search ends once no open node can beat mu.
func (q *filteredQuery) core(mu, meet uint32) (uint32, uint32, error) {
	s, chg := q.s, q.chg
	s.heap.Reset()
	for _, c := range s.frontier {
		s.heap.Push(c, graph.AddWeight(s.df[c], q.heuristic(c)))
	}

	for s.heap.Len() > 0 && s.heap.PeekKey() < mu {
		item := s.heap.Pop()
		u := item.Node
		if item.Key != graph.AddWeight(s.df[u], q.heuristic(u)) {
			continue
		}
		if err := s.visit(); err != nil {
			return 0, 0, err
		}
		if d := graph.AddWeight(s.df[u], s.db[u]); d < mu {
			mu, meet = d, u
		}

		for _, e := range chg.CoreOut(u) {
			v := chg.EdgeTo[e]
			nd := graph.AddWeight(s.df[u], chg.EdgeWeight[e])
			if nd >= s.df[v] || !q.allows(e) {
				continue
			}
			s.touch(v)
			s.df[v] = nd
			s.pf[v] = e
			s.heap.Push(v, graph.AddWeight(nd, q.heuristic(v)))
		}
	}
	return mu, meet, nil
}
