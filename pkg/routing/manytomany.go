package routing

import (
	"context"
	"fmt"
	"sort"

	"github.com/emirpasic/gods/queues/arrayqueue"

	"corerouter/pkg/filter"
	"corerouter/pkg/graph"
)

// SwapMode controls whether a matrix query runs on the reversed hierarchy.
type SwapMode int

const (
	// SwapAuto reverses the search when there are more sources than targets.
	SwapAuto SwapMode = iota
	SwapNever
	SwapAlways
)

type queryOptions struct {
	maxVisited int
	paths      bool
	swap       SwapMode
	ctx        context.Context
	filter     filter.EdgeFilter
	state      *manyState
}

// Option configures a ManyToMany query.
type Option func(*queryOptions)

// WithMaxVisitedNodes limits the nodes a query may touch across all phases.
// n <= 0 means unlimited.
func WithMaxVisitedNodes(n int) Option {
	return func(o *queryOptions) { o.maxVisited = n }
}

// WithPaths makes every reachable cell carry its unpacked base edge path.
func WithPaths() Option {
	return func(o *queryOptions) { o.paths = true }
}

// WithSwap overrides the search direction choice.
func WithSwap(mode SwapMode) Option {
	return func(o *queryOptions) { o.swap = mode }
}

// WithContext aborts the query between phases once ctx is done.
func WithContext(ctx context.Context) Option {
	return func(o *queryOptions) { o.ctx = ctx }
}

// WithFilter restricts the query to edges f accepts. Distances are exact as
// long as f only rejects edges between core nodes. A nil f accepts every
// edge.
func WithFilter(f filter.EdgeFilter) Option {
	return func(o *queryOptions) { o.filter = f }
}

func withState(s *manyState) Option {
	return func(o *queryOptions) { o.state = s }
}

// Table is the result of a matrix query. Dist is row-major: the distance
// from Sources[i] to Targets[j] is Dist[i*len(Targets)+j].
type Table struct {
	Sources []uint32
	Targets []uint32
	Dist    []uint32

	chg   *graph.CHGraph
	paths [][]uint32
}

// At returns the distance from source i to target j, Infinity if unreachable.
func (t *Table) At(i, j int) uint32 { return t.Dist[i*len(t.Targets)+j] }

// Reachable reports whether target j can be reached from source i.
func (t *Table) Reachable(i, j int) bool { return t.At(i, j) != Infinity }

// Row returns the distances from source i.
func (t *Table) Row(i int) []uint32 {
	m := len(t.Targets)
	return t.Dist[i*m : (i+1)*m]
}

// Path returns the base edge ids of the path from source i to target j.
// It reports false when the pair is unreachable or the query did not ask for
// paths. A source equal to its target has an empty path.
func (t *Table) Path(i, j int) ([]uint32, bool) {
	if t.paths == nil || !t.Reachable(i, j) {
		return nil, false
	}
	return t.paths[i*len(t.Targets)+j], true
}

// OrigIDs returns the original way id of every edge on the path from
// source i to target j, with the same availability as Path.
func (t *Table) OrigIDs(i, j int) ([]int64, bool) {
	edges, ok := t.Path(i, j)
	if !ok {
		return nil, false
	}
	ids := make([]int64, len(edges))
	for k, e := range edges {
		ids[k] = t.chg.OrigID[e]
	}
	return ids, true
}

// view presents the hierarchy in search direction. The reversed view swaps
// the forward and backward upward graphs and the core adjacency, and walks
// every edge from head to tail.
type view struct {
	chg     *graph.CHGraph
	reverse bool
}

func (w view) up(u uint32) []uint32 {
	if w.reverse {
		return w.chg.BwdUp(u)
	}
	return w.chg.FwdUp(u)
}

func (w view) down(v uint32) []uint32 {
	if w.reverse {
		return w.chg.FwdUp(v)
	}
	return w.chg.BwdUp(v)
}

func (w view) coreOut(u uint32) []uint32 {
	if w.reverse {
		return w.chg.CoreIn(u)
	}
	return w.chg.CoreOut(u)
}

func (w view) head(e uint32) uint32 {
	if w.reverse {
		return w.chg.EdgeFrom[e]
	}
	return w.chg.EdgeTo[e]
}

func (w view) tail(e uint32) uint32 {
	if w.reverse {
		return w.chg.EdgeTo[e]
	}
	return w.chg.EdgeFrom[e]
}

// manyState is the scratch of one matrix query. Distances of all k slots of
// a node are stored contiguously.
type manyState struct {
	k      int
	slot   []int32 // per node, -1 until the node holds distances
	nodes  []uint32
	dist   []uint32
	parent []uint32

	mark   []bool // reaches a target going down
	marked []uint32
	seen   []bool // in the upward search space
	upward []uint32
	done   []uint32 // settled stamp of the core sweep
	epoch  uint32

	queue *arrayqueue.Queue
	heap  MinHeap

	filter  filter.EdgeFilter
	allowed allowedEdges

	visited    int
	maxVisited int
}

func newManyState(n uint32) *manyState {
	s := &manyState{
		slot:    make([]int32, n),
		mark:    make([]bool, n),
		seen:    make([]bool, n),
		done:    make([]uint32, n),
		queue:   arrayqueue.New(),
		allowed: make(allowedEdges),
	}
	for i := range s.slot {
		s.slot[i] = -1
	}
	return s
}

func (s *manyState) reset(k, maxVisited int, f filter.EdgeFilter) {
	for _, v := range s.nodes {
		s.slot[v] = -1
	}
	for _, v := range s.marked {
		s.mark[v] = false
	}
	for _, v := range s.upward {
		s.seen[v] = false
	}
	s.nodes = s.nodes[:0]
	s.dist = s.dist[:0]
	s.parent = s.parent[:0]
	s.marked = s.marked[:0]
	s.upward = s.upward[:0]
	s.queue.Clear()
	s.heap.Reset()
	clear(s.allowed)
	s.filter = f
	s.k = k
	s.visited = 0
	s.maxVisited = maxVisited
}

// alloc gives v a block of k slots, all Infinity.
func (s *manyState) alloc(v uint32) {
	if s.slot[v] >= 0 {
		return
	}
	s.slot[v] = int32(len(s.nodes))
	s.nodes = append(s.nodes, v)
	for i := 0; i < s.k; i++ {
		s.dist = append(s.dist, Infinity)
		s.parent = append(s.parent, noEdge)
	}
}

func (s *manyState) cell(v uint32, slot int) int {
	return int(s.slot[v])*s.k + slot
}

func (s *manyState) visit() error {
	s.visited++
	if s.maxVisited > 0 && s.visited > s.maxVisited {
		return ErrVisitedNodesExceeded
	}
	return nil
}

// ManyToMany computes shortest path distances from every source to every
// target. Unreachable pairs hold Infinity. Repeated nodes are independent
// rows or columns.
//
// The search marks the downward search space of the targets, relaxes the
// union of the sources' upward search spaces once in rank order, completes
// the core per source with Dijkstra and finally sweeps the marked nodes
// downwards. With more sources than targets it runs on the reversed
// hierarchy instead.
func ManyToMany(chg *graph.CHGraph, sources, targets []uint32, opts ...Option) (*Table, error) {
	o := queryOptions{ctx: context.Background()}
	for _, opt := range opts {
		opt(&o)
	}

	if len(sources) == 0 || len(targets) == 0 {
		return nil, ErrEmptyQuery
	}
	for _, list := range [][]uint32{sources, targets} {
		for _, v := range list {
			if v >= chg.NumNodes {
				return nil, fmt.Errorf("node %d: %w", v, ErrInvalidNode)
			}
		}
	}

	reverse := o.swap == SwapAlways || (o.swap == SwapAuto && len(sources) > len(targets))
	w := view{chg: chg, reverse: reverse}
	from, to := sources, targets
	if reverse {
		from, to = targets, sources
	}

	s := o.state
	if s == nil {
		s = newManyState(chg.NumNodes)
	}
	s.reset(len(from), o.maxVisited, o.filter)

	if err := s.selectTargets(w, to); err != nil {
		return nil, err
	}
	if err := o.ctx.Err(); err != nil {
		return nil, err
	}
	seeds, err := s.upwardPhase(w, from)
	if err != nil {
		return nil, err
	}
	if err := o.ctx.Err(); err != nil {
		return nil, err
	}

	needed := 0
	for _, v := range s.marked {
		if chg.IsCore[v] {
			needed++
		}
	}
	if needed > 0 && len(seeds) > 0 {
		for slot := range from {
			if err := s.coreSweep(w, slot, seeds, needed); err != nil {
				return nil, err
			}
		}
		if err := o.ctx.Err(); err != nil {
			return nil, err
		}
	}
	s.downwardSweep(w)

	t := &Table{
		Sources: sources,
		Targets: targets,
		Dist:    make([]uint32, len(sources)*len(targets)),
		chg:     chg,
	}
	if o.paths {
		t.paths = make([][]uint32, len(t.Dist))
	}
	m := len(targets)
	for j, v := range to {
		for i := range from {
			d := uint32(Infinity)
			if s.slot[v] >= 0 {
				d = s.dist[s.cell(v, i)]
			}
			// (i, j) in search direction is (j, i) in the reversed table.
			idx := i*m + j
			if reverse {
				idx = j*m + i
			}
			t.Dist[idx] = d
			if o.paths && d != Infinity {
				t.paths[idx] = s.path(w, from[i], v, i)
			}
		}
	}
	return t, nil
}

// selectTargets marks every node from which a target is reachable over
// edges of decreasing rank. Marking stops at core nodes.
func (s *manyState) selectTargets(w view, targets []uint32) error {
	for _, t := range targets {
		if !s.mark[t] {
			s.mark[t] = true
			s.marked = append(s.marked, t)
			s.queue.Enqueue(t)
			if err := s.visit(); err != nil {
				return err
			}
		}
	}

	for !s.queue.Empty() {
		item, _ := s.queue.Dequeue()
		v := item.(uint32)
		if w.chg.IsCore[v] {
			continue
		}
		for _, e := range w.down(v) {
			u := w.tail(e)
			if s.mark[u] {
				continue
			}
			s.mark[u] = true
			s.marked = append(s.marked, u)
			s.queue.Enqueue(u)
			if err := s.visit(); err != nil {
				return err
			}
		}
	}

	rank := w.chg.Rank
	sort.Slice(s.marked, func(i, j int) bool { return rank[s.marked[i]] > rank[s.marked[j]] })
	return nil
}

// upwardPhase collects the union of the sources' upward search spaces and
// relaxes it once in ascending rank order. It returns the core nodes
// reached, which seed the core sweeps.
func (s *manyState) upwardPhase(w view, sources []uint32) ([]uint32, error) {
	for i, src := range sources {
		s.alloc(src)
		s.dist[s.cell(src, i)] = 0
		if !s.seen[src] {
			s.seen[src] = true
			s.upward = append(s.upward, src)
			s.queue.Enqueue(src)
			if err := s.visit(); err != nil {
				return nil, err
			}
		}
	}

	for !s.queue.Empty() {
		item, _ := s.queue.Dequeue()
		u := item.(uint32)
		if w.chg.IsCore[u] {
			continue
		}
		for _, e := range w.up(u) {
			v := w.head(e)
			if s.seen[v] {
				continue
			}
			s.seen[v] = true
			s.upward = append(s.upward, v)
			s.queue.Enqueue(v)
			if err := s.visit(); err != nil {
				return nil, err
			}
		}
	}

	rank := w.chg.Rank
	sort.Slice(s.upward, func(i, j int) bool { return rank[s.upward[i]] < rank[s.upward[j]] })

	var seeds []uint32
	for _, u := range s.upward {
		if w.chg.IsCore[u] {
			seeds = append(seeds, u)
			continue
		}
		if s.slot[u] < 0 {
			continue
		}
		for _, e := range w.up(u) {
			if !s.allows(w, e) {
				continue
			}
			v := w.head(e)
			s.alloc(v)
			s.relax(u, v, e, w.chg.EdgeWeight[e])
		}
	}
	return seeds, nil
}

// downwardSweep settles the marked nodes from the highest rank down.
func (s *manyState) downwardSweep(w view) {
	for _, v := range s.marked {
		if w.chg.IsCore[v] {
			continue
		}
		for _, e := range w.down(v) {
			u := w.tail(e)
			if s.slot[u] < 0 || !s.allows(w, e) {
				continue
			}
			s.alloc(v)
			s.relax(u, v, e, w.chg.EdgeWeight[e])
		}
	}
}

func (s *manyState) allows(w view, e uint32) bool {
	return s.allowed.allows(w.chg, s.filter, e)
}

// relax updates every slot of v through edge e from u.
func (s *manyState) relax(u, v, e, weight uint32) {
	bu, bv := int(s.slot[u])*s.k, int(s.slot[v])*s.k
	for i := 0; i < s.k; i++ {
		du := s.dist[bu+i]
		if du == Infinity {
			continue
		}
		if nd := graph.AddWeight(du, weight); nd < s.dist[bv+i] {
			s.dist[bv+i] = nd
			s.parent[bv+i] = e
		}
	}
}

// path walks the parent edges of slot back from target to source and
// unpacks them into base edges in travel order.
func (s *manyState) path(w view, source, target uint32, slot int) []uint32 {
	var chEdges []uint32
	v := target
	for steps := 0; steps <= len(s.nodes); steps++ {
		e := s.parent[s.cell(v, slot)]
		if e == noEdge {
			break
		}
		chEdges = append(chEdges, e)
		v = w.tail(e)
	}
	if v != source {
		return nil
	}
	// Walking back in the reversed view already yields travel order.
	if !w.reverse {
		for i, j := 0, len(chEdges)-1; i < j; i, j = i+1, j-1 {
			chEdges[i], chEdges[j] = chEdges[j], chEdges[i]
		}
	}
	return unpackEdges(w.chg, chEdges)
}
