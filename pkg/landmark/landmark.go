// Package landmark selects reference nodes inside each connected piece of
// the uncontracted core and derives A* lower bounds from their distances.
package landmark

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/emirpasic/gods/queues/priorityqueue"
	"golang.org/x/sync/errgroup"

	"corerouter/pkg/graph"
	"corerouter/pkg/metrics"
)

const infinity = math.MaxUint32

// Config controls landmark selection.
type Config struct {
	Count             int // landmarks per subnetwork
	MinSubnetworkSize int // smaller subnetworks get no landmarks
	Parallelism       int // concurrent subnetwork builds, <= 0 means unlimited
	Logger            *slog.Logger
}

// DefaultConfig returns two landmarks for every subnetwork of two or more
// nodes.
func DefaultConfig() Config {
	return Config{Count: 2, MinSubnetworkSize: 2}
}

// Subnetwork is one weakly connected component of the core graph.
type Subnetwork struct {
	ID        int
	Nodes     []uint32 // ascending
	Landmarks []uint32

	// from[l][i] is the distance from landmark l to Nodes[i], to[l][i] the
	// distance from Nodes[i] to landmark l.
	from [][]uint32
	to   [][]uint32
}

// Index holds the landmark distances of every core subnetwork. It is
// immutable and safe for concurrent use.
type Index struct {
	subnet      []int32  // per node, -1 outside the core
	local       []uint32 // position of a core node in its subnetwork
	subnetworks []Subnetwork
}

// Build finds the core subnetworks of chg and selects landmarks in each.
// Subnetworks that cannot hold cfg.Count landmarks are logged and left
// without landmarks; queries inside them fall back to plain Dijkstra.
func Build(ctx context.Context, chg *graph.CHGraph, cfg Config) (*Index, error) {
	start := time.Now()
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	idx := partition(chg)

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Parallelism > 0 {
		g.SetLimit(cfg.Parallelism)
	}
	for i := range idx.subnetworks {
		sn := &idx.subnetworks[i]
		size := len(sn.Nodes)

		switch {
		case size < cfg.MinSubnetworkSize:
			metrics.LandmarkSubnetworks.WithLabelValues("too_small").Inc()
			continue
		case cfg.Count <= 0 || cfg.Count >= size:
			log.Warn("subnetwork cannot hold landmarks",
				"subnetwork", sn.ID, "size", size, "landmarks", cfg.Count)
			metrics.LandmarkSubnetworks.WithLabelValues("misconfigured").Inc()
			continue
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			idx.selectLandmarks(chg, sn, cfg.Count)
			metrics.LandmarkSubnetworks.WithLabelValues("built").Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info("landmarks built",
		"subnetworks", len(idx.subnetworks),
		"core", chg.CoreSize(),
		"elapsed", time.Since(start))
	return idx, nil
}

// partition groups the core nodes into weakly connected subnetworks,
// numbered by their smallest node id.
func partition(chg *graph.CHGraph) *Index {
	n := chg.NumNodes
	uf := graph.NewUnionFind(n)
	for u := uint32(0); u < n; u++ {
		for _, e := range chg.CoreOut(u) {
			uf.Union(u, chg.EdgeTo[e])
		}
	}

	idx := &Index{
		subnet: make([]int32, n),
		local:  make([]uint32, n),
	}
	byRoot := make(map[uint32]int32)
	for v := uint32(0); v < n; v++ {
		if !chg.IsCore[v] {
			idx.subnet[v] = -1
			continue
		}
		root := uf.Find(v)
		id, ok := byRoot[root]
		if !ok {
			id = int32(len(idx.subnetworks))
			byRoot[root] = id
			idx.subnetworks = append(idx.subnetworks, Subnetwork{ID: int(id)})
		}
		sn := &idx.subnetworks[id]
		idx.subnet[v] = id
		idx.local[v] = uint32(len(sn.Nodes))
		sn.Nodes = append(sn.Nodes, v)
	}
	return idx
}

// selectLandmarks picks count landmarks greedily: the first is the node
// farthest from the smallest node id, each next one the unselected node
// farthest from the newest landmark.
func (ix *Index) selectLandmarks(chg *graph.CHGraph, sn *Subnetwork, count int) {
	selected := make(map[uint32]bool, count)
	seed := ix.sweep(chg, sn, sn.Nodes[0], true)

	next := ix.farthest(sn, seed, selected)
	for len(sn.Landmarks) < count {
		sn.Landmarks = append(sn.Landmarks, next)
		selected[next] = true

		from := ix.sweep(chg, sn, next, true)
		sn.from = append(sn.from, from)
		sn.to = append(sn.to, ix.sweep(chg, sn, next, false))

		next = ix.farthest(sn, from, selected)
	}
}

// farthest returns the unselected node with the largest finite distance,
// preferring the smallest id on ties. When no unselected node is reachable
// the smallest unselected id is used.
func (ix *Index) farthest(sn *Subnetwork, dist []uint32, selected map[uint32]bool) uint32 {
	best, bestDist := uint32(0), int64(-1)
	for i, v := range sn.Nodes {
		if selected[v] {
			continue
		}
		d := int64(dist[i])
		if dist[i] == infinity {
			d = 0
		}
		if d > bestDist {
			best, bestDist = v, d
		}
	}
	return best
}

type sweepItem struct {
	local uint32
	dist  uint32
}

func bySweepDist(a, b interface{}) int {
	x, y := a.(sweepItem), b.(sweepItem)
	switch {
	case x.dist < y.dist:
		return -1
	case x.dist > y.dist:
		return 1
	}
	return int(x.local) - int(y.local)
}

// sweep runs a full Dijkstra over the core edges of one subnetwork and
// returns distances indexed by position in sn.Nodes. forward follows edge
// direction from source, otherwise distances are towards source.
func (ix *Index) sweep(chg *graph.CHGraph, sn *Subnetwork, source uint32, forward bool) []uint32 {
	dist := make([]uint32, len(sn.Nodes))
	for i := range dist {
		dist[i] = infinity
	}

	pq := priorityqueue.NewWith(bySweepDist)
	s := ix.local[source]
	dist[s] = 0
	pq.Enqueue(sweepItem{local: s, dist: 0})

	for !pq.Empty() {
		top, _ := pq.Dequeue()
		cur := top.(sweepItem)
		if cur.dist > dist[cur.local] {
			continue
		}
		u := sn.Nodes[cur.local]

		edges := chg.CoreIn(u)
		if forward {
			edges = chg.CoreOut(u)
		}
		for _, e := range edges {
			v := chg.EdgeFrom[e]
			if forward {
				v = chg.EdgeTo[e]
			}
			lv := ix.local[v]
			if nd := graph.AddWeight(cur.dist, chg.EdgeWeight[e]); nd < dist[lv] {
				dist[lv] = nd
				pq.Enqueue(sweepItem{local: lv, dist: nd})
			}
		}
	}
	return dist
}

// Subnetwork returns the subnetwork id of v, or -1 when v is not a core
// node.
func (ix *Index) Subnetwork(v uint32) int {
	return int(ix.subnet[v])
}

// Subnetworks returns all core subnetworks ordered by smallest node id.
func (ix *Index) Subnetworks() []Subnetwork {
	return ix.subnetworks
}

// HasLandmarks reports whether the subnetwork of v carries landmarks.
func (ix *Index) HasLandmarks(v uint32) bool {
	if ix == nil {
		return false
	}
	id := ix.subnet[v]
	return id >= 0 && len(ix.subnetworks[id].Landmarks) > 0
}

// LowerBound returns a lower bound on the core distance from v to t using
// the triangle inequality over every landmark of their shared subnetwork.
// It is 0 when v and t lie in different subnetworks or no landmarks exist.
func (ix *Index) LowerBound(v, t uint32) uint32 {
	if ix == nil {
		return 0
	}
	id := ix.subnet[v]
	if id < 0 || id != ix.subnet[t] {
		return 0
	}
	sn := &ix.subnetworks[id]
	lv, lt := ix.local[v], ix.local[t]

	var best uint32
	for l := range sn.Landmarks {
		// d(L,t) <= d(L,v) + d(v,t)
		if fv, ft := sn.from[l][lv], sn.from[l][lt]; fv != infinity && ft != infinity && ft > fv {
			best = max(best, ft-fv)
		}
		// d(v,L) <= d(v,t) + d(t,L)
		if tv, tt := sn.to[l][lv], sn.to[l][lt]; tv != infinity && tt != infinity && tv > tt {
			best = max(best, tv-tt)
		}
	}
	return best
}

// FromDistance returns the distance from landmark l of v's subnetwork to v.
func (ix *Index) FromDistance(l int, v uint32) uint32 {
	sn := &ix.subnetworks[ix.subnet[v]]
	return sn.from[l][ix.local[v]]
}

// ToDistance returns the distance from v to landmark l of v's subnetwork.
func (ix *Index) ToDistance(l int, v uint32) uint32 {
	sn := &ix.subnetworks[ix.subnet[v]]
	return sn.to[l][ix.local[v]]
}
