package routing

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corerouter/pkg/filter"
	"corerouter/pkg/graph"
	"corerouter/pkg/landmark"
)

// assertValidPath checks that p walks g from s to t with the stated weight
// and uses no edge skip rejects.
func assertValidPath(t *testing.T, g *graph.Graph, p *Path, s, dst uint32, skip func(e uint32) bool) {
	t.Helper()
	require.Len(t, p.Nodes, len(p.Edges)+1)
	require.Len(t, p.OrigIDs, len(p.Edges))
	assert.Equal(t, s, p.Nodes[0])

	var sum uint32
	for i, e := range p.Edges {
		require.Equal(t, p.Nodes[i], g.Tail[e])
		require.Equal(t, p.Nodes[i+1], g.Head[e])
		assert.Equal(t, g.OrigID[e], p.OrigIDs[i])
		if skip != nil {
			assert.False(t, skip(e), "edge %d is filtered", e)
		}
		sum += g.Weight[e]
	}
	assert.Equal(t, dst, p.Nodes[len(p.Nodes)-1])
	assert.Equal(t, p.Weight, sum)
}

func TestFilteredSearchUnfiltered(t *testing.T) {
	g := workedGraph()
	for _, core := range [][]bool{nil, {false, false, false, true, true, false, false, true, false}} {
		chg := contract(t, g, core)
		for s := uint32(0); s < 9; s++ {
			want := plainDijkstra(g, s, nil)
			for d := uint32(0); d < 9; d++ {
				p, err := FilteredSearch(chg, nil, s, d, nil, 0)
				require.NoError(t, err)
				assert.Equal(t, want[d], p.Weight, "%d -> %d", s, d)
				assertValidPath(t, g, p, s, d, nil)
			}
		}
	}
}

func TestFilteredSearchBlockedWays(t *testing.T) {
	g := workedGraph()
	// Block both directions of 2-3 (orig ids 12 and 13). Its endpoints form
	// the core, so the edge survives contraction.
	blockable := filter.NewBlockedWays(12, 13)
	core := filter.CoreNodes(g, blockable)
	require.True(t, core[2] && core[3])
	chg := contract(t, g, core)

	p, err := FilteredSearch(chg, nil, 1, 4, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), p.Weight)

	// Without 2-3 the cheapest way runs around through 8 and 7.
	p, err = FilteredSearch(chg, nil, 1, 4, blockable, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), p.Weight)
	assert.NotContains(t, p.OrigIDs, int64(12))
	assert.NotContains(t, p.OrigIDs, int64(13))
	assertValidPath(t, g, p, 1, 4, nil)
}

func TestFilteredSearchRandom(t *testing.T) {
	for seed := int64(1); seed <= 15; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			n := uint32(30 + rng.Intn(40))
			g := randomGraph(rng, n)

			// Any of these ways may be blocked; each query blocks a subset.
			var blockable, blocked []int64
			for e := uint32(0); e < g.NumEdges; e++ {
				if rng.Intn(6) == 0 {
					blockable = append(blockable, g.OrigID[e])
					if rng.Intn(2) == 0 {
						blocked = append(blocked, g.OrigID[e])
					}
				}
			}
			core := filter.CoreNodes(g, filter.NewBlockedWays(blockable...))
			chg := contract(t, g, core)

			lm, err := landmark.Build(context.Background(), chg, landmark.DefaultConfig())
			require.NoError(t, err)

			f := filter.NewBlockedWays(blocked...)
			skip := func(e uint32) bool { return f.Evaluate(filter.GraphEdge(g, e)) == filter.Reject }

			for q := 0; q < 10; q++ {
				s, d := uint32(rng.Intn(int(n))), uint32(rng.Intn(int(n)))
				want := plainDijkstra(g, s, skip)[d]

				for _, idx := range []*landmark.Index{nil, lm} {
					p, err := FilteredSearch(chg, idx, s, d, f, 0)
					if want == Infinity {
						assert.ErrorIs(t, err, ErrNotFound, "%d -> %d", s, d)
						continue
					}
					require.NoError(t, err, "%d -> %d", s, d)
					assert.Equal(t, want, p.Weight, "%d -> %d", s, d)
					assertValidPath(t, g, p, s, d, skip)
				}
			}
		})
	}
}

func TestFilteredSearchNotFound(t *testing.T) {
	g := graph.FromEdges(3, []graph.InputEdge{{From: 0, To: 1, Weight: 1}}, nil, nil)
	chg := contract(t, g, nil)

	_, err := FilteredSearch(chg, nil, 1, 0, nil, 0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = FilteredSearch(chg, nil, 0, 2, nil, 0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = FilteredSearch(chg, nil, 0, 3, nil, 0)
	assert.ErrorIs(t, err, ErrInvalidNode)
}

func TestFilteredSearchSameNode(t *testing.T) {
	chg := contract(t, workedGraph(), nil)
	p, err := FilteredSearch(chg, nil, 4, 4, nil, 0)
	require.NoError(t, err)
	assert.Zero(t, p.Weight)
	assert.Equal(t, []uint32{4}, p.Nodes)
	assert.Empty(t, p.Edges)
}

func TestFilteredSearchBudget(t *testing.T) {
	chg := contract(t, workedGraph(), []bool{false, false, false, true, true, false, false, true, false})

	_, err := FilteredSearch(chg, nil, 1, 5, nil, 1)
	assert.ErrorIs(t, err, ErrVisitedNodesExceeded)

	p, err := FilteredSearch(chg, nil, 1, 5, nil, 100)
	require.NoError(t, err)
	assert.Equal(t, uint32(6), p.Weight)
}

func TestFilteredSearchStateReuse(t *testing.T) {
	g := workedGraph()
	chg := contract(t, g, []bool{false, false, false, true, true, false, false, true, false})
	lm, err := landmark.Build(context.Background(), chg, landmark.DefaultConfig())
	require.NoError(t, err)
	s := newSearchState(chg.NumNodes)

	for i := 0; i < 3; i++ {
		for src := uint32(0); src < 9; src++ {
			want := plainDijkstra(g, src, nil)
			for dst := uint32(0); dst < 9; dst++ {
				p, err := filteredSearch(chg, lm, src, dst, nil, 0, s)
				require.NoError(t, err)
				assert.Equal(t, want[dst], p.Weight)
			}
		}
	}
}
