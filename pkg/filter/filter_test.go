package filter

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corerouter/pkg/graph"
)

// square returns a closed ring around (lat, lon) with the given half size.
func square(lat, lon, half float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{lon - half, lat - half},
		{lon + half, lat - half},
		{lon + half, lat + half},
		{lon - half, lat + half},
		{lon - half, lat - half},
	}}
}

func edgeAt(fromLat, fromLon, toLat, toLon float64) Edge {
	return Edge{FromLat: fromLat, FromLon: fromLon, ToLat: toLat, ToLon: toLon}
}

func TestAvoidAreas(t *testing.T) {
	a := NewAvoidAreas(square(1, 1, 0.1), square(5, 5, 0.1))
	require.Equal(t, 2, a.Len())

	tests := []struct {
		name string
		edge Edge
		want Verdict
	}{
		{"endpoint inside", edgeAt(1, 1, 2, 2), Reject},
		{"crosses polygon", edgeAt(1, 0, 1, 2), Reject},
		{"second polygon", edgeAt(4, 5, 6, 5), Reject},
		{"bbox overlap only", edgeAt(0.8, 1.15, 1.15, 1.5), Accept},
		{"far away", edgeAt(10, 10, 11, 11), Accept},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Evaluate(tt.edge))
			assert.Equal(t, tt.want == Reject, a.MayReject(tt.edge))
		})
	}
}

func TestBlockedWays(t *testing.T) {
	b := NewBlockedWays(7, 9)
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, Reject, b.Evaluate(Edge{OrigID: 7}))
	assert.Equal(t, Accept, b.Evaluate(Edge{OrigID: 8}))
	assert.True(t, b.MayReject(Edge{OrigID: 9}))
	assert.False(t, b.MayReject(Edge{OrigID: 1}))
}

func TestDimensionLimit(t *testing.T) {
	base := NewDimensionLimit(map[int64]Limits{
		1: {MaxHeight: 3.5},
		2: {MaxWeight: 7.5},
	})

	tall := base.ForVehicle(4, 3)
	heavy := base.ForVehicle(2, 12)
	small := base.ForVehicle(2, 3)

	assert.Equal(t, Reject, tall.Evaluate(Edge{OrigID: 1}))
	assert.Equal(t, Accept, tall.Evaluate(Edge{OrigID: 2}))
	assert.Equal(t, Reject, heavy.Evaluate(Edge{OrigID: 2}))
	assert.Equal(t, Accept, small.Evaluate(Edge{OrigID: 1}))
	assert.Equal(t, Accept, small.Evaluate(Edge{OrigID: 3}))

	// Restricted ways may reject regardless of vehicle.
	assert.True(t, small.MayReject(Edge{OrigID: 1}))
	assert.False(t, tall.MayReject(Edge{OrigID: 3}))
}

func TestChainAndFunc(t *testing.T) {
	odd := Func(func(e Edge) Verdict {
		if e.ID%2 == 1 {
			return Reject
		}
		return Accept
	})
	c := Chain{NewBlockedWays(4), odd}

	assert.Equal(t, Reject, c.Evaluate(Edge{ID: 1}))
	assert.Equal(t, Reject, c.Evaluate(Edge{ID: 2, OrigID: 4}))
	assert.Equal(t, Accept, c.Evaluate(Edge{ID: 2}))
	assert.True(t, c.MayReject(Edge{ID: 3}))
	assert.False(t, c.MayReject(Edge{ID: 0}))
	assert.Equal(t, Accept, Chain(nil).Evaluate(Edge{ID: 1}))
	assert.Equal(t, "reject", Reject.String())
}

func TestCoreNodes(t *testing.T) {
	g := graph.FromEdges(4, []graph.InputEdge{
		{From: 0, To: 1, Weight: 1, OrigID: 10},
		{From: 1, To: 2, Weight: 1, OrigID: 11},
		{From: 2, To: 3, Weight: 1, OrigID: 12},
	}, nil, nil)

	assert.Equal(t, []bool{false, false, false, false}, CoreNodes(g))
	assert.Equal(t, []bool{false, true, true, false}, CoreNodes(g, NewBlockedWays(11)))
	assert.Equal(t, []bool{true, true, true, true}, CoreNodes(g, NewBlockedWays(10), NewBlockedWays(12)))
}

func TestBaseEdgeMatchesGraphEdge(t *testing.T) {
	g := graph.FromEdges(2, []graph.InputEdge{{From: 0, To: 1, Weight: 5, OrigID: 3}},
		[]float64{1, 2}, []float64{3, 4})
	chg := graph.NewCHGraph(g, []uint32{0, 1}, nil, nil)

	assert.Equal(t, GraphEdge(g, 0), BaseEdge(chg, 0))
	assert.Equal(t, Edge{ID: 0, From: 0, To: 1, FromLat: 1, FromLon: 3, ToLat: 2, ToLon: 4, Weight: 5, OrigID: 3},
		GraphEdge(g, 0))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.AddArea("center", square(1, 1, 0.1))
	r.AddWays("border", []int64{5})
	r.SetLimits(map[int64]Limits{6: {MaxHeight: 3}})

	areas, ways := r.Names()
	assert.Equal(t, []string{"center"}, areas)
	assert.Equal(t, []string{"border"}, ways)
	assert.Len(t, r.All(), 3)

	f, err := r.Select(Selection{})
	require.NoError(t, err)
	assert.Nil(t, f)

	f, err = r.Select(Selection{Ways: []string{"border"}})
	require.NoError(t, err)
	assert.Equal(t, Reject, f.Evaluate(Edge{OrigID: 5}))
	assert.Equal(t, Accept, f.Evaluate(Edge{OrigID: 6}))

	f, err = r.Select(Selection{Areas: []string{"center"}, Height: 4})
	require.NoError(t, err)
	assert.Equal(t, Reject, f.Evaluate(Edge{OrigID: 6, FromLat: 5, FromLon: 5, ToLat: 6, ToLon: 6}))
	assert.Equal(t, Reject, f.Evaluate(edgeAt(1, 1, 2, 2)))
	assert.Equal(t, Accept, f.Evaluate(Edge{OrigID: 5, FromLat: 5, FromLon: 5, ToLat: 6, ToLon: 6}))

	_, err = r.Select(Selection{Areas: []string{"nowhere"}})
	assert.ErrorIs(t, err, ErrUnknownFilter)
	_, err = r.Select(Selection{Ways: []string{"nowhere"}})
	assert.ErrorIs(t, err, ErrUnknownFilter)
}
