package graph

import (
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	osmparser "corerouter/pkg/osm"
)

func TestBuildSimpleGraph(t *testing.T) {
	// Triangle 100 -> 200 -> 300 -> 100 on three ways.
	result := &osmparser.ParseResult{
		Edges: []osmparser.RawEdge{
			{FromNodeID: 100, ToNodeID: 200, WayID: 7, Weight: 1000},
			{FromNodeID: 200, ToNodeID: 300, WayID: 8, Weight: 2000},
			{FromNodeID: 300, ToNodeID: 100, WayID: 9, Weight: 3000},
		},
		NodeLat: map[osm.NodeID]float64{100: 1.0, 200: 1.1, 300: 1.0},
		NodeLon: map[osm.NodeID]float64{100: 103.0, 200: 103.0, 300: 103.1},
	}

	g := Build(result)
	require.Equal(t, uint32(3), g.NumNodes)
	require.Equal(t, uint32(3), g.NumEdges)

	for u := uint32(0); u < g.NumNodes; u++ {
		start, end := g.EdgesFrom(u)
		assert.Equal(t, uint32(1), end-start, "out degree of %d", u)
		assert.Len(t, g.EdgesTo(u), 1, "in degree of %d", u)
		assert.Equal(t, 2, g.Degree(u))
	}

	// Node 100 is compact node 0 and its way id survives.
	start, _ := g.EdgesFrom(0)
	assert.Equal(t, uint32(1000), g.Weight[start])
	assert.Equal(t, int64(7), g.OrigID[start])
	assert.Equal(t, 1.0, g.NodeLat[0])
	assert.Equal(t, 103.0, g.NodeLon[0])
}

func TestBuildEmptyGraph(t *testing.T) {
	g := Build(&osmparser.ParseResult{
		NodeLat: map[osm.NodeID]float64{},
		NodeLon: map[osm.NodeID]float64{},
	})
	assert.Zero(t, g.NumNodes)
	assert.Zero(t, g.NumEdges)
}

func TestFromEdgesCSRInvariants(t *testing.T) {
	edges := []InputEdge{
		{From: 2, To: 0, Weight: 5, OrigID: 1},
		{From: 0, To: 3, Weight: 3, OrigID: 2},
		{From: 0, To: 1, Weight: 1, OrigID: 3},
		{From: 0, To: 1, Weight: 4, OrigID: 4}, // parallel edge, kept after the first
		{From: 3, To: 2, Weight: 2, OrigID: 5},
	}
	g := FromEdges(4, edges, nil, nil)

	require.Equal(t, uint32(4), g.NumNodes)
	require.Equal(t, uint32(5), g.NumEdges)
	require.Len(t, g.NodeLat, 4)

	for i := uint32(1); i <= g.NumNodes; i++ {
		assert.LessOrEqual(t, g.FirstOut[i-1], g.FirstOut[i])
		assert.LessOrEqual(t, g.FirstIn[i-1], g.FirstIn[i])
	}
	assert.Equal(t, g.NumEdges, g.FirstOut[g.NumNodes])
	assert.Equal(t, g.NumEdges, g.FirstIn[g.NumNodes])

	for u := uint32(0); u < g.NumNodes; u++ {
		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			assert.Equal(t, u, g.Tail[e])
		}
		for _, e := range g.EdgesTo(u) {
			assert.Equal(t, u, g.Head[e])
		}
	}

	// Edges from node 0 are ordered by head, parallel edges in input order.
	start, end := g.EdgesFrom(0)
	require.Equal(t, uint32(3), end-start)
	assert.Equal(t, []uint32{1, 1, 3}, g.Head[start:end])
	assert.Equal(t, []int64{3, 4, 2}, g.OrigID[start:end])
}

func TestFromEdgesDeterministic(t *testing.T) {
	edges := []InputEdge{{From: 1, To: 0, Weight: 2}, {From: 0, To: 1, Weight: 2}}
	a := FromEdges(2, edges, nil, nil)
	b := FromEdges(2, edges, nil, nil)
	assert.Equal(t, a, b)
}
