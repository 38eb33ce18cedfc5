package osm

import (
	"log/slog"
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hw(value string, extra ...osm.Tag) osm.Tags {
	return append(osm.Tags{{Key: "highway", Value: value}}, extra...)
}

func TestDrivable(t *testing.T) {
	tests := []struct {
		name string
		tags osm.Tags
		want bool
	}{
		{"residential", hw("residential"), true},
		{"motorway", hw("motorway"), true},
		{"living street", hw("living_street"), true},
		{"footway", hw("footway"), false},
		{"cycleway", hw("cycleway"), false},
		{"private access", hw("residential", osm.Tag{Key: "access", Value: "private"}), false},
		{"access no", hw("residential", osm.Tag{Key: "access", Value: "no"}), false},
		{"motor vehicles banned", hw("residential", osm.Tag{Key: "motor_vehicle", Value: "no"}), false},
		{"cars banned", hw("residential", osm.Tag{Key: "motorcar", Value: "private"}), false},
		{"area highway", hw("service", osm.Tag{Key: "area", Value: "yes"}), false},
		{"untagged", osm.Tags{{Key: "name", Value: "Some Street"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, drivable(tt.tags))
		})
	}
}

func TestTravel(t *testing.T) {
	oneway := func(v string) osm.Tag { return osm.Tag{Key: "oneway", Value: v} }
	tests := []struct {
		name string
		tags osm.Tags
		want direction
	}{
		{"bidirectional by default", hw("residential"), both},
		{"motorway implies oneway", hw("motorway"), forward},
		{"motorway link implies oneway", hw("motorway_link"), forward},
		{"roundabout implies oneway", hw("residential", osm.Tag{Key: "junction", Value: "roundabout"}), forward},
		{"oneway yes", hw("primary", oneway("yes")), forward},
		{"oneway true", hw("primary", oneway("true")), forward},
		{"oneway 1", hw("primary", oneway("1")), forward},
		{"oneway -1", hw("primary", oneway("-1")), backward},
		{"oneway reverse", hw("primary", oneway("reverse")), backward},
		{"oneway no overrides motorway", hw("motorway", oneway("no")), both},
		{"reversible is dropped", hw("primary", oneway("reversible")), none},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, travel(tt.tags))
		})
	}
}

func TestParseMeasure(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"", 0},
		{"4.5", 4.5},
		{"4.5 m", 4.5},
		{"3.8m", 3.8},
		{"7.5 t", 7.5},
		{"12t", 12},
		{"default", 0},
		{"12'6\"", 0},
		{"-1", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseMeasure(tt.in), "input %q", tt.in)
	}
}

func TestWayLimits(t *testing.T) {
	l, ok := wayLimits(hw("primary", osm.Tag{Key: "maxheight", Value: "3.2"}))
	assert.True(t, ok)
	assert.Equal(t, WayLimits{MaxHeight: 3.2}, l)

	_, ok = wayLimits(hw("primary"))
	assert.False(t, ok)
}

func TestBBox(t *testing.T) {
	var zero BBox
	assert.True(t, zero.IsZero())

	b := BBox{MinLat: 1, MaxLat: 2, MinLng: 103, MaxLng: 104}
	assert.False(t, b.IsZero())
	assert.True(t, b.Contains(1.5, 103.5))
	assert.False(t, b.Contains(2.5, 103.5))
}

func TestReaderEdges(t *testing.T) {
	r := &reader{
		log: slog.Default(),
		ways: []way{
			{id: 1, nodes: []osm.NodeID{10, 11, 12}, dir: both},
			{id: 2, nodes: []osm.NodeID{12, 13}, dir: backward},
			{id: 3, nodes: []osm.NodeID{12, 99}, dir: both}, // 99 has no coordinates
			{id: 4, nodes: []osm.NodeID{10, 10}, dir: forward},
		},
		lat: map[osm.NodeID]float64{10: 1.300, 11: 1.301, 12: 1.302, 13: 1.303},
		lon: map[osm.NodeID]float64{10: 103.8, 11: 103.8, 12: 103.8, 13: 103.8},
	}

	edges := r.edges()
	require.Len(t, edges, 6)

	assert.Equal(t, osm.NodeID(10), edges[0].FromNodeID)
	assert.Equal(t, osm.NodeID(11), edges[0].ToNodeID)
	assert.Equal(t, osm.NodeID(11), edges[1].FromNodeID)
	assert.Equal(t, osm.NodeID(10), edges[1].ToNodeID)
	assert.InDelta(t, 111_195, float64(edges[0].Weight), 200, "about 111 m in millimeters")

	// Way 2 runs against its node order only.
	assert.Equal(t, RawEdge{FromNodeID: 13, ToNodeID: 12, WayID: 2, Weight: edges[4].Weight}, edges[4])

	// A degenerate segment still weighs 1 mm.
	assert.Equal(t, uint32(1), edges[5].Weight)

	r.opt.BBox = BBox{MinLat: 1.2995, MaxLat: 1.3015, MinLng: 103, MaxLng: 104}
	edges = r.edges()
	assert.Len(t, edges, 3, "only the 10-11 pair and the self segment stay inside")
}
