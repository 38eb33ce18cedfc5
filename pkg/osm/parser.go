// Package osm extracts a directed car road network from an OSM PBF extract.
package osm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"corerouter/pkg/geo"
)

// RawEdge is a directed road segment between two consecutive way nodes.
type RawEdge struct {
	FromNodeID osm.NodeID
	ToNodeID   osm.NodeID
	WayID      osm.WayID
	Weight     uint32 // distance in millimeters
}

// WayLimits holds the physical restrictions tagged on a way. Zero means
// unrestricted.
type WayLimits struct {
	MaxHeight float64 // meters
	MaxWeight float64 // tonnes
}

// ParseResult holds the output of parsing an OSM PBF file.
type ParseResult struct {
	Edges   []RawEdge
	NodeLat map[osm.NodeID]float64
	NodeLon map[osm.NodeID]float64

	// Limits lists the ways carrying maxheight or maxweight tags.
	Limits map[osm.WayID]WayLimits
}

// BBox is a geographic bounding box. Edges with an endpoint outside a
// non-zero box are dropped.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// IsZero reports whether the box is unset.
func (b BBox) IsZero() bool { return b == BBox{} }

// Contains reports whether the point lies inside the box, borders included.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	BBox   BBox
	Logger *slog.Logger
}

// roadClasses lists highway values open to cars. Motorways and their links
// are oneway unless tagged otherwise.
var roadClasses = map[string]struct{ impliedOneway bool }{
	"motorway":       {true},
	"motorway_link":  {true},
	"trunk":          {},
	"trunk_link":     {},
	"primary":        {},
	"primary_link":   {},
	"secondary":      {},
	"secondary_link": {},
	"tertiary":       {},
	"tertiary_link":  {},
	"unclassified":   {},
	"residential":    {},
	"living_street":  {},
	"service":        {},
}

// closedFor lists access tags that close a way to cars when set to one of
// the denied values.
var (
	closedFor = []string{"access", "motor_vehicle", "motorcar"}
	denied    = map[string]bool{"no": true, "private": true}
)

// direction is the set of travel directions along a way.
type direction uint8

const (
	forward direction = 1 << iota
	backward

	none = direction(0)
	both = forward | backward
)

// drivable reports whether cars may use a way with the given tags.
func drivable(tags osm.Tags) bool {
	if _, ok := roadClasses[tags.Find("highway")]; !ok {
		return false
	}
	if tags.Find("area") == "yes" {
		return false
	}
	for _, key := range closedFor {
		if denied[tags.Find(key)] {
			return false
		}
	}
	return true
}

// travel returns the directions cars may travel along a way. An explicit
// oneway tag wins over the oneway implied by the road class or a
// roundabout. Reversible ways are time dependent and dropped.
func travel(tags osm.Tags) direction {
	switch tags.Find("oneway") {
	case "yes", "true", "1":
		return forward
	case "-1", "reverse":
		return backward
	case "no":
		return both
	case "reversible":
		return none
	}
	if roadClasses[tags.Find("highway")].impliedOneway || tags.Find("junction") == "roundabout" {
		return forward
	}
	return both
}

// wayLimits reads the maxheight and maxweight tags of a way.
func wayLimits(tags osm.Tags) (WayLimits, bool) {
	l := WayLimits{
		MaxHeight: parseMeasure(tags.Find("maxheight")),
		MaxWeight: parseMeasure(tags.Find("maxweight")),
	}
	return l, l.MaxHeight > 0 || l.MaxWeight > 0
}

// parseMeasure parses the leading number of a tag value such as "4.5",
// "4.5 m" or "7.5 t". Values it cannot read, like "default" or imperial
// heights, yield 0.
func parseMeasure(v string) float64 {
	v, _, _ = strings.Cut(strings.TrimSpace(v), " ")
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimRight(v, "mt"), 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

type way struct {
	id    osm.WayID
	nodes []osm.NodeID
	dir   direction
}

// reader accumulates the state of the two passes over a PBF file.
type reader struct {
	opt ParseOptions
	log *slog.Logger

	ways   []way
	needed map[osm.NodeID]struct{}
	lat    map[osm.NodeID]float64
	lon    map[osm.NodeID]float64
	limits map[osm.WayID]WayLimits
}

// Parse reads an OSM PBF file and returns directed edges for car routing.
// Ways are read first to learn which node coordinates are needed, then rs is
// rewound and the nodes are read.
func Parse(ctx context.Context, rs io.ReadSeeker, opts ...ParseOptions) (*ParseResult, error) {
	r := &reader{
		needed: make(map[osm.NodeID]struct{}),
		limits: make(map[osm.WayID]WayLimits),
	}
	if len(opts) > 0 {
		r.opt = opts[0]
	}
	r.log = r.opt.Logger
	if r.log == nil {
		r.log = slog.Default()
	}

	if err := scan(ctx, rs, true, r.addWay); err != nil {
		return nil, fmt.Errorf("scan ways: %w", err)
	}
	r.log.Info("ways scanned", "ways", len(r.ways), "referenced_nodes", len(r.needed), "restricted_ways", len(r.limits))

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind for nodes: %w", err)
	}
	r.lat = make(map[osm.NodeID]float64, len(r.needed))
	r.lon = make(map[osm.NodeID]float64, len(r.needed))
	if err := scan(ctx, rs, false, r.addNode); err != nil {
		return nil, fmt.Errorf("scan nodes: %w", err)
	}
	r.log.Info("nodes scanned", "coordinates", len(r.lat))

	return &ParseResult{
		Edges:   r.edges(),
		NodeLat: r.lat,
		NodeLon: r.lon,
		Limits:  r.limits,
	}, nil
}

// scan streams either the ways or the nodes of rs to visit.
func scan(ctx context.Context, rs io.Reader, ways bool, visit func(osm.Object)) error {
	s := osmpbf.New(ctx, rs, 1)
	defer s.Close()
	s.SkipRelations = true
	s.SkipNodes = ways
	s.SkipWays = !ways
	for s.Scan() {
		visit(s.Object())
	}
	return s.Err()
}

func (r *reader) addWay(obj osm.Object) {
	w, ok := obj.(*osm.Way)
	if !ok || len(w.Nodes) < 2 || !drivable(w.Tags) {
		return
	}
	dir := travel(w.Tags)
	if dir == none {
		return
	}
	nodes := w.Nodes.NodeIDs()
	for _, id := range nodes {
		r.needed[id] = struct{}{}
	}
	if l, ok := wayLimits(w.Tags); ok {
		r.limits[w.ID] = l
	}
	r.ways = append(r.ways, way{id: w.ID, nodes: nodes, dir: dir})
}

func (r *reader) addNode(obj osm.Object) {
	n, ok := obj.(*osm.Node)
	if !ok {
		return
	}
	if _, ok := r.needed[n.ID]; ok {
		r.lat[n.ID] = n.Lat
		r.lon[n.ID] = n.Lon
	}
}

// edges splits every way into directed segments weighted by their length.
// Segments with unknown coordinates or outside the bounding box are dropped.
func (r *reader) edges() []RawEdge {
	var (
		edges            []RawEdge
		missing, outside int
	)
	box := r.opt.BBox
	for _, w := range r.ways {
		for i := 1; i < len(w.nodes); i++ {
			a, b := w.nodes[i-1], w.nodes[i]
			aLat, okA := r.lat[a]
			bLat, okB := r.lat[b]
			if !okA || !okB {
				missing++
				continue
			}
			aLon, bLon := r.lon[a], r.lon[b]
			if !box.IsZero() && (!box.Contains(aLat, aLon) || !box.Contains(bLat, bLon)) {
				outside++
				continue
			}

			// Zero-weight edges would break the strict ordering of shortcuts.
			mm := max(uint32(math.Round(geo.Haversine(aLat, aLon, bLat, bLon)*1000)), 1)
			if w.dir&forward != 0 {
				edges = append(edges, RawEdge{FromNodeID: a, ToNodeID: b, WayID: w.id, Weight: mm})
			}
			if w.dir&backward != 0 {
				edges = append(edges, RawEdge{FromNodeID: b, ToNodeID: a, WayID: w.id, Weight: mm})
			}
		}
	}

	if missing > 0 {
		r.log.Warn("skipped segments with missing node coordinates", "count", missing)
	}
	if outside > 0 {
		r.log.Info("skipped segments outside bounding box", "count", outside)
	}
	r.log.Info("built directed edges", "count", len(edges))
	return edges
}
