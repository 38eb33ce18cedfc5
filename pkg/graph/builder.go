package graph

import (
	"sort"

	"github.com/paulmach/osm"

	osmparser "corerouter/pkg/osm"
)

// InputEdge is a directed edge in compact node numbering.
type InputEdge struct {
	From   uint32
	To     uint32
	Weight uint32
	OrigID int64
}

// Build creates a CSR Graph from parsed OSM edges.
func Build(result *osmparser.ParseResult) *Graph {
	edges := result.Edges
	if len(edges) == 0 {
		return &Graph{}
	}

	// Collect all unique node IDs and build a compact mapping.
	nodeSet := make(map[osm.NodeID]uint32)
	var nodeIDs []osm.NodeID

	addNode := func(id osm.NodeID) uint32 {
		if idx, ok := nodeSet[id]; ok {
			return idx
		}
		idx := uint32(len(nodeIDs))
		nodeSet[id] = idx
		nodeIDs = append(nodeIDs, id)
		return idx
	}

	compact := make([]InputEdge, len(edges))
	for i, e := range edges {
		compact[i] = InputEdge{
			From:   addNode(e.FromNodeID),
			To:     addNode(e.ToNodeID),
			Weight: e.Weight,
			OrigID: int64(e.WayID),
		}
	}

	numNodes := uint32(len(nodeIDs))
	nodeLat := make([]float64, numNodes)
	nodeLon := make([]float64, numNodes)
	for id, idx := range nodeSet {
		nodeLat[idx] = result.NodeLat[id]
		nodeLon[idx] = result.NodeLon[id]
	}

	return FromEdges(numNodes, compact, nodeLat, nodeLon)
}

// FromEdges creates a CSR Graph with numNodes nodes from a list of directed
// edges. Coordinates are optional; nil slices are replaced by zeroes.
// Edges are ordered by (from, to) with ties kept in input order, so the same
// input always yields the same edge ids.
func FromEdges(numNodes uint32, edges []InputEdge, nodeLat, nodeLon []float64) *Graph {
	sorted := make([]InputEdge, len(edges))
	copy(sorted, edges)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].From != sorted[j].From {
			return sorted[i].From < sorted[j].From
		}
		return sorted[i].To < sorted[j].To
	})

	numEdges := uint32(len(sorted))
	firstOut := make([]uint32, numNodes+1)
	tail := make([]uint32, numEdges)
	head := make([]uint32, numEdges)
	weight := make([]uint32, numEdges)
	origID := make([]int64, numEdges)

	for i, e := range sorted {
		tail[i] = e.From
		head[i] = e.To
		weight[i] = e.Weight
		origID[i] = e.OrigID
		firstOut[e.From+1]++
	}
	for i := uint32(1); i <= numNodes; i++ {
		firstOut[i] += firstOut[i-1]
	}

	firstIn, inEdge := buildCSR(numNodes, numEdges, func(e uint32) (uint32, bool) {
		return head[e], true
	})

	if nodeLat == nil {
		nodeLat = make([]float64, numNodes)
	}
	if nodeLon == nil {
		nodeLon = make([]float64, numNodes)
	}

	return &Graph{
		NumNodes: numNodes,
		NumEdges: numEdges,
		FirstOut: firstOut,
		Tail:     tail,
		Head:     head,
		Weight:   weight,
		OrigID:   origID,
		FirstIn:  firstIn,
		InEdge:   inEdge,
		NodeLat:  nodeLat,
		NodeLon:  nodeLon,
	}
}

// buildCSR groups edge ids 0..numEdges-1 by the node returned from key.
// Edges for which key reports false are left out. Within a node, edge ids
// keep ascending order.
func buildCSR(numNodes, numEdges uint32, key func(e uint32) (uint32, bool)) (first, list []uint32) {
	first = make([]uint32, numNodes+1)
	var count uint32
	for e := uint32(0); e < numEdges; e++ {
		if u, ok := key(e); ok {
			first[u+1]++
			count++
		}
	}
	for i := uint32(1); i <= numNodes; i++ {
		first[i] += first[i-1]
	}

	list = make([]uint32, count)
	pos := make([]uint32, numNodes)
	copy(pos, first[:numNodes])
	for e := uint32(0); e < numEdges; e++ {
		if u, ok := key(e); ok {
			list[pos[u]] = e
			pos[u]++
		}
	}
	return first, list
}
