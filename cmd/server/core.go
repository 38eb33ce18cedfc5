package main

import (
	"fmt"

	"corerouter/pkg/filter"
	"corerouter/pkg/graph"
)

// checkCore fails when a filter may reject an edge that was contracted
// away. Such an edge could hide inside a shortcut and the filter would be
// silently ignored; the graph has to be preprocessed with the same
// configuration.
func checkCore(chg *graph.CHGraph, filters ...filter.EdgeFilter) error {
	if len(filters) == 0 {
		return nil
	}
	chain := filter.Chain(filters)
	for e := uint32(0); e < chg.NumBaseEdges; e++ {
		if chg.IsCore[chg.EdgeFrom[e]] && chg.IsCore[chg.EdgeTo[e]] {
			continue
		}
		if chain.MayReject(filter.BaseEdge(chg, e)) {
			return fmt.Errorf("edge %d (way %d) may be filtered but lies outside the core; rerun preprocess with this configuration",
				e, chg.OrigID[e])
		}
	}
	return nil
}
