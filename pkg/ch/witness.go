package ch

import "corerouter/pkg/graph"

// witnessState is the scratch space of one contractor's witness searches.
// dist entries are reset through the touched list.
type witnessState struct {
	dist    []uint32
	touched []uint32
	heap    minHeap[witnessEntry]
}

func newWitnessState(numNodes uint32) *witnessState {
	dist := make([]uint32, numNodes)
	for i := range dist {
		dist[i] = graph.MaxWeight
	}
	return &witnessState{
		dist: dist,
		heap: minHeap[witnessEntry]{items: make([]witnessEntry, 0, 256)},
	}
}

func (ws *witnessState) reset() {
	for _, n := range ws.touched {
		ws.dist[n] = graph.MaxWeight
	}
	ws.touched = ws.touched[:0]
	ws.heap.Reset()
}

// witnessSearch runs one bounded Dijkstra from source that avoids the node
// being contracted and every node contracted before it. Afterwards ws.dist
// holds upper bounds of witness distances for all targets of the batch.
//
// Base edges joining two core nodes are never relaxed: a query filter may
// reject them, so a witness through them could vanish at query time.
func (c *contractor) witnessSearch(source, excluded, maxWeight uint32) {
	ws := c.ws
	ws.reset()

	ws.dist[source] = 0
	ws.touched = append(ws.touched, source)
	ws.heap.Push(witnessEntry{node: source})

	maxSettled := c.cfg.WitnessMaxSettled
	maxHops := c.cfg.WitnessMaxHops
	settled := 0

	for ws.heap.Len() > 0 {
		cur := ws.heap.Pop()
		if cur.dist > ws.dist[cur.node] {
			continue
		}

		settled++
		if maxSettled > 0 && settled >= maxSettled {
			break
		}
		if cur.dist > maxWeight {
			continue
		}
		if maxHops > 0 && cur.hops >= maxHops {
			continue
		}

		fromCore := c.core[cur.node]
		for _, e := range c.out[cur.node] {
			if e.to == excluded || c.contracted[e.to] {
				continue
			}
			if fromCore && c.core[e.to] && e.id < c.numBase {
				continue
			}

			newDist := graph.AddWeight(cur.dist, e.weight)
			if newDist > maxWeight {
				continue
			}
			if newDist < ws.dist[e.to] {
				if ws.dist[e.to] == graph.MaxWeight {
					ws.touched = append(ws.touched, e.to)
				}
				ws.dist[e.to] = newDist
				ws.heap.Push(witnessEntry{node: e.to, dist: newDist, hops: cur.hops + 1})
			}
		}
	}
}
