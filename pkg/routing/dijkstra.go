package routing

import "corerouter/pkg/graph"

// MinHeap is a concrete-typed binary min-heap keyed by uint32, avoiding the
// interface boxing of container/heap. Equal keys pop in node order so that
// searches are deterministic.
type MinHeap struct {
	items []PQItem
}

// PQItem is a priority queue entry. Key is a distance, or a distance plus
// heuristic for A*.
type PQItem struct {
	Node uint32
	Key  uint32
}

func (a PQItem) less(b PQItem) bool {
	if a.Key != b.Key {
		return a.Key < b.Key
	}
	return a.Node < b.Node
}

func (h *MinHeap) Len() int { return len(h.items) }

func (h *MinHeap) Push(node, key uint32) {
	h.items = append(h.items, PQItem{Node: node, Key: key})
	h.siftUp(len(h.items) - 1)
}

func (h *MinHeap) Pop() PQItem {
	n := len(h.items) - 1
	item := h.items[0]
	h.items[0] = h.items[n]
	h.items = h.items[:n]
	if n > 0 {
		h.siftDown(0)
	}
	return item
}

// PeekKey returns the smallest key, or Infinity when empty.
func (h *MinHeap) PeekKey() uint32 {
	if len(h.items) == 0 {
		return Infinity
	}
	return h.items[0].Key
}

func (h *MinHeap) Reset() {
	h.items = h.items[:0]
}

func (h *MinHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.items[i].less(h.items[parent]) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *MinHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		if l := 2*i + 1; l < n && h.items[l].less(h.items[smallest]) {
			smallest = l
		}
		if r := 2*i + 2; r < n && h.items[r].less(h.items[smallest]) {
			smallest = r
		}
		if smallest == i {
			return
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

// coreSweep runs one slot's Dijkstra over the core, seeded with every core
// node that already holds a finite distance in that slot. It stops once all
// marked core nodes are settled.
func (s *manyState) coreSweep(w view, slot int, seeds []uint32, needed int) error {
	s.epoch++
	s.heap.Reset()
	for _, c := range seeds {
		if d := s.dist[s.cell(c, slot)]; d != Infinity {
			s.heap.Push(c, d)
		}
	}

	for s.heap.Len() > 0 && needed > 0 {
		item := s.heap.Pop()
		u := item.Node
		if s.done[u] == s.epoch || item.Key > s.dist[s.cell(u, slot)] {
			continue
		}
		s.done[u] = s.epoch
		if err := s.visit(); err != nil {
			return err
		}
		if s.mark[u] {
			needed--
		}

		for _, e := range w.coreOut(u) {
			if !s.allows(w, e) {
				continue
			}
			v := w.head(e)
			s.alloc(v)
			nd := graph.AddWeight(item.Key, w.chg.EdgeWeight[e])
			if c := s.cell(v, slot); nd < s.dist[c] {
				s.dist[c] = nd
				s.parent[c] = e
				s.heap.Push(v, nd)
			}
		}
	}
	return nil
}
