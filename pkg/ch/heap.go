package ch

// ordered is an element of minHeap.
type ordered[T any] interface {
	less(T) bool
}

// minHeap is a binary min-heap over a concrete element type, reused across
// searches without reallocating.
type minHeap[T ordered[T]] struct {
	items []T
}

func (h *minHeap[T]) Len() int { return len(h.items) }

func (h *minHeap[T]) Peek() T { return h.items[0] }

func (h *minHeap[T]) Reset() { h.items = h.items[:0] }

func (h *minHeap[T]) Push(x T) {
	h.items = append(h.items, x)
	i := len(h.items) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if !x.less(h.items[parent]) {
			break
		}
		h.items[i] = h.items[parent]
		i = parent
	}
	h.items[i] = x
}

func (h *minHeap[T]) Pop() T {
	top := h.items[0]
	last := len(h.items) - 1
	x := h.items[last]
	h.items = h.items[:last]
	if last == 0 {
		return top
	}

	i := 0
	for {
		child := 2*i + 1
		if child >= last {
			break
		}
		if right := child + 1; right < last && h.items[right].less(h.items[child]) {
			child = right
		}
		if !h.items[child].less(x) {
			break
		}
		h.items[i] = h.items[child]
		i = child
	}
	h.items[i] = x
	return top
}

// heapEntry is a contraction candidate. gen must equal the node's current
// generation for the entry to be live.
type heapEntry struct {
	node     uint32
	priority int
	gen      uint32
}

// less orders by priority, then node id, so the order is deterministic.
func (a heapEntry) less(b heapEntry) bool {
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.node < b.node
}

// witnessEntry is a node reached by a witness search.
type witnessEntry struct {
	node uint32
	dist uint32
	hops int
}

func (a witnessEntry) less(b witnessEntry) bool { return a.dist < b.dist }
