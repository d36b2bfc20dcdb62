package index

import (
	"container/heap"
	"slices"
)

// better reports whether a ranks ahead of b: higher similarity, then lower id.
func better(a, b Hit) bool {
	if a.Similarity != b.Similarity {
		return a.Similarity > b.Similarity
	}
	return a.ID < b.ID
}

// worstFirst is a min-heap whose root is the weakest retained hit.
type worstFirst []Hit

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return better(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *worstFirst) Push(x any)        { *h = append(*h, x.(Hit)) }
func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// collector keeps the k best hits seen so far.
type collector struct {
	k    int
	heap worstFirst
}

func newCollector(k int) *collector {
	return &collector{k: k, heap: make(worstFirst, 0, k)}
}

func (c *collector) offer(h Hit) {
	if len(c.heap) < c.k {
		heap.Push(&c.heap, h)
		return
	}
	if better(h, c.heap[0]) {
		c.heap[0] = h
		heap.Fix(&c.heap, 0)
	}
}

// sorted returns retained hits best first.
func (c *collector) sorted() []Hit {
	out := slices.Clone([]Hit(c.heap))
	slices.SortFunc(out, func(a, b Hit) int {
		if better(a, b) {
			return -1
		}
		if better(b, a) {
			return 1
		}
		return 0
	})
	return out
}
