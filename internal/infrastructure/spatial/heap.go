package spatial

import "sort"

// knnHeap is a bounded max-heap of neighbours keyed by (squared distance,
// index). The root is the current worst candidate, so a k-NN search can
// reject or replace in O(log k).
type knnHeap struct {
	cap   int
	items []Neighbor
}

// worse orders candidates for eviction: larger distance first, larger index
// on ties, so the kept set prefers smaller center indices.
func worse(a, b Neighbor) bool {
	if a.SqDist != b.SqDist {
		return a.SqDist > b.SqDist
	}
	return a.Index > b.Index
}

func (h *knnHeap) full() bool { return len(h.items) >= h.cap }

func (h *knnHeap) worst() Neighbor { return h.items[0] }

func (h *knnHeap) offer(n Neighbor) {
	if !h.full() {
		h.items = append(h.items, n)
		h.up(len(h.items) - 1)
		return
	}
	if worse(n, h.items[0]) {
		return
	}
	h.items[0] = n
	h.down(0)
}

func (h *knnHeap) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !worse(h.items[i], h.items[parent]) {
			return
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *knnHeap) down(i int) {
	n := len(h.items)
	for {
		l, r := 2*i+1, 2*i+2
		largest := i
		if l < n && worse(h.items[l], h.items[largest]) {
			largest = l
		}
		if r < n && worse(h.items[r], h.items[largest]) {
			largest = r
		}
		if largest == i {
			return
		}
		h.items[i], h.items[largest] = h.items[largest], h.items[i]
		i = largest
	}
}

// sorted returns the kept neighbours ordered closest first, ties by smaller index.
func (h *knnHeap) sorted() []Neighbor {
	out := make([]Neighbor, len(h.items))
	copy(out, h.items)
	sort.Slice(out, func(i, j int) bool {
		if out[i].SqDist != out[j].SqDist {
			return out[i].SqDist < out[j].SqDist
		}
		return out[i].Index < out[j].Index
	})
	return out
}
