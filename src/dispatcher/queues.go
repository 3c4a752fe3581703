package dispatcher

import (
	"container/heap"
	"math"
	"slices"

	"github.com/tiendc/go-deepcopy"

	"liftctl/src/types"
)

// floorHeap orders deferred requests by floor, ascending for the up sweep and
// descending for the down sweep. Equal floors keep arrival order.
type floorHeap struct {
	reqs       []types.Request
	descending bool
}

func newFloorHeap(descending bool) *floorHeap {
	return &floorHeap{descending: descending}
}

func (h *floorHeap) Len() int { return len(h.reqs) }

func (h *floorHeap) Less(i, j int) bool {
	return floorOrder(h.descending)(h.reqs[i], h.reqs[j]) < 0
}

func (h *floorHeap) Swap(i, j int) { h.reqs[i], h.reqs[j] = h.reqs[j], h.reqs[i] }

func (h *floorHeap) Push(x any) { h.reqs = append(h.reqs, x.(types.Request)) }

func (h *floorHeap) Pop() any {
	n := len(h.reqs)
	req := h.reqs[n-1]
	h.reqs = h.reqs[:n-1]
	return req
}

// snapshot returns a deep copy of the heap contents in heap order.
func (h *floorHeap) snapshot() []types.Request {
	var reqs []types.Request
	if err := deepcopy.Copy(&reqs, &h.reqs); err != nil {
		reqs = slices.Clone(h.reqs)
	}
	return reqs
}

// sorted returns a copy of the heap contents in the order they would be popped.
func (h *floorHeap) sorted() []types.Request {
	reqs := h.snapshot()
	slices.SortStableFunc(reqs, floorOrder(h.descending))
	return reqs
}

// drainInto pops every request in floor order and appends it to dst.
func (h *floorHeap) drainInto(dst []types.Request) []types.Request {
	for h.Len() > 0 {
		dst = append(dst, heap.Pop(h).(types.Request))
	}
	return dst
}

func floorOrder(descending bool) func(a, b types.Request) int {
	return func(a, b types.Request) int {
		if a.Floor != b.Floor {
			if (a.Floor < b.Floor) != descending {
				return -1
			}
			return 1
		}
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		}
		return 0
	}
}

// earliest is the oldest timestamp in reqs, or MaxInt64 for none.
func earliest(reqs []types.Request) int64 {
	oldest := int64(math.MaxInt64)
	for _, req := range reqs {
		oldest = min(oldest, req.Timestamp)
	}
	return oldest
}
