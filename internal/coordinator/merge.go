package coordinator

import (
	"container/heap"
	"sort"
)

// scoreDescending is the default merge comparator (§4.8 "score_desc
// (default)").
func scoreDescending(a, b Hit) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.ShardID != b.ShardID {
		return a.ShardID < b.ShardID
	}
	return a.Address.Doc < b.Address.Doc
}

// ScoreAscending is the alternative built-in merge strategy (§4.8
// "merge strategy ∈ {score_desc (default), score_asc, custom
// comparator}").
func ScoreAscending(a, b Hit) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.ShardID < b.ShardID
}

// kWayMerge merges per-shard hit lists under less using a K-way heap
// (§4.8 step 4). Every lane is sorted by less before the merge,
// whichever comparator is configured: a shard's own hit order need not
// agree with less (ScoreAscending, a custom comparator, or a tie broken
// differently), and the heap needs each lane in less order. The merge
// then walks the lanes' heads rather than sorting the full union.
func kWayMerge(hits []Hit, less func(a, b Hit) bool) []Hit {
	if len(hits) == 0 {
		return nil
	}

	byShard := make(map[string][]Hit)
	var shardOrder []string
	for _, h := range hits {
		if _, ok := byShard[h.ShardID]; !ok {
			shardOrder = append(shardOrder, h.ShardID)
		}
		byShard[h.ShardID] = append(byShard[h.ShardID], h)
	}

	h := &mergeHeap{less: less}
	for _, name := range shardOrder {
		lane := byShard[name]
		sort.Slice(lane, func(i, j int) bool { return less(lane[i], lane[j]) })
		h.lanes = append(h.lanes, lane)
		h.heads = append(h.heads, 0)
	}
	heap.Init(h)

	out := make([]Hit, 0, len(hits))
	for h.Len() > 0 {
		out = append(out, h.pop())
	}
	return out
}

// mergeHeap is a heap over the current head element of each shard's
// lane, re-pushing the lane with its head advanced after each pop.
type mergeHeap struct {
	lanes [][]Hit
	heads []int
	less  func(a, b Hit) bool
}

func (h *mergeHeap) Len() int { return len(h.lanes) }

func (h *mergeHeap) Less(i, j int) bool {
	return h.less(h.lanes[i][h.heads[i]], h.lanes[j][h.heads[j]])
}

func (h *mergeHeap) Swap(i, j int) {
	h.lanes[i], h.lanes[j] = h.lanes[j], h.lanes[i]
	h.heads[i], h.heads[j] = h.heads[j], h.heads[i]
}

func (h *mergeHeap) Push(x interface{}) {}
func (h *mergeHeap) Pop() interface{} {
	n := len(h.lanes)
	lane := h.lanes[n-1]
	head := h.heads[n-1]
	h.lanes = h.lanes[:n-1]
	h.heads = h.heads[:n-1]
	return lane[head]
}

// pop removes and returns the current minimum (per less) head element
// across all lanes, advancing or retiring that lane.
func (h *mergeHeap) pop() Hit {
	top := h.lanes[0][h.heads[0]]
	h.heads[0]++
	if h.heads[0] >= len(h.lanes[0]) {
		heap.Remove(h, 0)
	} else {
		heap.Fix(h, 0)
	}
	return top
}
