package retrieval

import "sort"

// before reports whether candidate i ranks ahead of j: higher score first,
// lower corpus index on exact ties.
func before(scores []float32, i, j int) bool {
	if scores[i] != scores[j] {
		return scores[i] > scores[j]
	}
	return i < j
}

// topK returns the indices of the k best scores in rank order. It partitions
// around the k-th element in expected linear time, then sorts only the k
// winners. Ties break on ascending index, so results are deterministic.
func topK(scores []float32, k int) []int {
	n := len(scores)
	if k <= 0 || n == 0 {
		return nil
	}
	k = min(k, n)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if k < n {
		selectK(idx, scores, k)
	}
	best := idx[:k]
	sort.Slice(best, func(a, b int) bool { return before(scores, best[a], best[b]) })
	return best
}

// selectK reorders idx so that its first k entries are the k best candidates
// (in no particular order).
func selectK(idx []int, scores []float32, k int) {
	lo, hi := 0, len(idx)-1
	for lo < hi {
		p := partition(idx, scores, lo, hi)
		switch {
		case p == k-1:
			return
		case p < k-1:
			lo = p + 1
		default:
			hi = p - 1
		}
	}
}

// partition places the median-of-three pivot at its final rank position within
// idx[lo..hi] and returns that position.
func partition(idx []int, scores []float32, lo, hi int) int {
	mid := lo + (hi-lo)/2
	if before(scores, idx[mid], idx[lo]) {
		idx[mid], idx[lo] = idx[lo], idx[mid]
	}
	if before(scores, idx[hi], idx[lo]) {
		idx[hi], idx[lo] = idx[lo], idx[hi]
	}
	if before(scores, idx[hi], idx[mid]) {
		idx[hi], idx[mid] = idx[mid], idx[hi]
	}
	// idx[mid] is now the median; park it at hi.
	idx[mid], idx[hi] = idx[hi], idx[mid]
	pivot := idx[hi]
	store := lo
	for i := lo; i < hi; i++ {
		if before(scores, idx[i], pivot) {
			idx[i], idx[store] = idx[store], idx[i]
			store++
		}
	}
	idx[store], idx[hi] = idx[hi], idx[store]
	return store
}
