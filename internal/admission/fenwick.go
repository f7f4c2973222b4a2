package admission

// fenwick is a binary indexed tree over 1-based enqueue sequence
// numbers. Each live queue entry contributes 1 at its sequence index,
// so the prefix sum up to a sequence is that ticket's 1-based position.
// Removals clear the contribution without renumbering anything, which
// keeps both position queries and evictions at O(log n).
type fenwick struct {
	tree []int
}

// grow ensures the tree can index up to n.
func (f *fenwick) grow(n int) {
	if n < len(f.tree) {
		return
	}
	size := len(f.tree)
	if size == 0 {
		size = 64
	}
	for size <= n {
		size *= 2
	}
	resized := make([]int, size)
	copy(resized, f.tree)
	f.tree = resized
}

// add applies delta at index i (1-based).
func (f *fenwick) add(i, delta int) {
	f.grow(i)
	for ; i < len(f.tree); i += i & (-i) {
		f.tree[i] += delta
	}
}

// sum returns the prefix sum of [1, i].
func (f *fenwick) sum(i int) int {
	if i >= len(f.tree) {
		i = len(f.tree) - 1
	}
	total := 0
	for ; i > 0; i -= i & (-i) {
		total += f.tree[i]
	}
	return total
}
