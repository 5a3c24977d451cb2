// Package interval implements an interval tree: a collection of closed
// numeric ranges, each carrying a payload, that can be queried for every
// range overlapping a given range or point.
//
// The tree is never rebalanced. Its shape depends only on insertion order,
// so inserting ranges sorted by start produces a chain.
//
// A Tree is not safe for concurrent use if any goroutine calls Insert.
// Concurrent calls to Find are fine.
package interval

// Result is a copy of an interval found in the tree.
type Result[T any] struct {
	Start float64
	End   float64
	Data  T
}

// Tree is an interval tree. The zero value is an empty tree ready to use.
type Tree[T any] struct {
	root *Node[T]
}

// New returns an empty Tree.
func New[T any]() *Tree[T] {
	return &Tree[T]{}
}

// Insert adds the interval [start, end] with the given payload. The tree is
// left unchanged if the bounds are invalid.
func (t *Tree[T]) Insert(start, end float64, data T) error {
	n, err := NewNode(start, end, data)
	if err != nil {
		return err
	}

	if t.root == nil {
		t.root = n
		return nil
	}

	t.root.insert(n)
	return nil
}

// Find returns every interval overlapping [start, end]. The result is never
// nil and is ordered by a pre-order walk of the tree.
func (t *Tree[T]) Find(start, end float64) []Result[T] {
	results := []Result[T]{}

	if t.root != nil {
		results = t.root.find(start, end, results)
	}

	return results
}

// FindPoint returns every interval containing x. Same as Find(x, x).
func (t *Tree[T]) FindPoint(x float64) []Result[T] {
	return t.Find(x, x)
}

// Root returns the root node or nil if the tree is empty.
func (t *Tree[T]) Root() *Node[T] {
	return t.root
}

// Len walks the tree and returns the number of intervals in it.
func (t *Tree[T]) Len() int {
	return t.root.len()
}

// Height walks the tree and returns the number of levels; one node has height 1.
func (t *Tree[T]) Height() int {
	return t.root.height()
}
