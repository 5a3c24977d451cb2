package interval

import (
	"math"

	"github.com/pkg/errors"
)

// Node holds one closed interval [start, end] and the subtree rooted at it.
//
// The tree is a plain (unbalanced) binary search tree keyed on (start, end).
// max is the largest end found in the subtree and is what lets find skip
// whole subtrees.
type Node[T any] struct {
	start float64
	end   float64
	max   float64
	left  *Node[T]
	right *Node[T]
	data  T
}

// NewNode returns a new Node or an error if the bounds are not finite
// numbers or if start is after end.
func NewNode[T any](start, end float64, data T) (*Node[T], error) {
	if !isFinite(start) {
		return nil, errors.Wrapf(ErrInvalidArgument, "start must be a finite number, got %v", start)
	}
	if !isFinite(end) {
		return nil, errors.Wrapf(ErrInvalidArgument, "end must be a finite number, got %v", end)
	}
	if start > end {
		return nil, errors.Wrapf(ErrInvalidRange, "start cannot be greater than end [%v - %v]", start, end)
	}

	return &Node[T]{
		start: start,
		end:   end,
		max:   end,
		data:  data,
	}, nil
}

// Start returns the lower bound of the node's interval.
func (n *Node[T]) Start() float64 {
	return n.start
}

// End returns the upper bound of the node's interval.
func (n *Node[T]) End() float64 {
	return n.end
}

// Max returns the largest end in the subtree rooted at n.
func (n *Node[T]) Max() float64 {
	return n.max
}

// Data returns the payload stored with the interval.
func (n *Node[T]) Data() T {
	return n.data
}

// Left returns the left child or nil.
func (n *Node[T]) Left() *Node[T] {
	return n.left
}

// Right returns the right child or nil.
func (n *Node[T]) Right() *Node[T] {
	return n.right
}

func (n *Node[T]) insert(x *Node[T]) {
	// Every node on the way down covers x after this.
	if x.end > n.max {
		n.max = x.end
	}

	if n.lessOrEqual(x) {
		if n.right == nil {
			n.right = x
			return
		}
		n.right.insert(x)
		return
	}

	if n.left == nil {
		n.left = x
		return
	}
	n.left.insert(x)
}

// lessOrEqual orders by start, then end. Equal keys sort n first, so
// duplicates go right.
func (n *Node[T]) lessOrEqual(x *Node[T]) bool {
	return n.start < x.start || n.start == x.start && n.end <= x.end
}

// overlaps is false for a NaN query bound.
func (n *Node[T]) overlaps(start, end float64) bool {
	return n.start <= end && n.end >= start
}

// find appends every interval in the subtree overlapping [start, end] to
// results, visiting n, then its left subtree, then its right subtree.
func (n *Node[T]) find(start, end float64, results []Result[T]) []Result[T] {
	if n.overlaps(start, end) {
		results = append(results, n.result())
	}

	if n.left != nil && n.left.max >= start {
		results = n.left.find(start, end, results)
	}

	// Only max is checked here. Nodes to the right may still start after
	// end, the overlap test above filters those out.
	if n.right != nil && start <= n.right.max {
		results = n.right.find(start, end, results)
	}

	return results
}

func (n *Node[T]) result() Result[T] {
	return Result[T]{
		Start: n.start,
		End:   n.end,
		Data:  n.data,
	}
}

func (n *Node[T]) height() int {
	if n == nil {
		return 0
	}
	return max(n.left.height(), n.right.height()) + 1
}

func (n *Node[T]) len() int {
	if n == nil {
		return 0
	}
	return n.left.len() + n.right.len() + 1
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
