package interval

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func mustNode[T any](t *testing.T, start, end float64, data T) *Node[T] {
	t.Helper()
	n, err := NewNode(start, end, data)
	require.NoError(t, err)
	return n
}

func TestNewNode(t *testing.T) {
	r := require.New(t)

	n, err := NewNode[any](2, 3, nil)
	r.NoError(err)
	r.Equal(2.0, n.Start())
	r.Equal(3.0, n.End())
	r.Equal(n.End(), n.Max())
	r.Nil(n.Left())
	r.Nil(n.Right())
	r.Nil(n.Data())

	// start == end is a valid point interval.
	n, err = NewNode[any](3, 3, 100)
	r.NoError(err)
	r.Equal(3.0, n.Start())
	r.Equal(n.Start(), n.End())
	r.Equal(n.End(), n.Max())
	r.Nil(n.Left())
	r.Nil(n.Right())
	r.Equal(100, n.Data())
}

func TestNewNodeInvalidBounds(t *testing.T) {
	invalid := []float64{math.NaN(), math.Inf(1), math.Inf(-1)}

	for _, v := range invalid {
		n, err := NewNode(v, 100, "x")
		require.Nil(t, n)
		require.True(t, errors.Is(err, ErrInvalidArgument), "start=%v", v)
		require.Contains(t, err.Error(), "start must be a finite number")

		n, err = NewNode(0, v, "x")
		require.Nil(t, n)
		require.True(t, errors.Is(err, ErrInvalidArgument), "end=%v", v)
		require.Contains(t, err.Error(), "end must be a finite number")
	}

	tests := []struct {
		start, end float64
	}{
		{2, 1},
		{0, -0.5},
		{-1, -2},
		{math.MaxFloat64, -math.MaxFloat64},
	}
	for _, tt := range tests {
		n, err := NewNode(tt.start, tt.end, "x")
		require.Nil(t, n)
		require.True(t, errors.Is(err, ErrInvalidRange), "[%v - %v]", tt.start, tt.end)
		require.False(t, errors.Is(err, ErrInvalidArgument))
		require.Contains(t, err.Error(), "start cannot be greater than end")
	}
}

func TestNodeInsert(t *testing.T) {
	r := require.New(t)

	root := mustNode[any](t, 5, 10, nil)
	r.Equal(10.0, root.max)

	n := mustNode[any](t, 15, 25, map[string]string{"foo": "bar"})
	root.insert(n)
	r.Equal(25.0, root.max)
	r.Nil(root.left)
	r.Same(n, root.right)
	r.Equal(25.0, root.right.max)
	r.Equal(map[string]string{"foo": "bar"}, root.right.data)

	n = mustNode[any](t, 1, 12, nil)
	root.insert(n)
	r.Equal(25.0, root.max)
	r.Same(n, root.left)
	r.Equal(12.0, root.left.max)

	n = mustNode[any](t, 8, 16, nil)
	root.insert(n)
	r.Equal(25.0, root.max)
	r.Same(n, root.right.left)
	r.Nil(root.right.right)
	r.Equal(16.0, root.right.left.max)

	n = mustNode[any](t, 14, 20, nil)
	root.insert(n)
	r.Equal(25.0, root.max)
	r.Same(n, root.right.left.right)
	r.Nil(root.right.left.left)
	r.Equal(20.0, root.right.left.right.max)
	r.Equal(20.0, root.right.left.max)

	n = mustNode[any](t, 18, 21, nil)
	root.insert(n)
	r.Equal(25.0, root.max)
	r.Same(n, root.right.right)
	r.Equal(21.0, root.right.right.max)

	n = mustNode[any](t, 2, 8, nil)
	root.insert(n)
	r.Equal(25.0, root.max)
	r.Same(n, root.left.right)
	r.Equal(12.0, root.left.max)
}

func TestNodeInsertSameStart(t *testing.T) {
	r := require.New(t)

	root := mustNode(t, 5, 10, "foo")
	root.insert(mustNode(t, 5, 12, "boop"))
	root.insert(mustNode(t, 5, 10, "baz"))
	root.insert(mustNode(t, 5, 9, "bar"))
	root.insert(mustNode(t, 5, 11, "beep"))

	r.Equal("foo", root.data)
	r.Equal("boop", root.right.data)
	r.Equal("baz", root.right.left.data)
	r.Equal("bar", root.left.data)
	r.Equal("beep", root.right.left.right.data)

	r.Equal(12.0, root.max)
	r.Equal(12.0, root.right.max)
	r.Equal(11.0, root.right.left.max)
	r.Equal(9.0, root.left.max)
}

func TestNodeFind(t *testing.T) {
	r := require.New(t)

	root := mustNode[any](t, 5, 10, nil)
	root.insert(mustNode[any](t, 15, 25, nil))
	root.insert(mustNode[any](t, 1, 12, nil))
	root.insert(mustNode[any](t, 8, 16, nil))
	root.insert(mustNode[any](t, 14, 20, nil))
	root.insert(mustNode[any](t, 18, 21, "foo"))
	root.insert(mustNode[any](t, 2, 8, nil))

	// Match all intervals, in pre-order.
	results := root.find(1, 25, nil)
	r.Equal([]Result[any]{
		{Start: 5, End: 10},
		{Start: 1, End: 12},
		{Start: 2, End: 8},
		{Start: 15, End: 25},
		{Start: 8, End: 16},
		{Start: 14, End: 20},
		{Start: 18, End: 21, Data: "foo"},
	}, results)

	// Past the end of everything.
	r.Empty(root.find(26, 1000, nil))

	// Before the start of everything.
	r.Empty(root.find(0, 0, nil))

	// Single point, only one interval covers it.
	r.Equal([]Result[any]{{Start: 8, End: 16}}, root.find(13, 13, nil))

	// Results are appended to what is already there.
	acc := []Result[any]{{Start: -1, End: -1}}
	acc = root.find(13, 13, acc)
	r.Len(acc, 2)
	r.Equal(Result[any]{Start: -1, End: -1}, acc[0])
}

func TestNodeFindSameStart(t *testing.T) {
	r := require.New(t)

	root := mustNode(t, 5, 10, "foo")
	root.insert(mustNode(t, 5, 12, "boop"))
	root.insert(mustNode(t, 5, 10, "baz"))
	root.insert(mustNode(t, 5, 9, "bar"))
	root.insert(mustNode(t, 5, 11, "beep"))

	results := root.find(5, 12, nil)
	r.Len(results, 5)
	r.ElementsMatch([]Result[string]{
		{Start: 5, End: 10, Data: "foo"},
		{Start: 5, End: 12, Data: "boop"},
		{Start: 5, End: 10, Data: "baz"},
		{Start: 5, End: 9, Data: "bar"},
		{Start: 5, End: 11, Data: "beep"},
	}, results)

	r.Equal([]Result[string]{{Start: 5, End: 12, Data: "boop"}}, root.find(12, 12, nil))
}

func TestNodeHeightAndLen(t *testing.T) {
	r := require.New(t)

	var empty *Node[int]
	r.Equal(0, empty.height())
	r.Equal(0, empty.len())

	// Sorted input degrades into a chain.
	root := mustNode(t, 0, 1, 0)
	for i := 1; i < 10; i++ {
		root.insert(mustNode(t, float64(i), float64(i+1), i))
	}
	r.Equal(10, root.height())
	r.Equal(10, root.len())
	r.Nil(root.left)
}
