package heap_test

import (
	"testing"

	"esrt/pkg/heap"
	"github.com/stretchr/testify/require"
)

// leafCell is a minimal Cell with no outgoing references, used to test
// the collector in isolation from the value/object model.
type leafCell struct {
	heap.Header
	freed bool
}

func (c *leafCell) Scan(v *heap.Visitor) {}
func (c *leafCell) Free()                { c.freed = true }

// linkedCell points at a single child, exercising the mark-stack walk.
type linkedCell struct {
	heap.Header
	child *linkedCell
	freed bool
}

func (c *linkedCell) Scan(v *heap.Visitor) {
	if c.child != nil {
		v.Mark(c.child)
	}
}
func (c *linkedCell) Free() { c.freed = true }

type rootSet struct {
	cells []heap.Cell
}

func (r *rootSet) GCRoots(v *heap.Visitor) {
	for _, c := range r.cells {
		v.Mark(c)
	}
}

func newLeaf(h *heap.Heap) *leafCell {
	c := &leafCell{}
	h.NewCell(&c.Header, heap.KindObject)
	h.Publish(c)
	return c
}

func TestUnreachableCellIsSwept(t *testing.T) {
	h := heap.New(256)
	roots := &rootSet{}
	h.RegisterRoot(roots)

	reachable := newLeaf(h)
	unreachable := newLeaf(h)
	roots.cells = []heap.Cell{reachable}

	require.EqualValues(t, 2, h.Count())
	h.Collect()
	require.EqualValues(t, 1, h.Count())
	require.False(t, reachable.freed)
	require.True(t, unreachable.freed)
}

func TestReachableChainSurvives(t *testing.T) {
	h := heap.New(256)
	roots := &rootSet{}
	h.RegisterRoot(roots)

	tail := &linkedCell{}
	h.NewCell(&tail.Header, heap.KindObject)
	h.Publish(tail)

	head := &linkedCell{child: tail}
	h.NewCell(&head.Header, heap.KindObject)
	h.Publish(head)

	roots.cells = []heap.Cell{head}

	h.Collect()
	require.EqualValues(t, 2, h.Count())
	require.False(t, head.freed)
	require.False(t, tail.freed)
}

// TestMarkStackOverflowHandshake forces the mark stack to overflow by
// capping it far below the number of roots, and checks every reachable
// cell still survives via the stack-full re-walk drain.
func TestMarkStackOverflowHandshake(t *testing.T) {
	h := heap.New(2) // deliberately tiny
	roots := &rootSet{}
	h.RegisterRoot(roots)

	const n = 50
	cells := make([]*leafCell, n)
	for i := range cells {
		cells[i] = newLeaf(h)
		roots.cells = append(roots.cells, cells[i])
	}

	h.Collect()
	require.EqualValues(t, n, h.Count())
	for _, c := range cells {
		require.False(t, c.freed)
	}
}

func TestCycleDoesNotLeak(t *testing.T) {
	h := heap.New(256)
	roots := &rootSet{}
	h.RegisterRoot(roots)

	a := &linkedCell{}
	h.NewCell(&a.Header, heap.KindObject)
	h.Publish(a)
	b := &linkedCell{child: a}
	h.NewCell(&b.Header, heap.KindObject)
	h.Publish(b)
	a.child = b // a <-> b cycle, unreachable from roots

	h.Collect()
	require.EqualValues(t, 0, h.Count())
	require.True(t, a.freed)
	require.True(t, b.freed)
}

func TestShouldCollectTracksPressure(t *testing.T) {
	h := heap.New(256)
	h.PressureMultiple = 2.0
	roots := &rootSet{}
	h.RegisterRoot(roots)

	require.False(t, h.ShouldCollect()) // below the 64-cell floor
	for i := 0; i < 100; i++ {
		newLeaf(h)
	}
	require.True(t, h.ShouldCollect())
}
