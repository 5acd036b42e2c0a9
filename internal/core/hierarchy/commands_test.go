package hierarchy

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keelsim/keel/internal/core/ecs"
)

func noLabel(_ ecs.EntityID) string { return "" }

func TestQueueFlushAppliesInOrder(t *testing.T) {
	e, w := newTestEngine()
	q := NewQueue()
	parent := w.CreateEntity()
	a, b := w.CreateEntity(), w.CreateEntity()

	q.PushChildren(parent, a, b)
	q.RemoveChildren(parent, a)
	require.Equal(t, 2, q.Len())

	q.Flush(e)
	require.Equal(t, 0, q.Len())
	require.Equal(t, idsOf(e, b), e.ChildrenOf(parent))
	_, ok := e.ParentOf(a)
	require.False(t, ok)
}

func TestQueueMatchesDirectPath(t *testing.T) {
	direct, dw := newTestEngine()
	queued, qw := newTestEngine()
	q := NewQueue()

	dp, da, db, dc := dw.CreateEntity(), dw.CreateEntity(), dw.CreateEntity(), dw.CreateEntity()
	qp, qa, qb, qc := qw.CreateEntity(), qw.CreateEntity(), qw.CreateEntity(), qw.CreateEntity()

	direct.PushChildren(dp, da, db, dc)
	direct.InsertChildren(dp, 1, dc)
	direct.RemoveParent(da)
	direct.AddChild(dp, da)
	direct.ClearChildren(dp)
	direct.ReplaceChildren(dp, db, da)

	q.PushChildren(qp, qa, qb, qc)
	q.InsertChildren(qp, 1, qc)
	q.RemoveParent(qa)
	q.AddChild(qp, qa)
	q.ClearChildren(qp)
	q.ReplaceChildren(qp, qb, qa)
	q.Flush(queued)

	require.True(t, bytes.Equal(direct.Digest(noLabel), queued.Digest(noLabel)),
		"queued and direct application must land on the same tree")
}

func TestQueueSelfChildPanicsAtEnqueue(t *testing.T) {
	_, w := newTestEngine()
	q := NewQueue()
	slot := w.CreateEntity()

	require.Panics(t, func() { q.AddChild(slot, slot) })
	require.Panics(t, func() { q.PushChildren(slot, slot) })
	require.Panics(t, func() { q.InsertChildren(slot, 0, slot) })
	require.Panics(t, func() { q.ReplaceChildren(slot, slot) })
	require.Equal(t, 0, q.Len(), "nothing enqueued from panicking calls")
}

func TestQueueDeadTargetIsNoOp(t *testing.T) {
	e, w := newTestEngine()
	q := NewQueue()
	parent := w.CreateEntity()
	child := w.CreateEntity()

	q.AddChild(parent, child)
	w.DestroyNow(child)
	q.Flush(e)

	require.Nil(t, e.ChildrenOf(parent))
}

func TestQueueCopiesChildSlice(t *testing.T) {
	e, w := newTestEngine()
	q := NewQueue()
	parent := w.CreateEntity()
	a, b := w.CreateEntity(), w.CreateEntity()

	batch := []ecs.EntityID{a, b}
	q.PushChildren(parent, batch...)
	batch[0] = parent // mutate the caller's slice after enqueue
	q.Flush(e)

	require.Equal(t, idsOf(e, a, b), e.ChildrenOf(parent))
}
