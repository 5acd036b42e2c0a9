package hierarchy

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keelsim/keel/internal/core/ecs"
)

// buildTree spawns parent→(a, b) and returns the engine's digest.
func buildTree(e *Engine, w *ecs.World, labels map[ecs.EntityID]string) []byte {
	parent := w.CreateEntity()
	a := w.CreateEntity()
	b := w.CreateEntity()
	labels[parent] = "root"
	labels[a] = "left"
	labels[b] = "right"
	e.PushChildren(parent, a, b)
	return e.Digest(func(slot ecs.EntityID) string { return labels[slot] })
}

func TestDigestIndependentOfSlotChurn(t *testing.T) {
	e1, w1 := newTestEngine()
	labels1 := map[ecs.EntityID]string{}
	d1 := buildTree(e1, w1, labels1)

	// Same logical tree on a pool that has seen churn: slot indices and
	// generations differ, stable ids do not.
	e2, w2 := newTestEngine()
	for i := 0; i < 5; i++ {
		w2.DestroyNow(w2.CreateEntity())
	}
	labels2 := map[ecs.EntityID]string{}
	d2 := buildTree(e2, w2, labels2)

	require.True(t, bytes.Equal(d1, d2), "digest must not depend on slot handles")
}

func TestDigestChangesOnReorder(t *testing.T) {
	e, w := newTestEngine()
	parent := w.CreateEntity()
	a, b := w.CreateEntity(), w.CreateEntity()
	e.PushChildren(parent, a, b)
	before := e.Digest(noLabel)

	e.PushChildren(parent, a) // moves a to the end
	after := e.Digest(noLabel)

	require.False(t, bytes.Equal(before, after), "child order is part of the digest")
}

func TestDigestChangesOnLabel(t *testing.T) {
	e, w := newTestEngine()
	slot := w.CreateEntity()
	e.IdentityFor(slot)

	plain := e.Digest(noLabel)
	named := e.Digest(func(_ ecs.EntityID) string { return "named" })
	require.False(t, bytes.Equal(plain, named))
}

func TestDigestEmptyTree(t *testing.T) {
	e1, _ := newTestEngine()
	e2, _ := newTestEngine()
	require.True(t, bytes.Equal(e1.Digest(noLabel), e2.Digest(noLabel)))
}
