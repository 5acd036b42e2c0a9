package hierarchy

import (
	"github.com/keelsim/keel/internal/core/ecs"
)

// Command is one deferred hierarchy mutation: an immutable value object
// carrying just its parameters, applied later against the engine.
type Command interface {
	apply(e *Engine)
}

// Queue collects commands in program order; a single consumer drains them
// at the cycle's flush point. Application order is enqueue order, so a
// "reparent then remove" submitted in that order also applies in that
// order. A command whose target slot died before the flush is a silent
// no-op (the engine's stale-target leniency). Queued and direct paths
// produce identical final state for the same operation sequence.
type Queue struct {
	cmds []Command
}

func NewQueue() *Queue {
	return &Queue{cmds: make([]Command, 0, 64)}
}

func (q *Queue) Len() int {
	return len(q.cmds)
}

// Flush applies all queued commands in enqueue order and empties the
// queue.
func (q *Queue) Flush(e *Engine) {
	for _, cmd := range q.cmds {
		cmd.apply(e)
	}
	q.cmds = q.cmds[:0]
}

// AddChild queues an add_child. Panics immediately on self-parenting;
// that is a programming error at the call site, not at flush time.
func (q *Queue) AddChild(parent, child ecs.EntityID) {
	if parent == child {
		panic("hierarchy: cannot add a slot as a child of itself")
	}
	q.cmds = append(q.cmds, addChild{parent: parent, child: child})
}

func (q *Queue) PushChildren(parent ecs.EntityID, children ...ecs.EntityID) {
	panicOnSelfChild(parent, children)
	q.cmds = append(q.cmds, pushChildren{parent: parent, children: copySlots(children)})
}

func (q *Queue) InsertChildren(parent ecs.EntityID, index int, children ...ecs.EntityID) {
	panicOnSelfChild(parent, children)
	q.cmds = append(q.cmds, insertChildren{parent: parent, index: index, children: copySlots(children)})
}

func (q *Queue) RemoveChildren(parent ecs.EntityID, children ...ecs.EntityID) {
	q.cmds = append(q.cmds, removeChildren{parent: parent, children: copySlots(children)})
}

func (q *Queue) ClearChildren(parent ecs.EntityID) {
	q.cmds = append(q.cmds, clearChildren{parent: parent})
}

func (q *Queue) ReplaceChildren(parent ecs.EntityID, children ...ecs.EntityID) {
	panicOnSelfChild(parent, children)
	q.cmds = append(q.cmds, replaceChildren{parent: parent, children: copySlots(children)})
}

func (q *Queue) RemoveParent(child ecs.EntityID) {
	q.cmds = append(q.cmds, removeParent{child: child})
}

func (q *Queue) DestroyRecursive(root ecs.EntityID) {
	q.cmds = append(q.cmds, destroyRecursive{root: root})
}

type addChild struct {
	parent, child ecs.EntityID
}

func (c addChild) apply(e *Engine) { e.AddChild(c.parent, c.child) }

type pushChildren struct {
	parent   ecs.EntityID
	children []ecs.EntityID
}

func (c pushChildren) apply(e *Engine) { e.PushChildren(c.parent, c.children...) }

type insertChildren struct {
	parent   ecs.EntityID
	index    int
	children []ecs.EntityID
}

func (c insertChildren) apply(e *Engine) { e.InsertChildren(c.parent, c.index, c.children...) }

type removeChildren struct {
	parent   ecs.EntityID
	children []ecs.EntityID
}

func (c removeChildren) apply(e *Engine) { e.RemoveChildren(c.parent, c.children...) }

type clearChildren struct {
	parent ecs.EntityID
}

func (c clearChildren) apply(e *Engine) { e.ClearChildren(c.parent) }

type replaceChildren struct {
	parent   ecs.EntityID
	children []ecs.EntityID
}

func (c replaceChildren) apply(e *Engine) { e.ReplaceChildren(c.parent, c.children...) }

type removeParent struct {
	child ecs.EntityID
}

func (c removeParent) apply(e *Engine) { e.RemoveParent(c.child) }

type destroyRecursive struct {
	root ecs.EntityID
}

func (c destroyRecursive) apply(e *Engine) { e.DestroyRecursive(c.root) }

func panicOnSelfChild(parent ecs.EntityID, children []ecs.EntityID) {
	for _, c := range children {
		if c == parent {
			panic("hierarchy: cannot attach a slot as a child of itself")
		}
	}
}

func copySlots(slots []ecs.EntityID) []ecs.EntityID {
	return append([]ecs.EntityID(nil), slots...)
}
