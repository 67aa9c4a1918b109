package world

import (
	"container/heap"

	"github.com/triage-sim/triage-sim/sim/content"
	"github.com/triage-sim/triage-sim/sim/physio"
)

// DelayedAction is a treatment or measurement waiting for its due time.
type DelayedAction struct {
	ID       int64 // ID of the originating event
	Due      int64 // ms
	Resolved *content.Action
	Rules    []physio.Rule // frozen for effects, nil for measurements
	Origin   Event
}

// payload returns the originating action payload.
func (d *DelayedAction) payload() ActionPayload {
	p, _ := d.Origin.Payload.(ActionPayload)
	return p
}

// DelayedQueue is a priority queue of delayed actions with deterministic
// ordering: due time, then ID.
type DelayedQueue struct {
	items []*DelayedAction
}

// NewDelayedQueue creates an empty queue.
func NewDelayedQueue() *DelayedQueue {
	q := &DelayedQueue{items: make([]*DelayedAction, 0)}
	heap.Init(q)
	return q
}

// Len implements heap.Interface
func (q *DelayedQueue) Len() int {
	return len(q.items)
}

// Less implements heap.Interface: due time, then ID.
func (q *DelayedQueue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if a.Due != b.Due {
		return a.Due < b.Due
	}
	return a.ID < b.ID
}

// Swap implements heap.Interface
func (q *DelayedQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
}

// Push implements heap.Interface
func (q *DelayedQueue) Push(x any) {
	q.items = append(q.items, x.(*DelayedAction))
}

// Pop implements heap.Interface
func (q *DelayedQueue) Pop() any {
	old := q.items
	n := len(old)
	item := old[n-1]
	q.items = old[:n-1]
	return item
}

// Schedule adds a delayed action.
func (q *DelayedQueue) Schedule(d *DelayedAction) {
	heap.Push(q, d)
}

// PopDue removes and returns the next action due at or before now, or nil.
func (q *DelayedQueue) PopDue(now int64) *DelayedAction {
	if q.Len() == 0 || q.items[0].Due > now {
		return nil
	}
	return heap.Pop(q).(*DelayedAction)
}

// Peek returns the next action without removing it.
func (q *DelayedQueue) Peek() *DelayedAction {
	if q.Len() == 0 {
		return nil
	}
	return q.items[0]
}

// Cancel removes the pending action with the given ID and reports whether
// it was found.
func (q *DelayedQueue) Cancel(id int64) (*DelayedAction, bool) {
	for i, d := range q.items {
		if d.ID == id {
			heap.Remove(q, i)
			return d, true
		}
	}
	return nil, false
}

// Pending returns the queued actions in due order without modifying the
// queue.
func (q *DelayedQueue) Pending() []*DelayedAction {
	c := q.Clone()
	out := make([]*DelayedAction, 0, c.Len())
	for c.Len() > 0 {
		out = append(out, heap.Pop(c).(*DelayedAction))
	}
	return out
}

// Clone returns a queue holding the same (immutable) actions.
func (q *DelayedQueue) Clone() *DelayedQueue {
	return &DelayedQueue{items: append([]*DelayedAction(nil), q.items...)}
}
