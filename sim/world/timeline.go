package world

import "sort"

// Snapshot is the state of an entity at one instant.
type Snapshot[T any] struct {
	Time  int64
	State T
}

// Timeline is a strictly time-increasing sequence of snapshots with at most
// one snapshot per time.
type Timeline[T any] struct {
	snaps []Snapshot[T]
}

// Len returns the number of materialized snapshots.
func (tl *Timeline[T]) Len() int { return len(tl.snaps) }

// after returns the index of the first snapshot strictly after t.
func (tl *Timeline[T]) after(t int64) int {
	return sort.Search(len(tl.snaps), func(i int) bool { return tl.snaps[i].Time > t })
}

// At returns the most recent snapshot at or before t.
func (tl *Timeline[T]) At(t int64) (Snapshot[T], bool) {
	i := tl.after(t)
	if i == 0 {
		return Snapshot[T]{}, false
	}
	return tl.snaps[i-1], true
}

// Last returns the latest snapshot.
func (tl *Timeline[T]) Last() (Snapshot[T], bool) {
	if len(tl.snaps) == 0 {
		return Snapshot[T]{}, false
	}
	return tl.snaps[len(tl.snaps)-1], true
}

// Put stores s, replacing a snapshot at the same time, and returns its index.
func (tl *Timeline[T]) Put(s Snapshot[T]) int {
	i := tl.after(s.Time)
	if i > 0 && tl.snaps[i-1].Time == s.Time {
		tl.snaps[i-1] = s
		return i - 1
	}
	tl.snaps = append(tl.snaps, Snapshot[T]{})
	copy(tl.snaps[i+1:], tl.snaps[i:])
	tl.snaps[i] = s
	return i
}

// Rederive recomputes every snapshot from index from onwards, each from its
// (already recomputed) predecessor. Index 0 has no predecessor and is
// skipped.
func (tl *Timeline[T]) Rederive(from int, derive func(prev Snapshot[T], t int64) T) {
	for i := max(from, 1); i < len(tl.snaps); i++ {
		tl.snaps[i].State = derive(tl.snaps[i-1], tl.snaps[i].Time)
	}
}

// Times returns the snapshot times in order.
func (tl *Timeline[T]) Times() []int64 {
	out := make([]int64, len(tl.snaps))
	for i, s := range tl.snaps {
		out[i] = s.Time
	}
	return out
}

// Clone returns a copy holding the same states. Callers that mutate states
// in place must deep-copy them first.
func (tl *Timeline[T]) Clone() *Timeline[T] {
	return &Timeline[T]{snaps: append([]Snapshot[T](nil), tl.snaps...)}
}
