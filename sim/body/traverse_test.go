package body

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBody(t *testing.T) *BodyState {
	t.Helper()
	return DefaultAnatomy(2).Build(NewHumanMeta(Profile{}))
}

func TestTraverse_VisitsEveryBlockOnce(t *testing.T) {
	s := newTestBody(t)
	seen := map[string]int{}

	n, ok := Traverse(s, s.Root, struct{}{}, func(b *Block, _ struct{}) { seen[b.Name]++ }, TraverseOptions[struct{}]{})

	require.True(t, ok)
	assert.Equal(t, len(s.Blocks), n)
	for _, name := range s.Names() {
		assert.Equal(t, 1, seen[name], "block %s", name)
	}
}

func TestTraverse_UnknownStart(t *testing.T) {
	s := newTestBody(t)
	n, ok := Traverse(s, "NOPE", 0, func(*Block, int) {}, TraverseOptions[int]{})
	assert.False(t, ok)
	assert.Zero(t, n)
}

func TestTraverse_LeaveAfterChildren(t *testing.T) {
	// GIVEN a walk recording enter and leave order
	s := newTestBody(t)
	var order []string
	opts := TraverseOptions[int]{
		Leave: func(b *Block, _ int) { order = append(order, "leave:"+b.Name) },
	}

	Traverse(s, Head, 0, func(b *Block, _ int) { order = append(order, "enter:"+b.Name) }, opts)

	// THEN BRAIN is left before HEAD, which is left last among its subtree
	idx := func(s string) int {
		for i, o := range order {
			if o == s {
				return i
			}
		}
		return -1
	}
	require.NotEqual(t, -1, idx("leave:"+Brain))
	assert.Less(t, idx("enter:"+Brain), idx("leave:"+Brain))
	assert.Less(t, idx("leave:"+Brain), idx("leave:"+Head))
}

func TestTraverse_ShouldFollowPrunes(t *testing.T) {
	// GIVEN a walk that only follows airway connections from the trachea
	s := newTestBody(t)
	var units int
	opts := TraverseOptions[int]{
		ShouldFollow: func(_ *Block, e Edge[int]) bool { return e.Conn.AllowsO2 && e.Link.Target != Neck },
	}

	Traverse(s, Trachea, 0, func(b *Block, _ int) {
		if b.Kind == KindRespiratoryUnit {
			units++
		}
		assert.NotEqual(t, KindLimb, b.Kind)
	}, opts)

	// THEN only airway blocks are reached: 2 lungs × 4 units at depth 2
	assert.Equal(t, 8, units)
}

func TestTraverse_PrepareEdgesPayloadAndBreak(t *testing.T) {
	// GIVEN edges carrying depth, and exploration stopped at NECK
	s := newTestBody(t)
	depth := map[string]int{}
	opts := TraverseOptions[int]{
		PrepareEdges: func(b *Block, in int, edges []Edge[int]) ([]Edge[int], Control) {
			if b.Name == Neck {
				return nil, Break
			}
			for i := range edges {
				edges[i].Payload = in + 1
			}
			return edges, Continue
		},
	}

	Traverse(s, s.Root, 0, func(b *Block, in int) { depth[b.Name] = in }, opts)

	// THEN children of HEART have depth 1 and nothing below NECK is visited
	assert.Equal(t, 1, depth[Neck])
	assert.Equal(t, 2, depth[LeftForearm])
	_, reached := depth[Brain]
	assert.False(t, reached)
}

func TestTraverse_ReturnAbortsWalk(t *testing.T) {
	s := newTestBody(t)
	opts := TraverseOptions[int]{
		PrepareEdges: func(b *Block, _ int, edges []Edge[int]) ([]Edge[int], Control) {
			if b.Name == s.Root {
				return edges, Return
			}
			return edges, Continue
		},
	}
	n, ok := Traverse(s, s.Root, 0, func(*Block, int) {}, opts)
	assert.False(t, ok)
	assert.Equal(t, 1, n)
}

func TestTraverse_DeepAirwayDoesNotRecurse(t *testing.T) {
	// A deep subdivision builds thousands of blocks; the explicit stack
	// must walk all of them.
	s := DefaultAnatomy(10).Build(NewHumanMeta(Profile{}))
	n, ok := Traverse(s, s.Root, 0, func(*Block, int) {}, TraverseOptions[int]{})
	require.True(t, ok)
	assert.Equal(t, len(s.Blocks), n)
}
