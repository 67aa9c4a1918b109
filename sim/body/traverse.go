package body

// Control steers a traversal from PrepareEdges.
type Control int

const (
	// Continue follows the returned edges.
	Continue Control = iota
	// Break stops exploring from the current block only.
	Break
	// Return aborts the whole walk.
	Return
)

// Edge is an outgoing link considered by a traversal, carrying a payload
// computed by PrepareEdges for the target block.
type Edge[P any] struct {
	From    string
	Link    Link
	Conn    *ConnectionParams
	Payload P
}

// TraverseOptions are the optional hooks of Traverse.
type TraverseOptions[P any] struct {
	// Leave is called once all blocks reached through b have been visited.
	// It is not called for blocks still open when the walk is aborted.
	Leave func(b *Block, in P)
	// ShouldFollow prunes edges before PrepareEdges sees them.
	ShouldFollow func(from *Block, e Edge[P]) bool
	// PrepareEdges attaches payloads to the edges of b and may reorder or
	// drop them.
	PrepareEdges func(b *Block, in P, edges []Edge[P]) ([]Edge[P], Control)
}

type frame[P any] struct {
	idx     int
	payload P
	leave   bool
}

// Traverse walks the blocks reachable from start depth-first, visiting each
// block exactly once. It uses an explicit stack so deep airway subdivision
// cannot grow the goroutine stack. Edges leading to already visited blocks
// are never offered to the hooks. Returns the number of visited blocks and
// false if the walk was aborted with Return or start does not exist.
func Traverse[P any](state *BodyState, start string, initial P, enter func(b *Block, in P), opts TraverseOptions[P]) (int, bool) {
	si, ok := state.index[start]
	if !ok {
		return 0, false
	}
	visited := make([]bool, len(state.Blocks))
	stack := []frame[P]{{idx: si, payload: initial}}
	count := 0

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		b := &state.Blocks[f.idx]

		if f.leave {
			opts.Leave(b, f.payload)
			continue
		}
		if visited[f.idx] {
			continue
		}
		visited[f.idx] = true
		count++
		enter(b, f.payload)
		if opts.Leave != nil {
			stack = append(stack, frame[P]{idx: f.idx, payload: f.payload, leave: true})
		}

		edges := make([]Edge[P], 0, len(b.Links))
		for _, l := range b.Links {
			if visited[state.index[l.Target]] {
				continue
			}
			e := Edge[P]{From: b.Name, Link: l, Conn: &state.Connections[l.Conn]}
			if opts.ShouldFollow != nil && !opts.ShouldFollow(b, e) {
				continue
			}
			edges = append(edges, e)
		}

		control := Continue
		if opts.PrepareEdges != nil {
			edges, control = opts.PrepareEdges(b, f.payload, edges)
		}
		switch control {
		case Return:
			return count, false
		case Break:
			continue
		}

		// Push in reverse so the first edge is explored first.
		for i := len(edges) - 1; i >= 0; i-- {
			stack = append(stack, frame[P]{idx: state.index[edges[i].Link.Target], payload: edges[i].Payload})
		}
	}
	return count, true
}
