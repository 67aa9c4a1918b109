package physio

import (
	"cmp"
	"slices"

	"github.com/triage-sim/triage-sim/sim/body"
)

// Rule is a frozen, instantiated timed modification. It activates at its
// owner's start time plus Offset.
type Rule struct {
	Offset        int64  // ms after the owner's start time
	Block         string // target block, empty for variable-only rules
	BlockPatch    []body.BlockPatch
	VariablePatch []body.VariablePatch
}

// OrderKey identifies the event an owner originates from. Simultaneous rules
// apply in owner start time order, then by this key.
type OrderKey struct {
	EventTime     int64
	ReceivedOrder int64
	EventID       int64
}

// Compare orders keys by event time, receipt order, then event id.
func (k OrderKey) Compare(o OrderKey) int {
	if c := cmp.Compare(k.EventTime, o.EventTime); c != 0 {
		return c
	}
	if c := cmp.Compare(k.ReceivedOrder, o.ReceivedOrder); c != 0 {
		return c
	}
	return cmp.Compare(k.EventID, o.EventID)
}

// AfflictedPathology is an instantiated injury attached to a body.
type AfflictedPathology struct {
	ID     string // instance id, unique per body
	Injury string // injury definition id
	Key    OrderKey
	Time   int64 // ms
	Blocks []string
	Rules  []Rule
}

// Effect is an instantiated action result attached to a body.
type Effect struct {
	ID     string
	Action string
	Actor  string
	Key    OrderKey // the originating action event, not the completion
	Time   int64
	Blocks []string
	Rules  []Rule
}

// Health is the append-only record of pathologies and effects of one body.
type Health struct {
	Pathologies []AfflictedPathology
	Effects     []Effect
}

// AddPathology registers a pathology.
func (h *Health) AddPathology(p AfflictedPathology) {
	h.Pathologies = append(h.Pathologies, p)
}

// AddEffect registers an effect.
func (h *Health) AddEffect(e Effect) {
	h.Effects = append(h.Effects, e)
}

// Clone returns an independent copy. Rules are immutable and shared.
func (h *Health) Clone() *Health {
	return &Health{
		Pathologies: append([]AfflictedPathology(nil), h.Pathologies...),
		Effects:     append([]Effect(nil), h.Effects...),
	}
}

type scheduledRule struct {
	at    int64
	start int64
	key   OrderKey
	order int
	rule  *Rule
}

// collectRules returns the rules activating in (from, to], ordered by
// activation time, owner start time, owner key, then rule position. The
// order depends only on the owners, never on when they were registered.
func collectRules(from, to int64, pathologies []AfflictedPathology, effects []Effect) []scheduledRule {
	var out []scheduledRule
	add := func(start int64, key OrderKey, rules []Rule) {
		for i := range rules {
			at := start + rules[i].Offset
			if at > from && at <= to {
				out = append(out, scheduledRule{at: at, start: start, key: key, order: i, rule: &rules[i]})
			}
		}
	}
	for i := range pathologies {
		add(pathologies[i].Time, pathologies[i].Key, pathologies[i].Rules)
	}
	for i := range effects {
		add(effects[i].Time, effects[i].Key, effects[i].Rules)
	}
	slices.SortStableFunc(out, func(a, b scheduledRule) int {
		if c := cmp.Compare(a.at, b.at); c != 0 {
			return c
		}
		if c := cmp.Compare(a.start, b.start); c != 0 {
			return c
		}
		if c := a.key.Compare(b.key); c != 0 {
			return c
		}
		return cmp.Compare(a.order, b.order)
	})
	return out
}
