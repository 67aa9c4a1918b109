package world

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/triage-sim/triage-sim/sim"
	"github.com/triage-sim/triage-sim/sim/body"
	"github.com/triage-sim/triage-sim/sim/content"
	"github.com/triage-sim/triage-sim/sim/trace"
)

const (
	second int64 = 1000
	minute int64 = 60 * second
)

// newTestManager returns a manager with two casualties, v1 at the origin and
// v2 far away, and a nurse standing next to v1.
func newTestManager(t *testing.T, opts Options) (*Manager, *content.Registry) {
	t.Helper()
	reg, err := content.Default()
	require.NoError(t, err)
	if opts.Trace.Level == "" {
		opts.Trace = trace.TraceConfig{Level: trace.TraceLevelActions}
	}
	m, err := NewManager(reg, sim.DefaultSimConfig(), opts)
	require.NoError(t, err)
	require.NoError(t, m.AddEntity("v1", EntitySpec{Kind: KindCasualty}))
	require.NoError(t, m.AddEntity("v2", EntitySpec{Kind: KindCasualty, Location: Point{X: 100}}))
	require.NoError(t, m.AddEntity("medic", EntitySpec{Kind: KindResponder, Location: Point{X: 1}, Skill: "nurse"}))
	return m, reg
}

func injury(id, at int64, entity, name, block string) Event {
	return Event{ID: id, ReceivedOrder: id, SimTime: at, Entity: entity,
		Payload: InjuryPayload{Injury: name, Block: block}}
}

func action(id, at int64, entity string, src content.ActionSource, block string) Event {
	return Event{ID: id, ReceivedOrder: id, SimTime: at, Entity: entity,
		Payload: ActionPayload{Actor: "medic", Source: src, Block: block}}
}

func tourniquet(id, at int64) Event {
	return action(id, at, "v1", content.ItemAction("tourniquet", "apply"), body.LeftThigh)
}

func bodyAt(t *testing.T, m *Manager, id string, at int64) *body.BodyState {
	t.Helper()
	st, ok := m.StateAt(id, at)
	require.True(t, ok)
	require.NotNil(t, st.Body)
	return st.Body
}

func recordsOfKind(rs []trace.Record, kind trace.RecordKind) []trace.Record {
	var out []trace.Record
	for _, r := range rs {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}
