package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triage-sim/triage-sim/sim/body"
	"github.com/triage-sim/triage-sim/sim/content"
	"github.com/triage-sim/triage-sim/sim/trace"
)

func TestDelayedQueue_OrdersByDueThenID(t *testing.T) {
	q := NewDelayedQueue()
	q.Schedule(&DelayedAction{ID: 3, Due: 2000})
	q.Schedule(&DelayedAction{ID: 9, Due: 1000})
	q.Schedule(&DelayedAction{ID: 1, Due: 2000})
	q.Schedule(&DelayedAction{ID: 4, Due: 5000})

	var got []int64
	for d := q.PopDue(2000); d != nil; d = q.PopDue(2000) {
		got = append(got, d.ID)
	}

	assert.Equal(t, []int64{9, 1, 3}, got)
	require.Equal(t, 1, q.Len())
	assert.Equal(t, int64(4), q.Peek().ID)
}

func TestDelayedQueue_CancelAndPending(t *testing.T) {
	q := NewDelayedQueue()
	for i, due := range []int64{300, 100, 200} {
		q.Schedule(&DelayedAction{ID: int64(i + 1), Due: due})
	}

	d, ok := q.Cancel(3)
	require.True(t, ok)
	assert.Equal(t, int64(200), d.Due)
	_, ok = q.Cancel(3)
	assert.False(t, ok)

	pending := q.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, int64(2), pending[0].ID)
	assert.Equal(t, int64(1), pending[1].ID)
	assert.Equal(t, 2, q.Len(), "Pending must not drain the queue")
	assert.Nil(t, NewDelayedQueue().Peek())
}

func TestSynchronize_TreatmentAppliesWhenDue(t *testing.T) {
	// GIVEN a thigh hemorrhage and a nurse starting a tourniquet at 60s
	m, _ := newTestManager(t, Options{})
	batch := []Event{tourniquet(2, minute), injury(1, 0, "v1", "limb_hemorrhage", body.LeftThigh)}

	// WHEN synchronizing before the 30s application time has elapsed
	rep, err := m.Synchronize(70*second, batch)
	require.NoError(t, err)

	// THEN the tourniquet is pending and has no effect yet
	assert.Equal(t, 2, rep.Ingested)
	assert.Zero(t, rep.Applied)
	require.Len(t, m.Pending(), 1)
	assert.Equal(t, 90*second, m.Pending()[0].Due)
	h, _ := m.Health("v1")
	assert.Empty(t, h.Effects)

	// WHEN time passes the due date
	rep, err = m.Synchronize(100*second, nil)
	require.NoError(t, err)

	// THEN the effect lands at its due time and bleeding stops
	assert.Equal(t, 1, rep.Applied)
	assert.Empty(t, m.Pending())
	h, _ = m.Health("v1")
	require.Len(t, h.Effects, 1)
	assert.Equal(t, 90*second, h.Effects[0].Time)
	assert.Equal(t, "tourniquet/apply", h.Effects[0].Action)
	assert.Contains(t, m.SnapshotTimes("v1"), 90*second)

	at5 := bodyAt(t, m, "v1", 5*minute)
	at10 := bodyAt(t, m, "v1", 10*minute)
	assert.Greater(t, at5.Variables.Balance.ExternalLoss, 0.0)
	assert.Equal(t, at5.Variables.Balance.ExternalLoss, at10.Variables.Balance.ExternalLoss)

	log := m.Log("medic")
	assert.Len(t, recordsOfKind(log, trace.KindActionStarted), 1)
	applied := recordsOfKind(log, trace.KindEffectApplied)
	require.Len(t, applied, 1)
	assert.Equal(t, 90*second, applied[0].Time)
}

func TestSynchronize_CancelRemovesPendingAction(t *testing.T) {
	m, _ := newTestManager(t, Options{})
	_, err := m.Synchronize(65*second, []Event{
		injury(1, 0, "v1", "limb_hemorrhage", body.LeftThigh),
		tourniquet(2, minute),
	})
	require.NoError(t, err)

	rep, err := m.Synchronize(75*second, []Event{{ID: 3, ReceivedOrder: 3, SimTime: 70 * second, Entity: "v1", Payload: CancelPayload{Target: 2}}})
	require.NoError(t, err)
	assert.Empty(t, rep.Failures)
	assert.Empty(t, m.Pending())

	rep, err = m.Synchronize(5*minute, nil)
	require.NoError(t, err)
	assert.Zero(t, rep.Applied)
	h, _ := m.Health("v1")
	assert.Empty(t, h.Effects)
	assert.Len(t, recordsOfKind(m.Log("medic"), trace.KindCancelled), 1)
}

func TestSynchronize_CancelByActor(t *testing.T) {
	// GIVEN the medic's pending tourniquet on v1
	m, _ := newTestManager(t, Options{})
	_, err := m.Synchronize(30*second, []Event{tourniquet(1, 10*second)})
	require.NoError(t, err)
	require.Len(t, m.Pending(), 1)

	// WHEN the medic itself cancels it
	rep, err := m.Synchronize(minute, []Event{{ID: 2, ReceivedOrder: 2, SimTime: 20 * second, Entity: "medic", Payload: CancelPayload{Target: 1}}})

	// THEN it never applies
	require.NoError(t, err)
	assert.Empty(t, rep.Failures)
	assert.Zero(t, rep.Applied)
	assert.Empty(t, m.Pending())
}

func TestSynchronize_CancelAfterDueIsRejected(t *testing.T) {
	m, _ := newTestManager(t, Options{})
	_, err := m.Synchronize(80*second, []Event{tourniquet(2, minute)})
	require.NoError(t, err)

	// The cancellation is stamped after the tourniquet was due at 90s.
	rep, err := m.Synchronize(100*second, []Event{{ID: 3, ReceivedOrder: 3, SimTime: 95 * second, Entity: "v1", Payload: CancelPayload{Target: 2}}})
	require.NoError(t, err)

	require.Len(t, rep.Failures, 1)
	assert.ErrorIs(t, rep.Failures[0].Err, ErrNotPending)
	assert.Equal(t, 1, rep.Applied)
}

func TestSynchronize_MeasurementLogsValuesAtCompletion(t *testing.T) {
	// GIVEN a nurse reading a pulse oximeter for 15s from t=10s
	m, _ := newTestManager(t, Options{})
	ev := action(1, 10*second, "v1", content.ItemAction("pulse_oximeter", "measure"), "")

	_, err := m.Synchronize(30*second, []Event{ev})
	require.NoError(t, err)

	// THEN the log holds the body's values at t=25s
	want := bodyAt(t, m, "v1", 25*second)
	got := recordsOfKind(m.Log("medic"), trace.KindMeasurement)
	require.Len(t, got, 2)
	assert.Equal(t, "sao2", got[0].Metric)
	assert.Equal(t, want.Vitals.Respiration.SaO2, got[0].Value)
	assert.Equal(t, "heartRate", got[1].Metric)
	assert.Equal(t, want.Vitals.Cardio.HeartRate, got[1].Value)
	assert.Equal(t, 25*second, got[1].Time)
	assert.Equal(t, "v1", got[1].Entity)

	// AND a measurement does not alter the timeline
	assert.NotContains(t, m.SnapshotTimes("v1"), 25*second)
}

func TestIngest_ZeroDurationActionAppliesImmediately(t *testing.T) {
	m, reg := newTestManager(t, Options{})
	reg.Acts["shout"] = &content.Action{
		ID: "shout", Kind: content.KindEffect,
		Rules: []content.RuleTemplate{{Variables: map[string]any{"position": "lying"}}},
	}

	require.NoError(t, m.Ingest(action(1, 2*second, "v1", content.Act("shout"), "")))

	assert.Empty(t, m.Pending())
	h, _ := m.Health("v1")
	require.Len(t, h.Effects, 1)
	assert.Equal(t, body.PositionLying, bodyAt(t, m, "v1", 3*second).Variables.Position)
}

func TestSynchronize_RetroactiveTreatmentRebuildsFuture(t *testing.T) {
	// GIVEN a bleeding casualty already simulated to 10 minutes
	m, _ := newTestManager(t, Options{})
	_, err := m.Synchronize(10*minute, []Event{injury(1, 0, "v1", "limb_hemorrhage", body.LeftThigh)})
	require.NoError(t, err)
	untreated, _ := m.SnapshotAt("v1", 10*minute)

	// WHEN a tourniquet started at 60s is reported late
	_, err = m.Synchronize(11*minute, []Event{tourniquet(2, minute)})
	require.NoError(t, err)

	// THEN the materialized 10 minute snapshot reflects it
	treated, _ := m.SnapshotAt("v1", 10*minute)
	assert.Equal(t, 10*minute, treated.Time)
	assert.Less(t, treated.State.Body.Variables.Balance.ExternalLoss, untreated.State.Body.Variables.Balance.ExternalLoss)
}
