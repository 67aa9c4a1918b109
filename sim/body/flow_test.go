package body

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlowDispatcher_Split_ConservesShares(t *testing.T) {
	tests := []struct {
		name     string
		children []ChildFlow
		wantOut  float64
		wantLost float64
	}{
		{
			name:     "all open",
			children: []ChildFlow{{Name: "a", SharePercent: 50}, {Name: "b", SharePercent: 30}},
			wantOut:  80,
		},
		{
			name:     "one blocked",
			children: []ChildFlow{{Name: "a", SharePercent: 50, Blocked: true}, {Name: "b", SharePercent: 30}},
			wantOut:  80,
		},
		{
			name:     "one resistive",
			children: []ChildFlow{{Name: "a", SharePercent: 50, Resistance: 0.5}, {Name: "b", SharePercent: 50}},
			wantOut:  100,
		},
		{
			name:     "all resistive",
			children: []ChildFlow{{Name: "a", SharePercent: 50, Resistance: 0.5}, {Name: "b", SharePercent: 50, Resistance: 0.2}},
			wantOut:  100,
		},
		{
			name:     "all blocked",
			children: []ChildFlow{{Name: "a", SharePercent: 60, Blocked: true}, {Name: "b", SharePercent: 40, Blocked: true}},
			wantOut:  0,
			wantLost: 100,
		},
	}
	d := FlowDispatcher{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Split(100, tt.children)
			assert.InDelta(t, tt.wantOut, got.Outgoing(), 1e-9)
			assert.InDelta(t, tt.wantLost, got.Lost, 1e-9)
			// no flow created or dropped
			assert.InDelta(t, 100, got.Outgoing()+got.Retained+got.Lost, 1e-9)
		})
	}
}

func TestFlowDispatcher_Split_RedistributesToUnconstricted(t *testing.T) {
	// GIVEN one blocked child and two open ones with 2:1 shares
	d := FlowDispatcher{}
	got := d.Split(90, []ChildFlow{
		{Name: "blocked", SharePercent: 30, Blocked: true},
		{Name: "a", SharePercent: 40},
		{Name: "b", SharePercent: 20},
	})

	// THEN the blocked share is split 2:1 between the open children
	assert.Zero(t, got.Flows[0])
	assert.InDelta(t, 36+18, got.Flows[1], 1e-9)
	assert.InDelta(t, 18+9, got.Flows[2], 1e-9)
}

func TestFlowDispatcher_Split_RenormalizesOverfullShares(t *testing.T) {
	// GIVEN shares summing to 150%
	d := FlowDispatcher{}
	got := d.Split(100, []ChildFlow{{SharePercent: 100}, {SharePercent: 50}})

	// THEN outgoing never exceeds incoming
	assert.InDelta(t, 100, got.Outgoing(), 1e-9)
	assert.InDelta(t, 200.0/3, got.Flows[0], 1e-9)
	assert.InDelta(t, 0, got.Retained, 1e-9)
}

func TestFlowDispatcher_Split_NoChildren(t *testing.T) {
	got := FlowDispatcher{}.Split(42, nil)
	assert.Equal(t, 42.0, got.Retained)
	assert.Empty(t, got.Flows)
}

func TestAutoregulation_Plateau(t *testing.T) {
	assert.Equal(t, 0.0, Autoregulation(-5))
	assert.InDelta(t, 0.5, Autoregulation(25), 1e-9)
	for _, cpp := range []float64{50, 80, 120, 150} {
		assert.Equal(t, 1.0, Autoregulation(cpp), "cpp=%v", cpp)
	}
	assert.InDelta(t, 1.2, Autoregulation(170), 1e-9)
	assert.Equal(t, 1.5, Autoregulation(400))
}

func TestFlowDispatcher_SplitRoot_HoldsCerebralFlow(t *testing.T) {
	// GIVEN a root with a cerebral branch and two other children
	children := []ChildFlow{
		{Name: Neck, SharePercent: 15},
		{Name: "trunk", SharePercent: 60},
		{Name: "arm", SharePercent: 25},
	}
	for _, mapValue := range []float64{70, 90, 140} {
		d := FlowDispatcher{MeanArterialPressure: mapValue, IntracranialPressure: 10, CerebralBaselineFlow: 750}

		// WHEN dispatching across a wide MAP range
		got := d.SplitRoot(5000, children, 0)

		// THEN cerebral flow stays at baseline and the rest is conserved
		assert.InDelta(t, 750, got.Flows[0], 1e-9, "map=%v", mapValue)
		assert.InDelta(t, 5000, got.Outgoing()+got.Retained+got.Lost, 1e-9)
	}
}

func TestFlowDispatcher_SplitRoot_LowPerfusionAndLowFlow(t *testing.T) {
	children := []ChildFlow{{Name: Neck, SharePercent: 15}, {Name: "trunk", SharePercent: 85}}

	// Low perfusion pressure reduces the cerebral share.
	d := FlowDispatcher{MeanArterialPressure: 35, IntracranialPressure: 10, CerebralBaselineFlow: 750}
	got := d.SplitRoot(5000, children, 0)
	assert.InDelta(t, 375, got.Flows[0], 1e-9)

	// Cerebral flow never exceeds the incoming flow.
	d.MeanArterialPressure = 90
	got = d.SplitRoot(300, children, 0)
	assert.InDelta(t, 300, got.Flows[0], 1e-9)
	assert.InDelta(t, 0, got.Flows[1], 1e-9)

	// A blocked branch gets nothing; everything else goes to the trunk.
	blocked := []ChildFlow{{Name: Neck, SharePercent: 15, Blocked: true}, {Name: "trunk", SharePercent: 85}}
	got = d.SplitRoot(1000, blocked, 0)
	assert.Zero(t, got.Flows[0])
	assert.InDelta(t, 1000, got.Flows[1], 1e-9)
}
