package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(cx, cy, half float64) Polygon {
	return Polygon{{cx - half, cy - half}, {cx + half, cy - half}, {cx + half, cy + half}, {cx - half, cy + half}}
}

func move(id, at int64, entity string, to Point) Event {
	return Event{ID: id, ReceivedOrder: id, SimTime: at, Entity: entity, Payload: MovePayload{Destination: to}}
}

func place(id, at int64, entity string, to Point) Event {
	return Event{ID: id, ReceivedOrder: id, SimTime: at, Entity: entity, Payload: PlacePayload{Location: to}}
}

func TestMove_WalksAlongRouteAtWalkingSpeed(t *testing.T) {
	// GIVEN the nurse walking 14m east at 1.4 m/s from t=0
	m, _ := newTestManager(t, Options{})
	require.NoError(t, m.Ingest(move(1, 0, "medic", Point{X: 15})))

	// THEN after 5s it is 7m along and still moving, after 20s it has arrived
	mid, ok := m.StateAt("medic", 5*second)
	require.True(t, ok)
	assert.InDelta(t, 8, mid.Location.X, 1e-9)
	assert.True(t, mid.Moving)
	assert.Nil(t, mid.Body)

	end, _ := m.StateAt("medic", 20*second)
	assert.Equal(t, Point{X: 15}, end.Location)
	assert.False(t, end.Moving)
}

func TestMove_RetroactivePlacementReplansLaterLegs(t *testing.T) {
	m, _ := newTestManager(t, Options{})
	require.NoError(t, m.Ingest(move(1, 10*second, "v2", Point{X: 100, Y: 14})))
	require.NoError(t, m.Ingest(place(2, 5*second, "v2", Point{})))

	// The walk now starts from the origin, 100m further away.
	st, _ := m.StateAt("v2", 20*second)
	assert.True(t, st.Moving)
	assert.Less(t, st.Location.X, 20.0)
	assert.Equal(t, []int64{0, 5 * second, 10 * second}, m.SnapshotTimes("v2"))
}

func TestMove_SnapshotsCarryLocation(t *testing.T) {
	m, _ := newTestManager(t, Options{})
	snap, _ := m.SnapshotAt("v2", minute)
	require.Equal(t, Point{X: 100}, snap.State.Location)

	require.NoError(t, m.Ingest(place(1, 30*second, "v2", Point{X: 3, Y: 4})))

	snap, _ = m.SnapshotAt("v2", minute)
	assert.Equal(t, Point{X: 3, Y: 4}, snap.State.Location)
	assert.NotNil(t, snap.State.Body)
}

func TestView_FogOfWar(t *testing.T) {
	// GIVEN the nurse watching a 10m square around the origin, a runner
	// crossing it eastwards and v2 out of sight
	m, _ := newTestManager(t, Options{})
	require.NoError(t, m.AddEntity("runner", EntitySpec{Kind: KindResponder}))
	require.NoError(t, m.Ingest(move(1, 0, "runner", Point{X: 100})))
	sight := square(0, 0, 5)

	// WHEN looking at t=1s
	views, err := m.View("medic", second, sight)
	require.NoError(t, err)

	// THEN v1 and the runner are visible, v2 is unknown
	require.Len(t, views, 2)
	assert.Equal(t, "v1", views[0].ID)
	assert.True(t, views[0].Visible)
	require.NotNil(t, views[0].Body)
	assert.Equal(t, second, views[0].Body.Time)
	assert.Equal(t, "runner", views[1].ID)
	assert.Nil(t, views[1].Body)

	// WHEN v1 is carried away and the runner leaves
	require.NoError(t, m.Ingest(place(2, 5*second, "v1", Point{X: 50, Y: 50})))
	views, err = m.View("medic", 20*second, sight)
	require.NoError(t, err)

	// THEN v1 keeps its last static location and the runner is forgotten
	require.Len(t, views, 1)
	assert.Equal(t, "v1", views[0].ID)
	assert.False(t, views[0].Visible)
	assert.Equal(t, Point{}, views[0].Location)
	assert.Equal(t, second, views[0].SeenAt)
	assert.Nil(t, views[0].Body)
}

func TestView_Errors(t *testing.T) {
	m, _ := newTestManager(t, Options{})

	_, err := m.View("ghost", 0, square(0, 0, 5))
	assert.ErrorIs(t, err, ErrUnknownEntity)
	_, err = m.View("medic", -5, square(0, 0, 5))
	assert.ErrorIs(t, err, ErrInvalidTime)
}

func TestPolygon_Contains(t *testing.T) {
	// An L-shaped, concave area.
	l := Polygon{{0, 0}, {10, 0}, {10, 4}, {4, 4}, {4, 10}, {0, 10}}
	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"inside foot", Point{8, 2}, true},
		{"inside leg", Point{2, 8}, true},
		{"notch", Point{8, 8}, false},
		{"outside", Point{-1, 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, l.Contains(tt.p))
		})
	}
	assert.False(t, Polygon{{0, 0}, {1, 1}}.Contains(Point{0.5, 0.5}))
}

func TestLeg_PositionAlongWaypoints(t *testing.T) {
	l := leg{Start: 1000, Waypoints: []Point{{0, 0}, {3, 0}, {3, 4}}}

	p, moving := l.positionAt(3000, 2) // 4m along: 1m up the second segment
	assert.Equal(t, Point{3, 1}, p)
	assert.True(t, moving)

	p, moving = l.positionAt(10000, 2)
	assert.Equal(t, Point{3, 4}, p)
	assert.False(t, moving)
}
