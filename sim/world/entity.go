package world

import (
	"fmt"
	"sort"

	"github.com/triage-sim/triage-sim/sim/body"
	"github.com/triage-sim/triage-sim/sim/physio"
)

// EntityKind distinguishes bodies from responders.
type EntityKind string

const (
	// KindCasualty has a body that can be injured, treated and measured.
	KindCasualty EntityKind = "casualty"
	// KindResponder acts and observes but has no simulated body.
	KindResponder EntityKind = "responder"
)

// EntitySpec describes an entity when it joins the exercise.
type EntitySpec struct {
	Kind     EntityKind    `json:"kind" yaml:"kind"`
	Profile  *body.Profile `json:"profile,omitempty" yaml:"profile,omitempty"` // nil uses the content human
	Location Point         `json:"location" yaml:"location"`
	Skill    string        `json:"skill,omitempty" yaml:"skill,omitempty"`
}

// Validate checks the entity kind and profile.
func (s EntitySpec) Validate() error {
	switch s.Kind {
	case KindCasualty, KindResponder:
	default:
		return fmt.Errorf("unknown entity kind %q", s.Kind)
	}
	if s.Profile != nil && (s.Profile.WeightKg < 0 || s.Profile.Age < 0) {
		return fmt.Errorf("profile must be non-negative, got %+v", *s.Profile)
	}
	return nil
}

// EntityState is what a snapshot holds for one entity.
type EntityState struct {
	Body     *body.BodyState // nil for responders
	Location Point
	Moving   bool
}

// Clone returns a deep copy.
func (s EntityState) Clone() EntityState {
	if s.Body != nil {
		s.Body = s.Body.Clone()
	}
	return s
}

// moveOrder is a movement event kept for replanning.
type moveOrder struct {
	Event    Event
	Target   Point
	Teleport bool
}

type entity struct {
	id       string
	spec     EntitySpec
	meta     body.HumanMeta
	health   *physio.Health
	moves    []moveOrder
	legs     []leg
	timeline *Timeline[EntityState]

	// catchUp is the latest grid snapshot derived past the timeline for a
	// query. It is never part of the timeline.
	catchUp *Snapshot[EntityState]
}

// locationAt derives the position at t from the planned legs.
func (e *entity) locationAt(t int64, speed float64) (Point, bool) {
	i := sort.Search(len(e.legs), func(i int) bool { return e.legs[i].Start > t })
	if i == 0 {
		return e.spec.Location, false
	}
	return e.legs[i-1].positionAt(t, speed)
}

// planLegs replans every leg from the move orders. Each leg starts where
// the previous one had taken the entity at the order's time.
func planLegs(start Point, orders []moveOrder, pf Pathfinder, speed float64) ([]leg, error) {
	legs := make([]leg, 0, len(orders))
	for _, o := range orders {
		from := start
		if n := len(legs); n > 0 {
			from, _ = legs[n-1].positionAt(o.Event.SimTime, speed)
		}
		if o.Teleport {
			legs = append(legs, leg{Start: o.Event.SimTime, Waypoints: []Point{o.Target}})
			continue
		}
		wp, err := pf.Route(from, o.Target)
		if err != nil {
			return nil, fmt.Errorf("routing %v: %w", o.Event, err)
		}
		if len(wp) == 0 {
			return nil, fmt.Errorf("routing %v: empty route", o.Event)
		}
		legs = append(legs, leg{Start: o.Event.SimTime, Waypoints: wp})
	}
	return legs, nil
}

// entityBackup holds what an ingestion may change on one entity.
type entityBackup struct {
	health   *physio.Health
	moves    []moveOrder
	legs     []leg
	timeline *Timeline[EntityState]
}

func (e *entity) backup() entityBackup {
	return entityBackup{
		health:   e.health.Clone(),
		moves:    append([]moveOrder(nil), e.moves...),
		legs:     append([]leg(nil), e.legs...),
		timeline: e.timeline.Clone(),
	}
}

func (e *entity) restore(b entityBackup) {
	e.health = b.health
	e.moves = b.moves
	e.legs = b.legs
	e.timeline = b.timeline
	e.catchUp = nil
}
