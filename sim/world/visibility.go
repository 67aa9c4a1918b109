package world

import (
	"fmt"

	"github.com/triage-sim/triage-sim/sim/body"
)

// EntityView is what an observer knows about another entity.
type EntityView struct {
	ID       string
	Kind     EntityKind
	Visible  bool
	Location Point
	SeenAt   int64           // time of the sighting Location comes from
	Body     *body.BodyState // visible casualties only
}

type sighting struct {
	Time     int64
	Location Point
	Moving   bool
}

// View returns the entities an observer sees at t through its line-of-sight
// polygon, in registration order. Entities out of sight are listed at their
// last known location when they were standing still at that sighting; those
// last seen moving are forgotten.
func (m *Manager) View(observer string, t int64, sight Polygon) ([]EntityView, error) {
	if _, ok := m.entities[observer]; !ok {
		return nil, fmt.Errorf("observer %q: %w", observer, ErrUnknownEntity)
	}
	if t < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTime, t)
	}
	known, ok := m.sightings[observer]
	if !ok {
		known = make(map[string]sighting)
		m.sightings[observer] = known
	}

	var views []EntityView
	for _, id := range m.order {
		if id == observer {
			continue
		}
		e := m.entities[id]
		loc, moving := e.locationAt(t, m.simCfg.WalkSpeed)
		if sight.Contains(loc) {
			known[id] = sighting{Time: t, Location: loc, Moving: moving}
			v := EntityView{ID: id, Kind: e.spec.Kind, Visible: true, Location: loc, SeenAt: t}
			if e.spec.Kind == KindCasualty {
				snap, _ := m.SnapshotAt(id, t)
				v.Body = snap.State.Body
				if snap.Time < t {
					v.Body = m.derive(e, snap, t).Body
				}
			}
			views = append(views, v)
			continue
		}
		last, seen := known[id]
		if !seen {
			continue
		}
		if last.Moving {
			delete(known, id)
			continue
		}
		views = append(views, EntityView{ID: id, Kind: e.spec.Kind, Location: last.Location, SeenAt: last.Time})
	}
	return views, nil
}
