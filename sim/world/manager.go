// Package world keeps one snapshot timeline per entity and folds a stream of
// possibly out-of-order events into them. A retroactive event rebuilds every
// later snapshot of its entity; other entities are never touched.
package world

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/triage-sim/triage-sim/sim"
	"github.com/triage-sim/triage-sim/sim/body"
	"github.com/triage-sim/triage-sim/sim/content"
	"github.com/triage-sim/triage-sim/sim/physio"
	"github.com/triage-sim/triage-sim/sim/trace"
)

// Ingestion failures.
var (
	ErrUnknownEntity   = errors.New("unknown entity")
	ErrDuplicateEntity = errors.New("entity already registered")
	ErrInvalidTime     = errors.New("invalid simulated time")
	ErrDuplicateEvent  = errors.New("event already ingested")
	ErrInvalidEvent    = errors.New("invalid event")
	ErrNoBody          = errors.New("entity has no body")
	ErrOutOfReach      = errors.New("actor out of reach")
	ErrNotPending      = errors.New("no pending action to cancel")
)

// Options configures a Manager. Zero values are usable.
type Options struct {
	Pathfinder Pathfinder // nil routes in straight lines
	Metrics    *Collector // nil disables metrics
	Trace      trace.TraceConfig
}

// Manager owns the timelines, health aggregates and delayed actions of an
// exercise. It is not safe for concurrent use; the host serializes calls.
type Manager struct {
	reg        *content.Registry
	simCfg     sim.SimConfig
	cfg        *physio.Config
	anatomy    *body.Anatomy
	rng        *sim.PartitionedRNG
	pathfinder Pathfinder
	metrics    *Collector
	log        *trace.ObserverLog

	entities  map[string]*entity
	order     []string // registration order
	seen      map[int64]bool
	delayed   *DelayedQueue
	sightings map[string]map[string]sighting // observer → entity → last sighting
	now       int64
}

// NewManager creates a manager drawing content from reg.
func NewManager(reg *content.Registry, cfg sim.SimConfig, opts Options) (*Manager, error) {
	if reg == nil {
		return nil, fmt.Errorf("content registry is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sim config: %w", err)
	}
	if !trace.IsValidTraceLevel(string(opts.Trace.Level)) {
		return nil, fmt.Errorf("unknown trace level %q", opts.Trace.Level)
	}
	pf := opts.Pathfinder
	if pf == nil {
		pf = StraightLine{}
	}
	return &Manager{
		reg:        reg,
		simCfg:     cfg,
		cfg:        reg.PhysioConfig(cfg),
		anatomy:    reg.Anatomy(),
		rng:        sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed)),
		pathfinder: pf,
		metrics:    opts.Metrics,
		log:        trace.NewObserverLog(opts.Trace),
		entities:   make(map[string]*entity),
		seen:       make(map[int64]bool),
		delayed:    NewDelayedQueue(),
		sightings:  make(map[string]map[string]sighting),
	}, nil
}

// AddEntity registers an entity. Its timeline stays empty until first used.
func (m *Manager) AddEntity(id string, spec EntitySpec) error {
	if id == "" {
		return fmt.Errorf("entity id is required")
	}
	if _, ok := m.entities[id]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateEntity, id)
	}
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("entity %q: %w", id, err)
	}
	profile := m.reg.Human
	if spec.Profile != nil {
		profile = *spec.Profile
	}
	m.entities[id] = &entity{
		id:       id,
		spec:     spec,
		meta:     body.NewHumanMeta(profile),
		health:   &physio.Health{},
		timeline: &Timeline[EntityState]{},
	}
	m.order = append(m.order, id)
	return nil
}

// Entities returns the entity IDs in registration order.
func (m *Manager) Entities() []string {
	return slices.Clone(m.order)
}

// Spec returns the EntitySpec an entity was registered with.
func (m *Manager) Spec(id string) (EntitySpec, bool) {
	e, ok := m.entities[id]
	if !ok {
		return EntitySpec{}, false
	}
	return e.spec, true
}

// Meta returns the constants of an entity's body.
func (m *Manager) Meta(id string) (body.HumanMeta, bool) {
	e, ok := m.entities[id]
	if !ok {
		return body.HumanMeta{}, false
	}
	return e.meta, true
}

// Health returns a copy of an entity's pathologies and effects.
func (m *Manager) Health(id string) (*physio.Health, bool) {
	e, ok := m.entities[id]
	if !ok {
		return nil, false
	}
	return e.health.Clone(), true
}

// Now returns the time of the last synchronization.
func (m *Manager) Now() int64 { return m.now }

// Log returns an observer's log records.
func (m *Manager) Log(observer string) []trace.Record {
	return m.log.Log(observer)
}

// Trace returns the observer logs of every entity.
func (m *Manager) Trace() *trace.ObserverLog {
	return m.log.Clone()
}

// Pending returns the delayed actions not yet applied, in due order.
func (m *Manager) Pending() []*DelayedAction {
	return m.delayed.Pending()
}

// SnapshotTimes returns the times of an entity's materialized snapshots.
func (m *Manager) SnapshotTimes(id string) []int64 {
	e, ok := m.entities[id]
	if !ok {
		return nil
	}
	return e.timeline.Times()
}

// SnapshotAt returns the most recent snapshot of an entity at or before t.
// A query past the last stored snapshot is served from a catch-up snapshot
// on the integration grid point at or before t. Catch-ups are cached per
// entity outside the timeline, so SnapshotTimes depends only on the events
// ingested, never on the queries made. The result is a copy.
func (m *Manager) SnapshotAt(id string, t int64) (Snapshot[EntityState], bool) {
	e, ok := m.entities[id]
	if !ok || t < 0 {
		return Snapshot[EntityState]{}, false
	}
	m.ensureBaseline(e)
	last, _ := e.timeline.Last()
	g := t - floorMod(t, m.simCfg.StepMs)
	if g <= last.Time {
		s, _ := e.timeline.At(t)
		s.State = s.State.Clone()
		return s, true
	}
	from := last
	if c := e.catchUp; c != nil && c.Time > last.Time && c.Time <= g {
		from = *c
	}
	if from.Time < g {
		from = Snapshot[EntityState]{Time: g, State: m.derive(e, from, g)}
		m.metrics.RecordDerived(1)
	}
	e.catchUp = &from
	return Snapshot[EntityState]{Time: from.Time, State: from.State.Clone()}, true
}

// StateAt returns an entity's state at exactly t, derived from the snapshot
// at or before t. Nothing new is materialized beyond the lazy baseline.
func (m *Manager) StateAt(id string, t int64) (EntityState, bool) {
	e, ok := m.entities[id]
	if !ok || t < 0 {
		return EntityState{}, false
	}
	return m.stateAt(e, t).Clone(), true
}

// Ingest validates an event and folds it into its entity. A failed event
// leaves the manager as it was.
func (m *Manager) Ingest(ev Event) error {
	err := m.isolated(m.involved(ev), func() error { return m.ingest(ev) })
	if err != nil {
		m.metrics.RecordFailed(kindOf(ev))
		if p, ok := ev.Payload.(ActionPayload); ok {
			m.log.Record(trace.Record{
				Time: ev.SimTime, Observer: p.Actor, Entity: ev.Entity, EventID: ev.ID,
				Kind: trace.KindRejected, Action: p.Source.String(), Detail: err.Error(),
			})
		}
		return err
	}
	m.seen[ev.ID] = true
	m.metrics.RecordIngested(ev.Payload.Kind())
	m.updateStats()
	return nil
}

func (m *Manager) ingest(ev Event) error {
	if ev.Payload == nil {
		return fmt.Errorf("%v: %w: no payload", ev, ErrInvalidEvent)
	}
	if ev.SimTime < 0 {
		return fmt.Errorf("%v: %w", ev, ErrInvalidTime)
	}
	if m.seen[ev.ID] {
		return fmt.Errorf("%v: %w", ev, ErrDuplicateEvent)
	}
	e, ok := m.entities[ev.Entity]
	if !ok {
		return fmt.Errorf("%v: %w", ev, ErrUnknownEntity)
	}
	switch p := ev.Payload.(type) {
	case InjuryPayload:
		return m.ingestInjury(e, ev, p)
	case ActionPayload:
		return m.ingestAction(e, ev, p)
	case CancelPayload:
		return m.ingestCancel(ev, p)
	case MovePayload:
		return m.ingestMove(e, ev, p.Destination, false)
	case PlacePayload:
		return m.ingestMove(e, ev, p.Location, true)
	}
	return fmt.Errorf("%v: %w: unsupported payload %T", ev, ErrInvalidEvent, ev.Payload)
}

func (m *Manager) ingestInjury(e *entity, ev Event, p InjuryPayload) error {
	if e.spec.Kind != KindCasualty {
		return fmt.Errorf("%v: %w", ev, ErrNoBody)
	}
	in, err := m.reg.Injury(p.Injury)
	if err != nil {
		return fmt.Errorf("%v: %w", ev, err)
	}
	stream := sim.SubsystemInjury(ev.ID)
	defer m.rng.Release(stream)
	path, err := in.Instantiate(m.rng.ForSubsystem(stream), p.Block)
	if err != nil {
		return fmt.Errorf("%v: %w", ev, err)
	}
	path.ID = strconv.FormatInt(ev.ID, 10)
	path.Time = ev.SimTime
	path.Key = orderKey(ev)
	e.health.AddPathology(path)
	logrus.Debugf("%v: %s on %v", ev, p.Injury, path.Blocks)
	m.recompute(e, ev.SimTime)
	return nil
}

func (m *Manager) ingestAction(target *entity, ev Event, p ActionPayload) error {
	actor, ok := m.entities[p.Actor]
	if !ok {
		return fmt.Errorf("%v: actor %q: %w", ev, p.Actor, ErrUnknownEntity)
	}
	if target.spec.Kind != KindCasualty {
		return fmt.Errorf("%v: %w", ev, ErrNoBody)
	}
	action, err := m.reg.ResolveAction(p.Source)
	if err != nil {
		return fmt.Errorf("%v: %w", ev, err)
	}
	duration, err := action.DurationFor(actor.spec.Skill)
	if err != nil {
		return fmt.Errorf("%v: %w", ev, err)
	}
	var rules []physio.Rule
	if action.Kind == content.KindEffect {
		if rules, err = action.Instantiate(p.Block); err != nil {
			return fmt.Errorf("%v: %w", ev, err)
		}
	}
	if actor != target {
		from, _ := actor.locationAt(ev.SimTime, m.simCfg.WalkSpeed)
		to, _ := target.locationAt(ev.SimTime, m.simCfg.WalkSpeed)
		if d := from.Distance(to); d > m.simCfg.ReachMeters {
			return fmt.Errorf("%v: %w: %.1fm > %.1fm", ev, ErrOutOfReach, d, m.simCfg.ReachMeters)
		}
	}

	d := &DelayedAction{ID: ev.ID, Due: ev.SimTime + duration, Resolved: action, Rules: rules, Origin: ev}
	if duration == 0 {
		if err := m.apply(d); err != nil {
			return err
		}
	} else {
		m.delayed.Schedule(d)
	}
	m.log.Record(trace.Record{
		Time: ev.SimTime, Observer: p.Actor, Entity: ev.Entity, EventID: ev.ID,
		Kind: trace.KindActionStarted, Action: p.Source.String(),
	})
	return nil
}

func (m *Manager) ingestCancel(ev Event, p CancelPayload) error {
	d, ok := m.delayed.Cancel(p.Target)
	if !ok {
		return fmt.Errorf("%v: %w: %d", ev, ErrNotPending, p.Target)
	}
	if ev.SimTime >= d.Due {
		m.delayed.Schedule(d)
		return fmt.Errorf("%v: %w: %d was due at t=%d", ev, ErrNotPending, p.Target, d.Due)
	}
	// Only the target or the actor of the pending action may cancel it.
	if ev.Entity != d.Origin.Entity && ev.Entity != d.payload().Actor {
		m.delayed.Schedule(d)
		return fmt.Errorf("%v: %w: %d belongs to %s and %s", ev, ErrNotPending, p.Target, d.Origin.Entity, d.payload().Actor)
	}
	m.log.Record(trace.Record{
		Time: ev.SimTime, Observer: d.payload().Actor, Entity: d.Origin.Entity, EventID: d.ID,
		Kind: trace.KindCancelled, Action: d.payload().Source.String(),
	})
	return nil
}

func (m *Manager) ingestMove(e *entity, ev Event, target Point, teleport bool) error {
	orders := append(slices.Clone(e.moves), moveOrder{Event: ev, Target: target, Teleport: teleport})
	slices.SortStableFunc(orders, func(a, b moveOrder) int { return compareEvents(a.Event, b.Event) })
	legs, err := planLegs(e.spec.Location, orders, m.pathfinder, m.simCfg.WalkSpeed)
	if err != nil {
		return err
	}
	e.moves, e.legs = orders, legs
	m.recompute(e, ev.SimTime)
	return nil
}

// orderKey ranks the rules an event contributes against simultaneous ones,
// independent of how the log was batched.
func orderKey(ev Event) physio.OrderKey {
	return physio.OrderKey{EventTime: ev.SimTime, ReceivedOrder: ev.ReceivedOrder, EventID: ev.ID}
}

// apply performs a due action on its target.
func (m *Manager) apply(d *DelayedAction) error {
	p := d.payload()
	e, ok := m.entities[d.Origin.Entity]
	if !ok {
		return fmt.Errorf("%v: %w", d.Origin, ErrUnknownEntity)
	}
	switch d.Resolved.Kind {
	case content.KindEffect:
		var blocks []string
		if p.Block != "" {
			blocks = []string{p.Block}
		}
		e.health.AddEffect(physio.Effect{
			ID:     strconv.FormatInt(d.ID, 10),
			Action: p.Source.String(),
			Actor:  p.Actor,
			Key:    orderKey(d.Origin),
			Time:   d.Due,
			Blocks: blocks,
			Rules:  d.Rules,
		})
		m.recompute(e, d.Due)
		m.log.Record(trace.Record{
			Time: d.Due, Observer: p.Actor, Entity: e.id, EventID: d.ID,
			Kind: trace.KindEffectApplied, Action: p.Source.String(),
		})
	case content.KindMeasure:
		st := m.stateAt(e, d.Due)
		for _, metric := range d.Resolved.Metrics {
			v, ok := physio.Metric(st.Body, e.meta, m.cfg.Chemicals, metric)
			if !ok {
				logrus.Warnf("%v: unknown metric %q", d.Origin, metric)
				continue
			}
			m.log.Record(trace.Record{
				Time: d.Due, Observer: p.Actor, Entity: e.id, EventID: d.ID,
				Kind: trace.KindMeasurement, Action: p.Source.String(), Metric: metric, Value: v,
			})
		}
	default:
		return fmt.Errorf("%v: unknown action kind %q", d.Origin, d.Resolved.Kind)
	}
	m.metrics.RecordApplied()
	return nil
}

// ensureBaseline lazily creates the snapshot at t=0.
func (m *Manager) ensureBaseline(e *entity) {
	if e.timeline.Len() > 0 {
		return
	}
	e.timeline.Put(Snapshot[EntityState]{Time: 0, State: m.baseline(e)})
	m.metrics.RecordDerived(1)
}

// recompute (re)derives the snapshot at t and every later one.
func (m *Manager) recompute(e *entity, t int64) {
	m.ensureBaseline(e)
	e.catchUp = nil
	var i int
	if t == 0 {
		i = e.timeline.Put(Snapshot[EntityState]{Time: 0, State: m.baseline(e)})
	} else {
		prev, _ := e.timeline.At(t - 1)
		i = e.timeline.Put(Snapshot[EntityState]{Time: t, State: m.derive(e, prev, t)})
	}
	e.timeline.Rederive(i+1, func(prev Snapshot[EntityState], at int64) EntityState {
		return m.derive(e, prev, at)
	})
	m.metrics.RecordDerived(e.timeline.Len() - i)
	logrus.Debugf("entity %q: recomputed %d snapshots from t=%d", e.id, e.timeline.Len()-i, t)
}

// stateAt derives the state at exactly t without storing it.
func (m *Manager) stateAt(e *entity, t int64) EntityState {
	m.ensureBaseline(e)
	prev, _ := e.timeline.At(t)
	if prev.Time == t {
		return prev.State
	}
	return m.derive(e, prev, t)
}

func (m *Manager) baseline(e *entity) EntityState {
	st := EntityState{}
	if e.spec.Kind == KindCasualty {
		b := physio.CreateBody(m.anatomy, e.meta, m.cfg)
		st.Body = physio.Settle(b, e.meta, m.cfg, e.health.Pathologies, e.health.Effects)
	}
	st.Location, st.Moving = e.locationAt(0, m.simCfg.WalkSpeed)
	return st
}

func (m *Manager) derive(e *entity, prev Snapshot[EntityState], t int64) EntityState {
	st := EntityState{}
	if prev.State.Body != nil {
		st.Body = physio.Advance(prev.State.Body, e.meta, m.cfg, t-prev.Time, e.health.Pathologies, e.health.Effects)
	}
	st.Location, st.Moving = e.locationAt(t, m.simCfg.WalkSpeed)
	return st
}

// involved returns the entities an event may modify.
func (m *Manager) involved(ev Event) []string {
	ids := []string{ev.Entity}
	switch p := ev.Payload.(type) {
	case ActionPayload:
		ids = append(ids, p.Actor)
	case CancelPayload:
		for _, d := range m.delayed.items {
			if d.ID == p.Target {
				ids = append(ids, d.Origin.Entity)
			}
		}
	}
	return ids
}

func (m *Manager) updateStats() {
	if m.metrics == nil {
		return
	}
	arrested, snapshots := 0, 0
	for _, e := range m.entities {
		snapshots += e.timeline.Len()
		if last, ok := e.timeline.Last(); ok && last.State.Body != nil && last.State.Body.Vitals.Arrest.Arrested {
			arrested++
		}
	}
	m.metrics.UpdateWorldStats(m.delayed.Len(), arrested, snapshots)
}

func kindOf(ev Event) PayloadKind {
	if ev.Payload == nil {
		return "none"
	}
	return ev.Payload.Kind()
}

func floorMod(a, b int64) int64 {
	r := a % b
	if r < 0 {
		r += b
	}
	return r
}
