package cmd

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/triage-sim/triage-sim/sim"
	"github.com/triage-sim/triage-sim/sim/content"
	"github.com/triage-sim/triage-sim/sim/world"
)

// Scenario is a scripted exercise: who is on the ground and which event
// batches the host hands over at which times.
type Scenario struct {
	Seed         *int64        `yaml:"seed"`
	Content      string        `yaml:"content"` // content file, empty for the embedded defaults
	StepMs       int64         `yaml:"step_ms"`
	ReachMeters  float64       `yaml:"reach_m"`
	WalkSpeed    float64       `yaml:"walk_speed"`
	HorizonS     float64       `yaml:"horizon_s"`
	ReportEveryS float64       `yaml:"report_every_s"`
	Generate     *Generator    `yaml:"generate"`
	Entities     []EntityEntry `yaml:"entities"`
	Syncs        []SyncEntry   `yaml:"syncs"`
}

// EntityEntry registers one entity.
type EntityEntry struct {
	ID               string `yaml:"id"`
	world.EntitySpec `yaml:",inline"`
}

// SyncEntry is one synchronization pass.
type SyncEntry struct {
	NowS   float64      `yaml:"now_s"`
	Events []EventEntry `yaml:"events"`
}

// EventEntry is one event; exactly one payload field must be set.
type EventEntry struct {
	ID            int64   `yaml:"id"`
	ReceivedOrder int64   `yaml:"received_order"` // defaults to position in the file
	AtS           float64 `yaml:"at_s"`
	Entity        string  `yaml:"entity"`

	Injury *world.InjuryPayload `yaml:"injury"`
	Action *ActionEntry         `yaml:"action"`
	Cancel *int64               `yaml:"cancel"`
	Move   *world.Point         `yaml:"move"`
	Place  *world.Point         `yaml:"place"`
}

// ActionEntry is an action payload; set Act or Item and Action.
type ActionEntry struct {
	Actor  string `yaml:"actor"`
	Act    string `yaml:"act"`
	Item   string `yaml:"item"`
	Action string `yaml:"action"`
	Block  string `yaml:"block"`
}

// LoadScenario reads a scenario file with strict field checking.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

// Validate checks the scenario's structure. Event semantics are checked by
// the manager during the run.
func (sc *Scenario) Validate() error {
	if sc.HorizonS < 0 || sc.ReportEveryS < 0 {
		return fmt.Errorf("horizon_s and report_every_s must be non-negative")
	}
	if sc.Generate != nil {
		if err := sc.Generate.Validate(); err != nil {
			return fmt.Errorf("generate: %w", err)
		}
	}
	ids := make(map[string]bool, len(sc.Entities))
	for i, e := range sc.Entities {
		if e.ID == "" {
			return fmt.Errorf("entity %d: id is required", i)
		}
		if ids[e.ID] {
			return fmt.Errorf("entity %q declared twice", e.ID)
		}
		ids[e.ID] = true
	}
	last := math.Inf(-1)
	for i, s := range sc.Syncs {
		if s.NowS < last {
			return fmt.Errorf("sync %d: now_s %v is before the previous sync", i, s.NowS)
		}
		last = s.NowS
		for j, ev := range s.Events {
			if _, err := ev.payload(); err != nil {
				return fmt.Errorf("sync %d event %d: %w", i, j, err)
			}
		}
	}
	return nil
}

// Config returns the engine configuration, scenario values overriding the
// defaults.
func (sc *Scenario) Config() sim.SimConfig {
	cfg := sim.DefaultSimConfig()
	if sc.Seed != nil {
		cfg.Seed = *sc.Seed
	}
	if sc.StepMs > 0 {
		cfg.StepMs = sc.StepMs
	}
	if sc.ReachMeters > 0 {
		cfg.ReachMeters = sc.ReachMeters
	}
	if sc.WalkSpeed > 0 {
		cfg.WalkSpeed = sc.WalkSpeed
	}
	return cfg
}

// Horizon returns the reporting horizon in ms: horizon_s, or the last sync.
func (sc *Scenario) Horizon() int64 {
	if sc.HorizonS > 0 {
		return seconds(sc.HorizonS)
	}
	if n := len(sc.Syncs); n > 0 {
		return seconds(sc.Syncs[n-1].NowS)
	}
	return 0
}

// ReportEvery returns the report sampling period in ms (one minute default).
func (sc *Scenario) ReportEvery() int64 {
	if sc.ReportEveryS > 0 {
		return seconds(sc.ReportEveryS)
	}
	return 60000
}

// Events converts a sync's events. Received order defaults to the position
// of the event in the whole file.
func (sc *Scenario) Events(i int) []world.Event {
	offset := 0
	for _, s := range sc.Syncs[:i] {
		offset += len(s.Events)
	}
	out := make([]world.Event, 0, len(sc.Syncs[i].Events))
	for j, e := range sc.Syncs[i].Events {
		p, _ := e.payload()
		order := e.ReceivedOrder
		if order == 0 {
			order = int64(offset + j + 1)
		}
		out = append(out, world.Event{
			ID:            e.ID,
			ReceivedOrder: order,
			SimTime:       seconds(e.AtS),
			Entity:        e.Entity,
			Payload:       p,
		})
	}
	return out
}

// pass is one synchronization pass ready for the manager.
type pass struct {
	Now    int64
	Events []world.Event
}

// passes returns the scenario's passes with the generated injuries added to
// the first one, or to a pass at t=0 when the scenario has none.
func (sc *Scenario) passes(gen generated) []pass {
	out := make([]pass, 0, len(sc.Syncs)+1)
	for i, s := range sc.Syncs {
		out = append(out, pass{Now: seconds(s.NowS), Events: sc.Events(i)})
	}
	if len(gen.Events) == 0 {
		return out
	}
	if len(out) == 0 {
		return []pass{{Now: 0, Events: gen.Events}}
	}
	out[0].Events = append(slices.Clone(gen.Events), out[0].Events...)
	return out
}

func (e EventEntry) payload() (world.Payload, error) {
	var set []world.Payload
	if e.Injury != nil {
		set = append(set, *e.Injury)
	}
	if e.Action != nil {
		src := content.Act(e.Action.Act)
		if e.Action.Item != "" {
			src = content.ItemAction(e.Action.Item, e.Action.Action)
		}
		set = append(set, world.ActionPayload{Actor: e.Action.Actor, Source: src, Block: e.Action.Block})
	}
	if e.Cancel != nil {
		set = append(set, world.CancelPayload{Target: *e.Cancel})
	}
	if e.Move != nil {
		set = append(set, world.MovePayload{Destination: *e.Move})
	}
	if e.Place != nil {
		set = append(set, world.PlacePayload{Location: *e.Place})
	}
	if len(set) != 1 {
		return nil, fmt.Errorf("event %d must have exactly one of injury, action, cancel, move, place (got %d)", e.ID, len(set))
	}
	return set[0], nil
}

func seconds(s float64) int64 {
	return int64(math.Round(s * 1000))
}
