package cmd

import (
	"fmt"
	"math"
	"slices"

	"github.com/triage-sim/triage-sim/sim"
	"github.com/triage-sim/triage-sim/sim/body"
	"github.com/triage-sim/triage-sim/sim/content"
	"github.com/triage-sim/triage-sim/sim/world"
)

// defaultFirstEventID keeps generated injury ids clear of hand-written ones.
const defaultFirstEventID = 1_000_000

// Generator scatters random casualties over a rectangular area, each with
// a random profile and one injury at t=0.
type Generator struct {
	Count        int         `yaml:"count"`
	Prefix       string      `yaml:"prefix"` // default "casualty"
	Min          world.Point `yaml:"min"`
	Max          world.Point `yaml:"max"`
	WeightKg     body.Bounds `yaml:"weight_kg"`
	Age          body.Bounds `yaml:"age"`
	Injuries     []string    `yaml:"injuries"`
	FirstEventID int64       `yaml:"first_event_id"`
}

// Validate checks the generator's ranges.
func (g *Generator) Validate() error {
	if g.Count < 0 {
		return fmt.Errorf("count must be non-negative, got %d", g.Count)
	}
	if g.Count > 0 && len(g.Injuries) == 0 {
		return fmt.Errorf("injuries must not be empty")
	}
	if g.Min.X > g.Max.X || g.Min.Y > g.Max.Y {
		return fmt.Errorf("area min %v exceeds max %v", g.Min, g.Max)
	}
	for name, b := range map[string]body.Bounds{"weight_kg": g.WeightKg, "age": g.Age} {
		if b.Min < 0 || b.Min > b.Max {
			return fmt.Errorf("%s range [%v, %v] is invalid", name, b.Min, b.Max)
		}
	}
	return nil
}

// generated is what a Generator produced.
type generated struct {
	Entities []EntityEntry
	Events   []world.Event
}

// Generate draws the casualties from the scenario stream of seed. The
// result depends only on the generator and the seed.
func (g *Generator) Generate(seed int64, reg *content.Registry) (generated, error) {
	var out generated
	if g == nil || g.Count == 0 {
		return out, nil
	}
	for _, id := range g.Injuries {
		if _, err := reg.Injury(id); err != nil {
			return out, err
		}
	}
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(seed)).ForSubsystem(sim.SubsystemScenario)
	prefix := g.Prefix
	if prefix == "" {
		prefix = "casualty"
	}
	nextID := g.FirstEventID
	if nextID == 0 {
		nextID = defaultFirstEventID
	}
	draw := func(b body.Bounds) float64 { return b.Scale(rng.Float64()) }
	for i := 1; i <= g.Count; i++ {
		id := fmt.Sprintf("%s%d", prefix, i)
		loc := world.Point{
			X: g.Min.X + rng.Float64()*(g.Max.X-g.Min.X),
			Y: g.Min.Y + rng.Float64()*(g.Max.Y-g.Min.Y),
		}
		profile := &body.Profile{
			WeightKg: math.Round(draw(g.WeightKg)),
			Age:      math.Round(draw(g.Age)),
		}
		injury := g.Injuries[rng.Intn(len(g.Injuries))]
		out.Entities = append(out.Entities, EntityEntry{
			ID:         id,
			EntitySpec: world.EntitySpec{Kind: world.KindCasualty, Profile: profile, Location: loc},
		})
		out.Events = append(out.Events, world.Event{
			ID:            nextID,
			ReceivedOrder: nextID,
			Entity:        id,
			Payload:       world.InjuryPayload{Injury: injury},
		})
		nextID++
	}
	return out, nil
}

// checkCollisions rejects generated ids already used by the scenario.
func (sc *Scenario) checkCollisions(gen generated) error {
	for _, e := range gen.Entities {
		if slices.ContainsFunc(sc.Entities, func(x EntityEntry) bool { return x.ID == e.ID }) {
			return fmt.Errorf("generated entity %q collides with a scenario entity", e.ID)
		}
	}
	for i := range sc.Syncs {
		for _, ev := range sc.Syncs[i].Events {
			for _, gev := range gen.Events {
				if ev.ID == gev.ID {
					return fmt.Errorf("generated event id %d collides with a scenario event", ev.ID)
				}
			}
		}
	}
	return nil
}
