package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triage-sim/triage-sim/sim/body"
	"github.com/triage-sim/triage-sim/sim/content"
	"github.com/triage-sim/triage-sim/sim/world"
)

func testGenerator() *Generator {
	return &Generator{
		Count:    4,
		Min:      world.Point{X: 10, Y: 10},
		Max:      world.Point{X: 30, Y: 20},
		WeightKg: body.Bounds{Min: 60, Max: 90},
		Age:      body.Bounds{Min: 20, Max: 60},
		Injuries: []string{"limb_hemorrhage", "head_trauma"},
	}
}

func TestGenerator_DeterministicPerSeed(t *testing.T) {
	reg, err := content.Default()
	require.NoError(t, err)
	g := testGenerator()

	a, err := g.Generate(3, reg)
	require.NoError(t, err)
	b, err := g.Generate(3, reg)
	require.NoError(t, err)
	c, err := g.Generate(4, reg)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestGenerator_StaysInRanges(t *testing.T) {
	reg, err := content.Default()
	require.NoError(t, err)

	got, err := testGenerator().Generate(11, reg)
	require.NoError(t, err)

	require.Len(t, got.Entities, 4)
	require.Len(t, got.Events, 4)
	for i, e := range got.Entities {
		assert.Equal(t, world.KindCasualty, e.Kind)
		assert.True(t, e.Location.X >= 10 && e.Location.X <= 30, "x %v outside the area", e.Location.X)
		assert.True(t, e.Location.Y >= 10 && e.Location.Y <= 20, "y %v outside the area", e.Location.Y)
		assert.GreaterOrEqual(t, e.Profile.WeightKg, 60.0)
		assert.LessOrEqual(t, e.Profile.WeightKg, 90.0)

		ev := got.Events[i]
		assert.Equal(t, e.ID, ev.Entity)
		assert.Equal(t, int64(defaultFirstEventID+i), ev.ID)
		assert.Zero(t, ev.SimTime)
		assert.Contains(t, []string{"limb_hemorrhage", "head_trauma"}, ev.Payload.(world.InjuryPayload).Injury)
	}
	assert.Equal(t, "casualty1", got.Entities[0].ID)
}

func TestGenerator_Rejects(t *testing.T) {
	reg, err := content.Default()
	require.NoError(t, err)

	g := testGenerator()
	g.Injuries = []string{"plague"}
	_, err = g.Generate(1, reg)
	assert.ErrorIs(t, err, content.ErrUnknownInjury)

	tests := []struct {
		name   string
		mutate func(g *Generator)
	}{
		{"negative count", func(g *Generator) { g.Count = -1 }},
		{"no injuries", func(g *Generator) { g.Injuries = nil }},
		{"inverted area", func(g *Generator) { g.Min.X = 40 }},
		{"inverted weight", func(g *Generator) { g.WeightKg = body.Bounds{Min: 90, Max: 60} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := testGenerator()
			tt.mutate(g)
			assert.Error(t, g.Validate())
		})
	}
}

func TestScenario_GeneratedCollisions(t *testing.T) {
	reg, err := content.Default()
	require.NoError(t, err)
	sc := &Scenario{Entities: []EntityEntry{{ID: "casualty2"}}}
	gen, err := testGenerator().Generate(1, reg)
	require.NoError(t, err)

	assert.ErrorContains(t, sc.checkCollisions(gen), "casualty2")
}

func TestRunScenario_GeneratedCasualties(t *testing.T) {
	// GIVEN a scenario made only of generated casualties
	path := writeScenario(t, `
seed: 5
horizon_s: 120
generate:
  count: 3
  prefix: gen
  max: {x: 50, y: 50}
  injuries: [limb_hemorrhage]
`)
	sc, err := LoadScenario(path)
	require.NoError(t, err)

	// WHEN it runs
	var out bytes.Buffer
	require.NoError(t, runScenario(context.Background(), sc, runOptions{}, &out))

	// THEN every casualty carries its injury from t=0
	r := decodeReport(t, out.String())
	require.Len(t, r.Casualties, 3)
	assert.Equal(t, "gen1", r.Casualties[0].ID)
	for _, c := range r.Casualties {
		assert.Equal(t, []string{"limb_hemorrhage"}, c.Pathologies)
		assert.Len(t, c.Samples, 3)
	}
}
