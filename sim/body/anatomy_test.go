package body

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAnatomy_Structure(t *testing.T) {
	s := DefaultAnatomy(2).Build(NewHumanMeta(Profile{}))

	assert.Equal(t, Heart, s.Root)
	assert.Equal(t, Neck, s.CerebralBranch)
	assert.Equal(t, Trachea, s.AirwayRoot)
	assert.Equal(t, Heart, s.Names()[0], "insertion order starts at the root")

	units := 0
	for _, b := range s.Blocks {
		if b.Kind == KindRespiratoryUnit {
			units++
			assert.Equal(t, 2, b.Depth)
			assert.Equal(t, 40.0, b.Params.AlveolarCO2)
		}
	}
	assert.Equal(t, 8, units)

	for _, name := range []string{Brain, LeftThigh, RightHand, Pelvis} {
		assert.True(t, s.Has(name), name)
	}
}

func TestDefaultAnatomy_SharesNeverExceedFull(t *testing.T) {
	// Every block's outgoing blood shares (towards children) stay <= 100%.
	s := DefaultAnatomy(1).Build(NewHumanMeta(Profile{}))
	type acc struct{ parent string }
	Traverse(s, s.Root, acc{}, func(*Block, acc) {}, TraverseOptions[acc]{
		PrepareEdges: func(b *Block, _ acc, edges []Edge[acc]) ([]Edge[acc], Control) {
			sum := 0.0
			for _, e := range edges {
				if e.Conn.Blood {
					sum += e.Conn.BloodSharePercent
				}
			}
			assert.LessOrEqual(t, sum, 100.0, b.Name)
			return edges, Continue
		},
	})
}

func TestAnatomy_ConnectionSharedByBothEndpoints(t *testing.T) {
	a := NewAnatomy("A", KindHeart).Child("A", "B", KindLimb, ConnectionParams{Blood: true, BloodSharePercent: 40})
	s := a.Build(NewHumanMeta(Profile{}))

	ba, _ := s.Block("A")
	bb, _ := s.Block("B")
	require.Len(t, ba.Links, 1)
	require.Len(t, bb.Links, 1)
	assert.Equal(t, ba.Links[0].Conn, bb.Links[0].Conn)
	assert.Same(t, s.Connection(ba.Links[0]), s.Connection(bb.Links[0]))
}

func TestAnatomy_PanicsOnBadBuild(t *testing.T) {
	assert.PanicsWithValue(t, `anatomy: duplicate block "A"`, func() {
		NewAnatomy("A", KindHeart).AddBlock("A", KindTissue)
	})
	assert.Panics(t, func() {
		NewAnatomy("A", KindHeart).Connect("A", "missing", ConnectionParams{})
	})
}

func TestBodyState_CloneIsIndependent(t *testing.T) {
	s := DefaultAnatomy(1).Build(NewHumanMeta(Profile{}))
	s.Variables.Chemicals["morphine"] = 5

	c := s.Clone()
	b, _ := c.Block(LeftThigh)
	b.Params.ExternalBleeding = 1
	c.Variables.Chemicals["morphine"] = 50
	c.Variables.BloodVolume = 1

	orig, _ := s.Block(LeftThigh)
	assert.Zero(t, orig.Params.ExternalBleeding)
	assert.Equal(t, 5.0, s.Variables.Chemicals["morphine"])
	assert.NotEqual(t, 1.0, s.Variables.BloodVolume)
}

func TestNewHumanMeta_Defaults(t *testing.T) {
	m := NewHumanMeta(Profile{})
	assert.Equal(t, 70.0, m.WeightKg)
	assert.Equal(t, 4900.0, m.InitialBloodVolume)
	assert.Equal(t, 70.0, m.HeartRate.Min)
	// resting resistance reproduces the resting MAP
	co := m.EjectionFraction * m.EndDiastolicVolume * m.HeartRate.Min / 1000
	assert.InDelta(t, 90, co*m.Resistance.Min, 1e-9)

	old := NewHumanMeta(Profile{WeightKg: 80, Age: 70})
	assert.Equal(t, 150.0, old.HeartRate.Max)
	assert.Equal(t, 5600.0, old.InitialBloodVolume)
}

func TestBounds_Scale(t *testing.T) {
	b := Bounds{Min: 10, Max: 20}
	assert.Equal(t, 10.0, b.Scale(0))
	assert.Equal(t, 15.0, b.Scale(0.5))
	assert.Equal(t, 20.0, b.Scale(1))
}

func TestVitals_Collapse(t *testing.T) {
	v := Vitals{Arrest: Arrest{Arrested: true, Time: 1234}}
	v.Cardio.HeartRate = 80
	v.Respiration.SaO2 = 0.9
	v.Collapse()
	assert.Zero(t, v.Cardio.HeartRate)
	assert.Zero(t, v.Respiration.SaO2)
	assert.Equal(t, 3.0, v.Neuro.GlasgowComaScale)
	assert.Equal(t, Arrest{Arrested: true, Time: 1234}, v.Arrest)
}
