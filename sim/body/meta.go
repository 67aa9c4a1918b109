package body

import "math"

// Bounds is the physiological range of a regulated vital. Min is the
// resting value, Max the fully stimulated one.
type Bounds struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Scale maps a normalized response in [0,1] into the bounds.
func (b Bounds) Scale(x float64) float64 {
	return b.Min + x*(b.Max-b.Min)
}

// Profile describes an individual before derivation of HumanMeta.
type Profile struct {
	WeightKg float64 `yaml:"weight_kg"`
	Age      float64 `yaml:"age"`
}

// HumanMeta holds per-individual constants. Computed once at creation and
// never regenerated during a run.
type HumanMeta struct {
	WeightKg             float64
	DeadSpace            float64 // mL
	CO2Production        float64 // mL/min
	Hemoglobin           float64 // g/dL
	Hematocrit           float64 // fraction
	InitialBloodVolume   float64 // mL
	EndDiastolicVolume   float64 // mL
	EjectionFraction     float64
	CerebralBaselineFlow float64 // mL/min

	HeartRate       Bounds
	RespiratoryRate Bounds
	TidalVolume     Bounds
	Resistance      Bounds
}

const (
	defaultWeightKg = 70.0
	defaultAge      = 35.0
	restingMAP      = 90.0
)

// NewHumanMeta derives constants from a profile. Zero fields of the
// profile take adult defaults.
func NewHumanMeta(p Profile) HumanMeta {
	w := p.WeightKg
	if w <= 0 {
		w = defaultWeightKg
	}
	age := p.Age
	if age <= 0 {
		age = defaultAge
	}

	edv := 120 * w / defaultWeightKg
	ef := 0.6
	restHR := 70.0
	restCO := ef * edv * restHR / 1000
	restR := restingMAP / restCO
	maxHR := math.Min(180, 220-age)

	return HumanMeta{
		WeightKg:             w,
		DeadSpace:            2.2 * w,
		CO2Production:        3 * w,
		Hemoglobin:           15,
		Hematocrit:           0.45,
		InitialBloodVolume:   70 * w,
		EndDiastolicVolume:   edv,
		EjectionFraction:     ef,
		CerebralBaselineFlow: 750,
		HeartRate:            Bounds{Min: restHR, Max: maxHR},
		RespiratoryRate:      Bounds{Min: 14, Max: 36},
		TidalVolume:          Bounds{Min: 7 * w, Max: 12 * w},
		Resistance:           Bounds{Min: restR, Max: restR * 1.7},
	}
}
