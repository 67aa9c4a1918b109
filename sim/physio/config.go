package physio

import (
	"fmt"

	"github.com/triage-sim/triage-sim/sim"
)

// Environment holds ambient parameters.
type Environment struct {
	AtmosphericPressure  float64 `yaml:"atmospheric_pressure"` // mmHg
	FiO2                 float64 `yaml:"fio2"`                 // inspired O2 fraction
	LungVasoconstriction bool    `yaml:"lung_vasoconstriction"`
}

// DefaultEnvironment is sea level, room air.
func DefaultEnvironment() Environment {
	return Environment{AtmosphericPressure: 760, FiO2: 0.21, LungVasoconstriction: true}
}

// Kinetics are the elimination parameters of a chemical.
type Kinetics struct {
	ClearanceMlPerMin float64 `yaml:"clearance_ml_per_min"` // renal clearance
	VdLPerKg          float64 `yaml:"vd_l_per_kg"`          // volume of distribution
	HalfLifeMin       float64 `yaml:"half_life_min"`        // non-renal half-life
}

// StimulusCurve maps a metric to a sympathetic stimulus contribution.
type StimulusCurve struct {
	Metric string `yaml:"metric"`
	Curve  Curve  `yaml:"curve"`
}

// Regulated vital names understood by the compensation engine.
const (
	VitalHeartRate       = "heartRate"
	VitalRespiratoryRate = "respiratoryRate"
	VitalTidalVolume     = "tidalVolume"
	VitalResistance      = "resistance"
)

// RegulatedVitals lists the vitals under autonomic control, in the order
// they are updated.
var RegulatedVitals = []string{VitalHeartRate, VitalRespiratoryRate, VitalTidalVolume, VitalResistance}

// CompensationConfig configures the autonomic feedback loop.
type CompensationConfig struct {
	Stimuli []StimulusCurve `yaml:"stimuli"`
	// Responses maps a regulated vital to a curve over the level (0..100)
	// returning a normalized response in [0,1].
	Responses       map[string]Curve `yaml:"responses"`
	TimeConstantMin float64          `yaml:"time_constant_min"`
}

// Validate checks curve shapes and response names.
func (c CompensationConfig) Validate() error {
	for i, s := range c.Stimuli {
		if s.Metric == "" {
			return fmt.Errorf("stimulus %d has no metric", i)
		}
		if err := s.Curve.Validate(); err != nil {
			return fmt.Errorf("stimulus %q: %w", s.Metric, err)
		}
	}
	known := map[string]bool{}
	for _, v := range RegulatedVitals {
		known[v] = true
	}
	for name, curve := range c.Responses {
		if !known[name] {
			return fmt.Errorf("unknown regulated vital %q", name)
		}
		if err := curve.Validate(); err != nil {
			return fmt.Errorf("response %q: %w", name, err)
		}
	}
	if c.TimeConstantMin <= 0 {
		return fmt.Errorf("compensation time constant must be > 0, got %v", c.TimeConstantMin)
	}
	return nil
}

// Config is everything the physiology passes read besides the body itself.
type Config struct {
	Sim          sim.SimConfig
	Env          Environment
	Compensation CompensationConfig
	Chemicals    map[string]Kinetics
}
