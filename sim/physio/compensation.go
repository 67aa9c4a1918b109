package physio

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/triage-sim/triage-sim/sim/body"
)

// Stimulus sums the configured stimulus curves over the current metrics.
// Unknown metrics contribute nothing.
func Stimulus(s *body.BodyState, meta body.HumanMeta, cfg *Config) float64 {
	total := 0.0
	for _, st := range cfg.Compensation.Stimuli {
		x, ok := Metric(s, meta, cfg.Chemicals, st.Metric)
		if !ok {
			logrus.Debugf("compensation: unknown stimulus metric %q", st.Metric)
			continue
		}
		total += st.Curve.At(x)
	}
	return total
}

// Compensate relaxes the compensation level towards the clamped stimulus
// over dtMin minutes, then sets every regulated vital from its response
// curve within the body's bounds. Respiratory rate and tidal volume are
// left alone while breathing is assisted. Nothing happens after arrest.
func Compensate(s *body.BodyState, meta body.HumanMeta, cfg *Config, dtMin float64) {
	if s.Vitals.Arrest.Arrested {
		return
	}
	target := math.Max(0, math.Min(100, Stimulus(s, meta, cfg)))
	level := s.Variables.CompensationLevel
	if dtMin > 0 && cfg.Compensation.TimeConstantMin > 0 {
		level += (target - level) * (1 - math.Exp(-dtMin/cfg.Compensation.TimeConstantMin))
	}
	s.Variables.CompensationLevel = level

	for _, name := range RegulatedVitals {
		curve, ok := cfg.Compensation.Responses[name]
		if !ok {
			continue
		}
		x := clamp01(curve.At(level))
		switch name {
		case VitalHeartRate:
			s.Vitals.Cardio.HeartRate = meta.HeartRate.Scale(x)
		case VitalResistance:
			s.Vitals.Cardio.ArterialResistance = meta.Resistance.Scale(x)
		case VitalRespiratoryRate:
			if s.Variables.SpontaneousBreathing {
				s.Vitals.Respiration.RespiratoryRate = meta.RespiratoryRate.Scale(x)
			}
		case VitalTidalVolume:
			if s.Variables.SpontaneousBreathing {
				s.Vitals.Respiration.TidalVolume = meta.TidalVolume.Scale(x)
			}
		}
	}
}
