package physio

import (
	"math"
	"sort"
	"strings"

	"github.com/triage-sim/triage-sim/sim/body"
)

// ChemicalMetricPrefix selects the plasma concentration (mg/L) of a chemical.
const ChemicalMetricPrefix = "chemical."

var metrics = map[string]func(s *body.BodyState, meta body.HumanMeta) float64{
	"heartRate":         func(s *body.BodyState, _ body.HumanMeta) float64 { return s.Vitals.Cardio.HeartRate },
	"map":               func(s *body.BodyState, _ body.HumanMeta) float64 { return s.Vitals.Cardio.MeanArterialPressure },
	"systolic":          func(s *body.BodyState, _ body.HumanMeta) float64 { return s.Vitals.Cardio.SystolicPressure },
	"diastolic":         func(s *body.BodyState, _ body.HumanMeta) float64 { return s.Vitals.Cardio.DiastolicPressure },
	"cardiacOutput":     func(s *body.BodyState, _ body.HumanMeta) float64 { return s.Vitals.Cardio.CardiacOutput },
	"strokeVolume":      func(s *body.BodyState, _ body.HumanMeta) float64 { return s.Vitals.Cardio.StrokeVolume },
	"respiratoryRate":   func(s *body.BodyState, _ body.HumanMeta) float64 { return s.Vitals.Respiration.RespiratoryRate },
	"tidalVolume":       func(s *body.BodyState, _ body.HumanMeta) float64 { return s.Vitals.Respiration.TidalVolume },
	"sao2":              func(s *body.BodyState, _ body.HumanMeta) float64 { return s.Vitals.Respiration.SaO2 },
	"pao2":              func(s *body.BodyState, _ body.HumanMeta) float64 { return s.Vitals.Respiration.PaO2 },
	"paco2":             func(s *body.BodyState, _ body.HumanMeta) float64 { return s.Vitals.Respiration.PaCO2 },
	"gcs":               func(s *body.BodyState, _ body.HumanMeta) float64 { return math.Round(s.Vitals.Neuro.GlasgowComaScale) },
	"cerebralFlow":      func(s *body.BodyState, _ body.HumanMeta) float64 { return s.Vitals.Neuro.CerebralFlow },
	"icp":               func(s *body.BodyState, _ body.HumanMeta) float64 { return s.Variables.IntracranialPressure },
	"bloodVolume":       func(s *body.BodyState, _ body.HumanMeta) float64 { return s.Variables.BloodVolume },
	"compensationLevel": func(s *body.BodyState, _ body.HumanMeta) float64 { return s.Variables.CompensationLevel },
	"bloodLossRatio": func(s *body.BodyState, m body.HumanMeta) float64 {
		if m.InitialBloodVolume <= 0 {
			return 0
		}
		return math.Max(0, 1-s.Variables.BloodVolume/m.InitialBloodVolume)
	},
	"pain": func(s *body.BodyState, _ body.HumanMeta) float64 {
		p := 0.0
		for i := range s.Blocks {
			if s.Blocks[i].Params.NervousConduction {
				p = math.Max(p, s.Blocks[i].Params.Pain)
			}
		}
		return p
	},
	"capillaryRefill": func(s *body.BodyState, _ body.HumanMeta) float64 {
		// seconds; prolonged by low pressure and vasoconstriction
		m := s.Vitals.Cardio.MeanArterialPressure
		if m <= 0 {
			return math.Inf(1)
		}
		return 1.5 * math.Max(1, 70/m) * (1 + s.Variables.CompensationLevel/100)
	},
}

// MetricNames lists the metrics Metric understands, besides chemicals.
func MetricNames() []string {
	names := make([]string, 0, len(metrics))
	for n := range metrics {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// IsMetric reports whether name can be measured.
func IsMetric(name string) bool {
	if strings.HasPrefix(name, ChemicalMetricPrefix) {
		return len(name) > len(ChemicalMetricPrefix)
	}
	_, ok := metrics[name]
	return ok
}

// Metric reads a named quantity from a body. Chemical concentrations need
// the chemical's kinetics; a chemical without kinetics reads as zero.
func Metric(s *body.BodyState, meta body.HumanMeta, chemicals map[string]Kinetics, name string) (float64, bool) {
	if id, ok := strings.CutPrefix(name, ChemicalMetricPrefix); ok && id != "" {
		k, known := chemicals[id]
		vd := k.VdLPerKg * meta.WeightKg
		if !known || vd <= 0 {
			return 0, true
		}
		return s.Variables.Chemicals[id] / vd, true
	}
	f, ok := metrics[name]
	if !ok {
		return 0, false
	}
	return f(s, meta), true
}
