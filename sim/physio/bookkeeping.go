package physio

import (
	"math"

	"github.com/triage-sim/triage-sim/sim/body"
)

const (
	// Bleeding factors below this clot spontaneously.
	clotThreshold = 0.3
	clotTauMin    = 10.0
	clotResidual  = 1e-3
	traceAmount   = 1e-9 // mg
)

// bookkeep integrates blood volume, red cells, fluid inputs, spontaneous
// clotting and chemical elimination over dtMin minutes using the flows of
// the preceding compute pass. Volume changes are mirrored in the balance
// ledger so that volume change equals inputs minus losses.
func bookkeep(s *body.BodyState, meta body.HumanMeta, cfg *Config, perf Perfusion, dtMin float64) {
	if dtMin <= 0 {
		return
	}
	vars := &s.Variables

	ext, inn := 0.0, 0.0
	for i := range s.Blocks {
		flow := perf.Flow[i]
		if flow <= 0 {
			continue
		}
		p := &s.Blocks[i].Params
		open := 1 - clamp01(p.BleedingControl)
		ext += flow * clamp01(p.ExternalBleeding) * open
		inn += flow * clamp01(p.InternalBleeding) * open
	}
	extLoss, innLoss := ext*dtMin, inn*dtMin
	if total := extLoss + innLoss; total > vars.BloodVolume {
		f := math.Max(0, vars.BloodVolume) / total
		extLoss *= f
		innLoss *= f
	}
	saline := math.Max(0, vars.SalineInputRate) * dtMin
	blood := math.Max(0, vars.BloodInputRate) * dtMin

	redFraction := 0.0
	if vars.BloodVolume > 0 {
		redFraction = vars.RedCellVolume / vars.BloodVolume
	}
	loss := extLoss + innLoss
	vars.BloodVolume += saline + blood - loss
	vars.RedCellVolume = math.Max(0, vars.RedCellVolume-loss*redFraction+blood*meta.Hematocrit)
	vars.Balance.ExternalLoss += extLoss
	vars.Balance.InternalLoss += innLoss
	vars.Balance.SalineInput += saline
	vars.Balance.BloodInput += blood

	// Minor bleeds clot; compensation speeds it up, anticoagulation slows it.
	rate := math.Max(0, vars.Coagulation) * (1 + vars.CompensationLevel/100) / clotTauMin
	decay := math.Exp(-rate * dtMin)
	for i := range s.Blocks {
		p := &s.Blocks[i].Params
		p.ExternalBleeding = clot(p.ExternalBleeding, decay)
		p.InternalBleeding = clot(p.InternalBleeding, decay)
	}

	for id, amount := range vars.Chemicals {
		k, ok := cfg.Chemicals[id]
		if !ok {
			continue
		}
		amount *= math.Exp(-eliminationRate(k, meta) * dtMin)
		if amount < traceAmount {
			delete(vars.Chemicals, id)
			continue
		}
		vars.Chemicals[id] = amount
	}
}

func clot(factor, decay float64) float64 {
	if factor <= 0 || factor >= clotThreshold {
		return factor
	}
	factor *= decay
	if factor < clotResidual {
		return 0
	}
	return factor
}

// eliminationRate is the first-order elimination constant (1/min).
func eliminationRate(k Kinetics, meta body.HumanMeta) float64 {
	r := 0.0
	if k.HalfLifeMin > 0 {
		r += math.Ln2 / k.HalfLifeMin
	}
	if vd := k.VdLPerKg * meta.WeightKg * 1000; vd > 0 {
		r += k.ClearanceMlPerMin / vd
	}
	return r
}
