package physio

import (
	"math"
	"sort"

	"github.com/triage-sim/triage-sim/sim/body"
)

const (
	waterVaporPressure  = 47.0 // mmHg
	respiratoryQuotient = 0.8
	co2Conversion       = 0.863 // mmHg·L/mL at body temperature
	maxAlveolarCO2      = 100.0 // mixed venous ceiling, mmHg
	alveolarCO2TauMin   = 1.0
	alveolarArterialGap = 5.0 // mmHg

	// An unconscious patient not in recovery position partially obstructs
	// their own airway.
	obstructionGCS    = 8.0
	obstructedAirflow = 0.6
	vasoconstrictionK = 0.3 // limb resistance added at full compensation
	hpvPasses         = 3
	hpvMaxDepth       = 4
	hpvMinWeight      = 0.2
	hpvReferencePAO2  = 100.0
)

// UnitExchange is the gas exchange state of one respiratory unit.
type UnitExchange struct {
	Index       int // position in BodyState.Blocks
	Depth       int
	Ventilation float64 // fraction of alveolar ventilation
	Perfusion   float64 // fraction of pulmonary perfusion
	PAO2        float64 // mmHg
	PACO2       float64 // mmHg
	Saturation  float64
}

// Perfusion is the by-product of a compute pass consumed by bookkeeping.
type Perfusion struct {
	Flow  []float64 // mL/min entering each block, indexed like BodyState.Blocks
	Units []UnitExchange
	Lost  float64 // mL/min absorbed with no open child to receive it
}

type walkPayload struct {
	Blood float64 // mL/min
	Air   float64 // fraction of alveolar ventilation
	Perf  float64 // fraction of pulmonary perfusion
}

// Compute derives the vitals of a body from its current state over a step
// of dtMin minutes. Regulated vitals (heart rate, resistance, respiratory
// rate, tidal volume) are read, never written. The only state mutated is
// the alveolar CO2 of respiratory units, which relaxes towards its target
// with a one minute time constant; with dtMin = 0 it is left untouched.
func Compute(state *body.BodyState, meta body.HumanMeta, env Environment, dtMin float64) (body.Vitals, Perfusion) {
	v := state.Vitals
	perf := Perfusion{Flow: make([]float64, len(state.Blocks))}
	if v.Arrest.Arrested {
		v.Collapse()
		return v, perf
	}
	vars := &state.Variables

	// Cardiac output from the preload limits.
	edv := meta.EndDiastolicVolume
	volRatio := 0.0
	if meta.InitialBloodVolume > 0 {
		volRatio = vars.BloodVolume / meta.InitialBloodVolume
	}
	filling := clamp01((volRatio - 0.45) / 0.45)
	limit := math.Min(edv, edv*filling*filling)
	limit = math.Min(limit, edv*clamp01(1-vars.PericardialPressure/25))
	limit = math.Min(limit, edv*clamp01(1-vars.ThoracicPressure/30))
	sv := meta.EjectionFraction * limit
	hr := v.Cardio.HeartRate
	co := sv * hr / 1000
	mapP := co * v.Cardio.ArterialResistance
	pp := sv * 0.6

	v.Cardio.EndDiastolicVolume = limit
	v.Cardio.StrokeVolume = sv
	v.Cardio.CardiacOutput = co
	v.Cardio.MeanArterialPressure = mapP
	v.Cardio.SystolicPressure = mapP + pp*2/3
	v.Cardio.DiastolicPressure = math.Max(0, mapP-pp/3)

	// Effective ventilation.
	rr, tv := v.Respiration.RespiratoryRate, v.Respiration.TidalVolume
	if !vars.SpontaneousBreathing {
		rr, tv = vars.AssistedRespiratoryRate, vars.AssistedTidalVolume
	}
	patency := 1.0
	if vars.SpontaneousBreathing && v.Neuro.GlasgowComaScale <= obstructionGCS && vars.Position != body.PositionRecovery {
		patency = obstructedAirflow
	}

	dispatcher := body.FlowDispatcher{
		Vasoconstriction:     vasoconstrictionK * vars.CompensationLevel / 100,
		MeanArterialPressure: mapP,
		IntracranialPressure: vars.IntracranialPressure,
		CerebralBaselineFlow: meta.CerebralBaselineFlow,
	}
	walkBody(state, dispatcher, co*1000, patency, &perf)

	// Gas exchange.
	normalizeFractions(perf.Units)
	va := math.Max(0, rr*(tv-meta.DeadSpace))
	if env.LungVasoconstriction {
		redistributeHypoxic(perf.Units, meta, env, va)
	}
	alpha := 0.0
	if dtMin > 0 {
		alpha = 1 - math.Exp(-dtMin/alveolarCO2TauMin)
	}
	sat, pao2, paco2 := 0.0, 0.0, 0.0
	for i := range perf.Units {
		u := &perf.Units[i]
		b := &state.Blocks[u.Index]
		target := alveolarCO2Target(meta.CO2Production*u.Perfusion, va*u.Ventilation)
		b.Params.AlveolarCO2 += (target - b.Params.AlveolarCO2) * alpha
		u.PACO2 = b.Params.AlveolarCO2
		u.PAO2 = alveolarO2(env, u.PACO2)
		u.Saturation = Severinghaus(u.PAO2)
		sat += u.Perfusion * u.Saturation
		pao2 += u.Perfusion * u.PAO2
		paco2 += u.Perfusion * u.PACO2
	}
	pao2 = math.Max(0, pao2-alveolarArterialGap)

	hb := 0.0
	if vars.BloodVolume > 0 && meta.Hematocrit > 0 {
		hb = meta.Hemoglobin * (vars.RedCellVolume / vars.BloodVolume) / meta.Hematocrit
	}
	cao2 := 1.34*hb*sat + 0.003*pao2 // mL O2/dL

	v.Respiration.RespiratoryRate = rr
	v.Respiration.TidalVolume = tv
	v.Respiration.MinuteVentilation = rr * tv * patency
	v.Respiration.AlveolarVentilation = va * patency
	v.Respiration.SaO2 = sat
	v.Respiration.PaO2 = pao2
	v.Respiration.PaCO2 = paco2
	v.Respiration.O2Content = cao2
	v.Cardio.O2Delivery = co * cao2 * 10

	cerebral := 0.0
	if i, ok := state.Index(state.CerebralBranch); ok {
		cerebral = perf.Flow[i]
	}
	baseline := meta.CerebralBaselineFlow / 1000 * (1.34*meta.Hemoglobin*0.975 + 0.3) * 10
	brainDO2 := cerebral / 1000 * cao2 * 10
	v.Neuro.CerebralFlow = cerebral
	v.Neuro.CerebralPerfusion = mapP - vars.IntracranialPressure
	v.Neuro.O2Delivery = brainDO2
	ratio := 0.0
	if baseline > 0 {
		ratio = brainDO2 / baseline
	}
	v.Neuro.GlasgowComaScale = 3 + 12*clamp01((ratio-0.3)/0.5)
	return v, perf
}

// walkBody dispatches blood from the root and air from the airway entry in
// one traversal, recording per-block flow and respiratory units.
func walkBody(state *body.BodyState, d body.FlowDispatcher, cardiacOutput, patency float64, perf *Perfusion) {
	enter := func(b *body.Block, in walkPayload) {
		i, _ := state.Index(b.Name)
		perf.Flow[i] = in.Blood
		if b.Kind == body.KindRespiratoryUnit {
			perf.Units = append(perf.Units, UnitExchange{Index: i, Depth: b.Depth, Ventilation: in.Air, Perfusion: in.Perf})
		}
	}
	prepare := func(b *body.Block, in walkPayload, edges []body.Edge[walkPayload]) ([]body.Edge[walkPayload], body.Control) {
		var children []body.ChildFlow
		var bloodEdges []int
		cerebral := -1
		var airEdges []int
		for i, e := range edges {
			child, _ := state.Block(e.Link.Target)
			if e.Conn.Blood {
				r := child.Params.Resistance
				if child.Kind == body.KindLimb {
					r += d.Vasoconstriction
				}
				if b.Name == state.Root && child.Name == state.CerebralBranch {
					cerebral = len(children)
				}
				children = append(children, body.ChildFlow{
					Name:         child.Name,
					SharePercent: e.Conn.BloodSharePercent,
					Blocked:      !child.Params.BloodFlow,
					Resistance:   r,
				})
				bloodEdges = append(bloodEdges, i)
			}
			if e.Conn.AllowsO2 && isAirway(child.Kind) {
				airEdges = append(airEdges, i)
			}
		}
		if len(children) > 0 {
			var out body.Dispatch
			if cerebral >= 0 {
				out = d.SplitRoot(in.Blood, children, cerebral)
			} else {
				out = d.Split(in.Blood, children)
			}
			perf.Lost += out.Lost
			for j, ei := range bloodEdges {
				edges[ei].Payload.Blood = out.Flows[j]
			}
		}
		splitAir(state, b, in, edges, airEdges, patency)
		return edges, body.Continue
	}
	body.Traverse(state, state.Root, walkPayload{Blood: cardiacOutput}, enter, body.TraverseOptions[walkPayload]{PrepareEdges: prepare})
}

// splitAir hands ventilation and pulmonary perfusion fractions to airway
// children. Entering the airway from outside yields the whole ventilation.
func splitAir(state *body.BodyState, b *body.Block, in walkPayload, edges []body.Edge[walkPayload], airEdges []int, patency float64) {
	if len(airEdges) == 0 {
		return
	}
	if !isAirway(b.Kind) {
		for _, ei := range airEdges {
			child, _ := state.Block(edges[ei].Link.Target)
			if child.Params.AirFlow && !child.Params.Collapsed {
				edges[ei].Payload.Air = patency
			}
			edges[ei].Payload.Perf = 1
		}
		return
	}
	airW := make([]float64, len(airEdges))
	perfW := make([]float64, len(airEdges))
	airSum, perfSum := 0.0, 0.0
	for j, ei := range airEdges {
		child, _ := state.Block(edges[ei].Link.Target)
		if child.Params.AirFlow && !child.Params.Collapsed {
			airW[j] = math.Max(0, child.Params.Compliance)
		}
		if child.Params.BloodFlow {
			perfW[j] = 1
		}
		airSum += airW[j]
		perfSum += perfW[j]
	}
	for j, ei := range airEdges {
		if airSum > 0 {
			edges[ei].Payload.Air = in.Air * airW[j] / airSum
		}
		if perfSum > 0 {
			edges[ei].Payload.Perf = in.Perf * perfW[j] / perfSum
		}
	}
}

func isAirway(k body.Kind) bool {
	return k == body.KindAirway || k == body.KindRespiratoryUnit
}

// normalizeFractions rescales unit perfusion to sum to one so pulmonary
// flow cut off from some units is carried by the others.
func normalizeFractions(units []UnitExchange) {
	sum := 0.0
	for _, u := range units {
		sum += u.Perfusion
	}
	if sum <= 0 {
		return
	}
	for i := range units {
		units[i].Perfusion /= sum
	}
}

// redistributeHypoxic moves perfusion away from poorly oxygenated units.
// Units are grouped by depth into a balanced binary tree; at each node the
// node's total perfusion is split between its halves by their
// oxygenation-weighted perfusion. Total perfusion is conserved.
func redistributeHypoxic(units []UnitExchange, meta body.HumanMeta, env Environment, va float64) {
	if len(units) < 2 {
		return
	}
	order := make([]int, len(units))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return units[order[a]].Depth < units[order[b]].Depth })

	weight := func(i int) float64 {
		u := units[i]
		pao2 := alveolarO2(env, alveolarCO2Target(meta.CO2Production*u.Perfusion, va*u.Ventilation))
		return u.Perfusion * math.Max(hpvMinWeight, math.Min(1, pao2/hpvReferencePAO2))
	}
	var split func(lo, hi, depth int)
	split = func(lo, hi, depth int) {
		if hi-lo < 2 || depth >= hpvMaxDepth {
			return
		}
		mid := (lo + hi) / 2
		total, wl, wr := 0.0, 0.0, 0.0
		for k := lo; k < hi; k++ {
			total += units[order[k]].Perfusion
			if k < mid {
				wl += weight(order[k])
			} else {
				wr += weight(order[k])
			}
		}
		sumL := 0.0
		for k := lo; k < mid; k++ {
			sumL += units[order[k]].Perfusion
		}
		sumR := total - sumL
		if wl+wr > 0 && sumL > 0 && sumR > 0 {
			fl := total * wl / (wl + wr) / sumL
			fr := total * wr / (wl + wr) / sumR
			for k := lo; k < hi; k++ {
				if k < mid {
					units[order[k]].Perfusion *= fl
				} else {
					units[order[k]].Perfusion *= fr
				}
			}
		}
		split(lo, mid, depth+1)
		split(mid, hi, depth+1)
	}
	for p := 0; p < hpvPasses; p++ {
		split(0, len(order), 0)
	}
}

// alveolarCO2Target is the steady-state alveolar CO2 for a unit producing
// vco2 mL/min with va mL/min of alveolar ventilation.
func alveolarCO2Target(vco2, va float64) float64 {
	if vco2 <= 0 {
		return 0
	}
	if va <= 0 {
		return maxAlveolarCO2
	}
	return math.Min(maxAlveolarCO2, co2Conversion*vco2/(va/1000))
}

// alveolarO2 is the alveolar gas equation.
func alveolarO2(env Environment, paco2 float64) float64 {
	return math.Max(0, env.FiO2*(env.AtmosphericPressure-waterVaporPressure)-paco2/respiratoryQuotient)
}

// Severinghaus returns the hemoglobin saturation at a PO2 in mmHg.
func Severinghaus(po2 float64) float64 {
	if po2 <= 0 {
		return 0
	}
	return 1 / (23400/(po2*po2*po2+150*po2) + 1)
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
