package body

import (
	"math"

	"github.com/sirupsen/logrus"
)

const shareEpsilon = 1e-9

// ChildFlow describes one child of a block for flow dispatching.
type ChildFlow struct {
	Name         string
	SharePercent float64
	Blocked      bool
	Resistance   float64 // fraction of the child's flow absorbed, clamped to [0,1]
}

// Dispatch is the outcome of splitting one incoming flow.
type Dispatch struct {
	Flows    []float64 // effective flow per child, same order as the input
	Retained float64   // flow not assigned to any child share (perfuses the block itself)
	Lost     float64   // flow absorbed with no open child to receive it
}

// Outgoing returns the total flow leaving through children.
func (d Dispatch) Outgoing() float64 {
	sum := 0.0
	for _, f := range d.Flows {
		sum += f
	}
	return sum
}

// FlowDispatcher splits blood flow among the children of a block.
//
// Each child first receives incoming × share. A blocked child receives
// nothing and a resistive child loses the absorbed fraction of its share.
// The absorbed amount is then handed to unconstricted children in
// proportion to their raw share, or failing that to any open child in
// proportion to its effective flow. Outgoing flow therefore equals the sum
// of shares unless every child is blocked.
type FlowDispatcher struct {
	// Vasoconstriction is added to the resistance of limb children (0..1).
	Vasoconstriction float64

	MeanArterialPressure float64
	IntracranialPressure float64
	CerebralBaselineFlow float64 // mL/min, same unit as the flows
}

// Split dispatches incoming flow among children. Shares summing above 100%
// are an invariant violation: logged, then renormalized.
func (d FlowDispatcher) Split(incoming float64, children []ChildFlow) Dispatch {
	out := Dispatch{Flows: make([]float64, len(children))}
	if len(children) == 0 {
		out.Retained = incoming
		return out
	}

	total := 0.0
	for _, c := range children {
		total += c.SharePercent
	}
	scale := 1.0
	if total > 100+shareEpsilon {
		logrus.Warnf("flow dispatch: child shares sum to %.3f%%, renormalizing", total)
		scale = 100 / total
	}

	raw := make([]float64, len(children))
	rawSum, effSum := 0.0, 0.0
	for i, c := range children {
		raw[i] = incoming * c.SharePercent * scale / 100
		rawSum += raw[i]
		if !c.Blocked {
			out.Flows[i] = raw[i] * (1 - clamp01(c.Resistance))
		}
		effSum += out.Flows[i]
	}
	out.Retained = incoming - rawSum
	absorbed := rawSum - effSum
	if absorbed <= 0 {
		return out
	}

	weights := make([]float64, len(children))
	wSum := 0.0
	for i, c := range children {
		if !c.Blocked && c.Resistance <= 0 {
			weights[i] = raw[i]
			wSum += raw[i]
		}
	}
	if wSum <= 0 {
		for i := range children {
			weights[i] = out.Flows[i]
			wSum += out.Flows[i]
		}
	}
	if wSum <= 0 {
		out.Lost = absorbed
		return out
	}
	for i := range children {
		out.Flows[i] += absorbed * weights[i] / wSum
	}
	return out
}

// Autoregulation returns the fraction of baseline cerebral flow held at a
// cerebral perfusion pressure. Flow is flat between 50 and 150 mmHg, falls
// linearly to zero below and rises above.
func Autoregulation(cpp float64) float64 {
	switch {
	case cpp <= 0:
		return 0
	case cpp < 50:
		return cpp / 50
	case cpp <= 150:
		return 1
	default:
		return math.Min(1.5, 1+(cpp-150)/100)
	}
}

// SplitRoot dispatches the root flow when one child is the cerebral branch.
// That branch gets the autoregulated cerebral flow (never more than the
// incoming flow); the remainder is split among the other children with
// their shares rescaled to the non-cerebral part.
func (d FlowDispatcher) SplitRoot(incoming float64, children []ChildFlow, cerebral int) Dispatch {
	if cerebral < 0 || cerebral >= len(children) {
		return d.Split(incoming, children)
	}
	c := children[cerebral]
	brain := 0.0
	if !c.Blocked {
		target := d.CerebralBaselineFlow * Autoregulation(d.MeanArterialPressure-d.IntracranialPressure)
		brain = math.Min(target*(1-clamp01(c.Resistance)), incoming)
	}
	remainder := incoming - brain

	others := make([]ChildFlow, 0, len(children)-1)
	rescale := 0.0
	if c.SharePercent < 100 {
		rescale = 100 / (100 - c.SharePercent)
	}
	for i, ch := range children {
		if i == cerebral {
			continue
		}
		ch.SharePercent *= rescale
		others = append(others, ch)
	}
	rest := d.Split(remainder, others)

	out := Dispatch{Flows: make([]float64, len(children)), Retained: rest.Retained, Lost: rest.Lost}
	j := 0
	for i := range children {
		if i == cerebral {
			out.Flows[i] = brain
			continue
		}
		out.Flows[i] = rest.Flows[j]
		j++
	}
	return out
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
