package physio

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/triage-sim/triage-sim/sim/body"
)

// ErrMissingBlock is returned when a rule targets a block the body lacks.
var ErrMissingBlock = errors.New("rule targets a missing block")

// CreateBody builds a body from an anatomy and fills its vitals with one
// instantaneous compute and compensation pass at time zero.
func CreateBody(a *body.Anatomy, meta body.HumanMeta, cfg *Config) *body.BodyState {
	s := a.Build(meta)
	settleInstant(s, meta, cfg)
	return s
}

// Advance returns the state of a body durationMs after state. The input is
// not modified.
//
// Integration happens in substeps on the absolute StepMs grid. Every rule
// activation time inside (t, t+duration] is a checkpoint: the body is
// integrated up to it, all rules activating there are applied in order,
// then vitals and compensation are re-derived instantaneously. Because
// substeps never straddle a grid point, advancing in grid-aligned pieces
// yields the same state as advancing at once.
func Advance(state *body.BodyState, meta body.HumanMeta, cfg *Config, durationMs int64, pathologies []AfflictedPathology, effects []Effect) *body.BodyState {
	next := state.Clone()
	if durationMs <= 0 {
		return next
	}
	end := next.Time + durationMs
	rules := collectRules(next.Time, end, pathologies, effects)

	for i := 0; i < len(rules); {
		at := rules[i].at
		integrate(next, meta, cfg, at)
		for ; i < len(rules) && rules[i].at == at; i++ {
			if err := applyRule(next, rules[i].rule); err != nil {
				logrus.Warnf("t=%d: skipping rule: %v", at, err)
			}
		}
		settleInstant(next, meta, cfg)
	}
	integrate(next, meta, cfg, end)
	return next
}

// Settle applies the rules activating exactly at the state's time. Used for
// events stamped at the instant a body is created.
func Settle(state *body.BodyState, meta body.HumanMeta, cfg *Config, pathologies []AfflictedPathology, effects []Effect) *body.BodyState {
	next := state.Clone()
	rules := collectRules(next.Time-1, next.Time, pathologies, effects)
	if len(rules) == 0 {
		return next
	}
	for _, r := range rules {
		if err := applyRule(next, r.rule); err != nil {
			logrus.Warnf("t=%d: skipping rule: %v", next.Time, err)
		}
	}
	settleInstant(next, meta, cfg)
	return next
}

func applyRule(s *body.BodyState, r *Rule) error {
	if r.Block != "" {
		b, ok := s.Block(r.Block)
		if !ok {
			return fmt.Errorf("%w: %q", ErrMissingBlock, r.Block)
		}
		for _, p := range r.BlockPatch {
			p.ApplyTo(&b.Params)
		}
	}
	for _, p := range r.VariablePatch {
		p.ApplyTo(&s.Variables)
	}
	return nil
}

// integrate steps the body up to time `to` on the absolute step grid.
func integrate(s *body.BodyState, meta body.HumanMeta, cfg *Config, to int64) {
	step := cfg.Sim.StepMs
	if step <= 0 {
		step = 1000
	}
	for s.Time < to {
		t := min(floorDiv(s.Time, step)*step+step, to)
		dtMin := float64(t-s.Time) / 60000
		vit, perf := Compute(s, meta, cfg.Env, dtMin)
		s.Vitals = vit
		bookkeep(s, meta, cfg, perf, dtMin)
		Compensate(s, meta, cfg, dtMin)
		s.Time = t
		detectArrest(s, cfg)
	}
}

func settleInstant(s *body.BodyState, meta body.HumanMeta, cfg *Config) {
	vit, _ := Compute(s, meta, cfg.Env, 0)
	s.Vitals = vit
	Compensate(s, meta, cfg, 0)
	detectArrest(s, cfg)
}

// detectArrest latches cardiac arrest when any vital crosses its threshold.
// Arrest is terminal: vitals stay collapsed from then on.
func detectArrest(s *body.BodyState, cfg *Config) {
	v := &s.Vitals
	if !v.Arrest.Arrested {
		th := cfg.Sim.ArrestThresholds
		if v.Cardio.HeartRate < th.HeartRate ||
			v.Cardio.MeanArterialPressure < th.MeanArterialPressure ||
			v.Respiration.SaO2 < th.SaO2 {
			v.Arrest = body.Arrest{Arrested: true, Time: s.Time}
			logrus.Debugf("t=%d: cardiac arrest (HR=%.1f MAP=%.1f SaO2=%.2f)",
				s.Time, v.Cardio.HeartRate, v.Cardio.MeanArterialPressure, v.Respiration.SaO2)
		}
	}
	if v.Arrest.Arrested {
		v.Collapse()
	}
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
