// Package content holds the injury, item, act, chemical and curve
// definitions a simulation draws from. A Registry is loaded once from YAML
// and passed explicitly to whoever needs lookups.
package content

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/triage-sim/triage-sim/sim"
	"github.com/triage-sim/triage-sim/sim/body"
	"github.com/triage-sim/triage-sim/sim/physio"
)

// Lookup failures.
var (
	ErrUnknownInjury   = errors.New("unknown injury")
	ErrUnknownItem     = errors.New("unknown item")
	ErrUnknownAct      = errors.New("unknown act")
	ErrUnknownAction   = errors.New("unknown item action")
	ErrSkillNotAllowed = errors.New("skill not allowed for action")
	ErrIneligibleBlock = errors.New("block not eligible")
)

//go:embed defaults.yaml
var defaultContent []byte

// Registry is the full content of a simulation.
type Registry struct {
	Human        body.Profile               `yaml:"human"`
	LungDepth    int                        `yaml:"lung_depth"`
	Environment  physio.Environment         `yaml:"environment"`
	Compensation physio.CompensationConfig  `yaml:"compensation"`
	Chemicals    map[string]physio.Kinetics `yaml:"chemicals"`
	Injuries     map[string]*Injury         `yaml:"injuries"`
	Items        map[string]*Item           `yaml:"items"`
	Acts         map[string]*Action         `yaml:"acts"`
}

// Default returns the registry built from the embedded default content.
func Default() (*Registry, error) {
	return Load(bytes.NewReader(defaultContent))
}

// LoadFile reads and validates a content file.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	return Load(bytes.NewReader(data))
}

// Load parses content YAML strictly (unknown keys are rejected) and
// validates it.
func Load(r io.Reader) (*Registry, error) {
	var reg Registry
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&reg); err != nil {
		return nil, fmt.Errorf("parsing content: %w", err)
	}
	reg.assignIDs()
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid content: %w", err)
	}
	return &reg, nil
}

func (r *Registry) assignIDs() {
	for id, in := range r.Injuries {
		if in != nil {
			in.ID = id
		}
	}
	for id, it := range r.Items {
		if it == nil {
			continue
		}
		it.ID = id
		for aid, a := range it.Actions {
			if a != nil {
				a.ID = aid
			}
		}
	}
	for id, a := range r.Acts {
		if a != nil {
			a.ID = id
		}
	}
}

// Anatomy returns the anatomy bodies are built from.
func (r *Registry) Anatomy() *body.Anatomy {
	return body.DefaultAnatomy(r.LungDepth)
}

// PhysioConfig assembles the configuration of the physiology passes.
func (r *Registry) PhysioConfig(cfg sim.SimConfig) *physio.Config {
	return &physio.Config{
		Sim:          cfg,
		Env:          r.Environment,
		Compensation: r.Compensation,
		Chemicals:    r.Chemicals,
	}
}

// Injury returns the named injury definition.
func (r *Registry) Injury(id string) (*Injury, error) {
	in, ok := r.Injuries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownInjury, id)
	}
	return in, nil
}

// ResolveAction returns the action an action source designates.
func (r *Registry) ResolveAction(src ActionSource) (*Action, error) {
	switch src.Kind {
	case SourceAct:
		a, ok := r.Acts[src.Act]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAct, src.Act)
		}
		return a, nil
	case SourceItem:
		it, ok := r.Items[src.Item]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownItem, src.Item)
		}
		a, ok := it.Actions[src.Action]
		if !ok {
			return nil, fmt.Errorf("%w: %q on item %q", ErrUnknownAction, src.Action, src.Item)
		}
		return a, nil
	}
	return nil, fmt.Errorf("unknown action source kind %q", src.Kind)
}

// Validate checks every definition against the anatomy and the physiology
// schema. Patch keys and argument references are resolved eagerly so a
// typo fails here rather than mid-exercise.
func (r *Registry) Validate() error {
	if r.LungDepth < 1 || r.LungDepth > 8 {
		return fmt.Errorf("lung_depth must be in [1,8], got %d", r.LungDepth)
	}
	if r.Environment.AtmosphericPressure <= 0 {
		return fmt.Errorf("atmospheric_pressure must be positive, got %f", r.Environment.AtmosphericPressure)
	}
	if r.Environment.FiO2 <= 0 || r.Environment.FiO2 > 1 {
		return fmt.Errorf("fio2 must be in (0,1], got %f", r.Environment.FiO2)
	}
	for _, id := range sortedKeys(r.Chemicals) {
		k := r.Chemicals[id]
		if k.VdLPerKg <= 0 {
			return fmt.Errorf("chemical %q: vd_l_per_kg must be positive, got %f", id, k.VdLPerKg)
		}
		if k.ClearanceMlPerMin < 0 || k.HalfLifeMin < 0 {
			return fmt.Errorf("chemical %q: clearance and half-life must be non-negative", id)
		}
	}
	if err := r.Compensation.Validate(); err != nil {
		return fmt.Errorf("compensation: %w", err)
	}
	for _, s := range r.Compensation.Stimuli {
		if err := r.checkMetric(s.Metric); err != nil {
			return fmt.Errorf("compensation stimulus: %w", err)
		}
	}

	blocks := make(map[string]bool)
	for _, name := range r.Anatomy().Build(body.NewHumanMeta(r.Human)).Names() {
		blocks[name] = true
	}
	for _, id := range sortedKeys(r.Injuries) {
		in := r.Injuries[id]
		if in == nil {
			return fmt.Errorf("injury %q is empty", id)
		}
		if err := in.validate(blocks); err != nil {
			return fmt.Errorf("injury %q: %w", id, err)
		}
		for _, m := range in.Modules {
			for _, rt := range m.Rules {
				if err := r.checkChemicals(rt); err != nil {
					return fmt.Errorf("injury %q: %w", id, err)
				}
			}
		}
	}
	for _, id := range sortedKeys(r.Items) {
		it := r.Items[id]
		if it == nil || len(it.Actions) == 0 {
			return fmt.Errorf("item %q has no actions", id)
		}
		for _, aid := range sortedKeys(it.Actions) {
			if err := r.validateAction(it.Actions[aid], blocks); err != nil {
				return fmt.Errorf("item %q action %q: %w", id, aid, err)
			}
		}
	}
	for _, id := range sortedKeys(r.Acts) {
		if err := r.validateAction(r.Acts[id], blocks); err != nil {
			return fmt.Errorf("act %q: %w", id, err)
		}
	}
	return nil
}

func (r *Registry) checkMetric(name string) error {
	if !physio.IsMetric(name) {
		return fmt.Errorf("unknown metric %q", name)
	}
	if id, ok := cutChemical(name); ok {
		if _, known := r.Chemicals[id]; !known {
			return fmt.Errorf("metric %q refers to unknown chemical", name)
		}
	}
	return nil
}

func (r *Registry) validateAction(a *Action, blocks map[string]bool) error {
	if a == nil {
		return fmt.Errorf("empty definition")
	}
	switch a.Kind {
	case KindEffect:
		if len(a.Rules) == 0 {
			return fmt.Errorf("effect has no rules")
		}
	case KindMeasure:
		if len(a.Metrics) == 0 {
			return fmt.Errorf("measurement has no metrics")
		}
		for _, m := range a.Metrics {
			if err := r.checkMetric(m); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown kind %q", a.Kind)
	}
	if a.Duration < 0 {
		return fmt.Errorf("duration_s must be non-negative, got %f", a.Duration)
	}
	for _, skill := range sortedKeys(a.Skills) {
		if a.Skills[skill] < 0 {
			return fmt.Errorf("skill %q: duration must be non-negative", skill)
		}
	}
	for _, b := range a.Blocks {
		if !blocks[b] {
			return fmt.Errorf("unknown block %q", b)
		}
	}
	for i, rt := range a.Rules {
		if err := rt.validate(nil, blocks); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
		if err := r.checkChemicals(rt); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}

func (r *Registry) checkChemicals(rt RuleTemplate) error {
	for key := range rt.Variables {
		if id, ok := cutChemical(key); ok {
			if _, known := r.Chemicals[id]; !known {
				return fmt.Errorf("unknown chemical %q", id)
			}
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
