package content

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"strings"

	"github.com/triage-sim/triage-sim/sim/body"
	"github.com/triage-sim/triage-sim/sim/physio"
)

// BlockRef in a rule stands for the block the injury or action lands on.
const BlockRef = "$block"

// ArgRange is a uniformly sampled injury argument.
type ArgRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// RuleTemplate is a rule before instantiation. Patch and Variables values
// may reference a sampled argument as "$name".
type RuleTemplate struct {
	At        float64        `yaml:"at"` // seconds after the owner's start
	Block     string         `yaml:"block"`
	Patch     map[string]any `yaml:"patch"`
	Variables map[string]any `yaml:"variables"`
}

// Module is one independently sampled part of an injury.
type Module struct {
	Blocks []string            `yaml:"blocks"`
	Select string              `yaml:"select"` // "one" (default) or "all"
	Args   map[string]ArgRange `yaml:"args"`
	Rules  []RuleTemplate      `yaml:"rules"`
}

// Injury is a pathology definition.
type Injury struct {
	ID      string   `yaml:"-"`
	Name    string   `yaml:"name"`
	Modules []Module `yaml:"modules"`
}

// ActionKind distinguishes treatments from measurements.
type ActionKind string

const (
	KindEffect  ActionKind = "effect"
	KindMeasure ActionKind = "measure"
)

// Action is something an actor does to a body, with or without an item.
type Action struct {
	ID       string             `yaml:"-"`
	Name     string             `yaml:"name"`
	Kind     ActionKind         `yaml:"kind"`
	Blocks   []string           `yaml:"blocks"`     // eligible targets, empty means whole body
	Duration float64            `yaml:"duration_s"` // default duration
	Skills   map[string]float64 `yaml:"skills"`     // when set, only these skills may perform it
	Rules    []RuleTemplate     `yaml:"rules"`
	Metrics  []string           `yaml:"metrics"`
}

// Item is a piece of equipment offering actions.
type Item struct {
	ID      string             `yaml:"-"`
	Name    string             `yaml:"name"`
	Actions map[string]*Action `yaml:"actions"`
}

// SourceKind discriminates ActionSource.
type SourceKind string

const (
	SourceAct  SourceKind = "act"
	SourceItem SourceKind = "item"
)

// ActionSource designates an action: either a bare act or an action of an
// item.
type ActionSource struct {
	Kind   SourceKind `json:"kind" yaml:"kind"`
	Act    string     `json:"act,omitempty" yaml:"act,omitempty"`
	Item   string     `json:"item,omitempty" yaml:"item,omitempty"`
	Action string     `json:"action,omitempty" yaml:"action,omitempty"`
}

// Act designates a bare act.
func Act(id string) ActionSource { return ActionSource{Kind: SourceAct, Act: id} }

// ItemAction designates an action of an item.
func ItemAction(item, action string) ActionSource {
	return ActionSource{Kind: SourceItem, Item: item, Action: action}
}

func (s ActionSource) String() string {
	if s.Kind == SourceItem {
		return s.Item + "/" + s.Action
	}
	return s.Act
}

// DurationFor returns how long the action takes for a skill, in ms.
func (a *Action) DurationFor(skill string) (int64, error) {
	if len(a.Skills) == 0 {
		return seconds(a.Duration), nil
	}
	d, ok := a.Skills[skill]
	if !ok {
		return 0, fmt.Errorf("%w: %q cannot perform %q", ErrSkillNotAllowed, skill, a.ID)
	}
	return seconds(d), nil
}

// Instantiate freezes the action's rules for a target block. Offsets stay
// relative to the action's start.
func (a *Action) Instantiate(block string) ([]physio.Rule, error) {
	if len(a.Blocks) > 0 && !slices.Contains(a.Blocks, block) {
		return nil, fmt.Errorf("%w: %q for %q", ErrIneligibleBlock, block, a.ID)
	}
	rules := make([]physio.Rule, 0, len(a.Rules))
	for i, rt := range a.Rules {
		r, err := rt.instantiate(block, nil)
		if err != nil {
			return nil, fmt.Errorf("%s rule %d: %w", a.ID, i, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// Instantiate samples the injury's arguments and target blocks and freezes
// its rules. When block is set, every module accepting it targets it; at
// least one must. The returned pathology still needs an ID and a time.
func (in *Injury) Instantiate(rng *rand.Rand, block string) (physio.AfflictedPathology, error) {
	p := physio.AfflictedPathology{Injury: in.ID}
	placed := block == ""
	for mi, m := range in.Modules {
		args := make(map[string]float64, len(m.Args))
		for _, name := range sortedKeys(m.Args) {
			ar := m.Args[name]
			args[name] = ar.Min + rng.Float64()*(ar.Max-ar.Min)
		}

		var targets []string
		switch {
		case len(m.Blocks) == 0:
			targets = []string{""}
		case block != "" && slices.Contains(m.Blocks, block):
			targets = []string{block}
			placed = true
		case m.Select == "all":
			targets = m.Blocks
		default:
			targets = []string{m.Blocks[rng.Intn(len(m.Blocks))]}
		}
		for _, t := range targets {
			if t != "" && !slices.Contains(p.Blocks, t) {
				p.Blocks = append(p.Blocks, t)
			}
			for ri, rt := range m.Rules {
				r, err := rt.instantiate(t, args)
				if err != nil {
					return physio.AfflictedPathology{}, fmt.Errorf("%s module %d rule %d: %w", in.ID, mi, ri, err)
				}
				p.Rules = append(p.Rules, r)
			}
		}
	}
	if !placed {
		return physio.AfflictedPathology{}, fmt.Errorf("%w: %q for injury %q", ErrIneligibleBlock, block, in.ID)
	}
	return p, nil
}

func (in *Injury) validate(blocks map[string]bool) error {
	if len(in.Modules) == 0 {
		return fmt.Errorf("no modules")
	}
	for i, m := range in.Modules {
		if m.Select != "" && m.Select != "one" && m.Select != "all" {
			return fmt.Errorf("module %d: unknown select %q", i, m.Select)
		}
		for _, b := range m.Blocks {
			if !blocks[b] {
				return fmt.Errorf("module %d: unknown block %q", i, b)
			}
		}
		args := make(map[string]float64, len(m.Args))
		for name, ar := range m.Args {
			if ar.Min > ar.Max {
				return fmt.Errorf("module %d: arg %q has min > max", i, name)
			}
			args[name] = ar.Min
		}
		if len(m.Rules) == 0 {
			return fmt.Errorf("module %d: no rules", i)
		}
		for j, rt := range m.Rules {
			if rt.Block == BlockRef && len(m.Blocks) == 0 {
				return fmt.Errorf("module %d rule %d: %s without eligible blocks", i, j, BlockRef)
			}
			if err := rt.validate(args, blocks); err != nil {
				return fmt.Errorf("module %d rule %d: %w", i, j, err)
			}
		}
	}
	return nil
}

func (rt RuleTemplate) validate(args map[string]float64, blocks map[string]bool) error {
	if rt.At < 0 {
		return fmt.Errorf("negative offset %f", rt.At)
	}
	if rt.Block != "" && rt.Block != BlockRef && !blocks[rt.Block] {
		return fmt.Errorf("unknown block %q", rt.Block)
	}
	if rt.Block == "" && len(rt.Patch) > 0 {
		return fmt.Errorf("block patch without a block")
	}
	if len(rt.Patch) == 0 && len(rt.Variables) == 0 {
		return fmt.Errorf("empty rule")
	}
	if args == nil {
		args = map[string]float64{}
	}
	// A placeholder block resolves the reference for validation only.
	_, err := rt.instantiate("validation", args)
	return err
}

func (rt RuleTemplate) instantiate(block string, args map[string]float64) (physio.Rule, error) {
	r := physio.Rule{Offset: seconds(rt.At), Block: rt.Block}
	if rt.Block == BlockRef {
		if block == "" {
			return physio.Rule{}, fmt.Errorf("rule targets %s but no block was given", BlockRef)
		}
		r.Block = block
	}
	for _, key := range sortedKeys(rt.Patch) {
		v, err := resolve(rt.Patch[key], args)
		if err != nil {
			return physio.Rule{}, err
		}
		p, err := body.ParseBlockPatch(key, v)
		if err != nil {
			return physio.Rule{}, err
		}
		r.BlockPatch = append(r.BlockPatch, p)
	}
	for _, key := range sortedKeys(rt.Variables) {
		v, err := resolve(rt.Variables[key], args)
		if err != nil {
			return physio.Rule{}, err
		}
		p, err := body.ParseVariablePatch(key, v)
		if err != nil {
			return physio.Rule{}, err
		}
		r.VariablePatch = append(r.VariablePatch, p)
	}
	return r, nil
}

// resolve substitutes an "$arg" reference. Other strings are literal values.
func resolve(v any, args map[string]float64) (any, error) {
	s, ok := v.(string)
	if !ok || !strings.HasPrefix(s, "$") {
		return v, nil
	}
	f, ok := args[s[1:]]
	if !ok {
		return nil, fmt.Errorf("unknown argument %q", s)
	}
	return f, nil
}

func cutChemical(key string) (string, bool) {
	return strings.CutPrefix(key, physio.ChemicalMetricPrefix)
}

func seconds(s float64) int64 {
	return int64(math.Round(s * 1000))
}
