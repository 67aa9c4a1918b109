package body

import (
	"fmt"
	"math"
	"strings"
)

// MergePolicy is how a patch value combines with the current field value.
type MergePolicy int

const (
	// Additive adds the patch value (flow-rate-like fields).
	Additive MergePolicy = iota
	// MaxWins keeps the larger value (severity-like fields).
	MaxWins
	// Overwrite replaces the value (categorical fields).
	Overwrite
)

func (m MergePolicy) String() string {
	switch m {
	case Additive:
		return "additive"
	case MaxWins:
		return "max-wins"
	default:
		return "overwrite"
	}
}

// BlockPatch is one patchable block field. Every field is its own type, so
// a field without a merge rule does not satisfy the interface.
type BlockPatch interface {
	Key() string
	Policy() MergePolicy
	ApplyTo(p *BlockParams)
}

// VariablePatch is one patchable global variable.
type VariablePatch interface {
	Key() string
	Policy() MergePolicy
	ApplyTo(v *Variables)
}

// Block patch variants.
type (
	ExternalBleeding  float64
	InternalBleeding  float64
	BleedingControl   float64
	Resistance        float64
	BloodFlow         bool
	AirFlow           bool
	Collapsed         bool
	Compliance        float64
	Pain              float64
	Burn              float64
	NervousConduction bool
)

func (ExternalBleeding) Key() string         { return "externalBleeding" }
func (ExternalBleeding) Policy() MergePolicy { return MaxWins }
func (x ExternalBleeding) ApplyTo(p *BlockParams) {
	p.ExternalBleeding = math.Max(p.ExternalBleeding, float64(x))
}

func (InternalBleeding) Key() string         { return "internalBleeding" }
func (InternalBleeding) Policy() MergePolicy { return MaxWins }
func (x InternalBleeding) ApplyTo(p *BlockParams) {
	p.InternalBleeding = math.Max(p.InternalBleeding, float64(x))
}

func (BleedingControl) Key() string         { return "bleedingControl" }
func (BleedingControl) Policy() MergePolicy { return MaxWins }
func (x BleedingControl) ApplyTo(p *BlockParams) {
	p.BleedingControl = math.Max(p.BleedingControl, float64(x))
}

func (Resistance) Key() string              { return "resistance" }
func (Resistance) Policy() MergePolicy      { return Additive }
func (x Resistance) ApplyTo(p *BlockParams) { p.Resistance += float64(x) }

func (BloodFlow) Key() string              { return "bloodFlow" }
func (BloodFlow) Policy() MergePolicy      { return Overwrite }
func (x BloodFlow) ApplyTo(p *BlockParams) { p.BloodFlow = bool(x) }

func (AirFlow) Key() string              { return "airFlow" }
func (AirFlow) Policy() MergePolicy      { return Overwrite }
func (x AirFlow) ApplyTo(p *BlockParams) { p.AirFlow = bool(x) }

func (Collapsed) Key() string              { return "collapsed" }
func (Collapsed) Policy() MergePolicy      { return Overwrite }
func (x Collapsed) ApplyTo(p *BlockParams) { p.Collapsed = bool(x) }

func (Compliance) Key() string              { return "compliance" }
func (Compliance) Policy() MergePolicy      { return Overwrite }
func (x Compliance) ApplyTo(p *BlockParams) { p.Compliance = float64(x) }

func (Pain) Key() string              { return "pain" }
func (Pain) Policy() MergePolicy      { return MaxWins }
func (x Pain) ApplyTo(p *BlockParams) { p.Pain = math.Max(p.Pain, float64(x)) }

func (Burn) Key() string              { return "burn" }
func (Burn) Policy() MergePolicy      { return MaxWins }
func (x Burn) ApplyTo(p *BlockParams) { p.Burn = math.Max(p.Burn, float64(x)) }

func (Fracture) Key() string              { return "fracture" }
func (Fracture) Policy() MergePolicy      { return Overwrite }
func (x Fracture) ApplyTo(p *BlockParams) { p.Fracture = x }

func (NervousConduction) Key() string              { return "nervousConduction" }
func (NervousConduction) Policy() MergePolicy      { return Overwrite }
func (x NervousConduction) ApplyTo(p *BlockParams) { p.NervousConduction = bool(x) }

// Variable patch variants.
type (
	PericardialPressure     float64
	ThoracicPressure        float64
	IntracranialPressure    float64
	SalineInputRate         float64
	BloodInputRate          float64
	Coagulation             float64
	SpontaneousBreathing    bool
	AssistedRespiratoryRate float64
	AssistedTidalVolume     float64
)

// ChemicalDose adds an amount (mg) of a chemical.
type ChemicalDose struct {
	Chemical string
	Amount   float64
}

func (PericardialPressure) Key() string            { return "pericardialPressure" }
func (PericardialPressure) Policy() MergePolicy    { return Additive }
func (x PericardialPressure) ApplyTo(v *Variables) { v.PericardialPressure += float64(x) }

func (ThoracicPressure) Key() string            { return "thoracicPressure" }
func (ThoracicPressure) Policy() MergePolicy    { return Additive }
func (x ThoracicPressure) ApplyTo(v *Variables) { v.ThoracicPressure += float64(x) }

func (IntracranialPressure) Key() string            { return "intracranialPressure" }
func (IntracranialPressure) Policy() MergePolicy    { return Additive }
func (x IntracranialPressure) ApplyTo(v *Variables) { v.IntracranialPressure += float64(x) }

func (SalineInputRate) Key() string            { return "salineInputRate" }
func (SalineInputRate) Policy() MergePolicy    { return Additive }
func (x SalineInputRate) ApplyTo(v *Variables) { v.SalineInputRate += float64(x) }

func (BloodInputRate) Key() string            { return "bloodInputRate" }
func (BloodInputRate) Policy() MergePolicy    { return Additive }
func (x BloodInputRate) ApplyTo(v *Variables) { v.BloodInputRate += float64(x) }

func (Coagulation) Key() string            { return "coagulation" }
func (Coagulation) Policy() MergePolicy    { return Overwrite }
func (x Coagulation) ApplyTo(v *Variables) { v.Coagulation = float64(x) }

func (Position) Key() string            { return "position" }
func (Position) Policy() MergePolicy    { return Overwrite }
func (x Position) ApplyTo(v *Variables) { v.Position = x }

func (SpontaneousBreathing) Key() string            { return "spontaneousBreathing" }
func (SpontaneousBreathing) Policy() MergePolicy    { return Overwrite }
func (x SpontaneousBreathing) ApplyTo(v *Variables) { v.SpontaneousBreathing = bool(x) }

func (AssistedRespiratoryRate) Key() string            { return "assistedRespiratoryRate" }
func (AssistedRespiratoryRate) Policy() MergePolicy    { return Overwrite }
func (x AssistedRespiratoryRate) ApplyTo(v *Variables) { v.AssistedRespiratoryRate = float64(x) }

func (AssistedTidalVolume) Key() string            { return "assistedTidalVolume" }
func (AssistedTidalVolume) Policy() MergePolicy    { return Overwrite }
func (x AssistedTidalVolume) ApplyTo(v *Variables) { v.AssistedTidalVolume = float64(x) }

func (x ChemicalDose) Key() string       { return chemicalPrefix + x.Chemical }
func (ChemicalDose) Policy() MergePolicy { return Additive }
func (x ChemicalDose) ApplyTo(v *Variables) {
	if v.Chemicals == nil {
		v.Chemicals = make(map[string]float64)
	}
	v.Chemicals[x.Chemical] += x.Amount
}

const chemicalPrefix = "chemical."

// ParseBlockPatch builds the patch for a block field key. Unknown keys are
// an error: they mean content and code disagree on the schema.
func ParseBlockPatch(key string, value any) (BlockPatch, error) {
	switch key {
	case "externalBleeding":
		f, err := asFloat(key, value)
		return ExternalBleeding(f), err
	case "internalBleeding":
		f, err := asFloat(key, value)
		return InternalBleeding(f), err
	case "bleedingControl":
		f, err := asFloat(key, value)
		return BleedingControl(f), err
	case "resistance":
		f, err := asFloat(key, value)
		return Resistance(f), err
	case "bloodFlow":
		b, err := asBool(key, value)
		return BloodFlow(b), err
	case "airFlow":
		b, err := asBool(key, value)
		return AirFlow(b), err
	case "collapsed":
		b, err := asBool(key, value)
		return Collapsed(b), err
	case "compliance":
		f, err := asFloat(key, value)
		return Compliance(f), err
	case "pain":
		f, err := asFloat(key, value)
		return Pain(f), err
	case "burn":
		f, err := asFloat(key, value)
		return Burn(f), err
	case "fracture":
		s, err := asString(key, value)
		if err != nil {
			return nil, err
		}
		switch Fracture(s) {
		case FractureNone, FractureClosed, FractureOpen:
			return Fracture(s), nil
		}
		return nil, fmt.Errorf("fracture: unknown value %q", s)
	case "nervousConduction":
		b, err := asBool(key, value)
		return NervousConduction(b), err
	}
	return nil, fmt.Errorf("unknown block parameter %q", key)
}

// ParseVariablePatch builds the patch for a variable key. Chemical doses use
// the key "chemical.<id>".
func ParseVariablePatch(key string, value any) (VariablePatch, error) {
	if id, ok := strings.CutPrefix(key, chemicalPrefix); ok {
		if id == "" {
			return nil, fmt.Errorf("empty chemical id in %q", key)
		}
		f, err := asFloat(key, value)
		return ChemicalDose{Chemical: id, Amount: f}, err
	}
	switch key {
	case "pericardialPressure":
		f, err := asFloat(key, value)
		return PericardialPressure(f), err
	case "thoracicPressure":
		f, err := asFloat(key, value)
		return ThoracicPressure(f), err
	case "intracranialPressure":
		f, err := asFloat(key, value)
		return IntracranialPressure(f), err
	case "salineInputRate":
		f, err := asFloat(key, value)
		return SalineInputRate(f), err
	case "bloodInputRate":
		f, err := asFloat(key, value)
		return BloodInputRate(f), err
	case "coagulation":
		f, err := asFloat(key, value)
		return Coagulation(f), err
	case "position":
		s, err := asString(key, value)
		if err != nil {
			return nil, err
		}
		switch Position(s) {
		case PositionStanding, PositionSitting, PositionLying, PositionRecovery:
			return Position(s), nil
		}
		return nil, fmt.Errorf("position: unknown value %q", s)
	case "spontaneousBreathing":
		b, err := asBool(key, value)
		return SpontaneousBreathing(b), err
	case "assistedRespiratoryRate":
		f, err := asFloat(key, value)
		return AssistedRespiratoryRate(f), err
	case "assistedTidalVolume":
		f, err := asFloat(key, value)
		return AssistedTidalVolume(f), err
	}
	return nil, fmt.Errorf("unknown variable %q", key)
}

func asFloat(key string, v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	}
	return 0, fmt.Errorf("%s: expected a number, got %T", key, v)
}

func asBool(key string, v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("%s: expected a boolean, got %T", key, v)
}

func asString(key string, v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("%s: expected a string, got %T", key, v)
}
