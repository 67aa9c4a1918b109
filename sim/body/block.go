// Package body models a human as a graph of named anatomical blocks linked
// by typed connections, and exposes the guarded traversal used by the
// physiology passes.
//
// The graph structure (blocks, links, connection parameters) is fixed once
// the body is built. Only block parameters, variables and vitals change over
// time, so clones share the structure and deep-copy the mutable parts.
package body

import "fmt"

// Kind is the structural role of a block. It is never patched.
type Kind int

const (
	KindTissue Kind = iota
	KindLimb
	KindHeart
	KindBrain
	KindAirway
	KindRespiratoryUnit
)

var kindNames = map[Kind]string{
	KindTissue:          "tissue",
	KindLimb:            "limb",
	KindHeart:           "heart",
	KindBrain:           "brain",
	KindAirway:          "airway",
	KindRespiratoryUnit: "respiratory-unit",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Fracture is the categorical bone state of a block.
type Fracture string

const (
	FractureNone   Fracture = ""
	FractureClosed Fracture = "closed"
	FractureOpen   Fracture = "open"
)

// BlockParams are the physiological fields of one block.
type BlockParams struct {
	// Fraction of the block's blood inflow lost outside the body.
	ExternalBleeding float64
	// Fraction of the block's blood inflow lost into a body cavity.
	InternalBleeding float64
	// Fraction of bleeding suppressed by dressings or packing (0..1).
	BleedingControl float64
	// Fraction of incoming flow absorbed before reaching this block (0..1).
	Resistance float64

	BloodFlow         bool
	AirFlow           bool
	Collapsed         bool
	Compliance        float64
	Pain              float64 // 0..10
	Burn              float64 // burned surface fraction 0..1
	Fracture          Fracture
	NervousConduction bool

	// AlveolarCO2 is transient state of respiratory units (mmHg), carried
	// from one compute pass to the next.
	AlveolarCO2 float64
}

// DefaultParams returns the healthy parameters of a block.
func DefaultParams() BlockParams {
	return BlockParams{
		BloodFlow:         true,
		AirFlow:           true,
		Compliance:        1,
		NervousConduction: true,
	}
}

// Link points from a block to a neighbour through a connection record.
type Link struct {
	Target string
	Conn   int
}

// Block is a named anatomical region.
type Block struct {
	Name   string
	Kind   Kind
	Depth  int // airway depth, meaningful for airway and respiratory units
	Params BlockParams
	Links  []Link
}

// ConnectionParams describe what passes through a connection. One record is
// shared by both endpoints.
type ConnectionParams struct {
	Blood             bool
	BloodSharePercent float64
	AllowsO2          bool
	Nervous           bool
	Bone              bool
}

// Position is the body posture.
type Position string

const (
	PositionStanding Position = "standing"
	PositionSitting  Position = "sitting"
	PositionLying    Position = "lying"
	PositionRecovery Position = "recovery"
)

// Balance is the cumulative fluid ledger in mL.
type Balance struct {
	ExternalLoss float64
	InternalLoss float64
	SalineInput  float64
	BloodInput   float64
}

// Variables is the global, non-anatomical state of a body.
type Variables struct {
	BloodVolume   float64 // mL
	RedCellVolume float64 // mL

	PericardialPressure  float64 // mmHg
	ThoracicPressure     float64 // mmHg
	IntracranialPressure float64 // mmHg

	SalineInputRate float64 // mL/min
	BloodInputRate  float64 // mL/min
	Coagulation     float64 // 1 = normal

	Position                Position
	SpontaneousBreathing    bool
	AssistedRespiratoryRate float64 // breaths/min
	AssistedTidalVolume     float64 // mL

	CompensationLevel float64            // 0..100
	Chemicals         map[string]float64 // amount in mg by chemical id

	Balance Balance
}

// BodyState is the complete state of one human at one instant.
type BodyState struct {
	Time           int64 // ms
	Root           string
	CerebralBranch string
	AirwayRoot     string

	Blocks      []Block
	index       map[string]int
	Connections []ConnectionParams

	Vitals    Vitals
	Variables Variables
}

// Block returns the named block.
func (s *BodyState) Block(name string) (*Block, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return &s.Blocks[i], true
}

// Index returns the position of the named block in Blocks.
func (s *BodyState) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Has reports whether the body contains the named block.
func (s *BodyState) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Names returns block names in insertion order.
func (s *BodyState) Names() []string {
	names := make([]string, len(s.Blocks))
	for i := range s.Blocks {
		names[i] = s.Blocks[i].Name
	}
	return names
}

// Connection returns the connection record referenced by a link.
func (s *BodyState) Connection(l Link) *ConnectionParams {
	return &s.Connections[l.Conn]
}

// Clone returns a deep copy of the mutable parts of the state. The graph
// structure (links, connection records, name index) is shared.
func (s *BodyState) Clone() *BodyState {
	c := *s
	c.Blocks = make([]Block, len(s.Blocks))
	copy(c.Blocks, s.Blocks)
	c.Variables.Chemicals = make(map[string]float64, len(s.Variables.Chemicals))
	for k, v := range s.Variables.Chemicals {
		c.Variables.Chemicals[k] = v
	}
	return &c
}
