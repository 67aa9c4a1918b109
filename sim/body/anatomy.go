package body

import (
	"fmt"
	"strconv"
)

// Block names of the default anatomy.
const (
	Heart         = "HEART"
	Neck          = "NECK"
	Head          = "HEAD"
	Brain         = "BRAIN"
	Trachea       = "TRACHEA"
	LeftBronchus  = "LEFT_BRONCHUS"
	RightBronchus = "RIGHT_BRONCHUS"
	Thorax        = "THORAX"
	Abdomen       = "ABDOMEN"
	Pelvis        = "PELVIS"
	LeftThigh     = "LEFT_THIGH"
	LeftLeg       = "LEFT_LEG"
	LeftFoot      = "LEFT_FOOT"
	RightThigh    = "RIGHT_THIGH"
	RightLeg      = "RIGHT_LEG"
	RightFoot     = "RIGHT_FOOT"
	LeftArm       = "LEFT_ARM"
	LeftForearm   = "LEFT_FOREARM"
	LeftHand      = "LEFT_HAND"
	RightArm      = "RIGHT_ARM"
	RightForearm  = "RIGHT_FOREARM"
	RightHand     = "RIGHT_HAND"
)

// Anatomy builds the block graph of a body.
type Anatomy struct {
	Root           string
	CerebralBranch string
	AirwayRoot     string

	blocks []Block
	index  map[string]int
	conns  []ConnectionParams
}

// NewAnatomy starts an anatomy rooted at a block of the given kind.
func NewAnatomy(root string, kind Kind) *Anatomy {
	a := &Anatomy{Root: root, index: make(map[string]int)}
	a.AddBlock(root, kind)
	return a
}

// AddBlock appends a block. Panics on duplicate names.
func (a *Anatomy) AddBlock(name string, kind Kind) *Anatomy {
	if _, dup := a.index[name]; dup {
		panic(fmt.Sprintf("anatomy: duplicate block %q", name))
	}
	a.index[name] = len(a.blocks)
	a.blocks = append(a.blocks, Block{Name: name, Kind: kind, Params: DefaultParams()})
	return a
}

// Connect links two existing blocks through one shared connection record.
// Panics if either block is missing.
func (a *Anatomy) Connect(from, to string, p ConnectionParams) *Anatomy {
	fi, ok := a.index[from]
	if !ok {
		panic(fmt.Sprintf("anatomy: connect from unknown block %q", from))
	}
	ti, ok := a.index[to]
	if !ok {
		panic(fmt.Sprintf("anatomy: connect to unknown block %q", to))
	}
	c := len(a.conns)
	a.conns = append(a.conns, p)
	a.blocks[fi].Links = append(a.blocks[fi].Links, Link{Target: to, Conn: c})
	a.blocks[ti].Links = append(a.blocks[ti].Links, Link{Target: from, Conn: c})
	return a
}

// Child adds a block and connects it under parent.
func (a *Anatomy) Child(parent, name string, kind Kind, p ConnectionParams) *Anatomy {
	a.AddBlock(name, kind)
	return a.Connect(parent, name, p)
}

// SubdivideLung grows a balanced binary tree of airway blocks under a
// bronchus. Leaves at the given depth are respiratory units named
// prefix_1, prefix_11, prefix_12, ...
func (a *Anatomy) SubdivideLung(bronchus, prefix string, depth int) *Anatomy {
	air := ConnectionParams{AllowsO2: true}
	var grow func(parent, suffix string, level int)
	grow = func(parent, suffix string, level int) {
		for i := 1; i <= 2; i++ {
			name := prefix + "_" + suffix + strconv.Itoa(i)
			kind := KindAirway
			if level == depth {
				kind = KindRespiratoryUnit
			}
			a.Child(parent, name, kind, air)
			a.blocks[a.index[name]].Depth = level
			if level < depth {
				grow(name, suffix+strconv.Itoa(i), level+1)
			}
		}
	}
	grow(bronchus, "", 1)
	return a
}

// Build instantiates a body from the anatomy with resting variables and
// regulated vitals taken from meta. Derived vitals are left for the
// physiology pass.
func (a *Anatomy) Build(meta HumanMeta) *BodyState {
	blocks := make([]Block, len(a.blocks))
	copy(blocks, a.blocks)
	for i := range blocks {
		if blocks[i].Kind == KindRespiratoryUnit {
			blocks[i].Params.AlveolarCO2 = 40
		}
	}
	index := make(map[string]int, len(a.index))
	for k, v := range a.index {
		index[k] = v
	}
	conns := make([]ConnectionParams, len(a.conns))
	copy(conns, a.conns)

	s := &BodyState{
		Root:           a.Root,
		CerebralBranch: a.CerebralBranch,
		AirwayRoot:     a.AirwayRoot,
		Blocks:         blocks,
		index:          index,
		Connections:    conns,
		Variables: Variables{
			BloodVolume:          meta.InitialBloodVolume,
			RedCellVolume:        meta.InitialBloodVolume * meta.Hematocrit,
			IntracranialPressure: 10,
			Coagulation:          1,
			Position:             PositionStanding,
			SpontaneousBreathing: true,
			Chemicals:            make(map[string]float64),
		},
	}
	s.Vitals.Cardio.HeartRate = meta.HeartRate.Min
	s.Vitals.Cardio.ArterialResistance = meta.Resistance.Min
	s.Vitals.Cardio.MeanArterialPressure = restingMAP
	s.Vitals.Respiration.RespiratoryRate = meta.RespiratoryRate.Min
	s.Vitals.Respiration.TidalVolume = meta.TidalVolume.Min
	s.Vitals.Neuro.GlasgowComaScale = 15
	return s
}

// DefaultAnatomy returns the adult anatomy used by the simulator: a heart
// root feeding neck (cerebral branch and airway), thorax, abdomen with
// pelvis and legs, and both arms. Each lung is subdivided to lungDepth
// levels of respiratory units.
func DefaultAnatomy(lungDepth int) *Anatomy {
	if lungDepth < 1 {
		lungDepth = 1
	}
	blood := func(share float64) ConnectionParams {
		return ConnectionParams{Blood: true, BloodSharePercent: share, Nervous: true, Bone: true}
	}
	a := NewAnatomy(Heart, KindHeart)
	a.CerebralBranch = Neck
	a.AirwayRoot = Trachea

	a.Child(Heart, Neck, KindTissue, blood(15)).
		Child(Neck, Head, KindTissue, blood(100)).
		Child(Head, Brain, KindBrain, ConnectionParams{Blood: true, BloodSharePercent: 100, Nervous: true})

	a.Child(Neck, Trachea, KindAirway, ConnectionParams{AllowsO2: true}).
		Child(Trachea, LeftBronchus, KindAirway, ConnectionParams{AllowsO2: true}).
		Child(Trachea, RightBronchus, KindAirway, ConnectionParams{AllowsO2: true})
	a.SubdivideLung(LeftBronchus, "LEFT_LUNG", lungDepth)
	a.SubdivideLung(RightBronchus, "RIGHT_LUNG", lungDepth)

	a.Child(Heart, Thorax, KindTissue, blood(8))
	a.Child(Heart, Abdomen, KindTissue, blood(30)).
		Child(Abdomen, Pelvis, KindTissue, blood(45))

	for _, side := range []struct{ thigh, leg, foot, arm, forearm, hand string }{
		{LeftThigh, LeftLeg, LeftFoot, LeftArm, LeftForearm, LeftHand},
		{RightThigh, RightLeg, RightFoot, RightArm, RightForearm, RightHand},
	} {
		a.Child(Pelvis, side.thigh, KindLimb, blood(50)).
			Child(side.thigh, side.leg, KindLimb, blood(60)).
			Child(side.leg, side.foot, KindLimb, blood(70))
		a.Child(Heart, side.arm, KindLimb, blood(6)).
			Child(side.arm, side.forearm, KindLimb, blood(70)).
			Child(side.forearm, side.hand, KindLimb, blood(60))
	}
	return a
}
