package physio

import (
	"github.com/triage-sim/triage-sim/sim"
	"github.com/triage-sim/triage-sim/sim/body"
)

const minute = int64(60000)

func testConfig() *Config {
	return &Config{
		Sim: sim.DefaultSimConfig(),
		Env: DefaultEnvironment(),
		Compensation: CompensationConfig{
			Stimuli: []StimulusCurve{
				{Metric: "map", Curve: Linear(40, 100, 90, 0)},
				{Metric: "sao2", Curve: Linear(0.7, 60, 0.95, 0)},
				{Metric: "pain", Curve: Linear(0, 0, 10, 30)},
			},
			Responses: map[string]Curve{
				VitalHeartRate:       Linear(0, 0, 100, 1),
				VitalResistance:      Linear(0, 0, 100, 1),
				VitalRespiratoryRate: Linear(0, 0, 100, 1),
				VitalTidalVolume:     Linear(0, 0, 100, 1),
			},
			TimeConstantMin: 0.5,
		},
		Chemicals: map[string]Kinetics{
			"morphine": {ClearanceMlPerMin: 0, VdLPerKg: 3, HalfLifeMin: 10},
		},
	}
}

func newBody(cfg *Config) (*body.BodyState, body.HumanMeta) {
	meta := body.NewHumanMeta(body.Profile{})
	return CreateBody(body.DefaultAnatomy(2), meta, cfg), meta
}

func bleed(block string, at int64, factor float64) AfflictedPathology {
	return AfflictedPathology{
		ID: "bleed-" + block, Injury: "hemorrhage", Time: at, Key: OrderKey{EventID: 1},
		Blocks: []string{block},
		Rules:  []Rule{{Block: block, BlockPatch: []body.BlockPatch{body.ExternalBleeding(factor)}}},
	}
}

func variableEffect(id string, at int64, eventID int64, patches ...body.VariablePatch) Effect {
	key := OrderKey{EventTime: at, EventID: eventID}
	return Effect{ID: id, Action: id, Time: at, Key: key, Rules: []Rule{{VariablePatch: patches}}}
}
