package sim

import "fmt"

// IntegrationConfig groups parameters of the piecewise integration.
type IntegrationConfig struct {
	StepMs int64 // absolute integration grid in ms (must be > 0)
}

// ArrestThresholds are the floors below which cardiac arrest is recorded.
type ArrestThresholds struct {
	HeartRate            float64 // beats/min
	MeanArterialPressure float64 // mmHg
	SaO2                 float64 // fraction 0..1
}

// WorldConfig groups parameters of the temporal world-state manager.
type WorldConfig struct {
	ReachMeters float64 // max actor-target distance for treatments and measurements
	WalkSpeed   float64 // m/s along pathfinder waypoints
}

// SimConfig is the engine configuration shared by physio and world.
type SimConfig struct {
	Seed int64
	IntegrationConfig
	ArrestThresholds
	WorldConfig
}

// NewIntegrationConfig creates an IntegrationConfig.
func NewIntegrationConfig(stepMs int64) IntegrationConfig {
	return IntegrationConfig{StepMs: stepMs}
}

// NewArrestThresholds creates ArrestThresholds.
func NewArrestThresholds(heartRate, meanArterialPressure, saO2 float64) ArrestThresholds {
	return ArrestThresholds{
		HeartRate:            heartRate,
		MeanArterialPressure: meanArterialPressure,
		SaO2:                 saO2,
	}
}

// DefaultSimConfig returns the configuration used by the CLI when no
// override is given.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Seed:              42,
		IntegrationConfig: NewIntegrationConfig(1000),
		ArrestThresholds:  NewArrestThresholds(20, 25, 0.4),
		WorldConfig:       WorldConfig{ReachMeters: 2, WalkSpeed: 1.4},
	}
}

// Validate checks parameter ranges.
func (c SimConfig) Validate() error {
	if c.StepMs <= 0 {
		return fmt.Errorf("integration step must be > 0 ms, got %d", c.StepMs)
	}
	if c.ArrestThresholds.HeartRate < 0 || c.ArrestThresholds.MeanArterialPressure < 0 {
		return fmt.Errorf("arrest thresholds must be >= 0, got hr=%v map=%v",
			c.ArrestThresholds.HeartRate, c.ArrestThresholds.MeanArterialPressure)
	}
	if c.ArrestThresholds.SaO2 < 0 || c.ArrestThresholds.SaO2 > 1 {
		return fmt.Errorf("SaO2 arrest threshold must be in [0,1], got %v", c.ArrestThresholds.SaO2)
	}
	if c.ReachMeters < 0 {
		return fmt.Errorf("reach must be >= 0, got %v", c.ReachMeters)
	}
	if c.WalkSpeed <= 0 {
		return fmt.Errorf("walk speed must be > 0, got %v", c.WalkSpeed)
	}
	return nil
}
