package body

// Cardio holds cardiovascular outputs.
type Cardio struct {
	HeartRate            float64 // beats/min, regulated
	ArterialResistance   float64 // mmHg·min/L, regulated
	EndDiastolicVolume   float64 // mL
	StrokeVolume         float64 // mL
	CardiacOutput        float64 // L/min
	MeanArterialPressure float64 // mmHg
	SystolicPressure     float64 // mmHg
	DiastolicPressure    float64 // mmHg
	O2Delivery           float64 // mL O2/min, whole body
}

// Respiration holds respiratory outputs.
type Respiration struct {
	RespiratoryRate     float64 // breaths/min, regulated
	TidalVolume         float64 // mL, regulated
	MinuteVentilation   float64 // mL/min
	AlveolarVentilation float64 // mL/min
	SaO2                float64 // fraction 0..1
	PaO2                float64 // mmHg
	PaCO2               float64 // mmHg
	O2Content           float64 // mL O2/dL
}

// Neuro holds neurological outputs.
type Neuro struct {
	CerebralFlow      float64 // mL/min
	CerebralPerfusion float64 // MAP - ICP, mmHg
	O2Delivery        float64 // mL O2/min to the brain
	GlasgowComaScale  float64 // 3..15
}

// Arrest records cardiac arrest. Once Arrested is set it is never cleared.
type Arrest struct {
	Arrested bool
	Time     int64 // ms, valid when Arrested
}

// Vitals is the nested numeric snapshot derived from a body.
type Vitals struct {
	Cardio      Cardio
	Respiration Respiration
	Neuro       Neuro
	Arrest      Arrest
}

// Collapse zeroes every vital while keeping the arrest record.
func (v *Vitals) Collapse() {
	arrest := v.Arrest
	*v = Vitals{Arrest: arrest}
	v.Neuro.GlasgowComaScale = 3
}
