package hbcurve

// Standard reference point. A patient at these values has no curve shift.
const (
	StdTemperature = 36.5 // °C
	StdPH          = 7.4
	StdPCO2        = 40 // mmHg

	// StdPaO2 is the arterial pressure marked on a plot as "Standard PaO2".
	StdPaO2 = 92 // mmHg

	// P50Saturation is the saturation marked on a plot as "p50".
	P50Saturation = 50 // %
)

// Shift coefficients.
const (
	kTemperature = 0.024
	kPH          = 0.40
	kPCO2        = 0.06
)

// Severinghaus coefficients.
const (
	sevA = 23400
	sevB = 150
)

// Default plot domain, one sample per mmHg.
const (
	defaultMin   = 0
	defaultMax   = 110
	defaultSteps = 110
)

// Oximeter constants.
const (
	threshold  = 0.10
	bufferSize = 64
)
