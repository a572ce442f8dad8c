package hbcurve

import (
	"fmt"
	"math"
)

// Shift returns the dimensionless factor applied to PaO2 before evaluating
// the standard curve:
//
//	10^(0.024(36.5-T) + 0.40(pH-7.4) + 0.06(log10(40) - log10(pCO2)))
//
// A factor below 1 moves the curve right (lower affinity): that is the case
// for a higher temperature, a lower pH or a higher pCO2. At the standard
// inputs the factor is exactly 1.
//
// pCO2 must be positive; a non-positive pCO2 or a non-finite argument
// returns ErrInvalidInput.
func Shift(temperature, pH, pCO2 float64) (float64, error) {
	if !finite(temperature, pH, pCO2) {
		return 0, fmt.Errorf("hbcurve: could not compute shift for T=%v pH=%v pCO2=%v: %w",
			temperature, pH, pCO2, ErrInvalidInput)
	}
	if pCO2 <= 0 {
		return 0, fmt.Errorf("hbcurve: pCO2 must be positive, got %v: %w", pCO2, ErrInvalidInput)
	}

	exp := kTemperature*(StdTemperature-temperature) +
		kPH*(pH-StdPH) +
		kPCO2*(math.Log10(StdPCO2)-math.Log10(pCO2))

	shift := math.Pow(10, exp)
	if shift <= 0 || !finite(shift) {
		return 0, fmt.Errorf("hbcurve: shift out of range for T=%v pH=%v pCO2=%v: %w",
			temperature, pH, pCO2, ErrInvalidInput)
	}

	return shift, nil
}
