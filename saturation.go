package hbcurve

import (
	"fmt"
	"math"
)

// Saturation returns the SpO2 (%) at paO2 (mmHg) on the curve moved by shift.
// Use a shift of 1 for the standard curve.
//
// The result is 0 when the adjusted pressure paO2*shift is not positive,
// which covers paO2 = 0 where the Severinghaus fraction is undefined. For a
// positive adjusted pressure the result lies in (0, 100) and increases
// strictly with paO2.
func Saturation(paO2, shift float64) float64 {
	p := paO2 * shift
	if p <= 0 {
		return 0
	}

	d := p*p*p + sevB*p
	if d == 0 {
		return 0
	}

	return 100 / (1 + sevA/d)
}

// PaO2 returns the pressure (mmHg) at which the curve moved by shift reaches
// spO2 (%). It is the inverse of Saturation:
//
//	PaO2(Saturation(x, shift), shift) == x
//
// up to rounding. spO2 must be in [0, 100) and shift positive, otherwise
// ErrInvalidInput is returned.
func PaO2(spO2, shift float64) (float64, error) {
	if !finite(spO2, shift) || spO2 < 0 || spO2 >= 100 {
		return 0, fmt.Errorf("hbcurve: SpO2 must be in [0, 100), got %v: %w", spO2, ErrInvalidInput)
	}
	if shift <= 0 {
		return 0, fmt.Errorf("hbcurve: shift must be positive, got %v: %w", shift, ErrInvalidInput)
	}
	if spO2 == 0 {
		return 0, nil
	}

	s := spO2 / 100
	p := adjustedPressure(sevA * s / (1 - s))

	return p / shift, nil
}

// P50 returns the PaO2 (mmHg) at half saturation on the curve moved by shift.
// The standard curve has a p50 of about 26.9 mmHg.
func P50(shift float64) float64 {
	p, err := PaO2(P50Saturation, shift)
	if err != nil {
		return math.NaN()
	}
	return p
}

// adjustedPressure solves p³ + 150p = q for p, q >= 0. The cubic has a
// single real root since its linear coefficient is positive. The second
// Cardano term is taken as -50/u, which avoids cancelling two large numbers.
func adjustedPressure(q float64) float64 {
	const third = sevB / 3.0
	r := math.Sqrt(q*q/4 + third*third*third)
	u := math.Cbrt(q/2 + r)
	return u - third/u
}
