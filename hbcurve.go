// Package hbcurve models the oxygen–hemoglobin dissociation curve.
//
// Saturation maps an arterial partial pressure of oxygen (PaO2, mmHg) to the
// hemoglobin oxygen saturation (SpO2, %) with the Severinghaus approximation:
//
//	p   = PaO2 * shift
//	SpO2 = 100 / (1 + 23400 / (p³ + 150p))
//
// The shift factor moves the curve left or right according to the deviation
// of body temperature, blood pH and arterial pCO2 from the standard values
// (36.5 °C, 7.4, 40 mmHg). The curve functions are pure and safe for
// concurrent use. Device is the exception: it wraps a MAX30102 pulse
// oximeter and keeps sample buffers.
package hbcurve

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidInput is returned when a physiological input cannot be used,
	// e.g. a non-positive pCO2 or a non-finite value.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidRange is returned when a sampling domain is empty or
	// reversed, or when the number of steps is less than one.
	ErrInvalidRange = errors.New("invalid range")
)

// Inputs are the physiological values that determine the curve shift.
type Inputs struct {
	Temperature float64 `json:"temperature" toml:"temperature"` // °C
	PH          float64 `json:"ph" toml:"ph"`
	PCO2        float64 `json:"pco2" toml:"pco2"` // mmHg
}

// Standard holds the reference inputs. Resetting a form to its defaults
// means using Standard.
var Standard = Inputs{
	Temperature: StdTemperature,
	PH:          StdPH,
	PCO2:        StdPCO2,
}

// Shift returns the shift factor of the inputs. See Shift.
func (in Inputs) Shift() (float64, error) {
	return Shift(in.Temperature, in.PH, in.PCO2)
}

func (in Inputs) String() string {
	return fmt.Sprintf("T=%g°C pH=%g pCO2=%gmmHg", in.Temperature, in.PH, in.PCO2)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
