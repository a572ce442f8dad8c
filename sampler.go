package hbcurve

import "fmt"

// Point is a single sample of a curve: X is PaO2 (mmHg), Y is SpO2 (%).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Curve is a sequence of points sorted by strictly ascending X.
type Curve []Point

// Sample evaluates Saturation with the given shift at steps+1 evenly spaced
// PaO2 values covering [min, max]. The first point is at min and the last
// one at max.
//
// ErrInvalidRange is returned when max <= min, when steps < 1, or when the
// interval is too narrow to hold steps distinct values.
func Sample(min, max float64, steps int, shift float64) (Curve, error) {
	if !finite(min, max) || max <= min || steps < 1 {
		return nil, fmt.Errorf("hbcurve: could not sample [%v, %v] in %d steps: %w",
			min, max, steps, ErrInvalidRange)
	}

	span := max - min
	c := make(Curve, steps+1)
	for i := range c {
		x := min + span*float64(i)/float64(steps)
		if i == steps {
			x = max
		}
		if i > 0 && x <= c[i-1].X {
			return nil, fmt.Errorf("hbcurve: [%v, %v] is too narrow for %d steps: %w",
				min, max, steps, ErrInvalidRange)
		}
		c[i] = Point{X: x, Y: Saturation(x, shift)}
	}

	return c, nil
}
