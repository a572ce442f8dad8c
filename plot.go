package hbcurve

import "fmt"

// Axis tells which axis a marker is drawn against.
type Axis string

// Marker axes.
const (
	AxisX Axis = "x" // vertical line at X = Value
	AxisY Axis = "y" // horizontal line at Y = Value
)

// Marker is a reference line a renderer draws over the curves.
type Marker struct {
	Axis  Axis    `json:"axis"`
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

// Markers are the annotations of every plot: the standard PaO2 and the
// half saturation line.
var Markers = []Marker{
	{Axis: AxisX, Value: StdPaO2, Label: "Standard PaO2"},
	{Axis: AxisY, Value: P50Saturation, Label: "p50"},
}

// Plot holds everything a renderer needs to draw the dissociation curve of
// a patient against the standard one.
type Plot struct {
	Inputs    Inputs   `json:"inputs"`
	Shift     float64  `json:"shift"`
	P50       float64  `json:"p50"`
	Reference Curve    `json:"reference"`
	Patient   Curve    `json:"patient"`
	Markers   []Marker `json:"markers"`

	min, max float64
	steps    int
}

// NewPlot samples the standard curve and the curve shifted for in. Both
// curves share the same domain, set with the Domain and Steps options.
func NewPlot(in Inputs, opts ...Option) (*Plot, error) {
	p := &Plot{
		Inputs: in,
		min:    defaultMin,
		max:    defaultMax,
		steps:  defaultSteps,
	}
	for _, opt := range opts {
		opt(p)
	}

	shift, err := in.Shift()
	if err != nil {
		return nil, err
	}
	p.Shift = shift
	p.P50 = P50(shift)

	if p.Reference, err = Sample(p.min, p.max, p.steps, 1); err != nil {
		return nil, fmt.Errorf("hbcurve: could not sample reference curve: %w", err)
	}
	if p.Patient, err = Sample(p.min, p.max, p.steps, shift); err != nil {
		return nil, fmt.Errorf("hbcurve: could not sample patient curve: %w", err)
	}

	p.Markers = make([]Marker, len(Markers))
	copy(p.Markers, Markers)

	return p, nil
}
