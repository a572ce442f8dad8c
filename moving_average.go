package hbcurve

// movingAverage stores an estimated moving average of the last 4 values.
type movingAverage struct {
	mean float64
}

// add pre-fills the average with the first value after a reset.
func (m *movingAverage) add(n float64) {
	if m.mean == 0 {
		m.mean = n
		return
	}
	m.mean += (n - m.mean) / 4
}

func (m *movingAverage) reset() {
	m.mean = 0
}
