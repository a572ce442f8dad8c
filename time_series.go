package hbcurve

// tSeries is a ring buffer of normalized LED samples that tracks the minimum
// and maximum of the samples it holds.
type tSeries struct {
	buffer []float64
	idx    int
	n      int

	max float64
	min float64
}

func newTSeries(size int) *tSeries {
	t := &tSeries{
		buffer: make([]float64, size),
	}
	t.reset()
	return t
}

func (t *tSeries) add(entries ...float64) {
	if len(entries) == 0 {
		return
	}
	for _, e := range entries {
		t.idx++
		t.idx %= len(t.buffer)
		t.buffer[t.idx] = e
		if t.n < len(t.buffer) {
			t.n++
		}
	}

	t.max = t.buffer[0]
	t.min = t.buffer[0]
	for _, b := range t.buffer[:t.n] {
		t.minmax(b)
	}
}

func (t *tSeries) minmax(v float64) {
	if v > t.max {
		t.max = v
	}
	if v < t.min {
		t.min = v
	}
}

func (t *tSeries) last() float64 {
	if t.n == 0 {
		return 0
	}
	return t.buffer[t.idx]
}

// acdc returns the ratio of the pulsatile (AC) to the steady (DC) part of
// the signal.
func (t *tSeries) acdc() float64 {
	if t.n == 0 || t.min <= 0 {
		return 0
	}

	return (t.max - t.min) / t.min
}

func (t *tSeries) reset() {
	t.idx = len(t.buffer) - 1
	t.n = 0
	t.max = 0
	t.min = 0
}
