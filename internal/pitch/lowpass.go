package pitch

import "math"

// Lowpass is a second-order Butterworth low-pass biquad. Its state carries across
// calls so consecutive blocks are filtered as one continuous signal.
type Lowpass struct {
	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     float64
}

// NewLowpass returns a filter with the given cutoff. The cutoff is clamped below Nyquist.
func NewLowpass(cutoffHz, sampleRate float64) *Lowpass {
	if nyquist := sampleRate / 2; cutoffHz >= nyquist {
		cutoffHz = nyquist * 0.99
	}
	wc := 2 * math.Pi * cutoffHz / sampleRate
	cosw := math.Cos(wc)
	alpha := math.Sin(wc) / math.Sqrt2 // Q = 1/sqrt(2)

	a0 := 1 + alpha
	return &Lowpass{
		b0: (1 - cosw) / 2 / a0,
		b1: (1 - cosw) / a0,
		b2: (1 - cosw) / 2 / a0,
		a1: -2 * cosw / a0,
		a2: (1 - alpha) / a0,
	}
}

// Process filters buf in place.
func (f *Lowpass) Process(buf []float64) {
	for i, x := range buf {
		y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
		f.x2, f.x1 = f.x1, x
		f.y2, f.y1 = f.y1, y
		buf[i] = y
	}
}

// Reset clears the filter history.
func (f *Lowpass) Reset() {
	f.x1, f.x2, f.y1, f.y2 = 0, 0, 0, 0
}
