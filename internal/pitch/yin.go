package pitch

import (
	"math"

	"github.com/leandrodaf/notetrack/sdk/contracts"
)

// YINConfig configures the YIN estimator.
type YINConfig struct {
	MinHz           float64 // Lowest detectable fundamental.
	MaxHz           float64 // Highest detectable fundamental.
	FrameLength     int     // Analysis frame in samples; blocks shorter than this form one frame.
	HopLength       int     // Distance between frames; defaults to FrameLength/4.
	TroughThreshold float64 // Absolute threshold on the normalized difference.
	LowpassHz       float64 // Prefilter cutoff; 0 disables the prefilter.
}

// DefaultYINConfig matches a general-purpose monophonic instrument range.
func DefaultYINConfig() YINConfig {
	return YINConfig{
		MinHz:           65,
		MaxHz:           3000,
		FrameLength:     2048,
		TroughThreshold: 0.2,
		LowpassHz:       8000,
	}
}

// YIN is a time-domain fundamental frequency estimator implementing contracts.PitchEstimator.
// It reports one observation per analysis frame with confidence 1-d'(tau).
// Working buffers grow to the largest block seen and are then reused; a YIN value
// must only be used from one goroutine.
type YIN struct {
	cfg        YINConfig
	sampleRate float64
	lowpass    *Lowpass
	mono       []float64
	diff       []float64
}

var _ contracts.PitchEstimator = (*YIN)(nil)

// NewYIN returns an estimator for the given sample rate. blockHint presizes the buffers.
func NewYIN(sampleRate float64, cfg YINConfig, blockHint int) *YIN {
	def := DefaultYINConfig()
	if cfg.MinHz <= 0 {
		cfg.MinHz = def.MinHz
	}
	if cfg.MaxHz <= cfg.MinHz {
		cfg.MaxHz = def.MaxHz
	}
	if cfg.FrameLength <= 0 {
		cfg.FrameLength = def.FrameLength
	}
	if cfg.HopLength <= 0 {
		cfg.HopLength = cfg.FrameLength / 4
	}
	if cfg.TroughThreshold <= 0 {
		cfg.TroughThreshold = def.TroughThreshold
	}
	y := &YIN{
		cfg:        cfg,
		sampleRate: sampleRate,
		mono:       make([]float64, 0, blockHint),
		diff:       make([]float64, cfg.FrameLength/2+1),
	}
	if cfg.LowpassHz > 0 {
		y.lowpass = NewLowpass(cfg.LowpassHz, sampleRate)
	}
	return y
}

// Estimate appends one observation per analysis frame of block to dst.
func (y *YIN) Estimate(block contracts.AudioBlock, dst []contracts.PitchObservation) []contracts.PitchObservation {
	n := block.Frames()
	if n < 4 {
		return dst
	}
	y.mixdown(block)
	if y.lowpass != nil {
		y.lowpass.Process(y.mono)
	}

	frame := y.cfg.FrameLength
	if frame > n {
		frame = n
	}
	for start := 0; start+frame <= n; start += y.cfg.HopLength {
		if f, conf, ok := y.frame(y.mono[start : start+frame]); ok {
			dst = append(dst, contracts.PitchObservation{FrequencyHz: f, Confidence: conf})
		}
	}
	return dst
}

func (y *YIN) mixdown(block contracts.AudioBlock) {
	n, ch := block.Frames(), block.Channels
	if cap(y.mono) < n {
		y.mono = make([]float64, n)
	}
	y.mono = y.mono[:n]
	for i := 0; i < n; i++ {
		var s float64
		for c := 0; c < ch; c++ {
			s += float64(block.Samples[i*ch+c])
		}
		y.mono[i] = s / float64(ch)
	}
}

// frame runs YIN over x and returns the refined frequency and its confidence.
func (y *YIN) frame(x []float64) (float64, float64, bool) {
	tauMin := int(math.Floor(y.sampleRate / y.cfg.MaxHz))
	tauMax := int(math.Ceil(y.sampleRate / y.cfg.MinHz))
	if half := len(x) / 2; tauMax > half {
		tauMax = half
	}
	if tauMin < 1 {
		tauMin = 1
	}
	if tauMax <= tauMin+1 {
		return 0, 0, false
	}
	if cap(y.diff) < tauMax+1 {
		y.diff = make([]float64, tauMax+1)
	}
	d := y.diff[:tauMax+1]
	window := len(x) - tauMax

	// difference function
	d[0] = 0
	for tau := 1; tau <= tauMax; tau++ {
		var sum float64
		for j := 0; j < window; j++ {
			delta := x[j] - x[j+tau]
			sum += delta * delta
		}
		d[tau] = sum
	}

	// cumulative mean normalized difference
	d[0] = 1
	var running float64
	for tau := 1; tau <= tauMax; tau++ {
		running += d[tau]
		if running == 0 {
			d[tau] = 1
			continue
		}
		d[tau] = d[tau] * float64(tau) / running
	}

	best := -1
	for tau := tauMin; tau < tauMax; tau++ {
		if d[tau] < y.cfg.TroughThreshold {
			for tau+1 < tauMax && d[tau+1] < d[tau] {
				tau++
			}
			best = tau
			break
		}
	}
	if best < 0 {
		best = tauMin
		for tau := tauMin + 1; tau < tauMax; tau++ {
			if d[tau] < d[best] {
				best = tau
			}
		}
	}

	refined := float64(best)
	if best > tauMin && best < tauMax-1 {
		s0, s1, s2 := d[best-1], d[best], d[best+1]
		if denom := s0 - 2*s1 + s2; denom != 0 {
			refined += (s0 - s2) / (2 * denom)
		}
	}
	if refined <= 0 {
		return 0, 0, false
	}
	conf := 1 - d[best]
	if conf < 0 {
		conf = 0
	}
	return y.sampleRate / refined, conf, true
}
