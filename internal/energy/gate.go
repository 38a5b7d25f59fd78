// Package energy measures block loudness: the silence gate and the velocity mapping.
package energy

import (
	"math"

	"github.com/leandrodaf/notetrack/sdk/contracts"
)

const (
	// DefaultThreshold is the mean RMS below which a block counts as silence.
	DefaultThreshold = 0.005

	// DefaultFrameLength is the analysis frame used for per-frame RMS, in sample frames.
	DefaultFrameLength = 2048
	// DefaultHopLength is the distance between analysis frames.
	DefaultHopLength = 512
)

// Gate classifies blocks as silent or active from their mean RMS.
// It holds only configuration and is safe to share.
type Gate struct {
	threshold float64
	frame     int
	hop       int
}

// NewGate returns a Gate with the given threshold over DefaultFrameLength/DefaultHopLength frames.
func NewGate(threshold float64) *Gate {
	return &Gate{threshold: threshold, frame: DefaultFrameLength, hop: DefaultHopLength}
}

// WithFrames returns a copy of g that averages RMS over frames of the given length and hop.
// A frame length of 0 measures the whole block at once.
func (g *Gate) WithFrames(length, hop int) *Gate {
	c := *g
	c.frame, c.hop = length, hop
	if c.hop <= 0 {
		c.hop = length
	}
	return &c
}

// Threshold returns the configured silence threshold.
func (g *Gate) Threshold() float64 { return g.threshold }

// Measure returns the block's mean RMS and whether it is at or above the threshold.
func (g *Gate) Measure(block contracts.AudioBlock) (energy float64, active bool) {
	energy = MeanRMS(block, g.frame, g.hop)
	return energy, energy >= g.threshold
}

// MeanRMS returns the mean of per-frame RMS values over the mono mixdown of block.
// Frames shorter than the block fall back to a single whole-block frame.
func MeanRMS(block contracts.AudioBlock, frame, hop int) float64 {
	n := block.Frames()
	if n == 0 {
		return 0
	}
	if frame <= 0 || frame >= n {
		return rms(block, 0, n)
	}
	if hop <= 0 {
		hop = frame
	}
	var sum float64
	var count int
	for start := 0; start+frame <= n; start += hop {
		sum += rms(block, start, start+frame)
		count++
	}
	return sum / float64(count)
}

// rms of the channel-averaged signal over sample frames [from, to).
func rms(block contracts.AudioBlock, from, to int) float64 {
	ch := block.Channels
	var sumSquares float64
	for i := from; i < to; i++ {
		var s float64
		for c := 0; c < ch; c++ {
			s += float64(block.Samples[i*ch+c])
		}
		s /= float64(ch)
		sumSquares += s * s
	}
	return math.Sqrt(sumSquares / float64(to-from))
}
