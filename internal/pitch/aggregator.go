// Package pitch turns raw estimator output into note numbers.
//
// An estimator may disagree with itself inside one block, for example when the block spans
// several analysis frames. The Aggregator reduces those candidates to one frequency and the
// Quantizer snaps it to the semitone grid. Candidates at very different frequencies (octave or
// harmonic confusion) are blended by the weighted mean rather than resolved; callers that suffer
// from this should prefer Median or an estimator that reports a single candidate.
package pitch

import (
	"math"

	"github.com/leandrodaf/notetrack/sdk/contracts"
)

// DefaultConfidenceFloor discards observations the estimator is unsure about.
const DefaultConfidenceFloor = 0.5

// Aggregated is the representative pitch of a block.
type Aggregated struct {
	FrequencyHz float64
	Valid       bool // false when no observation met the confidence floor
}

// Aggregator reduces a block's observations to one frequency. Not safe for concurrent use:
// Median mode sorts in a scratch buffer owned by the Aggregator.
type Aggregator struct {
	floor   float64
	mode    contracts.AggregationMode
	scratch []float64
}

// NewAggregator returns an Aggregator. scratchHint sizes the Median buffer up front.
func NewAggregator(floor float64, mode contracts.AggregationMode, scratchHint int) *Aggregator {
	if scratchHint < 1 {
		scratchHint = 1
	}
	return &Aggregator{floor: floor, mode: mode, scratch: make([]float64, 0, scratchHint)}
}

// Aggregate returns the confidence-weighted mean (or median) frequency of the observations whose
// confidence is at least the floor. Observations with non-positive or non-finite frequency or
// confidence are ignored.
func (a *Aggregator) Aggregate(obs []contracts.PitchObservation) Aggregated {
	if a.mode == contracts.Median {
		return a.median(obs)
	}
	var weighted, total float64
	for _, o := range obs {
		if !a.usable(o) {
			continue
		}
		weighted += o.FrequencyHz * o.Confidence
		total += o.Confidence
	}
	if total <= 0 {
		return Aggregated{}
	}
	return Aggregated{FrequencyHz: weighted / total, Valid: true}
}

func (a *Aggregator) median(obs []contracts.PitchObservation) Aggregated {
	s := a.scratch[:0]
	for _, o := range obs {
		if a.usable(o) {
			s = append(s, o.FrequencyHz)
		}
	}
	a.scratch = s[:0]
	if len(s) == 0 {
		return Aggregated{}
	}
	// insertion sort; per-block candidate counts are small
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
	mid := len(s) / 2
	f := s[mid]
	if len(s)%2 == 0 {
		f = (s[mid-1] + s[mid]) / 2
	}
	return Aggregated{FrequencyHz: f, Valid: true}
}

func (a *Aggregator) usable(o contracts.PitchObservation) bool {
	return o.Confidence >= a.floor && o.Confidence > 0 &&
		o.FrequencyHz > 0 && !math.IsInf(o.FrequencyHz, 0) && !math.IsNaN(o.Confidence)
}
