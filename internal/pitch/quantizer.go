package pitch

import (
	"fmt"
	"math"

	"github.com/leandrodaf/notetrack/sdk/contracts"
)

const (
	referenceNote = 69
	referenceHz   = 440.0
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Quantizer maps frequencies to the nearest note number inside a fixed range.
type Quantizer struct {
	lowest, highest contracts.NoteNumber
}

// NewQuantizer returns a Quantizer accepting notes in [lowest, highest].
func NewQuantizer(lowest, highest contracts.NoteNumber) Quantizer {
	return Quantizer{lowest: lowest, highest: highest}
}

// Quantize returns round(69 + 12*log2(f/440)), or NoNote for a non-positive or
// non-finite frequency and for notes outside the range.
func (q Quantizer) Quantize(frequencyHz float64) contracts.NoteNumber {
	if !(frequencyHz > 0) || math.IsInf(frequencyHz, 1) {
		return contracts.NoNote
	}
	n := contracts.NoteNumber(math.Round(referenceNote + 12*math.Log2(frequencyHz/referenceHz)))
	if n < q.lowest || n > q.highest {
		return contracts.NoNote
	}
	return n
}

// QuantizeAggregated quantizes an aggregated pitch; invalid pitches yield NoNote.
func (q Quantizer) QuantizeAggregated(p Aggregated) contracts.NoteNumber {
	if !p.Valid {
		return contracts.NoNote
	}
	return q.Quantize(p.FrequencyHz)
}

// Frequency returns the equal-tempered frequency of n.
func Frequency(n contracts.NoteNumber) float64 {
	return referenceHz * math.Pow(2, float64(int(n)-referenceNote)/12)
}

// NoteName returns the scientific pitch name of n, e.g. "A4" for 69, or "--" for NoNote.
func NoteName(n contracts.NoteNumber) string {
	if n < 0 {
		return "--"
	}
	return fmt.Sprintf("%s%d", noteNames[n%12], int(n)/12-1)
}
