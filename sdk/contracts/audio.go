package contracts

// AudioBlock is one fixed-size chunk of interleaved samples delivered per processing tick.
// The slice is owned by the audio layer for the duration of the call and must not be retained.
type AudioBlock struct {
	Samples    []float32 // Interleaved samples, Frames*Channels long.
	Channels   int       // Channel count, fixed for the stream's lifetime.
	SampleRate float64   // Sample rate in Hz.
}

// Frames returns the number of sample frames in the block.
func (b AudioBlock) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// DeviceStatus is a bit set of conditions reported by the capture device alongside a block.
type DeviceStatus uint8

const (
	// InputOverflow means the device dropped captured samples.
	InputOverflow DeviceStatus = 1 << iota
	// InputUnderflow means the device delivered fewer samples than expected.
	InputUnderflow
)

// Has reports whether all bits of flag are set.
func (s DeviceStatus) Has(flag DeviceStatus) bool { return s&flag == flag }

// PitchObservation is a single fundamental-frequency candidate from an estimator.
type PitchObservation struct {
	FrequencyHz float64 // Estimated frequency, > 0 when meaningful.
	Confidence  float64 // Confidence in [0,1].
}

// PitchEstimator yields pitch candidates for an audio block.
//
// Estimate appends zero or more observations to dst and returns the extended slice.
// It is called on the audio thread and must finish within the block deadline;
// implementations should reuse dst and their own buffers rather than allocate.
type PitchEstimator interface {
	Estimate(block AudioBlock, dst []PitchObservation) []PitchObservation
}

// PitchEstimatorFunc adapts a function to the PitchEstimator interface.
type PitchEstimatorFunc func(block AudioBlock, dst []PitchObservation) []PitchObservation

// Estimate calls f(block, dst).
func (f PitchEstimatorFunc) Estimate(block AudioBlock, dst []PitchObservation) []PitchObservation {
	return f(block, dst)
}
