package capture

import "github.com/leandrodaf/notetrack/sdk/contracts"

// Reblocker regroups device buffers of arbitrary length into fixed-size blocks.
// Its buffer is allocated once; Write does not allocate.
type Reblocker struct {
	buf        []float32
	fill       int
	channels   int
	sampleRate float64
}

// NewReblocker returns a reblocker emitting blocks of frames frames.
func NewReblocker(frames, channels int, sampleRate float64) *Reblocker {
	if frames < 1 {
		frames = 1
	}
	if channels < 1 {
		channels = 1
	}
	return &Reblocker{
		buf:        make([]float32, frames*channels),
		channels:   channels,
		sampleRate: sampleRate,
	}
}

// Write appends interleaved samples and calls emit for every completed block.
// The block passed to emit is only valid during the call.
func (r *Reblocker) Write(samples []float32, emit func(contracts.AudioBlock)) {
	for len(samples) > 0 {
		n := copy(r.buf[r.fill:], samples)
		r.fill += n
		samples = samples[n:]
		if r.fill == len(r.buf) {
			emit(contracts.AudioBlock{Samples: r.buf, Channels: r.channels, SampleRate: r.sampleRate})
			r.fill = 0
		}
	}
}

// Pending returns the number of buffered samples not yet emitted.
func (r *Reblocker) Pending() int { return r.fill }

// Reset discards buffered samples.
func (r *Reblocker) Reset() { r.fill = 0 }
