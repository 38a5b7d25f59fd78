package tracker

import "github.com/leandrodaf/notetrack/sdk/contracts"

const (
	// DefaultWindow is the number of recent quantized notes kept.
	DefaultWindow = 3
	// DefaultRunLength is the number of identical trailing notes that make a stable candidate.
	// A genuine note change is recognized RunLength-1 blocks after it happens.
	DefaultRunLength = 2
)

// Stabilizer is a fixed-size ring of the most recent quantized notes, pre-filled with NoNote.
// It is mutated by a single goroutine and never allocates after construction.
type Stabilizer struct {
	window []contracts.NoteNumber
	next   int
	run    int
}

// NewStabilizer returns a stabilizer holding size notes and requiring run identical
// trailing notes. run must be in [2, size]; NewStabilizer panics otherwise.
func NewStabilizer(size, run int) *Stabilizer {
	if run < 2 || run > size {
		panic("tracker: stabilizer run length must be in [2, window]")
	}
	s := &Stabilizer{window: make([]contracts.NoteNumber, size), run: run}
	s.Reset()
	return s
}

// Push records the block's quantized note, evicting the oldest. Silent or
// unpitched blocks push NoNote.
func (s *Stabilizer) Push(n contracts.NoteNumber) {
	s.window[s.next] = n
	s.next = (s.next + 1) % len(s.window)
}

// Candidate returns the stable note, if the last run entries agree on a real note.
func (s *Stabilizer) Candidate() (contracts.NoteNumber, bool) {
	size := len(s.window)
	last := s.at(size - 1)
	if last == contracts.NoNote {
		return contracts.NoNote, false
	}
	for i := 2; i <= s.run; i++ {
		if s.at(size-i) != last {
			return contracts.NoNote, false
		}
	}
	return last, true
}

// Window copies the ring into dst from oldest to newest and returns it.
func (s *Stabilizer) Window(dst []contracts.NoteNumber) []contracts.NoteNumber {
	for i := 0; i < len(s.window); i++ {
		dst = append(dst, s.at(i))
	}
	return dst
}

// Reset refills the ring with NoNote.
func (s *Stabilizer) Reset() {
	for i := range s.window {
		s.window[i] = contracts.NoNote
	}
	s.next = 0
}

// at returns the i-th entry counted from the oldest.
func (s *Stabilizer) at(i int) contracts.NoteNumber {
	return s.window[(s.next+i)%len(s.window)]
}
