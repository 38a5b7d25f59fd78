// Package tracker decides when notes start, stop and re-attack.
//
// Debouncing happens in the Stabilizer ("is this pitch real"); the Tracker only
// reacts to stable candidates ("has the musical note changed").
package tracker

import (
	"time"

	"github.com/leandrodaf/notetrack/sdk/contracts"
)

const (
	// DefaultVelocityJumpThreshold is the velocity rise over the previous block that re-attacks a held note.
	DefaultVelocityJumpThreshold = 20
	// DefaultMinFramesBeforeRetrigger is how many stable blocks must follow an attack before a re-attack.
	DefaultMinFramesBeforeRetrigger = 1
	// DefaultReleaseVelocity is used for note-offs caused by silence, note changes and teardown.
	DefaultReleaseVelocity = 10
)

// Config holds the tracker's hysteresis parameters.
type Config struct {
	VelocityJumpThreshold    int
	MinFramesBeforeRetrigger int
	ReleaseVelocity          int
}

// DefaultConfig returns the default hysteresis parameters.
func DefaultConfig() Config {
	return Config{
		VelocityJumpThreshold:    DefaultVelocityJumpThreshold,
		MinFramesBeforeRetrigger: DefaultMinFramesBeforeRetrigger,
		ReleaseVelocity:          DefaultReleaseVelocity,
	}
}

// Voice is what MIDI currently believes is sounding. Note is NoNote when silent.
type Voice struct {
	Note              contracts.NoteNumber
	Velocity          int
	FramesSinceAttack int
}

// Sounding reports whether a note is open.
func (v Voice) Sounding() bool { return v.Note != contracts.NoNote }

// Input is one block's worth of evidence.
type Input struct {
	Active    bool                 // energy gate status
	Candidate contracts.NoteNumber // stable note, meaningful when Stable
	Stable    bool
	Velocity  int // mapped velocity of this block
	At        time.Duration
}

// Tracker is the monophonic note state machine. It is owned by the audio goroutine.
type Tracker struct {
	cfg   Config
	voice Voice
	emit  func(contracts.NoteEvent)
}

// New returns a silent tracker that reports events through emit.
// emit runs on the caller's goroutine and must not block.
func New(cfg Config, emit func(contracts.NoteEvent)) *Tracker {
	return &Tracker{cfg: cfg, voice: Voice{Note: contracts.NoNote}, emit: emit}
}

// Voice returns the current voice state.
func (t *Tracker) Voice() Voice { return t.voice }

// Step applies one block of evidence.
func (t *Tracker) Step(in Input) {
	if !in.Active {
		t.Release(in.At)
		return
	}
	if !in.Stable {
		return
	}

	v := &t.voice
	if !v.Sounding() || in.Candidate != v.Note {
		if v.Sounding() {
			t.emit(contracts.NewNoteOff(v.Note, t.cfg.ReleaseVelocity, in.At))
		}
		t.attack(in.Candidate, in.Velocity, in.At)
		return
	}

	if in.Velocity > v.Velocity+t.cfg.VelocityJumpThreshold && v.FramesSinceAttack > t.cfg.MinFramesBeforeRetrigger {
		t.emit(contracts.NewNoteOff(v.Note, v.Velocity, in.At))
		t.attack(v.Note, in.Velocity, in.At)
		return
	}
	v.Velocity = in.Velocity
	v.FramesSinceAttack++
}

// Release closes the open note, if any, with the release velocity. It reports whether
// a note-off was emitted. Releasing a silent tracker is a no-op.
func (t *Tracker) Release(at time.Duration) bool {
	if !t.voice.Sounding() {
		return false
	}
	t.emit(contracts.NewNoteOff(t.voice.Note, t.cfg.ReleaseVelocity, at))
	t.voice = Voice{Note: contracts.NoNote}
	return true
}

func (t *Tracker) attack(note contracts.NoteNumber, velocity int, at time.Duration) {
	t.emit(contracts.NewNoteOn(note, velocity, at))
	t.voice = Voice{Note: note, Velocity: velocity}
}
