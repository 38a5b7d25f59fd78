package contracts

import (
	"fmt"
	"time"

	"gitlab.com/gomidi/midi/v2"
)

// NoteNumber is a semitone-grid note number, 69 being A4 at 440 Hz.
type NoteNumber int

// NoNote marks the absence of a note.
const NoNote NoteNumber = -1

// Valid reports whether n is a real MIDI note number.
func (n NoteNumber) Valid() bool { return n >= 0 && n <= 127 }

// EventKind tags a NoteEvent.
type EventKind uint8

const (
	// NoteOnEvent starts a note.
	NoteOnEvent EventKind = iota + 1
	// NoteOffEvent releases a note.
	NoteOffEvent
)

func (k EventKind) String() string {
	switch k {
	case NoteOnEvent:
		return "note-on"
	case NoteOffEvent:
		return "note-off"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// NoteEvent is a single note decision produced by the tracker.
type NoteEvent struct {
	Kind      EventKind
	Note      NoteNumber
	Velocity  int
	Timestamp time.Duration // Monotonic time since the pipeline started.
}

// NewNoteOn builds a note-on event.
func NewNoteOn(note NoteNumber, velocity int, at time.Duration) NoteEvent {
	return NoteEvent{Kind: NoteOnEvent, Note: note, Velocity: velocity, Timestamp: at}
}

// NewNoteOff builds a note-off event.
func NewNoteOff(note NoteNumber, velocity int, at time.Duration) NoteEvent {
	return NoteEvent{Kind: NoteOffEvent, Note: note, Velocity: velocity, Timestamp: at}
}

// Message encodes the event as a 3-byte channel voice message on the given channel (0-15).
// Note and velocity are clamped to 0-127.
func (e NoteEvent) Message(channel uint8) midi.Message {
	key := uint8(clamp7(int(e.Note)))
	vel := uint8(clamp7(e.Velocity))
	if e.Kind == NoteOnEvent {
		return midi.NoteOn(channel&0x0F, key, vel)
	}
	return midi.NoteOffVelocity(channel&0x0F, key, vel)
}

func (e NoteEvent) String() string {
	return fmt.Sprintf("%s note=%d velocity=%d at=%s", e.Kind, e.Note, e.Velocity, e.Timestamp)
}

func clamp7(v int) int {
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return v
}
