package midiwindows

import (
	"errors"
	"fmt"
)

// ErrNotShortMessage is returned for messages that midiOutShortMsg cannot carry.
var ErrNotShortMessage = errors.New("not a MIDI short message")

// PackShortMessage packs a one to three byte channel message into the
// little-endian DWORD layout expected by midiOutShortMsg.
func PackShortMessage(msg []byte) (uint32, error) {
	if len(msg) == 0 || len(msg) > 3 || msg[0]&0x80 == 0 || msg[0] == 0xF0 {
		return 0, fmt.Errorf("%w: % X", ErrNotShortMessage, msg)
	}
	var packed uint32
	for i, b := range msg {
		packed |= uint32(b) << (8 * i)
	}
	return packed, nil
}
