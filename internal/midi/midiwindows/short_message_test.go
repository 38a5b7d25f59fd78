package midiwindows_test

import (
	"testing"

	"github.com/leandrodaf/notetrack/internal/midi/midiwindows"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackShortMessage(t *testing.T) {
	packed, err := midiwindows.PackShortMessage([]byte{0x93, 60, 100})
	require.NoError(t, err)
	assert.Equal(t, uint32(0x643C93), packed)

	packed, err = midiwindows.PackShortMessage([]byte{0x80, 69, 10})
	require.NoError(t, err)
	assert.Equal(t, uint32(0x0A4580), packed)
}

func TestPackShortMessageRejectsOthers(t *testing.T) {
	for _, msg := range [][]byte{nil, {0x3C, 0x40}, {0xF0, 0x7E, 0x7F}, {0x90, 1, 2, 3}} {
		_, err := midiwindows.PackShortMessage(msg)
		assert.ErrorIs(t, err, midiwindows.ErrNotShortMessage)
	}
}
