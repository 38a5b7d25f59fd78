package contracts

// MIDICommand represents the status nibble of a channel voice message.
type MIDICommand byte

const (
	// NoteOn is the MIDI command for a Note On event (0x90).
	NoteOn MIDICommand = 0x90
	// NoteOff is the MIDI command for a Note Off event (0x80).
	NoteOff MIDICommand = 0x80
)

// MIDISender is the MIDI-sink capability consumed by the dispatcher.
// Send may block; it is never called from the audio thread.
type MIDISender interface {
	Send(msg []byte) error
}

// MIDIOutput is a MIDI output port with device selection.
type MIDIOutput interface {
	MIDISender
	Stop() error                        // Stops the output and releases resources.
	ListDevices() ([]DeviceInfo, error) // Lists all available MIDI output devices.
	SelectDevice(deviceID int) error    // Selects a MIDI output device by its index.
}
