package midi

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/leandrodaf/notetrack/internal/midi/mididarwin"
	"github.com/leandrodaf/notetrack/internal/midi/midiwindows"
	"github.com/leandrodaf/notetrack/sdk/contracts"
)

// ErrUnsupportedOS is returned when the operating system has no native MIDI output.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// outputInitializers maps OS names to corresponding MIDI output initializers.
var outputInitializers = map[string]func(*contracts.OutputOptions) (contracts.MIDIOutput, error){
	"darwin":  mididarwin.NewMIDIOutput,  // macOS (Darwin) CoreMIDI output.
	"windows": midiwindows.NewMIDIOutput, // Windows winmm output.
}

// NewOutput initializes a MIDI output based on the current operating system.
// It supports macOS (Darwin) and Windows, returning ErrUnsupportedOS otherwise;
// other platforms can use the gomidi driver adapter in internal/midi/gomidiout.
//
// opts *contracts.OutputOptions: Configuration options for the MIDI output.
//
// Returns:
//   - contracts.MIDIOutput: An instance of the MIDI output.
//   - error: An error if the operating system is unsupported or if initialization fails.
func NewOutput(opts *contracts.OutputOptions) (contracts.MIDIOutput, error) {
	return newOutputFor(runtime.GOOS, opts)
}

func newOutputFor(goos string, opts *contracts.OutputOptions) (contracts.MIDIOutput, error) {
	if initializer, exists := outputInitializers[goos]; exists {
		return initializer(opts)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedOS, goos)
}
