package midi

import (
	"github.com/leandrodaf/notetrack/sdk/contracts"
)

// NewMIDIOutput creates the native MIDI output for the running platform.
// It applies default options and initializes the output.
//
// opts ...contracts.OutputOption: A variadic list of option functions to customize the output configuration.
//
// Returns:
//   - contracts.MIDIOutput: An instance of the MIDI output. Select a device before sending.
//   - error: An error, if any occurred during the creation of the output.
func NewMIDIOutput(opts ...contracts.OutputOption) (contracts.MIDIOutput, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}

	output, err := NewOutput(&options)
	if err != nil {
		return nil, err
	}

	return output, nil
}
