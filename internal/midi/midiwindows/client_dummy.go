//go:build !windows
// +build !windows

package midiwindows

import (
	"errors"

	"github.com/leandrodaf/notetrack/sdk/contracts"
)

// ErrUnavailable is returned by every operation of the dummy output.
var ErrUnavailable = errors.New("winmm MIDI output is not available on this platform")

type dummyMIDIOutput struct {
	logger contracts.Logger
}

// NewMIDIOutput initializes a dummy MIDI output for non-Windows systems.
func NewMIDIOutput(options *contracts.OutputOptions) (contracts.MIDIOutput, error) {
	options.Logger.Info("Using dummy MIDI output for non-Windows system")
	return &dummyMIDIOutput{
		logger: options.Logger,
	}, nil
}

// ListDevices logs a warning and returns ErrUnavailable.
func (m *dummyMIDIOutput) ListDevices() ([]contracts.DeviceInfo, error) {
	m.logger.Warn("ListDevices called on dummy MIDI output")
	return nil, ErrUnavailable
}

// SelectDevice logs a warning and returns ErrUnavailable.
func (m *dummyMIDIOutput) SelectDevice(deviceID int) error {
	m.logger.Warn("SelectDevice called on dummy MIDI output")
	return ErrUnavailable
}

// Send returns ErrUnavailable.
func (m *dummyMIDIOutput) Send(msg []byte) error {
	return ErrUnavailable
}

// Stop logs a warning indicating that Stop was called on the dummy MIDI output.
func (m *dummyMIDIOutput) Stop() error {
	m.logger.Warn("Stop called on dummy MIDI output")
	return nil
}
