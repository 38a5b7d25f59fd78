//go:build darwin
// +build darwin

package mididarwin

import (
	"errors"
	"fmt"
	"sync"

	"github.com/leandrodaf/notetrack/sdk/contracts"
	"github.com/youpy/go-coremidi"
)

// Error definitions for MIDI output issues.
var (
	ErrNoMIDIDevices      = errors.New("no MIDI destinations found")
	ErrInvalidMIDIDevice  = errors.New("invalid MIDI destination")
	ErrCreateOutputPort   = errors.New("error creating output port")
	ErrNoDeviceSelected   = errors.New("no MIDI destination selected")
	ErrOutputStopped      = errors.New("MIDI output stopped")
	ErrMIDIPacketRejected = errors.New("CoreMIDI rejected packet")
)

// OutputMid sends MIDI to a CoreMIDI destination on Darwin (macOS) systems.
type OutputMid struct {
	logger      contracts.Logger
	client      coremidi.Client           // CoreMIDI client instance.
	port        coremidi.OutputPort       // Output port created on the client.
	destination *coremidi.Destination     // Selected destination, nil until SelectDevice.
	config      *contracts.CoreMIDIConfig // Client and port names.
	mu          sync.Mutex                // Guards destination and stopped.
	stopped     bool
	stopOnce    sync.Once
}

// NewMIDIOutput creates a CoreMIDI client and output port.
func NewMIDIOutput(options *contracts.OutputOptions) (contracts.MIDIOutput, error) {
	client, err := coremidi.NewClient(options.CoreMIDIConfig.ClientName)
	if err != nil {
		return nil, err
	}
	port, err := coremidi.NewOutputPort(client, options.CoreMIDIConfig.PortName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreateOutputPort, err)
	}
	options.Logger.Info("MIDI output successfully created",
		options.Logger.Field().String("client", options.CoreMIDIConfig.ClientName),
		options.Logger.Field().String("port", options.CoreMIDIConfig.PortName))

	return &OutputMid{
		logger: options.Logger,
		client: client,
		port:   port,
		config: options.CoreMIDIConfig,
	}, nil
}

// ListDevices returns the available MIDI destinations.
func (m *OutputMid) ListDevices() ([]contracts.DeviceInfo, error) {
	destinations, err := coremidi.AllDestinations()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI destinations: %w", err)
	}
	if len(destinations) == 0 {
		m.logger.Warn(ErrNoMIDIDevices.Error())
		return nil, ErrNoMIDIDevices
	}

	devices := make([]contracts.DeviceInfo, len(destinations))
	for i, destination := range destinations {
		devices[i] = contracts.DeviceInfo{
			Name:         destination.Name(),
			EntityName:   destination.Name(),
			Manufacturer: destination.Manufacturer(),
		}
	}
	return devices, nil
}

// SelectDevice routes subsequent sends to the destination at deviceID.
func (m *OutputMid) SelectDevice(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return ErrOutputStopped
	}
	destinations, err := coremidi.AllDestinations()
	if err != nil {
		return fmt.Errorf("error retrieving MIDI destinations: %w", err)
	}
	if deviceID < 0 || deviceID >= len(destinations) {
		m.logger.Error(ErrInvalidMIDIDevice.Error(), m.logger.Field().Int("deviceID", deviceID))
		return ErrInvalidMIDIDevice
	}

	destination := destinations[deviceID]
	m.destination = &destination
	m.logger.Info("MIDI destination selected",
		m.logger.Field().Int("deviceID", deviceID),
		m.logger.Field().String("deviceName", destination.Name()))
	return nil
}

// Send delivers one MIDI message to the selected destination.
func (m *OutputMid) Send(msg []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return ErrOutputStopped
	}
	if m.destination == nil {
		return ErrNoDeviceSelected
	}
	packet := coremidi.NewPacket(msg, 0)
	if err := packet.Send(&m.port, m.destination); err != nil {
		return fmt.Errorf("%w: %v", ErrMIDIPacketRejected, err)
	}
	return nil
}

// Stop detaches the destination. Further sends fail with ErrOutputStopped.
// The CoreMIDI client and output port are not disposed; they live until the
// process exits, so create one OutputMid per process.
func (m *OutputMid) Stop() error {
	m.stopOnce.Do(func() {
		m.logger.Info("Stopping MIDI output")
		m.mu.Lock()
		defer m.mu.Unlock()

		m.stopped = true
		m.destination = nil
		m.logger.Info("MIDI output stopped")
	})
	return nil
}
