// Package gomidiout adapts gomidi output drivers (rtmidi, portmidi, webmidi) to contracts.MIDIOutput.
package gomidiout

import (
	"errors"
	"fmt"
	"sync"

	"gitlab.com/gomidi/midi/v2/drivers"
	"go.uber.org/multierr"

	"github.com/leandrodaf/notetrack/sdk/contracts"
)

var (
	ErrNoMIDIDevices     = errors.New("no MIDI output ports found")
	ErrInvalidMIDIDevice = errors.New("invalid MIDI output port")
	ErrNoDeviceSelected  = errors.New("no MIDI output port selected")
	ErrOutputStopped     = errors.New("MIDI output stopped")
)

// Port is the subset of drivers.Out used here.
type Port interface {
	Open() error
	Close() error
	IsOpen() bool
	String() string
	Send(msg []byte) error
}

// Output sends through one port of a gomidi driver.
type Output struct {
	logger  contracts.Logger
	list    func() ([]Port, error)
	closer  func() error
	port    Port
	mu      sync.Mutex
	stopped bool
}

// New wraps drv. Stop closes the open port and the driver.
func New(drv drivers.Driver, log contracts.Logger) *Output {
	list := func() ([]Port, error) {
		outs, err := drv.Outs()
		if err != nil {
			return nil, err
		}
		ports := make([]Port, len(outs))
		for i, out := range outs {
			ports[i] = out
		}
		return ports, nil
	}
	log.Info("MIDI output created", log.Field().String("driver", drv.String()))
	return newOutput(list, drv.Close, log)
}

func newOutput(list func() ([]Port, error), closer func() error, log contracts.Logger) *Output {
	return &Output{logger: log, list: list, closer: closer}
}

// ListDevices returns the driver's output ports.
func (o *Output) ListDevices() ([]contracts.DeviceInfo, error) {
	ports, err := o.list()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI outputs: %w", err)
	}
	if len(ports) == 0 {
		o.logger.Warn(ErrNoMIDIDevices.Error())
		return nil, ErrNoMIDIDevices
	}
	devices := make([]contracts.DeviceInfo, len(ports))
	for i, p := range ports {
		devices[i] = contracts.DeviceInfo{Name: p.String(), EntityName: p.String()}
	}
	return devices, nil
}

// SelectDevice opens the port at deviceID, closing any previously open port.
func (o *Output) SelectDevice(deviceID int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stopped {
		return ErrOutputStopped
	}
	ports, err := o.list()
	if err != nil {
		return fmt.Errorf("error retrieving MIDI outputs: %w", err)
	}
	if deviceID < 0 || deviceID >= len(ports) {
		o.logger.Error(ErrInvalidMIDIDevice.Error(), o.logger.Field().Int("deviceID", deviceID))
		return ErrInvalidMIDIDevice
	}

	if o.port != nil {
		if err := o.port.Close(); err != nil {
			o.logger.Warn("Failed to close previous MIDI output", o.logger.Field().Error("error", err))
		}
		o.port = nil
	}

	port := ports[deviceID]
	if !port.IsOpen() {
		if err := port.Open(); err != nil {
			return fmt.Errorf("error opening MIDI output %q: %w", port.String(), err)
		}
	}
	o.port = port
	o.logger.Info("MIDI output selected",
		o.logger.Field().Int("deviceID", deviceID),
		o.logger.Field().String("deviceName", port.String()))
	return nil
}

// Send writes msg to the selected port.
func (o *Output) Send(msg []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stopped {
		return ErrOutputStopped
	}
	if o.port == nil {
		return ErrNoDeviceSelected
	}
	return o.port.Send(msg)
}

// Stop closes the port and the driver. It is idempotent.
func (o *Output) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stopped {
		return nil
	}
	o.stopped = true

	var err error
	if o.port != nil {
		err = multierr.Append(err, o.port.Close())
		o.port = nil
	}
	if o.closer != nil {
		err = multierr.Append(err, o.closer())
	}
	o.logger.Info("MIDI output stopped")
	return err
}

var _ contracts.MIDIOutput = (*Output)(nil)
