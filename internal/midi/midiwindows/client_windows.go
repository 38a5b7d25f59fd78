//go:build windows
// +build windows

package midiwindows

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/leandrodaf/notetrack/sdk/contracts"
	"go.uber.org/multierr"
	"golang.org/x/sys/windows"
)

// Type definitions for MIDI handles
type HMIDIOUT windows.Handle

// Constants for open flags
const (
	CALLBACK_NULL = 0x00000000 // No callback; output completion is not reported
)

// Struct representing MIDI output device capabilities
type midiOutCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	wTechnology    uint16
	wVoices        uint16
	wNotes         uint16
	wChannelMask   uint16
	dwSupport      uint32
}

var (
	ErrNoMIDIDevices    = errors.New("no MIDI output devices found")
	ErrNoDeviceSelected = errors.New("no MIDI output device selected")
)

// OutputMid sends MIDI through a winmm output device on Windows
type OutputMid struct {
	logger contracts.Logger
	handle HMIDIOUT
	open   bool
	mu     sync.Mutex
}

// Load the winmm.dll library and required functions
var (
	winmm                 = windows.NewLazySystemDLL("winmm.dll")
	procMidiOutGetNumDevs = winmm.NewProc("midiOutGetNumDevs")
	procMidiOutGetDevCaps = winmm.NewProc("midiOutGetDevCapsW")
	procMidiOutOpen       = winmm.NewProc("midiOutOpen")
	procMidiOutShortMsg   = winmm.NewProc("midiOutShortMsg")
	procMidiOutReset      = winmm.NewProc("midiOutReset")
	procMidiOutClose      = winmm.NewProc("midiOutClose")
)

// NewMIDIOutput creates a MIDI output for Windows
func NewMIDIOutput(options *contracts.OutputOptions) (contracts.MIDIOutput, error) {
	options.Logger.Info("MIDI output created for Windows")

	return &OutputMid{
		logger: options.Logger,
	}, nil
}

// ListDevices lists the available MIDI output devices
func (m *OutputMid) ListDevices() ([]contracts.DeviceInfo, error) {
	r0, _, _ := procMidiOutGetNumDevs.Call()
	numDevices := uint32(r0)
	if numDevices == 0 {
		m.logger.Warn("No MIDI output devices found")
		return nil, ErrNoMIDIDevices
	}

	devices := make([]contracts.DeviceInfo, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiOutCaps
		r1, _, _ := procMidiOutGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != 0 {
			m.logger.Warn(fmt.Sprintf("Failed to get information for MIDI device %d", i))
			continue
		}
		deviceName := windows.UTF16ToString(caps.szPname[:])
		devices[i] = contracts.DeviceInfo{
			Name:         deviceName,
			EntityName:   deviceName,
			Manufacturer: fmt.Sprintf("MID: %d PID: %d", caps.wMid, caps.wPid),
		}
	}
	return devices, nil
}

// SelectDevice opens a MIDI output device, closing any previously opened one
func (m *OutputMid) SelectDevice(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.open {
		if err := m.closeDevice(); err != nil {
			return fmt.Errorf("failed to close previous MIDI output: %w", err)
		}
	}

	r1, _, err := procMidiOutOpen.Call(
		uintptr(unsafe.Pointer(&m.handle)),
		uintptr(deviceID),
		0,
		0,
		uintptr(CALLBACK_NULL),
	)
	if r1 != 0 {
		m.logger.Error(fmt.Sprintf("Failed to open MIDI device %d: %v", deviceID, err))
		return fmt.Errorf("failed to open MIDI device %d: %v", deviceID, err)
	}

	m.open = true
	m.logger.Info(fmt.Sprintf("MIDI device %d connected", deviceID))
	return nil
}

// Send writes one channel message with midiOutShortMsg
func (m *OutputMid) Send(msg []byte) error {
	packed, err := PackShortMessage(msg)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return ErrNoDeviceSelected
	}

	r1, _, callErr := procMidiOutShortMsg.Call(uintptr(m.handle), uintptr(packed))
	if r1 != 0 {
		return fmt.Errorf("midiOutShortMsg failed with code %d: %v", r1, callErr)
	}
	return nil
}

// Stop silences and closes the device
func (m *OutputMid) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.open {
		m.logger.Warn("No MIDI output device is open")
		return nil
	}

	if err := m.closeDevice(); err != nil {
		return fmt.Errorf("failed to stop MIDI output: %w", err)
	}
	m.logger.Info("MIDI output stopped and device closed")
	return nil
}

// closeDevice resets and closes the handle, reporting both failures
func (m *OutputMid) closeDevice() error {
	var err error
	if r1, _, callErr := procMidiOutReset.Call(uintptr(m.handle)); r1 != 0 {
		m.logger.Error(fmt.Sprintf("Failed to reset MIDI output: %v", callErr))
		err = multierr.Append(err, fmt.Errorf("midiOutReset failed with code %d", r1))
	}
	if r1, _, callErr := procMidiOutClose.Call(uintptr(m.handle)); r1 != 0 {
		m.logger.Error(fmt.Sprintf("Failed to close MIDI output: %v", callErr))
		err = multierr.Append(err, fmt.Errorf("midiOutClose failed with code %d", r1))
	}

	m.open = false
	m.handle = 0
	return err
}
