// Package capture feeds microphone or line input to a note-tracking pipeline through miniaudio.
package capture

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/gen2brain/malgo"
	"go.uber.org/multierr"

	"github.com/leandrodaf/notetrack/sdk/contracts"
)

const (
	// DefaultBlockFrames is the block length handed to the processor.
	DefaultBlockFrames = 2048
	// DefaultSampleRate is the requested capture rate in Hz.
	DefaultSampleRate = 44100
	// DefaultChannels is the requested channel count.
	DefaultChannels = 1
)

var (
	// ErrDeviceNotFound is returned by Open when no capture device has the configured name.
	ErrDeviceNotFound = errors.New("capture device not found")
	// ErrStopped is returned by Start after Stop.
	ErrStopped = errors.New("capture stopped")
)

// Processor receives fixed-size blocks on the device's audio thread.
// notetrack.Pipeline implements it.
type Processor interface {
	Process(block contracts.AudioBlock)
	ReportDeviceStatus(status contracts.DeviceStatus)
}

// Config selects the capture device and stream format.
type Config struct {
	DeviceName  string // Exact device name; empty selects the system default.
	SampleRate  uint32
	Channels    uint32
	BlockFrames int // Frames per block handed to the processor.
}

func (c Config) withDefaults() Config {
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.Channels == 0 {
		c.Channels = DefaultChannels
	}
	if c.BlockFrames <= 0 {
		c.BlockFrames = DefaultBlockFrames
	}
	return c
}

// Capture owns a miniaudio context and capture device.
type Capture struct {
	logger    contracts.Logger
	ctx       *malgo.AllocatedContext
	device    *malgo.Device
	frames    *Reblocker
	processor Processor
	channels  int
	emit      func(contracts.AudioBlock)
	stopOnce  sync.Once
	stopped   bool
	mu        sync.Mutex
}

// Open initializes the backend and the capture device without starting it.
func Open(processor Processor, cfg Config, log contracts.Logger) (*Capture, error) {
	cfg = cfg.withDefaults()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Debug("miniaudio", log.Field().String("message", message))
	})
	if err != nil {
		return nil, fmt.Errorf("malgo init failed: %w", err)
	}

	c := &Capture{
		logger:    log,
		ctx:       ctx,
		frames:    NewReblocker(cfg.BlockFrames, int(cfg.Channels), float64(cfg.SampleRate)),
		processor: processor,
		channels:  int(cfg.Channels),
	}
	c.emit = processor.Process

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.Capture.Format = malgo.FormatF32
	config.Capture.Channels = cfg.Channels
	config.SampleRate = cfg.SampleRate
	config.Alsa.NoMMap = 1

	if cfg.DeviceName != "" {
		info, err := c.find(cfg.DeviceName)
		if err != nil {
			return nil, multierr.Append(err, c.freeContext())
		}
		config.Capture.DeviceID = info.ID.Pointer()
	}

	device, err := malgo.InitDevice(ctx.Context, config, malgo.DeviceCallbacks{
		Data: c.onData,
		Stop: c.onStop,
	})
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("init device: %w", err), c.freeContext())
	}
	c.device = device

	log.Info("Audio capture opened",
		log.Field().String("device", cfg.DeviceName),
		log.Field().Int("sampleRate", int(cfg.SampleRate)),
		log.Field().Int("channels", int(cfg.Channels)),
		log.Field().Int("blockFrames", cfg.BlockFrames))
	return c, nil
}

// Devices lists capture device names known to the backend.
func (c *Capture) Devices() ([]contracts.DeviceInfo, error) {
	list, err := c.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, err
	}
	devices := make([]contracts.DeviceInfo, len(list))
	for i := range list {
		devices[i] = contracts.DeviceInfo{Name: list[i].Name()}
	}
	return devices, nil
}

func (c *Capture) find(name string) (*malgo.DeviceInfo, error) {
	list, err := c.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].Name() == name {
			info := list[i]
			return &info, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
}

// Start begins streaming to the processor.
func (c *Capture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return ErrStopped
	}
	if err := c.device.Start(); err != nil {
		return fmt.Errorf("start device: %w", err)
	}
	c.logger.Info("Audio capture started")
	return nil
}

// onData runs on the audio thread.
func (c *Capture) onData(_, input []byte, frameCount uint32) {
	want := int(frameCount) * c.channels
	samples := bytesToFloat32(input)
	if len(samples) < want {
		c.processor.ReportDeviceStatus(contracts.InputUnderflow)
	}
	c.frames.Write(samples, c.emit)
}

func (c *Capture) onStop() {
	c.logger.Info("Audio device stopped")
}

// Stop halts the device and releases the backend. It is idempotent.
func (c *Capture) Stop() error {
	var err error
	c.stopOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.stopped = true

		err = c.device.Stop()
		c.device.Uninit()
		err = multierr.Append(err, c.freeContext())
		c.logger.Info("Audio capture stopped")
	})
	return err
}

func (c *Capture) freeContext() error {
	err := c.ctx.Uninit()
	c.ctx.Free()
	return err
}

func bytesToFloat32(b []byte) []float32 {
	if len(b) < 4 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/4)
}
