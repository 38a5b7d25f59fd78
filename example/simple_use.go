package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/leandrodaf/notetrack/internal/audio/capture"
	"github.com/leandrodaf/notetrack/internal/logger"
	"github.com/leandrodaf/notetrack/internal/midi/gomidiout"
	"github.com/leandrodaf/notetrack/internal/pitch"
	"github.com/leandrodaf/notetrack/sdk/contracts"
	"github.com/leandrodaf/notetrack/sdk/midi"
	"github.com/leandrodaf/notetrack/sdk/notetrack"
)

const sampleRate = 44100

func main() {
	log := logger.NewZapLogger()

	output, err := openOutput(log)
	if err != nil {
		log.Error("Failed to initialize MIDI output", log.Field().Error("error", err))
		return
	}
	defer output.Stop()

	devices, err := output.ListDevices()
	if err != nil || len(devices) == 0 {
		log.Error("No MIDI outputs found or error listing outputs", log.Field().Error("error", err))
		return
	}
	fmt.Println("Available MIDI outputs:", devices)

	if err = output.SelectDevice(0); err != nil {
		log.Error("Failed to select MIDI output", log.Field().Error("error", err))
		return
	}

	estimator := pitch.NewYIN(sampleRate, pitch.DefaultYINConfig(), capture.DefaultBlockFrames)
	pipeline, err := notetrack.NewPipeline(estimator, output,
		contracts.WithLogger(log),
		contracts.WithLogLevel(contracts.InfoLevel),
		contracts.WithAggregation(contracts.Median),
		contracts.WithChannel(0),
	)
	if err != nil {
		log.Error("Failed to create pipeline", log.Field().Error("error", err))
		return
	}

	input, err := capture.Open(pipeline, capture.Config{
		DeviceName:  os.Getenv("NOTETRACK_INPUT"),
		SampleRate:  sampleRate,
		Channels:    1,
		BlockFrames: capture.DefaultBlockFrames,
	}, log)
	if err != nil {
		log.Error("Failed to open audio input", log.Field().Error("error", err))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := pipeline.Start(); err != nil {
		log.Error("Failed to start pipeline", log.Field().Error("error", err))
		return
	}
	if err := input.Start(); err != nil {
		log.Error("Failed to start audio input", log.Field().Error("error", err))
		return
	}

	fmt.Println("Tracking notes... Press Ctrl+C to exit.")
	<-ctx.Done()

	if err := input.Stop(); err != nil {
		log.Warn("Audio input did not stop cleanly", log.Field().Error("error", err))
	}
	closeCtx, cancel := context.WithTimeout(context.Background(), notetrack.DefaultShutdownTimeout)
	defer cancel()
	if err := pipeline.Close(closeCtx); err != nil {
		log.Error("Pipeline shutdown failed", log.Field().Error("error", err))
	}
}

// openOutput prefers the native output and falls back to rtmidi elsewhere.
func openOutput(log contracts.Logger) (contracts.MIDIOutput, error) {
	output, err := midi.NewMIDIOutput(
		contracts.WithOutputLogger(log),
		contracts.WithCoreMIDIConfig(contracts.CoreMIDIConfig{ClientName: "notetrack", PortName: "Tracked Notes"}),
	)
	if !errors.Is(err, midi.ErrUnsupportedOS) {
		return output, err
	}
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	return gomidiout.New(drv, log), nil
}
