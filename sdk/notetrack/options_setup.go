package notetrack

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/leandrodaf/notetrack/internal/dispatch"
	"github.com/leandrodaf/notetrack/internal/energy"
	"github.com/leandrodaf/notetrack/internal/eventqueue"
	"github.com/leandrodaf/notetrack/internal/logger"
	"github.com/leandrodaf/notetrack/internal/pitch"
	"github.com/leandrodaf/notetrack/internal/tracker"
	"github.com/leandrodaf/notetrack/sdk/contracts"
)

// ErrInvalidOption is returned by NewPipeline when an option is out of range.
var ErrInvalidOption = errors.New("invalid pipeline option")

const (
	defaultSendRetries   = 3
	defaultRetryDelay    = 2 * time.Millisecond
	defaultStatsInterval = 5 * time.Second
)

// defaultOptions returns the documented defaults; options are applied on top of them
// so that zero stays a legal explicit value for fields such as ReleaseVelocity.
func defaultOptions() contracts.PipelineOptions {
	return contracts.PipelineOptions{
		EnergyThreshold:          energy.DefaultThreshold,
		ConfidenceFloor:          pitch.DefaultConfidenceFloor,
		Aggregation:              contracts.WeightedMean,
		LowestNote:               0,
		HighestNote:              127,
		StabilizerWindow:         tracker.DefaultWindow,
		StabilizerRunLength:      tracker.DefaultRunLength,
		Velocity:                 contracts.VelocityCalibration{Floor: energy.DefaultVelocityFloor, Scale: energy.DefaultVelocityScale},
		VelocityJumpThreshold:    tracker.DefaultVelocityJumpThreshold,
		MinFramesBeforeRetrigger: tracker.DefaultMinFramesBeforeRetrigger,
		ReleaseVelocity:          tracker.DefaultReleaseVelocity,
		QueueCapacity:            eventqueue.DefaultCapacity,
		OverrunPolicy:            contracts.DropOldest,
		SendRetries:              defaultSendRetries,
		RetryDelay:               defaultRetryDelay,
		StatsInterval:            defaultStatsInterval,
	}
}

// applyDefaultOptions applies opts over the defaults and validates the result.
//
// opts ...contracts.Option: A variadic list of option functions that can modify PipelineOptions.
//
// Returns:
//   - contracts.PipelineOptions: The finalized options.
//   - error: ErrInvalidOption, wrapped with the offending field, if validation fails.
func applyDefaultOptions(opts ...contracts.Option) (contracts.PipelineOptions, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = logger.NewZapLogger()
	}
	if options.LogLevel == 0 {
		options.LogLevel = contracts.InfoLevel
	}
	if options.Clock == nil {
		start := time.Now()
		options.Clock = func() time.Duration { return time.Since(start) }
	}

	if err := validate(&options); err != nil {
		return options, err
	}
	options.Logger.SetLevel(options.LogLevel)
	return options, nil
}

func validate(o *contracts.PipelineOptions) error {
	switch {
	case !(o.EnergyThreshold >= 0) || math.IsInf(o.EnergyThreshold, 1):
		return invalid("energyThreshold", o.EnergyThreshold)
	case !(o.ConfidenceFloor >= 0 && o.ConfidenceFloor <= 1):
		return invalid("confidenceFloor", o.ConfidenceFloor)
	case o.Aggregation != contracts.WeightedMean && o.Aggregation != contracts.Median:
		return invalid("aggregation", o.Aggregation)
	case !o.LowestNote.Valid() || !o.HighestNote.Valid() || o.LowestNote > o.HighestNote:
		return invalid("noteRange", fmt.Sprintf("%d..%d", o.LowestNote, o.HighestNote))
	case o.StabilizerWindow < 2:
		return invalid("stabilizerWindow", o.StabilizerWindow)
	case o.StabilizerRunLength < 2 || o.StabilizerRunLength > o.StabilizerWindow:
		return invalid("stabilizerRunLength", o.StabilizerRunLength)
	case !(o.Velocity.Scale > 0) || math.IsNaN(o.Velocity.Floor):
		return invalid("velocityCalibration", o.Velocity)
	case o.VelocityJumpThreshold < 0:
		return invalid("velocityJumpThreshold", o.VelocityJumpThreshold)
	case o.MinFramesBeforeRetrigger < 0:
		return invalid("minFramesBeforeRetrigger", o.MinFramesBeforeRetrigger)
	case o.ReleaseVelocity < 0 || o.ReleaseVelocity > 127:
		return invalid("releaseVelocity", o.ReleaseVelocity)
	case o.QueueCapacity < 1:
		return invalid("queueCapacity", o.QueueCapacity)
	case o.OverrunPolicy != contracts.DropOldest && o.OverrunPolicy != contracts.DropNewest:
		return invalid("overrunPolicy", o.OverrunPolicy)
	case o.Channel > 15:
		return invalid("channel", o.Channel)
	case o.SendRetries < 0:
		return invalid("sendRetries", o.SendRetries)
	case o.RetryDelay < 0:
		return invalid("retryDelay", o.RetryDelay)
	case o.StatsInterval < 0:
		return invalid("statsInterval", o.StatsInterval)
	}
	return nil
}

func invalid(field string, value any) error {
	return fmt.Errorf("%w: %s=%v", ErrInvalidOption, field, value)
}

func dispatchConfig(o contracts.PipelineOptions) dispatch.Config {
	return dispatch.Config{
		Channel:         o.Channel,
		Retries:         o.SendRetries,
		RetryDelay:      o.RetryDelay,
		StatsInterval:   o.StatsInterval,
		ReleaseVelocity: o.ReleaseVelocity,
	}
}
