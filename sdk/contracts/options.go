package contracts

import "time"

// OverrunPolicy selects what the event queue discards when it is full.
type OverrunPolicy int

const (
	// DropOldest discards the oldest queued event to make room for the new one.
	DropOldest OverrunPolicy = iota
	// DropNewest discards the event being pushed.
	DropNewest
)

func (p OverrunPolicy) String() string {
	if p == DropNewest {
		return "drop-newest"
	}
	return "drop-oldest"
}

// AggregationMode selects how per-block pitch observations are reduced to one frequency.
type AggregationMode int

const (
	// WeightedMean is the confidence-weighted mean of confident observations.
	WeightedMean AggregationMode = iota
	// Median is the median frequency of confident observations, suited to per-frame f0 trackers.
	Median
)

// Clock returns monotonic time elapsed since the pipeline started.
type Clock func() time.Duration

// VelocityCalibration maps block energy to velocity: round((energy-Floor)/Scale*127).
// Both values depend on input gain and should be recalibrated per source.
type VelocityCalibration struct {
	Floor float64
	Scale float64
}

// PipelineOptions defines the configuration of a note-tracking pipeline.
type PipelineOptions struct {
	Logger   Logger   // Logger used by the dispatcher; never called from the audio thread.
	LogLevel LogLevel // Level of logging to use.

	EnergyThreshold float64         // Mean RMS below which a block is silent.
	ConfidenceFloor float64         // Observations below this confidence are discarded.
	Aggregation     AggregationMode // Reduction of the remaining observations.
	LowestNote      NoteNumber      // Quantized notes outside [LowestNote, HighestNote] become NoNote.
	HighestNote     NoteNumber

	StabilizerWindow    int // Ring buffer length K.
	StabilizerRunLength int // Identical trailing entries required for a stable candidate; adds RunLength-1 blocks of latency.

	Velocity                 VelocityCalibration
	VelocityJumpThreshold    int // Velocity rise that re-attacks a sustained note.
	MinFramesBeforeRetrigger int // Stable blocks since attack required before a re-attack.
	ReleaseVelocity          int // Velocity of note-offs caused by silence, note change or teardown.

	QueueCapacity int           // EventChannel capacity.
	OverrunPolicy OverrunPolicy // Behaviour of a push onto a full queue.

	Channel       uint8         // MIDI channel, 0-15.
	SendRetries   int           // Additional attempts after a failed transport send.
	RetryDelay    time.Duration // Pause between send attempts.
	StatsInterval time.Duration // Period of stats logging; 0 disables it.

	Clock Clock // Timestamp source; defaults to time since pipeline creation.
}

// Option is a function that modifies PipelineOptions.
type Option func(*PipelineOptions)

// WithLogger sets the logger for the pipeline.
func WithLogger(l Logger) Option {
	return func(opts *PipelineOptions) {
		opts.Logger = l
	}
}

// WithLogLevel sets the logging level for the pipeline.
func WithLogLevel(level LogLevel) Option {
	return func(opts *PipelineOptions) {
		opts.LogLevel = level
	}
}

// WithEnergyThreshold sets the silence threshold on mean RMS.
func WithEnergyThreshold(threshold float64) Option {
	return func(opts *PipelineOptions) {
		opts.EnergyThreshold = threshold
	}
}

// WithConfidenceFloor sets the minimum confidence of a usable pitch observation.
func WithConfidenceFloor(floor float64) Option {
	return func(opts *PipelineOptions) {
		opts.ConfidenceFloor = floor
	}
}

// WithAggregation sets how observations are combined.
func WithAggregation(mode AggregationMode) Option {
	return func(opts *PipelineOptions) {
		opts.Aggregation = mode
	}
}

// WithNoteRange restricts accepted notes to [lowest, highest].
func WithNoteRange(lowest, highest NoteNumber) Option {
	return func(opts *PipelineOptions) {
		opts.LowestNote = lowest
		opts.HighestNote = highest
	}
}

// WithStabilizerWindow sets the stabilizer ring length.
func WithStabilizerWindow(size int) Option {
	return func(opts *PipelineOptions) {
		opts.StabilizerWindow = size
	}
}

// WithStabilizerRunLength sets how many identical trailing notes make a stable candidate.
func WithStabilizerRunLength(n int) Option {
	return func(opts *PipelineOptions) {
		opts.StabilizerRunLength = n
	}
}

// WithVelocityCalibration sets the energy-to-velocity mapping constants.
func WithVelocityCalibration(floor, scale float64) Option {
	return func(opts *PipelineOptions) {
		opts.Velocity = VelocityCalibration{Floor: floor, Scale: scale}
	}
}

// WithVelocityJumpThreshold sets the velocity rise that triggers a re-attack.
func WithVelocityJumpThreshold(jump int) Option {
	return func(opts *PipelineOptions) {
		opts.VelocityJumpThreshold = jump
	}
}

// WithMinFramesBeforeRetrigger sets the number of stable blocks that must pass before a re-attack.
func WithMinFramesBeforeRetrigger(frames int) Option {
	return func(opts *PipelineOptions) {
		opts.MinFramesBeforeRetrigger = frames
	}
}

// WithReleaseVelocity sets the velocity of tracker-generated note-offs.
func WithReleaseVelocity(velocity int) Option {
	return func(opts *PipelineOptions) {
		opts.ReleaseVelocity = velocity
	}
}

// WithQueueCapacity sets the event queue capacity.
func WithQueueCapacity(capacity int) Option {
	return func(opts *PipelineOptions) {
		opts.QueueCapacity = capacity
	}
}

// WithOverrunPolicy sets the full-queue policy.
func WithOverrunPolicy(policy OverrunPolicy) Option {
	return func(opts *PipelineOptions) {
		opts.OverrunPolicy = policy
	}
}

// WithChannel sets the MIDI channel (0-15) of emitted messages.
func WithChannel(channel uint8) Option {
	return func(opts *PipelineOptions) {
		opts.Channel = channel
	}
}

// WithSendRetries sets how many times a failed send is retried before the event is dropped.
func WithSendRetries(retries int) Option {
	return func(opts *PipelineOptions) {
		opts.SendRetries = retries
	}
}

// WithRetryDelay sets the pause between send attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(opts *PipelineOptions) {
		opts.RetryDelay = d
	}
}

// WithStatsInterval sets the period of stats logging. Zero disables periodic logging.
func WithStatsInterval(d time.Duration) Option {
	return func(opts *PipelineOptions) {
		opts.StatsInterval = d
	}
}

// WithClock sets the timestamp source.
func WithClock(c Clock) Option {
	return func(opts *PipelineOptions) {
		opts.Clock = c
	}
}

// CoreMIDIConfig holds configuration for CoreMIDI.
type CoreMIDIConfig struct {
	ClientName string // Name of the MIDI client.
	PortName   string // Name of the output port.
}

// OutputOptions defines the configuration options for a native MIDI output.
type OutputOptions struct {
	Logger         Logger          // Logger for logging events and errors.
	LogLevel       LogLevel        // Level of logging to use.
	CoreMIDIConfig *CoreMIDIConfig // Configuration specific to CoreMIDI.
}

// OutputOption is a function that modifies OutputOptions.
type OutputOption func(*OutputOptions)

// WithOutputLogger sets the logger for the MIDI output.
func WithOutputLogger(l Logger) OutputOption {
	return func(opts *OutputOptions) {
		opts.Logger = l
	}
}

// WithOutputLogLevel sets the logging level for the MIDI output.
func WithOutputLogLevel(level LogLevel) OutputOption {
	return func(opts *OutputOptions) {
		opts.LogLevel = level
	}
}

// WithCoreMIDIConfig sets the CoreMIDI configuration for the MIDI output.
func WithCoreMIDIConfig(config CoreMIDIConfig) OutputOption {
	return func(opts *OutputOptions) {
		opts.CoreMIDIConfig = &config
	}
}
