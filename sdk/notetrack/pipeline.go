// Package notetrack turns a stream of audio blocks into monophonic MIDI note events.
//
// A Pipeline is fed from the audio callback through Process, which runs the energy gate,
// pitch aggregation, quantization, stabilization and the note state machine without
// blocking, allocating or logging. Events cross to a dispatcher goroutine through a
// bounded queue; the dispatcher owns the MIDI sink and all logging.
package notetrack

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/leandrodaf/notetrack/internal/dispatch"
	"github.com/leandrodaf/notetrack/internal/energy"
	"github.com/leandrodaf/notetrack/internal/eventqueue"
	"github.com/leandrodaf/notetrack/internal/pitch"
	"github.com/leandrodaf/notetrack/internal/tracker"
	"github.com/leandrodaf/notetrack/sdk/contracts"
)

// ErrPipelineClosed is returned by Start after Close.
var ErrPipelineClosed = errors.New("pipeline closed")

// DefaultShutdownTimeout bounds the teardown performed by Run.
const DefaultShutdownTimeout = 2 * time.Second

// Pipeline wires the detection stages to a MIDI sink.
//
// Process must be called from a single goroutine, normally the audio callback.
// Start, Close, Stats and ReportDeviceStatus are safe from any goroutine.
type Pipeline struct {
	opts      contracts.PipelineOptions
	estimator contracts.PitchEstimator

	gate       *energy.Gate
	velocity   energy.VelocityMapper
	aggregator *pitch.Aggregator
	quantizer  pitch.Quantizer
	stabilizer *tracker.Stabilizer
	tracker    *tracker.Tracker
	queue      *eventqueue.Queue
	dispatcher *dispatch.Dispatcher

	observations []contracts.PitchObservation

	// producer side; teardown is set by Close only after Process has quiesced
	teardown    context.Context
	teardownErr error

	blocks     atomic.Uint64
	overflows  atomic.Uint64
	underflows atomic.Uint64
	faults     atomic.Uint64
	inflight   atomic.Int32
	closed     atomic.Bool

	startOnce sync.Once
	closeOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
	runErr    error
	closeErr  error
}

// NewPipeline validates opts and builds a pipeline that estimates pitch with estimator
// and delivers MIDI through sender. Call Start to begin delivery.
func NewPipeline(estimator contracts.PitchEstimator, sender contracts.MIDISender, opts ...contracts.Option) (*Pipeline, error) {
	if estimator == nil || sender == nil {
		return nil, invalid("estimator/sender", "nil")
	}
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		opts:         options,
		estimator:    estimator,
		gate:         energy.NewGate(options.EnergyThreshold),
		velocity:     energy.NewVelocityMapper(options.Velocity),
		aggregator:   pitch.NewAggregator(options.ConfidenceFloor, options.Aggregation, 64),
		quantizer:    pitch.NewQuantizer(options.LowestNote, options.HighestNote),
		stabilizer:   tracker.NewStabilizer(options.StabilizerWindow, options.StabilizerRunLength),
		queue:        eventqueue.New(options.QueueCapacity, options.OverrunPolicy),
		observations: make([]contracts.PitchObservation, 0, 64),
		done:         make(chan struct{}),
	}
	p.tracker = tracker.New(tracker.Config{
		VelocityJumpThreshold:    options.VelocityJumpThreshold,
		MinFramesBeforeRetrigger: options.MinFramesBeforeRetrigger,
		ReleaseVelocity:          options.ReleaseVelocity,
	}, p.emit)
	p.dispatcher = dispatch.New(p.queue, sender, options.Logger, dispatchConfig(options), p.Stats)

	options.Logger.Info("Pipeline created",
		options.Logger.Field().Float64("energyThreshold", options.EnergyThreshold),
		options.Logger.Field().Float64("confidenceFloor", options.ConfidenceFloor),
		options.Logger.Field().Int("stabilizerWindow", options.StabilizerWindow),
		options.Logger.Field().Int("queueCapacity", options.QueueCapacity),
		options.Logger.Field().String("overrunPolicy", options.OverrunPolicy.String()),
		options.Logger.Field().Uint8("channel", options.Channel))
	return p, nil
}

// Start launches the dispatcher goroutine. Calling it more than once has no effect.
func (p *Pipeline) Start() error {
	if p.closed.Load() {
		return ErrPipelineClosed
	}
	p.start()
	return nil
}

func (p *Pipeline) start() {
	p.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel
		go func() {
			defer close(p.done)
			p.runErr = p.dispatcher.Run(ctx)
		}()
	})
}

// Process analyses one audio block. It never blocks and never retains block.
// Calls after Close are ignored.
func (p *Pipeline) Process(block contracts.AudioBlock) {
	p.inflight.Add(1)
	defer p.inflight.Add(-1)
	if p.closed.Load() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.faults.Add(1)
		}
	}()
	p.blocks.Add(1)
	at := p.opts.Clock()

	level, active := p.gate.Measure(block)
	if !active {
		p.stabilizer.Push(contracts.NoNote)
		p.tracker.Step(tracker.Input{At: at})
		return
	}

	p.observations = p.estimator.Estimate(block, p.observations[:0])
	note := p.quantizer.QuantizeAggregated(p.aggregator.Aggregate(p.observations))
	p.stabilizer.Push(note)
	candidate, stable := p.stabilizer.Candidate()

	p.tracker.Step(tracker.Input{
		Active:    true,
		Candidate: candidate,
		Stable:    stable,
		Velocity:  p.velocity.Velocity(level),
		At:        at,
	})
}

// ReportDeviceStatus records overflow and underflow flags raised by the audio device.
// Counts are logged by the dispatcher; they do not alter detection.
func (p *Pipeline) ReportDeviceStatus(status contracts.DeviceStatus) {
	if status.Has(contracts.InputOverflow) {
		p.overflows.Add(1)
	}
	if status.Has(contracts.InputUnderflow) {
		p.underflows.Add(1)
	}
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() contracts.Stats {
	return contracts.Stats{
		Blocks:          p.blocks.Load(),
		Enqueued:        p.queue.Enqueued(),
		Overruns:        p.queue.Overruns(),
		Sent:            p.dispatcher.Sent(),
		SendFailures:    p.dispatcher.Failures(),
		Repairs:         p.dispatcher.Repairs(),
		InputOverflows:  p.overflows.Load(),
		InputUnderflows: p.underflows.Load(),
		Faults:          p.faults.Load(),
	}
}

// Sounding returns the note the tracker currently holds and its velocity, or NoNote.
// It reads producer state and must be called from the goroutine that calls Process.
func (p *Pipeline) Sounding() (contracts.NoteNumber, int) {
	v := p.tracker.Voice()
	return v.Note, v.Velocity
}

// Run starts the pipeline, waits for ctx and then closes it within DefaultShutdownTimeout.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	closeCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	return p.Close(closeCtx)
}

// Close stops accepting blocks, releases a sounding note, drains the queue and waits
// for the dispatcher. If ctx ends first, delivery is abandoned and ctx's error returned.
func (p *Pipeline) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		for p.inflight.Load() != 0 {
			runtime.Gosched()
		}
		// the queue must have a consumer for the final note-off
		p.start()

		p.teardown = ctx
		p.tracker.Release(p.opts.Clock())
		err := p.teardownErr
		p.queue.Close()

		select {
		case <-p.done:
		case <-ctx.Done():
			p.cancel()
			<-p.done
			if !errors.Is(err, ctx.Err()) {
				err = multierr.Append(err, ctx.Err())
			}
		}
		p.cancel()
		if !errors.Is(p.runErr, context.Canceled) {
			err = multierr.Append(err, p.runErr)
		}
		p.closeErr = err
	})
	return p.closeErr
}

// emit is the tracker's sink. During teardown it waits for queue space instead of dropping.
func (p *Pipeline) emit(e contracts.NoteEvent) {
	if p.teardown != nil {
		p.teardownErr = p.queue.PushWait(p.teardown, e)
		return
	}
	p.queue.Push(e)
}
