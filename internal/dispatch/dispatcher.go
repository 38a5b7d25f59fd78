// Package dispatch drains the event queue and performs the MIDI sends.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/leandrodaf/notetrack/internal/eventqueue"
	"github.com/leandrodaf/notetrack/internal/pitch"
	"github.com/leandrodaf/notetrack/sdk/contracts"
)

// ErrSendFailed is returned when a message could not be delivered within the retry budget.
var ErrSendFailed = errors.New("midi send failed")

// Config controls delivery.
type Config struct {
	Channel         uint8         // MIDI channel of every message.
	Retries         int           // Extra attempts after a failed send.
	RetryDelay      time.Duration // Pause between attempts.
	StatsInterval   time.Duration // Period of stats logging; 0 disables it.
	ReleaseVelocity int           // Velocity of note-offs synthesized by the voice guard.
}

// Dispatcher is the queue's single consumer. Besides delivery it keeps a voice guard:
// it remembers which note the sink was last told is sounding, releases it before a
// note-on that would otherwise overlap (possible only after a queue drop), skips
// note-offs for notes the sink never started, and releases whatever is open on exit.
type Dispatcher struct {
	queue  *eventqueue.Queue
	sender contracts.MIDISender
	log    contracts.Logger
	cfg    Config
	stats  func() contracts.Stats

	open   contracts.NoteNumber
	lastAt time.Duration // timestamp of the latest event handled

	sent     atomic.Uint64
	failures atomic.Uint64
	repairs  atomic.Uint64
}

// New returns a dispatcher. stats, if non-nil, supplies the counters logged periodically.
func New(queue *eventqueue.Queue, sender contracts.MIDISender, log contracts.Logger, cfg Config, stats func() contracts.Stats) *Dispatcher {
	return &Dispatcher{
		queue:  queue,
		sender: sender,
		log:    log,
		cfg:    cfg,
		stats:  stats,
		open:   contracts.NoNote,
	}
}

// Run consumes events until the queue is closed and drained, or ctx is done.
// Either way a note left open at the sink is released before Run returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if d.cfg.StatsInterval > 0 && d.stats != nil {
		ticker := time.NewTicker(d.cfg.StatsInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	var last contracts.Stats

	for {
		select {
		case e, ok := <-d.queue.Events():
			if !ok {
				err := d.releaseOpen(ctx, "shutdown")
				d.logFinal()
				return err
			}
			d.handle(ctx, e)
		case <-tick:
			last = d.report(last)
		case <-ctx.Done():
			// release with a fresh context: the caller's is already done
			err := d.releaseOpen(context.Background(), "cancelled")
			d.logFinal()
			if err != nil {
				return err
			}
			return ctx.Err()
		}
	}
}

// Sent returns the number of messages delivered.
func (d *Dispatcher) Sent() uint64 { return d.sent.Load() }

// Failures returns the number of events dropped after exhausting retries.
func (d *Dispatcher) Failures() uint64 { return d.failures.Load() }

// Repairs returns the number of note-offs synthesized by the voice guard.
func (d *Dispatcher) Repairs() uint64 { return d.repairs.Load() }

func (d *Dispatcher) handle(ctx context.Context, e contracts.NoteEvent) {
	if e.Timestamp > d.lastAt {
		d.lastAt = e.Timestamp
	}
	switch e.Kind {
	case contracts.NoteOnEvent:
		if d.open != contracts.NoNote {
			d.repairs.Add(1)
			d.log.Warn("Releasing note left open by a dropped event",
				d.log.Field().Int("note", int(d.open)),
				d.log.Field().Int("next", int(e.Note)))
			if err := d.deliver(ctx, contracts.NewNoteOff(d.open, d.cfg.ReleaseVelocity, e.Timestamp)); err != nil {
				return
			}
		}
		if d.deliver(ctx, e) == nil {
			d.open = e.Note
		}
	case contracts.NoteOffEvent:
		if e.Note != d.open {
			d.log.Debug("Skipping note-off for a note that is not sounding",
				d.log.Field().Int("note", int(e.Note)))
			return
		}
		if d.deliver(ctx, e) == nil {
			d.open = contracts.NoNote
		}
	default:
		d.log.Warn("Unknown note event kind", d.log.Field().Int("kind", int(e.Kind)))
	}
}

// deliver sends e, retrying up to the configured budget.
func (d *Dispatcher) deliver(ctx context.Context, e contracts.NoteEvent) error {
	msg := e.Message(d.cfg.Channel)
	var err error
attempts:
	for attempt := 0; attempt <= d.cfg.Retries; attempt++ {
		if attempt > 0 && d.cfg.RetryDelay > 0 {
			select {
			case <-time.After(d.cfg.RetryDelay):
			case <-ctx.Done():
				break attempts
			}
		}
		if err = d.sender.Send(msg); err == nil {
			d.sent.Add(1)
			d.log.Debug("MIDI event",
				d.log.Field().String("kind", e.Kind.String()),
				d.log.Field().Int("note", int(e.Note)),
				d.log.Field().String("name", pitch.NoteName(e.Note)),
				d.log.Field().Int("velocity", e.Velocity),
				d.log.Field().Duration("at", e.Timestamp))
			return nil
		}
		d.log.Warn("MIDI send failed",
			d.log.Field().Int("attempt", attempt+1),
			d.log.Field().Error("error", err))
	}
	d.failures.Add(1)
	d.log.Error("Dropping MIDI event after retries",
		d.log.Field().String("event", e.String()),
		d.log.Field().Error("error", err))
	return fmt.Errorf("%w: %v", ErrSendFailed, err)
}

func (d *Dispatcher) releaseOpen(ctx context.Context, reason string) error {
	if d.open == contracts.NoNote {
		return nil
	}
	note := d.open
	d.repairs.Add(1)
	d.log.Info("Releasing open note", d.log.Field().Int("note", int(note)), d.log.Field().String("reason", reason))
	if err := d.deliver(ctx, contracts.NewNoteOff(note, d.cfg.ReleaseVelocity, d.lastAt)); err != nil {
		return err
	}
	d.open = contracts.NoNote
	return nil
}

// report logs counters and warns about new overruns or device flags since prev.
func (d *Dispatcher) report(prev contracts.Stats) contracts.Stats {
	s := d.stats()
	if n := s.Overruns - prev.Overruns; n > 0 {
		d.log.Warn("Event queue overrun",
			d.log.Field().Uint64("dropped", n),
			d.log.Field().String("policy", d.queue.Policy().String()))
	}
	if n := s.InputOverflows - prev.InputOverflows; n > 0 {
		d.log.Warn("Audio input overflow", d.log.Field().Uint64("count", n))
	}
	if n := s.InputUnderflows - prev.InputUnderflows; n > 0 {
		d.log.Warn("Audio input underflow", d.log.Field().Uint64("count", n))
	}
	if n := s.Faults - prev.Faults; n > 0 {
		d.log.Error("Audio blocks abandoned after a panic", d.log.Field().Uint64("count", n))
	}
	d.log.Debug("Pipeline stats",
		d.log.Field().Uint64("blocks", s.Blocks),
		d.log.Field().Uint64("enqueued", s.Enqueued),
		d.log.Field().Uint64("sent", s.Sent))
	return s
}

func (d *Dispatcher) logFinal() {
	if d.stats == nil {
		return
	}
	s := d.stats()
	d.log.Info("Dispatcher stopped",
		d.log.Field().Uint64("blocks", s.Blocks),
		d.log.Field().Uint64("sent", s.Sent),
		d.log.Field().Uint64("overruns", s.Overruns),
		d.log.Field().Uint64("sendFailures", s.SendFailures),
		d.log.Field().Uint64("repairs", s.Repairs))
}
