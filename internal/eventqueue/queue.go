// Package eventqueue hands note events from the audio goroutine to the MIDI sender
// without ever blocking the producer.
package eventqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/leandrodaf/notetrack/sdk/contracts"
)

// DefaultCapacity holds far more events than a block can produce.
const DefaultCapacity = 64

// ErrClosed is returned when pushing onto a closed queue.
var ErrClosed = errors.New("event queue closed")

// Queue is a bounded single-producer single-consumer event channel.
// Push is the producer side; Events is drained by exactly one consumer.
type Queue struct {
	ch     chan contracts.NoteEvent
	policy contracts.OverrunPolicy

	enqueued atomic.Uint64
	overruns atomic.Uint64

	mu     sync.RWMutex // guards closed against the blocking producer path only
	closed bool
}

// New returns a queue holding up to capacity events. Capacity below 1 is raised to 1.
func New(capacity int, policy contracts.OverrunPolicy) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan contracts.NoteEvent, capacity), policy: policy}
}

// Push enqueues e without blocking. On a full queue the overrun policy decides which
// event is lost; Push returns false if any event was discarded.
// Push must not be called concurrently with itself or after Close.
func (q *Queue) Push(e contracts.NoteEvent) bool {
	select {
	case q.ch <- e:
		q.enqueued.Add(1)
		return true
	default:
	}

	if q.policy == contracts.DropNewest {
		q.overruns.Add(1)
		return false
	}
	dropped := false
	select {
	case <-q.ch:
		q.overruns.Add(1)
		dropped = true
	default:
	}
	// the producer is the only sender, so there is room now
	select {
	case q.ch <- e:
		q.enqueued.Add(1)
	default:
		q.overruns.Add(1)
		dropped = true
	}
	return !dropped
}

// PushWait enqueues e, waiting for space until ctx is done. It is meant for teardown,
// off the audio goroutine, where the final note-off must not be lost.
func (q *Queue) PushWait(ctx context.Context, e contracts.NoteEvent) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.ch <- e:
		q.enqueued.Add(1)
		return nil
	case <-ctx.Done():
		q.overruns.Add(1)
		return ctx.Err()
	}
}

// Events returns the consumer side. It is closed after Close once drained.
func (q *Queue) Events() <-chan contracts.NoteEvent { return q.ch }

// Close stops the queue. Events already queued remain readable. Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

// Len returns the number of queued events.
func (q *Queue) Len() int { return len(q.ch) }

// Cap returns the queue capacity.
func (q *Queue) Cap() int { return cap(q.ch) }

// Enqueued returns the number of events accepted so far.
func (q *Queue) Enqueued() uint64 { return q.enqueued.Load() }

// Overruns returns the number of events discarded so far.
func (q *Queue) Overruns() uint64 { return q.overruns.Load() }

// Policy returns the overrun policy.
func (q *Queue) Policy() contracts.OverrunPolicy { return q.policy }
