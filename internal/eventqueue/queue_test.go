package eventqueue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/leandrodaf/notetrack/internal/eventqueue"
	"github.com/leandrodaf/notetrack/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ev(note int) contracts.NoteEvent {
	return contracts.NewNoteOn(contracts.NoteNumber(note), 100, time.Duration(note))
}

func drain(q *eventqueue.Queue) []contracts.NoteNumber {
	var out []contracts.NoteNumber
	for {
		select {
		case e := <-q.Events():
			out = append(out, e.Note)
		default:
			return out
		}
	}
}

func TestPushWithinCapacity(t *testing.T) {
	q := eventqueue.New(4, contracts.DropOldest)
	for i := 1; i <= 4; i++ {
		assert.True(t, q.Push(ev(i)))
	}
	assert.Equal(t, 4, q.Len())
	assert.Equal(t, 4, q.Cap())
	assert.Equal(t, uint64(4), q.Enqueued())
	assert.Zero(t, q.Overruns())
	assert.Equal(t, []contracts.NoteNumber{1, 2, 3, 4}, drain(q))
}

func TestDropOldest(t *testing.T) {
	q := eventqueue.New(3, contracts.DropOldest)
	for i := 1; i <= 3; i++ {
		q.Push(ev(i))
	}
	assert.False(t, q.Push(ev(4)))
	assert.False(t, q.Push(ev(5)))

	assert.Equal(t, uint64(2), q.Overruns())
	assert.Equal(t, []contracts.NoteNumber{3, 4, 5}, drain(q))
}

func TestDropNewest(t *testing.T) {
	q := eventqueue.New(3, contracts.DropNewest)
	for i := 1; i <= 3; i++ {
		q.Push(ev(i))
	}
	assert.False(t, q.Push(ev(4)))

	assert.Equal(t, uint64(1), q.Overruns())
	assert.Equal(t, uint64(3), q.Enqueued())
	assert.Equal(t, []contracts.NoteNumber{1, 2, 3}, drain(q))
	assert.Equal(t, contracts.DropNewest, q.Policy())
}

func TestPushNeverBlocks(t *testing.T) {
	q := eventqueue.New(1, contracts.DropOldest)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			q.Push(ev(i % 128))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Push blocked on a full queue")
	}
	assert.Equal(t, 1, q.Len())
}

func TestMinimumCapacity(t *testing.T) {
	q := eventqueue.New(0, contracts.DropOldest)
	assert.Equal(t, 1, q.Cap())
	assert.True(t, q.Push(ev(1)))
}

func TestConcurrentConsumerSeesOrderedEvents(t *testing.T) {
	q := eventqueue.New(8, contracts.DropNewest)
	var got []contracts.NoteNumber
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for e := range q.Events() {
			got = append(got, e.Note)
		}
	}()

	accepted := 0
	for i := 0; i < 1000; i++ {
		if q.Push(ev(i % 128)) {
			accepted++
		}
		if i%16 == 0 {
			time.Sleep(time.Microsecond)
		}
	}
	q.Close()
	wg.Wait()

	require.Len(t, got, accepted)
	assert.Equal(t, uint64(1000), q.Enqueued()+q.Overruns())
}

func TestPushWaitAndClose(t *testing.T) {
	q := eventqueue.New(1, contracts.DropOldest)
	require.NoError(t, q.PushWait(context.Background(), ev(1)))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.PushWait(ctx, ev(2)), context.DeadlineExceeded)

	go func() {
		time.Sleep(5 * time.Millisecond)
		<-q.Events()
	}()
	require.NoError(t, q.PushWait(context.Background(), ev(3)))

	q.Close()
	q.Close()
	assert.ErrorIs(t, q.PushWait(context.Background(), ev(4)), eventqueue.ErrClosed)

	e, ok := <-q.Events()
	require.True(t, ok)
	assert.Equal(t, contracts.NoteNumber(3), e.Note)
	_, ok = <-q.Events()
	assert.False(t, ok)
}
