package tracker_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/leandrodaf/notetrack/internal/tracker"
	"github.com/leandrodaf/notetrack/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []contracts.NoteEvent
}

func (r *recorder) emit(e contracts.NoteEvent) { r.events = append(r.events, e) }

func (r *recorder) take() []contracts.NoteEvent {
	out := r.events
	r.events = nil
	return out
}

func on(note, vel int) contracts.NoteEvent {
	return contracts.NoteEvent{Kind: contracts.NoteOnEvent, Note: contracts.NoteNumber(note), Velocity: vel}
}

func off(note, vel int) contracts.NoteEvent {
	return contracts.NoteEvent{Kind: contracts.NoteOffEvent, Note: contracts.NoteNumber(note), Velocity: vel}
}

func stripTime(events []contracts.NoteEvent) []contracts.NoteEvent {
	out := make([]contracts.NoteEvent, len(events))
	for i, e := range events {
		e.Timestamp = 0
		out[i] = e
	}
	return out
}

// harness feeds quantized notes through a stabilizer into a tracker, one block each.
type harness struct {
	rec  *recorder
	stab *tracker.Stabilizer
	trk  *tracker.Tracker
	tick time.Duration
}

func newHarness(window, run int) *harness {
	rec := &recorder{}
	return &harness{
		rec:  rec,
		stab: tracker.NewStabilizer(window, run),
		trk:  tracker.New(tracker.DefaultConfig(), rec.emit),
	}
}

func (h *harness) block(note contracts.NoteNumber, velocity int) {
	h.tick += 23 * time.Millisecond
	h.stab.Push(note)
	cand, stable := h.stab.Candidate()
	h.trk.Step(tracker.Input{Active: true, Candidate: cand, Stable: stable, Velocity: velocity, At: h.tick})
}

func (h *harness) silence() {
	h.tick += 23 * time.Millisecond
	h.stab.Push(contracts.NoNote)
	h.trk.Step(tracker.Input{Active: false, At: h.tick})
}

func TestStabilizerPrefilled(t *testing.T) {
	s := tracker.NewStabilizer(4, 2)
	assert.Equal(t, []contracts.NoteNumber{-1, -1, -1, -1}, s.Window(nil))
	_, ok := s.Candidate()
	assert.False(t, ok)

	s.Push(60)
	s.Push(62)
	assert.Equal(t, []contracts.NoteNumber{-1, -1, 60, 62}, s.Window(nil))
	for i := 0; i < 10; i++ {
		s.Push(contracts.NoteNumber(i))
		assert.Len(t, s.Window(nil), 4)
	}
}

func TestStabilizerRunLength(t *testing.T) {
	s := tracker.NewStabilizer(3, 2)
	s.Push(60)
	_, ok := s.Candidate()
	assert.False(t, ok)
	s.Push(60)
	n, ok := s.Candidate()
	assert.True(t, ok)
	assert.Equal(t, contracts.NoteNumber(60), n)

	s3 := tracker.NewStabilizer(4, 3)
	s3.Push(60)
	s3.Push(60)
	_, ok = s3.Candidate()
	assert.False(t, ok)
	s3.Push(60)
	_, ok = s3.Candidate()
	assert.True(t, ok)
}

func TestStabilizerSentinelIsNeverStable(t *testing.T) {
	s := tracker.NewStabilizer(3, 3)
	for i := 0; i < 5; i++ {
		s.Push(contracts.NoNote)
	}
	_, ok := s.Candidate()
	assert.False(t, ok)

	s.Push(60)
	s.Push(60)
	s.Reset()
	assert.Equal(t, []contracts.NoteNumber{-1, -1, -1}, s.Window(nil))
}

func TestStabilizerRejectsBadRunLength(t *testing.T) {
	assert.Panics(t, func() { tracker.NewStabilizer(3, 1) })
	assert.Panics(t, func() { tracker.NewStabilizer(3, 4) })
}

func TestNoteOnAfterRunLength(t *testing.T) {
	h := newHarness(3, 2)
	h.block(60, 80)
	assert.Empty(t, h.rec.events)
	h.block(60, 80)
	assert.Equal(t, []contracts.NoteEvent{on(60, 80)}, stripTime(h.rec.take()))
	assert.Equal(t, tracker.Voice{Note: 60, Velocity: 80}, h.trk.Voice())
}

func TestDebounceSuppressesSingleBlockJitter(t *testing.T) {
	h := newHarness(3, 2)
	h.block(60, 80)
	h.block(60, 80)
	h.rec.take()

	h.block(61, 80)
	h.block(60, 80)
	h.block(60, 80)
	for _, e := range h.rec.take() {
		assert.NotEqual(t, contracts.NoteNumber(61), e.Note)
	}
	assert.Equal(t, contracts.NoteNumber(60), h.trk.Voice().Note)
}

func TestDebounceFromSilence(t *testing.T) {
	h := newHarness(3, 2)
	h.block(60, 80)
	h.block(61, 80)
	h.block(60, 80)
	assert.Empty(t, h.rec.events)
}

func TestNoteChangeEmitsOffBeforeOn(t *testing.T) {
	h := newHarness(3, 2)
	h.block(60, 80)
	h.block(60, 80)
	h.block(64, 70)
	h.block(64, 70)

	assert.Equal(t, []contracts.NoteEvent{on(60, 80), off(60, 10), on(64, 70)}, stripTime(h.rec.take()))
}

func TestSilenceForcesRelease(t *testing.T) {
	h := newHarness(3, 2)
	h.block(60, 80)
	h.block(60, 80)
	h.rec.take()

	h.silence()
	assert.Equal(t, []contracts.NoteEvent{off(60, 10)}, stripTime(h.rec.take()))
	assert.False(t, h.trk.Voice().Sounding())
}

func TestSilenceOverridesStableCandidate(t *testing.T) {
	rec := &recorder{}
	trk := tracker.New(tracker.DefaultConfig(), rec.emit)
	trk.Step(tracker.Input{Active: true, Candidate: 60, Stable: true, Velocity: 50})
	rec.take()

	trk.Step(tracker.Input{Active: false, Candidate: 60, Stable: true, Velocity: 50})
	assert.Equal(t, []contracts.NoteEvent{off(60, 10)}, stripTime(rec.take()))
}

func TestIdempotentSilence(t *testing.T) {
	h := newHarness(3, 2)
	for i := 0; i < 20; i++ {
		h.silence()
	}
	assert.Empty(t, h.rec.events)

	h.block(60, 80)
	h.block(60, 80)
	h.silence()
	h.rec.take()
	for i := 0; i < 20; i++ {
		h.silence()
	}
	assert.Empty(t, h.rec.events)
}

func TestUnstableBlocksHoldState(t *testing.T) {
	h := newHarness(3, 2)
	h.block(60, 80)
	h.block(60, 80)
	h.rec.take()

	h.block(contracts.NoNote, 80)
	h.block(62, 80)
	h.block(contracts.NoNote, 80)
	assert.Empty(t, h.rec.events)
	assert.Equal(t, contracts.NoteNumber(60), h.trk.Voice().Note)
}

func TestRetriggerOnVelocityJump(t *testing.T) {
	h := newHarness(3, 2)
	h.block(60, 50)
	h.block(60, 50) // attack, framesSinceAttack 0
	h.block(60, 50) // 1
	h.block(60, 50) // 2
	h.rec.take()

	h.block(60, 75)
	assert.Equal(t, []contracts.NoteEvent{off(60, 50), on(60, 75)}, stripTime(h.rec.take()))
	assert.Equal(t, tracker.Voice{Note: 60, Velocity: 75}, h.trk.Voice())
}

func TestSmallVelocityChangeDoesNotRetrigger(t *testing.T) {
	h := newHarness(3, 2)
	h.block(60, 50)
	h.block(60, 50)
	h.block(60, 50)
	h.block(60, 50)
	h.rec.take()

	h.block(60, 60)
	assert.Empty(t, h.rec.events)
	assert.Equal(t, 60, h.trk.Voice().Velocity)
	assert.Equal(t, 3, h.trk.Voice().FramesSinceAttack)
}

func TestRetriggerWaitsForMinFrames(t *testing.T) {
	h := newHarness(3, 2)
	h.block(60, 30)
	h.block(60, 30) // attack
	h.rec.take()

	h.block(60, 90) // framesSinceAttack 0: too early
	assert.Empty(t, h.rec.events)
	h.block(60, 127) // velocity was updated to 90, jump 37, framesSinceAttack 1: still too early
	assert.Empty(t, h.rec.events)
	assert.Equal(t, 2, h.trk.Voice().FramesSinceAttack)
}

func TestRetriggerConfigurable(t *testing.T) {
	rec := &recorder{}
	trk := tracker.New(tracker.Config{VelocityJumpThreshold: 5, MinFramesBeforeRetrigger: 0, ReleaseVelocity: 0}, rec.emit)
	step := func(v int) {
		trk.Step(tracker.Input{Active: true, Candidate: 48, Stable: true, Velocity: v})
	}
	step(40)
	step(40)
	step(46)
	assert.Equal(t, []contracts.NoteEvent{on(48, 40), off(48, 40), on(48, 46)}, stripTime(rec.take()))

	trk.Step(tracker.Input{Active: false})
	assert.Equal(t, []contracts.NoteEvent{off(48, 0)}, stripTime(rec.take()))
}

func TestTeardownRelease(t *testing.T) {
	h := newHarness(3, 2)
	assert.False(t, h.trk.Release(time.Second))
	assert.Empty(t, h.rec.events)

	h.block(67, 100)
	h.block(67, 100)
	h.rec.take()
	assert.True(t, h.trk.Release(time.Second))
	assert.False(t, h.trk.Release(time.Second))
	events := h.rec.take()
	require.Len(t, events, 1)
	assert.Equal(t, off(67, 10), stripTime(events)[0])
	assert.Equal(t, time.Second, events[0].Timestamp)
}

func TestMonophonyUnderRandomInput(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	h := newHarness(4, 2)
	for i := 0; i < 5000; i++ {
		switch r := rng.Intn(10); {
		case r == 0:
			h.silence()
		case r < 3:
			h.block(contracts.NoNote, 1+rng.Intn(127))
		default:
			h.block(contracts.NoteNumber(58+rng.Intn(4)), 1+rng.Intn(127))
		}
	}
	h.trk.Release(h.tick)

	open := contracts.NoNote
	var ons, offs int
	var last contracts.EventKind
	for i, e := range h.rec.events {
		switch e.Kind {
		case contracts.NoteOnEvent:
			require.NotEqual(t, contracts.NoteOnEvent, last, "consecutive note-ons at %d", i)
			require.Equal(t, contracts.NoNote, open, "overlapping note at %d", i)
			open = e.Note
			ons++
		case contracts.NoteOffEvent:
			require.Equal(t, open, e.Note, "note-off for a note that is not open at %d", i)
			open = contracts.NoNote
			offs++
		}
		require.LessOrEqual(t, ons-offs, 1)
		last = e.Kind
	}
	assert.Equal(t, ons, offs)
	assert.Equal(t, contracts.NoNote, open)
}
