package contracts

// Stats is a snapshot of pipeline counters.
type Stats struct {
	Blocks          uint64 // Blocks processed.
	Enqueued        uint64 // Events pushed into the queue.
	Overruns        uint64 // Events discarded by the overrun policy.
	Sent            uint64 // Messages delivered to the MIDI sink.
	SendFailures    uint64 // Events dropped after exhausting retries.
	Repairs         uint64 // Note-offs synthesized by the voice guard.
	InputOverflows  uint64 // Device overflow flags reported.
	InputUnderflows uint64 // Device underflow flags reported.
	Faults          uint64 // Blocks abandoned after a panic in the processing path.
}
