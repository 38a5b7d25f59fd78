package capture

import (
	"math"
	"testing"
	"unsafe"

	"github.com/leandrodaf/notetrack/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(from, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(from + i)
	}
	return out
}

func TestReblockerEmitsFixedBlocks(t *testing.T) {
	r := NewReblocker(4, 2, 48000)
	var blocks [][]float32
	emit := func(b contracts.AudioBlock) {
		assert.Equal(t, 2, b.Channels)
		assert.Equal(t, 48000.0, b.SampleRate)
		assert.Equal(t, 4, b.Frames())
		blocks = append(blocks, append([]float32(nil), b.Samples...))
	}

	r.Write(ramp(0, 5), emit)
	assert.Empty(t, blocks)
	assert.Equal(t, 5, r.Pending())

	r.Write(ramp(5, 13), emit)
	require.Len(t, blocks, 2)
	assert.Equal(t, ramp(0, 8), blocks[0])
	assert.Equal(t, ramp(8, 8), blocks[1])
	assert.Equal(t, 2, r.Pending())

	r.Reset()
	assert.Zero(t, r.Pending())
}

func TestReblockerLargeWrite(t *testing.T) {
	r := NewReblocker(3, 1, 44100)
	count := 0
	r.Write(ramp(0, 10), func(contracts.AudioBlock) { count++ })
	assert.Equal(t, 3, count)
	assert.Equal(t, 1, r.Pending())
}

func TestReblockerDoesNotAllocate(t *testing.T) {
	r := NewReblocker(64, 1, 44100)
	input := ramp(0, 100)
	emit := func(contracts.AudioBlock) {}
	allocs := testing.AllocsPerRun(100, func() { r.Write(input, emit) })
	assert.Zero(t, allocs)
}

func TestBytesToFloat32(t *testing.T) {
	values := []float32{0.5, -1, float32(math.Pi)}
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&values[0])), len(values)*4)
	assert.Equal(t, values, bytesToFloat32(raw))
	assert.Nil(t, bytesToFloat32([]byte{1, 2}))
}

type recorder struct {
	blocks   int
	statuses []contracts.DeviceStatus
}

func (r *recorder) Process(contracts.AudioBlock)                     { r.blocks++ }
func (r *recorder) ReportDeviceStatus(status contracts.DeviceStatus) { r.statuses = append(r.statuses, status) }

func TestOnDataReportsShortBuffers(t *testing.T) {
	rec := &recorder{}
	c := &Capture{frames: NewReblocker(2, 1, 44100), processor: rec, channels: 1, emit: rec.Process}

	full := []float32{0.1, 0.2, 0.3, 0.4}
	c.onData(nil, unsafe.Slice((*byte)(unsafe.Pointer(&full[0])), 16), 4)
	assert.Equal(t, 2, rec.blocks)
	assert.Empty(t, rec.statuses)

	c.onData(nil, unsafe.Slice((*byte)(unsafe.Pointer(&full[0])), 8), 4)
	assert.Equal(t, 3, rec.blocks)
	assert.Equal(t, []contracts.DeviceStatus{contracts.InputUnderflow}, rec.statuses)
}
