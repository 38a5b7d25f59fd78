package energy_test

import (
	"math"
	"testing"

	"github.com/leandrodaf/notetrack/internal/energy"
	"github.com/leandrodaf/notetrack/sdk/contracts"
	"github.com/stretchr/testify/assert"
)

func constantBlock(value float32, frames, channels int) contracts.AudioBlock {
	samples := make([]float32, frames*channels)
	for i := range samples {
		samples[i] = value
	}
	return contracts.AudioBlock{Samples: samples, Channels: channels, SampleRate: 44100}
}

func sineBlock(amplitude float64, frames int) contracts.AudioBlock {
	samples := make([]float32, frames)
	for i := range samples {
		samples[i] = float32(amplitude * math.Sin(2*math.Pi*440*float64(i)/44100))
	}
	return contracts.AudioBlock{Samples: samples, Channels: 1, SampleRate: 44100}
}

func TestMeanRMSConstantSignal(t *testing.T) {
	assert.InDelta(t, 0.25, energy.MeanRMS(constantBlock(0.25, 1024, 1), 0, 0), 1e-6)
	assert.InDelta(t, 0.25, energy.MeanRMS(constantBlock(-0.25, 4096, 2), 2048, 512), 1e-6)
}

func TestMeanRMSSine(t *testing.T) {
	got := energy.MeanRMS(sineBlock(0.5, 44100), 2048, 512)
	assert.InDelta(t, 0.5/math.Sqrt2, got, 5e-3)
}

func TestMeanRMSMixesChannelsDown(t *testing.T) {
	block := contracts.AudioBlock{Samples: []float32{0.5, -0.5, 0.5, -0.5}, Channels: 2, SampleRate: 8000}
	assert.Zero(t, energy.MeanRMS(block, 0, 0))
}

func TestMeanRMSEmptyBlock(t *testing.T) {
	assert.Zero(t, energy.MeanRMS(contracts.AudioBlock{Channels: 1}, 0, 0))
	assert.Zero(t, energy.MeanRMS(contracts.AudioBlock{Samples: []float32{1}}, 0, 0))
}

func TestGateThreshold(t *testing.T) {
	gate := energy.NewGate(energy.DefaultThreshold)

	e, active := gate.Measure(constantBlock(0.004, 1024, 1))
	assert.False(t, active)
	assert.InDelta(t, 0.004, e, 1e-6)

	_, active = gate.Measure(constantBlock(0.0051, 1024, 1))
	assert.True(t, active)

	_, active = gate.Measure(constantBlock(0, 1024, 1))
	assert.False(t, active)
}

func TestGateWithFrames(t *testing.T) {
	gate := energy.NewGate(0.1).WithFrames(256, 0)
	frames := 1024
	samples := make([]float32, frames)
	for i := 0; i < 256; i++ {
		samples[i] = 0.8
	}
	// one loud frame out of four: mean RMS 0.2
	e, active := gate.Measure(contracts.AudioBlock{Samples: samples, Channels: 1, SampleRate: 44100})
	assert.InDelta(t, 0.2, e, 1e-6)
	assert.True(t, active)
	assert.Equal(t, 0.1, gate.Threshold())
}

func TestVelocityMapping(t *testing.T) {
	m := energy.NewVelocityMapper(contracts.VelocityCalibration{
		Floor: energy.DefaultVelocityFloor,
		Scale: energy.DefaultVelocityScale,
	})

	tests := []struct {
		energy float64
		want   int
	}{
		{0.002, 1},
		{0.0, 1},
		{0.0092, 61},
		{0.017, 127},
		{1.0, 127},
		{0.005, 25},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.Velocity(tt.energy), "energy %v", tt.energy)
	}
}

func TestVelocityNeverZero(t *testing.T) {
	m := energy.NewVelocityMapper(contracts.VelocityCalibration{Floor: 0.002, Scale: 0.012})
	for e := 0.0; e < 0.003; e += 0.0001 {
		assert.GreaterOrEqual(t, m.Velocity(e), 1)
	}
	assert.Equal(t, 1, energy.NewVelocityMapper(contracts.VelocityCalibration{}).Velocity(0))
}
