package energy

import (
	"math"

	"github.com/leandrodaf/notetrack/sdk/contracts"
)

const (
	// DefaultVelocityFloor is the energy that maps to velocity 0 before clamping.
	DefaultVelocityFloor = 0.002
	// DefaultVelocityScale is the energy span mapped onto the full 0-127 range.
	DefaultVelocityScale = 0.015

	minVelocity = 1
	maxVelocity = 127
)

// VelocityMapper converts mean block energy into a MIDI velocity.
type VelocityMapper struct {
	floor float64
	scale float64
}

// NewVelocityMapper returns a mapper for the given calibration.
func NewVelocityMapper(cal contracts.VelocityCalibration) VelocityMapper {
	return VelocityMapper{floor: cal.Floor, scale: cal.Scale}
}

// Velocity returns round((energy-floor)/scale*127) clamped to [1, 127].
// Velocity 0 is never returned since it reads as a note-off on the wire.
func (m VelocityMapper) Velocity(energy float64) int {
	v := math.Round((energy - m.floor) / m.scale * maxVelocity)
	switch {
	case math.IsNaN(v) || v < minVelocity:
		return minVelocity
	case v > maxVelocity:
		return maxVelocity
	default:
		return int(v)
	}
}
