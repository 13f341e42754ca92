package vehicle

import (
	"math/rand"

	"github.com/vanetlab/vanetsim/internal/geo"
	"github.com/vanetlab/vanetsim/pkg/core"
)

// motionWindow is the number of recent waypoints averaged into a motion vector.
const motionWindow = 5

// DefaultNoiseAmplitude bounds the per-axis noise added to motion vectors.
const DefaultNoiseAmplitude = 0.1

// Noise returns one sample per call. It is called once per axis.
type Noise func() float64

// NoNoise always returns 0.
func NoNoise() float64 { return 0 }

// UniformNoise draws from [-amplitude, amplitude) using rng.
// rng is not safe for concurrent use; the engine calls it from a single goroutine.
func UniformNoise(rng *rand.Rand, amplitude float64) Noise {
	return func() float64 {
		return (rng.Float64()*2 - 1) * amplitude
	}
}

// recentWaypoints returns up to motionWindow most recent waypoints whose absolute
// time offset+timestamp is not after tick, oldest first.
func (v *Vehicle) recentWaypoints(tick int) []core.Waypoint {
	now := float64(tick - v.offset)
	end := len(v.waypoints)
	for end > 0 && v.waypoints[end-1].Timestamp > now {
		end--
	}
	start := max(0, end-motionWindow)
	return v.waypoints[start:end]
}

// UpdateMotion recomputes the motion vector for tick and stores it on v.
// With fewer than two visible waypoints the vector is zero.
func (v *Vehicle) UpdateMotion(tick int, timeInterval float64, noise Noise) core.MotionVector {
	if noise == nil {
		noise = NoNoise
	}

	recent := v.recentWaypoints(tick)
	if len(recent) < 2 {
		v.motion = core.MotionVector{}
		return v.motion
	}

	var dx, dy float64
	for i := 1; i < len(recent); i++ {
		dx += recent[i].Position.Lon - recent[i-1].Position.Lon
		dy += recent[i].Position.Lat - recent[i-1].Position.Lat
	}
	n := float64(len(recent) - 1)

	var speed float64
	if timeInterval > 0 {
		previous := recent[len(recent)-2].Position
		speed = geo.Distance(v.position, previous) / timeInterval
	}

	v.motion = core.MotionVector{
		DX:    dx/n + noise(),
		DY:    dy/n + noise(),
		Speed: speed,
	}
	return v.motion
}

// SetMotion overrides the motion vector.
func (v *Vehicle) SetMotion(m core.MotionVector) {
	v.motion = m
}
