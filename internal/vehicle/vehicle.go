// Package vehicle holds per-vehicle simulation state and trajectory replay.
package vehicle

import (
	"slices"

	"github.com/vanetlab/vanetsim/pkg/core"
)

// Vehicle is one simulated agent replaying a recorded trajectory.
// The engine owns every Vehicle; policies only touch connections during a tick.
type Vehicle struct {
	id        int
	waypoints []core.Waypoint
	offset    int

	position  core.Position
	active    bool
	completed bool

	connections map[int]struct{}
	motion      core.MotionVector
}

// New creates a vehicle from a trajectory. The waypoint slice is copied.
func New(id int, t core.Trajectory) *Vehicle {
	v := &Vehicle{
		id:          id,
		waypoints:   slices.Clone(t.Waypoints),
		offset:      t.Offset,
		connections: make(map[int]struct{}),
	}
	if len(v.waypoints) > 0 {
		v.position = v.waypoints[0].Position
	}
	return v
}

func (v *Vehicle) ID() int { return v.id }
func (v *Vehicle) Offset() int { return v.offset }
func (v *Vehicle) Len() int { return len(v.waypoints) }
func (v *Vehicle) Position() core.Position { return v.position }
func (v *Vehicle) Active() bool { return v.active }
func (v *Vehicle) Completed() bool { return v.completed }
func (v *Vehicle) Motion() core.MotionVector { return v.motion }
func (v *Vehicle) Waypoints() []core.Waypoint { return v.waypoints }

// Dormant reports whether the vehicle can never become active.
func (v *Vehicle) Dormant() bool {
	return len(v.waypoints) == 0
}

// Activate updates activity and position for tick and reports whether the
// vehicle completed on this tick. A vehicle is active while
// offset <= tick < offset+len; on the first tick past that window it completes
// once and drops its connections. Completion never reverses.
func (v *Vehicle) Activate(tick int) bool {
	if v.completed || v.Dormant() {
		v.active = false
		return false
	}

	idx := tick - v.offset
	switch {
	case idx < 0:
		v.active = false
		return false
	case idx < len(v.waypoints):
		v.active = true
		v.position = v.waypoints[idx].Position
		return false
	default:
		v.active = false
		v.completed = true
		v.motion = core.MotionVector{}
		clear(v.connections)
		return true
	}
}

// Snapshot returns the current state for recording.
func (v *Vehicle) Snapshot() core.VehicleSnapshot {
	return core.VehicleSnapshot{
		VehicleID:   v.id,
		Position:    v.position,
		Motion:      v.motion,
		Connections: len(v.connections),
	}
}

// Info returns the static description registered with storage.
func (v *Vehicle) Info(route []byte) core.VehicleInfo {
	info := core.VehicleInfo{
		ID:        v.id,
		Offset:    v.offset,
		Waypoints: len(v.waypoints),
		Route:     route,
	}
	if len(v.waypoints) > 0 {
		info.Start = v.waypoints[0].Position
	}
	return info
}
