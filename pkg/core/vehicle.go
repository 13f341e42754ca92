// pkg/core/vehicle.go
package core

import "encoding/json"

// Position is a WGS84 coordinate in decimal degrees.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Waypoint is one recorded trajectory sample.
// Timestamp is counted in ticks from the start of the trip.
type Waypoint struct {
	Position  Position `json:"position"`
	Timestamp float64  `json:"timestamp"`
}

// Trajectory is a pre-computed trip replayed by one vehicle.
// Route is the raw routing response and is only carried through to storage.
type Trajectory struct {
	Route     json.RawMessage `json:"route,omitempty"`
	Waypoints []Waypoint      `json:"waypoints"`
	Offset    int             `json:"offset"`
}

// MotionVector is the smoothed recent displacement of a vehicle.
// DX is the longitude component, DY the latitude component, Speed is in meters per tick interval.
type MotionVector struct {
	DX    float64 `json:"dx"`
	DY    float64 `json:"dy"`
	Speed float64 `json:"speed"`
}

// Zero reports whether both direction components are zero.
func (m MotionVector) Zero() bool {
	return m.DX == 0 && m.DY == 0
}

// VehicleInfo is the static description of a simulated vehicle, registered once per run.
type VehicleInfo struct {
	ID        int             `json:"id"`
	Offset    int             `json:"offset"`
	Waypoints int             `json:"waypoints"`
	Start     Position        `json:"start"`
	Route     json.RawMessage `json:"route,omitempty"`
}

// VehicleSnapshot is the per-tick state of an active vehicle.
type VehicleSnapshot struct {
	VehicleID   int          `json:"id"`
	Position    Position     `json:"position"`
	Motion      MotionVector `json:"motion"`
	Connections int          `json:"connections"`
}
