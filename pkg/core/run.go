// pkg/core/run.go
package core

import "time"

// Run describes one simulation run of a single policy over a trajectory set.
type Run struct {
	ID           uint // assigned by storage backends that keep their own keys
	RunID        string
	Policy       string
	Params       Params
	Source       string
	Seed         int64
	VehicleCount int
	StartTime    time.Time
}

// AnalyticsRecord is the immutable summary of one tick.
// JSON keys match the format the plotting scripts read.
type AnalyticsRecord struct {
	Tick                  int     `json:"timestamp"`
	CarsCompleted         int     `json:"cars_completed"`
	NewConnections        int     `json:"new_connections_made"`
	DroppedConnections    int     `json:"old_connections_dropped"`
	ActiveConnections     int     `json:"active_connections"`
	ActiveCars            int     `json:"active_cars"`
	AvgConnectionDuration float64 `json:"avg_connection_duration"`
	AvgConnectionHealth   float64 `json:"avg_connection_health"`
	AvgConnectionsPerCar  float64 `json:"avg_connections_per_car"`
}

// TickSnapshot captures vehicle positions and the connected pairs of one tick.
type TickSnapshot struct {
	Tick     int               `json:"time_tick"`
	Vehicles []VehicleSnapshot `json:"vehicles"`
	Pairs    []Pair            `json:"connected_pairs"`
}

// Stat is a running mean and population standard deviation.
type Stat struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

// RunSummary is produced when a run terminates.
type RunSummary struct {
	Ticks                   int       `json:"ticks"`
	CarsCompleted           int       `json:"cars_completed"`
	DormantVehicles         int       `json:"dormant_vehicles"`
	HitTickCeiling          bool      `json:"hit_tick_ceiling"`
	TotalNewConnections     int       `json:"total_new_connections"`
	TotalDroppedConnections int       `json:"total_dropped_connections"`
	PeakActiveConnections   int       `json:"peak_active_connections"`
	ActiveConnections       Stat      `json:"active_connections"`
	ConnectionHealth        Stat      `json:"connection_health"`
	ConnectionDuration      Stat      `json:"connection_duration"`
	EndTime                 time.Time `json:"end_time"`
}
