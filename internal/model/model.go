package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []any{
	&SimulationRun{},
	&Vehicle{},
	&VehicleState{},
	&TickAnalytics{},
	&ConnectionPair{},
}

// Geometry columns hold EPSG:3857 (Web Mercator) coordinates in meters.

// SimulationRun is one policy run over one trajectory set.
type SimulationRun struct {
	ID           uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	RunID        string         `json:"runId" gorm:"size:36;uniqueIndex:idx_run_run_id"`
	Policy       string         `json:"policy" gorm:"size:16;index:idx_run_policy"`
	Params       datatypes.JSON `json:"params"`
	Source       string         `json:"source" gorm:"size:255"` // trajectory file the run replayed
	Seed         int64          `json:"seed"`
	VehicleCount int            `json:"vehicleCount"`
	StartTime    time.Time      `json:"startTime" gorm:"NOT NULL;"`
	EndTime      sql.NullTime   `json:"endTime"`

	Ticks           int            `json:"ticks"`
	CarsCompleted   int            `json:"carsCompleted"`
	DormantVehicles int            `json:"dormantVehicles"`
	HitTickCeiling  bool           `json:"hitTickCeiling"`
	Summary         datatypes.JSON `json:"summary"`
}

func (*SimulationRun) TableName() string {
	return "simulation_runs"
}

// Vehicle is the static description of a simulated vehicle.
// Uses composite primary key (RunID, VehicleID) - VehicleID is the trajectory index
type Vehicle struct {
	RunID         uint            `json:"runId" gorm:"primaryKey;autoIncrement:false"`
	VehicleID     int             `json:"vehicleId" gorm:"primaryKey;autoIncrement:false"`
	Run           SimulationRun   `gorm:"foreignkey:RunID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Offset        int             `json:"offset"`    // tick of the first waypoint
	Waypoints     int             `json:"waypoints"` // 0 for vehicles that never activate
	Start         geom.Point      `json:"start" gorm:"type:geometry"`
	Route         datatypes.JSON  `json:"route"` // raw routing response
	RouteGeometry geom.LineString `json:"routeGeometry" gorm:"type:geometry"`
	RouteLength   float64         `json:"routeLength"` // meters along the route geometry
}

func (*Vehicle) TableName() string {
	return "vehicles"
}

// VehicleState is the state of an active vehicle on one tick.
type VehicleState struct {
	ID          uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	RunID       uint       `json:"runId" gorm:"index:idx_vehiclestate_run_id"`
	Tick        int        `json:"tick" gorm:"index:idx_vehiclestate_tick"`
	VehicleID   int        `json:"vehicleId" gorm:"index:idx_vehiclestate_vehicle_id"`
	Position    geom.Point `json:"position" gorm:"type:geometry"`
	Lat         float64    `json:"lat"`
	Lon         float64    `json:"lon"`
	DX          float64    `json:"dx"`
	DY          float64    `json:"dy"`
	Speed       float64    `json:"speed"`
	Connections int        `json:"connections"`
}

func (*VehicleState) TableName() string {
	return "vehicle_states"
}

// TickAnalytics is the analytics record of one tick.
type TickAnalytics struct {
	RunID                 uint          `json:"runId" gorm:"primaryKey;autoIncrement:false"`
	Tick                  int           `json:"timestamp" gorm:"primaryKey;autoIncrement:false"`
	Run                   SimulationRun `json:"-" gorm:"foreignkey:RunID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CarsCompleted         int           `json:"cars_completed"`
	NewConnections        int           `json:"new_connections_made"`
	DroppedConnections    int           `json:"old_connections_dropped"`
	ActiveConnections     int           `json:"active_connections"`
	ActiveCars            int           `json:"active_cars"`
	AvgConnectionDuration float64       `json:"avg_connection_duration"`
	AvgConnectionHealth   float64       `json:"avg_connection_health"`
	AvgConnectionsPerCar  float64       `json:"avg_connections_per_car"`
}

func (*TickAnalytics) TableName() string {
	return "tick_analytics"
}

// ConnectionPair is one connected pair on one tick.
type ConnectionPair struct {
	ID       uint            `json:"id" gorm:"primarykey;autoIncrement;"`
	RunID    uint            `json:"runId" gorm:"index:idx_connpair_run_tick,priority:1"`
	Tick     int             `json:"tick" gorm:"index:idx_connpair_run_tick,priority:2"`
	VehicleA int             `json:"vehicleA"`
	VehicleB int             `json:"vehicleB"`
	Segment  geom.LineString `json:"segment" gorm:"type:geometry"`
	Length   float64         `json:"length"` // meters
}

func (*ConnectionPair) TableName() string {
	return "connection_pairs"
}
