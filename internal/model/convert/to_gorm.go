// Package convert translates between core simulation types and GORM models.
package convert

import (
	"database/sql"
	"encoding/json"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/vanetlab/vanetsim/internal/geo"
	"github.com/vanetlab/vanetsim/internal/model"
	"github.com/vanetlab/vanetsim/pkg/core"
	"gorm.io/datatypes"
)

// toJSON marshals v for a JSON column, storing "null" when marshalling fails.
func toJSON(v any) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(data)
}

// point projects p, storing an empty point for coordinates outside the projection.
func point(p core.Position) geom.Point {
	pt, err := geo.Point3857(p)
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXY)
	}
	return pt
}

// CoreToRun converts a core.Run to a GORM model.SimulationRun.
func CoreToRun(r core.Run) model.SimulationRun {
	return model.SimulationRun{
		ID:           r.ID,
		RunID:        r.RunID,
		Policy:       r.Policy,
		Params:       toJSON(r.Params),
		Source:       r.Source,
		Seed:         r.Seed,
		VehicleCount: r.VehicleCount,
		StartTime:    r.StartTime,
	}
}

// ApplySummary copies the end-of-run summary onto a stored run.
func ApplySummary(run *model.SimulationRun, s core.RunSummary) {
	run.EndTime = sql.NullTime{Time: s.EndTime, Valid: !s.EndTime.IsZero()}
	run.Ticks = s.Ticks
	run.CarsCompleted = s.CarsCompleted
	run.DormantVehicles = s.DormantVehicles
	run.HitTickCeiling = s.HitTickCeiling
	run.Summary = toJSON(s)
}

// CoreToVehicle converts a core.VehicleInfo to a GORM model.Vehicle.
// Route geometry and length are derived from the raw route when it carries coordinates.
func CoreToVehicle(runID uint, v core.VehicleInfo) model.Vehicle {
	out := model.Vehicle{
		RunID:     runID,
		VehicleID: v.ID,
		Offset:    v.Offset,
		Waypoints: v.Waypoints,
		Start:     point(v.Start),
	}
	if v.Waypoints == 0 {
		out.Start = geom.NewEmptyPoint(geom.DimXY)
	}
	if len(v.Route) > 0 {
		out.Route = datatypes.JSON(v.Route)
	}
	if positions, err := geo.RoutePositions(v.Route); err == nil {
		if ls, err := geo.LineString3857(positions); err == nil {
			out.RouteGeometry = ls
		}
		out.RouteLength = geo.PathLength(positions)
	}
	return out
}

// CoreToTickAnalytics converts a core.AnalyticsRecord to a GORM model.TickAnalytics.
func CoreToTickAnalytics(runID uint, r core.AnalyticsRecord) model.TickAnalytics {
	return model.TickAnalytics{
		RunID:                 runID,
		Tick:                  r.Tick,
		CarsCompleted:         r.CarsCompleted,
		NewConnections:        r.NewConnections,
		DroppedConnections:    r.DroppedConnections,
		ActiveConnections:     r.ActiveConnections,
		ActiveCars:            r.ActiveCars,
		AvgConnectionDuration: r.AvgConnectionDuration,
		AvgConnectionHealth:   r.AvgConnectionHealth,
		AvgConnectionsPerCar:  r.AvgConnectionsPerCar,
	}
}

// CoreToVehicleStates converts the vehicles of a snapshot to GORM model.VehicleState rows.
func CoreToVehicleStates(runID uint, s core.TickSnapshot) []model.VehicleState {
	out := make([]model.VehicleState, len(s.Vehicles))
	for i, v := range s.Vehicles {
		out[i] = model.VehicleState{
			RunID:       runID,
			Tick:        s.Tick,
			VehicleID:   v.VehicleID,
			Position:    point(v.Position),
			Lat:         v.Position.Lat,
			Lon:         v.Position.Lon,
			DX:          v.Motion.DX,
			DY:          v.Motion.DY,
			Speed:       v.Motion.Speed,
			Connections: v.Connections,
		}
	}
	return out
}

// CoreToConnectionPairs converts the connected pairs of a snapshot to GORM model.ConnectionPair rows.
// Pairs whose vehicles are missing from the snapshot are stored without geometry.
func CoreToConnectionPairs(runID uint, s core.TickSnapshot) []model.ConnectionPair {
	positions := make(map[int]core.Position, len(s.Vehicles))
	for _, v := range s.Vehicles {
		positions[v.VehicleID] = v.Position
	}

	out := make([]model.ConnectionPair, len(s.Pairs))
	for i, p := range s.Pairs {
		row := model.ConnectionPair{
			RunID:    runID,
			Tick:     s.Tick,
			VehicleA: p.A,
			VehicleB: p.B,
		}
		a, okA := positions[p.A]
		b, okB := positions[p.B]
		if okA && okB {
			if seg, err := geo.Segment3857(a, b); err == nil {
				row.Segment = seg
			}
			row.Length = geo.Distance(a, b)
		}
		out[i] = row
	}
	return out
}
