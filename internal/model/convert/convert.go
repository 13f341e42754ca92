package convert

import (
	"encoding/json"

	"github.com/vanetlab/vanetsim/internal/geo"
	"github.com/vanetlab/vanetsim/internal/model"
	"github.com/vanetlab/vanetsim/pkg/core"
)

// RunToCore converts a GORM SimulationRun to a core.Run.
// Unparseable params fall back to the defaults.
func RunToCore(r model.SimulationRun) core.Run {
	params := core.DefaultParams()
	if len(r.Params) > 0 {
		_ = json.Unmarshal(r.Params, &params)
	}
	return core.Run{
		ID:           r.ID,
		RunID:        r.RunID,
		Policy:       r.Policy,
		Params:       params,
		Source:       r.Source,
		Seed:         r.Seed,
		VehicleCount: r.VehicleCount,
		StartTime:    r.StartTime,
	}
}

// VehicleToCore converts a GORM Vehicle to a core.VehicleInfo.
func VehicleToCore(v model.Vehicle) core.VehicleInfo {
	start, _ := geo.FromPoint3857(v.Start)
	return core.VehicleInfo{
		ID:        v.VehicleID,
		Offset:    v.Offset,
		Waypoints: v.Waypoints,
		Start:     start,
		Route:     json.RawMessage(v.Route),
	}
}

// TickAnalyticsToCore converts a GORM TickAnalytics row to a core.AnalyticsRecord.
func TickAnalyticsToCore(t model.TickAnalytics) core.AnalyticsRecord {
	return core.AnalyticsRecord{
		Tick:                  t.Tick,
		CarsCompleted:         t.CarsCompleted,
		NewConnections:        t.NewConnections,
		DroppedConnections:    t.DroppedConnections,
		ActiveConnections:     t.ActiveConnections,
		ActiveCars:            t.ActiveCars,
		AvgConnectionDuration: t.AvgConnectionDuration,
		AvgConnectionHealth:   t.AvgConnectionHealth,
		AvgConnectionsPerCar:  t.AvgConnectionsPerCar,
	}
}

// VehicleStateToCore converts a GORM VehicleState to a core.VehicleSnapshot.
func VehicleStateToCore(s model.VehicleState) core.VehicleSnapshot {
	return core.VehicleSnapshot{
		VehicleID:   s.VehicleID,
		Position:    core.Position{Lat: s.Lat, Lon: s.Lon},
		Motion:      core.MotionVector{DX: s.DX, DY: s.DY, Speed: s.Speed},
		Connections: s.Connections,
	}
}
