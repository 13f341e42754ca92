package influx

import (
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/vanetlab/vanetsim/pkg/core"
)

// Measurement names.
const (
	TickMeasurement    = "vanet_tick"
	SummaryMeasurement = "vanet_run"
)

// TickTime places a logical tick on the time axis: one second per tick after the run start.
func TickTime(run core.Run, tick int) time.Time {
	return run.StartTime.Add(time.Duration(tick) * time.Second)
}

// TickPoint builds the point for one analytics record.
func TickPoint(run core.Run, rec core.AnalyticsRecord) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		TickMeasurement,
		map[string]string{
			"run_id": run.RunID,
			"policy": run.Policy,
		},
		map[string]any{
			"tick":                    rec.Tick,
			"cars_completed":          rec.CarsCompleted,
			"new_connections_made":    rec.NewConnections,
			"old_connections_dropped": rec.DroppedConnections,
			"active_connections":      rec.ActiveConnections,
			"active_cars":             rec.ActiveCars,
			"avg_connection_duration": rec.AvgConnectionDuration,
			"avg_connection_health":   rec.AvgConnectionHealth,
			"avg_connections_per_car": rec.AvgConnectionsPerCar,
		},
		TickTime(run, rec.Tick),
	)
}

// SummaryPoint builds the point written once a run ends.
func SummaryPoint(run core.Run, s core.RunSummary) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		SummaryMeasurement,
		map[string]string{
			"run_id": run.RunID,
			"policy": run.Policy,
		},
		map[string]any{
			"ticks":                     s.Ticks,
			"cars_completed":            s.CarsCompleted,
			"dormant_vehicles":          s.DormantVehicles,
			"hit_tick_ceiling":          s.HitTickCeiling,
			"total_new_connections":     s.TotalNewConnections,
			"total_dropped_connections": s.TotalDroppedConnections,
			"peak_active_connections":   s.PeakActiveConnections,
			"active_connections_mean":   s.ActiveConnections.Mean,
			"connection_health_mean":    s.ConnectionHealth.Mean,
			"connection_health_stddev":  s.ConnectionHealth.StdDev,
			"connection_duration_mean":  s.ConnectionDuration.Mean,
		},
		s.EndTime,
	)
}
