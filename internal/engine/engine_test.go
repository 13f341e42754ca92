package engine

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanetlab/vanetsim/internal/analytics"
	"github.com/vanetlab/vanetsim/internal/geo"
	"github.com/vanetlab/vanetsim/internal/policy"
	"github.com/vanetlab/vanetsim/internal/vehicle"
	"github.com/vanetlab/vanetsim/pkg/core"
)

var origin = core.Position{Lat: 52.52, Lon: 13.405}

func parked(p core.Position, n, offset int) core.Trajectory {
	wps := make([]core.Waypoint, n)
	for i := range wps {
		wps[i] = core.Waypoint{Position: p, Timestamp: float64(i)}
	}
	return core.Trajectory{Waypoints: wps, Offset: offset}
}

func newPolicy(t *testing.T, name string) policy.Policy {
	t.Helper()
	p, err := policy.New(name, core.DefaultParams())
	require.NoError(t, err)
	return p
}

type recordingSink struct {
	ticks     []core.AnalyticsRecord
	snapshots []core.TickSnapshot
	err       error
}

func (s *recordingSink) RecordTicks(records []core.AnalyticsRecord) error {
	if s.err != nil {
		return s.err
	}
	s.ticks = append(s.ticks, records...)
	return nil
}

func (s *recordingSink) RecordSnapshot(snap *core.TickSnapshot) error {
	if s.err != nil {
		return s.err
	}
	s.snapshots = append(s.snapshots, *snap)
	return nil
}

func TestRun_NearbyPairLifecycle(t *testing.T) {
	trajectories := []core.Trajectory{
		parked(origin, 3, 0),
		parked(geo.Offset(origin, 50, 0), 3, 0),
	}
	rec := analytics.NewRecorder(nil)
	e, err := New(trajectories, newPolicy(t, policy.NearestFitName), rec, WithNoise(vehicle.NoNoise))
	require.NoError(t, err)

	summary, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Ticks)
	assert.Equal(t, 2, summary.CarsCompleted)
	assert.False(t, summary.HitTickCeiling)
	assert.Equal(t, 1, summary.TotalNewConnections)
	assert.Equal(t, 1, summary.TotalDroppedConnections)

	records := rec.Records()
	require.Len(t, records, 4)

	assert.Equal(t, 1, records[0].NewConnections)
	assert.Equal(t, 1, records[0].ActiveConnections)
	assert.Equal(t, 2, records[0].ActiveCars)
	assert.InDelta(t, 1.0, records[0].AvgConnectionDuration, 1e-9)
	assert.InDelta(t, 0.875, records[0].AvgConnectionHealth, 1e-3)

	assert.InDelta(t, 3.0, records[2].AvgConnectionDuration, 1e-9)
	assert.Equal(t, 0, records[2].CarsCompleted)

	assert.Equal(t, 2, records[3].CarsCompleted)
	assert.Equal(t, 1, records[3].DroppedConnections)
	assert.Equal(t, 0, records[3].ActiveConnections)
	assert.Equal(t, 0, records[3].ActiveCars)
}

func TestRun_FarPairNeverConnects(t *testing.T) {
	trajectories := []core.Trajectory{
		parked(origin, 5, 0),
		parked(geo.Offset(origin, 500, 0), 5, 0),
	}
	rec := analytics.NewRecorder(nil)
	e, err := New(trajectories, newPolicy(t, policy.MotionWeightedName), rec)
	require.NoError(t, err)

	summary, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalNewConnections)
	for _, r := range rec.Records() {
		assert.Equal(t, 0, r.ActiveConnections)
	}
}

func TestRun_EmptyTrajectoryDoesNotBlockTermination(t *testing.T) {
	trajectories := []core.Trajectory{
		parked(origin, 3, 0),
		{},
	}
	e, err := New(trajectories, newPolicy(t, policy.NearestFitName), nil)
	require.NoError(t, err)

	summary, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Ticks)
	assert.Equal(t, 1, summary.CarsCompleted)
	assert.Equal(t, 1, summary.DormantVehicles)
	assert.False(t, summary.HitTickCeiling)
}

func TestRun_OnlyDormantVehicles(t *testing.T) {
	e, err := New([]core.Trajectory{{}, {}}, newPolicy(t, policy.NearestFitName), nil)
	require.NoError(t, err)
	assert.True(t, e.Done())

	summary, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Ticks)
	assert.Equal(t, 2, summary.DormantVehicles)
}

func TestRun_TickCeiling(t *testing.T) {
	trajectories := []core.Trajectory{parked(origin, 1, 1000)}
	e, err := New(trajectories, newPolicy(t, policy.NearestFitName), nil, WithMaxTicks(10))
	require.NoError(t, err)

	summary, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.HitTickCeiling)
	assert.Equal(t, 10, summary.Ticks)
	assert.Equal(t, 0, summary.CarsCompleted)
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e, err := New([]core.Trajectory{parked(origin, 5, 0)}, newPolicy(t, policy.NearestFitName), nil)
	require.NoError(t, err)

	summary, err := e.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, summary.Ticks)
}

func TestRun_CarsCompletedIsMonotonic(t *testing.T) {
	var trajectories []core.Trajectory
	for i := range 8 {
		trajectories = append(trajectories, parked(geo.Offset(origin, float64(i*30), 0), 3+i, i*2))
	}
	rec := analytics.NewRecorder(nil)
	e, err := New(trajectories, newPolicy(t, policy.NearestFitName), rec)
	require.NoError(t, err)

	summary, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, summary.CarsCompleted)

	prev := 0
	for _, r := range rec.Records() {
		assert.GreaterOrEqual(t, r.CarsCompleted, prev)
		prev = r.CarsCompleted
	}
	assert.Equal(t, 8, prev)
}

func randomWalks(seed int64, n, length int) []core.Trajectory {
	rng := rand.New(rand.NewSource(seed))
	out := make([]core.Trajectory, n)
	for i := range out {
		p := geo.Offset(origin, rng.Float64()*800, rng.Float64()*800)
		wps := make([]core.Waypoint, length)
		for j := range wps {
			p = geo.Offset(p, rng.Float64()*40-20, rng.Float64()*40-20)
			wps[j] = core.Waypoint{Position: p, Timestamp: float64(j)}
		}
		out[i] = core.Trajectory{Waypoints: wps, Offset: rng.Intn(10)}
	}
	return out
}

func TestRun_DeterministicWithSeededNoise(t *testing.T) {
	run := func() []core.AnalyticsRecord {
		rec := analytics.NewRecorder(nil)
		noise := vehicle.UniformNoise(rand.New(rand.NewSource(42)), vehicle.DefaultNoiseAmplitude)
		e, err := New(randomWalks(7, 20, 30), newPolicy(t, policy.MotionWeightedName), rec, WithNoise(noise))
		require.NoError(t, err)
		_, err = e.Run(context.Background())
		require.NoError(t, err)
		return rec.Records()
	}

	first := run()
	second := run()
	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestRun_HealthStaysBounded(t *testing.T) {
	rec := analytics.NewRecorder(nil)
	e, err := New(randomWalks(3, 25, 40), newPolicy(t, policy.NearestFitName), rec)
	require.NoError(t, err)

	_, err = e.Run(context.Background())
	require.NoError(t, err)
	for _, r := range rec.Records() {
		assert.GreaterOrEqual(t, r.AvgConnectionHealth, 0.0)
		assert.LessOrEqual(t, r.AvgConnectionHealth, 1.0)
		if r.ActiveConnections > 0 {
			assert.GreaterOrEqual(t, r.AvgConnectionDuration, 1.0)
		}
	}
}

func TestRun_StreamsToSink(t *testing.T) {
	sink := &recordingSink{}
	rec := analytics.NewRecorder(sink, analytics.WithFlushEvery(2))
	trajectories := []core.Trajectory{
		parked(origin, 4, 0),
		parked(geo.Offset(origin, 0, 40), 4, 0),
	}
	e, err := New(trajectories, newPolicy(t, policy.NearestFitName), rec, WithSnapshots(true))
	require.NoError(t, err)

	summary, err := e.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sink.ticks, summary.Ticks)
	require.Len(t, sink.snapshots, summary.Ticks)
	assert.Len(t, sink.snapshots[0].Vehicles, 2)
	assert.Equal(t, []core.Pair{core.NewPair(0, 1)}, sink.snapshots[0].Pairs)
	assert.Empty(t, sink.snapshots[summary.Ticks-1].Vehicles)
}

func TestRun_SinkFailureSurfacesButKeepsRecords(t *testing.T) {
	sink := &recordingSink{err: errors.New("disk full")}
	rec := analytics.NewRecorder(sink, analytics.WithFlushEvery(1))
	e, err := New([]core.Trajectory{parked(origin, 3, 0)}, newPolicy(t, policy.NearestFitName), rec)
	require.NoError(t, err)

	summary, err := e.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, summary.Ticks, rec.Len())
	assert.Equal(t, summary.Ticks, rec.Pending())
}

func TestNew_RequiresPolicy(t *testing.T) {
	_, err := New(nil, nil, nil)
	require.Error(t, err)
}

func TestVehicles(t *testing.T) {
	tr := parked(origin, 2, 5)
	tr.Route = []byte(`{"routes":[]}`)
	e, err := New([]core.Trajectory{tr, {}}, newPolicy(t, policy.NearestFitName), nil)
	require.NoError(t, err)

	infos := e.Vehicles()
	require.Len(t, infos, 2)
	assert.Equal(t, 0, infos[0].ID)
	assert.Equal(t, 5, infos[0].Offset)
	assert.Equal(t, 2, infos[0].Waypoints)
	assert.Equal(t, origin, infos[0].Start)
	assert.JSONEq(t, `{"routes":[]}`, string(infos[0].Route))
	assert.Equal(t, 0, infos[1].Waypoints)
}

func TestProgress(t *testing.T) {
	trajectories := []core.Trajectory{
		parked(origin, 3, 0),
		parked(geo.Offset(origin, 50, 0), 3, 1),
		{},
	}
	e, err := New(trajectories, newPolicy(t, policy.NearestFitName), nil, WithNoise(vehicle.NoNoise))
	require.NoError(t, err)

	assert.Equal(t, Progress{Vehicles: 3}, e.Progress())

	e.Step(context.Background())
	assert.Equal(t, Progress{Ticks: 1, ActiveVehicles: 1, Vehicles: 3}, e.Progress())

	_, err = e.Run(context.Background())
	require.NoError(t, err)
	p := e.Progress()
	assert.Equal(t, 2, p.CarsCompleted)
	assert.Equal(t, 5, p.Ticks)
}
