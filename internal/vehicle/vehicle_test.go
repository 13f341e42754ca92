package vehicle

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanetlab/vanetsim/internal/geo"
	"github.com/vanetlab/vanetsim/pkg/core"
)

// straightLine returns n waypoints heading north, 10 m apart, one per tick.
func straightLine(n int) []core.Waypoint {
	start := core.Position{Lat: 42.3141, Lon: -83.0368}
	wps := make([]core.Waypoint, n)
	for i := range wps {
		wps[i] = core.Waypoint{Position: geo.Offset(start, float64(i)*10, 0), Timestamp: float64(i)}
	}
	return wps
}

func TestActivate_Window(t *testing.T) {
	wps := straightLine(3)
	v := New(7, core.Trajectory{Waypoints: wps, Offset: 2})

	tests := []struct {
		tick      int
		active    bool
		completed bool
		justDone  bool
		position  core.Position
	}{
		{0, false, false, false, wps[0].Position},
		{1, false, false, false, wps[0].Position},
		{2, true, false, false, wps[0].Position},
		{3, true, false, false, wps[1].Position},
		{4, true, false, false, wps[2].Position},
		{5, false, true, true, wps[2].Position},
		{6, false, true, false, wps[2].Position},
	}

	for _, tt := range tests {
		done := v.Activate(tt.tick)
		assert.Equal(t, tt.justDone, done, "tick %d", tt.tick)
		assert.Equal(t, tt.active, v.Active(), "tick %d", tt.tick)
		assert.Equal(t, tt.completed, v.Completed(), "tick %d", tt.tick)
		assert.Equal(t, tt.position, v.Position(), "tick %d", tt.tick)
	}
}

func TestActivate_CompletedNeverReactivates(t *testing.T) {
	v := New(1, core.Trajectory{Waypoints: straightLine(2)})

	v.Activate(0)
	v.Activate(1)
	require.True(t, v.Activate(2))

	for _, tick := range []int{0, 1, 2, 3} {
		assert.False(t, v.Activate(tick))
		assert.False(t, v.Active())
		assert.True(t, v.Completed())
	}
}

func TestActivate_CompletionDropsConnections(t *testing.T) {
	a := New(1, core.Trajectory{Waypoints: straightLine(1)})
	b := New(2, core.Trajectory{Waypoints: straightLine(5)})
	a.Activate(0)
	b.Activate(0)
	Link(a, b)

	require.True(t, a.Activate(1))
	assert.Equal(t, 0, a.ConnectionCount())
	assert.True(t, b.Connected(1), "partner side is left for the policy to drop")
}

func TestActivate_EmptyTrajectoryIsDormant(t *testing.T) {
	v := New(3, core.Trajectory{Offset: 0})

	assert.True(t, v.Dormant())
	for tick := 0; tick < 10; tick++ {
		assert.False(t, v.Activate(tick))
		assert.False(t, v.Active())
		assert.False(t, v.Completed())
	}
}

func TestNew_CopiesWaypoints(t *testing.T) {
	wps := straightLine(2)
	v := New(1, core.Trajectory{Waypoints: wps})
	wps[0].Position.Lat = 0

	assert.NotEqual(t, 0.0, v.Waypoints()[0].Position.Lat)
}

func TestLinkUnlink_Symmetric(t *testing.T) {
	a := New(1, core.Trajectory{})
	b := New(2, core.Trajectory{})

	Link(a, b)
	assert.True(t, a.Connected(2))
	assert.True(t, b.Connected(1))

	Link(a, a)
	assert.False(t, a.Connected(1))

	Unlink(b, a)
	assert.False(t, a.Connected(2))
	assert.False(t, b.Connected(1))
}

func TestConnectionIDs_Sorted(t *testing.T) {
	v := New(0, core.Trajectory{})
	for _, id := range []int{9, 3, 5, 1} {
		Link(v, New(id, core.Trajectory{}))
	}
	assert.Equal(t, []int{1, 3, 5, 9}, v.ConnectionIDs())
}

func TestSnapshotAndInfo(t *testing.T) {
	wps := straightLine(3)
	v := New(4, core.Trajectory{Waypoints: wps, Offset: 1})
	v.Activate(2)

	snap := v.Snapshot()
	assert.Equal(t, 4, snap.VehicleID)
	assert.Equal(t, wps[1].Position, snap.Position)

	info := v.Info([]byte(`{"routes":[]}`))
	assert.Equal(t, 4, info.ID)
	assert.Equal(t, 1, info.Offset)
	assert.Equal(t, 3, info.Waypoints)
	assert.Equal(t, wps[0].Position, info.Start)
	assert.JSONEq(t, `{"routes":[]}`, string(info.Route))
}

func TestUpdateMotion_InsufficientHistory(t *testing.T) {
	v := New(1, core.Trajectory{Waypoints: straightLine(5), Offset: 3})

	v.Activate(3)
	m := v.UpdateMotion(3, 1, UniformNoise(rand.New(rand.NewSource(1)), DefaultNoiseAmplitude))
	assert.Equal(t, core.MotionVector{}, m, "one visible waypoint gives a zero vector")

	empty := New(2, core.Trajectory{})
	assert.Equal(t, core.MotionVector{}, empty.UpdateMotion(10, 1, nil))
}

func TestUpdateMotion_MeanDeltaWithoutNoise(t *testing.T) {
	wps := straightLine(10)
	v := New(1, core.Trajectory{Waypoints: wps})

	v.Activate(8)
	m := v.UpdateMotion(8, 1, NoNoise)

	// window is waypoints 4..8, four equal northward steps
	wantDY := (wps[8].Position.Lat - wps[4].Position.Lat) / 4
	assert.InDelta(t, wantDY, m.DY, 1e-12)
	assert.InDelta(t, 0, m.DX, 1e-12)
	assert.InDelta(t, 10, m.Speed, 0.01)
}

func TestUpdateMotion_SpeedScalesWithInterval(t *testing.T) {
	v := New(1, core.Trajectory{Waypoints: straightLine(4)})
	v.Activate(3)

	m := v.UpdateMotion(3, 2, NoNoise)
	assert.InDelta(t, 5, m.Speed, 0.01)
}

func TestUpdateMotion_IgnoresFutureWaypoints(t *testing.T) {
	wps := straightLine(6)
	v := New(1, core.Trajectory{Waypoints: wps, Offset: 10})

	v.Activate(11)
	m := v.UpdateMotion(11, 1, NoNoise)

	// only waypoints 0 and 1 are visible at tick 11
	assert.InDelta(t, wps[1].Position.Lat-wps[0].Position.Lat, m.DY, 1e-12)
}

func TestUpdateMotion_NoiseIsSeededAndBounded(t *testing.T) {
	run := func(seed int64) []core.MotionVector {
		rng := rand.New(rand.NewSource(seed))
		noise := UniformNoise(rng, DefaultNoiseAmplitude)
		v := New(1, core.Trajectory{Waypoints: straightLine(20)})
		var out []core.MotionVector
		for tick := 0; tick < 20; tick++ {
			v.Activate(tick)
			out = append(out, v.UpdateMotion(tick, 1, noise))
		}
		return out
	}

	first := run(42)
	assert.Equal(t, first, run(42), "same seed must reproduce the same vectors")
	assert.NotEqual(t, first, run(43))

	clean := New(1, core.Trajectory{Waypoints: straightLine(20)})
	for tick := 1; tick < 20; tick++ {
		clean.Activate(tick)
		base := clean.UpdateMotion(tick, 1, NoNoise)
		assert.LessOrEqual(t, abs(first[tick].DX-base.DX), DefaultNoiseAmplitude)
		assert.LessOrEqual(t, abs(first[tick].DY-base.DY), DefaultNoiseAmplitude)
		assert.InDelta(t, base.Speed, first[tick].Speed, 1e-12)
	}
}

func TestUniformNoise_Range(t *testing.T) {
	noise := UniformNoise(rand.New(rand.NewSource(7)), 0.1)
	for i := 0; i < 1000; i++ {
		n := noise()
		assert.GreaterOrEqual(t, n, -0.1)
		assert.Less(t, n, 0.1)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
