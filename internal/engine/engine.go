// Package engine runs the discrete tick loop of a simulation.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/vanetlab/vanetsim/internal/analytics"
	"github.com/vanetlab/vanetsim/internal/policy"
	"github.com/vanetlab/vanetsim/internal/vehicle"
	"github.com/vanetlab/vanetsim/pkg/core"
	"go.opentelemetry.io/otel/metric"
)

const (
	// DefaultMaxTicks stops runs whose vehicles never all complete.
	DefaultMaxTicks = 100000
	// DefaultSeed seeds the motion noise when no noise source is given.
	DefaultSeed = 1
)

// Option configures an Engine.
type Option func(*Engine)

// WithNoise sets the noise source for motion vectors.
func WithNoise(n vehicle.Noise) Option {
	return func(e *Engine) {
		e.noise = n
	}
}

// WithMaxTicks sets the tick ceiling. 0 disables it.
func WithMaxTicks(n int) Option {
	return func(e *Engine) {
		e.maxTicks = n
	}
}

// WithTimeInterval sets the tick length used for vehicle speeds.
func WithTimeInterval(d float64) Option {
	return func(e *Engine) {
		e.timeInterval = d
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithSnapshots records vehicle positions and connected pairs on every tick.
func WithSnapshots(enabled bool) Option {
	return func(e *Engine) {
		e.snapshots = enabled
	}
}

// Engine owns the vehicle arena and advances it one tick at a time.
// It is not safe for concurrent use.
type Engine struct {
	vehicles []*vehicle.Vehicle
	routes   [][]byte
	policy   policy.Policy
	recorder *analytics.Recorder
	log      *slog.Logger

	noise        vehicle.Noise
	maxTicks     int
	timeInterval float64
	snapshots    bool

	tick      int
	completed int

	// mirrors of the counters above for readers on other goroutines
	active        atomic.Int64
	ticksDone     atomic.Int64
	completedDone atomic.Int64

	meterProvider metric.MeterProvider
	inst          *instruments
}

// New builds the vehicle arena from trajectories. Vehicle ids are the trajectory indices.
func New(trajectories []core.Trajectory, p policy.Policy, rec *analytics.Recorder, opts ...Option) (*Engine, error) {
	if p == nil {
		return nil, errors.New("engine requires a connectivity policy")
	}
	if rec == nil {
		rec = analytics.NewRecorder(nil)
	}

	e := &Engine{
		vehicles:     make([]*vehicle.Vehicle, len(trajectories)),
		routes:       make([][]byte, len(trajectories)),
		policy:       p,
		recorder:     rec,
		log:          slog.Default(),
		maxTicks:     DefaultMaxTicks,
		timeInterval: 1,
	}
	for i, t := range trajectories {
		e.vehicles[i] = vehicle.New(i, t)
		e.routes[i] = t.Route
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.noise == nil {
		e.noise = vehicle.UniformNoise(rand.New(rand.NewSource(DefaultSeed)), vehicle.DefaultNoiseAmplitude)
	}

	inst, err := newInstruments(e)
	if err != nil {
		return nil, err
	}
	e.inst = inst
	return e, nil
}

// Tick returns the next tick to be simulated.
func (e *Engine) Tick() int { return e.tick }

// CarsCompleted returns the number of vehicles that finished their trajectory.
func (e *Engine) CarsCompleted() int { return e.completed }

// Vehicles returns the static description of every vehicle, in id order.
func (e *Engine) Vehicles() []core.VehicleInfo {
	out := make([]core.VehicleInfo, len(e.vehicles))
	for i, v := range e.vehicles {
		out[i] = v.Info(e.routes[i])
	}
	return out
}

// Progress is a point-in-time view of a running engine.
type Progress struct {
	Ticks          int
	ActiveVehicles int
	CarsCompleted  int
	Vehicles       int
}

// Progress may be called from any goroutine while Run is in progress.
func (e *Engine) Progress() Progress {
	return Progress{
		Ticks:          int(e.ticksDone.Load()),
		ActiveVehicles: int(e.active.Load()),
		CarsCompleted:  int(e.completedDone.Load()),
		Vehicles:       len(e.vehicles),
	}
}

// Done reports whether every vehicle is completed or can never activate.
func (e *Engine) Done() bool {
	for _, v := range e.vehicles {
		if !v.Completed() && !v.Dormant() {
			return false
		}
	}
	return true
}

// Step simulates one tick and reports whether the run is finished afterwards.
func (e *Engine) Step(ctx context.Context) bool {
	tick := e.tick

	completedNow := 0
	active := make([]*vehicle.Vehicle, 0, len(e.vehicles))
	for _, v := range e.vehicles {
		if v.Activate(tick) {
			completedNow++
		}
		if v.Active() {
			active = append(active, v)
		}
	}
	e.completed += completedNow
	e.active.Store(int64(len(active)))

	res := e.policy.Apply(active)

	for _, v := range active {
		v.UpdateMotion(tick, e.timeInterval, e.noise)
	}

	if e.snapshots {
		snap := core.TickSnapshot{
			Tick:     tick,
			Vehicles: make([]core.VehicleSnapshot, len(active)),
			Pairs:    res.Pairs,
		}
		for i, v := range active {
			snap.Vehicles[i] = v.Snapshot()
		}
		e.recorder.AppendSnapshot(snap)
	}

	rec := core.AnalyticsRecord{
		Tick:                  tick,
		CarsCompleted:         e.completed,
		NewConnections:        res.NewConnections,
		DroppedConnections:    res.DroppedConnections,
		ActiveConnections:     res.ActiveConnections,
		ActiveCars:            len(active),
		AvgConnectionDuration: res.AvgConnectionDuration,
		AvgConnectionHealth:   res.AvgConnectionHealth,
		AvgConnectionsPerCar:  res.AvgConnectionsPerCar,
	}
	if err := e.recorder.Append(rec); err != nil {
		// records stay queued and are retried on the next flush
		e.log.Warn("Failed to flush analytics", "tick", tick, "error", err)
	}

	e.inst.record(ctx, completedNow, res)
	e.tick++
	e.ticksDone.Store(int64(e.tick))
	e.completedDone.Store(int64(e.completed))

	return e.Done()
}

// Run steps until every vehicle is finished, the tick ceiling is reached or ctx
// is cancelled, then flushes the recorder and returns the run summary.
func (e *Engine) Run(ctx context.Context) (core.RunSummary, error) {
	start := time.Now()
	hitCeiling := false
	var runErr error

	e.log.Info("Starting simulation",
		"policy", e.policy.Name(),
		"vehicles", len(e.vehicles),
		"maxTicks", e.maxTicks,
	)

	for !e.Done() {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if e.maxTicks > 0 && e.tick >= e.maxTicks {
			hitCeiling = true
			e.log.Warn("Tick ceiling reached before all vehicles completed",
				"maxTicks", e.maxTicks,
				"carsCompleted", e.completed,
			)
			break
		}
		e.Step(ctx)
	}

	finishErr := e.recorder.Finish()
	if finishErr != nil {
		e.log.Error("Failed to flush analytics", "error", finishErr)
	}

	if err := e.inst.unregister(); err != nil {
		e.log.Warn("Failed to unregister engine metrics", "error", err)
	}

	summary := e.Summary()
	summary.HitTickCeiling = hitCeiling

	e.log.Info("Simulation finished",
		"policy", e.policy.Name(),
		"ticks", summary.Ticks,
		"carsCompleted", summary.CarsCompleted,
		"duration", time.Since(start),
	)

	return summary, errors.Join(runErr, finishErr)
}

// Summary reports the state of the run so far.
func (e *Engine) Summary() core.RunSummary {
	s := core.RunSummary{
		Ticks:         e.tick,
		CarsCompleted: e.completed,
		EndTime:       time.Now(),
	}
	for _, v := range e.vehicles {
		if v.Dormant() {
			s.DormantVehicles++
		}
	}
	e.recorder.Summarize(&s)
	return s
}
