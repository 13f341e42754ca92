package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/vanetlab/vanetsim/internal/analytics"
	"github.com/vanetlab/vanetsim/internal/config"
	"github.com/vanetlab/vanetsim/internal/engine"
	"github.com/vanetlab/vanetsim/internal/monitor"
	"github.com/vanetlab/vanetsim/internal/policy"
	"github.com/vanetlab/vanetsim/internal/storage"
	"github.com/vanetlab/vanetsim/internal/trajectory"
	"github.com/vanetlab/vanetsim/internal/vehicle"
	"github.com/vanetlab/vanetsim/pkg/core"
)

// runResult is what one policy run left behind.
type runResult struct {
	Run     core.Run
	Summary core.RunSummary
}

// policyNames expands the configured policy: "both" (or "all") runs every policy in turn.
func policyNames(configured string) []string {
	configured = strings.ToLower(strings.TrimSpace(configured))
	if configured == "" || configured == "both" || configured == "all" {
		return policy.Names()
	}
	var names []string
	for _, name := range strings.Split(configured, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// run loads the configuration and replays the trajectory set once per policy.
func run(ctx context.Context, opts options) error {
	// .env is optional; already set variables win
	envErr := godotenv.Load(opts.envFile)
	if errors.Is(envErr, os.ErrNotExist) {
		envErr = nil
	}

	configErr := config.Load(opts.configDir)
	if configErr != nil && !errors.Is(configErr, config.ErrConfigNotFound) {
		return configErr
	}

	sess, err := newSession(time.Now())
	if err != nil {
		return err
	}
	defer sess.Close()
	log := sess.logger

	if envErr != nil {
		log.Warn("Failed to load env file", "path", opts.envFile, "error", envErr)
	}
	if configErr != nil {
		log.Warn("Failed to load config, using defaults!", "error", configErr)
	} else {
		log.Info("Loaded config", "dir", opts.configDir)
	}

	results, err := simulate(ctx, sess)
	for _, r := range results {
		fmt.Printf("%-8s run %s: %d ticks, %d cars completed, %d connections made, mean health %.3f\n",
			r.Run.Policy, r.Run.RunID, r.Summary.Ticks, r.Summary.CarsCompleted,
			r.Summary.TotalNewConnections, r.Summary.ConnectionHealth.Mean)
	}
	if err != nil {
		log.Error("Simulation failed", "error", err)
	}
	return err
}

// simulate runs every configured policy against the same storage backends.
func simulate(ctx context.Context, sess *session) ([]runResult, error) {
	log := sess.logger
	simCfg := config.GetSimulationConfig()
	params := config.GetSimulationParams()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	names := policyNames(simCfg.Policy)
	policies := make([]policy.Policy, 0, len(names))
	for _, name := range names {
		p, err := policy.New(name, params)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}

	set, err := trajectory.Load(simCfg.Trajectories)
	if err != nil {
		return nil, err
	}
	log.Info("Loaded trajectories", "path", simCfg.Trajectories, "vehicles", len(set.Trajectories))
	if outside := set.OutsideBoundingBox(); len(outside) > 0 {
		log.Warn("Trajectories start outside the bounding box", "count", len(outside), "center", set.BoundingBox.Center())
	}

	backend, err := createStorageBackend(config.GetStorageConfig(), config.GetInfluxConfig(), log, sess.metricsLog)
	if err != nil {
		return nil, err
	}
	if err := backend.Init(); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to initialize storage: %w", err), backend.Close())
	}

	var results []runResult
	var runErr error
	for _, p := range policies {
		if ctx.Err() != nil {
			break
		}
		res, err := runPolicy(ctx, sess, backend, p, set, simCfg, params)
		results = append(results, res)
		sess.flushTelemetry(ctx)
		if err != nil {
			runErr = err
			break
		}
	}

	closeErr := backend.Close()
	for _, path := range backend.ExportedFilePaths() {
		log.Info("Results written", "path", path)
	}
	return results, errors.Join(runErr, closeErr)
}

func runPolicy(ctx context.Context, sess *session, backend storage.Backend, p policy.Policy, set *trajectory.Set, simCfg config.SimulationConfig, params core.Params) (runResult, error) {
	run := &core.Run{
		RunID:        uuid.NewString(),
		Policy:       p.Name(),
		Params:       params,
		Source:       simCfg.Trajectories,
		Seed:         simCfg.Seed,
		VehicleCount: len(set.Trajectories),
		StartTime:    time.Now(),
	}
	log := sess.logger.With("runId", run.RunID, "policy", run.Policy)

	if err := backend.StartRun(run); err != nil {
		return runResult{Run: *run}, fmt.Errorf("failed to start run: %w", err)
	}

	rec := analytics.NewRecorder(backend,
		analytics.WithFlushEvery(config.GetAnalyticsConfig().FlushEvery),
		analytics.WithLogger(log),
	)
	noise := vehicle.UniformNoise(rand.New(rand.NewSource(simCfg.Seed)), simCfg.NoiseAmplitude)
	eng, err := engine.New(set.Trajectories, p, rec,
		engine.WithNoise(noise),
		engine.WithMaxTicks(simCfg.MaxTicks),
		engine.WithTimeInterval(params.TimeInterval),
		engine.WithSnapshots(simCfg.Snapshots),
		engine.WithLogger(log),
	)
	if err != nil {
		return runResult{Run: *run}, err
	}

	var regErr error
	for _, v := range eng.Vehicles() {
		if err := backend.AddVehicle(v); err != nil {
			regErr = fmt.Errorf("failed to register vehicle %d: %w", v.ID, err)
			break
		}
	}

	mon := startMonitor(log, run, eng, rec)
	summary, simErr := eng.Run(ctx)
	if mon != nil {
		mon.Stop()
	}
	endErr := backend.EndRun(summary)
	if endErr != nil {
		endErr = fmt.Errorf("failed to end run: %w", endErr)
	}
	return runResult{Run: *run, Summary: summary}, errors.Join(regErr, simErr, endErr)
}

// startMonitor reports the progress of a run until it is stopped. A monitor
// that fails to start is logged and skipped.
func startMonitor(log *slog.Logger, run *core.Run, eng *engine.Engine, rec *analytics.Recorder) *monitor.Service {
	cfg := config.GetMonitorConfig()
	if !cfg.Enabled {
		return nil
	}
	statusPath := cfg.StatusPath
	if statusPath == "" {
		statusPath = filepath.Join(config.GetString("logsDir"), "status.json")
	}

	mon := monitor.NewService(monitor.Dependencies{
		Logger:     log,
		StatusPath: statusPath,
		Interval:   cfg.Interval,
	})
	err := mon.Start(func() monitor.Status {
		p := eng.Progress()
		return monitor.Status{
			RunID:          run.RunID,
			Policy:         run.Policy,
			Ticks:          p.Ticks,
			Vehicles:       p.Vehicles,
			ActiveVehicles: p.ActiveVehicles,
			CarsCompleted:  p.CarsCompleted,
			PendingWrites:  rec.Pending(),
		}
	})
	if err != nil {
		log.Warn("Failed to start progress monitor", "error", err)
		return nil
	}
	return mon
}
