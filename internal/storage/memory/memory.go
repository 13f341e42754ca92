// Package memory keeps a run in memory, streams flushed batches to a JSON Lines
// file and exports the analytics array when the run ends.
package memory

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/vanetlab/vanetsim/internal/config"
	"github.com/vanetlab/vanetsim/pkg/core"
)

// Backend stores run data in memory and exports to JSON
type Backend struct {
	cfg config.MemoryConfig
	run *core.Run

	vehicles  []core.VehicleInfo
	records   []core.AnalyticsRecord
	snapshots []core.TickSnapshot
	summary   *core.RunSummary

	stream         *os.File
	streamWriter   *bufio.Writer
	streamPath     string
	lastExportPath string

	mu sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close flushes and closes the stream file of an unfinished run.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeStream()
}

// fileStem is the shared name of the stream and export files: <policy>_<start>.
func fileStem(run *core.Run) string {
	policy := strings.ReplaceAll(run.Policy, " ", "_")
	if policy == "" {
		policy = "run"
	}
	return fmt.Sprintf("%s_%s", policy, run.StartTime.Format("20060102_150405"))
}

// StartRun begins recording a new run, discarding the previous one.
func (b *Backend) StartRun(run *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.closeStream(); err != nil {
		return err
	}

	b.run = run
	b.vehicles = nil
	b.records = nil
	b.snapshots = nil
	b.summary = nil
	b.streamPath = ""
	b.lastExportPath = ""

	if !b.cfg.StreamJSONL {
		return nil
	}
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(b.cfg.OutputDir, fileStem(run)+".jsonl")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create stream file: %w", err)
	}
	b.stream = f
	b.streamWriter = bufio.NewWriter(f)
	b.streamPath = path
	return nil
}

// EndRun stores the summary and exports the analytics array.
func (b *Backend) EndRun(summary core.RunSummary) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return fmt.Errorf("no run started")
	}
	b.summary = &summary

	if err := b.closeStream(); err != nil {
		return err
	}
	return b.exportJSON()
}

// AddVehicle registers a vehicle of the current run.
func (b *Backend) AddVehicle(v core.VehicleInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.vehicles = append(b.vehicles, v)
	return nil
}

// RecordTicks appends a flushed batch and streams it. Records at or before the
// last stored tick are skipped, so a retried batch is stored once.
func (b *Backend) RecordTicks(records []core.AnalyticsRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range records {
		if n := len(b.records); n > 0 && records[i].Tick <= b.records[n-1].Tick {
			continue
		}
		if err := b.writeLine(streamLine{Kind: kindTick, Tick: &records[i]}); err != nil {
			return err
		}
		b.records = append(b.records, records[i])
	}
	return b.flushStream()
}

// RecordSnapshot appends a tick snapshot and streams it. A snapshot for a tick
// already stored is skipped.
func (b *Backend) RecordSnapshot(s *core.TickSnapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n := len(b.snapshots); n > 0 && s.Tick <= b.snapshots[n-1].Tick {
		return nil
	}
	if err := b.writeLine(streamLine{Kind: kindSnapshot, Snapshot: s}); err != nil {
		return err
	}
	b.snapshots = append(b.snapshots, *s)
	return b.flushStream()
}

// Records returns a copy of the analytics received so far.
func (b *Backend) Records() []core.AnalyticsRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.records)
}

// Snapshots returns a copy of the snapshots received so far.
func (b *Backend) Snapshots() []core.TickSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.snapshots)
}

// Vehicles returns a copy of the registered vehicles.
func (b *Backend) Vehicles() []core.VehicleInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.vehicles)
}

// Summary returns the summary of the ended run, or nil while it is running.
func (b *Backend) Summary() *core.RunSummary {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.summary
}

// StreamFilePath returns the JSON Lines file of the current run, if streaming.
func (b *Backend) StreamFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.streamPath
}

// ExportedFilePath returns the path of the last exported file.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
