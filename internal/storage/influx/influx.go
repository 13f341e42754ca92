// Package influxstorage writes run analytics to InfluxDB as time series points.
package influxstorage

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/vanetlab/vanetsim/internal/config"
	"github.com/vanetlab/vanetsim/internal/influx"
	"github.com/vanetlab/vanetsim/pkg/core"
)

const connectTimeout = 10 * time.Second

// Backend implements storage.Backend on top of influx.Manager.
// Vehicles and snapshots are not written; InfluxDB only receives the tick series and the run summary.
type Backend struct {
	manager *influx.Manager
	cfg     config.InfluxConfig
	run     *core.Run
}

// New creates a new InfluxDB storage backend.
func New(cfg config.InfluxConfig, log zerolog.Logger) *Backend {
	return &Backend{
		manager: influx.NewManager(cfg, log),
		cfg:     cfg,
	}
}

// Init connects to InfluxDB or opens the backup file.
func (b *Backend) Init() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return b.manager.Connect(ctx)
}

// Close flushes pending points and releases the connection.
func (b *Backend) Close() error {
	return b.manager.Close()
}

func (b *Backend) StartRun(run *core.Run) error {
	r := *run
	b.run = &r
	return nil
}

func (b *Backend) EndRun(summary core.RunSummary) error {
	if b.run == nil {
		return errors.New("no run started")
	}
	if err := b.manager.WritePoint(influx.SummaryPoint(*b.run, summary)); err != nil {
		return err
	}
	return b.manager.Flush()
}

func (b *Backend) AddVehicle(core.VehicleInfo) error {
	return nil
}

func (b *Backend) RecordTicks(records []core.AnalyticsRecord) error {
	if b.run == nil {
		return errors.New("no run started")
	}
	for _, rec := range records {
		if err := b.manager.WritePoint(influx.TickPoint(*b.run, rec)); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) RecordSnapshot(*core.TickSnapshot) error {
	return nil
}

// ExportedFilePath returns the backup file when the server was unreachable.
func (b *Backend) ExportedFilePath() string {
	if b.manager.IsValid {
		return ""
	}
	return b.cfg.BackupPath
}
