// Package gormstorage implements the storage.Backend interface over GORM
// with internal queues and a background DB writer goroutine.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vanetlab/vanetsim/internal/database"
	"github.com/vanetlab/vanetsim/internal/model"
	"github.com/vanetlab/vanetsim/internal/model/convert"
	"github.com/vanetlab/vanetsim/internal/queue"
	"github.com/vanetlab/vanetsim/pkg/core"
	"gorm.io/gorm"
)

// DefaultWriteInterval is the pause between background write cycles.
const DefaultWriteInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	WriteInterval time.Duration // <= 0 disables the background writer
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Vehicles        *queue.Queue[model.Vehicle]
	TickAnalytics   *queue.Queue[model.TickAnalytics]
	VehicleStates   *queue.Queue[model.VehicleState]
	ConnectionPairs *queue.Queue[model.ConnectionPair]
}

func newQueues() *queues {
	return &queues{
		Vehicles:        queue.New[model.Vehicle](),
		TickAnalytics:   queue.New[model.TickAnalytics](),
		VehicleStates:   queue.New[model.VehicleState](),
		ConnectionPairs: queue.New[model.ConnectionPair](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps   Dependencies
	queues *queues
	runID  atomic.Uint64
	run    *model.SimulationRun

	writeMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gorm backend has no database")
	}
	if err := b.setupDB(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	if b.deps.WriteInterval > 0 {
		b.stopChan = make(chan struct{})
		b.done = make(chan struct{})
		go b.dbWriter()
	}
	return nil
}

// setupDB enables PostGIS on postgres and migrates tables.
func (b *Backend) setupDB() error {
	db := b.deps.DB
	log := b.deps.Logger

	if db.Name() == "postgres" {
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS postgis;`).Error; err != nil {
			return fmt.Errorf("failed to create PostGIS extension: %w", err)
		}
		log.Info("PostGIS extension created")
	}

	log.Debug("Migrating schema", "dialect", db.Name())
	if err := database.Migrate(db); err != nil {
		return err
	}

	log.Info("Database setup complete", "dialect", db.Name())
	return nil
}

// Close stops the DB writer goroutine and drains whatever is still queued.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	return b.Flush()
}

// StartRun inserts the run synchronously so its ID is known before any row references it.
func (b *Backend) StartRun(run *core.Run) error {
	gormRun := convert.CoreToRun(*run)
	if err := b.deps.DB.Create(&gormRun).Error; err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	run.ID = gormRun.ID
	b.run = &gormRun
	b.runID.Store(uint64(gormRun.ID))
	return nil
}

// EndRun writes every queued row and stores the summary on the run.
func (b *Backend) EndRun(summary core.RunSummary) error {
	if b.run == nil {
		return errors.New("no run started")
	}
	if err := b.Flush(); err != nil {
		return err
	}

	convert.ApplySummary(b.run, summary)
	err := b.deps.DB.Model(b.run).Select(
		"EndTime", "Ticks", "CarsCompleted", "DormantVehicles", "HitTickCeiling", "Summary",
	).Updates(b.run).Error
	if err != nil {
		return fmt.Errorf("failed to update run summary: %w", err)
	}
	return nil
}

// RunID returns the database ID of the current run.
func (b *Backend) RunID() uint {
	return uint(b.runID.Load())
}

// AddVehicle converts a vehicle to GORM and pushes to the write queue.
func (b *Backend) AddVehicle(v core.VehicleInfo) error {
	b.queues.Vehicles.Push(convert.CoreToVehicle(b.RunID(), v))
	return nil
}

// RecordTicks converts and queues a batch of analytics records.
func (b *Backend) RecordTicks(records []core.AnalyticsRecord) error {
	runID := b.RunID()
	rows := make([]model.TickAnalytics, len(records))
	for i, r := range records {
		rows[i] = convert.CoreToTickAnalytics(runID, r)
	}
	b.queues.TickAnalytics.Push(rows...)
	return nil
}

// RecordSnapshot converts and queues the vehicle states and connected pairs of a tick.
func (b *Backend) RecordSnapshot(s *core.TickSnapshot) error {
	runID := b.RunID()
	b.queues.VehicleStates.Push(convert.CoreToVehicleStates(runID, *s)...)
	b.queues.ConnectionPairs.Push(convert.CoreToConnectionPairs(runID, *s)...)
	return nil
}

// Pending returns the number of rows waiting to be written.
func (b *Backend) Pending() int {
	return b.queues.Vehicles.Len() +
		b.queues.TickAnalytics.Len() +
		b.queues.VehicleStates.Len() +
		b.queues.ConnectionPairs.Len()
}

// Flush writes every queue to the database.
// A failed queue is put back and the remaining queues are still attempted.
func (b *Backend) Flush() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	db := b.deps.DB
	log := b.deps.Logger
	return errors.Join(
		writeQueue(db, b.queues.Vehicles, "vehicles", log),
		writeQueue(db, b.queues.TickAnalytics, "tick analytics", log),
		writeQueue(db, b.queues.VehicleStates, "vehicle states", log),
		writeQueue(db, b.queues.ConnectionPairs, "connection pairs", log),
	)
}

// writeQueue writes all items from a queue to the database in a transaction.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger) error {
	if q.Empty() {
		return nil
	}

	tx := db.Begin()
	items := q.Drain()
	if err := tx.Create(&items).Error; err != nil {
		log.Error("Error creating rows", "table", name, "count", len(items), "error", err)
		tx.Rollback()
		q.Requeue(items...)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	if err := tx.Commit().Error; err != nil {
		q.Requeue(items...)
		return fmt.Errorf("failed to commit %s: %w", name, err)
	}
	log.Debug("Wrote rows", "table", name, "count", len(items))
	return nil
}

// dbWriter periodically drains queues into the DB until Close.
func (b *Backend) dbWriter() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.WriteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.deps.Logger.Warn("Background write failed, rows stay queued", "error", err)
			}
		}
	}
}
