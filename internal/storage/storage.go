package storage

import (
	"github.com/vanetlab/vanetsim/internal/analytics"
	"github.com/vanetlab/vanetsim/pkg/core"
)

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Run management
	StartRun(run *core.Run) error
	EndRun(summary core.RunSummary) error

	// Vehicle registration, called once per vehicle after StartRun
	AddVehicle(v core.VehicleInfo) error

	// Analytics streaming, called by the recorder on every flush
	RecordTicks(records []core.AnalyticsRecord) error
	RecordSnapshot(s *core.TickSnapshot) error
}

var _ analytics.Sink = (Backend)(nil)

// Exporter is an optional interface for backends that write a result file
// once a run ends.
type Exporter interface {
	ExportedFilePath() string
}
