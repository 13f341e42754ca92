package storage

import (
	"errors"
	"fmt"

	"github.com/vanetlab/vanetsim/pkg/core"
)

// Fanout forwards every call to several backends in order.
// A failing backend does not stop the others; the errors are joined.
//
// Ticks and snapshots are tracked per backend: when a batch is retried after a
// partial failure, backends that already accepted a tick do not receive it again.
type Fanout struct {
	backends []Backend
	lastTick []int
	lastSnap []int
}

// NewFanout creates a Fanout over the given backends.
func NewFanout(backends ...Backend) *Fanout {
	f := &Fanout{backends: backends}
	f.resetAcks()
	return f
}

func (f *Fanout) resetAcks() {
	f.lastTick = make([]int, len(f.backends))
	f.lastSnap = make([]int, len(f.backends))
	for i := range f.backends {
		f.lastTick[i] = -1
		f.lastSnap[i] = -1
	}
}

// Backends returns the wrapped backends.
func (f *Fanout) Backends() []Backend {
	return f.backends
}

func (f *Fanout) each(op string, fn func(Backend) error) error {
	var errs []error
	for _, b := range f.backends {
		if err := fn(b); err != nil {
			errs = append(errs, fmt.Errorf("%s %T: %w", op, b, err))
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) Init() error {
	return f.each("init", Backend.Init)
}

func (f *Fanout) Close() error {
	return f.each("close", Backend.Close)
}

func (f *Fanout) StartRun(run *core.Run) error {
	f.resetAcks()
	return f.each("start run", func(b Backend) error { return b.StartRun(run) })
}

func (f *Fanout) EndRun(summary core.RunSummary) error {
	return f.each("end run", func(b Backend) error { return b.EndRun(summary) })
}

func (f *Fanout) AddVehicle(v core.VehicleInfo) error {
	return f.each("add vehicle", func(b Backend) error { return b.AddVehicle(v) })
}

// RecordTicks forwards to each backend only the records newer than the last
// tick it accepted.
func (f *Fanout) RecordTicks(records []core.AnalyticsRecord) error {
	var errs []error
	for i, b := range f.backends {
		fresh := newerTicks(records, f.lastTick[i])
		if len(fresh) == 0 {
			continue
		}
		if err := b.RecordTicks(fresh); err != nil {
			errs = append(errs, fmt.Errorf("record ticks %T: %w", b, err))
			continue
		}
		f.lastTick[i] = fresh[len(fresh)-1].Tick
	}
	return errors.Join(errs...)
}

func (f *Fanout) RecordSnapshot(s *core.TickSnapshot) error {
	var errs []error
	for i, b := range f.backends {
		if s.Tick <= f.lastSnap[i] {
			continue
		}
		if err := b.RecordSnapshot(s); err != nil {
			errs = append(errs, fmt.Errorf("record snapshot %T: %w", b, err))
			continue
		}
		f.lastSnap[i] = s.Tick
	}
	return errors.Join(errs...)
}

func newerTicks(records []core.AnalyticsRecord, after int) []core.AnalyticsRecord {
	for i, r := range records {
		if r.Tick > after {
			return records[i:]
		}
	}
	return nil
}

// ExportedFilePaths collects the files written by backends that export one.
func (f *Fanout) ExportedFilePaths() []string {
	var paths []string
	for _, b := range f.backends {
		if e, ok := b.(Exporter); ok && e.ExportedFilePath() != "" {
			paths = append(paths, e.ExportedFilePath())
		}
	}
	return paths
}
