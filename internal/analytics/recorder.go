// Package analytics accumulates the per-tick analytics of a run and streams
// them to storage while the run is in progress.
package analytics

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/vanetlab/vanetsim/internal/queue"
	"github.com/vanetlab/vanetsim/pkg/core"
)

// DefaultFlushEvery is the number of ticks between flushes when none is configured.
const DefaultFlushEvery = 10

// Sink receives flushed analytics. storage.Backend satisfies it.
type Sink interface {
	RecordTicks(records []core.AnalyticsRecord) error
	RecordSnapshot(s *core.TickSnapshot) error
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithFlushEvery flushes after every n appended records. n <= 0 flushes only on Finish.
func WithFlushEvery(n int) Option {
	return func(r *Recorder) {
		r.flushEvery = n
	}
}

// WithLogger sets the logger used for flush diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) {
		r.log = l
	}
}

// Recorder is the append-only analytics sequence of one run.
// The in-memory sequence is the source of truth; the sink gets copies in batches.
type Recorder struct {
	records   []core.AnalyticsRecord
	pending   *queue.Queue[core.AnalyticsRecord]
	snapshots *queue.Queue[core.TickSnapshot]
	sink      Sink
	log       *slog.Logger

	flushEvery int
	sinceFlush int
	flushed    int

	activeConnections welford
	health            welford
	duration          welford
	peakConnections   int
	totalNew          int
	totalDropped      int
}

// NewRecorder creates a recorder. sink may be nil to keep analytics in memory only.
func NewRecorder(sink Sink, opts ...Option) *Recorder {
	r := &Recorder{
		pending:    queue.New[core.AnalyticsRecord](),
		snapshots:  queue.New[core.TickSnapshot](),
		sink:       sink,
		log:        slog.Default(),
		flushEvery: DefaultFlushEvery,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Append adds the record of one tick and flushes when the batch is full.
// A flush error leaves the record in memory and queued for the next flush.
func (r *Recorder) Append(rec core.AnalyticsRecord) error {
	r.records = append(r.records, rec)
	r.observe(rec)

	if r.sink == nil {
		return nil
	}
	r.pending.Push(rec)
	r.sinceFlush++
	if r.flushEvery > 0 && r.sinceFlush >= r.flushEvery {
		return r.Flush()
	}
	return nil
}

// AppendSnapshot queues a tick snapshot for the next flush.
func (r *Recorder) AppendSnapshot(s core.TickSnapshot) {
	if r.sink == nil {
		return
	}
	r.snapshots.Push(s)
}

func (r *Recorder) observe(rec core.AnalyticsRecord) {
	r.activeConnections.update(float64(rec.ActiveConnections))
	if rec.ActiveConnections > 0 {
		r.health.update(rec.AvgConnectionHealth)
		r.duration.update(rec.AvgConnectionDuration)
	}
	r.peakConnections = max(r.peakConnections, rec.ActiveConnections)
	r.totalNew += rec.NewConnections
	r.totalDropped += rec.DroppedConnections
}

// Flush writes every queued record and snapshot to the sink.
func (r *Recorder) Flush() error {
	if r.sink == nil {
		return nil
	}
	r.sinceFlush = 0

	for !r.snapshots.Empty() {
		snap := r.snapshots.DrainN(1)[0]
		if err := r.sink.RecordSnapshot(&snap); err != nil {
			r.snapshots.Requeue(snap)
			return fmt.Errorf("failed to flush snapshot for tick %d: %w", snap.Tick, err)
		}
	}

	batch := r.pending.Drain()
	if len(batch) == 0 {
		return nil
	}
	if err := r.sink.RecordTicks(batch); err != nil {
		r.pending.Requeue(batch...)
		return fmt.Errorf("failed to flush %d analytics records: %w", len(batch), err)
	}
	r.flushed += len(batch)
	r.log.Debug("Flushed analytics", "records", len(batch), "total", r.flushed)
	return nil
}

// Finish flushes whatever is still queued. It is called once when the run ends.
func (r *Recorder) Finish() error {
	return r.Flush()
}

// Records returns a copy of the recorded sequence.
func (r *Recorder) Records() []core.AnalyticsRecord {
	return slices.Clone(r.records)
}

// Len returns the number of recorded ticks.
func (r *Recorder) Len() int {
	return len(r.records)
}

// Pending returns the number of records not yet accepted by the sink.
// It is safe to call from other goroutines.
func (r *Recorder) Pending() int {
	return r.pending.Len()
}

// Flushed returns the number of records the sink has accepted.
func (r *Recorder) Flushed() int {
	return r.flushed
}

// Summarize fills the statistics part of a run summary.
func (r *Recorder) Summarize(s *core.RunSummary) {
	s.TotalNewConnections = r.totalNew
	s.TotalDroppedConnections = r.totalDropped
	s.PeakActiveConnections = r.peakConnections
	s.ActiveConnections = r.activeConnections.stat()
	s.ConnectionHealth = r.health.stat()
	s.ConnectionDuration = r.duration.stat()
}
