package memory

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanetlab/vanetsim/internal/config"
	"github.com/vanetlab/vanetsim/internal/storage"
	"github.com/vanetlab/vanetsim/pkg/core"
)

// Verify Backend implements storage.Backend interface
var _ storage.Backend = (*Backend)(nil)

// Verify Backend implements storage.Exporter interface
var _ storage.Exporter = (*Backend)(nil)

func testRun() *core.Run {
	return &core.Run{
		RunID:     "run-1",
		Policy:    "smart",
		StartTime: time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
	}
}

func records(n int) []core.AnalyticsRecord {
	out := make([]core.AnalyticsRecord, n)
	for i := range out {
		out[i] = core.AnalyticsRecord{Tick: i, ActiveCars: i + 1}
	}
	return out
}

func TestInitAndClose(t *testing.T) {
	b := New(config.MemoryConfig{})
	assert.NoError(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestEndRun_WithoutStart(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	assert.Error(t, b.EndRun(core.RunSummary{}))
}

func TestRecordAndExportJSON(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir})
	require.NoError(t, b.StartRun(testRun()))

	require.NoError(t, b.AddVehicle(core.VehicleInfo{ID: 0, Waypoints: 3}))
	require.NoError(t, b.RecordTicks(records(2)))
	require.NoError(t, b.RecordTicks(records(3)[2:]))
	assert.Nil(t, b.Summary())

	require.NoError(t, b.EndRun(core.RunSummary{Ticks: 3}))

	path := b.ExportedFilePath()
	assert.Equal(t, filepath.Join(dir, "smart_20240301_123000.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 3)
	assert.EqualValues(t, 2, got[2]["timestamp"])
	assert.EqualValues(t, 3, got[2]["active_cars"])
	assert.Contains(t, got[0], "avg_connection_health")

	require.NotNil(t, b.Summary())
	assert.Equal(t, 3, b.Summary().Ticks)
	assert.Len(t, b.Vehicles(), 1)
	assert.Len(t, b.Records(), 3)
	assert.Empty(t, b.StreamFilePath())
}

func TestExportGzip(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true})
	require.NoError(t, b.StartRun(testRun()))
	require.NoError(t, b.RecordTicks(records(4)))
	require.NoError(t, b.EndRun(core.RunSummary{}))

	path := b.ExportedFilePath()
	assert.Equal(t, ".gz", filepath.Ext(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	var got []core.AnalyticsRecord
	require.NoError(t, json.NewDecoder(gz).Decode(&got))
	assert.Equal(t, records(4), got)
}

func TestExportEmptyRun(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir})
	require.NoError(t, b.StartRun(testRun()))
	require.NoError(t, b.EndRun(core.RunSummary{}))

	data, err := os.ReadFile(b.ExportedFilePath())
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}

func TestStreamJSONL(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, StreamJSONL: true})
	require.NoError(t, b.StartRun(testRun()))

	streamPath := b.StreamFilePath()
	assert.Equal(t, filepath.Join(dir, "smart_20240301_123000.jsonl"), streamPath)

	require.NoError(t, b.RecordSnapshot(&core.TickSnapshot{
		Tick:  0,
		Pairs: []core.Pair{core.NewPair(1, 0)},
	}))
	require.NoError(t, b.RecordTicks(records(2)))

	// lines are visible before the run ends
	f, err := os.Open(streamPath)
	require.NoError(t, err)
	var lines []streamLine
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var line streamLine
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.NoError(t, scanner.Err())
	f.Close()

	require.Len(t, lines, 3)
	assert.Equal(t, kindSnapshot, lines[0].Kind)
	require.NotNil(t, lines[0].Snapshot)
	assert.Equal(t, []core.Pair{core.NewPair(0, 1)}, lines[0].Snapshot.Pairs)
	assert.Equal(t, kindTick, lines[2].Kind)
	require.NotNil(t, lines[2].Tick)
	assert.Equal(t, 1, lines[2].Tick.Tick)

	require.NoError(t, b.EndRun(core.RunSummary{}))
	assert.Len(t, b.Snapshots(), 1)
	assert.NoError(t, b.Close())
}

func TestStartRun_ResetsState(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir})
	require.NoError(t, b.StartRun(testRun()))
	require.NoError(t, b.RecordTicks(records(5)))
	require.NoError(t, b.AddVehicle(core.VehicleInfo{ID: 2}))

	next := testRun()
	next.Policy = "naive"
	require.NoError(t, b.StartRun(next))
	assert.Empty(t, b.Records())
	assert.Empty(t, b.Vehicles())
	assert.Empty(t, b.ExportedFilePath())
}

func TestRecordsReturnsCopy(t *testing.T) {
	b := New(config.MemoryConfig{})
	require.NoError(t, b.StartRun(testRun()))
	require.NoError(t, b.RecordTicks(records(1)))

	got := b.Records()
	got[0].Tick = 99
	assert.Equal(t, 0, b.Records()[0].Tick)
}

func TestRecordTicks_RetriedBatchStoredOnce(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir(), StreamJSONL: true})
	require.NoError(t, b.StartRun(testRun()))

	require.NoError(t, b.RecordTicks(records(2)))
	require.NoError(t, b.RecordTicks(records(4)))
	require.NoError(t, b.RecordSnapshot(&core.TickSnapshot{Tick: 1}))
	require.NoError(t, b.RecordSnapshot(&core.TickSnapshot{Tick: 1}))

	var ticks []int
	for _, r := range b.Records() {
		ticks = append(ticks, r.Tick)
	}
	assert.Equal(t, []int{0, 1, 2, 3}, ticks)
	assert.Len(t, b.Snapshots(), 1)

	require.NoError(t, b.EndRun(core.RunSummary{}))
	data, err := os.ReadFile(b.StreamFilePath())
	require.NoError(t, err)
	lines := 0
	for _, c := range data {
		if c == '\n' {
			lines++
		}
	}
	assert.Equal(t, 5, lines)
}
