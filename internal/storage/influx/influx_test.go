package influxstorage

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanetlab/vanetsim/internal/config"
	"github.com/vanetlab/vanetsim/internal/influx"
	"github.com/vanetlab/vanetsim/internal/storage"
	"github.com/vanetlab/vanetsim/pkg/core"
)

// Verify Backend implements storage.Backend interface
var _ storage.Backend = (*Backend)(nil)

// Verify Backend implements storage.Exporter interface
var _ storage.Exporter = (*Backend)(nil)

func TestInit_Disabled(t *testing.T) {
	b := New(config.InfluxConfig{}, zerolog.Nop())
	assert.ErrorIs(t, b.Init(), influx.ErrDisabled)
}

func TestRecordTicks_WithoutRun(t *testing.T) {
	b := New(config.InfluxConfig{}, zerolog.Nop())
	assert.Error(t, b.RecordTicks([]core.AnalyticsRecord{{}}))
	assert.Error(t, b.EndRun(core.RunSummary{}))
}

func TestBackupFallback(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "influx.lp.gz")
	b := New(config.InfluxConfig{
		Enabled:    true,
		Protocol:   "http",
		Host:       "127.0.0.1",
		Port:       "1",
		Org:        "vanet",
		Bucket:     "vanet_analytics",
		BackupPath: backup,
	}, zerolog.Nop())
	require.NoError(t, b.Init())
	assert.Equal(t, backup, b.ExportedFilePath())

	run := &core.Run{RunID: "r1", Policy: "naive", StartTime: time.Unix(1700000000, 0)}
	require.NoError(t, b.StartRun(run))
	require.NoError(t, b.AddVehicle(core.VehicleInfo{ID: 0}))
	require.NoError(t, b.RecordSnapshot(&core.TickSnapshot{}))
	require.NoError(t, b.RecordTicks([]core.AnalyticsRecord{{Tick: 0}, {Tick: 1}, {Tick: 2}}))
	require.NoError(t, b.EndRun(core.RunSummary{Ticks: 3, EndTime: time.Unix(1700000003, 0)}))
	require.NoError(t, b.Close())

	f, err := os.Open(backup)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	for _, line := range lines[:3] {
		assert.True(t, strings.HasPrefix(line, influx.TickMeasurement+","))
	}
	assert.True(t, strings.HasPrefix(lines[3], influx.SummaryMeasurement+","))
}
