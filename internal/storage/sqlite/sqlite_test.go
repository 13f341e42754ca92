package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanetlab/vanetsim/internal/config"
	"github.com/vanetlab/vanetsim/internal/database"
	"github.com/vanetlab/vanetsim/internal/model"
	"github.com/vanetlab/vanetsim/internal/storage"
	"github.com/vanetlab/vanetsim/pkg/core"
)

// Verify Backend implements storage.Backend interface
var _ storage.Backend = (*Backend)(nil)

// Verify Backend implements storage.Exporter interface
var _ storage.Exporter = (*Backend)(nil)

func testRun() *core.Run {
	return &core.Run{
		RunID:     "run-sqlite",
		Policy:    "naive",
		Params:    core.DefaultParams(),
		StartTime: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEndRun_DumpsToDisk(t *testing.T) {
	dumpPath := filepath.Join(t.TempDir(), "nested", "runs.db")
	b, err := New(config.SQLiteConfig{DumpPath: dumpPath}, 0, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())

	run := testRun()
	require.NoError(t, b.StartRun(run))
	require.NoError(t, b.AddVehicle(core.VehicleInfo{ID: 0, Waypoints: 2}))
	require.NoError(t, b.RecordTicks([]core.AnalyticsRecord{{Tick: 0, ActiveCars: 1}, {Tick: 1, ActiveCars: 1}}))
	require.NoError(t, b.EndRun(core.RunSummary{Ticks: 2}))
	assert.FileExists(t, dumpPath)
	assert.Equal(t, dumpPath, b.ExportedFilePath())

	disk, err := database.GetSqliteDB(dumpPath)
	require.NoError(t, err)
	var stored model.SimulationRun
	require.NoError(t, disk.Where("run_id = ?", "run-sqlite").First(&stored).Error)
	assert.Equal(t, 2, stored.Ticks)

	var count int64
	require.NoError(t, disk.Model(&model.TickAnalytics{}).Where("run_id = ?", stored.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	require.NoError(t, b.Close())
}

func TestNoDumpPath(t *testing.T) {
	b, err := New(config.SQLiteConfig{}, 0, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	require.NoError(t, b.StartRun(testRun()))
	require.NoError(t, b.EndRun(core.RunSummary{}))
	assert.Empty(t, b.ExportedFilePath())
	require.NoError(t, b.Close())
}

func TestDumpLoop(t *testing.T) {
	dumpPath := filepath.Join(t.TempDir(), "periodic.db")
	b, err := New(config.SQLiteConfig{DumpPath: dumpPath, DumpInterval: 20 * time.Millisecond}, 0, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	require.NoError(t, b.StartRun(testRun()))

	assert.Eventually(t, func() bool {
		_, err := os.Stat(dumpPath)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, b.Close())
}

func TestClose_FinalDump(t *testing.T) {
	dumpPath := filepath.Join(t.TempDir(), "final.db")
	b, err := New(config.SQLiteConfig{DumpPath: dumpPath, DumpInterval: time.Hour}, time.Hour, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	require.NoError(t, b.StartRun(testRun()))
	require.NoError(t, b.RecordTicks([]core.AnalyticsRecord{{Tick: 0}}))

	require.NoError(t, b.Close())

	disk, err := database.GetSqliteDB(dumpPath)
	require.NoError(t, err)
	var count int64
	require.NoError(t, disk.Model(&model.TickAnalytics{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
