package main

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/rs/zerolog"
	"github.com/vanetlab/vanetsim/internal/config"
	"github.com/vanetlab/vanetsim/internal/storage"
	influxstorage "github.com/vanetlab/vanetsim/internal/storage/influx"
	"github.com/vanetlab/vanetsim/internal/storage/memory"
	pgstorage "github.com/vanetlab/vanetsim/internal/storage/postgres"
	sqlitestorage "github.com/vanetlab/vanetsim/internal/storage/sqlite"
)

// createStorageBackend builds every configured backend behind a Fanout.
// InfluxDB is added when enabled even if storage.type does not list it.
func createStorageBackend(storageCfg config.StorageConfig, influxCfg config.InfluxConfig, log *slog.Logger, metricsLog zerolog.Logger) (*storage.Fanout, error) {
	types := slices.Clone(storageCfg.Types)
	if len(types) == 0 {
		types = []string{"memory"}
	}
	if influxCfg.Enabled && !slices.Contains(types, "influx") {
		types = append(types, "influx")
	}

	var backends []storage.Backend
	for _, t := range types {
		backend, err := newBackend(t, storageCfg, influxCfg, log, metricsLog)
		if err != nil {
			return nil, err
		}
		backends = append(backends, backend)
	}
	return storage.NewFanout(backends...), nil
}

func newBackend(kind string, storageCfg config.StorageConfig, influxCfg config.InfluxConfig, log *slog.Logger, metricsLog zerolog.Logger) (storage.Backend, error) {
	switch kind {
	case "memory":
		log.Info("Memory storage backend initialized", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil

	case "sqlite":
		backend, err := sqlitestorage.New(storageCfg.SQLite, storageCfg.WriteInterval, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		log.Info("SQLite storage backend initialized", "dumpPath", storageCfg.SQLite.DumpPath)
		return backend, nil

	case "postgres":
		backend, err := pgstorage.New(storageCfg.Postgres, storageCfg.WriteInterval, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create Postgres backend: %w", err)
		}
		log.Info("Postgres storage backend initialized", "host", storageCfg.Postgres.Host)
		return backend, nil

	case "influx":
		influxCfg.Enabled = true
		log.Info("InfluxDB storage backend initialized", "host", influxCfg.Host, "bucket", influxCfg.Bucket)
		return influxstorage.New(influxCfg, metricsLog), nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", kind)
	}
}
