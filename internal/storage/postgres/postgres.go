// Package postgres implements the storage.Backend interface on PostgreSQL/PostGIS
// through the GORM backend.
package postgres

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/vanetlab/vanetsim/internal/config"
	"github.com/vanetlab/vanetsim/internal/database"
	gormstorage "github.com/vanetlab/vanetsim/internal/storage/gorm"
)

// Backend is the GORM backend over a PostgreSQL connection.
type Backend struct {
	*gormstorage.Backend
}

// New connects to PostgreSQL and creates the backend.
func New(cfg config.PostgresConfig, writeInterval time.Duration, log *slog.Logger) (*Backend, error) {
	db, err := database.GetPostgresDB(database.PostgresConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		Database: cfg.Database,
		SSLMode:  cfg.SSLMode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)

	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			DB:            db,
			Logger:        log,
			WriteInterval: writeInterval,
		}),
	}, nil
}

// Close drains the queues and closes the connection pool.
func (b *Backend) Close() error {
	if err := b.Backend.Close(); err != nil {
		return err
	}
	sqlDB, err := b.DB().DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
