package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vanetlab/vanetsim/internal/config"
	"github.com/vanetlab/vanetsim/internal/storage"
)

// Verify Backend implements storage.Backend interface
var _ storage.Backend = (*Backend)(nil)

func TestNew_Unreachable(t *testing.T) {
	_, err := New(config.PostgresConfig{
		Host:     "127.0.0.1",
		Port:     "1",
		Username: "vanet",
		Password: "vanet",
		Database: "vanetsim",
	}, 0, nil)
	assert.Error(t, err)
}
