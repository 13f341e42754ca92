package core

import (
	"errors"
	"fmt"
)

// ErrInvalidParams is returned by Params.Validate.
var ErrInvalidParams = errors.New("invalid simulation parameters")

// Params holds the read-only simulation parameters.
type Params struct {
	ConnectionDistance float64 `json:"connection_distance"` // km
	NumMinConnections  int     `json:"num_min_connections"`
	SimilarityWeight   float64 `json:"similarity_weight"`
	DistanceWeight     float64 `json:"distance_weight"`
	TimeInterval       float64 `json:"time_interval"`
}

// DefaultParams returns the parameters used when nothing is configured.
func DefaultParams() Params {
	return Params{
		ConnectionDistance: 0.4,
		NumMinConnections:  3,
		SimilarityWeight:   0.7,
		DistanceWeight:     0.3,
		TimeInterval:       1,
	}
}

// Validate rejects parameter sets the engine cannot run with.
func (p Params) Validate() error {
	if p.ConnectionDistance <= 0 {
		return fmt.Errorf("%w: connection_distance must be positive, got %v", ErrInvalidParams, p.ConnectionDistance)
	}
	if p.NumMinConnections < 0 {
		return fmt.Errorf("%w: num_min_connections must not be negative, got %d", ErrInvalidParams, p.NumMinConnections)
	}
	if p.TimeInterval <= 0 {
		return fmt.Errorf("%w: time_interval must be positive, got %v", ErrInvalidParams, p.TimeInterval)
	}
	return nil
}
