// Package policy implements the connectivity policies that maintain the
// vehicle connection graph once per tick.
package policy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vanetlab/vanetsim/internal/vehicle"
	"github.com/vanetlab/vanetsim/pkg/core"
)

// Policy names as used in configuration.
const (
	NearestFitName     = "random"
	MotionWeightedName = "smart"
)

// ErrUnknownPolicy is returned by New for an unrecognized policy name.
var ErrUnknownPolicy = errors.New("unknown connectivity policy")

// Policy maintains the connection graph over the active vehicles of one tick.
type Policy interface {
	Name() string
	// Apply validates existing connections, adds new ones and reports the tick's metrics.
	// active must only contain vehicles that are active on this tick.
	Apply(active []*vehicle.Vehicle) Result
	// Durations returns a copy of the consecutive-tick count per connected pair.
	Durations() map[core.Pair]int
}

// Result summarizes one Apply call.
type Result struct {
	NewConnections        int
	DroppedConnections    int
	ActiveConnections     int
	AvgConnectionDuration float64
	AvgConnectionHealth   float64
	AvgConnectionsPerCar  float64

	// Established lists the pairs linked on this tick, in the order they were linked.
	Established []core.Pair
	// Pairs lists every connected pair after the update, sorted.
	Pairs []core.Pair
}

// Names returns the recognized policy names.
func Names() []string {
	return []string{NearestFitName, MotionWeightedName}
}

// New returns the policy registered under name.
func New(name string, params core.Params) (Policy, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case NearestFitName, "nearest", "nearest-fit":
		return NewNearestFit(params), nil
	case MotionWeightedName, "motion", "motion-weighted":
		return NewMotionWeighted(params), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}
