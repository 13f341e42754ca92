package policy

import (
	"github.com/vanetlab/vanetsim/internal/vehicle"
	"github.com/vanetlab/vanetsim/pkg/core"
)

// NearestFit links in-range vehicles in iteration order without ranking them.
type NearestFit struct {
	graph
}

// NewNearestFit creates a Nearest-Fit policy.
func NewNearestFit(params core.Params) *NearestFit {
	return &NearestFit{graph: newGraph(params)}
}

func (p *NearestFit) Name() string { return NearestFitName }

func (p *NearestFit) Apply(active []*vehicle.Vehicle) Result {
	return p.apply(active, p.candidates)
}

// candidates scans active in order and stops as soon as
// existing + potential exceeds the minimum. This is first-fit: earlier in-range
// vehicles win over closer ones found later.
func (p *NearestFit) candidates(v *vehicle.Vehicle, active []*vehicle.Vehicle) []*vehicle.Vehicle {
	var potential []*vehicle.Vehicle
	for _, other := range active {
		if other.ID() != v.ID() && !v.Connected(other.ID()) && p.inRange(v, other) {
			potential = append(potential, other)
		}
		if v.ConnectionCount()+len(potential) > p.params.NumMinConnections {
			break
		}
	}
	return potential
}
