package policy

import (
	"sort"

	"github.com/vanetlab/vanetsim/internal/vehicle"
	"github.com/vanetlab/vanetsim/pkg/core"
)

// MotionWeighted ranks in-range vehicles by direction similarity and proximity.
type MotionWeighted struct {
	graph
}

// NewMotionWeighted creates a Motion-Weighted policy.
func NewMotionWeighted(params core.Params) *MotionWeighted {
	return &MotionWeighted{graph: newGraph(params)}
}

func (p *MotionWeighted) Name() string { return MotionWeightedName }

func (p *MotionWeighted) Apply(active []*vehicle.Vehicle) Result {
	return p.apply(active, p.candidates)
}

type scoredCandidate struct {
	vehicle *vehicle.Vehicle
	score   float64
}

// candidates returns every in-range unconnected vehicle, best final score first.
// Equal scores keep iteration order.
func (p *MotionWeighted) candidates(v *vehicle.Vehicle, active []*vehicle.Vehicle) []*vehicle.Vehicle {
	var scored []scoredCandidate
	for _, other := range active {
		if other.ID() == v.ID() || v.Connected(other.ID()) {
			continue
		}
		d := p.distanceKm(v, other)
		if d > p.params.ConnectionDistance {
			continue
		}
		scored = append(scored, scoredCandidate{
			vehicle: other,
			score:   FinalScore(p.params, v.Motion(), other.Motion(), d),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	out := make([]*vehicle.Vehicle, len(scored))
	for i, c := range scored {
		out[i] = c.vehicle
	}
	return out
}
