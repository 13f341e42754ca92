package policy

import (
	"maps"
	"slices"

	"github.com/vanetlab/vanetsim/internal/geo"
	"github.com/vanetlab/vanetsim/internal/vehicle"
	"github.com/vanetlab/vanetsim/pkg/core"
)

// candidateFunc returns, in acceptance order, the vehicles v may link to.
type candidateFunc func(v *vehicle.Vehicle, active []*vehicle.Vehicle) []*vehicle.Vehicle

// graph holds what both policies share: the parameters and the per-pair durations.
// A pair is in durations iff it is a currently valid connection.
type graph struct {
	params    core.Params
	durations map[core.Pair]int
}

func newGraph(params core.Params) graph {
	return graph{
		params:    params,
		durations: make(map[core.Pair]int),
	}
}

func (g *graph) Durations() map[core.Pair]int {
	return maps.Clone(g.durations)
}

func (g *graph) distanceKm(a, b *vehicle.Vehicle) float64 {
	return geo.DistanceKm(a.Position(), b.Position())
}

func (g *graph) inRange(a, b *vehicle.Vehicle) bool {
	return g.distanceKm(a, b) <= g.params.ConnectionDistance
}

// apply runs validate, augment and the metrics pass.
func (g *graph) apply(active []*vehicle.Vehicle, candidates candidateFunc) Result {
	byID := make(map[int]*vehicle.Vehicle, len(active))
	for _, v := range active {
		byID[v.ID()] = v
	}

	dropped := g.validate(active, byID)
	established := g.augment(active, candidates)

	res := g.metrics(active)
	res.DroppedConnections = dropped
	res.NewConnections = len(established)
	res.Established = established
	return res
}

// validate drops connections whose partner is no longer active or out of range.
// Each dropped pair is counted once; surviving pairs age by one tick.
func (g *graph) validate(active []*vehicle.Vehicle, byID map[int]*vehicle.Vehicle) int {
	dropped := 0
	seen := make(map[core.Pair]struct{})

	for _, v := range active {
		for _, id := range v.ConnectionIDs() {
			pair := core.NewPair(v.ID(), id)
			if _, ok := seen[pair]; ok {
				continue
			}
			seen[pair] = struct{}{}

			partner, ok := byID[id]
			if !ok {
				v.Disconnect(id)
				delete(g.durations, pair)
				dropped++
				continue
			}
			if !g.inRange(v, partner) {
				vehicle.Unlink(v, partner)
				delete(g.durations, pair)
				dropped++
				continue
			}
			g.durations[pair]++
		}
	}

	// pairs whose ends both left the active set have nobody left to visit them
	for pair := range g.durations {
		if _, ok := seen[pair]; !ok {
			delete(g.durations, pair)
			dropped++
		}
	}
	return dropped
}

// augment links candidates to every vehicle below the minimum connection count.
func (g *graph) augment(active []*vehicle.Vehicle, candidates candidateFunc) []core.Pair {
	var established []core.Pair
	minConns := g.params.NumMinConnections

	for _, v := range active {
		if v.ConnectionCount() >= minConns {
			continue
		}
		for _, other := range candidates(v, active) {
			if v.ConnectionCount() >= minConns {
				break
			}
			vehicle.Link(v, other)
			pair := core.NewPair(v.ID(), other.ID())
			g.durations[pair] = 1
			established = append(established, pair)
		}
	}
	return established
}

// metrics computes the post-update graph statistics.
func (g *graph) metrics(active []*vehicle.Vehicle) Result {
	var res Result

	byID := make(map[int]*vehicle.Vehicle, len(active))
	endpoints := 0
	for _, v := range active {
		byID[v.ID()] = v
		endpoints += v.ConnectionCount()
	}
	if len(active) > 0 {
		res.AvgConnectionsPerCar = float64(endpoints) / float64(len(active))
	}

	pairSet := make(map[core.Pair]struct{})
	for _, v := range active {
		for _, id := range v.ConnectionIDs() {
			pairSet[core.NewPair(v.ID(), id)] = struct{}{}
		}
	}
	res.Pairs = slices.SortedFunc(maps.Keys(pairSet), comparePairs)
	res.ActiveConnections = len(res.Pairs)

	if len(res.Pairs) > 0 {
		var total float64
		for _, p := range res.Pairs {
			total += Health(g.distanceKm(byID[p.A], byID[p.B]), g.params.ConnectionDistance)
		}
		res.AvgConnectionHealth = total / float64(len(res.Pairs))
	}

	if len(g.durations) > 0 {
		var total int
		for _, d := range g.durations {
			total += d
		}
		res.AvgConnectionDuration = float64(total) / float64(len(g.durations))
	}
	return res
}

func comparePairs(a, b core.Pair) int {
	if a.A != b.A {
		return a.A - b.A
	}
	return a.B - b.B
}
