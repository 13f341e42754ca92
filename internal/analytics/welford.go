package analytics

import (
	"math"

	"github.com/vanetlab/vanetsim/pkg/core"
)

// welford holds running statistics using Welford's online algorithm, so a run
// of any length is summarized in constant space.
type welford struct {
	count int
	mean  float64
	m2    float64
}

func (w *welford) update(v float64) {
	w.count++
	delta := v - w.mean
	w.mean += delta / float64(w.count)
	w.m2 += delta * (v - w.mean)
}

// stdDev is the population standard deviation, 0 with fewer than 2 observations.
func (w *welford) stdDev() float64 {
	if w.count < 2 {
		return 0
	}
	return math.Sqrt(w.m2 / float64(w.count))
}

func (w *welford) stat() core.Stat {
	return core.Stat{Mean: w.mean, StdDev: w.stdDev()}
}
