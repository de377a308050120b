package harness

import (
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"
)

// summary holds the descriptive statistics of a sample set, in
// nanoseconds per op.
type summary struct {
	Mean, Median, Min, Max, StdDev float64
	OpsPerSecond                   float64
}

// summarize computes statistics over per-op sample times. samples is
// not modified.
func summarize(samples []float64) summary {
	if len(samples) == 0 {
		return summary{}
	}
	xs := slices.Clone(samples)
	slices.Sort(xs)

	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) < 2 || math.IsNaN(std) {
		std = 0
	}

	s := summary{
		Mean:   mean,
		Median: stat.Quantile(0.5, stat.Empirical, xs, nil),
		Min:    xs[0],
		Max:    xs[len(xs)-1],
		StdDev: std,
	}
	if mean > 0 {
		s.OpsPerSecond = float64(time.Second) / mean
	}
	return s
}
