package report

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/feather-lang/vmbench/harness"
)

// Registry builds a Prometheus registry holding one sample per result.
func Registry(results []harness.BenchmarkResult) (*prometheus.Registry, error) {
	labels := []string{"group", "runtime"}

	nsPerOp := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vmbench_ns_per_op",
		Help: "Mean time per call in nanoseconds.",
	}, labels)
	stddev := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vmbench_ns_per_op_stddev",
		Help: "Standard deviation of the time per call in nanoseconds.",
	}, labels)
	opsPerSecond := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vmbench_ops_per_second",
		Help: "Calls per second derived from the mean.",
	}, labels)
	iterations := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vmbench_iterations",
		Help: "Measured calls.",
	}, labels)

	reg := prometheus.NewRegistry()
	for _, c := range []prometheus.Collector{nsPerOp, stddev, opsPerSecond, iterations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	for _, r := range results {
		nsPerOp.WithLabelValues(r.Group, r.Runtime).Set(r.Mean)
		stddev.WithLabelValues(r.Group, r.Runtime).Set(r.StdDev)
		opsPerSecond.WithLabelValues(r.Group, r.Runtime).Set(r.OpsPerSecond)
		iterations.WithLabelValues(r.Group, r.Runtime).Set(float64(r.Iterations))
	}
	return reg, nil
}

// WriteTextfile writes results in the node exporter textfile format.
func WriteTextfile(path string, results []harness.BenchmarkResult) error {
	if len(results) == 0 {
		return ErrNoResults
	}
	reg, err := Registry(results)
	if err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write textfile: %w", err)
	}
	return nil
}
