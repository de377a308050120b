package harness

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoBenchmarks is returned when a selection leaves nothing to run.
var ErrNoBenchmarks = errors.New("no benchmarks selected")

// Invoker is a prepared execution context for one benchmark.
type Invoker interface {
	// Invoke performs one call of the measured function with its fixed payload.
	Invoke(ctx context.Context) error
	// Close releases the execution context.
	Close() error
}

// Benchmark captures information about a single benchmark.
type Benchmark struct {
	Name    string // "<group>: <runtime>"
	Group   string // workload, e.g. "add"
	Runtime string // execution strategy, e.g. "wasmtime"

	// Setup builds the execution context outside the timed region.
	Setup func(ctx context.Context) (Invoker, error)
}

// Options control warm-up and sampling.
type Options struct {
	WarmUp          time.Duration `json:"warm_up"`
	Samples         int           `json:"samples"`
	MeasurementTime time.Duration `json:"measurement_time"`
	Filter          string        `json:"filter,omitempty"` // Go regex matched against Benchmark.Name
}

// DefaultOptions returns a 3s warm-up and 100 samples over 5s.
func DefaultOptions() Options {
	return Options{
		WarmUp:          3 * time.Second,
		Samples:         100,
		MeasurementTime: 5 * time.Second,
	}
}

// Validate reports whether the options can drive a run.
func (o Options) Validate() error {
	if o.Samples < 1 {
		return fmt.Errorf("samples must be positive, got %d", o.Samples)
	}
	if o.MeasurementTime <= 0 {
		return fmt.Errorf("measurement time must be positive, got %s", o.MeasurementTime)
	}
	if o.WarmUp < 0 {
		return fmt.Errorf("warm-up must not be negative, got %s", o.WarmUp)
	}
	return nil
}

// BenchmarkResult holds the outcome of running a single benchmark.
type BenchmarkResult struct {
	Name    string `json:"name"`
	Group   string `json:"group"`
	Runtime string `json:"runtime"`

	Samples    []float64 `json:"samples_ns"` // per-op time of each sample
	BatchSize  int64     `json:"batch_size"` // invocations per sample
	Iterations int64     `json:"iterations"` // measured invocations

	// Per-op statistics in nanoseconds. They stay fractional since the
	// fastest cases take only a few nanoseconds per call.
	Mean         float64 `json:"mean_ns"`
	Median       float64 `json:"median_ns"`
	Min          float64 `json:"min_ns"`
	Max          float64 `json:"max_ns"`
	StdDev       float64 `json:"stddev_ns"`
	OpsPerSecond float64 `json:"ops_per_second"`
}

// NewInvoker adapts a pair of functions to an Invoker. closeFn may be nil.
func NewInvoker(invoke func(ctx context.Context) error, closeFn func() error) Invoker {
	return funcInvoker{invoke: invoke, close: closeFn}
}

type funcInvoker struct {
	invoke func(ctx context.Context) error
	close  func() error
}

func (f funcInvoker) Invoke(ctx context.Context) error { return f.invoke(ctx) }

func (f funcInvoker) Close() error {
	if f.close == nil {
		return nil
	}
	return f.close()
}
