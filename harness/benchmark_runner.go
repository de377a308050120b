package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// maxBatch bounds the calibrated batch size.
const maxBatch = 1 << 30

// now is the clock batches are timed with.
var now = time.Now

// BenchmarkRunner executes benchmarks one after another.
type BenchmarkRunner struct {
	Options Options
	Plan    *Plan // optional per-benchmark overrides
	Logger  *slog.Logger

	// OnResult, if set, is called after each benchmark completes.
	OnResult func(BenchmarkResult)
}

// NewBenchmarkRunner creates a runner with the given options.
func NewBenchmarkRunner(opts Options, logger *slog.Logger) *BenchmarkRunner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &BenchmarkRunner{Options: opts, Logger: logger}
}

// RunSuite runs every benchmark in order. It stops at the first error and
// returns it along with the results gathered so far.
func (r *BenchmarkRunner) RunSuite(ctx context.Context, benchmarks []Benchmark) ([]BenchmarkResult, error) {
	if len(benchmarks) == 0 {
		return nil, ErrNoBenchmarks
	}
	results := make([]BenchmarkResult, 0, len(benchmarks))
	for _, b := range benchmarks {
		res, err := r.Run(ctx, b)
		if err != nil {
			return results, err
		}
		results = append(results, res)
		if r.OnResult != nil {
			r.OnResult(res)
		}
	}
	return results, nil
}

// Run sets up, measures and tears down a single benchmark.
func (r *BenchmarkRunner) Run(ctx context.Context, b Benchmark) (res BenchmarkResult, err error) {
	opts := r.Options
	if r.Plan != nil {
		opts = r.Plan.OptionsFor(b, opts)
	}
	if err := opts.Validate(); err != nil {
		return res, fmt.Errorf("%s: %w", b.Name, err)
	}
	if b.Setup == nil {
		return res, fmt.Errorf("%s: no setup function", b.Name)
	}

	log := r.Logger.With("benchmark", b.Name)
	log.Debug("setting up")

	inv, err := b.Setup(ctx)
	if err != nil {
		return res, fmt.Errorf("%s: setup: %w", b.Name, err)
	}
	defer func() {
		if cerr := inv.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("%s: close: %w", b.Name, cerr))
		}
	}()

	batch, err := warmUp(ctx, inv, opts)
	if err != nil {
		return res, fmt.Errorf("%s: warm-up: %w", b.Name, err)
	}
	log.Debug("warmed up", "batch", batch, "warm_up", opts.WarmUp)

	samples := make([]float64, 0, opts.Samples)
	for range opts.Samples {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("%s: %w", b.Name, err)
		}
		d, err := measureBatch(ctx, inv, batch)
		if err != nil {
			return res, fmt.Errorf("%s: %w", b.Name, err)
		}
		samples = append(samples, float64(d)/float64(batch))
	}

	s := summarize(samples)
	res = BenchmarkResult{
		Name:         b.Name,
		Group:        b.Group,
		Runtime:      b.Runtime,
		Samples:      samples,
		BatchSize:    batch,
		Iterations:   batch * int64(len(samples)),
		Mean:         s.Mean,
		Median:       s.Median,
		Min:          s.Min,
		Max:          s.Max,
		StdDev:       s.StdDev,
		OpsPerSecond: s.OpsPerSecond,
	}
	log.Info("finished",
		"mean", FormatNanos(res.Mean),
		"stddev", FormatNanos(res.StdDev),
		"iterations", res.Iterations,
	)
	return res, nil
}

// warmUp runs the invoker for opts.WarmUp, doubling the batch each round
// but never past the estimated remaining warm-up time, and returns a batch
// size whose run time is about opts.MeasurementTime / opts.Samples.
func warmUp(ctx context.Context, inv Invoker, opts Options) (int64, error) {
	var (
		batch   int64 = 1
		iters   int64
		elapsed time.Duration
	)
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		d, err := measureBatch(ctx, inv, batch)
		if err != nil {
			return 0, err
		}
		iters += batch
		elapsed += d
		if elapsed >= opts.WarmUp {
			break
		}
		next := min(batch*2, maxBatch)
		if perOp := float64(elapsed) / float64(iters); perOp > 0 {
			left := math.Ceil(float64(opts.WarmUp-elapsed) / perOp)
			next = max(1, min(next, int64(left)))
		}
		batch = next
	}

	target := opts.MeasurementTime / time.Duration(opts.Samples)
	perOp := float64(elapsed) / float64(iters)
	if perOp <= 0 {
		return maxBatch, nil
	}
	n := math.Ceil(float64(target) / perOp)
	return int64(max(1, min(n, maxBatch))), nil
}

func measureBatch(ctx context.Context, inv Invoker, n int64) (time.Duration, error) {
	start := now()
	for range n {
		if err := inv.Invoke(ctx); err != nil {
			return 0, err
		}
	}
	return now().Sub(start), nil
}
