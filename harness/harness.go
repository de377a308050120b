// Package harness measures prepared invocations with warm-up, batch
// calibration and sampling, and reports the results.
package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
)

// Config holds the configuration for a harness run.
type Config struct {
	Options Options
	Plan    *Plan
	Output  io.Writer // text report; nil disables it
	Logger  *slog.Logger
}

// matchesFilter returns true if name matches pattern.
// If no pattern is set, all names match.
func matchesFilter(re *regexp.Regexp, name string) bool {
	return re == nil || re.MatchString(name)
}

// Select returns the benchmarks whose name matches the Go regular
// expression pattern, preserving order.
func Select(benchmarks []Benchmark, pattern string) ([]Benchmark, error) {
	var re *regexp.Regexp
	if pattern != "" {
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid filter: %w", err)
		}
	}

	var selected []Benchmark
	for _, b := range benchmarks {
		if matchesFilter(re, b.Name) {
			selected = append(selected, b)
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w matching %q", ErrNoBenchmarks, pattern)
	}
	return selected, nil
}

// Names returns the benchmark names matching pattern.
func Names(benchmarks []Benchmark, pattern string) ([]string, error) {
	selected, err := Select(benchmarks, pattern)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(selected))
	for i, b := range selected {
		names[i] = b.Name
	}
	return names, nil
}

// Run selects benchmarks with cfg.Options.Filter, runs them and writes a
// text report to cfg.Output.
func Run(ctx context.Context, benchmarks []Benchmark, cfg Config) ([]BenchmarkResult, error) {
	selected, err := Select(benchmarks, cfg.Options.Filter)
	if err != nil {
		return nil, err
	}

	runner := NewBenchmarkRunner(cfg.Options, cfg.Logger)
	runner.Plan = cfg.Plan

	results, err := runner.RunSuite(ctx, selected)
	if cfg.Output != nil {
		NewBenchmarkReporter(cfg.Output).ReportSuite(results, err)
	}
	return results, err
}
