package harness

import (
	"fmt"
	"io"
	"math"
	"time"
)

// BenchmarkReporter handles plain-text reporting of benchmark results.
type BenchmarkReporter struct {
	output io.Writer
}

// NewBenchmarkReporter creates a new benchmark reporter.
func NewBenchmarkReporter(output io.Writer) *BenchmarkReporter {
	return &BenchmarkReporter{output: output}
}

// ReportSuite reports every result followed by a summary. runErr is the
// error that stopped the run, if any.
func (r *BenchmarkReporter) ReportSuite(results []BenchmarkResult, runErr error) {
	for _, result := range results {
		r.ReportResult(result)
	}
	r.ReportSummary(len(results), runErr)
}

// ReportSummary reports how many benchmarks completed and why the run
// stopped early, if it did.
func (r *BenchmarkReporter) ReportSummary(completed int, runErr error) {
	fmt.Fprintf(r.output, "--- Summary ---\n")
	fmt.Fprintf(r.output, "Completed: %d\n", completed)
	if runErr != nil {
		fmt.Fprintf(r.output, "FAIL: %v\n", runErr)
	}
}

// ReportResult reports a single benchmark result.
func (r *BenchmarkReporter) ReportResult(result BenchmarkResult) {
	fmt.Fprintf(r.output, "%s\n", result.Name)
	fmt.Fprintf(r.output, "  time:       [%s %s %s]\n",
		FormatNanos(result.Min), FormatNanos(result.Mean), FormatNanos(result.Max))
	fmt.Fprintf(r.output, "  median:     %s/op\n", FormatNanos(result.Median))
	fmt.Fprintf(r.output, "  std dev:    %s\n", FormatNanos(result.StdDev))
	fmt.Fprintf(r.output, "  iterations: %d (%d samples x %d)\n", result.Iterations, len(result.Samples), result.BatchSize)
	fmt.Fprintf(r.output, "  ops/sec:    %.2f\n\n", result.OpsPerSecond)
}

// FormatNanos formats a per-op time given in nanoseconds. Times below a
// microsecond keep two decimals.
func FormatNanos(ns float64) string {
	if ns < 1000 {
		return fmt.Sprintf("%.2fns", ns)
	}
	return FormatDuration(time.Duration(math.Round(ns)))
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	if d < time.Microsecond {
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
	if d < time.Millisecond {
		return fmt.Sprintf("%.2fµs", float64(d.Nanoseconds())/1000.0)
	}
	if d < time.Second {
		return fmt.Sprintf("%.2fms", float64(d.Nanoseconds())/1000000.0)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

