// Package report formats benchmark results into comparison tables, JSON,
// charts and Prometheus textfiles.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/feather-lang/vmbench/harness"
)

// ErrNoResults is returned when there is nothing to report.
var ErrNoResults = errors.New("no results to report")

// Group is the results of one workload in run order.
type Group struct {
	Name    string
	Results []harness.BenchmarkResult
	Fastest float64 // lowest positive mean in the group, ns/op
}

// Groups splits results by workload, keeping first-seen order.
func Groups(results []harness.BenchmarkResult) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, r := range results {
		i, ok := index[r.Group]
		if !ok {
			i = len(groups)
			index[r.Group] = i
			groups = append(groups, Group{Name: r.Group})
		}
		g := &groups[i]
		g.Results = append(g.Results, r)
		if r.Mean > 0 && (g.Fastest == 0 || r.Mean < g.Fastest) {
			g.Fastest = r.Mean
		}
	}
	return groups
}

// Slowdown returns r's mean relative to the fastest runtime of its group.
func (g Group) Slowdown(r harness.BenchmarkResult) float64 {
	if g.Fastest <= 0 || r.Mean <= 0 {
		return 1
	}
	return r.Mean / g.Fastest
}

// Generate writes a markdown comparison table per workload.
func Generate(w io.Writer, results []harness.BenchmarkResult) error {
	if len(results) == 0 {
		return ErrNoResults
	}

	fmt.Fprintln(w, "## Benchmark Results")

	for _, g := range Groups(results) {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "### %s\n", g.Name)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "| Runtime | Mean | Median | Std Dev "+
			"| Ops/sec | Iterations | Slowdown |")
		fmt.Fprintln(w, "|---------|------|--------|---------"+
			"|---------|------------|----------|")

		for _, r := range g.Results {
			fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %d | %.2fx |\n",
				r.Runtime,
				harness.FormatNanos(r.Mean),
				harness.FormatNanos(r.Median),
				harness.FormatNanos(r.StdDev),
				formatRate(r.OpsPerSecond),
				r.Iterations,
				g.Slowdown(r),
			)
		}
	}

	return nil
}

// GenerateJSON writes results as a JSON array to w. No results encode
// as an empty array.
func GenerateJSON(w io.Writer, results []harness.BenchmarkResult) error {
	if results == nil {
		results = []harness.BenchmarkResult{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(results)
}

func formatRate(ops float64) string {
	switch {
	case ops >= 1e9:
		return fmt.Sprintf("%.2fG", ops/1e9)
	case ops >= 1e6:
		return fmt.Sprintf("%.2fM", ops/1e6)
	case ops >= 1e3:
		return fmt.Sprintf("%.2fK", ops/1e3)
	default:
		return fmt.Sprintf("%.2f", ops)
	}
}
