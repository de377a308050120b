package baseline

import (
	"fmt"
	"io"

	"github.com/feather-lang/vmbench/harness"
)

// DefaultThreshold is the change in percent treated as noise.
const DefaultThreshold = 5.0

// Verdict classifies a change in mean time per call.
type Verdict int

const (
	Unchanged Verdict = iota
	Improved
	Regressed
)

func (v Verdict) String() string {
	switch v {
	case Improved:
		return "improved"
	case Regressed:
		return "regressed"
	default:
		return "unchanged"
	}
}

type Comparison struct {
	Name     string
	Prev     harness.BenchmarkResult
	Curr     harness.BenchmarkResult
	MeanDiff float64 // Percentage change
	Verdict  Verdict
}

// Compare matches benchmarks present in both runs by name and classifies
// the change of their mean against threshold percent. Results keep the
// order of curr.
func Compare(prev, curr Run, threshold float64) []Comparison {
	prevMap := make(map[string]harness.BenchmarkResult)
	for _, r := range prev.Results {
		prevMap[r.Name] = r
	}

	var comparisons []Comparison
	for _, c := range curr.Results {
		p, ok := prevMap[c.Name]
		if !ok {
			continue
		}
		comp := Comparison{Name: c.Name, Prev: p, Curr: c}
		if p.Mean > 0 {
			comp.MeanDiff = (c.Mean - p.Mean) / p.Mean * 100
		}
		switch {
		case comp.MeanDiff > threshold:
			comp.Verdict = Regressed
		case comp.MeanDiff < -threshold:
			comp.Verdict = Improved
		}
		comparisons = append(comparisons, comp)
	}
	return comparisons
}

// Regressions returns the comparisons that got slower.
func Regressions(comparisons []Comparison) []Comparison {
	var out []Comparison
	for _, c := range comparisons {
		if c.Verdict == Regressed {
			out = append(out, c)
		}
	}
	return out
}

func (c Comparison) String() string {
	return fmt.Sprintf("%s: %+.2f%% mean (%s)", c.Name, c.MeanDiff, c.Verdict)
}

// Fprint writes one line per comparison.
func Fprint(w io.Writer, baseline string, comparisons []Comparison) {
	fmt.Fprintf(w, "--- Compared with %s ---\n", baseline)
	for _, c := range comparisons {
		fmt.Fprintf(w, "%-30s %10s -> %-10s %+7.2f%%  %s\n",
			c.Name,
			harness.FormatNanos(c.Prev.Mean),
			harness.FormatNanos(c.Curr.Mean),
			c.MeanDiff,
			c.Verdict,
		)
	}
}

