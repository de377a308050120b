// Package baseline persists benchmark runs and compares them.
package baseline

import (
	"time"

	"github.com/feather-lang/vmbench/harness"
)

// Run represents the results of a single execution of the suite.
type Run struct {
	Name      string                    `json:"name"`
	Timestamp time.Time                 `json:"timestamp"`
	Options   harness.Options           `json:"options"`
	Results   []harness.BenchmarkResult `json:"results"`
}
