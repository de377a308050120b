package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feather-lang/vmbench/harness"
)

func result(group, runtime string, mean float64) harness.BenchmarkResult {
	return harness.BenchmarkResult{
		Name:         group + ": " + runtime,
		Group:        group,
		Runtime:      runtime,
		Samples:      []float64{mean, mean},
		BatchSize:    10,
		Iterations:   20,
		Mean:         mean,
		Median:       mean,
		Min:          mean,
		Max:          mean,
		OpsPerSecond: 1e9 / mean,
	}
}

func sampleResults() []harness.BenchmarkResult {
	return []harness.BenchmarkResult{
		result("add", "contract", 4000),
		result("add", "wasmtime", 40),
		result("add", "native", 2),
		result("reverse", "contract", 900000),
		result("reverse", "native", 30),
	}
}

func TestGroups(t *testing.T) {
	groups := Groups(sampleResults())
	require.Len(t, groups, 2)

	assert.Equal(t, "add", groups[0].Name)
	assert.Len(t, groups[0].Results, 3)
	assert.InDelta(t, 2.0, groups[0].Fastest, 1e-9)
	assert.InDelta(t, 2000.0, groups[0].Slowdown(groups[0].Results[0]), 1e-9)
	assert.InDelta(t, 1.0, groups[0].Slowdown(groups[0].Results[2]), 1e-9)

	assert.Equal(t, "reverse", groups[1].Name)
	assert.InDelta(t, 30.0, groups[1].Fastest, 1e-9)
}

func TestGroupsSubNanosecond(t *testing.T) {
	groups := Groups([]harness.BenchmarkResult{
		result("add", "wasmtime", 1.2),
		result("add", "native", 0.4),
	})
	require.Len(t, groups, 1)

	g := groups[0]
	assert.InDelta(t, 0.4, g.Fastest, 1e-9)
	assert.InDelta(t, 3.0, g.Slowdown(g.Results[0]), 1e-9)

	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, g.Results))
	assert.Contains(t, buf.String(), "| native | 0.40ns | 0.40ns | 0.00ns | 2.50G | 20 | 1.00x |")
}

func TestGenerate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, sampleResults()))

	output := buf.String()
	assert.Contains(t, output, "### add")
	assert.Contains(t, output, "### reverse")
	assert.Contains(t, output, "| contract | 4.00µs |")
	assert.Contains(t, output, "| 2000.00x |")
	assert.Contains(t, output, "| native | 2.00ns | 2.00ns | 0.00ns | 500.00M | 20 | 1.00x |")
	assert.Less(t, strings.Index(output, "### add"), strings.Index(output, "### reverse"))
}

func TestGenerateEmpty(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Generate(&buf, nil), ErrNoResults)
	assert.ErrorIs(t, GenerateChart(&buf, nil), ErrNoResults)
	assert.ErrorIs(t, WriteTextfile(filepath.Join(t.TempDir(), "x.prom"), nil), ErrNoResults)
}

func TestGenerateJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, GenerateJSON(&buf, sampleResults()))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 5)
	assert.Equal(t, "add: contract", decoded[0]["name"])
	assert.Equal(t, float64(4000), decoded[0]["mean_ns"])
}

func TestGenerateJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, GenerateJSON(&buf, nil))
	assert.JSONEq(t, "[]", buf.String())
}

func TestGenerateChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, GenerateChart(&buf, sampleResults()))

	output := buf.String()
	assert.Contains(t, output, "<html")
	assert.Contains(t, output, "echarts")
	assert.Contains(t, output, "wasmtime")
	assert.Contains(t, output, "reverse")
}

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vmbench.prom")
	require.NoError(t, WriteTextfile(path, sampleResults()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	output := string(data)

	assert.Contains(t, output, "# TYPE vmbench_ns_per_op gauge")
	assert.Contains(t, output, `vmbench_ns_per_op{group="add",runtime="wasmtime"} 40`)
	assert.Contains(t, output, `vmbench_ops_per_second{group="add",runtime="native"} 5e+08`)
	assert.Contains(t, output, `vmbench_iterations{group="reverse",runtime="contract"} 20`)
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "12.00", formatRate(12))
	assert.Equal(t, "1.50K", formatRate(1500))
	assert.Equal(t, "2.50M", formatRate(2.5e6))
	assert.Equal(t, "1.00G", formatRate(1e9))
}
