package harness

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quick = Options{
	WarmUp:          time.Millisecond,
	Samples:         5,
	MeasurementTime: 5 * time.Millisecond,
}

type countingInvoker struct {
	calls  int64
	failAt int64
	closed bool
}

func (c *countingInvoker) Invoke(context.Context) error {
	c.calls++
	if c.failAt > 0 && c.calls >= c.failAt {
		return errors.New("trap")
	}
	return nil
}

func (c *countingInvoker) Close() error {
	c.closed = true
	return nil
}

// fakeClock replaces the runner's clock for the duration of a test.
type fakeClock struct{ t time.Time }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func useFakeClock(t *testing.T) *fakeClock {
	t.Helper()
	c := &fakeClock{t: time.Unix(0, 0)}
	prev := now
	now = func() time.Time { return c.t }
	t.Cleanup(func() { now = prev })
	return c
}

func bench(group, runtime string, inv Invoker) Benchmark {
	return Benchmark{
		Name:    group + ": " + runtime,
		Group:   group,
		Runtime: runtime,
		Setup: func(context.Context) (Invoker, error) {
			return inv, nil
		},
	}
}

func TestRunSuite(t *testing.T) {
	a, b := &countingInvoker{}, &countingInvoker{}
	r := NewBenchmarkRunner(quick, nil)

	var seen []string
	r.OnResult = func(res BenchmarkResult) { seen = append(seen, res.Name) }

	results, err := r.RunSuite(context.Background(), []Benchmark{
		bench("add", "native", a),
		bench("add", "wasmtime", b),
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, []string{"add: native", "add: wasmtime"}, seen)

	res := results[0]
	assert.Equal(t, "add", res.Group)
	assert.Equal(t, "native", res.Runtime)
	assert.Len(t, res.Samples, quick.Samples)
	assert.GreaterOrEqual(t, res.BatchSize, int64(1))
	assert.Equal(t, res.BatchSize*int64(quick.Samples), res.Iterations)
	assert.LessOrEqual(t, res.Min, res.Median)
	assert.LessOrEqual(t, res.Median, res.Max)
	assert.GreaterOrEqual(t, a.calls, res.Iterations)

	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestRunSuiteStopsAtFirstError(t *testing.T) {
	ok := &countingInvoker{}
	failing := &countingInvoker{failAt: 3}
	never := &countingInvoker{}

	results, err := NewBenchmarkRunner(quick, nil).RunSuite(context.Background(), []Benchmark{
		bench("reverse", "native", ok),
		bench("reverse", "contract", failing),
		bench("reverse", "wasmtime", never),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reverse: contract")
	assert.Contains(t, err.Error(), "trap")
	assert.Len(t, results, 1)
	assert.True(t, failing.closed)
	assert.Zero(t, never.calls)
}

func TestSetupErrorIsFatal(t *testing.T) {
	setupErr := errors.New("compile failed")
	b := Benchmark{
		Name: "add: wazero-compiler",
		Setup: func(context.Context) (Invoker, error) {
			return nil, setupErr
		},
	}
	_, err := NewBenchmarkRunner(quick, nil).RunSuite(context.Background(), []Benchmark{b})
	assert.ErrorIs(t, err, setupErr)
}

func TestCloseErrorIsReported(t *testing.T) {
	closeErr := errors.New("still in use")
	b := Benchmark{
		Name: "add: native",
		Setup: func(context.Context) (Invoker, error) {
			return NewInvoker(func(context.Context) error { return nil }, func() error { return closeErr }), nil
		},
	}
	_, err := NewBenchmarkRunner(quick, nil).Run(context.Background(), b)
	assert.ErrorIs(t, err, closeErr)
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inv := &countingInvoker{}
	_, err := NewBenchmarkRunner(quick, nil).Run(ctx, bench("add", "native", inv))
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, inv.closed)
}

func TestRunSuiteEmpty(t *testing.T) {
	_, err := NewBenchmarkRunner(quick, nil).RunSuite(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoBenchmarks)
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())
	assert.NoError(t, quick.Validate())

	tests := []struct {
		name string
		opts Options
	}{
		{"no samples", Options{Samples: 0, MeasurementTime: time.Second}},
		{"no measurement time", Options{Samples: 10}},
		{"negative warm-up", Options{Samples: 10, MeasurementTime: time.Second, WarmUp: -time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.opts.Validate())
		})
	}
}

func TestWarmUpCalibratesBatch(t *testing.T) {
	slow := NewInvoker(func(context.Context) error {
		time.Sleep(200 * time.Microsecond)
		return nil
	}, nil)
	opts := Options{WarmUp: time.Millisecond, Samples: 2, MeasurementTime: 2 * time.Millisecond}

	batch, err := warmUp(context.Background(), slow, opts)
	require.NoError(t, err)
	// one op takes at least 200µs and the per-sample target is 1ms
	assert.GreaterOrEqual(t, batch, int64(1))
	assert.LessOrEqual(t, batch, int64(5))
}

func TestSamplesKeepFractionalNanoseconds(t *testing.T) {
	clock := useFakeClock(t)

	// 5ns every second call: 2.5ns per op
	var calls int64
	inv := NewInvoker(func(context.Context) error {
		calls++
		if calls%2 == 0 {
			clock.advance(5 * time.Nanosecond)
		}
		return nil
	}, nil)
	opts := Options{WarmUp: time.Microsecond, Samples: 5, MeasurementTime: 100 * time.Microsecond}

	res, err := NewBenchmarkRunner(opts, nil).Run(context.Background(), bench("add", "native", inv))
	require.NoError(t, err)
	require.Len(t, res.Samples, 5)
	for _, s := range res.Samples {
		assert.InDelta(t, 2.5, s, 0.01)
	}
	assert.InDelta(t, 2.5, res.Mean, 0.01)
	assert.InDelta(t, 2.5, res.Min, 0.01)
	assert.InDelta(t, 4e8, res.OpsPerSecond, 1e6)
}

func TestWarmUpStaysWithinBudget(t *testing.T) {
	clock := useFakeClock(t)

	var calls int64
	inv := NewInvoker(func(context.Context) error {
		calls++
		clock.advance(time.Microsecond)
		return nil
	}, nil)
	opts := Options{WarmUp: 100 * time.Microsecond, Samples: 10, MeasurementTime: 100 * time.Microsecond}

	batch, err := warmUp(context.Background(), inv, opts)
	require.NoError(t, err)
	// batches of 1, 2, 4, 8, 16, 32 and then the 37 still missing
	assert.Equal(t, int64(100), calls)
	assert.Equal(t, int64(10), batch)
}

func TestSelect(t *testing.T) {
	all := []Benchmark{
		bench("add", "contract", &countingInvoker{}),
		bench("add", "wasmtime", &countingInvoker{}),
		bench("reverse", "contract", &countingInvoker{}),
		bench("reverse", "wazero-compiler", &countingInvoker{}),
	}

	tests := []struct {
		pattern string
		want    []string
	}{
		{"", []string{"add: contract", "add: wasmtime", "reverse: contract", "reverse: wazero-compiler"}},
		{"^add:", []string{"add: contract", "add: wasmtime"}},
		{"contract$", []string{"add: contract", "reverse: contract"}},
		{"wazero", []string{"reverse: wazero-compiler"}},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := Names(all, tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Select(all, "native")
	assert.ErrorIs(t, err, ErrNoBenchmarks)

	_, err = Select(all, "(")
	assert.Error(t, err)
}

func TestRunWritesReport(t *testing.T) {
	var out bytes.Buffer
	results, err := Run(context.Background(), []Benchmark{
		bench("add", "native", &countingInvoker{}),
		bench("reverse", "native", &countingInvoker{}),
	}, Config{
		Options: Options{WarmUp: quick.WarmUp, Samples: quick.Samples, MeasurementTime: quick.MeasurementTime, Filter: "^add"},
		Output:  &out,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	report := out.String()
	assert.Contains(t, report, "add: native\n")
	assert.NotContains(t, report, "reverse")
	assert.Contains(t, report, "Completed: 1")
	assert.NotContains(t, report, "FAIL")
}

func TestReportSuiteFailure(t *testing.T) {
	var out bytes.Buffer
	NewBenchmarkReporter(&out).ReportSuite(nil, errors.New("reverse: contract: setup: boom"))
	assert.Contains(t, out.String(), "Completed: 0")
	assert.Contains(t, out.String(), "FAIL: reverse: contract: setup: boom")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{12 * time.Nanosecond, "12ns"},
		{1500 * time.Nanosecond, "1.50µs"},
		{2500 * time.Microsecond, "2.50ms"},
		{3 * time.Second, "3.00s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.d))
	}
}

func TestFormatNanos(t *testing.T) {
	assert.Equal(t, "0.38ns", FormatNanos(0.376))
	assert.Equal(t, "5.63ns", FormatNanos(5.629))
	assert.Equal(t, "999.50ns", FormatNanos(999.5))
	assert.Equal(t, "4.00µs", FormatNanos(4000.2))
}

func TestSummarize(t *testing.T) {
	samples := []float64{40, 10, 30, 20}
	s := summarize(samples)
	assert.InDelta(t, 25.0, s.Mean, 1e-9)
	assert.InDelta(t, 10.0, s.Min, 1e-9)
	assert.InDelta(t, 40.0, s.Max, 1e-9)
	assert.InDelta(t, 20.0, s.Median, 1e-9)
	// sample standard deviation of 10,20,30,40
	assert.InDelta(t, 12.91, s.StdDev, 0.01)
	assert.InDelta(t, 4e7, s.OpsPerSecond, 1)
	assert.Equal(t, []float64{40, 10, 30, 20}, samples)

	one := summarize([]float64{0.75})
	assert.InDelta(t, 0.75, one.Mean, 1e-9)
	assert.Zero(t, one.StdDev)
	assert.InDelta(t, 1e9/0.75, one.OpsPerSecond, 1)

	assert.Equal(t, summary{}, summarize(nil))
}

func TestParsePlan(t *testing.T) {
	const doc = `<benchmark-suite name="quick">
  <benchmark name="add" warmup="500ms" samples="20"/>
  <benchmark name="add: wasmtime" measurement="10s" samples="7"/>
</benchmark-suite>`

	p, err := ParsePlan(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "quick", p.Name)
	require.Len(t, p.Entries, 2)
	assert.Equal(t, PlanEntry{Name: "add", WarmUp: 500 * time.Millisecond, Samples: 20}, p.Entries[0])

	base := DefaultOptions()
	got := p.OptionsFor(Benchmark{Name: "add: wasmtime", Group: "add"}, base)
	assert.Equal(t, 500*time.Millisecond, got.WarmUp)
	assert.Equal(t, 7, got.Samples)
	assert.Equal(t, 10*time.Second, got.MeasurementTime)

	got = p.OptionsFor(Benchmark{Name: "add: native", Group: "add"}, base)
	assert.Equal(t, 20, got.Samples)
	assert.Equal(t, base.MeasurementTime, got.MeasurementTime)

	assert.Equal(t, base, p.OptionsFor(Benchmark{Name: "reverse: native", Group: "reverse"}, base))
}

func TestParsePlanErrors(t *testing.T) {
	for _, doc := range []string{
		`<benchmark-suite><benchmark name="add" warmup="soon"/></benchmark-suite>`,
		`<benchmark-suite><benchmark name="add" samples="0"/></benchmark-suite>`,
		`<benchmark-suite><benchmark samples="3"/></benchmark-suite>`,
	} {
		_, err := ParsePlan(strings.NewReader(doc))
		assert.Error(t, err, doc)
	}
}

func TestLoadPlans(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.html"),
		[]byte(`<benchmark-suite><benchmark name="add" samples="3"/></benchmark-suite>`), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "b.html"),
		[]byte(`<benchmark-suite><benchmark name="reverse" samples="4"/></benchmark-suite>`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	p, err := LoadPlans([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, "a", p.Name)
	require.Len(t, p.Entries, 2)
	assert.Equal(t, "add", p.Entries[0].Name)
	assert.Equal(t, "reverse", p.Entries[1].Name)

	_, err = LoadPlans([]string{filepath.Join(dir, "missing.html")})
	assert.Error(t, err)
}

func TestRunnerAppliesPlan(t *testing.T) {
	r := NewBenchmarkRunner(quick, nil)
	r.Plan = &Plan{Entries: []PlanEntry{{Name: "add", Samples: 2}}}

	res, err := r.Run(context.Background(), bench("add", "native", &countingInvoker{}))
	require.NoError(t, err)
	assert.Len(t, res.Samples, 2)
}
