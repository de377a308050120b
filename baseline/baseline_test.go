package baseline

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feather-lang/vmbench/harness"
)

func res(name string, mean float64) harness.BenchmarkResult {
	return harness.BenchmarkResult{Name: name, Mean: mean}
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "baselines")
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())

	names, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, names)

	run := Run{
		Name:      "main",
		Timestamp: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		Options:   harness.DefaultOptions(),
		Results:   []harness.BenchmarkResult{res("add: native", 2.25)},
	}
	require.NoError(t, store.Save(run))
	require.NoError(t, store.Save(Run{Name: "feature-x", Results: []harness.BenchmarkResult{res("add: native", 3)}}))

	loaded, err := store.Load("main")
	require.NoError(t, err)
	assert.Equal(t, run.Name, loaded.Name)
	assert.True(t, run.Timestamp.Equal(loaded.Timestamp))
	assert.Equal(t, run.Options, loaded.Options)
	assert.Equal(t, run.Results[0].Mean, loaded.Results[0].Mean)

	// saving again replaces the run
	run.Results[0].Mean = 4.5
	require.NoError(t, store.Save(run))
	loaded, err = store.Load("main")
	require.NoError(t, err)
	assert.InDelta(t, 4.5, loaded.Results[0].Mean, 1e-9)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))
	names, err = store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"feature-x", "main"}, names)
}

func TestFileStoreErrors(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	for _, name := range []string{"", "../escape", "a/b", ".hidden", "x.json"} {
		assert.ErrorIs(t, store.Save(Run{Name: name}), ErrInvalidName, name)
	}

	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "broken.json"), []byte("{"), 0o644))
	_, err = store.Load("broken")
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	prev := Run{Results: []harness.BenchmarkResult{
		res("add: contract", 1000),
		res("add: wasmtime", 100),
		res("add: native", 10),
		res("reverse: native", 50),
	}}
	curr := Run{Results: []harness.BenchmarkResult{
		res("add: contract", 1200), // 20% slower
		res("add: wasmtime", 80),   // 20% faster
		res("add: native", 10),
		res("reverse: wasmtime", 70), // new
	}}

	comps := Compare(prev, curr, DefaultThreshold)
	require.Len(t, comps, 3)

	assert.Equal(t, "add: contract", comps[0].Name)
	assert.InDelta(t, 20.0, comps[0].MeanDiff, 0.01)
	assert.Equal(t, Regressed, comps[0].Verdict)

	assert.InDelta(t, -20.0, comps[1].MeanDiff, 0.01)
	assert.Equal(t, Improved, comps[1].Verdict)

	assert.Zero(t, comps[2].MeanDiff)
	assert.Equal(t, Unchanged, comps[2].Verdict)

	regressions := Regressions(comps)
	require.Len(t, regressions, 1)
	assert.Equal(t, "add: contract: +20.00% mean (regressed)", regressions[0].String())

	// a looser threshold treats the same change as noise
	assert.Empty(t, Regressions(Compare(prev, curr, 25)))
}

func TestFprint(t *testing.T) {
	var buf bytes.Buffer
	Fprint(&buf, "main", Compare(
		Run{Results: []harness.BenchmarkResult{res("add: native", 10)}},
		Run{Results: []harness.BenchmarkResult{res("add: native", 12)}},
		DefaultThreshold,
	))
	assert.Contains(t, buf.String(), "Compared with main")
	assert.Contains(t, buf.String(), "add: native")
	assert.Contains(t, buf.String(), "10.00ns -> 12.00ns")
	assert.Contains(t, buf.String(), "+20.00%")
	assert.Contains(t, buf.String(), "regressed")
}
