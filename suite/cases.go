package suite

import (
	"bytes"
	"context"
	"fmt"

	"github.com/feather-lang/vmbench"
	"github.com/feather-lang/vmbench/harness"
)

// workload is one measured function with its fixed payload.
type workload struct {
	group string
	// check runs the workload once through the Runtime API and compares it
	// with the native result.
	check func(ctx context.Context, rt Runtime) error
	// prepare returns the timed call.
	prepare func(ctx context.Context, rt runtime) (func(context.Context) error, error)
}

var workloads = []workload{
	{
		group: GroupAdd,
		check: checkAdd,
		prepare: func(_ context.Context, rt runtime) (func(context.Context) error, error) {
			return rt.addInvoke(vmbench.AddLeft, vmbench.AddRight), nil
		},
	},
	{
		group: GroupReverse,
		check: checkReverse,
		prepare: func(ctx context.Context, rt runtime) (func(context.Context) error, error) {
			return rt.reverseInvoke(ctx, vmbench.Buff32())
		},
	},
}

// Benchmarks returns one case per workload and runtime, named
// "<group>: <runtime>".
func Benchmarks() []harness.Benchmark {
	var out []harness.Benchmark
	for _, w := range workloads {
		for _, spec := range runtimes {
			out = append(out, harness.Benchmark{
				Name:    w.group + ": " + spec.Name,
				Group:   w.group,
				Runtime: spec.Name,
				Setup:   setup(w, spec),
			})
		}
	}
	return out
}

// setup opens the runtime, checks its output, prepares the timed call and
// runs it once. The runtime is closed on any failure.
func setup(w workload, spec RuntimeSpec) func(ctx context.Context) (harness.Invoker, error) {
	return func(ctx context.Context) (_ harness.Invoker, err error) {
		rt, err := spec.open(ctx)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", spec.Name, err)
		}
		defer func() {
			if err != nil {
				rt.Close()
			}
		}()

		if err := w.check(ctx, rt); err != nil {
			return nil, err
		}
		invoke, err := w.prepare(ctx, rt)
		if err != nil {
			return nil, fmt.Errorf("prepare %s: %w", w.group, err)
		}
		if err := invoke(ctx); err != nil {
			return nil, fmt.Errorf("warm-up %s: %w", w.group, err)
		}
		return harness.NewInvoker(invoke, rt.Close), nil
	}
}

func checkAdd(ctx context.Context, rt Runtime) error {
	want := vmbench.Add(vmbench.AddLeft, vmbench.AddRight)
	got, err := rt.Add(ctx, vmbench.AddLeft, vmbench.AddRight)
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}
	if got != want {
		return fmt.Errorf("%w: add(%d, %d) = %d, want %d", ErrMismatch, vmbench.AddLeft, vmbench.AddRight, got, want)
	}
	return nil
}

func checkReverse(ctx context.Context, rt Runtime) error {
	input := vmbench.Buff32()
	want := vmbench.ReverseBuff32(input)
	got, err := rt.ReverseBuff32(ctx, input)
	if err != nil {
		return fmt.Errorf("reverse: %w", err)
	}
	if !bytes.Equal(got, want) {
		return fmt.Errorf("%w: reverse = %x, want %x", ErrMismatch, got, want)
	}
	return nil
}
