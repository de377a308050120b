package suite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/feather-lang/vmbench"
)

// Check is the outcome of one workload input on one runtime.
type Check struct {
	Runtime  string
	Workload string
	Input    string
	Want     string
	Got      string
	Err      error
}

// OK reports whether the runtime produced the native result.
func (c Check) OK() bool {
	return c.Err == nil && c.Got == c.Want
}

// addInputs covers the fixed payload and the wraparound edges.
var addInputs = [][2]int32{
	{vmbench.AddLeft, vmbench.AddRight},
	{0, 0},
	{-1, 1},
	{math.MaxInt32, 1},
	{math.MinInt32, -1},
	{math.MinInt32, math.MinInt32},
}

func reverseInputs() [][]byte {
	descending := vmbench.ReversedBuff32()
	zeros := make([]byte, vmbench.Buff32Len)
	mixed := make([]byte, vmbench.Buff32Len)
	for i := range mixed {
		mixed[i] = byte(i*37 + 11)
	}
	return [][]byte{vmbench.Buff32(), descending, zeros, mixed}
}

// Verify runs both workloads on every runtime and compares each output
// with the native functions. It returns all checks; the error is non-nil
// if any runtime failed to open or any check did not pass.
func Verify(ctx context.Context, logger *slog.Logger) ([]Check, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var (
		checks []Check
		errs   []error
	)
	for _, spec := range runtimes {
		log := logger.With("runtime", spec.Name)
		rt, err := spec.Open(ctx)
		if err != nil {
			log.Error("open failed", "err", err)
			errs = append(errs, err)
			continue
		}

		got := verifyRuntime(ctx, spec.Name, rt)
		if err := rt.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", spec.Name, err))
		}

		failed := 0
		for _, c := range got {
			if !c.OK() {
				failed++
				log.Warn("check failed", "workload", c.Workload, "input", c.Input, "want", c.Want, "got", c.Got, "err", c.Err)
			}
		}
		if failed > 0 {
			errs = append(errs, fmt.Errorf("%w: %s failed %d of %d checks", ErrMismatch, spec.Name, failed, len(got)))
		}
		log.Info("verified", "checks", len(got), "failed", failed)
		checks = append(checks, got...)
	}
	return checks, errors.Join(errs...)
}

func verifyRuntime(ctx context.Context, name string, rt Runtime) []Check {
	var checks []Check
	for _, in := range addInputs {
		c := Check{
			Runtime:  name,
			Workload: GroupAdd,
			Input:    fmt.Sprintf("%d %d", in[0], in[1]),
			Want:     fmt.Sprint(vmbench.Add(in[0], in[1])),
		}
		sum, err := rt.Add(ctx, in[0], in[1])
		if err != nil {
			c.Err = err
		} else {
			c.Got = fmt.Sprint(sum)
		}
		checks = append(checks, c)
	}

	for _, in := range reverseInputs() {
		c := Check{
			Runtime:  name,
			Workload: GroupReverse,
			Input:    fmt.Sprintf("%x", in),
			Want:     fmt.Sprintf("%x", vmbench.ReverseBuff32(in)),
		}
		out, err := rt.ReverseBuff32(ctx, in)
		if err == nil {
			// reversing twice must give the input back
			var back []byte
			back, err = rt.ReverseBuff32(ctx, out)
			if err == nil && !bytes.Equal(back, in) {
				err = fmt.Errorf("%w: not an involution, got %x back", ErrMismatch, back)
			}
		}
		if err != nil {
			c.Err = err
		}
		c.Got = fmt.Sprintf("%x", out)
		checks = append(checks, c)
	}
	return checks
}
