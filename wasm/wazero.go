package wasm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Wazero runs the module on a wazero runtime.
type Wazero struct {
	tier    Tier
	runtime wazero.Runtime
	module  api.Module
	memory  api.Memory

	add     api.Function
	reverse api.Function

	// stacks reused by CallWithStack so the hot path does not allocate
	addStack     []uint64
	reverseStack []uint64
}

var _ Engine = (*Wazero)(nil)

// NewWazero compiles and instantiates bin on a fresh runtime using tier.
func NewWazero(ctx context.Context, bin []byte, tier Tier) (*Wazero, error) {
	var cfg wazero.RuntimeConfig
	switch tier {
	case TierCompiler:
		cfg = wazero.NewRuntimeConfigCompiler()
	case TierInterpreter:
		cfg = wazero.NewRuntimeConfigInterpreter()
	default:
		return nil, fmt.Errorf("wazero: unsupported %s", tier)
	}
	r := wazero.NewRuntimeWithConfig(ctx, cfg)

	compiled, err := r.CompileModule(ctx, bin)
	if err != nil {
		r.Close(ctx)
		return nil, fmt.Errorf("wazero %s: compile: %w", tier, err)
	}

	mod, err := r.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName("vmbench"))
	if err != nil {
		r.Close(ctx)
		return nil, fmt.Errorf("wazero %s: instantiate: %w", tier, err)
	}

	w := &Wazero{
		tier:         tier,
		runtime:      r,
		module:       mod,
		memory:       mod.Memory(),
		add:          mod.ExportedFunction(ExportAdd),
		reverse:      mod.ExportedFunction(ExportReverse),
		addStack:     make([]uint64, 2),
		reverseStack: make([]uint64, 3),
	}

	var missing []error
	if w.memory == nil {
		missing = append(missing, fmt.Errorf("%w: %s", ErrMissingExport, ExportMemory))
	}
	if w.add == nil {
		missing = append(missing, fmt.Errorf("%w: %s", ErrMissingExport, ExportAdd))
	}
	if w.reverse == nil {
		missing = append(missing, fmt.Errorf("%w: %s", ErrMissingExport, ExportReverse))
	}
	if len(missing) > 0 {
		r.Close(ctx)
		return nil, fmt.Errorf("wazero %s: %w", tier, errors.Join(missing...))
	}
	return w, nil
}

// Tier returns the execution tier the runtime was built with.
func (w *Wazero) Tier() Tier {
	return w.tier
}

// Close releases the module and the runtime.
func (w *Wazero) Close() error {
	ctx := context.Background()
	return errors.Join(w.module.Close(ctx), w.runtime.Close(ctx))
}

// Add calls the add export with a and b. The call reuses a preallocated
// stack, so Add is not safe for concurrent use.
func (w *Wazero) Add(ctx context.Context, a, b int32) (int32, error) {
	w.addStack[0] = api.EncodeI32(a)
	w.addStack[1] = api.EncodeI32(b)
	if err := w.add.CallWithStack(ctx, w.addStack); err != nil {
		return 0, fmt.Errorf("wazero %s: add: %w", w.tier, err)
	}
	return api.DecodeI32(w.addStack[0]), nil
}

// WriteInput copies a 32-byte input into linear memory at InputOffset.
func (w *Wazero) WriteInput(_ context.Context, input []byte) error {
	if err := checkInput(input); err != nil {
		return err
	}
	if !w.memory.Write(InputOffset, input) {
		return fmt.Errorf("wazero %s: write input: %w", w.tier, ErrMemoryAccess)
	}
	return nil
}

// Reverse runs reverse_buff32 over the staged input, leaving the result
// at ResultOffset.
func (w *Wazero) Reverse(ctx context.Context) error {
	w.reverseStack[0] = api.EncodeU32(ResultOffset)
	w.reverseStack[1] = api.EncodeU32(InputOffset)
	w.reverseStack[2] = api.EncodeU32(Buff32Len)
	if err := w.reverse.CallWithStack(ctx, w.reverseStack); err != nil {
		return fmt.Errorf("wazero %s: reverse_buff32: %w", w.tier, err)
	}
	return nil
}

// ReadResult returns a copy of the 32 bytes at ResultOffset.
func (w *Wazero) ReadResult(_ context.Context) ([]byte, error) {
	// Read returns a view into linear memory.
	view, ok := w.memory.Read(ResultOffset, Buff32Len)
	if !ok {
		return nil, fmt.Errorf("wazero %s: read result: %w", w.tier, ErrMemoryAccess)
	}
	return append([]byte(nil), view...), nil
}

// ReverseBuff32 stages input, reverses it and reads the result back.
func (w *Wazero) ReverseBuff32(ctx context.Context, input []byte) ([]byte, error) {
	return reverseBuff32(ctx, w, input)
}

// MemorySize returns the current linear memory size in bytes.
func (w *Wazero) MemorySize() uint32 {
	return w.memory.Size()
}
