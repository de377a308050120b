package wasm

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytecodealliance/wasmtime-go/v18"
)

// Wasmtime runs the module on wasmtime with Cranelift tuned for speed.
type Wasmtime struct {
	engine   *wasmtime.Engine
	store    *wasmtime.Store
	module   *wasmtime.Module
	instance *wasmtime.Instance
	memory   *wasmtime.Memory

	add     *wasmtime.Func
	reverse *wasmtime.Func
}

var _ Engine = (*Wasmtime)(nil)

// NewWasmtime compiles and instantiates bin on a fresh engine and store.
func NewWasmtime(bin []byte) (*Wasmtime, error) {
	cfg := wasmtime.NewConfig()
	cfg.SetStrategy(wasmtime.StrategyCranelift)
	cfg.SetCraneliftOptLevel(wasmtime.OptLevelSpeed)

	engine := wasmtime.NewEngineWithConfig(cfg)
	store := wasmtime.NewStore(engine)

	module, err := wasmtime.NewModule(engine, bin)
	if err != nil {
		store.Close()
		engine.Close()
		return nil, fmt.Errorf("wasmtime: compile: %w", err)
	}

	instance, err := wasmtime.NewInstance(store, module, []wasmtime.AsExtern{})
	if err != nil {
		module.Close()
		store.Close()
		engine.Close()
		return nil, fmt.Errorf("wasmtime: instantiate: %w", err)
	}

	w := &Wasmtime{
		engine:   engine,
		store:    store,
		module:   module,
		instance: instance,
		add:      instance.GetFunc(store, ExportAdd),
		reverse:  instance.GetFunc(store, ExportReverse),
	}
	if ext := instance.GetExport(store, ExportMemory); ext != nil {
		w.memory = ext.Memory()
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
		w.Close()
		return nil, fmt.Errorf("wasmtime: %w", errors.Join(missing...))
	}
	return w, nil
}

// Close releases the store, module and engine.
func (w *Wasmtime) Close() error {
	w.module.Close()
	w.store.Close()
	w.engine.Close()
	return nil
}

// Add calls the add export with a and b.
func (w *Wasmtime) Add(_ context.Context, a, b int32) (int32, error) {
	res, err := w.add.Call(w.store, a, b)
	if err != nil {
		return 0, fmt.Errorf("wasmtime: add: %w", err)
	}
	sum, ok := res.(int32)
	if !ok {
		return 0, fmt.Errorf("wasmtime: add: unexpected result %T", res)
	}
	return sum, nil
}

// WriteInput copies a 32-byte input into linear memory at InputOffset.
func (w *Wasmtime) WriteInput(_ context.Context, input []byte) error {
	if err := checkInput(input); err != nil {
		return err
	}
	data := w.memory.UnsafeData(w.store)
	if uint64(InputOffset)+uint64(len(input)) > uint64(len(data)) {
		return fmt.Errorf("wasmtime: write input: %w", ErrMemoryAccess)
	}
	copy(data[InputOffset:], input)
	return nil
}

// Reverse runs reverse_buff32 over the staged input, leaving the result
// at ResultOffset.
func (w *Wasmtime) Reverse(_ context.Context) error {
	if _, err := w.reverse.Call(w.store, int32(ResultOffset), int32(InputOffset), int32(Buff32Len)); err != nil {
		return fmt.Errorf("wasmtime: reverse_buff32: %w", err)
	}
	return nil
}

// ReadResult returns a copy of the 32 bytes at ResultOffset. The copy
// stays valid after the store is closed.
func (w *Wasmtime) ReadResult(_ context.Context) ([]byte, error) {
	data := w.memory.UnsafeData(w.store)
	end := uint64(ResultOffset) + uint64(Buff32Len)
	if end > uint64(len(data)) {
		return nil, fmt.Errorf("wasmtime: read result: %w", ErrMemoryAccess)
	}
	return append([]byte(nil), data[ResultOffset:end]...), nil
}

// ReverseBuff32 stages input, reverses it and reads the result back.
func (w *Wasmtime) ReverseBuff32(ctx context.Context, input []byte) ([]byte, error) {
	return reverseBuff32(ctx, w, input)
}

// MemorySize returns the current linear memory size in bytes.
func (w *Wasmtime) MemorySize() uint32 {
	return uint32(w.memory.DataSize(w.store))
}
