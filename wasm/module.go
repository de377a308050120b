// Package wasm runs the suite's WebAssembly module on wazero and wasmtime.
//
// Both engines load the same binary, assembled from module.wat. The
// module exports its linear memory, add(i32, i32) i32 and
// reverse_buff32(ret, ptr, len), which copies len bytes from ptr to ret
// in reverse order.
package wasm

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"github.com/bytecodealliance/wasmtime-go/v18"
)

//go:embed module.wat
var moduleWAT string

// Export names.
const (
	ExportMemory  = "memory"
	ExportAdd     = "add"
	ExportReverse = "reverse_buff32"
)

// Linear memory layout used by the reversal workload.
const (
	InputOffset  uint32 = 0
	ResultOffset uint32 = 32
	Buff32Len    uint32 = 32
)

var (
	ErrMissingExport = errors.New("missing export")
	ErrMemoryAccess  = errors.New("memory access out of range")
	ErrInputSize     = errors.New("input must be 32 bytes")
)

var binary = sync.OnceValues(func() ([]byte, error) {
	bin, err := wasmtime.Wat2Wasm(moduleWAT)
	if err != nil {
		return nil, fmt.Errorf("assemble module.wat: %w", err)
	}
	return bin, nil
})

// Binary returns the assembled module. The result is shared; do not modify it.
func Binary() ([]byte, error) {
	return binary()
}

// Tier selects how an engine executes code.
type Tier int

const (
	// TierCompiler compiles functions to native code ahead of execution.
	TierCompiler Tier = iota
	// TierInterpreter interprets functions without native code generation.
	TierInterpreter
)

func (t Tier) String() string {
	switch t {
	case TierCompiler:
		return "compiler"
	case TierInterpreter:
		return "interpreter"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Engine is an instantiated module bound to its linear memory.
type Engine interface {
	// Add calls the add export.
	Add(ctx context.Context, a, b int32) (int32, error)
	// WriteInput stages a 32-byte input at InputOffset.
	WriteInput(ctx context.Context, input []byte) error
	// Reverse calls reverse_buff32 on the staged input, writing to ResultOffset.
	Reverse(ctx context.Context) error
	// ReadResult copies the 32 bytes at ResultOffset.
	ReadResult(ctx context.Context) ([]byte, error)
	// ReverseBuff32 stages input, reverses it and returns the result.
	ReverseBuff32(ctx context.Context, input []byte) ([]byte, error)
	Close() error
}

func checkInput(input []byte) error {
	if uint32(len(input)) != Buff32Len {
		return fmt.Errorf("%w: got %d", ErrInputSize, len(input))
	}
	return nil
}

func reverseBuff32(ctx context.Context, e Engine, input []byte) ([]byte, error) {
	if err := e.WriteInput(ctx, input); err != nil {
		return nil, err
	}
	if err := e.Reverse(ctx); err != nil {
		return nil, err
	}
	return e.ReadResult(ctx)
}
