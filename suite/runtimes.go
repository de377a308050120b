// Package suite wires the workloads to every execution strategy: the
// benchmark table, the runtime adapters and the cross-runtime check.
package suite

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/feather-lang/vmbench"
	"github.com/feather-lang/vmbench/contract"
	"github.com/feather-lang/vmbench/wasm"
)

// Runtime names.
const (
	RuntimeContract          = "contract"
	RuntimeWazeroCompiler    = "wazero-compiler"
	RuntimeWazeroInterpreter = "wazero-interpreter"
	RuntimeWasmtime          = "wasmtime"
	RuntimeNative            = "native"
)

// Workload groups.
const (
	GroupAdd     = "add"
	GroupReverse = "reverse"
)

var (
	ErrUnknownRuntime = errors.New("unknown runtime")
	ErrMismatch       = errors.New("output mismatch")
)

// Runtime runs both workloads on one execution strategy.
type Runtime interface {
	Add(ctx context.Context, a, b int32) (int32, error)
	ReverseBuff32(ctx context.Context, input []byte) ([]byte, error)
	Close() error
}

// RuntimeSpec describes how to build a Runtime.
type RuntimeSpec struct {
	Name        string
	Description string
	open        func(ctx context.Context) (runtime, error)
}

// runtime is a Runtime that can also prepare the timed hot paths.
type runtime interface {
	Runtime
	// addInvoke returns one call of add(a, b).
	addInvoke(a, b int32) func(ctx context.Context) error
	// reverseInvoke stages input and returns one call of the reversal.
	reverseInvoke(ctx context.Context, input []byte) (func(ctx context.Context) error, error)
}

// Results of the timed paths land here so the calls cannot be elided.
var (
	addSink    int32
	bufferSink []byte
	textSink   string
)

var runtimes = []RuntimeSpec{
	{
		Name:        RuntimeContract,
		Description: "contract interpreter with the suite contracts deployed",
		open:        openContract,
	},
	{
		Name:        RuntimeWazeroCompiler,
		Description: "wazero, compiler tier",
		open: func(ctx context.Context) (runtime, error) {
			return openWazero(ctx, wasm.TierCompiler)
		},
	},
	{
		Name:        RuntimeWazeroInterpreter,
		Description: "wazero, interpreter tier",
		open: func(ctx context.Context) (runtime, error) {
			return openWazero(ctx, wasm.TierInterpreter)
		},
	},
	{
		Name:        RuntimeWasmtime,
		Description: "wasmtime, Cranelift at speed",
		open:        openWasmtime,
	},
	{
		Name:        RuntimeNative,
		Description: "compiled Go functions",
		open: func(context.Context) (runtime, error) {
			return nativeRuntime{}, nil
		},
	},
}

// Runtimes returns every execution strategy in report order.
func Runtimes() []RuntimeSpec {
	out := make([]RuntimeSpec, len(runtimes))
	copy(out, runtimes)
	return out
}

// Open builds the named runtime. Close it when done.
func Open(ctx context.Context, name string) (Runtime, error) {
	for _, spec := range runtimes {
		if spec.Name == name {
			return spec.Open(ctx)
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownRuntime, name)
}

// Open builds the runtime described by spec.
func (spec RuntimeSpec) Open(ctx context.Context) (Runtime, error) {
	rt, err := spec.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", spec.Name, err)
	}
	return rt, nil
}

// NewContractSession returns a session with the suite contracts deployed.
func NewContractSession(opts ...contract.Option) (*contract.Session, error) {
	s := contract.NewSession(opts...)
	for _, c := range []contract.Contract{
		{Name: vmbench.AddContract, Deployer: vmbench.Principal, Source: vmbench.AddSource()},
		{Name: vmbench.ReverseContract, Deployer: vmbench.Principal, Source: vmbench.ReverseSource()},
	} {
		if err := s.Deploy(c); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

type nativeRuntime struct{}

func (nativeRuntime) Add(_ context.Context, a, b int32) (int32, error) {
	return vmbench.Add(a, b), nil
}

func (nativeRuntime) ReverseBuff32(_ context.Context, input []byte) ([]byte, error) {
	return vmbench.ReverseBuff32(input), nil
}

func (nativeRuntime) Close() error { return nil }

func (nativeRuntime) addInvoke(a, b int32) func(context.Context) error {
	return func(context.Context) error {
		addSink = vmbench.Add(a, b)
		return nil
	}
}

func (nativeRuntime) reverseInvoke(_ context.Context, input []byte) (func(context.Context) error, error) {
	return func(context.Context) error {
		bufferSink = vmbench.ReverseBuff32(input)
		return nil
	}, nil
}

type contractRuntime struct {
	session *contract.Session
}

func openContract(context.Context) (runtime, error) {
	s, err := NewContractSession()
	if err != nil {
		return nil, err
	}
	return &contractRuntime{session: s}, nil
}

// Add narrows the interpreter's 64-bit result to int32.
func (c *contractRuntime) Add(_ context.Context, a, b int32) (int32, error) {
	out, err := c.session.Eval(vmbench.AddCall(a, b))
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(out, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("add returned %q: %w", out, err)
	}
	return int32(n), nil
}

func (c *contractRuntime) ReverseBuff32(_ context.Context, input []byte) ([]byte, error) {
	out, err := c.session.Eval(vmbench.ReverseCall(input))
	if err != nil {
		return nil, err
	}
	b, err := hexutil.Decode(out)
	if err != nil {
		return nil, fmt.Errorf("reverse-buff32 returned %q: %w", out, err)
	}
	return b, nil
}

func (c *contractRuntime) Close() error {
	c.session.Close()
	return nil
}

func (c *contractRuntime) addInvoke(a, b int32) func(context.Context) error {
	return c.evalInvoke(vmbench.AddCall(a, b))
}

func (c *contractRuntime) reverseInvoke(_ context.Context, input []byte) (func(context.Context) error, error) {
	return c.evalInvoke(vmbench.ReverseCall(input)), nil
}

// evalInvoke evaluates the same expression text on every call.
func (c *contractRuntime) evalInvoke(expr string) func(context.Context) error {
	return func(context.Context) error {
		out, err := c.session.Eval(expr)
		textSink = out
		return err
	}
}

type engineRuntime struct {
	wasm.Engine
}

func openWazero(ctx context.Context, tier wasm.Tier) (runtime, error) {
	bin, err := wasm.Binary()
	if err != nil {
		return nil, err
	}
	e, err := wasm.NewWazero(ctx, bin, tier)
	if err != nil {
		return nil, err
	}
	return engineRuntime{e}, nil
}

func openWasmtime(context.Context) (runtime, error) {
	bin, err := wasm.Binary()
	if err != nil {
		return nil, err
	}
	e, err := wasm.NewWasmtime(bin)
	if err != nil {
		return nil, err
	}
	return engineRuntime{e}, nil
}

func (e engineRuntime) addInvoke(a, b int32) func(context.Context) error {
	return func(ctx context.Context) error {
		sum, err := e.Engine.Add(ctx, a, b)
		addSink = sum
		return err
	}
}

// reverseInvoke writes input to linear memory once; each call only runs
// reverse_buff32 over it.
func (e engineRuntime) reverseInvoke(ctx context.Context, input []byte) (func(context.Context) error, error) {
	if err := e.Engine.WriteInput(ctx, input); err != nil {
		return nil, err
	}
	return e.Engine.Reverse, nil
}
