// Package contract hosts deployable contracts on an embedded feather
// interpreter.
//
// A contract is a script deployed by a principal under a name. Its
// procedures live in the namespace ::<principal>.<name>, and only the
// ones it declares with "public" can be reached from outside:
//
//	s := contract.NewSession()
//	defer s.Close()
//
//	err := s.Deploy(contract.Contract{
//	    Name:     "add",
//	    Deployer: "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM",
//	    Source:   "proc add {x y} { expr {$x + $y} }\npublic add",
//	})
//
//	v, err := s.Eval("contract-call? 'ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM.add add 1 2")
//	// v == "3"
package contract

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/feather-lang/feather"
)

var (
	ErrInvalidPrincipal = errors.New("invalid principal")
	ErrInvalidName      = errors.New("invalid contract name")
	ErrContractExists   = errors.New("contract already exists")
	ErrUnknownContract  = errors.New("use of unresolved contract")
	ErrNotPublic        = errors.New("no such public function")
	ErrNotDeploying     = errors.New("public used outside of a deployment")
)

var (
	// Standard principals use the c32 alphabet, which has no I, L, O or U.
	principalPattern    = regexp.MustCompile(`^S[0-9A-HJKMNP-TV-Z]{27,40}$`)
	contractNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]{0,39}$`)
	procedurePattern    = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_!?+<>=/*-]*$`)
)

// prelude is evaluated once per session. contract-call? is a script
// procedure so that contract code runs from a single top-level eval.
const prelude = `
proc contract-call? {contract function args} {
    set target [contract-resolve $contract $function]
    $target {*}$args
}
`

// Contract describes a unit of code to deploy.
type Contract struct {
	Name     string
	Deployer string
	Source   string
}

// ID returns the fully-qualified contract identifier.
func (c Contract) ID() string {
	return c.Deployer + "." + c.Name
}

type deployed struct {
	Contract
	public map[string]bool
}

func (d *deployed) publicNames() []string {
	names := make([]string, 0, len(d.public))
	for name := range d.public {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Session owns an interpreter and the contracts deployed on it.
// A Session is not safe for concurrent use.
type Session struct {
	interp    *feather.Interp
	logger    *slog.Logger
	contracts map[string]*deployed

	// deploying is the contract whose source is being evaluated.
	deploying *deployed
	// fault keeps the typed error behind the last failed command so
	// callers can match it with errors.Is.
	fault error
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger used for deployment events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithRecursionLimit caps the procedure call depth. A limit of zero or
// less keeps the interpreter default.
func WithRecursionLimit(limit int) Option {
	return func(s *Session) { s.interp.Internal().SetRecursionLimit(limit) }
}

// NewSession creates an empty session. Close it when done.
func NewSession(opts ...Option) *Session {
	s := &Session{
		interp:    feather.New(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		contracts: make(map[string]*deployed),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerBuiltins()
	if _, err := s.interp.Eval(prelude); err != nil {
		// The prelude is a constant; failing here means the interpreter is broken.
		panic(fmt.Sprintf("contract: prelude: %v", err))
	}
	return s
}

// Close releases the interpreter. The session must not be used afterwards.
func (s *Session) Close() {
	s.interp.Close()
}

// ValidatePrincipal reports whether p looks like a standard principal.
func ValidatePrincipal(p string) error {
	if !principalPattern.MatchString(p) {
		return fmt.Errorf("%w: %q", ErrInvalidPrincipal, p)
	}
	return nil
}

// Deploy installs c. On failure nothing of c stays behind.
func (s *Session) Deploy(c Contract) error {
	if err := ValidatePrincipal(c.Deployer); err != nil {
		return err
	}
	if !contractNamePattern.MatchString(c.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, c.Name)
	}
	id := c.ID()
	if _, ok := s.contracts[id]; ok {
		return fmt.Errorf("%w: %s", ErrContractExists, id)
	}

	switch pr := s.interp.Parse(c.Source); pr.Status {
	case feather.ParseOK:
	case feather.ParseIncomplete:
		return fmt.Errorf("deploy %s: incomplete source", id)
	default:
		return fmt.Errorf("deploy %s: %s", id, pr.Message)
	}

	d := &deployed{Contract: c, public: make(map[string]bool)}
	s.deploying = d
	s.fault = nil
	defer func() { s.deploying = nil }()

	if _, err := s.interp.Call("namespace", "eval", namespace(id), c.Source); err != nil {
		err = s.evalError(err)
		// Best effort: the namespace may not exist if the first command failed.
		s.interp.Call("namespace", "delete", namespace(id))
		return fmt.Errorf("deploy %s: %w", id, err)
	}

	s.contracts[id] = d
	s.logger.Debug("contract deployed",
		slog.String("contract", id),
		slog.Any("public", d.publicNames()),
	)
	return nil
}

// Contracts returns the identifiers of all deployed contracts, sorted.
func (s *Session) Contracts() []string {
	ids := make([]string, 0, len(s.contracts))
	for id := range s.contracts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PublicFunctions returns the public procedures of a deployed contract.
func (s *Session) PublicFunctions(contractID string) ([]string, error) {
	d, ok := s.contracts[strings.TrimPrefix(contractID, "'")]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContract, contractID)
	}
	return d.publicNames(), nil
}

// Eval evaluates one textual expression and returns its result.
func (s *Session) Eval(expr string) (string, error) {
	s.fault = nil
	result, err := s.interp.Eval(expr)
	if err != nil {
		return "", s.evalError(err)
	}
	return result.String(), nil
}

// Call invokes a public procedure of a deployed contract. Integers are
// passed as literals and byte slices as 0x-prefixed buffers.
func (s *Session) Call(contractID, procedure string, args ...any) (string, error) {
	callArgs := make([]any, 0, len(args)+2)
	callArgs = append(callArgs, "'"+contractID, procedure)
	for _, arg := range args {
		switch v := arg.(type) {
		case []byte:
			callArgs = append(callArgs, hexutil.Encode(v))
		case int32:
			callArgs = append(callArgs, int64(v))
		default:
			callArgs = append(callArgs, v)
		}
	}

	s.fault = nil
	result, err := s.interp.Call("contract-call?", callArgs...)
	if err != nil {
		return "", s.evalError(err)
	}
	return result.String(), nil
}

// Complete reports whether script is syntactically complete.
func (s *Session) Complete(script string) bool {
	return s.interp.Parse(script).Status != feather.ParseIncomplete
}

// evalError prefers the typed error recorded by a builtin over the
// interpreter's message, as long as that message still carries it. A
// fault the script caught and replaced with its own error is dropped.
func (s *Session) evalError(err error) error {
	fault := s.fault
	s.fault = nil
	if fault != nil && strings.Contains(err.Error(), fault.Error()) {
		return fault
	}
	return err
}

// resolve maps a contract reference and procedure to the namespaced
// procedure name, enforcing visibility.
func (s *Session) resolve(ref, procedure string) (string, error) {
	id := strings.TrimPrefix(ref, "'")
	d, ok := s.contracts[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownContract, id)
	}
	if !d.public[procedure] {
		return "", fmt.Errorf("%w: %s in %s (public: %s)",
			ErrNotPublic, procedure, id, strings.Join(d.publicNames(), ", "))
	}
	return namespace(id) + "::" + procedure, nil
}

func (s *Session) expose(names []string) error {
	if s.deploying == nil {
		return ErrNotDeploying
	}
	for _, name := range names {
		if !procedurePattern.MatchString(name) {
			return fmt.Errorf("public: invalid procedure name %q", name)
		}
		if slices.Contains(reserved, name) {
			return fmt.Errorf("public: %q is reserved", name)
		}
		s.deploying.public[name] = true
	}
	return nil
}

func namespace(id string) string {
	return "::" + id
}
