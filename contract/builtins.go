package contract

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/feather-lang/feather"
)

// reserved names cannot be exposed by contracts.
var reserved = []string{"public", "contract-call?", "contract-resolve"}

func (s *Session) registerBuiltins() {
	s.interp.Register("element-at?", elementAt)
	s.interp.Register("replace-at?", replaceAt)
	s.interp.Register("len", bufferLen)

	s.interp.RegisterCommand("public", func(i *feather.Interp, cmd *feather.Obj, args []*feather.Obj) feather.Result {
		if len(args) == 0 {
			return feather.Errorf("wrong # args: should be \"%s name ?name ...?\"", cmd.String())
		}
		names := make([]string, len(args))
		for j, arg := range args {
			names[j] = arg.String()
		}
		if err := s.expose(names); err != nil {
			return s.fail(err)
		}
		return feather.OK("")
	})

	s.interp.RegisterCommand("contract-resolve", func(i *feather.Interp, cmd *feather.Obj, args []*feather.Obj) feather.Result {
		if len(args) != 2 {
			return feather.Errorf("wrong # args: should be \"%s contract function\"", cmd.String())
		}
		target, err := s.resolve(args[0].String(), args[1].String())
		if err != nil {
			return s.fail(err)
		}
		return feather.OK(target)
	})
}

// fail records err for Eval and turns it into a script error.
func (s *Session) fail(err error) feather.Result {
	s.fault = err
	return feather.Error(err.Error())
}

func decodeBuffer(buf string) ([]byte, error) {
	b, err := hexutil.Decode(buf)
	if err != nil {
		return nil, fmt.Errorf("invalid buffer %q: %w", buf, err)
	}
	return b, nil
}

// elementAt returns the byte at index.
func elementAt(buf string, index int) (int, error) {
	b, err := decodeBuffer(buf)
	if err != nil {
		return 0, err
	}
	if index < 0 || index >= len(b) {
		return 0, fmt.Errorf("element-at?: index %d out of range for buffer of length %d", index, len(b))
	}
	return int(b[index]), nil
}

// replaceAt returns a copy of buf with the byte at index set to value.
func replaceAt(buf string, index, value int) (string, error) {
	b, err := decodeBuffer(buf)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(b) {
		return "", fmt.Errorf("replace-at?: index %d out of range for buffer of length %d", index, len(b))
	}
	if value < 0 || value > 0xff {
		return "", fmt.Errorf("replace-at?: %d is not a byte", value)
	}
	out := bytes.Clone(b)
	out[index] = byte(value)
	return hexutil.Encode(out), nil
}

func bufferLen(buf string) (int, error) {
	b, err := decodeBuffer(buf)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}
