package vmbench

import (
	_ "embed"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Buff32Len is the size of the reversal payload.
const Buff32Len = 32

// Operands of the addition workload.
const (
	AddLeft  int32 = 42
	AddRight int32 = 12345
)

// Principal is the synthetic deployer of every suite contract.
const Principal = "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM"

// Contract names and their public procedures.
const (
	AddContract      = "add"
	AddProcedure     = "add"
	ReverseContract  = "clarity-bitcoin"
	ReverseProcedure = "reverse-buff32"
)

var (
	//go:embed contracts/add.tcl
	addSource string

	//go:embed contracts/clarity-bitcoin.tcl
	reverseSource string
)

// AddSource returns the source of the addition contract.
func AddSource() string { return addSource }

// ReverseSource returns the source of the reversal contract.
func ReverseSource() string { return reverseSource }

// Buff32 returns a fresh copy of the reversal input: bytes 1 through 32.
func Buff32() []byte {
	buf := make([]byte, Buff32Len)
	for i := range buf {
		buf[i] = byte(i + 1)
	}
	return buf
}

// ReversedBuff32 returns the expected reversal output: bytes 32 down to 1.
func ReversedBuff32() []byte {
	buf := make([]byte, Buff32Len)
	for i := range buf {
		buf[i] = byte(Buff32Len - i)
	}
	return buf
}

// ContractID returns the fully-qualified identifier of a suite contract.
func ContractID(name string) string {
	return Principal + "." + name
}

// AddCall is the textual expression that invokes the addition contract.
func AddCall(a, b int32) string {
	return fmt.Sprintf("contract-call? '%s %s %s %s",
		ContractID(AddContract), AddProcedure,
		strconv.FormatInt(int64(a), 10), strconv.FormatInt(int64(b), 10))
}

// ReverseCall is the textual expression that invokes the reversal contract.
func ReverseCall(input []byte) string {
	return fmt.Sprintf("contract-call? '%s %s %s",
		ContractID(ReverseContract), ReverseProcedure, hexutil.Encode(input))
}
