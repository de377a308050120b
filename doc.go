// Package vmbench compares the latency of two tiny workloads across
// very different execution strategies.
//
// # Overview
//
// The suite runs the same fixed payloads through:
//
//   - a contract session: source deployed under a principal and called
//     through textual contract-call? expressions
//   - native Go
//   - wazero, with its compiler and with its interpreter
//   - wasmtime, with Cranelift tuned for speed
//
// This package holds the pieces every strategy shares: the native
// functions under test, the payloads and the contract sources.
//
// # Workloads
//
// Addition of two 32-bit integers:
//
//	vmbench.Add(vmbench.AddLeft, vmbench.AddRight) // 12387
//
// Reversal of a 32-byte buffer:
//
//	out := vmbench.ReverseBuff32(vmbench.Buff32())
//	// out == vmbench.ReversedBuff32()
//
// # Running
//
// Benchmarks live in package suite and can be run either with the
// standard tooling:
//
//	go test -bench . ./suite
//
// or with the vmbench command, which adds warm-up control, reports,
// charts and saved baselines:
//
//	vmbench run --filter '^add' --samples 100
//	vmbench verify
package vmbench
