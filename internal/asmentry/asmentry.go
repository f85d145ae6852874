//go:build riscv64

// Package asmentry is the host-architecture-specific glue internal/engine's
// enterCache plugs into: a small assembly trampoline that swaps the host's
// physical general-purpose registers for the guest's, jumps into the code
// cache, and swaps them back the moment control returns.
//
// Grounded on the teacher's pkg/pvm/jit/call_amd64.go + its asm.CallJITCode
// helper, generalized from a fixed-shape ARM64 emulator State struct and a
// SysV/amd64 host to this engine's own RegFile.GPR array and a riscv64
// host — the code cache emits real rv64gc opcodes into its own executable
// region (spec §1's shared address space), so unlike the teacher's
// cross-architecture emulation this trampoline runs on the same
// instruction set it is entering.
package asmentry

// Enter loads every entry of *gpr into the matching physical GPR (x1-x30;
// x0 is hardwired zero and x31 is reserved as the cache's landing-pad
// register, so neither is read from gpr), jumps to entry, and blocks
// until control returns through a JALR into x31 - the address Enter
// itself computes and hands to the cache the same way any RISC-V JALR
// return address is computed, not a value gpr ever carries. On return,
// every physical GPR x1-x30 is written back into *gpr.
//
// gpr must point at a live [32]uint64 array (RegFile.GPR); Enter never
// retains the pointer past the call. Floating-point registers are left
// alone: reemitted guest FP instructions already execute directly on the
// host FPU with no engine mediation needed while inside the cache, and
// nothing outside the cache currently reads RegFile.FPR (see DESIGN.md).
//
//go:noescape
func Enter(entry uintptr, gpr *[32]uint64)

// hostSave stashes the host-side values Enter must recover once
// cache-emitted code returns through a stack pointer the guest owned for
// the duration of the call (translated guest code manipulates x2/sp
// directly, per the RISC-V calling convention, so Enter's own stack frame
// is unreachable via SP-relative addressing the instant execution enters
// the cache). Addressed from assembly by fixed byte offset rather than
// through the stack. Safe as a package-level global: the engine is
// single-threaded and never calls Enter reentrantly (spec §5).
//
// Layout (8 bytes each): sp, ra, s0, s1, s2, s3, s4, s5, s6, s7, s8, s9,
// s10, s11, gpr-array-pointer, scratch.
var hostSave [16]uintptr
