// Package regfile implements the register-save area (RSA) from spec §3:
// a fixed-layout buffer holding the guest's 32 general-purpose and 32
// floating-point registers, a PC shadow, and a scratch slot. It is the
// single authoritative view of guest register state outside the code
// cache (invariant (e) in spec §3), consulted and mutated by the emitted
// context-switch stubs, the dispatcher, and any registered callback.
//
// The struct shape mirrors the register accessors on the teacher's
// Emulator type (X, SetX, PC, LR, SP), generalized from ARM64's 31 GPRs
// to RISC-V's 32 integer and 32 floating-point registers plus the extra
// bookkeeping fields the dispatcher protocol needs (terminator kind,
// ecall_next, and the taken-branch flag from the block descriptor).
package regfile

import "fmt"

// TerminatorKind classifies how a materialized block ended, per spec §3's
// cached block descriptor and §4.3's dispatcher protocol.
type TerminatorKind uint8

const (
	TermNone TerminatorKind = iota
	TermConditionalBranch
	TermDirectJump
	TermIndirectJump
	TermSyscall
	TermSegmented
)

func (k TerminatorKind) String() string {
	switch k {
	case TermConditionalBranch:
		return "conditional-branch"
	case TermDirectJump:
		return "direct-jump"
	case TermIndirectJump:
		return "indirect-jump"
	case TermSyscall:
		return "syscall"
	case TermSegmented:
		return "segmented"
	default:
		return "none"
	}
}

// NumGPR and NumFPR are the RISC-V integer and floating-point register
// file widths.
const (
	NumGPR = 32
	NumFPR = 32
)

// ScratchGPR, IdentGPR, and HostLinkGPR are guest GPR indices this engine
// reserves for its own bookkeeping, never allocated to translated guest
// code (spec §5: the RSA's shared-state invariant extends to which
// physical registers guest code may treat as general-purpose).
// ScratchGPR/IdentGPR back internal/allocator's fixup and exit
// sequences; HostLinkGPR holds the host cache-entry trampoline's landing
// pad address for the whole time control is inside the cache, so any
// context-switch exit stub can JALR straight back to the trampoline
// without a cache-resident dispatcher stub to find first.
const (
	ScratchGPR  = 5  // t0
	IdentGPR    = 6  // t1
	HostLinkGPR = 31 // t6
)

// RegFile is the process-wide register-save area. There is exactly one
// instance per engine (spec §9: "one process-wide instance owned by the
// front-end"); it is never accessed concurrently because the engine is
// single-threaded and cooperative (spec §5).
type RegFile struct {
	GPR [NumGPR]uint64
	FPR [NumFPR]uint64

	// PC is the logical guest program counter. It is a shadow value: the
	// guest never truly has a PC register, but the dispatcher and
	// callbacks need a single source of truth for "where is the guest
	// right now" between blocks.
	PC uint64

	// Scratch is a spare slot; no emitted exit sequence writes it.
	// Indirect-jump exits pass their computed target through IdentGPR,
	// which LoadIndirectTarget copies into IndirectTarget.
	Scratch uint64

	// Terminator records how the block that just exited ended, read by
	// the dispatcher to decide how to compute the next guest address.
	Terminator TerminatorKind

	// IndirectTarget holds the resolved target for an indirect-jump exit.
	IndirectTarget uint64

	// TakenBranch records whether the exiting conditional branch was
	// taken (true) or fell through (false); meaningless unless
	// Terminator == TermConditionalBranch.
	TakenBranch bool

	// EcallNext holds the guest PC to resume at after syscall handling,
	// per spec §4.2's "stash the post-syscall guest PC into ecall_next".
	EcallNext uint64

	// SyscallNum and SyscallArgs stage the ECALL ABI (a7 = number,
	// a0..a5 = args in the standard Newlib/RISC-V calling convention) for
	// the syscall shim; they are populated from GPR by LoadSyscallABI,
	// which the engine's cache-entry trampoline runs after every exit, so
	// the shim does not need to know the register mapping.
	SyscallNum  uint64
	SyscallArgs [6]uint64

	// ExitCode is set by the syscall shim when the guest calls exit(2)
	// and is what the CLI's Run() surfaces as the process exit code.
	ExitCode    int
	ExitedGuest bool
}

// New returns a zeroed register file.
func New() *RegFile { return &RegFile{} }

// X returns integer register i (x0..x31). x0 always reads as zero, per
// the RISC-V spec, even if something wrote to it.
func (r *RegFile) X(i int) uint64 {
	if i == 0 {
		return 0
	}
	return r.GPR[i]
}

// SetX writes integer register i. Writes to x0 are silently discarded.
func (r *RegFile) SetX(i int, v uint64) {
	if i == 0 {
		return
	}
	r.GPR[i] = v
}

// F returns floating-point register i (f0..f31).
func (r *RegFile) F(i int) uint64 { return r.FPR[i] }

// SetF writes floating-point register i.
func (r *RegFile) SetF(i int, v uint64) { r.FPR[i] = v }

// SP, RA, and A0..A7 are named-register conveniences matching the RISC-V
// calling convention (x2, x1, x10..x17).
func (r *RegFile) SP() uint64      { return r.X(2) }
func (r *RegFile) SetSP(v uint64)  { r.SetX(2, v) }
func (r *RegFile) RA() uint64      { return r.X(1) }
func (r *RegFile) SetRA(v uint64)  { r.SetX(1, v) }
func (r *RegFile) A(i int) uint64        { return r.X(10 + i) }
func (r *RegFile) SetA(i int, v uint64)  { r.SetX(10+i, v) }

// LoadSyscallABI stages a7/a0..a5 from GPR into the dedicated syscall
// fields. The host cache-entry trampoline calls this after every exit,
// before the dispatcher can invoke the shim, so the shim never touches
// GPR indices directly (spec §4.8).
func (r *RegFile) LoadSyscallABI() {
	r.SyscallNum = r.X(17)
	for i := 0; i < 6; i++ {
		r.SyscallArgs[i] = r.X(10 + i)
	}
}

// StoreSyscallResult writes a syscall return value back into a0, the
// Newlib/RISC-V convention for a single-return-value syscall.
func (r *RegFile) StoreSyscallResult(v uint64) { r.SetX(10, v) }

// LoadIndirectTarget copies the value the cache staged in IdentGPR into
// IndirectTarget. The host cache-entry trampoline calls this after every
// exit; it is meaningless unless Terminator == TermIndirectJump but
// harmless to run unconditionally, mirroring LoadSyscallABI's
// unconditional staging from GPR.
func (r *RegFile) LoadIndirectTarget() {
	r.IndirectTarget = r.GPR[IdentGPR]
}

// String renders a compact register dump, used by fatal-error diagnostics
// (spec §7: "terminate with a diagnostic including guest PC...").
func (r *RegFile) String() string {
	return fmt.Sprintf("pc=%#x ra=%#x sp=%#x a0=%#x a1=%#x", r.PC, r.RA(), r.SP(), r.A(0), r.A(1))
}
