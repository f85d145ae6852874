// Package dispatcher implements the single-entry dispatcher protocol
// from spec §4.3: after every block exit, decide the next guest address,
// materialize it if needed, run its RUNTIME callbacks, and resume
// execution in the cache.
//
// Grounded on the teacher's Emulator.Step loop shape (decode exit state,
// consult syscall table, resume), generalized from Unicorn-hook-driven
// stepping to this engine's own RSA-driven context-switch protocol.
package dispatcher

import (
	"fmt"

	"github.com/wraithcore/rvjit/internal/allocator"
	"github.com/wraithcore/rvjit/internal/bbt"
	"github.com/wraithcore/rvjit/internal/callback"
	"github.com/wraithcore/rvjit/internal/isa"
	"github.com/wraithcore/rvjit/internal/log"
	"github.com/wraithcore/rvjit/internal/regfile"
	"github.com/wraithcore/rvjit/internal/syscallshim"
)

// FatalError is the shape spec §7 requires every unrecoverable engine
// error to carry: guest PC, the block being processed, the offending
// component, and the underlying cause.
type FatalError struct {
	Component string
	PC        uint64
	BlockID   int
	Err       error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("rvjit: fatal in %s at pc=0x%x (block %d): %v", e.Component, e.PC, e.BlockID, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// EnterCache is supplied by internal/engine: it jumps host execution
// into the code cache at the given offset and returns control only when
// the guest has hit a context-switch exit, having already updated rf in
// place. Isolating this as an injected function keeps dispatcher
// testable without real cache execution.
type EnterCache func(rf *regfile.RegFile, cacheOffset int) error

// Dispatcher runs the resume/materialize/callback loop.
type Dispatcher struct {
	alloc   *allocator.Allocator
	bbt     *bbt.Table
	reg     *callback.Registry
	shim    *syscallshim.Shim
	enter   EnterCache
	blockID int
}

// New returns a dispatcher wired to the engine's allocator, BBT,
// callback registry, and syscall shim.
func New(alloc *allocator.Allocator, bbtTable *bbt.Table, reg *callback.Registry, shim *syscallshim.Shim, enter EnterCache) *Dispatcher {
	return &Dispatcher{alloc: alloc, bbt: bbtTable, reg: reg, shim: shim, enter: enter}
}

// Run drives the guest from entryAddr until it exits (regfile.ExitedGuest
// becomes true) or a fatal error occurs.
func (d *Dispatcher) Run(rf *regfile.RegFile, entryAddr uint64) error {
	next := entryAddr
	for {
		desc, err := d.alloc.Materialize(next)
		if err != nil {
			return &FatalError{Component: "allocator", PC: next, BlockID: d.blockID, Err: err}
		}
		d.blockID++

		d.runRuntimeCallback(callback.ScopeBB, callback.PhasePre, rf, desc.FirstAddr)
		d.runRuntimeTypeCallback(callback.PhasePre, rf, desc)

		if err := d.enter(rf, desc.CacheStart); err != nil {
			return &FatalError{Component: "dispatcher", PC: desc.FirstAddr, BlockID: d.blockID, Err: err}
		}
		// desc.Terminator is known at materialization time; resolveNext
		// reads it off rf rather than desc so it has one input regardless
		// of which descriptor produced the exit.
		rf.Terminator = desc.Terminator

		d.runRuntimeCallback(callback.ScopeBB, callback.PhasePost, rf, desc.FirstAddr)
		d.runRuntimeTypeCallback(callback.PhasePost, rf, desc)

		if rf.ExitedGuest {
			return nil
		}

		nextAddr, err := d.resolveNext(rf, desc)
		if err != nil {
			return &FatalError{Component: "dispatcher", PC: rf.PC, BlockID: d.blockID, Err: err}
		}
		next = nextAddr

		if rf.ExitedGuest {
			// resolveNext's TermSyscall arm may have just serviced an
			// exit()/exit_group() and set this; stop before materializing
			// whatever address the guest's PC happened to hold at ecall time.
			return nil
		}

		if log.L != nil {
			log.L.Dispatch(desc.FirstAddr, next, desc.Terminator.String())
		}
	}
}

// resolveNext implements spec §4.3 step 2: compute the next guest
// address from the just-executed block's terminator kind.
func (d *Dispatcher) resolveNext(rf *regfile.RegFile, desc *bbt.Descriptor) (uint64, error) {
	switch rf.Terminator {
	case regfile.TermDirectJump:
		return desc.TakenTarget, nil

	case regfile.TermConditionalBranch:
		if rf.TakenBranch {
			return desc.TakenTarget, nil
		}
		return desc.FallThrough, nil

	case regfile.TermIndirectJump:
		return rf.IndirectTarget, nil

	case regfile.TermSyscall:
		if err := d.shim.Handle(rf); err != nil {
			return 0, fmt.Errorf("syscall shim: %w", err)
		}
		if rf.ExitedGuest {
			return rf.PC, nil
		}
		return rf.EcallNext, nil

	default:
		if desc.Segmented {
			return desc.FallThrough, nil
		}
		return 0, fmt.Errorf("dispatcher: block at 0x%x has no resolvable successor", desc.FirstAddr)
	}
}

// runRuntimeCallback invokes the registered RUNTIME callback for
// (scope, phase), if any. A RUNTIME callback returns no error, so there
// is no callback failure path here: spec §5 treats callbacks as free to
// mutate RSA but does not define a callback failure mode, and a panic
// inside one is not recovered.
func (d *Dispatcher) runRuntimeCallback(scope callback.Scope, phase callback.Phase, rf *regfile.RegFile, addr uint64) {
	fn, ok := d.reg.Runtime(scope, phase)
	if !ok {
		return
	}
	fn(rf, addr)
}

// runRuntimeTypeCallback fires desc's per-instruction-type or per-group
// RUNTIME callback, if any, around its execution, the RUNTIME-mode half
// of spec §4.7's "per-type and per-group routines," which segmentation
// (spec §4.2) guarantees only ever applies to a single-instruction
// block. The address handed to the callback is desc.BasicBlockAddr, the
// enclosing logical block's start rather than this segment's own start,
// so a callback attributing counts per logical block (spec §8 scenario
// 6's "attribute each ADD to its enclosing logical BB") gets the right
// key without having to reconstruct the segmentation chain itself.
func (d *Dispatcher) runRuntimeTypeCallback(phase callback.Phase, rf *regfile.RegFile, desc *bbt.Descriptor) {
	if !desc.Segmented || desc.InsnCount != 1 {
		return
	}
	if fn, ok := d.reg.ByType(desc.Mnemonic, phase, callback.ModeRuntime); ok {
		fn(rf, desc.BasicBlockAddr)
	}
	if desc.Group != isa.NoGroup {
		if fn, ok := d.reg.ByGroup(desc.Group, phase, callback.ModeRuntime); ok {
			fn(rf, desc.BasicBlockAddr)
		}
	}
}
