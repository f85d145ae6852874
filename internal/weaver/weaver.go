// Package weaver implements the inline weaver from spec §4.6: it decides
// the order in which a basic block's instructions reach the allocator's
// encoder.
//
// BB-scope PRE/POST RUNTIME callbacks do not need any cache-emitted code
// at all: internal/dispatcher already brackets every block's execution
// with a host-side call to the callback registry (spec §4.3's
// enter-callback/exit-callback steps run before/after EnterCache, not
// inside the cache), so the weaver's only remaining job is instruction
// ordering.
//
// Instruction-scope RUNTIME callbacks (spec §4.7's per-type/per-group
// hooks) are not emitted as inline exits here. Doing that correctly
// requires a mid-block resume protocol - exit the cache after one
// instruction, run the callback, re-enter partway through the same
// block - that internal/dispatcher does not have; see DESIGN.md. A
// per-type or per-group RUNTIME callback still fires:
// internal/callback.Registry.ForcesSegmentation cuts the targeted
// instruction into its own single-instruction block, and
// internal/dispatcher calls the matching ByType/ByGroup callback
// immediately before and after that block runs.
package weaver

import (
	"github.com/wraithcore/rvjit/internal/callback"
	"github.com/wraithcore/rvjit/internal/isa"
)

// Emitter orders a block's instructions for the allocator. It does not
// itself write bytes into the code cache; keeping it pure (plan, don't
// emit) mirrors the teacher's separation between deciding hook order and
// the emulator loop that dispatches it.
type Emitter struct {
	registry *callback.Registry
}

// New returns a weaver bound to the engine's callback registry.
func New(registry *callback.Registry) *Emitter {
	return &Emitter{registry: registry}
}

// WeaveBlock returns insns unchanged, in program order. It takes
// blockAddr and the registry-bound Emitter receiver for symmetry with
// the teacher's hook-ordering entry point and because block-level
// weaving policy (today: none beyond program order) belongs here rather
// than in the allocator.
func (e *Emitter) WeaveBlock(blockAddr uint64, insns []isa.Instruction) []isa.Instruction {
	_ = blockAddr
	return insns
}
