package callback

import (
	"testing"

	"github.com/wraithcore/rvjit/internal/isa"
	"github.com/wraithcore/rvjit/internal/regfile"
)

func TestAllocatorSlotReplacesOnSecondRegister(t *testing.T) {
	r := New()
	calls := 0
	r.RegisterAllocator(ScopeBB, PhasePre, func(rf *regfile.RegFile, addr uint64) { calls = 1 })
	r.RegisterAllocator(ScopeBB, PhasePre, func(rf *regfile.RegFile, addr uint64) { calls = 2 })

	fn, ok := r.Allocator(ScopeBB, PhasePre)
	if !ok {
		t.Fatal("Allocator missing after registration")
	}
	fn(nil, 0)
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (second registration should replace first)", calls)
	}
}

func TestRuntimeMissingSlot(t *testing.T) {
	r := New()
	if _, ok := r.Runtime(ScopeExit, PhasePost); ok {
		t.Error("Runtime returned ok for an unregistered triple")
	}
}

func TestByTypeAndHasTypeCallback(t *testing.T) {
	r := New()
	if r.HasTypeCallback(isa.MnADD) {
		t.Error("HasTypeCallback true before any registration")
	}
	r.RegisterByType(isa.MnADD, PhasePre, ModeRuntime, func(rf *regfile.RegFile, addr uint64) {})
	if !r.HasTypeCallback(isa.MnADD) {
		t.Error("HasTypeCallback false after registration")
	}
	if _, ok := r.ByType(isa.MnADD, PhasePre, ModeRuntime); !ok {
		t.Error("ByType missing after registration")
	}
}

func TestByGroupAndHasGroupCallback(t *testing.T) {
	r := New()
	const g isa.GroupID = 7
	if r.HasGroupCallback(g) {
		t.Error("HasGroupCallback true before any registration")
	}
	r.RegisterByGroup(g, PhasePost, ModeRuntime, func(rf *regfile.RegFile, addr uint64) {})
	if !r.HasGroupCallback(g) {
		t.Error("HasGroupCallback false after registration")
	}
	if r.HasGroupCallback(isa.NoGroup) {
		t.Error("HasGroupCallback true for NoGroup")
	}
}

func TestForcesSegmentation(t *testing.T) {
	r := New()
	nonTerm := &isa.Instruction{Mnemonic: isa.MnADD, Group: isa.NoGroup}
	if r.ForcesSegmentation(nonTerm) {
		t.Error("ForcesSegmentation true with no callbacks registered")
	}

	r.RegisterByType(isa.MnADD, PhasePre, ModeRuntime, func(rf *regfile.RegFile, addr uint64) {})
	if !r.ForcesSegmentation(nonTerm) {
		t.Error("ForcesSegmentation false after registering a per-type callback")
	}

	term := &isa.Instruction{Mnemonic: isa.MnJAL}
	if r.ForcesSegmentation(term) {
		t.Error("ForcesSegmentation true for a terminator instruction")
	}
}
