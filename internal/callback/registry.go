// Package callback implements the callback registry from spec §4.7:
// exactly one callback per (scope, phase, mode) triple, plus small
// hash-map registrations for per-instruction-type and per-group hooks.
//
// Grounded on the teacher's internal/stubs/registry.go: a mutex-guarded
// Registry with a Register/RegisterFunc pair and a small map keyed by a
// symbolic identifier. Here the identifier is the (scope, phase, mode)
// triple (or a type/group id) instead of a libc symbol name.
package callback

import (
	"sync"

	"github.com/wraithcore/rvjit/internal/isa"
	"github.com/wraithcore/rvjit/internal/regfile"
)

// Scope identifies what a callback attaches to.
type Scope uint8

const (
	ScopeExit Scope = iota
	ScopeBB
	ScopeInstruction
)

// Phase identifies when a callback runs relative to its scope's unit.
type Phase uint8

const (
	PhasePre Phase = iota
	PhasePost
)

// Mode identifies whether a callback fires once per materialization or
// once per dynamic execution.
type Mode uint8

const (
	ModeAllocator Mode = iota
	ModeRuntime
)

// key identifies a single-slot registration.
type key struct {
	scope Scope
	phase Phase
	mode  Mode
}

// AllocatorFunc is an ALLOCATOR-mode callback: it runs exactly once per
// materialization and receives the register file (read-only in practice,
// since nothing has executed yet) plus the guest address it fires for
// (the block's start for BB scope, the instruction's own address for
// instruction scope).
type AllocatorFunc func(rf *regfile.RegFile, addr uint64)

// RuntimeFunc is a RUNTIME-mode callback: it runs on every dynamic
// execution via the dispatcher and may freely mutate the register file
// (spec §5: "callbacks may freely mutate it to influence guest
// execution").
type RuntimeFunc func(rf *regfile.RegFile, addr uint64)

// Registry holds every registered callback. There is one instance per
// engine.
type Registry struct {
	mu sync.RWMutex

	allocator map[key]AllocatorFunc
	runtime   map[key]RuntimeFunc

	// Per-instruction-type and per-instruction-group callbacks, keyed by
	// mnemonic/group plus (phase, mode). Spec §4.7: "stored in a small
	// hash map."
	byType  map[typeKey]RuntimeFunc
	byGroup map[groupKey]RuntimeFunc
}

type typeKey struct {
	mn    isa.Mnemonic
	phase Phase
	mode  Mode
}

type groupKey struct {
	group isa.GroupID
	phase Phase
	mode  Mode
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		allocator: make(map[key]AllocatorFunc),
		runtime:   make(map[key]RuntimeFunc),
		byType:    make(map[typeKey]RuntimeFunc),
		byGroup:   make(map[groupKey]RuntimeFunc),
	}
}

// RegisterAllocator installs the single ALLOCATOR callback for
// (scope, phase). A second call for the same triple replaces the first,
// matching the "exactly one callback per triple" rule in spec §4.7.
func (r *Registry) RegisterAllocator(scope Scope, phase Phase, fn AllocatorFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.allocator[key{scope, phase, ModeAllocator}] = fn
}

// RegisterRuntime installs the single RUNTIME callback for (scope, phase).
func (r *Registry) RegisterRuntime(scope Scope, phase Phase, fn RuntimeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runtime[key{scope, phase, ModeRuntime}] = fn
}

// Allocator returns the registered ALLOCATOR callback for (scope, phase),
// if any.
func (r *Registry) Allocator(scope Scope, phase Phase) (AllocatorFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.allocator[key{scope, phase, ModeAllocator}]
	return fn, ok
}

// Runtime returns the registered RUNTIME callback for (scope, phase), if
// any.
func (r *Registry) Runtime(scope Scope, phase Phase) (RuntimeFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.runtime[key{scope, phase, ModeRuntime}]
	return fn, ok
}

// RegisterByType installs a per-instruction-type callback, keyed by
// mnemonic. Registering one for any mnemonic forces the allocator to
// segment blocks at that mnemonic (spec §4.2's "any instruction targeted
// by a registered per-instruction callback... forces a segmented block").
func (r *Registry) RegisterByType(mn isa.Mnemonic, phase Phase, mode Mode, fn RuntimeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType[typeKey{mn, phase, mode}] = fn
}

// ByType returns the callback registered for a mnemonic/phase/mode, if
// any.
func (r *Registry) ByType(mn isa.Mnemonic, phase Phase, mode Mode) (RuntimeFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.byType[typeKey{mn, phase, mode}]
	return fn, ok
}

// HasTypeCallback reports whether any callback is registered for mn,
// regardless of phase/mode — used by the allocator to decide whether an
// instruction forces segmentation.
func (r *Registry) HasTypeCallback(mn isa.Mnemonic) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for k := range r.byType {
		if k.mn == mn {
			return true
		}
	}
	return false
}

// RegisterByGroup installs a per-instruction-group callback, keyed by the
// user-assigned isa.GroupID.
func (r *Registry) RegisterByGroup(g isa.GroupID, phase Phase, mode Mode, fn RuntimeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byGroup[groupKey{g, phase, mode}] = fn
}

// ByGroup returns the callback registered for a group/phase/mode, if any.
func (r *Registry) ByGroup(g isa.GroupID, phase Phase, mode Mode) (RuntimeFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.byGroup[groupKey{g, phase, mode}]
	return fn, ok
}

// HasGroupCallback reports whether any callback is registered for g.
func (r *Registry) HasGroupCallback(g isa.GroupID) bool {
	if g == isa.NoGroup {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for k := range r.byGroup {
		if k.group == g {
			return true
		}
	}
	return false
}

// ForcesSegmentation reports whether translating in would have to cut the
// current block short per spec §4.2: a registered per-instruction or
// per-group callback on a non-terminator instruction.
func (r *Registry) ForcesSegmentation(in *isa.Instruction) bool {
	if in.IsTerminator() {
		return false
	}
	return r.HasTypeCallback(in.Mnemonic) || r.HasGroupCallback(in.Group)
}
