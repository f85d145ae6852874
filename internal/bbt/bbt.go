// Package bbt implements the basic-block table from spec §2.3/§3: a
// map from guest address to cached-block descriptor, with descriptors
// allocated from a pooled arena to avoid per-block malloc (spec §3
// lifecycles).
//
// Grounded on the teacher's internal/stubs/registry.go, which keeps a
// mutex-guarded map of small structs keyed by name; here the key is a
// guest address and the value a pointer into a pooled arena instead of a
// freshly allocated struct per entry.
package bbt

import (
	"sync"

	"github.com/wraithcore/rvjit/internal/isa"
	"github.com/wraithcore/rvjit/internal/regfile"
)

// Descriptor is the cached block descriptor from spec §3. It is immutable
// after materialization (spec §3 invariant); only the arena that owns it
// may recycle its memory, and only on a full-table Reset.
type Descriptor struct {
	FirstAddr uint64 // original first-instruction address
	LastAddr  uint64 // original last-instruction address
	CacheStart int   // offset in the code cache
	CacheEnd   int

	InsnCount int

	Terminator regfile.TerminatorKind

	FirstRaw uint32 // raw encoding of first original instruction
	LastRaw  uint32 // raw encoding of last original instruction

	TakenTarget  uint64 // valid for branches/direct jumps
	HasTaken     bool
	FallThrough  uint64
	EcallNext    uint64 // valid when Terminator == TermSyscall

	EnteredByTakenBranch bool

	// BasicBlockAddr records the enclosing logical block's start for a
	// segmented descriptor (spec §4.2 "Segmentation"), so per-instruction
	// callbacks can attribute their firing to the original block a
	// forced split carved apart, not to the segment's own start address.
	// Equal to FirstAddr for a block that starts a logical block (entry
	// point, jump or branch target), and propagated unchanged across
	// every segment a single logical block is split into, including the
	// final, non-segmented one that ends in a real terminator
	// (internal/allocator threads this through the fallthrough chain a
	// forced split produces).
	BasicBlockAddr uint64
	Segmented      bool

	// Mnemonic and Group are the sole instruction's classification when
	// InsnCount == 1 and Segmented is true, i.e. exactly the shape a
	// per-instruction-type or per-instruction-group callback registration
	// forces (spec §4.2's "any instruction targeted by a registered
	// per-instruction callback... forces a segmented block"). The
	// dispatcher consults these to find which ByType/ByGroup callback, if
	// any, brackets this block's execution.
	Mnemonic isa.Mnemonic
	Group    isa.GroupID
}

// arenaChunkSize bounds how many descriptors are allocated per pool
// growth, keeping individual allocations small and predictable.
const arenaChunkSize = 4096

// Table is the guest-address -> *Descriptor map plus its backing arena.
// Per spec §5, it is mutated only by the allocator/linker on the single
// engine thread; the mutex exists so tests and the stats TUI can read it
// from a second goroutine without racing the hot path.
type Table struct {
	mu    sync.RWMutex
	byPC  map[uint64]*Descriptor
	arena [][]Descriptor // chunks; descriptors are handed out by pointer into a chunk
	next  int            // next free index in the last chunk
}

// New returns an empty table.
func New() *Table {
	t := &Table{byPC: make(map[uint64]*Descriptor, 1024)}
	t.growArena()
	return t
}

func (t *Table) growArena() {
	t.arena = append(t.arena, make([]Descriptor, arenaChunkSize))
	t.next = 0
}

// alloc returns a pointer to a fresh zeroed Descriptor from the arena.
// Caller must hold t.mu for writing.
func (t *Table) alloc() *Descriptor {
	last := t.arena[len(t.arena)-1]
	if t.next >= len(last) {
		t.growArena()
		last = t.arena[len(t.arena)-1]
	}
	d := &last[t.next]
	*d = Descriptor{}
	t.next++
	return d
}

// Lookup returns the descriptor for a guest address, if materialized.
// Expected O(1), per spec §3 invariant (b).
func (t *Table) Lookup(addr uint64) (*Descriptor, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.byPC[addr]
	return d, ok
}

// Insert materializes a new descriptor for addr, filled in by fill, and
// registers it in the table. It is the allocator's sole write path into
// the table (spec §5).
func (t *Table) Insert(addr uint64, fill func(*Descriptor)) *Descriptor {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.alloc()
	fill(d)
	t.byPC[addr] = d
	return d
}

// Len returns the number of live descriptors, used by the stats TUI.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byPC)
}

// Reset clears the table and releases the arena, called on a code-cache
// flush (spec §4.1: "BBT, ELT, and cursor are reset").
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byPC = make(map[uint64]*Descriptor, 1024)
	t.arena = nil
	t.growArena()
}
