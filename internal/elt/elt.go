// Package elt implements the exit-link table and trace-link backpatch
// ledger from spec §2.4/§4.4/§9: a map from guest target address to
// cache address, populated as targets are materialized, plus a list of
// pending (site, guest-target) backpatch records that drain when their
// target finally materializes.
//
// Grounded on the same registry-map idiom as internal/bbt (itself
// grounded on the teacher's internal/stubs/registry.go), split into two
// structures because spec §9 explicitly separates "the ELT" from "a list
// of pending backpatch records" as distinct owned collections.
package elt

import "sync"

// SiteKind distinguishes which arm of a conditional branch (or a direct
// jump) a pending backpatch record refers to, so the trace linker knows
// which half of the emitted code to rewrite.
type SiteKind uint8

const (
	SiteDirectJump SiteKind = iota
	SiteBranchTaken
	SiteBranchFallthrough
)

// PendingLink is a backpatch request: a context-switch exit was emitted
// at CacheOffset because Target was not yet materialized; once Target
// gets a BBT entry, this record is drained and the site is rewritten to
// jump straight there (spec §4.4).
type PendingLink struct {
	CacheOffset int
	Target      uint64
	Kind        SiteKind
	Installed   bool // monotone: a link is installed at most once per site
}

// Table is the exit-link table plus its backpatch ledger. Per spec §3
// invariant (c), entries only ever point to the first byte of a cached
// block or the first byte of a stub.
type Table struct {
	mu       sync.RWMutex
	links    map[uint64]int // guest target -> cache address (first byte)
	pending  map[uint64][]*PendingLink
}

// New returns an empty exit-link table.
func New() *Table {
	return &Table{
		links:   make(map[uint64]int, 1024),
		pending: make(map[uint64][]*PendingLink, 64),
	}
}

// Lookup returns the cache address linked to a guest target, if any.
func (t *Table) Lookup(target uint64) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	off, ok := t.links[target]
	return off, ok
}

// Record installs a link from a guest target to a cache address. Called
// whenever a block or stub is materialized at that target.
func (t *Table) Record(target uint64, cacheAddr int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.links[target] = cacheAddr
}

// AddPending registers a backpatch request for a target that is not yet
// materialized.
func (t *Table) AddPending(target uint64, cacheOffset int, kind SiteKind) *PendingLink {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := &PendingLink{CacheOffset: cacheOffset, Target: target, Kind: kind}
	t.pending[target] = append(t.pending[target], p)
	return p
}

// DrainPending returns and removes every pending backpatch record waiting
// on target, so the trace linker can install them now that target has a
// cache address. Already-installed records (defensive; should not occur
// since each target drains once) are filtered out.
func (t *Table) DrainPending(target uint64) []*PendingLink {
	t.mu.Lock()
	defer t.mu.Unlock()
	pending := t.pending[target]
	delete(t.pending, target)
	out := pending[:0]
	for _, p := range pending {
		if !p.Installed {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of installed links, used by the stats TUI.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.links)
}

// PendingCount returns the number of outstanding backpatch requests.
func (t *Table) PendingCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, ps := range t.pending {
		n += len(ps)
	}
	return n
}

// Reset clears both the link table and the backpatch ledger, called on a
// code-cache flush (spec §4.1).
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.links = make(map[uint64]int, 1024)
	t.pending = make(map[uint64][]*PendingLink, 64)
}
