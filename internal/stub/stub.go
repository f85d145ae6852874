// Package stub implements the shared stub regions from spec §4.5: small
// trampolines materialized once in the code cache that many blocks
// branch to via JAL, so per-block code never has to carry its own copy.
// Three kinds are defined (the context-switch exit stub, the callback
// dispatch trampoline, the syscall-entry stub); the allocator
// materializes only the context-switch exit stub.
//
// Grounded on the teacher's internal/stubs/registry.go idiom of a
// small named table of pre-built code fragments, generalized here from
// libc-symbol stubs to code-cache trampolines and combined with the
// reachability bound resolved in DESIGN.md (3072 guest-equivalent
// instructions, comfortably inside JAL's +-1MiB range).
package stub

import (
	"fmt"

	"github.com/wraithcore/rvjit/internal/codecache"
	"github.com/wraithcore/rvjit/internal/isa"
)

// ToleranceInsns bounds how far a materialized block may sit from the
// nearest stub region before the allocator must materialize a fresh
// regional copy instead of reusing the existing one. Resolved in
// DESIGN.md: 3072 instructions (~12KiB at 4 bytes/insn), an order of
// magnitude inside JAL's +-1MiB reach.
const ToleranceInsns = 3072

// bytesPerInsn is the conservative (uncompressed) estimate used to turn
// ToleranceInsns into a byte distance for reachability checks, since a
// mixed compressed/uncompressed block only ever makes the true distance
// smaller.
const bytesPerInsn = 4

// ToleranceBytes is ToleranceInsns expressed in cache bytes.
const ToleranceBytes = ToleranceInsns * bytesPerInsn

// Kind names a stub region's purpose.
type Kind uint8

const (
	KindContextSwitchExit Kind = iota

	// KindCallbackTrampoline would back an inline exit for an
	// instruction-scope RUNTIME callback (spec §4.7), the way
	// KindContextSwitchExit backs a terminator's dispatch exit. Nothing
	// materializes or reads this region today: internal/weaver never
	// hands the allocator a callback-exit plan entry, because doing that
	// correctly needs a mid-block resume protocol internal/dispatcher
	// does not implement (see internal/weaver's package doc and
	// DESIGN.md). Left defined, unmaterialized, rather than removed, as
	// the anchor for that future work.
	KindCallbackTrampoline
	KindSyscallEntry
)

func (k Kind) String() string {
	switch k {
	case KindContextSwitchExit:
		return "context-switch-exit"
	case KindCallbackTrampoline:
		return "callback-trampoline"
	case KindSyscallEntry:
		return "syscall-entry"
	default:
		return "unknown"
	}
}

// Region is one materialized stub: its kind, its cache offset, and its
// byte length, so the allocator's reachability check can compute
// distance without re-reading the cache.
type Region struct {
	Kind       Kind
	CacheStart int
	CacheEnd   int
}

// Set holds every materialized stub region, indexed by kind. Per spec
// §4.5, at most one region of each kind needs to exist at a time as long
// as every live block is within ToleranceBytes of it; the allocator asks
// this set for a region and, on a Reachable miss, materializes a fresh
// one and replaces the stale entry.
type Set struct {
	cache   *codecache.Cache
	enc     *isa.Encoder
	regions map[Kind]*Region
}

// New returns an empty stub set bound to the engine's code cache.
func New(cache *codecache.Cache, enc *isa.Encoder) *Set {
	return &Set{cache: cache, enc: enc, regions: make(map[Kind]*Region, 3)}
}

// Reachable reports whether the currently materialized region of kind k
// is within ToleranceBytes of fromCacheOffset, i.e. whether a block being
// materialized there may safely JAL to the existing region instead of
// requiring a fresh copy.
func (s *Set) Reachable(k Kind, fromCacheOffset int) (*Region, bool) {
	r, ok := s.regions[k]
	if !ok {
		return nil, false
	}
	dist := fromCacheOffset - r.CacheStart
	if dist < 0 {
		dist = -dist
	}
	if dist > ToleranceBytes {
		return nil, false
	}
	return r, true
}

// Materialize emits body at the cache's current cursor and records it as
// the live region for kind k, replacing any prior region of that kind
// (its old bytes remain in the cache but become unreachable dead space
// until the next flush, per spec §4.1's flush-only reclamation model).
func (s *Set) Materialize(k Kind, body []byte) (*Region, error) {
	start, err := s.cache.Append(body)
	if err != nil {
		return nil, fmt.Errorf("stub: materialize %s: %w", k, err)
	}
	s.cache.SyncExec(start, len(body))
	r := &Region{Kind: k, CacheStart: start, CacheEnd: start + len(body)}
	s.regions[k] = r
	return r, nil
}

// Get returns the currently materialized region for k, if any, without a
// reachability check — used once a caller has already confirmed
// reachability or does not need it (e.g. the allocator right after it
// has materialized or confirmed the context-switch exit stub).
func (s *Set) Get(k Kind) (*Region, bool) {
	r, ok := s.regions[k]
	return r, ok
}

// Reset drops all recorded regions; called on a code-cache flush, after
// which every stub must be rematerialized on first use.
func (s *Set) Reset() {
	s.regions = make(map[Kind]*Region, 3)
}
