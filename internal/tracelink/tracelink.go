// Package tracelink implements the trace linker from spec §4.4: it
// rewrites an already-materialized block's control-flow exits to branch
// directly to another block's cache address when that target is known,
// instead of always exiting to the dispatcher. It also drains the ELT's
// pending-backpatch ledger whenever a new target materializes.
//
// Grounded on the teacher's internal/emulator branch-patching helpers
// (rewriting an already-emitted hook site once its target resolves),
// generalized from single-shot key-capture patch points to the general
// direct/conditional cache-to-cache linking spec §4.4 describes.
package tracelink

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wraithcore/rvjit/internal/codecache"
	"github.com/wraithcore/rvjit/internal/elt"
	"github.com/wraithcore/rvjit/internal/isa"
	"github.com/wraithcore/rvjit/internal/log"
)

// Linker owns the mechanics of rewriting a previously-emitted exit site
// to jump straight into the cache instead of round-tripping through the
// dispatcher.
type Linker struct {
	cache *codecache.Cache
	elt   *elt.Table
	enc   *isa.Encoder
}

// New returns a linker bound to the engine's code cache and exit-link
// table.
func New(cache *codecache.Cache, table *elt.Table, enc *isa.Encoder) *Linker {
	return &Linker{cache: cache, elt: table, enc: enc}
}

// RecordTarget installs target -> cacheAddr in the ELT and immediately
// drains and installs every pending backpatch waiting on it, per spec
// §4.4's "when a target becomes available, previously emitted exits are
// patched forward."
func (l *Linker) RecordTarget(target uint64, cacheAddr int) error {
	l.elt.Record(target, cacheAddr)

	pending := l.elt.DrainPending(target)
	for _, p := range pending {
		linked, err := l.install(p, cacheAddr)
		if err != nil {
			return fmt.Errorf("tracelink: install pending link at offset %d: %w", p.CacheOffset, err)
		}
		if !linked {
			// Range overflow: spec §7 treats this as recoverable. The
			// pending link is dropped rather than retried; its site
			// stays exiting through the dispatcher permanently.
			if log.L != nil {
				log.L.Warn("tracelink: displacement out of range, leaving unlinked",
					zap.String("site", log.Hex(uint64(p.CacheOffset))), zap.String("target", log.Hex(target)))
			}
			continue
		}
		p.Installed = true
		if log.L != nil {
			log.L.Link(uint64(p.CacheOffset), target)
		}
	}
	return nil
}

// LinkOrDefer resolves a single exit site: if target already has a cache
// address, it patches siteOffset immediately and returns true; otherwise
// it registers a pending backpatch and returns false, meaning the site
// was left exiting to the dispatcher for now. A target that resolves but
// falls outside JAL's encodable range also returns false: spec §7's
// "trace-link range overflow" is recoverable, so the site is simply left
// exiting through the dispatcher rather than erroring the guest out.
func (l *Linker) LinkOrDefer(siteOffset int, target uint64, kind elt.SiteKind) (bool, error) {
	if cacheAddr, ok := l.elt.Lookup(target); ok {
		p := &elt.PendingLink{CacheOffset: siteOffset, Target: target, Kind: kind}
		linked, err := l.install(p, cacheAddr)
		if err != nil {
			return false, err
		}
		if !linked {
			if log.L != nil {
				log.L.Warn("tracelink: displacement out of range, leaving unlinked",
					zap.String("site", log.Hex(uint64(siteOffset))), zap.String("target", log.Hex(target)))
			}
			return false, nil
		}
		if log.L != nil {
			log.L.Link(uint64(siteOffset), target)
		}
		return true, nil
	}
	l.elt.AddPending(target, siteOffset, kind)
	return false, nil
}

// install rewrites the JAL immediate at p.CacheOffset so it targets
// cacheAddr's *cache* address directly. The site was originally emitted
// as a JAL to the shared context-switch exit stub; relinking replaces
// that immediate with one reaching the target block's first cache byte.
// Both addresses live in the same RWX region, so the displacement is a
// simple cache-offset subtraction.
//
// A displacement outside JAL's encodable range is not an error: it
// reports (false, nil) so the caller leaves the site as a dispatcher
// exit, per spec §7's "trace-link range overflow... fall back to
// context switch (recoverable)".
func (l *Linker) install(p *elt.PendingLink, cacheTarget int) (bool, error) {
	disp := cacheTarget - p.CacheOffset
	if disp > (1<<20)-1 || disp < -(1<<20) {
		return false, nil
	}
	word := l.enc.Jal(0, int32(disp))
	buf := l.enc.Put32(nil, word)
	if err := l.cache.PatchAt(p.CacheOffset, buf); err != nil {
		return false, err
	}
	l.cache.SyncExec(p.CacheOffset, len(buf))
	return true, nil
}

// Reset clears nothing itself; the ELT it wraps owns state and is reset
// by the allocator on a code-cache flush. It exists for symmetry with
// the rest of the engine's subsystems and to make the flush protocol
// explicit at call sites.
func (l *Linker) Reset() {}
