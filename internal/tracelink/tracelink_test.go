package tracelink

import (
	"testing"

	"github.com/wraithcore/rvjit/internal/codecache"
	"github.com/wraithcore/rvjit/internal/elt"
	"github.com/wraithcore/rvjit/internal/isa"
)

func newLinker(t *testing.T) (*Linker, *codecache.Cache, *elt.Table) {
	t.Helper()
	c, err := codecache.New(1 << 16)
	if err != nil {
		t.Fatalf("codecache.New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	tbl := elt.New()
	return New(c, tbl, isa.NewEncoder()), c, tbl
}

func TestLinkOrDeferInstallsWhenTargetKnown(t *testing.T) {
	l, c, tbl := newLinker(t)

	c.Append([]byte{0, 0, 0, 0})
	siteOff, _ := c.Append([]byte{0, 0, 0, 0})
	tbl.Record(0x9000, 0)

	linked, err := l.LinkOrDefer(siteOff, 0x9000, elt.SiteDirectJump)
	if err != nil {
		t.Fatalf("LinkOrDefer: %v", err)
	}
	if !linked {
		t.Error("LinkOrDefer returned false when target was already known")
	}
}

func TestLinkOrDeferPendsWhenTargetUnknown(t *testing.T) {
	l, c, tbl := newLinker(t)

	siteOff, _ := c.Append([]byte{0, 0, 0, 0})
	linked, err := l.LinkOrDefer(siteOff, 0xbeef, elt.SiteDirectJump)
	if err != nil {
		t.Fatalf("LinkOrDefer: %v", err)
	}
	if linked {
		t.Error("LinkOrDefer returned true for an unresolved target")
	}
	if got := tbl.PendingCount(); got != 1 {
		t.Errorf("PendingCount() = %d, want 1", got)
	}
}

func TestLinkOrDeferOutOfRangeStaysUnlinkedWithoutError(t *testing.T) {
	l, c, tbl := newLinker(t)

	siteOff, _ := c.Append([]byte{0, 0, 0, 0})
	// A target more than +-1MiB from siteOff cannot be reached by a single
	// JAL; spec §7 treats this as recoverable, not fatal.
	tbl.Record(0x9000, siteOff+(2<<20))

	linked, err := l.LinkOrDefer(siteOff, 0x9000, elt.SiteDirectJump)
	if err != nil {
		t.Fatalf("LinkOrDefer returned an error for an out-of-range displacement: %v", err)
	}
	if linked {
		t.Error("LinkOrDefer reported linked=true for a displacement outside JAL's range")
	}
}

func TestRecordTargetDrainsPending(t *testing.T) {
	l, c, tbl := newLinker(t)

	siteOff, _ := c.Append([]byte{0, 0, 0, 0})
	if _, err := l.LinkOrDefer(siteOff, 0xcafe, elt.SiteDirectJump); err != nil {
		t.Fatalf("LinkOrDefer: %v", err)
	}
	targetOff, _ := c.Append([]byte{0, 0, 0, 0})

	if err := l.RecordTarget(0xcafe, targetOff); err != nil {
		t.Fatalf("RecordTarget: %v", err)
	}
	if got := tbl.PendingCount(); got != 0 {
		t.Errorf("PendingCount() after RecordTarget = %d, want 0", got)
	}
}
