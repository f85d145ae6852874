package stub

import (
	"testing"

	"github.com/wraithcore/rvjit/internal/codecache"
	"github.com/wraithcore/rvjit/internal/isa"
)

func newSet(t *testing.T) (*Set, *codecache.Cache) {
	t.Helper()
	c, err := codecache.New(1 << 16)
	if err != nil {
		t.Fatalf("codecache.New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return New(c, isa.NewEncoder()), c
}

func TestMaterializeThenReachable(t *testing.T) {
	s, _ := newSet(t)
	r, err := s.Materialize(KindContextSwitchExit, []byte{0, 0, 0, 0})
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	got, ok := s.Reachable(KindContextSwitchExit, r.CacheStart+8)
	if !ok || got != r {
		t.Errorf("Reachable near region = (%v, %v), want (%v, true)", got, ok, r)
	}
}

func TestReachableMissWhenNoRegion(t *testing.T) {
	s, _ := newSet(t)
	if _, ok := s.Reachable(KindSyscallEntry, 0); ok {
		t.Error("Reachable true with no region materialized")
	}
}

func TestReachableMissWhenTooFar(t *testing.T) {
	s, _ := newSet(t)
	r, err := s.Materialize(KindCallbackTrampoline, []byte{0, 0, 0, 0})
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	_, ok := s.Reachable(KindCallbackTrampoline, r.CacheStart+ToleranceBytes+1000)
	if ok {
		t.Error("Reachable true beyond ToleranceBytes")
	}
}

func TestResetClearsRegions(t *testing.T) {
	s, _ := newSet(t)
	s.Materialize(KindContextSwitchExit, []byte{0, 0, 0, 0})
	s.Reset()
	if _, ok := s.Get(KindContextSwitchExit); ok {
		t.Error("Get returned a region after Reset")
	}
}
