package bbt

import "testing"

func TestInsertAndLookup(t *testing.T) {
	tbl := New()
	d := tbl.Insert(0x1000, func(d *Descriptor) {
		d.FirstAddr = 0x1000
		d.CacheStart = 0
		d.InsnCount = 3
	})
	if d.InsnCount != 3 {
		t.Fatalf("InsnCount = %d, want 3", d.InsnCount)
	}

	got, ok := tbl.Lookup(0x1000)
	if !ok {
		t.Fatal("Lookup(0x1000) missing after Insert")
	}
	if got != d {
		t.Error("Lookup returned a different pointer than Insert")
	}
}

func TestLookupMiss(t *testing.T) {
	tbl := New()
	if _, ok := tbl.Lookup(0xdead); ok {
		t.Error("Lookup on empty table should miss")
	}
}

func TestArenaGrowth(t *testing.T) {
	tbl := New()
	for i := 0; i < arenaChunkSize+10; i++ {
		addr := uint64(0x1000 + i*4)
		tbl.Insert(addr, func(d *Descriptor) { d.FirstAddr = addr })
	}
	if tbl.Len() != arenaChunkSize+10 {
		t.Errorf("Len() = %d, want %d", tbl.Len(), arenaChunkSize+10)
	}
	if len(tbl.arena) < 2 {
		t.Errorf("expected arena to grow past one chunk, got %d chunks", len(tbl.arena))
	}
}

func TestResetClearsTable(t *testing.T) {
	tbl := New()
	tbl.Insert(0x2000, func(d *Descriptor) {})
	tbl.Reset()
	if tbl.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", tbl.Len())
	}
	if _, ok := tbl.Lookup(0x2000); ok {
		t.Error("Lookup should miss after Reset")
	}
}
