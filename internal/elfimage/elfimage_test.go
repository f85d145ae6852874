package elfimage

import (
	"debug/elf"
	"testing"
)

func newTestImage() *Image {
	return &Image{
		Symbols: make(map[string]uint64),
		ByAddr:  make(map[uint64]string),
		mem:     make(map[uint64][]byte),
	}
}

func TestMapSegmentZeroFillsBSSTail(t *testing.T) {
	img := newTestImage()
	seg := Segment{
		VAddr: 0x1000,
		Size:  4,
		MemSz: 16, // 4 bytes of data, 12 bytes of .bss
		Flags: elf.PF_R | elf.PF_W,
		Data:  []byte{1, 2, 3, 4},
	}
	img.mapSegment(seg)

	got := img.ReadMem(0x1000, 16)
	want := []byte{1, 2, 3, 4, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ReadMem[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestMapSegmentSpansPageBoundary(t *testing.T) {
	img := newTestImage()
	data := make([]byte, 16)
	for i := range data {
		data[i] = byte(i + 1)
	}
	seg := Segment{VAddr: pageSize - 8, Size: 16, MemSz: 16, Data: data}
	img.mapSegment(seg)

	got := img.ReadMem(pageSize-8, 16)
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("ReadMem[%d] = %d, want %d", i, got[i], data[i])
		}
	}
}

func TestWriteMemThenReadMem(t *testing.T) {
	img := newTestImage()
	img.WriteMem(0x2000, []byte("hello"))
	got := img.ReadMem(0x2000, 5)
	if string(got) != "hello" {
		t.Errorf("ReadMem = %q, want %q", got, "hello")
	}
}

func TestReadMemUnmappedIsZero(t *testing.T) {
	img := newTestImage()
	got := img.ReadMem(0x5000, 4)
	for _, b := range got {
		if b != 0 {
			t.Fatalf("ReadMem of unmapped region returned non-zero byte %d", b)
		}
	}
}

func TestFetchAtBoundsCheck(t *testing.T) {
	img := newTestImage()
	img.TextBase = 0x1000
	img.TextSize = 0x100
	img.WriteMem(0x1000, []byte{0xaa, 0xbb})

	if _, err := img.FetchAt(0x2000, 4); err == nil {
		t.Error("FetchAt outside .text should error")
	}
	buf, err := img.FetchAt(0x1000, 2)
	if err != nil {
		t.Fatalf("FetchAt: %v", err)
	}
	if buf[0] != 0xaa || buf[1] != 0xbb {
		t.Errorf("FetchAt returned %v, want [0xaa 0xbb]", buf)
	}
}

func TestFindSymbolAndFindName(t *testing.T) {
	img := newTestImage()
	img.Symbols["main"] = 0x4000
	img.ByAddr[0x4000] = "main"

	if img.FindSymbol("main") != 0x4000 {
		t.Error("FindSymbol did not resolve main")
	}
	if img.FindSymbol("missing") != 0 {
		t.Error("FindSymbol should return 0 for unknown names")
	}
	name, ok := img.FindName(0x4000)
	if !ok || name != "main" {
		t.Errorf("FindName(0x4000) = (%q, %v), want (main, true)", name, ok)
	}
	if _, ok := img.FindName(0x9999); ok {
		t.Error("FindName should miss for an unmapped address")
	}
}
