// Package elfimage loads a static rv64gc Newlib ELF and exposes the
// external interfaces spec §6 requires: .text base/size/bytes,
// concatenated initialized data at its intended addresses, entry point,
// and symbol lookup by name and by address.
//
// Grounded on the teacher's internal/emulator/elf.go LoadELFAt: same
// PT_LOAD walk, same stdlib debug/elf reader, narrowed from ARM64's
// PIE/PLT/relocation machinery (irrelevant to a static, non-PIE Newlib
// binary) down to the load-and-validate subset spec §6 actually needs.
package elfimage

import (
	"debug/elf"
	"fmt"
	"os"
)

// Segment mirrors one PT_LOAD program header's mapped extent.
type Segment struct {
	VAddr uint64
	Size  uint64 // file size
	MemSz uint64 // memory size (may exceed Size for .bss)
	Flags elf.ProgFlag
	Data  []byte
}

// Image is the parsed, validated ELF plus the flat guest address space
// it describes.
type Image struct {
	Path     string
	Entry    uint64
	Symbols  map[string]uint64 // name -> address
	ByAddr   map[uint64]string // address -> name, for diagnostics/CLI info
	Segments []Segment

	TextBase uint64
	TextSize uint64
	textData []byte

	mem map[uint64][]byte // page-granular backing store for the whole image, keyed by page base
}

const pageSize = 0x1000
const pageMask = pageSize - 1

// Load opens path, validates it as a 64-bit RISC-V ELF, and returns its
// parsed image. Spec §6: "Validity checks (ELF magic, 64-bit, RISC-V
// machine type) precede use."
func Load(path string) (*Image, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("elfimage: open: %w", err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS64 {
		return nil, fmt.Errorf("elfimage: expected ELFCLASS64, got %v", f.Class)
	}
	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("elfimage: expected EM_RISCV, got %v", f.Machine)
	}

	fileData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("elfimage: read: %w", err)
	}

	img := &Image{
		Path:    path,
		Entry:   f.Entry,
		Symbols: make(map[string]uint64),
		ByAddr:  make(map[uint64]string),
		mem:     make(map[uint64][]byte),
	}

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		seg := Segment{
			VAddr: prog.Vaddr,
			Size:  prog.Filesz,
			MemSz: prog.Memsz,
			Flags: prog.Flags,
		}
		if prog.Filesz > 0 && prog.Off+prog.Filesz <= uint64(len(fileData)) {
			seg.Data = fileData[prog.Off : prog.Off+prog.Filesz]
		}
		img.Segments = append(img.Segments, seg)
		img.mapSegment(seg)

		if seg.Flags&elf.PF_X != 0 && (img.TextSize == 0 || seg.VAddr < img.TextBase) {
			img.TextBase = seg.VAddr
			img.TextSize = seg.MemSz
		}
	}

	if img.TextSize > 0 {
		img.textData = img.ReadMem(img.TextBase, int(img.TextSize))
	}

	syms, err := f.Symbols()
	if err == nil {
		for _, sym := range syms {
			if sym.Name == "" {
				continue
			}
			img.Symbols[sym.Name] = sym.Value
			if _, exists := img.ByAddr[sym.Value]; !exists {
				img.ByAddr[sym.Value] = sym.Name
			}
		}
	}

	return img, nil
}

// mapSegment copies a loaded segment's bytes into the page-granular
// backing store, zero-filling any .bss tail (Memsz > Filesz).
func (img *Image) mapSegment(seg Segment) {
	total := make([]byte, seg.MemSz)
	copy(total, seg.Data)

	base := seg.VAddr &^ pageMask
	end := (seg.VAddr + seg.MemSz + pageMask) &^ pageMask
	for page := base; page < end; page += pageSize {
		buf, ok := img.mem[page]
		if !ok {
			buf = make([]byte, pageSize)
			img.mem[page] = buf
		}
		// copy the overlap between [page, page+pageSize) and [seg.VAddr, seg.VAddr+len(total))
		segStart := seg.VAddr
		segEnd := seg.VAddr + uint64(len(total))
		lo := max64(page, segStart)
		hi := min64(page+pageSize, segEnd)
		if lo >= hi {
			continue
		}
		copy(buf[lo-page:hi-page], total[lo-segStart:hi-segStart])
	}
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// ReadMem returns n bytes starting at addr, zero-filled for any
// unmapped page (matching a static ELF's flat address space, where the
// only holes are .bss regions already zeroed by mapSegment).
func (img *Image) ReadMem(addr uint64, n int) []byte {
	out := make([]byte, n)
	remaining := uint64(n)
	cur := addr
	off := 0
	for remaining > 0 {
		page := cur &^ pageMask
		pageOff := cur - page
		chunk := min64(pageSize-pageOff, remaining)
		if buf, ok := img.mem[page]; ok {
			copy(out[off:off+int(chunk)], buf[pageOff:pageOff+chunk])
		}
		cur += chunk
		off += int(chunk)
		remaining -= chunk
	}
	return out
}

// WriteMem writes p into the guest address space starting at addr,
// growing pages on demand. Only tests call it; the syscall shim's
// handlers reach guest memory through ReadMem, which returns a copy.
func (img *Image) WriteMem(addr uint64, p []byte) {
	remaining := len(p)
	cur := addr
	off := 0
	for remaining > 0 {
		page := cur &^ pageMask
		pageOff := cur - page
		chunk := int(min64(pageSize-pageOff, uint64(remaining)))
		buf, ok := img.mem[page]
		if !ok {
			buf = make([]byte, pageSize)
			img.mem[page] = buf
		}
		copy(buf[pageOff:pageOff+uint64(chunk)], p[off:off+chunk])
		cur += uint64(chunk)
		off += chunk
		remaining -= chunk
	}
}

// FetchAt implements internal/allocator.TextSource.
func (img *Image) FetchAt(addr uint64, n int) ([]byte, error) {
	if addr < img.TextBase || addr >= img.TextBase+img.TextSize {
		return nil, fmt.Errorf("elfimage: address 0x%x outside .text [0x%x, 0x%x)", addr, img.TextBase, img.TextBase+img.TextSize)
	}
	return img.ReadMem(addr, n), nil
}

// FindSymbol looks up a symbol by name, returning 0 if not found.
func (img *Image) FindSymbol(name string) uint64 { return img.Symbols[name] }

// FindName looks up the name of the symbol whose address is exactly addr,
// for diagnostics. An address inside a symbol but not at its start is a
// miss.
func (img *Image) FindName(addr uint64) (string, bool) {
	if name, ok := img.ByAddr[addr]; ok {
		return name, true
	}
	return "", false
}
