package isa

import "encoding/binary"

// Encoder assembles instruction words. It is used by the allocator both to
// re-emit translated guest instructions verbatim and to synthesize the
// fixup/exit sequences described in spec §4.2-§4.5.
type Encoder struct{}

// NewEncoder returns a ready-to-use Encoder.
func NewEncoder() *Encoder { return &Encoder{} }

// Put32 appends a little-endian 32-bit instruction word to buf.
func (e *Encoder) Put32(buf []byte, word uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], word)
	return append(buf, b[:]...)
}

// Put16 appends a little-endian 16-bit compressed instruction word to buf.
func (e *Encoder) Put16(buf []byte, word uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], word)
	return append(buf, b[:]...)
}

// RType assembles an R-format word.
func (e *Encoder) RType(opcode, funct3, funct7, rd, rs1, rs2 uint32) uint32 {
	return (opcode & 0x7f) | ((rd & 0x1f) << 7) | ((funct3 & 0x7) << 12) |
		((rs1 & 0x1f) << 15) | ((rs2 & 0x1f) << 20) | ((funct7 & 0x7f) << 25)
}

// IType assembles an I-format word.
func (e *Encoder) IType(opcode, funct3, rd, rs1 uint32, imm int32) uint32 {
	return (opcode & 0x7f) | ((rd & 0x1f) << 7) | ((funct3 & 0x7) << 12) |
		((rs1 & 0x1f) << 15) | (uint32(imm&0xfff) << 20)
}

// SType assembles an S-format word.
func (e *Encoder) SType(opcode, funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	return (opcode & 0x7f) | ((u & 0x1f) << 7) | ((funct3 & 0x7) << 12) |
		((rs1 & 0x1f) << 15) | ((rs2 & 0x1f) << 20) | (((u >> 5) & 0x7f) << 25)
}

// BType assembles a B-format word.
func (e *Encoder) BType(opcode, funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	return (opcode & 0x7f) |
		(((u >> 11) & 0x1) << 7) | (((u >> 1) & 0xf) << 8) |
		((funct3 & 0x7) << 12) | ((rs1 & 0x1f) << 15) | ((rs2 & 0x1f) << 20) |
		(((u >> 5) & 0x3f) << 25) | (((u >> 12) & 0x1) << 31)
}

// UType assembles a U-format word. imm is the raw upper-20-bits value
// already shifted into bit position (i.e. the caller passes a value where
// only bits [31:12] may be set).
func (e *Encoder) UType(opcode, rd, imm uint32) uint32 {
	return (opcode & 0x7f) | ((rd & 0x1f) << 7) | (imm & 0xfffff000)
}

// JType assembles a J-format word.
func (e *Encoder) JType(opcode, rd uint32, imm int32) uint32 {
	u := uint32(imm)
	return (opcode & 0x7f) | ((rd & 0x1f) << 7) |
		(((u >> 12) & 0xff) << 12) | (((u >> 11) & 0x1) << 20) |
		(((u >> 1) & 0x3ff) << 21) | (((u >> 20) & 0x1) << 31)
}

// Per-mnemonic helpers used heavily by the allocator's fixup/exit emitters.

func (e *Encoder) Addi(rd, rs1 uint32, imm int32) uint32 { return e.IType(0x13, 0, rd, rs1, imm) }
func (e *Encoder) Add(rd, rs1, rs2 uint32) uint32        { return e.RType(0x33, 0, 0, rd, rs1, rs2) }
func (e *Encoder) Sub(rd, rs1, rs2 uint32) uint32        { return e.RType(0x33, 0, 0x20, rd, rs1, rs2) }
func (e *Encoder) Ori(rd, rs1 uint32, imm int32) uint32  { return e.IType(0x13, 6, rd, rs1, imm) }
func (e *Encoder) Slli(rd, rs1, shamt uint32) uint32 {
	return e.IType(0x13, 1, rd, rs1, int32(shamt))
}
func (e *Encoder) Srli(rd, rs1, shamt uint32) uint32 {
	return e.IType(0x13, 5, rd, rs1, int32(shamt))
}
func (e *Encoder) Or(rd, rs1, rs2 uint32) uint32 { return e.RType(0x33, 6, 0, rd, rs1, rs2) }
func (e *Encoder) Lui(rd uint32, imm uint32) uint32 { return e.UType(0x37, rd, imm) }
func (e *Encoder) Auipc(rd uint32, imm uint32) uint32 {
	return e.UType(0x17, rd, imm)
}
func (e *Encoder) Jal(rd uint32, imm int32) uint32   { return e.JType(0x6f, rd, imm) }
func (e *Encoder) Jalr(rd, rs1 uint32, imm int32) uint32 {
	return e.IType(0x67, 0, rd, rs1, imm)
}
func (e *Encoder) Ld(rd, rs1 uint32, imm int32) uint32 { return e.IType(0x03, 3, rd, rs1, imm) }
func (e *Encoder) Sd(rs1, rs2 uint32, imm int32) uint32 { return e.SType(0x23, 3, rs1, rs2, imm) }
func (e *Encoder) Beq(rs1, rs2 uint32, imm int32) uint32 {
	return e.BType(0x63, 0, rs1, rs2, imm)
}

// LoadImmediate returns the canonical multi-instruction sequence that
// materializes an arbitrary 64-bit immediate into reg, per spec §4.6:
// lui+addi to build the high 32 bits in reg, a slli by 32 to place them,
// lui+addi plus a slli/srli pair by 32 to build the zero-extended low 32
// bits in scratch, then an or to combine.
// scratch is clobbered; callers (the allocator's fixups and exit staging) are
// responsible for treating it as a caller-saved temporary, exactly like
// the scratch registers the context-switch exit sequence already saves
// into the RSA.
func (e *Encoder) LoadImmediate(reg, scratch uint32, value uint64) []uint32 {
	hi32 := uint32(value >> 32)
	lo32 := uint32(value)

	words := e.load32(reg, hi32)
	words = append(words, e.Slli(reg, reg, 32))

	// lui+addi sign-extends lo32 into scratch's upper 32 bits when lo32's
	// bit 31 is set; zero them before OR-ing so they cannot corrupt the
	// high half already placed in reg.
	words = append(words, e.load32(scratch, lo32)...)
	words = append(words, e.Slli(scratch, scratch, 32))
	words = append(words, e.Srli(scratch, scratch, 32))
	words = append(words, e.Or(reg, reg, scratch))
	return words
}

// load32 returns the lui+addi pair that materializes a 32-bit pattern
// (sign-extended per RV64 semantics, which is corrected for by the caller
// via the subsequent shift-and-mask dance in LoadImmediate).
func (e *Encoder) load32(reg uint32, v32 uint32) []uint32 {
	upper20 := (v32 + (1 << 11)) >> 12
	lower12 := int32(v32) - int32(upper20<<12)
	return []uint32{
		e.Lui(reg, upper20<<12),
		e.Addi(reg, reg, lower12&0xfff),
	}
}
