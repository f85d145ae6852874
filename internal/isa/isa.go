// Package isa implements the rv64gc decoder and encoder consumed by the
// allocator. Per the engine's design, this layer is deliberately mechanical:
// bit-field extraction and reassembly against a fixed instruction set. The
// interesting engineering lives one level up, in internal/allocator and
// internal/dispatcher.
package isa

// Format identifies an instruction's encoding shape, including the
// compressed (RVC) quadrants.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatR
	FormatI
	FormatS
	FormatB
	FormatU
	FormatJ
	FormatR4   // fused multiply-add
	FormatRAMO // atomic read-modify-write (A extension)
	FormatCR
	FormatCI
	FormatCSS
	FormatCIW
	FormatCL
	FormatCS
	FormatCA
	FormatCB
	FormatCJ
)

// Mnemonic identifies a decoded instruction independent of its encoding.
type Mnemonic uint16

const (
	MnUnknown Mnemonic = iota
	MnLUI
	MnAUIPC
	MnJAL
	MnJALR
	MnBEQ
	MnBNE
	MnBLT
	MnBGE
	MnBLTU
	MnBGEU
	MnLB
	MnLH
	MnLW
	MnLD
	MnLBU
	MnLHU
	MnLWU
	MnSB
	MnSH
	MnSW
	MnSD
	MnADDI
	MnSLTI
	MnSLTIU
	MnXORI
	MnORI
	MnANDI
	MnSLLI
	MnSRLI
	MnSRAI
	MnADD
	MnSUB
	MnSLL
	MnSLT
	MnSLTU
	MnXOR
	MnSRL
	MnSRA
	MnOR
	MnAND
	MnADDIW
	MnSLLIW
	MnSRLIW
	MnSRAIW
	MnADDW
	MnSUBW
	MnSLLW
	MnSRLW
	MnSRAW
	MnMUL
	MnMULH
	MnMULHSU
	MnMULHU
	MnDIV
	MnDIVU
	MnREM
	MnREMU
	MnMULW
	MnDIVW
	MnDIVUW
	MnREMW
	MnREMUW
	MnFENCE
	MnECALL
	MnEBREAK
	MnFLW
	MnFLD
	MnFSW
	MnFSD
	MnFADD
	MnFSUB
	MnFMUL
	MnFDIV
	// Compressed forms that survive as first-class mnemonics because the
	// allocator's terminator/transparency logic must special-case them.
	MnCJ
	MnCJR
	MnCJALR
	MnCBEQZ
	MnCBNEZ
	mnemonicCount
)

// GroupID is a user-assignable instruction group tag (spec §6), consulted
// by the callback registry for per-group instrumentation.
type GroupID uint32

// NoGroup is the zero value meaning "ungrouped".
const NoGroup GroupID = 0

// Instruction is the decoder's structured output for one 16- or 32-bit
// guest word.
type Instruction struct {
	Raw      uint32 // as fetched; only the low 16 bits are meaningful if Compressed
	Addr     uint64 // guest address this word was fetched from
	Size     uint8  // 2 or 4
	Format   Format
	Mnemonic Mnemonic
	Group    GroupID

	Opcode uint8
	Funct3 uint8
	Funct5 uint8
	Funct6 uint8
	Funct7 uint8
	Rd     uint8
	Rs1    uint8
	Rs2    uint8
	Rs3    uint8
	Imm    int64 // sign-extended per format
	Aq     bool
	Rl     bool
}

// Compressed reports whether the instruction was a 16-bit RVC form.
func (in *Instruction) Compressed() bool { return in.Size == 2 }

// IsTerminator reports whether this instruction ends a basic block per
// spec §4.2: any control-flow instruction, or ECALL/EBREAK. Callback-forced
// segmentation is handled by the allocator, not here.
func (in *Instruction) IsTerminator() bool {
	switch in.Mnemonic {
	case MnJAL, MnJALR, MnCJ, MnCJR, MnCJALR,
		MnBEQ, MnBNE, MnBLT, MnBGE, MnBLTU, MnBGEU, MnCBEQZ, MnCBNEZ,
		MnECALL, MnEBREAK:
		return true
	}
	return false
}

// IsBranch reports whether the instruction is a conditional branch.
func (in *Instruction) IsBranch() bool {
	switch in.Mnemonic {
	case MnBEQ, MnBNE, MnBLT, MnBGE, MnBLTU, MnBGEU, MnCBEQZ, MnCBNEZ:
		return true
	}
	return false
}

// IsDirectJump reports whether the instruction is an unconditional direct
// jump (JAL / C.J, including the common rd=x0 "goto" idiom).
func (in *Instruction) IsDirectJump() bool {
	return in.Mnemonic == MnJAL || in.Mnemonic == MnCJ
}

// IsIndirectJump reports whether the instruction is a register-indirect
// jump (JALR / C.JR / C.JALR).
func (in *Instruction) IsIndirectJump() bool {
	switch in.Mnemonic {
	case MnJALR, MnCJR, MnCJALR:
		return true
	}
	return false
}

// IsSyscall reports whether the instruction is ECALL.
func (in *Instruction) IsSyscall() bool { return in.Mnemonic == MnECALL }

// WritesLink reports whether the instruction writes a return address into
// Rd (JAL/JALR family), which requires the link-register transparency
// fixup from spec §4.2.
func (in *Instruction) WritesLink() bool {
	switch in.Mnemonic {
	case MnJAL, MnJALR, MnCJALR:
		return true
	}
	return false
}

// IsAUIPC reports whether this is a PC-relative-value instruction
// requiring the AUIPC transparency fixup.
func (in *Instruction) IsAUIPC() bool { return in.Mnemonic == MnAUIPC }

// TargetAddr returns the statically-known branch/jump target for direct
// control-flow instructions, or (0, false) for indirect ones.
func (in *Instruction) TargetAddr() (uint64, bool) {
	switch in.Mnemonic {
	case MnJAL, MnCJ, MnBEQ, MnBNE, MnBLT, MnBGE, MnBLTU, MnBGEU, MnCBEQZ, MnCBNEZ:
		return uint64(int64(in.Addr) + in.Imm), true
	}
	return 0, false
}

// FallthroughAddr returns the address immediately following this
// instruction in program order.
func (in *Instruction) FallthroughAddr() uint64 {
	return in.Addr + uint64(in.Size)
}
