package isa

import "testing"

func encode32(t *testing.T, opcode, rd, funct3, rs1, rs2, funct7 uint32) uint32 {
	t.Helper()
	return (opcode & 0x7f) | ((rd & 0x1f) << 7) | ((funct3 & 0x7) << 12) |
		((rs1 & 0x1f) << 15) | ((rs2 & 0x1f) << 20) | ((funct7 & 0x7f) << 25)
}

func toBytes(word uint32) []byte {
	return []byte{byte(word), byte(word >> 8), byte(word >> 16), byte(word >> 24)}
}

func TestDecodeADD(t *testing.T) {
	word := encode32(t, 0x33, 1, 0, 2, 3, 0)
	dec := NewDecoder()
	in, err := dec.Decode(toBytes(word), 0x1000)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if in.Mnemonic != MnADD {
		t.Errorf("mnemonic = %v, want MnADD", in.Mnemonic)
	}
	if in.Size != 4 {
		t.Errorf("size = %d, want 4", in.Size)
	}
	if in.IsTerminator() {
		t.Error("ADD should not be a terminator")
	}
}

func TestDecodeJAL(t *testing.T) {
	// JAL x1, +16
	imm := int32(16)
	u := uint32(imm)
	word := uint32(0x6f) | (1 << 7) |
		(((u >> 12) & 0xff) << 12) | (((u >> 11) & 0x1) << 20) |
		(((u >> 1) & 0x3ff) << 21) | (((u >> 20) & 0x1) << 31)

	dec := NewDecoder()
	in, err := dec.Decode(toBytes(word), 0x2000)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if in.Mnemonic != MnJAL {
		t.Fatalf("mnemonic = %v, want MnJAL", in.Mnemonic)
	}
	if !in.IsTerminator() {
		t.Error("JAL must be a terminator")
	}
	if !in.IsDirectJump() {
		t.Error("JAL must be a direct jump")
	}
	if !in.WritesLink() {
		t.Error("JAL with rd=x1 writes a link register")
	}
	target, ok := in.TargetAddr()
	if !ok || target != 0x2010 {
		t.Errorf("TargetAddr() = (0x%x, %v), want (0x2010, true)", target, ok)
	}
}

func TestDecodeBEQ(t *testing.T) {
	word := encode32(t, 0x63, 0, 0, 5, 6, 0)
	dec := NewDecoder()
	in, err := dec.Decode(toBytes(word), 0x3000)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if in.Mnemonic != MnBEQ {
		t.Fatalf("mnemonic = %v, want MnBEQ", in.Mnemonic)
	}
	if !in.IsBranch() || !in.IsTerminator() {
		t.Error("BEQ must be a branch and a terminator")
	}
	if in.WritesLink() {
		t.Error("BEQ does not write a link register")
	}
}

func TestDecodeCompressedJR(t *testing.T) {
	// C.JR ra: funct4=1000, rd/rs1=1 (ra), rs2=0, op=10
	word := uint16(0x8002) | (1 << 7)
	dec := NewDecoder()
	in, err := dec.Decode([]byte{byte(word), byte(word >> 8)}, 0x4000)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if in.Mnemonic != MnCJR {
		t.Fatalf("mnemonic = %v, want MnCJR", in.Mnemonic)
	}
	if in.Size != 2 {
		t.Errorf("size = %d, want 2", in.Size)
	}
	if !in.IsIndirectJump() || !in.IsTerminator() {
		t.Error("C.JR must be an indirect jump and a terminator")
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	dec := NewDecoder()
	_, err := dec.Decode(toBytes(0x0000007f), 0x5000)
	if err == nil {
		t.Fatal("expected error for reserved opcode 0x7f")
	}
	if _, ok := err.(*ErrUnknownOpcode); !ok {
		t.Errorf("error type = %T, want *ErrUnknownOpcode", err)
	}
}

func TestFallthroughAddr(t *testing.T) {
	in := Instruction{Addr: 0x100, Size: 4}
	if got := in.FallthroughAddr(); got != 0x104 {
		t.Errorf("FallthroughAddr() = 0x%x, want 0x104", got)
	}
	in.Size = 2
	if got := in.FallthroughAddr(); got != 0x102 {
		t.Errorf("FallthroughAddr() = 0x%x, want 0x102", got)
	}
}
