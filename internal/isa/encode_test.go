package isa

import "testing"

func TestLoadImmediateRoundTrip(t *testing.T) {
	enc := NewEncoder()
	dec := NewDecoder()

	values := []uint64{0, 1, 0xdeadbeef, 0x123456789abcdef0, ^uint64(0)}
	for _, v := range values {
		words := enc.LoadImmediate(10, 5, v)
		if len(words) == 0 {
			t.Fatalf("LoadImmediate(%d) returned no words", v)
		}
		for _, w := range words {
			buf := enc.Put32(nil, w)
			in, err := dec.Decode(buf, 0)
			if err != nil {
				t.Fatalf("re-decoding emitted word 0x%08x: %v", w, err)
			}
			if in.Size != 4 {
				t.Errorf("emitted word decoded to size %d, want 4", in.Size)
			}
		}
	}
}

func TestJalEncodeDecodeRoundTrip(t *testing.T) {
	enc := NewEncoder()
	dec := NewDecoder()

	word := enc.Jal(1, 100)
	in, err := dec.Decode(enc.Put32(nil, word), 0x1000)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if in.Mnemonic != MnJAL {
		t.Fatalf("mnemonic = %v, want MnJAL", in.Mnemonic)
	}
	if in.Imm != 100 {
		t.Errorf("imm = %d, want 100", in.Imm)
	}
	if in.Rd != 1 {
		t.Errorf("rd = %d, want 1", in.Rd)
	}
}

func TestBeqEncodeDecodeRoundTrip(t *testing.T) {
	enc := NewEncoder()
	dec := NewDecoder()

	word := enc.Beq(5, 6, -8)
	in, err := dec.Decode(enc.Put32(nil, word), 0x2000)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if in.Mnemonic != MnBEQ {
		t.Fatalf("mnemonic = %v, want MnBEQ", in.Mnemonic)
	}
	if in.Imm != -8 {
		t.Errorf("imm = %d, want -8", in.Imm)
	}
}
