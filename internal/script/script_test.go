package script

import (
	"testing"

	"github.com/wraithcore/rvjit/internal/callback"
	"github.com/wraithcore/rvjit/internal/regfile"
)

func TestRegisterRuntimeFromScript(t *testing.T) {
	reg := callback.New()
	h := New(reg)

	src := `
		registerRuntime(SCOPE_BB, PHASE_PRE, function(addr, rf) {
			rf.setX(10, 99);
		});
	`
	if err := h.Run("test.js", src); err != nil {
		t.Fatalf("Run: %v", err)
	}

	fn, ok := reg.Runtime(callback.ScopeBB, callback.PhasePre)
	if !ok {
		t.Fatal("script did not register a BB-PRE runtime callback")
	}

	rf := regfile.New()
	fn(rf, 0x1000)
	if rf.X(10) != 99 {
		t.Errorf("X(10) = %d, want 99 after script callback ran", rf.X(10))
	}
}

func TestRegisterByTypeUnknownMnemonicIsIgnored(t *testing.T) {
	reg := callback.New()
	h := New(reg)

	src := `registerByType("NOPE", PHASE_PRE, function(addr, rf) {});`
	if err := h.Run("test.js", src); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// No mnemonic matched "NOPE", so nothing should be registered; this is
	// really just confirming Run doesn't error on an unrecognized name.
}

func TestRunCompileError(t *testing.T) {
	h := New(callback.New())
	if err := h.Run("bad.js", "this is not valid javascript {{{"); err == nil {
		t.Error("Run with invalid JS should return an error")
	}
}
