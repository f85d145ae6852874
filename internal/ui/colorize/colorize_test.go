package colorize

import (
	"os"
	"testing"
)

func TestIsDisabledRespectsEnv(t *testing.T) {
	os.Unsetenv("RVJIT_NO_COLOR")
	os.Unsetenv("NO_COLOR")
	if IsDisabled() {
		t.Fatal("IsDisabled() true with no relevant env vars set")
	}

	os.Setenv("NO_COLOR", "1")
	t.Cleanup(func() { os.Unsetenv("NO_COLOR") })
	if !IsDisabled() {
		t.Error("IsDisabled() false with NO_COLOR set")
	}
}

func TestApplyPassesThroughWhenDisabled(t *testing.T) {
	os.Setenv("RVJIT_NO_COLOR", "1")
	t.Cleanup(func() { os.Unsetenv("RVJIT_NO_COLOR") })

	if got := Mnemonic("JALR"); got != "JALR" {
		t.Errorf("Mnemonic() = %q, want unstyled %q when colors disabled", got, "JALR")
	}
	if got := Address(0x1000); got != "0x0000000000001000" {
		t.Errorf("Address() = %q, want unstyled hex", got)
	}
}

func TestTerminatorSwitchesStyleByKind(t *testing.T) {
	os.Setenv("RVJIT_NO_COLOR", "1")
	t.Cleanup(func() { os.Unsetenv("RVJIT_NO_COLOR") })

	for _, kind := range []string{"syscall", "indirect-jump", "branch"} {
		if got := Terminator(kind); got != kind {
			t.Errorf("Terminator(%q) = %q, want unstyled passthrough", kind, got)
		}
	}
}
