package colorize

import (
	"fmt"
	"os"
)

// IsDisabled returns true if colors are disabled via environment.
func IsDisabled() bool {
	return os.Getenv("RVJIT_NO_COLOR") != "" || os.Getenv("NO_COLOR") != ""
}

func apply(s string, style interface{ Render(...string) string }) string {
	if IsDisabled() {
		return s
	}
	return style.Render(s)
}

// Mnemonic colorizes a decoded mnemonic name (e.g. "JALR", "C.BEQZ").
func Mnemonic(s string) string { return apply(s, mnemonicStyle) }

// Register colorizes a register name (e.g. "a0", "ra").
func Register(s string) string { return apply(s, registerStyle) }

// Address formats a guest or cache address in hex, colorized.
func Address(addr uint64) string {
	s := fmt.Sprintf("0x%016x", addr)
	if IsDisabled() {
		return s
	}
	return addressStyle.Render(s)
}

// Label formats a symbol name.
func Label(name string) string { return apply(name, labelStyle) }

// Number formats an immediate or count.
func Number(s string) string { return apply(s, numberStyle) }

// Detail formats free-text detail, mirroring the teacher's dim
// "additional info" styling.
func Detail(s string) string { return apply(s, hexBytesStyle) }

// Comment formats an inline comment.
func Comment(s string) string { return apply(s, commentStyle) }

// String formats a string literal (e.g. a forwarded write() payload
// preview).
func String(s string) string { return apply(s, stringStyle) }

// Border formats box-drawing / separator characters for the stats TUI.
func Border(s string) string { return apply(s, borderStyle) }

// Header formats a section header.
func Header(s string) string { return apply(s, headerStyle) }

// Error formats a fatal-engine-error line.
func Error(s string) string { return apply(s, errorStyle) }

// Terminator colorizes a terminator-kind tag (e.g. "syscall", "branch").
func Terminator(kind string) string {
	switch kind {
	case "syscall":
		return apply(kind, errorStyle)
	case "indirect-jump":
		return apply(kind, labelStyle)
	default:
		return apply(kind, registerStyle)
	}
}
