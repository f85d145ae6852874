// Package colorize provides terminal coloring for trace and dispatch
// log lines, built on lipgloss instead of a general-purpose lexer: the
// engine's output alphabet (addresses, mnemonics, terminator kinds,
// syscall names) is small and fixed, so a handful of named styles cover
// it without a tokenizer.
package colorize

import "github.com/charmbracelet/lipgloss"

// IDA-derived theme colors, kept from the teacher's disassembly palette.
const (
	colAddress  = "#808080"
	colMnemonic = "#FFFFFF"
	colRegister = "#87CEEB"
	colNumber   = "#FF80C0"
	colLabel    = "#FFC800"
	colComment  = "#FF8000"
	colString   = "#00FF00"
	colHexBytes = "#646464"
	colError    = "#FF80C0"
)

var (
	addressStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(colAddress))
	mnemonicStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colMnemonic))
	registerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colRegister))
	numberStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(colNumber))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(colLabel))
	commentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(colComment))
	stringStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(colString))
	hexBytesStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colHexBytes))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(colError)).Bold(true)
	borderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#505050"))
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#569CD6")).Bold(true)
)
