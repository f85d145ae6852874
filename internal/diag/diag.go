// Package diag implements the flush-time code-cache checksum
// diagnostic: a blake2b digest of the cache's live bytes taken
// immediately before a flush, so a bug report can prove which
// generation of translated code was running when a fault occurred.
//
// Grounded on the teacher's dependency on golang.org/x/crypto (blake2b),
// wired here since nothing else in the teacher's own package set called
// it directly in the retrieved subset; this gives it a genuine call
// site.
package diag

import (
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Checksum is a single flush-time digest, tagged with the generation it
// covers.
type Checksum struct {
	Generation int
	Digest     [blake2b.Size256]byte
}

// String renders the digest as a short hex-prefixed identifier suitable
// for a fatal-error report.
func (c Checksum) String() string {
	return fmt.Sprintf("gen%d:%x", c.Generation, c.Digest[:8])
}

// Ledger accumulates one checksum per explicit flush; Engine.Flush
// records into it just before it flushes the code cache.
type Ledger struct {
	entries []Checksum
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger { return &Ledger{} }

// Record computes and appends the checksum for a flush of generation
// gen over the cache bytes live at flush time.
func (l *Ledger) Record(gen int, cacheBytes []byte) Checksum {
	sum := blake2b.Sum256(cacheBytes)
	c := Checksum{Generation: gen, Digest: sum}
	l.entries = append(l.entries, c)
	return c
}

// Last returns the most recently recorded checksum, if any.
func (l *Ledger) Last() (Checksum, bool) {
	if len(l.entries) == 0 {
		return Checksum{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// All returns every recorded checksum in generation order.
func (l *Ledger) All() []Checksum { return l.entries }
