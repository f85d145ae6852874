//go:build !riscv64

package engine

import (
	"fmt"

	"github.com/wraithcore/rvjit/internal/regfile"
)

// enterCache has no implementation on this host. The code cache emits
// real rv64gc opcodes into its own executable region (spec §1's shared
// address space), so entering it means jumping straight into that
// machine code on the same instruction set - not casting a pointer and
// calling through a foreign-ISA emulation boundary the way a cross-
// architecture DBI host would. That direct jump only exists as
// internal/asmentry's riscv64 trampoline (see entercache_riscv64.go);
// there is no meaningful fallback for a host whose physical registers
// cannot execute what the cache just wrote.
func (e *Engine) enterCache(rf *regfile.RegFile, cacheOffset int) error {
	return fmt.Errorf("engine: enterCache requires a riscv64 host to execute the code cache's native opcodes (offset=%d)", cacheOffset)
}
