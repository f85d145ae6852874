//go:build riscv64

package engine

import (
	"github.com/wraithcore/rvjit/internal/asmentry"
	"github.com/wraithcore/rvjit/internal/regfile"
)

// enterCache is the EnterCache function the dispatcher calls to hand
// control to the cache. The code cache emits real rv64gc opcodes into its
// own RWX region (spec §1: "the guest and engine share one address
// space"), so entering it is not a cross-architecture cast-to-function-
// pointer trick the way it would be on a host running a different ISA
// from the guest - it is a direct jump on the same hardware, mediated by
// asmentry.Enter's register-swap trampoline (grounded on the teacher's
// pkg/pvm/jit/call_amd64.go + asm.CallJITCode).
//
// asmentry.Enter loads rf.GPR into the physical register file, jumps to
// the cache address, and writes the physical registers back into rf.GPR
// once the cache exits back through hostLinkReg. LoadIndirectTarget then
// stages whatever the exiting block computed into IdentGPR (harmless
// no-op unless the block was an indirect jump), and LoadSyscallABI stages
// a7/a0..a5 for the syscall shim the same way (harmless unless the block
// ended in ECALL).
func (e *Engine) enterCache(rf *regfile.RegFile, cacheOffset int) error {
	entry := e.cache.Base() + uintptr(cacheOffset)
	asmentry.Enter(entry, &rf.GPR)
	rf.LoadIndirectTarget()
	rf.LoadSyscallABI()
	return nil
}
