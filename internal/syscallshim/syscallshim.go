// Package syscallshim implements the per-syscall-number handler table
// from spec §4.8: forward, emulate, or reject each guest ECALL, then let
// the dispatcher resume at ecall_next.
//
// Grounded on the teacher's internal/stubs/registry.go self-registering
// handler-table idiom (Register/RegisterFunc keyed by a symbol name),
// re-keyed here by Newlib RISC-V syscall number instead of libc symbol
// name, since a static Newlib ELF makes syscalls directly rather than
// through PLT-resolved imports.
package syscallshim

import (
	"fmt"
	"sync"

	"github.com/wraithcore/rvjit/internal/log"
	"github.com/wraithcore/rvjit/internal/regfile"
)

// Disposition names how a handler resolved a syscall, for logging and
// for internal/trace's event stream.
type Disposition uint8

const (
	Forwarded Disposition = iota
	Emulated
	Rejected
)

func (d Disposition) String() string {
	switch d {
	case Forwarded:
		return "forward"
	case Emulated:
		return "emulate"
	case Rejected:
		return "reject"
	default:
		return "unknown"
	}
}

// HandlerFunc services one guest syscall. It reads arguments from
// rf.SyscallArgs (already loaded per the RISC-V Newlib ABI: a7 = number,
// a0-a5 = args) and must call rf.StoreSyscallResult to set a0 before
// returning, unless it sets rf.ExitedGuest (the `exit`/`exit_group`
// case).
type HandlerFunc func(rf *regfile.RegFile) (Disposition, error)

// Shim is the per-number handler table.
type Shim struct {
	mu       sync.RWMutex
	handlers map[uint64]HandlerFunc
	fallback HandlerFunc // used when no handler is registered for a number
}

// New returns a shim whose fallback rejects any unregistered syscall
// number, matching spec §7's "reject" error kind.
func New() *Shim {
	return &Shim{
		handlers: make(map[uint64]HandlerFunc, 64),
		fallback: rejectUnknown,
	}
}

// Register installs the handler for a syscall number, replacing any
// prior registration.
func (s *Shim) Register(num uint64, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[num] = fn
}

// SetFallback overrides the default reject-unknown behavior, e.g. to log
// and return -ENOSYS instead of aborting.
func (s *Shim) SetFallback(fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = fn
}

// Handle services rf's staged syscall (rf.LoadSyscallABI must already
// have been called; the engine's cache-entry trampoline does so after
// every exit) and records its disposition via internal/log.
func (s *Shim) Handle(rf *regfile.RegFile) error {
	s.mu.RLock()
	fn, ok := s.handlers[rf.SyscallNum]
	fallback := s.fallback
	s.mu.RUnlock()

	if !ok {
		fn = fallback
	}

	disp, err := fn(rf)
	if log.L != nil {
		log.L.Event(rf.PC, "syscall", fmt.Sprintf("num=%d disp=%s", rf.SyscallNum, disp))
	}
	if err != nil {
		return fmt.Errorf("syscallshim: number %d: %w", rf.SyscallNum, err)
	}
	return nil
}

// rejectUnknown is the default fallback: an unregistered syscall number
// is a hard error, per spec §7's "reject" disposition.
func rejectUnknown(rf *regfile.RegFile) (Disposition, error) {
	return Rejected, fmt.Errorf("no handler registered for syscall %d", rf.SyscallNum)
}

// Newlib RISC-V syscall numbers, mirroring the subset a statically
// linked Newlib binary actually issues. RegisterDefaults installs a
// handler for each of them except SysWritev.
const (
	SysExit      = 93
	SysExitGroup = 94
	SysRead      = 63
	SysWrite     = 64
	SysClose     = 57
	SysBrk       = 214
	SysWritev    = 66
)

// RegisterDefaults installs forward/emulate handlers for the syscall
// numbers a static Newlib rv64gc binary is expected to issue, using
// hostWrite/hostRead as the actual I/O forwarding functions (normally
// os.Stdout/os.Stdin, injected so tests can substitute buffers).
func (s *Shim) RegisterDefaults(hostWrite func(fd int, p []byte) (int, error), hostRead func(fd int, p []byte) (int, error), guestMem func(addr uint64, n int) []byte) {
	s.Register(SysExit, handleExit)
	s.Register(SysExitGroup, handleExit)
	s.Register(SysBrk, handleBrk)
	s.Register(SysWrite, makeWriteHandler(hostWrite, guestMem))
	s.Register(SysRead, makeReadHandler(hostRead, guestMem))
	s.Register(SysClose, handleClose)
}

// handleExit implements spec §4.8's "emulate (e.g., exit, which must
// terminate the guest without terminating the engine prematurely)".
func handleExit(rf *regfile.RegFile) (Disposition, error) {
	rf.ExitCode = int(int64(rf.SyscallArgs[0]))
	rf.ExitedGuest = true
	return Emulated, nil
}

// handleBrk emulates the minimal brk contract Newlib's malloc needs:
// report the requested break as granted. A real allocator-arena
// implementation is out of this engine's scope (spec Non-goals).
func handleBrk(rf *regfile.RegFile) (Disposition, error) {
	requested := rf.SyscallArgs[0]
	rf.StoreSyscallResult(requested)
	return Emulated, nil
}

// handleClose emulates close() as a no-op success, since guest fds below
// 3 are the only ones this engine's I/O forwarding recognizes.
func handleClose(rf *regfile.RegFile) (Disposition, error) {
	rf.StoreSyscallResult(0)
	return Emulated, nil
}

// makeWriteHandler returns a handler that forwards write(fd, buf, n) to
// the host, translating the guest buffer pointer via guestMem, per spec
// §4.8's "translating argument pointers as needed so the guest sees host
// results in its expected layout."
func makeWriteHandler(hostWrite func(fd int, p []byte) (int, error), guestMem func(addr uint64, n int) []byte) HandlerFunc {
	return func(rf *regfile.RegFile) (Disposition, error) {
		fd := int(rf.SyscallArgs[0])
		addr := rf.SyscallArgs[1]
		n := int(rf.SyscallArgs[2])
		buf := guestMem(addr, n)
		written, err := hostWrite(fd, buf)
		if err != nil {
			rf.StoreSyscallResult(^uint64(0)) // -1
			return Forwarded, nil
		}
		rf.StoreSyscallResult(uint64(written))
		return Forwarded, nil
	}
}

// makeReadHandler is the read() counterpart of makeWriteHandler.
func makeReadHandler(hostRead func(fd int, p []byte) (int, error), guestMem func(addr uint64, n int) []byte) HandlerFunc {
	return func(rf *regfile.RegFile) (Disposition, error) {
		fd := int(rf.SyscallArgs[0])
		addr := rf.SyscallArgs[1]
		n := int(rf.SyscallArgs[2])
		buf := guestMem(addr, n)
		read, err := hostRead(fd, buf)
		if err != nil {
			rf.StoreSyscallResult(^uint64(0))
			return Forwarded, nil
		}
		rf.StoreSyscallResult(uint64(read))
		return Forwarded, nil
	}
}
