package syscallshim

import (
	"errors"
	"testing"

	"github.com/wraithcore/rvjit/internal/regfile"
)

func TestHandleUnknownSyscallRejected(t *testing.T) {
	s := New()
	rf := regfile.New()
	rf.SyscallNum = 999

	if err := s.Handle(rf); err == nil {
		t.Error("Handle on an unregistered syscall number should error")
	}
}

func TestHandleExitSetsExitedGuest(t *testing.T) {
	s := New()
	s.Register(SysExit, handleExit)

	rf := regfile.New()
	rf.SyscallNum = SysExit
	rf.SyscallArgs[0] = 7

	if err := s.Handle(rf); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !rf.ExitedGuest {
		t.Error("ExitedGuest not set after exit syscall")
	}
	if rf.ExitCode != 7 {
		t.Errorf("ExitCode = %d, want 7", rf.ExitCode)
	}
}

func TestSetFallbackOverridesDefault(t *testing.T) {
	s := New()
	called := false
	s.SetFallback(func(rf *regfile.RegFile) (Disposition, error) {
		called = true
		rf.StoreSyscallResult(0)
		return Emulated, nil
	})

	rf := regfile.New()
	rf.SyscallNum = 12345
	if err := s.Handle(rf); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !called {
		t.Error("custom fallback was not invoked")
	}
}

func TestRegisterDefaultsWriteForwards(t *testing.T) {
	s := New()
	var written []byte
	hostWrite := func(fd int, p []byte) (int, error) {
		written = append(written, p...)
		return len(p), nil
	}
	hostRead := func(fd int, p []byte) (int, error) { return 0, errors.New("unused") }
	mem := []byte("hi")
	guestMem := func(addr uint64, n int) []byte { return mem[:n] }

	s.RegisterDefaults(hostWrite, hostRead, guestMem)

	rf := regfile.New()
	rf.SyscallNum = SysWrite
	rf.SyscallArgs[0] = 1
	rf.SyscallArgs[1] = 0
	rf.SyscallArgs[2] = 2

	if err := s.Handle(rf); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if string(written) != "hi" {
		t.Errorf("written = %q, want %q", written, "hi")
	}
	if rf.A(0) != 2 {
		t.Errorf("A(0) = %d, want 2", rf.A(0))
	}
}
