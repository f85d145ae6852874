package regfile

import "testing"

func TestX0HardwiredZero(t *testing.T) {
	rf := New()
	rf.SetX(0, 0xdeadbeef)
	if got := rf.X(0); got != 0 {
		t.Errorf("X(0) = 0x%x, want 0 (x0 is hardwired)", got)
	}
}

func TestSetXAndX(t *testing.T) {
	rf := New()
	rf.SetX(10, 42)
	if got := rf.X(10); got != 42 {
		t.Errorf("X(10) = %d, want 42", got)
	}
}

func TestABIAliases(t *testing.T) {
	rf := New()
	rf.SetSP(0x8000)
	if rf.SP() != 0x8000 || rf.X(2) != 0x8000 {
		t.Errorf("SP alias mismatch: SP()=0x%x X(2)=0x%x", rf.SP(), rf.X(2))
	}
	rf.SetRA(0x1234)
	if rf.RA() != 0x1234 || rf.X(1) != 0x1234 {
		t.Errorf("RA alias mismatch")
	}
	rf.SetA(0, 99)
	if rf.A(0) != 99 || rf.X(10) != 99 {
		t.Errorf("A(0) alias mismatch")
	}
}

func TestLoadSyscallABI(t *testing.T) {
	rf := New()
	rf.SetX(17, 64) // a7 = write
	rf.SetA(0, 1)
	rf.SetA(1, 0x2000)
	rf.SetA(2, 10)
	rf.LoadSyscallABI()

	if rf.SyscallNum != 64 {
		t.Errorf("SyscallNum = %d, want 64", rf.SyscallNum)
	}
	if rf.SyscallArgs[0] != 1 || rf.SyscallArgs[1] != 0x2000 || rf.SyscallArgs[2] != 10 {
		t.Errorf("SyscallArgs = %v, want [1 0x2000 10 ...]", rf.SyscallArgs)
	}
}

func TestStoreSyscallResult(t *testing.T) {
	rf := New()
	rf.StoreSyscallResult(7)
	if rf.A(0) != 7 {
		t.Errorf("A(0) = %d, want 7", rf.A(0))
	}
}
