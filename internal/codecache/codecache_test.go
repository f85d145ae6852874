package codecache

import "testing"

func TestAppendAdvancesCursor(t *testing.T) {
	c, err := New(4096)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	off, err := c.Append([]byte{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if off != 0 {
		t.Errorf("first Append offset = %d, want 0", off)
	}
	if c.Cursor() != 4 {
		t.Errorf("Cursor() = %d, want 4", c.Cursor())
	}
}

func TestReserveExhaustion(t *testing.T) {
	c, err := New(8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if err := c.Reserve(8); err != nil {
		t.Fatalf("Reserve(8) on empty 8-byte cache: %v", err)
	}
	if _, err := c.Append(make([]byte, 8)); err != nil {
		t.Fatalf("Append(8): %v", err)
	}
	if _, err := c.Append([]byte{0}); err != ErrExhausted {
		t.Errorf("Append past capacity = %v, want ErrExhausted", err)
	}
}

func TestFlushResetsCursor(t *testing.T) {
	c, err := New(4096)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	c.Append([]byte{1, 2, 3, 4})
	c.Flush()
	if c.Cursor() != 0 {
		t.Errorf("Cursor() after Flush = %d, want 0", c.Cursor())
	}
	if c.Flushes() != 1 {
		t.Errorf("Flushes() = %d, want 1", c.Flushes())
	}
}

func TestPatchAtOutOfBounds(t *testing.T) {
	c, err := New(4096)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	c.Append([]byte{1, 2, 3, 4})
	if err := c.PatchAt(10, []byte{0}); err == nil {
		t.Error("PatchAt past cursor should fail")
	}
	if err := c.PatchAt(0, []byte{9, 9, 9, 9}); err != nil {
		t.Errorf("PatchAt within bounds: %v", err)
	}
}
