package trace

import (
	"testing"
	"time"
)

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestTagsAddIsIdempotent(t *testing.T) {
	var tags Tags
	tags.Add(TagSyscall)
	tags.Add(TagSyscall)
	if len(tags) != 1 {
		t.Errorf("len(tags) = %d, want 1 after adding the same tag twice", len(tags))
	}
	if !tags.Has(TagSyscall) {
		t.Error("Has(TagSyscall) = false")
	}
	if tags.Has(TagFlush) {
		t.Error("Has(TagFlush) = true, was never added")
	}
}

func TestTagsPrimary(t *testing.T) {
	var tags Tags
	if tags.Primary() != "" {
		t.Errorf("Primary() on empty Tags = %q, want empty", tags.Primary())
	}
	tags.Add(TagDispatch)
	tags.Add(TagLink)
	if tags.Primary() != TagDispatch {
		t.Errorf("Primary() = %q, want %q", tags.Primary(), TagDispatch)
	}
}

func TestAnnotationsSetGet(t *testing.T) {
	a := make(Annotations)
	a.Set("num", "64")
	if got := a.Get("num"); got != "64" {
		t.Errorf("Get(num) = %q, want 64", got)
	}
	if got := a.Get("missing"); got != "" {
		t.Errorf("Get(missing) = %q, want empty", got)
	}
}

func TestCollectorRecordAndReset(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCollector(fixedClock(ts))

	c.Record(0x1000, "materialize", "block")
	c.Record(0x2000, "syscall", "num=64")

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	events := c.Events()
	if events[0].PC != 0x1000 || events[0].Tags.Primary() != TagMaterialize {
		t.Errorf("events[0] = %+v, unexpected", events[0])
	}
	if !events[1].Timestamp.Equal(ts) {
		t.Errorf("events[1].Timestamp = %v, want %v", events[1].Timestamp, ts)
	}

	c.Reset()
	if c.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", c.Len())
	}
}
