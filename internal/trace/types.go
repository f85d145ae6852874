// Package trace provides the event-collection types spec §8's scenario
// 3 (a full session trace, dumped to CSV) is built on: events tagged and
// annotated the same way the teacher's trace package structures capture
// events, just keyed by DBI lifecycle categories (the Tag constants)
// instead of hooked-symbol categories. In the engine, events reach the
// collector only through log.L.Event, which only the syscall shim calls,
// so a recorded session holds syscall events.
package trace

import "time"

// Tag represents a trace event category. Stored without a leading '#';
// callers add the prefix on render, matching the teacher's convention.
type Tag string

// Standard tags for engine lifecycle events.
const (
	TagMaterialize Tag = "materialize"
	TagDispatch    Tag = "dispatch"
	TagSyscall     Tag = "syscall"
	TagLink        Tag = "link"
	TagFlush       Tag = "flush"
	TagFatal       Tag = "fatal"
	TagCallback    Tag = "callback"
)

// Tags is a collection of tags with helper methods.
type Tags []Tag

// Has returns true if the tag collection contains the given tag.
func (t Tags) Has(tag Tag) bool {
	for _, x := range t {
		if x == tag {
			return true
		}
	}
	return false
}

// Add adds a tag if not already present.
func (t *Tags) Add(tag Tag) {
	if !t.Has(tag) {
		*t = append(*t, tag)
	}
}

// Primary returns the first tag or empty string if none.
func (t Tags) Primary() Tag {
	if len(t) > 0 {
		return t[0]
	}
	return ""
}

// Annotations holds key-value metadata for a trace event (e.g.
// "term=syscall", "num=64").
type Annotations map[string]string

// Set adds or updates an annotation.
func (a Annotations) Set(k, v string) { a[k] = v }

// Get retrieves an annotation value.
func (a Annotations) Get(k string) string { return a[k] }

// Event represents one engine lifecycle event.
type Event struct {
	PC          uint64
	Tags        Tags
	Name        string // e.g. "0x40001000" block address, or syscall name
	Detail      string
	Annotations Annotations
	Timestamp   time.Time
	Generation  int // codecache flush generation this event occurred under
}

// NewEvent creates a new trace event.
func NewEvent(pc uint64, category, name, detail string, timestamp time.Time) *Event {
	return &Event{
		PC:          pc,
		Tags:        Tags{Tag(category)},
		Name:        name,
		Detail:      detail,
		Annotations: make(Annotations),
		Timestamp:   timestamp,
	}
}

// Collector accumulates events emitted via internal/log's onEvent hook,
// for later CSV export by internal/tracelog.
type Collector struct {
	events []*Event
	now    func() time.Time
}

// NewCollector returns a collector using clock as its time source. The
// engine passes time.Now; tests pass a fixed clock for determinism.
func NewCollector(clock func() time.Time) *Collector {
	return &Collector{now: clock}
}

// Record appends an event built from a raw (pc, kind, detail) triple,
// the shape internal/log.SetOnEvent's callback receives.
func (c *Collector) Record(pc uint64, kind, detail string) {
	c.events = append(c.events, NewEvent(pc, kind, kind, detail, c.now()))
}

// Events returns every recorded event in emission order.
func (c *Collector) Events() []*Event { return c.events }

// Len returns the number of recorded events.
func (c *Collector) Len() int { return len(c.events) }

// Reset drops all recorded events.
func (c *Collector) Reset() { c.events = nil }
