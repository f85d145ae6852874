// Package engine wires every subsystem together into the single
// process-wide instance spec §9's design notes call for: "model as an
// engine value explicitly passed, with one process-wide instance owned
// by the front-end."
//
// Grounded on the teacher's Emulator struct (internal/emulator/emulator.go):
// a single struct owning every subsystem, constructed by New, with a
// LoadELF-shaped entry point and lifecycle methods (Run/Close). The
// core loop is entirely different — this engine drives a code cache
// instead of interpreting via Unicorn — but the ownership shape and
// constructor discipline are carried over directly.
package engine

import (
	"fmt"
	"os"
	"time"

	"github.com/wraithcore/rvjit/internal/allocator"
	"github.com/wraithcore/rvjit/internal/bbt"
	"github.com/wraithcore/rvjit/internal/callback"
	"github.com/wraithcore/rvjit/internal/codecache"
	"github.com/wraithcore/rvjit/internal/config"
	"github.com/wraithcore/rvjit/internal/diag"
	"github.com/wraithcore/rvjit/internal/dispatcher"
	"github.com/wraithcore/rvjit/internal/elfimage"
	"github.com/wraithcore/rvjit/internal/elt"
	"github.com/wraithcore/rvjit/internal/isa"
	"github.com/wraithcore/rvjit/internal/log"
	"github.com/wraithcore/rvjit/internal/regfile"
	"github.com/wraithcore/rvjit/internal/script"
	"github.com/wraithcore/rvjit/internal/stub"
	"github.com/wraithcore/rvjit/internal/syscallshim"
	"github.com/wraithcore/rvjit/internal/trace"
	"github.com/wraithcore/rvjit/internal/tracelink"
	"github.com/wraithcore/rvjit/internal/ui/statsview"
)

// Engine owns every subsystem and is the sole process-wide instance the
// front-end (cmd/rvjit) constructs.
type Engine struct {
	cfg config.Config

	image *elfimage.Image
	cache *codecache.Cache
	bbt   *bbt.Table
	elt   *elt.Table
	stubs *stub.Set
	link  *tracelink.Linker
	reg   *callback.Registry
	alloc *allocator.Allocator
	shim  *syscallshim.Shim
	disp  *dispatcher.Dispatcher

	collector *trace.Collector
	checksums *diag.Ledger
	scriptVM  *script.Host

	rf *regfile.RegFile
}

// New constructs an Engine from a fully-resolved config and a loaded ELF
// image. It wires every leaf subsystem in dependency order: cache before
// bbt/elt/stubs (they reference cache offsets), then the allocator
// (which needs all of the above plus the callback registry), then the
// dispatcher (which needs the allocator and the syscall shim).
func New(cfg config.Config, image *elfimage.Image) (*Engine, error) {
	log.Init(cfg.Debug)

	cache, err := codecache.New(cfg.CodeCacheBytes)
	if err != nil {
		return nil, fmt.Errorf("engine: code cache: %w", err)
	}

	bbtTable := bbt.New()
	eltTable := elt.New()
	enc := isa.NewEncoder()
	stubs := stub.New(cache, enc)
	link := tracelink.New(cache, eltTable, enc)
	reg := callback.New()

	alloc := allocator.New(image, cache, bbtTable, eltTable, stubs, link, reg, cfg.AllocatorConfig())

	shim := syscallshim.New()
	shim.RegisterDefaults(
		func(fd int, p []byte) (int, error) { return hostWrite(fd, p) },
		func(fd int, p []byte) (int, error) { return hostRead(fd, p) },
		image.ReadMem,
	)

	e := &Engine{
		cfg:       cfg,
		image:     image,
		cache:     cache,
		bbt:       bbtTable,
		elt:       eltTable,
		stubs:     stubs,
		link:      link,
		reg:       reg,
		alloc:     alloc,
		shim:      shim,
		collector: trace.NewCollector(time.Now),
		checksums: diag.NewLedger(),
		scriptVM:  script.New(reg),
		rf:        regfile.New(),
	}

	if log.L != nil && cfg.TraceEnabled {
		log.L.SetOnEvent(e.collector.Record)
	}

	e.disp = dispatcher.New(alloc, bbtTable, reg, shim, e.enterCache)

	return e, nil
}

// RegisterScript loads and runs a goja instrumentation script against
// this engine's callback registry.
func (e *Engine) RegisterScript(name, src string) error {
	return e.scriptVM.Run(name, src)
}

// Registry exposes the callback registry for Go-native instrumentation
// registration (as opposed to script-driven).
func (e *Engine) Registry() *callback.Registry { return e.reg }

// Run drives the guest from the ELF's entry point (or a caller-chosen
// override) until it exits or a fatal error occurs.
func (e *Engine) Run(entryOverride uint64) error {
	entry := e.image.Entry
	if entryOverride != 0 {
		entry = entryOverride
	}

	if e.cfg.StatsUI {
		go func() {
			_ = statsview.Run(e.Snapshot, 200*time.Millisecond)
		}()
	}

	e.rf.PC = entry
	return e.disp.Run(e.rf, entry)
}

// ExitCode returns the guest's exit code after a completed Run.
func (e *Engine) ExitCode() int { return e.rf.ExitCode }

// Flush forces a code-cache flush and records its checksum, mirroring
// what the allocator does automatically on exhaustion.
func (e *Engine) Flush(reason string) diag.Checksum {
	sum := e.checksums.Record(e.alloc.Generation(), e.cache.Bytes())
	e.cache.Flush()
	e.bbt.Reset()
	e.elt.Reset()
	e.stubs.Reset()
	if log.L != nil {
		log.L.Flush(reason, e.alloc.Generation())
	}
	return sum
}

// Snapshot reports current occupancy for internal/ui/statsview.
func (e *Engine) Snapshot() statsview.Snapshot {
	return statsview.Snapshot{
		CacheCursor:   e.cache.Cursor(),
		CacheCapacity: e.cache.Capacity(),
		Flushes:       e.cache.Flushes(),
		Generation:    e.alloc.Generation(),
		BlockCount:    e.bbt.Len(),
		LinkCount:     e.elt.Len(),
		PendingLinks:  e.elt.PendingCount(),
	}
}

// Trace returns the collected trace events, populated only when
// cfg.TraceEnabled was set at construction.
func (e *Engine) Trace() *trace.Collector { return e.collector }

// Close releases the code cache's mmap'd region.
func (e *Engine) Close() error {
	return e.cache.Close()
}

// hostWrite/hostRead forward guest fds 0-2 to the host's standard
// streams; any other fd is rejected by returning an error, which the
// syscall shim's write/read handlers turn into a -1 result rather than
// aborting the guest.
func hostWrite(fd int, p []byte) (int, error) {
	switch fd {
	case 1:
		return os.Stdout.Write(p)
	case 2:
		return os.Stderr.Write(p)
	default:
		return 0, fmt.Errorf("engine: write to unsupported fd %d", fd)
	}
}

func hostRead(fd int, p []byte) (int, error) {
	if fd != 0 {
		return 0, fmt.Errorf("engine: read from unsupported fd %d", fd)
	}
	return os.Stdin.Read(p)
}
