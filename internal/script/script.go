// Package script hosts a goja JavaScript runtime that lets an
// instrumentation author register callbacks against the engine's
// callback registry without writing Go, per SPEC_FULL.md's domain-stack
// supplement.
//
// Grounded on the teacher's self-registering-handler idiom
// (internal/stubs/registry.go's Register/RegisterFunc pattern):
// here, calling a global registration function from a loaded script has
// the same effect as an init()-registered Go stub, just resolved at
// script-load time instead of package-init time.
package script

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/wraithcore/rvjit/internal/callback"
	"github.com/wraithcore/rvjit/internal/isa"
	"github.com/wraithcore/rvjit/internal/log"
	"github.com/wraithcore/rvjit/internal/regfile"
)

// Host binds a goja VM to the engine's callback registry, exposing a
// small registration API: registerRuntime(scope, phase, fn),
// registerByType(mnemonic, phase, fn), registerByGroup(group, phase, fn).
type Host struct {
	vm  *goja.Runtime
	reg *callback.Registry
}

// New returns a Host wired to reg, with its registration API installed.
func New(reg *callback.Registry) *Host {
	h := &Host{vm: goja.New(), reg: reg}
	h.install()
	return h
}

// Run compiles and executes a script's top-level statements, which are
// expected to call the registration functions installed by install().
func (h *Host) Run(name, src string) error {
	prog, err := goja.Compile(name, src, false)
	if err != nil {
		return fmt.Errorf("script: compile %s: %w", name, err)
	}
	if _, err := h.vm.RunProgram(prog); err != nil {
		return fmt.Errorf("script: run %s: %w", name, err)
	}
	return nil
}

func (h *Host) install() {
	h.vm.Set("SCOPE_EXIT", int(callback.ScopeExit))
	h.vm.Set("SCOPE_BB", int(callback.ScopeBB))
	h.vm.Set("SCOPE_INSTRUCTION", int(callback.ScopeInstruction))
	h.vm.Set("PHASE_PRE", int(callback.PhasePre))
	h.vm.Set("PHASE_POST", int(callback.PhasePost))

	h.vm.Set("log", func(msg string) {
		if log.L != nil {
			log.L.Info("script", log.Fn(msg))
		}
	})

	h.vm.Set("registerRuntime", func(scope, phase int, fn goja.Callable) {
		h.reg.RegisterRuntime(callback.Scope(scope), callback.Phase(phase), h.wrapRuntime(fn))
	})

	h.vm.Set("registerByType", func(mnemonic string, phase int, fn goja.Callable) {
		mn, ok := mnemonicByName[mnemonic]
		if !ok {
			return
		}
		h.reg.RegisterByType(mn, callback.Phase(phase), callback.ModeRuntime, h.wrapRuntime(fn))
	})

	h.vm.Set("registerByGroup", func(group uint32, phase int, fn goja.Callable) {
		h.reg.RegisterByGroup(isa.GroupID(group), callback.Phase(phase), callback.ModeRuntime, h.wrapRuntime(fn))
	})
}

// wrapRuntime adapts a JS callback into a callback.RuntimeFunc, exposing
// the register file as a plain object of getter/setter closures so
// script authors can read/write guest state without reflection over the
// Go struct.
func (h *Host) wrapRuntime(fn goja.Callable) callback.RuntimeFunc {
	return func(rf *regfile.RegFile, addr uint64) {
		obj := h.vm.NewObject()
		obj.Set("pc", rf.PC)
		obj.Set("getX", func(i int) uint64 { return rf.X(i) })
		obj.Set("setX", func(i int, v int64) { rf.SetX(i, uint64(v)) })

		if _, err := fn(goja.Undefined(), h.vm.ToValue(addr), h.vm.ToValue(obj)); err != nil {
			if log.L != nil {
				log.L.Error("script callback failed", log.Addr(addr))
			}
		}
	}
}

// mnemonicByName maps the mnemonic spellings a script would use to their
// isa.Mnemonic values. Only a representative subset is exposed; scripts
// needing exhaustive coverage should use registerByGroup instead.
var mnemonicByName = map[string]isa.Mnemonic{
	"JAL": isa.MnJAL, "JALR": isa.MnJALR,
	"BEQ": isa.MnBEQ, "BNE": isa.MnBNE,
	"ECALL": isa.MnECALL, "EBREAK": isa.MnEBREAK,
	"LW": isa.MnLW, "LD": isa.MnLD, "SW": isa.MnSW, "SD": isa.MnSD,
	"AUIPC": isa.MnAUIPC,
}
