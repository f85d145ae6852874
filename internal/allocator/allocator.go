// Package allocator implements the allocator from spec §4.2: the
// component that fetches guest instructions until a terminator, orders
// them through the inline weaver, runs ALLOCATOR-mode callbacks, applies the three
// transparency fixups, and materializes the result into the code cache
// as a basic-block descriptor.
//
// This is the largest single component in the engine (spec §2's budget
// allocates it the largest share), and it is the one component that
// touches every other leaf package: isa for decode/encode, regfile for
// the RSA shape, codecache for the write cursor, bbt/elt for the tables
// it populates, callback/weaver for what gets interleaved, stub for
// exit-sequence sharing, and tracelink for direct branch linking.
//
// Grounded on the teacher's internal/emulator.go translation loop (fetch,
// classify, hook, emit) and on other_examples/gagliardetto-radiance's JIT
// memory management for the emit-into-a-cursor discipline.
package allocator

import (
	"errors"
	"fmt"

	"github.com/wraithcore/rvjit/internal/bbt"
	"github.com/wraithcore/rvjit/internal/callback"
	"github.com/wraithcore/rvjit/internal/codecache"
	"github.com/wraithcore/rvjit/internal/elt"
	"github.com/wraithcore/rvjit/internal/isa"
	"github.com/wraithcore/rvjit/internal/log"
	"github.com/wraithcore/rvjit/internal/regfile"
	"github.com/wraithcore/rvjit/internal/stub"
	"github.com/wraithcore/rvjit/internal/tracelink"
	"github.com/wraithcore/rvjit/internal/weaver"
)

// TextSource supplies raw guest bytes for decode, matching what
// internal/elfimage exposes from the ELF's .text section.
type TextSource interface {
	// FetchAt returns up to n bytes of guest code starting at addr. It
	// may return fewer than n bytes only at the very end of .text.
	FetchAt(addr uint64, n int) ([]byte, error)
}

// Config controls allocator-tunable policy, all sourced from
// internal/config at engine construction.
type Config struct {
	MaxBlockLen      int  // spec §4.2's "configured maximum block length"
	TraceLinkEnabled bool // spec §4.4
	StubsEnabled     bool // spec §4.5
}

// DefaultConfig matches the values the base design documents.
func DefaultConfig() Config {
	return Config{MaxBlockLen: 256, TraceLinkEnabled: true, StubsEnabled: true}
}

// scratchReg and identReg are the two general-purpose registers the
// allocator reserves for its own fixup/exit sequences, and hostLinkReg is
// the one the exit sequences JALR through to return to the host cache-
// entry trampoline. Per spec §5 the RSA is shared with callbacks, so
// these are documented and never allocated to guest-visible translation.
// Defined once in internal/regfile since internal/engine's trampoline
// needs the same register numbers to read the values back out.
const (
	scratchReg  uint32 = regfile.ScratchGPR
	identReg    uint32 = regfile.IdentGPR
	hostLinkReg uint32 = regfile.HostLinkGPR
)

// ErrCacheExhausted is returned by Materialize when the code cache could
// not fit the block even after one flush-and-retry, per spec §7 and the
// DESIGN.md resolution of the corresponding open question.
var ErrCacheExhausted = errors.New("allocator: code cache exhausted after flush-and-retry")

// Allocator is the engine's block translator.
type Allocator struct {
	text TextSource
	dec  *isa.Decoder
	enc  *isa.Encoder

	cache *codecache.Cache
	bbt   *bbt.Table
	elt   *elt.Table
	stubs *stub.Set
	link  *tracelink.Linker
	reg   *callback.Registry
	weave *weaver.Emitter

	cfg Config

	generation int // bumped on every flush, surfaced to FatalError diagnostics

	// logicalBlock maps a segment's start address to the address of the
	// logical block a forced split originally carved it from, when that
	// segment is a fallthrough continuation of an earlier one rather than
	// a fresh block reached by a jump or the entry point. Populated in
	// emitBlock whenever a segmented descriptor's FallThrough becomes the
	// next segment's start address; consulted there to propagate
	// BasicBlockAddr through the whole chain (spec §4.2 Segmentation).
	logicalBlock map[uint64]uint64
}

// New builds an allocator wired to every subsystem it needs.
func New(
	text TextSource,
	cache *codecache.Cache,
	bbtTable *bbt.Table,
	eltTable *elt.Table,
	stubs *stub.Set,
	link *tracelink.Linker,
	reg *callback.Registry,
	cfg Config,
) *Allocator {
	return &Allocator{
		text:         text,
		dec:          isa.NewDecoder(),
		enc:          isa.NewEncoder(),
		cache:        cache,
		bbt:          bbtTable,
		elt:          eltTable,
		stubs:        stubs,
		link:         link,
		reg:          reg,
		weave:        weaver.New(reg),
		cfg:          cfg,
		logicalBlock: make(map[uint64]uint64),
	}
}

// Materialize translates and emits the basic block starting at addr,
// returning its descriptor. If addr already has a descriptor, it is
// returned without re-translating (spec §3 invariant: idempotent
// materialization).
func (a *Allocator) Materialize(addr uint64) (*bbt.Descriptor, error) {
	if d, ok := a.bbt.Lookup(addr); ok {
		return d, nil
	}

	d, err := a.translateBlock(addr)
	if err != nil {
		if errors.Is(err, codecache.ErrExhausted) {
			return a.flushAndRetry(addr)
		}
		return nil, err
	}
	return d, nil
}

// flushAndRetry implements the resolved open question: on cache
// exhaustion, flush once and retry; a second exhaustion is fatal.
func (a *Allocator) flushAndRetry(addr uint64) (*bbt.Descriptor, error) {
	a.generation++
	a.cache.Flush()
	a.bbt.Reset()
	a.elt.Reset()
	a.stubs.Reset()
	if log.L != nil {
		log.L.Flush("cache-exhausted", a.generation)
	}

	d, err := a.translateBlock(addr)
	if err != nil {
		if errors.Is(err, codecache.ErrExhausted) {
			return nil, ErrCacheExhausted
		}
		return nil, err
	}
	return d, nil
}

// fetchWindow bounds how many bytes translateBlock asks for per
// instruction fetch; 4 covers the largest (32-bit) encoding.
const fetchWindow = 4

// translateBlock runs the fetch-until-terminator loop from spec §4.2.
func (a *Allocator) translateBlock(startAddr uint64) (*bbt.Descriptor, error) {
	var insns []isa.Instruction
	addr := startAddr
	segmented := false

	for {
		raw, err := a.text.FetchAt(addr, fetchWindow)
		if err != nil {
			return nil, fmt.Errorf("allocator: fetch at 0x%x: %w", addr, err)
		}
		in, err := a.dec.Decode(raw, addr)
		if err != nil {
			return nil, fmt.Errorf("allocator: decode at 0x%x: %w", addr, err)
		}

		forceSeg := a.reg.ForcesSegmentation(&in)
		if forceSeg && len(insns) > 0 {
			// This instruction is not itself part of the current block;
			// it starts the next one. Stop here (spec §4.2 Segmentation).
			segmented = true
			break
		}

		insns = append(insns, in)
		addr = in.FallthroughAddr()

		if in.IsTerminator() {
			break
		}
		if forceSeg {
			// Single non-terminator instruction with a targeted callback,
			// alone in its own segmented block.
			segmented = true
			break
		}
		if len(insns) >= a.cfg.MaxBlockLen {
			break
		}
	}

	return a.emitBlock(startAddr, insns, segmented)
}

// emitBlock runs the inline-weaver plan over insns, applies transparency
// fixups, appends the context-switch exit or a linked branch, and
// installs the resulting descriptor into the BBT.
func (a *Allocator) emitBlock(blockAddr uint64, insns []isa.Instruction, segmented bool) (*bbt.Descriptor, error) {
	if len(insns) == 0 {
		return nil, fmt.Errorf("allocator: empty block at 0x%x", blockAddr)
	}

	if err := a.runAllocatorCallback(callback.ScopeBB, callback.PhasePre, blockAddr); err != nil {
		return nil, err
	}

	plan := a.weave.WeaveBlock(blockAddr, insns)
	last := insns[len(insns)-1]

	var buf []byte
	branchPlaceholder := -1 // byte offset within buf of a conditional branch's patchable immediate, or -1
	for _, in := range plan {
		if err := a.runAllocatorCallback(callback.ScopeInstruction, callback.PhasePre, in.Addr); err != nil {
			return nil, err
		}
		if err := a.runAllocatorTypeCallback(in, callback.PhasePre); err != nil {
			return nil, err
		}

		var words []uint32
		var err error
		if in.Addr == last.Addr && last.IsTerminator() {
			var slot int
			words, slot, err = a.translateTerminator(in)
			if slot >= 0 {
				branchPlaceholder = len(buf) + slot*4
			}
		} else {
			words, err = a.translateOne(in)
		}
		if err != nil {
			return nil, err
		}
		for _, w := range words {
			buf = a.enc.Put32(buf, w)
		}

		if err := a.runAllocatorCallback(callback.ScopeInstruction, callback.PhasePost, in.Addr); err != nil {
			return nil, err
		}
		if err := a.runAllocatorTypeCallback(in, callback.PhasePost); err != nil {
			return nil, err
		}
	}

	if err := a.cache.Reserve(len(buf) + maxExitBytes); err != nil {
		return nil, err
	}
	cacheStart, err := a.cache.Append(buf)
	if err != nil {
		return nil, err
	}
	branchSlot := -1
	if branchPlaceholder >= 0 {
		branchSlot = cacheStart + branchPlaceholder
	}

	// A segment reached as a plain fallthrough continuation of a prior
	// forced split inherits that split's logical block address instead of
	// starting a new one; anything else (entry point, jump/branch target)
	// is itself the start of a fresh logical block.
	logicalAddr, isContinuation := a.logicalBlock[blockAddr]
	if !isContinuation {
		logicalAddr = blockAddr
	}

	desc := a.bbt.Insert(blockAddr, func(d *bbt.Descriptor) {
		d.FirstAddr = blockAddr
		d.LastAddr = last.Addr
		d.CacheStart = cacheStart
		d.InsnCount = len(insns)
		d.FirstRaw = insns[0].Raw
		d.LastRaw = last.Raw
		d.Terminator = terminatorKind(last)
		d.BasicBlockAddr = logicalAddr
		d.Mnemonic = last.Mnemonic
		d.Group = last.Group
		d.Segmented = segmented
		if segmented {
			d.FallThrough = last.FallthroughAddr()
		}
	})

	if segmented {
		a.logicalBlock[desc.FallThrough] = logicalAddr
	}

	if err := a.emitTerminatorExit(desc, last, branchSlot); err != nil {
		return nil, err
	}

	a.cache.SyncExec(cacheStart, desc.CacheEnd-cacheStart)

	if err := a.link.RecordTarget(blockAddr, cacheStart); err != nil {
		return nil, err
	}

	if err := a.runAllocatorCallback(callback.ScopeBB, callback.PhasePost, blockAddr); err != nil {
		return nil, err
	}

	if log.L != nil {
		log.L.Materialize(blockAddr, desc.CacheEnd-cacheStart, desc.Terminator.String())
	}

	return desc, nil
}

// maxExitBytes upper-bounds how many bytes the terminator's exit
// sequence can add, so Reserve can fail fast before any bytes are
// written (spec §4.1: flush-and-retry happens before a partial block is
// emitted). A conditional branch is the worst case: it appends two full
// staged exits back to back (fallthrough, then taken), each an 8-word
// LoadImmediate plus a closing JAL, so the bound is sized for
// 2*(8+1)*4 bytes with headroom.
const maxExitBytes = 96

// runAllocatorCallback invokes the registered ALLOCATOR-mode callback
// for (scope, phase), if any. ALLOCATOR callbacks run exactly once per
// materialization (spec §4.7) and never touch a live RegFile, since
// nothing has executed yet; New RegFile is a scratch view only.
func (a *Allocator) runAllocatorCallback(scope callback.Scope, phase callback.Phase, addr uint64) error {
	fn, ok := a.reg.Allocator(scope, phase)
	if !ok {
		return nil
	}
	rf := regfile.New()
	fn(rf, addr)
	return nil
}

// runAllocatorTypeCallback invokes in's registered ALLOCATOR-mode
// per-type and per-group callbacks, if any, once at translation time,
// the ALLOCATOR-mode half of spec §4.7's "per-type and per-group
// routines," mirroring runAllocatorCallback's single-slot handling. Both
// a type match and a group match may fire for the same instruction.
func (a *Allocator) runAllocatorTypeCallback(in isa.Instruction, phase callback.Phase) error {
	rf := regfile.New()
	if fn, ok := a.reg.ByType(in.Mnemonic, phase, callback.ModeAllocator); ok {
		fn(rf, in.Addr)
	}
	if in.Group != isa.NoGroup {
		if fn, ok := a.reg.ByGroup(in.Group, phase, callback.ModeAllocator); ok {
			fn(rf, in.Addr)
		}
	}
	return nil
}

// translateOne applies the transparency fixups for a single non-terminator
// instruction and returns the raw words to emit in its place. Terminators
// go through translateTerminator instead: see its doc comment for why
// they cannot be reemitted verbatim.
func (a *Allocator) translateOne(in isa.Instruction) ([]uint32, error) {
	switch {
	case in.IsAUIPC():
		return a.fixupAUIPC(in), nil
	default:
		return a.reemit(in), nil
	}
}

// translateTerminator returns the words to emit in place of a terminator
// instruction, plus the word index of a conditional branch's placeholder
// immediate within those words (or -1 for every other terminator kind).
// emitTerminatorExit patches that placeholder once it knows how far past
// the branch the fallthrough-exit sequence runs.
//
// The terminator's real hardware control transfer is never reemitted: a
// verbatim copy would keep its original guest-.text-relative immediate
// (or, for JALR, treat a guest address as a cache offset) and fire
// before emitTerminatorExit's appended exit sequence ever ran, which is
// the actual, correctly-computed control transfer for that instruction
// slot. Only two guest-visible effects survive translation: a
// link-writing jump's rd still receives its return address, and a
// conditional branch keeps testing its original operands, just against
// a retargeted, cache-local immediate.
func (a *Allocator) translateTerminator(in isa.Instruction) ([]uint32, int, error) {
	var words []uint32

	if in.WritesLink() && in.Rd != 0 {
		link := in.Addr + uint64(in.Size)
		rd := uint32(in.Rd)
		if rd == identReg {
			// JALR with rd==identReg would have its link value clobbered
			// by the indirect-target computation below; guest code
			// compiled against the standard calling convention never
			// targets t1 as a link register, so this is left unhandled
			// rather than adding a second reserved register to dodge it.
			rd = scratchReg
		}
		words = append(words, a.enc.LoadImmediate(rd, scratchReg, link)...)
	}

	if in.IsIndirectJump() {
		// The runtime target is rs1+imm; JALR's immediate is a 12-bit
		// I-type field, so ADDI covers it in one instruction. Staged into
		// identReg so the host cache-entry trampoline can read it back
		// into RegFile.IndirectTarget the moment control leaves the
		// cache (spec §4.2: the dispatcher decides an indirect jump's
		// successor from RSA, never from a live jump it cannot link).
		words = append(words, a.enc.Addi(identReg, uint32(in.Rs1), int32(in.Imm)))
	}

	if in.IsBranch() {
		words = append(words, a.buildBranchWord(in, 0))
		return words, len(words) - 1, nil
	}

	// JAL, JALR, ECALL, EBREAK carry no instruction word of their own:
	// the exit sequence emitTerminatorExit appends next is the sole real
	// control transfer.
	return words, -1, nil
}

// branchFunct3 maps a conditional-branch mnemonic, including the RVC
// compare-to-zero forms, to its B-type funct3 field.
func branchFunct3(mn isa.Mnemonic) uint32 {
	switch mn {
	case isa.MnBNE, isa.MnCBNEZ:
		return 1
	case isa.MnBLT:
		return 4
	case isa.MnBGE:
		return 5
	case isa.MnBLTU:
		return 6
	case isa.MnBGEU:
		return 7
	default: // MnBEQ, MnCBEQZ
		return 0
	}
}

// buildBranchWord re-encodes a conditional branch with its original test
// and operands but a cache-local immediate. CBEQZ/CBNEZ, which compare a
// single register against x0, normalize to the equivalent 32-bit
// BEQ/BNE with rs2 hardwired to zero.
func (a *Allocator) buildBranchWord(in isa.Instruction, imm int32) uint32 {
	rs2 := uint32(in.Rs2)
	if in.Mnemonic == isa.MnCBEQZ || in.Mnemonic == isa.MnCBNEZ {
		rs2 = 0
	}
	return a.enc.BType(0x63, branchFunct3(in.Mnemonic), uint32(in.Rs1), rs2, imm)
}

// reemit re-encodes an already-decoded instruction back into its
// original word. Since the decoder captured the raw word verbatim, this
// is a pass-through for instructions needing no fixup.
// cNopHalfword is C.NOP (C.ADDI x0, 0), the canonical 16-bit RVC no-op.
const cNopHalfword uint32 = 0x0001

func (a *Allocator) reemit(in isa.Instruction) []uint32 {
	if in.Compressed() {
		// Every word this allocator writes is a full 4 bytes (buf is
		// built from Put32 calls only), so a verbatim-re-emitted 2-byte
		// compressed instruction cannot share a word with its neighbor:
		// the low 16 bits carry the real encoding and the high 16 bits
		// get a real compressed NOP rather than zero padding, since an
		// all-zero halfword is RVC's reserved illegal-instruction
		// encoding and would trap the moment the cache executed past it.
		return []uint32{(in.Raw & 0xffff) | cNopHalfword<<16}
	}
	return []uint32{in.Raw}
}

// fixupAUIPC replaces an AUIPC with a load-immediate sequence that
// materializes the guest's original PC-relative value directly, per spec
// §4.2's "AUIPC's delivered value must equal the original PC, not the
// cache PC."
func (a *Allocator) fixupAUIPC(in isa.Instruction) []uint32 {
	value := uint64(int64(in.Addr) + in.Imm)
	rd := uint32(in.Rd)
	if rd == uint32(scratchReg) {
		// AUIPC never legitimately targets the allocator's own scratch
		// register in translated guest code; if it did, fall back to a
		// different temporary to avoid self-clobber.
		return a.enc.LoadImmediate(rd, identReg, value)
	}
	return a.enc.LoadImmediate(rd, scratchReg, value)
}

// terminatorKind maps a decoded instruction to the RSA terminator tag.
func terminatorKind(in isa.Instruction) regfile.TerminatorKind {
	switch {
	case in.IsSyscall():
		return regfile.TermSyscall
	case in.IsBranch():
		return regfile.TermConditionalBranch
	case in.IsDirectJump():
		return regfile.TermDirectJump
	case in.IsIndirectJump():
		return regfile.TermIndirectJump
	default:
		return regfile.TermNone
	}
}

// emitTerminatorExit appends the terminator-specific exit sequence
// after the block body, per spec §4.2 "Terminator handling" and §4.4's
// trace-linking protocol. branchSlot is the cache offset of a
// conditional branch's placeholder immediate (from translateTerminator),
// or -1 for every other terminator kind.
func (a *Allocator) emitTerminatorExit(desc *bbt.Descriptor, last isa.Instruction, branchSlot int) error {
	switch {
	case last.IsSyscall():
		desc.Terminator = regfile.TermSyscall
		desc.EcallNext = last.FallthroughAddr()
		return a.appendDispatchExit(desc)

	case last.IsIndirectJump():
		// Indirect jumps always exit to the dispatcher with the computed
		// target placed in RSA at runtime; the allocator cannot link
		// them statically (spec §4.4: "Indirect jumps... are never
		// linked").
		return a.appendDispatchExit(desc)

	case last.IsDirectJump():
		target, _ := last.TargetAddr()
		desc.TakenTarget = target
		desc.HasTaken = true
		return a.appendLinkedOrDispatchExit(desc, target, elt.SiteDirectJump)

	case last.IsBranch():
		taken, _ := last.TargetAddr()
		fallthroughAddr := last.FallthroughAddr()
		desc.TakenTarget = taken
		desc.HasTaken = true
		desc.FallThrough = fallthroughAddr

		// The branch word at branchSlot still tests the guest's original
		// condition but carries a placeholder zero immediate. Its
		// natural PC+4 fallthrough must land on the fallthrough-exit
		// sequence, so that one is emitted first; the branch is then
		// patched to skip over it when the original condition holds,
		// landing on the taken-exit sequence emitted second.
		before := a.cache.Cursor()
		if err := a.appendLinkedOrDispatchExit(desc, fallthroughAddr, elt.SiteBranchFallthrough); err != nil {
			return err
		}
		skip := a.cache.Cursor() - before
		if err := a.patchBranch(branchSlot, last, skip); err != nil {
			return err
		}
		return a.appendLinkedOrDispatchExit(desc, taken, elt.SiteBranchTaken)

	default:
		// Segmented block ending on a non-terminator instruction: falls
		// through to the next segment, materialized lazily by the
		// dispatcher exactly like any other unresolved successor.
		return a.appendLinkedOrDispatchExit(desc, last.FallthroughAddr(), elt.SiteDirectJump)
	}
}

// patchBranch overwrites the placeholder branch word at cache offset off
// so a true condition jumps skip bytes forward, over the
// fallthrough-exit sequence emitted directly after it.
func (a *Allocator) patchBranch(off int, in isa.Instruction, skip int) error {
	word := a.buildBranchWord(in, int32(skip))
	buf := a.enc.Put32(nil, word)
	if err := a.cache.PatchAt(off, buf); err != nil {
		return err
	}
	a.cache.SyncExec(off, len(buf))
	return nil
}

// appendLinkedOrDispatchExit appends a context-switch exit for target. When
// trace linking is enabled and the stub path is available, the exit ends
// on a JAL to the shared context-switch-exit stub whose offset is handed
// to tracelink.Linker: if target's cache address is already known, that
// JAL is rewritten on the spot to jump straight into it, skipping the
// dispatcher entirely; otherwise a pending backpatch is registered and
// RecordTarget rewrites it later once the block materializes (spec §4.4).
// Without a stub in play there is no cache-resident JAL to retarget, so
// linking is skipped and the exit always reaches the dispatcher.
func (a *Allocator) appendLinkedOrDispatchExit(desc *bbt.Descriptor, target uint64, kind elt.SiteKind) error {
	if !a.cfg.TraceLinkEnabled || !a.cfg.StubsEnabled {
		return a.appendDispatchExitTo(desc, target)
	}

	jalOffset, err := a.appendStubExitTo(desc, target)
	if err != nil {
		return err
	}
	_, err = a.link.LinkOrDefer(jalOffset, target, kind)
	return err
}

// appendDispatchExit emits a generic context-switch exit whose successor
// is computed at dispatch time (indirect jumps, syscalls).
func (a *Allocator) appendDispatchExit(desc *bbt.Descriptor) error {
	return a.appendExitSequence(desc, 0, false)
}

// appendDispatchExitTo emits a context-switch exit that also stages a
// statically-known successor address, so the dispatcher does not need to
// decode RSA to find it.
func (a *Allocator) appendDispatchExitTo(desc *bbt.Descriptor, target uint64) error {
	return a.appendExitSequence(desc, target, true)
}

// appendStubExitTo stages target exactly like appendDispatchExitTo, then
// appends a JAL straight to the shared context-switch-exit stub
// (materializing a fresh regional copy first if the current cache
// position has drifted out of the existing one's reach), and returns the
// cache offset of that JAL word.
func (a *Allocator) appendStubExitTo(desc *bbt.Descriptor, target uint64) (int, error) {
	words := a.enc.LoadImmediate(identReg, scratchReg, target)
	if err := a.appendWords(desc, words); err != nil {
		return 0, err
	}

	if _, ok := a.stubs.Reachable(stub.KindContextSwitchExit, a.cache.Cursor()); !ok {
		if err := a.materializeContextSwitchStub(); err != nil {
			return 0, err
		}
	}
	region, _ := a.stubs.Get(stub.KindContextSwitchExit)

	jalOffset := a.cache.Cursor()
	disp := region.CacheStart - jalOffset
	if err := a.appendWords(desc, []uint32{a.enc.Jal(0, int32(disp))}); err != nil {
		return 0, err
	}
	return jalOffset, nil
}

// appendExitSequence writes the stage-target-then-jump-to-dispatcher
// sequence, per spec §4.2/§4.3. When stubs are enabled it reaches the
// dispatcher through the shared context-switch-exit stub (spec §4.5);
// otherwise it jumps straight through hostLinkReg, the host cache-entry
// trampoline's landing pad that stays resident there for the whole time
// control is inside the cache (see internal/engine.enterCache).
func (a *Allocator) appendExitSequence(desc *bbt.Descriptor, target uint64, hasTarget bool) error {
	var words []uint32
	if hasTarget {
		words = append(words, a.enc.LoadImmediate(identReg, scratchReg, target)...)
	}

	if !a.cfg.StubsEnabled {
		words = append(words, a.enc.Jalr(0, hostLinkReg, 0))
		return a.appendWords(desc, words)
	}

	if err := a.appendWords(desc, words); err != nil {
		return err
	}
	if _, ok := a.stubs.Reachable(stub.KindContextSwitchExit, a.cache.Cursor()); !ok {
		if err := a.materializeContextSwitchStub(); err != nil {
			return err
		}
	}
	region, _ := a.stubs.Get(stub.KindContextSwitchExit)
	jalOffset := a.cache.Cursor()
	disp := region.CacheStart - jalOffset
	return a.appendWords(desc, []uint32{a.enc.Jal(0, int32(disp))})
}

// materializeContextSwitchStub plants a fresh context-switch-exit stub
// region (spec §4.5: "if a block would cross that threshold, a fresh
// stub is emitted immediately before continuing"). The body is a single
// JALR through hostLinkReg: every staged exit that reaches this stub,
// from any block, lands at the same host trampoline.
func (a *Allocator) materializeContextSwitchStub() error {
	body := a.enc.Put32(nil, a.enc.Jalr(0, hostLinkReg, 0))
	_, err := a.stubs.Materialize(stub.KindContextSwitchExit, body)
	return err
}

// appendWords writes words to the cache and advances desc.CacheEnd.
func (a *Allocator) appendWords(desc *bbt.Descriptor, words []uint32) error {
	var buf []byte
	for _, w := range words {
		buf = a.enc.Put32(buf, w)
	}
	off, err := a.cache.Append(buf)
	if err != nil {
		return err
	}
	if desc.CacheEnd == 0 {
		desc.CacheEnd = off + len(buf)
	} else {
		desc.CacheEnd += len(buf)
	}
	return nil
}

// Generation returns how many times the cache has been flushed, for
// FatalError diagnostics.
func (a *Allocator) Generation() int { return a.generation }
