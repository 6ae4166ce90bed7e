// Package jit provides the execution controller of the binary translator.
//
// The controller owns the live guest CPU state, a translation cache, and
// the halt/invalidation coordination state. Exactly one goroutine may be
// inside Run or Step at a time (caller-enforced; violations panic). Any
// number of other goroutines may concurrently request cache invalidation
// or raise/clear halt reasons while execution is in progress.
//
// Invalidation requests are cheap to record and expensive to apply, so
// they are coalesced into a pending set and applied at the two safe
// points that bracket execution. The hot path never takes a lock: the
// halt signal is an atomic bitmask, and the invalidation mutex guards
// only the pending set, never the delegation to the dispatcher.
package jit

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mayhemheroes/armjit/state"
)

// TranslationCache maps guest code addresses to compiled native blocks.
// The controller only ever asks it to drop everything; lookups and inserts
// belong to the dispatcher side.
type TranslationCache interface {
	// ClearCache drops all compiled blocks. Called only when no
	// execution is in progress on the cache.
	ClearCache()
}

// Dispatcher runs compiled blocks until a halt condition is observed. It
// must poll the halt flag at block boundaries and return promptly once any
// bit is set, and it must not mutate the cache in ways that bypass the
// controller's invalidation protocol.
type Dispatcher interface {
	Run(cache TranslationCache, st *state.CPUState, halt *HaltFlag) HaltReason
	Step(cache TranslationCache, st *state.CPUState, halt *HaltFlag) HaltReason
}

// Jit is the execution controller. It guarantees that no two executions
// run concurrently, that every requested cache invalidation is applied
// exactly once before the cache is next used, and that halting is
// observable and settable without locks on the hot path.
type Jit struct {
	core  Dispatcher
	cache TranslationCache

	state state.CPUState
	halt  HaltFlag

	executing atomic.Bool

	// invalidationMu guards only pendingRanges and invalidateAll. It is
	// never held while delegating to the dispatcher or while clearing
	// the cache.
	invalidationMu sync.Mutex
	pendingRanges  RangeSet
	invalidateAll  bool

	logger *zap.Logger
}

// Option is a functional option for configuring the Jit.
type Option func(*Jit)

// WithLogger sets a structured logger. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(j *Jit) {
		j.logger = l
	}
}

// New creates an execution controller that delegates to core and manages
// cache. The live CPU state starts at guest reset (all zero).
func New(core Dispatcher, cache TranslationCache, opts ...Option) *Jit {
	j := &Jit{
		core:   core,
		cache:  cache,
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(j)
	}

	return j
}

// Run applies pending cache invalidations, delegates to the dispatcher
// until it halts, applies invalidations requested mid-run, and returns the
// halt reason that ended execution.
//
// Run must not be called while another Run or Step is in progress on the
// same controller; doing so is a caller bug and panics.
func (j *Jit) Run() HaltReason {
	j.beginExecution("Run")
	defer j.executing.Store(false)

	j.applyPendingCacheInvalidation()

	hr := j.core.Run(j.cache, &j.state, &j.halt)

	j.applyPendingCacheInvalidation()

	return hr
}

// Step executes a single guest instruction. The wrapping protocol is
// identical to Run; only the dispatcher entry point differs. The same
// no-concurrent-execution precondition applies.
func (j *Jit) Step() HaltReason {
	j.beginExecution("Step")
	defer j.executing.Store(false)

	j.applyPendingCacheInvalidation()

	hr := j.core.Step(j.cache, &j.state, &j.halt)

	j.applyPendingCacheInvalidation()

	return hr
}

// beginExecution claims the executing guard. The claim is a CAS so that a
// second concurrent entry deterministically fails instead of racing.
func (j *Jit) beginExecution(op string) {
	if !j.executing.CompareAndSwap(false, true) {
		panic(fmt.Sprintf("jit: %s called while already executing", op))
	}
}

// ClearCache requests that all compiled code be dropped. Safe to call from
// any goroutine, including while execution is in progress: the request is
// recorded and a cache-invalidation halt is raised so an in-progress Run
// returns promptly. The invalidation itself is applied at the next safe
// point; ClearCache never blocks waiting for execution to stop.
func (j *Jit) ClearCache() {
	j.invalidationMu.Lock()
	defer j.invalidationMu.Unlock()
	j.invalidateAll = true
	j.HaltExecution(HaltReasonCacheInvalidation)
}

// InvalidateCacheRange requests invalidation of the guest address range
// [addr, addr+length-1]. Safe to call from any goroutine; the range is
// merged into the coalesced pending set and applied at the next safe
// point. A zero length is a no-op. Ranges reaching past the top of the
// guest address space are clamped to 0xFFFFFFFF.
func (j *Jit) InvalidateCacheRange(addr uint32, length uint64) {
	if length == 0 {
		return
	}

	last := uint64(addr) + length - 1
	if last > 0xFFFFFFFF {
		last = 0xFFFFFFFF
	}

	j.invalidationMu.Lock()
	defer j.invalidationMu.Unlock()
	j.pendingRanges.Add(addr, uint32(last))
	j.HaltExecution(HaltReasonCacheInvalidation)
}

// Reset replaces the live CPU state with the guest reset state. Must not
// be called while executing.
func (j *Jit) Reset() {
	j.mustNotBeExecuting("Reset")
	j.state = state.CPUState{}
}

// HaltExecution atomically raises the given halt reason. The dispatcher
// observes it at block-boundary granularity.
func (j *Jit) HaltExecution(hr HaltReason) {
	j.halt.Raise(hr)
	j.logger.Debug("halt requested", zap.Stringer("reason", hr))
}

// ClearHalt atomically clears the given halt reason.
func (j *Jit) ClearHalt(hr HaltReason) {
	j.halt.Clear(hr)
}

// HaltReasons returns the currently raised halt reasons.
func (j *Jit) HaltReasons() HaltReason {
	return j.halt.Load()
}

// SaveContext returns a new deep-copied snapshot of the live CPU state.
func (j *Jit) SaveContext() Context {
	return Context{state: j.state}
}

// SaveContextTo overwrites ctx with a deep copy of the live CPU state.
func (j *Jit) SaveContextTo(ctx *Context) {
	ctx.state = j.state
}

// LoadContext deep-copies ctx's snapshot into the live CPU state. Must not
// be called while executing.
func (j *Jit) LoadContext(ctx *Context) {
	j.mustNotBeExecuting("LoadContext")
	j.state = ctx.state
}

// ClearExclusiveState abandons any guest exclusive-access sequence in
// progress, for example after the embedding application switches guest
// threads.
func (j *Jit) ClearExclusiveState() {
	j.state.Exclusive = false
}

// Reg returns general register i of the live state.
func (j *Jit) Reg(i int) uint32 { return j.state.Regs[i] }

// SetReg sets general register i of the live state.
func (j *Jit) SetReg(i int, v uint32) { j.state.Regs[i] = v }

// ExtReg returns extension register i of the live state.
func (j *Jit) ExtReg(i int) uint32 { return j.state.ExtRegs[i] }

// SetExtReg sets extension register i of the live state.
func (j *Jit) SetExtReg(i int, v uint32) { j.state.ExtRegs[i] = v }

// CPSR returns the live packed program status register.
func (j *Jit) CPSR() uint32 { return j.state.CPSR }

// SetCPSR sets the live packed program status register.
func (j *Jit) SetCPSR(v uint32) { j.state.CPSR = v }

// FPSCR returns the live packed floating-point status register.
func (j *Jit) FPSCR() uint32 { return j.state.FPSCR }

// SetFPSCR sets the live packed floating-point status register.
func (j *Jit) SetFPSCR(v uint32) { j.state.FPSCR = v }

// PC returns the live program counter.
func (j *Jit) PC() uint32 { return j.state.PC() }

// SetPC sets the live program counter.
func (j *Jit) SetPC(v uint32) { j.state.SetPC(v) }

// DumpDisassembly is not supported in this build.
func (j *Jit) DumpDisassembly() {
	panic("jit: DumpDisassembly is not supported")
}

// applyPendingCacheInvalidation consumes the pending invalidation state
// recorded since the last application and applies it to the cache. A full
// clear subsumes any partial ranges. Partial ranges currently also clear
// the whole cache; that is coarse but correct, since every address in
// every requested range stops being served from stale compiled code.
// An empty pending set is a cheap no-op.
func (j *Jit) applyPendingCacheInvalidation() {
	j.halt.Clear(HaltReasonCacheInvalidation)

	j.invalidationMu.Lock()
	all := j.invalidateAll
	partial := j.pendingRanges.Len()
	j.invalidateAll = false
	j.pendingRanges.Clear()
	j.invalidationMu.Unlock()

	if !all && partial == 0 {
		return
	}

	j.cache.ClearCache()
	j.logger.Debug("cache invalidation applied",
		zap.Bool("full", all),
		zap.Int("pendingRanges", partial))
}

func (j *Jit) mustNotBeExecuting(op string) {
	if j.executing.Load() {
		panic(fmt.Sprintf("jit: %s called while executing", op))
	}
}
