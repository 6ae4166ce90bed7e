// Package dispatch provides the reference dispatcher: the loop that walks
// compiled blocks, compiling guest code on cache misses and polling the
// halt signal at block boundaries.
//
// The block compiler itself is a collaborator behind the Compiler
// interface; this package only implements the dispatch protocol.
package dispatch

import (
	"github.com/mayhemheroes/armjit/cache"
	"github.com/mayhemheroes/armjit/jit"
	"github.com/mayhemheroes/armjit/state"
)

// Compiler turns guest code at an address into a compiled block. When
// singleStep is true the block must cover exactly one guest instruction.
type Compiler interface {
	Compile(addr uint32, singleStep bool) (cache.Block, error)
}

// BlockSource is the cache surface the dispatcher needs. *cache.Cache
// satisfies it.
type BlockSource interface {
	jit.TranslationCache
	Lookup(addr uint32) *cache.Block
	Insert(blk cache.Block) *cache.Block
}

// Core is the reference dispatcher. It implements jit.Dispatcher.
type Core struct {
	compiler Compiler
}

// NewCore creates a dispatcher that compiles through compiler on cache
// misses.
func NewCore(compiler Compiler) *Core {
	return &Core{compiler: compiler}
}

// Run executes compiled blocks starting at the state's PC until a halt
// reason is observed. The halt flag is polled once per block, so halt
// latency is bounded by the length of the currently executing block.
// Blocks compiled on a miss are inserted into the cache.
func (c *Core) Run(tc jit.TranslationCache, st *state.CPUState, halt *jit.HaltFlag) jit.HaltReason {
	src, ok := tc.(BlockSource)
	if !ok {
		panic("dispatch: translation cache does not expose block lookup")
	}

	for {
		if hr := halt.Load(); hr != 0 {
			return hr
		}

		blk := src.Lookup(st.PC())
		if blk == nil {
			compiled, err := c.compiler.Compile(st.PC(), false)
			if err != nil {
				halt.Raise(jit.HaltReasonMemoryAbort)
				return halt.Load()
			}
			blk = src.Insert(compiled)
		}

		if hr := blk.Run(st); hr != 0 {
			return hr | halt.Load()
		}
	}
}

// Step executes exactly one guest instruction. The single-instruction
// block is compiled fresh and never inserted into the cache, so stepping
// does not pollute it with one-instruction blocks. Returns the block's
// halt reason with HaltReasonStep set, plus any concurrently raised bits.
func (c *Core) Step(tc jit.TranslationCache, st *state.CPUState, halt *jit.HaltFlag) jit.HaltReason {
	if hr := halt.Load(); hr != 0 {
		return hr
	}

	compiled, err := c.compiler.Compile(st.PC(), true)
	if err != nil {
		halt.Raise(jit.HaltReasonMemoryAbort)
		return halt.Load()
	}

	hr := compiled.Run(st)
	return hr | jit.HaltReasonStep | halt.Load()
}
