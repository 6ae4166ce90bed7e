// Package cache provides the compiled-block translation cache, built on
// Akita cache-directory components.
//
// The cache maps guest code start addresses to compiled native blocks. It
// is bounded: blocks are organized set-associatively and the least
// recently used block in a set is evicted when the set is full. The cache
// is mutated only by the executing goroutine; concurrent invalidation
// requests go through the controller, which applies them at safe points.
package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/mayhemheroes/armjit/jit"
	"github.com/mayhemheroes/armjit/state"
)

// BlockFn is a compiled block: a host-native function over guest state.
// It advances the state (including the PC) past the guest code it covers
// and returns zero, or the halt reason it produced (for example a
// breakpoint embedded in the block).
type BlockFn func(st *state.CPUState) jit.HaltReason

// Block is one compiled unit of guest code.
type Block struct {
	// Addr is the guest address of the first instruction in the block.
	Addr uint32
	// GuestSize is the number of guest code bytes the block covers.
	GuestSize uint32
	// Run executes the block.
	Run BlockFn
}

// Config holds cache organization parameters.
type Config struct {
	// NumSets is the number of sets blocks are distributed over.
	NumSets int
	// Associativity is the number of blocks per set.
	Associativity int
}

// DefaultConfig returns the default cache organization:
// 1024 sets, 4-way, for a capacity of 4096 compiled blocks.
func DefaultConfig() Config {
	return Config{
		NumSets:       1024,
		Associativity: 4,
	}
}

// Statistics holds cache performance counters.
type Statistics struct {
	Lookups   uint64
	Hits      uint64
	Misses    uint64
	Inserts   uint64
	Evictions uint64
	Clears    uint64
}

// Cache is a bounded set-associative compiled-block cache. It implements
// jit.TranslationCache.
type Cache struct {
	config Config

	// Akita cache directory for tag/state and LRU management. Entries
	// are tagged with the exact guest start address (1-byte lines).
	directory *akitacache.DirectoryImpl

	// blocks is the block storage, indexed by setID*associativity+wayID
	// in parallel with the directory.
	blocks []Block

	stats Statistics
}

// New creates an empty cache with the given organization.
func New(config Config) *Cache {
	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			config.NumSets,
			config.Associativity,
			1, // tag equals the guest start address
			akitacache.NewLRUVictimFinder(),
		),
		blocks: make([]Block, config.NumSets*config.Associativity),
	}
}

// Config returns the cache organization.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns the performance counters.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears the performance counters.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

// blockIndex computes the index into blocks for a directory entry.
func (c *Cache) blockIndex(entry *akitacache.Block) int {
	return entry.SetID*c.config.Associativity + entry.WayID
}

// Lookup returns the compiled block starting at addr, or nil if no block
// for that address is cached. A hit refreshes the block's LRU position.
func (c *Cache) Lookup(addr uint32) *Block {
	c.stats.Lookups++

	entry := c.directory.Lookup(0, uint64(addr))
	if entry == nil || !entry.IsValid {
		c.stats.Misses++
		return nil
	}

	c.stats.Hits++
	c.directory.Visit(entry)
	return &c.blocks[c.blockIndex(entry)]
}

// Insert stores blk, evicting the least recently used block in its set if
// the set is full. It returns a pointer to the stored block.
func (c *Cache) Insert(blk Block) *Block {
	c.stats.Inserts++

	entry := c.directory.Lookup(0, uint64(blk.Addr))
	if entry == nil || !entry.IsValid {
		entry = c.directory.FindVictim(uint64(blk.Addr))
		if entry.IsValid {
			c.stats.Evictions++
		}
		entry.Tag = uint64(blk.Addr)
		entry.IsValid = true
	}

	idx := c.blockIndex(entry)
	c.blocks[idx] = blk
	c.directory.Visit(entry)
	return &c.blocks[idx]
}

// Len returns the number of blocks currently cached.
func (c *Cache) Len() int {
	n := 0
	for _, set := range c.directory.GetSets() {
		for _, entry := range set.Blocks {
			if entry.IsValid {
				n++
			}
		}
	}
	return n
}

// ClearCache drops all compiled blocks. Implements jit.TranslationCache.
func (c *Cache) ClearCache() {
	c.directory.Reset()
	for i := range c.blocks {
		c.blocks[i] = Block{}
	}
	c.stats.Clears++
}
