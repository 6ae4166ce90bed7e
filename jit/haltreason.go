package jit

import (
	"strings"
	"sync/atomic"
)

// HaltReason is a bitmask of independent reasons why execution stopped or
// should stop. Multiple reasons may be set at once.
type HaltReason uint32

// Halt reasons. UserDefined reasons are reserved for the embedding
// application (for example, compiled blocks signalling a guest trap).
const (
	// HaltReasonStep indicates a single-step request completed.
	HaltReasonStep HaltReason = 1 << 0

	// HaltReasonCacheInvalidation indicates a pending code-cache
	// invalidation; the dispatcher must return so the controller can
	// apply it before the cache is consulted again.
	HaltReasonCacheInvalidation HaltReason = 1 << 1

	// HaltReasonMemoryAbort indicates guest code could not be fetched
	// or translated.
	HaltReasonMemoryAbort HaltReason = 1 << 2

	// HaltReasonBreakpoint indicates a breakpoint was hit.
	HaltReasonBreakpoint HaltReason = 1 << 3

	HaltReasonUserDefined1 HaltReason = 1 << 24
	HaltReasonUserDefined2 HaltReason = 1 << 25
	HaltReasonUserDefined3 HaltReason = 1 << 26
	HaltReasonUserDefined4 HaltReason = 1 << 27
)

var haltReasonNames = []struct {
	bit  HaltReason
	name string
}{
	{HaltReasonStep, "Step"},
	{HaltReasonCacheInvalidation, "CacheInvalidation"},
	{HaltReasonMemoryAbort, "MemoryAbort"},
	{HaltReasonBreakpoint, "Breakpoint"},
	{HaltReasonUserDefined1, "UserDefined1"},
	{HaltReasonUserDefined2, "UserDefined2"},
	{HaltReasonUserDefined3, "UserDefined3"},
	{HaltReasonUserDefined4, "UserDefined4"},
}

// String returns a "|"-joined list of the set reason names.
func (hr HaltReason) String() string {
	if hr == 0 {
		return "None"
	}

	var names []string
	for _, e := range haltReasonNames {
		if hr&e.bit != 0 {
			names = append(names, e.name)
			hr &^= e.bit
		}
	}
	if hr != 0 {
		names = append(names, "Unknown")
	}
	return strings.Join(names, "|")
}

// HaltFlag is the shared halt signal. It is written from threads other than
// the executing one, so every mutation is a single atomic fetch-or or
// fetch-and-complement; there is no plain read-modify-write path.
//
// The zero value is an all-clear signal ready for use.
type HaltFlag struct {
	bits atomic.Uint32
}

// Raise sets the given reason bits. Wait-free; safe from any goroutine.
func (f *HaltFlag) Raise(hr HaltReason) {
	f.bits.Or(uint32(hr))
}

// Clear clears the given reason bits. Wait-free; safe from any goroutine.
func (f *HaltFlag) Clear(hr HaltReason) {
	f.bits.And(^uint32(hr))
}

// Load returns the currently set reasons.
func (f *HaltFlag) Load() HaltReason {
	return HaltReason(f.bits.Load())
}
