package jit

import "github.com/mayhemheroes/armjit/state"

// Context is a portable, value-semantic snapshot of guest CPU state. It
// holds its own copy of the state, so assigning one Context to another
// deep-copies every register, and a saved Context never aliases the
// controller's live state.
//
// The zero value is a snapshot of the guest reset state.
type Context struct {
	state state.CPUState
}

// NewContext returns a Context holding the guest reset state.
func NewContext() Context {
	return Context{}
}

// Reg returns general register i.
func (c *Context) Reg(i int) uint32 { return c.state.Regs[i] }

// SetReg sets general register i.
func (c *Context) SetReg(i int, v uint32) { c.state.Regs[i] = v }

// ExtReg returns extension register i.
func (c *Context) ExtReg(i int) uint32 { return c.state.ExtRegs[i] }

// SetExtReg sets extension register i.
func (c *Context) SetExtReg(i int, v uint32) { c.state.ExtRegs[i] = v }

// CPSR returns the packed program status register.
func (c *Context) CPSR() uint32 { return c.state.CPSR }

// SetCPSR sets the packed program status register.
func (c *Context) SetCPSR(v uint32) { c.state.CPSR = v }

// FPSCR returns the packed floating-point status and control register.
func (c *Context) FPSCR() uint32 { return c.state.FPSCR }

// SetFPSCR sets the packed floating-point status and control register.
func (c *Context) SetFPSCR(v uint32) { c.state.FPSCR = v }

// State returns a copy of the snapshot.
func (c Context) State() state.CPUState { return c.state }

// SetState overwrites the snapshot with a copy of st.
func (c *Context) SetState(st state.CPUState) { c.state = st }
