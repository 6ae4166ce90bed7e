// Package state provides the guest-visible CPU state for the ARM32-style
// translator: general and extension registers, the packed CPSR and FPSCR
// words, and the exclusive-monitor flag.
//
// CPUState is a plain value type. Assigning one CPUState to another copies
// every register, so snapshots taken by value never alias live state. The
// zero value is the guest reset state (all registers and flags zero).
package state

// Register indices with architectural roles.
const (
	// RegSP is the stack pointer (R13).
	RegSP = 13
	// RegLR is the link register (R14).
	RegLR = 14
	// RegPC is the program counter (R15).
	RegPC = 15
)

// NumRegs is the number of general-purpose guest registers.
const NumRegs = 16

// NumExtRegs is the number of extension (single-precision view) registers.
const NumExtRegs = 64

// CPSR bit positions and masks. The packed word is decomposed through
// accessor methods rather than a bit-field struct so the layout is explicit.
const (
	cpsrN = 1 << 31
	cpsrZ = 1 << 30
	cpsrC = 1 << 29
	cpsrV = 1 << 28
	cpsrQ = 1 << 27
	cpsrE = 1 << 9
	cpsrT = 1 << 5

	cpsrGEShift  = 16
	cpsrGEMask   = 0xF << cpsrGEShift
	cpsrModeMask = 0x1F
)

// FPSCR bit positions and masks.
const (
	fpscrIOC = 1 << 0
	fpscrDZC = 1 << 1
	fpscrOFC = 1 << 2
	fpscrUFC = 1 << 3
	fpscrIXC = 1 << 4
	fpscrIDC = 1 << 7
	fpscrFZ  = 1 << 24
	fpscrDN  = 1 << 25

	fpscrRModeShift = 22
	fpscrRModeMask  = 0x3 << fpscrRModeShift
)

// CPUState is a complete guest CPU snapshot.
type CPUState struct {
	// Regs holds general-purpose registers R0-R15.
	// Regs[13] is SP, Regs[14] is LR, Regs[15] is PC.
	Regs [NumRegs]uint32

	// ExtRegs holds extension registers S0-S63.
	ExtRegs [NumExtRegs]uint32

	// CPSR is the packed program status register.
	CPSR uint32

	// FPSCR is the packed floating-point status and control register.
	FPSCR uint32

	// Exclusive is true while a guest exclusive-access (load-linked /
	// store-conditional style) sequence is in progress.
	Exclusive bool
}

// PC returns the program counter.
func (s *CPUState) PC() uint32 { return s.Regs[RegPC] }

// SetPC sets the program counter.
func (s *CPUState) SetPC(v uint32) { s.Regs[RegPC] = v }

// SP returns the stack pointer.
func (s *CPUState) SP() uint32 { return s.Regs[RegSP] }

// SetSP sets the stack pointer.
func (s *CPUState) SetSP(v uint32) { s.Regs[RegSP] = v }

// LR returns the link register.
func (s *CPUState) LR() uint32 { return s.Regs[RegLR] }

// SetLR sets the link register.
func (s *CPUState) SetLR(v uint32) { s.Regs[RegLR] = v }

// NFlag returns the negative flag (CPSR bit 31).
func (s *CPUState) NFlag() bool { return s.CPSR&cpsrN != 0 }

// SetNFlag sets the negative flag.
func (s *CPUState) SetNFlag(v bool) { s.setCPSRBit(cpsrN, v) }

// ZFlag returns the zero flag (CPSR bit 30).
func (s *CPUState) ZFlag() bool { return s.CPSR&cpsrZ != 0 }

// SetZFlag sets the zero flag.
func (s *CPUState) SetZFlag(v bool) { s.setCPSRBit(cpsrZ, v) }

// CFlag returns the carry flag (CPSR bit 29).
func (s *CPUState) CFlag() bool { return s.CPSR&cpsrC != 0 }

// SetCFlag sets the carry flag.
func (s *CPUState) SetCFlag(v bool) { s.setCPSRBit(cpsrC, v) }

// VFlag returns the overflow flag (CPSR bit 28).
func (s *CPUState) VFlag() bool { return s.CPSR&cpsrV != 0 }

// SetVFlag sets the overflow flag.
func (s *CPUState) SetVFlag(v bool) { s.setCPSRBit(cpsrV, v) }

// QFlag returns the sticky saturation flag (CPSR bit 27).
func (s *CPUState) QFlag() bool { return s.CPSR&cpsrQ != 0 }

// SetQFlag sets the sticky saturation flag.
func (s *CPUState) SetQFlag(v bool) { s.setCPSRBit(cpsrQ, v) }

// GE returns the SIMD greater-or-equal bits (CPSR bits 19:16).
func (s *CPUState) GE() uint32 { return (s.CPSR & cpsrGEMask) >> cpsrGEShift }

// SetGE sets the SIMD greater-or-equal bits from the low four bits of v.
func (s *CPUState) SetGE(v uint32) {
	s.CPSR = (s.CPSR &^ cpsrGEMask) | ((v << cpsrGEShift) & cpsrGEMask)
}

// EFlag returns the endianness bit (CPSR bit 9).
func (s *CPUState) EFlag() bool { return s.CPSR&cpsrE != 0 }

// SetEFlag sets the endianness bit.
func (s *CPUState) SetEFlag(v bool) { s.setCPSRBit(cpsrE, v) }

// TFlag returns the Thumb execution bit (CPSR bit 5).
func (s *CPUState) TFlag() bool { return s.CPSR&cpsrT != 0 }

// SetTFlag sets the Thumb execution bit.
func (s *CPUState) SetTFlag(v bool) { s.setCPSRBit(cpsrT, v) }

// Mode returns the processor mode field (CPSR bits 4:0).
func (s *CPUState) Mode() uint32 { return s.CPSR & cpsrModeMask }

// SetMode sets the processor mode field from the low five bits of v.
func (s *CPUState) SetMode(v uint32) {
	s.CPSR = (s.CPSR &^ cpsrModeMask) | (v & cpsrModeMask)
}

func (s *CPUState) setCPSRBit(mask uint32, v bool) {
	if v {
		s.CPSR |= mask
	} else {
		s.CPSR &^= mask
	}
}

// RMode returns the floating-point rounding mode (FPSCR bits 23:22).
func (s *CPUState) RMode() uint32 { return (s.FPSCR & fpscrRModeMask) >> fpscrRModeShift }

// SetRMode sets the floating-point rounding mode from the low two bits of v.
func (s *CPUState) SetRMode(v uint32) {
	s.FPSCR = (s.FPSCR &^ fpscrRModeMask) | ((v << fpscrRModeShift) & fpscrRModeMask)
}

// FZ returns the flush-to-zero bit (FPSCR bit 24).
func (s *CPUState) FZ() bool { return s.FPSCR&fpscrFZ != 0 }

// SetFZ sets the flush-to-zero bit.
func (s *CPUState) SetFZ(v bool) { s.setFPSCRBit(fpscrFZ, v) }

// DN returns the default-NaN bit (FPSCR bit 25).
func (s *CPUState) DN() bool { return s.FPSCR&fpscrDN != 0 }

// SetDN sets the default-NaN bit.
func (s *CPUState) SetDN(v bool) { s.setFPSCRBit(fpscrDN, v) }

// CumulativeExceptions returns the cumulative exception flags
// (IDC, IXC, UFC, OFC, DZC, IOC) packed in their FPSCR positions.
func (s *CPUState) CumulativeExceptions() uint32 {
	return s.FPSCR & (fpscrIDC | fpscrIXC | fpscrUFC | fpscrOFC | fpscrDZC | fpscrIOC)
}

// ClearCumulativeExceptions clears all cumulative exception flags.
func (s *CPUState) ClearCumulativeExceptions() {
	s.FPSCR &^= fpscrIDC | fpscrIXC | fpscrUFC | fpscrOFC | fpscrDZC | fpscrIOC
}

func (s *CPUState) setFPSCRBit(mask uint32, v bool) {
	if v {
		s.FPSCR |= mask
	} else {
		s.FPSCR &^= mask
	}
}
