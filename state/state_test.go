package state_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mayhemheroes/armjit/state"
)

var _ = Describe("CPUState", func() {
	var st state.CPUState

	BeforeEach(func() {
		st = state.CPUState{}
	})

	Describe("Reset state", func() {
		It("should have all registers zero", func() {
			for i := 0; i < state.NumRegs; i++ {
				Expect(st.Regs[i]).To(Equal(uint32(0)))
			}
			for i := 0; i < state.NumExtRegs; i++ {
				Expect(st.ExtRegs[i]).To(Equal(uint32(0)))
			}
			Expect(st.CPSR).To(Equal(uint32(0)))
			Expect(st.FPSCR).To(Equal(uint32(0)))
			Expect(st.Exclusive).To(BeFalse())
		})
	})

	Describe("Named registers", func() {
		It("should map PC to R15", func() {
			st.SetPC(0x8000)
			Expect(st.Regs[15]).To(Equal(uint32(0x8000)))
			Expect(st.PC()).To(Equal(uint32(0x8000)))
		})

		It("should map SP to R13 and LR to R14", func() {
			st.SetSP(0x1000)
			st.SetLR(0x2000)
			Expect(st.Regs[13]).To(Equal(uint32(0x1000)))
			Expect(st.Regs[14]).To(Equal(uint32(0x2000)))
		})
	})

	Describe("CPSR decomposition", func() {
		It("should place NZCV in bits 31:28", func() {
			st.SetNFlag(true)
			st.SetZFlag(true)
			st.SetCFlag(true)
			st.SetVFlag(true)
			Expect(st.CPSR).To(Equal(uint32(0xF0000000)))
		})

		It("should clear flags independently", func() {
			st.SetNFlag(true)
			st.SetZFlag(true)
			st.SetNFlag(false)
			Expect(st.NFlag()).To(BeFalse())
			Expect(st.ZFlag()).To(BeTrue())
		})

		It("should place Q in bit 27", func() {
			st.SetQFlag(true)
			Expect(st.CPSR).To(Equal(uint32(1 << 27)))
		})

		It("should place GE in bits 19:16", func() {
			st.SetGE(0xA)
			Expect(st.CPSR).To(Equal(uint32(0xA << 16)))
			Expect(st.GE()).To(Equal(uint32(0xA)))
		})

		It("should mask GE to four bits", func() {
			st.SetGE(0x1F)
			Expect(st.GE()).To(Equal(uint32(0xF)))
		})

		It("should place T in bit 5 and E in bit 9", func() {
			st.SetTFlag(true)
			st.SetEFlag(true)
			Expect(st.CPSR).To(Equal(uint32(1<<5 | 1<<9)))
		})

		It("should keep mode in bits 4:0", func() {
			st.SetMode(0x13)
			Expect(st.Mode()).To(Equal(uint32(0x13)))
			Expect(st.CPSR).To(Equal(uint32(0x13)))
		})

		It("should not disturb other fields when setting one", func() {
			st.CPSR = 0xF00F03FF
			st.SetQFlag(true)
			Expect(st.CPSR).To(Equal(uint32(0xF80F03FF)))
		})
	})

	Describe("FPSCR decomposition", func() {
		It("should place the rounding mode in bits 23:22", func() {
			st.SetRMode(0x3)
			Expect(st.FPSCR).To(Equal(uint32(0x3 << 22)))
			Expect(st.RMode()).To(Equal(uint32(0x3)))
		})

		It("should mask the rounding mode to two bits", func() {
			st.SetRMode(0x7)
			Expect(st.RMode()).To(Equal(uint32(0x3)))
		})

		It("should place FZ in bit 24 and DN in bit 25", func() {
			st.SetFZ(true)
			st.SetDN(true)
			Expect(st.FPSCR).To(Equal(uint32(1<<24 | 1<<25)))
		})

		It("should report and clear cumulative exception flags", func() {
			st.FPSCR = 0x0000009F // all six cumulative flags
			Expect(st.CumulativeExceptions()).To(Equal(uint32(0x9F)))

			st.ClearCumulativeExceptions()
			Expect(st.CumulativeExceptions()).To(Equal(uint32(0)))
		})

		It("should not touch control bits when clearing exceptions", func() {
			st.SetFZ(true)
			st.FPSCR |= 0x1F
			st.ClearCumulativeExceptions()
			Expect(st.FZ()).To(BeTrue())
		})
	})

	Describe("Value semantics", func() {
		It("should deep-copy on assignment", func() {
			st.Regs[0] = 42
			st.ExtRegs[63] = 7
			st.Exclusive = true

			snapshot := st

			st.Regs[0] = 99
			st.ExtRegs[63] = 0
			st.Exclusive = false

			Expect(snapshot.Regs[0]).To(Equal(uint32(42)))
			Expect(snapshot.ExtRegs[63]).To(Equal(uint32(7)))
			Expect(snapshot.Exclusive).To(BeTrue())
		})
	})
})
