package jit_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mayhemheroes/armjit/jit"
)

var _ = Describe("RangeSet", func() {
	var s *jit.RangeSet

	BeforeEach(func() {
		s = &jit.RangeSet{}
	})

	It("should start empty", func() {
		Expect(s.Empty()).To(BeTrue())
		Expect(s.Len()).To(Equal(0))
	})

	It("should store a single range", func() {
		s.Add(0x100, 0x1FF)
		Expect(s.Ranges()).To(Equal([]jit.Range{{First: 0x100, Last: 0x1FF}}))
	})

	It("should keep disjoint ranges separate", func() {
		s.Add(0x100, 0x1FF)
		s.Add(0x300, 0x3FF)
		Expect(s.Ranges()).To(Equal([]jit.Range{
			{First: 0x100, Last: 0x1FF},
			{First: 0x300, Last: 0x3FF},
		}))
	})

	It("should merge overlapping ranges", func() {
		s.Add(0x100, 0x1FF)
		s.Add(0x180, 0x2FF)
		Expect(s.Ranges()).To(Equal([]jit.Range{{First: 0x100, Last: 0x2FF}}))
	})

	It("should merge adjacent ranges", func() {
		s.Add(0x100, 0x1FF)
		s.Add(0x200, 0x2FF)
		Expect(s.Ranges()).To(Equal([]jit.Range{{First: 0x100, Last: 0x2FF}}))
	})

	It("should merge a range bridging several stored ranges", func() {
		s.Add(0x100, 0x10F)
		s.Add(0x200, 0x20F)
		s.Add(0x300, 0x30F)
		s.Add(0x108, 0x2FF)
		Expect(s.Ranges()).To(Equal([]jit.Range{{First: 0x100, Last: 0x30F}}))
	})

	It("should absorb a contained range without change", func() {
		s.Add(0x100, 0x3FF)
		s.Add(0x200, 0x2FF)
		Expect(s.Ranges()).To(Equal([]jit.Range{{First: 0x100, Last: 0x3FF}}))
	})

	It("should extend a stored range that contains the new start", func() {
		s.Add(0x100, 0x1FF)
		s.Add(0x1FF, 0x1FF)
		Expect(s.Ranges()).To(Equal([]jit.Range{{First: 0x100, Last: 0x1FF}}))
	})

	It("should handle insertion before all stored ranges", func() {
		s.Add(0x300, 0x3FF)
		s.Add(0x100, 0x1FF)
		Expect(s.Ranges()).To(Equal([]jit.Range{
			{First: 0x100, Last: 0x1FF},
			{First: 0x300, Last: 0x3FF},
		}))
	})

	It("should handle address zero", func() {
		s.Add(0, 0xF)
		s.Add(0x10, 0x1F)
		Expect(s.Ranges()).To(Equal([]jit.Range{{First: 0, Last: 0x1F}}))
	})

	It("should handle the top of the address space", func() {
		s.Add(0xFFFFFFF0, 0xFFFFFFFF)
		s.Add(0xFFFFFFE0, 0xFFFFFFEF)
		Expect(s.Ranges()).To(Equal([]jit.Range{{First: 0xFFFFFFE0, Last: 0xFFFFFFFF}}))
	})

	It("should never materialize two ranges that overlap or touch", func() {
		inserts := []jit.Range{
			{0x500, 0x5FF}, {0x000, 0x0FF}, {0x100, 0x17F},
			{0x480, 0x520}, {0x200, 0x2FF}, {0x300, 0x47F},
		}
		for _, r := range inserts {
			s.Add(r.First, r.Last)
		}

		ranges := s.Ranges()
		for i := 1; i < len(ranges); i++ {
			Expect(ranges[i].First).To(BeNumerically(">", uint64(ranges[i-1].Last)+1))
		}
	})

	Describe("Contains", func() {
		It("should report membership at range boundaries", func() {
			s.Add(0x100, 0x1FF)
			Expect(s.Contains(0x0FF)).To(BeFalse())
			Expect(s.Contains(0x100)).To(BeTrue())
			Expect(s.Contains(0x1FF)).To(BeTrue())
			Expect(s.Contains(0x200)).To(BeFalse())
		})
	})

	Describe("Clear", func() {
		It("should remove all ranges", func() {
			s.Add(0x100, 0x1FF)
			s.Add(0x300, 0x3FF)
			s.Clear()
			Expect(s.Empty()).To(BeTrue())
			Expect(s.Ranges()).To(BeEmpty())
		})
	})
})
