package constpool_test

import (
	"bytes"
	"math"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/GriffinCanCode/a64isel/pkg/constpool"
	"github.com/GriffinCanCode/a64isel/pkg/dag"
	"github.com/GriffinCanCode/a64isel/pkg/target"
)

var _ = Describe("Pool", func() {
	var pool *constpool.Pool

	BeforeEach(func() {
		pool = constpool.New(target.CodeModelSmall)
	})

	Describe("Intern", func() {
		It("should deduplicate identical value and type", func() {
			a := pool.Intern(0x12345678, dag.I32, 4)
			b := pool.Intern(0x12345678, dag.I32, 4)
			Expect(b).To(Equal(a))
			Expect(pool.Len()).To(Equal(1))
		})

		It("should keep entries of different types apart", func() {
			a := pool.Intern(0x3ff0000000000000, dag.I64, 8)
			b := pool.Intern(0x3ff0000000000000, dag.F64, 8)
			Expect(b).NotTo(Equal(a))
			Expect(pool.Len()).To(Equal(2))
		})

		It("should truncate bits to the entry type", func() {
			a := pool.Intern(0xffffffff_12345678, dag.I32, 4)
			b := pool.Intern(0x12345678, dag.I32, 4)
			Expect(b).To(Equal(a))

			e, err := pool.Entry(a)
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Bits).To(Equal(uint64(0x12345678)))
		})

		It("should default to natural alignment", func() {
			h := pool.Intern(1, dag.I64, 0)
			e, err := pool.Entry(h)
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Align).To(Equal(8))
		})

		It("should share entries across goroutines", func() {
			var wg sync.WaitGroup
			handles := make([]constpool.Handle, 64)
			for i := range handles {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					handles[i] = pool.Intern(0xdeadbeefcafe, dag.I64, 8)
				}(i)
			}
			wg.Wait()

			for _, h := range handles {
				Expect(h).To(Equal(handles[0]))
			}
			Expect(pool.Len()).To(Equal(1))
		})
	})

	Describe("AddressOf", func() {
		It("should return page and lo12 parts", func() {
			h := pool.Intern(42, dag.I64, 8)
			addr, err := pool.AddressOf(h)
			Expect(err).NotTo(HaveOccurred())
			Expect(addr.Page).To(Equal(".LCPI0"))
			Expect(addr.Lo12).To(Equal(":lo12:.LCPI0"))
		})

		It("should reject other code models", func() {
			large := constpool.New(target.CodeModelLarge)
			h := large.Intern(42, dag.I64, 8)
			_, err := large.AddressOf(h)
			Expect(err).To(MatchError(constpool.ErrUnsupportedCodeModel))
		})

		It("should reject unknown handles", func() {
			_, err := pool.AddressOf(7)
			Expect(err).To(MatchError(constpool.ErrUnknownEntry))
		})
	})

	Describe("Emit", func() {
		It("should group entries by size", func() {
			pool.Intern(0x12345678, dag.I32, 4)
			pool.Intern(math.Float64bits(0.1), dag.F64, 8)

			var buf bytes.Buffer
			Expect(pool.Emit(&buf)).To(Succeed())

			out := buf.String()
			Expect(out).To(ContainSubstring(".rodata.cst8"))
			Expect(out).To(ContainSubstring(".rodata.cst4"))
			Expect(out).To(ContainSubstring(".LCPI1:\n\t.xword\t0x3fb999999999999a\t// double 0.1"))
			Expect(out).To(ContainSubstring(".LCPI0:\n\t.word\t0x12345678"))
			Expect(out).To(ContainSubstring("\t.p2align\t3\n"))
		})
	})
})
