package arm64

import (
	"fmt"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/GriffinCanCode/a64isel/pkg/constpool"
	"github.com/GriffinCanCode/a64isel/pkg/dag"
	"github.com/GriffinCanCode/a64isel/pkg/target"
)

var atomicKinds = []dag.Opcode{
	dag.OpAtomicLoadAdd, dag.OpAtomicLoadSub, dag.OpAtomicLoadAnd, dag.OpAtomicLoadOr,
	dag.OpAtomicLoadXor, dag.OpAtomicLoadNand, dag.OpAtomicLoadMin, dag.OpAtomicLoadMax,
	dag.OpAtomicLoadUMin, dag.OpAtomicLoadUMax, dag.OpAtomicSwap, dag.OpAtomicCmpSwap,
}

var _ = Describe("Atomic lowering", func() {
	var (
		metrics *Metrics
		s       *Selector
		g       *dag.Graph
	)

	BeforeEach(func() {
		metrics = NewMetrics(prometheus.NewRegistry())
		s = NewSelector(target.Default(), constpool.New(target.CodeModelSmall), NopMatcher{}, WithMetrics(metrics))
		g = dag.New()
	})

	It("should have a distinct opcode for every kind and width", func() {
		seen := map[Opcode]bool{}
		for _, kind := range atomicKinds {
			for _, width := range []int{8, 16, 32, 64} {
				opc, ok := AtomicOpcode(kind, width)
				Expect(ok).To(BeTrue())
				Expect(opc.IsAtomic()).To(BeTrue())
				Expect(seen).NotTo(HaveKey(opc))
				seen[opc] = true
			}
		}
		Expect(seen).To(HaveLen(48))
	})

	It("should reject unknown kinds and widths", func() {
		_, ok := AtomicOpcode(dag.OpAdd, 32)
		Expect(ok).To(BeFalse())
		_, ok = AtomicOpcode(dag.OpAtomicSwap, 128)
		Expect(ok).To(BeFalse())
	})

	It("should lower a 16-bit compare-and-swap", func() {
		ptr := g.FrameIndex(0, dag.I64)
		cmp16 := g.Constant(1, dag.I32)
		swap := g.Constant(2, dag.I32)
		mem := dag.MemOperand{VT: dag.I16, Ordering: dag.Acquire}
		cas := g.Atomic(dag.OpAtomicCmpSwap, dag.I32, mem, g.EntryNode(), ptr, cmp16, swap)

		res := s.Select(g, cas.Node)

		Expect(res).To(Equal(cas.Node))
		n := g.Node(res)
		Expect(MachineOpcode(n)).To(Equal(AtomicCmpSwapI16))
		Expect(n.VTs).To(Equal([]dag.VT{dag.I32, dag.Other}))

		want := []dag.Value{ptr, cmp16, swap}
		if diff := cmp.Diff(want, n.Operands[:3]); diff != "" {
			Fail("data operands changed (-want +got):\n" + diff)
		}
		ord := g.Node(n.Operands[3].Node)
		Expect(ord.Op).To(Equal(dag.OpTargetConstant))
		Expect(dag.Ordering(ord.Const)).To(Equal(dag.Acquire))
		Expect(n.Operands[4]).To(Equal(g.EntryNode()))
		Expect(testutil.ToFloat64(metrics.atomics.WithLabelValues("16"))).To(Equal(1.0))
	})

	It("should not select a lowered atomic again", func() {
		ptr := g.FrameIndex(0, dag.I64)
		mem := dag.MemOperand{VT: dag.I64, Ordering: dag.SequentiallyConsistent}
		rmw := g.Atomic(dag.OpAtomicLoadAdd, dag.I64, mem, g.EntryNode(), ptr, g.Constant(1, dag.I64))
		s.Select(g, rmw.Node)
		ops := append([]dag.Value(nil), g.Node(rmw.Node).Operands...)

		Expect(s.Select(g, rmw.Node)).To(Equal(rmw.Node))
		Expect(g.Node(rmw.Node).Operands).To(Equal(ops))
	})

	It("should panic on an unsupported memory width", func() {
		ptr := g.FrameIndex(0, dag.I64)
		mem := dag.MemOperand{VT: dag.I1, Ordering: dag.Monotonic}
		rmw := g.Atomic(dag.OpAtomicSwap, dag.I32, mem, g.EntryNode(), ptr, g.Constant(1, dag.I32))

		Expect(func() { s.Select(g, rmw.Node) }).To(PanicWith(
			WithTransform(func(e *ContractError) string { return e.Reason },
				ContainSubstring("width 1"))))
	})

	for _, kind := range atomicKinds {
		kind := kind // per-iteration copy (go1.22 loopvar semantics)
		for _, width := range []int{8, 16, 32, 64} {
			width := width // per-iteration copy (go1.22 loopvar semantics)
			It(fmt.Sprintf("should lower %s at %d bits", kind, width), func() {
				memVT, _ := dag.IntVT(width)
				vt := dag.I32
				if width == 64 {
					vt = dag.I64
				}
				ptr := g.FrameIndex(0, dag.I64)
				vals := []dag.Value{g.Constant(1, vt)}
				if kind == dag.OpAtomicCmpSwap {
					vals = append(vals, g.Constant(2, vt))
				}
				mem := dag.MemOperand{VT: memVT, Ordering: dag.Release}
				a := g.Atomic(kind, vt, mem, g.EntryNode(), ptr, vals...)
				dataOps := len(g.Node(a.Node).Operands) - 1

				n := g.Node(s.Select(g, a.Node))

				want, _ := AtomicOpcode(kind, width)
				Expect(MachineOpcode(n)).To(Equal(want))
				Expect(n.Operands).To(HaveLen(dataOps + 2))
				Expect(n.Operands[len(n.Operands)-1]).To(Equal(g.EntryNode()))
				Expect(g.Node(n.Operands[len(n.Operands)-2].Node).Const).To(Equal(uint64(dag.Release)))
				Expect(n.Mem.Ordering).To(Equal(dag.Release))
			})
		}
	}
})
