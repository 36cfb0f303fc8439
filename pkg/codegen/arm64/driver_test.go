package arm64

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/GriffinCanCode/a64isel/pkg/constpool"
	"github.com/GriffinCanCode/a64isel/pkg/dag"
	"github.com/GriffinCanCode/a64isel/pkg/target"
)

// returnConstant builds "return <v>" as a function
func returnConstant(name string, v uint64) *dag.Function {
	g := dag.New()
	c := g.Constant(v, dag.I64)
	g.Root = g.Op(dag.OpReturn, []dag.VT{dag.Other}, g.EntryNode(), c)
	return &dag.Function{Name: name, Graph: g}
}

var _ = Describe("SelectModule", func() {
	var (
		pool    *constpool.Pool
		reg     *prometheus.Registry
		metrics *Metrics
	)

	BeforeEach(func() {
		pool = constpool.New(target.CodeModelSmall)
		reg = prometheus.NewRegistry()
		metrics = NewMetrics(reg)
	})

	It("should select functions concurrently with a shared pool", func() {
		fns := make([]*dag.Function, 16)
		for i := range fns {
			fns[i] = returnConstant(fmt.Sprintf("f%d", i), 0x0123456789abcdef)
		}

		results, err := SelectModule(context.Background(), target.Default(), pool, fns, ModuleOptions{
			Parallelism: 4,
			NewMatcher:  func() Matcher { return NewBasicMatcher() },
			Metrics:     metrics,
			Validate:    true,
			Strict:      true,
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(16))
		Expect(results[3].Function).To(Equal("f3"))
		Expect(pool.Len()).To(Equal(1))
		Expect(testutil.ToFloat64(metrics.constants.WithLabelValues(StrategyLiteralPool))).To(Equal(16.0))

		for _, fn := range fns {
			ret := fn.Graph.Node(fn.Graph.Root.Node)
			ld := fn.Graph.Node(ret.Operands[1].Node)
			Expect(MachineOpcode(ld)).To(Equal(LdrX))
		}
	})

	It("should return contract violations as errors", func() {
		g := dag.New()
		mem := dag.MemOperand{VT: dag.I1, Ordering: dag.SequentiallyConsistent}
		ptr := g.CopyFromReg(g.EntryNode(), X0, dag.I64)
		a := g.Atomic(dag.OpAtomicSwap, dag.I32, mem, g.EntryNode(), ptr, g.Constant(1, dag.I32))
		g.Root = dag.Value{Node: a.Node, ResNo: 1}
		fns := []*dag.Function{returnConstant("ok", 1), {Name: "broken", Graph: g}}

		_, err := SelectModule(context.Background(), target.Default(), pool, fns, ModuleOptions{})

		var ce *ContractError
		Expect(errors.As(err, &ce)).To(BeTrue())
		Expect(ce.Function).To(Equal("broken"))
		Expect(ce.Reason).To(ContainSubstring("width"))
	})

	It("should reject an invalid target configuration", func() {
		cfg := target.Default()
		cfg.CodeModel = "huge"
		_, err := SelectModule(context.Background(), cfg, pool, nil, ModuleOptions{})
		Expect(errors.Is(err, target.ErrUnknownCodeModel)).To(BeTrue())
	})

	It("should report validation failures", func() {
		fns := []*dag.Function{returnConstant("lenient", 0x0123456789abcdef)}
		_, err := SelectModule(context.Background(), target.Default(), pool, fns, ModuleOptions{
			Validate: true,
			Strict:   true,
		})
		Expect(err).To(MatchError(ContainSubstring("lenient")))
	})

	It("should stop when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		fns := []*dag.Function{returnConstant("f", 1)}
		_, err := SelectModule(ctx, target.Default(), pool, fns, ModuleOptions{})
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
	})
})
