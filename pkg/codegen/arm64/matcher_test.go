package arm64

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/GriffinCanCode/a64isel/pkg/dag"
)

var _ = Describe("BasicMatcher", func() {
	var (
		bm *BasicMatcher
		g  *dag.Graph
	)

	BeforeEach(func() {
		bm = NewBasicMatcher()
		g = dag.New()
	})

	poolLoad := func(ext dag.LoadExtType, vt, memVT dag.VT) dag.Value {
		wrapper := g.Op(WrapperSmall, []dag.VT{dag.I64},
			g.TargetConstantPool(0, dag.I64, MONoFlag),
			g.TargetConstantPool(0, dag.I64, MOLo12),
			g.TargetConstant(uint64(memVT.Bytes()), dag.I32))
		return g.ExtLoad(ext, vt, g.EntryNode(), wrapper, dag.MemOperand{
			VT: memVT, Align: memVT.Bytes(), PtrInfo: dag.PtrConstantPool,
		})
	}

	It("should list its patterns in match order", func() {
		Expect(bm.Patterns()).To(Equal([]string{
			"load_pool", "load_uimm12", "load", "address_small",
			"fmov_imm", "fmov_zero", "logical_imm", "fcvt_fixed",
		}))
	})

	DescribeTable("literal pool loads",
		func(ext dag.LoadExtType, vt, memVT dag.VT, want Opcode) {
			ld := poolLoad(ext, vt, memVT)

			res := bm.SelectCode(g, ld.Node)

			Expect(res).To(Equal(ld.Node))
			n := g.Node(res)
			Expect(MachineOpcode(n)).To(Equal(want))
			Expect(n.VTs).To(Equal([]dag.VT{vt, dag.Other}))
			Expect(MachineOpcode(g.Node(n.Operands[0].Node))).To(Equal(AdrpXi))
			Expect(g.Node(n.Operands[1].Node).TargetFlags).To(Equal(MOLo12))
			Expect(n.Operands[2]).To(Equal(g.EntryNode()))
			Expect(n.Mem).NotTo(BeNil())
		},
		Entry("i32", dag.NonExtLoad, dag.I32, dag.I32, LdrW),
		Entry("i64", dag.NonExtLoad, dag.I64, dag.I64, LdrX),
		Entry("f32", dag.NonExtLoad, dag.F32, dag.F32, LdrS),
		Entry("f64", dag.NonExtLoad, dag.F64, dag.F64, LdrD),
		Entry("sign-extending", dag.SExtLoad, dag.I64, dag.I32, LdrswX),
	)

	It("should widen a zero-extending load with SUBREG_TO_REG", func() {
		ld := poolLoad(dag.ZExtLoad, dag.I64, dag.I32)
		user := g.Op(dag.OpAdd, []dag.VT{dag.I64}, ld, ld)
		chainUser := g.Op(dag.OpTokenFactor, []dag.VT{dag.Other}, dag.Value{Node: ld.Node, ResNo: 1})

		Expect(bm.SelectCode(g, ld.Node)).To(Equal(dag.NoNode))

		wide := g.Node(g.Node(user.Node).Operands[0].Node)
		Expect(MachineOpcode(wide)).To(Equal(SubregToReg))
		narrow := g.Node(wide.Operands[1].Node)
		Expect(MachineOpcode(narrow)).To(Equal(LdrW))
		Expect(narrow.VTs).To(Equal([]dag.VT{dag.I32, dag.Other}))
		Expect(g.Node(chainUser.Node).Operands[0]).To(Equal(dag.Value{Node: narrow.ID, ResNo: 1}))
		Expect(g.HasUses(ld)).To(BeFalse())
	})

	It("should fold a small constant offset into the load", func() {
		base := g.CopyFromReg(g.EntryNode(), X0, dag.I64)
		addr := g.Op(dag.OpAdd, []dag.VT{dag.I64}, base, g.Constant(24, dag.I64))
		ld := g.Load(dag.I64, g.EntryNode(), addr, dag.MemOperand{Align: 8})

		n := g.Node(bm.SelectCode(g, ld.Node))

		Expect(MachineOpcode(n)).To(Equal(LdrX))
		Expect(n.Operands[0]).To(Equal(base))
		Expect(g.Node(n.Operands[1].Node).Const).To(Equal(uint64(3)))
	})

	It("should not fold a misaligned offset", func() {
		base := g.CopyFromReg(g.EntryNode(), X0, dag.I64)
		addr := g.Op(dag.OpAdd, []dag.VT{dag.I64}, base, g.Constant(12, dag.I64))
		ld := g.Load(dag.I64, g.EntryNode(), addr, dag.MemOperand{Align: 8})

		n := g.Node(bm.SelectCode(g, ld.Node))

		Expect(MachineOpcode(n)).To(Equal(LdrX))
		Expect(n.Operands[0]).To(Equal(addr))
		Expect(g.Node(n.Operands[1].Node).Const).To(BeZero())
	})

	It("should leave volatile loads alone", func() {
		base := g.CopyFromReg(g.EntryNode(), X0, dag.I64)
		ld := g.Load(dag.I64, g.EntryNode(), base, dag.MemOperand{Volatile: true})
		Expect(bm.SelectCode(g, ld.Node)).To(Equal(ld.Node))
		Expect(g.Node(ld.Node).IsMachineOpcode()).To(BeFalse())
	})

	It("should select a symbol address as ADRP plus ADD", func() {
		wrapper := g.Op(WrapperSmall, []dag.VT{dag.I64},
			g.TargetConstantPool(2, dag.I64, MONoFlag),
			g.TargetConstantPool(2, dag.I64, MOLo12),
			g.TargetConstant(8, dag.I32))

		n := g.Node(bm.SelectCode(g, wrapper.Node))

		Expect(MachineOpcode(n)).To(Equal(AddXXiLo12))
		Expect(MachineOpcode(g.Node(n.Operands[0].Node))).To(Equal(AdrpXi))
	})

	DescribeTable("FP immediates",
		func(v float64, vt dag.VT, want Opcode, operand uint64) {
			c := g.ConstantFP(v, vt)
			n := g.Node(bm.SelectCode(g, c.Node))
			Expect(MachineOpcode(n)).To(Equal(want))
			Expect(n.ValueType()).To(Equal(vt))
			Expect(g.Node(n.Operands[0].Node).Const).To(Equal(operand))
		},
		Entry("1.0 double", 1.0, dag.F64, FmovDi, uint64(0x70)),
		Entry("-2.0 single", -2.0, dag.F32, FmovSi, uint64(0x80)),
		Entry("+0.0 double", 0.0, dag.F64, FmovDXzr, uint64(0)),
		Entry("+0.0 single", 0.0, dag.F32, FmovSWzr, uint64(0)),
	)

	It("should not match -0.0 or unencodable values", func() {
		neg := g.ConstantFP(math.Copysign(0, -1), dag.F64)
		tenth := g.ConstantFP(0.1, dag.F64)
		Expect(bm.SelectCode(g, neg.Node)).To(Equal(neg.Node))
		Expect(g.Node(neg.Node).IsMachineOpcode()).To(BeFalse())
		Expect(bm.SelectCode(g, tenth.Node)).To(Equal(tenth.Node))
		Expect(g.Node(tenth.Node).IsMachineOpcode()).To(BeFalse())
	})

	DescribeTable("logical immediates",
		func(op dag.Opcode, vt dag.VT, v uint64, want Opcode) {
			x := g.CopyFromReg(g.EntryNode(), X1, vt)
			n := g.Node(bm.SelectCode(g, g.Op(op, []dag.VT{vt}, x, g.Constant(v, vt)).Node))
			Expect(MachineOpcode(n)).To(Equal(want))
			Expect(n.Operands[0]).To(Equal(x))
		},
		Entry("and x", dag.OpAnd, dag.I64, uint64(0xff), AndXXi),
		Entry("and w", dag.OpAnd, dag.I32, uint64(0xff), AndWWi),
		Entry("orr x", dag.OpOr, dag.I64, uint64(0x5555555555555555), OrrXXi),
		Entry("eor w", dag.OpXor, dag.I32, uint64(0x0f0f0f0f), EorWWi),
	)

	It("should leave unencodable logical operands generic", func() {
		x := g.CopyFromReg(g.EntryNode(), X1, dag.I64)
		and := g.Op(dag.OpAnd, []dag.VT{dag.I64}, x, g.Constant(0x1234, dag.I64))
		Expect(bm.SelectCode(g, and.Node)).To(Equal(and.Node))
		Expect(g.Node(and.Node).IsMachineOpcode()).To(BeFalse())
	})

	DescribeTable("fixed-point converts",
		func(op dag.Opcode, src, dst dag.VT, scale float64, want Opcode, field uint64) {
			x := g.CopyFromReg(g.EntryNode(), X2, src)
			mul := g.Op(dag.OpFMul, []dag.VT{src}, x, g.ConstantFP(scale, src))
			cvt := g.Op(op, []dag.VT{dst}, mul)

			n := g.Node(bm.SelectCode(g, cvt.Node))

			Expect(MachineOpcode(n)).To(Equal(want))
			Expect(n.Operands[0]).To(Equal(x))
			Expect(g.Node(n.Operands[1].Node).Const).To(Equal(field))
		},
		Entry("fcvtzs w, s, #4", dag.OpFPToSInt, dag.F32, dag.I32, 16.0, FcvtzsWSi, uint64(60)),
		Entry("fcvtzu x, d, #64", dag.OpFPToUInt, dag.F64, dag.I64, math.Ldexp(1, 64), FcvtzuXDi, uint64(0)),
		Entry("fcvtzs x, s, #1", dag.OpFPToSInt, dag.F32, dag.I64, 2.0, FcvtzsXSi, uint64(63)),
		Entry("fcvtzu w, d, #32", dag.OpFPToUInt, dag.F64, dag.I32, math.Ldexp(1, 32), FcvtzuWDi, uint64(32)),
	)

	It("should reject a scale beyond the destination width", func() {
		x := g.CopyFromReg(g.EntryNode(), X2, dag.F64)
		mul := g.Op(dag.OpFMul, []dag.VT{dag.F64}, x, g.ConstantFP(math.Ldexp(1, 33), dag.F64))
		cvt := g.Op(dag.OpFPToSInt, []dag.VT{dag.I32}, mul)
		Expect(bm.SelectCode(g, cvt.Node)).To(Equal(cvt.Node))
		Expect(g.Node(cvt.Node).IsMachineOpcode()).To(BeFalse())
	})

	It("should leave machine nodes and unknown nodes alone", func() {
		mov := g.MachineNode(uint16(MovzW), []dag.VT{dag.I32}, g.TargetConstant(1, dag.I32), g.TargetConstant(0, dag.I32))
		Expect(bm.SelectCode(g, mov.Node)).To(Equal(mov.Node))

		shl := g.Op(dag.OpShl, []dag.VT{dag.I64}, g.Constant(1, dag.I64), g.Constant(2, dag.I64))
		Expect(bm.SelectCode(g, shl.Node)).To(Equal(shl.Node))
	})
})
