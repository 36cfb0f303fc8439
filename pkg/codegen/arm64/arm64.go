// Package arm64 implements AArch64 instruction selection.
//
// Design: Legalized operation graphs are rewritten in place into machine
// nodes. Constants, literal-pool loads and atomic read-modify-write
// operations are lowered here; everything else goes to a pattern Matcher.
// Printer renders a selected graph as assembly over virtual registers.
package arm64

import (
	"fmt"
	"io"
	"strings"

	"github.com/GriffinCanCode/a64isel/pkg/codegen/arm64/imm"
	"github.com/GriffinCanCode/a64isel/pkg/constpool"
	"github.com/GriffinCanCode/a64isel/pkg/dag"
)

// Printer writes selected graphs as AArch64 assembly
type Printer struct {
	w       io.Writer
	regs    *VRegAlloc
	valRegs map[dag.Value]operandReg
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{
		w:       w,
		regs:    NewVRegAlloc(),
		valRegs: make(map[dag.Value]operandReg),
	}
}

// PrintModule emits the text section header followed by every function
func (p *Printer) PrintModule(fns []*dag.Function) error {
	fmt.Fprintf(p.w, "\t.text\n")
	fmt.Fprintf(p.w, "\t.p2align 2\n")

	for _, fn := range fns {
		if err := p.Print(fn); err != nil {
			return err
		}
	}
	return nil
}

// Print emits one selected function in operand-first order
func (p *Printer) Print(fn *dag.Function) error {
	p.regs.Reset()
	p.valRegs = make(map[dag.Value]operandReg)

	fmt.Fprintf(p.w, "\t.globl %s\n", fn.Name)
	fmt.Fprintf(p.w, "%s:\n", fn.Name)

	g := fn.Graph
	for _, id := range g.TopoOrder() {
		if err := p.printNode(g, g.Node(id)); err != nil {
			return fmt.Errorf("%s: %w", fn.Name, err)
		}
	}
	return nil
}

func (p *Printer) printNode(g *dag.Graph, n *dag.Node) error {
	if !n.IsMachineOpcode() {
		return p.printGeneric(g, n)
	}

	opc := MachineOpcode(n)
	switch {
	case opc == SubregToReg:
		// A W-register write already zeroed bits 63:32.
		p.valRegs[n.Value(0)] = p.use(g, n.Operands[1])
		return nil
	case opc.IsAtomic():
		return p.printAtomic(g, n, opc)
	case opc.IsLoad():
		return p.printLoad(g, n, opc)
	}

	dst := p.def(g, n.Value(0))
	ops := n.Operands
	switch opc {
	case MovzX, MovzW, MovnX, MovnW:
		mnemonic := "movz"
		if opc == MovnX || opc == MovnW {
			mnemonic = "movn"
		}
		fmt.Fprintf(p.w, "\t%s %s, #%#x, lsl #%d\n", mnemonic, dst, constOf(g, ops[0]), constOf(g, ops[1])*16)

	case OrrXXi, OrrWWi, AndXXi, AndWWi, EorXXi, EorWWi:
		width := n.ValueType().Bits()
		pattern, ok := imm.DecodeLogicalImm(width, uint32(constOf(g, ops[1])))
		if !ok {
			return fmt.Errorf("t%d: invalid logical immediate %#x", n.ID, constOf(g, ops[1]))
		}
		fmt.Fprintf(p.w, "\t%s %s, %s, #%#x\n", logicalMnemonic(opc), dst, p.operand(g, ops[0]), pattern)

	case AddXXiLsl0, AddXXiLo12:
		fmt.Fprintf(p.w, "\tadd %s, %s, %s\n", dst, p.operand(g, ops[0]), p.operand(g, ops[1]))

	case AdrpXi:
		fmt.Fprintf(p.w, "\tadrp %s, %s\n", dst, p.operand(g, ops[0]))

	case FmovSi, FmovDi:
		fmt.Fprintf(p.w, "\tfmov %s, #%g\n", dst, imm.DecodeFPImm(uint8(constOf(g, ops[0]))))

	case FmovSWzr, FmovDXzr:
		fmt.Fprintf(p.w, "\tfmov %s, %s\n", dst, p.operand(g, ops[0]))

	case FcvtzsWSi, FcvtzsXSi, FcvtzsWDi, FcvtzsXDi, FcvtzuWSi, FcvtzuXSi, FcvtzuWDi, FcvtzuXDi:
		mnemonic := "fcvtzs"
		if opc >= FcvtzuWSi {
			mnemonic = "fcvtzu"
		}
		fbits := 64 - constOf(g, ops[1])
		fmt.Fprintf(p.w, "\t%s %s, %s, #%d\n", mnemonic, dst, p.operand(g, ops[0]), fbits)

	default:
		return fmt.Errorf("t%d: no assembly form for %s", n.ID, opc)
	}
	return nil
}

func (p *Printer) printGeneric(g *dag.Graph, n *dag.Node) error {
	switch {
	case n.Op == dag.OpEntryToken, n.Op == dag.OpTokenFactor, n.Op.IsTargetLeaf(), n.Op == dag.OpRegister:
	case n.Op == dag.OpCopyFromReg:
		p.valRegs[n.Value(0)] = operandReg{phys: g.Node(n.Operands[1].Node).Reg}
	case n.Op == dag.OpReturn:
		var vals []string
		for _, v := range n.Operands {
			if vt := g.Node(v.Node).VTs[v.ResNo]; vt != dag.Other {
				vals = append(vals, p.use(g, v).name(vt))
			}
		}
		if len(vals) == 0 {
			fmt.Fprintf(p.w, "\tret\n")
		} else {
			fmt.Fprintf(p.w, "\tret\t// %s\n", strings.Join(vals, ", "))
		}
	default:
		// Left for a later pass; keep the listing complete.
		if len(n.VTs) > 0 {
			p.def(g, n.Value(0))
		}
		fmt.Fprintf(p.w, "\t// %s\n", g.Describe(n.ID, Names))
	}
	return nil
}

func (p *Printer) printLoad(g *dag.Graph, n *dag.Node, opc Opcode) error {
	dst := p.def(g, n.Value(0))
	mnemonic, size := "ldr", 8
	switch opc {
	case LdrW, LdrS:
		size = 4
	case LdrswX:
		mnemonic, size = "ldrsw", 4
	}

	base := p.operand(g, n.Operands[0])
	off := g.Node(n.Operands[1].Node)
	switch {
	case off.Op == dag.OpTargetConstantPool:
		fmt.Fprintf(p.w, "\t%s %s, [%s, %s]\n", mnemonic, dst, base, p.operand(g, n.Operands[1]))
	case off.Const == 0:
		fmt.Fprintf(p.w, "\t%s %s, [%s]\n", mnemonic, dst, base)
	default:
		fmt.Fprintf(p.w, "\t%s %s, [%s, #%d]\n", mnemonic, dst, base, off.Const*uint64(size))
	}
	return nil
}

// printAtomic writes the pseudo as-is; it expands into an exclusive-access
// loop after register allocation.
func (p *Printer) printAtomic(g *dag.Graph, n *dag.Node, opc Opcode) error {
	dst := p.def(g, n.Value(0))
	ops := n.Operands
	if len(ops) < 3 {
		return fmt.Errorf("t%d: malformed %s", n.ID, opc)
	}
	ptr := p.operand(g, ops[0])
	vals := make([]string, 0, len(ops)-3)
	for _, v := range ops[1 : len(ops)-2] {
		vals = append(vals, p.operand(g, v))
	}
	ordering := dag.Ordering(constOf(g, ops[len(ops)-2]))
	fmt.Fprintf(p.w, "\t%s %s, [%s], %s\t// %s\n", opc, dst, ptr, strings.Join(vals, ", "), ordering)
	return nil
}

// def assigns a fresh virtual register to v
func (p *Printer) def(g *dag.Graph, v dag.Value) string {
	r := operandReg{virt: p.regs.Alloc()}
	p.valRegs[v] = r
	return r.name(g.Node(v.Node).VTs[v.ResNo])
}

// use returns the register holding v, allocating one for values defined
// outside the printed order.
func (p *Printer) use(g *dag.Graph, v dag.Value) operandReg {
	if r, ok := p.valRegs[v]; ok {
		return r
	}
	if n := g.Node(v.Node); !n.IsMachineOpcode() && n.Op == dag.OpRegister {
		return operandReg{phys: n.Reg}
	}
	r := operandReg{virt: p.regs.Alloc()}
	p.valRegs[v] = r
	return r
}

// operand renders an instruction operand
func (p *Printer) operand(g *dag.Graph, v dag.Value) string {
	n := g.Node(v.Node)
	if !n.IsMachineOpcode() {
		switch n.Op {
		case dag.OpTargetConstant:
			return fmt.Sprintf("#%#x", n.Const)
		case dag.OpTargetFrameIndex:
			return fmt.Sprintf("fi#%d", n.Index)
		case dag.OpTargetConstantPool:
			label := constpool.Label(constpool.Handle(n.Index))
			if n.TargetFlags == MOLo12 {
				return ":lo12:" + label
			}
			return label
		}
	}
	return p.use(g, v).name(n.VTs[v.ResNo])
}

func constOf(g *dag.Graph, v dag.Value) uint64 {
	return g.Node(v.Node).Const
}

func logicalMnemonic(opc Opcode) string {
	switch opc {
	case AndXXi, AndWWi:
		return "and"
	case EorXXi, EorWWi:
		return "eor"
	}
	return "orr"
}

// operandReg is either a physical register or a virtual register number
type operandReg struct {
	phys dag.Reg
	virt int
}

func (r operandReg) name(vt dag.VT) string {
	if r.phys != dag.NoReg {
		return physName(r.phys, vt)
	}
	return fmt.Sprintf("%%%s%d", regClass(vt), r.virt)
}

// physName returns the view of r that holds a value of type vt
func physName(r dag.Reg, vt dag.VT) string {
	if vt == dag.I64 || vt.IsFloat() {
		if r == WZR {
			return "xzr"
		}
		return RegName(r)
	}
	switch {
	case r >= X0 && r <= X30:
		return fmt.Sprintf("w%d", int(r-X0))
	case r == XZR, r == WZR:
		return "wzr"
	case r == SP:
		return "wsp"
	}
	return RegName(r)
}

func regClass(vt dag.VT) string {
	switch vt {
	case dag.I64:
		return "x"
	case dag.F32:
		return "s"
	case dag.F64:
		return "d"
	}
	return "w"
}

// VRegAlloc hands out virtual register numbers
type VRegAlloc struct {
	next int
}

func NewVRegAlloc() *VRegAlloc {
	return &VRegAlloc{}
}

func (r *VRegAlloc) Alloc() int {
	r.next++
	return r.next
}

func (r *VRegAlloc) Reset() {
	r.next = 0
}
