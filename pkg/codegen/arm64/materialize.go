// Package arm64 - Integer constant materialization
// Design: ordered strategy list, cheapest first; the literal pool is the
// fallback that cannot fail.
package arm64

import (
	"github.com/GriffinCanCode/a64isel/pkg/codegen/arm64/imm"
	"github.com/GriffinCanCode/a64isel/pkg/dag"
	"github.com/GriffinCanCode/a64isel/pkg/logger"
)

// Strategy names, also used as metric labels
const (
	StrategyZeroRegister = "zero-register"
	StrategyMOVZ         = "movz"
	StrategyMOVN         = "movn"
	StrategyMOVNW        = "movn-w"
	StrategyBitmaskORR   = "orr-bitmask"
	StrategyLiteralPool  = "literal-pool"
	StrategyFPImmediate  = "fp-immediate"
	StrategyFPPool       = "fp-literal-pool"
)

// constantStrategy tries to produce a constant without touching memory
type constantStrategy struct {
	Name string
	Try  func(g *dag.Graph, n *dag.Node) (dag.NodeID, bool)
}

var constantStrategies = []constantStrategy{
	{Name: StrategyZeroRegister, Try: selectZeroRegister},
	{Name: StrategyMOVZ, Try: selectMOVZ},
	{Name: StrategyMOVN, Try: selectMOVN},
	{Name: StrategyMOVNW, Try: selectNarrowMOVN},
	{Name: StrategyBitmaskORR, Try: selectBitmaskORR},
}

// trySelectToMoveImm runs the register-only strategies in priority order
func (s *Selector) trySelectToMoveImm(g *dag.Graph, n *dag.Node) (dag.NodeID, bool) {
	vt := n.ValueType()
	if vt != dag.I32 && vt != dag.I64 {
		s.contractViolation(g, n, "unexpected integer constant type %s", vt)
	}

	for _, st := range constantStrategies {
		if res, ok := st.Try(g, n); ok {
			s.metrics.constant(st.Name)
			logger.LogMaterialization(st.Name, n.ZExtValue(), vt.Bits())
			return res, true
		}
	}
	return dag.NoNode, false
}

// selectZeroRegister reads XZR/WZR, which most consumers fold for free
func selectZeroRegister(g *dag.Graph, n *dag.Node) (dag.NodeID, bool) {
	if n.ZExtValue() != 0 {
		return dag.NoNode, false
	}
	reg, _ := ZeroReg(n.ValueType())
	return g.CopyFromReg(g.EntryNode(), reg, n.ValueType()).Node, true
}

func selectMOVZ(g *dag.Graph, n *dag.Node) (dag.NodeID, bool) {
	vt := n.ValueType()
	uimm16, shift, ok := imm.IsMOVZImm(vt.Bits(), n.ZExtValue())
	if !ok {
		return dag.NoNode, false
	}
	return moveWide(g, pick(vt, MovzX, MovzW), vt, uimm16, shift), true
}

func selectMOVN(g *dag.Graph, n *dag.Node) (dag.NodeID, bool) {
	vt := n.ValueType()
	uimm16, shift, ok := imm.IsMOVNImm(vt.Bits(), n.ZExtValue())
	if !ok {
		return dag.NoNode, false
	}
	return moveWide(g, pick(vt, MovnX, MovnW), vt, uimm16, shift), true
}

// selectNarrowMOVN covers 64-bit values such as 0x0000_0000_ffff_1234 with
// "movn w0, #0xedcb": a write to a W register zeroes bits 63:32, so the
// result is wrapped in SUBREG_TO_REG. Only MOVN needs this; any MOVZ pattern
// at 32 bits was already a MOVZ pattern at 64 bits.
func selectNarrowMOVN(g *dag.Graph, n *dag.Node) (dag.NodeID, bool) {
	if n.ValueType() != dag.I64 {
		return dag.NoNode, false
	}
	uimm16, shift, ok := imm.IsMOVNImm(32, n.ZExtValue())
	if !ok {
		return dag.NoNode, false
	}
	mov := moveWide(g, MovnW, dag.I32, uimm16, shift)
	return subregToReg(g, dag.Value{Node: mov}), true
}

// selectBitmaskORR materializes a logical immediate as "orr xd, xzr, #imm"
func selectBitmaskORR(g *dag.Graph, n *dag.Node) (dag.NodeID, bool) {
	vt := n.ValueType()
	bits, ok := imm.IsLogicalImm(vt.Bits(), n.ZExtValue())
	if !ok {
		return dag.NoNode, false
	}
	zr, _ := ZeroReg(vt)
	return g.MachineNode(uint16(pick(vt, OrrXXi, OrrWWi)), []dag.VT{vt},
		g.Register(zr, vt),
		g.TargetConstant(uint64(bits), dag.I32),
	).Node, true
}

func moveWide(g *dag.Graph, opc Opcode, vt dag.VT, uimm16 uint16, shift int) dag.NodeID {
	return g.MachineNode(uint16(opc), []dag.VT{vt},
		g.TargetConstant(uint64(uimm16), dag.I32),
		g.TargetConstant(uint64(shift), dag.I32),
	).Node
}

// subregToReg places a 32-bit value in the low half of a 64-bit register whose
// upper half the producing instruction already zeroed.
func subregToReg(g *dag.Graph, v dag.Value) dag.NodeID {
	return g.MachineNode(uint16(SubregToReg), []dag.VT{dag.I64},
		g.TargetConstant(0, dag.I64),
		v,
		g.TargetConstant(Sub32, dag.I32),
	).Node
}

func pick(vt dag.VT, x, w Opcode) Opcode {
	if vt == dag.I64 {
		return x
	}
	return w
}
