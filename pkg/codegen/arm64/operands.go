// Package arm64 - Complex operand selectors used by matcher patterns
package arm64

import (
	"math"

	"github.com/GriffinCanCode/a64isel/pkg/codegen/arm64/imm"
	"github.com/GriffinCanCode/a64isel/pkg/dag"
)

func constantNode(g *dag.Graph, v dag.Value) (*dag.Node, bool) {
	n := g.Node(v.Node)
	if n == nil || n.IsMachineOpcode() || n.Op != dag.OpConstant {
		return nil, false
	}
	return n, true
}

func constantFPNode(g *dag.Graph, v dag.Value) (*dag.Node, bool) {
	n := g.Node(v.Node)
	if n == nil || n.IsMachineOpcode() || n.Op != dag.OpConstantFP {
		return nil, false
	}
	return n, true
}

// SelectLogicalImm matches an integer constant that is a logical immediate at
// its own width and returns the N:immr:imms encoding.
func SelectLogicalImm(g *dag.Graph, v dag.Value) (dag.Value, bool) {
	n, ok := constantNode(g, v)
	if !ok {
		return dag.Value{}, false
	}
	bits, ok := imm.IsLogicalImm(n.ValueType().Bits(), n.ZExtValue())
	if !ok {
		return dag.Value{}, false
	}
	return g.TargetConstant(uint64(bits), dag.I32), true
}

// SelectCVTFixedPosOperand matches the 2^fbits multiplier of
// fp_to_[su]int(fmul x, 2^fbits) and returns the FCVTZ scale field, 64-fbits.
func SelectCVTFixedPosOperand(g *dag.Graph, v dag.Value, regWidth int) (dag.Value, bool) {
	n, ok := constantFPNode(g, v)
	if !ok {
		return dag.Value{}, false
	}
	fp, ok := imm.TestFixedPointShift(n.FP, regWidth)
	if !ok {
		return dag.Value{}, false
	}
	return g.TargetConstant(uint64(fp.Scale()), dag.I32), true
}

// SelectTSTBOperand matches a single-bit mask and returns the bit index for
// TBZ/TBNZ.
func SelectTSTBOperand(g *dag.Graph, v dag.Value, regWidth int) (dag.Value, bool) {
	n, ok := constantNode(g, v)
	if !ok {
		return dag.Value{}, false
	}
	sb, ok := imm.TestSingleBitIndex(n.ZExtValue(), regWidth)
	if !ok {
		return dag.Value{}, false
	}
	return g.TargetConstant(uint64(sb.Bit), dag.I64), true
}

// SelectOffsetUImm12 matches a constant offset usable as the scaled unsigned
// offset of a memSize-byte load or store.
func SelectOffsetUImm12(g *dag.Graph, v dag.Value, memSize int) (dag.Value, bool) {
	n, ok := constantNode(g, v)
	if !ok {
		return dag.Value{}, false
	}
	scaled, ok := imm.TestOffsetUImm12(n.ZExtValue(), memSize)
	if !ok {
		return dag.Value{}, false
	}
	return g.TargetConstant(scaled, dag.I64), true
}

// SelectFPZeroOperand matches +0.0. The returned operand carries no
// information.
func SelectFPZeroOperand(g *dag.Graph, v dag.Value) (dag.Value, bool) {
	n, ok := constantFPNode(g, v)
	if !ok || n.FP != 0 || math.Signbit(n.FP) {
		return dag.Value{}, false
	}
	return g.TargetConstant(0, dag.I32), true
}

// SelectMOVWAddressRef returns the address operand of a MOVZ/MOVK relocation
// sequence together with a zero shift.
func SelectMOVWAddressRef(g *dag.Graph, v dag.Value) (addr, shift dag.Value) {
	return v, g.TargetConstant(0, dag.I32)
}
