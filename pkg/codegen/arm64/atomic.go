// Package arm64 - Atomic read-modify-write lowering
package arm64

import (
	"github.com/GriffinCanCode/a64isel/pkg/dag"
	"github.com/GriffinCanCode/a64isel/pkg/logger"
)

// atomicTable maps a generic atomic kind to its 8/16/32/64-bit opcodes
var atomicTable = map[dag.Opcode][4]Opcode{
	dag.OpAtomicLoadAdd:  {AtomicLoadAddI8, AtomicLoadAddI16, AtomicLoadAddI32, AtomicLoadAddI64},
	dag.OpAtomicLoadSub:  {AtomicLoadSubI8, AtomicLoadSubI16, AtomicLoadSubI32, AtomicLoadSubI64},
	dag.OpAtomicLoadAnd:  {AtomicLoadAndI8, AtomicLoadAndI16, AtomicLoadAndI32, AtomicLoadAndI64},
	dag.OpAtomicLoadOr:   {AtomicLoadOrI8, AtomicLoadOrI16, AtomicLoadOrI32, AtomicLoadOrI64},
	dag.OpAtomicLoadXor:  {AtomicLoadXorI8, AtomicLoadXorI16, AtomicLoadXorI32, AtomicLoadXorI64},
	dag.OpAtomicLoadNand: {AtomicLoadNandI8, AtomicLoadNandI16, AtomicLoadNandI32, AtomicLoadNandI64},
	dag.OpAtomicLoadMin:  {AtomicLoadMinI8, AtomicLoadMinI16, AtomicLoadMinI32, AtomicLoadMinI64},
	dag.OpAtomicLoadMax:  {AtomicLoadMaxI8, AtomicLoadMaxI16, AtomicLoadMaxI32, AtomicLoadMaxI64},
	dag.OpAtomicLoadUMin: {AtomicLoadUMinI8, AtomicLoadUMinI16, AtomicLoadUMinI32, AtomicLoadUMinI64},
	dag.OpAtomicLoadUMax: {AtomicLoadUMaxI8, AtomicLoadUMaxI16, AtomicLoadUMaxI32, AtomicLoadUMaxI64},
	dag.OpAtomicSwap:     {AtomicSwapI8, AtomicSwapI16, AtomicSwapI32, AtomicSwapI64},
	dag.OpAtomicCmpSwap:  {AtomicCmpSwapI8, AtomicCmpSwapI16, AtomicCmpSwapI32, AtomicCmpSwapI64},
}

// AtomicOpcode looks up the opcode for kind at the given memory width
func AtomicOpcode(kind dag.Opcode, width int) (Opcode, bool) {
	ops, ok := atomicTable[kind]
	if !ok {
		return InvalidOpcode, false
	}
	switch width {
	case 8:
		return ops[0], true
	case 16:
		return ops[1], true
	case 32:
		return ops[2], true
	case 64:
		return ops[3], true
	}
	return InvalidOpcode, false
}

// selectAtomic morphs n into the width-specific pseudo. The data operands keep
// their order, the ordering is appended as an immediate and the chain moves to
// the end.
func (s *Selector) selectAtomic(g *dag.Graph, n *dag.Node) dag.NodeID {
	if n.Mem == nil {
		s.contractViolation(g, n, "atomic operation without memory operand")
	}
	width := n.Mem.VT.Bits()
	opc, ok := AtomicOpcode(n.Op, width)
	if !ok {
		s.contractViolation(g, n, "unexpected atomic operation width %d", width)
	}

	ops := make([]dag.Value, 0, len(n.Operands)+1)
	ops = append(ops, n.Operands[1:]...)
	ops = append(ops, g.TargetConstant(uint64(n.Mem.Ordering), dag.I32))
	ops = append(ops, n.Operands[0])

	s.metrics.atomic(width)
	logger.LogAtomicLowering(n.Op.String(), width, n.Mem.Ordering.String())

	return g.SelectNodeTo(n.ID, uint16(opc), []dag.VT{n.ValueType(), dag.Other}, ops...)
}
