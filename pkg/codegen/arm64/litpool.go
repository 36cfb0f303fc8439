// Package arm64 - Literal pool loads for constants no instruction can build
package arm64

import (
	"math"

	"github.com/GriffinCanCode/a64isel/pkg/constpool"
	"github.com/GriffinCanCode/a64isel/pkg/dag"
	"github.com/GriffinCanCode/a64isel/pkg/logger"
	"github.com/GriffinCanCode/a64isel/pkg/target"
)

// ConstantPool is the literal pool owned by the surrounding pipeline
type ConstantPool interface {
	Intern(bits uint64, vt dag.VT, align int) constpool.Handle
	AddressOf(h constpool.Handle) (constpool.Address, error)
}

// selectToLitPool loads an integer constant from the pool. A 64-bit value
// that fits in 32 bits is stored as a 32-bit entry and widened by the load.
func (s *Selector) selectToLitPool(g *dag.Graph, n *dag.Node) dag.NodeID {
	vt := n.ValueType()
	unsigned := n.ZExtValue()
	signed := n.SExtValue()

	var ext dag.LoadExtType
	var memVT dag.VT
	switch {
	case vt == dag.I32:
		ext, memVT = dag.NonExtLoad, dag.I32
	case vt != dag.I64:
		s.contractViolation(g, n, "unexpected integer constant type %s", vt)
	case unsigned <= math.MaxUint32:
		ext, memVT = dag.ZExtLoad, dag.I32
	case signed >= math.MinInt32 && signed <= math.MaxInt32:
		ext, memVT = dag.SExtLoad, dag.I32
	default:
		ext, memVT = dag.NonExtLoad, dag.I64
	}

	align := memVT.Bytes()
	h := s.pool.Intern(unsigned, memVT, align)
	addr := s.poolAddress(g, n, h, align)

	s.metrics.constant(StrategyLiteralPool)
	logger.LogMaterialization(StrategyLiteralPool, unsigned, vt.Bits())

	return g.ExtLoad(ext, vt, g.EntryNode(), addr, dag.MemOperand{
		VT:      memVT,
		Align:   align,
		PtrInfo: dag.PtrConstantPool,
	}).Node
}

// lowerToFPLitPool loads a floating-point constant from the pool
func (s *Selector) lowerToFPLitPool(g *dag.Graph, n *dag.Node) dag.NodeID {
	vt := n.ValueType()
	var bits uint64
	switch vt {
	case dag.F32:
		bits = uint64(math.Float32bits(float32(n.FP)))
	case dag.F64:
		bits = math.Float64bits(n.FP)
	default:
		s.contractViolation(g, n, "unexpected floating-point constant type %s", vt)
	}

	align := vt.Bytes()
	h := s.pool.Intern(bits, vt, align)
	addr := s.poolAddress(g, n, h, align)

	s.metrics.constant(StrategyFPPool)

	return g.Load(vt, g.EntryNode(), addr, dag.MemOperand{
		Align:     align,
		Invariant: true,
		PtrInfo:   dag.PtrConstantPool,
	}).Node
}

// poolAddress builds WrapperSmall(hi, lo12, align) for pool entry h. The
// ADRP/lo12 pair only reaches the entry under the small code model.
func (s *Selector) poolAddress(g *dag.Graph, n *dag.Node, h constpool.Handle, align int) dag.Value {
	if s.cfg.CodeModel != target.CodeModelSmall {
		s.contractViolation(g, n, "only small code model supported, configured %q", s.cfg.CodeModel)
	}
	addr, err := s.pool.AddressOf(h)
	if err != nil {
		s.contractViolation(g, n, "constant pool address: %v", err)
	}

	ptrVT := s.pointerVT()
	return g.Op(WrapperSmall, []dag.VT{ptrVT},
		g.TargetConstantPool(int(addr.Handle), ptrVT, MONoFlag),
		g.TargetConstantPool(int(addr.Handle), ptrVT, MOLo12),
		g.TargetConstant(uint64(align), dag.I32),
	)
}
