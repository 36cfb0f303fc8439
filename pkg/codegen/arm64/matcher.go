// Package arm64 - Reference pattern matcher
// Design: ordered pattern list over generic nodes; the first pattern that
// matches rewrites the node. Covers the subgraphs custom selection produces
// plus the operand selectors, enough to finish selection for the CLI.
package arm64

import (
	"math"

	"github.com/GriffinCanCode/a64isel/pkg/codegen/arm64/imm"
	"github.com/GriffinCanCode/a64isel/pkg/dag"
	"github.com/GriffinCanCode/a64isel/pkg/logger"
)

// NopMatcher leaves every node in generic form
type NopMatcher struct{}

// SelectCode implements Matcher
func (NopMatcher) SelectCode(_ *dag.Graph, id dag.NodeID) dag.NodeID {
	return id
}

// Pattern rewrites a generic node. Emit has the same result contract as
// Matcher.SelectCode.
type Pattern struct {
	Name  string
	Match func(g *dag.Graph, n *dag.Node) bool
	Emit  func(g *dag.Graph, n *dag.Node) dag.NodeID
}

// BasicMatcher matches loads, addresses, FP immediates, logical immediates and
// fixed-point converts.
type BasicMatcher struct {
	patterns []Pattern
}

// NewBasicMatcher creates a matcher with the built-in patterns
func NewBasicMatcher() *BasicMatcher {
	bm := &BasicMatcher{
		patterns: make([]Pattern, 0),
	}
	bm.registerPatterns()
	return bm
}

// Patterns returns the pattern names in match order
func (bm *BasicMatcher) Patterns() []string {
	names := make([]string, len(bm.patterns))
	for i, p := range bm.patterns {
		names[i] = p.Name
	}
	return names
}

// SelectCode implements Matcher
func (bm *BasicMatcher) SelectCode(g *dag.Graph, id dag.NodeID) dag.NodeID {
	n := g.Node(id)
	if n.IsMachineOpcode() {
		return id
	}
	for _, p := range bm.patterns {
		if p.Match(g, n) {
			logger.Debug("Matched pattern", "pattern", p.Name, "node", id)
			return p.Emit(g, n)
		}
	}
	return id
}

func (bm *BasicMatcher) registerPatterns() {
	// ldr xd, [adrp, :lo12:sym]
	bm.patterns = append(bm.patterns, Pattern{
		Name: "load_pool",
		Match: func(g *dag.Graph, n *dag.Node) bool {
			if n.Op != dag.OpLoad || !loadable(n) {
				return false
			}
			ptr := g.Node(n.Operands[1].Node)
			return !ptr.IsMachineOpcode() && ptr.Op == WrapperSmall
		},
		Emit: func(g *dag.Graph, n *dag.Node) dag.NodeID {
			wrapper := g.Node(n.Operands[1].Node)
			adrp := g.MachineNode(uint16(AdrpXi), []dag.VT{dag.I64}, wrapper.Operands[0])
			return emitLoad(g, n, adrp, wrapper.Operands[1])
		},
	})

	// ldr xd, [xn, #imm]
	bm.patterns = append(bm.patterns, Pattern{
		Name: "load_uimm12",
		Match: func(g *dag.Graph, n *dag.Node) bool {
			if n.Op != dag.OpLoad || !loadable(n) {
				return false
			}
			add := g.Node(n.Operands[1].Node)
			if add.IsMachineOpcode() || add.Op != dag.OpAdd {
				return false
			}
			_, ok := imm.TestOffsetUImm12(constOperand(g, add.Operands[1]), n.Mem.VT.Bytes())
			return ok && isConstant(g, add.Operands[1])
		},
		Emit: func(g *dag.Graph, n *dag.Node) dag.NodeID {
			add := g.Node(n.Operands[1].Node)
			off, _ := SelectOffsetUImm12(g, add.Operands[1], n.Mem.VT.Bytes())
			return emitLoad(g, n, add.Operands[0], off)
		},
	})

	// ldr xd, [xn]
	bm.patterns = append(bm.patterns, Pattern{
		Name: "load",
		Match: func(g *dag.Graph, n *dag.Node) bool {
			return n.Op == dag.OpLoad && loadable(n)
		},
		Emit: func(g *dag.Graph, n *dag.Node) dag.NodeID {
			return emitLoad(g, n, n.Operands[1], g.TargetConstant(0, dag.I64))
		},
	})

	// adrp xd, sym; add xd, xd, :lo12:sym
	bm.patterns = append(bm.patterns, Pattern{
		Name: "address_small",
		Match: func(g *dag.Graph, n *dag.Node) bool {
			return n.Op == WrapperSmall
		},
		Emit: func(g *dag.Graph, n *dag.Node) dag.NodeID {
			adrp := g.MachineNode(uint16(AdrpXi), []dag.VT{dag.I64}, n.Operands[0])
			return g.SelectNodeTo(n.ID, uint16(AddXXiLo12), []dag.VT{dag.I64}, adrp, n.Operands[1])
		},
	})

	// fmov sd, #imm
	bm.patterns = append(bm.patterns, Pattern{
		Name: "fmov_imm",
		Match: func(g *dag.Graph, n *dag.Node) bool {
			if n.Op != dag.OpConstantFP {
				return false
			}
			_, ok := imm.IsFPImm(n.FP, n.ValueType() == dag.F64)
			return ok
		},
		Emit: func(g *dag.Graph, n *dag.Node) dag.NodeID {
			vt := n.ValueType()
			imm8, _ := imm.IsFPImm(n.FP, vt == dag.F64)
			return g.SelectNodeTo(n.ID, uint16(pickFP(vt, FmovDi, FmovSi)), []dag.VT{vt},
				g.TargetConstant(uint64(imm8), dag.I32))
		},
	})

	// fmov sd, wzr
	bm.patterns = append(bm.patterns, Pattern{
		Name: "fmov_zero",
		Match: func(g *dag.Graph, n *dag.Node) bool {
			return n.Op == dag.OpConstantFP && n.FP == 0 && !math.Signbit(n.FP)
		},
		Emit: func(g *dag.Graph, n *dag.Node) dag.NodeID {
			vt := n.ValueType()
			if vt == dag.F64 {
				return g.SelectNodeTo(n.ID, uint16(FmovDXzr), []dag.VT{vt}, g.Register(XZR, dag.I64))
			}
			return g.SelectNodeTo(n.ID, uint16(FmovSWzr), []dag.VT{vt}, g.Register(WZR, dag.I32))
		},
	})

	// and/orr/eor xd, xn, #bitmask
	bm.patterns = append(bm.patterns, Pattern{
		Name: "logical_imm",
		Match: func(g *dag.Graph, n *dag.Node) bool {
			if _, ok := logicalOpcode(n); !ok {
				return false
			}
			_, ok := imm.IsLogicalImm(n.ValueType().Bits(), constOperand(g, n.Operands[1]))
			return ok && isConstant(g, n.Operands[1])
		},
		Emit: func(g *dag.Graph, n *dag.Node) dag.NodeID {
			opc, _ := logicalOpcode(n)
			bits, _ := SelectLogicalImm(g, n.Operands[1])
			return g.SelectNodeTo(n.ID, uint16(opc), []dag.VT{n.ValueType()}, n.Operands[0], bits)
		},
	})

	// fcvtzs wd, sn, #fbits
	bm.patterns = append(bm.patterns, Pattern{
		Name: "fcvt_fixed",
		Match: func(g *dag.Graph, n *dag.Node) bool {
			if _, ok := fcvtOpcode(g, n); !ok {
				return false
			}
			c, ok := constantFPNode(g, g.Node(n.Operands[0].Node).Operands[1])
			if !ok {
				return false
			}
			_, ok = imm.TestFixedPointShift(c.FP, n.ValueType().Bits())
			return ok
		},
		Emit: func(g *dag.Graph, n *dag.Node) dag.NodeID {
			opc, _ := fcvtOpcode(g, n)
			mul := g.Node(n.Operands[0].Node)
			scale, _ := SelectCVTFixedPosOperand(g, mul.Operands[1], n.ValueType().Bits())
			return g.SelectNodeTo(n.ID, uint16(opc), []dag.VT{n.ValueType()}, mul.Operands[0], scale)
		},
	})
}

func loadable(n *dag.Node) bool {
	if n.Mem == nil || n.Mem.Volatile {
		return false
	}
	_, _, ok := loadOpcode(n)
	return ok
}

// loadOpcode picks the load for n. A zero- or any-extending 32-to-64 bit load
// is an LDR of a W register that needs widening.
func loadOpcode(n *dag.Node) (opc Opcode, widen bool, ok bool) {
	vt, memVT := n.ValueType(), n.Mem.VT
	if vt == memVT {
		switch vt {
		case dag.I32:
			return LdrW, false, true
		case dag.I64:
			return LdrX, false, true
		case dag.F32:
			return LdrS, false, true
		case dag.F64:
			return LdrD, false, true
		}
		return InvalidOpcode, false, false
	}
	if vt != dag.I64 || memVT != dag.I32 {
		return InvalidOpcode, false, false
	}
	if n.Ext == dag.SExtLoad {
		return LdrswX, false, true
	}
	return LdrW, true, true
}

// emitLoad rewrites load n as "ldr base, offset". Operands are base, offset,
// chain as the LS64_LDR family expects.
func emitLoad(g *dag.Graph, n *dag.Node, base, offset dag.Value) dag.NodeID {
	opc, widen, _ := loadOpcode(n)
	chain := n.Operands[0]
	if !widen {
		return g.SelectNodeTo(n.ID, uint16(opc), []dag.VT{n.ValueType(), dag.Other}, base, offset, chain)
	}

	ld := g.MachineNode(uint16(opc), []dag.VT{dag.I32, dag.Other}, base, offset, chain)
	mem := *n.Mem
	g.Node(ld.Node).Mem = &mem
	wide := subregToReg(g, ld)
	g.ReplaceUses(n.Value(0), dag.Value{Node: wide})
	g.ReplaceUses(n.Value(1), dag.Value{Node: ld.Node, ResNo: 1})
	return dag.NoNode
}

func logicalOpcode(n *dag.Node) (Opcode, bool) {
	vt := n.ValueType()
	if vt != dag.I32 && vt != dag.I64 {
		return InvalidOpcode, false
	}
	switch n.Op {
	case dag.OpAnd:
		return pick(vt, AndXXi, AndWWi), true
	case dag.OpOr:
		return pick(vt, OrrXXi, OrrWWi), true
	case dag.OpXor:
		return pick(vt, EorXXi, EorWWi), true
	}
	return InvalidOpcode, false
}

// fcvtOpcode matches fp_to_[su]int(fmul x, c) and picks the fixed-point form
func fcvtOpcode(g *dag.Graph, n *dag.Node) (Opcode, bool) {
	if n.Op != dag.OpFPToSInt && n.Op != dag.OpFPToUInt {
		return InvalidOpcode, false
	}
	mul := g.Node(n.Operands[0].Node)
	if mul.IsMachineOpcode() || mul.Op != dag.OpFMul {
		return InvalidOpcode, false
	}

	var table [2][2]Opcode // [src is double][dst is 64-bit]
	if n.Op == dag.OpFPToSInt {
		table = [2][2]Opcode{{FcvtzsWSi, FcvtzsXSi}, {FcvtzsWDi, FcvtzsXDi}}
	} else {
		table = [2][2]Opcode{{FcvtzuWSi, FcvtzuXSi}, {FcvtzuWDi, FcvtzuXDi}}
	}

	src, dst := 0, 0
	switch mul.ValueType() {
	case dag.F32:
	case dag.F64:
		src = 1
	default:
		return InvalidOpcode, false
	}
	switch n.ValueType() {
	case dag.I32:
	case dag.I64:
		dst = 1
	default:
		return InvalidOpcode, false
	}
	return table[src][dst], true
}

func isConstant(g *dag.Graph, v dag.Value) bool {
	_, ok := constantNode(g, v)
	return ok
}

func constOperand(g *dag.Graph, v dag.Value) uint64 {
	if n, ok := constantNode(g, v); ok {
		return n.ZExtValue()
	}
	return 0
}

func pickFP(vt dag.VT, d, s Opcode) Opcode {
	if vt == dag.F64 {
		return d
	}
	return s
}
