// Package arm64 - Instruction selection entry point
// Design: custom lowering for the node kinds the generated matcher cannot
// handle (constants, atomics, frame indices, constant pool references); every
// other node is handed to the matcher unchanged.
package arm64

import (
	"github.com/GriffinCanCode/a64isel/pkg/codegen/arm64/imm"
	"github.com/GriffinCanCode/a64isel/pkg/dag"
	"github.com/GriffinCanCode/a64isel/pkg/logger"
	"github.com/GriffinCanCode/a64isel/pkg/target"
)

// Matcher is the table-driven pattern matcher that handles generic nodes.
// SelectCode returns the node now producing id's results: id itself when it
// was morphed in place or left alone, another node whose results replace id's,
// or dag.NoNode when the matcher redirected the uses itself.
type Matcher interface {
	SelectCode(g *dag.Graph, id dag.NodeID) dag.NodeID
}

// Selector lowers one function's graph at a time. It is not safe for
// concurrent use; the pool it shares with other selectors is.
type Selector struct {
	cfg      target.Config
	pool     ConstantPool
	matcher  Matcher
	metrics  *Metrics
	function string
	visited  map[dag.NodeID]bool
}

// Option configures a Selector
type Option func(*Selector)

// WithMetrics records selection decisions in m
func WithMetrics(m *Metrics) Option {
	return func(s *Selector) {
		s.metrics = m
	}
}

// WithFunctionName names the function in diagnostics
func WithFunctionName(name string) Option {
	return func(s *Selector) {
		s.function = name
	}
}

// NewSelector creates a selector for the given target
func NewSelector(cfg target.Config, pool ConstantPool, m Matcher, opts ...Option) *Selector {
	if m == nil {
		m = NopMatcher{}
	}
	s := &Selector{
		cfg:     cfg,
		pool:    pool,
		matcher: m,
		visited: make(map[dag.NodeID]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select lowers node id. It returns the node whose results replace id's, id
// itself when the node was rewritten in place or is already a machine node,
// or dag.NoNode when the uses of id were redirected during selection.
func (s *Selector) Select(g *dag.Graph, id dag.NodeID) dag.NodeID {
	n := g.Node(id)
	s.visited[id] = true

	if n.IsMachineOpcode() {
		logger.Debug("== already selected", "node", g.Describe(id, Names))
		s.metrics.node("machine")
		return id
	}
	before := g.Describe(id, Names)

	var res dag.NodeID
	switch {
	case n.IsAtomic():
		s.metrics.node("atomic")
		res = s.selectAtomic(g, n)
	case n.Op == dag.OpFrameIndex:
		s.metrics.node("frame-index")
		ptrVT := s.pointerVT()
		res = g.SelectNodeTo(id, uint16(AddXXiLsl0), []dag.VT{ptrVT},
			g.TargetFrameIndex(n.Index, ptrVT),
			g.TargetConstant(0, ptrVT),
		)
	case n.Op == dag.OpConstantPool:
		s.metrics.node("constant-pool")
		cp := g.TargetConstantPool(n.Index, n.ValueType(), MONoFlag)
		g.ReplaceUses(n.Value(0), cp)
		res = dag.NoNode
	case n.Op == dag.OpConstant:
		s.metrics.node("constant")
		res = s.selectConstant(g, n)
	case n.Op == dag.OpConstantFP:
		s.metrics.node("constant-fp")
		res = s.selectConstantFP(g, n)
	default:
		s.metrics.node("generic")
		res = s.matcher.SelectCode(g, id)
	}

	after := "<uses replaced>"
	if res != dag.NoNode {
		after = g.Describe(res, Names)
	}
	logger.LogSelection(s.function, before, after)
	return res
}

func (s *Selector) selectConstant(g *dag.Graph, n *dag.Node) dag.NodeID {
	if res, ok := s.trySelectToMoveImm(g, n); ok {
		return res
	}
	// The pool load is built from generic nodes and still needs selecting
	load := s.selectToLitPool(g, n)
	g.ReplaceUses(n.Value(0), dag.Value{Node: load})
	return s.reselect(g, load)
}

func (s *Selector) selectConstantFP(g *dag.Graph, n *dag.Node) dag.NodeID {
	if _, ok := imm.IsFPImm(n.FP, n.ValueType() == dag.F64); ok {
		// FMOV immediate, left to the matcher
		s.metrics.constant(StrategyFPImmediate)
		return s.matcher.SelectCode(g, n.ID)
	}
	load := s.lowerToFPLitPool(g, n)
	g.ReplaceUses(n.Value(0), dag.Value{Node: load})
	return s.reselect(g, load)
}

// reselect selects a node that has already taken over another node's uses
func (s *Selector) reselect(g *dag.Graph, id dag.NodeID) dag.NodeID {
	res := s.Select(g, id)
	if res != dag.NoNode && res != id {
		g.ReplaceAllUsesWith(id, res)
	}
	return res
}

// SelectGraph selects every node reachable from the root, users before
// operands so that the matcher sees operands in generic form. Nodes created
// during selection are picked up by later passes. It returns the number of
// nodes removed as dead.
func (s *Selector) SelectGraph(g *dag.Graph) int {
	s.visited = make(map[dag.NodeID]bool)

	for {
		progress := false
		order := g.TopoOrder()
		for i := len(order) - 1; i >= 0; i-- {
			id := order[i]
			n := g.Node(id)
			if s.visited[id] || n.IsDead() || n.IsMachineOpcode() || n.Op.IsTargetLeaf() {
				continue
			}
			if id != g.Root.Node && len(g.Users(id)) == 0 {
				continue
			}
			progress = true
			if res := s.Select(g, id); res != dag.NoNode && res != id {
				g.ReplaceAllUsesWith(id, res)
			}
		}
		if !progress {
			break
		}
	}

	removed := g.RemoveDeadNodes()
	logger.LogFunctionSelected(s.function, len(g.LiveNodes()), removed)
	return removed
}

func (s *Selector) pointerVT() dag.VT {
	if vt, ok := dag.IntVT(s.cfg.PointerBits); ok {
		return vt
	}
	return dag.I64
}
