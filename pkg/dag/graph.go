package dag

import (
	"fmt"
	"strings"
)

// NodeID indexes a node in its graph's arena
type NodeID int32

// NoNode is the absent node, used where a selector produces nothing new
const NoNode NodeID = -1

// Value is one result of a node
type Value struct {
	Node  NodeID
	ResNo int
}

// Valid reports whether v refers to a node
func (v Value) Valid() bool {
	return v.Node != NoNode
}

// Node is an operation in the graph. A node never owns its operands; all
// nodes belong to the graph arena.
type Node struct {
	ID       NodeID
	Op       Opcode
	VTs      []VT
	Operands []Value

	machine       bool
	MachineOpcode uint16

	Const       uint64 // integer payload, zero-extended
	FP          float64
	Index       int // frame index or constant-pool handle
	TargetFlags uint8
	Reg         Reg
	Mem         *MemOperand
	Ext         LoadExtType

	dead bool
}

// IsMachineOpcode reports whether the node is already in target-specific form
func (n *Node) IsMachineOpcode() bool {
	return n.machine
}

// IsDead reports whether the node was removed from the graph
func (n *Node) IsDead() bool {
	return n.dead
}

// ValueType returns the type of result 0
func (n *Node) ValueType() VT {
	if len(n.VTs) == 0 {
		return Other
	}
	return n.VTs[0]
}

// ZExtValue returns the integer payload truncated to the result width
func (n *Node) ZExtValue() uint64 {
	bits := n.ValueType().Bits()
	if bits == 0 || bits >= 64 {
		return n.Const
	}
	return n.Const & (1<<uint(bits) - 1)
}

// SExtValue returns the integer payload sign-extended from the result width
func (n *Node) SExtValue() int64 {
	bits := n.ValueType().Bits()
	if bits == 0 || bits >= 64 {
		return int64(n.Const)
	}
	shift := uint(64 - bits)
	return int64(n.Const<<shift) >> shift
}

// IsAtomic reports whether the node is a generic atomic operation
func (n *Node) IsAtomic() bool {
	return !n.machine && n.Op.IsAtomic()
}

// Value returns result resNo of the node
func (n *Node) Value(resNo int) Value {
	return Value{Node: n.ID, ResNo: resNo}
}

// Graph is the arena holding one function's operation graph
type Graph struct {
	nodes []*Node
	entry NodeID
	Root  Value
}

// New creates a graph containing only the entry token
func New() *Graph {
	g := &Graph{}
	g.entry = g.add(&Node{Op: OpEntryToken, VTs: []VT{Other}})
	g.Root = Value{Node: g.entry}
	return g
}

func (g *Graph) add(n *Node) NodeID {
	n.ID = NodeID(len(g.nodes))
	g.nodes = append(g.nodes, n)
	return n.ID
}

// Node returns the node with the given id
func (g *Graph) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// Len returns the arena size, dead nodes included
func (g *Graph) Len() int {
	return len(g.nodes)
}

// EntryNode returns the function's entry chain
func (g *Graph) EntryNode() Value {
	return Value{Node: g.entry}
}

// LiveNodes returns the ids of all nodes that have not been removed
func (g *Graph) LiveNodes() []NodeID {
	ids := make([]NodeID, 0, len(g.nodes))
	for _, n := range g.nodes {
		if !n.dead {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// Constant creates an integer constant; the payload is truncated to vt
func (g *Graph) Constant(v uint64, vt VT) Value {
	n := &Node{Op: OpConstant, VTs: []VT{vt}, Const: v}
	n.Const = n.ZExtValue()
	return Value{Node: g.add(n)}
}

// TargetConstant creates an immediate operand that selection leaves alone
func (g *Graph) TargetConstant(v uint64, vt VT) Value {
	n := &Node{Op: OpTargetConstant, VTs: []VT{vt}, Const: v}
	n.Const = n.ZExtValue()
	return Value{Node: g.add(n)}
}

// ConstantFP creates a floating-point constant
func (g *Graph) ConstantFP(f float64, vt VT) Value {
	if vt == F32 {
		f = float64(float32(f))
	}
	return Value{Node: g.add(&Node{Op: OpConstantFP, VTs: []VT{vt}, FP: f})}
}

// Register creates a physical register reference
func (g *Graph) Register(r Reg, vt VT) Value {
	return Value{Node: g.add(&Node{Op: OpRegister, VTs: []VT{vt}, Reg: r})}
}

// CopyFromReg reads physical register r; result 1 is the output chain
func (g *Graph) CopyFromReg(chain Value, r Reg, vt VT) Value {
	reg := g.Register(r, vt)
	n := &Node{Op: OpCopyFromReg, VTs: []VT{vt, Other}, Operands: []Value{chain, reg}}
	return Value{Node: g.add(n)}
}

// FrameIndex creates a generic stack-slot reference
func (g *Graph) FrameIndex(fi int, vt VT) Value {
	return Value{Node: g.add(&Node{Op: OpFrameIndex, VTs: []VT{vt}, Index: fi})}
}

// TargetFrameIndex creates a target-internal stack-slot operand
func (g *Graph) TargetFrameIndex(fi int, vt VT) Value {
	return Value{Node: g.add(&Node{Op: OpTargetFrameIndex, VTs: []VT{vt}, Index: fi})}
}

// ConstantPool creates a generic constant-pool reference
func (g *Graph) ConstantPool(idx int, vt VT) Value {
	return Value{Node: g.add(&Node{Op: OpConstantPool, VTs: []VT{vt}, Index: idx})}
}

// TargetConstantPool creates a target-internal constant-pool operand
func (g *Graph) TargetConstantPool(idx int, vt VT, flags uint8) Value {
	n := &Node{Op: OpTargetConstantPool, VTs: []VT{vt}, Index: idx, TargetFlags: flags}
	return Value{Node: g.add(n)}
}

// Op creates a generic node with the given result types
func (g *Graph) Op(op Opcode, vts []VT, ops ...Value) Value {
	n := &Node{Op: op, VTs: vts, Operands: ops}
	return Value{Node: g.add(n)}
}

// MachineNode creates a node that is already in target-specific form
func (g *Graph) MachineNode(opc uint16, vts []VT, ops ...Value) Value {
	n := &Node{machine: true, MachineOpcode: opc, VTs: vts, Operands: ops}
	return Value{Node: g.add(n)}
}

// Load creates a non-extending load; result 1 is the output chain
func (g *Graph) Load(vt VT, chain, ptr Value, mem MemOperand) Value {
	mem.VT = vt
	return g.ExtLoad(NonExtLoad, vt, chain, ptr, mem)
}

// ExtLoad creates a load whose memory type mem.VT may be narrower than vt
func (g *Graph) ExtLoad(ext LoadExtType, vt VT, chain, ptr Value, mem MemOperand) Value {
	n := &Node{
		Op:       OpLoad,
		VTs:      []VT{vt, Other},
		Operands: []Value{chain, ptr},
		Mem:      &mem,
		Ext:      ext,
	}
	return Value{Node: g.add(n)}
}

// Atomic creates a generic atomic node. Operand 0 is the chain, then the
// pointer, then the data operands.
func (g *Graph) Atomic(op Opcode, vt VT, mem MemOperand, chain, ptr Value, vals ...Value) Value {
	ops := append([]Value{chain, ptr}, vals...)
	n := &Node{Op: op, VTs: []VT{vt, Other}, Operands: ops, Mem: &mem}
	return Value{Node: g.add(n)}
}

// SelectNodeTo morphs node id in place into a machine node. Existing uses of
// the node keep pointing at it.
func (g *Graph) SelectNodeTo(id NodeID, opc uint16, vts []VT, ops ...Value) NodeID {
	n := g.nodes[id]
	n.machine = true
	n.MachineOpcode = opc
	n.VTs = vts
	n.Operands = ops
	return id
}

// ReplaceUses redirects every use of from, including the root, to to
func (g *Graph) ReplaceUses(from, to Value) {
	if from == to {
		return
	}
	for _, n := range g.nodes {
		if n.dead {
			continue
		}
		for i, op := range n.Operands {
			if op == from {
				n.Operands[i] = to
			}
		}
	}
	if g.Root == from {
		g.Root = to
	}
}

// ReplaceAllUsesWith redirects every result of from to the same-numbered
// result of to.
func (g *Graph) ReplaceAllUsesWith(from, to NodeID) {
	if from == to {
		return
	}
	count := min(len(g.nodes[from].VTs), len(g.nodes[to].VTs))
	for i := 0; i < count; i++ {
		g.ReplaceUses(Value{Node: from, ResNo: i}, Value{Node: to, ResNo: i})
	}
}

// Users returns the live nodes that use any result of id
func (g *Graph) Users(id NodeID) []NodeID {
	var users []NodeID
	for _, n := range g.nodes {
		if n.dead {
			continue
		}
		for _, op := range n.Operands {
			if op.Node == id {
				users = append(users, n.ID)
				break
			}
		}
	}
	return users
}

// HasUses reports whether result resNo of id is used by a live node or the root
func (g *Graph) HasUses(v Value) bool {
	if g.Root == v {
		return true
	}
	for _, n := range g.nodes {
		if n.dead {
			continue
		}
		for _, op := range n.Operands {
			if op == v {
				return true
			}
		}
	}
	return false
}

// RemoveDeadNodes marks every node unreachable from the root as dead. The
// entry token always survives.
func (g *Graph) RemoveDeadNodes() int {
	reachable := make([]bool, len(g.nodes))
	stack := []NodeID{g.Root.Node, g.entry}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == NoNode || reachable[id] {
			continue
		}
		reachable[id] = true
		for _, op := range g.nodes[id].Operands {
			stack = append(stack, op.Node)
		}
	}

	removed := 0
	for _, n := range g.nodes {
		if !reachable[n.ID] && !n.dead {
			n.dead = true
			removed++
		}
	}
	return removed
}

// TopoOrder returns the live nodes reachable from the root with every operand
// ordered before its users.
func (g *Graph) TopoOrder() []NodeID {
	visited := make([]bool, len(g.nodes))
	order := make([]NodeID, 0, len(g.nodes))

	var visit func(id NodeID)
	visit = func(id NodeID) {
		if id == NoNode || visited[id] || g.nodes[id].dead {
			return
		}
		visited[id] = true
		for _, op := range g.nodes[id].Operands {
			visit(op.Node)
		}
		order = append(order, id)
	}
	visit(g.entry)
	visit(g.Root.Node)
	return order
}

// Namer names opcodes the graph itself does not know about
type Namer interface {
	MachineOpcodeName(opc uint16) string
	TargetNodeName(op Opcode) string
}

// Describe renders node id on a single line
func (g *Graph) Describe(id NodeID, names Namer) string {
	n := g.nodes[id]
	var sb strings.Builder

	fmt.Fprintf(&sb, "t%d: ", n.ID)
	vts := make([]string, len(n.VTs))
	for i, vt := range n.VTs {
		vts[i] = vt.String()
	}
	sb.WriteString(strings.Join(vts, ","))
	sb.WriteString(" = ")
	sb.WriteString(g.OpName(id, names))

	switch n.Op {
	case OpConstant, OpTargetConstant:
		if !n.machine {
			fmt.Fprintf(&sb, "<%#x>", n.Const)
		}
	case OpConstantFP:
		if !n.machine {
			fmt.Fprintf(&sb, "<%g>", n.FP)
		}
	case OpFrameIndex, OpTargetFrameIndex, OpConstantPool, OpTargetConstantPool:
		if !n.machine {
			fmt.Fprintf(&sb, "<%d>", n.Index)
		}
	case OpRegister:
		if !n.machine {
			fmt.Fprintf(&sb, "<r%d>", n.Reg)
		}
	}

	for _, op := range n.Operands {
		if op.ResNo == 0 {
			fmt.Fprintf(&sb, " t%d", op.Node)
		} else {
			fmt.Fprintf(&sb, " t%d:%d", op.Node, op.ResNo)
		}
	}
	if n.Mem != nil {
		fmt.Fprintf(&sb, " [%s", n.Mem.VT)
		if n.Mem.Ordering != NotAtomic {
			fmt.Fprintf(&sb, " %s", n.Mem.Ordering)
		}
		if n.Ext != NonExtLoad {
			fmt.Fprintf(&sb, " %s", n.Ext)
		}
		sb.WriteString("]")
	}
	return sb.String()
}

// OpName returns the display name of a node's operation
func (g *Graph) OpName(id NodeID, names Namer) string {
	n := g.nodes[id]
	switch {
	case n.machine && names != nil:
		return names.MachineOpcodeName(n.MachineOpcode)
	case n.machine:
		return fmt.Sprintf("machine(%d)", n.MachineOpcode)
	case n.Op >= TargetOpcodeStart && names != nil:
		return names.TargetNodeName(n.Op)
	default:
		return n.Op.String()
	}
}

// Function pairs a graph with the name of the function it was built from
type Function struct {
	Name  string
	Graph *Graph
}
