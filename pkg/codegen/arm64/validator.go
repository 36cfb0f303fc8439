// Package arm64 - Selected graph validation
// Design: collects every finding before failing so a broken graph reports all
// of its problems at once.
package arm64

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/GriffinCanCode/a64isel/pkg/codegen/arm64/imm"
	"github.com/GriffinCanCode/a64isel/pkg/dag"
	"github.com/GriffinCanCode/a64isel/pkg/logger"
)

// ValidationError is a problem found in a selected graph
type ValidationError struct {
	Node    dag.NodeID
	Message string
	Code    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("t%d: %s\n  %s", e.Node, e.Message, e.Code)
}

// Validator checks that a graph satisfies the selector's output contract
type Validator struct {
	strict bool
	errors []ValidationError
	warns  []ValidationError
}

// NewValidator creates a validator. In strict mode generic nodes the
// selector should have lowered are errors; otherwise they are warnings.
func NewValidator(strict bool) *Validator {
	return &Validator{
		strict: strict,
		errors: make([]ValidationError, 0),
		warns:  make([]ValidationError, 0),
	}
}

// Validate checks every node reachable from the root
func (v *Validator) Validate(g *dag.Graph) error {
	v.errors = v.errors[:0]
	v.warns = v.warns[:0]

	for _, id := range g.TopoOrder() {
		n := g.Node(id)
		v.validateOperands(g, n)
		if !n.IsMachineOpcode() {
			v.validateGeneric(g, n)
			continue
		}
		switch opc := MachineOpcode(n); {
		case opc.IsAtomic():
			v.validateAtomic(g, n)
		case opc == MovzX || opc == MovzW || opc == MovnX || opc == MovnW:
			v.validateMoveWide(g, n, opc)
		case opc == OrrXXi || opc == OrrWWi || opc == AndXXi || opc == AndWWi || opc == EorXXi || opc == EorWWi:
			v.validateLogical(g, n, opc)
		case opc == SubregToReg:
			v.validateSubreg(g, n)
		case opc.IsLoad():
			v.validateLoad(g, n)
		}
	}

	if len(v.warns) > 0 {
		v.logWarnings()
	}
	if len(v.errors) > 0 {
		return v.formatErrors()
	}
	return nil
}

// validateOperands checks that every edge points at a live result
func (v *Validator) validateOperands(g *dag.Graph, n *dag.Node) {
	for i, op := range n.Operands {
		def := g.Node(op.Node)
		switch {
		case def == nil:
			v.addError(g, n, fmt.Sprintf("operand %d references missing node t%d", i, op.Node))
		case def.IsDead():
			v.addError(g, n, fmt.Sprintf("operand %d references dead node t%d", i, op.Node))
		case op.ResNo < 0 || op.ResNo >= len(def.VTs):
			v.addError(g, n, fmt.Sprintf("operand %d uses result %d of t%d which has %d", i, op.ResNo, op.Node, len(def.VTs)))
		}
	}
}

// validateGeneric reports generic nodes left after selection. Chain plumbing
// and register copies stay generic until scheduling.
func (v *Validator) validateGeneric(g *dag.Graph, n *dag.Node) {
	switch n.Op {
	case dag.OpEntryToken, dag.OpTokenFactor, dag.OpCopyFromReg, dag.OpCopyToReg, dag.OpReturn:
		return
	}
	if n.Op.IsTargetLeaf() {
		return
	}
	switch {
	case n.Op == dag.OpConstant || n.Op == dag.OpConstantPool || n.Op == dag.OpFrameIndex || n.IsAtomic():
		// custom selection always lowers these
		v.addError(g, n, "node was not selected")
	case v.strict:
		v.addError(g, n, "generic node left after matching")
	default:
		v.addWarn(g, n, "generic node left after matching")
	}
}

// validateAtomic checks the data..., ordering, chain operand layout
func (v *Validator) validateAtomic(g *dag.Graph, n *dag.Node) {
	if len(n.Operands) < 3 {
		v.addError(g, n, "atomic operation needs pointer, ordering and chain")
		return
	}
	chain := n.Operands[len(n.Operands)-1]
	if def := g.Node(chain.Node); def == nil || chain.ResNo >= len(def.VTs) || def.VTs[chain.ResNo] != dag.Other {
		v.addError(g, n, "last operand of atomic operation is not a chain")
	}
	ord := g.Node(n.Operands[len(n.Operands)-2].Node)
	if !isTargetConstant(ord) {
		v.addError(g, n, "atomic ordering is not an immediate")
		return
	}
	if o := dag.Ordering(ord.Const); o == dag.NotAtomic || o > dag.SequentiallyConsistent {
		v.addError(g, n, fmt.Sprintf("invalid atomic ordering %d", ord.Const))
	}
	if len(n.VTs) != 2 || n.VTs[1] != dag.Other {
		v.addError(g, n, "atomic operation must produce a value and a chain")
	}
}

func (v *Validator) validateMoveWide(g *dag.Graph, n *dag.Node, opc Opcode) {
	if len(n.Operands) != 2 {
		v.addError(g, n, "move wide takes an immediate and a shift")
		return
	}
	val, shift := g.Node(n.Operands[0].Node), g.Node(n.Operands[1].Node)
	if !isTargetConstant(val) || !isTargetConstant(shift) {
		v.addError(g, n, "move wide operands must be immediates")
		return
	}
	maxShift := uint64(3)
	if opc == MovzW || opc == MovnW {
		maxShift = 1
	}
	if val.Const > 0xffff {
		v.addError(g, n, fmt.Sprintf("move wide immediate %#x exceeds 16 bits", val.Const))
	}
	if shift.Const > maxShift {
		v.addError(g, n, fmt.Sprintf("move wide shift %d out of range", shift.Const))
	}
}

func (v *Validator) validateLogical(g *dag.Graph, n *dag.Node, opc Opcode) {
	if len(n.Operands) != 2 {
		v.addError(g, n, "logical immediate takes a register and an immediate")
		return
	}
	enc := g.Node(n.Operands[1].Node)
	if !isTargetConstant(enc) {
		v.addError(g, n, "logical immediate operand is not an immediate")
		return
	}
	width := 64
	if opc == OrrWWi || opc == AndWWi || opc == EorWWi {
		width = 32
	}
	if _, ok := imm.DecodeLogicalImm(width, uint32(enc.Const)); !ok {
		v.addError(g, n, fmt.Sprintf("reserved logical immediate encoding %#x", enc.Const))
	}
}

func (v *Validator) validateSubreg(g *dag.Graph, n *dag.Node) {
	if len(n.Operands) != 3 {
		v.addError(g, n, "SUBREG_TO_REG takes an immediate, a value and a sub-register index")
		return
	}
	src := g.Node(n.Operands[1].Node)
	if src == nil || src.ValueType() != dag.I32 {
		v.addError(g, n, "SUBREG_TO_REG source is not a 32-bit value")
	}
	if idx := g.Node(n.Operands[2].Node); !isTargetConstant(idx) || idx.Const != Sub32 {
		v.addError(g, n, "SUBREG_TO_REG index is not sub_32")
	}
}

// validateLoad checks that a :lo12: offset is paired with an ADRP base
func (v *Validator) validateLoad(g *dag.Graph, n *dag.Node) {
	if len(n.Operands) != 3 {
		v.addError(g, n, "load takes a base, an offset and a chain")
		return
	}
	off := g.Node(n.Operands[1].Node)
	if off.IsMachineOpcode() || off.Op != dag.OpTargetConstantPool || off.TargetFlags != MOLo12 {
		return
	}
	base := g.Node(n.Operands[0].Node)
	if !base.IsMachineOpcode() || MachineOpcode(base) != AdrpXi {
		v.addWarn(g, n, ":lo12: offset without an ADRP base")
	}
}

func isTargetConstant(n *dag.Node) bool {
	return n != nil && !n.IsMachineOpcode() && n.Op == dag.OpTargetConstant
}

func (v *Validator) addError(g *dag.Graph, n *dag.Node, msg string) {
	v.errors = append(v.errors, ValidationError{Node: n.ID, Message: msg, Code: g.Describe(n.ID, Names)})
}

func (v *Validator) addWarn(g *dag.Graph, n *dag.Node, msg string) {
	v.warns = append(v.warns, ValidationError{Node: n.ID, Message: msg, Code: g.Describe(n.ID, Names)})
}

func (v *Validator) formatErrors() error {
	var result *multierror.Error
	for _, e := range v.errors {
		e := e // per-iteration copy (go1.22 loopvar semantics)
		result = multierror.Append(result, &e)
	}
	return result.ErrorOrNil()
}

func (v *Validator) logWarnings() {
	for _, warn := range v.warns {
		logger.Warn("Graph validation warning", "node", warn.Node, "msg", warn.Message)
	}
}

// Warnings returns the warnings found by the last Validate
func (v *Validator) Warnings() []ValidationError {
	return append([]ValidationError(nil), v.warns...)
}

// ValidateGraph validates g and logs the outcome for function
func ValidateGraph(function string, g *dag.Graph, strict bool) error {
	err := NewValidator(strict).Validate(g)
	logger.LogVerification(function, err)
	return err
}
