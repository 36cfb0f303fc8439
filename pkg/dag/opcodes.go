package dag

import (
	"fmt"
	"strings"
)

// Opcode is a target-independent operation kind. Targets allocate their own
// generic-form opcodes from TargetOpcodeStart upwards.
type Opcode uint16

const (
	OpEntryToken Opcode = iota
	OpTokenFactor

	// Leaves
	OpConstant
	OpConstantFP
	OpTargetConstant
	OpRegister
	OpFrameIndex
	OpTargetFrameIndex
	OpConstantPool
	OpTargetConstantPool

	// Register copies
	OpCopyFromReg
	OpCopyToReg

	// Memory
	OpLoad
	OpStore

	// Arithmetic
	OpAdd
	OpSub
	OpMul
	OpAnd
	OpOr
	OpXor
	OpShl
	OpFAdd
	OpFMul
	OpFPToSInt
	OpFPToUInt
	OpReturn

	// Atomic read-modify-write
	OpAtomicLoadAdd
	OpAtomicLoadSub
	OpAtomicLoadAnd
	OpAtomicLoadOr
	OpAtomicLoadXor
	OpAtomicLoadNand
	OpAtomicLoadMin
	OpAtomicLoadMax
	OpAtomicLoadUMin
	OpAtomicLoadUMax
	OpAtomicSwap
	OpAtomicCmpSwap

	// TargetOpcodeStart is the first opcode available to targets
	TargetOpcodeStart Opcode = 1000
)

var opcodeNames = map[Opcode]string{
	OpEntryToken:         "entry",
	OpTokenFactor:        "token-factor",
	OpConstant:           "constant",
	OpConstantFP:         "constant-fp",
	OpTargetConstant:     "target-constant",
	OpRegister:           "register",
	OpFrameIndex:         "frame-index",
	OpTargetFrameIndex:   "target-frame-index",
	OpConstantPool:       "constant-pool",
	OpTargetConstantPool: "target-constant-pool",
	OpCopyFromReg:        "copy-from-reg",
	OpCopyToReg:          "copy-to-reg",
	OpLoad:               "load",
	OpStore:              "store",
	OpAdd:                "add",
	OpSub:                "sub",
	OpMul:                "mul",
	OpAnd:                "and",
	OpOr:                 "or",
	OpXor:                "xor",
	OpShl:                "shl",
	OpFAdd:               "fadd",
	OpFMul:               "fmul",
	OpFPToSInt:           "fp-to-sint",
	OpFPToUInt:           "fp-to-uint",
	OpReturn:             "return",
	OpAtomicLoadAdd:      "atomic-add",
	OpAtomicLoadSub:      "atomic-sub",
	OpAtomicLoadAnd:      "atomic-and",
	OpAtomicLoadOr:       "atomic-or",
	OpAtomicLoadXor:      "atomic-xor",
	OpAtomicLoadNand:     "atomic-nand",
	OpAtomicLoadMin:      "atomic-min",
	OpAtomicLoadMax:      "atomic-max",
	OpAtomicLoadUMin:     "atomic-umin",
	OpAtomicLoadUMax:     "atomic-umax",
	OpAtomicSwap:         "atomic-swap",
	OpAtomicCmpSwap:      "atomic-cmp-swap",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	if op >= TargetOpcodeStart {
		return fmt.Sprintf("target-op(%d)", uint16(op-TargetOpcodeStart))
	}
	return fmt.Sprintf("op(%d)", uint16(op))
}

// ParseOpcode resolves the textual name used by graph files
func ParseOpcode(s string) (Opcode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for op, name := range opcodeNames {
		if name == s {
			return op, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOpcode, s)
}

// IsAtomic reports whether op is one of the read-modify-write atomics
func (op Opcode) IsAtomic() bool {
	return op >= OpAtomicLoadAdd && op <= OpAtomicCmpSwap
}

// IsTargetLeaf reports whether op is a target-internal leaf that never needs
// selection.
func (op Opcode) IsTargetLeaf() bool {
	switch op {
	case OpEntryToken, OpTargetConstant, OpRegister, OpTargetFrameIndex, OpTargetConstantPool:
		return true
	}
	return false
}
