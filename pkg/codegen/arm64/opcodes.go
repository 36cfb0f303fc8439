// Package arm64 - Machine opcodes and target-specific generic nodes
package arm64

import (
	"fmt"

	"github.com/GriffinCanCode/a64isel/pkg/dag"
)

// Opcode is an AArch64 machine instruction
type Opcode uint16

const (
	InvalidOpcode Opcode = iota

	// Move wide
	MovzX
	MovzW
	MovnX
	MovnW

	// Logical immediate
	OrrXXi
	OrrWWi
	AndXXi
	AndWWi
	EorXXi
	EorWWi

	// Address computation
	AddXXiLsl0
	AdrpXi
	AddXXiLo12

	SubregToReg

	// Loads with unsigned scaled offset
	LdrW
	LdrX
	LdrS
	LdrD
	LdrswX

	// Floating point
	FmovSi
	FmovDi
	FmovSWzr
	FmovDXzr
	FcvtzsWSi
	FcvtzsXSi
	FcvtzsWDi
	FcvtzsXDi
	FcvtzuWSi
	FcvtzuXSi
	FcvtzuWDi
	FcvtzuXDi

	// Atomic read-modify-write pseudo instructions, expanded after selection
	AtomicLoadAddI8
	AtomicLoadAddI16
	AtomicLoadAddI32
	AtomicLoadAddI64
	AtomicLoadSubI8
	AtomicLoadSubI16
	AtomicLoadSubI32
	AtomicLoadSubI64
	AtomicLoadAndI8
	AtomicLoadAndI16
	AtomicLoadAndI32
	AtomicLoadAndI64
	AtomicLoadOrI8
	AtomicLoadOrI16
	AtomicLoadOrI32
	AtomicLoadOrI64
	AtomicLoadXorI8
	AtomicLoadXorI16
	AtomicLoadXorI32
	AtomicLoadXorI64
	AtomicLoadNandI8
	AtomicLoadNandI16
	AtomicLoadNandI32
	AtomicLoadNandI64
	AtomicLoadMinI8
	AtomicLoadMinI16
	AtomicLoadMinI32
	AtomicLoadMinI64
	AtomicLoadMaxI8
	AtomicLoadMaxI16
	AtomicLoadMaxI32
	AtomicLoadMaxI64
	AtomicLoadUMinI8
	AtomicLoadUMinI16
	AtomicLoadUMinI32
	AtomicLoadUMinI64
	AtomicLoadUMaxI8
	AtomicLoadUMaxI16
	AtomicLoadUMaxI32
	AtomicLoadUMaxI64
	AtomicSwapI8
	AtomicSwapI16
	AtomicSwapI32
	AtomicSwapI64
	AtomicCmpSwapI8
	AtomicCmpSwapI16
	AtomicCmpSwapI32
	AtomicCmpSwapI64

	numOpcodes
)

var opcodeNames = [...]string{
	InvalidOpcode: "INVALID",
	MovzX:         "MOVZxii",
	MovzW:         "MOVZwii",
	MovnX:         "MOVNxii",
	MovnW:         "MOVNwii",
	OrrXXi:        "ORRxxi",
	OrrWWi:        "ORRwwi",
	AndXXi:        "ANDxxi",
	AndWWi:        "ANDwwi",
	EorXXi:        "EORxxi",
	EorWWi:        "EORwwi",
	AddXXiLsl0:    "ADDxxi_lsl0_s",
	AdrpXi:        "ADRPxi",
	AddXXiLo12:    "ADDxxi_lo12",
	SubregToReg:   "SUBREG_TO_REG",
	LdrW:          "LS32_LDR",
	LdrX:          "LS64_LDR",
	LdrS:          "LSFP32_LDR",
	LdrD:          "LSFP64_LDR",
	LdrswX:        "LDRSWx",
	FmovSi:        "FMOVsi",
	FmovDi:        "FMOVdi",
	FmovSWzr:      "FMOVsw",
	FmovDXzr:      "FMOVdx",
	FcvtzsWSi:     "FCVTZSwsi",
	FcvtzsXSi:     "FCVTZSxsi",
	FcvtzsWDi:     "FCVTZSwdi",
	FcvtzsXDi:     "FCVTZSxdi",
	FcvtzuWSi:     "FCVTZUwsi",
	FcvtzuXSi:     "FCVTZUxsi",
	FcvtzuWDi:     "FCVTZUwdi",
	FcvtzuXDi:     "FCVTZUxdi",
}

// atomicBaseNames are expanded with the width suffix
var atomicBaseNames = [...]string{
	"ATOMIC_LOAD_ADD", "ATOMIC_LOAD_SUB", "ATOMIC_LOAD_AND", "ATOMIC_LOAD_OR",
	"ATOMIC_LOAD_XOR", "ATOMIC_LOAD_NAND", "ATOMIC_LOAD_MIN", "ATOMIC_LOAD_MAX",
	"ATOMIC_LOAD_UMIN", "ATOMIC_LOAD_UMAX", "ATOMIC_SWAP", "ATOMIC_CMP_SWAP",
}

var atomicWidths = [4]int{8, 16, 32, 64}

func (op Opcode) String() string {
	if op >= AtomicLoadAddI8 && op < numOpcodes {
		i := int(op - AtomicLoadAddI8)
		return fmt.Sprintf("%s_I%d", atomicBaseNames[i/4], atomicWidths[i%4])
	}
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("arm64op(%d)", uint16(op))
}

// IsAtomic reports whether op is one of the atomic pseudo instructions
func (op Opcode) IsAtomic() bool {
	return op >= AtomicLoadAddI8 && op < numOpcodes
}

// IsLoad reports whether op reads memory through a base+offset address
func (op Opcode) IsLoad() bool {
	switch op {
	case LdrW, LdrX, LdrS, LdrD, LdrswX:
		return true
	}
	return false
}

// Target-specific generic nodes, selected by the matcher like any other
// generic node.
const (
	// WrapperSmall(hi, lo12, align) is the address of a symbol under the
	// small code model.
	WrapperSmall dag.Opcode = dag.TargetOpcodeStart + iota
)

// Operand target flags
const (
	MONoFlag uint8 = iota
	MOLo12
)

// Sub32 is the sub-register index of the low 32 bits of an X register
const Sub32 = 1

type namer struct{}

func (namer) MachineOpcodeName(opc uint16) string {
	return Opcode(opc).String()
}

func (namer) TargetNodeName(op dag.Opcode) string {
	switch op {
	case WrapperSmall:
		return "AArch64ISD::WrapperSmall"
	}
	return op.String()
}

// Names renders AArch64 opcodes in graph dumps
var Names dag.Namer = namer{}

// MachineOpcode returns the machine opcode of n, InvalidOpcode for generic nodes
func MachineOpcode(n *dag.Node) Opcode {
	if !n.IsMachineOpcode() {
		return InvalidOpcode
	}
	return Opcode(n.MachineOpcode)
}
