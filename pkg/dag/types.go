// Package dag implements the operation graph consumed by instruction selection.
//
// Design: one arena of nodes per function, edges are indices into the arena.
// Rewrites never move nodes; they reassign operand indices held by consumers.
package dag

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownOpcode is returned when a textual opcode cannot be resolved
var ErrUnknownOpcode = errors.New("dag: unknown opcode")

// VT is the value type of a node result
type VT uint8

const (
	Other VT = iota // chain / side-effect token
	I1
	I8
	I16
	I32
	I64
	F32
	F64
)

var vtNames = [...]string{
	Other: "ch",
	I1:    "i1",
	I8:    "i8",
	I16:   "i16",
	I32:   "i32",
	I64:   "i64",
	F32:   "f32",
	F64:   "f64",
}

func (t VT) String() string {
	if int(t) < len(vtNames) {
		return vtNames[t]
	}
	return fmt.Sprintf("vt(%d)", uint8(t))
}

// Bits returns the size of the type in bits, 0 for chains
func (t VT) Bits() int {
	switch t {
	case I1:
		return 1
	case I8:
		return 8
	case I16:
		return 16
	case I32, F32:
		return 32
	case I64, F64:
		return 64
	default:
		return 0
	}
}

// Bytes returns the storage size of the type
func (t VT) Bytes() int {
	return (t.Bits() + 7) / 8
}

func (t VT) IsInteger() bool {
	return t >= I1 && t <= I64
}

func (t VT) IsFloat() bool {
	return t == F32 || t == F64
}

// IntVT returns the integer type with the given width
func IntVT(bits int) (VT, bool) {
	switch bits {
	case 1:
		return I1, true
	case 8:
		return I8, true
	case 16:
		return I16, true
	case 32:
		return I32, true
	case 64:
		return I64, true
	}
	return Other, false
}

// ParseVT resolves a textual type name such as "i32" or "ch"
func ParseVT(s string) (VT, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range vtNames {
		if name == s {
			return VT(i), nil
		}
	}
	if s == "other" || s == "chain" {
		return Other, nil
	}
	return Other, fmt.Errorf("dag: unknown value type %q", s)
}

// Reg identifies a physical register in the target register file
type Reg uint16

// NoReg is the zero register id; targets start numbering at 1
const NoReg Reg = 0

// Ordering is the memory-ordering strength attached to atomic operations
type Ordering uint8

const (
	NotAtomic Ordering = iota
	Unordered
	Monotonic
	Acquire
	Release
	AcquireRelease
	SequentiallyConsistent
)

var orderingNames = [...]string{
	NotAtomic:              "not_atomic",
	Unordered:              "unordered",
	Monotonic:              "monotonic",
	Acquire:                "acquire",
	Release:                "release",
	AcquireRelease:         "acq_rel",
	SequentiallyConsistent: "seq_cst",
}

func (o Ordering) String() string {
	if int(o) < len(orderingNames) {
		return orderingNames[o]
	}
	return fmt.Sprintf("ordering(%d)", uint8(o))
}

// ParseOrdering resolves a textual ordering; "relaxed" is an alias of monotonic
func ParseOrdering(s string) (Ordering, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "relaxed" {
		return Monotonic, nil
	}
	for i, name := range orderingNames {
		if name == s {
			return Ordering(i), nil
		}
	}
	return NotAtomic, fmt.Errorf("dag: unknown atomic ordering %q", s)
}

// LoadExtType describes how a narrow memory value is widened into the result
type LoadExtType uint8

const (
	NonExtLoad LoadExtType = iota
	ExtLoad
	SExtLoad
	ZExtLoad
)

func (e LoadExtType) String() string {
	switch e {
	case NonExtLoad:
		return "unindexed"
	case ExtLoad:
		return "extload"
	case SExtLoad:
		return "sextload"
	case ZExtLoad:
		return "zextload"
	}
	return fmt.Sprintf("ext(%d)", uint8(e))
}

// PointerInfo tells where a memory operand points
type PointerInfo uint8

const (
	PtrUnknown PointerInfo = iota
	PtrConstantPool
	PtrFixedStack
)

// MemOperand carries the memory-access attributes of loads, stores and atomics
type MemOperand struct {
	VT          VT // type of the value in memory, may differ from the result type
	Ordering    Ordering
	Align       int
	Volatile    bool
	NonTemporal bool
	Invariant   bool
	PtrInfo     PointerInfo
}
