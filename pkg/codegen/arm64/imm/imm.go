// Package imm answers whether a bit pattern fits one of the AArch64
// immediate encodings.
//
// Design: pure predicates, no graph access. Each returns the minimal
// parameters needed to emit the instruction plus an ok flag; a miss is
// ordinary control flow for the caller.
package imm

import (
	"math"
	"math/big"
	"math/bits"
)

// Descriptor is the result of an encodability test
type Descriptor interface {
	descriptor()
}

// NotEncodable means no immediate form of the requested kind exists
type NotEncodable struct{}

func (NotEncodable) descriptor() {}

// MoveWide is a MOVZ (or MOVN when Negated) of Value shifted left by Shift*16
type MoveWide struct {
	Value   uint16
	Shift   int // 16-bit chunk index, 0..3
	Negated bool
}

func (MoveWide) descriptor() {}

// LSL returns the shift in bits
func (m MoveWide) LSL() int {
	return m.Shift * 16
}

// Materialize returns the register contents the instruction produces at width
func (m MoveWide) Materialize(width int) uint64 {
	v := uint64(m.Value) << uint(m.LSL())
	if m.Negated {
		v = ^v
	}
	return v & widthMask(width)
}

// LogicalBitmask is the 13-bit N:immr:imms field of a logical instruction
type LogicalBitmask struct {
	Bits uint32
}

func (LogicalBitmask) descriptor() {}

// FixedPointShift is the number of fractional bits of a fixed-point convert
type FixedPointShift struct {
	Shift int
}

func (FixedPointShift) descriptor() {}

// Scale returns the scale field as encoded in the FCVT instruction
func (f FixedPointShift) Scale() int {
	return 64 - f.Shift
}

// SingleBitIndex is the bit tested by TBZ/TBNZ
type SingleBitIndex struct {
	Bit int
}

func (SingleBitIndex) descriptor() {}

func validWidth(width int) bool {
	return width == 32 || width == 64
}

func widthMask(width int) uint64 {
	if width >= 64 {
		return math.MaxUint64
	}
	return 1<<uint(width) - 1
}

// fits reports whether pattern has no bits set above width
func fits(pattern uint64, width int) bool {
	return pattern&^widthMask(width) == 0
}

// IsMOVZImm reports whether pattern is a single 16-bit chunk on a zero
// background within width.
func IsMOVZImm(width int, pattern uint64) (uimm16 uint16, shift int, ok bool) {
	if !validWidth(width) || !fits(pattern, width) {
		return 0, 0, false
	}
	for i := 0; i < width; i += 16 {
		if pattern&^(uint64(0xffff)<<uint(i)) == 0 {
			return uint16(pattern >> uint(i)), i / 16, true
		}
	}
	return 0, 0, false
}

// IsMOVNImm reports whether pattern is a single 16-bit chunk on an all-ones
// background within width. MOVN writes NOT(uimm16 << shift), so a 32-bit
// pattern such as 0xffff1234 qualifies while its 64-bit sign extension does
// not at width 32.
func IsMOVNImm(width int, pattern uint64) (uimm16 uint16, shift int, ok bool) {
	if !validWidth(width) || !fits(pattern, width) {
		return 0, 0, false
	}
	return IsMOVZImm(width, ^pattern&widthMask(width))
}

// TestMoveWide tries the move-and-zero form first and the move-and-invert
// form second.
func TestMoveWide(pattern uint64, width int) (MoveWide, bool) {
	if v, s, ok := IsMOVZImm(width, pattern); ok {
		return MoveWide{Value: v, Shift: s}, true
	}
	if v, s, ok := IsMOVNImm(width, pattern); ok {
		return MoveWide{Value: v, Shift: s, Negated: true}, true
	}
	return MoveWide{}, false
}

// IsLogicalImm reports whether pattern is a rotated run of ones replicated
// across power-of-two sized elements of width. The smallest element size that
// reproduces the pattern is chosen.
func IsLogicalImm(width int, pattern uint64) (encoded uint32, ok bool) {
	if !validWidth(width) || !fits(pattern, width) {
		return 0, false
	}

	for size := 2; size <= width; size *= 2 {
		mask := widthMask(size)
		elem := pattern & mask
		if !replicates(pattern, elem, size, width) {
			continue
		}
		// All-zero and all-one elements have no encoding.
		if elem == 0 || elem == mask {
			return 0, false
		}

		ones := bits.OnesCount64(elem)
		run := widthMask(ones)
		for rot := 0; rot < size; rot++ {
			if rotl(elem, rot, size) != run {
				continue
			}
			n := uint32(0)
			if size == 64 {
				n = 1
			}
			// imms: the high bits select the element size, the low bits the run length.
			imms := (^uint32(size*2-1) | uint32(ones-1)) & 0x3f
			immr := uint32(rot)
			return n<<12 | immr<<6 | imms, true
		}
		return 0, false
	}
	return 0, false
}

// DecodeLogicalImm expands an N:immr:imms field back into a width-bit pattern
func DecodeLogicalImm(width int, encoded uint32) (uint64, bool) {
	if !validWidth(width) || encoded >= 1<<13 {
		return 0, false
	}
	n := encoded >> 12 & 1
	immr := int(encoded >> 6 & 0x3f)
	imms := encoded & 0x3f
	if width == 32 && n == 1 {
		return 0, false
	}

	lenBits := bits.Len32(n<<6|^imms&0x3f) - 1
	if lenBits < 1 {
		return 0, false
	}
	size := 1 << uint(lenBits)
	levels := uint32(size - 1)
	s := imms & levels
	r := immr & int(levels)
	if s == levels {
		return 0, false
	}

	elem := rotr(widthMask(int(s+1)), r, size)
	pattern := elem
	for i := size; i < width; i += size {
		pattern |= elem << uint(i)
	}
	return pattern, true
}

// TestLogicalBitmask is IsLogicalImm returning a descriptor
func TestLogicalBitmask(pattern uint64, width int) (LogicalBitmask, bool) {
	enc, ok := IsLogicalImm(width, pattern)
	return LogicalBitmask{Bits: enc}, ok
}

func replicates(pattern, elem uint64, size, width int) bool {
	mask := widthMask(size)
	for i := size; i < width; i += size {
		if pattern>>uint(i)&mask != elem {
			return false
		}
	}
	return true
}

func rotl(v uint64, n, size int) uint64 {
	if n == 0 {
		return v
	}
	mask := widthMask(size)
	return (v<<uint(n) | v>>uint(size-n)) & mask
}

func rotr(v uint64, n, size int) uint64 {
	if n == 0 {
		return v
	}
	return rotl(v, size-n, size)
}

// TestFixedPointShift reports whether value is exactly 2^fbits with fbits in
// [1, maxShift]. The conversion truncates toward zero and must be exact; the
// value may be as large as 2^64, so the check runs on arbitrary precision.
func TestFixedPointShift(value float64, maxShift int) (FixedPointShift, bool) {
	if maxShift <= 0 || math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return FixedPointShift{}, false
	}

	i, acc := new(big.Float).SetFloat64(value).Int(nil)
	if acc != big.Exact {
		return FixedPointShift{}, false
	}
	// Positive power of two: exactly one bit set.
	if i.Sign() <= 0 || uint(i.BitLen()-1) != i.TrailingZeroBits() {
		return FixedPointShift{}, false
	}

	fbits := i.BitLen() - 1
	if fbits == 0 || fbits > maxShift {
		return FixedPointShift{}, false
	}
	return FixedPointShift{Shift: fbits}, true
}

// TestSingleBitIndex reports whether pattern has exactly one bit set below width
func TestSingleBitIndex(pattern uint64, width int) (SingleBitIndex, bool) {
	if !validWidth(width) || bits.OnesCount64(pattern) != 1 {
		return SingleBitIndex{}, false
	}
	bit := bits.TrailingZeros64(pattern)
	if bit >= width {
		return SingleBitIndex{}, false
	}
	return SingleBitIndex{Bit: bit}, true
}

// TestOffsetUImm12 reports whether offset is a multiple of memSize whose
// scaled value fits the unsigned 12-bit load/store offset field.
func TestOffsetUImm12(offset uint64, memSize int) (uint64, bool) {
	if memSize <= 0 || offset%uint64(memSize) != 0 {
		return 0, false
	}
	scaled := offset / uint64(memSize)
	if scaled > 0xfff {
		return 0, false
	}
	return scaled, true
}

// Classify runs every integer predicate in materialization priority order and
// returns the first hit.
func Classify(pattern uint64, width int) Descriptor {
	if mw, ok := TestMoveWide(pattern, width); ok {
		return mw
	}
	if width == 64 {
		if v, s, ok := IsMOVNImm(32, pattern); ok {
			return MoveWide{Value: v, Shift: s, Negated: true}
		}
	}
	if lb, ok := TestLogicalBitmask(pattern, width); ok {
		return lb
	}
	return NotEncodable{}
}
