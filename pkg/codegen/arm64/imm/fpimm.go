package imm

import "math"

// IsFPImm reports whether value is one of the 256 constants an FMOV can
// encode directly: ±(16..31)/16 × 2^e with e in [-3, 4]. Zero is not in the
// set. double selects the 64-bit format; otherwise value must be exactly
// representable as float32.
func IsFPImm(value float64, double bool) (imm8 uint8, ok bool) {
	var sign, frac uint64
	var exp int

	if double {
		b := math.Float64bits(value)
		sign = b >> 63
		exp = int(b>>52&0x7ff) - 1023
		frac = b & (1<<52 - 1)
		if frac&(1<<48-1) != 0 {
			return 0, false
		}
		frac >>= 48
	} else {
		f := float32(value)
		if float64(f) != value {
			return 0, false
		}
		b := uint64(math.Float32bits(f))
		sign = b >> 31
		exp = int(b>>23&0xff) - 127
		frac = b & (1<<23 - 1)
		if frac&(1<<19-1) != 0 {
			return 0, false
		}
		frac >>= 19
	}

	if exp < -3 || exp > 4 {
		return 0, false
	}

	// imm8 = a:b:c:d:efgh, exponent = NOT(b):b...b:c:d
	var bcd uint64
	if exp <= 0 {
		bcd = 0b100 | uint64(exp+3)
	} else {
		bcd = uint64(exp - 1)
	}
	return uint8(sign<<7 | bcd<<4 | frac), true
}

// DecodeFPImm expands an FMOV imm8 into its value
func DecodeFPImm(imm8 uint8) float64 {
	sign := 1.0
	if imm8&0x80 != 0 {
		sign = -1
	}
	b := imm8 >> 6 & 1
	cd := int(imm8 >> 4 & 3)
	var exp int
	if b == 1 {
		exp = cd - 3
	} else {
		exp = cd + 1
	}
	mant := 1 + float64(imm8&0xf)/16
	return sign * math.Ldexp(mant, exp)
}
