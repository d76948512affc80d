// Package f16 converts between float32 and IEEE-754 binary16 and packs
// half-precision vectors into byte slices.
package f16

import (
	"encoding/binary"
	"math"
)

// Bits is a binary16 bit pattern: 1 sign bit, 5 exponent bits (bias 15),
// 10 fraction bits.
type Bits uint16

// Size is the encoded width of one value in bytes.
const Size = 2

const (
	signMask Bits = 0x8000
	expMask  Bits = 0x7C00
	fracMask Bits = 0x03FF

	f32ExpMask  uint32 = 0x7F800000
	f32FracMask uint32 = 0x007FFFFF
)

// ToFloat32 widens h to float32. The conversion is exact.
func ToFloat32(h Bits) float32 {
	sign := uint32(h&signMask) << 16
	exp := uint32(h&expMask) >> 10
	frac := uint32(h & fracMask)

	switch exp {
	case 0:
		if frac == 0 {
			return math.Float32frombits(sign)
		}
		// Subnormal half: shift the fraction up until the hidden bit appears.
		e := int32(-14)
		for frac&0x0400 == 0 {
			frac <<= 1
			e--
		}
		frac &= 0x03FF
		return math.Float32frombits(sign | uint32(127+e)<<23 | frac<<13)
	case 0x1F:
		return math.Float32frombits(sign | f32ExpMask | frac<<13)
	default:
		return math.Float32frombits(sign | (exp-15+127)<<23 | frac<<13)
	}
}

// FromFloat32 narrows f to binary16, rounding to nearest with ties to even.
// Values beyond the half range become infinities.
func FromFloat32(f float32) Bits {
	bits := math.Float32bits(f)
	sign := Bits(bits>>16) & signMask
	exp := int32((bits & f32ExpMask) >> 23)
	frac := bits & f32FracMask

	if exp == 0xFF {
		if frac == 0 {
			return sign | expMask
		}
		// Keep a quiet, non-zero payload.
		payload := Bits(frac>>13) | 0x0200
		return sign | expMask | payload&fracMask
	}
	if exp == 0 {
		return sign
	}

	e16 := exp - 127 + 15
	if e16 >= 0x1F {
		return sign | expMask
	}

	if e16 <= 0 {
		if e16 < -10 {
			return sign
		}
		mant := frac | 0x00800000
		shift := uint32(14 - e16)
		return sign | Bits(roundShift(mant, shift))
	}

	m := roundShift(frac, 13)
	if m == 0x0400 {
		m = 0
		e16++
		if e16 >= 0x1F {
			return sign | expMask
		}
	}
	return sign | Bits(uint32(e16)<<10) | Bits(m)
}

// roundShift returns v >> shift rounded to nearest, ties to even.
func roundShift(v, shift uint32) uint32 {
	m := v >> shift
	rem := v & (1<<shift - 1)
	half := uint32(1) << (shift - 1)
	if rem > half || (rem == half && m&1 == 1) {
		m++
	}
	return m
}

// AppendVector appends v as binary16 values in the given byte order.
func AppendVector(dst []byte, v []float32, order binary.ByteOrder) []byte {
	var b [Size]byte
	for _, x := range v {
		order.PutUint16(b[:], uint16(FromFloat32(x)))
		dst = append(dst, b[:]...)
	}
	return dst
}

// DecodeVector fills dst from binary16 values in src. len(src) must be at
// least 2*len(dst).
func DecodeVector(dst []float32, src []byte, order binary.ByteOrder) {
	for i := range dst {
		dst[i] = ToFloat32(Bits(order.Uint16(src[i*Size:])))
	}
}
