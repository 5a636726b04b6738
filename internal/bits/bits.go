// Package bits provides low-level bit manipulation primitives.
package bits

import "math/bits"

// FastRange32 maps a 64-bit hash uniformly to [0, n) returning uint32.
// Uses the "fastrange" technique: multiply and take high bits.
// The mapping is monotone in hash, so sorted hashes land in sorted blocks.
func FastRange32(hash uint64, n uint32) uint32 {
	if n == 0 {
		return 0
	}
	hi, _ := bits.Mul64(hash, uint64(n))
	return uint32(hi)
}

// MaxUint40 is the largest value PutUint40 can store.
const MaxUint40 = uint64(1)<<40 - 1

// PutUint40 writes the low 40 bits of v to buf[0:5], little-endian.
func PutUint40(buf []byte, v uint64) {
	_ = buf[4]
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
	buf[4] = byte(v >> 32)
}

// Uint40 reads a little-endian 40-bit value from buf[0:5].
func Uint40(buf []byte) uint64 {
	_ = buf[4]
	return uint64(buf[0]) | uint64(buf[1])<<8 | uint64(buf[2])<<16 |
		uint64(buf[3])<<24 | uint64(buf[4])<<32
}

// PutUintN writes the low size bytes of v to buf, little-endian.
// Values wider than size bytes must be saturated by the caller.
func PutUintN(buf []byte, v uint64, size int) {
	for i := range size {
		buf[i] = byte(v >> (i * 8))
	}
}

// UintN reads a little-endian value of size bytes (0..8) from buf.
func UintN(buf []byte, size int) uint64 {
	var v uint64
	for i := range size {
		v |= uint64(buf[i]) << (i * 8)
	}
	return v
}

// MaxUintN returns the largest value representable in size bytes.
func MaxUintN(size int) uint64 {
	if size >= 8 {
		return ^uint64(0)
	}
	return uint64(1)<<(size*8) - 1
}
