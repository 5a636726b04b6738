package kmerhash

import (
	"fmt"

	kmererrors "github.com/tamirms/kmerhash/errors"
)

// Encoder maps one input byte to a 2-bit symbol code. ok is false when the
// byte is not part of the encoder's alphabet; what counts as valid is the
// encoder's contract, not the Hasher's.
type Encoder interface {
	Encode(b byte) (code uint8, ok bool)
}

// EncoderFunc adapts a plain function to the Encoder interface.
type EncoderFunc func(b byte) (uint8, bool)

// Encode calls f(b).
func (f EncoderFunc) Encode(b byte) (uint8, bool) { return f(b) }

// baseCodes maps ASCII to code+1 so the zero value marks invalid bytes.
var baseCodes = func() (t [256]uint8) {
	for _, b := range []byte("ACGTacgt") {
		t[b] = (b>>1)&3 + 1
	}
	return t
}()

// Bases accepts A, C, G and T in either case and rejects everything else,
// including N and the IUPAC ambiguity codes.
var Bases Encoder = EncoderFunc(func(b byte) (uint8, bool) {
	c := baseCodes[b]
	return c - 1, c != 0
})

// UncheckedBases is the raw (b >> 1) & 3 mapping. It never rejects a byte,
// so callers must validate their input upstream: 'N' encodes as G.
var UncheckedBases Encoder = EncoderFunc(func(b byte) (uint8, bool) {
	return (b >> 1) & 3, true
})

// Encode writes the codes for seq into dst (grown as needed) and returns
// it. The first rejected byte stops encoding with ErrInvalidBase.
func Encode(enc Encoder, seq []byte, dst []uint8) ([]uint8, error) {
	dst = dst[:0]
	for i, b := range seq {
		c, ok := enc.Encode(b)
		if !ok {
			return dst, fmt.Errorf("%w: %q at offset %d", kmererrors.ErrInvalidBase, b, i)
		}
		dst = append(dst, c)
	}
	return dst, nil
}

var complementBase = func() (t [256]byte) {
	pairs := []string{"AT", "CG", "RY", "KM", "BV", "DH", "SS", "WW", "NN"}
	for _, p := range pairs {
		for _, cs := range []string{p, string([]byte{p[0] | 0x20, p[1] | 0x20})} {
			t[cs[0]] = cs[1]
			t[cs[1]] = cs[0]
		}
	}
	return t
}()

// ReverseComplement returns the reverse complement of an ASCII nucleotide
// sequence. IUPAC ambiguity codes map to their complements, case is kept,
// and bytes with no complement become 'N'.
func ReverseComplement(seq []byte) []byte {
	n := len(seq)
	out := make([]byte, n)
	for i, b := range seq {
		c := complementBase[b]
		if c == 0 {
			c = 'N'
		}
		out[n-1-i] = c
	}
	return out
}
