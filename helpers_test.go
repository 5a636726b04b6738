package kmerhash

import (
	"encoding/binary"
	"hash/fnv"
	"math/bits"
	"math/rand/v2"
	"testing"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

// newTestRNG returns an RNG seeded from the test name, so every test gets
// its own reproducible stream.
func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// randomSeq returns n random bases from ACGT.
func randomSeq(rng *rand.Rand, n int) []byte {
	const alphabet = "ACGT"
	seq := make([]byte, n)
	for i := range seq {
		seq[i] = alphabet[rng.IntN(len(alphabet))]
	}
	return seq
}

func mustEncode(t testing.TB, seq []byte) []uint8 {
	t.Helper()
	codes, err := Encode(Bases, seq, nil)
	if err != nil {
		t.Fatalf("Encode(%q): %v", seq, err)
	}
	return codes
}

// literalSeeds repeats the published ntHash seeds independently of seed.go.
var literalSeeds = map[byte]uint64{
	'A': 0x3c8bfbb395c60474,
	'C': 0x3193c18562a02b4c,
	'G': 0x20323ed082572324,
	'T': 0x295549f54be24456,
}

var literalComplement = map[byte]byte{'A': 'T', 'C': 'G', 'G': 'C', 'T': 'A'}

// naiveForward evaluates the forward hash directly from its definition:
// XOR of seed(w[i]) rotated left by k-i-1.
func naiveForward(kmer []byte) uint64 {
	k := len(kmer)
	var h uint64
	for i, b := range kmer {
		h ^= bits.RotateLeft64(literalSeeds[b], k-i-1)
	}
	return h
}

// naiveReverseComplement evaluates the forward hash of the reverse
// complement spelled out as a string.
func naiveReverseComplement(kmer []byte) uint64 {
	rc := make([]byte, len(kmer))
	for i, b := range kmer {
		rc[len(kmer)-1-i] = literalComplement[b]
	}
	return naiveForward(rc)
}
