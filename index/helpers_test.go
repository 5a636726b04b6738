package index

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/tamirms/kmerhash"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

// newTestRNG returns an RNG seeded from the test name.
func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	return rand.New(rand.NewPCG(
		testSeed1^binary.LittleEndian.Uint64(sum[:8]),
		testSeed2^binary.LittleEndian.Uint64(sum[8:]),
	))
}

// randomReads returns n reads of length readLen drawn from ACGT, with
// roughly one N per nRate bases when nRate > 0.
func randomReads(rng *rand.Rand, n, readLen, nRate int) [][]byte {
	const alphabet = "ACGT"
	reads := make([][]byte, n)
	for i := range reads {
		r := make([]byte, readLen)
		for j := range r {
			if nRate > 0 && rng.IntN(nRate) == 0 {
				r[j] = 'N'
				continue
			}
			r[j] = alphabet[rng.IntN(len(alphabet))]
		}
		reads[i] = r
	}
	return reads
}

// naiveCounts counts k-mer hashes by hashing every window from scratch,
// skipping windows that contain a non-ACGT byte.
func naiveCounts(t testing.TB, reads [][]byte, k int, canonical bool) map[uint64]uint64 {
	t.Helper()
	counts := make(map[uint64]uint64)
	for _, r := range reads {
	window:
		for i := 0; i+k <= len(r); i++ {
			for _, b := range r[i : i+k] {
				if _, ok := kmerhash.Bases.Encode(b); !ok {
					continue window
				}
			}
			h, err := kmerhash.Window(r[i:i+k], kmerhash.WithCanonical(canonical))
			if err != nil {
				t.Fatalf("Window(%q): %v", r[i:i+k], err)
			}
			counts[h.Hash()]++
		}
	}
	return counts
}

// buildIndex builds an index over reads into a temp file and returns its path.
func buildIndex(t testing.TB, reads [][]byte, k int, opts ...BuildOption) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.kmx")
	b, err := NewBuilder(context.Background(), path, k, opts...)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	defer b.Close()
	for _, r := range reads {
		if err := b.AddSequence(r); err != nil {
			t.Fatalf("AddSequence: %v", err)
		}
	}
	if err := b.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return path
}

// openIndex opens path and closes it at test cleanup.
func openIndex(t testing.TB, path string) *Index {
	t.Helper()
	idx, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

// assertCounts checks that idx holds exactly want.
func assertCounts(t *testing.T, idx *Index, want map[uint64]uint64) {
	t.Helper()
	if idx.NumKeys() != uint64(len(want)) {
		t.Fatalf("NumKeys = %d, want %d", idx.NumKeys(), len(want))
	}
	for h, c := range want {
		got, err := idx.Count(h)
		if err != nil {
			t.Fatalf("Count(%#x): %v", h, err)
		}
		if got != c {
			t.Fatalf("Count(%#x) = %d, want %d", h, got, c)
		}
	}
}
