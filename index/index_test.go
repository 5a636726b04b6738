package index

import (
	"errors"
	"os"
	"testing"

	"github.com/tamirms/kmerhash"
	kmererrors "github.com/tamirms/kmerhash/errors"
)

func TestCountKmer(t *testing.T) {
	reads := [][]byte{
		[]byte("GATTACAGATTACA"),
		[]byte("TGTAATCNNGATTACA"),
	}
	const k = 7
	path := buildIndex(t, reads, k)
	idx := openIndex(t, path)

	tests := []struct {
		kmer string
		want uint64
	}{
		{"GATTACA", 4}, // twice in read 1, once plus its reverse complement in read 2
		{"gattaca", 4},
		{"TGTAATC", 4},
		{"ATTACAG", 1},
		{"CTGTAAT", 1},
	}
	for _, tt := range tests {
		t.Run(tt.kmer, func(t *testing.T) {
			got, err := idx.CountKmer([]byte(tt.kmer))
			if err != nil {
				t.Fatalf("CountKmer: %v", err)
			}
			if got != tt.want {
				t.Errorf("CountKmer(%s) = %d, want %d", tt.kmer, got, tt.want)
			}
		})
	}

	errTests := []struct {
		name string
		kmer string
		want error
	}{
		{"short", "GATTAC", kmererrors.ErrWindowLength},
		{"long", "GATTACAG", kmererrors.ErrWindowLength},
		{"invalid_base", "GATNACA", kmererrors.ErrInvalidBase},
		{"absent", "CCCCCCC", kmererrors.ErrNotFound},
	}
	for _, tt := range errTests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := idx.CountKmer([]byte(tt.kmer)); !errors.Is(err, tt.want) {
				t.Errorf("CountKmer(%s) error = %v, want %v", tt.kmer, err, tt.want)
			}
		})
	}
}

func TestCountNotFound(t *testing.T) {
	rng := newTestRNG(t)
	reads := randomReads(rng, 50, 100, 0)
	idx := openIndex(t, buildIndex(t, reads, 31))
	present := naiveCounts(t, reads, 31, true)

	misses := 0
	for range 10000 {
		h := rng.Uint64()
		if _, ok := present[h]; ok {
			continue
		}
		if _, err := idx.Count(h); !errors.Is(err, kmererrors.ErrNotFound) {
			t.Fatalf("Count(%#x) error = %v, want ErrNotFound", h, err)
		}
		misses++
	}
	if misses == 0 {
		t.Fatal("no random probes missed")
	}
}

func TestAllSortedAndComplete(t *testing.T) {
	rng := newTestRNG(t)
	reads := randomReads(rng, 100, 120, 50)
	const k = 11

	for _, keysPerBlock := range []int{1, 7, 256, 1 << 20} {
		path := buildIndex(t, reads, k, WithKeysPerBlock(keysPerBlock))
		idx := openIndex(t, path)
		want := naiveCounts(t, reads, k, true)

		var prev uint64
		n := 0
		for h, c := range idx.All() {
			if n > 0 && h <= prev {
				t.Fatalf("keysPerBlock=%d: All not strictly ascending at %d", keysPerBlock, n)
			}
			if want[h] != c {
				t.Fatalf("keysPerBlock=%d: All yielded %#x=%d, want %d", keysPerBlock, h, c, want[h])
			}
			prev = h
			n++
		}
		if n != len(want) {
			t.Errorf("keysPerBlock=%d: All yielded %d entries, want %d", keysPerBlock, n, len(want))
		}
		assertCounts(t, idx, want)
	}
}

func TestAllStopsEarly(t *testing.T) {
	rng := newTestRNG(t)
	idx := openIndex(t, buildIndex(t, randomReads(rng, 10, 100, 0), 9))
	n := 0
	for range idx.All() {
		n++
		if n == 3 {
			break
		}
	}
	if n != 3 {
		t.Errorf("iterated %d entries after break, want 3", n)
	}
}

func TestOpenBytesMatchesOpen(t *testing.T) {
	rng := newTestRNG(t)
	reads := randomReads(rng, 40, 90, 0)
	path := buildIndex(t, reads, 13, WithCanonical(false), WithCountSize(2))
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	fromBytes, err := OpenBytes(data)
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	defer fromBytes.Close()
	fromFile := openIndex(t, path)

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	fromHandle, err := OpenFile(f)
	f.Close()
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer fromHandle.Close()

	want := naiveCounts(t, reads, 13, false)
	for _, idx := range []*Index{fromBytes, fromFile, fromHandle} {
		assertCounts(t, idx, want)
		if err := idx.Verify(); err != nil {
			t.Errorf("Verify: %v", err)
		}
	}
}

func TestStats(t *testing.T) {
	reads := [][]byte{[]byte("ACGTACGTACGTAAAC")}
	path := buildIndex(t, reads, 4, WithCountSize(2), WithMinCount(1), WithKeysPerBlock(2))
	st, err := GetStats(path)
	if err != nil {
		t.Fatal(err)
	}

	want := naiveCounts(t, reads, 4, true)
	if st.NumKeys != uint64(len(want)) {
		t.Errorf("NumKeys = %d, want %d", st.NumKeys, len(want))
	}
	if st.NumBlocks != uint32((len(want)+1)/2) {
		t.Errorf("NumBlocks = %d, want %d", st.NumBlocks, (len(want)+1)/2)
	}
	if st.K != 4 || !st.Canonical || st.Approximate || st.CountSize != 2 || st.MinCount != 1 {
		t.Errorf("unexpected stats: %+v", st)
	}
	if st.TotalKmers != 13 {
		t.Errorf("TotalKmers = %d, want 13", st.TotalKmers)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if st.IndexSize != fi.Size() {
		t.Errorf("IndexSize = %d, file is %d bytes", st.IndexSize, fi.Size())
	}
	if st.BitsPerKey <= 0 {
		t.Errorf("BitsPerKey = %v", st.BitsPerKey)
	}
}

func TestQueriesAfterClose(t *testing.T) {
	path := buildIndex(t, [][]byte{[]byte("ACGTACGT")}, 3)
	idx, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	h, err := kmerhash.Window([]byte("ACG"), kmerhash.WithCanonical(true))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := idx.Count(h.Hash()); err != nil {
		t.Fatalf("Count before Close: %v", err)
	}

	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := idx.Count(h.Hash()); !errors.Is(err, kmererrors.ErrIndexClosed) {
		t.Errorf("Count after Close = %v, want ErrIndexClosed", err)
	}
	if _, err := idx.CountKmer([]byte("ACG")); !errors.Is(err, kmererrors.ErrIndexClosed) {
		t.Errorf("CountKmer after Close = %v, want ErrIndexClosed", err)
	}
	if err := idx.Verify(); !errors.Is(err, kmererrors.ErrIndexClosed) {
		t.Errorf("Verify after Close = %v, want ErrIndexClosed", err)
	}
}
