// Bench measures rolling k-mer hash throughput against other hashes, and
// k-mer index build time, query latency and memory usage.
//
// Usage:
//
//	go run ./cmd/bench -len 50000000 -k 31 -workers 4
//
// Flags:
//
//	-len       Sequence length in bases (default: 50,000,000)
//	-k         K-mer length (default: 31)
//	-read      Read length when building the index (default: 150)
//	-workers   Number of counting workers (default: 1)
//	-cm-bits   Count-min filter width bits, 0 disables (default: 0)
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"runtime/metrics"
	"runtime/pprof"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/chmduquesne/rollinghash"
	"github.com/chmduquesne/rollinghash/buzhash64"
	"github.com/spaolacci/murmur3"
	"github.com/zeebo/xxh3"

	"github.com/tamirms/kmerhash"
	"github.com/tamirms/kmerhash/index"
)

// getMaxRSS returns the maximum resident set size in bytes.
func getMaxRSS() uint64 {
	var rusage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &rusage); err != nil {
		return 0
	}
	// On macOS, MaxRss is in bytes. On Linux, it's in kilobytes.
	maxRSS := uint64(rusage.Maxrss)
	if runtime.GOOS == "linux" {
		maxRSS *= 1024
	}
	return maxRSS
}

// sink keeps hash results live.
var sink uint64

type result struct {
	name string
	dur  time.Duration
}

// timeRolling runs h over every window of seq through the rollinghash
// interface: one Write, then one Roll per base.
func timeRolling(h rollinghash.Hash64, seq []byte, k int) time.Duration {
	start := time.Now()
	_, _ = h.Write(seq[:k]) // Benchmark input is pure ACGT
	acc := h.Sum64()
	for _, c := range seq[k:] {
		h.Roll(c)
		acc ^= h.Sum64()
	}
	sink ^= acc
	return time.Since(start)
}

// timeWindows rehashes every window of seq from scratch.
func timeWindows(seq []byte, k int, sum func([]byte) uint64) time.Duration {
	start := time.Now()
	var acc uint64
	for i := 0; i+k <= len(seq); i++ {
		acc ^= sum(seq[i : i+k])
	}
	sink ^= acc
	return time.Since(start)
}

func hashThroughput(seq []byte, k int) []result {
	timeIter := func(canonical bool) time.Duration {
		start := time.Now()
		var acc uint64
		for _, h := range kmerhash.Hashes(seq, k, kmerhash.WithCanonical(canonical)) {
			acc ^= h
		}
		sink ^= acc
		return time.Since(start)
	}

	return []result{
		{"nthash forward", timeIter(false)},
		{"nthash canonical", timeIter(true)},
		{"nthash Roller", timeRolling(kmerhash.NewRoller(), seq, k)},
		{"buzhash64 Roller", timeRolling(buzhash64.New(), seq, k)},
		{"murmur3 per window", timeWindows(seq, k, murmur3.Sum64)},
		{"xxh3 per window", timeWindows(seq, k, xxh3.Hash)},
		{"xxhash per window", timeWindows(seq, k, xxhash.Sum64)},
	}
}

func main() {
	lenFlag := flag.Int("len", 50_000_000, "sequence length in bases")
	kFlag := flag.Int("k", 31, "k-mer length")
	readFlag := flag.Int("read", 150, "read length for the index build")
	workersFlag := flag.Int("workers", 1, "number of counting workers")
	cmBitsFlag := flag.Uint("cm-bits", 0, "count-min filter width bits (0 disables)")
	cpuprofile := flag.String("cpuprofile", "", "write cpu profile to file (build phase only)")
	flag.Parse()

	k := *kFlag
	if *lenFlag < k || *readFlag < k {
		fmt.Printf("-len and -read must be at least k=%d\n", k)
		return
	}

	fmt.Println("Generating sequence...")
	rng := rand.New(rand.NewPCG(0x1234, 0x5678))
	seq := make([]byte, *lenFlag)
	for i := range seq {
		seq[i] = "ACGT"[rng.IntN(4)]
	}
	numKmers := len(seq) - k + 1

	fmt.Println("Hashing k-mers...")
	results := hashThroughput(seq, k)

	tmpDir, err := os.MkdirTemp("", "bench-")
	if err != nil {
		fmt.Printf("Failed to create temp dir: %v\n", err)
		return
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	indexPath := filepath.Join(tmpDir, "bench.kmx")

	runtime.GC()
	var baseline runtime.MemStats
	runtime.ReadMemStats(&baseline)
	baselineRSS := getMaxRSS()

	// 10ms sampling for peak heap via runtime/metrics, which avoids the
	// stop-the-world pause of ReadMemStats.
	var peakAlloc atomic.Uint64
	peakAlloc.Store(baseline.Alloc)
	done := make(chan struct{})
	go func() {
		samples := []metrics.Sample{{Name: "/memory/classes/heap/objects:bytes"}}
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				metrics.Read(samples)
				heapBytes := samples[0].Value.Uint64()
				for {
					old := peakAlloc.Load()
					if heapBytes <= old || peakAlloc.CompareAndSwap(old, heapBytes) {
						break
					}
				}
			}
		}
	}()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Printf("could not create CPU profile: %v\n", err)
			return
		}
		defer func() { _ = f.Close() }()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Printf("could not start CPU profile: %v\n", err)
			return
		}
	}

	fmt.Println("Building index...")
	opts := []index.BuildOption{index.WithWorkers(*workersFlag)}
	if *cmBitsFlag > 0 {
		opts = append(opts, index.WithCountMinFilter(*cmBitsFlag, 4), index.WithMinCount(2))
	}
	buildStart := time.Now()
	builder, err := index.NewBuilder(context.Background(), indexPath, k, opts...)
	if err != nil {
		fmt.Printf("NewBuilder failed: %v\n", err)
		return
	}
	// Overlapping reads, so every k-mer of seq is seen by some read.
	step := *readFlag - k + 1
	for off := 0; off+k <= len(seq); off += step {
		if err := builder.AddSequence(seq[off:min(off+*readFlag, len(seq))]); err != nil {
			_ = builder.Close() // Best-effort cleanup; primary error is AddSequence failure
			fmt.Printf("AddSequence failed: %v\n", err)
			return
		}
	}
	err = builder.Finish()
	buildDuration := time.Since(buildStart)

	if *cpuprofile != "" {
		pprof.StopCPUProfile()
	}
	close(done)

	if err != nil {
		fmt.Printf("Build failed: %v\n", err)
		return
	}
	peakHeapMem := peakAlloc.Load() - min(baseline.Alloc, peakAlloc.Load())
	peakRSSMem := getMaxRSS() - min(baselineRSS, getMaxRSS())

	idx, err := index.Open(indexPath)
	if err != nil {
		fmt.Printf("Open failed: %v\n", err)
		return
	}
	defer func() { _ = idx.Close() }()

	fmt.Println("Benchmarking queries...")
	const numQueries = 100_000
	queries := make([][]byte, numQueries)
	for i := range queries {
		off := rng.IntN(numKmers)
		queries[i] = seq[off : off+k]
	}
	queryStart := time.Now()
	for _, q := range queries {
		_, _ = idx.CountKmer(q) // Benchmark: measuring throughput, not correctness
	}
	queryDuration := time.Since(queryStart)
	avgLatency := float64(queryDuration.Nanoseconds()) / numQueries / 1000

	st := idx.Stats()

	fmt.Printf("\n")
	fmt.Printf("╔═════════════════════╦════════════════╦══════════════════╗\n")
	fmt.Printf("║ k=%-5d             ║ %-14s ║ %12d bp  ║\n", k, "Throughput", len(seq))
	fmt.Printf("╠═════════════════════╬════════════════╬══════════════════╣\n")
	for _, r := range results {
		fmt.Printf("║ %-19s ║ %8.2f M/sec ║ %8.2f ns/kmer ║\n", r.name,
			float64(numKmers)/r.dur.Seconds()/1_000_000,
			float64(r.dur.Nanoseconds())/float64(numKmers))
	}
	fmt.Printf("╠═════════════════════╬════════════════╬══════════════════╣\n")
	fmt.Printf("║ Distinct k-mers     ║ %14d ║ -                ║\n", st.NumKeys)
	fmt.Printf("║ Bits per k-mer      ║ %6.3f bits    ║ (%d byte counts)  ║\n", st.BitsPerKey, st.CountSize)
	fmt.Printf("║ Build time          ║ %6.2f sec     ║ %d workers        ║\n", buildDuration.Seconds(), *workersFlag)
	fmt.Printf("║ Build throughput    ║ %6.2f M/sec   ║ k-mers           ║\n", float64(st.TotalKmers)/buildDuration.Seconds()/1_000_000)
	fmt.Printf("║ Query latency       ║ %6.2f μs      ║ CountKmer        ║\n", avgLatency)
	fmt.Printf("║ Peak heap memory    ║ %6.1f MB      ║ -                ║\n", float64(peakHeapMem)/1_000_000)
	fmt.Printf("║ Peak RSS memory     ║ %6.1f MB      ║ -                ║\n", float64(peakRSSMem)/1_000_000)
	fmt.Printf("╚═════════════════════╩════════════════╩══════════════════╝\n")

	if sink == 0 {
		fmt.Println()
	}
}
