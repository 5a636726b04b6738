package index

import (
	"cmp"
	"slices"

	"github.com/tamirms/kmerhash"
	"github.com/tamirms/kmerhash/countmin"
	intbits "github.com/tamirms/kmerhash/internal/bits"
)

// counter accumulates k-mer counts for one goroutine.
//
// A counter is NOT safe for concurrent use. In parallel builds each worker
// owns one; only the count-min sketch is shared.
type counter struct {
	k        int
	opts     []kmerhash.Option
	sketch   *countmin.Sketch
	minCount uint32

	counts map[uint64]uint64
	kmers  uint64 // k-mer occurrences hashed, admitted or not
}

func newCounter(cfg *buildConfig, k int, sketch *countmin.Sketch) *counter {
	return &counter{
		k:        k,
		opts:     cfg.hashOptions(),
		sketch:   sketch,
		minCount: cfg.minCount,
		counts:   make(map[uint64]uint64),
	}
}

// add counts every k-mer of seq.
func (c *counter) add(seq []byte) {
	for _, h := range kmerhash.Kmers(seq, c.k, c.opts...) {
		c.kmers++
		if c.sketch != nil && c.sketch.Add(h) < c.minCount {
			continue
		}
		c.counts[h.Hash()]++
	}
}

// entry is one stored k-mer: its hash and count.
type entry struct {
	hash  uint64
	count uint64
}

// mergeCounters folds per-worker counts into sorted entries, applying the
// admission offset of the count-min filter and the minimum count, and
// saturating counts to countSize bytes.
func mergeCounters(counters []*counter, cfg *buildConfig, filtered bool) (entries []entry, kmers uint64) {
	merged := counters[0].counts
	kmers = counters[0].kmers
	for _, c := range counters[1:] {
		kmers += c.kmers
		for h, n := range c.counts {
			merged[h] += n
		}
		c.counts = nil
	}

	var offset uint64
	if filtered && cfg.minCount > 1 {
		offset = uint64(cfg.minCount) - 1
	}
	maxCount := intbits.MaxUintN(cfg.countSize)

	entries = make([]entry, 0, len(merged))
	for h, n := range merged {
		n += offset
		if n < uint64(cfg.minCount) {
			continue
		}
		entries = append(entries, entry{hash: h, count: min(n, maxCount)})
	}
	counters[0].counts = nil

	slices.SortFunc(entries, func(a, b entry) int {
		return cmp.Compare(a.hash, b.hash)
	})
	return entries, kmers
}
