package index

import (
	"github.com/tamirms/kmerhash"
)

const (
	maxCountSize = 8
	maxK         = 1<<16 - 1

	defaultCountSize    = 4
	defaultKeysPerBlock = 256
)

// BuildOption is a functional option for configuring builds.
type BuildOption func(*buildConfig)

type buildConfig struct {
	workers      int
	canonical    bool
	minCount     uint32
	countSize    int
	keysPerBlock int
	userMetadata []byte
	encoder      kmerhash.Encoder

	// count-min filter geometry; zero height disables the filter
	cmWidthBits uint
	cmHeight    int
}

func defaultBuildConfig() *buildConfig {
	return &buildConfig{
		workers:      0, // Default to single-threaded; use WithWorkers(n) to parallelize
		canonical:    true,
		minCount:     1,
		countSize:    defaultCountSize,
		keysPerBlock: defaultKeysPerBlock,
		encoder:      kmerhash.Bases,
	}
}

// hashOptions returns the kmerhash options matching the build config.
func (c *buildConfig) hashOptions() []kmerhash.Option {
	return []kmerhash.Option{
		kmerhash.WithCanonical(c.canonical),
		kmerhash.WithEncoder(c.encoder),
	}
}

// WithWorkers sets the number of counting goroutines. Sequences passed to
// AddSequence are distributed across them.
func WithWorkers(n int) BuildOption {
	return func(c *buildConfig) {
		c.workers = n
	}
}

// WithCanonical selects strand-independent k-mer hashes. Default is true.
func WithCanonical(canonical bool) BuildOption {
	return func(c *buildConfig) {
		c.canonical = canonical
	}
}

// WithMinCount drops k-mers seen fewer than n times. Default is 1.
func WithMinCount(n uint32) BuildOption {
	return func(c *buildConfig) {
		c.minCount = n
	}
}

// WithCountSize sets the stored width of each count in bytes (1..8).
// Counts that do not fit saturate at the largest representable value.
func WithCountSize(sizeBytes int) BuildOption {
	return func(c *buildConfig) {
		c.countSize = sizeBytes
	}
}

// WithKeysPerBlock sets the target number of k-mers per RAM index block.
// Smaller blocks cost RAM index space and shorten the search per query.
func WithKeysPerBlock(n int) BuildOption {
	return func(c *buildConfig) {
		c.keysPerBlock = n
	}
}

// WithUserMetadata sets the variable-length user metadata.
// The metadata is copied, so the caller can reuse the slice after this call.
func WithUserMetadata(data []byte) BuildOption {
	return func(c *buildConfig) {
		c.userMetadata = append([]byte(nil), data...) // Copy slice
	}
}

// WithEncoder replaces the default kmerhash.Bases encoder.
func WithEncoder(enc kmerhash.Encoder) BuildOption {
	return func(c *buildConfig) {
		c.encoder = enc
	}
}

// WithCountMinFilter puts a count-min sketch of height rows by 2^widthBits
// counters in front of the exact counts. A k-mer is only stored once its
// sketch estimate reaches the minimum count, which keeps singletons (mostly
// sequencing errors) out of memory on large inputs.
//
// Stored counts are then the occurrences seen after admission plus
// MinCount-1. The sketch never undercounts, so a k-mer can be admitted
// early on a collision and its count overstated; such indexes report
// Approximate() == true.
func WithCountMinFilter(widthBits uint, height int) BuildOption {
	return func(c *buildConfig) {
		c.cmWidthBits = widthBits
		c.cmHeight = height
	}
}
