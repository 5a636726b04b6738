package kmerhash

import "math/bits"

const (
	// multiSeed and multiShift parameterise Extra. Like the seed tables
	// they are part of the hash contract and must not change.
	multiSeed  = 0x90b4_5d39_fb6d_a1fa
	multiShift = 27
)

// Hasher is the rolling hash state for one window position of one scan.
//
// A Hasher holds the forward hash of the current k-mer and, in canonical
// mode, the hash of its reverse complement. It is created from an explicit
// window with New, then advanced one base at a time with Roll.
//
// # Thread Safety
//
// A Hasher is NOT safe for concurrent use. Independent Hashers share only
// the immutable seed tables and can run on separate goroutines without
// synchronization.
type Hasher struct {
	k  int
	fh uint64

	// rh is only meaningful when canonical is true. canonical is fixed at
	// construction, so Hash and Roll never need a sentinel check.
	rh        uint64
	canonical bool
}

// New returns a Hasher initialised on window, a k-mer of symbol codes
// (k = len(window)). If canonical is true the reverse-complement hash is
// tracked as well and Hash returns the strand-independent minimum.
//
// Preconditions, not checked beyond what the runtime enforces:
//   - len(window) >= 1; New panics on an empty window
//   - every code is in 0..3; larger codes panic on the seed lookup
func New(window []uint8, canonical bool) *Hasher {
	if len(window) == 0 {
		panic("kmerhash: New called with an empty window")
	}
	h := &Hasher{k: len(window), canonical: canonical}
	h.init(window)
	return h
}

// Reset re-initialises h on a new window of the same length, keeping the
// strand mode. It panics if len(window) != h.K().
func (h *Hasher) Reset(window []uint8) {
	if len(window) != h.k {
		panic("kmerhash: Reset window length differs from k")
	}
	h.init(window)
}

func (h *Hasher) init(window []uint8) {
	k := h.k
	var fh uint64
	for i, c := range window {
		fh ^= bits.RotateLeft64(forwardSeed[c], k-i-1)
	}
	h.fh = fh

	if !h.canonical {
		h.rh = 0
		return
	}
	// Walking the window right to left, position i (from the right) gets
	// rotation k-i-1, so window[j] ends up rotated by j.
	var rh uint64
	for j, c := range window {
		rh ^= bits.RotateLeft64(reverseComplementSeed[c], j)
	}
	h.rh = rh
}

// Roll advances the window by one base. old must be the code leaving on
// the left (the first base of the current window) and in the code entering
// on the right.
//
// Roll performs no checking. Passing anything other than the true outgoing
// and incoming bases, in that order, silently produces a well-defined but
// wrong hash that no longer matches New on the shifted window.
func (h *Hasher) Roll(old, in uint8) {
	k := h.k
	h.fh = bits.RotateLeft64(h.fh, 1) ^
		bits.RotateLeft64(forwardSeed[old], k) ^
		forwardSeed[in]

	if h.canonical {
		h.rh = bits.RotateLeft64(h.rh, -1) ^
			bits.RotateLeft64(reverseComplementSeed[old], -1) ^
			bits.RotateLeft64(reverseComplementSeed[in], k-1)
	}
}

// Hash returns the hash of the current k-mer: min(forward, reverse
// complement) in canonical mode, the forward hash otherwise.
func (h *Hasher) Hash() uint64 {
	if h.canonical {
		return min(h.fh, h.rh)
	}
	return h.fh
}

// Extra derives an additional 64-bit hash from Hash and i, for structures
// that need several probes per k-mer (count-min sketches, Bloom filters).
//
// It only mixes the existing hash, so k-mers whose hashes collide also
// collide on every Extra. Multiplication wraps modulo 2^64. Note that
// i == K() makes the multiplier zero and the result 0.
func (h *Hasher) Extra(i int) uint64 {
	x := h.Hash() * (multiSeed * uint64(i^h.k))
	return x ^ (x >> multiShift)
}

// K returns the window length.
func (h *Hasher) K() int { return h.k }

// Canonical reports whether the reverse-complement hash is tracked.
func (h *Hasher) Canonical() bool { return h.canonical }

// Forward returns the forward-strand hash of the current k-mer.
func (h *Hasher) Forward() uint64 { return h.fh }

// ReverseComplement returns the reverse-complement hash of the current
// k-mer. ok is false when h is not in canonical mode.
func (h *Hasher) ReverseComplement() (rc uint64, ok bool) {
	return h.rh, h.canonical
}
