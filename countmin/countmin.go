// Package countmin implements a count-min sketch keyed by rolling k-mer
// hashes.
//
// Each row of the sketch is probed with a different hash of the same
// k-mer: row 0 uses Hash(), the other rows use Extra. Extra only re-mixes the
// already computed hash, so probing costs a multiply per row and the
// k-mer is never rehashed.
//
// Counters are updated atomically, so one Sketch can be shared by many
// goroutines, each driving its own Hasher.
package countmin

import (
	"fmt"
	"math"
	"sync/atomic"

	kmererrors "github.com/tamirms/kmerhash/errors"
)

// maxWidthBits bounds a row to 2^32 counters.
const maxWidthBits = 32

// Hashes is the view of a k-mer the sketch needs. *kmerhash.Hasher
// satisfies it.
type Hashes interface {
	Hash() uint64
	Extra(i int) uint64
	K() int
}

// Sketch is a count-min sketch of height rows by 2^widthBits columns of
// saturating 32-bit counters.
type Sketch struct {
	mask   uint64
	width  uint64
	height int
	cells  []atomic.Uint32
}

// New returns an empty sketch with 2^widthBits counters per row.
func New(widthBits uint, height int) (*Sketch, error) {
	if widthBits == 0 || widthBits > maxWidthBits {
		return nil, fmt.Errorf("%w: widthBits %d not in 1..%d", kmererrors.ErrInvalidGeometry, widthBits, maxWidthBits)
	}
	if height < 1 {
		return nil, fmt.Errorf("%w: height %d < 1", kmererrors.ErrInvalidGeometry, height)
	}
	width := uint64(1) << widthBits
	return &Sketch{
		mask:   width - 1,
		width:  width,
		height: height,
		cells:  make([]atomic.Uint32, width*uint64(height)),
	}, nil
}

// rowHash skips Extra(k), which is identically zero.
func (s *Sketch) rowHash(h Hashes, row int) uint64 {
	if row == 0 {
		return h.Hash()
	}
	if row >= h.K() {
		row++
	}
	return h.Extra(row)
}

func (s *Sketch) cell(h Hashes, row int) *atomic.Uint32 {
	return &s.cells[uint64(row)*s.width+(s.rowHash(h, row)&s.mask)]
}

// Add counts one occurrence of the k-mer and returns its new estimate,
// the minimum over rows. The estimate never undercounts.
//
// Rows are read back after all of them have been incremented, so of
// several concurrent Adds of one k-mer the last to finish sees every
// occurrence.
func (s *Sketch) Add(h Hashes) uint32 {
	for row := 0; row < s.height; row++ {
		increment(s.cell(h, row))
	}
	return s.Estimate(h)
}

// increment adds one, sticking at MaxUint32.
func increment(c *atomic.Uint32) {
	for {
		v := c.Load()
		if v == math.MaxUint32 || c.CompareAndSwap(v, v+1) {
			return
		}
	}
}

// Estimate returns the current estimate for the k-mer without counting it.
func (s *Sketch) Estimate(h Hashes) uint32 {
	est := uint32(math.MaxUint32)
	for row := 0; row < s.height; row++ {
		est = min(est, s.cell(h, row).Load())
	}
	return est
}

// Width returns the number of counters per row.
func (s *Sketch) Width() uint64 { return s.width }

// Height returns the number of rows.
func (s *Sketch) Height() int { return s.height }

// Reset zeroes every counter. It must not run concurrently with Add.
func (s *Sketch) Reset() {
	for i := range s.cells {
		s.cells[i].Store(0)
	}
}
