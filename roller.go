package kmerhash

import (
	"github.com/chmduquesne/rollinghash"

	kmererrors "github.com/tamirms/kmerhash/errors"
)

// Size is the checksum size of a Roller in bytes.
const Size = 8

var _ rollinghash.Hash64 = (*Roller)(nil)

// Roller exposes ntHash through the rollinghash.Hash64 interface, so it can
// stand in for buzhash64 or rabinkarp64 in code written against that
// interface. It works on raw bytes and keeps the current window as a
// circular buffer of codes.
type Roller struct {
	cfg *config
	h   *Hasher

	// window is a circular buffer; oldest indexes the base that leaves next.
	window []uint8
	oldest int
}

// NewRoller returns a Roller with no window. Call Write before Roll.
func NewRoller(opts ...Option) *Roller {
	return &Roller{
		cfg:    newConfig(opts),
		window: make([]uint8, 0, rollinghash.DefaultWindowCap),
	}
}

// Write (re)initializes the rolling window with p, so k becomes len(p).
// A byte rejected by the encoder leaves the Roller reset and returns
// ErrInvalidBase.
func (r *Roller) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, kmererrors.ErrInvalidK
	}
	window, err := Encode(r.cfg.encoder, p, r.window)
	if err != nil {
		r.Reset()
		return 0, err
	}
	r.window = window
	r.oldest = 0
	if r.h != nil && r.h.K() == len(window) {
		r.h.Reset(window)
	} else {
		r.h = New(window, r.cfg.canonical)
	}
	return len(p), nil
}

// Roll slides the window by one byte. It panics if no window has been
// written or if c is rejected by the encoder.
func (r *Roller) Roll(c byte) {
	if r.h == nil {
		panic("kmerhash: Roll called before Write")
	}
	in, ok := r.cfg.encoder.Encode(c)
	if !ok {
		panic("kmerhash: Roll called with a byte the encoder rejects")
	}
	out := r.window[r.oldest]
	r.window[r.oldest] = in
	r.oldest++
	if r.oldest == len(r.window) {
		r.oldest = 0
	}
	r.h.Roll(out, in)
}

// Sum64 returns the hash of the current window.
func (r *Roller) Sum64() uint64 {
	if r.h == nil {
		return 0
	}
	return r.h.Hash()
}

// Sum appends the big-endian hash to b.
func (r *Roller) Sum(b []byte) []byte {
	v := r.Sum64()
	return append(b, byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32), byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// Reset drops the window.
func (r *Roller) Reset() {
	r.window = r.window[:0]
	r.oldest = 0
	r.h = nil
}

// Size is 8 bytes.
func (r *Roller) Size() int { return Size }

// BlockSize is 1 byte.
func (r *Roller) BlockSize() int { return 1 }
