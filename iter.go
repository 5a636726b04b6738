package kmerhash

import (
	"iter"

	kmererrors "github.com/tamirms/kmerhash/errors"
)

// Window encodes kmer and returns a Hasher initialised on it.
func Window(kmer []byte, opts ...Option) (*Hasher, error) {
	if len(kmer) == 0 {
		return nil, kmererrors.ErrInvalidK
	}
	cfg := newConfig(opts)
	codes, err := Encode(cfg.encoder, kmer, make([]uint8, 0, len(kmer)))
	if err != nil {
		return nil, err
	}
	return New(codes, cfg.canonical), nil
}

// Kmers returns an iterator over (offset, Hasher) for every k-mer of seq,
// where offset is the k-mer's start in seq. After the first window each
// step is a single Roll. The yielded Hasher is reused from one iteration
// to the next; read what you need from it before continuing.
//
// A byte rejected by the encoder ends the current run: no k-mer that
// contains it is yielded, and hashing restarts on the next k valid bytes.
// Nothing is yielded when k < 1 or k > len(seq).
func Kmers(seq []byte, k int, opts ...Option) iter.Seq2[int, *Hasher] {
	cfg := newConfig(opts)
	return func(yield func(int, *Hasher) bool) {
		if k < 1 || k > len(seq) {
			return
		}
		s := scanner{seq: seq, k: k, enc: cfg.encoder, codes: make([]uint8, len(seq))}
		var h *Hasher
		for pos := 0; pos+k <= len(seq); {
			start, ok := s.nextRun(pos)
			if !ok {
				return
			}
			window := s.codes[start : start+k]
			if h == nil {
				h = New(window, cfg.canonical)
			} else {
				h.Reset(window)
			}
			if !yield(start, h) {
				return
			}
			// Roll while the incoming byte is valid.
			end := start + k
			for ; end < len(seq); end++ {
				c, ok := cfg.encoder.Encode(seq[end])
				if !ok {
					break
				}
				s.codes[end] = c
				h.Roll(s.codes[end-k], c)
				if !yield(end-k+1, h) {
					return
				}
			}
			pos = end + 1
		}
	}
}

// Hashes is Kmers reduced to each k-mer's Hash.
func Hashes(seq []byte, k int, opts ...Option) iter.Seq2[int, uint64] {
	return func(yield func(int, uint64) bool) {
		for off, h := range Kmers(seq, k, opts...) {
			if !yield(off, h.Hash()) {
				return
			}
		}
	}
}

// HashAll collects Hashes into a slice, in sequence order.
func HashAll(seq []byte, k int, opts ...Option) []uint64 {
	var out []uint64
	if k >= 1 && k <= len(seq) {
		out = make([]uint64, 0, len(seq)-k+1)
	}
	for _, h := range Hashes(seq, k, opts...) {
		out = append(out, h)
	}
	return out
}

// scanner finds runs of k encodable bytes, caching codes as it goes.
type scanner struct {
	seq   []byte
	k     int
	enc   Encoder
	codes []uint8
}

// nextRun returns the start of the first window at or after pos whose k
// bytes all encode, with their codes stored in s.codes.
func (s *scanner) nextRun(pos int) (int, bool) {
	run := 0
	for i := pos; i < len(s.seq); i++ {
		c, ok := s.enc.Encode(s.seq[i])
		if !ok {
			run = 0
			continue
		}
		s.codes[i] = c
		run++
		if run == s.k {
			return i - s.k + 1, true
		}
	}
	return 0, false
}
