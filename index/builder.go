package index

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/tamirms/kmerhash/countmin"
	kmererrors "github.com/tamirms/kmerhash/errors"
	intbits "github.com/tamirms/kmerhash/internal/bits"
)

// Builder counts the k-mers of a stream of sequences and writes them to a
// k-mer index file.
//
// Usage:
//
//	builder, err := index.NewBuilder(ctx, "reads.kmx", 31, index.WithMinCount(2))
//	if err != nil { return err }
//	defer builder.Close() // Clean up on error
//
//	for _, seq := range sequences {
//	    if err := builder.AddSequence(seq); err != nil { return err }
//	}
//	return builder.Finish()
//
// With WithWorkers(n), AddSequence hands each sequence to one of n counting
// goroutines and returns immediately; the sequence is copied first, so the
// caller may reuse its buffer.
type Builder struct {
	ctx    context.Context
	cfg    *buildConfig
	k      int
	output string
	file   *os.File
	closed bool

	digest   *xxh3.Hasher
	sketch   *countmin.Sketch
	counters []*counter

	// Parallel mode fields (when workers > 1)
	workers         int
	workChan        chan []byte
	workerGroup     *errgroup.Group
	workerCtx       context.Context
	workerCancel    context.CancelFunc // Cancels workerCtx to unblock stuck workers
	workersShutDown bool
}

// NewBuilder creates the output file and returns a builder for k-mers of
// length k (1..65535). Counting is canonical by default.
func NewBuilder(ctx context.Context, output string, k int, opts ...BuildOption) (*Builder, error) {
	if k < 1 || k > maxK {
		return nil, fmt.Errorf("%w: k=%d not in 1..%d", kmererrors.ErrInvalidK, k, maxK)
	}

	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.countSize < 1 || cfg.countSize > maxCountSize {
		return nil, kmererrors.ErrCountSizeInvalid
	}
	if cfg.keysPerBlock < 1 {
		return nil, fmt.Errorf("%w: keysPerBlock %d < 1", kmererrors.ErrInvalidGeometry, cfg.keysPerBlock)
	}
	if cfg.minCount == 0 {
		cfg.minCount = 1
	}

	var sketch *countmin.Sketch
	if cfg.cmHeight != 0 || cfg.cmWidthBits != 0 {
		s, err := countmin.New(cfg.cmWidthBits, cfg.cmHeight)
		if err != nil {
			return nil, fmt.Errorf("count-min filter: %w", err)
		}
		sketch = s
	}

	file, err := os.Create(output)
	if err != nil {
		return nil, fmt.Errorf("create index file: %w", err)
	}

	b := &Builder{
		ctx:     ctx,
		cfg:     cfg,
		k:       k,
		output:  output,
		file:    file,
		digest:  xxh3.New(),
		sketch:  sketch,
		workers: max(cfg.workers, 1),
	}

	if b.workers > 1 {
		b.initParallelWorkers()
	} else {
		b.counters = []*counter{newCounter(cfg, k, sketch)}
	}

	return b, nil
}

// initParallelWorkers starts one counting goroutine per worker, each
// draining workChan into its own counter.
func (b *Builder) initParallelWorkers() {
	b.workChan = make(chan []byte, b.workers*2)
	var parent context.Context
	parent, b.workerCancel = context.WithCancel(b.ctx)
	b.workerGroup, b.workerCtx = errgroup.WithContext(parent)

	b.counters = make([]*counter, b.workers)
	for i := range b.counters {
		c := newCounter(b.cfg, b.k, b.sketch)
		b.counters[i] = c
		b.workerGroup.Go(func() error {
			for {
				select {
				case seq, ok := <-b.workChan:
					if !ok {
						return nil
					}
					c.add(seq)
				case <-b.workerCtx.Done():
					return b.workerCtx.Err()
				}
			}
		})
	}
}

// shutdownWorkers closes the work channel and waits for the workers.
// Idempotent.
func (b *Builder) shutdownWorkers() error {
	if b.workersShutDown {
		return nil
	}
	b.workersShutDown = true
	close(b.workChan)
	err := b.workerGroup.Wait()
	b.workerCancel()
	return err
}

// AddSequence counts every k-mer of seq. K-mers spanning a byte the
// encoder rejects (N, IUPAC codes, gaps) are skipped.
func (b *Builder) AddSequence(seq []byte) error {
	if b.closed {
		return kmererrors.ErrBuilderClosed
	}
	if err := b.ctx.Err(); err != nil {
		return err
	}

	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(seq)))
	if _, err := b.digest.Write(lenBuf[:]); err != nil {
		panic("hash.Hash.Write returned unexpected error: " + err.Error())
	}
	if _, err := b.digest.Write(seq); err != nil {
		panic("hash.Hash.Write returned unexpected error: " + err.Error())
	}

	if b.workers == 1 {
		b.counters[0].add(seq)
		return nil
	}

	buf := append([]byte(nil), seq...)
	select {
	case b.workChan <- buf:
		return nil
	case <-b.workerCtx.Done():
		if err := b.shutdownWorkers(); err != nil {
			return err
		}
		return b.workerCtx.Err()
	}
}

// Finish waits for counting to complete and writes the index.
// The builder cannot be used afterwards.
func (b *Builder) Finish() error {
	if b.closed {
		return kmererrors.ErrBuilderClosed
	}
	b.closed = true

	if b.workers > 1 {
		if err := b.shutdownWorkers(); err != nil {
			return b.abort(err)
		}
	}
	if err := b.ctx.Err(); err != nil {
		return b.abort(err)
	}

	entries, kmers := mergeCounters(b.counters, b.cfg, b.sketch != nil)
	b.counters = nil
	if len(entries) == 0 {
		return b.abort(kmererrors.ErrEmptyIndex)
	}
	if uint64(len(entries)) > intbits.MaxUint40 {
		return b.abort(kmererrors.ErrTooManyKeys)
	}

	var flags uint8
	if b.cfg.canonical {
		flags |= flagCanonical
	}
	if b.sketch != nil {
		flags |= flagApproximate
	}
	hdr := header{
		Magic:       magic,
		Version:     version,
		TotalKeys:   uint64(len(entries)),
		NumBlocks:   numBlocksFor(uint64(len(entries)), b.cfg.keysPerBlock),
		K:           uint16(b.k),
		Flags:       flags,
		CountSize:   uint8(b.cfg.countSize),
		MinCount:    b.cfg.minCount,
		TotalKmers:  kmers,
		InputDigest: b.digest.Sum64(),
	}

	iw, err := newIndexWriter(b.file, hdr, b.cfg.userMetadata)
	if err != nil {
		return b.abort(err)
	}
	b.file = nil // owned by iw from here on

	if err := iw.writeEntries(b.ctx, entries, b.workers); err != nil {
		return errors.Join(err, iw.close(), os.Remove(b.output))
	}
	if err := iw.finalize(); err != nil {
		return errors.Join(err, os.Remove(b.output))
	}
	return nil
}

// Close aborts an unfinished build and removes the partial output.
// It is a no-op after Finish and safe to defer.
func (b *Builder) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	if b.workers > 1 {
		b.workerCancel()
		_ = b.shutdownWorkers() // context.Canceled from our own cancel
	}
	b.counters = nil
	return b.abort(nil)
}

// abort closes and removes the output file, joining any cleanup errors
// onto err.
func (b *Builder) abort(err error) error {
	if b.file == nil {
		return err
	}
	closeErr := b.file.Close()
	b.file = nil
	return errors.Join(err, closeErr, os.Remove(b.output))
}

// numBlocksFor returns ceil(totalKeys / keysPerBlock), at least 1 and at
// most MaxUint32.
func numBlocksFor(totalKeys uint64, keysPerBlock int) uint32 {
	n := (totalKeys + uint64(keysPerBlock) - 1) / uint64(keysPerBlock)
	return uint32(min(max(n, 1), uint64(^uint32(0))))
}
