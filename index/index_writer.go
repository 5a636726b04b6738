package index

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"
	"golang.org/x/sync/errgroup"

	intbits "github.com/tamirms/kmerhash/internal/bits"
)

// indexWriter lays out a finished index in a memory-mapped file.
// File layout: [Header 64B][UserMetaLen 4B][UserMeta][RAM Index (N+1)×5B][Entries][Footer 32B]
//
// The size of every region is known before the first byte is written, so
// the file is allocated at its exact final size and never truncated.
type indexWriter struct {
	file *os.File
	mmap mmap.MMap
	data []byte

	header       header
	userMetadata []byte

	ramIndexOffset    uint64
	entryRegionOffset uint64
	footerOffset      uint64

	entryRegionHash uint64
	ramIndexHash    uint64
}

// newIndexWriter takes ownership of file, sizes it for hdr and maps it.
// On error the file is closed.
func newIndexWriter(file *os.File, hdr header, userMetadata []byte) (*indexWriter, error) {
	size := fileSize(hdr.TotalKeys, hdr.NumBlocks, int(hdr.CountSize), len(userMetadata))

	ramIndexOffset := uint64(headerSize) + 4 + uint64(len(userMetadata))
	entryRegionOffset := ramIndexOffset + (uint64(hdr.NumBlocks)+1)*ramIndexEntrySize
	footerOffset := size - footerSize

	// Reserve disk blocks up front so a full disk fails here rather than
	// as SIGBUS on a mapped write.
	if err := preallocate(file, int64(size)); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to allocate disk space: %w", err), file.Close())
	}

	mm, err := mmap.MapRegion(file, int(size), mmap.RDWR, 0, 0)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to mmap file: %w", err), file.Close())
	}

	iw := &indexWriter{
		file:              file,
		mmap:              mm,
		data:              []byte(mm),
		header:            hdr,
		userMetadata:      userMetadata,
		ramIndexOffset:    ramIndexOffset,
		entryRegionOffset: entryRegionOffset,
		footerOffset:      footerOffset,
	}
	prefaultRegion(iw.data[entryRegionOffset:footerOffset])
	return iw, nil
}

// writeEntries routes the sorted entries to blocks, writes each block on
// up to workers goroutines, then writes the RAM index. Both region hashes
// are computed here while the data is hot.
func (iw *indexWriter) writeEntries(ctx context.Context, entries []entry, workers int) error {
	numBlocks := iw.header.NumBlocks

	// keysBefore[b] is the index of the first entry of block b; the final
	// element is the sentinel, equal to len(entries). FastRange32 is
	// monotone in the hash, so sorted entries fill blocks in order.
	keysBefore := make([]uint64, uint64(numBlocks)+1)
	for _, e := range entries {
		keysBefore[intbits.FastRange32(e.hash, numBlocks)+1]++
	}
	for b := 1; b <= int(numBlocks); b++ {
		keysBefore[b] += keysBefore[b-1]
	}

	blockHashes := make([]uint64, numBlocks)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	const blocksPerTask = 1024
	for first := uint32(0); first < numBlocks; first += min(blocksPerTask, numBlocks-first) {
		last := first + min(blocksPerTask, numBlocks-first)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for b := first; b < last; b++ {
				lo, hi := keysBefore[b], keysBefore[b+1]
				blockHashes[b] = iw.writeBlock(entries[lo:hi], lo)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Hash-of-hashes over the blocks, folded in block order.
	payloadHasher := xxhash.New()
	var buf [8]byte
	for _, h := range blockHashes {
		binary.LittleEndian.PutUint64(buf[:], h)
		if _, err := payloadHasher.Write(buf[:]); err != nil {
			panic("hash.Hash.Write returned unexpected error: " + err.Error())
		}
	}
	iw.entryRegionHash = payloadHasher.Sum64()

	ramIndex := iw.data[iw.ramIndexOffset:iw.entryRegionOffset]
	for b, kb := range keysBefore {
		intbits.PutUint40(ramIndex[b*ramIndexEntrySize:], kb)
	}
	iw.ramIndexHash = xxhash.Sum64(ramIndex)
	return nil
}

// writeBlock encodes entries starting at global entry index first and
// returns the xxHash64 of the bytes written. Safe for concurrent use on
// disjoint blocks.
func (iw *indexWriter) writeBlock(entries []entry, first uint64) uint64 {
	es := uint64(iw.header.entrySize())
	countSize := int(iw.header.CountSize)
	start := iw.entryRegionOffset + first*es
	region := iw.data[start : start+uint64(len(entries))*es]
	for i, e := range entries {
		off := uint64(i) * es
		binary.LittleEndian.PutUint64(region[off:], e.hash)
		intbits.PutUintN(region[off+hashSize:], e.count, countSize)
	}
	return xxhash.Sum64(region)
}

// finalize writes the header, user metadata and footer, then flushes and
// closes the file. On error it delegates to close().
func (iw *indexWriter) finalize() error {
	iw.header.encodeTo(iw.data[0:headerSize])

	binary.LittleEndian.PutUint32(iw.data[headerSize:], uint32(len(iw.userMetadata)))
	copy(iw.data[headerSize+4:], iw.userMetadata)

	ftr := footer{
		EntryRegionHash: iw.entryRegionHash,
		RAMIndexHash:    iw.ramIndexHash,
	}
	ftr.encodeTo(iw.data[iw.footerOffset:])

	if err := iw.mmap.Flush(); err != nil {
		return errors.Join(fmt.Errorf("mmap flush failed: %w", err), iw.close())
	}
	unmapErr := iw.mmap.Unmap()
	iw.mmap = nil
	if unmapErr != nil {
		return errors.Join(fmt.Errorf("mmap unmap failed: %w", unmapErr), iw.close())
	}

	closeErr := iw.file.Close()
	iw.file = nil
	return closeErr
}

// close releases the mapping and file without finalizing. Idempotent.
func (iw *indexWriter) close() error {
	var unmapErr error
	if iw.mmap != nil {
		unmapErr = iw.mmap.Unmap()
		iw.mmap = nil
	}
	var closeErr error
	if iw.file != nil {
		closeErr = iw.file.Close()
		iw.file = nil
	}
	return errors.Join(unmapErr, closeErr)
}
