package index

import (
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"os"
	"sort"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"

	"github.com/tamirms/kmerhash"
	kmererrors "github.com/tamirms/kmerhash/errors"
	intbits "github.com/tamirms/kmerhash/internal/bits"
)

// Index is a read-only k-mer count index.
//
// Thread Safety:
// - Count, CountKmer, All and other read methods are safe for concurrent use
// - Close is NOT safe to call concurrently with queries
// - After Close returns, queries return ErrIndexClosed
type Index struct {
	mmap mmap.MMap
	data []byte

	header       *header
	userMetadata []byte

	// keysBefore[b] is the global index of the first entry of block b,
	// with a trailing sentinel equal to TotalKeys.
	keysBefore []uint64

	ramIndexOffset    uint64
	entryRegionOffset uint64
	entrySize         uint64

	closed atomic.Bool
}

// Stats holds index statistics.
type Stats struct {
	NumKeys     uint64
	NumBlocks   uint32
	K           int
	Canonical   bool
	Approximate bool
	CountSize   int
	MinCount    uint32
	TotalKmers  uint64
	BitsPerKey  float64
	IndexSize   int64
}

// Open opens an index file for querying.
// It opens the file, memory-maps it, and closes the file descriptor.
func Open(path string) (*Index, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()
	return OpenFile(file)
}

// OpenFile opens an index by memory-mapping f. The caller is responsible
// for closing f, which may happen as soon as OpenFile returns.
func OpenFile(f *os.File) (*Index, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat index file: %w", err)
	}
	if stat.Size() < minFileSize {
		return nil, kmererrors.ErrTruncatedFile
	}

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap index file: %w", err)
	}

	idx := &Index{
		mmap: mm,
		data: []byte(mm),
	}
	if err := idx.initFromData(); err != nil {
		return nil, errors.Join(err, idx.Close())
	}
	adviseRandom(idx.data[idx.entryRegionOffset:])
	return idx, nil
}

// OpenBytes creates an index over an in-memory byte slice.
// Close is a no-op; data must not be modified while the Index is in use.
func OpenBytes(data []byte) (*Index, error) {
	if len(data) < minFileSize {
		return nil, kmererrors.ErrTruncatedFile
	}
	idx := &Index{data: data}
	if err := idx.initFromData(); err != nil {
		return nil, err
	}
	return idx, nil
}

// initFromData parses the header, user metadata and RAM index, and checks
// that the data is exactly as long as the header says.
func (idx *Index) initFromData() error {
	size := uint64(len(idx.data))

	hdr, err := decodeHeader(idx.data[:headerSize])
	if err != nil {
		return err
	}
	idx.header = hdr

	userMetadataLen := uint64(binary.LittleEndian.Uint32(idx.data[headerSize:]))
	if headerSize+4+userMetadataLen > size {
		return kmererrors.ErrTruncatedFile
	}
	idx.userMetadata = idx.data[headerSize+4 : headerSize+4+userMetadataLen]

	if hdr.TotalKeys > intbits.MaxUint40 {
		return kmererrors.ErrCorruptedIndex
	}
	want := fileSize(hdr.TotalKeys, hdr.NumBlocks, int(hdr.CountSize), int(userMetadataLen))
	switch {
	case size < want:
		return kmererrors.ErrTruncatedFile
	case size > want:
		return fmt.Errorf("%w: file is %d bytes, header implies %d", kmererrors.ErrCorruptedIndex, size, want)
	}

	idx.ramIndexOffset = headerSize + 4 + userMetadataLen
	idx.entryRegionOffset = idx.ramIndexOffset + (uint64(hdr.NumBlocks)+1)*ramIndexEntrySize
	idx.entrySize = uint64(hdr.entrySize())

	idx.keysBefore = make([]uint64, uint64(hdr.NumBlocks)+1)
	var prev uint64
	for b := range idx.keysBefore {
		kb := intbits.Uint40(idx.data[idx.ramIndexOffset+uint64(b)*ramIndexEntrySize:])
		if kb < prev {
			return fmt.Errorf("%w: RAM index not monotone at block %d", kmererrors.ErrCorruptedIndex, b)
		}
		idx.keysBefore[b] = kb
		prev = kb
	}
	if idx.keysBefore[0] != 0 || prev != hdr.TotalKeys {
		return fmt.Errorf("%w: RAM index does not span %d keys", kmererrors.ErrCorruptedIndex, hdr.TotalKeys)
	}
	return nil
}

// Close releases the mapping. Idempotent.
func (idx *Index) Close() error {
	if idx.closed.Swap(true) {
		return nil
	}
	if idx.mmap != nil {
		return idx.mmap.Unmap()
	}
	return nil
}

func (idx *Index) hashAt(i uint64) uint64 {
	return binary.LittleEndian.Uint64(idx.data[idx.entryRegionOffset+i*idx.entrySize:])
}

func (idx *Index) countAt(i uint64) uint64 {
	off := idx.entryRegionOffset + i*idx.entrySize + hashSize
	return intbits.UintN(idx.data[off:], int(idx.header.CountSize))
}

// Count returns the stored count for a k-mer hash, or ErrNotFound.
func (idx *Index) Count(hash uint64) (uint64, error) {
	if idx.closed.Load() {
		return 0, kmererrors.ErrIndexClosed
	}

	b := intbits.FastRange32(hash, idx.header.NumBlocks)
	lo, hi := idx.keysBefore[b], idx.keysBefore[b+1]
	n := int(hi - lo)
	i := sort.Search(n, func(i int) bool {
		return idx.hashAt(lo+uint64(i)) >= hash
	})
	if i == n || idx.hashAt(lo+uint64(i)) != hash {
		return 0, kmererrors.ErrNotFound
	}
	return idx.countAt(lo + uint64(i)), nil
}

// CountKmer hashes kmer with the index's k and strand mode and returns
// its count. kmer must be exactly K() bases from ACGT (either case).
func (idx *Index) CountKmer(kmer []byte) (uint64, error) {
	if len(kmer) != idx.K() {
		return 0, fmt.Errorf("%w: got %d bases, index k=%d", kmererrors.ErrWindowLength, len(kmer), idx.K())
	}
	h, err := kmerhash.Window(kmer, kmerhash.WithCanonical(idx.Canonical()))
	if err != nil {
		return 0, err
	}
	return idx.Count(h.Hash())
}

// All returns an iterator over every (hash, count) pair in ascending hash
// order. Iteration stops early if the index is closed.
func (idx *Index) All() iter.Seq2[uint64, uint64] {
	return func(yield func(uint64, uint64) bool) {
		for i := range idx.header.TotalKeys {
			if idx.closed.Load() {
				return
			}
			if !yield(idx.hashAt(i), idx.countAt(i)) {
				return
			}
		}
	}
}

// K returns the k-mer length the index was built with.
func (idx *Index) K() int { return int(idx.header.K) }

// Canonical reports whether stored hashes are strand-independent.
func (idx *Index) Canonical() bool { return idx.header.canonical() }

// Approximate reports whether counts were gated by a count-min filter and
// may be overstated.
func (idx *Index) Approximate() bool { return idx.header.approximate() }

// NumKeys returns the number of distinct k-mer hashes stored.
func (idx *Index) NumKeys() uint64 { return idx.header.TotalKeys }

// NumBlocks returns the number of RAM index blocks.
func (idx *Index) NumBlocks() uint32 { return idx.header.NumBlocks }

// TotalKmers returns the number of k-mer occurrences hashed during the
// build, including those later dropped by the minimum count.
func (idx *Index) TotalKmers() uint64 { return idx.header.TotalKmers }

// MinCount returns the minimum count applied at build time.
func (idx *Index) MinCount() uint32 { return idx.header.MinCount }

// InputDigest returns the xxh3 digest of the sequences the index was built
// from. Two builds over the same sequences in the same order agree.
func (idx *Index) InputDigest() uint64 { return idx.header.InputDigest }

// UserMetadata returns the variable-length user-defined metadata.
// The returned slice is backed by the memory-mapped file data.
func (idx *Index) UserMetadata() []byte { return idx.userMetadata }

// GetStats returns statistics for an index file.
func GetStats(path string) (*Stats, error) {
	idx, err := Open(path)
	if err != nil {
		return nil, err
	}
	return idx.Stats(), idx.Close()
}

// Stats returns statistics for the index.
func (idx *Index) Stats() *Stats {
	totalSize := int64(len(idx.data))
	return &Stats{
		NumKeys:     idx.header.TotalKeys,
		NumBlocks:   idx.header.NumBlocks,
		K:           idx.K(),
		Canonical:   idx.Canonical(),
		Approximate: idx.Approximate(),
		CountSize:   int(idx.header.CountSize),
		MinCount:    idx.header.MinCount,
		TotalKmers:  idx.header.TotalKmers,
		BitsPerKey:  float64(totalSize*8) / float64(idx.header.TotalKeys),
		IndexSize:   totalSize,
	}
}

// Verify checks the entry region and RAM index against the footer.
// The entry region hash is a hash-of-hashes: H(H(b0) || H(b1) || ...),
// matching how the writer folds per-block hashes.
func (idx *Index) Verify() error {
	if idx.closed.Load() {
		return kmererrors.ErrIndexClosed
	}

	ftr, err := decodeFooter(idx.data[len(idx.data)-footerSize:])
	if err != nil {
		return err
	}

	ramIndex := idx.data[idx.ramIndexOffset:idx.entryRegionOffset]
	if xxhash.Sum64(ramIndex) != ftr.RAMIndexHash {
		return fmt.Errorf("%w: RAM index", kmererrors.ErrChecksumFailed)
	}

	h := xxhash.New()
	var buf [8]byte
	for b := range idx.header.NumBlocks {
		start := idx.entryRegionOffset + idx.keysBefore[b]*idx.entrySize
		end := idx.entryRegionOffset + idx.keysBefore[b+1]*idx.entrySize
		binary.LittleEndian.PutUint64(buf[:], xxhash.Sum64(idx.data[start:end]))
		if _, err := h.Write(buf[:]); err != nil {
			panic("hash.Hash.Write returned unexpected error: " + err.Error())
		}
	}
	if h.Sum64() != ftr.EntryRegionHash {
		return fmt.Errorf("%w: entry region", kmererrors.ErrChecksumFailed)
	}

	// Count relies on strictly ascending hashes.
	var prev uint64
	for i := range idx.header.TotalKeys {
		hash := idx.hashAt(i)
		if i > 0 && hash <= prev {
			return fmt.Errorf("%w: entries not strictly sorted at %d", kmererrors.ErrCorruptedIndex, i)
		}
		prev = hash
	}
	return nil
}
