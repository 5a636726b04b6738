package index

import (
	"encoding/binary"

	kmererrors "github.com/tamirms/kmerhash/errors"
)

const (
	// magic number for k-mer index files: "KMIX" in little-endian.
	magic = uint32(0x58494D4B)

	// version is the current format version
	version = uint16(0x0001)

	// headerSize is the exact size of the serialized header (64 bytes)
	headerSize = 64

	// footerSize is the exact size of the serialized footer (32 bytes)
	footerSize = 32

	// ramIndexEntrySize is the size of each RAM index entry: a 40-bit
	// cumulative key count. This supports up to ~1.1 trillion distinct k-mers.
	ramIndexEntrySize = 5

	// hashSize is the stored width of a k-mer hash in an entry.
	hashSize = 8

	// minFileSize is header + user metadata length + one block and its
	// sentinel + footer, for an index with no user metadata.
	minFileSize = headerSize + 4 + 2*ramIndexEntrySize + footerSize
)

const (
	flagCanonical   = 1 << 0
	flagApproximate = 1 << 1
)

// header is the 64-byte file header.
//
// Layout:
//
//	Offset  Size  Field        Type
//	0       4     Magic        0x58494D4B ("KMIX")
//	4       2     Version      0x0001
//	6       8     TotalKeys    uint64_le (distinct k-mer hashes stored)
//	14      4     NumBlocks    uint32_le
//	18      2     K            uint16_le (k-mer length)
//	20      1     Flags        bit0 canonical, bit1 counts from count-min filter
//	21      1     CountSize    uint8 (bytes per stored count, 1..8)
//	22      4     MinCount     uint32_le
//	26      8     TotalKmers   uint64_le (k-mer occurrences hashed)
//	34      8     InputDigest  uint64_le (xxh3 of the added sequences)
//	42      22    Reserved     [22]byte (zero)
type header struct {
	Magic       uint32
	Version     uint16
	TotalKeys   uint64
	NumBlocks   uint32
	K           uint16
	Flags       uint8
	CountSize   uint8
	MinCount    uint32
	TotalKmers  uint64
	InputDigest uint64
	Reserved    [22]byte
}

// encodeTo serializes the header to an existing buffer.
func (h *header) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint64(buf[6:14], h.TotalKeys)
	binary.LittleEndian.PutUint32(buf[14:18], h.NumBlocks)
	binary.LittleEndian.PutUint16(buf[18:20], h.K)
	buf[20] = h.Flags
	buf[21] = h.CountSize
	binary.LittleEndian.PutUint32(buf[22:26], h.MinCount)
	binary.LittleEndian.PutUint64(buf[26:34], h.TotalKmers)
	binary.LittleEndian.PutUint64(buf[34:42], h.InputDigest)
	copy(buf[42:64], h.Reserved[:])
}

// decodeHeader parses a 64-byte header.
func decodeHeader(buf []byte) (*header, error) {
	if len(buf) < headerSize {
		return nil, kmererrors.ErrTruncatedFile
	}

	h := &header{
		Magic:       binary.LittleEndian.Uint32(buf[0:4]),
		Version:     binary.LittleEndian.Uint16(buf[4:6]),
		TotalKeys:   binary.LittleEndian.Uint64(buf[6:14]),
		NumBlocks:   binary.LittleEndian.Uint32(buf[14:18]),
		K:           binary.LittleEndian.Uint16(buf[18:20]),
		Flags:       buf[20],
		CountSize:   buf[21],
		MinCount:    binary.LittleEndian.Uint32(buf[22:26]),
		TotalKmers:  binary.LittleEndian.Uint64(buf[26:34]),
		InputDigest: binary.LittleEndian.Uint64(buf[34:42]),
	}
	copy(h.Reserved[:], buf[42:64])

	if h.Magic != magic {
		return nil, kmererrors.ErrInvalidMagic
	}
	if h.Version != version {
		return nil, kmererrors.ErrInvalidVersion
	}
	if h.CountSize < 1 || h.CountSize > maxCountSize {
		return nil, kmererrors.ErrCorruptedIndex
	}
	if h.K == 0 || h.NumBlocks == 0 || h.TotalKeys == 0 {
		return nil, kmererrors.ErrCorruptedIndex
	}

	return h, nil
}

func (h *header) canonical() bool { return h.Flags&flagCanonical != 0 }

func (h *header) approximate() bool { return h.Flags&flagApproximate != 0 }

// entrySize returns bytes stored per k-mer (hash + count).
func (h *header) entrySize() int {
	return hashSize + int(h.CountSize)
}

// footer is the 32-byte file footer.
//
// Layout:
//
//	Offset  Size  Field            Type
//	0       8     EntryRegionHash  uint64_le (xxHash64 hash-of-hashes over blocks)
//	8       8     RAMIndexHash     uint64_le (xxHash64 of the RAM index)
//	16      16    Reserved         [16]byte (zero)
type footer struct {
	EntryRegionHash uint64
	RAMIndexHash    uint64
	Reserved        [16]byte
}

// encodeTo serializes the footer into an existing buffer.
func (f *footer) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], f.EntryRegionHash)
	binary.LittleEndian.PutUint64(buf[8:16], f.RAMIndexHash)
	copy(buf[16:32], f.Reserved[:])
}

// decodeFooter parses a 32-byte footer.
func decodeFooter(buf []byte) (*footer, error) {
	if len(buf) < footerSize {
		return nil, kmererrors.ErrTruncatedFile
	}

	f := &footer{
		EntryRegionHash: binary.LittleEndian.Uint64(buf[0:8]),
		RAMIndexHash:    binary.LittleEndian.Uint64(buf[8:16]),
	}
	copy(f.Reserved[:], buf[16:32])

	return f, nil
}

// fileSize returns the exact size of an index with the given shape.
func fileSize(totalKeys uint64, numBlocks uint32, countSize, userMetadataLen int) uint64 {
	return headerSize + 4 + uint64(userMetadataLen) +
		(uint64(numBlocks)+1)*ramIndexEntrySize +
		totalKeys*uint64(hashSize+countSize) +
		footerSize
}
