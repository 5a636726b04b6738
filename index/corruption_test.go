package index

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	kmererrors "github.com/tamirms/kmerhash/errors"
)

// validIndexBytes builds a small index and returns its raw bytes.
func validIndexBytes(t *testing.T) []byte {
	t.Helper()
	rng := newTestRNG(t)
	path := buildIndex(t, randomReads(rng, 100, 100, 0), 15,
		WithKeysPerBlock(16), WithUserMetadata([]byte("meta")))
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestOpenRejectsBadHeader(t *testing.T) {
	valid := validIndexBytes(t)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
		want   error
	}{
		{"magic", func(b []byte) []byte { b[0] ^= 0xFF; return b }, kmererrors.ErrInvalidMagic},
		{"version", func(b []byte) []byte { b[4] = 0x7F; return b }, kmererrors.ErrInvalidVersion},
		{"count_size_zero", func(b []byte) []byte { b[21] = 0; return b }, kmererrors.ErrCorruptedIndex},
		{"count_size_nine", func(b []byte) []byte { b[21] = 9; return b }, kmererrors.ErrCorruptedIndex},
		{"k_zero", func(b []byte) []byte { b[18], b[19] = 0, 0; return b }, kmererrors.ErrCorruptedIndex},
		{"total_keys_zero", func(b []byte) []byte { clear(b[6:14]); return b }, kmererrors.ErrCorruptedIndex},
		{"truncated", func(b []byte) []byte { return b[:len(b)-1] }, kmererrors.ErrTruncatedFile},
		{"tiny", func(b []byte) []byte { return b[:minFileSize-1] }, kmererrors.ErrTruncatedFile},
		{"trailing_bytes", func(b []byte) []byte { return append(b, 0) }, kmererrors.ErrCorruptedIndex},
		{"user_metadata_len", func(b []byte) []byte { b[headerSize+3] = 0xFF; return b }, kmererrors.ErrTruncatedFile},
		{"ram_index_not_monotone", func(b []byte) []byte {
			// First real entry (block 1) far beyond TotalKeys.
			off := headerSize + 4 + len("meta") + ramIndexEntrySize
			b[off+4] = 0xFF
			return b
		}, kmererrors.ErrCorruptedIndex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.mutate(append([]byte(nil), valid...))
			_, err := OpenBytes(data)
			if !errors.Is(err, tt.want) {
				t.Fatalf("OpenBytes error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestVerifyDetectsCorruption(t *testing.T) {
	valid := validIndexBytes(t)

	idx, err := OpenBytes(valid)
	if err != nil {
		t.Fatal(err)
	}
	entryStart := int(idx.entryRegionOffset)
	footerStart := len(valid) - footerSize

	tests := []struct {
		name   string
		offset int
	}{
		{"first_entry_hash", entryStart},
		{"first_entry_count", entryStart + hashSize},
		{"middle_entry", entryStart + (footerStart-entryStart)/2},
		{"last_entry", footerStart - 1},
		{"entry_region_hash", footerStart},
		{"ram_index_hash", footerStart + 8},
		{"ram_index_sentinel_low_bit", entryStart - ramIndexEntrySize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := append([]byte(nil), valid...)
			data[tt.offset] ^= 0x01
			idx, err := OpenBytes(data)
			if err != nil {
				return // caught at open
			}
			if err := idx.Verify(); err == nil {
				t.Errorf("Verify did not detect a flipped bit at offset %d", tt.offset)
			}
		})
	}

	t.Run("ram_index_hash_error", func(t *testing.T) {
		data := append([]byte(nil), valid...)
		data[footerStart+8] ^= 0x01
		idx, err := OpenBytes(data)
		if err != nil {
			t.Fatal(err)
		}
		if err := idx.Verify(); !errors.Is(err, kmererrors.ErrChecksumFailed) {
			t.Errorf("Verify error = %v, want ErrChecksumFailed", err)
		}
	})

}

func TestOpenFileTooSmall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.kmx")
	if err := os.WriteFile(path, []byte("KMIX"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); !errors.Is(err, kmererrors.ErrTruncatedFile) {
		t.Errorf("Open error = %v, want ErrTruncatedFile", err)
	}
	if _, err := Open(path + ".missing"); err == nil {
		t.Error("Open of a missing file succeeded")
	}
}
