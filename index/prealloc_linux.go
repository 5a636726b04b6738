//go:build linux

package index

import (
	"os"

	"golang.org/x/sys/unix"
)

// madvPopulateWrite is MADV_POPULATE_WRITE (Linux 5.14+).
const madvPopulateWrite = 23

// preallocate reserves size bytes for file and sets its length.
// Filesystems without fallocate support (NFS, tmpfs on old kernels) fall
// back to a plain ftruncate.
func preallocate(file *os.File, size int64) error {
	fd := int(file.Fd())
	_ = unix.Fallocate(fd, 0, 0, size)
	return unix.Ftruncate(fd, size)
}

// prefaultRegion populates the pages of data for writing. Best-effort:
// older kernels return EINVAL.
func prefaultRegion(data []byte) {
	if len(data) > 0 {
		_ = unix.Madvise(data, madvPopulateWrite)
	}
}

// adviseRandom tells the kernel lookups into data are random, disabling
// readahead on the entry region.
func adviseRandom(data []byte) {
	if len(data) > 0 {
		_ = unix.Madvise(data, unix.MADV_RANDOM)
	}
}
