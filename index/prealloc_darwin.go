//go:build darwin

package index

import (
	"os"

	"golang.org/x/sys/unix"
)

// preallocate reserves size bytes for file with F_PREALLOCATE and sets its
// length.
func preallocate(file *os.File, size int64) error {
	fst := unix.Fstore_t{
		Flags:   unix.F_ALLOCATEALL,
		Posmode: unix.F_PEOFPOSMODE,
		Length:  size,
	}
	_ = unix.FcntlFstore(file.Fd(), unix.F_PREALLOCATE, &fst)
	return unix.Ftruncate(int(file.Fd()), size)
}

func prefaultRegion(data []byte) {}

func adviseRandom(data []byte) {
	if len(data) > 0 {
		_ = unix.Madvise(data, unix.MADV_RANDOM)
	}
}
