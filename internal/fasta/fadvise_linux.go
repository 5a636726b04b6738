//go:build linux

package fasta

import "golang.org/x/sys/unix"

// fadviseSequential doubles readahead on the input. Best-effort.
func fadviseSequential(fd int, offset, length int64) {
	_ = unix.Fadvise(fd, offset, length, unix.FADV_SEQUENTIAL)
}
