//go:build !linux && !darwin

package index

import "os"

// preallocate sets the file length. Disk blocks may not be reserved.
func preallocate(file *os.File, size int64) error {
	return file.Truncate(size)
}

func prefaultRegion(data []byte) {}

func adviseRandom(data []byte) {}
