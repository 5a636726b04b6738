//go:build !linux

package fasta

func fadviseSequential(fd int, offset, length int64) {}
