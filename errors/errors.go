// Package errors defines all exported error sentinels for the kmerhash module.
//
// This is the single source of truth for error values. The root kmerhash
// package, the index and countmin packages and the internal packages all
// import from here, so errors.Is checks work across package boundaries.
package errors

import "errors"

// Input errors
var (
	ErrInvalidK     = errors.New("kmerhash: k-mer length out of range")
	ErrWindowLength = errors.New("kmerhash: window length does not match k")
	ErrInvalidBase  = errors.New("kmerhash: byte is not a valid nucleotide")
	ErrInvalidFasta = errors.New("kmerhash: malformed FASTA input")
)

// Build errors
var (
	ErrBuilderClosed    = errors.New("kmerhash: builder is closed")
	ErrEmptyIndex       = errors.New("kmerhash: cannot build index with zero k-mers")
	ErrTooManyKeys      = errors.New("kmerhash: distinct k-mer count exceeds maximum (2^40)")
	ErrCountSizeInvalid = errors.New("kmerhash: CountSize must be between 1 and 8 bytes")
	ErrInvalidGeometry  = errors.New("kmerhash: invalid sketch or block geometry")
)

// Index errors
var (
	ErrInvalidMagic   = errors.New("kmerhash: invalid magic number")
	ErrInvalidVersion = errors.New("kmerhash: unsupported version")
	ErrChecksumFailed = errors.New("kmerhash: file checksum verification failed")
	ErrTruncatedFile  = errors.New("kmerhash: index file is truncated")
	ErrCorruptedIndex = errors.New("kmerhash: index data is corrupted")
)

// Query errors
var (
	ErrIndexClosed = errors.New("kmerhash: index is closed")
	ErrNotFound    = errors.New("kmerhash: k-mer not found")
)
