// Package fasta streams records out of FASTA files, plain or gzipped.
package fasta

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	kmererrors "github.com/tamirms/kmerhash/errors"
)

// maxLine bounds a single line, so unwrapped chromosome-length sequences
// still parse.
const maxLine = 256 << 20

// Record is one FASTA record. ID is the header up to the first blank;
// Seq is the concatenated sequence lines with surrounding space removed.
type Record struct {
	ID  string
	Seq []byte
}

// Stream parses FASTA from r and calls emit once per record, in file
// order. Record.Seq is reused after emit returns; copy it to keep it.
// Returning an error from emit stops the stream with that error.
//
// Cancellation via ctx is checked between lines. Sequence data before the
// first header is an ErrInvalidFasta error.
func Stream(ctx context.Context, r io.Reader, emit func(Record) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)

	var (
		id     string
		inRec  bool
		seq    = make([]byte, 0, 1<<16)
		lineNo int
	)

	flush := func() error {
		if !inRec {
			return nil
		}
		return emit(Record{ID: id, Seq: seq})
	}

	for sc.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return err
		}
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		switch line[0] {
		case '>':
			if err := flush(); err != nil {
				return err
			}
			id, inRec, seq = parseHeaderID(line[1:]), true, seq[:0]
		case ';':
			// old-style comment line
		default:
			if !inRec {
				if len(bytes.TrimSpace(line)) == 0 {
					continue
				}
				return fmt.Errorf("%w: sequence data before first header at line %d", kmererrors.ErrInvalidFasta, lineNo)
			}
			seq = append(seq, bytes.TrimSpace(line)...)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("fasta scan: %w", err)
	}
	return flush()
}

// StreamPath opens path (gzip detected by magic or ".gz", "-" for stdin)
// and streams it through Stream.
func StreamPath(ctx context.Context, path string, emit func(Record) error) error {
	rc, err := openReader(path)
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := Stream(ctx, rc, emit); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func parseHeaderID(hdr []byte) string {
	hdr = bytes.TrimSpace(hdr)
	if i := bytes.IndexAny(hdr, " \t"); i >= 0 {
		return string(hdr[:i])
	}
	return string(hdr)
}
