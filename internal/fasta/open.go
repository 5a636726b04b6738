package fasta

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"strings"
)

var gzipMagic = []byte{0x1f, 0x8b}

// bufferedReadCloser reads through a bufio.Reader and closes the source.
type bufferedReadCloser struct {
	*bufio.Reader
	src io.Closer
}

func (b *bufferedReadCloser) Close() error { return b.src.Close() }

// gzipReadCloser closes the gzip stream and then the source under it.
type gzipReadCloser struct {
	*gzip.Reader
	src io.Closer
}

func (g *gzipReadCloser) Close() error {
	return errors.Join(g.Reader.Close(), g.src.Close())
}

// openReader opens path for reading, transparently decompressing gzip
// (detected by the 1F 8B magic or a .gz suffix). "-" is stdin.
func openReader(path string) (io.ReadCloser, error) {
	if path == "-" {
		return maybeGunzip(io.NopCloser(os.Stdin), false)
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if fi, err := fh.Stat(); err == nil && fi.Mode().IsRegular() {
		fadviseSequential(int(fh.Fd()), 0, fi.Size())
	}
	return maybeGunzip(fh, strings.HasSuffix(path, ".gz"))
}

// maybeGunzip peeks at the first bytes of rc and decompresses it if they
// are the gzip magic, or unconditionally when force is set. Closing the
// result closes rc. On error rc is closed.
func maybeGunzip(rc io.ReadCloser, force bool) (io.ReadCloser, error) {
	br := bufio.NewReader(rc)
	sig, _ := br.Peek(len(gzipMagic))
	if !force && !bytes.Equal(sig, gzipMagic) {
		return &bufferedReadCloser{Reader: br, src: rc}, nil
	}
	gr, err := gzip.NewReader(br)
	if err != nil {
		return nil, errors.Join(err, rc.Close())
	}
	return &gzipReadCloser{Reader: gr, src: rc}, nil
}
