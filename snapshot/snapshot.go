// Package snapshot saves the content of a record file to a (compressed)
// snapshot file and restores it.
//
// Compression is picked from the extension of the snapshot file:
// ".zst" or ".zstd" for zstd, ".br" for brotli, ".gz" for gzip.
// Any other extension means no compression.
package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/tsitoo/common/atomicfile"
	"github.com/tsitoo/common/binaryfile"
)

// ErrPartialRecord is returned by Import when the snapshot size is not
// a multiple of the record size
var ErrPartialRecord = errors.New("snapshot: size is not a multiple of record size")

func getErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Compression returns the name of compression used for a snapshot at path:
// "zstd", "brotli", "gzip" or "" for no compression
func Compression(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".zst", ".zstd":
		return "zstd"
	case ".br":
		return "brotli"
	case ".gz":
		return "gzip"
	}
	return ""
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}

func newWriter(path string, w io.Writer) (io.WriteCloser, error) {
	switch Compression(path) {
	case "zstd":
		// SpeedBestCompression is much slower and not much better
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	case "brotli":
		return brotli.NewWriterLevel(w, brotli.DefaultCompression), nil
	case "gzip":
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	}
	return nopWriteCloser{w}, nil
}

func newReader(path string, r io.Reader) (io.ReadCloser, error) {
	switch Compression(path) {
	case "zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	case "brotli":
		return io.NopCloser(brotli.NewReader(r)), nil
	case "gzip":
		return gzip.NewReader(r)
	}
	return io.NopCloser(r), nil
}

// Export writes the whole content of c to a snapshot file dst.
// dst is written atomically: if Export fails, dst is not changed.
// The cursor of c is restored. Returns the number of uncompressed bytes.
func Export(dst string, c binaryfile.Container) (n int64, err error) {
	pos, err := c.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	defer func() {
		if _, errSeek := c.Seek(pos, io.SeekStart); errSeek != nil && err == nil {
			n, err = 0, fmt.Errorf("snapshot: restore position after export: %w", errSeek)
		}
	}()

	if _, err = c.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	err = atomicfile.WriteFile(dst, func(w io.Writer) error {
		cw, err := newWriter(dst, w)
		if err != nil {
			return err
		}
		n, err = io.Copy(cw, c)
		err2 := cw.Close()
		return getErr(err, err2)
	})
	if err != nil {
		return 0, fmt.Errorf("snapshot: export to '%s' failed: %w", dst, err)
	}
	return n, nil
}

// ReadFile returns uncompressed content of a snapshot
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r, err := newReader(path, f)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Import replaces the content of c with the content of snapshot src.
// The snapshot is validated before c is modified.
// Returns the number of uncompressed bytes.
func Import(src string, c binaryfile.Container, recordSize int) (int64, error) {
	if recordSize <= 0 {
		return 0, binaryfile.ErrInvalidRecordSize
	}
	d, err := ReadFile(src)
	if err != nil {
		return 0, fmt.Errorf("snapshot: import from '%s' failed: %w", src, err)
	}
	if len(d)%recordSize != 0 {
		return 0, fmt.Errorf("%w: '%s' is %d bytes, record size is %d", ErrPartialRecord, src, len(d), recordSize)
	}
	// write first, truncate after: a failed write doesn't wipe the content
	if _, err = c.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("snapshot: import from '%s' failed: %w", src, err)
	}
	if _, err = c.Write(d); err != nil {
		return 0, fmt.Errorf("snapshot: import from '%s' failed: %w", src, err)
	}
	if err = c.Truncate(int64(len(d))); err != nil {
		return 0, fmt.Errorf("snapshot: import from '%s' failed: %w", src, err)
	}
	if err = c.Sync(); err != nil {
		return 0, fmt.Errorf("snapshot: import from '%s' failed: %w", src, err)
	}
	return int64(len(d)), nil
}

// ExportFile is Export for an open record file
func ExportFile[E any](dst string, f *binaryfile.File[E]) (int64, error) {
	c := f.Container()
	if c == nil {
		return 0, binaryfile.ErrClosed
	}
	return Export(dst, c)
}

// ImportFile is Import for an open record file
func ImportFile[E any](src string, f *binaryfile.File[E]) (int64, error) {
	c := f.Container()
	if c == nil {
		return 0, binaryfile.ErrClosed
	}
	if f.Mode() == binaryfile.ReadOnly {
		return 0, binaryfile.ErrReadOnly
	}
	return Import(src, c, f.RecordSize())
}
