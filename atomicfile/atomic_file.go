package atomicfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

var (
	// ErrCancelled is returned by Close() after Cancel()
	ErrCancelled = errors.New("atomicfile: cancelled")

	_ io.WriteCloser = &File{}
)

// File writes to a temporary file next to the destination and
// renames it over the destination in Close(). If anything fails,
// the temporary file is removed and the destination is left untouched.
type File struct {
	dstPath string
	dir     string
	tmp     *os.File
	// first error, returned by all subsequent calls
	err error

	tmpPath string
}

// New creates a File that will become path after a successful Close().
// The directory of path must exist.
func New(path string) (*File, error) {
	dir, name := filepath.Split(path)
	if name == "" {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrInvalid}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(dir, name+".tmp*")
	if err != nil {
		return nil, err
	}
	return &File{
		dstPath: path,
		dir:     dir,
		tmp:     tmp,
		tmpPath: tmp.Name(),
	}, nil
}

func (f *File) fail(err error) error {
	if err == nil {
		return nil
	}
	if f.err == nil {
		f.err = err
	}
	_ = f.Close()
	return err
}

func (f *File) Write(d []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := f.tmp.Write(d)
	return n, f.fail(err)
}

// ReadFrom lets io.Copy write straight into the temporary file
func (f *File) ReadFrom(r io.Reader) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := io.Copy(f.tmp, r)
	return n, f.fail(err)
}

func (f *File) closed() bool {
	return f.tmp == nil
}

// Cancel abandons the write. The destination is not created or changed.
// Use with defer to clean up on early returns and panics.
// After Close() it's a no-op.
func (f *File) Cancel() {
	if f == nil || f.closed() {
		return
	}
	f.err = ErrCancelled
	_ = f.Close()
}

// Close commits the file. Can be called multiple times,
// always returns the first error.
func (f *File) Close() error {
	if f.closed() {
		return f.err
	}
	tmp := f.tmp
	f.tmp = nil

	errSync := tmp.Sync()
	errClose := tmp.Close()

	renamed := false
	defer func() {
		if !renamed {
			_ = os.Remove(f.tmpPath)
		}
	}()

	if f.err != nil {
		return f.err
	}
	err := errSync
	if err == nil {
		err = errClose
	}
	if err == nil {
		err = os.Rename(f.tmpPath, f.dstPath)
		renamed = err == nil
	}
	if renamed {
		syncDir(f.dir)
	}
	f.err = err
	return err
}

// errors are ignored, this is extra protection for the rename
func syncDir(dir string) {
	d, _ := os.Open(dir)
	if d != nil {
		_ = d.Sync()
		_ = d.Close()
	}
}

// WriteFile atomically replaces path with whatever fn writes
func WriteFile(path string, fn func(w io.Writer) error) error {
	f, err := New(path)
	if err != nil {
		return err
	}
	defer f.Cancel()
	if err = fn(f); err != nil {
		return err
	}
	return f.Close()
}
