package binaryfile

import (
	"io"
	"os"
)

// Container is a seekable, truncatable sequence of bytes that backs a File.
// *os.File satisfies it except for Size(), see osFile.
type Container interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
	Truncate(size int64) error
	// Size returns the length in bytes. It doesn't move the cursor.
	Size() (int64, error)
	Sync() error
}

type osFile struct {
	*os.File
}

func (f osFile) Size() (int64, error) {
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

// OSFile returns the *os.File behind a container returned by File.Container(),
// if there is one
func OSFile(c Container) (*os.File, bool) {
	if f, ok := c.(osFile); ok {
		return f.File, true
	}
	return nil, false
}
