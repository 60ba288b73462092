package binaryfile

import (
	"errors"
	"io"
	"os"
)

var errNegativePosition = errors.New("negative position")

// Memory is a Container backed by a byte slice.
// Useful for tests and for building a file in memory before
// saving it with snapshot.Export.
type Memory struct {
	data   []byte
	off    int64
	closed bool
}

// ensure we implement desired interface
var _ Container = &Memory{}

// NewMemory creates a Memory container. It takes ownership of d.
func NewMemory(d []byte) *Memory {
	return &Memory{
		data: d,
	}
}

// Bytes returns the current content. Valid until next modification.
func (m *Memory) Bytes() []byte {
	return m.data
}

func (m *Memory) Read(b []byte) (int, error) {
	if m.closed {
		return 0, os.ErrClosed
	}
	if m.off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(b, m.data[m.off:])
	m.off += int64(n)
	return n, nil
}

// Write writes at the cursor, growing the data as needed.
// Writing past the end fills the gap with zeros, like a file.
func (m *Memory) Write(b []byte) (int, error) {
	if m.closed {
		return 0, os.ErrClosed
	}
	end := m.off + int64(len(b))
	if end > int64(len(m.data)) {
		m.grow(end)
	}
	n := copy(m.data[m.off:], b)
	m.off += int64(n)
	return n, nil
}

func (m *Memory) grow(size int64) {
	if size <= int64(cap(m.data)) {
		n := len(m.data)
		m.data = m.data[:size]
		clear(m.data[n:])
		return
	}
	d := make([]byte, size, size*2)
	copy(d, m.data)
	m.data = d
}

func (m *Memory) Seek(offset int64, whence int) (int64, error) {
	if m.closed {
		return 0, os.ErrClosed
	}
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = m.off + offset
	case io.SeekEnd:
		abs = int64(len(m.data)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errNegativePosition
	}
	m.off = abs
	return abs, nil
}

func (m *Memory) Truncate(size int64) error {
	if m.closed {
		return os.ErrClosed
	}
	if size < 0 {
		return errNegativePosition
	}
	if size > int64(len(m.data)) {
		m.grow(size)
		return nil
	}
	m.data = m.data[:size]
	return nil
}

func (m *Memory) Size() (int64, error) {
	if m.closed {
		return 0, os.ErrClosed
	}
	return int64(len(m.data)), nil
}

func (m *Memory) Sync() error {
	if m.closed {
		return os.ErrClosed
	}
	return nil
}

// Close marks the container closed. Data stays available via Bytes().
func (m *Memory) Close() error {
	if m.closed {
		return os.ErrClosed
	}
	m.closed = true
	return nil
}
