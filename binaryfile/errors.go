package binaryfile

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfBounds is returned when a record position is outside
	// of 0..CountRecords(). It's returned before any I/O is done.
	ErrOutOfBounds = errors.New("binaryfile: offset out of bounds")

	// ErrLocked is returned by Open when another handle holds the file lock
	ErrLocked = errors.New("binaryfile: file is locked")

	// ErrReadOnly is returned by write operations on a file opened with ReadOnly
	ErrReadOnly = errors.New("binaryfile: file opened read-only")

	// ErrClosed is returned by operations called after Close
	ErrClosed = errors.New("binaryfile: file already closed")

	// ErrInvalidRecordSize is returned when a codec reports a record size <= 0
	ErrInvalidRecordSize = errors.New("binaryfile: record size must be positive")
)

// Error records a failed operation on the underlying container.
// Bounds errors are not reported as *Error, so errors.As(err, &e)
// tells I/O failures apart from ErrOutOfBounds.
type Error struct {
	Op   string
	Name string
	Err  error
}

func (e *Error) Error() string {
	if e.Name == "" {
		return "binaryfile: " + e.Op + ": " + e.Err.Error()
	}
	return "binaryfile: " + e.Op + " " + e.Name + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func outOfBounds(pos int64, n int64) error {
	return fmt.Errorf("position %d, %d records: %w", pos, n, ErrOutOfBounds)
}
