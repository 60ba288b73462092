package binaryfile

import (
	"fmt"
	"io"
	"iter"
	"os"
)

// File is a file of fixed-size records of type E.
// The binary layout of a record is defined by Codec.
//
// File is not safe for concurrent use: there's a single cursor
// shared by all operations.
type File[E any] struct {
	name  string
	mode  OpenMode
	codec Codec[E]
	// size of the record in bytes
	size int64

	c Container
	// re-used for every read / write
	buf []byte
}

func checkRecordSize[E any](codec Codec[E]) (int, error) {
	if codec == nil {
		return 0, fmt.Errorf("binaryfile: must provide codec")
	}
	n := codec.RecordSize()
	if n <= 0 {
		return 0, ErrInvalidRecordSize
	}
	return n, nil
}

// Open opens a file in a given mode.
// ReadOnly requires the file to exist, other modes create it if needed.
// Fails with ErrLocked if another File has the file open for writing
// (or, for writers, has it open at all).
func Open[E any](name string, mode OpenMode, codec Codec[E]) (*File[E], error) {
	size, err := checkRecordSize(codec)
	if err != nil {
		return nil, err
	}
	if !mode.valid() {
		return nil, fmt.Errorf("binaryfile: invalid open mode %d", int(mode))
	}
	fh, err := os.OpenFile(name, openFlags(mode), 0644)
	if err != nil {
		return nil, &Error{Op: "open", Name: name, Err: err}
	}
	err = lockFile(fh, mode)
	if err != nil {
		fh.Close()
		return nil, &Error{Op: "open", Name: name, Err: err}
	}
	return newFile(name, mode, osFile{fh}, codec, size), nil
}

// New creates a File over an already opened container, in ReadWrite mode
func New[E any](c Container, codec Codec[E]) (*File[E], error) {
	if c == nil {
		return nil, fmt.Errorf("binaryfile: must provide container")
	}
	size, err := checkRecordSize(codec)
	if err != nil {
		return nil, err
	}
	return newFile("", ReadWrite, c, codec, size), nil
}

func newFile[E any](name string, mode OpenMode, c Container, codec Codec[E], size int) *File[E] {
	return &File[E]{
		name:  name,
		mode:  mode,
		codec: codec,
		size:  int64(size),
		c:     c,
		buf:   make([]byte, size),
	}
}

// Name returns the file name given to Open. Empty for New.
func (f *File[E]) Name() string {
	return f.name
}

func (f *File[E]) Mode() OpenMode {
	return f.mode
}

// Container gives direct access to the underlying container.
// Moving its cursor affects Read() and Write().
// Returns nil after Close.
func (f *File[E]) Container() Container {
	return f.c
}

// RecordSize returns the size of a record in bytes
func (f *File[E]) RecordSize() int {
	return int(f.size)
}

func (f *File[E]) ioErr(op string, err error) error {
	return &Error{Op: op, Name: f.name, Err: err}
}

func (f *File[E]) checkWritable() error {
	if f.c == nil {
		return ErrClosed
	}
	if !f.mode.writable() {
		return ErrReadOnly
	}
	return nil
}

// Length returns the size of the file in bytes
func (f *File[E]) Length() (int64, error) {
	if f.c == nil {
		return 0, ErrClosed
	}
	n, err := f.c.Size()
	if err != nil {
		return 0, f.ioErr("size", err)
	}
	return n, nil
}

// CountRecords returns number of records in the file.
// Trailing bytes that don't make a full record are not counted.
func (f *File[E]) CountRecords() (int64, error) {
	n, err := f.Length()
	if err != nil {
		return 0, err
	}
	return n / f.size, nil
}

func (f *File[E]) seek(off int64) error {
	_, err := f.c.Seek(off, io.SeekStart)
	if err != nil {
		return f.ioErr("seek", err)
	}
	return nil
}

// n is the current number of records
func (f *File[E]) seekRecord(pos int64, n int64) error {
	if pos < 0 || pos > n {
		return outOfBounds(pos, n)
	}
	return f.seek(pos * f.size)
}

// SeekRecord positions the cursor at record pos, 0 being the first record.
// pos == CountRecords() is valid and means the end of the file.
func (f *File[E]) SeekRecord(pos int64) error {
	n, err := f.CountRecords()
	if err != nil {
		return err
	}
	return f.seekRecord(pos, n)
}

// SeekLastRecord positions the cursor at the last record.
// Returns ErrOutOfBounds if the file is empty.
func (f *File[E]) SeekLastRecord() error {
	n, err := f.CountRecords()
	if err != nil {
		return err
	}
	return f.seekRecord(n-1, n)
}

// Read reads the record at the cursor
func (f *File[E]) Read() (E, error) {
	var zero E
	if f.c == nil {
		return zero, ErrClosed
	}
	_, err := io.ReadFull(f.c, f.buf)
	if err != nil {
		return zero, f.ioErr("read", err)
	}
	e, err := f.codec.Decode(f.buf)
	if err != nil {
		return zero, fmt.Errorf("binaryfile: decode record: %w", err)
	}
	return e, nil
}

// Write writes the record at the cursor, over-writing what's there
func (f *File[E]) Write(e E) error {
	if err := f.checkWritable(); err != nil {
		return err
	}
	clear(f.buf)
	err := f.codec.Encode(f.buf, e)
	if err != nil {
		return fmt.Errorf("binaryfile: encode record: %w", err)
	}
	_, err = f.c.Write(f.buf)
	if err != nil {
		return f.ioErr("write", err)
	}
	return nil
}

// ReadRecord reads the record at position pos
func (f *File[E]) ReadRecord(pos int64) (E, error) {
	if err := f.SeekRecord(pos); err != nil {
		var zero E
		return zero, err
	}
	return f.Read()
}

// WriteAtEnd appends a record.
// If the file ends with a partial record, it gets over-written.
func (f *File[E]) WriteAtEnd(e E) error {
	if err := f.checkWritable(); err != nil {
		return err
	}
	n, err := f.CountRecords()
	if err != nil {
		return err
	}
	if err = f.seek(n * f.size); err != nil {
		return err
	}
	return f.Write(e)
}

// Update over-writes the record at position pos
func (f *File[E]) Update(pos int64, e E) error {
	if err := f.checkWritable(); err != nil {
		return err
	}
	if err := f.SeekRecord(pos); err != nil {
		return err
	}
	return f.Write(e)
}

// ReadAll reads all records, in the order they are in the file
func (f *File[E]) ReadAll() ([]E, error) {
	n, err := f.CountRecords()
	if err != nil {
		return nil, err
	}
	if err = f.seekRecord(0, n); err != nil {
		return nil, err
	}
	res := make([]E, 0, n)
	for i := int64(0); i < n; i++ {
		e, err := f.Read()
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, nil
}

// All returns an iterator over (position, record) pairs.
// Unlike ReadAll it doesn't load the whole file in memory.
// Call the returned error function after iteration to check for errors.
func (f *File[E]) All() (iter.Seq2[int64, E], func() error) {
	var iterErr error

	seq := func(yield func(int64, E) bool) {
		iterErr = nil
		n, err := f.CountRecords()
		if err != nil {
			iterErr = err
			return
		}
		for i := int64(0); i < n; i++ {
			// seek every time in case the caller moved the cursor
			e, err := f.ReadRecord(i)
			if err != nil {
				iterErr = err
				return
			}
			if !yield(i, e) {
				return
			}
		}
	}
	return seq, func() error { return iterErr }
}

// ReadLastOrNull reads the last record.
// Returns false if there are no records or reading failed.
func (f *File[E]) ReadLastOrNull() (E, bool) {
	var zero E
	if err := f.SeekLastRecord(); err != nil {
		return zero, false
	}
	e, err := f.Read()
	if err != nil {
		return zero, false
	}
	return e, true
}

func (f *File[E]) truncate(size int64) error {
	err := f.c.Truncate(size)
	if err != nil {
		return f.ioErr("truncate", err)
	}
	// O_DSYNC / O_SYNC don't cover ftruncate
	if f.mode.synced() {
		if err = f.c.Sync(); err != nil {
			return f.ioErr("sync", err)
		}
	}
	return nil
}

// RemoveRecord removes the record at position pos by moving the last
// record in its place and shrinking the file by one record.
//
// It takes constant time but does NOT preserve the order of records:
// after removing, the record that was last is at position pos.
func (f *File[E]) RemoveRecord(pos int64) error {
	if err := f.checkWritable(); err != nil {
		return err
	}
	n, err := f.CountRecords()
	if err != nil {
		return err
	}
	if pos < 0 || pos >= n {
		return outOfBounds(pos, n)
	}
	last := n - 1
	if pos != last {
		// copy raw bytes, no need to decode / encode
		if err = f.seekRecord(last, n); err != nil {
			return err
		}
		if _, err = io.ReadFull(f.c, f.buf); err != nil {
			return f.ioErr("read", err)
		}
		if err = f.seekRecord(pos, n); err != nil {
			return err
		}
		if _, err = f.c.Write(f.buf); err != nil {
			return f.ioErr("write", err)
		}
	}
	// also drops a trailing partial record, if any
	return f.truncate(last * f.size)
}

// Clear removes all records
func (f *File[E]) Clear() error {
	if err := f.checkWritable(); err != nil {
		return err
	}
	return f.truncate(0)
}

// Sync commits the content of the file to disk
func (f *File[E]) Sync() error {
	if f.c == nil {
		return ErrClosed
	}
	if err := f.c.Sync(); err != nil {
		return f.ioErr("sync", err)
	}
	return nil
}

// Close closes the file. Can be called multiple times to make it
// easier to use via defer
func (f *File[E]) Close() error {
	if f == nil || f.c == nil {
		return nil
	}
	c := f.c
	f.c = nil
	if err := c.Close(); err != nil {
		return f.ioErr("close", err)
	}
	return nil
}
