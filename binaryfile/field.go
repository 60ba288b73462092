package binaryfile

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"time"
	"unicode/utf16"
)

// ErrFieldOverflow is returned when fields don't fit in a record
var ErrFieldOverflow = errors.New("binaryfile: field overflows record")

// Sizes of fixed-width fields, in bytes
const (
	BoolSize    = 1
	Uint8Size   = 1
	Int16Size   = 2
	Int32Size   = 4
	Int64Size   = 8
	Float32Size = 4
	Float64Size = 8
	TimeSize    = 8
)

// StringSize returns the size in bytes of a string field of n characters.
// Characters are stored as UTF-16 code units.
func StringSize(n int) int {
	return 2 * n
}

// FieldWriter writes fixed-width big-endian fields into a record buffer.
// The first error is remembered and makes subsequent writes no-ops.
//
//	func (productCodec) Encode(buf []byte, p Product) error {
//	    w := binaryfile.NewFieldWriter(buf)
//	    w.Int32(p.Code)
//	    w.String(p.Name, 40)
//	    w.Float64(p.Price)
//	    return w.Err()
//	}
type FieldWriter struct {
	buf []byte
	off int
	err error
}

func NewFieldWriter(buf []byte) *FieldWriter {
	return &FieldWriter{buf: buf}
}

func (w *FieldWriter) next(n int) []byte {
	if w.err != nil {
		return nil
	}
	if w.off+n > len(w.buf) {
		w.err = ErrFieldOverflow
		return nil
	}
	b := w.buf[w.off : w.off+n]
	w.off += n
	return b
}

// Err returns the first error
func (w *FieldWriter) Err() error {
	return w.err
}

// Offset returns the number of bytes written so far
func (w *FieldWriter) Offset() int {
	return w.off
}

// Skip leaves n bytes unchanged
func (w *FieldWriter) Skip(n int) {
	w.next(n)
}

// String writes s as exactly n characters. Longer strings are cut,
// shorter are padded with zeros.
func (w *FieldWriter) String(s string, n int) {
	b := w.next(StringSize(n))
	if b == nil {
		return
	}
	units := utf16.Encode([]rune(s))
	for i := 0; i < n; i++ {
		var c uint16
		if i < len(units) {
			c = units[i]
		}
		binary.BigEndian.PutUint16(b[2*i:], c)
	}
}

func (w *FieldWriter) Bool(v bool) {
	if v {
		w.Uint8(1)
	} else {
		w.Uint8(0)
	}
}

func (w *FieldWriter) Uint8(v uint8) {
	if b := w.next(Uint8Size); b != nil {
		b[0] = v
	}
}

func (w *FieldWriter) Int16(v int16) {
	if b := w.next(Int16Size); b != nil {
		binary.BigEndian.PutUint16(b, uint16(v))
	}
}

func (w *FieldWriter) Int32(v int32) {
	if b := w.next(Int32Size); b != nil {
		binary.BigEndian.PutUint32(b, uint32(v))
	}
}

func (w *FieldWriter) Int64(v int64) {
	if b := w.next(Int64Size); b != nil {
		binary.BigEndian.PutUint64(b, uint64(v))
	}
}

func (w *FieldWriter) Float32(v float32) {
	if b := w.next(Float32Size); b != nil {
		binary.BigEndian.PutUint32(b, math.Float32bits(v))
	}
}

func (w *FieldWriter) Float64(v float64) {
	if b := w.next(Float64Size); b != nil {
		binary.BigEndian.PutUint64(b, math.Float64bits(v))
	}
}

// Time writes t as Unix milliseconds. Zero time is written as 0.
func (w *FieldWriter) Time(t time.Time) {
	var ms int64
	if !t.IsZero() {
		ms = t.UnixMilli()
	}
	w.Int64(ms)
}

// FieldReader is a counterpart of FieldWriter.
// On error, reads return zero values and Err() returns the first error.
type FieldReader struct {
	buf []byte
	off int
	err error
}

func NewFieldReader(buf []byte) *FieldReader {
	return &FieldReader{buf: buf}
}

func (r *FieldReader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.err = ErrFieldOverflow
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *FieldReader) Err() error {
	return r.err
}

func (r *FieldReader) Offset() int {
	return r.off
}

func (r *FieldReader) Skip(n int) {
	r.next(n)
}

// isTrimmed matches control characters and space, other unicode
// spaces are kept
func isTrimmed(r rune) bool {
	return r <= ' '
}

// String reads n characters. Zero characters become spaces and
// the result is trimmed.
func (r *FieldReader) String(n int) string {
	b := r.next(StringSize(n))
	if b == nil {
		return ""
	}
	units := make([]uint16, n)
	for i := range units {
		units[i] = binary.BigEndian.Uint16(b[2*i:])
	}
	s := string(utf16.Decode(units))
	s = strings.ReplaceAll(s, "\x00", " ")
	return strings.TrimFunc(s, isTrimmed)
}

func (r *FieldReader) Bool() bool {
	return r.Uint8() != 0
}

func (r *FieldReader) Uint8() uint8 {
	if b := r.next(Uint8Size); b != nil {
		return b[0]
	}
	return 0
}

func (r *FieldReader) Int16() int16 {
	if b := r.next(Int16Size); b != nil {
		return int16(binary.BigEndian.Uint16(b))
	}
	return 0
}

func (r *FieldReader) Int32() int32 {
	if b := r.next(Int32Size); b != nil {
		return int32(binary.BigEndian.Uint32(b))
	}
	return 0
}

func (r *FieldReader) Int64() int64 {
	if b := r.next(Int64Size); b != nil {
		return int64(binary.BigEndian.Uint64(b))
	}
	return 0
}

func (r *FieldReader) Float32() float32 {
	if b := r.next(Float32Size); b != nil {
		return math.Float32frombits(binary.BigEndian.Uint32(b))
	}
	return 0
}

func (r *FieldReader) Float64() float64 {
	if b := r.next(Float64Size); b != nil {
		return math.Float64frombits(binary.BigEndian.Uint64(b))
	}
	return 0
}

// Time reads a time written by FieldWriter.Time, in UTC
func (r *FieldReader) Time() time.Time {
	ms := r.Int64()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
