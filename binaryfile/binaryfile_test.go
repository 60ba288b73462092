package binaryfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert"
)

type product struct {
	Code  int32
	Name  string
	Price float64
}

const productNameLen = 20

type productCodec struct{}

func (productCodec) RecordSize() int {
	return Int32Size + StringSize(productNameLen) + Float64Size
}

func (productCodec) Encode(buf []byte, p product) error {
	w := NewFieldWriter(buf)
	w.Int32(p.Code)
	w.String(p.Name, productNameLen)
	w.Float64(p.Price)
	return w.Err()
}

func (productCodec) Decode(buf []byte) (product, error) {
	r := NewFieldReader(buf)
	p := product{
		Code:  r.Int32(),
		Name:  r.String(productNameLen),
		Price: r.Float64(),
	}
	return p, r.Err()
}

func genProducts(n int) []product {
	res := make([]product, n)
	for i := range res {
		res[i] = product{
			Code:  int32(i + 1),
			Name:  fmt.Sprintf("product %d", i+1),
			Price: float64(i) * 1.25,
		}
	}
	return res
}

func openProducts(t *testing.T, mode OpenMode) *File[product] {
	path := filepath.Join(t.TempDir(), "products.dat")
	f, err := Open(path, mode, productCodec{})
	assert.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func mustCount[E any](t *testing.T, f *File[E]) int64 {
	n, err := f.CountRecords()
	assert.NoError(t, err)
	return n
}

func appendAll[E any](t *testing.T, f *File[E], recs []E) {
	for _, r := range recs {
		err := f.WriteAtEnd(r)
		assert.NoError(t, err)
	}
}

func rec(s string) []byte {
	return []byte(fmt.Sprintf("%-10s", s))
}

func newMemRecords(t *testing.T) *File[[]byte] {
	f, err := New(NewMemory(nil), Raw(10))
	assert.NoError(t, err)
	return f
}

func assertOutOfBounds(t *testing.T, err error) {
	if !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
	var ioErr *Error
	if errors.As(err, &ioErr) {
		t.Fatalf("bounds error shouldn't be an I/O error: %v", err)
	}
}

func TestWriteAndReadProducts(t *testing.T) {
	f := openProducts(t, ReadWrite)
	products := genProducts(50)
	appendAll(t, f, products)

	assert.Equal(t, int64(50), mustCount(t, f))
	n, err := f.Length()
	assert.NoError(t, err)
	assert.Equal(t, int64(50*f.RecordSize()), n)

	for i, exp := range products {
		got, err := f.ReadRecord(int64(i))
		assert.NoError(t, err)
		assert.Equal(t, exp, got)
	}

	all, err := f.ReadAll()
	assert.NoError(t, err)
	assert.Equal(t, products, all)

	// ReadAll can be called again
	all, err = f.ReadAll()
	assert.NoError(t, err)
	assert.Equal(t, len(products), len(all))
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.dat")
	f, err := Open(path, ReadWriteDataSync, productCodec{})
	assert.NoError(t, err)
	products := genProducts(10)
	appendAll(t, f, products)
	assert.NoError(t, f.Close())

	f, err = Open(path, ReadOnly, productCodec{})
	assert.NoError(t, err)
	defer f.Close()
	assert.Equal(t, path, f.Name())
	assert.Equal(t, ReadOnly, f.Mode())
	all, err := f.ReadAll()
	assert.NoError(t, err)
	assert.Equal(t, products, all)
}

func TestUpdate(t *testing.T) {
	f := openProducts(t, ReadWriteSync)
	appendAll(t, f, genProducts(5))

	p := product{Code: 99, Name: "updated", Price: 10}
	err := f.Update(2, p)
	assert.NoError(t, err)
	got, err := f.ReadRecord(2)
	assert.NoError(t, err)
	assert.Equal(t, p, got)
	assert.Equal(t, int64(5), mustCount(t, f))

	// update at count appends
	err = f.Update(5, p)
	assert.NoError(t, err)
	assert.Equal(t, int64(6), mustCount(t, f))

	err = f.Update(7, p)
	assertOutOfBounds(t, err)
}

func TestWriteAtEnd(t *testing.T) {
	f := newMemRecords(t)
	for i := 0; i < 20; i++ {
		before := mustCount(t, f)
		r := rec(fmt.Sprintf("r%d", i))
		err := f.WriteAtEnd(r)
		assert.NoError(t, err)
		after := mustCount(t, f)
		assert.Equal(t, before+1, after)
		got, err := f.ReadRecord(after - 1)
		assert.NoError(t, err)
		assert.Equal(t, r, got)
	}
}

func TestWriteAtEndAfterPartialRecord(t *testing.T) {
	m := NewMemory([]byte("0123456789abc"))
	f, err := New(m, Raw(10))
	assert.NoError(t, err)
	assert.Equal(t, int64(1), mustCount(t, f))

	err = f.WriteAtEnd(rec("B"))
	assert.NoError(t, err)
	assert.Equal(t, 20, len(m.Bytes()))
	got, err := f.ReadRecord(1)
	assert.NoError(t, err)
	assert.Equal(t, rec("B"), got)
}

func TestCountRecordsIgnoresPartialRecord(t *testing.T) {
	for size := 0; size < 35; size++ {
		f, err := New(NewMemory(make([]byte, size)), Raw(10))
		assert.NoError(t, err)
		assert.Equal(t, int64(size/10), mustCount(t, f))
	}
}

func TestRemoveRecordScenario(t *testing.T) {
	f := newMemRecords(t)
	appendAll(t, f, [][]byte{rec("A"), rec("B"), rec("C")})
	assert.Equal(t, int64(3), mustCount(t, f))

	err := f.RemoveRecord(0)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), mustCount(t, f))

	got, err := f.ReadRecord(0)
	assert.NoError(t, err)
	assert.Equal(t, rec("C"), got)
	got, err = f.ReadRecord(1)
	assert.NoError(t, err)
	assert.Equal(t, rec("B"), got)
}

func TestRemoveRecord(t *testing.T) {
	var recs [][]byte
	for i := 0; i < 10; i++ {
		recs = append(recs, rec(fmt.Sprintf("r%d", i)))
	}

	// remove each position of a fresh file and check the rest
	for pos := 0; pos < len(recs); pos++ {
		f := newMemRecords(t)
		appendAll(t, f, recs)
		err := f.RemoveRecord(int64(pos))
		assert.NoError(t, err)

		all, err := f.ReadAll()
		assert.NoError(t, err)
		assert.Equal(t, len(recs)-1, len(all))
		last := len(recs) - 1
		for i, got := range all {
			exp := recs[i]
			if i == pos {
				exp = recs[last]
			}
			assert.Equal(t, exp, got, "pos: %d, i: %d", pos, i)
		}
	}
}

func TestRemoveLastRecord(t *testing.T) {
	f := newMemRecords(t)
	appendAll(t, f, [][]byte{rec("A"), rec("B")})
	err := f.RemoveRecord(1)
	assert.NoError(t, err)
	all, err := f.ReadAll()
	assert.NoError(t, err)
	assert.Equal(t, [][]byte{rec("A")}, all)

	err = f.RemoveRecord(0)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), mustCount(t, f))

	err = f.RemoveRecord(0)
	assertOutOfBounds(t, err)
}

func TestRemoveRecordOutOfBounds(t *testing.T) {
	f := newMemRecords(t)
	appendAll(t, f, [][]byte{rec("A"), rec("B")})
	assertOutOfBounds(t, f.RemoveRecord(2))
	assertOutOfBounds(t, f.RemoveRecord(-1))
	assert.Equal(t, int64(2), mustCount(t, f))
}

func TestRemoveRecordDropsPartialRecord(t *testing.T) {
	m := NewMemory(nil)
	f, err := New(m, Raw(10))
	assert.NoError(t, err)
	appendAll(t, f, [][]byte{rec("A"), rec("B")})
	_, err = m.Write([]byte("xyz"))
	assert.NoError(t, err)

	err = f.RemoveRecord(0)
	assert.NoError(t, err)
	assert.Equal(t, 10, len(m.Bytes()))
	got, err := f.ReadRecord(0)
	assert.NoError(t, err)
	assert.Equal(t, rec("B"), got)
}

func TestClear(t *testing.T) {
	f := openProducts(t, ReadWriteDataSync)
	appendAll(t, f, genProducts(7))
	err := f.Clear()
	assert.NoError(t, err)
	assert.Equal(t, int64(0), mustCount(t, f))

	err = f.SeekLastRecord()
	assertOutOfBounds(t, err)

	all, err := f.ReadAll()
	assert.NoError(t, err)
	assert.Equal(t, 0, len(all))
}

func TestSeekRecord(t *testing.T) {
	f := newMemRecords(t)
	appendAll(t, f, [][]byte{rec("A"), rec("B"), rec("C")})
	n := mustCount(t, f)

	// one past the end is the append position
	err := f.SeekRecord(n)
	assert.NoError(t, err)
	err = f.Write(rec("D"))
	assert.NoError(t, err)
	assert.Equal(t, n+1, mustCount(t, f))

	assertOutOfBounds(t, f.SeekRecord(n+2))
	assertOutOfBounds(t, f.SeekRecord(-1))

	err = f.SeekLastRecord()
	assert.NoError(t, err)
	got, err := f.Read()
	assert.NoError(t, err)
	assert.Equal(t, rec("D"), got)

	err = f.SeekRecord(1)
	assert.NoError(t, err)
	got, err = f.Read()
	assert.NoError(t, err)
	assert.Equal(t, rec("B"), got)
	// cursor moved to the next record
	got, err = f.Read()
	assert.NoError(t, err)
	assert.Equal(t, rec("C"), got)
}

func TestReadAtEndIsIOError(t *testing.T) {
	f := newMemRecords(t)
	appendAll(t, f, [][]byte{rec("A")})
	err := f.SeekRecord(1)
	assert.NoError(t, err)
	_, err = f.Read()
	var ioErr *Error
	assert.True(t, errors.As(err, &ioErr), "got %v", err)
	assert.Equal(t, "read", ioErr.Op)
}

func TestReadLastOrNull(t *testing.T) {
	f := newMemRecords(t)
	_, ok := f.ReadLastOrNull()
	assert.False(t, ok)

	appendAll(t, f, [][]byte{rec("A"), rec("B")})
	got, ok := f.ReadLastOrNull()
	assert.True(t, ok)
	assert.Equal(t, rec("B"), got)

	assert.NoError(t, f.Close())
	_, ok = f.ReadLastOrNull()
	assert.False(t, ok)
}

func TestAll(t *testing.T) {
	f := openProducts(t, ReadWrite)
	products := genProducts(25)
	appendAll(t, f, products)

	seq, errFn := f.All()
	n := 0
	for pos, p := range seq {
		assert.Equal(t, int64(n), pos)
		assert.Equal(t, products[n], p)
		// moving the cursor mid-iteration is fine
		_, err := f.ReadRecord(0)
		assert.NoError(t, err)
		n++
	}
	assert.NoError(t, errFn())
	assert.Equal(t, len(products), n)

	// stop early
	n = 0
	for range seq {
		n++
		if n == 3 {
			break
		}
	}
	assert.NoError(t, errFn())
	assert.Equal(t, 3, n)
}

func TestReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.dat")
	_, err := Open(path, ReadOnly, productCodec{})
	var ioErr *Error
	assert.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "open", ioErr.Op)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	f, err := Open(path, ReadWrite, productCodec{})
	assert.NoError(t, err)
	appendAll(t, f, genProducts(3))
	assert.NoError(t, f.Close())

	f, err = Open(path, ReadOnly, productCodec{})
	assert.NoError(t, err)
	defer f.Close()
	p := product{Code: 1}
	assert.Equal(t, ErrReadOnly, f.Write(p))
	assert.Equal(t, ErrReadOnly, f.WriteAtEnd(p))
	assert.Equal(t, ErrReadOnly, f.Update(0, p))
	assert.Equal(t, ErrReadOnly, f.RemoveRecord(0))
	assert.Equal(t, ErrReadOnly, f.Clear())
	assert.Equal(t, int64(3), mustCount(t, f))
}

func TestClose(t *testing.T) {
	f := openProducts(t, ReadWrite)
	appendAll(t, f, genProducts(2))
	assert.NoError(t, f.Close())
	// second close is a no-op
	assert.NoError(t, f.Close())
	assert.Nil(t, f.Container())

	_, err := f.CountRecords()
	assert.Equal(t, ErrClosed, err)
	_, err = f.Read()
	assert.Equal(t, ErrClosed, err)
	assert.Equal(t, ErrClosed, f.WriteAtEnd(product{}))
	assert.Equal(t, ErrClosed, f.Sync())

	var nilFile *File[product]
	assert.NoError(t, nilFile.Close())
}

func TestContainer(t *testing.T) {
	f := openProducts(t, ReadWrite)
	fh, ok := OSFile(f.Container())
	assert.True(t, ok)
	assert.Equal(t, f.Name(), fh.Name())

	_, ok = OSFile(NewMemory(nil))
	assert.False(t, ok)
}

type badCodec struct {
	size int
}

func (c badCodec) RecordSize() int { return c.size }

func (c badCodec) Encode(buf []byte, e int) error { return errors.New("can't encode") }

func (c badCodec) Decode(buf []byte) (int, error) { return 0, errors.New("can't decode") }

func TestInvalidCodec(t *testing.T) {
	_, err := New[int](NewMemory(nil), badCodec{size: 0})
	assert.Equal(t, ErrInvalidRecordSize, err)

	_, err = New[int](NewMemory(nil), nil)
	assert.Error(t, err)

	f, err := New[int](NewMemory(make([]byte, 8)), badCodec{size: 4})
	assert.NoError(t, err)
	err = f.WriteAtEnd(1)
	assert.Error(t, err)
	assert.Equal(t, int64(2), mustCount(t, f))
	_, err = f.ReadRecord(0)
	assert.Error(t, err)
}

func TestRawCodecTooLong(t *testing.T) {
	f := newMemRecords(t)
	err := f.WriteAtEnd([]byte("this is longer than 10"))
	assert.Error(t, err)
	// shorter records are padded
	err = f.WriteAtEnd([]byte("abc"))
	assert.NoError(t, err)
	got, err := f.ReadRecord(0)
	assert.NoError(t, err)
	assert.Equal(t, []byte("abc\x00\x00\x00\x00\x00\x00\x00"), got)
}

func TestOpenModeString(t *testing.T) {
	for _, m := range []OpenMode{ReadOnly, ReadWrite, ReadWriteDataSync, ReadWriteSync} {
		m2, err := ParseOpenMode(m.String())
		assert.NoError(t, err)
		assert.Equal(t, m, m2)
	}
	_, err := ParseOpenMode("w")
	assert.Error(t, err)
	assert.Equal(t, "OpenMode(7)", OpenMode(7).String())

	_, err = Open(filepath.Join(t.TempDir(), "x"), OpenMode(7), productCodec{})
	assert.Error(t, err)
}
