package binaryfile

import (
	"testing"
	"time"

	"github.com/alecthomas/assert"
)

func TestFieldRoundtrip(t *testing.T) {
	size := BoolSize + Uint8Size + Int16Size + Int32Size + Int64Size + Float32Size + Float64Size + TimeSize + StringSize(8)
	buf := make([]byte, size)
	tm := time.Date(2021, 3, 4, 5, 6, 7, 8_000_000, time.UTC)

	w := NewFieldWriter(buf)
	w.Bool(true)
	w.Uint8(200)
	w.Int16(-300)
	w.Int32(-70000)
	w.Int64(1 << 40)
	w.Float32(1.5)
	w.Float64(-2.25)
	w.Time(tm)
	w.String("zażółć", 8)
	assert.NoError(t, w.Err())
	assert.Equal(t, size, w.Offset())

	r := NewFieldReader(buf)
	assert.True(t, r.Bool())
	assert.Equal(t, uint8(200), r.Uint8())
	assert.Equal(t, int16(-300), r.Int16())
	assert.Equal(t, int32(-70000), r.Int32())
	assert.Equal(t, int64(1<<40), r.Int64())
	assert.Equal(t, float32(1.5), r.Float32())
	assert.Equal(t, -2.25, r.Float64())
	assert.True(t, tm.Equal(r.Time()))
	assert.Equal(t, "zażółć", r.String(8))
	assert.NoError(t, r.Err())
}

func TestFieldStringLayout(t *testing.T) {
	buf := make([]byte, StringSize(4))
	w := NewFieldWriter(buf)
	w.String("ab", 4)
	// UTF-16 big-endian, zero padded
	assert.Equal(t, []byte{0, 'a', 0, 'b', 0, 0, 0, 0}, buf)

	w = NewFieldWriter(buf)
	w.String("abcdef", 4)
	assert.Equal(t, []byte{0, 'a', 0, 'b', 0, 'c', 0, 'd'}, buf)
	r := NewFieldReader(buf)
	assert.Equal(t, "abcd", r.String(4))

	tests := []struct {
		s   string
		exp string
	}{
		{"", ""},
		{" pen", "pen"},
		{"  pen  ", "pe"},
		{"a", "a"},
		{"\x01ab\t", "ab"},
		{"\u00a0ab", "\u00a0ab"},
		{"ab\u2000", "ab\u2000"},
	}
	for _, test := range tests {
		clear(buf)
		NewFieldWriter(buf).String(test.s, 4)
		got := NewFieldReader(buf).String(4)
		assert.Equal(t, test.exp, got, "%q", test.s)
	}
}

func TestFieldNulInsideString(t *testing.T) {
	buf := []byte{0, 'a', 0, 0, 0, 'b', 0, 0}
	r := NewFieldReader(buf)
	assert.Equal(t, "a b", r.String(4))
}

func TestFieldOverflow(t *testing.T) {
	buf := make([]byte, 6)
	w := NewFieldWriter(buf)
	w.Int32(1)
	w.Int32(2)
	assert.Equal(t, ErrFieldOverflow, w.Err())
	// sticky: further writes are ignored
	w.Uint8(3)
	assert.Equal(t, 4, w.Offset())
	assert.Equal(t, []byte{0, 0, 0, 1, 0, 0}, buf)

	r := NewFieldReader(buf)
	r.Skip(4)
	assert.Equal(t, int64(0), r.Int64())
	assert.Equal(t, ErrFieldOverflow, r.Err())
	assert.Equal(t, "", r.String(1))
}

func TestFieldZeroTime(t *testing.T) {
	buf := make([]byte, TimeSize)
	NewFieldWriter(buf).Time(time.Time{})
	assert.Equal(t, make([]byte, TimeSize), buf)
	assert.True(t, NewFieldReader(buf).Time().IsZero())
}
