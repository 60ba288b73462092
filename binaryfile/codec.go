package binaryfile

import "fmt"

// Codec converts between a record and its fixed-size binary form.
//
// buf passed to Encode and Decode is always RecordSize() bytes.
// Encode gets a zeroed buf. buf is re-used by File, so Decode must
// copy anything it wants to keep.
type Codec[E any] interface {
	RecordSize() int
	Encode(buf []byte, e E) error
	Decode(buf []byte) (E, error)
}

type rawCodec int

// Raw returns a codec where a record is just size bytes.
// Shorter records are padded with zeros on write.
func Raw(size int) Codec[[]byte] {
	return rawCodec(size)
}

func (c rawCodec) RecordSize() int {
	return int(c)
}

func (c rawCodec) Encode(buf []byte, d []byte) error {
	if len(d) > len(buf) {
		return fmt.Errorf("record is %d bytes, record size is %d", len(d), len(buf))
	}
	copy(buf, d)
	return nil
}

func (c rawCodec) Decode(buf []byte) ([]byte, error) {
	return append([]byte(nil), buf...), nil
}
