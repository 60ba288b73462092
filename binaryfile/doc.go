// Package binaryfile provides random access to files of fixed-size records.
//
// The layout of a record is defined by a Codec. File implements everything
// else: seeking to a record, counting records, reading, appending, updating
// and removing them.
//
// # Basic Usage
//
//	type productCodec struct{}
//
//	func (productCodec) RecordSize() int {
//	    return binaryfile.Int32Size + binaryfile.StringSize(40) + binaryfile.Float64Size
//	}
//
//	func (productCodec) Encode(buf []byte, p Product) error {
//	    w := binaryfile.NewFieldWriter(buf)
//	    w.Int32(p.Code)
//	    w.String(p.Name, 40)
//	    w.Float64(p.Price)
//	    return w.Err()
//	}
//
//	func (productCodec) Decode(buf []byte) (Product, error) {
//	    r := binaryfile.NewFieldReader(buf)
//	    p := Product{Code: r.Int32(), Name: r.String(40), Price: r.Float64()}
//	    return p, r.Err()
//	}
//
//	f, err := binaryfile.Open("products.dat", binaryfile.ReadWrite, productCodec{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//	err = f.WriteAtEnd(Product{Code: 1, Name: "pen", Price: 1.5})
//	products, err := f.ReadAll()
//
// # Removing records
//
// RemoveRecord moves the last record into the removed slot and truncates
// the file. It's fast but changes the order of records.
//
// # Errors
//
// Failures of the underlying file are returned as *Error. Positions outside
// of the file return an error wrapping ErrOutOfBounds, checked before any I/O.
// ReadLastOrNull is the only method that doesn't return errors.
//
// # Thread Safety
//
// File is not safe for concurrent use. All methods share the cursor of
// the underlying file.
package binaryfile
