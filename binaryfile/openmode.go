package binaryfile

import "fmt"

// OpenMode controls how the file is opened and how durable writes are
type OpenMode int

const (
	// ReadOnly opens an existing file. Write methods return ErrReadOnly.
	ReadOnly OpenMode = iota
	// ReadWrite opens or creates the file. Writes are buffered by the OS.
	ReadWrite
	// ReadWriteDataSync is like ReadWrite but every write of file content
	// reaches the disk before returning.
	ReadWriteDataSync
	// ReadWriteSync is like ReadWriteDataSync but file metadata
	// is written synchronously too.
	ReadWriteSync
)

var openModeNames = []string{"r", "rw", "rwd", "rws"}

func (m OpenMode) valid() bool {
	return m >= ReadOnly && m <= ReadWriteSync
}

// String returns the short name of the mode: "r", "rw", "rwd" or "rws"
func (m OpenMode) String() string {
	if !m.valid() {
		return fmt.Sprintf("OpenMode(%d)", int(m))
	}
	return openModeNames[m]
}

func (m OpenMode) writable() bool {
	return m != ReadOnly
}

// synced returns true if writes are flushed synchronously
func (m OpenMode) synced() bool {
	return m == ReadWriteDataSync || m == ReadWriteSync
}

// ParseOpenMode is the reverse of OpenMode.String()
func ParseOpenMode(s string) (OpenMode, error) {
	for i, name := range openModeNames {
		if s == name {
			return OpenMode(i), nil
		}
	}
	return ReadOnly, fmt.Errorf("binaryfile: invalid open mode '%s'", s)
}
