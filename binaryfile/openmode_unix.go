//go:build linux || darwin

package binaryfile

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

func openFlags(mode OpenMode) int {
	switch mode {
	case ReadOnly:
		return os.O_RDONLY
	case ReadWriteDataSync:
		return os.O_RDWR | os.O_CREATE | unix.O_DSYNC
	case ReadWriteSync:
		return os.O_RDWR | os.O_CREATE | unix.O_SYNC
	}
	return os.O_RDWR | os.O_CREATE
}

// lockFile takes an advisory lock: shared for readers, exclusive for writers.
// The lock goes away when the file is closed.
func lockFile(f *os.File, mode OpenMode) error {
	how := unix.LOCK_EX | unix.LOCK_NB
	if !mode.writable() {
		how = unix.LOCK_SH | unix.LOCK_NB
	}
	err := unix.Flock(int(f.Fd()), how)
	if errors.Is(err, unix.EWOULDBLOCK) {
		return ErrLocked
	}
	return err
}
