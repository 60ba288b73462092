package u

import (
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileExists returns true if path exists and is a regular file
func FileExists(path string) bool {
	st, err := os.Lstat(path)
	return err == nil && st.Mode().IsRegular()
}

// FileSize gets file size, -1 if file doesn't exist
func FileSize(path string) int64 {
	st, err := os.Lstat(path)
	if err == nil {
		return st.Size()
	}
	return -1
}

// CloseNoError is like io.Closer Close() but ignores an error
// use as: defer CloseNoError(f)
func CloseNoError(f io.Closer) {
	_ = f.Close()
}

var mimeTypes = map[string]string{
	".zst":  "application/zstd",
	".zstd": "application/zstd",
	".br":   "application/x-brotli",
	".gz":   "application/gzip",
	".env":  "text/plain",
	".txt":  "text/plain",
}

// MimeTypeFromFileName returns content type for files we store remotely.
// Record files and other binary data are application/octet-stream.
func MimeTypeFromFileName(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct := mimeTypes[ext]; ct != "" {
		return ct
	}
	return "application/octet-stream"
}
