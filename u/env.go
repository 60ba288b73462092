package u

import (
	"fmt"
	"os"
	"strings"
)

// NormalizeNewlines changes CRLF (Windows) and CR (Mac) to LF (Unix)
func NormalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// ParseEnv parses content of .env file i.e. KEY=VALUE lines.
// Empty lines and lines starting with # are skipped.
func ParseEnv(d []byte) (map[string]string, error) {
	lines := strings.Split(NormalizeNewlines(string(d)), "\n")
	m := make(map[string]string)
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid line %d '%s' in .env", i+1, line)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("empty key in line %d '%s' in .env", i+1, line)
		}
		m[key] = strings.TrimSpace(val)
	}
	return m, nil
}

// ReadEnvFile reads and parses .env file
func ReadEnvFile(path string) (map[string]string, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseEnv(d)
}
