package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/assert"
)

func readTodayLog(t *testing.T, dir string) string {
	name := time.Now().UTC().Format("2006-01-02") + ".txt"
	d, err := os.ReadFile(filepath.Join(dir, name))
	assert.NoError(t, err)
	return string(d)
}

func captureStdout(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer
	prev := Stdout
	Stdout = &buf
	t.Cleanup(func() { Stdout = prev })
	return &buf
}

func TestLogToFiles(t *testing.T) {
	stdout := captureStdout(t)
	dir := t.TempDir()
	Init(&Config{Dir: dir})
	defer Close()

	Logf("opened %s\n", "records.dat")
	Verbose = false
	Verbosef("not logged\n")
	Verbose = true
	Verbosef("verbose %d\n", 1)
	Verbose = false

	assert.False(t, IfErrf(nil))
	assert.True(t, IfErrf(os.ErrNotExist, "open failed: %v", os.ErrNotExist))
	Event("recfile", "cmd", "rm", "records", 3)
	assert.NoError(t, Close())

	s := readTodayLog(t, filepath.Join(dir, "log"))
	assert.True(t, strings.HasPrefix(s, "opened records.dat\nverbose 1\n"), "%s", s)
	assert.False(t, strings.Contains(s, "not logged"))
	assert.True(t, strings.Contains(stdout.String(), "open failed: file does not exist"))

	s = readTodayLog(t, filepath.Join(dir, "errors"))
	assert.True(t, strings.HasPrefix(s, "open failed: file does not exist\n"), "%s", s)
	assert.True(t, strings.Contains(s, "log_test.go"), "%s", s)

	s = readTodayLog(t, filepath.Join(dir, "events"))
	assert.True(t, strings.HasPrefix(s, "--- "), "%s", s)
	assert.True(t, strings.Contains(s, " recfile\n"), "%s", s)
	assert.True(t, strings.Contains(s, "records"), "%s", s)
}

func TestLogWithoutInit(t *testing.T) {
	stdout := captureStdout(t)
	Logf("hello %d", 5)
	Event("ignored", "k", "v")
	assert.Equal(t, "hello 5", stdout.String())
}

func TestMarshalEvent(t *testing.T) {
	tm := time.UnixMilli(1700000000123)
	d, err := MarshalEvent("export", tm)
	assert.NoError(t, err)
	assert.Equal(t, "--- 1700000000123 export\n", string(d))

	d, err = MarshalEvent("export", tm, "path", "a.zst")
	assert.NoError(t, err)
	s := string(d)
	assert.True(t, strings.HasPrefix(s, "--- 1700000000123 export\n"), "%s", s)
	assert.True(t, strings.Contains(s, "a.zst"), "%s", s)
	assert.True(t, strings.HasSuffix(s, "\n"))

	_, err = MarshalEvent("export", tm, "path")
	assert.Error(t, err)
}

func TestDailyFileNil(t *testing.T) {
	var d *dailyFile
	assert.NoError(t, d.writeString("x"))
	assert.NoError(t, d.close())
}

func TestDailyFileRotation(t *testing.T) {
	now := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = time.Now })

	dir := t.TempDir()
	d := &dailyFile{dir: filepath.Join(dir, "log")}
	assert.NoError(t, d.writeString("first\n"))
	now = now.Add(2 * time.Minute)
	assert.NoError(t, d.writeString("second\n"))
	assert.NoError(t, d.writeString("third\n"))
	assert.NoError(t, d.close())
	// writing after close re-opens the file
	assert.NoError(t, d.writeString("fourth\n"))
	assert.NoError(t, d.close())

	got, err := os.ReadFile(filepath.Join(dir, "log", "2026-03-01.txt"))
	assert.NoError(t, err)
	assert.Equal(t, "first\n", string(got))
	got, err = os.ReadFile(filepath.Join(dir, "log", "2026-03-02.txt"))
	assert.NoError(t, err)
	assert.Equal(t, "second\nthird\nfourth\n", string(got))
}
