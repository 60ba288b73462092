package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/toon-format/toon-go"
)

var (
	log       *dailyFile
	errorsLog *dailyFile
	eventsLog *dailyFile

	// if true, Verbosef() will log messages
	Verbose bool

	// where Logf() prints in addition to log files
	Stdout io.Writer = os.Stdout

	timeNow = time.Now
)

// dailyFile appends to ${dir}/YYYY-MM-DD.txt, switching files when
// the (UTC) day changes. Methods are safe to call on nil.
type dailyFile struct {
	dir string
	day string
	f   *os.File
	mu  sync.Mutex
}

func (d *dailyFile) write(p []byte) error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	day := timeNow().UTC().Format("2006-01-02")
	if d.f != nil && d.day != day {
		if err := d.closeFile(); err != nil {
			return err
		}
	}
	if d.f == nil {
		if err := os.MkdirAll(d.dir, 0755); err != nil {
			return err
		}
		path := filepath.Join(d.dir, day+".txt")
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		d.f = f
		d.day = day
	}
	_, err := d.f.Write(p)
	return err
}

func (d *dailyFile) writeString(s string) error {
	return d.write([]byte(s))
}

func (d *dailyFile) closeFile() error {
	if d.f == nil {
		return nil
	}
	err := d.f.Sync()
	if err2 := d.f.Close(); err == nil {
		err = err2
	}
	d.f = nil
	d.day = ""
	return err
}

func (d *dailyFile) close() error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeFile()
}

type Config struct {
	// log files go to Dir/log, Dir/errors and Dir/events
	Dir string
}

// Init starts logging to files in config.Dir.
// Without Init, we only log to Stdout.
func Init(config *Config) {
	log = &dailyFile{dir: filepath.Join(config.Dir, "log")}
	errorsLog = &dailyFile{dir: filepath.Join(config.Dir, "errors")}
	eventsLog = &dailyFile{dir: filepath.Join(config.Dir, "events")}
}

// Close closes log files. Logging after Close only goes to Stdout.
func Close() error {
	err := errors.Join(log.close(), errorsLog.close(), eventsLog.close())
	log, errorsLog, eventsLog = nil, nil, nil
	return err
}

func Logf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	fmt.Fprint(Stdout, s)
	log.writeString(s)
}

func Verbosef(format string, args ...any) {
	if !Verbose {
		return
	}
	Logf(format, args...)
}

func GetCallstackFrames(skip int) []string {
	var callers [32]uintptr
	n := runtime.Callers(skip+1, callers[:])
	frames := runtime.CallersFrames(callers[:n])
	var cs []string
	for {
		frame, more := frames.Next()
		if !more {
			break
		}
		s := frame.File + ":" + strconv.Itoa(frame.Line)
		cs = append(cs, s)
	}
	return cs
}

func GetCallstack(skip int) string {
	frames := GetCallstackFrames(skip + 1)
	return strings.Join(frames, "\n")
}

// Errorf logs an error message along with the callstack
// errors also go to a separate errors log
func Errorf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	cs := GetCallstack(1)
	Logf("%s%s\n", s, cs)
	errorsLog.writeString(s + cs + "\n")
}

// if err != nil, log and return true
// IfErrf(err) => logs err.Error()
// IfErrf(err, "error is: %v", err) => logs message formatted
func IfErrf(err error, a ...any) bool {
	if err == nil {
		return false
	}
	if len(a) == 0 {
		Errorf("%s", err.Error())
		return true
	}
	s, ok := a[0].(string)
	if !ok {
		// shouldn't happen but just in case
		s = fmt.Sprintf("%s", a[0])
	}
	if len(a) > 1 {
		s = fmt.Sprintf(s, a[1:]...)
	}
	Errorf("%s", s)
	return true
}

// simpleTypeToStr converts simple types to string
// panics if v is of complex type
func simpleTypeToStr(v any) string {
	rt := reflect.TypeOf(v)
	kind := rt.Kind()
	switch kind {
	case reflect.Array, reflect.Slice, reflect.Struct, reflect.Map, reflect.Chan, reflect.Interface, reflect.Pointer:
		panic(fmt.Sprintf("toStr: value is of kind %v", kind))
	case reflect.String:
		return v.(string)
	}
	return fmt.Sprintf("%v", v)
}

// MarshalEvent formats an event as:
// "--- ${timestamp_in_unix_epoch_ms} ${name}\n" followed by vals in toon format
func MarshalEvent(name string, t time.Time, vals ...any) ([]byte, error) {
	n := len(vals)
	if n%2 != 0 {
		return nil, fmt.Errorf("odd number of vals: %d", n)
	}
	var sb strings.Builder
	sb.WriteString("--- ")
	sb.WriteString(strconv.FormatInt(t.UnixMilli(), 10))
	sb.WriteString(" ")
	sb.WriteString(name)
	sb.WriteString("\n")
	if n > 0 {
		m := map[string]any{}
		for i := 0; i < n; i += 2 {
			k := simpleTypeToStr(vals[i])
			m[k] = vals[i+1]
		}
		d, err := toon.Marshal(m)
		if err != nil {
			return nil, err
		}
		sb.Write(d)
		if len(d) > 0 && d[len(d)-1] != '\n' {
			sb.WriteString("\n")
		}
	}
	return []byte(sb.String()), nil
}

// Event logs an event with key / value pairs to the events log
func Event(name string, vals ...any) {
	d, err := MarshalEvent(name, timeNow().UTC(), vals...)
	if err != nil {
		Errorf("Event('%s'): %s", name, err)
		return
	}
	eventsLog.write(d)
}
