package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/pretty"
	"github.com/toon-format/toon-go"
	"github.com/tsitoo/common/binaryfile"
	"github.com/tsitoo/common/log"
	"github.com/tsitoo/common/minioutil"
	"github.com/tsitoo/common/snapshot"
	"github.com/tsitoo/common/u"
)

const usage = `usage: recfile [flags] <command> <file> [args]
       recfile [flags] <remote command> [args]

commands:
  info             show record count and file size
  dump             print all records
  get <pos>        print record at position
  rm <pos>         remove record, last record is moved into its place
  clear            remove all records
  export <dst>     write snapshot (.zst, .br, .gz or uncompressed)
  import <src>     replace content with snapshot
  push <remote>    export snapshot and upload it to s3
  pull <remote>    download snapshot from s3 and import it

remote commands:
  ls [prefix]        list snapshots in s3
  rmremote <remote>  delete snapshot from s3

flags:
`

type options struct {
	size    int
	mode    binaryfile.OpenMode
	format  string
	envPath string
}

type recordJSON struct {
	Pos  int64  `json:"pos"`
	Hex  string `json:"hex"`
	Text string `json:"text"`
}

// printable returns d with non-printable ascii replaced by '.'
func printable(d []byte) string {
	b := make([]byte, len(d))
	for i, c := range d {
		if c < 32 || c > 126 {
			c = '.'
		}
		b[i] = c
	}
	return string(b)
}

func writeRecord(w io.Writer, pos int64, d []byte) {
	fmt.Fprintf(w, "%6d: %s |%s|\n", pos, hex.EncodeToString(d), printable(d))
}

func dumpRecords(w io.Writer, f *binaryfile.File[[]byte], format string) error {
	switch format {
	case "hex":
		records, errFn := f.All()
		for pos, d := range records {
			writeRecord(w, pos, d)
		}
		return errFn()
	case "json":
		var recs []recordJSON
		records, errFn := f.All()
		for pos, d := range records {
			recs = append(recs, recordJSON{Pos: pos, Hex: hex.EncodeToString(d), Text: printable(d)})
		}
		if err := errFn(); err != nil {
			return err
		}
		d, err := json.Marshal(recs)
		u.PanicIfErr(err, "json.Marshal() of records failed with '%s'", err)
		_, err = w.Write(pretty.Pretty(d))
		return err
	case "toon":
		var recs []map[string]any
		records, errFn := f.All()
		for pos, d := range records {
			recs = append(recs, map[string]any{
				"pos":  pos,
				"hex":  hex.EncodeToString(d),
				"text": printable(d),
			})
		}
		if err := errFn(); err != nil {
			return err
		}
		d, err := toon.Marshal(map[string]any{"records": recs})
		if err != nil {
			return err
		}
		_, err = w.Write(d)
		if err == nil && (len(d) == 0 || d[len(d)-1] != '\n') {
			_, err = io.WriteString(w, "\n")
		}
		return err
	}
	return fmt.Errorf("unknown format '%s', must be hex, json or toon", format)
}

func parsePos(args []string) (int64, error) {
	if len(args) < 1 {
		return 0, errors.New("missing record position")
	}
	return strconv.ParseInt(args[0], 10, 64)
}

func needArg(args []string, what string) (string, error) {
	if len(args) < 1 || args[0] == "" {
		return "", fmt.Errorf("missing %s", what)
	}
	return args[0], nil
}

func newS3Client(ctx context.Context, envPath string) (*minioutil.Client, error) {
	env, err := u.ReadEnvFile(envPath)
	if err != nil {
		return nil, err
	}
	config, err := minioutil.ConfigFromEnv(env)
	if err != nil {
		return nil, err
	}
	return minioutil.New(ctx, config)
}

// tempSnapshotPath returns a path in a new temporary directory with the same
// extension as remote, so that the snapshot is compressed the same way
func tempSnapshotPath(remote string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "recfile")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() {
		os.RemoveAll(dir)
	}
	return filepath.Join(dir, "snapshot"+filepath.Ext(remote)), cleanup, nil
}

func runCommand(ctx context.Context, w io.Writer, opts *options, cmd string, f *binaryfile.File[[]byte], args []string) error {
	switch cmd {
	case "info":
		n, err := f.CountRecords()
		if err != nil {
			return err
		}
		size, err := f.Length()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "file:        %s\n", f.Name())
		fmt.Fprintf(w, "record size: %d\n", f.RecordSize())
		fmt.Fprintf(w, "records:     %d\n", n)
		fmt.Fprintf(w, "size:        %s\n", u.FormatSize(size))
		if extra := size % int64(f.RecordSize()); extra != 0 {
			fmt.Fprintf(w, "trailing:    %d bytes\n", extra)
		}
		return nil

	case "dump":
		return dumpRecords(w, f, opts.format)

	case "get":
		pos, err := parsePos(args)
		if err != nil {
			return err
		}
		d, err := f.ReadRecord(pos)
		if err != nil {
			return err
		}
		writeRecord(w, pos, d)
		return nil

	case "rm":
		pos, err := parsePos(args)
		if err != nil {
			return err
		}
		if err = f.RemoveRecord(pos); err != nil {
			return err
		}
		log.Event("rm", "file", f.Name(), "pos", pos)
		return nil

	case "clear":
		if err := f.Clear(); err != nil {
			return err
		}
		log.Event("clear", "file", f.Name())
		return nil

	case "export":
		dst, err := needArg(args, "destination path")
		if err != nil {
			return err
		}
		n, err := snapshot.ExportFile(dst, f)
		if err != nil {
			return err
		}
		log.Logf("exported %s to '%s'\n", u.FormatSize(n), dst)
		log.Event("export", "file", f.Name(), "dst", dst, "size", n)
		return nil

	case "import":
		src, err := needArg(args, "source path")
		if err != nil {
			return err
		}
		n, err := snapshot.ImportFile(src, f)
		if err != nil {
			return err
		}
		log.Logf("imported %s from '%s'\n", u.FormatSize(n), src)
		log.Event("import", "file", f.Name(), "src", src, "size", n)
		return nil

	case "push":
		remote, err := needArg(args, "remote path")
		if err != nil {
			return err
		}
		mc, err := newS3Client(ctx, opts.envPath)
		if err != nil {
			return err
		}
		path, cleanup, err := tempSnapshotPath(remote)
		if err != nil {
			return err
		}
		defer cleanup()
		if _, err = snapshot.ExportFile(path, f); err != nil {
			return err
		}
		info, err := mc.UploadFile(ctx, remote, path)
		if err != nil {
			return err
		}
		log.Logf("uploaded '%s' (%s) to '%s'\n", f.Name(), u.FormatSize(info.Size), remote)
		log.Event("push", "file", f.Name(), "remote", remote, "size", info.Size)
		return nil

	case "pull":
		remote, err := needArg(args, "remote path")
		if err != nil {
			return err
		}
		mc, err := newS3Client(ctx, opts.envPath)
		if err != nil {
			return err
		}
		if !mc.Exists(ctx, remote) {
			return fmt.Errorf("'%s' doesn't exist in bucket '%s'", remote, mc.Bucket)
		}
		path, cleanup, err := tempSnapshotPath(remote)
		if err != nil {
			return err
		}
		defer cleanup()
		if err = mc.DownloadFileAtomically(ctx, path, remote); err != nil {
			return err
		}
		n, err := snapshot.ImportFile(path, f)
		if err != nil {
			return err
		}
		log.Logf("downloaded '%s' to '%s', %s\n", remote, f.Name(), u.FormatSize(n))
		log.Event("pull", "file", f.Name(), "remote", remote, "size", n)
		return nil
	}
	return fmt.Errorf("unknown command '%s'", cmd)
}

// runRemoteCommand runs commands that only talk to s3
func runRemoteCommand(ctx context.Context, w io.Writer, opts *options, cmd string, args []string) error {
	mc, err := newS3Client(ctx, opts.envPath)
	if err != nil {
		return err
	}
	switch cmd {
	case "ls":
		prefix := ""
		if len(args) > 0 {
			prefix = args[0]
		}
		keys, err := mc.List(ctx, prefix)
		if err != nil {
			return err
		}
		for _, key := range keys {
			fmt.Fprintf(w, "%s\n", key)
		}
		return nil

	case "rmremote":
		remote, err := needArg(args, "remote path")
		if err != nil {
			return err
		}
		if !mc.Exists(ctx, remote) {
			return fmt.Errorf("'%s' doesn't exist in bucket '%s'", remote, mc.Bucket)
		}
		if err = mc.Remove(ctx, remote); err != nil {
			return err
		}
		log.Logf("deleted '%s' from bucket '%s'\n", remote, mc.Bucket)
		log.Event("rmremote", "remote", remote)
		return nil
	}
	return fmt.Errorf("unknown command '%s'", cmd)
}

var remoteCommands = map[string]bool{
	"ls":       true,
	"rmremote": true,
}

// commands maps a command to true if it doesn't modify the file.
// Those open the file read-only, with a shared lock.
var commands = map[string]bool{
	"info":   true,
	"dump":   true,
	"get":    true,
	"export": true,
	"push":   true,
	"rm":     false,
	"clear":  false,
	"import": false,
	"pull":   false,
}

// run executes the command line in args. Errors other than invalid flags
// are logged before returning.
func run(ctx context.Context, args []string, w io.Writer) (err error) {
	fs := flag.NewFlagSet("recfile", flag.ContinueOnError)
	fs.SetOutput(w)
	var (
		flgSize    = fs.Int("size", 0, "record size in bytes (required)")
		flgMode    = fs.String("mode", "rw", "open mode for modifying commands: rw, rwd or rws")
		flgFormat  = fs.String("format", "hex", "dump format: hex, json or toon")
		flgEnv     = fs.String("env", ".env", "file with S3_* settings for push, pull, ls and rmremote")
		flgLogDir  = fs.String("log", "", "directory for log files")
		flgVerbose = fs.Bool("v", false, "verbose logging")
	)
	fs.Usage = func() {
		fmt.Fprint(w, usage)
		fs.PrintDefaults()
	}
	if err = fs.Parse(args); err != nil {
		return err
	}

	log.Verbose = *flgVerbose
	if *flgLogDir != "" {
		log.Init(&log.Config{Dir: *flgLogDir})
		defer log.Close()
	}
	defer func() {
		log.IfErrf(err)
	}()

	rest := fs.Args()
	if len(rest) > 0 && remoteCommands[strings.ToLower(rest[0])] {
		opts := &options{envPath: *flgEnv}
		return runRemoteCommand(ctx, w, opts, strings.ToLower(rest[0]), rest[1:])
	}
	if len(rest) < 2 {
		fs.Usage()
		return errors.New("must provide command and file")
	}
	cmd, path, cmdArgs := strings.ToLower(rest[0]), rest[1], rest[2:]

	mode, err := binaryfile.ParseOpenMode(*flgMode)
	if err != nil {
		return err
	}
	readOnly, ok := commands[cmd]
	if !ok {
		return fmt.Errorf("unknown command '%s'", cmd)
	}
	if readOnly {
		if !u.FileExists(path) {
			return fmt.Errorf("'%s' doesn't exist or is not a file", path)
		}
		mode = binaryfile.ReadOnly
	}
	opts := &options{
		size:    *flgSize,
		mode:    mode,
		format:  *flgFormat,
		envPath: *flgEnv,
	}

	log.Verbosef("opening '%s' in mode %s, record size %d\n", path, opts.mode, opts.size)
	f, err := binaryfile.Open(path, opts.mode, binaryfile.Raw(opts.size))
	if err != nil {
		return err
	}
	u.PanicIf(f.RecordSize() != opts.size, "record size is %d, expected %d", f.RecordSize(), opts.size)
	err = runCommand(ctx, w, opts, cmd, f, cmdArgs)
	return errors.Join(err, f.Close())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout)
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		stop()
		os.Exit(1)
	}
}
