// Command sfc is a thin CLI over the sfc package API: it compiles one
// or more Single File Components to JSON on stdout, or runs a
// check-daemon socket server for editor tooling (spec §6, "Compiler
// API (library surface)" and "Socket protocol").
package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/rex-template-analyzer/sfc"
	"github.com/rex-template-analyzer/sfc/internal/checker"
	"github.com/rex-template-analyzer/sfc/internal/codegen"
)

// CompileOutput is the JSON shape written to stdout for each input
// file, one object per file compiled.
type CompileOutput struct {
	File        string            `json:"file"`
	RenderCode  string            `json:"renderCode"`
	Preamble    string            `json:"preamble"`
	Diagnostics []json.RawMessage `json:"diagnostics"`
	VirtualTS   string            `json:"virtualTs,omitempty"`
}

func main() {
	dir := flag.String("dir", "", "directory of .sfc files to compile")
	file := flag.String("file", "", "single .sfc file to compile")
	checkDaemon := flag.Bool("check-daemon", false, "run the check-daemon socket server")
	socket := flag.String("socket", "", "unix socket path for -check-daemon")
	watch := flag.Bool("watch", false, "recompile on change (requires -dir or -file)")
	compress := flag.Bool("compress", false, "gzip-compress stdout JSON")
	target := flag.String("target", "client", "codegen target: client, ssr, or vapor")
	checkerCmd := flag.String("checker-cmd", "tsgo", "external type-checker subprocess to drive over LSP stdio (spec §4.7)")
	checkerArgs := flag.String("checker-args", "--lsp --stdio", "space-separated args passed to -checker-cmd")
	flag.Parse()

	if *checkDaemon {
		runCheckDaemon(*socket, *dir, *file, *checkerCmd, strings.Fields(*checkerArgs))
		return
	}

	if *file == "" && *dir == "" {
		fmt.Fprintln(os.Stderr, "sfc: one of -file, -dir, or -check-daemon is required")
		os.Exit(2)
	}

	opts := sfc.DefaultOptions()
	opts.Target = parseTarget(*target)

	files := collectFiles(*file, *dir)
	compileAndWrite(files, opts, *compress)

	if *watch {
		watchAndRecompile(files, *dir, opts, *compress)
	}
}

// parseTarget maps the -target flag to a codegen.Target, falling back
// to the client target for unrecognized values.
func parseTarget(name string) codegen.Target {
	switch strings.ToLower(name) {
	case "ssr":
		return codegen.TargetSSR
	case "vapor":
		return codegen.TargetVapor
	default:
		return codegen.TargetClient
	}
}

// collectFiles resolves the -file/-dir flags into an absolute path
// list. A single file is compiled alone; a directory is walked
// non-recursively for *.sfc files, mirroring how the teacher's
// analyzer CLI takes a -dir of template sources.
func collectFiles(file, dir string) []string {
	if file != "" {
		return []string{mustAbs(file)}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		panic("could not read -dir: " + err.Error())
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sfc") {
			continue
		}
		files = append(files, mustAbs(filepath.Join(dir, e.Name())))
	}
	return files
}

// mustAbs resolves path to an absolute path.
//
// The program panics if resolution fails, since relative paths would
// invalidate downstream diagnostic reporting.
func mustAbs(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		panic("could not resolve absolute path for " + path + ": " + err.Error())
	}
	return abs
}

// compileAndWrite compiles each file and writes the results to stdout
// as a single JSON array holding one object per file.
func compileAndWrite(files []string, opts sfc.Options, compress bool) {
	outputs := make([]CompileOutput, 0, len(files))
	for _, f := range files {
		src, err := os.ReadFile(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sfc: %v\n", err)
			continue
		}

		res := sfc.CompileSFC(string(src), opts)

		diagJSON := make([]json.RawMessage, 0, len(res.Diagnostics))
		for _, d := range res.Diagnostics {
			b, _ := json.Marshal(map[string]any{
				"code":     d.Code.String(),
				"severity": d.Severity,
				"message":  d.Message,
				"start":    d.Range.Start,
				"end":      d.Range.End,
			})
			diagJSON = append(diagJSON, b)
		}

		vts := ""
		if res.VirtualTS != nil {
			vts = res.VirtualTS.Code
		}

		outputs = append(outputs, CompileOutput{
			File:        f,
			RenderCode:  res.RenderCode,
			Preamble:    res.Preamble,
			Diagnostics: diagJSON,
			VirtualTS:   vts,
		})
	}

	encodeJSON(outputs, compress)
}

// encodeJSON serializes output as JSON and writes it to stdout.
//
// If compress is true, the output is gzip-compressed.
func encodeJSON(output any, compress bool) {
	if compress {
		writeGzipJSON(output)
		return
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "")

	if err := enc.Encode(output); err != nil {
		panic("failed to encode JSON: " + err.Error())
	}
}

// writeGzipJSON writes gzip-compressed JSON to stdout.
func writeGzipJSON(output any) {
	gzWriter := gzip.NewWriter(os.Stdout)
	defer gzWriter.Close()

	enc := json.NewEncoder(gzWriter)
	enc.SetIndent("", "")

	if err := enc.Encode(output); err != nil {
		panic("failed to encode JSON: " + err.Error())
	}

	if err := gzWriter.Close(); err != nil {
		panic("failed to close gzip writer: " + err.Error())
	}
}

// watchAndRecompile recompiles the input set whenever one of its
// files (or, for -dir, the directory itself) changes, until
// interrupted. It trades a precise recursive watch for the
// straightforward single-directory fsnotify.Watcher the teacher's
// stack already depends on.
func watchAndRecompile(files []string, dir string, opts sfc.Options, compress bool) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		panic("could not start watcher: " + err.Error())
	}
	defer w.Close()

	watchTargets := files
	if dir != "" {
		watchTargets = []string{dir}
	}
	for _, t := range watchTargets {
		if err := w.Add(t); err != nil {
			fmt.Fprintf(os.Stderr, "sfc: watch %s: %v\n", t, err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			target := files
			if dir != "" {
				target = collectFiles("", dir)
			}
			compileAndWrite(target, opts, compress)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "sfc: watch error: %v\n", err)
		case <-sigCh:
			return
		}
	}
}

// runCheckDaemon starts the checker socket server (spec §6, "Socket
// protocol") backed by sfc.CheckServer, which drives a pool of
// checkerCmd subprocesses (C7) to actually type-check each SFC's
// synthesized virtual module, blocking until interrupted.
func runCheckDaemon(socketPath, dir, file, checkerCmd string, checkerArgs []string) {
	if socketPath == "" {
		socketPath = filepath.Join(os.TempDir(), "sfc-check.sock")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		panic("could not build logger: " + err.Error())
	}
	defer logger.Sync()

	var files []string
	switch {
	case file != "":
		files = []string{mustAbs(file)}
	case dir != "":
		files = collectFiles("", dir)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := checker.NewPool(ctx, files, spawnChecker(checkerCmd, checkerArgs), logger)
	if err != nil {
		logger.Error("check-daemon: could not start checker pool", zap.Error(err))
		os.Exit(1)
	}
	defer pool.Shutdown(context.Background())

	cs := sfc.NewCheckServer(sfc.DefaultOptions(), pool)

	logger.Info("check-daemon listening", zap.String("socket", socketPath), zap.String("checker", checkerCmd))
	if err := checker.Serve(ctx, socketPath, cs.Engine(), logger); err != nil {
		logger.Error("check-daemon exited", zap.Error(err))
		os.Exit(1)
	}
}

// spawnChecker builds a checker.Spawn that starts checkerCmd as a
// fresh subprocess per chunk and frames its stdio as
// Content-Length-delimited JSON-RPC, the wire format the original
// tsgo_bridge.rs drives its TypeScript-Go subprocess with (spec §4.7
// framing (a)).
func spawnChecker(checkerCmd string, checkerArgs []string) checker.Spawn {
	return func(ctx context.Context, chunk []string) (checker.Transport, error) {
		cmd := exec.CommandContext(ctx, checkerCmd, checkerArgs...)
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, err
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, err
		}
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			return nil, err
		}
		return checker.NewFramedTransport(&checkerProcess{stdin: stdin, stdout: stdout, cmd: cmd}), nil
	}
}

// checkerProcess adapts a spawned checker subprocess's separate
// stdin/stdout pipes into the single io.ReadWriteCloser
// NewFramedTransport expects.
type checkerProcess struct {
	stdin  io.WriteCloser
	stdout io.ReadCloser
	cmd    *exec.Cmd
}

func (p *checkerProcess) Read(b []byte) (int, error)  { return p.stdout.Read(b) }
func (p *checkerProcess) Write(b []byte) (int, error) { return p.stdin.Write(b) }

func (p *checkerProcess) Close() error {
	p.stdin.Close()
	p.stdout.Close()
	return p.cmd.Wait()
}
