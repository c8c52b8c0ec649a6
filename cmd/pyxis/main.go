// Package main implements the pyxis command: compile, check and run Pyxis
// sources.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/GriffinCanCode/pyxis-compiler/pkg/codegen/js"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/compiler"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/diag"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/discover"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/jsrun"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/logger"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return 1
	}

	cmd := args[0]
	switch cmd {
	case "build":
		return build(args[1:], stdout, stderr)
	case "check":
		return check(args[1:], stdout, stderr)
	case "run":
		return runFile(args[1:], stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "pyxis compiler version %s\n", version)
		return 0
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", cmd)
		usage(stderr)
		return 1
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `Pyxis Compiler - Compile Pyxis to JavaScript

Usage:
    pyxis build <file|dir> [options]   Compile sources to JavaScript
    pyxis check <file|dir> [-json]     Report diagnostics without generating code
    pyxis run <file> [args...]         Compile and run a program
    pyxis version                      Show compiler version
    pyxis help                         Show this help message

Build options:
    -o <path>          Output file, or output directory for a directory
    -format <fmt>      Module format (esm, cjs; default esm)
    -map               Embed an inline source map
    -positions <mode>  Position map (none, comments; default none)
    -strict            Report annotation mismatches as errors
    -verify            Parse the generated JavaScript before writing it
    -j <n>             Files compiled in parallel (default: CPUs)

Common options:
    -v                 Verbose output
    -log-json          Log as JSON
    -log-file <path>   Append logs to a file instead of stderr

The PYXIS_LOG environment variable sets the log level (debug, info, warn, error).`)
}

// common holds the flags every subcommand accepts
type common struct {
	verbose bool
	logJSON bool
	logFile string
}

func (c *common) register(fs *flag.FlagSet) {
	fs.BoolVar(&c.verbose, "v", false, "verbose output")
	fs.BoolVar(&c.logJSON, "log-json", false, "log as JSON")
	fs.StringVar(&c.logFile, "log-file", "", "append logs to a file")
}

func (c *common) initLogger(stderr io.Writer) error {
	level := logger.LevelWarn
	if env := os.Getenv("PYXIS_LOG"); env != "" {
		level = logger.ParseLevel(env)
	}
	if c.verbose {
		level = logger.LevelDebug
	}
	format := "text"
	if c.logJSON {
		format = "json"
	}
	return logger.Init(logger.Config{Level: level, Format: format, Output: stderr, LogFile: c.logFile})
}

// parse accepts flags before and after positional arguments
func parse(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func build(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c common
	c.register(fs)
	out := fs.String("o", "", "output file or directory")
	format := fs.String("format", "esm", "module format")
	embed := fs.Bool("map", false, "embed an inline source map")
	positions := fs.String("positions", "none", "position map mode")
	strict := fs.Bool("strict", false, "report annotation mismatches as errors")
	verify := fs.Bool("verify", false, "verify generated JavaScript")
	jobs := fs.Int("j", 0, "parallel jobs")

	paths, err := parse(fs, args)
	if err != nil {
		return 2
	}
	if len(paths) != 1 {
		fmt.Fprintln(stderr, "error: build takes one file or directory")
		return 1
	}
	if err := c.initLogger(stderr); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	start := time.Now()
	logger.LogCompilerStart(args)

	opts := compiler.DefaultOptions()
	if opts.Format, err = js.ParseFormat(*format); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if opts.PositionMap, err = js.ParseMapMode(*positions); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	opts.EmbedSourceMap = *embed
	opts.StrictTypes = *strict
	opts.VerifyOutput = *verify
	if *jobs > 0 {
		opts.Jobs = *jobs
	}

	root := paths[0]
	inputs, base, err := load(root)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	outputs, err := compiler.CompileAll(context.Background(), inputs, opts)
	failed := err != nil
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
	}

	for i, o := range outputs {
		if o == nil {
			continue
		}
		_ = diag.WriteText(stderr, inputs[i].Filename, o.Diagnostics)
		if o.HasErrors() {
			failed = true
			continue
		}
		dest := destination(root, base, *out, inputs[i].Filename)
		if err := writeFile(dest, o.Code); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			failed = true
			continue
		}
		fmt.Fprintf(stdout, "%s -> %s\n", inputs[i].Filename, dest)
	}

	logger.LogCompilerComplete(!failed, time.Since(start).String())
	if failed {
		return 1
	}
	return 0
}

// load reads the sources named by root. Filenames are relative to base.
func load(root string) ([]compiler.Input, string, error) {
	files, err := discover.Files(root)
	if err != nil {
		return nil, "", err
	}
	base := root
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		base = filepath.Dir(root)
	}
	if len(files) == 0 {
		return nil, "", fmt.Errorf("no %s files under %s", discover.Extension, root)
	}

	inputs := make([]compiler.Input, len(files))
	for i, f := range files {
		data, err := os.ReadFile(filepath.Join(base, f))
		if err != nil {
			return nil, "", err
		}
		inputs[i] = compiler.Input{Source: string(data), Filename: f}
	}
	return inputs, base, nil
}

// destination picks where a compiled file is written. -o names the file for
// a single-file build and the output directory otherwise.
func destination(root, base, out, file string) string {
	name := discover.OutputPath(file, ".js")
	if out == "" {
		return filepath.Join(base, name)
	}
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		return out
	}
	return filepath.Join(out, name)
}

func writeFile(path, code string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(code), 0o644)
}

func check(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c common
	c.register(fs)
	asJSON := fs.Bool("json", false, "print diagnostics as JSON")
	strict := fs.Bool("strict", false, "report annotation mismatches as errors")

	paths, err := parse(fs, args)
	if err != nil {
		return 2
	}
	if len(paths) != 1 {
		fmt.Fprintln(stderr, "error: check takes one file or directory")
		return 1
	}
	if err := c.initLogger(stderr); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	inputs, _, err := load(paths[0])
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	opts := compiler.DefaultOptions()
	opts.StrictTypes = *strict

	failed := false
	reports := make([]diag.Report, 0, len(inputs))
	for _, in := range inputs {
		o := compiler.Check(in, opts)
		if o.HasErrors() {
			failed = true
		}
		ds := o.Diagnostics
		if ds == nil {
			ds = []diag.Diagnostic{}
		}
		reports = append(reports, diag.Report{File: in.Filename, Diagnostics: ds})
	}

	if *asJSON {
		if err := diag.WriteJSON(stdout, reports); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
	} else {
		for _, r := range reports {
			_ = diag.WriteText(stdout, r.File, r.Diagnostics)
		}
	}

	if failed {
		return 1
	}
	return 0
}

func runFile(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c common
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "error: run takes a file")
		return 1
	}
	if err := c.initLogger(stderr); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	path := fs.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	opts := compiler.DefaultOptions()
	opts.Format = js.CommonJS
	dir := filepath.Dir(path)
	name := filepath.Base(path)

	code, err := compileForRun(compiler.Input{Source: string(data), Filename: name}, opts, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	_, err = jsrun.Run(ctx, code, jsrun.Options{
		Filename: discover.OutputPath(name, ".js"),
		Stdout:   stdout,
		Stderr:   stderr,
		Args:     fs.Args()[1:],
		Load: func(spec string) (string, error) {
			src := discover.OutputPath(filepath.FromSlash(spec), discover.Extension)
			data, err := os.ReadFile(filepath.Join(dir, src))
			if err != nil {
				return "", err
			}
			return compileForRun(compiler.Input{Source: string(data), Filename: src}, opts, stderr)
		},
	})
	var exit *jsrun.ExitError
	switch {
	case errors.As(err, &exit):
		return exit.Code
	case err != nil:
		fmt.Fprintln(stderr, strings.TrimSpace(err.Error()))
		return 1
	}
	return 0
}

// compileForRun refuses sources with lexical or syntax errors and prints
// every other diagnostic as a warning
func compileForRun(in compiler.Input, opts compiler.Options, stderr io.Writer) (string, error) {
	o, err := compiler.Compile(in, opts)
	if o != nil {
		_ = diag.WriteText(stderr, in.Filename, o.Diagnostics)
	}
	if err != nil {
		return "", err
	}
	if o.HasErrors(diag.Lex, diag.Parse) {
		return "", fmt.Errorf("%s has syntax errors", in.Filename)
	}
	return o.Code, nil
}
