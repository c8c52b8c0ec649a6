// Package compiler drives the Pyxis pipeline: lex, parse, validate and
// generate, for one file or many in parallel.
package compiler

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/pyxis-compiler/pkg/codegen/js"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/diag"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/frontend"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/logger"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/semantic"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/sourcemap"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/stdlib"
)

// Input is one source file
type Input struct {
	Source   string
	Filename string
}

// Options configures a compile
type Options struct {
	Format      js.Format
	PositionMap js.MapMode
	// EmbedSourceMap appends an inline Source Map v3 comment
	EmbedSourceMap bool
	// StrictTypes turns annotation mismatches into errors
	StrictTypes bool
	// VerifyOutput parses the generated code before returning it
	VerifyOutput bool
	// Strict makes parse error placeholders an internal fault
	Strict bool
	// Jobs bounds CompileAll; zero means GOMAXPROCS
	Jobs int
	// Imports maps module names; nil means stdlib.DefaultTable()
	Imports *stdlib.Table
	// Globals are extra names provided by the host environment
	Globals []string
}

// DefaultOptions returns ESM output with no position map
func DefaultOptions() Options {
	return Options{
		Format:      js.ESM,
		PositionMap: js.MapNone,
		Jobs:        runtime.GOMAXPROCS(0),
	}
}

// Output is the result of compiling one file
type Output struct {
	Filename    string
	Code        string
	Diagnostics []diag.Diagnostic
	Map         *sourcemap.Map
}

// HasErrors reports whether an error diagnostic exists in any of stages,
// or in any stage when none are given
func (o *Output) HasErrors(stages ...diag.Stage) bool {
	return diag.HasErrors(o.Diagnostics, stages...)
}

// front runs the stages shared by Check and Compile
func front(in Input, opts Options) (*frontend.Module, []diag.Diagnostic) {
	logger.LogPhase("lex", in.Filename)
	toks, ds := frontend.Tokenize(in.Source)
	logger.LogLexing(in.Filename, len(toks))

	logger.LogPhase("parse", in.Filename)
	mod, pds := frontend.Parse(toks)
	ds = append(ds, pds...)
	logger.LogParsing(in.Filename, len(mod.Body))

	logger.LogPhase("validate", in.Filename)
	vds := semantic.Validate(mod, semantic.Options{
		StrictTypes: opts.StrictTypes,
		Globals:     opts.Globals,
	})
	ds = append(ds, vds...)
	logger.LogValidation(in.Filename, mod.Scope.Count(), len(vds))
	return mod, ds
}

// Check parses and validates in without generating code
func Check(in Input, opts Options) *Output {
	_, ds := front(in, opts)
	diag.Sort(ds)
	logDiagnostics(in.Filename, ds)
	return &Output{Filename: in.Filename, Diagnostics: ds}
}

// Compile runs the whole pipeline. Code is produced even when diagnostics
// exist; statements that failed to parse become placeholders. The error is
// reserved for internal faults.
func Compile(in Input, opts Options) (*Output, error) {
	logger.LogFileProcessing(in.Filename)
	mod, ds := front(in, opts)
	diag.Sort(ds)
	out := &Output{Filename: in.Filename}

	logger.LogPhase("generate", in.Filename)
	gen, err := js.Generate(mod, js.Options{
		Format:         opts.Format,
		PositionMap:    opts.PositionMap,
		EmbedSourceMap: opts.EmbedSourceMap,
		Imports:        opts.Imports,
		Filename:       in.Filename,
		Source:         in.Source,
		Strict:         opts.Strict,
	})
	if err != nil {
		// internal faults have no source position and trail the rest
		out.Diagnostics = append(ds, internal(err))
		logDiagnostics(in.Filename, out.Diagnostics)
		return out, errors.Wrapf(err, "generating %s", in.Filename)
	}
	out.Code = gen.Code
	out.Map = gen.Map
	logger.LogPhaseComplete("generate", in.Filename, len(ds))

	if opts.VerifyOutput {
		logger.LogPhase("verify", in.Filename)
		if verr := js.ValidateOutput(gen.Code); verr != nil {
			out.Diagnostics = append(ds, internal(verr))
			logDiagnostics(in.Filename, out.Diagnostics)
			return out, errors.Wrapf(verr, "verifying %s", in.Filename)
		}
	}

	out.Diagnostics = ds
	logDiagnostics(in.Filename, ds)
	return out, nil
}

// internal turns a generator fault into a diagnostic
func internal(err error) diag.Diagnostic {
	return diag.Diagnostic{
		Severity: diag.Error,
		Stage:    diag.Generate,
		Code:     diag.CodeInternal,
		Message:  fmt.Sprintf("internal compiler error: %v", err),
		Line:     1,
		Col:      1,
	}
}

func logDiagnostics(file string, ds []diag.Diagnostic) {
	for _, d := range ds {
		logger.LogDiagnostic(file, d.Severity.String(), d.Line, d.Col, d.Code, d.Message)
	}
}

// CompileAll compiles inputs concurrently, at most opts.Jobs at a time.
// Outputs are returned in input order. The first internal fault or context
// cancellation stops files that have not started yet.
func CompileAll(ctx context.Context, inputs []Input, opts Options) ([]*Output, error) {
	start := time.Now()
	outputs := make([]*Output, len(inputs))

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := Compile(in, opts)
			outputs[i] = out
			return err
		})
	}

	err := g.Wait()
	logger.LogCompilerComplete(err == nil, time.Since(start).String())
	return outputs, err
}
