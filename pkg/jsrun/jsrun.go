// Package jsrun executes CommonJS output in an embedded JavaScript engine.
//
// Design: Each Run gets its own goja runtime. Modules are evaluated inside a
// function taking module, exports and require, the way Node wraps them;
// require only resolves host modules registered in Options and, through
// Options.Load, relative modules such as sibling compiled files.
package jsrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/pyxis-compiler/pkg/logger"
)

// Options configures a run
type Options struct {
	// Filename names the entry module in stack traces
	Filename string
	// Stdout receives console.log and console.info; nil means os.Stdout
	Stdout io.Writer
	// Stderr receives console.error and console.warn; nil means os.Stderr
	Stderr io.Writer
	// Args are appended to process.argv
	Args []string
	// Modules are extra host modules by specifier
	Modules map[string]any
	// Load returns the code of a relative module. The specifier is
	// resolved against the requiring module and slash-separated.
	Load func(specifier string) (string, error)
}

// ExitError is returned when the program calls process.exit with a
// non-zero code
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Result holds the exports of the entry module
type Result struct {
	vm      *goja.Runtime
	exports goja.Value
}

// Exports returns the exported values converted to Go
func (r *Result) Exports() map[string]any {
	m, _ := r.exports.Export().(map[string]any)
	return m
}

// Call invokes an exported function
func (r *Result) Call(name string, args ...any) (any, error) {
	obj := r.exports.ToObject(r.vm)
	fn, ok := goja.AssertFunction(obj.Get(name))
	if !ok {
		return nil, fmt.Errorf("export %q is not a function", name)
	}
	vals := make([]goja.Value, len(args))
	for i, a := range args {
		vals[i] = r.vm.ToValue(a)
	}
	v, err := fn(goja.Undefined(), vals...)
	if err != nil {
		return nil, err
	}
	return v.Export(), nil
}

type runner struct {
	vm      *goja.Runtime
	opts    Options
	modules map[string]goja.Value
}

// Run evaluates code as a CommonJS module. Cancelling ctx interrupts the
// program.
func Run(ctx context.Context, code string, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Filename == "" {
		opts.Filename = "main.js"
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	r := &runner{
		vm:      goja.New(),
		opts:    opts,
		modules: make(map[string]goja.Value),
	}
	r.install()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			r.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	logger.Debug("Running module", "file", opts.Filename)
	exports, err := r.evaluate(opts.Filename, code)
	if err != nil {
		if err = unwrap(err); err != nil {
			return nil, err
		}
		exports = r.vm.NewObject()
	}
	return &Result{vm: r.vm, exports: exports}, nil
}

// unwrap turns an interrupt back into the value it was raised with
func unwrap(err error) error {
	var ie *goja.InterruptedError
	if errors.As(err, &ie) {
		switch v := ie.Value().(type) {
		case *ExitError:
			if v.Code == 0 {
				return nil
			}
			return v
		case error:
			return v
		}
	}
	return err
}

func (r *runner) install() {
	console := r.vm.NewObject()
	_ = console.Set("log", r.printer(r.opts.Stdout))
	_ = console.Set("info", r.printer(r.opts.Stdout))
	_ = console.Set("error", r.printer(r.opts.Stderr))
	_ = console.Set("warn", r.printer(r.opts.Stderr))
	_ = r.vm.Set("console", console)

	for spec, mod := range r.hostModules() {
		r.modules[spec] = r.vm.ToValue(mod)
	}
}

func (r *runner) hostModules() map[string]any {
	argv := append([]string{"pyxis", r.opts.Filename}, r.opts.Args...)
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}

	process := map[string]any{
		"argv":     argv,
		"env":      env,
		"platform": "pyxis",
		"cwd": func() string {
			wd, _ := os.Getwd()
			return wd
		},
		"exit": func(code int) {
			r.vm.Interrupt(&ExitError{Code: code})
		},
	}
	pathModule := map[string]any{
		"sep":      "/",
		"join":     path.Join,
		"basename": path.Base,
		"dirname":  path.Dir,
		"extname":  path.Ext,
		"normalize": func(p string) string {
			return path.Clean(p)
		},
		"isAbsolute": path.IsAbs,
	}

	mods := map[string]any{
		"node:process": process,
		"process":      process,
		"node:path":    pathModule,
		"path":         pathModule,
	}
	for spec, mod := range r.opts.Modules {
		mods[spec] = mod
	}
	return mods
}

// printer joins its arguments with spaces, rendering objects as JSON
func (r *runner) printer(w io.Writer) func(goja.FunctionCall) goja.Value {
	stringify, _ := goja.AssertFunction(r.vm.Get("JSON").ToObject(r.vm).Get("stringify"))
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = r.format(stringify, arg)
		}
		fmt.Fprintln(w, strings.Join(parts, " "))
		return goja.Undefined()
	}
}

func (r *runner) format(stringify goja.Callable, v goja.Value) string {
	obj, ok := v.(*goja.Object)
	if !ok || obj.ClassName() == "Function" || obj.ClassName() == "Error" {
		return v.String()
	}
	if s, err := stringify(goja.Undefined(), v); err == nil && !goja.IsUndefined(s) {
		return s.String()
	}
	return v.String()
}

// evaluate runs a module and returns its exports. The wrapper is kept on
// the first line so positions match the generated file.
func (r *runner) evaluate(name, code string) (goja.Value, error) {
	prog, err := goja.Compile(name, "(function (module, exports, require) {"+code+"\n})", false)
	if err != nil {
		return nil, err
	}
	fnv, err := r.vm.RunProgram(prog)
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(fnv)
	if !ok {
		return nil, fmt.Errorf("%s: module wrapper is not a function", name)
	}

	module := r.vm.NewObject()
	exports := r.vm.NewObject()
	_ = module.Set("exports", exports)
	r.modules[name] = exports

	if _, err := fn(goja.Undefined(), module, exports, r.vm.ToValue(r.require(name))); err != nil {
		delete(r.modules, name)
		return nil, err
	}
	result := module.Get("exports")
	r.modules[name] = result
	return result, nil
}

// require returns the require function seen by the module named from
func (r *runner) require(from string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		spec := call.Argument(0).String()
		if mod, ok := r.modules[spec]; ok {
			return mod
		}
		if !strings.HasPrefix(spec, ".") || r.opts.Load == nil {
			panic(r.vm.NewGoError(fmt.Errorf("cannot find module %q", spec)))
		}

		resolved := path.Join(path.Dir(from), spec)
		if mod, ok := r.modules[resolved]; ok {
			return mod
		}
		code, err := r.opts.Load(resolved)
		if err != nil {
			panic(r.vm.NewGoError(fmt.Errorf("loading %q: %w", spec, err)))
		}
		logger.Debug("Loading module", "specifier", spec, "resolved", resolved)
		exports, err := r.evaluate(resolved, code)
		if err != nil {
			var ex *goja.Exception
			if errors.As(err, &ex) {
				panic(ex.Value())
			}
			panic(r.vm.NewGoError(err))
		}
		return exports
	}
}
