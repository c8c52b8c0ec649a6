// Package js generates JavaScript from a validated Pyxis module.
//
// Design: One method per node kind, writing into a list of output lines
// at an explicit indentation level. Each line keeps the source span that
// produced it; hoisted declarations, the helper prelude and the position
// map are resolved in a final pass once the whole module has been seen.
// Expressions always render to a single line.
package js

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"github.com/GriffinCanCode/pyxis-compiler/pkg/frontend"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/logger"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/sourcemap"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/stdlib"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/symbols"
)

// Format selects the module system of the output
type Format int

const (
	ESM Format = iota
	CommonJS
)

func (f Format) String() string {
	if f == CommonJS {
		return "cjs"
	}
	return "esm"
}

// ParseFormat accepts "esm", "cjs" or "commonjs"
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "esm", "":
		return ESM, nil
	case "cjs", "commonjs":
		return CommonJS, nil
	}
	return ESM, fmt.Errorf("unknown module format %q", s)
}

// MapMode selects how source positions are reported
type MapMode int

const (
	MapNone MapMode = iota
	// MapComments appends a `// src L:C` comment to every mapped line
	MapComments
	// MapTable returns the position table in Output.Map
	MapTable
)

// ParseMapMode accepts "none", "comments" or "table"
func ParseMapMode(s string) (MapMode, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return MapNone, nil
	case "comments":
		return MapComments, nil
	case "table":
		return MapTable, nil
	}
	return MapNone, fmt.Errorf("unknown position map mode %q", s)
}

// Options controls code generation
type Options struct {
	Format      Format
	PositionMap MapMode
	// EmbedSourceMap appends an inline Source Map v3 comment
	EmbedSourceMap bool
	// Imports maps module names; nil means stdlib.DefaultTable()
	Imports *stdlib.Table
	// Filename is the source file name recorded in the map
	Filename string
	// Source is embedded as sourcesContent when set
	Source string
	Indent string
	// Strict turns parse error placeholders into a generation fault
	Strict bool
}

// Output is the generated file
type Output struct {
	Code string
	// Map is set unless PositionMap is MapNone and no source map is embedded
	Map *sourcemap.Map
}

type lineKind int

const (
	codeLine lineKind = iota
	hoistLine
)

type line struct {
	kind   lineKind
	indent int
	text   string
	src    frontend.Span
	fn     *funcState
}

// funcState tracks the function whose body is being written
type funcState struct {
	parent *funcState
	scope  *symbols.Scope
	temps  []string
	method bool
	loops  []*loopState
	// caught holds the catch variables of the enclosing except clauses
	caught []string
}

type loopState struct {
	flag string // set when the loop has an else clause
}

type generator struct {
	opts   Options
	table  *stdlib.Table
	indent int
	lines  []line
	cur    frontend.Span
	fn     *funcState

	used    map[string]bool
	imports []string // namespace imports hoisted out of nested scopes
	exports []string
	// export is set while writing the declaration of an export statement
	export  bool
	classes map[*symbols.Scope]string
	modules map[*symbols.Symbol]stdlib.Module
	counter int
	err     error
}

// Generate writes mod as JavaScript. mod must have been validated. The only
// error is an internal fault: a node the generator cannot lower.
func Generate(mod *frontend.Module, opts Options) (*Output, error) {
	if mod == nil || mod.Scope == nil {
		return nil, errors.New("module has not been validated")
	}
	if opts.Indent == "" {
		opts.Indent = "  "
	}
	g := &generator{
		opts:    opts,
		table:   opts.Imports,
		used:    make(map[string]bool),
		classes: make(map[*symbols.Scope]string),
		modules: make(map[*symbols.Symbol]stdlib.Module),
	}
	if g.table == nil {
		g.table = stdlib.DefaultTable()
	}

	g.fn = &funcState{scope: mod.Scope}
	g.hoist()
	g.stmts(mod.Body)
	if g.err != nil {
		return nil, g.err
	}

	out, err := g.finish()
	if err != nil {
		return nil, err
	}
	logger.LogCodeGen(opts.Format.String(), opts.Filename, strings.Count(out.Code, "\n"))
	return out, nil
}

// fail records the first internal fault
func (g *generator) fail(err error) {
	if g.err == nil {
		g.err = err
	}
}

// Line writing

func (g *generator) emit(format string, args ...any) {
	text := format
	if len(args) > 0 {
		text = fmt.Sprintf(format, args...)
	}
	g.lines = append(g.lines, line{indent: g.indent, text: text, src: g.cur})
}

// open writes a line ending in an opening brace and indents
func (g *generator) open(format string, args ...any) {
	if format == "" {
		g.emit("{")
	} else {
		g.emit(format+" {", args...)
	}
	g.indent++
}

// reopen closes the current block and opens the next one on the same line,
// mapped to src when it is set
func (g *generator) reopen(src frontend.Span, format string, args ...any) {
	g.indent--
	g.cur = src
	g.emit("} "+format+" {", args...)
	g.indent++
}

func (g *generator) close(suffix string) {
	g.indent--
	g.cur = frontend.Span{}
	g.emit("}" + suffix)
}

// hoist reserves the line declaring the current function's hoisted names
func (g *generator) hoist() {
	g.lines = append(g.lines, line{kind: hoistLine, indent: g.indent, fn: g.fn})
}

// temp allocates a variable declared on the current function's hoist line
func (g *generator) temp() string {
	g.counter++
	name := fmt.Sprintf("__pyx_t%d", g.counter)
	g.fn.temps = append(g.fn.temps, name)
	return name
}

// fresh returns a unique name that the caller declares itself
func (g *generator) fresh(prefix string) string {
	g.counter++
	return fmt.Sprintf("__pyx_%s%d", prefix, g.counter)
}

func (g *generator) use(helper string) {
	g.used[helper] = true
}

func (g *generator) enter(scope *symbols.Scope, method bool) *funcState {
	fs := &funcState{parent: g.fn, scope: scope, method: method}
	g.fn = fs
	return fs
}

func (g *generator) leave() {
	g.fn = g.fn.parent
}

func (fs *funcState) hoisted() []string {
	var names []string
	if fs.scope != nil && fs.scope.Kind != symbols.ClassScope {
		for _, sym := range fs.scope.Symbols() {
			if sym.Hoisted {
				names = append(names, jsName(sym.Name))
			}
		}
	}
	return append(names, fs.temps...)
}

// inMethod reports whether code is being written inside a class method,
// directly or through nested functions
func (g *generator) inMethod() bool {
	for fs := g.fn; fs != nil; fs = fs.parent {
		if fs.method {
			return true
		}
	}
	return false
}

// Final assembly

func (g *generator) finish() (*Output, error) {
	var b strings.Builder
	smap := sourcemap.New(outputName(g.opts.Filename), g.opts.Filename)
	smap.Content = g.opts.Source
	genLine := 0

	write := func(indent int, text string, src frontend.Span) {
		genLine++
		pad := strings.Repeat(g.opts.Indent, indent)
		b.WriteString(pad)
		b.WriteString(text)
		if src.Line > 0 {
			smap.Add(genLine, len(pad)+1, src.Line, src.Col)
			if g.opts.PositionMap == MapComments {
				fmt.Fprintf(&b, " // src %d:%d", src.Line, src.Col)
			}
		}
		b.WriteByte('\n')
	}

	if g.opts.Format == CommonJS {
		write(0, `"use strict";`, frontend.Span{})
	}
	for _, imp := range g.imports {
		write(0, imp, frontend.Span{})
	}
	if prelude := g.prelude(); len(prelude) > 0 {
		for _, l := range prelude {
			write(0, l, frontend.Span{})
		}
		write(0, "", frontend.Span{})
	}

	for _, l := range g.lines {
		if l.kind == hoistLine {
			if names := l.fn.hoisted(); len(names) > 0 {
				write(l.indent, "let "+strings.Join(names, ", ")+";", frontend.Span{})
			}
			continue
		}
		write(l.indent, l.text, l.src)
	}

	g.writeExports(func(text string) { write(0, text, frontend.Span{}) })

	out := &Output{}
	if g.opts.EmbedSourceMap {
		comment, err := smap.Comment()
		if err != nil {
			return nil, errors.Wrap(err, "encoding source map")
		}
		b.WriteString(comment)
		b.WriteByte('\n')
	}
	if g.opts.PositionMap != MapNone || g.opts.EmbedSourceMap {
		out.Map = smap
	}
	out.Code = b.String()
	return out, nil
}

func (g *generator) writeExports(write func(string)) {
	var names []string
	seen := make(map[string]bool)
	for _, name := range g.exports {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return
	}
	if g.opts.Format == CommonJS {
		for _, name := range names {
			write(fmt.Sprintf("module.exports.%s = %s;", name, name))
		}
		return
	}
	write("export { " + strings.Join(names, ", ") + " };")
}

func outputName(filename string) string {
	if filename == "" {
		return ""
	}
	if i := strings.LastIndexByte(filename, '.'); i > strings.LastIndexByte(filename, '/') {
		filename = filename[:i]
	}
	return filename + ".js"
}

// Names

var reservedJS = map[string]bool{
	"arguments": true, "await": true, "case": true, "catch": true, "const": true,
	"debugger": true, "default": true, "delete": true, "do": true, "enum": true,
	"eval": true, "extends": true, "false": true, "function": true, "implements": true,
	"instanceof": true, "interface": true, "let": true, "new": true, "null": true,
	"package": true, "private": true, "protected": true, "public": true, "static": true,
	"super": true, "switch": true, "this": true, "throw": true, "true": true,
	"typeof": true, "undefined": true, "var": true, "void": true, "yield": true,
}

// jsName keeps a Pyxis identifier from colliding with a JS reserved word
func jsName(name string) string {
	if reservedJS[name] {
		return name + "_"
	}
	return name
}

func capitalized(name string) bool {
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}

// isDecl reports whether id is the position where its variable is declared
func isDecl(id *frontend.Ident) bool {
	sym := id.Sym
	if sym == nil || sym.Kind != symbols.Variable || sym.Hoisted {
		return false
	}
	if sym.Scope != nil && sym.Scope.Kind == symbols.ClassScope {
		return false
	}
	return sym.DeclLine == id.Line && sym.DeclCol == id.Col
}
