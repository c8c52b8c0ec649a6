package stdlib

import (
	"path"
	"strings"
)

// Module maps one importable module onto JavaScript. Either Specifier names
// a JS module to import, or Object is an expression standing in for the
// module (a host global such as Math).
type Module struct {
	Specifier string
	Object    string
	// Members maps a module attribute to the JS expression that replaces it
	Members map[string]string
}

// Member returns the JS expression for attribute name of m. For a module
// with a specifier it is the name of the export to import.
func (m Module) Member(name string) string {
	if js, ok := m.Members[name]; ok {
		return js
	}
	switch {
	case m.Object != "":
		return m.Object + "." + name
	case m.Specifier != "":
		return name
	}
	return "undefined"
}

// Table resolves import paths. It is read-only after construction and safe
// for concurrent use.
type Table struct {
	modules map[string]Module
}

// NewTable builds a table from explicit entries
func NewTable(modules map[string]Module) *Table {
	t := &Table{modules: make(map[string]Module, len(modules))}
	for k, v := range modules {
		t.modules[k] = v
	}
	return t
}

// With returns a copy of t with extra entries, which win over existing ones
func (t *Table) With(modules map[string]Module) *Table {
	out := NewTable(t.modules)
	for k, v := range modules {
		out.modules[k] = v
	}
	return out
}

// Lookup finds a module by its dotted Pyxis name
func (t *Table) Lookup(name string) (Module, bool) {
	if t == nil {
		return Module{}, false
	}
	m, ok := t.modules[name]
	return m, ok
}

// Resolve maps a module name to a Module. Names without a table entry
// become relative file specifiers: a.b -> ./a/b.js, ..m -> ../m.js.
func (t *Table) Resolve(name string) Module {
	if m, ok := t.Lookup(name); ok {
		return m
	}
	return Module{Specifier: FileSpecifier(name)}
}

// FileSpecifier converts a dotted module name into a relative JS path
func FileSpecifier(name string) string {
	dots := 0
	for dots < len(name) && name[dots] == '.' {
		dots++
	}
	rest := strings.ReplaceAll(name[dots:], ".", "/")

	prefix := "./"
	if dots > 1 {
		prefix = strings.Repeat("../", dots-1)
	}
	if rest == "" {
		return prefix + "index.js"
	}
	return prefix + path.Clean(rest) + ".js"
}

var defaultTable = NewTable(map[string]Module{
	"math":        mathModule,
	"json":        jsonModule,
	"re":          reModule,
	"itertools":   itertoolsModule,
	"functools":   functoolsModule,
	"collections": collectionsModule,
	"asyncio":     asyncioModule,
	"random":      {Object: "Math", Members: map[string]string{"random": "Math.random"}},
	"time":        {Object: "Date", Members: map[string]string{"time": "(() => Date.now() / 1000)"}},
	"os":          {Specifier: "node:process"},
	"os.path":     {Specifier: "node:path"},
	"sys":         {Specifier: "node:process", Members: map[string]string{"argv": "argv", "exit": "exit"}},
})

// DefaultTable returns the built-in import table
func DefaultTable() *Table {
	return defaultTable
}
