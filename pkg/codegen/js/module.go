package js

import (
	"fmt"
	"sort"
	"strings"

	"github.com/GriffinCanCode/pyxis-compiler/pkg/frontend"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/stdlib"
)

// importStmt binds an import. Modules with a specifier become ES imports or
// require calls; modules standing in for a host object are bound to plain
// values, and their attributes are substituted where they are used.
func (g *generator) importStmt(s *frontend.Import) {
	mod := g.table.Resolve(s.Module)
	if s.From {
		g.importNames(s, mod)
		return
	}

	name := jsName(s.Binding())
	if s.Sym != nil {
		g.modules[s.Sym] = mod
	}
	if mod.Specifier == "" {
		g.emit("const %s = %s;", name, moduleObject(mod))
		return
	}
	switch {
	case g.opts.Format == CommonJS:
		g.emit("const %s = require(%s);", name, quote(mod.Specifier))
	case g.topLevel():
		g.emit("import * as %s from %s;", name, quote(mod.Specifier))
	default:
		ns := g.namespace(mod.Specifier)
		g.emit("const %s = %s;", name, ns)
	}
}

func (g *generator) importNames(s *frontend.Import, mod stdlib.Module) {
	if mod.Specifier == "" {
		parts := make([]string, len(s.Names))
		for i, n := range s.Names {
			parts[i] = jsName(n.Binding()) + " = " + mod.Member(n.Name)
		}
		g.emit("const %s;", strings.Join(parts, ", "))
		return
	}

	switch {
	case g.opts.Format == CommonJS:
		parts := make([]string, len(s.Names))
		for i, n := range s.Names {
			parts[i] = binding(mod.Member(n.Name), jsName(n.Binding()), ": ")
		}
		g.emit("const { %s } = require(%s);", strings.Join(parts, ", "), quote(mod.Specifier))
	case g.topLevel():
		parts := make([]string, len(s.Names))
		for i, n := range s.Names {
			parts[i] = binding(mod.Member(n.Name), jsName(n.Binding()), " as ")
		}
		g.emit("import { %s } from %s;", strings.Join(parts, ", "), quote(mod.Specifier))
	default:
		ns := g.namespace(mod.Specifier)
		parts := make([]string, len(s.Names))
		for i, n := range s.Names {
			parts[i] = jsName(n.Binding()) + " = " + ns + "." + mod.Member(n.Name)
		}
		g.emit("const %s;", strings.Join(parts, ", "))
	}
}

func binding(exported, local, sep string) string {
	if exported == local {
		return local
	}
	return exported + sep + local
}

func (g *generator) topLevel() bool {
	return g.indent == 0 && g.fn.parent == nil
}

// namespace hoists a namespace import of specifier to the top of the module
// for an import statement nested in a function or block
func (g *generator) namespace(specifier string) string {
	ns := g.fresh("import")
	g.imports = append(g.imports, fmt.Sprintf("import * as %s from %s;", ns, quote(specifier)))
	return ns
}

// moduleObject renders a host-object module as a value: the object itself,
// extended with the members that are mapped to something else
func moduleObject(mod stdlib.Module) string {
	names := make([]string, 0, len(mod.Members))
	for name := range mod.Members {
		names = append(names, name)
	}
	sort.Strings(names)
	members := make([]string, len(names))
	for i, name := range names {
		members[i] = quoteKey(name) + ": " + mod.Members[name]
	}

	switch {
	case mod.Object == "":
		if len(members) == 0 {
			return "{}"
		}
		return "{ " + strings.Join(members, ", ") + " }"
	case len(members) == 0:
		return mod.Object
	}
	return "Object.assign(Object.create(" + mod.Object + "), { " + strings.Join(members, ", ") + " })"
}

func (g *generator) exportStmt(s *frontend.Export) {
	if s.Decl != nil {
		g.export = true
		g.stmt(s.Decl)
		g.export = false
		return
	}
	for _, id := range s.Names {
		g.exports = append(g.exports, jsName(id.Name))
	}
}
