package js

import (
	"strings"

	"github.com/GriffinCanCode/pyxis-compiler/pkg/frontend"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/stdlib"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/symbols"
)

// funcDef writes a function declaration. Decorated functions become a const
// bound to the decorated value; plain functions nested in methods become
// arrows so they keep the receiver.
func (g *generator) funcDef(s *frontend.FuncDef) {
	name := jsName(s.Name)
	params := g.params(s.Params)
	async, star := "", ""
	if s.Async {
		async = "async "
	}
	if s.Generator {
		star = "*"
	}

	switch {
	case len(s.Decorators) > 0:
		decos := g.decorators(s.Decorators)
		prefix := g.exportPrefix(name)
		g.open("%sconst %s = %s%sfunction%s %s(%s)", prefix, name, decos, async, star, name, params)
		g.body(s.Scope, s.Body, false)
		g.close(strings.Repeat(")", len(s.Decorators)) + ";")
	case g.inMethod() && !s.Generator:
		g.open("const %s = %s(%s) =>", name, async, params)
		g.body(s.Scope, s.Body, false)
		g.close(";")
	default:
		prefix := g.exportPrefix(name)
		g.open("%s%sfunction%s %s(%s)", prefix, async, star, name, params)
		g.body(s.Scope, s.Body, false)
		g.close("")
	}
}

// body writes a function body inside the block the caller opened
func (g *generator) body(scope *symbols.Scope, stmts []frontend.Stmt, method bool) {
	g.enter(scope, method)
	g.hoist()
	g.stmts(stmts)
	g.leave()
}

// decorators renders the call prefix d1(d2( of a decorator list. The
// decorator closest to the definition is applied first.
func (g *generator) decorators(decos []frontend.Expr) string {
	var b strings.Builder
	for _, d := range decos {
		b.WriteString(g.sub(d, precPostfix))
		b.WriteByte('(')
	}
	return b.String()
}

type methodKind int

const (
	plainMethod methodKind = iota
	staticMethod
	getter
	setter
)

// classifyMethod picks out the decorators that change how a method is
// declared and returns the others
func classifyMethod(fd *frontend.FuncDef) (methodKind, []frontend.Expr) {
	kind := plainMethod
	var rest []frontend.Expr
	for _, d := range fd.Decorators {
		if name, ok := builtinIdent(d); ok {
			switch name {
			case "staticmethod", "classmethod":
				kind = staticMethod
				continue
			case "property":
				kind = getter
				continue
			}
		}
		if m, ok := d.(*frontend.Member); ok && m.Name == "setter" {
			kind = setter
			continue
		}
		rest = append(rest, d)
	}
	return kind, rest
}

// classDef writes a class declaration. Methods go into the class body.
// Every other statement of the class body runs right after it, with class
// attributes set on both the class and its prototype.
func (g *generator) classDef(s *frontend.ClassDef) {
	name := jsName(s.Name)
	g.classes[s.Scope] = name

	heading := "class " + name
	exception := false
	if len(s.Bases) > 0 {
		base := s.Bases[0]
		bn, isBuiltin := builtinIdent(base)
		if !isBuiltin || bn != "object" {
			heading += " extends " + g.sub(base, precPostfix)
		}
		if b, ok := stdlib.LookupBuiltin(bn); isBuiltin && ok && b.Kind == stdlib.Exception {
			exception = true
		}
	}
	derived := strings.Contains(heading, " extends ")

	prefix := g.exportPrefix(name)
	if len(s.Decorators) > 0 {
		g.open("%slet %s = %s", prefix, name, heading)
	} else {
		g.open("%s%s", prefix, heading)
	}

	var rest []frontend.Stmt
	var decorated []*frontend.FuncDef
	methods := make(map[string]bool)
	for _, st := range s.Body {
		fd, ok := st.(*frontend.FuncDef)
		if !ok {
			rest = append(rest, st)
			continue
		}
		methods[fd.Name] = true
		if g.method(fd, derived) {
			decorated = append(decorated, fd)
		}
	}
	g.protocolMethods(methods)
	if len(s.Decorators) > 0 {
		g.close(";")
	} else {
		g.close("")
	}

	g.cur = s.Pos()
	if exception {
		g.emit("%s.prototype.name = %s;", name, quote(s.Name))
	}
	if init := findMethod(s.Body, "__init__"); init != nil && !assignsName(rest, "__match_args__") {
		if fields := matchArgs(init); len(fields) > 0 {
			g.emit("%s.__match_args__ = [%s];", name, strings.Join(fields, ", "))
		}
	}
	g.stmts(rest)

	for _, fd := range decorated {
		kind, decos := classifyMethod(fd)
		owner := name + ".prototype"
		if kind == staticMethod {
			owner = name
		}
		g.cur = fd.Pos()
		g.emit("%s.%s = %s%s.%s%s;", owner, fd.Name, g.decorators(decos), owner, fd.Name, strings.Repeat(")", len(decos)))
	}
	if len(s.Decorators) > 0 {
		g.cur = s.Pos()
		g.emit("%s = %s%s%s;", name, g.decorators(s.Decorators), name, strings.Repeat(")", len(s.Decorators)))
	}
}

// method writes one method into the class body and reports whether it has
// decorators left to apply after the class
func (g *generator) method(fd *frontend.FuncDef, derived bool) bool {
	kind, decos := classifyMethod(fd)
	g.cur = fd.Pos()

	name := fd.Name
	if name == "__init__" {
		name = "constructor"
	}
	var prefix string
	switch kind {
	case staticMethod:
		prefix = "static "
	case getter:
		prefix = "get "
	case setter:
		prefix = "set "
	}
	if fd.Async {
		prefix += "async "
	}
	if fd.Generator {
		prefix += "*"
	}

	g.open("%s%s(%s)", prefix, name, g.params(fd.Params))
	g.enter(fd.Scope, true)
	g.hoist()
	if name == "constructor" && derived && !callsSuperInit(fd.Body) {
		g.emit("super();")
	}
	g.stmts(fd.Body)
	g.leave()
	g.close("")
	return len(decos) > 0
}

// protocolMethods bridges Python special methods to their JS protocols
func (g *generator) protocolMethods(methods map[string]bool) {
	g.cur = frontend.Span{}
	if !methods["toString"] {
		switch {
		case methods["__str__"]:
			g.emit("toString() { return this.__str__(); }")
		case methods["__repr__"]:
			g.emit("toString() { return this.__repr__(); }")
		}
	}
	if methods["__iter__"] {
		g.use("__pyx_iter")
		g.emit("[Symbol.iterator]() { return __pyx_iter(this.__iter__()); }")
	}
	if methods["__next__"] && !methods["next"] {
		g.use("StopIteration")
		g.open("next()")
		g.open("try")
		g.emit("return { value: this.__next__(), done: false };")
		g.reopen(frontend.Span{}, "catch (e)")
		g.emit("if (e instanceof StopIteration) return { value: undefined, done: true };")
		g.emit("throw e;")
		g.close("")
		g.close("")
	}
}

func findMethod(body []frontend.Stmt, name string) *frontend.FuncDef {
	for _, st := range body {
		if fd, ok := st.(*frontend.FuncDef); ok && fd.Name == name {
			return fd
		}
	}
	return nil
}

// matchArgs lists the constructor parameters positional class patterns
// match against
func matchArgs(init *frontend.FuncDef) []string {
	var fields []string
	for _, p := range init.Params {
		if p.Star || p.Sym != nil && p.Sym.IsSelf {
			continue
		}
		fields = append(fields, quote(p.Name))
	}
	return fields
}

func assignsName(body []frontend.Stmt, name string) bool {
	for _, st := range body {
		var target frontend.Expr
		switch st := st.(type) {
		case *frontend.VarDecl:
			target = st.Target
		case *frontend.ExprStmt:
			if a, ok := st.X.(*frontend.Assign); ok {
				target = a.Target
			}
		}
		if id, ok := target.(*frontend.Ident); ok && id.Name == name {
			return true
		}
	}
	return false
}

// callsSuperInit reports whether a constructor body calls the base
// constructor itself
func callsSuperInit(body []frontend.Stmt) bool {
	for _, st := range body {
		es, ok := st.(*frontend.ExprStmt)
		if !ok {
			continue
		}
		call, ok := es.X.(*frontend.Call)
		if !ok {
			continue
		}
		if m, ok := call.Func.(*frontend.Member); ok && m.Name == "__init__" && isSuper(m.X) {
			return true
		}
	}
	return false
}
