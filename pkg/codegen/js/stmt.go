package js

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/GriffinCanCode/pyxis-compiler/pkg/frontend"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/symbols"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/types"
)

func (g *generator) stmts(body []frontend.Stmt) {
	for _, s := range body {
		g.stmt(s)
	}
}

func (g *generator) stmt(s frontend.Stmt) {
	g.cur = s.Pos()
	switch s := s.(type) {
	case *frontend.FuncDef:
		g.funcDef(s)
	case *frontend.ClassDef:
		g.classDef(s)
	case *frontend.VarDecl:
		g.varDecl(s)
	case *frontend.If:
		g.ifStmt(s)
	case *frontend.For:
		g.forStmt(s)
	case *frontend.While:
		g.whileStmt(s)
	case *frontend.Match:
		g.match(s)
	case *frontend.Try:
		g.tryStmt(s)
	case *frontend.With:
		g.withItems(s, 0)
	case *frontend.Import:
		g.importStmt(s)
	case *frontend.Export:
		g.exportStmt(s)
	case *frontend.Return:
		if s.Value == nil {
			g.emit("return;")
			return
		}
		g.emit("return %s;", g.expr(s.Value))
	case *frontend.Yield:
		switch {
		case s.Value == nil:
			g.emit("yield;")
		case s.From:
			g.emit("yield* %s;", g.sub(s.Value, precAssign))
		default:
			g.emit("yield %s;", g.sub(s.Value, precAssign))
		}
	case *frontend.Raise:
		g.raise(s)
	case *frontend.Break:
		if n := len(g.fn.loops); n > 0 && g.fn.loops[n-1].flag != "" {
			g.emit("%s = true;", g.fn.loops[n-1].flag)
		}
		g.emit("break;")
	case *frontend.Continue:
		g.emit("continue;")
	case *frontend.Pass:
	case *frontend.Assert:
		g.use("AssertionError")
		msg := ""
		if s.Msg != nil {
			msg = g.expr(s.Msg)
		}
		g.emit("if (!%s) throw new AssertionError(%s);", g.sub(s.Test, precUnary), msg)
	case *frontend.Del:
		for _, t := range s.Targets {
			g.del(t)
		}
	case *frontend.ExprStmt:
		g.exprStmt(s)
	case *frontend.ErrorStmt:
		if g.opts.Strict {
			g.fail(errors.Errorf("line %d: unparsed statement reached code generation", s.Line))
			return
		}
		g.emit("/* parse error */")
	default:
		g.fail(errors.Errorf("line %d: unknown statement %T", s.Pos().Line, s))
	}
}

func (g *generator) exprStmt(s *frontend.ExprStmt) {
	switch x := s.X.(type) {
	case *frontend.Assign:
		switch x.Op {
		case frontend.ASSIGN:
			g.assign(x)
		case frontend.WALRUS:
			g.emit("%s;", g.expr(x))
		default:
			g.compound(x)
		}
		return
	case *frontend.StringLit:
		// docstring
		return
	}
	text := g.expr(s.X)
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "function") || strings.HasPrefix(text, "class") {
		text = "(" + text + ")"
	}
	g.emit("%s;", text)
}

// Declarations and assignment

func (g *generator) varDecl(s *frontend.VarDecl) {
	names, onlyNames := leaves(s.Target)
	if !onlyNames || len(names) == 0 {
		// bare annotation of an attribute or item
		if s.Value != nil {
			g.assignTo(s.Target, g.sub(s.Value, precAssign))
		}
		return
	}
	if id, ok := s.Target.(*frontend.Ident); ok {
		if attr, ok := g.classAttr(id); ok {
			if s.Value != nil {
				g.emit("%s = %s;", attr, g.sub(s.Value, precAssign))
			}
			return
		}
	}
	if redeclares(names) {
		// later declarations of a name rebind the first one
		g.exportLater(identNames(names)...)
		if s.Value != nil {
			g.assignTo(s.Target, g.sub(s.Value, precAssign))
		}
		return
	}

	kw := "const"
	if s.Mutable || s.Value == nil || rebound(names) {
		kw = "let"
	}
	prefix := g.exportPrefix(identNames(names)...)
	if s.Value == nil {
		g.emit("%s%s %s;", prefix, kw, g.target(s.Target))
		return
	}
	g.emit("%s%s %s = %s;", prefix, kw, g.target(s.Target), g.sub(s.Value, precAssign))
}

// exportLater lists names for the export statement at the end of the module
// when they belong to the declaration being exported
func (g *generator) exportLater(names ...string) {
	if g.export {
		g.export = false
		g.exports = append(g.exports, names...)
	}
}

// redeclares reports whether a name in a declaration was already declared
// elsewhere in the same scope
func redeclares(names []*frontend.Ident) bool {
	for _, id := range names {
		if sym := id.Sym; sym != nil && (sym.DeclLine != id.Line || sym.DeclCol != id.Col) {
			return true
		}
	}
	return false
}

func rebound(names []*frontend.Ident) bool {
	for _, id := range names {
		if id.Sym != nil && id.Sym.Rebound {
			return true
		}
	}
	return false
}

// exportPrefix returns "export " for the first line of an exported ESM
// declaration. Other exports are listed at the end of the module.
func (g *generator) exportPrefix(names ...string) string {
	if !g.export {
		return ""
	}
	g.export = false
	if g.opts.Format == ESM && g.indent == 0 {
		return "export "
	}
	g.exports = append(g.exports, names...)
	return ""
}

func identNames(ids []*frontend.Ident) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = jsName(id.Name)
	}
	return names
}

// leaves collects the names a target binds and reports whether names are
// all it contains
func leaves(t frontend.Expr) ([]*frontend.Ident, bool) {
	var ids []*frontend.Ident
	only := true
	var walk func(frontend.Expr)
	walk = func(t frontend.Expr) {
		switch t := t.(type) {
		case *frontend.Ident:
			ids = append(ids, t)
		case *frontend.TupleLit:
			for _, e := range t.Elts {
				walk(e)
			}
		case *frontend.ListLit:
			for _, e := range t.Elts {
				walk(e)
			}
		case *frontend.Spread:
			walk(t.X)
		case *frontend.RecordTarget:
			for _, f := range t.Fields {
				walk(f.Target)
			}
			if t.Rest != nil {
				ids = append(ids, t.Rest)
			}
		default:
			only = false
		}
	}
	walk(t)
	return ids, only
}

// classAttr renders the target of a class attribute assignment, which sets
// the attribute on the class and its prototype
func (g *generator) classAttr(id *frontend.Ident) (string, bool) {
	sym := id.Sym
	if sym == nil || sym.Kind != symbols.Variable || sym.Scope == nil || sym.Scope.Kind != symbols.ClassScope {
		return "", false
	}
	cls, ok := g.classes[sym.Scope]
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%s.%s = %s.prototype.%s", cls, id.Name, cls, id.Name), true
}

// assign lowers a = b = value. The value is evaluated once, before any
// target is assigned.
func (g *generator) assign(x *frontend.Assign) {
	targets := []frontend.Expr{x.Target}
	value := x.Value
	for {
		inner, ok := value.(*frontend.Assign)
		if !ok || inner.Op != frontend.ASSIGN {
			break
		}
		targets = append(targets, inner.Target)
		value = inner.Value
	}

	v := g.sub(value, precAssign)
	if len(targets) > 1 && !simple(value) {
		t := g.temp()
		g.emit("%s = %s;", t, v)
		v = t
	}
	for _, t := range targets {
		g.assignTo(t, v)
	}
}

func (g *generator) assignTo(target frontend.Expr, value string) {
	switch t := target.(type) {
	case *frontend.Ident:
		if attr, ok := g.classAttr(t); ok {
			g.emit("%s = %s;", attr, value)
			return
		}
		if isDecl(t) {
			g.emit("%slet %s = %s;", g.exportPrefix(jsName(t.Name)), jsName(t.Name), value)
			return
		}
		g.emit("%s = %s;", g.ident(t), value)
		return
	case *frontend.Slice:
		g.use("__pyx_setslice")
		g.emit("__pyx_setslice(%s, %s, %s, %s);", g.sub(t.X, precAssign), g.optional(t.Lo), g.optional(t.Hi), value)
		return
	}

	value = g.unpack(target, value)
	head := g.bindingHead(target)
	if strings.HasPrefix(head, "{") {
		g.emit("(%s = %s);", head, value)
		return
	}
	g.emit("%s = %s;", head, value)
}

// bindingHead renders a destructuring target for assignment, prefixed with
// let when every name in it is declared here. Names declared here next to
// names that already exist get a declaration of their own first.
func (g *generator) bindingHead(target frontend.Expr) string {
	ids, onlyNames := leaves(target)
	var decls []string
	for _, id := range ids {
		if isDecl(id) {
			decls = append(decls, jsName(id.Name))
		}
	}
	pattern := g.target(target)
	switch {
	case len(decls) == 0:
		return pattern
	case onlyNames && len(decls) == len(ids):
		return "let " + pattern
	}
	g.emit("let %s;", strings.Join(decls, ", "))
	return pattern
}

// unpack rearranges value for a sequence target whose starred element is
// not the last one
func (g *generator) unpack(target frontend.Expr, value string) string {
	elts := sequence(target)
	for i, e := range elts {
		if _, ok := e.(*frontend.Spread); ok && i < len(elts)-1 {
			g.use("__pyx_unpack")
			return fmt.Sprintf("__pyx_unpack(%s, %d, %d)", value, i, len(elts)-i-1)
		}
	}
	return value
}

func sequence(t frontend.Expr) []frontend.Expr {
	switch t := t.(type) {
	case *frontend.TupleLit:
		return t.Elts
	case *frontend.ListLit:
		return t.Elts
	}
	return nil
}

// target renders an assignment target without declaring anything
func (g *generator) target(x frontend.Expr) string {
	switch t := x.(type) {
	case *frontend.Ident:
		return g.ident(t)
	case *frontend.TupleLit, *frontend.ListLit:
		elts := sequence(t)
		parts := make([]string, len(elts))
		for i, e := range elts {
			if sp, ok := e.(*frontend.Spread); ok && i < len(elts)-1 {
				// the rest is gathered by __pyx_unpack
				parts[i] = g.target(sp.X)
				continue
			}
			parts[i] = g.target(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *frontend.Spread:
		return "..." + g.target(t.X)
	case *frontend.RecordTarget:
		parts := make([]string, 0, len(t.Fields)+1)
		for _, f := range t.Fields {
			inner := g.target(f.Target)
			if inner == f.Key {
				parts = append(parts, inner)
				continue
			}
			parts = append(parts, quoteKey(f.Key)+": "+inner)
		}
		if t.Rest != nil {
			parts = append(parts, "..."+g.ident(t.Rest))
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case *frontend.Index:
		if negativeLiteral(t.Index) && simple(t.X) {
			base := g.sub(t.X, precPostfix)
			return fmt.Sprintf("%s[%s.length - %s]", base, base, g.expr(t.Index.(*frontend.Unary).X))
		}
		return g.sub(t.X, precPostfix) + "[" + g.expr(t.Index) + "]"
	case *frontend.Member:
		return g.member(t)
	}
	g.fail(errors.Errorf("line %d: cannot assign to %T", x.Pos().Line, x))
	return "undefined"
}

func quoteKey(key string) string {
	if jsName(key) != key || !isIdentifier(key) {
		return quote(key)
	}
	return key
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

var compoundOps = map[frontend.TokenType]string{
	frontend.PLUS_EQ:    "+=",
	frontend.MINUS_EQ:   "-=",
	frontend.STAR_EQ:    "*=",
	frontend.SLASH_EQ:   "/=",
	frontend.PERCENT_EQ: "%=",
	frontend.POWER_EQ:   "**=",
	frontend.AMP_EQ:     "&=",
	frontend.PIPE_EQ:    "|=",
	frontend.CARET_EQ:   "^=",
	frontend.LSHIFT_EQ:  "<<=",
	frontend.RSHIFT_EQ:  ">>=",
}

func (g *generator) compound(x *frontend.Assign) {
	t := g.target(x.Target)
	switch x.Op {
	case frontend.DSLASH_EQ:
		g.emit("%s = Math.floor(%s / %s);", t, t, g.sub(x.Value, precMultiplicative+1))
		return
	case frontend.PLUS_EQ:
		if lit, ok := x.Value.(*frontend.ListLit); ok {
			g.emit("%s.push(%s);", t, g.list(lit.Elts))
			return
		}
		if isList(x.Target) || isList(x.Value) {
			g.emit("%s.push(...%s);", t, g.sub(x.Value, precAssign))
			return
		}
	case frontend.STAR_EQ:
		if isStr(x.Target) {
			g.emit("%s = %s.repeat(%s);", t, t, g.expr(x.Value))
			return
		}
	}
	op, ok := compoundOps[x.Op]
	if !ok {
		g.fail(errors.Errorf("line %d: unknown assignment operator %s", x.Line, x.Op))
		return
	}
	g.emit("%s %s %s;", t, op, g.sub(x.Value, precAssign))
}

func (g *generator) del(t frontend.Expr) {
	switch t := t.(type) {
	case *frontend.Index:
		g.use("__pyx_del")
		g.emit("__pyx_del(%s, %s);", g.sub(t.X, precAssign), g.sub(t.Index, precAssign))
	case *frontend.Member:
		g.emit("delete %s;", g.member(t))
	case *frontend.Slice:
		g.use("__pyx_setslice")
		g.emit("__pyx_setslice(%s, %s, %s, []);", g.sub(t.X, precAssign), g.optional(t.Lo), g.optional(t.Hi))
	case *frontend.TupleLit:
		for _, e := range t.Elts {
			g.del(e)
		}
	default:
		g.fail(errors.Errorf("line %d: cannot delete %T", t.Pos().Line, t))
	}
}

// Control flow

func (g *generator) ifStmt(s *frontend.If) {
	g.open("if (%s)", g.expr(s.Cond))
	g.stmts(s.Body)
	for _, c := range s.Elifs {
		cond := g.expr(c.Cond)
		g.reopen(c.Pos(), "else if (%s)", cond)
		g.stmts(c.Body)
	}
	if len(s.Else) > 0 {
		g.reopen(frontend.Span{}, "else")
		g.stmts(s.Else)
	}
	g.close("")
}

// loopElse prepares the flag recording a break out of a loop with an else
// clause
func (g *generator) loopElse(orelse []frontend.Stmt) string {
	if len(orelse) == 0 {
		return ""
	}
	flag := g.temp()
	g.emit("%s = false;", flag)
	return flag
}

func (g *generator) loopBody(flag string, body []frontend.Stmt) {
	g.fn.loops = append(g.fn.loops, &loopState{flag: flag})
	g.stmts(body)
	g.fn.loops = g.fn.loops[:len(g.fn.loops)-1]
	g.close("")
}

func (g *generator) loopEnd(flag string, orelse []frontend.Stmt) {
	if flag == "" {
		return
	}
	g.open("if (!%s)", flag)
	g.stmts(orelse)
	g.close("")
}

func (g *generator) whileStmt(s *frontend.While) {
	flag := g.loopElse(s.Else)
	g.cur = s.Pos()
	g.open("while (%s)", g.expr(s.Cond))
	g.loopBody(flag, s.Body)
	g.loopEnd(flag, s.Else)
}

func (g *generator) forStmt(s *frontend.For) {
	flag := g.loopElse(s.Else)
	g.cur = s.Pos()
	iter := g.sub(s.Iter, precAssign)
	if !s.Async && !staticIterable(s.Iter) {
		g.use("__pyx_iterable")
		iter = "__pyx_iterable(" + iter + ")"
	}
	head := g.bindingHead(s.Target)
	kw := "for"
	if s.Async {
		kw = "for await"
	}
	g.open("%s (%s of %s)", kw, head, iter)
	g.loopBody(flag, s.Body)
	g.loopEnd(flag, s.Else)
}

var iterableBuiltins = map[string]bool{
	"range": true, "enumerate": true, "zip": true, "sorted": true, "reversed": true,
	"list": true, "tuple": true, "set": true, "map": true, "filter": true, "iter": true,
}

// staticIterable reports whether x is known to be a JS iterable, so for
// loops can skip the run-time check
func staticIterable(x frontend.Expr) bool {
	switch x := x.(type) {
	case *frontend.ListLit, *frontend.TupleLit, *frontend.SetLit, *frontend.StringLit, *frontend.FString, *frontend.Comprehension:
		return true
	case *frontend.Call:
		if name, ok := builtinIdent(x.Func); ok {
			return iterableBuiltins[name]
		}
		if m, ok := x.Func.(*frontend.Member); ok {
			switch m.Name {
			case "items", "keys", "values":
				return true
			}
		}
		return false
	}
	switch declaredKind(x) {
	case types.List, types.Str, types.Tuple, types.Set:
		return true
	}
	return false
}

func (g *generator) raise(s *frontend.Raise) {
	if s.Exc == nil {
		if n := len(g.fn.caught); n > 0 {
			g.emit("throw %s;", g.fn.caught[n-1])
			return
		}
		g.use("RuntimeError")
		g.emit(`throw new RuntimeError("No active exception to reraise");`)
		return
	}
	exc := g.sub(s.Exc, precAssign)
	switch s.Exc.(type) {
	case *frontend.Ident, *frontend.Member:
		if g.constructs(s.Exc) {
			exc = "new " + g.sub(s.Exc, precPostfix) + "()"
		}
	}
	if s.Cause != nil {
		g.use("__pyx_chain")
		exc = "__pyx_chain(" + exc + ", " + g.sub(s.Cause, precAssign) + ")"
	}
	g.emit("throw %s;", exc)
}

// tryStmt lowers try/except to one catch clause dispatching on instanceof.
// An else clause runs after the body completes, outside the handlers but
// inside finally.
func (g *generator) tryStmt(s *frontend.Try) {
	if len(s.Handlers) == 0 {
		g.open("try")
		g.stmts(s.Body)
		g.stmts(s.Else)
		g.finally(s.Finally)
		return
	}

	var done string
	if len(s.Else) > 0 {
		done = g.temp()
		g.emit("%s = false;", done)
	}
	nested := done != "" && len(s.Finally) > 0
	if nested {
		g.open("try")
	}

	g.cur = s.Pos()
	g.open("try")
	g.stmts(s.Body)
	if done != "" {
		g.emit("%s = true;", done)
	}
	g.handlers(s.Handlers)
	if !nested {
		g.finally(s.Finally)
	} else {
		g.close("")
	}

	if done != "" {
		g.open("if (%s)", done)
		g.stmts(s.Else)
		g.close("")
	}
	if nested {
		g.finally(s.Finally)
	}
}

func (g *generator) finally(body []frontend.Stmt) {
	if len(body) > 0 {
		g.reopen(frontend.Span{}, "finally")
		g.stmts(body)
	}
	g.close("")
}

// handlers writes the catch clause; the current block is the try body
func (g *generator) handlers(hs []*frontend.ExceptHandler) {
	e := g.fresh("e")
	g.reopen(frontend.Span{}, "catch (%s)", e)
	g.fn.caught = append(g.fn.caught, e)
	defer func() { g.fn.caught = g.fn.caught[:len(g.fn.caught)-1] }()

	if hs[0].Type == nil {
		g.handlerBody(hs[0], e)
		return
	}
	caughtAll := false
	for i, h := range hs {
		switch {
		case h.Type == nil:
			g.reopen(h.Pos(), "else")
			caughtAll = true
		case i == 0:
			g.cur = h.Pos()
			g.open("if (%s)", g.exceptTest(e, h.Type))
		default:
			test := g.exceptTest(e, h.Type)
			g.reopen(h.Pos(), "else if (%s)", test)
		}
		g.handlerBody(h, e)
		if caughtAll {
			break
		}
	}
	if !caughtAll {
		g.reopen(frontend.Span{}, "else")
		g.emit("throw %s;", e)
	}
	g.close("")
}

func (g *generator) exceptTest(e string, typ frontend.Expr) string {
	tuple, ok := typ.(*frontend.TupleLit)
	if !ok {
		s, _ := g.typeTest(e, typ)
		return s
	}
	parts := make([]string, len(tuple.Elts))
	for i, elt := range tuple.Elts {
		s, prec := g.typeTest(e, elt)
		parts[i] = paren(s, prec, precOr+1)
	}
	return strings.Join(parts, " || ")
}

func (g *generator) handlerBody(h *frontend.ExceptHandler, e string) {
	if h.Name != "" {
		g.cur = h.Pos()
		g.emit("let %s = %s;", jsName(h.Name), e)
	}
	g.stmts(h.Body)
}

// withItems nests one try/finally per context manager so every entered
// manager is exited on all paths
func (g *generator) withItems(s *frontend.With, i int) {
	if i == len(s.Items) {
		g.stmts(s.Body)
		return
	}
	item := s.Items[i]
	ctx := g.fresh("ctx")
	g.use("__pyx_enter")
	g.use("__pyx_exit")

	g.cur = item.Pos()
	g.open("")
	g.emit("const %s = %s;", ctx, g.sub(item.Context, precAssign))
	enter := "__pyx_enter(" + ctx + ")"
	if item.Target != nil {
		g.assignTo(item.Target, enter)
	} else {
		g.emit("%s;", enter)
	}
	g.open("try")
	g.withItems(s, i+1)
	g.reopen(frontend.Span{}, "finally")
	g.emit("__pyx_exit(%s);", ctx)
	g.close("")
	g.close("")
}
