// Package semantic checks a parsed module and annotates it for code generation.
//
// Design: One top-down, left-to-right walk with an explicit scope stack.
// Function and lambda bodies are queued and walked after the enclosing body,
// so a function may call another that is defined further down. The walk only
// reports; it never rejects a program.
package semantic

import (
	"strings"

	"github.com/GriffinCanCode/pyxis-compiler/pkg/diag"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/frontend"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/logger"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/stdlib"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/symbols"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/types"
)

// Options tunes the checks
type Options struct {
	// StrictTypes turns annotation mismatches into errors
	StrictTypes bool
	// Globals are extra names provided by the host environment
	Globals []string
}

// funcCtx is the state of the innermost function being walked
type funcCtx struct {
	def     *frontend.FuncDef // nil for the module and lambdas
	scope   *symbols.Scope
	async   bool
	returns *types.Type
	loops   int
	pending []func()
}

// positioned is anything carrying a source span, nodes and their parts
type positioned interface {
	Pos() frontend.Span
}

type validator struct {
	opts  Options
	diags *diag.List
	mod   *frontend.Module

	scope     *symbols.Scope
	fn        *funcCtx
	undefined map[string]bool
}

// Validate walks mod, fills its annotation fields and returns diagnostics
func Validate(mod *frontend.Module, opts Options) []diag.Diagnostic {
	v := &validator{
		opts:      opts,
		diags:     diag.NewList(diag.Validate),
		mod:       mod,
		undefined: make(map[string]bool),
	}
	v.module()
	logger.Debug("Validated module", "scopes", mod.Scope.Count(), "diagnostics", v.diags.Len())
	return v.diags.Items()
}

func (v *validator) module() {
	builtin := symbols.NewScope(symbols.BuiltinScope, nil)
	for _, name := range stdlib.BuiltinNames() {
		builtin.Declare(&symbols.Symbol{Name: name, Kind: symbols.Builtin})
	}
	for _, name := range v.opts.Globals {
		builtin.Declare(&symbols.Symbol{Name: name, Kind: symbols.Builtin})
	}

	v.scope = symbols.NewScope(symbols.ModuleScope, builtin)
	v.mod.Scope = v.scope
	v.mod.Types = make(map[frontend.Expr]*types.Type)
	v.fn = &funcCtx{scope: v.scope}

	v.stmts(v.mod.Body)
	v.flush()
	v.reportUnused()
}

// flush walks the queued bodies of the current function context
func (v *validator) flush() {
	for len(v.fn.pending) > 0 {
		next := v.fn.pending[0]
		v.fn.pending = v.fn.pending[1:]
		next()
	}
}

// later queues work to run in the current scope once the enclosing body has
// been walked
func (v *validator) later(fn func()) {
	scope, ctx := v.scope, v.fn
	ctx.pending = append(ctx.pending, func() {
		savedScope, savedFn := v.scope, v.fn
		v.scope, v.fn = scope, ctx
		fn()
		v.scope, v.fn = savedScope, savedFn
	})
}

func (v *validator) push(kind symbols.ScopeKind) *symbols.Scope {
	v.scope = symbols.NewScope(kind, v.scope)
	return v.scope
}

func (v *validator) pop() {
	v.scope = v.scope.Parent
}

func (v *validator) errorf(n positioned, code, format string, args ...any) {
	s := n.Pos()
	v.diags.Errorf(s.Line, s.Col, code, format, args...)
}

func (v *validator) warnf(n positioned, code, format string, args ...any) {
	s := n.Pos()
	v.diags.Warnf(s.Line, s.Col, code, format, args...)
}

// Statements

func (v *validator) stmts(body []frontend.Stmt) {
	for _, s := range body {
		v.stmt(s)
	}
}

// block walks body in a fresh block scope
func (v *validator) block(body []frontend.Stmt) {
	v.push(symbols.BlockScope)
	v.stmts(body)
	v.pop()
}

func (v *validator) stmt(s frontend.Stmt) {
	switch s := s.(type) {
	case *frontend.FuncDef:
		v.funcDef(s, false)
	case *frontend.ClassDef:
		v.classDef(s)
	case *frontend.VarDecl:
		v.varDecl(s)
	case *frontend.If:
		v.expr(s.Cond)
		v.block(s.Body)
		for _, c := range s.Elifs {
			v.expr(c.Cond)
			v.block(c.Body)
		}
		v.block(s.Else)
	case *frontend.For:
		v.forStmt(s)
	case *frontend.While:
		v.expr(s.Cond)
		v.fn.loops++
		v.block(s.Body)
		v.fn.loops--
		v.block(s.Else)
	case *frontend.Match:
		v.match(s)
	case *frontend.Try:
		v.tryStmt(s)
	case *frontend.With:
		v.push(symbols.BlockScope)
		for _, item := range s.Items {
			v.expr(item.Context)
			if item.Target != nil {
				v.bindTargets(item.Target)
			}
		}
		v.stmts(s.Body)
		v.pop()
	case *frontend.Import:
		v.importStmt(s)
	case *frontend.Export:
		v.export(s)
	case *frontend.Return:
		if v.fn.def == nil {
			v.errorf(s, diag.CodeOutsideFunction, "'return' outside function")
		}
		if s.Value != nil {
			v.expr(s.Value)
			if v.fn.returns != nil {
				v.checkType(s.Value, v.fn.returns, "return value")
			}
		}
	case *frontend.Yield:
		if v.fn.def == nil {
			v.errorf(s, diag.CodeOutsideFunction, "'yield' outside function")
		} else {
			v.fn.def.Generator = true
		}
		if s.Value != nil {
			v.expr(s.Value)
		}
	case *frontend.Raise:
		if s.Exc != nil {
			v.expr(s.Exc)
		}
		if s.Cause != nil {
			v.expr(s.Cause)
		}
	case *frontend.Break:
		if v.fn.loops == 0 {
			v.errorf(s, diag.CodeOutsideLoop, "'break' outside loop")
		}
	case *frontend.Continue:
		if v.fn.loops == 0 {
			v.errorf(s, diag.CodeOutsideLoop, "'continue' not properly in loop")
		}
	case *frontend.Assert:
		v.expr(s.Test)
		if s.Msg != nil {
			v.expr(s.Msg)
		}
	case *frontend.Del:
		for _, t := range s.Targets {
			if _, ok := t.(*frontend.Ident); ok {
				v.errorf(t, diag.CodeDeleteName, "cannot delete a plain name; only attributes and items can be deleted")
				continue
			}
			v.expr(t)
		}
	case *frontend.ExprStmt:
		v.expr(s.X)
	case *frontend.Pass, *frontend.ErrorStmt:
	}
}

func (v *validator) funcDef(s *frontend.FuncDef, method bool) {
	for _, d := range s.Decorators {
		v.expr(d)
	}

	sym := &symbols.Symbol{Name: s.Name, Kind: symbols.Function, DeclLine: s.Line, DeclCol: s.Col}
	s.Sym = v.declare(s, sym)
	s.Method = method

	// defaults are evaluated where the function is defined
	for _, p := range s.Params {
		if p.Default != nil {
			v.expr(p.Default)
		}
	}

	v.later(func() {
		ctx := &funcCtx{def: s, async: s.Async}
		if s.Returns != nil {
			ctx.returns = annotationType(s.Returns)
		}
		scope := v.push(symbols.FunctionScope)
		scope.Async = s.Async
		s.Scope = scope
		ctx.scope = scope
		v.fn = ctx

		v.params(s.Params, method && !hasDecorator(s, "staticmethod"))
		v.stmts(s.Body)
		v.flush()
	})
}

func hasDecorator(s *frontend.FuncDef, name string) bool {
	for _, d := range s.Decorators {
		if id, ok := d.(*frontend.Ident); ok && id.Name == name {
			return true
		}
	}
	return false
}

func (v *validator) params(params []*frontend.Param, receiver bool) {
	for i, p := range params {
		sym := &symbols.Symbol{
			Name:     p.Name,
			Kind:     symbols.Parameter,
			Mutable:  true,
			DeclLine: p.Line,
			DeclCol:  p.Col,
			IsSelf:   receiver && i == 0,
		}
		if p.Annotation != nil {
			sym.DeclaredType = annotationType(p.Annotation)
			if p.Default != nil {
				v.checkType(p.Default, sym.DeclaredType, "default value of "+p.Name)
			}
		}
		if _, ok := v.scope.Declare(sym); !ok {
			v.errorf(p, diag.CodeDuplicateParam, "duplicate parameter %q", p.Name)
			p.Sym = v.scope.LookupLocal(p.Name)
			continue
		}
		p.Sym = sym
	}
}

func (v *validator) classDef(s *frontend.ClassDef) {
	for _, d := range s.Decorators {
		v.expr(d)
	}
	for _, b := range s.Bases {
		v.expr(b)
	}
	sym := &symbols.Symbol{Name: s.Name, Kind: symbols.Class, DeclLine: s.Line, DeclCol: s.Col}
	s.Sym = v.declare(s, sym)

	s.Scope = v.push(symbols.ClassScope)
	for _, st := range s.Body {
		if fd, ok := st.(*frontend.FuncDef); ok {
			v.funcDef(fd, true)
			continue
		}
		v.stmt(st)
	}
	v.pop()
}

// declare adds an immutable definition (def, class) to the current scope
func (v *validator) declare(n positioned, sym *symbols.Symbol) *symbols.Symbol {
	if prev, ok := v.scope.Declare(sym); !ok {
		v.errorf(n, diag.CodeRedeclared, "%q is already declared at line %d", sym.Name, prev.DeclLine)
		return prev
	}
	return sym
}

func (v *validator) varDecl(s *frontend.VarDecl) {
	if s.Value != nil {
		v.expr(s.Value)
	}
	var declared *types.Type
	if s.Annotation != nil {
		declared = annotationType(s.Annotation)
		if s.Value != nil {
			v.checkType(s.Value, declared, "initializer")
		}
	}

	for _, id := range v.targetIdents(s.Target) {
		sym := &symbols.Symbol{
			Name:         id.Name,
			Kind:         symbols.Variable,
			Mutable:      s.Mutable,
			DeclaredType: declared,
			DeclLine:     id.Line,
			DeclCol:      id.Col,
		}
		prev, ok := v.scope.Declare(sym)
		if ok {
			id.Sym = sym
			continue
		}
		id.Sym = prev
		prev.Rebound = true
		switch {
		case s.Mutable && prev.Mutable && prev.Kind == symbols.Variable:
			v.warnf(id, diag.CodeRedeclaredVar, "%q is redeclared; it was declared at line %d", id.Name, prev.DeclLine)
		default:
			v.errorf(id, diag.CodeRedeclared, "%q is already declared at line %d", id.Name, prev.DeclLine)
		}
	}
}

func (v *validator) forStmt(s *frontend.For) {
	v.expr(s.Iter)
	if s.Async && !v.fn.async {
		v.errorf(s, diag.CodeAwaitOutsideAsync, "'async for' outside async function")
	}
	v.push(symbols.BlockScope)
	v.bindTargets(s.Target)
	v.fn.loops++
	v.stmts(s.Body)
	v.fn.loops--
	v.pop()
	v.block(s.Else)
}

func (v *validator) tryStmt(s *frontend.Try) {
	v.block(s.Body)
	for _, h := range s.Handlers {
		if h.Type != nil {
			v.expr(h.Type)
		}
		v.push(symbols.BlockScope)
		if h.Name != "" {
			sym := &symbols.Symbol{Name: h.Name, Kind: symbols.Variable, Mutable: true, DeclLine: h.Line, DeclCol: h.Col}
			v.scope.Declare(sym)
			h.Sym = sym
		}
		v.stmts(h.Body)
		v.pop()
	}
	v.block(s.Else)
	v.block(s.Finally)
}

func (v *validator) importStmt(s *frontend.Import) {
	if !s.From {
		sym := &symbols.Symbol{Name: s.Binding(), Kind: symbols.Import, DeclLine: s.Line, DeclCol: s.Col}
		s.Sym = v.declare(s, sym)
		return
	}
	for _, n := range s.Names {
		sym := &symbols.Symbol{Name: n.Binding(), Kind: symbols.Import, DeclLine: n.Line, DeclCol: n.Col}
		n.Sym = v.declare(n, sym)
	}
}

func (v *validator) export(s *frontend.Export) {
	if s.Decl != nil {
		v.stmt(s.Decl)
		for _, name := range declaredNames(s.Decl) {
			if sym := v.scope.LookupLocal(name); sym != nil {
				sym.Exported = true
			}
		}
		return
	}
	for _, id := range s.Names {
		// exported names may be defined further down
		id := id
		v.later(func() {
			sym := v.scope.LookupLocal(id.Name)
			if sym == nil {
				v.warnf(id, diag.CodeUndefinedName, "exported name %q is not defined", id.Name)
				return
			}
			sym.Exported = true
			id.Sym = sym
		})
	}
}

// declaredNames lists the names a declaration binds
func declaredNames(s frontend.Stmt) []string {
	switch s := s.(type) {
	case *frontend.FuncDef:
		return []string{s.Name}
	case *frontend.ClassDef:
		return []string{s.Name}
	case *frontend.VarDecl:
		var names []string
		walkTargets(s.Target, func(id *frontend.Ident) { names = append(names, id.Name) }, nil)
		return names
	}
	return nil
}

// resolve looks a name up the scope chain. Class bodies are only visible
// from directly inside them, never from their methods.
func (v *validator) resolve(name string) *symbols.Symbol {
	for sc := v.scope; sc != nil; sc = sc.Parent {
		if sc.Kind == symbols.ClassScope && sc != v.scope {
			continue
		}
		if sym := sc.LookupLocal(name); sym != nil {
			return sym
		}
	}
	return nil
}

func (v *validator) use(id *frontend.Ident) {
	sym := v.resolve(id.Name)
	if sym == nil {
		if !v.undefined[id.Name] {
			v.undefined[id.Name] = true
			v.warnf(id, diag.CodeUndefinedName, "undefined name %q", id.Name)
		}
		return
	}
	sym.Use(id.Line)
	id.Sym = sym
}

func (v *validator) checkType(x frontend.Expr, declared *types.Type, what string) {
	actual := v.infer(x)
	v.mod.Types[x] = actual
	if types.Assignable(declared, actual) {
		return
	}
	if v.opts.StrictTypes {
		v.errorf(x, diag.CodeTypeMismatchError, "type mismatch: %s is %s, expected %s", what, actual, declared)
		return
	}
	v.warnf(x, diag.CodeTypeMismatch, "type mismatch: %s is %s, expected %s", what, actual, declared)
}

func (v *validator) reportUnused() {
	v.mod.Scope.Walk(func(sc *symbols.Scope) {
		for _, sym := range sc.Symbols() {
			if sym.Uses > 0 || sym.Exported || strings.HasPrefix(sym.Name, "_") {
				continue
			}
			switch {
			case sym.Kind == symbols.Import:
			case sym.Kind == symbols.Variable && sc.Kind != symbols.ModuleScope && sc.Kind != symbols.ClassScope:
			default:
				continue
			}
			what := "local variable"
			if sym.Kind == symbols.Import {
				what = "import"
			}
			v.diags.Warnf(sym.DeclLine, sym.DeclCol, diag.CodeUnused, "%s %q is never used", what, sym.Name)
		}
	})
}
