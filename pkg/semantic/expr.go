package semantic

import (
	"github.com/GriffinCanCode/pyxis-compiler/pkg/diag"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/frontend"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/symbols"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/types"
)

func (v *validator) exprs(xs []frontend.Expr) {
	for _, x := range xs {
		v.expr(x)
	}
}

func (v *validator) expr(x frontend.Expr) {
	switch x := x.(type) {
	case nil:
	case *frontend.Ident:
		v.use(x)
	case *frontend.IntLit, *frontend.FloatLit, *frontend.StringLit, *frontend.BoolLit, *frontend.NoneLit:
	case *frontend.FString:
		for _, part := range x.Parts {
			if part.X != nil {
				v.expr(part.X)
			}
		}
	case *frontend.Binary:
		v.expr(x.X)
		v.expr(x.Y)
	case *frontend.Unary:
		v.expr(x.X)
	case *frontend.Compare:
		v.expr(x.X)
		v.exprs(x.Ys)
	case *frontend.Call:
		v.expr(x.Func)
		v.exprs(x.Args)
	case *frontend.Member:
		v.expr(x.X)
	case *frontend.Index:
		v.expr(x.X)
		v.expr(x.Index)
	case *frontend.Slice:
		v.expr(x.X)
		v.expr(x.Lo)
		v.expr(x.Hi)
		v.expr(x.Step)
	case *frontend.Lambda:
		v.lambda(x)
	case *frontend.Comprehension:
		v.comprehension(x)
	case *frontend.Ternary:
		v.expr(x.Cond)
		v.expr(x.Then)
		v.expr(x.Else)
	case *frontend.Await:
		if !v.fn.async {
			v.errorf(x, diag.CodeAwaitOutsideAsync, "'await' outside async function")
		}
		v.expr(x.X)
	case *frontend.Spread:
		v.expr(x.X)
	case *frontend.ListLit:
		v.exprs(x.Elts)
	case *frontend.TupleLit:
		v.exprs(x.Elts)
	case *frontend.SetLit:
		v.exprs(x.Elts)
	case *frontend.DictLit:
		for _, e := range x.Entries {
			v.expr(e.Key)
			v.expr(e.Value)
		}
	case *frontend.Assign:
		v.assign(x)
	case *frontend.RecordTarget:
		v.errorf(x, diag.CodeInvalidTarget, "record pattern is only valid as an assignment target")
	}
}

func (v *validator) lambda(x *frontend.Lambda) {
	for _, p := range x.Params {
		if p.Default != nil {
			v.expr(p.Default)
		}
	}
	v.later(func() {
		x.Scope = v.push(symbols.FunctionScope)
		v.fn = &funcCtx{scope: x.Scope}
		v.params(x.Params, false)
		v.expr(x.Body)
		v.flush()
	})
}

// comprehension binds its targets in a scope of its own. The first iterable
// is evaluated before any target exists.
func (v *validator) comprehension(x *frontend.Comprehension) {
	v.push(symbols.ComprehensionScope)
	for _, c := range x.Clauses {
		if c.Async && !v.fn.async {
			v.errorf(c, diag.CodeAwaitOutsideAsync, "asynchronous comprehension outside async function")
		}
		v.expr(c.Iter)
		for _, id := range v.targetIdents(c.Target) {
			sym := &symbols.Symbol{Name: id.Name, Kind: symbols.Variable, Mutable: true, DeclLine: id.Line, DeclCol: id.Col}
			if prev, ok := v.scope.Declare(sym); !ok {
				sym = prev
			}
			id.Sym = sym
			sym.Use(id.Line)
		}
		v.exprs(c.Ifs)
	}
	v.expr(x.Key)
	v.expr(x.Elt)
	v.pop()
}

// Assignment

func (v *validator) assign(x *frontend.Assign) {
	v.expr(x.Value)

	switch x.Op {
	case frontend.ASSIGN:
		var declared *types.Type
		if x.Annotation != nil {
			declared = annotationType(x.Annotation)
			v.checkType(x.Value, declared, "assigned value")
		}
		x.Declares = v.assignTargets(x.Target, declared)
	case frontend.WALRUS:
		v.walrus(x.Target.(*frontend.Ident))
	default:
		// compound assignment reads the target first
		if id, ok := x.Target.(*frontend.Ident); ok {
			v.use(id)
			if id.Sym != nil && !assignable(id.Sym) {
				v.errorf(id, diag.CodeAssignImmutable, "cannot assign to %s %q", describeSym(id.Sym), id.Name)
			}
			return
		}
		v.expr(x.Target)
	}
}

// assignTargets binds every name in target and reports whether all of them
// are new declarations at the current position
func (v *validator) assignTargets(target frontend.Expr, declared *types.Type) bool {
	all := true
	for _, id := range v.targetIdents(target) {
		if !v.assignName(id, declared) {
			all = false
		}
	}
	return all
}

// assignName binds id as a plain assignment. A name already bound in the
// current function is reassigned; anything else declares a new variable in
// the nearest function, class or module scope.
func (v *validator) assignName(id *frontend.Ident, declared *types.Type) bool {
	if sym := v.lookupFunction(id.Name); sym != nil {
		id.Sym = sym
		if !assignable(sym) {
			v.errorf(id, diag.CodeAssignImmutable, "cannot assign to %s %q", describeSym(sym), id.Name)
		}
		return false
	}

	scope := v.declarationScope()
	sym := &symbols.Symbol{
		Name:         id.Name,
		Kind:         symbols.Variable,
		Mutable:      true,
		DeclaredType: declared,
		DeclLine:     id.Line,
		DeclCol:      id.Col,
		Hoisted:      scope != v.scope,
	}
	scope.Declare(sym)
	id.Sym = sym
	return !sym.Hoisted
}

// bindTargets binds loop and context-manager targets the way assignment
// does, so the names outlive the statement that binds them
func (v *validator) bindTargets(target frontend.Expr) {
	for _, id := range v.targetIdents(target) {
		if sym := v.lookupFunction(id.Name); sym != nil {
			id.Sym = sym
			if !assignable(sym) {
				v.errorf(id, diag.CodeAssignImmutable, "cannot assign to %s %q", describeSym(sym), id.Name)
			}
			continue
		}
		scope := v.bindingScope()
		sym := &symbols.Symbol{Name: id.Name, Kind: symbols.Variable, Mutable: true, DeclLine: id.Line, DeclCol: id.Col, Hoisted: scope != v.scope}
		scope.Declare(sym)
		id.Sym = sym
	}
}

// walrus binds in the enclosing function, never in a comprehension. The
// variable is always hoisted since it is bound inside an expression.
func (v *validator) walrus(id *frontend.Ident) {
	for sc := v.scope; sc != nil; sc = sc.Parent {
		if sym := sc.LookupLocal(id.Name); sym != nil {
			id.Sym = sym
			if !assignable(sym) {
				v.errorf(id, diag.CodeAssignImmutable, "cannot assign to %s %q", describeSym(sym), id.Name)
			}
			return
		}
		if sc == v.fn.scope {
			break
		}
	}
	sym := &symbols.Symbol{Name: id.Name, Kind: symbols.Variable, Mutable: true, DeclLine: id.Line, DeclCol: id.Col, Hoisted: true}
	v.fn.scope.Declare(sym)
	id.Sym = sym
}

// lookupFunction resolves name without leaving the current function, class
// body or module
func (v *validator) lookupFunction(name string) *symbols.Symbol {
	for sc := v.scope; sc != nil; sc = sc.Parent {
		if sym := sc.LookupLocal(name); sym != nil {
			return sym
		}
		switch sc.Kind {
		case symbols.FunctionScope, symbols.ModuleScope, symbols.ClassScope:
			return nil
		}
	}
	return nil
}

func (v *validator) declarationScope() *symbols.Scope {
	for sc := v.scope; sc != nil; sc = sc.Parent {
		switch sc.Kind {
		case symbols.FunctionScope, symbols.ModuleScope, symbols.ClassScope:
			return sc
		}
	}
	return v.scope
}

// bindingScope is where a name bound without a declaration site of its own
// lives. Class bodies keep such names in the current block.
func (v *validator) bindingScope() *symbols.Scope {
	if sc := v.declarationScope(); sc.Kind != symbols.ClassScope {
		return sc
	}
	return v.scope
}

func assignable(sym *symbols.Symbol) bool {
	switch sym.Kind {
	case symbols.Parameter:
		return true
	case symbols.Variable:
		return sym.Mutable
	}
	return false
}

func describeSym(sym *symbols.Symbol) string {
	if sym.Kind == symbols.Variable && !sym.Mutable {
		return "immutable binding"
	}
	return sym.Kind.String()
}

// targetIdents collects the names bound by a target, walks the expressions
// it assigns into (attributes, items) and checks for repeated starred
// elements
func (v *validator) targetIdents(target frontend.Expr) []*frontend.Ident {
	var ids []*frontend.Ident
	walkTargets(target, func(id *frontend.Ident) {
		ids = append(ids, id)
	}, func(x frontend.Expr) {
		v.expr(x)
	})
	v.checkStars(target)
	return ids
}

// walkTargets visits the names of a target with ident and every other leaf
// with other
func walkTargets(t frontend.Expr, ident func(*frontend.Ident), other func(frontend.Expr)) {
	switch t := t.(type) {
	case *frontend.Ident:
		ident(t)
	case *frontend.TupleLit:
		for _, e := range t.Elts {
			walkTargets(e, ident, other)
		}
	case *frontend.ListLit:
		for _, e := range t.Elts {
			walkTargets(e, ident, other)
		}
	case *frontend.Spread:
		walkTargets(t.X, ident, other)
	case *frontend.RecordTarget:
		for _, f := range t.Fields {
			walkTargets(f.Target, ident, other)
		}
		if t.Rest != nil {
			ident(t.Rest)
		}
	case *frontend.Assign:
		// a = b = c is handled by walking the outer chain only
		walkTargets(t.Target, ident, other)
	default:
		if other != nil && t != nil {
			other(t)
		}
	}
}

func (v *validator) checkStars(t frontend.Expr) {
	var elts []frontend.Expr
	switch t := t.(type) {
	case *frontend.TupleLit:
		elts = t.Elts
	case *frontend.ListLit:
		elts = t.Elts
	default:
		return
	}
	stars := 0
	for _, e := range elts {
		if _, ok := e.(*frontend.Spread); ok {
			stars++
			if stars == 2 {
				v.errorf(e, diag.CodeMultipleStarred, "multiple starred expressions in assignment")
			}
		}
		v.checkStars(e)
	}
}
