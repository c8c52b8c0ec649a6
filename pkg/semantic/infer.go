package semantic

import (
	"github.com/GriffinCanCode/pyxis-compiler/pkg/frontend"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/symbols"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/types"
)

var arithmeticOps = map[frontend.TokenType]string{
	frontend.PLUS:    "+",
	frontend.MINUS:   "-",
	frontend.STAR:    "*",
	frontend.SLASH:   "/",
	frontend.DSLASH:  "//",
	frontend.PERCENT: "%",
	frontend.POWER:   "**",
}

// builtinResults are the result types of builtin conversions
var builtinResults = map[string]*types.Type{
	"str":   types.StrType,
	"repr":  types.StrType,
	"int":   types.IntType,
	"len":   types.IntType,
	"ord":   types.IntType,
	"float": types.FloatType,
	"bool":  types.BoolType,
	"list":  types.ListType,
	"dict":  types.DictType,
	"set":   types.SetType,
	"tuple": types.TupleType,
}

// infer returns the kind of x as far as it can be known without running it
func (v *validator) infer(x frontend.Expr) *types.Type {
	switch x := x.(type) {
	case *frontend.IntLit:
		return types.IntType
	case *frontend.FloatLit:
		return types.FloatType
	case *frontend.StringLit, *frontend.FString:
		return types.StrType
	case *frontend.BoolLit, *frontend.Compare:
		return types.BoolType
	case *frontend.NoneLit:
		return types.NoneType
	case *frontend.ListLit:
		return types.ListType
	case *frontend.TupleLit:
		return types.TupleType
	case *frontend.DictLit:
		return types.DictType
	case *frontend.SetLit:
		return types.SetType
	case *frontend.Lambda:
		return types.FuncType
	case *frontend.Comprehension:
		switch x.Kind {
		case frontend.ListComp:
			return types.ListType
		case frontend.DictComp:
			return types.DictType
		case frontend.SetComp:
			return types.SetType
		}
	case *frontend.Ident:
		if x.Sym != nil && x.Sym.DeclaredType != nil {
			return x.Sym.DeclaredType
		}
	case *frontend.Unary:
		switch x.Op {
		case frontend.NOT:
			return types.BoolType
		case frontend.MINUS, frontend.PLUS:
			t := v.infer(x.X)
			if t.Kind == types.Int || t.Kind == types.Float {
				return t
			}
		}
	case *frontend.Binary:
		if op, ok := arithmeticOps[x.Op]; ok {
			t := types.Arithmetic(op, v.infer(x.X), v.infer(x.Y))
			if op == "//" && t.Kind == types.Float {
				return types.IntType
			}
			return t
		}
	case *frontend.Ternary:
		a, b := v.infer(x.Then), v.infer(x.Else)
		if a.IsKnown() && b.IsKnown() {
			if a.Kind == b.Kind {
				return a
			}
			return types.NewUnion(a, b)
		}
	case *frontend.Call:
		return v.inferCall(x)
	}
	return types.UnknownType
}

func (v *validator) inferCall(x *frontend.Call) *types.Type {
	id, ok := x.Func.(*frontend.Ident)
	if !ok || id.Sym == nil {
		return types.UnknownType
	}
	switch id.Sym.Kind {
	case symbols.Builtin:
		if t, ok := builtinResults[id.Name]; ok {
			return t
		}
	case symbols.Class:
		return &types.Type{Kind: types.Named, Name: id.Name}
	}
	return types.UnknownType
}

// annotationType converts an annotation expression into a type. Anything it
// does not recognize becomes unknown and is never checked.
func annotationType(x frontend.Expr) *types.Type {
	switch x := x.(type) {
	case *frontend.Ident:
		return types.FromName(x.Name, nil)
	case *frontend.NoneLit:
		return types.NoneType
	case *frontend.StringLit:
		return types.FromName(x.Value, nil)
	case *frontend.Member:
		return types.FromName(x.Name, nil)
	case *frontend.Index:
		var args []*types.Type
		if tup, ok := x.Index.(*frontend.TupleLit); ok {
			for _, e := range tup.Elts {
				args = append(args, annotationType(e))
			}
		} else {
			args = []*types.Type{annotationType(x.Index)}
		}
		switch base := x.X.(type) {
		case *frontend.Ident:
			return types.FromName(base.Name, args)
		case *frontend.Member:
			return types.FromName(base.Name, args)
		}
	case *frontend.Binary:
		if x.Op == frontend.PIPE {
			return types.NewUnion(annotationType(x.X), annotationType(x.Y))
		}
	}
	return types.UnknownType
}
