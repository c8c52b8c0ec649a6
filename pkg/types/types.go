// Package types implements the small annotation lattice used by the validator.
//
// Design: best-effort and local. A declared annotation is compared with the
// kind inferred from an initializer; anything the lattice does not understand
// is accepted rather than flagged.
package types

import "strings"

// Kind represents the kind of type
type Kind int

const (
	Unknown Kind = iota
	Any
	Object
	Int
	Float
	Bool
	Str
	None
	List
	Dict
	Set
	Tuple
	Func
	Named
	Union
)

func (k Kind) String() string {
	switch k {
	case Any:
		return "any"
	case Object:
		return "object"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Str:
		return "str"
	case None:
		return "None"
	case List:
		return "list"
	case Dict:
		return "dict"
	case Set:
		return "set"
	case Tuple:
		return "tuple"
	case Func:
		return "function"
	case Named:
		return "named"
	case Union:
		return "union"
	default:
		return "unknown"
	}
}

// Type is a declared or inferred type. Args holds generic arguments or union
// members; Name is set for Named types.
type Type struct {
	Kind Kind
	Name string
	Args []*Type
}

// Common singletons. Never mutate them.
var (
	UnknownType = &Type{Kind: Unknown}
	AnyType     = &Type{Kind: Any}
	IntType     = &Type{Kind: Int}
	FloatType   = &Type{Kind: Float}
	BoolType    = &Type{Kind: Bool}
	StrType     = &Type{Kind: Str}
	NoneType    = &Type{Kind: None}
	ListType    = &Type{Kind: List}
	DictType    = &Type{Kind: Dict}
	SetType     = &Type{Kind: Set}
	TupleType   = &Type{Kind: Tuple}
	FuncType    = &Type{Kind: Func}
)

var builtinNames = map[string]Kind{
	"any":      Any,
	"Any":      Any,
	"object":   Object,
	"int":      Int,
	"float":    Float,
	"bool":     Bool,
	"str":      Str,
	"None":     None,
	"list":     List,
	"List":     List,
	"dict":     Dict,
	"Dict":     Dict,
	"set":      Set,
	"Set":      Set,
	"tuple":    Tuple,
	"Tuple":    Tuple,
	"Callable": Func,
	"function": Func,
}

// FromName resolves an annotation name with optional generic arguments.
// Optional[T] and Union[...] become unions; unknown names become Named.
func FromName(name string, args []*Type) *Type {
	switch name {
	case "Optional":
		members := append([]*Type{}, args...)
		return NewUnion(append(members, NoneType)...)
	case "Union":
		return NewUnion(args...)
	}
	if k, ok := builtinNames[name]; ok {
		return &Type{Kind: k, Args: args}
	}
	return &Type{Kind: Named, Name: name, Args: args}
}

// NewUnion builds a union, flattening nested unions
func NewUnion(members ...*Type) *Type {
	var flat []*Type
	for _, m := range members {
		if m == nil {
			continue
		}
		if m.Kind == Union {
			flat = append(flat, m.Args...)
			continue
		}
		flat = append(flat, m)
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return &Type{Kind: Union, Args: flat}
}

// IsKnown reports whether t carries enough information to be checked
func (t *Type) IsKnown() bool {
	return t != nil && t.Kind != Unknown
}

// String renders the type the way it would be written in an annotation
func (t *Type) String() string {
	if t == nil {
		return "unknown"
	}
	switch t.Kind {
	case Named:
		return t.Name + argString(t.Args)
	case Union:
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = a.String()
		}
		return strings.Join(parts, " | ")
	default:
		return t.Kind.String() + argString(t.Args)
	}
}

func argString(args []*Type) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Assignable reports whether a value of type actual may initialize a binding
// declared as declared. Unknown or unchecked types are always assignable.
func Assignable(declared, actual *Type) bool {
	if !declared.IsKnown() || !actual.IsKnown() {
		return true
	}
	if actual.Kind == Union {
		for _, m := range actual.Args {
			if !Assignable(declared, m) {
				return false
			}
		}
		return true
	}
	switch declared.Kind {
	case Any, Object, Named:
		return true
	case Union:
		for _, m := range declared.Args {
			if Assignable(m, actual) {
				return true
			}
		}
		return false
	case Float:
		return actual.Kind == Float || actual.Kind == Int || actual.Kind == Bool
	case Int:
		return actual.Kind == Int || actual.Kind == Bool
	}
	if actual.Kind == Any || actual.Kind == Named || actual.Kind == Object {
		return true
	}
	return declared.Kind == actual.Kind
}

// Arithmetic returns the result kind of a numeric binary operator, or
// UnknownType when the operands are not both known numbers.
func Arithmetic(op string, x, y *Type) *Type {
	if !x.IsKnown() || !y.IsKnown() {
		return UnknownType
	}
	if op == "+" && x.Kind == Str && y.Kind == Str {
		return StrType
	}
	if op == "+" && x.Kind == List && y.Kind == List {
		return ListType
	}
	if op == "*" && (x.Kind == Str && y.Kind == Int || x.Kind == Int && y.Kind == Str) {
		return StrType
	}
	if !isNumber(x) || !isNumber(y) {
		return UnknownType
	}
	if op == "/" {
		return FloatType
	}
	if x.Kind == Float || y.Kind == Float {
		return FloatType
	}
	return IntType
}

func isNumber(t *Type) bool {
	return t.Kind == Int || t.Kind == Float || t.Kind == Bool
}
