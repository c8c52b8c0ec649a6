// Package symbols holds the scope tree built by the semantic validator.
//
// Design: scopes are plain structs with a parent pointer. Every scope keeps
// its symbols in declaration order next to the name index so that anything
// derived from a scope (warnings, generated code) is deterministic.
package symbols

import "github.com/GriffinCanCode/pyxis-compiler/pkg/types"

// SymbolKind represents the kind of a named entity
type SymbolKind int

const (
	Variable SymbolKind = iota
	Function
	Class
	Parameter
	Import
	Builtin
)

func (k SymbolKind) String() string {
	switch k {
	case Variable:
		return "variable"
	case Function:
		return "function"
	case Class:
		return "class"
	case Parameter:
		return "parameter"
	case Import:
		return "import"
	case Builtin:
		return "builtin"
	default:
		return "unknown"
	}
}

// Symbol is the record for one binding
type Symbol struct {
	Name         string
	Kind         SymbolKind
	Mutable      bool
	DeclaredType *types.Type // nil when unannotated
	DeclLine     int
	DeclCol      int
	FirstUseLine int // 0 until first reference
	Uses         int
	Exported     bool

	// IsSelf marks the receiver parameter of a method
	IsSelf bool
	// Hoisted marks a variable first assigned inside a nested block. It is
	// declared at the top of its function instead of where it is assigned.
	Hoisted bool
	// Rebound marks a declaration repeated in the same scope. Its first
	// declaration stays reassignable so the later ones can rebind it.
	Rebound bool
	// Scope is the scope that owns the symbol
	Scope *Scope
}

// Use records a reference to the symbol on line
func (s *Symbol) Use(line int) {
	if s.Uses == 0 || line < s.FirstUseLine {
		s.FirstUseLine = line
	}
	s.Uses++
}

// ScopeKind enumerates scope categories
type ScopeKind int

const (
	BuiltinScope ScopeKind = iota
	ModuleScope
	FunctionScope
	ClassScope
	BlockScope
	ComprehensionScope
)

func (k ScopeKind) String() string {
	switch k {
	case BuiltinScope:
		return "builtin"
	case ModuleScope:
		return "module"
	case FunctionScope:
		return "function"
	case ClassScope:
		return "class"
	case BlockScope:
		return "block"
	case ComprehensionScope:
		return "comprehension"
	default:
		return "invalid"
	}
}

// Scope models a lexical scope with a parent-child hierarchy
type Scope struct {
	Kind     ScopeKind
	Parent   *Scope
	Children []*Scope

	// Async is set on the FunctionScope of an async def
	Async bool

	names   map[string]*Symbol
	symbols []*Symbol
}

// NewScope creates a scope attached to parent (nil for the root)
func NewScope(kind ScopeKind, parent *Scope) *Scope {
	s := &Scope{
		Kind:   kind,
		Parent: parent,
		names:  make(map[string]*Symbol),
	}
	if parent != nil {
		parent.Children = append(parent.Children, s)
	}
	return s
}

// Declare adds sym to the scope. If the name is already bound in this scope
// the existing symbol is returned with ok=false and sym is not added.
func (s *Scope) Declare(sym *Symbol) (existing *Symbol, ok bool) {
	if prev, found := s.names[sym.Name]; found {
		return prev, false
	}
	sym.Scope = s
	s.names[sym.Name] = sym
	s.symbols = append(s.symbols, sym)
	return sym, true
}

// LookupLocal finds name in this scope only
func (s *Scope) LookupLocal(name string) *Symbol {
	return s.names[name]
}

// Lookup walks the parent chain, innermost first
func (s *Scope) Lookup(name string) *Symbol {
	for sc := s; sc != nil; sc = sc.Parent {
		if sym, ok := sc.names[name]; ok {
			return sym
		}
	}
	return nil
}

// Symbols returns the scope's symbols in declaration order
func (s *Scope) Symbols() []*Symbol {
	return s.symbols
}

// Function returns the nearest enclosing function scope, or nil at module level
func (s *Scope) Function() *Scope {
	for sc := s; sc != nil; sc = sc.Parent {
		switch sc.Kind {
		case FunctionScope:
			return sc
		case ModuleScope, BuiltinScope:
			return nil
		}
	}
	return nil
}

// Walk visits s and every descendant scope in creation order
func (s *Scope) Walk(fn func(*Scope)) {
	fn(s)
	for _, c := range s.Children {
		c.Walk(fn)
	}
}

// Count returns the number of scopes in the tree rooted at s
func (s *Scope) Count() int {
	n := 0
	s.Walk(func(*Scope) { n++ })
	return n
}
