// Package frontend implements Pyxis lexing, parsing and AST construction.
//
// Design: The AST is a closed set of node types behind three sealed
// interfaces. The parser fixes the tree shape; later stages only fill the
// annotation fields (symbols, inferred types).
package frontend

import (
	"fmt"

	"github.com/GriffinCanCode/pyxis-compiler/pkg/symbols"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/types"
)

// Span is the source range of a node, 1-based, end exclusive
type Span struct {
	Line    int
	Col     int
	EndLine int
	EndCol  int
}

// Pos returns the span itself
func (s Span) Pos() Span { return s }

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", s.Line, s.Col, s.EndLine, s.EndCol)
}

type Node interface {
	Pos() Span
	node()
}

type Stmt interface {
	Node
	stmt()
}

type Expr interface {
	Node
	expr()
}

type Pattern interface {
	Node
	pattern()
}

// Module is a parsed source file
type Module struct {
	Span
	Body []Stmt

	// Filled by the validator
	Scope *symbols.Scope
	Types map[Expr]*types.Type
}

func (*Module) node() {}

// Param is a function or lambda parameter
type Param struct {
	Span
	Name       string
	Annotation Expr
	Default    Expr
	Star       bool // *args
	Sym        *symbols.Symbol
}

// Statements

type FuncDef struct {
	Span
	Name       string
	Decorators []Expr
	Async      bool
	Params     []*Param
	Returns    Expr
	Body       []Stmt
	Sym        *symbols.Symbol

	// Filled by the validator
	Scope     *symbols.Scope
	Generator bool
	Method    bool
}

type ClassDef struct {
	Span
	Name       string
	Decorators []Expr
	Bases      []Expr
	Body       []Stmt
	Sym        *symbols.Symbol
	Scope      *symbols.Scope
}

// VarDecl is a let (immutable) or var (mutable) declaration
type VarDecl struct {
	Span
	Mutable    bool
	Target     Expr
	Annotation Expr
	Value      Expr
}

type IfClause struct {
	Span
	Cond Expr
	Body []Stmt
}

type If struct {
	Span
	Cond  Expr
	Body  []Stmt
	Elifs []*IfClause
	Else  []Stmt
}

type For struct {
	Span
	Async  bool
	Target Expr
	Iter   Expr
	Body   []Stmt
	Else   []Stmt
}

type While struct {
	Span
	Cond Expr
	Body []Stmt
	Else []Stmt
}

type MatchCase struct {
	Span
	Pattern Pattern
	Guard   Expr
	Body    []Stmt
}

type Match struct {
	Span
	Subject Expr
	Cases   []*MatchCase
}

type ExceptHandler struct {
	Span
	Type Expr // nil catches everything
	Name string
	Sym  *symbols.Symbol
	Body []Stmt
}

type Try struct {
	Span
	Body     []Stmt
	Handlers []*ExceptHandler
	Else     []Stmt
	Finally  []Stmt
}

type WithItem struct {
	Span
	Context Expr
	Target  Expr
}

type With struct {
	Span
	Items []*WithItem
	Body  []Stmt
}

type ImportName struct {
	Span
	Name  string
	Alias string
	Sym   *symbols.Symbol
}

// Binding returns the local name an imported name is bound to
func (n *ImportName) Binding() string {
	if n.Alias != "" {
		return n.Alias
	}
	return n.Name
}

// Import is either `import a.b [as c]` or `from m import x [as y], ...`.
// Relative modules keep their leading dots.
type Import struct {
	Span
	Module string
	Alias  string
	From   bool
	Names  []*ImportName
	Sym    *symbols.Symbol
}

// Binding returns the local name of a plain import: the alias, or the last
// segment of the dotted module path.
func (s *Import) Binding() string {
	if s.Alias != "" {
		return s.Alias
	}
	name := s.Module
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i+1:]
		}
	}
	return name
}

// Export wraps a declaration or lists names to export
type Export struct {
	Span
	Decl  Stmt
	Names []*Ident
}

type Return struct {
	Span
	Value Expr
}

type Yield struct {
	Span
	Value Expr
	From  bool
}

type Raise struct {
	Span
	Exc   Expr
	Cause Expr
}

type Break struct{ Span }

type Continue struct{ Span }

type Pass struct{ Span }

type Assert struct {
	Span
	Test Expr
	Msg  Expr
}

type Del struct {
	Span
	Targets []Expr
}

type ExprStmt struct {
	Span
	X Expr
}

// ErrorStmt stands in for a statement the parser could not recognize
type ErrorStmt struct{ Span }

func (*FuncDef) node()   {}
func (*ClassDef) node()  {}
func (*VarDecl) node()   {}
func (*If) node()        {}
func (*For) node()       {}
func (*While) node()     {}
func (*Match) node()     {}
func (*Try) node()       {}
func (*With) node()      {}
func (*Import) node()    {}
func (*Export) node()    {}
func (*Return) node()    {}
func (*Yield) node()     {}
func (*Raise) node()     {}
func (*Break) node()     {}
func (*Continue) node()  {}
func (*Pass) node()      {}
func (*Assert) node()    {}
func (*Del) node()       {}
func (*ExprStmt) node()  {}
func (*ErrorStmt) node() {}

func (*FuncDef) stmt()   {}
func (*ClassDef) stmt()  {}
func (*VarDecl) stmt()   {}
func (*If) stmt()        {}
func (*For) stmt()       {}
func (*While) stmt()     {}
func (*Match) stmt()     {}
func (*Try) stmt()       {}
func (*With) stmt()      {}
func (*Import) stmt()    {}
func (*Export) stmt()    {}
func (*Return) stmt()    {}
func (*Yield) stmt()     {}
func (*Raise) stmt()     {}
func (*Break) stmt()     {}
func (*Continue) stmt()  {}
func (*Pass) stmt()      {}
func (*Assert) stmt()    {}
func (*Del) stmt()       {}
func (*ExprStmt) stmt()  {}
func (*ErrorStmt) stmt() {}

// Expressions

type Ident struct {
	Span
	Name string
	Sym  *symbols.Symbol
}

type IntLit struct {
	Span
	Text string // digits without separators, base prefix kept
}

type FloatLit struct {
	Span
	Text string
}

type StringLit struct {
	Span
	Value string
}

type BoolLit struct {
	Span
	Value bool
}

type NoneLit struct{ Span }

// FStringPart is literal text when X is nil, otherwise an interpolation
type FStringPart struct {
	Text       string
	X          Expr
	Conversion string // "", "r" or "s"
	Spec       string
}

type FString struct {
	Span
	Parts []FStringPart
}

type Binary struct {
	Span
	Op TokenType
	X  Expr
	Y  Expr
}

type Unary struct {
	Span
	Op TokenType // PLUS, MINUS, TILDE or NOT
	X  Expr
}

type CmpOp int

const (
	CmpEq CmpOp = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
	CmpIn
	CmpNotIn
	CmpIs
	CmpIsNot
)

func (op CmpOp) String() string {
	return [...]string{"==", "!=", "<", "<=", ">", ">=", "in", "not in", "is", "is not"}[op]
}

// Compare is a comparison chain: X op1 Y1 op2 Y2 ...
type Compare struct {
	Span
	X   Expr
	Ops []CmpOp
	Ys  []Expr
}

type Call struct {
	Span
	Func Expr
	Args []Expr // *x arguments appear as Spread
}

type Member struct {
	Span
	X    Expr
	Name string
}

type Index struct {
	Span
	X     Expr
	Index Expr
}

type Slice struct {
	Span
	X    Expr
	Lo   Expr
	Hi   Expr
	Step Expr
}

type Lambda struct {
	Span
	Params []*Param
	Body   Expr
	Scope  *symbols.Scope
}

type CompKind int

const (
	ListComp CompKind = iota
	SetComp
	DictComp
	GenExp
)

type CompClause struct {
	Span
	Async  bool
	Target Expr
	Iter   Expr
	Ifs    []Expr
}

type Comprehension struct {
	Span
	Kind    CompKind
	Key     Expr // dict comprehensions only
	Elt     Expr
	Clauses []*CompClause
}

type Ternary struct {
	Span
	Cond Expr
	Then Expr
	Else Expr
}

type Await struct {
	Span
	X Expr
}

// Spread is *x in calls, lists and targets, or **x in dict literals
type Spread struct {
	Span
	X      Expr
	Double bool
}

type ListLit struct {
	Span
	Elts []Expr
}

type TupleLit struct {
	Span
	Elts []Expr
}

// DictEntry has a nil Key for a **spread entry
type DictEntry struct {
	Span
	Key   Expr
	Value Expr
}

type DictLit struct {
	Span
	Entries []*DictEntry
}

type SetLit struct {
	Span
	Elts []Expr
}

// Assign covers =, the compound operators and := . Assignments chain to the
// right: a = b = 1 is Assign{a, Assign{b, 1}}.
type Assign struct {
	Span
	Op         TokenType
	Target     Expr
	Annotation Expr
	Value      Expr

	// Declares is set by the validator when the assignment introduces the
	// target name
	Declares bool
}

type RecordField struct {
	Span
	Key    string
	Target Expr
}

// RecordTarget destructures an object: {a, b: c, **rest}
type RecordTarget struct {
	Span
	Fields []*RecordField
	Rest   *Ident
}

func (*Ident) node()         {}
func (*IntLit) node()        {}
func (*FloatLit) node()      {}
func (*StringLit) node()     {}
func (*BoolLit) node()       {}
func (*NoneLit) node()       {}
func (*FString) node()       {}
func (*Binary) node()        {}
func (*Unary) node()         {}
func (*Compare) node()       {}
func (*Call) node()          {}
func (*Member) node()        {}
func (*Index) node()         {}
func (*Slice) node()         {}
func (*Lambda) node()        {}
func (*Comprehension) node() {}
func (*Ternary) node()       {}
func (*Await) node()         {}
func (*Spread) node()        {}
func (*ListLit) node()       {}
func (*TupleLit) node()      {}
func (*DictLit) node()       {}
func (*SetLit) node()        {}
func (*Assign) node()        {}
func (*RecordTarget) node()  {}

func (*Ident) expr()         {}
func (*IntLit) expr()        {}
func (*FloatLit) expr()      {}
func (*StringLit) expr()     {}
func (*BoolLit) expr()       {}
func (*NoneLit) expr()       {}
func (*FString) expr()       {}
func (*Binary) expr()        {}
func (*Unary) expr()         {}
func (*Compare) expr()       {}
func (*Call) expr()          {}
func (*Member) expr()        {}
func (*Index) expr()         {}
func (*Slice) expr()         {}
func (*Lambda) expr()        {}
func (*Comprehension) expr() {}
func (*Ternary) expr()       {}
func (*Await) expr()         {}
func (*Spread) expr()        {}
func (*ListLit) expr()       {}
func (*TupleLit) expr()      {}
func (*DictLit) expr()       {}
func (*SetLit) expr()        {}
func (*Assign) expr()        {}
func (*RecordTarget) expr()  {}

// Patterns

type WildcardPattern struct{ Span }

type CapturePattern struct {
	Span
	Name string
	Sym  *symbols.Symbol
}

// LiteralPattern holds a number (possibly negated), string, bool or None
type LiteralPattern struct {
	Span
	Value Expr
}

// ValuePattern matches against a dotted constant such as Color.RED
type ValuePattern struct {
	Span
	Value Expr
}

// SequencePattern matches lists and tuples. Rest is the *name element, which
// sits at RestIndex among Elts; a *_ rest has RestIndex set and Rest nil.
type SequencePattern struct {
	Span
	Elts      []Pattern
	RestIndex int
	Rest      *CapturePattern
	Stars     int
}

type MappingPattern struct {
	Span
	Keys   []Expr
	Values []Pattern
	Rest   *CapturePattern
}

type ClassPattern struct {
	Span
	Class    Expr
	Args     []Pattern
	KwNames  []string
	KwValues []Pattern
}

type OrPattern struct {
	Span
	Alts []Pattern
}

type AsPattern struct {
	Span
	Pattern Pattern
	Target  *CapturePattern
}

func (*WildcardPattern) node() {}
func (*CapturePattern) node()  {}
func (*LiteralPattern) node()  {}
func (*ValuePattern) node()    {}
func (*SequencePattern) node() {}
func (*MappingPattern) node()  {}
func (*ClassPattern) node()    {}
func (*OrPattern) node()       {}
func (*AsPattern) node()       {}

func (*WildcardPattern) pattern() {}
func (*CapturePattern) pattern()  {}
func (*LiteralPattern) pattern()  {}
func (*ValuePattern) pattern()    {}
func (*SequencePattern) pattern() {}
func (*MappingPattern) pattern()  {}
func (*ClassPattern) pattern()    {}
func (*OrPattern) pattern()       {}
func (*AsPattern) pattern()       {}
