package js

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/GriffinCanCode/pyxis-compiler/pkg/frontend"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/stdlib"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/symbols"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/types"
)

// JS operator precedence, loosest first
const (
	precLowest = iota
	precAssign
	precCond
	precOr
	precAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precRelational
	precShift
	precAdditive
	precMultiplicative
	precExponent
	precUnary
	precPostfix
	precPrimary
)

var binaryOps = map[frontend.TokenType]struct {
	js   string
	prec int
}{
	frontend.PLUS:    {"+", precAdditive},
	frontend.MINUS:   {"-", precAdditive},
	frontend.STAR:    {"*", precMultiplicative},
	frontend.SLASH:   {"/", precMultiplicative},
	frontend.PERCENT: {"%", precMultiplicative},
	frontend.AMP:     {"&", precBitAnd},
	frontend.PIPE:    {"|", precBitOr},
	frontend.CARET:   {"^", precBitXor},
	frontend.LSHIFT:  {"<<", precShift},
	frontend.RSHIFT:  {">>", precShift},
	frontend.AND:     {"&&", precAnd},
	frontend.OR:      {"||", precOr},
}

// expr renders x as a single line
func (g *generator) expr(x frontend.Expr) string {
	s, _ := g.render(x)
	return s
}

// sub renders x as an operand that binds at least as tightly as min
func (g *generator) sub(x frontend.Expr, min int) string {
	s, prec := g.render(x)
	return paren(s, prec, min)
}

func paren(s string, prec, min int) string {
	if prec < min {
		return "(" + s + ")"
	}
	return s
}

func (g *generator) render(x frontend.Expr) (string, int) {
	switch x := x.(type) {
	case *frontend.Ident:
		return g.ident(x), precPrimary
	case *frontend.IntLit:
		return strings.ReplaceAll(x.Text, "_", ""), precPrimary
	case *frontend.FloatLit:
		return strings.ReplaceAll(x.Text, "_", ""), precPrimary
	case *frontend.StringLit:
		return quote(x.Value), precPrimary
	case *frontend.BoolLit:
		if x.Value {
			return "true", precPrimary
		}
		return "false", precPrimary
	case *frontend.NoneLit:
		return "null", precPrimary
	case *frontend.FString:
		return g.fstring(x), precPrimary
	case *frontend.Binary:
		return g.binary(x)
	case *frontend.Unary:
		return g.unary(x)
	case *frontend.Compare:
		return g.compare(x)
	case *frontend.Call:
		return g.call(x)
	case *frontend.Member:
		return g.member(x), precPostfix
	case *frontend.Index:
		return g.index(x), precPostfix
	case *frontend.Slice:
		return g.slice(x), precPostfix
	case *frontend.Lambda:
		return g.lambda(x), precAssign
	case *frontend.Comprehension:
		return g.comprehension(x)
	case *frontend.Ternary:
		return fmt.Sprintf("%s ? %s : %s", g.sub(x.Cond, precOr), g.sub(x.Then, precAssign), g.sub(x.Else, precAssign)), precCond
	case *frontend.Await:
		return "await " + g.sub(x.X, precUnary), precUnary
	case *frontend.Spread:
		return "..." + g.sub(x.X, precAssign), precAssign
	case *frontend.ListLit:
		return "[" + g.list(x.Elts) + "]", precPrimary
	case *frontend.TupleLit:
		return "[" + g.list(x.Elts) + "]", precPrimary
	case *frontend.SetLit:
		return "new Set([" + g.list(x.Elts) + "])", precPostfix
	case *frontend.DictLit:
		return g.dict(x), precPrimary
	case *frontend.Assign:
		if x.Op == frontend.WALRUS {
			return g.target(x.Target) + " = " + g.sub(x.Value, precAssign), precAssign
		}
	}
	g.fail(errors.Errorf("line %d: cannot lower %T in expression position", x.Pos().Line, x))
	return "undefined", precPrimary
}

func (g *generator) list(xs []frontend.Expr) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = g.sub(x, precAssign)
	}
	return strings.Join(parts, ", ")
}

// Names

func (g *generator) ident(id *frontend.Ident) string {
	sym := id.Sym
	if sym == nil {
		return jsName(id.Name)
	}
	switch {
	case sym.Kind == symbols.Builtin:
		return g.builtin(id.Name)
	case sym.IsSelf:
		return "this"
	case sym.Scope != nil && sym.Scope.Kind == symbols.ClassScope:
		if cls, ok := g.classes[sym.Scope]; ok {
			if sym.Kind == symbols.Function {
				return cls + ".prototype." + sym.Name
			}
			return cls + "." + sym.Name
		}
	}
	return jsName(sym.Name)
}

// builtin lowers a builtin name, pulling in its prelude helper. Host
// globals without a table entry keep their name.
func (g *generator) builtin(name string) string {
	b, ok := stdlib.LookupBuiltin(name)
	if !ok {
		return name
	}
	if b.Helper != "" {
		g.use(b.Helper)
		return b.Helper
	}
	return b.JS
}

func builtinIdent(x frontend.Expr) (string, bool) {
	id, ok := x.(*frontend.Ident)
	if !ok || id.Sym == nil || id.Sym.Kind != symbols.Builtin {
		return "", false
	}
	return id.Name, true
}

// simple reports whether evaluating x twice is harmless
func simple(x frontend.Expr) bool {
	switch x := x.(type) {
	case *frontend.Ident, *frontend.IntLit, *frontend.FloatLit, *frontend.StringLit, *frontend.BoolLit, *frontend.NoneLit:
		return true
	case *frontend.Member:
		return simple(x.X)
	}
	return false
}

// Literals

// quote renders s as a double-quoted JS string literal
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\u2028', '\u2029', utf8.RuneError:
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// templateText escapes literal text for a template literal
func templateText(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '`', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '$':
			if i+1 < len(s) && s[i+1] == '{' {
				b.WriteByte('\\')
			}
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func (g *generator) fstring(x *frontend.FString) string {
	var b strings.Builder
	b.WriteByte('`')
	for _, part := range x.Parts {
		if part.X == nil {
			b.WriteString(templateText(part.Text))
			continue
		}
		b.WriteString("${")
		b.WriteString(g.interpolation(part))
		b.WriteByte('}')
	}
	b.WriteByte('`')
	return b.String()
}

var (
	fixedSpec = regexp.MustCompile(`^\.(\d+)f$`)
	padSpec   = regexp.MustCompile(`^([<>])(\d+)$`)
)

func (g *generator) interpolation(part frontend.FStringPart) string {
	value, prec := g.render(part.X)
	if part.Conversion == "r" {
		value, prec = "JSON.stringify("+value+")", precPostfix
	}
	if part.Spec == "" {
		return value
	}
	base := numberBase(part.X, paren(value, prec, precPostfix))
	switch {
	case part.Spec == "d":
		return "String(" + value + ")"
	case part.Spec == "x":
		return base + ".toString(16)"
	case part.Spec == "o":
		return base + ".toString(8)"
	case part.Spec == "b":
		return base + ".toString(2)"
	}
	if m := fixedSpec.FindStringSubmatch(part.Spec); m != nil {
		return base + ".toFixed(" + m[1] + ")"
	}
	if m := padSpec.FindStringSubmatch(part.Spec); m != nil {
		if m[1] == ">" {
			return "String(" + value + ").padStart(" + m[2] + ")"
		}
		return "String(" + value + ").padEnd(" + m[2] + ")"
	}
	g.use("__pyx_format")
	return "__pyx_format(" + value + ", " + quote(part.Spec) + ")"
}

func (g *generator) dict(x *frontend.DictLit) string {
	if len(x.Entries) == 0 {
		return "{}"
	}
	parts := make([]string, len(x.Entries))
	for i, e := range x.Entries {
		value := g.sub(e.Value, precAssign)
		switch k := e.Key.(type) {
		case nil:
			parts[i] = "..." + value
		case *frontend.StringLit:
			parts[i] = quote(k.Value) + ": " + value
		case *frontend.IntLit, *frontend.FloatLit:
			parts[i] = g.expr(k) + ": " + value
		default:
			parts[i] = "[" + g.expr(k) + "]: " + value
		}
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// Static shape of expressions, used where Python and JS operators differ

func declaredKind(x frontend.Expr) types.Kind {
	id, ok := x.(*frontend.Ident)
	if !ok || id.Sym == nil || id.Sym.DeclaredType == nil {
		return types.Unknown
	}
	return id.Sym.DeclaredType.Kind
}

func isList(x frontend.Expr) bool {
	switch x := x.(type) {
	case *frontend.ListLit:
		return true
	case *frontend.Comprehension:
		return x.Kind == frontend.ListComp
	case *frontend.Call:
		name, ok := builtinIdent(x.Func)
		return ok && (name == "list" || name == "sorted")
	case *frontend.Binary:
		return x.Op == frontend.PLUS && (isList(x.X) || isList(x.Y))
	}
	return declaredKind(x) == types.List
}

func isStr(x frontend.Expr) bool {
	switch x := x.(type) {
	case *frontend.StringLit, *frontend.FString:
		return true
	case *frontend.Call:
		name, ok := builtinIdent(x.Func)
		return ok && (name == "str" || name == "repr" || name == "chr")
	}
	return declaredKind(x) == types.Str
}

// Operators

func (g *generator) binary(x *frontend.Binary) (string, int) {
	switch x.Op {
	case frontend.PLUS:
		if isList(x.X) || isList(x.Y) {
			return "[..." + g.sub(x.X, precAssign) + ", ..." + g.sub(x.Y, precAssign) + "]", precPrimary
		}
	case frontend.STAR:
		switch {
		case isStr(x.X):
			return g.sub(x.X, precPostfix) + ".repeat(" + g.expr(x.Y) + ")", precPostfix
		case isStr(x.Y):
			return g.sub(x.Y, precPostfix) + ".repeat(" + g.expr(x.X) + ")", precPostfix
		case isList(x.X):
			g.use("__pyx_repeat")
			return "__pyx_repeat(" + g.sub(x.X, precAssign) + ", " + g.sub(x.Y, precAssign) + ")", precPostfix
		case isList(x.Y):
			g.use("__pyx_repeat")
			return "__pyx_repeat(" + g.sub(x.Y, precAssign) + ", " + g.sub(x.X, precAssign) + ")", precPostfix
		}
	case frontend.DSLASH:
		return "Math.floor(" + g.sub(x.X, precMultiplicative) + " / " + g.sub(x.Y, precMultiplicative+1) + ")", precPostfix
	case frontend.POWER:
		// JS rejects a unary operand on the left of **
		return g.sub(x.X, precPostfix) + " ** " + g.sub(x.Y, precExponent), precExponent
	case frontend.AT:
		g.use("__pyx_matmul")
		return "__pyx_matmul(" + g.sub(x.X, precAssign) + ", " + g.sub(x.Y, precAssign) + ")", precPostfix
	}

	op, ok := binaryOps[x.Op]
	if !ok {
		g.fail(errors.Errorf("line %d: unknown binary operator %s", x.Line, x.Op))
		return "undefined", precPrimary
	}
	return g.sub(x.X, op.prec) + " " + op.js + " " + g.sub(x.Y, op.prec+1), op.prec
}

func (g *generator) unary(x *frontend.Unary) (string, int) {
	var op string
	switch x.Op {
	case frontend.NOT:
		op = "!"
	case frontend.MINUS:
		op = "-"
	case frontend.PLUS:
		op = "+"
	case frontend.TILDE:
		op = "~"
	default:
		g.fail(errors.Errorf("line %d: unknown unary operator %s", x.Line, x.Op))
		return "undefined", precPrimary
	}
	operand := g.sub(x.X, precUnary)
	// keep - -x from reading as --x
	if (op == "-" || op == "+") && strings.HasPrefix(operand, op) {
		operand = " " + operand
	}
	return op + operand, precUnary
}

type operand struct {
	text string
	prec int
	none bool
}

func (g *generator) operand(x frontend.Expr) operand {
	s, p := g.render(x)
	_, none := x.(*frontend.NoneLit)
	return operand{text: s, prec: p, none: none}
}

// compare lowers a comparison chain. Middle operands that are not simple
// are evaluated once into a temporary.
func (g *generator) compare(x *frontend.Compare) (string, int) {
	left := g.operand(x.X)
	parts := make([]string, len(x.Ops))
	prec := precPrimary
	for i, op := range x.Ops {
		right := g.operand(x.Ys[i])
		next := right
		if i < len(x.Ops)-1 && !simple(x.Ys[i]) {
			t := g.temp()
			right = operand{text: "(" + t + " = " + right.text + ")", prec: precPrimary}
			next = operand{text: t, prec: precPrimary}
		}
		s, p := g.compareOne(left, op, right)
		parts[i] = s
		if p < prec {
			prec = p
		}
		left = next
	}
	if len(parts) == 1 {
		return parts[0], prec
	}
	for i := range parts {
		parts[i] = paren(parts[i], prec, precAnd+1)
	}
	return strings.Join(parts, " && "), precAnd
}

func (g *generator) compareOne(l operand, op frontend.CmpOp, r operand) (string, int) {
	bin := func(js string, p int) (string, int) {
		return paren(l.text, l.prec, p) + " " + js + " " + paren(r.text, r.prec, p+1), p
	}
	switch op {
	case frontend.CmpEq, frontend.CmpIs:
		return bin("===", precEquality)
	case frontend.CmpNe, frontend.CmpIsNot:
		return bin("!==", precEquality)
	case frontend.CmpLt:
		return bin("<", precRelational)
	case frontend.CmpLe:
		return bin("<=", precRelational)
	case frontend.CmpGt:
		return bin(">", precRelational)
	case frontend.CmpGe:
		return bin(">=", precRelational)
	case frontend.CmpIn:
		g.use("__pyx_contains")
		return "__pyx_contains(" + paren(r.text, r.prec, precAssign) + ", " + paren(l.text, l.prec, precAssign) + ")", precPostfix
	case frontend.CmpNotIn:
		g.use("__pyx_contains")
		return "!__pyx_contains(" + paren(r.text, r.prec, precAssign) + ", " + paren(l.text, l.prec, precAssign) + ")", precUnary
	}
	g.fail(errors.Errorf("unknown comparison %s", op))
	return "undefined", precPrimary
}

// Member access and calls

func (g *generator) member(x *frontend.Member) string {
	if mod, ok := g.moduleOf(x.X); ok {
		return mod.Member(x.Name)
	}
	return numberBase(x.X, g.sub(x.X, precPostfix)) + "." + x.Name
}

// numberBase parenthesizes a number literal used as the base of a member
// access, where 1.x would read as a decimal point
func numberBase(x frontend.Expr, s string) string {
	switch x.(type) {
	case *frontend.IntLit, *frontend.FloatLit:
		return "(" + s + ")"
	}
	return s
}

// moduleOf returns the table entry behind a reference to a module imported
// whole, when its members are substituted at compile time
func (g *generator) moduleOf(x frontend.Expr) (stdlib.Module, bool) {
	id, ok := x.(*frontend.Ident)
	if !ok || id.Sym == nil || id.Sym.Kind != symbols.Import {
		return stdlib.Module{}, false
	}
	mod, ok := g.modules[id.Sym]
	if !ok || mod.Specifier != "" {
		return stdlib.Module{}, false
	}
	return mod, true
}

func negativeLiteral(x frontend.Expr) bool {
	u, ok := x.(*frontend.Unary)
	if !ok || u.Op != frontend.MINUS {
		return false
	}
	switch u.X.(type) {
	case *frontend.IntLit:
		return true
	}
	return false
}

func (g *generator) index(x *frontend.Index) string {
	if negativeLiteral(x.Index) {
		g.use("__pyx_at")
		return "__pyx_at(" + g.sub(x.X, precAssign) + ", " + g.expr(x.Index) + ")"
	}
	return g.sub(x.X, precPostfix) + "[" + g.expr(x.Index) + "]"
}

func (g *generator) optional(x frontend.Expr) string {
	if x == nil {
		return "null"
	}
	return g.sub(x, precAssign)
}

func (g *generator) slice(x *frontend.Slice) string {
	if x.Step != nil {
		g.use("__pyx_slice")
		return fmt.Sprintf("__pyx_slice(%s, %s, %s, %s)", g.sub(x.X, precAssign), g.optional(x.Lo), g.optional(x.Hi), g.sub(x.Step, precAssign))
	}
	base := g.sub(x.X, precPostfix)
	switch {
	case x.Lo == nil && x.Hi == nil:
		return base + ".slice()"
	case x.Hi == nil:
		return base + ".slice(" + g.sub(x.Lo, precAssign) + ")"
	case x.Lo == nil:
		return base + ".slice(0, " + g.sub(x.Hi, precAssign) + ")"
	}
	return base + ".slice(" + g.sub(x.Lo, precAssign) + ", " + g.sub(x.Hi, precAssign) + ")"
}

// jsClasses are host constructors that must be called with new
var jsClasses = map[string]bool{"Map": true, "Set": true, "Promise": true, "Date": true, "Error": true}

// constructs reports whether calling fn creates an instance
func (g *generator) constructs(fn frontend.Expr) bool {
	switch fn := fn.(type) {
	case *frontend.Ident:
		sym := fn.Sym
		if sym == nil {
			return false
		}
		switch sym.Kind {
		case symbols.Class:
			return true
		case symbols.Builtin:
			if b, ok := stdlib.LookupBuiltin(fn.Name); ok && b.IsConstructor() {
				return true
			}
			return jsClasses[fn.Name]
		case symbols.Import:
			return capitalized(fn.Name)
		}
	case *frontend.Member:
		id, ok := fn.X.(*frontend.Ident)
		return ok && id.Sym != nil && id.Sym.Kind == symbols.Import && capitalized(fn.Name)
	}
	return false
}

func isSuper(x frontend.Expr) bool {
	call, ok := x.(*frontend.Call)
	if !ok || len(call.Args) > 0 {
		return false
	}
	name, ok := builtinIdent(call.Func)
	return ok && name == "super"
}

func (g *generator) call(x *frontend.Call) (string, int) {
	args := g.list(x.Args)

	switch fn := x.Func.(type) {
	case *frontend.Ident:
		if name, ok := builtinIdent(fn); ok && name == "isinstance" && len(x.Args) == 2 {
			return g.isinstance(x.Args[0], x.Args[1])
		}
	case *frontend.Member:
		if isSuper(fn.X) {
			if fn.Name == "__init__" {
				return "super(" + args + ")", precPostfix
			}
			return "super." + fn.Name + "(" + args + ")", precPostfix
		}
		if _, ok := g.moduleOf(fn.X); !ok && stdlib.IsPythonMethod(fn.Name) && !g.constructs(fn) {
			g.use("__pyx_method")
			return fmt.Sprintf("__pyx_method(%s, %s)(%s)", g.sub(fn.X, precAssign), quote(fn.Name), args), precPostfix
		}
	}

	if g.constructs(x.Func) {
		return "new " + g.sub(x.Func, precPostfix) + "(" + args + ")", precPostfix
	}
	return g.sub(x.Func, precPostfix) + "(" + args + ")", precPostfix
}

// isinstance is inlined; a tuple of types evaluates the subject once
func (g *generator) isinstance(subject, typ frontend.Expr) (string, int) {
	tuple, ok := typ.(*frontend.TupleLit)
	if !ok {
		return g.typeTest(g.sub(subject, precPostfix), typ)
	}
	subj := g.sub(subject, precPostfix)
	first := subj
	if !simple(subject) {
		t := g.temp()
		first, subj = "("+t+" = "+g.expr(subject)+")", t
	}
	parts := make([]string, len(tuple.Elts))
	for i, elt := range tuple.Elts {
		s := subj
		if i == 0 {
			s = first
		}
		test, prec := g.typeTest(s, elt)
		parts[i] = paren(test, prec, precOr+1)
	}
	if len(parts) == 1 {
		return parts[0], precOr
	}
	return strings.Join(parts, " || "), precOr
}

// typeTest checks subj, an already rendered postfix expression, against a
// class or builtin type
func (g *generator) typeTest(subj string, typ frontend.Expr) (string, int) {
	if name, ok := builtinIdent(typ); ok {
		switch name {
		case "str":
			return "typeof " + subj + ` === "string"`, precEquality
		case "int":
			return "Number.isInteger(" + subj + ")", precPostfix
		case "float":
			return "typeof " + subj + ` === "number"`, precEquality
		case "bool":
			return "typeof " + subj + ` === "boolean"`, precEquality
		case "list", "tuple":
			return "Array.isArray(" + subj + ")", precPostfix
		case "dict":
			g.use("__pyx_isdict")
			return "__pyx_isdict(" + subj + ")", precPostfix
		case "set":
			return subj + " instanceof Set", precRelational
		case "object":
			return subj + " != null", precEquality
		}
	}
	return subj + " instanceof " + g.sub(typ, precShift), precRelational
}

// Functions

func (g *generator) params(params []*frontend.Param) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		if p.Sym != nil && p.Sym.IsSelf {
			continue
		}
		name := jsName(p.Name)
		switch {
		case p.Star:
			parts = append(parts, "..."+name)
		case p.Default != nil:
			parts = append(parts, name+" = "+g.sub(p.Default, precAssign))
		default:
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, ", ")
}

func (g *generator) lambda(x *frontend.Lambda) string {
	params := g.params(x.Params)
	fs := g.enter(x.Scope, false)
	body, prec := g.render(x.Body)
	g.leave()

	if names := fs.hoisted(); len(names) > 0 {
		return fmt.Sprintf("(%s) => { let %s; return %s; }", params, strings.Join(names, ", "), body)
	}
	body = paren(body, prec, precAssign)
	if strings.HasPrefix(body, "{") {
		body = "(" + body + ")"
	}
	return "(" + params + ") => " + body
}
