package js

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/GriffinCanCode/pyxis-compiler/pkg/frontend"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/symbols"
)

// cond is a rendered boolean test and its precedence
type cond struct {
	text string
	prec int
}

var always = cond{"true", precPrimary}

// and joins tests with &&, dropping tests that always hold
func and(cs ...cond) cond {
	var parts []string
	for _, c := range cs {
		if c == always {
			continue
		}
		parts = append(parts, paren(c.text, c.prec, precAnd))
	}
	switch len(parts) {
	case 0:
		return always
	case 1:
		for _, c := range cs {
			if c != always {
				return c
			}
		}
	}
	return cond{strings.Join(parts, " && "), precAnd}
}

// match lowers a match statement to an if/else chain over a constant
// holding the subject. Captures live on the function's hoist line; only
// those bound inside a class body are declared here.
func (g *generator) match(s *frontend.Match) {
	subject := g.fresh("m")
	g.open("")
	g.emit("const %s = %s;", subject, g.sub(s.Subject, precAssign))

	var names []string
	seen := make(map[*symbols.Symbol]bool)
	for _, c := range s.Cases {
		forCaptures(c.Pattern, func(p *frontend.CapturePattern) {
			if declaresCapture(p) && !seen[p.Sym] {
				seen[p.Sym] = true
				names = append(names, jsName(p.Name))
			}
		})
	}
	if len(names) > 0 {
		g.emit("let %s;", strings.Join(names, ", "))
	}

	for i, c := range s.Cases {
		test := g.pattern(c.Pattern, subject)
		if c.Guard != nil {
			test = and(test, cond{g.sub(c.Guard, precAnd), precAnd})
		}
		switch {
		case i == 0:
			g.cur = c.Pos()
			g.open("if (%s)", test.text)
		case test == always:
			g.reopen(c.Pos(), "else")
		default:
			g.reopen(c.Pos(), "else if (%s)", test.text)
		}
		g.stmts(c.Body)
		if test == always {
			// later cases are unreachable
			break
		}
	}
	if len(s.Cases) > 0 {
		g.close("")
	}
	g.close("")
}

func forCaptures(p frontend.Pattern, fn func(*frontend.CapturePattern)) {
	switch p := p.(type) {
	case *frontend.CapturePattern:
		fn(p)
	case *frontend.SequencePattern:
		for _, e := range p.Elts {
			forCaptures(e, fn)
		}
		if p.Rest != nil {
			fn(p.Rest)
		}
	case *frontend.MappingPattern:
		for _, v := range p.Values {
			forCaptures(v, fn)
		}
		if p.Rest != nil {
			fn(p.Rest)
		}
	case *frontend.ClassPattern:
		for _, a := range p.Args {
			forCaptures(a, fn)
		}
		for _, v := range p.KwValues {
			forCaptures(v, fn)
		}
	case *frontend.OrPattern:
		for _, alt := range p.Alts {
			forCaptures(alt, fn)
		}
	case *frontend.AsPattern:
		forCaptures(p.Pattern, fn)
		fn(p.Target)
	}
}

// declaresCapture reports whether p introduces a block-local name
func declaresCapture(p *frontend.CapturePattern) bool {
	sym := p.Sym
	return sym != nil && !sym.Hoisted && sym.DeclLine == p.Line && sym.DeclCol == p.Col
}

func capture(p *frontend.CapturePattern, value string) cond {
	return cond{fmt.Sprintf("(%s = %s, true)", jsName(p.Name), value), precPrimary}
}

// pattern renders the test of p against subj, a side-effect free
// expression that may be repeated
func (g *generator) pattern(p frontend.Pattern, subj string) cond {
	switch p := p.(type) {
	case *frontend.WildcardPattern:
		return always
	case *frontend.CapturePattern:
		return capture(p, subj)
	case *frontend.LiteralPattern:
		return cond{subj + " === " + g.sub(p.Value, precRelational), precEquality}
	case *frontend.ValuePattern:
		return cond{subj + " === " + g.sub(p.Value, precRelational), precEquality}
	case *frontend.SequencePattern:
		return g.sequencePattern(p, subj)
	case *frontend.MappingPattern:
		return g.mappingPattern(p, subj)
	case *frontend.ClassPattern:
		return g.classPattern(p, subj)
	case *frontend.OrPattern:
		parts := make([]string, len(p.Alts))
		for i, alt := range p.Alts {
			c := g.pattern(alt, subj)
			parts[i] = paren(c.text, c.prec, precOr+1)
		}
		return cond{"(" + strings.Join(parts, " || ") + ")", precPrimary}
	case *frontend.AsPattern:
		return and(g.pattern(p.Pattern, subj), capture(p.Target, subj))
	}
	g.fail(errors.Errorf("line %d: unknown pattern %T", p.Pos().Line, p))
	return cond{"false", precPrimary}
}

func (g *generator) sequencePattern(p *frontend.SequencePattern, subj string) cond {
	tests := []cond{{"Array.isArray(" + subj + ")", precPostfix}}
	n := len(p.Elts)
	if p.RestIndex < 0 {
		tests = append(tests, cond{fmt.Sprintf("%s.length === %d", subj, n), precEquality})
		for i, e := range p.Elts {
			tests = append(tests, g.pattern(e, fmt.Sprintf("%s[%d]", subj, i)))
		}
		return and(tests...)
	}

	if n > 0 {
		tests = append(tests, cond{fmt.Sprintf("%s.length >= %d", subj, n), precRelational})
	}
	for i, e := range p.Elts {
		elt := fmt.Sprintf("%s[%d]", subj, i)
		if i >= p.RestIndex {
			elt = fmt.Sprintf("%s[%s.length - %d]", subj, subj, n-i)
		}
		tests = append(tests, g.pattern(e, elt))
	}
	if p.Rest != nil {
		after := n - p.RestIndex
		rest := fmt.Sprintf("%s.slice(%d)", subj, p.RestIndex)
		if after > 0 {
			rest = fmt.Sprintf("%s.slice(%d, %s.length - %d)", subj, p.RestIndex, subj, after)
		}
		tests = append(tests, capture(p.Rest, rest))
	}
	return and(tests...)
}

func (g *generator) mappingPattern(p *frontend.MappingPattern, subj string) cond {
	tests := []cond{{fmt.Sprintf(`%s !== null && typeof %s === "object"`, subj, subj), precAnd}}
	keys := make([]string, len(p.Keys))
	for i, k := range p.Keys {
		key := g.sub(k, precShift)
		keys[i] = key
		tests = append(tests,
			cond{key + " in " + subj, precRelational},
			g.pattern(p.Values[i], subj+"["+key+"]"))
	}
	if p.Rest != nil {
		g.use("__pyx_omit")
		tests = append(tests, capture(p.Rest, fmt.Sprintf("__pyx_omit(%s, [%s])", subj, strings.Join(keys, ", "))))
	}
	return and(tests...)
}

// classPattern matches builtin types by their JS representation. For
// builtin types a single positional pattern applies to the subject itself;
// other classes name their positional attributes in __match_args__.
func (g *generator) classPattern(p *frontend.ClassPattern, subj string) cond {
	text, prec := g.typeTest(subj, p.Class)
	tests := []cond{{text, prec}}

	if _, ok := builtinIdent(p.Class); ok {
		for _, a := range p.Args {
			tests = append(tests, g.pattern(a, subj))
		}
	} else {
		cls := g.sub(p.Class, precPostfix)
		for i, a := range p.Args {
			tests = append(tests, g.pattern(a, fmt.Sprintf("%s[%s.__match_args__[%d]]", subj, cls, i)))
		}
	}
	for i, name := range p.KwNames {
		tests = append(tests, g.pattern(p.KwValues[i], subj+"."+name))
	}
	return and(tests...)
}
