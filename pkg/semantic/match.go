package semantic

import (
	"sort"
	"strings"

	"github.com/GriffinCanCode/pyxis-compiler/pkg/diag"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/frontend"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/symbols"
)

// match binds captures in the enclosing function like assignments, so a
// capture is visible after the statement and an arm may reuse a name another
// arm captured
func (v *validator) match(s *frontend.Match) {
	v.expr(s.Subject)
	v.push(symbols.BlockScope)
	for _, c := range s.Cases {
		v.pattern(c.Pattern)
		if c.Guard != nil {
			v.expr(c.Guard)
		}
		v.block(c.Body)
	}
	v.pop()
}

func (v *validator) pattern(p frontend.Pattern) {
	switch p := p.(type) {
	case *frontend.WildcardPattern:
	case *frontend.CapturePattern:
		v.capture(p)
	case *frontend.LiteralPattern:
		v.expr(p.Value)
	case *frontend.ValuePattern:
		v.expr(p.Value)
	case *frontend.SequencePattern:
		if p.Stars > 1 {
			v.errorf(p, diag.CodeMultipleStarred, "multiple starred names in sequence pattern")
		}
		for _, e := range p.Elts {
			v.pattern(e)
		}
		if p.Rest != nil {
			v.capture(p.Rest)
		}
	case *frontend.MappingPattern:
		v.exprs(p.Keys)
		for _, val := range p.Values {
			v.pattern(val)
		}
		if p.Rest != nil {
			v.capture(p.Rest)
		}
	case *frontend.ClassPattern:
		v.expr(p.Class)
		for _, a := range p.Args {
			v.pattern(a)
		}
		for _, kw := range p.KwValues {
			v.pattern(kw)
		}
	case *frontend.OrPattern:
		want := captureNames(p.Alts[0])
		for _, alt := range p.Alts[1:] {
			if got := captureNames(alt); got != want {
				v.errorf(alt, diag.CodeOrPatternBindings, "alternative patterns bind different names")
				break
			}
		}
		for _, alt := range p.Alts {
			v.pattern(alt)
		}
	case *frontend.AsPattern:
		v.pattern(p.Pattern)
		v.capture(p.Target)
	}
}

func (v *validator) capture(p *frontend.CapturePattern) {
	if sym := v.lookupFunction(p.Name); sym != nil {
		p.Sym = sym
		if !assignable(sym) {
			v.errorf(p, diag.CodeAssignImmutable, "cannot assign to %s %q", describeSym(sym), p.Name)
		}
		return
	}
	scope := v.bindingScope()
	sym := &symbols.Symbol{Name: p.Name, Kind: symbols.Variable, Mutable: true, DeclLine: p.Line, DeclCol: p.Col, Hoisted: scope != v.scope}
	scope.Declare(sym)
	p.Sym = sym
}

// captureNames renders the sorted set of names a pattern binds
func captureNames(p frontend.Pattern) string {
	seen := make(map[string]bool)
	collectCaptures(p, seen)
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

func collectCaptures(p frontend.Pattern, seen map[string]bool) {
	switch p := p.(type) {
	case *frontend.CapturePattern:
		seen[p.Name] = true
	case *frontend.SequencePattern:
		for _, e := range p.Elts {
			collectCaptures(e, seen)
		}
		if p.Rest != nil {
			seen[p.Rest.Name] = true
		}
	case *frontend.MappingPattern:
		for _, val := range p.Values {
			collectCaptures(val, seen)
		}
		if p.Rest != nil {
			seen[p.Rest.Name] = true
		}
	case *frontend.ClassPattern:
		for _, a := range p.Args {
			collectCaptures(a, seen)
		}
		for _, kw := range p.KwValues {
			collectCaptures(kw, seen)
		}
	case *frontend.OrPattern:
		if len(p.Alts) > 0 {
			collectCaptures(p.Alts[0], seen)
		}
	case *frontend.AsPattern:
		collectCaptures(p.Pattern, seen)
		seen[p.Target.Name] = true
	}
}
