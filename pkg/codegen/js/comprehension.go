package js

import (
	"strings"

	"github.com/GriffinCanCode/pyxis-compiler/pkg/frontend"
)

// comprehension lowers to an immediately invoked function that fills an
// accumulator. Generator expressions use a generator function instead, so
// they stay lazy.
func (g *generator) comprehension(x *frontend.Comprehension) (string, int) {
	var b strings.Builder
	async := false
	for _, c := range x.Clauses {
		if c.Async {
			async = true
		}
	}

	var init, add string
	switch x.Kind {
	case frontend.ListComp:
		init, add = "[]", "__pyx_r.push("+g.sub(x.Elt, precAssign)+");"
	case frontend.SetComp:
		init, add = "new Set()", "__pyx_r.add("+g.sub(x.Elt, precAssign)+");"
	case frontend.DictComp:
		init, add = "{}", "__pyx_r["+g.expr(x.Key)+"] = "+g.sub(x.Elt, precAssign)+";"
	case frontend.GenExp:
		add = "yield " + g.sub(x.Elt, precAssign) + ";"
	}
	// clauses render after the element so that temporaries keep source order
	loops := g.clauses(x.Clauses)
	if !async && g.fn.scope != nil && g.fn.scope.Async && strings.Contains(loops+add, "await ") {
		async = true
	}

	if x.Kind == frontend.GenExp {
		b.WriteString("(function* () { ")
		b.WriteString(loops)
		b.WriteString(add)
		b.WriteString(strings.Repeat(" }", len(x.Clauses)))
		b.WriteString(" })")
		if g.inMethod() {
			b.WriteString(".call(this)")
		} else {
			b.WriteString("()")
		}
		return b.String(), precPostfix
	}

	if async {
		b.WriteString("(await (async () => { ")
	} else {
		b.WriteString("(() => { ")
	}
	b.WriteString("const __pyx_r = " + init + "; ")
	b.WriteString(loops)
	b.WriteString(add)
	b.WriteString(strings.Repeat(" }", len(x.Clauses)))
	b.WriteString(" return __pyx_r; })()")
	if async {
		b.WriteString(")")
	}
	return b.String(), precPostfix
}

// clauses renders the opening of the nested loops, each followed by its
// filters
func (g *generator) clauses(cs []*frontend.CompClause) string {
	var b strings.Builder
	for _, c := range cs {
		iter := g.sub(c.Iter, precAssign)
		if !c.Async && !staticIterable(c.Iter) {
			g.use("__pyx_iterable")
			iter = "__pyx_iterable(" + iter + ")"
		}
		kw := "for"
		if c.Async {
			kw = "for await"
		}
		b.WriteString(kw + " (const " + g.target(c.Target) + " of " + iter + ") { ")
		for _, cond := range c.Ifs {
			b.WriteString("if (!" + g.sub(cond, precUnary) + ") continue; ")
		}
	}
	return b.String()
}
