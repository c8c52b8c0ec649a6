// Iteration helpers
package stdlib

// itertoolsModule covers the finite itertools functions. Everything returns
// an array so results can be indexed and measured with len.
var itertoolsModule = Module{
	Members: map[string]string{
		"chain":      "((...xs) => xs.flatMap((x) => Array.from(x)))",
		"repeat":     "((x, n) => Array.from({ length: n }, () => x))",
		"accumulate": "((xs, f = (a, b) => a + b) => { const out = []; let acc; let first = true; for (const x of xs) { acc = first ? x : f(acc, x); first = false; out.push(acc); } return out; })",
		"islice":     "((xs, a, b) => (b === undefined ? Array.from(xs).slice(0, a) : Array.from(xs).slice(a, b)))",
		"pairwise":   "((xs) => { const a = Array.from(xs); return a.slice(1).map((x, i) => [a[i], x]); })",
		"product":    "((...xs) => xs.reduce((acc, x) => acc.flatMap((p) => Array.from(x, (y) => [...p, y])), [[]]))",
	},
}

// functoolsModule holds reduce, which moved out of the builtins in Python 3
var functoolsModule = Module{
	Members: map[string]string{
		"reduce": "((f, xs, init) => (init === undefined ? Array.from(xs).reduce(f) : Array.from(xs).reduce(f, init)))",
	},
}
