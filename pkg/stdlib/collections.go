// Collection types
package stdlib

// collectionsModule lowers the collections classes onto plain JS values.
// deque is an array; Counter and defaultdict are objects. Capitalized
// imports are called with new, so classes are function expressions that
// return their value.
var collectionsModule = Module{
	Members: map[string]string{
		"deque":       "(function deque(xs = []) { return Array.from(xs); })",
		"OrderedDict": "(function OrderedDict(xs = []) { return Object.fromEntries(xs); })",
		"Counter":     "(function Counter(xs = []) { const c = {}; for (const x of xs) c[x] = (c[x] || 0) + 1; return c; })",
		"defaultdict": "(function defaultdict(f) { return new Proxy({}, { get: (o, k) => (typeof k === \"string\" && !(k in o) ? (o[k] = f()) : o[k]) }); })",
		"namedtuple":  "(function namedtuple(name, fields) { const fs = typeof fields === \"string\" ? fields.split(/[ ,]+/) : fields; return function (...vs) { return Object.fromEntries(fs.map((f, i) => [f, vs[i]])); }; })",
	},
}
