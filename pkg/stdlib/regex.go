// Regular expressions
package stdlib

// reModule maps Python's re module onto JS RegExp. Patterns are compiled
// without flags except where a call needs the global flag.
var reModule = Module{
	Object: "RegExp",
	Members: map[string]string{
		"compile": "((p) => new RegExp(p))",
		"match":   "((p, s) => new RegExp(\"^(?:\" + p + \")\").exec(s))",
		"search":  "((p, s) => new RegExp(p).exec(s))",
		"findall": "((p, s) => Array.from(s.matchAll(new RegExp(p, \"g\")), (m) => (m.length > 2 ? m.slice(1) : m.length === 2 ? m[1] : m[0])))",
		"sub":     "((p, r, s) => s.replace(new RegExp(p, \"g\"), r))",
		"split":   "((p, s) => s.split(new RegExp(p)))",
		"escape":  "((s) => s.replace(/[.*+?^${}()|[\\]\\\\]/g, \"\\\\$&\"))",
	},
}
