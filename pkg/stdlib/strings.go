// String, list and dict methods
package stdlib

import "sort"

// Receiver kinds recognized at run time by the method dispatcher
const (
	StrReceiver  = "str"
	ListReceiver = "list"
	DictReceiver = "dict"
	SetReceiver  = "set"
)

// methods holds JS implementations of Python methods that have no JS
// counterpart with the same name and meaning. Each entry is an arrow
// function taking the receiver first.
var methods = map[string]map[string]string{
	StrReceiver: {
		"upper":      "(s) => s.toUpperCase()",
		"lower":      "(s) => s.toLowerCase()",
		"strip":      "(s, c) => c === undefined ? s.trim() : __pyx_strip(s, c, true, true)",
		"lstrip":     "(s, c) => c === undefined ? s.trimStart() : __pyx_strip(s, c, true, false)",
		"rstrip":     "(s, c) => c === undefined ? s.trimEnd() : __pyx_strip(s, c, false, true)",
		"startswith": "(s, p) => s.startsWith(p)",
		"endswith":   "(s, p) => s.endsWith(p)",
		"find":       "(s, sub) => s.indexOf(sub)",
		"rfind":      "(s, sub) => s.lastIndexOf(sub)",
		"replace":    "(s, a, b) => s.split(a).join(b)",
		"split":      "(s, sep) => sep === undefined ? s.trim().split(/\\s+/).filter((x) => x !== \"\") : s.split(sep)",
		"join":       "(s, xs) => Array.from(xs).join(s)",
		"count":      "(s, sub) => s.split(sub).length - 1",
		"isdigit":    "(s) => /^[0-9]+$/.test(s)",
		"isalpha":    "(s) => /^[A-Za-z]+$/.test(s)",
		"isspace":    "(s) => /^\\s+$/.test(s)",
		"title":      "(s) => s.replace(/\\b\\w/g, (c) => c.toUpperCase())",
		"capitalize": "(s) => s.charAt(0).toUpperCase() + s.slice(1).toLowerCase()",
		"zfill":      "(s, n) => s.padStart(n, \"0\")",
		"format":     "(s, ...args) => { let i = 0; return s.replace(/\\{\\}/g, () => String(args[i++])); }",
	},
	ListReceiver: {
		"append":  "(xs, x) => { xs.push(x); }",
		"extend":  "(xs, ys) => { xs.push(...ys); }",
		"insert":  "(xs, i, x) => { xs.splice(i, 0, x); }",
		"remove":  "(xs, x) => { const i = xs.indexOf(x); if (i < 0) throw new ValueError(\"list.remove(x): x not in list\"); xs.splice(i, 1); }",
		"pop":     "(xs, i) => i === undefined ? xs.pop() : xs.splice(i < 0 ? xs.length + i : i, 1)[0]",
		"index":   "(xs, x) => { const i = xs.indexOf(x); if (i < 0) throw new ValueError(\"x not in list\"); return i; }",
		"count":   "(xs, x) => xs.filter((y) => y === x).length",
		"clear":   "(xs) => { xs.length = 0; }",
		"copy":    "(xs) => xs.slice()",
		"sort":    "(xs) => { xs.sort(__pyx_compare); }",
		"reverse": "(xs) => { xs.reverse(); }",
	},
	DictReceiver: {
		"items":      "(d) => Object.entries(d)",
		"keys":       "(d) => Object.keys(d)",
		"values":     "(d) => Object.values(d)",
		"get":        "(d, k, dflt = null) => (k in d ? d[k] : dflt)",
		"pop":        "(d, k, dflt) => { if (!(k in d)) { if (dflt === undefined) throw new KeyError(k); return dflt; } const v = d[k]; delete d[k]; return v; }",
		"setdefault": "(d, k, dflt = null) => (k in d ? d[k] : (d[k] = dflt))",
		"update":     "(d, o) => { Object.assign(d, o); }",
		"clear":      "(d) => { for (const k of Object.keys(d)) delete d[k]; }",
		"copy":       "(d) => ({ ...d })",
	},
	SetReceiver: {
		"add":     "(s, x) => { s.add(x); }",
		"discard": "(s, x) => { s.delete(x); }",
		"remove":  "(s, x) => { if (!s.delete(x)) throw new KeyError(x); }",
		"union":   "(s, o) => new Set([...s, ...o])",
	},
}

var methodNames = func() map[string]bool {
	names := make(map[string]bool)
	for _, ms := range methods {
		for name := range ms {
			names[name] = true
		}
	}
	return names
}()

// IsPythonMethod reports whether calls to a method named name need the
// run-time dispatcher
func IsPythonMethod(name string) bool {
	return methodNames[name]
}

// Receivers returns the receiver kinds in a fixed order
func Receivers() []string {
	return []string{StrReceiver, ListReceiver, DictReceiver, SetReceiver}
}

// Methods returns the method names of a receiver kind, sorted, and a lookup
// for their JS implementation
func Methods(receiver string) ([]string, map[string]string) {
	ms := methods[receiver]
	names := make([]string, 0, len(ms))
	for name := range ms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, ms
}
