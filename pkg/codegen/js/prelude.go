package js

import (
	"fmt"
	"strings"

	"github.com/GriffinCanCode/pyxis-compiler/pkg/stdlib"
)

// helper is one prelude definition. The prelude always lists helpers in
// table order, whatever order the program uses them in.
type helper struct {
	name string
	deps []string
	code string
}

var exceptionNames = []string{
	"ValueError", "KeyError", "IndexError", "AttributeError", "RuntimeError",
	"NotImplementedError", "ZeroDivisionError", "AssertionError", "StopIteration",
}

var helpers = func() []helper {
	var hs []helper
	for _, name := range exceptionNames {
		hs = append(hs, helper{name: name, code: fmt.Sprintf(
			"class %s extends Error { constructor(message) { super(message); this.name = %q; } }", name, name)})
	}
	hs = append(hs, functionHelpers...)
	hs = append(hs, helper{
		name: "__pyx_methods",
		deps: []string{"__pyx_strip", "__pyx_compare", "ValueError", "KeyError"},
		code: methodTable(),
	}, helper{
		name: "__pyx_method",
		deps: []string{"__pyx_methods", "__pyx_isdict", "AttributeError"},
		code: `function __pyx_method(x, name) {
  const kind = typeof x === "string" ? "str" : Array.isArray(x) ? "list" : x instanceof Set ? "set" : __pyx_isdict(x) ? "dict" : null;
  if (kind !== null && Object.prototype.hasOwnProperty.call(__pyx_methods[kind], name)) {
    const impl = __pyx_methods[kind][name];
    return (...args) => impl(x, ...args);
  }
  const f = x == null ? undefined : x[name];
  if (typeof f !== "function") throw new AttributeError("object has no attribute " + JSON.stringify(name));
  return f.bind(x);
}`,
	})
	return hs
}()

// methodTable renders the Python method implementations as one object per
// receiver kind
func methodTable() string {
	var b strings.Builder
	b.WriteString("const __pyx_methods = {\n")
	for _, recv := range stdlib.Receivers() {
		names, impls := stdlib.Methods(recv)
		fmt.Fprintf(&b, "  %s: {\n", recv)
		for _, name := range names {
			fmt.Fprintf(&b, "    %s: %s,\n", name, impls[name])
		}
		b.WriteString("  },\n")
	}
	b.WriteString("};")
	return b.String()
}

var functionHelpers = []helper{
	{name: "__pyx_isdict", code: `function __pyx_isdict(x) {
  if (x === null || typeof x !== "object") return false;
  const p = Object.getPrototypeOf(x);
  return p === Object.prototype || p === null;
}`},
	{name: "__pyx_iterable", deps: []string{"__pyx_isdict"}, code: `function __pyx_iterable(x) {
  if (x != null && typeof x[Symbol.iterator] === "function") return x;
  if (__pyx_isdict(x)) return Object.keys(x);
  throw new TypeError("object is not iterable");
}`},
	{name: "__pyx_iter", deps: []string{"__pyx_iterable"}, code: `function __pyx_iter(x) {
  if (x != null && typeof x.next === "function") return x;
  return __pyx_iterable(x)[Symbol.iterator]();
}`},
	{name: "__pyx_next", deps: []string{"StopIteration"}, code: `function __pyx_next(it, dflt) {
  const r = it.next();
  if (r.done) {
    if (arguments.length > 1) return dflt;
    throw new StopIteration();
  }
  return r.value;
}`},
	{name: "__pyx_len", code: `function __pyx_len(x) {
  if (x == null) throw new TypeError("object has no len()");
  if (typeof x === "string" || Array.isArray(x)) return x.length;
  if (x instanceof Map || x instanceof Set) return x.size;
  if (typeof x.__len__ === "function") return x.__len__();
  if (typeof x.length === "number") return x.length;
  return Object.keys(x).length;
}`},
	{name: "__pyx_range", deps: []string{"ValueError"}, code: `function __pyx_range(start, stop, step) {
  if (stop === undefined) {
    stop = start;
    start = 0;
  }
  if (step === undefined) step = 1;
  if (step === 0) throw new ValueError("range() arg 3 must not be zero");
  const out = [];
  if (step > 0) {
    for (let i = start; i < stop; i += step) out.push(i);
  } else {
    for (let i = start; i > stop; i += step) out.push(i);
  }
  return out;
}`},
	{name: "__pyx_contains", deps: []string{"__pyx_isdict", "__pyx_iterable"}, code: `function __pyx_contains(c, x) {
  if (typeof c === "string" || Array.isArray(c)) return c.includes(x);
  if (c instanceof Set || c instanceof Map) return c.has(x);
  if (c != null && typeof c.__contains__ === "function") return c.__contains__(x);
  if (__pyx_isdict(c)) return Object.prototype.hasOwnProperty.call(c, x);
  for (const y of __pyx_iterable(c)) if (y === x) return true;
  return false;
}`},
	{name: "__pyx_int", deps: []string{"ValueError"}, code: `function __pyx_int(x, base) {
  if (x === undefined) return 0;
  if (typeof x === "string") {
    const n = parseInt(x.trim(), base === undefined ? 10 : base);
    if (Number.isNaN(n)) throw new ValueError("invalid literal for int(): " + JSON.stringify(x));
    return n;
  }
  return Math.trunc(Number(x));
}`},
	{name: "__pyx_bool", deps: []string{"__pyx_isdict"}, code: `function __pyx_bool(x) {
  if (typeof x === "string" || Array.isArray(x)) return x.length > 0;
  if (x instanceof Map || x instanceof Set) return x.size > 0;
  if (__pyx_isdict(x)) return Object.keys(x).length > 0;
  return Boolean(x);
}`},
	{name: "__pyx_ord", code: `function __pyx_ord(c) {
  return c.codePointAt(0);
}`},
	{name: "__pyx_hex", code: `function __pyx_hex(n) {
  return (n < 0 ? "-0x" : "0x") + Math.abs(n).toString(16);
}`},
	{name: "__pyx_bin", code: `function __pyx_bin(n) {
  return (n < 0 ? "-0b" : "0b") + Math.abs(n).toString(2);
}`},
	{name: "__pyx_oct", code: `function __pyx_oct(n) {
  return (n < 0 ? "-0o" : "0o") + Math.abs(n).toString(8);
}`},
	{name: "__pyx_list", deps: []string{"__pyx_iterable"}, code: `function __pyx_list(xs) {
  return xs === undefined ? [] : Array.from(__pyx_iterable(xs));
}`},
	{name: "__pyx_dict", deps: []string{"__pyx_isdict", "__pyx_iterable"}, code: `function __pyx_dict(x) {
  const d = {};
  if (x == null) return d;
  if (__pyx_isdict(x)) return Object.assign(d, x);
  for (const [k, v] of __pyx_iterable(x)) d[k] = v;
  return d;
}`},
	{name: "__pyx_set", deps: []string{"__pyx_iterable"}, code: `function __pyx_set(xs) {
  return new Set(xs === undefined ? [] : __pyx_iterable(xs));
}`},
	{name: "__pyx_compare", code: `function __pyx_compare(a, b) {
  if (Array.isArray(a) && Array.isArray(b)) {
    for (let i = 0; i < a.length && i < b.length; i++) {
      const c = __pyx_compare(a[i], b[i]);
      if (c !== 0) return c;
    }
    return a.length - b.length;
  }
  return a < b ? -1 : a > b ? 1 : 0;
}`},
	{name: "__pyx_sorted", deps: []string{"__pyx_list", "__pyx_compare"}, code: `function __pyx_sorted(xs, key, reverse) {
  const out = __pyx_list(xs);
  const k = key == null ? (x) => x : key;
  out.sort((a, b) => __pyx_compare(k(a), k(b)));
  if (reverse) out.reverse();
  return out;
}`},
	{name: "__pyx_reversed", deps: []string{"__pyx_list"}, code: `function __pyx_reversed(xs) {
  return __pyx_list(xs).reverse();
}`},
	{name: "__pyx_enumerate", deps: []string{"__pyx_iterable"}, code: `function __pyx_enumerate(xs, start) {
  const out = [];
  let i = start === undefined ? 0 : start;
  for (const x of __pyx_iterable(xs)) out.push([i++, x]);
  return out;
}`},
	{name: "__pyx_zip", deps: []string{"__pyx_list"}, code: `function __pyx_zip(...xss) {
  const ls = xss.map((xs) => __pyx_list(xs));
  if (ls.length === 0) return [];
  const n = Math.min(...ls.map((l) => l.length));
  const out = [];
  for (let i = 0; i < n; i++) out.push(ls.map((l) => l[i]));
  return out;
}`},
	{name: "__pyx_map", deps: []string{"__pyx_list", "__pyx_zip"}, code: `function __pyx_map(f, ...xss) {
  if (xss.length === 1) return __pyx_list(xss[0]).map((x) => f(x));
  return __pyx_zip(...xss).map((args) => f(...args));
}`},
	{name: "__pyx_filter", deps: []string{"__pyx_list", "__pyx_bool"}, code: `function __pyx_filter(f, xs) {
  return __pyx_list(xs).filter((x) => __pyx_bool(f == null ? x : f(x)));
}`},
	{name: "__pyx_min", deps: []string{"__pyx_list", "__pyx_compare", "ValueError"}, code: `function __pyx_min(...args) {
  const xs = args.length === 1 ? __pyx_list(args[0]) : args;
  if (xs.length === 0) throw new ValueError("min() arg is an empty sequence");
  return xs.reduce((a, b) => (__pyx_compare(b, a) < 0 ? b : a));
}`},
	{name: "__pyx_max", deps: []string{"__pyx_list", "__pyx_compare", "ValueError"}, code: `function __pyx_max(...args) {
  const xs = args.length === 1 ? __pyx_list(args[0]) : args;
  if (xs.length === 0) throw new ValueError("max() arg is an empty sequence");
  return xs.reduce((a, b) => (__pyx_compare(b, a) > 0 ? b : a));
}`},
	{name: "__pyx_sum", deps: []string{"__pyx_iterable"}, code: `function __pyx_sum(xs, start) {
  let s = start === undefined ? 0 : start;
  for (const x of __pyx_iterable(xs)) s += x;
  return s;
}`},
	{name: "__pyx_divmod", deps: []string{"ZeroDivisionError"}, code: `function __pyx_divmod(a, b) {
  if (b === 0) throw new ZeroDivisionError("integer division or modulo by zero");
  const q = Math.floor(a / b);
  return [q, a - q * b];
}`},
	{name: "__pyx_any", deps: []string{"__pyx_iterable", "__pyx_bool"}, code: `function __pyx_any(xs) {
  for (const x of __pyx_iterable(xs)) if (__pyx_bool(x)) return true;
  return false;
}`},
	{name: "__pyx_all", deps: []string{"__pyx_iterable", "__pyx_bool"}, code: `function __pyx_all(xs) {
  for (const x of __pyx_iterable(xs)) if (!__pyx_bool(x)) return false;
  return true;
}`},
	{name: "__pyx_isinstance", code: `function __pyx_isinstance(x, t) {
  if (Array.isArray(t)) return t.some((u) => __pyx_isinstance(x, u));
  if (t === String) return typeof x === "string";
  if (t === Number) return typeof x === "number";
  if (t === Boolean) return typeof x === "boolean";
  return x instanceof t;
}`},
	{name: "__pyx_hasattr", code: `function __pyx_hasattr(o, name) {
  return o != null && name in Object(o);
}`},
	{name: "__pyx_getattr", deps: []string{"AttributeError"}, code: `function __pyx_getattr(o, name, dflt) {
  if (o != null && name in Object(o)) return o[name];
  if (arguments.length > 2) return dflt;
  throw new AttributeError("object has no attribute " + JSON.stringify(name));
}`},
	{name: "__pyx_setattr", code: `function __pyx_setattr(o, name, v) {
  o[name] = v;
}`},
	{name: "__pyx_callable", code: `function __pyx_callable(f) {
  return typeof f === "function";
}`},
	{name: "__pyx_strip", code: `function __pyx_strip(s, chars, left, right) {
  let i = 0;
  let j = s.length;
  if (left) while (i < j && chars.includes(s[i])) i++;
  if (right) while (j > i && chars.includes(s[j - 1])) j--;
  return s.slice(i, j);
}`},
	{name: "__pyx_enter", code: `function __pyx_enter(c) {
  return typeof c.__enter__ === "function" ? c.__enter__() : c;
}`},
	{name: "__pyx_exit", code: `function __pyx_exit(c) {
  if (typeof c.__exit__ === "function") c.__exit__(null, null, null);
  else if (typeof c.close === "function") c.close();
}`},
	{name: "__pyx_at", deps: []string{"IndexError"}, code: `function __pyx_at(xs, i) {
  const j = i < 0 ? xs.length + i : i;
  if (j < 0 || j >= xs.length) throw new IndexError("index out of range");
  return xs[j];
}`},
	{name: "__pyx_slice", deps: []string{"ValueError"}, code: `function __pyx_slice(xs, lo, hi, step) {
  if (step == null) step = 1;
  if (step === 0) throw new ValueError("slice step cannot be zero");
  const n = xs.length;
  const norm = (i, d) => {
    if (i == null) return d;
    if (i < 0) i += n;
    return step > 0 ? Math.min(Math.max(i, 0), n) : Math.min(Math.max(i, -1), n - 1);
  };
  const start = norm(lo, step > 0 ? 0 : n - 1);
  const stop = norm(hi, step > 0 ? n : -1);
  const out = [];
  if (step > 0) {
    for (let i = start; i < stop; i += step) out.push(xs[i]);
  } else {
    for (let i = start; i > stop; i += step) out.push(xs[i]);
  }
  return typeof xs === "string" ? out.join("") : out;
}`},
	{name: "__pyx_setslice", code: `function __pyx_setslice(xs, lo, hi, ys) {
  const n = xs.length;
  const norm = (i, d) => (i == null ? d : i < 0 ? Math.max(i + n, 0) : Math.min(i, n));
  const start = norm(lo, 0);
  const stop = Math.max(norm(hi, n), start);
  xs.splice(start, stop - start, ...Array.from(ys));
}`},
	{name: "__pyx_del", deps: []string{"IndexError", "KeyError"}, code: `function __pyx_del(x, k) {
  if (Array.isArray(x)) {
    const i = k < 0 ? x.length + k : k;
    if (i < 0 || i >= x.length) throw new IndexError("list assignment index out of range");
    x.splice(i, 1);
    return;
  }
  if (x instanceof Map || x instanceof Set) {
    x.delete(k);
    return;
  }
  if (!(k in x)) throw new KeyError(k);
  delete x[k];
}`},
	{name: "__pyx_unpack", deps: []string{"__pyx_list", "ValueError"}, code: `function __pyx_unpack(xs, before, after) {
  const a = __pyx_list(xs);
  if (a.length < before + after) throw new ValueError("not enough values to unpack");
  return [...a.slice(0, before), a.slice(before, a.length - after), ...a.slice(a.length - after)];
}`},
	{name: "__pyx_omit", code: `function __pyx_omit(o, keys) {
  const skip = keys.map((k) => String(k));
  const out = {};
  for (const k of Object.keys(o)) if (!skip.includes(k)) out[k] = o[k];
  return out;
}`},
	{name: "__pyx_repeat", code: `function __pyx_repeat(xs, n) {
  const out = [];
  for (let i = 0; i < n; i++) out.push(...xs);
  return out;
}`},
	{name: "__pyx_chain", code: `function __pyx_chain(e, cause) {
  e.cause = cause;
  return e;
}`},
	{name: "__pyx_format", deps: []string{"ValueError"}, code: `function __pyx_format(v, spec) {
  const m = /^(?:(.)?([<>^=]))?([+ -])?(0)?(\d+)?(,)?(?:\.(\d+))?([bdeEfFosxX%])?$/.exec(spec);
  if (m === null) throw new ValueError("invalid format specifier " + JSON.stringify(spec));
  const [, fill, align, sign, zero, width, group, prec, type] = m;
  const p = prec === undefined ? 6 : Number(prec);
  let s;
  switch (type) {
    case "f": case "F": s = Number(v).toFixed(p); break;
    case "e": case "E": s = Number(v).toExponential(p); break;
    case "%": s = (Number(v) * 100).toFixed(p) + "%"; break;
    case "d": s = String(Math.trunc(v)); break;
    case "x": s = Math.trunc(v).toString(16); break;
    case "X": s = Math.trunc(v).toString(16).toUpperCase(); break;
    case "o": s = Math.trunc(v).toString(8); break;
    case "b": s = Math.trunc(v).toString(2); break;
    default: s = prec === undefined ? String(v) : typeof v === "string" ? v.slice(0, p) : Number(v).toPrecision(p);
  }
  if (group) {
    const parts = s.split(".");
    parts[0] = parts[0].replace(/\B(?=(\d{3})+(?!\d))/g, ",");
    s = parts.join(".");
  }
  if (sign !== undefined && sign !== "-" && Number(v) >= 0) s = sign + s;
  const w = width === undefined ? 0 : Number(width);
  if (s.length >= w) return s;
  if (zero && align === undefined) {
    const signed = s[0] === "-" || s[0] === "+" || s[0] === " ";
    return signed ? s[0] + s.slice(1).padStart(w - 1, "0") : s.padStart(w, "0");
  }
  const f = fill === undefined ? " " : fill;
  const a = align === undefined ? (typeof v === "number" ? ">" : "<") : align;
  if (a === "<") return s + f.repeat(w - s.length);
  if (a === "^") {
    const l = Math.floor((w - s.length) / 2);
    return f.repeat(l) + s + f.repeat(w - s.length - l);
  }
  return f.repeat(w - s.length) + s;
}`},
	{name: "__pyx_matmul", code: `function __pyx_matmul(a, b) {
  if (a != null && typeof a.__matmul__ === "function") return a.__matmul__(b);
  return a.map((row) => b[0].map((_, j) => row.reduce((s, x, k) => s + x * b[k][j], 0)));
}`},
}

var helperIndex = func() map[string]helper {
	idx := make(map[string]helper, len(helpers))
	for _, h := range helpers {
		idx[h.name] = h
	}
	return idx
}()

// prelude returns the lines defining every helper the module used, along
// with the helpers those depend on
func (g *generator) prelude() []string {
	need := make(map[string]bool)
	var add func(string)
	add = func(name string) {
		if need[name] {
			return
		}
		need[name] = true
		for _, dep := range helperIndex[name].deps {
			add(dep)
		}
	}
	for name := range g.used {
		add(name)
	}

	var lines []string
	for _, h := range helpers {
		if need[h.name] {
			lines = append(lines, strings.Split(h.code, "\n")...)
		}
	}
	return lines
}

// HelperNames lists every prelude helper in emission order
func HelperNames() []string {
	names := make([]string, len(helpers))
	for i, h := range helpers {
		names[i] = h.name
	}
	return names
}
