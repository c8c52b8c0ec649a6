package js

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/dop251/goja"
	gosourcemap "github.com/go-sourcemap/sourcemap"

	"github.com/GriffinCanCode/pyxis-compiler/pkg/diag"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/frontend"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/semantic"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/stdlib"
)

// validated runs the front end on src. Validation errors fail the test
// unless allowErrors is set; lex and parse errors always do.
func validated(t *testing.T, src string, allowErrors bool) *frontend.Module {
	t.Helper()
	toks, lexDiags := frontend.Tokenize(src)
	mod, parseDiags := frontend.Parse(toks)
	for _, d := range append(lexDiags, parseDiags...) {
		t.Fatalf("unexpected diagnostic before validation: %s", d)
	}
	ds := semantic.Validate(mod, semantic.Options{})
	if !allowErrors && diag.HasErrors(ds) {
		t.Fatalf("unexpected validation errors: %v", ds)
	}
	return mod
}

func generate(t *testing.T, src string, opts Options) *Output {
	t.Helper()
	out, err := Generate(validated(t, src, false), opts)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return out
}

// run executes CommonJS output and returns what it printed, one line per
// console.log call
func run(t *testing.T, code string) string {
	t.Helper()
	vm := goja.New()

	var printed []string
	console := vm.NewObject()
	_ = console.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		printed = append(printed, strings.Join(parts, " "))
		return goja.Undefined()
	})
	_ = vm.Set("console", console)

	module := vm.NewObject()
	exports := vm.NewObject()
	_ = module.Set("exports", exports)
	_ = vm.Set("module", module)
	_ = vm.Set("exports", exports)

	if _, err := vm.RunString(code); err != nil {
		t.Fatalf("running generated code: %v\n%s", err, code)
	}
	return strings.Join(printed, "\n")
}

func runSource(t *testing.T, src string) string {
	t.Helper()
	out := generate(t, src, Options{Format: CommonJS})
	return run(t, out.Code)
}

func TestArithmeticRoundTrip(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"1 + 2 * 3", "7"},
		{"(1 + 2) * 3", "9"},
		{"7 // 2", "3"},
		{"-7 // 2", "-4"},
		{"2 ** 10", "1024"},
		{"-2 ** 2", "4"},
		{"(-2) ** 2", "4"},
		{"2 ** 3 ** 2", "512"},
		{"10 % 3", "1"},
		{"1.5 * 4", "6"},
		{"10 - 2 - 3", "5"},
		{"1 << 4 | 1", "17"},
		{"- -3", "3"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			if got := runSource(t, "print("+tt.expr+")\n"); got != tt.want {
				t.Errorf("%s = %s, want %s", tt.expr, got, tt.want)
			}
		})
	}
}

func TestComprehensionClauseOrder(t *testing.T) {
	src := "print(JSON.stringify([x*y for x in [1,2] for y in [10,20]]))\n"
	if got := runSource(t, src); got != "[10,20,20,40]" {
		t.Errorf("got %s, want [10,20,20,40]", got)
	}
}

func TestMatchFirstArmWins(t *testing.T) {
	src := `def pick(v):
    match v:
        case 1:
            return "literal"
        case _:
            return "wildcard"
print(pick(1), pick(2))
`
	out := generate(t, src, Options{Format: CommonJS})
	lit := strings.Index(out.Code, "=== 1")
	wild := strings.Index(out.Code, "} else {")
	if lit < 0 || wild < 0 || lit > wild {
		t.Errorf("literal arm should be tested before the wildcard arm:\n%s", out.Code)
	}
	if got := run(t, out.Code); got != "literal wildcard" {
		t.Errorf("got %q, want %q", got, "literal wildcard")
	}
}

func TestFStringEvaluates(t *testing.T) {
	src := "s = f\"{1+2}\"\nprint(s, s == \"3\")\n"
	if got := runSource(t, src); got != "3 true" {
		t.Errorf("got %q, want %q", got, "3 true")
	}
}

func TestWithReleasesOnException(t *testing.T) {
	src := `class Resource:
    def __init__(self):
        self.closed = False
    def __enter__(self):
        return self
    def __exit__(self, a, b, c):
        self.closed = True
r = Resource()
try:
    with r as held:
        print("inside", held.closed)
        raise ValueError("boom")
except ValueError:
    print("caught", r.closed)
`
	out := generate(t, src, Options{Format: CommonJS})
	if !strings.Contains(out.Code, "finally {") {
		t.Errorf("with should lower to try/finally:\n%s", out.Code)
	}
	if got := run(t, out.Code); got != "inside false\ncaught true" {
		t.Errorf("got %q", got)
	}
}

func TestDualSyntaxEquivalence(t *testing.T) {
	indent := `def fact(n):
    if n <= 1:
        return 1
    return n * fact(n - 1)
class Box:
    def __init__(self, v):
        self.v = v
    def get(self):
        return self.v
for i in range(3):
    if i == 1:
        continue
    print(fact(i + 3))
print(Box(7).get())
`
	braces := `def fact(n) {
    if n <= 1 { return 1 }
    return n * fact(n - 1)
}
class Box {
    def __init__(self, v) { self.v = v }
    def get(self) { return self.v }
}
for i in range(3) {
    if i == 1 { continue }
    print(fact(i + 3))
}
print(Box(7).get())
`
	a := generate(t, indent, Options{Format: CommonJS})
	b := generate(t, braces, Options{Format: CommonJS})
	if a.Code != b.Code {
		t.Fatalf("outputs differ\nindentation:\n%s\nbraces:\n%s", a.Code, b.Code)
	}
	if got := run(t, a.Code); got != "6\n120\n7" {
		t.Errorf("got %q", got)
	}
}

func TestDeterministicOutput(t *testing.T) {
	src := `import math
from json import dumps
class Shape:
    sides = 0
    def area(self):
        return 0
class Square(Shape):
    sides = 4
    def __init__(self, s):
        self.s = s
    def area(self):
        return self.s ** 2
def stats(xs):
    total = sum(xs)
    biggest = max(xs)
    pairs = list(zip(xs, sorted(xs)))
    return {"total": total, "max": biggest, "pairs": pairs, "n": len(xs)}
shapes = [Square(n) for n in range(5) if n % 2 == 0]
print(dumps(stats([s.area() for s in shapes])), math.pi)
`
	first := generate(t, src, Options{})
	for i := 0; i < 10; i++ {
		if again := generate(t, src, Options{}); again.Code != first.Code {
			t.Fatalf("run %d produced different output", i)
		}
	}
}

func TestLetRedeclarationEmitsBothBindings(t *testing.T) {
	out, err := Generate(validated(t, "let x = 1\nlet x = 2\n", true), Options{})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	for _, want := range []string{"let x = 1;", "x = 2;"} {
		if !strings.Contains(out.Code, want) {
			t.Errorf("missing %q in:\n%s", want, out.Code)
		}
	}
	if err := ValidateOutput(out.Code); err != nil {
		t.Errorf("output should still load: %v\n%s", err, out.Code)
	}
}

func TestRedeclarationRebindsAtRunTime(t *testing.T) {
	out, err := Generate(validated(t, "let x = 1\nprint(x)\nlet x = 2\nprint(x)\nvar y = 3\nlet y = 4\nprint(y)\n", true), Options{Format: CommonJS})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got := run(t, out.Code); got != "1\n2\n4" {
		t.Errorf("got %q", got)
	}
}

func TestParseErrorPlaceholder(t *testing.T) {
	toks, _ := frontend.Tokenize("x = 1\ny = = 2\nprint(x)\n")
	mod, parseDiags := frontend.Parse(toks)
	if !diag.HasErrors(parseDiags) {
		t.Fatal("expected a parse error")
	}
	semantic.Validate(mod, semantic.Options{})

	out, err := Generate(mod, Options{})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.Contains(out.Code, "/* parse error */") || !strings.Contains(out.Code, "console.log(x);") {
		t.Errorf("expected a placeholder and the following statement:\n%s", out.Code)
	}

	if _, err := Generate(mod, Options{Strict: true}); err == nil {
		t.Error("strict generation should fail on a parse error placeholder")
	}
}

func TestGenerateRequiresValidation(t *testing.T) {
	toks, _ := frontend.Tokenize("x = 1\n")
	mod, _ := frontend.Parse(toks)
	if _, err := Generate(mod, Options{}); err == nil {
		t.Error("expected an error for an unvalidated module")
	}
}

func TestPrograms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "inheritance",
			src: `class Animal:
    def __init__(self, name):
        self.name = name
    def speak(self):
        return self.name + " makes a sound"
class Dog(Animal):
    def speak(self):
        return super().speak() + " (woof)"
print(Dog("rex").speak())
`,
			want: "rex makes a sound (woof)",
		},
		{
			name: "super_init",
			src: `class Base:
    def __init__(self, x):
        self.x = x
class Child(Base):
    def __init__(self, x, y):
        super().__init__(x)
        self.y = y
c = Child(1, 2)
print(c.x + c.y, isinstance(c, Base))
`,
			want: "3 true",
		},
		{
			name: "exceptions",
			src: `class AppError(Exception):
    pass
def risky(n):
    if n > 1:
        raise AppError("too big")
    return n
for n in [1, 2]:
    try:
        risky(n)
    except AppError as e:
        print("caught", str(e))
    else:
        print("ok", n)
    finally:
        print("done", n)
`,
			want: "ok 1\ndone 1\ncaught AppError: too big\ndone 2",
		},
		{
			name: "reraise",
			src: `def f():
    try:
        raise KeyError("k")
    except KeyError:
        raise
try:
    f()
except (ValueError, KeyError) as e:
    print(e.name)
`,
			want: "KeyError",
		},
		{
			name: "for_else",
			src: `def find(xs, target):
    found = -1
    for i, x in enumerate(xs):
        if x == target:
            found = i
            break
    else:
        return -1
    return found
print(find([5, 6, 7], 6), find([5], 9))
`,
			want: "1 -1",
		},
		{
			name: "while_and_compound",
			src: `n = 10
total = 0
while n > 0:
    total += n
    n -= 3
print(total, 7 // 2, -7 // 2, 2 ** 3)
`,
			want: "22 3 -4 8",
		},
		{
			name: "slices",
			src: `xs = [1, 2, 3, 4, 5]
print(xs[-1], xs[1:3], xs[::2], xs[::-1], "hello"[1:])
`,
			want: "5 2,3 1,3,5 5,4,3,2,1 ello",
		},
		{
			name: "comprehensions",
			src: `squares = {x: x * x for x in range(4) if x % 2 == 0}
evens = [x for x in range(10) if x % 2 == 0 if x > 4]
print(JSON.stringify(squares), JSON.stringify(evens), len({c for c in "abca"}))
`,
			want: `{"0":0,"2":4} [6,8] 3`,
		},
		{
			name: "destructuring",
			src: `a, b = 1, 2
a, b = b, a
first, *rest = [1, 2, 3]
head, *mid, tail = [1, 2, 3, 4]
print(a, b, first, rest, head, mid, tail)
`,
			want: "2 1 1 2,3 1 2,3 4",
		},
		{
			name: "builtins",
			src: `double = lambda x: x * 2
pairs = list(zip([1, 2], ["a", "b"]))
print(double(4), sorted([3, 1, 2]), max(4, 9, 2), sum([1, 2, 3]), pairs[1][1])
`,
			want: "8 1,2,3 9 6 b",
		},
		{
			name: "strings",
			src: `words = "a,b,c".split(",")
print("-".join(words), "abc".upper(), "  hi ".strip(), "ab" * 2, f"{3.14159:.2f}", f"{255:x}")
`,
			want: "a-b-c ABC hi abab 3.14 ff",
		},
		{
			name: "format_spec_helper",
			src:  "w = \"ab\"\nprint(f\"{1234567:,}\", f\"{7:03d}\", f\"{w:^6}|\")\n",
			want: "1,234,567 007   ab  |",
		},
		{
			name: "match_patterns",
			src: `class Point:
    def __init__(self, x, y):
        self.x = x
        self.y = y
def describe(v):
    match v:
        case 0:
            return "zero"
        case [a, b]:
            return f"pair {a} {b}"
        case [first, *others]:
            return f"list {first} +{len(others)}"
        case {"kind": k}:
            return "kind " + k
        case Point(x=0, y=yy):
            return f"on y axis at {yy}"
        case Point(px, py) if px == py:
            return "diagonal"
        case str() as s:
            return "string " + s
        case _:
            return "other"
print(describe(0), describe([1, 2]), describe([1, 2, 3]), describe({"kind": "k1"}))
print(describe(Point(0, 5)), describe(Point(2, 2)), describe("s"), describe(3.5))
`,
			want: "zero pair 1 2 list 1 +2 kind k1\non y axis at 5 diagonal string s other",
		},
		{
			name: "decorators",
			src: `def twice(f):
    return lambda x: f(f(x))
@twice
def inc(x):
    return x + 1
class Counter:
    count = 0
    @staticmethod
    def make():
        return Counter()
    @property
    def double(self):
        return self.count * 2
c = Counter.make()
c.count = 4
print(inc(1), Counter.count, c.double)
`,
			want: "3 0 8",
		},
		{
			name: "walrus_assert_del",
			src: `data = {"a": 1, "b": 2}
del data["a"]
if (n := len(data)) > 0:
    print("size", n)
assert n == 1, "one left"
xs = [1, 2, 3]
del xs[0]
print(xs, "b" in data, 4 not in xs)
`,
			want: "size 1\n2,3 true true",
		},
		{
			name: "chained_compare_ternary",
			src: `def clamp(v):
    return "low" if v < 0 else "high" if v > 10 else "mid"
x = 5
print(0 < x < 10, 0 < x > 10, clamp(-1), clamp(11), clamp(5))
`,
			want: "true false low high mid",
		},
		{
			name: "let_and_var",
			src: `let x = 1
var y = 2
y = 3
print(x + y)
`,
			want: "4",
		},
		{
			name: "dict_iteration",
			src: `ages = {"ann": 30, "bob": 25}
for name, age in ages.items():
    print(name, age)
print(ages.get("zed", 0), sorted(ages.keys()))
`,
			want: "ann 30\nbob 25\n0 ann,bob",
		},
		{
			name: "host_object_modules",
			src: `import math
from math import sqrt
print(math.floor(2.7), sqrt(16))
`,
			want: "2 4",
		},
		{
			name: "list_operators",
			src: `xs = [1] + [2, 3]
xs += [4]
ys = [0] * 3
xs.append(5)
print(xs, ys, len(xs))
`,
			want: "1,2,3,4,5 0,0,0 5",
		},
		{
			name: "nested_function_hoisting",
			src: `def count(xs):
    if len(xs) > 2:
        label = "many"
    else:
        label = "few"
    return label
print(count([1, 2, 3]), count([]))
`,
			want: "many few",
		},
		{
			name: "match_capture_after_statement",
			src: `def first_two(p):
    match p:
        case [a, b, *_]:
            pass
        case _:
            a = b = None
    return a, b
print(first_two([1, 2, 3]))
d = {"k": 5}
match d:
    case {"k": found}:
        pass
print(found)
`,
			want: "1,2\n5",
		},
		{
			name: "match_capture_rebinds_var",
			src: `var x = 0
match 5:
    case x:
        pass
print(x)
`,
			want: "5",
		},
		{
			name: "loop_target_after_loop",
			src: `def last(n):
    for i in range(n):
        pass
    return i
for k, v in [["a", 1], ["b", 2]]:
    pass
print(last(3), k, v)
`,
			want: "2 b 2",
		},
		{
			name: "with_target_after_block",
			src: `class Box:
    def __enter__(self):
        return 7
    def __exit__(self, a, b, c):
        return False
with Box() as got:
    pass
print(got)
`,
			want: "7",
		},
		{
			name: "generators",
			src: `def countdown(n):
    while n > 0:
        yield n
        n -= 1
def evens(xs):
    yield from (x for x in xs if x % 2 == 0)
print(list(countdown(3)), sum(x * x for x in [1, 2, 3]), list(evens(range(5))))
`,
			want: "3,2,1 14 0,2,4",
		},
		{
			name: "power_precedence",
			src: `b = 3
print(-2 ** 2, (-b) ** 2, 2 ** 3 ** 2)
`,
			want: "4 9 512",
		},
		{
			name: "stacked_decorators",
			src: `calls = []
def a(f):
    calls.append("a")
    return lambda: "a(" + f() + ")"
def b(f):
    calls.append("b")
    return lambda: "b(" + f() + ")"
@a
@b
def g():
    return "g"
print(g(), calls)
`,
			want: "a(b(g)) b,a",
		},
		{
			name: "none_and_truthiness",
			src: `def get(d, k):
    if k in d:
        return d[k]
    return None
v = get({"a": 1}, "b")
print(v is None, v == None, not 0, bool([]), bool({}))
`,
			want: "true true true false false",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runSource(t, tt.src); got != tt.want {
				t.Errorf("got:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestLowerings(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"print", "print(1)\n", []string{"console.log(1);"}},
		{"floor_division", "a = 7\nprint(a // 2)\n", []string{"Math.floor(a / 2)"}},
		{"equality", "a = 1\nprint(a == 1, a != 2)\n", []string{"a === 1", "a !== 2"}},
		{"power_unary_base", "a = 2\nprint((-a) ** 2)\n", []string{"(-a) ** 2"}},
		{"membership", "xs = [1]\nprint(1 in xs)\n", []string{"__pyx_contains(xs, 1)", "function __pyx_contains("}},
		{"let_const", "let a = 1\nvar b = 2\n", []string{"const a = 1;", "let b = 2;"}},
		{"decorated_function", "def d(f):\n    return f\n@d\ndef g():\n    pass\n", []string{"const g = d(function g() {", "});"}},
		{"stacked_decorators", "def a(f):\n    return f\ndef b(f):\n    return f\n@a\n@b\ndef g():\n    pass\n", []string{"const g = a(b(function g() {", "}));"}},
		{"loop_target_hoisted", "def f(xs):\n    for x in xs:\n        pass\n    return x\n", []string{"let x;", "for (x of "}},
		{"class_attribute", "class A:\n    x = 1\n", []string{"A.x = A.prototype.x = 1;"}},
		{"constructor", "class A:\n    def __init__(self, v):\n        self.v = v\n", []string{"constructor(v) {", "this.v = v;"}},
		{"comprehension_iife", "xs = [i for i in range(3)]\n", []string{"(() => { const __pyx_r = [];", "return __pyx_r; })()"}},
		{"generator_expression", "g = (i for i in range(3))\n", []string{"(function* () {", "yield i;"}},
		{"fstring_template", "n = 1\nprint(f\"n={n!r}\")\n", []string{"`n=${JSON.stringify(n)}`"}},
		{"raise_class", "raise ValueError\n", []string{"throw new ValueError();"}},
		{"raise_from", "try:\n    pass\nexcept KeyError as e:\n    raise ValueError(\"x\") from e\n", []string{"__pyx_chain(new ValueError(\"x\"), e)"}},
		{"relative_import", "from .util import helper\nhelper()\n", []string{`import { helper } from "./util.js";`}},
		{"nested_import_hoisted", "def f():\n    import pkg.mod\n    return mod\nf()\n", []string{`import * as __pyx_import`}},
		{"async_function", "async def f():\n    await g()\nasync def g():\n    pass\n", []string{"async function f() {", "await g();"}},
		{"reserved_name", "new = 1\nprint(new)\n", []string{"let new_ = 1;"}},
		{"isinstance_inline", "x = 1\nprint(isinstance(x, (int, str)))\n", []string{`Number.isInteger(x) || typeof x === "string"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := generate(t, tt.src, Options{})
			for _, want := range tt.want {
				if !strings.Contains(out.Code, want) {
					t.Errorf("missing %q in:\n%s", want, out.Code)
				}
			}
		})
	}
}

func TestPreludeOnlyUsedHelpers(t *testing.T) {
	out := generate(t, "print(len([1, 2]))\n", Options{})
	if !strings.Contains(out.Code, "function __pyx_len(") {
		t.Errorf("expected __pyx_len in prelude:\n%s", out.Code)
	}
	for _, unused := range []string{"__pyx_range", "__pyx_methods", "class ValueError"} {
		if strings.Contains(out.Code, unused) {
			t.Errorf("unexpected %s in prelude:\n%s", unused, out.Code)
		}
	}

	plain := generate(t, "print(1)\n", Options{})
	if strings.Contains(plain.Code, "function __pyx_") {
		t.Errorf("expected no prelude:\n%s", plain.Code)
	}
}

func TestPreludeDependencies(t *testing.T) {
	out := generate(t, "print(\"a b\".split())\n", Options{})
	for _, want := range []string{"const __pyx_methods = {", "function __pyx_method(", "function __pyx_strip(", "class AttributeError extends Error", "function __pyx_isdict("} {
		if !strings.Contains(out.Code, want) {
			t.Errorf("missing %q in prelude", want)
		}
	}
	// fixed order: exceptions first, then helpers in table order
	if strings.Index(out.Code, "class AttributeError") > strings.Index(out.Code, "function __pyx_isdict(") {
		t.Error("exception classes should precede helper functions")
	}
}

func TestModuleFormats(t *testing.T) {
	src := `import os
from sys import argv
export def f():
    return 1
let k = 2
export k
`
	esm := generate(t, src, Options{Format: ESM})
	for _, want := range []string{`import * as os from "node:process";`, `import { argv } from "node:process";`, "export function f() {", "export { k };"} {
		if !strings.Contains(esm.Code, want) {
			t.Errorf("ESM output missing %q:\n%s", want, esm.Code)
		}
	}

	cjs := generate(t, src, Options{Format: CommonJS})
	for _, want := range []string{`"use strict";`, `const os = require("node:process");`, `const { argv } = require("node:process");`, "module.exports.f = f;", "module.exports.k = k;"} {
		if !strings.Contains(cjs.Code, want) {
			t.Errorf("CommonJS output missing %q:\n%s", want, cjs.Code)
		}
	}
	if strings.Contains(cjs.Code, "export ") {
		t.Errorf("CommonJS output should not use export:\n%s", cjs.Code)
	}
}

func TestCommonJSExportsRun(t *testing.T) {
	out := generate(t, "export def add(a, b):\n    return a + b\n", Options{Format: CommonJS})

	vm := goja.New()
	module := vm.NewObject()
	_ = module.Set("exports", vm.NewObject())
	_ = vm.Set("module", module)
	if _, err := vm.RunString(out.Code); err != nil {
		t.Fatalf("running generated code: %v\n%s", err, out.Code)
	}
	v, err := vm.RunString("module.exports.add(2, 3)")
	if err != nil {
		t.Fatalf("calling export: %v", err)
	}
	if v.ToInteger() != 5 {
		t.Errorf("add(2, 3) = %v", v)
	}
}

func TestCustomImportTable(t *testing.T) {
	table := stdlib.DefaultTable().With(map[string]stdlib.Module{
		"ui": {Specifier: "@acme/ui", Members: map[string]string{"Button": "Btn"}},
	})
	out := generate(t, "from ui import Button\nb = Button()\n", Options{Imports: table})
	for _, want := range []string{`import { Btn as Button } from "@acme/ui";`, "new Button()"} {
		if !strings.Contains(out.Code, want) {
			t.Errorf("missing %q in:\n%s", want, out.Code)
		}
	}
}

func TestPositionMapModes(t *testing.T) {
	src := "x = 1\n\ny = x + 1\nprint(y)\n"

	none := generate(t, src, Options{})
	if none.Map != nil {
		t.Error("MapNone should not return a map")
	}
	if strings.Contains(none.Code, "// src") {
		t.Error("MapNone should not write position comments")
	}

	comments := generate(t, src, Options{PositionMap: MapComments})
	for _, want := range []string{"let x = 1; // src 1:1", "let y = x + 1; // src 3:1", "console.log(y); // src 4:1"} {
		if !strings.Contains(comments.Code, want) {
			t.Errorf("missing %q in:\n%s", want, comments.Code)
		}
	}

	table := generate(t, src, Options{PositionMap: MapTable})
	if table.Map.Len() != 3 {
		t.Fatalf("expected 3 mappings, got %d", table.Map.Len())
	}
	lines := strings.Split(table.Code, "\n")
	for i, l := range lines {
		if !strings.HasPrefix(l, "let y") {
			continue
		}
		m, ok := table.Map.Lookup(i + 1)
		if !ok || m.SrcLine != 3 || m.SrcCol != 1 {
			t.Errorf("line %d maps to %+v, want 3:1", i+1, m)
		}
	}
}

func TestPositionMapNestedLines(t *testing.T) {
	src := "def f(a):\n    if a:\n        return 1\n    return 2\n"
	out := generate(t, src, Options{PositionMap: MapComments})
	for _, want := range []string{"function f(a) { // src 1:1", "if (a) { // src 2:5", "return 1; // src 3:9", "return 2; // src 4:5"} {
		if !strings.Contains(out.Code, want) {
			t.Errorf("missing %q in:\n%s", want, out.Code)
		}
	}
}

func TestEmbeddedSourceMap(t *testing.T) {
	src := "x = 1\nprint(x)\n"
	out := generate(t, src, Options{EmbedSourceMap: true, Filename: "app.pyx", Source: src})

	const prefix = "//# sourceMappingURL=data:application/json;charset=utf-8;base64,"
	i := strings.Index(out.Code, prefix)
	if i < 0 {
		t.Fatalf("missing source map comment:\n%s", out.Code)
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(out.Code[i+len(prefix):]))
	if err != nil {
		t.Fatalf("decoding source map: %v", err)
	}
	consumer, err := gosourcemap.Parse("app.js", data)
	if err != nil {
		t.Fatalf("parsing source map: %v", err)
	}

	lines := strings.Split(out.Code, "\n")
	for i, l := range lines {
		if !strings.HasPrefix(l, "console.log(x)") {
			continue
		}
		file, _, line, col, ok := consumer.Source(i+1, 0)
		if !ok || !strings.HasSuffix(file, "app.pyx") || line != 2 || col != 0 {
			t.Errorf("got %s %d:%d (ok=%v), want app.pyx 2:0", file, line, col, ok)
		}
	}
}

func TestOutputIsValidJavaScript(t *testing.T) {
	src := `class Node:
    def __init__(self, value, children):
        self.value = value
        self.children = children
    def __iter__(self):
        return iter(self.children)
    def __str__(self):
        return f"Node({self.value})"
def walk(node, depth=0):
    yield node.value
    for child in node.children:
        yield from walk(child, depth + 1)
async def load(urls):
    results = [await fetch(u) async for u in urls]
    return results
def fetch(u):
    return u
with open("f") as fh, open("g"):
    pass
match (1, 2):
    case (x, *_):
        print(x)
    case {"k": v, **rest}:
        print(v, rest)
`
	for _, format := range []Format{ESM, CommonJS} {
		out, err := Generate(validated(t, src, true), Options{Format: format})
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if err := ValidateOutput(out.Code); err != nil {
			t.Errorf("%s output failed validation: %v\n%s", format, err, out.Code)
		}
	}
}

func TestParseOptions(t *testing.T) {
	if f, err := ParseFormat("commonjs"); err != nil || f != CommonJS {
		t.Errorf("ParseFormat(commonjs) = %v, %v", f, err)
	}
	if _, err := ParseFormat("amd"); err == nil {
		t.Error("expected an error for an unknown format")
	}
	if m, err := ParseMapMode("comments"); err != nil || m != MapComments {
		t.Errorf("ParseMapMode(comments) = %v, %v", m, err)
	}
	if _, err := ParseMapMode("inline"); err == nil {
		t.Error("expected an error for an unknown map mode")
	}
}
