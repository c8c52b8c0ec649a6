package semantic

import (
	"testing"

	"github.com/GriffinCanCode/pyxis-compiler/pkg/diag"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/frontend"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/types"
)

func check(t *testing.T, src string, opts Options) (*frontend.Module, []diag.Diagnostic) {
	t.Helper()
	toks, lexDiags := frontend.Tokenize(src)
	mod, parseDiags := frontend.Parse(toks)
	for _, d := range append(lexDiags, parseDiags...) {
		t.Fatalf("unexpected diagnostic before validation: %s", d)
	}
	return mod, Validate(mod, opts)
}

func countCode(ds []diag.Diagnostic, code string) int {
	n := 0
	for _, d := range ds {
		if d.Code == code {
			n++
		}
	}
	return n
}

func TestDiagnostics(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
		want int
	}{
		{"let_redeclared", "let x = 1\nlet x = 2\nprint(x)\n", diag.CodeRedeclared, 1},
		{"var_redeclared_is_warning", "var x = 1\nvar x = 2\nprint(x)\n", diag.CodeRedeclaredVar, 1},
		{"var_redeclared_no_error", "var x = 1\nvar x = 2\nprint(x)\n", diag.CodeRedeclared, 0},
		{"def_redeclared", "def f():\n    pass\ndef f():\n    pass\n", diag.CodeRedeclared, 1},
		{"assign_let", "let x = 1\nx = 2\n", diag.CodeAssignImmutable, 1},
		{"compound_let", "let n = 1\nn += 1\n", diag.CodeAssignImmutable, 1},
		{"assign_function", "def f():\n    pass\nf = 1\n", diag.CodeAssignImmutable, 1},
		{"assign_var", "var x = 1\nx = 2\n", diag.CodeAssignImmutable, 0},
		{"undefined_once", "print(y)\nprint(y)\n", diag.CodeUndefinedName, 1},
		{"use_before_definition", "print(z)\nz = 1\n", diag.CodeUndefinedName, 1},
		{"unused_import", "import os\n", diag.CodeUnused, 1},
		{"unused_local", "def f():\n    x = 1\nf()\n", diag.CodeUnused, 1},
		{"underscore_local", "def f():\n    _x = 1\nf()\n", diag.CodeUnused, 0},
		{"module_variable", "x = 1\n", diag.CodeUnused, 0},
		{"exported_import", "import os\nexport os\n", diag.CodeUnused, 0},
		{"type_mismatch", "let x: int = \"a\"\nprint(x)\n", diag.CodeTypeMismatch, 1},
		{"int_into_float", "let x: float = 1\nprint(x)\n", diag.CodeTypeMismatch, 0},
		{"optional", "let x: Optional[str] = None\nprint(x)\n", diag.CodeTypeMismatch, 0},
		{"return_mismatch", "def f() -> str:\n    return 1\nf()\n", diag.CodeTypeMismatch, 1},
		{"default_mismatch", "def f(a: int = \"x\"):\n    return a\nf()\n", diag.CodeTypeMismatch, 1},
		{"return_outside", "return 1\n", diag.CodeOutsideFunction, 1},
		{"yield_outside", "yield 1\n", diag.CodeOutsideFunction, 1},
		{"await_outside", "async def f():\n    pass\ndef g():\n    await f()\ng()\n", diag.CodeAwaitOutsideAsync, 1},
		{"await_inside", "async def f():\n    pass\nasync def g():\n    await f()\ng()\n", diag.CodeAwaitOutsideAsync, 0},
		{"break_outside", "while True:\n    pass\nbreak\n", diag.CodeOutsideLoop, 1},
		{"continue_in_nested_def", "for i in range(3):\n    def g():\n        continue\n    g()\n", diag.CodeOutsideLoop, 1},
		{"break_inside", "while True:\n    break\n", diag.CodeOutsideLoop, 0},
		{"duplicate_param", "def f(a, a):\n    return a\nf(1, 2)\n", diag.CodeDuplicateParam, 1},
		{"or_pattern_bindings", "p = 1\nmatch p:\n    case [x] | [y]:\n        pass\n", diag.CodeOrPatternBindings, 1},
		{"or_pattern_same", "p = 1\nmatch p:\n    case [x] | (x,):\n        print(x)\n", diag.CodeOrPatternBindings, 0},
		{"del_name", "x = 1\ndel x\n", diag.CodeDeleteName, 1},
		{"del_item", "x = [1]\ndel x[0]\n", diag.CodeDeleteName, 0},
		{"two_starred", "xs = []\na, *b, *c = xs\n", diag.CodeMultipleStarred, 1},
		{"two_starred_pattern", "p = 1\nmatch p:\n    case [*a, *b]:\n        pass\n", diag.CodeMultipleStarred, 1},
		{"class_body_hidden_from_methods", "class A:\n    k = 1\n    def m(self):\n        return k\n", diag.CodeUndefinedName, 1},
		{"comprehension_target_scoped", "xs = [i * 2 for i in range(3)]\nprint(xs, i)\n", diag.CodeUndefinedName, 1},
		{"record_outside_assignment", "print({a, b})\n", diag.CodeInvalidTarget, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ds := check(t, tt.src, Options{})
			if got := countCode(ds, tt.code); got != tt.want {
				t.Errorf("got %d %s diagnostics, want %d: %v", got, tt.code, tt.want, ds)
			}
		})
	}
}

func TestCleanPrograms(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"forward_reference", "def a():\n    return b()\ndef b():\n    return 1\na()\n"},
		{"builtins", "print(len([1]), str(2), range(3))\n"},
		{"closure_compound_assignment", "def outer():\n    var count = 0\n    def inc():\n        count += 1\n    inc()\n    return count\nouter()\n"},
		{"shadowing_let_in_inner_function", "def outer():\n    let v = 1\n    def inner():\n        v = 2\n        return v\n    return inner() + v\nouter()\n"},
		{"walrus", "def f(xs):\n    if (n := len(xs)) > 1:\n        return n\n    return 0\nf([])\n"},
		{"exception_binding", "try:\n    pass\nexcept ValueError as e:\n    print(e)\n"},
		{"with_target", "def f(ctx):\n    with ctx as fh:\n        return fh\nf(1)\n"},
		{"export_forward", "export x\nx = 1\n"},
		{"match_captures", "p = 1\nmatch p:\n    case {\"k\": v, **rest}:\n        print(v, rest)\n    case Point(x, y=0) if x > 0:\n        print(x)\n    case _:\n        pass\n"},
		{"lambda_params", "f = lambda a, b=1: a + b\nprint(f(1))\n"},
		{"record_destructuring", "let point = {\"x\": 1}\nlet {x, **others} = point\nprint(x, others)\n"},
		{"loop_reassigns_existing", "def f(xs):\n    var last = None\n    for last in xs:\n        pass\n    return last\nf([])\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := tt.src
			opts := Options{}
			if tt.name == "match_captures" {
				opts.Globals = []string{"Point"}
			}
			_, ds := check(t, src, opts)
			if len(ds) != 0 {
				t.Errorf("expected no diagnostics, got %v", ds)
			}
		})
	}
}

func TestStrictTypes(t *testing.T) {
	src := "let x: int = \"a\"\nprint(x)\n"
	_, ds := check(t, src, Options{StrictTypes: true})
	if countCode(ds, diag.CodeTypeMismatchError) != 1 || countCode(ds, diag.CodeTypeMismatch) != 0 {
		t.Fatalf("strict mode should report an error: %v", ds)
	}
	if !diag.HasErrors(ds) {
		t.Error("strict mismatch must count as an error")
	}
}

func TestGlobals(t *testing.T) {
	src := "print(document.title)\n"
	if _, ds := check(t, src, Options{}); countCode(ds, diag.CodeUndefinedName) != 1 {
		t.Errorf("expected undefined name without globals: %v", ds)
	}
	if _, ds := check(t, src, Options{Globals: []string{"document"}}); len(ds) != 0 {
		t.Errorf("host globals should resolve: %v", ds)
	}
}

func TestRedeclarationKeepsFirstSymbol(t *testing.T) {
	mod, _ := check(t, "let x = 1\nlet x = 2\n", Options{})
	first := mod.Body[0].(*frontend.VarDecl).Target.(*frontend.Ident)
	second := mod.Body[1].(*frontend.VarDecl).Target.(*frontend.Ident)
	if first.Sym == nil || first.Sym != second.Sym {
		t.Fatalf("both declarations should refer to the first symbol")
	}
	if first.Sym.DeclLine != 1 {
		t.Errorf("symbol declared at line %d", first.Sym.DeclLine)
	}
}

func TestAssignmentDeclarations(t *testing.T) {
	mod, _ := check(t, "x = 1\nx = 2\n", Options{})
	a := mod.Body[0].(*frontend.ExprStmt).X.(*frontend.Assign)
	b := mod.Body[1].(*frontend.ExprStmt).X.(*frontend.Assign)
	if !a.Declares || b.Declares {
		t.Errorf("declares: first %v second %v", a.Declares, b.Declares)
	}
}

func TestHoisting(t *testing.T) {
	mod, ds := check(t, "def f(c):\n    if c:\n        y = 1\n    return y\nf(1)\n", Options{})
	if len(ds) != 0 {
		t.Fatalf("unexpected diagnostics: %v", ds)
	}
	fn := mod.Body[0].(*frontend.FuncDef)
	a := fn.Body[0].(*frontend.If).Body[0].(*frontend.ExprStmt).X.(*frontend.Assign)
	if a.Declares {
		t.Error("assignment inside a block should not declare in place")
	}
	id := a.Target.(*frontend.Ident)
	if id.Sym == nil || !id.Sym.Hoisted {
		t.Fatalf("y should be hoisted to the function scope")
	}
	if fn.Scope.LookupLocal("y") != id.Sym {
		t.Error("hoisted symbol should live in the function scope")
	}
}

func TestStatementTargetsBindInFunction(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"for_target", "def f(xs):\n    for v in xs:\n        pass\n    return v\nf([])\n"},
		{"with_target", "def f(c):\n    with c as v:\n        pass\n    return v\nf(1)\n"},
		{"match_capture", "def f(p):\n    match p:\n        case [v]:\n            pass\n    return v\nf(1)\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod, ds := check(t, tt.src, Options{})
			if len(ds) != 0 {
				t.Fatalf("unexpected diagnostics: %v", ds)
			}
			fn := mod.Body[0].(*frontend.FuncDef)
			sym := fn.Scope.LookupLocal("v")
			if sym == nil || !sym.Hoisted {
				t.Fatalf("v should be hoisted into the function scope, got %+v", sym)
			}
		})
	}
}

func TestCaptureRebindsExistingVariable(t *testing.T) {
	mod, ds := check(t, "var x = 0\nmatch 5:\n    case x:\n        pass\nprint(x)\n", Options{})
	if len(ds) != 0 {
		t.Fatalf("unexpected diagnostics: %v", ds)
	}
	decl := mod.Body[0].(*frontend.VarDecl).Target.(*frontend.Ident)
	capture := mod.Body[1].(*frontend.Match).Cases[0].Pattern.(*frontend.CapturePattern)
	if capture.Sym != decl.Sym {
		t.Error("the capture should bind the existing variable")
	}

	_, ds = check(t, "let x = 0\nmatch 5:\n    case x:\n        pass\n", Options{})
	if countCode(ds, diag.CodeAssignImmutable) != 1 {
		t.Errorf("capturing into a let binding should be rejected: %v", ds)
	}
}

func TestRedeclarationMarksSymbolRebound(t *testing.T) {
	mod, _ := check(t, "let x = 1\nlet y = 2\nlet x = 3\n", Options{})
	x := mod.Body[0].(*frontend.VarDecl).Target.(*frontend.Ident)
	y := mod.Body[1].(*frontend.VarDecl).Target.(*frontend.Ident)
	if !x.Sym.Rebound || y.Sym.Rebound {
		t.Errorf("rebound: x %v y %v", x.Sym.Rebound, y.Sym.Rebound)
	}
}

func TestFunctionFlags(t *testing.T) {
	src := "class A:\n    def m(self):\n        yield self\n    @staticmethod\n    def s(x):\n        return x\n"
	mod, ds := check(t, src, Options{Globals: []string{"staticmethod"}})
	if len(ds) != 0 {
		t.Fatalf("unexpected diagnostics: %v", ds)
	}
	cls := mod.Body[0].(*frontend.ClassDef)
	m := cls.Body[0].(*frontend.FuncDef)
	s := cls.Body[1].(*frontend.FuncDef)

	if !m.Method || !m.Generator {
		t.Errorf("m: method %v generator %v", m.Method, m.Generator)
	}
	if !m.Params[0].Sym.IsSelf {
		t.Error("first parameter of a method is the receiver")
	}
	if s.Params[0].Sym.IsSelf {
		t.Error("static methods have no receiver")
	}
	if s.Generator {
		t.Error("s is not a generator")
	}
}

func TestAsyncScope(t *testing.T) {
	mod, _ := check(t, "async def f():\n    pass\n", Options{})
	fn := mod.Body[0].(*frontend.FuncDef)
	if fn.Scope == nil || !fn.Scope.Async {
		t.Error("async function scope should be marked")
	}
}

func TestTypesRecorded(t *testing.T) {
	mod, _ := check(t, "let x: int = 1 + 2\nprint(x)\n", Options{})
	value := mod.Body[0].(*frontend.VarDecl).Value
	got, ok := mod.Types[value]
	if !ok {
		t.Fatal("checked value should have a recorded type")
	}
	if got.Kind != types.Int {
		t.Errorf("1 + 2 inferred as %s", got)
	}
}

func TestInferArithmetic(t *testing.T) {
	tests := []struct {
		src  string
		want types.Kind
	}{
		{"1 + 2", types.Int},
		{"1 + 2.0", types.Float},
		{"7.0 // 2", types.Int},
		{"\"a\" + \"b\"", types.Str},
		{"not x", types.Bool},
		{"-1.5", types.Float},
		{"str(1)", types.Str},
		{"[i for i in xs]", types.List},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			mod, _ := check(t, tt.src+"\n", Options{Globals: []string{"x", "xs"}})
			v := &validator{mod: mod}
			got := v.infer(mod.Body[0].(*frontend.ExprStmt).X)
			if got.Kind != tt.want {
				t.Errorf("inferred %s, want %s", got, tt.want)
			}
		})
	}
}
