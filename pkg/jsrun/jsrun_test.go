package jsrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/GriffinCanCode/pyxis-compiler/pkg/codegen/js"
	"github.com/GriffinCanCode/pyxis-compiler/pkg/compiler"
)

func run(t *testing.T, code string, opts Options) (string, *Result, error) {
	t.Helper()
	var out bytes.Buffer
	opts.Stdout = &out
	opts.Stderr = &out
	res, err := Run(context.Background(), code, opts)
	return strings.TrimSpace(out.String()), res, err
}

func TestConsoleOutput(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"strings", `console.log("a", "b");`, "a b"},
		{"numbers", `console.log(1, 2.5, -3);`, "1 2.5 -3"},
		{"array", `console.log([1, 2, [3]]);`, "[1,2,[3]]"},
		{"object", `console.log({x: 1});`, `{"x":1}`},
		{"null", `console.log(null, undefined, true);`, "null undefined true"},
		{"error", `console.error(new Error("bad"));`, "Error: bad"},
		{"lines", "console.log(1);\nconsole.info(2);", "1\n2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := run(t, tt.code, Options{})
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExports(t *testing.T) {
	_, res, err := run(t, `"use strict";
function add(a, b) { return a + b; }
module.exports.add = add;
module.exports.name = "calc";
`, Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got, err := res.Call("add", 2, 3)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if got != int64(5) {
		t.Errorf("add(2, 3) = %v (%T), want 5", got, got)
	}
	if res.Exports()["name"] != "calc" {
		t.Errorf("exports = %v", res.Exports())
	}
	if _, err := res.Call("name"); err == nil {
		t.Error("calling a non-function export should fail")
	}
}

func TestRequireHostModules(t *testing.T) {
	code := `const { join, basename } = require("node:path");
const process = require("node:process");
const cfg = require("config");
console.log(join("a", "b", "../c"), basename("/x/y.pyx"));
console.log(process.argv[1], process.argv[2], cfg.mode);
`
	got, _, err := run(t, code, Options{
		Filename: "app.js",
		Args:     []string{"--fast"},
		Modules:  map[string]any{"config": map[string]any{"mode": "test"}},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := "a/c y.pyx\napp.js --fast test"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestRequireUnknownModule(t *testing.T) {
	_, _, err := run(t, `require("fs");`, Options{})
	if err == nil || !strings.Contains(err.Error(), `cannot find module "fs"`) {
		t.Errorf("expected a missing module error, got %v", err)
	}
}

func TestRequireRelativeModules(t *testing.T) {
	files := map[string]string{
		"lib/util.js":   `const h = require("./helper.js"); module.exports.twice = (x) => h.add(x, x);`,
		"lib/helper.js": `module.exports.add = (a, b) => a + b;`,
	}
	var loads []string
	load := func(spec string) (string, error) {
		loads = append(loads, spec)
		code, ok := files[spec]
		if !ok {
			return "", fmt.Errorf("no such file")
		}
		return code, nil
	}

	code := `const u = require("./lib/util.js");
const again = require("./lib/util.js");
console.log(u.twice(21), u === again);
`
	got, _, err := run(t, code, Options{Filename: "main.js", Load: load})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got != "42 true" {
		t.Errorf("output = %q", got)
	}
	if strings.Join(loads, ",") != "lib/util.js,lib/helper.js" {
		t.Errorf("loads = %v; each module should load once", loads)
	}

	_, _, err = run(t, `require("./missing.js");`, Options{Load: load})
	if err == nil || !strings.Contains(err.Error(), "no such file") {
		t.Errorf("expected load error, got %v", err)
	}
}

func TestProcessExit(t *testing.T) {
	_, _, err := run(t, `require("node:process").exit(3); console.log("unreachable");`, Options{})
	var exit *ExitError
	if !errors.As(err, &exit) || exit.Code != 3 {
		t.Fatalf("expected exit status 3, got %v", err)
	}

	got, res, err := run(t, `console.log("bye"); require("node:process").exit(0);`, Options{})
	if err != nil || res == nil {
		t.Fatalf("exit(0) should succeed, got %v", err)
	}
	if got != "bye" {
		t.Errorf("output = %q", got)
	}
}

func TestUncaughtException(t *testing.T) {
	_, _, err := run(t, `throw new Error("boom");`, Options{})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected the thrown error, got %v", err)
	}
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := Run(ctx, `while (true) {}`, Options{Stdout: &bytes.Buffer{}})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	done, stop := context.WithCancel(context.Background())
	stop()
	if _, err := Run(done, `console.log(1)`, Options{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected canceled, got %v", err)
	}
}

func TestRunCompiledProgram(t *testing.T) {
	src := `import os.path

def total(xs):
    return sum(xs)

def double(x):
    return x * 2

class Counter:
    def __init__(self):
        self.n = 0

    def bump(self):
        self.n += 1
        return self

c = Counter().bump().bump()
print(total([1, 2, 3]), c.n, path.basename("/a/b.pyx"))
export double
`
	opts := compiler.DefaultOptions()
	opts.Format = js.CommonJS
	out, err := compiler.Compile(compiler.Input{Source: src, Filename: "prog.pyx"}, opts)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if out.HasErrors() {
		t.Fatalf("diagnostics: %v", out.Diagnostics)
	}

	got, res, err := run(t, out.Code, Options{Filename: "prog.js"})
	if err != nil {
		t.Fatalf("Run failed: %v\n%s", err, out.Code)
	}
	if got != "6 2 b.pyx" {
		t.Errorf("output = %q", got)
	}
	v, err := res.Call("double", 21)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if v != int64(42) {
		t.Errorf("double(21) = %v", v)
	}
}

func TestRunCompiledGenerators(t *testing.T) {
	src := `def squares(n):
    for i in range(n):
        yield i * i

b = 4
print(list(squares(4)), sum(x for x in squares(3)), -b ** 2, (-b) ** 2)
`
	opts := compiler.DefaultOptions()
	opts.Format = js.CommonJS
	out, err := compiler.Compile(compiler.Input{Source: src, Filename: "gen.pyx"}, opts)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if out.HasErrors() {
		t.Fatalf("diagnostics: %v", out.Diagnostics)
	}
	if !strings.Contains(out.Code, "function* squares(") {
		t.Errorf("expected a generator function:\n%s", out.Code)
	}

	got, _, err := run(t, out.Code, Options{Filename: "gen.js"})
	if err != nil {
		t.Fatalf("Run failed: %v\n%s", err, out.Code)
	}
	if got != "[0,1,4,9] 5 16 16" {
		t.Errorf("output = %q", got)
	}
}
