package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
)

func pyxis(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeSource(t *testing.T, dir, rel, src string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
		out  string
	}{
		{"version", []string{"version"}, 0, "pyxis compiler version " + version},
		{"help", []string{"help"}, 0, "Usage:"},
		{"unknown", []string{"frobnicate"}, 1, ""},
		{"no_args", nil, 1, ""},
		{"build_missing_path", []string{"build"}, 1, ""},
		{"bad_flag", []string{"build", "-nope", "x.pyx"}, 2, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, _ := pyxis(t, tt.args...)
			if code != tt.code {
				t.Errorf("exit code = %d, want %d", code, tt.code)
			}
			if !strings.Contains(out, tt.out) {
				t.Errorf("stdout %q does not contain %q", out, tt.out)
			}
		})
	}
}

func TestBuildDirectory(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "app.pyx", "import util\nprint(util.twice(2))\n")
	writeSource(t, dir, "util.pyx", "export def twice(x):\n    return x * 2\n")
	writeSource(t, dir, "lib/extra.pyx", "x = 1\n")
	writeSource(t, dir, "notes.txt", "not a source")

	out := filepath.Join(dir, "dist")
	code, stdout, stderr := pyxis(t, "build", dir, "-o", out, "-format", "cjs", "-verify", "-j", "2")
	if code != 0 {
		t.Fatalf("build failed (%d): %s", code, stderr)
	}
	for _, rel := range []string{"app.js", "util.js", filepath.Join("lib", "extra.js")} {
		data, err := os.ReadFile(filepath.Join(out, rel))
		if err != nil {
			t.Errorf("missing output %s: %v", rel, err)
			continue
		}
		if !strings.HasPrefix(string(data), `"use strict";`) {
			t.Errorf("%s is not CommonJS:\n%s", rel, data)
		}
	}
	if !strings.Contains(stdout, "app.pyx -> ") {
		t.Errorf("build should report written files: %q", stdout)
	}
}

func TestBuildSingleFile(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "main.pyx", "def f():\n    return 1\nprint(f())\n")
	out := filepath.Join(dir, "out", "bundle.js")

	code, _, stderr := pyxis(t, "build", "-map", src, "-o", out)
	if code != 0 {
		t.Fatalf("build failed (%d): %s", code, stderr)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "//# sourceMappingURL=data:application/json") {
		t.Errorf("expected an inline source map:\n%s", data)
	}
}

func TestBuildReportsErrors(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "bad.pyx", "x = = 1\n")

	code, _, stderr := pyxis(t, "build", src)
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "bad.pyx:1:") || !strings.Contains(stderr, "E201") {
		t.Errorf("expected a located diagnostic, got %q", stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, "bad.js")); !os.IsNotExist(err) {
		t.Error("no output should be written for a file with errors")
	}
}

func TestCheckJSON(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "ok.pyx", "print(1)\n")
	writeSource(t, dir, "dup.pyx", "let x = 1\nlet x = 2\n")

	code, stdout, _ := pyxis(t, "check", dir, "-json")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}

	var reports []struct {
		File        string `json:"file"`
		Diagnostics []struct {
			Severity string `json:"severity"`
			Stage    string `json:"stage"`
			Code     string `json:"code"`
			Line     int    `json:"line"`
		} `json:"diagnostics"`
	}
	if err := json.Unmarshal([]byte(stdout), &reports); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout)
	}
	if len(reports) != 2 || reports[0].File != "dup.pyx" || reports[1].File != "ok.pyx" {
		t.Fatalf("unexpected reports: %+v", reports)
	}
	d := reports[0].Diagnostics
	if len(d) != 1 || d[0].Code != "E301" || d[0].Severity != "error" || d[0].Stage != "validate" || d[0].Line != 2 {
		t.Errorf("unexpected diagnostics: %+v", d)
	}
	if reports[1].Diagnostics == nil || len(reports[1].Diagnostics) != 0 {
		t.Errorf("clean file should have an empty list: %+v", reports[1].Diagnostics)
	}
}

func TestCheckText(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "warn.pyx", "print(y)\n")

	code, stdout, _ := pyxis(t, "check", src)
	if code != 0 {
		t.Errorf("warnings alone should not fail, got %d", code)
	}
	if !strings.Contains(stdout, "warn.pyx:1:7") || !strings.Contains(stdout, "W304") {
		t.Errorf("unexpected output %q", stdout)
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "util.pyx", "export def twice(x):\n    return x * 2\n")
	main := writeSource(t, dir, "main.pyx", `import sys
import util

print(util.twice(21), sys.argv[2])
`)

	code, stdout, stderr := pyxis(t, "run", main, "hello")
	if code != 0 {
		t.Fatalf("run failed (%d): %s", code, stderr)
	}
	if strings.TrimSpace(stdout) != "42 hello" {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestRunExitCode(t *testing.T) {
	dir := t.TempDir()
	main := writeSource(t, dir, "exit.pyx", "import sys\nprint(\"bye\")\nsys.exit(4)\n")

	code, stdout, _ := pyxis(t, "run", main)
	if code != 4 {
		t.Errorf("exit code = %d, want 4", code)
	}
	if strings.TrimSpace(stdout) != "bye" {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestRunRefusesSyntaxErrors(t *testing.T) {
	dir := t.TempDir()
	main := writeSource(t, dir, "bad.pyx", "print(\"start\")\nx = = 2\n")

	code, stdout, stderr := pyxis(t, "run", main)
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if stdout != "" {
		t.Errorf("program should not run, got %q", stdout)
	}
	if !strings.Contains(stderr, "syntax errors") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRunToleratesWarnings(t *testing.T) {
	dir := t.TempDir()
	main := writeSource(t, dir, "warn.pyx", "def f():\n    unused = 1\n    return 2\nprint(f())\n")

	code, stdout, stderr := pyxis(t, "run", main)
	if code != 0 {
		t.Fatalf("run failed (%d): %s", code, stderr)
	}
	if strings.TrimSpace(stdout) != "2" {
		t.Errorf("stdout = %q", stdout)
	}
	if !strings.Contains(stderr, "W305") {
		t.Errorf("warning should be printed, got %q", stderr)
	}
}

func TestLogFile(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "ok.pyx", "print(1)\n")
	logPath := filepath.Join(dir, "pyxis.log")

	code, _, stderr := pyxis(t, "check", "-v", "-log-json", "-log-file", logPath, src)
	if code != 0 {
		t.Fatalf("check failed (%d): %s", code, stderr)
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"msg":"Validation complete"`, `"file":"ok.pyx"`, `"scopes":`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log missing %s:\n%s", want, data)
		}
	}
}
