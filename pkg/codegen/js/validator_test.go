package js

import (
	"strings"
	"testing"
)

func TestValidatorAcceptsValidCode(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"empty", ""},
		{"statements", "const x = 1;\nlet y = x + 1;\nconsole.log(y);\n"},
		{"class", "class A extends B {\n  constructor(v) {\n    super();\n    this.v = v;\n  }\n}\n"},
		{"helper", "function __pyx_len(x) {\n  return x.length;\n}\nconsole.log(__pyx_len([1]));\n"},
		{"temps", "let __pyx_t1;\n__pyx_t1 = 2;\n"},
		{"module", "import * as m from \"./m.js\";\nexport { m };\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateOutput(tt.code); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidatorRejectsInvalidCode(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		line    int
		message string
	}{
		{"unbalanced", "function f() {\n  return 1;\n", 0, ""},
		{"bad_token", "const x = 1;\nlet = = 2;\n", 2, ""},
		{"undefined_helper", "console.log(__pyx_len([1]));\n", 1, "undefined helper: __pyx_len"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			err := v.Validate(tt.code)
			if err == nil {
				t.Fatal("expected validation to fail")
			}
			if len(v.Errors()) == 0 {
				t.Fatal("expected recorded errors")
			}
			first := v.Errors()[0]
			if tt.line > 0 && first.Line != tt.line {
				t.Errorf("error at line %d, want %d", first.Line, tt.line)
			}
			if tt.message != "" && !strings.Contains(err.Error(), tt.message) {
				t.Errorf("error %q does not mention %q", err, tt.message)
			}
		})
	}
}

func TestValidatorWarnsOnPlaceholders(t *testing.T) {
	v := NewValidator()
	if err := v.Validate("/* parse error */\nconsole.log(1);\n"); err != nil {
		t.Fatalf("placeholders should not fail validation: %v", err)
	}
	if len(v.Warnings()) != 1 || v.Warnings()[0].Line != 1 {
		t.Errorf("expected one warning on line 1, got %+v", v.Warnings())
	}
}

func TestValidationErrorFormat(t *testing.T) {
	err := &ValidationError{Line: 3, Message: "syntax error", Code: "let = ;"}
	want := "line 3: syntax error\n  let = ;"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestPreludeIsValidJavaScript(t *testing.T) {
	g := &generator{used: make(map[string]bool)}
	for _, name := range HelperNames() {
		g.use(name)
	}
	code := strings.Join(g.prelude(), "\n")
	if err := ValidateOutput(code); err != nil {
		t.Fatalf("prelude failed validation: %v", err)
	}
}
