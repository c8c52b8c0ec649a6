package diag

import (
	"bytes"
	"strings"
	"testing"
)

func TestListAttributesStage(t *testing.T) {
	l := NewList(Parse)
	l.Errorf(3, 5, CodeUnexpectedToken, "unexpected %q", ")")
	l.Warnf(1, 1, CodeUnused, "unused")

	if l.Len() != 2 {
		t.Fatalf("Len = %d, want 2", l.Len())
	}
	first := l.Items()[0]
	if first.Stage != Parse || first.Severity != Error || first.Message != `unexpected ")"` {
		t.Errorf("unexpected diagnostic %+v", first)
	}
	if l.Items()[1].Severity != Warning {
		t.Errorf("second entry should be a warning")
	}
}

func TestSortKeepsTies(t *testing.T) {
	ds := []Diagnostic{
		{Line: 2, Col: 1, Code: "b"},
		{Line: 1, Col: 4, Code: "c"},
		{Line: 1, Col: 4, Code: "d"},
		{Line: 1, Col: 1, Code: "a"},
	}
	Sort(ds)

	var codes []string
	for _, d := range ds {
		codes = append(codes, d.Code)
	}
	if got := strings.Join(codes, ""); got != "acdb" {
		t.Errorf("order = %s, want acdb", got)
	}
}

func TestHasErrors(t *testing.T) {
	ds := []Diagnostic{
		{Severity: Warning, Stage: Lex},
		{Severity: Error, Stage: Validate},
	}

	tests := []struct {
		name   string
		stages []Stage
		want   bool
	}{
		{"any", nil, true},
		{"validate", []Stage{Validate}, true},
		{"lex_parse", []Stage{Lex, Parse}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasErrors(ds, tt.stages...); got != tt.want {
				t.Errorf("HasErrors(%v) = %v, want %v", tt.stages, got, tt.want)
			}
		})
	}

	if Count(ds, Warning) != 1 || Count(ds, Error) != 1 {
		t.Error("Count miscounted severities")
	}
}

func TestFormat(t *testing.T) {
	d := Diagnostic{Severity: Error, Stage: Lex, Code: CodeBadEscape, Message: "bad escape", Line: 4, Col: 9}
	if got, want := d.Format("a.pyx"), "a.pyx:4:9: error: bad escape [E108]"; got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}
	if got, want := d.Format(""), "4:9: error: bad escape [E108]"; got != want {
		t.Errorf("Format without file = %q, want %q", got, want)
	}

	var buf bytes.Buffer
	if err := WriteText(&buf, "a.pyx", []Diagnostic{d, d}); err != nil {
		t.Fatal(err)
	}
	if strings.Count(buf.String(), "\n") != 2 {
		t.Errorf("expected one line per diagnostic, got %q", buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	reports := []Report{{
		File: "m.pyx",
		Diagnostics: []Diagnostic{
			{Severity: Warning, Stage: Validate, Code: CodeUndefinedName, Message: "undefined name \"y\"", Line: 1, Col: 7},
		},
	}}
	if err := WriteJSON(&buf, reports); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{`"file": "m.pyx"`, `"severity": "warning"`, `"stage": "validate"`, `"code": "W304"`, `"column": 7`} {
		if !strings.Contains(out, want) {
			t.Errorf("JSON missing %s:\n%s", want, out)
		}
	}
}
