// Package diag defines the diagnostic model shared by every compiler stage.
//
// Design: stages never fail on user errors. They append to a List and hand it
// back next to their normal result; the caller decides what to do with it.
package diag

import (
	"fmt"
	"io"
	"sort"

	json "github.com/goccy/go-json"
)

// Severity of a diagnostic
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "unknown"
	}
}

// MarshalText encodes the severity by name
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Stage is the pipeline stage that produced a diagnostic. It is metadata for
// tooling and never part of the rendered message.
type Stage int

const (
	Lex Stage = iota
	Parse
	Validate
	Generate
)

func (s Stage) String() string {
	switch s {
	case Lex:
		return "lex"
	case Parse:
		return "parse"
	case Validate:
		return "validate"
	case Generate:
		return "generate"
	default:
		return "unknown"
	}
}

// MarshalText encodes the stage by name
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Diagnostic codes. Lexer 1xx, parser 2xx, validator 3xx, generator 4xx.
const (
	CodeInvalidChar         = "E101"
	CodeUnterminatedString  = "E102"
	CodeInconsistentIndent  = "E103"
	CodeUnmatchedBracket    = "E104"
	CodeMalformedNumber     = "E105"
	CodeUnclosedBlock       = "E106"
	CodeUnterminatedComment = "E107"
	CodeBadEscape           = "E108"
	CodeEmptyInterpolation  = "E109"

	CodeUnexpectedToken = "E201"
	CodeExpectedBlock   = "E202"
	CodeInvalidTarget   = "E203"
	CodeInvalidPattern  = "E204"

	CodeRedeclared        = "E301"
	CodeRedeclaredVar     = "W302"
	CodeAssignImmutable   = "E303"
	CodeUndefinedName     = "W304"
	CodeUnused            = "W305"
	CodeTypeMismatch      = "W306"
	CodeTypeMismatchError = "E306"
	CodeOutsideFunction   = "E307"
	CodeAwaitOutsideAsync = "E308"
	CodeOutsideLoop       = "E309"
	CodeDuplicateParam    = "E310"
	CodeOrPatternBindings = "E311"
	CodeDeleteName        = "E312"
	CodeMultipleStarred   = "E313"

	CodeInternal = "E401"
)

// Diagnostic is a single positioned report
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Stage    Stage    `json:"stage"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Line     int      `json:"line"`
	Col      int      `json:"column"`
}

// String renders the diagnostic as one line without a file name
func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s: %s [%s]", d.Line, d.Col, d.Severity, d.Message, d.Code)
}

// Format renders the diagnostic prefixed with a file name
func (d Diagnostic) Format(file string) string {
	if file == "" {
		return d.String()
	}
	return file + ":" + d.String()
}

// List accumulates diagnostics for one stage
type List struct {
	stage Stage
	items []Diagnostic
}

// NewList creates an empty list whose entries are attributed to stage
func NewList(stage Stage) *List {
	return &List{stage: stage}
}

// Errorf records an error
func (l *List) Errorf(line, col int, code, format string, args ...any) {
	l.add(Error, line, col, code, fmt.Sprintf(format, args...))
}

// Warnf records a warning
func (l *List) Warnf(line, col int, code, format string, args ...any) {
	l.add(Warning, line, col, code, fmt.Sprintf(format, args...))
}

func (l *List) add(sev Severity, line, col int, code, msg string) {
	l.items = append(l.items, Diagnostic{
		Severity: sev,
		Stage:    l.stage,
		Code:     code,
		Message:  msg,
		Line:     line,
		Col:      col,
	})
}

// Len returns the number of recorded diagnostics
func (l *List) Len() int { return len(l.items) }

// Items returns the recorded diagnostics in insertion order
func (l *List) Items() []Diagnostic { return l.items }

// Sort orders diagnostics by position, keeping insertion order for ties
func Sort(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		if ds[i].Line != ds[j].Line {
			return ds[i].Line < ds[j].Line
		}
		return ds[i].Col < ds[j].Col
	})
}

// HasErrors reports whether ds contains an error from one of stages.
// With no stages given, any error counts.
func HasErrors(ds []Diagnostic, stages ...Stage) bool {
	for _, d := range ds {
		if d.Severity != Error {
			continue
		}
		if len(stages) == 0 {
			return true
		}
		for _, s := range stages {
			if d.Stage == s {
				return true
			}
		}
	}
	return false
}

// Count returns the number of diagnostics with the given severity
func Count(ds []Diagnostic, sev Severity) int {
	n := 0
	for _, d := range ds {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// Report is the JSON shape written for tooling
type Report struct {
	File        string       `json:"file"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// WriteJSON encodes reports as a JSON array
func WriteJSON(w io.Writer, reports []Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

// WriteText renders each diagnostic on its own line
func WriteText(w io.Writer, file string, ds []Diagnostic) error {
	for _, d := range ds {
		if _, err := fmt.Fprintln(w, d.Format(file)); err != nil {
			return err
		}
	}
	return nil
}
