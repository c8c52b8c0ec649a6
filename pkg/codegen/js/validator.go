// Package js - Generated output validation
package js

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/GriffinCanCode/pyxis-compiler/pkg/logger"
)

// ValidationError represents a problem in generated JavaScript
type ValidationError struct {
	Line    int
	Message string
	Code    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("line %d: %s\n  %s", e.Line, e.Message, e.Code)
}

// Validator checks generated JavaScript
type Validator struct {
	errors []ValidationError
	warns  []ValidationError
}

// NewValidator creates a new output validator
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
		warns:  make([]ValidationError, 0),
	}
}

// Validate parses code with the JavaScript grammar and checks that every
// helper it references is defined
func (v *Validator) Validate(code string) error {
	lines := strings.Split(code, "\n")

	if err := v.validateSyntax(code, lines); err != nil {
		return err
	}
	v.validateHelpers(code, lines)
	v.validatePlaceholders(lines)

	if len(v.errors) > 0 {
		return v.formatErrors()
	}

	if len(v.warns) > 0 {
		v.logWarnings()
	}

	return nil
}

// validateSyntax reports every ERROR and MISSING node of the parse tree
func (v *Validator) validateSyntax(code string, lines []string) error {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(javascript.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, []byte(code))
	if err != nil {
		return fmt.Errorf("parsing generated code: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil
	}
	v.walk(root, lines)
	return nil
}

func (v *Validator) walk(n *sitter.Node, lines []string) {
	switch {
	case n.IsMissing():
		row := int(n.StartPoint().Row)
		v.addError(row+1, fmt.Sprintf("missing %s", n.Type()), lineAt(lines, row))
		return
	case n.IsError():
		row := int(n.StartPoint().Row)
		v.addError(row+1, "syntax error", lineAt(lines, row))
		return
	}
	if !n.HasError() {
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		v.walk(n.Child(i), lines)
	}
}

var (
	helperRef  = regexp.MustCompile(`\b__pyx_[a-z_]*[a-z]\b`)
	helperDecl = regexp.MustCompile(`\b(?:function\*?|const|let|class)\s+(__pyx_[a-z_]*[a-z])\b`)
)

// validateHelpers checks that each prelude helper the code refers to is
// declared somewhere in it
func (v *Validator) validateHelpers(code string, lines []string) {
	declared := make(map[string]bool)
	for _, m := range helperDecl.FindAllStringSubmatch(code, -1) {
		declared[m[1]] = true
	}

	reported := make(map[string]bool)
	for i, line := range lines {
		for _, name := range helperRef.FindAllString(line, -1) {
			if declared[name] || reported[name] {
				continue
			}
			reported[name] = true
			v.addError(i+1, fmt.Sprintf("undefined helper: %s", name), line)
		}
	}
}

// validatePlaceholders warns about statements dropped after a parse error
func (v *Validator) validatePlaceholders(lines []string) {
	for i, line := range lines {
		if strings.Contains(line, "/* parse error */") {
			v.addWarning(i+1, "statement omitted after a parse error", line)
		}
	}
}

func lineAt(lines []string, row int) string {
	if row < 0 || row >= len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[row])
}

// addError adds a validation error
func (v *Validator) addError(line int, message, code string) {
	v.errors = append(v.errors, ValidationError{
		Line:    line,
		Message: message,
		Code:    code,
	})
}

// addWarning adds a validation warning
func (v *Validator) addWarning(line int, message, code string) {
	v.warns = append(v.warns, ValidationError{
		Line:    line,
		Message: message,
		Code:    code,
	})
}

// formatErrors creates a formatted error message
func (v *Validator) formatErrors() error {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("generated JavaScript validation failed with %d errors:\n", len(v.errors)))
	for i, err := range v.errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return fmt.Errorf("%s", sb.String())
}

// logWarnings logs validation warnings
func (v *Validator) logWarnings() {
	for _, warn := range v.warns {
		logger.Warn("Generated JavaScript warning",
			"line", warn.Line,
			"message", warn.Message,
			"code", warn.Code)
	}
}

// Errors returns the errors found by the last Validate call
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// Warnings returns the warnings found by the last Validate call
func (v *Validator) Warnings() []ValidationError {
	return v.warns
}

// ValidateOutput is a convenience function for one-off validation
func ValidateOutput(code string) error {
	return NewValidator().Validate(code)
}
