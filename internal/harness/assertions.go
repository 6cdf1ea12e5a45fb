package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Decls    []string // Emitted declarations for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Decls) > 0 {
		fmt.Fprintf(&buf, "\nDeclarations:\n")
		for i, d := range e.Decls {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, d)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns the
// failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return failures
}

func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertDeclCount:
		return assertCount(a.Type, len(result.Decls), a.Count, result.Decls)
	case AssertFuncCount:
		return assertCount(a.Type, len(result.Funcs), a.Count, result.Decls)
	case AssertDeclNames:
		if !slices.Equal(result.Decls, a.Names) {
			return &AssertionError{
				Type:     a.Type,
				Expected: strings.Join(a.Names, ", "),
				Actual:   strings.Join(result.Decls, ", "),
			}
		}
	case AssertContains:
		if !strings.Contains(result.Source, a.Text) {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("source containing %q", a.Text), Actual: "not found", Decls: result.Decls}
		}
	case AssertNotContains:
		if strings.Contains(result.Source, a.Text) {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("source without %q", a.Text), Actual: "found", Decls: result.Decls}
		}
	case AssertFuncShape:
		return assertFuncShape(result, a)
	case AssertErrorContains:
		if !strings.Contains(result.CompileError, a.Text) {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("error containing %q", a.Text), Actual: result.CompileError}
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func assertCount(kind string, got, want int, decls []string) error {
	if got != want {
		return &AssertionError{
			Type:     kind,
			Expected: fmt.Sprintf("%d", want),
			Actual:   fmt.Sprintf("%d", got),
			Decls:    decls,
		}
	}
	return nil
}

// assertFuncShape checks the case logic shape of the first function
// generated for entry a.Func.
func assertFuncShape(result *Result, a Assertion) error {
	for _, fn := range result.Funcs {
		if fn.Entry != a.Func {
			continue
		}
		if fn.Shape != a.Shape {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s is %s", a.Func, a.Shape),
				Actual:   fmt.Sprintf("%s (%s) is %s", a.Func, fn.Name, fn.Shape),
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("a function for %s", a.Func),
		Actual:   "not generated",
		Decls:    result.Decls,
	}
}
