package harness

import "github.com/roach88/bingen/internal/ir"

// FuncSummary describes one generated decoder function.
type FuncSummary struct {
	Name  string `json:"name"`
	Entry string `json:"entry"`
	Shape string `json:"shape"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: the compile outcome matched Expect
	// and every assertion held.
	Pass bool `json:"pass"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// CompileError is the generator error, if compilation failed.
	CompileError string `json:"compile_error,omitempty"`

	// Decls lists the emitted declaration names in order.
	Decls []string `json:"decls"`

	// Funcs lists the emitted decoder functions in order.
	Funcs []FuncSummary `json:"funcs"`

	// Source is the rendered Go source.
	Source string `json:"-"`

	// Catalog is the canonical declaration catalog, used for golden
	// comparison.
	Catalog ir.IRObject `json:"-"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
		Decls:  []string{},
		Funcs:  []FuncSummary{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
