package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/bingen/internal/codegen"
	"github.com/roach88/bingen/internal/compiler"
)

// Harness runs scenarios against the generator.
type Harness struct {
	logger *slog.Logger
}

// New creates a harness logging to logger. A nil logger discards logs.
func New(logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Harness{logger: logger}
}

// Run executes a scenario with logs suppressed.
func Run(scenario *Scenario) (*Result, error) {
	return New(nil).Run(scenario)
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Load and compile the format module
// 2. Generate the decoder program for scenario.Top
// 3. Render the program and collect its catalog
// 4. Evaluate assertions
//
// An error is returned only when the module cannot be read at all; compile
// and generation failures are outcomes checked against scenario.Expect.
func (h *Harness) Run(scenario *Scenario) (*Result, error) {
	result := NewResult()

	m, _, err := compiler.LoadModule(scenario.Module)
	if err != nil && !isCompileFailure(err) {
		return nil, fmt.Errorf("failed to load module: %w", err)
	}

	var prog *codegen.Program
	if err == nil {
		prog, err = codegen.Generate(m, scenario.Top, codegen.Options{Logger: h.logger})
	}
	if err == nil {
		var src []byte
		if src, err = prog.Render(scenario.Package); err == nil {
			result.Source = string(src)
		}
	}

	if err != nil {
		result.CompileError = err.Error()
		h.logger.Debug("scenario compile failed", "scenario", scenario.Name, "error", err)
		if scenario.Expect == ExpectOK {
			result.AddError(fmt.Sprintf("compile failed: %v", err))
			return result, nil
		}
	} else {
		if scenario.Expect == ExpectError {
			result.AddError("expected compilation to fail, but it succeeded")
			return result, nil
		}
		for _, d := range prog.Decls {
			result.Decls = append(result.Decls, d.Name)
		}
		for _, fn := range prog.Funcs {
			result.Funcs = append(result.Funcs, FuncSummary{Name: fn.Name, Entry: fn.Entry, Shape: fn.Logic.Shape()})
		}
		result.Catalog = prog.Catalog()
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"decls", len(result.Decls),
		"funcs", len(result.Funcs),
	)
	return result, nil
}

// isCompileFailure reports whether err came from the module contents
// rather than from reaching the files.
func isCompileFailure(err error) bool {
	var ce *compiler.CompileError
	return errors.As(err, &ce) || errors.Is(err, compiler.ErrBuildFailed)
}
