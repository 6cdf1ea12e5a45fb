package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"github.com/spf13/cobra"

	"github.com/roach88/bingen/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool                       `json:"valid"`
	Definitions int                        `json:"definitions"`
	Errors      []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <module>",
		Short: "Check a format module without generating code",
		Long: `Validate a format module without generating code.

Every definition without parameters is compiled to a decoder program and
type checked. Parameterised definitions are checked through their callers.
Faster than compile for development feedback.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, modulePath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	loaded, err := LoadModule(modulePath)
	if err != nil {
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			return outputValidateError(formatter, ErrCodeGeneric, err.Error(), nil)
		}
		if isPathError(loadErr.Code) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		// The module was read but does not describe valid formats.
		line := 0
		if loadErr.Pos.IsValid() {
			line = loadErr.Pos.Line()
		}
		return outputValidationErrors(formatter, []compiler.ValidationError{{
			Field:   "load",
			Message: loadErr.Message,
			Code:    loadErr.Code,
			Line:    line,
		}})
	}

	opts.logger().Debug("loaded module", "module", modulePath, "definitions", loaded.Module.Len())

	validationErrors := compiler.Validate(loaded.Module)
	for i := range validationErrors {
		validationErrors[i].Line = definitionLine(loaded.Source.Value, validationErrors[i].Field)
	}
	opts.logger().Debug("validated module", "module", modulePath, "errors", len(validationErrors))

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}

	return outputValidateSuccess(formatter, loaded.Module.Len())
}

// isPathError reports whether code means the module could not be read.
func isPathError(code string) bool {
	switch code {
	case ErrCodeNotFound, ErrCodeScanError, ErrCodeNoFiles, ErrCodeLoadFailed:
		return true
	}
	return false
}

// definitionLine returns the source line of the definition named by a
// "formats.<name>" field, or 0.
func definitionLine(v cue.Value, field string) int {
	name, ok := strings.CutPrefix(field, "formats.")
	if !ok {
		return 0
	}
	pos := v.LookupPath(cue.MakePath(cue.Str("formats"), cue.Str(name))).Pos()
	if !pos.IsValid() {
		return 0
	}
	return pos.Line()
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, definitions int) error {
	if formatter.Format == "json" {
		result := ValidationResult{Valid: true, Definitions: definitions}
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ All %d definition(s) valid\n", definitions)
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Validation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:  false,
			Errors: errs,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
