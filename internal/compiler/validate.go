package compiler

import (
	"errors"
	"fmt"

	"github.com/roach88/bingen/internal/decoder"
	"github.com/roach88/bingen/internal/format"
	"github.com/roach88/bingen/internal/typecheck"
)

// Validation error codes (E100-E199)
const (
	ErrRecursiveFormat = "E120" // definitions refer to themselves
	ErrDecoderBuild    = "E121" // decoder construction failed (match tree, nullable repeat, ...)
	ErrTypeMismatch    = "E122" // type inference failed
	ErrEmptyUnion      = "E123" // union without branches
	ErrEmptyByteSet    = "E124" // byte set that matches nothing
	ErrEmptyModule     = "E125" // module without definitions
)

// ValidationError represents a module validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"` // Line in the module source, 0 if unknown
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks that every definition of m can be compiled and type
// checked. Returns all errors found (does not fail-fast).
//
// Parameterised definitions cannot be compiled on their own; they are
// checked through the definitions that call them.
func Validate(m *format.Module) []ValidationError {
	if m.Len() == 0 {
		return []ValidationError{{Field: "formats", Message: "module has no definitions", Code: ErrEmptyModule}}
	}

	var errs []ValidationError
	for _, c := range m.Cycles() {
		errs = append(errs, ValidationError{
			Field:   "formats." + c.Path[0],
			Message: c.Message,
			Code:    ErrRecursiveFormat,
		})
	}

	for _, def := range m.Definitions() {
		field := "formats." + def.Name
		format.Walk(def.Format, func(f format.Format) bool {
			switch f := f.(type) {
			case *format.Union:
				if len(f.Branches) == 0 {
					errs = append(errs, ValidationError{Field: field, Message: "union has no branches", Code: ErrEmptyUnion})
				}
			case *format.UnionNondet:
				if len(f.Branches) == 0 {
					errs = append(errs, ValidationError{Field: field, Message: "union has no branches", Code: ErrEmptyUnion})
				}
			case *format.Byte:
				if f.Set.IsEmpty() {
					errs = append(errs, ValidationError{Field: field, Message: "byte set matches nothing", Code: ErrEmptyByteSet})
				}
			}
			return true
		})
	}
	if len(errs) > 0 {
		// Compilation assumes an acyclic, well-formed module.
		return errs
	}

	for _, def := range m.Definitions() {
		if len(def.Params) > 0 {
			continue
		}
		if err := Check(m, def.Name); err != nil {
			errs = append(errs, toValidationError(def.Name, err))
		}
	}
	return errs
}

// Check compiles and type checks the definition top.
func Check(m *format.Module, top string) error {
	prog, err := decoder.Compile(m, top)
	if err != nil {
		return err
	}
	_, err = typecheck.Infer(prog)
	return err
}

func toValidationError(name string, err error) ValidationError {
	ve := ValidationError{Field: "formats." + name, Message: err.Error(), Code: ErrDecoderBuild}
	var te *typecheck.TypeError
	if errors.As(err, &te) {
		ve.Code = ErrTypeMismatch
	}
	return ve
}
