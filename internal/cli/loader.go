package cli

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"

	"github.com/roach88/bingen/internal/compiler"
	"github.com/roach88/bingen/internal/format"
)

// LoadResult contains a loaded and compiled format module.
type LoadResult struct {
	Module    *format.Module
	Source    *compiler.Source
	FileCount int // Number of module files read
}

// LoadError represents an error that occurred during module loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadModule reads and compiles the format module at path: a directory
// of CUE files, a .cue file or a .yaml file. Errors are *LoadError values
// carrying a stable code.
func LoadModule(path string) (*LoadResult, error) {
	m, src, err := compiler.LoadModule(path)
	if err != nil {
		return nil, convertLoadError(err)
	}
	return &LoadResult{Module: m, Source: src, FileCount: len(src.Files)}, nil
}

// convertLoadError maps compiler failures onto LoadError codes.
func convertLoadError(err error) *LoadError {
	code := ErrCodeGeneric
	switch {
	case errors.Is(err, compiler.ErrNotFound):
		code = ErrCodeNotFound
	case errors.Is(err, compiler.ErrScan):
		code = ErrCodeScanError
	case errors.Is(err, compiler.ErrNoFiles):
		code = ErrCodeNoFiles
	case errors.Is(err, compiler.ErrLoadFailed):
		code = ErrCodeLoadFailed
	case errors.Is(err, compiler.ErrBuildFailed):
		code = ErrCodeBuildFailed
	}

	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		if code == ErrCodeGeneric {
			code = MapFieldToErrorCode(compileErr.Field)
		}
		return &LoadError{Code: code, Message: compileErr.Message, Pos: compileErr.Pos}
	}
	return &LoadError{Code: code, Message: err.Error()}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No module files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE or YAML build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeCache       = "E008" // Compilation cache error

	// Module errors
	ErrCodeNoFormats    = "E101" // Missing or empty formats struct
	ErrCodeInvalidParam = "E102" // Invalid parameter type
	ErrCodeInvalidNode  = "E103" // Malformed format, expression or pattern
	ErrCodeGenerate     = "E104" // Decoder construction or type inference failed
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "formats":
		return ErrCodeNoFormats
	case field == "cue":
		return ErrCodeBuildFailed
	case containsSegment(field, "params"):
		return ErrCodeInvalidParam
	case len(field) > len("formats.") && field[:len("formats.")] == "formats.":
		return ErrCodeInvalidNode
	default:
		return ErrCodeGeneric
	}
}

func containsSegment(path, seg string) bool {
	for i := 0; i+len(seg) <= len(path); i++ {
		if path[i:i+len(seg)] != seg {
			continue
		}
		before := i == 0 || path[i-1] == '.'
		after := i+len(seg) == len(path) || path[i+len(seg)] == '.'
		if before && after {
			return true
		}
	}
	return false
}
