package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a generator conformance scenario: a format module, the
// top format to compile, and assertions on the generated program.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Module is the path to a CUE directory, .cue file or .yaml file.
	// Relative paths are resolved against the scenario file location.
	Module string `yaml:"module"`

	// Top is the definition compiled as the entry point.
	Top string `yaml:"top"`

	// Package is the Go package name of the rendered source. Defaults to
	// "decoders".
	Package string `yaml:"package,omitempty"`

	// Expect is "ok" (the default) or "error" for scenarios whose module
	// must be rejected.
	Expect string `yaml:"expect,omitempty"`

	// Assertions validate the generated program.
	// Supported types: decl_count, func_count, decl_names, contains,
	// not_contains, func_shape, error_contains
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one property of the generated program.
type Assertion struct {
	// Type selects the check, see the Assert* constants.
	Type string `yaml:"type"`

	// Count is the expected number of declarations or functions.
	Count int `yaml:"count,omitempty"`

	// Names is the expected declaration names, in emission order.
	Names []string `yaml:"names,omitempty"`

	// Text is searched for in the rendered source (contains, not_contains)
	// or in the compile error (error_contains).
	Text string `yaml:"text,omitempty"`

	// Func and Shape are used by func_shape: the function with entry name
	// Func must have case logic of the given shape.
	Func  string `yaml:"func,omitempty"`
	Shape string `yaml:"shape,omitempty"`
}

// Assertion type constants.
const (
	AssertDeclCount     = "decl_count"
	AssertFuncCount     = "func_count"
	AssertDeclNames     = "decl_names"
	AssertContains      = "contains"
	AssertNotContains   = "not_contains"
	AssertFuncShape     = "func_shape"
	AssertErrorContains = "error_contains"
)

// Expectation constants.
const (
	ExpectOK    = "ok"
	ExpectError = "error"
)

// LoadScenario reads and parses a scenario YAML file, resolving the module
// path relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the module path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve module path BEFORE validation
	if scenario.Module != "" && !filepath.IsAbs(scenario.Module) && basePath != "" {
		scenario.Module = filepath.Join(basePath, scenario.Module)
	}
	if scenario.Package == "" {
		scenario.Package = "decoders"
	}
	if scenario.Expect == "" {
		scenario.Expect = ExpectOK
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Module == "" {
		return fmt.Errorf("module is required")
	}
	if _, err := os.Stat(s.Module); os.IsNotExist(err) {
		return fmt.Errorf("module not found: %s", s.Module)
	}
	if s.Top == "" {
		return fmt.Errorf("top is required")
	}
	if s.Expect != ExpectOK && s.Expect != ExpectError {
		return fmt.Errorf("expect must be %q or %q, got %q", ExpectOK, ExpectError, s.Expect)
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, s.Expect); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, expect string) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	if expect == ExpectError && a.Type != AssertErrorContains {
		return fmt.Errorf("assertions[%d]: only error_contains applies to expect: error", index)
	}

	switch a.Type {
	case AssertDeclCount, AssertFuncCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertDeclNames:
		if len(a.Names) == 0 {
			return fmt.Errorf("assertions[%d]: names list is required for decl_names", index)
		}
	case AssertContains, AssertNotContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for %s", index, a.Type)
		}
	case AssertFuncShape:
		if a.Func == "" || a.Shape == "" {
			return fmt.Errorf("assertions[%d]: func and shape are required for func_shape", index)
		}
	case AssertErrorContains:
		if expect != ExpectError {
			return fmt.Errorf("assertions[%d]: error_contains requires expect: error", index)
		}
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for error_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
