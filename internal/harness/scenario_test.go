package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes content as a scenario next to a placeholder module.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "m.cue"), []byte(`formats: a: "any"`), 0644))
	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
module: m.cue
top: a
assertions:
  - type: decl_count
    count: 0
`)
	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "m.cue"), scenario.Module, "module resolves next to the scenario")
	assert.Equal(t, "decoders", scenario.Package)
	assert.Equal(t, ExpectOK, scenario.Expect)
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, AssertDeclCount, scenario.Assertions[0].Type)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: "d"
module: m.cue
top: a
assertion:
  - type: decl_count
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no name", "description: d\nmodule: m.cue\ntop: a\nassertions: [{type: decl_count}]", "name is required"},
		{"no description", "name: n\nmodule: m.cue\ntop: a\nassertions: [{type: decl_count}]", "description is required"},
		{"no module", "name: n\ndescription: d\ntop: a\nassertions: [{type: decl_count}]", "module is required"},
		{"missing module", "name: n\ndescription: d\nmodule: gone.cue\ntop: a\nassertions: [{type: decl_count}]", "module not found"},
		{"no top", "name: n\ndescription: d\nmodule: m.cue\nassertions: [{type: decl_count}]", "top is required"},
		{"bad expect", "name: n\ndescription: d\nmodule: m.cue\ntop: a\nexpect: maybe\nassertions: [{type: decl_count}]", "expect must be"},
		{"no assertions", "name: n\ndescription: d\nmodule: m.cue\ntop: a", "assertions list is required"},
		{"unknown type", "name: n\ndescription: d\nmodule: m.cue\ntop: a\nassertions: [{type: bogus}]", `unknown assertion type "bogus"`},
		{"names missing", "name: n\ndescription: d\nmodule: m.cue\ntop: a\nassertions: [{type: decl_names}]", "names list is required"},
		{"text missing", "name: n\ndescription: d\nmodule: m.cue\ntop: a\nassertions: [{type: contains}]", "text is required"},
		{"shape missing", "name: n\ndescription: d\nmodule: m.cue\ntop: a\nassertions: [{type: func_shape, func: a}]", "func and shape are required"},
		{"error on ok", "name: n\ndescription: d\nmodule: m.cue\ntop: a\nassertions: [{type: error_contains, text: x}]", "requires expect: error"},
		{"program on error", "name: n\ndescription: d\nmodule: m.cue\ntop: a\nexpect: error\nassertions: [{type: decl_count}]", "only error_contains"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	path := writeScenario(t, "name: n\ndescription: d\nmodule: modules/option.cue\ntop: opt\nassertions: [{type: func_count, count: 1}]")

	scenario, err := LoadScenarioWithBasePath(path, "testdata")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "modules", "option.cue"), scenario.Module)
}
