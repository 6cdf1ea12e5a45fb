package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bingen/internal/compiler"
)

func runValidateCmd(t *testing.T, format string, path string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path})
	return buf, cmd.Execute()
}

func TestValidateValidModule(t *testing.T) {
	buf, err := runValidateCmd(t, "text", chunksModule)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ All 4 definition(s) valid")
}

func TestValidateValidModuleJSON(t *testing.T) {
	buf, err := runValidateCmd(t, "json", chunksModule)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 4, resp.Data.Definitions)
}

func TestValidateDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"), []byte("package fmts\n\nformats: head: {literal: \"BG\"}\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.cue"), []byte("package fmts\n\nformats: body: {repeat: \"any\"}\n"), 0644))

	buf, err := runValidateCmd(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ All 2 definition(s) valid")
}

func TestValidateNonExistentPath(t *testing.T) {
	buf, err := runValidateCmd(t, "text", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E005]")
}

func TestValidateEmptyDirectory(t *testing.T) {
	buf, err := runValidateCmd(t, "text", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E003]")
}

func TestValidateInvalidModule(t *testing.T) {
	buf, err := runValidateCmd(t, "text", filepath.Join("testdata", "modules", "nullable.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with 1 error(s)")

	out := buf.String()
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, compiler.ErrDecoderBuild+": formats.loop: ")
	assert.Contains(t, out, "cannot repeat nullable format")
}

func TestValidateInvalidModuleJSON(t *testing.T) {
	buf, err := runValidateCmd(t, "json", filepath.Join("testdata", "modules", "nullable.yaml"))
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, compiler.ErrDecoderBuild, resp.Error.Code)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 1)
	assert.Equal(t, "formats.loop", resp.Data.Errors[0].Field)
	assert.Zero(t, resp.Data.Errors[0].Line, "YAML modules carry no positions")
}

func TestValidateCompileError(t *testing.T) {
	buf, err := runValidateCmd(t, "text", filepath.Join("testdata", "modules", "undefined.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err), "content errors are validation failures")

	out := buf.String()
	assert.Contains(t, out, "line 2")
	assert.Contains(t, out, ErrCodeInvalidNode+": load: ")
	assert.Contains(t, out, `undefined format "missing"`)
}

func TestValidateTypeError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.cue")
	src := `formats: {
	ok: "any"
	sum: record: {
		a: "any"
		b: compute: {op: "add", lhs: "a", rhs: true}
	}
}
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	buf, err := runValidateCmd(t, "json", path)
	require.Error(t, err)

	var resp struct {
		Data ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Len(t, resp.Data.Errors, 1)
	assert.Equal(t, compiler.ErrTypeMismatch, resp.Data.Errors[0].Code)
	assert.Equal(t, "formats.sum", resp.Data.Errors[0].Field)
	assert.Equal(t, 3, resp.Data.Errors[0].Line)
}

func TestDefinitionLine(t *testing.T) {
	loaded, err := LoadModule(chunksModule)
	require.NoError(t, err)

	v := loaded.Source.Value
	assert.Equal(t, 2, definitionLine(v, "formats.file"))
	assert.Equal(t, 8, definitionLine(v, "formats.magic"))
	assert.Equal(t, 0, definitionLine(v, "formats.nope"))
	assert.Equal(t, 0, definitionLine(v, "load"))
}
