package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashWithDomainSeparator(t *testing.T) {
	h := sha256.New()
	h.Write([]byte("bingen/decl/v1"))
	h.Write([]byte{0x00})
	h.Write([]byte("{}"))
	expected := hex.EncodeToString(h.Sum(nil))

	assert.Equal(t, expected, hashWithDomain(DomainDecl, []byte("{}")))
	assert.NotEqual(t, expected, hashWithDomain(DomainModule, []byte("{}")))
}

func TestDeclHashStructural(t *testing.T) {
	shape := func(first, second string) IRObject {
		return IRObject{
			"kind": IRString("struct"),
			"fields": IRArray{
				IRObject{"label": IRString(first), "type": IRString("uint8")},
				IRObject{"label": IRString(second), "type": IRString("uint16")},
			},
		}
	}

	h1, err := DeclHash(shape("a", "b"))
	require.NoError(t, err)
	h2, err := DeclHash(shape("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	// Field order is part of the identity.
	h3, err := DeclHash(shape("b", "a"))
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestModuleHash(t *testing.T) {
	src := []byte(`formats: main: byte: "any"`)

	h1, err := ModuleHash(src, "main", "gen")
	require.NoError(t, err)
	h2, err := ModuleHash(src, "main", "gen")
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	other, err := ModuleHash(src, "main", "other")
	require.NoError(t, err)
	assert.NotEqual(t, h1, other)

	otherTop, err := ModuleHash(src, "alt", "gen")
	require.NoError(t, err)
	assert.NotEqual(t, h1, otherTop)
}

func TestProgramHash(t *testing.T) {
	assert.Equal(t, ProgramHash([]byte("package a")), ProgramHash([]byte("package a")))
	assert.NotEqual(t, ProgramHash([]byte("package a")), ProgramHash([]byte("package b")))
}
