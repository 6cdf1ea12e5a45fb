package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCycles_DAG(t *testing.T) {
	m := NewModule()
	u8 := m.Define("u8", AnyByte())
	pair := m.Define("pair", &Tuple{Elems: []Format{u8, u8}})
	m.Define("list", &Repeat{Inner: pair})

	assert.Empty(t, m.Cycles())
	assert.NoError(t, m.CheckAcyclic())
	assert.Equal(t, []int{1}, m.References(2))
	assert.Equal(t, []int{0}, m.References(1), "duplicate references collapse")
}

func TestCycles_SelfReference(t *testing.T) {
	m := NewModule()
	m.Define("u8", AnyByte())
	m.Define("nested", Alts(
		Labeled{"leaf", Is(0)},
		Labeled{"node", &Tuple{Elems: []Format{Is(1), &ItemVar{Level: 1}}}},
	))

	cycles := m.Cycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"nested", "nested"}, cycles[0].Path)
	assert.Contains(t, cycles[0].Message, "refers to itself")
}

func TestCycles_Mutual(t *testing.T) {
	m := NewModule()
	// a -> b -> c -> a, plus an unrelated self loop at d
	m.Define("a", &Tuple{Elems: []Format{Is(0), &ItemVar{Level: 1}}})
	m.Define("b", &Tuple{Elems: []Format{Is(1), &ItemVar{Level: 2}}})
	m.Define("c", Alts(Labeled{"stop", Is(2)}, Labeled{"more", &ItemVar{Level: 0}}))
	m.Define("d", &Repeat{Inner: &ItemVar{Level: 3}})

	cycles := m.Cycles()
	require.Len(t, cycles, 2)
	assert.Equal(t, []string{"a", "b", "c", "a"}, cycles[0].Path)
	assert.Equal(t, []int{0, 1, 2, 0}, cycles[0].Levels)
	assert.Equal(t, []string{"d", "d"}, cycles[1].Path)

	err := m.CheckAcyclic()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a -> b -> c -> a")
}
