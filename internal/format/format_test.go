package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bingen/internal/expr"
	"github.com/roach88/bingen/internal/ir"
)

func TestModuleDefine(t *testing.T) {
	m := NewModule()
	u8 := m.Define("base.u8", AnyByte())
	pair := m.DefineArgs("pair", []Param{{Name: "n", Type: ir.U8}}, &Tuple{Elems: []Format{u8, u8}})

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, 0, u8.Level)
	assert.Equal(t, 1, pair.Level)
	assert.Equal(t, "pair", m.Name(1))

	level, ok := m.Lookup("base.u8")
	require.True(t, ok)
	assert.Equal(t, 0, level)
	_, ok = m.Lookup("missing")
	assert.False(t, ok)

	call := pair.Call(&expr.U8{Value: 3})
	assert.Equal(t, 1, call.Level)
	assert.Len(t, call.Args, 1)

	assert.Panics(t, func() { m.Define("pair", Empty()) })
}

func TestMatchBounds(t *testing.T) {
	m := NewModule()
	u16 := m.Define("u16", &Tuple{Elems: []Format{AnyByte(), AnyByte()}})

	tests := []struct {
		name string
		f    Format
		want Bounds
	}{
		{"byte", AnyByte(), Exact(1)},
		{"empty", Empty(), Exact(0)},
		{"item", u16, Exact(2)},
		{"record", Rec(Labeled{"a", AnyByte()}, Labeled{"b", u16}), Exact(3)},
		{"union", Alts(Labeled{"one", AnyByte()}, Labeled{"two", u16}), Upto(1, 2)},
		{"repeat", &Repeat{Inner: AnyByte()}, AtLeast(0)},
		{"repeat1", &Repeat1{Inner: u16}, AtLeast(2)},
		{"count", &RepeatCount{Count: &expr.U8{Value: 4}, Inner: u16}, Exact(8)},
		{"count expr", &RepeatCount{Count: expr.Bin(expr.OpAdd, &expr.U8{Value: 1}, &expr.U16{Value: 2}), Inner: AnyByte()}, Exact(3)},
		{"count var", &RepeatCount{Count: expr.V("n"), Inner: AnyByte()}, AtLeast(0)},
		{"slice", &Slice{Length: &expr.U32{Value: 16}, Inner: &Repeat{Inner: AnyByte()}}, Exact(16)},
		{"peek", &Peek{Inner: u16}, Exact(0)},
		{"align", &Align{N: 4}, Upto(0, 3)},
		{"bits", &Bits{Inner: &RepeatCount{Count: &expr.U8{Value: 9}, Inner: AnyByte()}}, Exact(2)},
		{"apply", &Apply{Name: "tree"}, AtLeast(1)},
		{"let", &Let{Name: "x", Value: &expr.U8{}, Inner: u16}, Exact(2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.MatchBounds(tt.f))
		})
	}
}

func TestMatchBoundsRecursiveReference(t *testing.T) {
	m := NewModule()
	// Level 0 refers to itself; bounds must still terminate.
	self := &ItemVar{Level: 0}
	m.Define("loop", &Tuple{Elems: []Format{AnyByte(), self}})
	assert.Equal(t, AtLeast(1), m.MatchBounds(self))
}

func TestIsNullable(t *testing.T) {
	m := NewModule()
	assert.True(t, m.IsNullable(Empty()))
	assert.True(t, m.IsNullable(&Repeat{Inner: AnyByte()}))
	assert.True(t, m.IsNullable(Alts(Labeled{"none", Empty()}, Labeled{"some", AnyByte()})))
	assert.False(t, m.IsNullable(Is(0x7f)))
	assert.False(t, m.IsNullable(&Repeat1{Inner: AnyByte()}))
}

func TestBoundsOps(t *testing.T) {
	n, ok := Exact(5).IsExact()
	require.True(t, ok)
	assert.Equal(t, 5, n)

	_, ok = Upto(1, 2).IsExact()
	assert.False(t, ok)

	assert.True(t, AtLeast(2).Contains(1000))
	assert.False(t, Upto(2, 4).Contains(5))
	assert.Equal(t, "[2, inf)", AtLeast(2).String())
	assert.Equal(t, "[1, 3]", Upto(1, 3).String())
	assert.Equal(t, AtLeast(0), Exact(1).Union(AtLeast(0)))
}

func TestBuilders(t *testing.T) {
	u := Alts(Labeled{"none", Is(0)}, Labeled{"some", AnyByte()})
	require.Len(t, u.Branches, 2)
	v, ok := u.Branches[1].(*Variant)
	require.True(t, ok)
	assert.Equal(t, "some", v.Label)

	mv := MatchVariant(expr.V("tag"),
		VariantCase{Pattern: &expr.U8Pattern{Value: 1}, Label: "one", Format: AnyByte()},
		VariantCase{Pattern: expr.Wild(), Label: "other", Format: Empty()},
	)
	require.Len(t, mv.Cases, 2)
	assert.IsType(t, &Variant{}, mv.Cases[0].Format)

	assert.True(t, Not(3).Set.Contains(4))
	assert.False(t, Not(3).Set.Contains(3))
}
