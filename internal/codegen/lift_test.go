package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bingen/internal/ir"
)

func point(second ir.ValueType) ir.RecordType {
	return ir.RecordType{Fields: []ir.Field{
		{Label: "x", Type: ir.U8},
		{Label: "y", Type: second},
	}}
}

func TestLifter_StructuralDedup(t *testing.T) {
	names := NewNameGen()
	l := NewLifter(names)

	var first, second, third GenType
	names.WithRoot("header", func() { first = l.Lift(point(ir.U8)) })
	names.WithRoot("trailer", func() { second = l.Lift(point(ir.U8)) })
	names.WithRoot("footer", func() { third = l.Lift(point(ir.U16)) })

	require.Len(t, l.Decls(), 2)
	assert.Same(t, first, second, "identical shapes share one declaration")
	assert.Equal(t, "Header", first.(*DefType).Name, "the first path names the shape")
	assert.Equal(t, "Footer", third.(*DefType).Name)
	assert.False(t, SameType(first, third))
}

func TestLifter_NestedNames(t *testing.T) {
	names := NewNameGen()
	l := NewLifter(names)
	inner := ir.RecordType{Fields: []ir.Field{{Label: "length", Type: ir.U32}}}
	outer := ir.RecordType{Fields: []ir.Field{
		{Label: "chunk-info", Type: inner},
		{Label: "pair", Type: ir.TupleType{Elems: []ir.ValueType{point(ir.Bool), point(ir.Char)}}},
	}}

	var got GenType
	names.WithRoot("png", func() { got = l.Lift(outer) })

	var decls []string
	for _, d := range l.Decls() {
		decls = append(decls, d.Name)
	}
	assert.Equal(t, []string{"PngChunkInfo", "PngPair0", "PngPair1", "Png"}, decls)
	def := got.(*DefType)
	assert.Equal(t, "ChunkInfo", def.Decl.Fields[0].GoName)
	assert.Equal(t, "struct{ F0 PngPair0; F1 PngPair1 }", TypeString(def.Decl.Fields[1].Type))
}

func TestLifter_ReservedNames(t *testing.T) {
	names := NewNameGen()
	l := NewLifter(names)
	rec := func(label string) ir.RecordType {
		return ir.RecordType{Fields: []ir.Field{{Label: label, Type: ir.U8}}}
	}
	var a, b, c, d, e, f GenType
	names.WithRoot("decode", func() { a = l.Lift(rec("a")) })
	names.WithRoot("decoder1", func() { b = l.Lift(rec("b")) })
	names.WithRoot("42", func() { c = l.Lift(rec("c")) })
	names.WithRoot("decoder", func() { d = l.Lift(rec("d")) })
	names.WithRoot("decoder", func() { e = l.Lift(rec("e")) })
	names.WithRoot("decoder_1", func() { f = l.Lift(rec("f")) })

	assert.Equal(t, "Decode2", a.(*DefType).Name)
	assert.Equal(t, "Decoder1Type", b.(*DefType).Name)
	assert.Equal(t, "T42", c.(*DefType).Name)
	assert.Equal(t, "Decoder", d.(*DefType).Name)
	assert.Equal(t, "Decoder_2", e.(*DefType).Name)
	assert.Equal(t, "Decoder1Type2", f.(*DefType).Name)
}

func TestLifter_VariantPayloads(t *testing.T) {
	names := NewNameGen()
	l := NewLifter(names)
	u := ir.UnionType{Variants: []ir.Field{
		{Label: "none", Type: ir.Empty},
		{Label: "unit", Type: ir.Unit},
		{Label: "one", Type: ir.TupleType{Elems: []ir.ValueType{ir.U8}}},
		{Label: "pair", Type: ir.TupleType{Elems: []ir.ValueType{ir.U8, ir.U16}}},
		{Label: "bytes", Type: ir.SeqType{Elem: ir.U8}},
		{Label: "a-b", Type: ir.Bool},
		{Label: "a_b", Type: ir.Bool},
		{Label: "0", Type: ir.Char},
	}}

	var got GenType
	names.WithRoot("item", func() { got = l.Lift(u) })
	def := got.(*DefType)
	require.True(t, IsEnum(def))

	payload := func(label string) []string {
		v, ok := def.Decl.Variant(label)
		require.True(t, ok, label)
		var out []string
		for _, gt := range v.Payload {
			out = append(out, TypeString(gt))
		}
		return out
	}
	none, _ := def.Decl.Variant("none")
	unit, _ := def.Decl.Variant("unit")
	assert.Equal(t, UnitVariant, none.Kind)
	assert.Equal(t, UnitVariant, unit.Kind)
	assert.Equal(t, []string{"uint8"}, payload("one"))
	assert.Equal(t, []string{"uint8", "uint16"}, payload("pair"))
	assert.Equal(t, []string{"[]uint8"}, payload("bytes"))

	var goNames []string
	for _, v := range def.Decl.Variants {
		goNames = append(goNames, def.VariantType(v))
	}
	assert.Equal(t, []string{
		"Item_None", "Item_Unit", "Item_One", "Item_Pair",
		"Item_Bytes", "Item_AB", "Item_AB2", "Item_X0",
	}, goNames)
}

func TestLifter_Bases(t *testing.T) {
	l := NewLifter(NewNameGen())
	assert.True(t, SameType(Unit, l.Lift(ir.Any)))
	assert.True(t, SameType(Unit, l.Lift(ir.Empty)))
	assert.Equal(t, "rune", TypeString(l.Lift(ir.Char)))
	assert.Equal(t, "rt.Format[[]uint16]", TypeString(l.Lift(ir.FormatType{Value: ir.SeqType{Elem: ir.U16}})))
	assert.Empty(t, l.Decls())
}

func TestLocalName(t *testing.T) {
	tests := map[string]string{
		"length":     "length",
		"chunk-type": "chunk_type",
		"Tag":        "v_Tag",
		"0x":         "v_0x",
		"":           "v_",
		"_":          "v__",
		"type":       "type_",
		"len":        "len_",
		"p":          "p_",
		"err":        "err_",
		"scope":      "scope_",
	}
	for in, want := range tests {
		assert.Equal(t, want, LocalName(in), "%q", in)
	}
}
