package compiler

import (
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bingen/internal/expr"
	"github.com/roach88/bingen/internal/format"
	"github.com/roach88/bingen/internal/ir"
)

func compileCUE(t *testing.T, src string) (*format.Module, error) {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return CompileModule(v)
}

func mustCompile(t *testing.T, src string) *format.Module {
	t.Helper()
	m, err := compileCUE(t, src)
	require.NoError(t, err)
	return m
}

func TestCompileModule_DefinitionOrder(t *testing.T) {
	m := mustCompile(t, `
formats: {
	file: {record: {head: "header", body: {repeat: "any"}}}
	header: {literal: "BG"}
}
`)
	require.Equal(t, 2, m.Len())
	assert.Equal(t, "file", m.Name(0))
	assert.Equal(t, "header", m.Name(1))

	rec, ok := m.Get(0).Format.(*format.Record)
	require.True(t, ok)
	require.Len(t, rec.Fields, 2)
	assert.Equal(t, "head", rec.Fields[0].Label)
	assert.Equal(t, &format.ItemVar{Level: 1}, rec.Fields[0].Format, "forward reference")
	assert.Equal(t, &format.Repeat{Inner: format.AnyByte()}, rec.Fields[1].Format)

	lit := m.Get(1).Format.(*format.Tuple)
	assert.Equal(t, []format.Format{format.Is('B'), format.Is('G')}, lit.Elems)
}

func TestCompileModule_ByteSets(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want ir.ByteSet
	}{
		{"any", `{byte: "any"}`, ir.FullByteSet()},
		{"single", `{byte: 10}`, ir.ByteSetOf(10)},
		{"list", `{byte: [1, 3]}`, ir.ByteSetOf(1).Insert(3)},
		{"range", `{byte: [[0x30, 0x39], 0x2e]}`, ir.ByteRange('0', '9').Insert('.')},
		{"not", `{not: 0}`, ir.ByteSetOf(0).Complement()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustCompile(t, "formats: b: "+tt.src)
			b, ok := m.Get(0).Format.(*format.Byte)
			require.True(t, ok)
			assert.Equal(t, tt.want, b.Set)
		})
	}
}

func TestCompileModule_Shapes(t *testing.T) {
	m := mustCompile(t, `
formats: {
	opt: alts: {
		none: {map: {byte: 0}, fn: {lambda: "_", body: {tuple: []}}}
		some: {not: 0}
	}
	bytes: {
		params: {n: "u8", tag: {seq: "u8"}}
		format: {repeat_count: "n", of: "any"}
	}
	chunk: record: {
		len: "any"
		data: {ref: "bytes", args: ["len", {seq: []}]}
		kind: "opt"
		rest: {nondet: [{peek_not: {byte: 0}}, "empty"]}
	}
}
`)
	require.Equal(t, 3, m.Len())

	u, ok := m.Get(0).Format.(*format.Union)
	require.True(t, ok)
	require.Len(t, u.Branches, 2)
	none := u.Branches[0].(*format.Variant)
	assert.Equal(t, "none", none.Label)
	assert.IsType(t, &format.Map{}, none.Inner)

	bytes := m.Get(1)
	assert.Equal(t, []format.Param{
		{Name: "n", Type: ir.U8},
		{Name: "tag", Type: ir.SeqType{Elem: ir.U8}},
	}, bytes.Params)
	assert.Equal(t, &format.RepeatCount{Count: expr.V("n"), Inner: format.AnyByte()}, bytes.Format)

	rec := m.Get(2).Format.(*format.Record)
	call := rec.Fields[1].Format.(*format.ItemVar)
	assert.Equal(t, 1, call.Level)
	assert.Equal(t, []expr.Expr{expr.V("len"), &expr.Seq{}}, call.Args)
	assert.IsType(t, &format.UnionNondet{}, rec.Fields[3].Format)
}

func TestCompileModule_Expressions(t *testing.T) {
	m := mustCompile(t, `
formats: {
	calc: record: {
		hi: "any"
		lo: "any"
		word: compute: {u16be: {tuple: ["hi", "lo"]}}
		big: compute: {op: ">", lhs: "word", rhs: {u16: 256}}
		masked: compute: {op: "bit-and", lhs: "hi", rhs: {u8: 0x0f}}
		kind: compute: {match: "hi", cases: [
			{pattern: {u8: 0}, value: {variant: "zero"}},
			{pattern: "_", value: {variant: "other", of: "hi"}},
		]}
		"scoped": {"let": "x", value: {as_u32: "hi"}, of: {compute: "x"}}
	}
}
`)
	rec := m.Get(0).Format.(*format.Record)
	fields := map[string]format.Format{}
	for _, f := range rec.Fields {
		fields[f.Label] = f.Format
	}

	assert.Equal(t, &format.Compute{Expr: &expr.Pack{
		Kind:  expr.PackU16Be,
		Bytes: &expr.Tuple{Elems: []expr.Expr{expr.V("hi"), expr.V("lo")}},
	}}, fields["word"])
	assert.Equal(t, &format.Compute{Expr: expr.Bin(expr.OpGt, expr.V("word"), &expr.U16{Value: 256})}, fields["big"])
	assert.Equal(t, &format.Compute{Expr: expr.Bin(expr.OpBitAnd, expr.V("hi"), &expr.U8{Value: 15})}, fields["masked"])

	match := fields["kind"].(*format.Compute).Expr.(*expr.Match)
	require.Len(t, match.Cases, 2)
	assert.Equal(t, &expr.U8Pattern{Value: 0}, match.Cases[0].Pattern)
	assert.Equal(t, &expr.Variant{Label: "zero", Value: expr.Unit()}, match.Cases[0].Body)
	assert.Equal(t, expr.Wild(), match.Cases[1].Pattern)

	let := fields["scoped"].(*format.Let)
	assert.Equal(t, "x", let.Name)
	assert.Equal(t, &expr.Cast{To: ir.U32, Value: expr.V("hi")}, let.Value)
}

func TestCompileModule_Patterns(t *testing.T) {
	m := mustCompile(t, `
formats: m: {match: "x", cases: [
	{pattern: {char: "a"}, format: "empty"},
	{pattern: {tuple: ["_", true]}, format: "empty"},
	{pattern: {variant: "some", of: "v"}, format: "empty"},
	{pattern: {seq: [{u16: 1}]}, format: "empty"},
]}
`)
	match := m.Get(0).Format.(*format.Match)
	assert.Equal(t, expr.V("x"), match.Head)
	assert.Equal(t, []expr.Pattern{
		&expr.CharPattern{Value: 'a'},
		&expr.TuplePattern{Elems: []expr.Pattern{expr.Wild(), &expr.BoolPattern{Value: true}}},
		&expr.VariantPattern{Label: "some", Inner: expr.Bind("v")},
		&expr.SeqPattern{Elems: []expr.Pattern{&expr.U16Pattern{Value: 1}}},
	}, []expr.Pattern{
		match.Cases[0].Pattern, match.Cases[1].Pattern, match.Cases[2].Pattern, match.Cases[3].Pattern,
	})
}

func TestCompileModule_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"missing formats", `other: 1`, "formats is required"},
		{"no definitions", `formats: {}`, "at least one format definition is required"},
		{"undefined reference", `formats: a: "b"`, `undefined format "b"`},
		{"unknown key", `formats: a: {bogus: 1}`, "expected one of"},
		{"ambiguous", `formats: a: {repeat: "any", repeat1: "any"}`, "ambiguous node"},
		{"byte out of range", `formats: a: {byte: 256}`, "out of range"},
		{"bad range", `formats: a: {byte: [[9, 1]]}`, "lo <= hi"},
		{"untyped int", `formats: a: {compute: 3}`, "integer literal needs a width"},
		{"unknown operator", `formats: a: {compute: {op: "**", lhs: "x", rhs: "y"}}`, `unknown operator "**"`},
		{"missing inner", `formats: a: {slice: {u8: 2}}`, "of is required"},
		{"unknown type", `formats: a: {params: {n: "u64"}, format: "empty"}`, `unknown type "u64"`},
		{"arity", `
formats: {
	a: {params: {n: "u8"}, format: "empty"}
	b: "a"
}`, "a expects 1 arguments, got 0"},
		{"self reference", `formats: a: {tuple: [{byte: 1}, "a"]}`, "format a refers to itself"},
		{"mutual recursion", `
formats: {
	a: {repeat: "b"}
	b: {tuple: ["any", "a"]}
}`, "recursive format definition: a -> b -> a"},
		{"wide char", `formats: a: {match: "x", cases: [{pattern: {char: "ab"}, format: "empty"}]}`, "single character"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileCUE(t, tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			var ce *CompileError
			assert.ErrorAs(t, err, &ce)
		})
	}
}

func TestCompileModule_ErrorPosition(t *testing.T) {
	v := cuecontext.New().CompileString("formats: {\n\ta: \"missing\"\n}\n")
	_, err := CompileModule(v)
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Pos.IsValid())
	assert.Equal(t, 2, ce.Pos.Line())
	assert.Equal(t, "formats.a", ce.Field)
}
