package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bingen/internal/expr"
	"github.com/roach88/bingen/internal/format"
	"github.com/roach88/bingen/internal/ir"
)

func TestValidate_Valid(t *testing.T) {
	m := mustCompile(t, `
formats: {
	bytes: {params: {n: "u8"}, format: {repeat_count: "n", of: "any"}}
	chunk: record: {
		len: "any"
		data: {ref: "bytes", args: ["len"]}
	}
}
`)
	assert.Empty(t, Validate(m), "valid module should have no errors")
}

func TestValidate_EmptyModule(t *testing.T) {
	errs := Validate(format.NewModule())
	require.Len(t, errs, 1)
	assert.Equal(t, ErrEmptyModule, errs[0].Code)
}

func TestValidate_StructuralErrors(t *testing.T) {
	m := format.NewModule()
	m.Define("loop", &format.Tuple{Elems: []format.Format{format.Is(0), &format.ItemVar{Level: 0}}})
	m.Define("never", &format.Byte{Set: ir.ByteSet{}})
	m.Define("nothing", &format.Union{})
	m.Define("nothing_nondet", &format.UnionNondet{})

	errs := Validate(m)
	codes := map[string]string{}
	for _, e := range errs {
		codes[e.Field] = e.Code
	}
	assert.Equal(t, map[string]string{
		"formats.loop":           ErrRecursiveFormat,
		"formats.never":          ErrEmptyByteSet,
		"formats.nothing":        ErrEmptyUnion,
		"formats.nothing_nondet": ErrEmptyUnion,
	}, codes)
}

func TestValidate_CompileErrors(t *testing.T) {
	tests := []struct {
		name string
		f    format.Format
		code string
		want string
	}{
		{
			name: "nullable repeat",
			f:    &format.Repeat{Inner: format.Empty()},
			code: ErrDecoderBuild,
			want: "cannot repeat nullable format",
		},
		{
			name: "unbound variable",
			f:    &format.Compute{Expr: expr.V("missing")},
			code: ErrTypeMismatch,
			want: `unbound variable "missing"`,
		},
		{
			name: "mismatched operands",
			f:    &format.Compute{Expr: expr.Bin(expr.OpAdd, &expr.U8{Value: 1}, &expr.Bool{Value: true})},
			code: ErrTypeMismatch,
			want: "add",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := format.NewModule()
			m.Define("bad", tt.f)

			errs := Validate(m)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.code, errs[0].Code)
			assert.Equal(t, "formats.bad", errs[0].Field)
			assert.Contains(t, errs[0].Message, tt.want)
			assert.Contains(t, errs[0].Error(), "["+tt.code+"]")
		})
	}
}

func TestValidate_CollectsAll(t *testing.T) {
	m := format.NewModule()
	m.Define("a", &format.Repeat{Inner: format.Empty()})
	m.Define("b", &format.Compute{Expr: expr.V("x")})
	m.Define("c", format.AnyByte())

	errs := Validate(m)
	require.Len(t, errs, 2, "does not fail fast")
	assert.Equal(t, "formats.a", errs[0].Field)
	assert.Equal(t, "formats.b", errs[1].Field)
}

func TestCheck_ParameterisedTop(t *testing.T) {
	m := format.NewModule()
	m.DefineArgs("bytes", []format.Param{{Name: "n", Type: ir.U8}}, format.AnyByte())
	err := Check(m, "bytes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be the top format")
}
