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

const chunkYAML = `
formats:
  chunk:
    record:
      len: any
      data:
        repeat_count: len
        of: any
      tag: &tag
        byte: [0x41, [0x61, 0x7a]]
      again: *tag
      ok:
        compute: true
`

func TestParseYAML_Module(t *testing.T) {
	v, err := ParseYAML(cuecontext.New(), "chunk.yaml", []byte(chunkYAML))
	require.NoError(t, err)

	m, err := CompileModule(v)
	require.NoError(t, err)
	require.Equal(t, 1, m.Len())

	rec := m.Get(0).Format.(*format.Record)
	var labels []string
	for _, f := range rec.Fields {
		labels = append(labels, f.Label)
	}
	assert.Equal(t, []string{"len", "data", "tag", "again", "ok"}, labels, "mapping order is kept")
	assert.Equal(t, &format.RepeatCount{Count: expr.V("len"), Inner: format.AnyByte()}, rec.Fields[1].Format)

	want := ir.ByteRange('a', 'z').Insert('A')
	assert.Equal(t, want, rec.Fields[2].Format.(*format.Byte).Set)
	assert.Equal(t, want, rec.Fields[3].Format.(*format.Byte).Set, "aliases resolve")
	assert.Equal(t, &format.Compute{Expr: &expr.Bool{Value: true}}, rec.Fields[4].Format)
}

func TestParseYAML_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", "formats: [", "chunk.yaml"},
		{"empty", "", "empty YAML document"},
		{"float", "formats:\n  a:\n    align: 1.5\n", "floats are not supported"},
		{"null", "formats:\n  a: ~\n", "null is not supported"},
		{"complex key", "formats:\n  ? [a, b]\n  : any\n", "mapping keys must be scalars"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML(cuecontext.New(), "chunk.yaml", []byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseYAML_ErrorLocation(t *testing.T) {
	_, err := ParseYAML(cuecontext.New(), "m.yaml", []byte("formats:\n  a:\n    align: 2.5\n"))
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "m.yaml:3:12", ce.Field)
}
