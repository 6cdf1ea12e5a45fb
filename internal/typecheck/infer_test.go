package typecheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bingen/internal/decoder"
	"github.com/roach88/bingen/internal/expr"
	"github.com/roach88/bingen/internal/format"
	"github.com/roach88/bingen/internal/ir"
)

func inferFormat(t *testing.T, m *format.Module, f format.Format) (*decoder.Program, *TypeTable) {
	t.Helper()
	p, err := decoder.CompileFormat(m, f)
	require.NoError(t, err)
	tt, err := Infer(p)
	require.NoError(t, err)
	require.Equal(t, p.IDs, tt.Len(), "every node is typed")
	return p, tt
}

func reify(t *testing.T, tt *TypeTable, n interface{ NodeID() ir.NodeID }) ir.ValueType {
	t.Helper()
	vt, ok := tt.Reify(n.NodeID())
	require.True(t, ok, "node %d", n.NodeID())
	return vt
}

func TestInfer_OptionUnion(t *testing.T) {
	m := format.NewModule()
	p, tt := inferFormat(t, m, format.Alts(
		format.Labeled{Label: "none", Format: &format.Map{Inner: format.Is(0), Fn: expr.Lam("_", expr.Unit())}},
		format.Labeled{Label: "some", Format: format.Not(0)},
	))

	want := ir.UnionType{Variants: []ir.Field{
		{Label: "none", Type: ir.Unit},
		{Label: "some", Type: ir.U8},
	}}
	assert.Equal(t, want, tt.EntryType(0))

	br := p.Entries[0].Decoder.(*decoder.Branch)
	for _, b := range br.Branches {
		assert.Equal(t, want, reify(t, tt, b), "each variant is typed with the whole union")
	}
	none := br.Branches[0].(*decoder.Variant).Inner.(*decoder.Map)
	assert.Equal(t, ir.U8, reify(t, tt, none.Fn), "lambda identity types its parameter")
	assert.Equal(t, ir.Unit, reify(t, tt, none.Fn.Body))
}

func TestInfer_RecordScopesEarlierFields(t *testing.T) {
	m := format.NewModule()
	_, tt := inferFormat(t, m, format.Rec(
		format.Labeled{Label: "len", Format: format.AnyByte()},
		format.Labeled{Label: "data", Format: &format.RepeatCount{Count: expr.V("len"), Inner: format.AnyByte()}},
		format.Labeled{Label: "total", Format: &format.Compute{Expr: expr.Bin(expr.OpAdd,
			&expr.Cast{To: ir.U32, Value: expr.V("len")},
			&expr.SeqLength{Seq: expr.V("data")})}},
	))
	assert.Equal(t, "{len: u8, data: [u8], total: u32}", tt.EntryType(0).String())
}

func TestInfer_CallWidensTarget(t *testing.T) {
	m := format.NewModule()
	tagA := m.Define("tag_a", &format.Variant{Label: "a", Inner: format.Is(1)})
	m.Define("main", &format.Union{Branches: []format.Format{
		tagA,
		&format.Variant{Label: "b", Inner: &format.Tuple{Elems: []format.Format{format.Is(2), format.AnyByte()}}},
	}})

	p, err := decoder.Compile(m, "main")
	require.NoError(t, err)
	tt, err := Infer(p)
	require.NoError(t, err)
	require.Equal(t, p.IDs, tt.Len())

	want := "<a(u8) | b((u8, u8))>"
	assert.Equal(t, want, tt.EntryType(0).String())
	assert.Equal(t, want, tt.EntryType(1).String(), "callee widened to the caller's union")
	assert.Equal(t, want, reify(t, tt, p.Entries[1].Decoder).String())
}

func TestInfer_MatchBindings(t *testing.T) {
	m := format.NewModule()
	_, tt := inferFormat(t, m, format.Rec(
		format.Labeled{Label: "tag", Format: format.AnyByte()},
		format.Labeled{Label: "body", Format: format.MatchVariant(expr.V("tag"),
			format.VariantCase{Pattern: &expr.U8Pattern{Value: 1}, Label: "one", Format: format.AnyByte()},
			format.VariantCase{Pattern: expr.Bind("x"), Label: "other", Format: &format.Compute{Expr: expr.V("x")}},
		)},
	))
	assert.Equal(t, "{tag: u8, body: <one(u8) | other(u8)>}", tt.EntryType(0).String())
}

func TestInfer_LambdaAndPack(t *testing.T) {
	m := format.NewModule()
	p, tt := inferFormat(t, m, &format.Map{
		Inner: &format.Tuple{Elems: []format.Format{format.AnyByte(), format.AnyByte()}},
		Fn:    expr.Lam("p", &expr.Pack{Kind: expr.PackU16Be, Bytes: expr.V("p")}),
	})
	assert.Equal(t, ir.U16, tt.EntryType(0))
	mp := p.Entries[0].Decoder.(*decoder.Map)
	assert.Equal(t, "(u8, u8)", reify(t, tt, mp.Fn).String())
}

func TestInfer_DynamicApply(t *testing.T) {
	m := format.NewModule()
	_, tt := inferFormat(t, m, &format.Dynamic{
		Name:    "tree",
		Huffman: format.Huffman{Lengths: &expr.Seq{Elems: []expr.Expr{&expr.U8{Value: 1}, &expr.U8{Value: 1}}}},
		Inner:   &format.Apply{Name: "tree"},
	})
	assert.Equal(t, ir.U16, tt.EntryType(0))
}

func TestInfer_Errors(t *testing.T) {
	tests := []struct {
		name    string
		f       format.Format
		wantErr string
	}{
		{"unbound", &format.Compute{Expr: expr.V("nope")}, `unbound variable "nope"`},
		{"mixed widths", &format.Compute{Expr: expr.Bin(expr.OpAdd, &expr.U8{Value: 1}, &expr.U16{Value: 2})}, "add on u8 and u16"},
		{"projection", &format.Map{Inner: format.AnyByte(), Fn: expr.Lam("x", &expr.TupleProj{Head: expr.V("x"), Index: 0})}, "cannot project index 0"},
		{"apply unbound", &format.Apply{Name: "f"}, `unbound format "f"`},
		{"variant mismatch", format.Alts(
			format.Labeled{Label: "a", Format: format.Is(1)},
			format.Labeled{Label: "a", Format: &format.Tuple{Elems: []format.Format{format.Is(2)}}},
		), "failed to unify"},
		{"predicate", &format.RepeatUntilLast{Pred: expr.Lam("b", expr.V("b")), Inner: format.AnyByte()}, "predicate must yield bool"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := decoder.CompileFormat(format.NewModule(), tt.f)
			require.NoError(t, err)
			_, err = Infer(p)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			var te *TypeError
			if assert.ErrorAs(t, err, &te) {
				assert.Equal(t, "main", te.Entry)
			}
		})
	}
}
