package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bingen/internal/decoder"
	"github.com/roach88/bingen/internal/expr"
	"github.com/roach88/bingen/internal/format"
)

func TestClassify_Shapes(t *testing.T) {
	unitMap := func(f format.Format) format.Format {
		return &format.Map{Inner: f, Fn: expr.Lam("_", expr.Unit())}
	}
	tests := []struct {
		name  string
		f     format.Format
		shape string
		check func(t *testing.T, cl CaseLogic)
	}{
		{"byte", format.Is(3), "simple", nil},
		{"fail", &format.Fail{}, "simple", nil},
		{"end", &format.EndOfInput{}, "simple", nil},
		{"align", &format.Align{N: 4}, "simple", nil},
		{"compute", &format.Compute{Expr: &expr.U8{Value: 1}}, "simple", nil},
		{"map", unitMap(format.AnyByte()), "derived", nil},
		{"let", &format.Let{Name: "x", Value: &expr.U8{Value: 1}, Inner: format.AnyByte()}, "derived", nil},
		{"variant", &format.Variant{Label: "a", Inner: format.AnyByte()}, "derived", nil},
		{"tuple", seq(format.AnyByte(), format.AnyByte()), "sequential", func(t *testing.T, cl CaseLogic) {
			s := cl.(*SequentialLogic)
			assert.Nil(t, s.Labels)
			assert.Len(t, s.Elems, 2)
		}},
		{"record", format.Rec(format.Labeled{Label: "a", Format: format.AnyByte()}), "sequential", func(t *testing.T, cl CaseLogic) {
			assert.Equal(t, []string{"a"}, cl.(*SequentialLogic).Labels)
		}},
		{"nondet", format.NondetAlts(
			format.Labeled{Label: "a", Format: format.Is(1)},
			format.Labeled{Label: "b", Format: format.Is(1)},
		), "parallel", func(t *testing.T, cl CaseLogic) {
			assert.Len(t, cl.(*ParallelLogic).Alts, 2)
		}},
		{"repeat", &format.Repeat{Inner: format.Is(1)}, "repeat", func(t *testing.T, cl CaseLogic) {
			r := cl.(*RepeatLogic)
			assert.Equal(t, ContinueWhileMatching, r.Policy)
			assert.NotNil(t, r.Dispatch)
		}},
		{"repeat1", &format.Repeat1{Inner: format.Is(1)}, "repeat", func(t *testing.T, cl CaseLogic) {
			assert.Equal(t, BreakOnMatch, cl.(*RepeatLogic).Policy)
		}},
		{"count", &format.RepeatCount{Count: &expr.U8{Value: 2}, Inner: format.AnyByte()}, "repeat", func(t *testing.T, cl CaseLogic) {
			r := cl.(*RepeatLogic)
			assert.Equal(t, ExactCount, r.Policy)
			assert.Nil(t, r.Dispatch)
		}},
		{"until last", &format.RepeatUntilLast{
			Pred:  expr.Lam("b", expr.Bin(expr.OpEq, expr.V("b"), &expr.U8{Value: 0})),
			Inner: format.AnyByte(),
		}, "repeat", func(t *testing.T, cl CaseLogic) {
			r := cl.(*RepeatLogic)
			assert.Equal(t, ConditionTerminal, r.Policy)
			assert.NotNil(t, r.predicate())
		}},
		{"slice", &format.Slice{Length: &expr.U8{Value: 2}, Inner: format.AnyByte()}, "engine", func(t *testing.T, cl CaseLogic) {
			assert.Equal(t, EngineSlice, cl.(*EngineLogic).Kind)
		}},
		{"peek", &format.Peek{Inner: format.AnyByte()}, "engine", func(t *testing.T, cl CaseLogic) {
			assert.Equal(t, EnginePeek, cl.(*EngineLogic).Kind)
		}},
		{"bits", &format.Bits{Inner: format.AnyByte()}, "engine", func(t *testing.T, cl CaseLogic) {
			assert.Equal(t, "bits", cl.(*EngineLogic).Kind.String())
		}},
		{"branch", format.Alts(
			format.Labeled{Label: "zero", Format: unitMap(format.Is(0))},
			format.Labeled{Label: "other", Format: format.Not(0)},
		), "other", func(t *testing.T, cl CaseLogic) {
			o := cl.(*OtherLogic)
			assert.Equal(t, Descend, o.Kind)
			assert.NotNil(t, o.Dispatch)
			assert.Len(t, o.Arms, 2)
		}},
		{"match", &format.Match{Head: &expr.U8{Value: 1}, Cases: []format.Case{
			{Pattern: &expr.U8Pattern{Value: 1}, Format: format.AnyByte()},
			{Pattern: expr.Wild(), Format: format.AnyByte()},
		}}, "other", func(t *testing.T, cl CaseLogic) {
			o := cl.(*OtherLogic)
			assert.Equal(t, ExprMatch, o.Kind)
			assert.Nil(t, o.Dispatch)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := decoder.CompileFormat(format.NewModule(), tt.f)
			require.NoError(t, err)
			d := prog.Entries[0].Decoder
			cl := Classify(d)
			assert.Equal(t, tt.shape, cl.Shape())
			assert.Same(t, d, cl.Decoder())
			if tt.check != nil {
				tt.check(t, cl)
			}
		})
	}
}

func TestClassify_Call(t *testing.T) {
	m := format.NewModule()
	inner := m.Define("inner", format.AnyByte())
	prog, err := decoder.CompileFormat(m, seq(inner, inner))
	require.NoError(t, err)

	cl := Classify(prog.Entries[0].Decoder).(*SequentialLogic)
	for _, el := range cl.Elems {
		assert.Equal(t, "simple", el.Shape())
		assert.IsType(t, &decoder.Call{}, el.Decoder())
	}
}

func TestRepeatPolicy_String(t *testing.T) {
	assert.Equal(t, "while", ContinueWhileMatching.String())
	assert.Equal(t, "until", BreakOnMatch.String())
	assert.Equal(t, "count", ExactCount.String())
	assert.Equal(t, "until-last", ConditionTerminal.String())
	assert.Equal(t, "until-seq", ConditionComplete.String())
}
