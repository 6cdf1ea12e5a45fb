package codegen

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bingen/internal/expr"
	"github.com/roach88/bingen/internal/format"
)

// runDriver is compiled next to a rendered decoder package. It decodes
// each hex argument and prints one JSON line per input.
const runDriver = `package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	rt "github.com/roach88/bingen/rt"
)

func main() {
	enc := json.NewEncoder(os.Stdout)
	for _, arg := range os.Args[1:] {
		data, err := hex.DecodeString(arg)
		if err != nil {
			panic(err)
		}
		v, err := Decode(data)
		out := map[string]any{"type": fmt.Sprintf("%T", v), "value": fmt.Sprintf("%+v", v)}
		var perr *rt.ParseError
		if errors.As(err, &perr) {
			out["kind"] = perr.Kind.String()
			out["offset"] = perr.Offset
		} else if err != nil {
			out["kind"] = err.Error()
		}
		if err := enc.Encode(out); err != nil {
			panic(err)
		}
	}
}
`

type decoded struct {
	Type   string `json:"type"`
	Value  string `json:"value"`
	Kind   string `json:"kind"`
	Offset int    `json:"offset"`
}

// runGenerated builds the decoder for top as a main package, runs it
// over inputs and returns one result per input.
func runGenerated(t *testing.T, m *format.Module, top string, inputs ...[]byte) []decoded {
	t.Helper()
	if testing.Short() {
		t.Skip("builds generated code")
	}
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go command not available")
	}

	p, err := Generate(m, top, Options{})
	require.NoError(t, err)
	src, err := p.Render("main")
	require.NoError(t, err)
	typecheckGo(t, src)

	dir, err := os.MkdirTemp("testdata", "run-")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	require.NoError(t, os.WriteFile(filepath.Join(dir, "decoders.go"), src, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte(runDriver), 0o644))

	args := []string{"run", "./" + filepath.ToSlash(dir)}
	for _, in := range inputs {
		args = append(args, hex.EncodeToString(in))
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.Command("go", args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	require.NoError(t, cmd.Run(), "%s\n%s", stderr.String(), src)

	var out []decoded
	dec := json.NewDecoder(&stdout)
	for dec.More() {
		var d decoded
		require.NoError(t, dec.Decode(&d))
		out = append(out, d)
	}
	require.Len(t, out, len(inputs))
	return out
}

func TestRun_Option(t *testing.T) {
	out := runGenerated(t, optionModule(), "opt", []byte{0x00}, []byte{0x07}, nil)

	assert.Equal(t, decoded{Type: "main.Opt_None", Value: "{}"}, out[0])
	assert.Equal(t, decoded{Type: "main.Opt_Some", Value: "{F0:7}"}, out[1])
	assert.Equal(t, "excluded-branch", out[2].Kind, "empty input selects no branch")
}

func TestRun_Alternation(t *testing.T) {
	m := format.NewModule()
	m.Define("pick", format.NondetAlts(
		format.Labeled{Label: "first", Format: seq(format.Is(1), format.Is(2))},
		format.Labeled{Label: "second", Format: seq(format.Is(1), format.Is(3))},
		format.Labeled{Label: "third", Format: seq(format.Is(1), &format.EndOfInput{})},
	))

	out := runGenerated(t, m, "pick",
		[]byte{1, 2},
		[]byte{1, 3},
		[]byte{1},
		[]byte{1, 9},
	)

	assert.Equal(t, "main.Pick_First", out[0].Type, "the first success returns")
	assert.Equal(t, "main.Pick_Second", out[1].Type)
	assert.Equal(t, "{F0:1 F1:3}", out[1].Value)
	assert.Equal(t, "main.Pick_Third", out[2].Type, "failed branches rewind")
	assert.Empty(t, out[2].Kind)

	assert.Equal(t, "<nil>", out[3].Type)
	assert.Equal(t, "incomplete-parse", out[3].Kind, "the last branch's error is reported")
	assert.Equal(t, 1, out[3].Offset)
}

func TestRun_Repetition(t *testing.T) {
	m := format.NewModule()
	m.Define("counted", format.Rec(
		format.Labeled{Label: "n", Format: format.AnyByte()},
		format.Labeled{Label: "xs", Format: &format.RepeatCount{Count: expr.V("n"), Inner: format.AnyByte()}},
	))
	m.Define("zero_terminated", &format.RepeatUntilLast{
		Pred:  expr.Lam("x", expr.Bin(expr.OpEq, expr.V("x"), &expr.U8{Value: 0})),
		Inner: format.AnyByte(),
	})
	m.Define("at_least_one", &format.RepeatUntilSeq{
		Pred:  expr.Lam("xs", expr.Bin(expr.OpGte, &expr.SeqLength{Seq: expr.V("xs")}, &expr.U32{Value: 0})),
		Inner: format.AnyByte(),
	})

	t.Run("exact count", func(t *testing.T) {
		out := runGenerated(t, m, "counted", []byte{2, 5, 6}, []byte{0}, []byte{3, 5})
		assert.Equal(t, "{N:2 Xs:[5 6]}", out[0].Value)
		assert.Equal(t, "{N:0 Xs:[]}", out[1].Value)
		assert.Equal(t, "overrun", out[2].Kind)
	})
	t.Run("last element", func(t *testing.T) {
		out := runGenerated(t, m, "zero_terminated", []byte{3, 4, 0}, []byte{0}, []byte{3, 4, 0, 9}, []byte{3})
		assert.Equal(t, decoded{Type: "[]uint8", Value: "[3 4 0]"}, out[0])
		assert.Equal(t, "[0]", out[1].Value)
		assert.Equal(t, "[3 4 0]", out[2].Value, "the loop stops at the first zero")
		assert.Equal(t, "overrun", out[3].Kind)
	})
	t.Run("whole sequence", func(t *testing.T) {
		out := runGenerated(t, m, "at_least_one", []byte{5}, nil)
		assert.Equal(t, "[5]", out[0].Value, "one element is decoded before the predicate runs")
		assert.Equal(t, "overrun", out[1].Kind)
	})
}

func TestRun_SliceAndPeek(t *testing.T) {
	m := format.NewModule()
	m.Define("framed", format.Rec(
		format.Labeled{Label: "n", Format: format.AnyByte()},
		format.Labeled{Label: "body", Format: &format.Slice{
			Length: expr.V("n"),
			Inner:  &format.Repeat{Inner: format.Is(7)},
		}},
		format.Labeled{Label: "after", Format: format.AnyByte()},
		format.Labeled{Label: "peeked", Format: &format.Peek{Inner: format.AnyByte()}},
		format.Labeled{Label: "last", Format: format.AnyByte()},
	))

	out := runGenerated(t, m, "framed", []byte{2, 7, 9, 5, 6}, []byte{5, 7})

	assert.Equal(t, "{N:2 Body:[7] After:5 Peeked:6 Last:6}", out[0].Value,
		"the slice skips its unread byte and the peek leaves the position unchanged")
	assert.Equal(t, "overrun", out[1].Kind, "a slice longer than the input")
	assert.Equal(t, 1, out[1].Offset)
}
