// Package decoder compiles a format module into a program of decoder trees.
//
// Decoders are the lowered form of formats: item references become calls
// to numbered decoders, and deterministic choices (unions and unbounded
// repetition) carry a precomputed MatchTree over a bounded byte lookahead.
// Every decoder, expression, pattern and lambda in a Program carries an
// ir.NodeID, unique within the program, assigned in preorder as the program
// is built.
package decoder

import (
	"github.com/roach88/bingen/internal/expr"
	"github.com/roach88/bingen/internal/ir"
)

// Decoder is a sealed interface over decoder nodes.
type Decoder interface {
	NodeID() ir.NodeID
	isDecoder()
}

// Arg is a named argument passed to a parameterised decoder.
type Arg struct {
	Name  string
	Value expr.Expr
}

// Call invokes program entry Index.
type Call struct {
	expr.Node
	Index int
	Args  []Arg
}

type Fail struct{ expr.Node }

type EndOfInput struct{ expr.Node }

type Align struct {
	expr.Node
	N int
}

type Byte struct {
	expr.Node
	Set ir.ByteSet
}

type Variant struct {
	expr.Node
	Label string
	Inner Decoder
}

// Parallel tries each branch in order, backtracking on failure.
type Parallel struct {
	expr.Node
	Branches []Decoder
}

// Branch selects one of Branches by evaluating Tree.
type Branch struct {
	expr.Node
	Tree     *MatchTree
	Branches []Decoder
}

type Tuple struct {
	expr.Node
	Elems []Decoder
}

// Field is one labelled component of a record decoder.
type Field struct {
	Label   string
	Decoder Decoder
}

type Record struct {
	expr.Node
	Fields []Field
}

// While repeats Inner while Tree selects index 0.
type While struct {
	expr.Node
	Tree  *MatchTree
	Inner Decoder
}

// Until repeats Inner until Tree selects index 0. At least one element is
// required.
type Until struct {
	expr.Node
	Tree  *MatchTree
	Inner Decoder
}

type RepeatCount struct {
	expr.Node
	Count expr.Expr
	Inner Decoder
}

type RepeatUntilLast struct {
	expr.Node
	Pred  *expr.Lambda
	Inner Decoder
}

type RepeatUntilSeq struct {
	expr.Node
	Pred  *expr.Lambda
	Inner Decoder
}

type Peek struct {
	expr.Node
	Inner Decoder
}

type PeekNot struct {
	expr.Node
	Inner Decoder
}

type Slice struct {
	expr.Node
	Length expr.Expr
	Inner  Decoder
}

type Bits struct {
	expr.Node
	Inner Decoder
}

type WithRelativeOffset struct {
	expr.Node
	Offset expr.Expr
	Inner  Decoder
}

type Map struct {
	expr.Node
	Inner Decoder
	Fn    *expr.Lambda
}

type Compute struct {
	expr.Node
	Expr expr.Expr
}

type Let struct {
	expr.Node
	Name  string
	Value expr.Expr
	Inner Decoder
}

// Case is one arm of a decoder-level match.
type Case struct {
	Pattern expr.Pattern
	Decoder Decoder
}

type Match struct {
	expr.Node
	Head  expr.Expr
	Cases []Case
}

// Huffman holds the code-length and symbol expressions of a dynamic
// Huffman format.
type Huffman struct {
	Lengths expr.Expr
	Values  expr.Expr
}

type Dynamic struct {
	expr.Node
	Name    string
	Huffman Huffman
	Inner   Decoder
}

type Apply struct {
	expr.Node
	Name string
}

func (*Call) isDecoder()               {}
func (*Fail) isDecoder()               {}
func (*EndOfInput) isDecoder()         {}
func (*Align) isDecoder()              {}
func (*Byte) isDecoder()               {}
func (*Variant) isDecoder()            {}
func (*Parallel) isDecoder()           {}
func (*Branch) isDecoder()             {}
func (*Tuple) isDecoder()              {}
func (*Record) isDecoder()             {}
func (*While) isDecoder()              {}
func (*Until) isDecoder()              {}
func (*RepeatCount) isDecoder()        {}
func (*RepeatUntilLast) isDecoder()    {}
func (*RepeatUntilSeq) isDecoder()     {}
func (*Peek) isDecoder()               {}
func (*PeekNot) isDecoder()            {}
func (*Slice) isDecoder()              {}
func (*Bits) isDecoder()               {}
func (*WithRelativeOffset) isDecoder() {}
func (*Map) isDecoder()                {}
func (*Compute) isDecoder()            {}
func (*Let) isDecoder()                {}
func (*Match) isDecoder()              {}
func (*Dynamic) isDecoder()            {}
func (*Apply) isDecoder()              {}
