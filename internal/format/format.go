// Package format defines the binary format description language consumed by
// the decoder generator: formats, named modules of format definitions, and
// the static byte-length bounds used when building match trees.
//
// All Format implementations are pointer types, so a Format value also
// serves as a stable identity for the node it denotes.
package format

import (
	"github.com/roach88/bingen/internal/expr"
	"github.com/roach88/bingen/internal/ir"
)

// Format is a sealed interface over format descriptions.
type Format interface {
	isFormat()
}

// ItemVar references the definition at Level of the enclosing module,
// passing Args positionally.
type ItemVar struct {
	Level int
	Args  []expr.Expr
}

// Fail never matches.
type Fail struct{}

// EndOfInput matches only when the input is exhausted.
type EndOfInput struct{}

// Align skips bytes until the offset is a multiple of N.
type Align struct {
	N int
}

// Byte matches one byte in Set.
type Byte struct {
	Set ir.ByteSet
}

// Variant wraps the value of Inner in the union variant Label.
type Variant struct {
	Label string
	Inner Format
}

// Union matches exactly one of Branches, chosen deterministically by
// bounded lookahead. All branches must share a type.
type Union struct {
	Branches []Format
}

// UnionNondet tries Branches in order, backtracking on failure.
type UnionNondet struct {
	Branches []Format
}

// Tuple matches its elements in sequence.
type Tuple struct {
	Elems []Format
}

// Field is one labelled component of a record format.
type Field struct {
	Label  string
	Format Format
}

// Record matches its fields in sequence; later fields may refer to the
// values of earlier ones by label.
type Record struct {
	Fields []Field
}

// Repeat matches Inner zero or more times.
type Repeat struct {
	Inner Format
}

// Repeat1 matches Inner one or more times.
type Repeat1 struct {
	Inner Format
}

// RepeatCount matches Inner exactly Count times.
type RepeatCount struct {
	Count expr.Expr
	Inner Format
}

// RepeatUntilLast matches Inner until Pred holds for the last element.
type RepeatUntilLast struct {
	Pred  *expr.Lambda
	Inner Format
}

// RepeatUntilSeq matches Inner until Pred holds for the whole sequence.
type RepeatUntilSeq struct {
	Pred  *expr.Lambda
	Inner Format
}

// Peek matches Inner without consuming input.
type Peek struct {
	Inner Format
}

// PeekNot succeeds only if Inner fails, consuming nothing.
type PeekNot struct {
	Inner Format
}

// Slice restricts Inner to a window of Length bytes, skipping any bytes
// Inner leaves unread.
type Slice struct {
	Length expr.Expr
	Inner  Format
}

// Bits matches Inner over the bit stream of the input.
type Bits struct {
	Inner Format
}

// WithRelativeOffset matches Inner at Offset bytes past the current
// position without consuming input.
type WithRelativeOffset struct {
	Offset expr.Expr
	Inner  Format
}

// Map transforms the value of Inner with Fn.
type Map struct {
	Inner Format
	Fn    *expr.Lambda
}

// Compute yields the value of Expr without consuming input.
type Compute struct {
	Expr expr.Expr
}

// Let binds Name to Value while matching Inner.
type Let struct {
	Name  string
	Value expr.Expr
	Inner Format
}

// Case is one arm of a format-level match.
type Case struct {
	Pattern expr.Pattern
	Format  Format
}

// Match selects a format by matching Head against patterns.
type Match struct {
	Head  expr.Expr
	Cases []Case
}

// Huffman describes a canonical Huffman code built from code lengths and
// optional symbol values.
type Huffman struct {
	Lengths expr.Expr
	Values  expr.Expr
}

// Dynamic binds Name to a format constructed at parse time while matching
// Inner.
type Dynamic struct {
	Name    string
	Huffman Huffman
	Inner   Format
}

// Apply matches the dynamic format bound to Name.
type Apply struct {
	Name string
}

func (*ItemVar) isFormat()            {}
func (*Fail) isFormat()               {}
func (*EndOfInput) isFormat()         {}
func (*Align) isFormat()              {}
func (*Byte) isFormat()               {}
func (*Variant) isFormat()            {}
func (*Union) isFormat()              {}
func (*UnionNondet) isFormat()        {}
func (*Tuple) isFormat()              {}
func (*Record) isFormat()             {}
func (*Repeat) isFormat()             {}
func (*Repeat1) isFormat()            {}
func (*RepeatCount) isFormat()        {}
func (*RepeatUntilLast) isFormat()    {}
func (*RepeatUntilSeq) isFormat()     {}
func (*Peek) isFormat()               {}
func (*PeekNot) isFormat()            {}
func (*Slice) isFormat()              {}
func (*Bits) isFormat()               {}
func (*WithRelativeOffset) isFormat() {}
func (*Map) isFormat()                {}
func (*Compute) isFormat()            {}
func (*Let) isFormat()                {}
func (*Match) isFormat()              {}
func (*Dynamic) isFormat()            {}
func (*Apply) isFormat()              {}

// Empty matches the empty byte string and yields the unit value.
func Empty() *Tuple { return &Tuple{} }

// AnyByte matches any single byte.
func AnyByte() *Byte { return &Byte{Set: ir.FullByteSet()} }

// Is matches exactly the byte b.
func Is(b byte) *Byte { return &Byte{Set: ir.ByteSetOf(b)} }

// Not matches any byte other than b.
func Not(b byte) *Byte { return &Byte{Set: ir.ByteSetOf(b).Complement()} }

// Labeled pairs a label with a format, for variants and record fields.
type Labeled struct {
	Label  string
	Format Format
}

// Alts builds a deterministic union whose branches are wrapped in variants.
func Alts(branches ...Labeled) *Union {
	u := &Union{Branches: make([]Format, len(branches))}
	for i, b := range branches {
		u.Branches[i] = &Variant{Label: b.Label, Inner: b.Format}
	}
	return u
}

// NondetAlts builds a backtracking union whose branches are wrapped in
// variants.
func NondetAlts(branches ...Labeled) *UnionNondet {
	u := &UnionNondet{Branches: make([]Format, len(branches))}
	for i, b := range branches {
		u.Branches[i] = &Variant{Label: b.Label, Inner: b.Format}
	}
	return u
}

// Rec builds a record from labelled fields.
func Rec(fields ...Labeled) *Record {
	r := &Record{Fields: make([]Field, len(fields))}
	for i, f := range fields {
		r.Fields[i] = Field{Label: f.Label, Format: f.Format}
	}
	return r
}

// VariantCase is one arm of MatchVariant.
type VariantCase struct {
	Pattern expr.Pattern
	Label   string
	Format  Format
}

// MatchVariant builds a match whose arms are wrapped in variants.
func MatchVariant(head expr.Expr, cases ...VariantCase) *Match {
	m := &Match{Head: head, Cases: make([]Case, len(cases))}
	for i, c := range cases {
		m.Cases[i] = Case{Pattern: c.Pattern, Format: &Variant{Label: c.Label, Inner: c.Format}}
	}
	return m
}
