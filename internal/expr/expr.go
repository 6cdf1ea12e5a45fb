// Package expr defines the pure value-level expression and pattern trees
// embedded in format descriptions.
//
// Every node embeds a Node carrying its ir.NodeID. Expressions authored in a
// format module carry ID 0; the decoder compiler clones each expression it
// embeds with Clone, giving every node of the compiled program a unique ID.
package expr

import (
	"fmt"

	"github.com/roach88/bingen/internal/ir"
)

// Node carries the identity shared by expressions and patterns.
type Node struct {
	ID ir.NodeID
}

// NodeID returns the node's identity.
func (n *Node) NodeID() ir.NodeID { return n.ID }

// Expr is a sealed interface over expression nodes.
type Expr interface {
	NodeID() ir.NodeID
	isExpr()
}

// Var references a bound name: a record field decoded earlier, a let
// binding, a lambda parameter, a pattern binding or a definition parameter.
type Var struct {
	Node
	Name string
}

type Bool struct {
	Node
	Value bool
}

type U8 struct {
	Node
	Value uint8
}

type U16 struct {
	Node
	Value uint16
}

type U32 struct {
	Node
	Value uint32
}

type Tuple struct {
	Node
	Elems []Expr
}

type TupleProj struct {
	Node
	Head  Expr
	Index int
}

// Field is one labelled component of a record expression.
type Field struct {
	Label string
	Value Expr
}

type Record struct {
	Node
	Fields []Field
}

type RecordProj struct {
	Node
	Head  Expr
	Label string
}

// Variant wraps Value in the union variant named Label.
type Variant struct {
	Node
	Label string
	Value Expr
}

type Seq struct {
	Node
	Elems []Expr
}

// Case is one arm of a value-level match.
type Case struct {
	Pattern Pattern
	Body    Expr
}

type Match struct {
	Node
	Head  Expr
	Cases []Case
}

// Lambda is a single-parameter function. Its own NodeID types the
// parameter; Body carries its own identity.
type Lambda struct {
	Node
	Param string
	Body  Expr
}

// Op is a binary operator.
type Op int

const (
	OpBitAnd Op = iota
	OpBitOr
	OpEq
	OpNe
	OpLt
	OpGt
	OpLte
	OpGte
	OpMul
	OpDiv
	OpRem
	OpShl
	OpShr
	OpAdd
	OpSub
)

var opNames = [...]string{
	OpBitAnd: "bit-and",
	OpBitOr:  "bit-or",
	OpEq:     "eq",
	OpNe:     "ne",
	OpLt:     "lt",
	OpGt:     "gt",
	OpLte:    "lte",
	OpGte:    "gte",
	OpMul:    "mul",
	OpDiv:    "div",
	OpRem:    "rem",
	OpShl:    "shl",
	OpShr:    "shr",
	OpAdd:    "add",
	OpSub:    "sub",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// IsComparison reports whether the operator yields a bool.
func (o Op) IsComparison() bool {
	switch o {
	case OpEq, OpNe, OpLt, OpGt, OpLte, OpGte:
		return true
	}
	return false
}

// ParseOp resolves an operator by its String() name.
func ParseOp(name string) (Op, bool) {
	for i, n := range opNames {
		if n == name {
			return Op(i), true
		}
	}
	return 0, false
}

type Binary struct {
	Node
	Op  Op
	Lhs Expr
	Rhs Expr
}

// Cast converts a numeric value to the target base type (U8, U16, U32 or
// Char).
type Cast struct {
	Node
	To    ir.Base
	Value Expr
}

// PackKind selects how a tuple of bytes is assembled into an integer.
type PackKind int

const (
	PackU16Be PackKind = iota
	PackU16Le
	PackU32Be
	PackU32Le
)

// Width returns the number of bytes consumed by the packing.
func (k PackKind) Width() int {
	if k == PackU16Be || k == PackU16Le {
		return 2
	}
	return 4
}

func (k PackKind) String() string {
	switch k {
	case PackU16Be:
		return "u16be"
	case PackU16Le:
		return "u16le"
	case PackU32Be:
		return "u32be"
	default:
		return "u32le"
	}
}

// Pack assembles an integer from a tuple of bytes.
type Pack struct {
	Node
	Kind  PackKind
	Bytes Expr
}

type SeqLength struct {
	Node
	Seq Expr
}

type SubSeq struct {
	Node
	Seq    Expr
	Start  Expr
	Length Expr
}

// FlatMap concatenates the sequences produced by Fn over each element.
type FlatMap struct {
	Node
	Fn  *Lambda
	Seq Expr
}

// Dup repeats Value Count times.
type Dup struct {
	Node
	Count Expr
	Value Expr
}

func (*Var) isExpr()        {}
func (*Bool) isExpr()       {}
func (*U8) isExpr()         {}
func (*U16) isExpr()        {}
func (*U32) isExpr()        {}
func (*Tuple) isExpr()      {}
func (*TupleProj) isExpr()  {}
func (*Record) isExpr()     {}
func (*RecordProj) isExpr() {}
func (*Variant) isExpr()    {}
func (*Seq) isExpr()        {}
func (*Match) isExpr()      {}
func (*Lambda) isExpr()     {}
func (*Binary) isExpr()     {}
func (*Cast) isExpr()       {}
func (*Pack) isExpr()       {}
func (*SeqLength) isExpr()  {}
func (*SubSeq) isExpr()     {}
func (*FlatMap) isExpr()    {}
func (*Dup) isExpr()        {}

// Unit is the empty tuple expression.
func Unit() *Tuple { return &Tuple{} }

// V references a bound name.
func V(name string) *Var { return &Var{Name: name} }

// Lam builds a lambda.
func Lam(param string, body Expr) *Lambda { return &Lambda{Param: param, Body: body} }

// Bin builds a binary operation.
func Bin(op Op, lhs, rhs Expr) *Binary { return &Binary{Op: op, Lhs: lhs, Rhs: rhs} }

// Proj projects a record field.
func Proj(head Expr, label string) *RecordProj { return &RecordProj{Head: head, Label: label} }
