package expr

import "github.com/roach88/bingen/internal/ir"

// Pattern is a sealed interface over match patterns.
type Pattern interface {
	NodeID() ir.NodeID
	isPattern()
}

// BindPattern binds the matched value to Name.
type BindPattern struct {
	Node
	Name string
}

type WildcardPattern struct {
	Node
}

type BoolPattern struct {
	Node
	Value bool
}

type U8Pattern struct {
	Node
	Value uint8
}

type U16Pattern struct {
	Node
	Value uint16
}

type U32Pattern struct {
	Node
	Value uint32
}

type CharPattern struct {
	Node
	Value rune
}

type TuplePattern struct {
	Node
	Elems []Pattern
}

// VariantPattern matches the union variant Label and its payload.
type VariantPattern struct {
	Node
	Label string
	Inner Pattern
}

// SeqPattern matches a sequence of exactly len(Elems) elements.
type SeqPattern struct {
	Node
	Elems []Pattern
}

func (*BindPattern) isPattern()     {}
func (*WildcardPattern) isPattern() {}
func (*BoolPattern) isPattern()     {}
func (*U8Pattern) isPattern()       {}
func (*U16Pattern) isPattern()      {}
func (*U32Pattern) isPattern()      {}
func (*CharPattern) isPattern()     {}
func (*TuplePattern) isPattern()    {}
func (*VariantPattern) isPattern()  {}
func (*SeqPattern) isPattern()      {}

// Wild returns a wildcard pattern.
func Wild() *WildcardPattern { return &WildcardPattern{} }

// Bind returns a binding pattern.
func Bind(name string) *BindPattern { return &BindPattern{Name: name} }
