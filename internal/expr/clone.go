package expr

import (
	"fmt"

	"github.com/roach88/bingen/internal/ir"
)

// Clone deep-copies e, assigning a fresh NodeID to every node in preorder.
// A nil expression clones to nil.
func Clone(e Expr, ids *ir.IDAllocator) Expr {
	if e == nil {
		return nil
	}
	id := Node{ID: ids.Next()}
	switch e := e.(type) {
	case *Var:
		return &Var{Node: id, Name: e.Name}
	case *Bool:
		return &Bool{Node: id, Value: e.Value}
	case *U8:
		return &U8{Node: id, Value: e.Value}
	case *U16:
		return &U16{Node: id, Value: e.Value}
	case *U32:
		return &U32{Node: id, Value: e.Value}
	case *Tuple:
		return &Tuple{Node: id, Elems: cloneAll(e.Elems, ids)}
	case *TupleProj:
		return &TupleProj{Node: id, Head: Clone(e.Head, ids), Index: e.Index}
	case *Record:
		fields := make([]Field, len(e.Fields))
		for i, f := range e.Fields {
			fields[i] = Field{Label: f.Label, Value: Clone(f.Value, ids)}
		}
		return &Record{Node: id, Fields: fields}
	case *RecordProj:
		return &RecordProj{Node: id, Head: Clone(e.Head, ids), Label: e.Label}
	case *Variant:
		return &Variant{Node: id, Label: e.Label, Value: Clone(e.Value, ids)}
	case *Seq:
		return &Seq{Node: id, Elems: cloneAll(e.Elems, ids)}
	case *Match:
		head := Clone(e.Head, ids)
		cases := make([]Case, len(e.Cases))
		for i, c := range e.Cases {
			p := ClonePattern(c.Pattern, ids)
			cases[i] = Case{Pattern: p, Body: Clone(c.Body, ids)}
		}
		return &Match{Node: id, Head: head, Cases: cases}
	case *Lambda:
		return &Lambda{Node: id, Param: e.Param, Body: Clone(e.Body, ids)}
	case *Binary:
		lhs := Clone(e.Lhs, ids)
		return &Binary{Node: id, Op: e.Op, Lhs: lhs, Rhs: Clone(e.Rhs, ids)}
	case *Cast:
		return &Cast{Node: id, To: e.To, Value: Clone(e.Value, ids)}
	case *Pack:
		return &Pack{Node: id, Kind: e.Kind, Bytes: Clone(e.Bytes, ids)}
	case *SeqLength:
		return &SeqLength{Node: id, Seq: Clone(e.Seq, ids)}
	case *SubSeq:
		seq := Clone(e.Seq, ids)
		start := Clone(e.Start, ids)
		return &SubSeq{Node: id, Seq: seq, Start: start, Length: Clone(e.Length, ids)}
	case *FlatMap:
		fn := CloneLambda(e.Fn, ids)
		return &FlatMap{Node: id, Fn: fn, Seq: Clone(e.Seq, ids)}
	case *Dup:
		count := Clone(e.Count, ids)
		return &Dup{Node: id, Count: count, Value: Clone(e.Value, ids)}
	default:
		panic(fmt.Sprintf("expr.Clone: unknown expression %T", e))
	}
}

// CloneLambda is Clone specialised to lambdas.
func CloneLambda(l *Lambda, ids *ir.IDAllocator) *Lambda {
	if l == nil {
		return nil
	}
	return Clone(l, ids).(*Lambda)
}

func cloneAll(es []Expr, ids *ir.IDAllocator) []Expr {
	out := make([]Expr, len(es))
	for i, e := range es {
		out[i] = Clone(e, ids)
	}
	return out
}

// ClonePattern deep-copies p with fresh NodeIDs in preorder.
func ClonePattern(p Pattern, ids *ir.IDAllocator) Pattern {
	id := Node{ID: ids.Next()}
	switch p := p.(type) {
	case *BindPattern:
		return &BindPattern{Node: id, Name: p.Name}
	case *WildcardPattern:
		return &WildcardPattern{Node: id}
	case *BoolPattern:
		return &BoolPattern{Node: id, Value: p.Value}
	case *U8Pattern:
		return &U8Pattern{Node: id, Value: p.Value}
	case *U16Pattern:
		return &U16Pattern{Node: id, Value: p.Value}
	case *U32Pattern:
		return &U32Pattern{Node: id, Value: p.Value}
	case *CharPattern:
		return &CharPattern{Node: id, Value: p.Value}
	case *TuplePattern:
		elems := make([]Pattern, len(p.Elems))
		for i, e := range p.Elems {
			elems[i] = ClonePattern(e, ids)
		}
		return &TuplePattern{Node: id, Elems: elems}
	case *VariantPattern:
		return &VariantPattern{Node: id, Label: p.Label, Inner: ClonePattern(p.Inner, ids)}
	case *SeqPattern:
		elems := make([]Pattern, len(p.Elems))
		for i, e := range p.Elems {
			elems[i] = ClonePattern(e, ids)
		}
		return &SeqPattern{Node: id, Elems: elems}
	default:
		panic(fmt.Sprintf("expr.ClonePattern: unknown pattern %T", p))
	}
}
