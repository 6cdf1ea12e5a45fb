package codegen

import (
	"fmt"

	"github.com/roach88/bingen/internal/decoder"
	"github.com/roach88/bingen/internal/expr"
	"github.com/roach88/bingen/internal/ir"
)

// Reifier is the node type table produced by inference.
type Reifier interface {
	Reify(id ir.NodeID) (ir.ValueType, bool)
	Len() int
}

type identified interface{ NodeID() ir.NodeID }

// TypedProgram pairs a decoder program with the generated type of every
// node in it.
type TypedProgram struct {
	Program *decoder.Program
	// Entries holds the result type of each program entry.
	Entries []GenType
	// Params holds the parameter types of each program entry.
	Params [][]GenType
	types  map[ir.NodeID]GenType
}

// TypeOf returns the generated type of n. Every node of the program has
// one; asking for any other node panics.
func (t *TypedProgram) TypeOf(n identified) GenType {
	gt, ok := t.types[n.NodeID()]
	if !ok {
		panic(fmt.Sprintf("codegen: node %d (%T) has no type", n.NodeID(), n))
	}
	return gt
}

// Len returns the number of typed nodes.
func (t *TypedProgram) Len() int { return len(t.types) }

type elaborator struct {
	table  Reifier
	lifter *Lifter
	typed  *TypedProgram
	entry  string
}

// Elaborate assigns a generated type to every node of p by reifying its
// inferred type. The walk must reach exactly the nodes inference typed;
// any disagreement means the two passes are out of step and panics.
func Elaborate(p *decoder.Program, table Reifier, lifter *Lifter) *TypedProgram {
	el := &elaborator{
		table:  table,
		lifter: lifter,
		typed: &TypedProgram{
			Program: p,
			Entries: make([]GenType, len(p.Entries)),
			Params:  make([][]GenType, len(p.Entries)),
			types:   make(map[ir.NodeID]GenType, table.Len()),
		},
	}
	names := lifter.names
	for i, e := range p.Entries {
		el.entry = e.Name
		names.WithRoot(e.Name, func() {
			params := make([]GenType, len(e.Params))
			for j, prm := range e.Params {
				names.Push(prm.Name)
				params[j] = lifter.Lift(prm.Type)
				names.Pop()
			}
			el.typed.Params[i] = params
			el.decoder(e.Decoder)
		})
		el.typed.Entries[i] = el.typed.TypeOf(e.Decoder)
	}
	if n := el.typed.Len(); n != table.Len() || n != p.IDs {
		panic(fmt.Sprintf("codegen: elaborated %d nodes, inference typed %d of %d", n, table.Len(), p.IDs))
	}
	return el.typed
}

func (el *elaborator) reify(n identified) {
	id := n.NodeID()
	vt, ok := el.table.Reify(id)
	if !ok {
		panic(fmt.Sprintf("codegen: unable to reify node %d (%T) in %s; neighbors: %s, %s",
			id, n, el.entry, el.neighbor(id-1), el.neighbor(id+1)))
	}
	if _, dup := el.typed.types[id]; dup {
		panic(fmt.Sprintf("codegen: node %d (%T) reached twice", id, n))
	}
	el.typed.types[id] = el.lifter.Lift(vt)
}

func (el *elaborator) neighbor(id ir.NodeID) string {
	if vt, ok := el.table.Reify(id); ok {
		return fmt.Sprintf("%d: %s", id, vt)
	}
	return fmt.Sprintf("%d: none", id)
}

// labelled runs fn with label appended to the naming path.
func (el *elaborator) labelled(label string, fn func()) {
	el.lifter.names.Push(label)
	defer el.lifter.names.Pop()
	fn()
}

func (el *elaborator) decoder(d decoder.Decoder) {
	if call, ok := d.(*decoder.Call); ok {
		callee := el.typed.Program.Entries[call.Index].Name
		el.lifter.names.WithRoot(callee, func() { el.reify(d) })
		for _, a := range call.Args {
			el.expr(a.Value)
		}
		return
	}
	el.reify(d)
	switch d := d.(type) {
	case *decoder.Fail, *decoder.EndOfInput, *decoder.Align, *decoder.Byte, *decoder.Apply:
	case *decoder.Variant:
		el.labelled(d.Label, func() { el.decoder(d.Inner) })
	case *decoder.Parallel:
		el.decoders(d.Branches)
	case *decoder.Branch:
		el.decoders(d.Branches)
	case *decoder.Tuple:
		el.decoders(d.Elems)
	case *decoder.Record:
		for _, f := range d.Fields {
			el.labelled(f.Label, func() { el.decoder(f.Decoder) })
		}
	case *decoder.While:
		el.decoder(d.Inner)
	case *decoder.Until:
		el.decoder(d.Inner)
	case *decoder.RepeatCount:
		el.expr(d.Count)
		el.decoder(d.Inner)
	case *decoder.RepeatUntilLast:
		el.expr(d.Pred)
		el.decoder(d.Inner)
	case *decoder.RepeatUntilSeq:
		el.expr(d.Pred)
		el.decoder(d.Inner)
	case *decoder.Peek:
		el.decoder(d.Inner)
	case *decoder.PeekNot:
		el.decoder(d.Inner)
	case *decoder.Slice:
		el.expr(d.Length)
		el.decoder(d.Inner)
	case *decoder.Bits:
		el.decoder(d.Inner)
	case *decoder.WithRelativeOffset:
		el.expr(d.Offset)
		el.decoder(d.Inner)
	case *decoder.Map:
		el.decoder(d.Inner)
		el.expr(d.Fn)
	case *decoder.Compute:
		el.expr(d.Expr)
	case *decoder.Let:
		el.expr(d.Value)
		el.decoder(d.Inner)
	case *decoder.Match:
		el.expr(d.Head)
		for _, c := range d.Cases {
			el.pattern(c.Pattern)
			el.decoder(c.Decoder)
		}
	case *decoder.Dynamic:
		el.expr(d.Huffman.Lengths)
		if d.Huffman.Values != nil {
			el.expr(d.Huffman.Values)
		}
		el.decoder(d.Inner)
	default:
		panic(fmt.Sprintf("codegen: unknown decoder %T", d))
	}
}

func (el *elaborator) decoders(ds []decoder.Decoder) {
	for _, d := range ds {
		el.decoder(d)
	}
}

func (el *elaborator) expr(e expr.Expr) {
	el.reify(e)
	switch e := e.(type) {
	case *expr.Var, *expr.Bool, *expr.U8, *expr.U16, *expr.U32:
	case *expr.Tuple:
		el.exprs(e.Elems)
	case *expr.TupleProj:
		el.expr(e.Head)
	case *expr.Record:
		for _, f := range e.Fields {
			el.labelled(f.Label, func() { el.expr(f.Value) })
		}
	case *expr.RecordProj:
		el.expr(e.Head)
	case *expr.Variant:
		el.labelled(e.Label, func() { el.expr(e.Value) })
	case *expr.Seq:
		el.exprs(e.Elems)
	case *expr.Match:
		el.expr(e.Head)
		for _, c := range e.Cases {
			el.pattern(c.Pattern)
			el.expr(c.Body)
		}
	case *expr.Lambda:
		el.expr(e.Body)
	case *expr.Binary:
		el.expr(e.Lhs)
		el.expr(e.Rhs)
	case *expr.Cast:
		el.expr(e.Value)
	case *expr.Pack:
		el.expr(e.Bytes)
	case *expr.SeqLength:
		el.expr(e.Seq)
	case *expr.SubSeq:
		el.exprs([]expr.Expr{e.Seq, e.Start, e.Length})
	case *expr.FlatMap:
		el.expr(e.Fn)
		el.expr(e.Seq)
	case *expr.Dup:
		el.expr(e.Count)
		el.expr(e.Value)
	default:
		panic(fmt.Sprintf("codegen: unknown expression %T", e))
	}
}

func (el *elaborator) exprs(es []expr.Expr) {
	for _, e := range es {
		el.expr(e)
	}
}

func (el *elaborator) pattern(p expr.Pattern) {
	el.reify(p)
	switch p := p.(type) {
	case *expr.TuplePattern:
		for _, sub := range p.Elems {
			el.pattern(sub)
		}
	case *expr.VariantPattern:
		el.pattern(p.Inner)
	case *expr.SeqPattern:
		for _, sub := range p.Elems {
			el.pattern(sub)
		}
	}
}
