package typecheck

import (
	"fmt"

	"github.com/roach88/bingen/internal/decoder"
	"github.com/roach88/bingen/internal/expr"
	"github.com/roach88/bingen/internal/ir"
)

// dynamicFormat is the value type of a format bound by a Huffman dynamic
// decoder.
var dynamicFormat ir.ValueType = ir.FormatType{Value: ir.U16}

// synth computes the type of d bottom up.
func (c *checker) synth(d decoder.Decoder, scope *env) (ir.ValueType, error) {
	switch d := d.(type) {
	case *decoder.Call:
		return c.entries[d.Index], nil
	case *decoder.Fail:
		return ir.Empty, nil
	case *decoder.EndOfInput, *decoder.Align, *decoder.PeekNot:
		return ir.Unit, nil
	case *decoder.Byte:
		return ir.U8, nil
	case *decoder.Variant:
		inner, err := c.synth(d.Inner, scope)
		if err != nil {
			return nil, err
		}
		return ir.UnionType{Variants: []ir.Field{{Label: d.Label, Type: inner}}}, nil
	case *decoder.Parallel:
		return c.synthBranches(d, d.Branches, scope)
	case *decoder.Branch:
		return c.synthBranches(d, d.Branches, scope)
	case *decoder.Tuple:
		elems := make([]ir.ValueType, len(d.Elems))
		for i, e := range d.Elems {
			t, err := c.synth(e, scope)
			if err != nil {
				return nil, err
			}
			elems[i] = t
		}
		return ir.TupleOf(elems), nil
	case *decoder.Record:
		fields := make([]ir.Field, len(d.Fields))
		for i, f := range d.Fields {
			t, err := c.synth(f.Decoder, scope)
			if err != nil {
				return nil, err
			}
			fields[i] = ir.Field{Label: f.Label, Type: t}
			scope = scope.bind(f.Label, t)
		}
		return ir.RecordType{Fields: fields}, nil
	case *decoder.While:
		return c.synthSeq(d.Inner, scope)
	case *decoder.Until:
		return c.synthSeq(d.Inner, scope)
	case *decoder.RepeatCount:
		return c.synthSeq(d.Inner, scope)
	case *decoder.RepeatUntilLast:
		return c.synthSeq(d.Inner, scope)
	case *decoder.RepeatUntilSeq:
		return c.synthSeq(d.Inner, scope)
	case *decoder.Peek:
		return c.synth(d.Inner, scope)
	case *decoder.Slice:
		return c.synth(d.Inner, scope)
	case *decoder.Bits:
		return c.synth(d.Inner, scope)
	case *decoder.WithRelativeOffset:
		return c.synth(d.Inner, scope)
	case *decoder.Map:
		inner, err := c.synth(d.Inner, scope)
		if err != nil {
			return nil, err
		}
		return c.synthExpr(d.Fn.Body, scope.bind(d.Fn.Param, inner))
	case *decoder.Compute:
		return c.synthExpr(d.Expr, scope)
	case *decoder.Let:
		v, err := c.synthExpr(d.Value, scope)
		if err != nil {
			return nil, err
		}
		return c.synth(d.Inner, scope.bind(d.Name, v))
	case *decoder.Match:
		head, err := c.synthExpr(d.Head, scope)
		if err != nil {
			return nil, err
		}
		var t ir.ValueType = ir.Empty
		for _, mc := range d.Cases {
			inner, err := c.bindPattern(mc.Pattern, head, scope)
			if err != nil {
				return nil, err
			}
			ct, err := c.synth(mc.Decoder, inner)
			if err != nil {
				return nil, err
			}
			if t, err = c.unify(d, t, ct); err != nil {
				return nil, err
			}
		}
		return t, nil
	case *decoder.Dynamic:
		return c.synth(d.Inner, scope.bind(d.Name, dynamicFormat))
	case *decoder.Apply:
		return c.applyType(d, scope)
	}
	panic(fmt.Sprintf("typecheck: unknown decoder %T", d))
}

func (c *checker) synthBranches(d decoder.Decoder, branches []decoder.Decoder, scope *env) (ir.ValueType, error) {
	var t ir.ValueType = ir.Empty
	for _, b := range branches {
		bt, err := c.synth(b, scope)
		if err != nil {
			return nil, err
		}
		if t, err = c.unify(d, t, bt); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (c *checker) synthSeq(inner decoder.Decoder, scope *env) (ir.ValueType, error) {
	t, err := c.synth(inner, scope)
	if err != nil {
		return nil, err
	}
	return ir.SeqType{Elem: t}, nil
}

func (c *checker) applyType(d *decoder.Apply, scope *env) (ir.ValueType, error) {
	t, ok := scope.lookup(d.Name)
	if !ok {
		return nil, c.errorf(d, "unbound format %q", d.Name)
	}
	ft, ok := t.(ir.FormatType)
	if !ok {
		return nil, c.errorf(d, "%q has type %s, not a format", d.Name, t)
	}
	return ft.Value, nil
}

// settle joins the type a parent expects of d with d's own type.
func (c *checker) settle(d decoder.Decoder, want ir.ValueType, scope *env) (ir.ValueType, error) {
	t, err := c.synth(d, scope)
	if err != nil {
		return nil, err
	}
	return c.unify(d, want, t)
}

func (c *checker) checkSettled(d decoder.Decoder, want ir.ValueType, scope *env) error {
	t, err := c.settle(d, want, scope)
	if err != nil {
		return err
	}
	return c.check(d, t, scope)
}

// check records want as the type of d and settles d's children. want must
// already include d's synthesized type.
func (c *checker) check(d decoder.Decoder, want ir.ValueType, scope *env) error {
	c.record(d, want)
	switch d := d.(type) {
	case *decoder.Call:
		wider, err := c.unify(d, c.entries[d.Index], want)
		if err != nil {
			return err
		}
		if !ir.Equal(wider, c.entries[d.Index]) {
			c.entries[d.Index] = wider
			c.widened = true
		}
		params := c.program.Entries[d.Index].Params
		for i, a := range d.Args {
			if err := c.checkExprExact(a.Value, params[i].Type, scope); err != nil {
				return err
			}
		}
		return nil

	case *decoder.Fail, *decoder.EndOfInput, *decoder.Align, *decoder.Byte, *decoder.Apply:
		return nil

	case *decoder.Variant:
		u, ok := want.(ir.UnionType)
		if !ok {
			return c.errorf(d, "variant %q checked against %s", d.Label, want)
		}
		payload, ok := u.Lookup(d.Label)
		if !ok {
			return c.errorf(d, "variant %q missing from %s", d.Label, want)
		}
		return c.checkSettled(d.Inner, payload, scope)

	case *decoder.Parallel:
		return c.checkAll(d.Branches, want, scope)
	case *decoder.Branch:
		return c.checkAll(d.Branches, want, scope)

	case *decoder.Tuple:
		tt, ok := want.(ir.TupleType)
		if !ok || len(tt.Elems) != len(d.Elems) {
			return c.errorf(d, "tuple of %d checked against %s", len(d.Elems), want)
		}
		for i, e := range d.Elems {
			if err := c.checkSettled(e, tt.Elems[i], scope); err != nil {
				return err
			}
		}
		return nil

	case *decoder.Record:
		rt, ok := want.(ir.RecordType)
		if !ok || len(rt.Fields) != len(d.Fields) {
			return c.errorf(d, "record checked against %s", want)
		}
		for i, f := range d.Fields {
			ft := rt.Fields[i].Type
			t, err := c.settle(f.Decoder, ft, scope)
			if err != nil {
				return err
			}
			if !ir.Equal(t, ft) {
				return c.errorf(d, "field %q widens from %s to %s after settling", f.Label, ft, t)
			}
			if err := c.check(f.Decoder, t, scope); err != nil {
				return err
			}
			scope = scope.bind(f.Label, t)
		}
		return nil

	case *decoder.While:
		return c.checkElems(d, d.Inner, want, scope)
	case *decoder.Until:
		return c.checkElems(d, d.Inner, want, scope)
	case *decoder.RepeatCount:
		if err := c.checkNumeric(d.Count, scope); err != nil {
			return err
		}
		return c.checkElems(d, d.Inner, want, scope)
	case *decoder.RepeatUntilLast:
		if err := c.checkElems(d, d.Inner, want, scope); err != nil {
			return err
		}
		return c.checkPredicate(d.Pred, want.(ir.SeqType).Elem, scope)
	case *decoder.RepeatUntilSeq:
		if err := c.checkElems(d, d.Inner, want, scope); err != nil {
			return err
		}
		return c.checkPredicate(d.Pred, want, scope)

	case *decoder.Peek:
		return c.checkSettled(d.Inner, want, scope)
	case *decoder.PeekNot:
		return c.checkSettled(d.Inner, ir.Empty, scope)
	case *decoder.Slice:
		if err := c.checkNumeric(d.Length, scope); err != nil {
			return err
		}
		return c.checkSettled(d.Inner, want, scope)
	case *decoder.Bits:
		return c.checkSettled(d.Inner, want, scope)
	case *decoder.WithRelativeOffset:
		if err := c.checkNumeric(d.Offset, scope); err != nil {
			return err
		}
		return c.checkSettled(d.Inner, want, scope)

	case *decoder.Map:
		inner, err := c.synth(d.Inner, scope)
		if err != nil {
			return err
		}
		if err := c.check(d.Inner, inner, scope); err != nil {
			return err
		}
		return c.checkLambda(d.Fn, inner, want, scope)

	case *decoder.Compute:
		return c.checkExpr(d.Expr, want, scope)

	case *decoder.Let:
		v, err := c.synthExpr(d.Value, scope)
		if err != nil {
			return err
		}
		if err := c.checkExpr(d.Value, v, scope); err != nil {
			return err
		}
		return c.checkSettled(d.Inner, want, scope.bind(d.Name, v))

	case *decoder.Match:
		head, err := c.synthExpr(d.Head, scope)
		if err != nil {
			return err
		}
		if err := c.checkExpr(d.Head, head, scope); err != nil {
			return err
		}
		for _, mc := range d.Cases {
			inner, err := c.checkPattern(mc.Pattern, head, scope)
			if err != nil {
				return err
			}
			if err := c.checkSettled(mc.Decoder, want, inner); err != nil {
				return err
			}
		}
		return nil

	case *decoder.Dynamic:
		for _, e := range []expr.Expr{d.Huffman.Lengths, d.Huffman.Values} {
			if e == nil {
				continue
			}
			t, err := c.synthExpr(e, scope)
			if err != nil {
				return err
			}
			if _, ok := t.(ir.SeqType); !ok {
				return c.errorf(e, "huffman table must be a sequence, got %s", t)
			}
			if err := c.checkExpr(e, t, scope); err != nil {
				return err
			}
		}
		return c.checkSettled(d.Inner, want, scope.bind(d.Name, dynamicFormat))
	}
	panic(fmt.Sprintf("typecheck: unknown decoder %T", d))
}

func (c *checker) checkAll(ds []decoder.Decoder, want ir.ValueType, scope *env) error {
	for _, b := range ds {
		if err := c.checkSettled(b, want, scope); err != nil {
			return err
		}
	}
	return nil
}

func (c *checker) checkElems(d decoder.Decoder, inner decoder.Decoder, want ir.ValueType, scope *env) error {
	st, ok := want.(ir.SeqType)
	if !ok {
		return c.errorf(d, "repetition checked against %s", want)
	}
	return c.checkSettled(inner, st.Elem, scope)
}

// checkPredicate types a termination predicate over arg.
func (c *checker) checkPredicate(l *expr.Lambda, arg ir.ValueType, scope *env) error {
	t, err := c.synthExpr(l.Body, scope.bind(l.Param, arg))
	if err != nil {
		return err
	}
	if t != ir.Bool {
		return c.errorf(l, "predicate must yield bool, got %s", t)
	}
	return c.checkLambda(l, arg, ir.Bool, scope)
}
