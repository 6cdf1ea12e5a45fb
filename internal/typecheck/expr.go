package typecheck

import (
	"fmt"

	"github.com/roach88/bingen/internal/expr"
	"github.com/roach88/bingen/internal/ir"
)

func (c *checker) synthExpr(e expr.Expr, scope *env) (ir.ValueType, error) {
	switch e := e.(type) {
	case *expr.Var:
		t, ok := scope.lookup(e.Name)
		if !ok {
			return nil, c.errorf(e, "unbound variable %q", e.Name)
		}
		return t, nil
	case *expr.Bool:
		return ir.Bool, nil
	case *expr.U8:
		return ir.U8, nil
	case *expr.U16:
		return ir.U16, nil
	case *expr.U32:
		return ir.U32, nil
	case *expr.Tuple:
		elems := make([]ir.ValueType, len(e.Elems))
		for i, el := range e.Elems {
			t, err := c.synthExpr(el, scope)
			if err != nil {
				return nil, err
			}
			elems[i] = t
		}
		return ir.TupleOf(elems), nil
	case *expr.TupleProj:
		head, err := c.synthExpr(e.Head, scope)
		if err != nil {
			return nil, err
		}
		tt, ok := head.(ir.TupleType)
		if !ok || e.Index < 0 || e.Index >= len(tt.Elems) {
			return nil, c.errorf(e, "cannot project index %d of %s", e.Index, head)
		}
		return tt.Elems[e.Index], nil
	case *expr.Record:
		fields := make([]ir.Field, len(e.Fields))
		for i, f := range e.Fields {
			t, err := c.synthExpr(f.Value, scope)
			if err != nil {
				return nil, err
			}
			fields[i] = ir.Field{Label: f.Label, Type: t}
		}
		return ir.RecordType{Fields: fields}, nil
	case *expr.RecordProj:
		head, err := c.synthExpr(e.Head, scope)
		if err != nil {
			return nil, err
		}
		rt, ok := head.(ir.RecordType)
		if !ok {
			return nil, c.errorf(e, "cannot project field %q of %s", e.Label, head)
		}
		t, ok := rt.Lookup(e.Label)
		if !ok {
			return nil, c.errorf(e, "no field %q in %s", e.Label, head)
		}
		return t, nil
	case *expr.Variant:
		t, err := c.synthExpr(e.Value, scope)
		if err != nil {
			return nil, err
		}
		return ir.UnionType{Variants: []ir.Field{{Label: e.Label, Type: t}}}, nil
	case *expr.Seq:
		var elem ir.ValueType = ir.Any
		for _, el := range e.Elems {
			t, err := c.synthExpr(el, scope)
			if err != nil {
				return nil, err
			}
			if elem, err = c.unify(e, elem, t); err != nil {
				return nil, err
			}
		}
		return ir.SeqType{Elem: elem}, nil
	case *expr.Match:
		head, err := c.synthExpr(e.Head, scope)
		if err != nil {
			return nil, err
		}
		var t ir.ValueType = ir.Empty
		for _, mc := range e.Cases {
			inner, err := c.bindPattern(mc.Pattern, head, scope)
			if err != nil {
				return nil, err
			}
			bt, err := c.synthExpr(mc.Body, inner)
			if err != nil {
				return nil, err
			}
			if t, err = c.unify(e, t, bt); err != nil {
				return nil, err
			}
		}
		return t, nil
	case *expr.Lambda:
		return nil, c.errorf(e, "lambda used as a value")
	case *expr.Binary:
		return c.synthBinary(e, scope)
	case *expr.Cast:
		t, err := c.synthExpr(e.Value, scope)
		if err != nil {
			return nil, err
		}
		if !ir.IsNumeric(t) {
			return nil, c.errorf(e, "cannot convert %s to %s", t, e.To)
		}
		switch e.To {
		case ir.U8, ir.U16, ir.U32, ir.Char:
			return e.To, nil
		}
		return nil, c.errorf(e, "cannot convert to %s", e.To)
	case *expr.Pack:
		t, err := c.synthExpr(e.Bytes, scope)
		if err != nil {
			return nil, err
		}
		tt, ok := t.(ir.TupleType)
		if !ok || len(tt.Elems) != e.Kind.Width() {
			return nil, c.errorf(e, "%s expects a tuple of %d bytes, got %s", e.Kind, e.Kind.Width(), t)
		}
		for _, el := range tt.Elems {
			if el != ir.U8 {
				return nil, c.errorf(e, "%s expects bytes, got %s", e.Kind, t)
			}
		}
		if e.Kind.Width() == 2 {
			return ir.U16, nil
		}
		return ir.U32, nil
	case *expr.SeqLength:
		if _, err := c.seqOf(e, e.Seq, scope); err != nil {
			return nil, err
		}
		return ir.U32, nil
	case *expr.SubSeq:
		st, err := c.seqOf(e, e.Seq, scope)
		if err != nil {
			return nil, err
		}
		for _, n := range []expr.Expr{e.Start, e.Length} {
			if _, err := c.numeric(n, scope); err != nil {
				return nil, err
			}
		}
		return st, nil
	case *expr.FlatMap:
		st, err := c.seqOf(e, e.Seq, scope)
		if err != nil {
			return nil, err
		}
		bt, err := c.synthExpr(e.Fn.Body, scope.bind(e.Fn.Param, st.Elem))
		if err != nil {
			return nil, err
		}
		if _, ok := bt.(ir.SeqType); !ok {
			return nil, c.errorf(e, "flat-map function must yield a sequence, got %s", bt)
		}
		return bt, nil
	case *expr.Dup:
		if _, err := c.numeric(e.Count, scope); err != nil {
			return nil, err
		}
		t, err := c.synthExpr(e.Value, scope)
		if err != nil {
			return nil, err
		}
		return ir.SeqType{Elem: t}, nil
	}
	panic(fmt.Sprintf("typecheck: unknown expression %T", e))
}

func (c *checker) synthBinary(e *expr.Binary, scope *env) (ir.ValueType, error) {
	lhs, err := c.synthExpr(e.Lhs, scope)
	if err != nil {
		return nil, err
	}
	rhs, err := c.synthExpr(e.Rhs, scope)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case expr.OpEq, expr.OpNe:
		if _, err := c.unify(e, lhs, rhs); err != nil {
			return nil, err
		}
		return ir.Bool, nil
	case expr.OpShl, expr.OpShr:
		if !ir.IsNumeric(lhs) || !ir.IsNumeric(rhs) {
			return nil, c.errorf(e, "%s on %s and %s", e.Op, lhs, rhs)
		}
		return lhs, nil
	}
	if !ir.IsNumeric(lhs) || !ir.Equal(lhs, rhs) {
		return nil, c.errorf(e, "%s on %s and %s", e.Op, lhs, rhs)
	}
	if e.Op.IsComparison() {
		return ir.Bool, nil
	}
	return lhs, nil
}

func (c *checker) seqOf(at identified, e expr.Expr, scope *env) (ir.SeqType, error) {
	t, err := c.synthExpr(e, scope)
	if err != nil {
		return ir.SeqType{}, err
	}
	st, ok := t.(ir.SeqType)
	if !ok {
		return ir.SeqType{}, c.errorf(at, "expected a sequence, got %s", t)
	}
	return st, nil
}

func (c *checker) numeric(e expr.Expr, scope *env) (ir.ValueType, error) {
	t, err := c.synthExpr(e, scope)
	if err != nil {
		return nil, err
	}
	if !ir.IsNumeric(t) {
		return nil, c.errorf(e, "expected a number, got %s", t)
	}
	return t, nil
}

// checkNumeric settles an expression that must be a number.
func (c *checker) checkNumeric(e expr.Expr, scope *env) error {
	t, err := c.numeric(e, scope)
	if err != nil {
		return err
	}
	return c.checkExpr(e, t, scope)
}

// checkExprExact settles e against a fixed type that it must equal once
// widened.
func (c *checker) checkExprExact(e expr.Expr, want ir.ValueType, scope *env) error {
	t, err := c.synthExpr(e, scope)
	if err != nil {
		return err
	}
	u, err := c.unify(e, want, t)
	if err != nil {
		return err
	}
	if !ir.Equal(u, want) {
		return c.errorf(e, "expected %s, got %s", want, t)
	}
	return c.checkExpr(e, want, scope)
}

func (c *checker) checkLambda(l *expr.Lambda, param, body ir.ValueType, scope *env) error {
	c.record(l, param)
	return c.checkExpr(l.Body, body, scope.bind(l.Param, param))
}

func (c *checker) settleExpr(e expr.Expr, want ir.ValueType, scope *env) error {
	t, err := c.synthExpr(e, scope)
	if err != nil {
		return err
	}
	u, err := c.unify(e, want, t)
	if err != nil {
		return err
	}
	return c.checkExpr(e, u, scope)
}

// checkExpr records want as the type of e and settles its children. Nodes
// whose type is fixed by their operands cannot be widened.
func (c *checker) checkExpr(e expr.Expr, want ir.ValueType, scope *env) error {
	c.record(e, want)
	switch e := e.(type) {
	case *expr.Bool, *expr.U8, *expr.U16, *expr.U32:
		return nil
	case *expr.Tuple:
		tt, ok := want.(ir.TupleType)
		if !ok || len(tt.Elems) != len(e.Elems) {
			return c.errorf(e, "tuple checked against %s", want)
		}
		for i, el := range e.Elems {
			if err := c.settleExpr(el, tt.Elems[i], scope); err != nil {
				return err
			}
		}
		return nil
	case *expr.Record:
		rt, ok := want.(ir.RecordType)
		if !ok || len(rt.Fields) != len(e.Fields) {
			return c.errorf(e, "record checked against %s", want)
		}
		for i, f := range e.Fields {
			if err := c.settleExpr(f.Value, rt.Fields[i].Type, scope); err != nil {
				return err
			}
		}
		return nil
	case *expr.Variant:
		u, ok := want.(ir.UnionType)
		if !ok {
			return c.errorf(e, "variant %q checked against %s", e.Label, want)
		}
		payload, ok := u.Lookup(e.Label)
		if !ok {
			return c.errorf(e, "variant %q missing from %s", e.Label, want)
		}
		return c.settleExpr(e.Value, payload, scope)
	case *expr.Seq:
		st, ok := want.(ir.SeqType)
		if !ok {
			return c.errorf(e, "sequence checked against %s", want)
		}
		for _, el := range e.Elems {
			if err := c.settleExpr(el, st.Elem, scope); err != nil {
				return err
			}
		}
		return nil
	case *expr.Match:
		head, err := c.synthExpr(e.Head, scope)
		if err != nil {
			return err
		}
		if err := c.checkExpr(e.Head, head, scope); err != nil {
			return err
		}
		for _, mc := range e.Cases {
			inner, err := c.checkPattern(mc.Pattern, head, scope)
			if err != nil {
				return err
			}
			if err := c.settleExpr(mc.Body, want, inner); err != nil {
				return err
			}
		}
		return nil
	case *expr.Dup:
		st, ok := want.(ir.SeqType)
		if !ok {
			return c.errorf(e, "dup checked against %s", want)
		}
		if err := c.checkNumeric(e.Count, scope); err != nil {
			return err
		}
		return c.settleExpr(e.Value, st.Elem, scope)
	case *expr.FlatMap:
		st, err := c.seqOf(e, e.Seq, scope)
		if err != nil {
			return err
		}
		if err := c.checkExpr(e.Seq, st, scope); err != nil {
			return err
		}
		body, err := c.synthExpr(e.Fn.Body, scope.bind(e.Fn.Param, st.Elem))
		if err != nil {
			return err
		}
		u, err := c.unify(e, want, body)
		if err != nil {
			return err
		}
		return c.checkLambda(e.Fn, st.Elem, u, scope)
	}

	// The remaining forms have a type determined by their operands.
	t, err := c.synthExpr(e, scope)
	if err != nil {
		return err
	}
	if !ir.Equal(t, want) {
		return c.errorf(e, "cannot widen %s to %s", t, want)
	}
	switch e := e.(type) {
	case *expr.Var:
		return nil
	case *expr.TupleProj:
		return c.checkSynth(e.Head, scope)
	case *expr.RecordProj:
		return c.checkSynth(e.Head, scope)
	case *expr.Binary:
		lhs, err := c.synthExpr(e.Lhs, scope)
		if err != nil {
			return err
		}
		if err := c.settleExpr(e.Lhs, lhs, scope); err != nil {
			return err
		}
		rhs := lhs
		if e.Op == expr.OpShl || e.Op == expr.OpShr {
			if rhs, err = c.synthExpr(e.Rhs, scope); err != nil {
				return err
			}
		}
		return c.settleExpr(e.Rhs, rhs, scope)
	case *expr.Cast:
		return c.checkSynth(e.Value, scope)
	case *expr.Pack:
		return c.checkSynth(e.Bytes, scope)
	case *expr.SeqLength:
		return c.checkSynth(e.Seq, scope)
	case *expr.SubSeq:
		for _, sub := range []expr.Expr{e.Seq, e.Start, e.Length} {
			if err := c.checkSynth(sub, scope); err != nil {
				return err
			}
		}
		return nil
	}
	panic(fmt.Sprintf("typecheck: unknown expression %T", e))
}

func (c *checker) checkSynth(e expr.Expr, scope *env) error {
	t, err := c.synthExpr(e, scope)
	if err != nil {
		return err
	}
	return c.checkExpr(e, t, scope)
}
