package typecheck

import (
	"fmt"

	"github.com/roach88/bingen/internal/expr"
	"github.com/roach88/bingen/internal/ir"
)

// bindPattern extends scope with the bindings of p matched against a value
// of type t.
func (c *checker) bindPattern(p expr.Pattern, t ir.ValueType, scope *env) (*env, error) {
	return c.walkPattern(p, t, scope, false)
}

// checkPattern is bindPattern that also records each pattern node's type.
func (c *checker) checkPattern(p expr.Pattern, t ir.ValueType, scope *env) (*env, error) {
	return c.walkPattern(p, t, scope, true)
}

func (c *checker) walkPattern(p expr.Pattern, t ir.ValueType, scope *env, rec bool) (*env, error) {
	if rec {
		c.record(p, t)
	}
	literal := func(base ir.Base) (*env, error) {
		if t != base {
			return nil, c.errorf(p, "%s pattern against %s", base, t)
		}
		return scope, nil
	}
	switch p := p.(type) {
	case *expr.BindPattern:
		return scope.bind(p.Name, t), nil
	case *expr.WildcardPattern:
		return scope, nil
	case *expr.BoolPattern:
		return literal(ir.Bool)
	case *expr.U8Pattern:
		return literal(ir.U8)
	case *expr.U16Pattern:
		return literal(ir.U16)
	case *expr.U32Pattern:
		return literal(ir.U32)
	case *expr.CharPattern:
		return literal(ir.Char)
	case *expr.TuplePattern:
		tt, ok := t.(ir.TupleType)
		if !ok || len(tt.Elems) != len(p.Elems) {
			return nil, c.errorf(p, "tuple pattern of %d against %s", len(p.Elems), t)
		}
		var err error
		for i, el := range p.Elems {
			if scope, err = c.walkPattern(el, tt.Elems[i], scope, rec); err != nil {
				return nil, err
			}
		}
		return scope, nil
	case *expr.VariantPattern:
		u, ok := t.(ir.UnionType)
		if !ok {
			return nil, c.errorf(p, "variant pattern %q against %s", p.Label, t)
		}
		payload, ok := u.Lookup(p.Label)
		if !ok {
			return nil, c.errorf(p, "variant %q not in %s", p.Label, t)
		}
		return c.walkPattern(p.Inner, payload, scope, rec)
	case *expr.SeqPattern:
		st, ok := t.(ir.SeqType)
		if !ok {
			return nil, c.errorf(p, "sequence pattern against %s", t)
		}
		var err error
		for _, el := range p.Elems {
			if scope, err = c.walkPattern(el, st.Elem, scope, rec); err != nil {
				return nil, err
			}
		}
		return scope, nil
	}
	panic(fmt.Sprintf("typecheck: unknown pattern %T", p))
}
