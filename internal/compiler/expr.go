package compiler

import (
	"unicode/utf8"

	"cuelang.org/go/cue"

	"github.com/roach88/bingen/internal/expr"
	"github.com/roach88/bingen/internal/ir"
)

var exprKeys = []string{
	"u8", "u16", "u32", "tuple", "proj", "record", "variant", "seq", "match", "lambda",
	"op", "as_u8", "as_u16", "as_u32", "as_char", "u16be", "u16le", "u32be", "u32le",
	"seq_len", "sub_seq", "flat_map", "dup",
}

// opSymbols are accepted alongside the operator names of expr.ParseOp.
var opSymbols = map[string]expr.Op{
	"&": expr.OpBitAnd, "|": expr.OpBitOr,
	"==": expr.OpEq, "!=": expr.OpNe, "<": expr.OpLt, ">": expr.OpGt, "<=": expr.OpLte, ">=": expr.OpGte,
	"*": expr.OpMul, "/": expr.OpDiv, "%": expr.OpRem, "<<": expr.OpShl, ">>": expr.OpShr,
	"+": expr.OpAdd, "-": expr.OpSub,
}

var casts = map[string]ir.Base{"as_u8": ir.U8, "as_u16": ir.U16, "as_u32": ir.U32, "as_char": ir.Char}

var packs = map[string]expr.PackKind{
	"u16be": expr.PackU16Be, "u16le": expr.PackU16Le,
	"u32be": expr.PackU32Be, "u32le": expr.PackU32Le,
}

// expr reads an expression. A string is a variable and a bool a literal;
// integer literals carry their width: {u8: 7}.
func (mc *moduleCompiler) expr(v cue.Value) (expr.Expr, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	switch v.IncompleteKind() {
	case cue.StringKind:
		name, _ := v.String()
		return expr.V(name), nil
	case cue.BoolKind:
		b, _ := v.Bool()
		return &expr.Bool{Value: b}, nil
	case cue.IntKind:
		return nil, errorf(v, "integer literal needs a width, e.g. {u8: n}")
	}
	key, err := oneOf(v, exprKeys)
	if err != nil {
		return nil, err
	}
	arg := v.LookupPath(cue.MakePath(cue.Str(key)))

	switch key {
	case "u8":
		n, err := intIn(arg, 0, 1<<8-1)
		return &expr.U8{Value: uint8(n)}, err
	case "u16":
		n, err := intIn(arg, 0, 1<<16-1)
		return &expr.U16{Value: uint16(n)}, err
	case "u32":
		n, err := intIn(arg, 0, 1<<32-1)
		return &expr.U32{Value: uint32(n)}, err
	case "tuple":
		elems, err := listOf(arg, mc.expr)
		return &expr.Tuple{Elems: elems}, err
	case "proj":
		head, err := mc.expr(arg)
		if err != nil {
			return nil, err
		}
		if fv := v.LookupPath(cue.ParsePath("field")); fv.Exists() {
			label, err := fv.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			return expr.Proj(head, label), nil
		}
		iv := v.LookupPath(cue.ParsePath("index"))
		if !iv.Exists() {
			return nil, errorf(v, "proj requires field or index")
		}
		ix, err := intIn(iv, 0, 1<<16)
		return &expr.TupleProj{Head: head, Index: int(ix)}, err
	case "record":
		iter, err := arg.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		rec := &expr.Record{}
		for iter.Next() {
			e, err := mc.expr(iter.Value())
			if err != nil {
				return nil, err
			}
			rec.Fields = append(rec.Fields, expr.Field{Label: iter.Label(), Value: e})
		}
		return rec, nil
	case "variant":
		label, err := arg.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var value expr.Expr = expr.Unit()
		if ov := v.LookupPath(cue.ParsePath("of")); ov.Exists() {
			if value, err = mc.expr(ov); err != nil {
				return nil, err
			}
		}
		return &expr.Variant{Label: label, Value: value}, nil
	case "seq":
		elems, err := listOf(arg, mc.expr)
		return &expr.Seq{Elems: elems}, err
	case "match":
		head, err := mc.expr(arg)
		if err != nil {
			return nil, err
		}
		cv := v.LookupPath(cue.ParsePath("cases"))
		if !cv.Exists() {
			return nil, errorf(v, "match requires cases")
		}
		cases, err := listOf(cv, func(c cue.Value) (expr.Case, error) {
			p, err := mc.patternAt(c, "pattern")
			if err != nil {
				return expr.Case{}, err
			}
			body, err := mc.exprAt(c, "value")
			return expr.Case{Pattern: p, Body: body}, err
		})
		return &expr.Match{Head: head, Cases: cases}, err
	case "lambda":
		return mc.lambda(v)
	case "op":
		name, err := arg.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		op, ok := opSymbols[name]
		if !ok {
			if op, ok = expr.ParseOp(name); !ok {
				return nil, errorf(arg, "unknown operator %q", name)
			}
		}
		lhs, err := mc.exprAt(v, "lhs")
		if err != nil {
			return nil, err
		}
		rhs, err := mc.exprAt(v, "rhs")
		if err != nil {
			return nil, err
		}
		return expr.Bin(op, lhs, rhs), nil
	case "as_u8", "as_u16", "as_u32", "as_char":
		e, err := mc.expr(arg)
		return &expr.Cast{To: casts[key], Value: e}, err
	case "u16be", "u16le", "u32be", "u32le":
		e, err := mc.expr(arg)
		return &expr.Pack{Kind: packs[key], Bytes: e}, err
	case "seq_len":
		e, err := mc.expr(arg)
		return &expr.SeqLength{Seq: e}, err
	case "sub_seq":
		seq, err := mc.expr(arg)
		if err != nil {
			return nil, err
		}
		start, err := mc.exprAt(v, "start")
		if err != nil {
			return nil, err
		}
		length, err := mc.exprAt(v, "length")
		return &expr.SubSeq{Seq: seq, Start: start, Length: length}, err
	case "flat_map":
		fn, err := mc.lambda(arg)
		if err != nil {
			return nil, err
		}
		seq, err := mc.exprAt(v, "seq")
		return &expr.FlatMap{Fn: fn, Seq: seq}, err
	case "dup":
		value, err := mc.expr(arg)
		if err != nil {
			return nil, err
		}
		count, err := mc.exprAt(v, "count")
		return &expr.Dup{Count: count, Value: value}, err
	}
	return nil, errorf(v, "unsupported expression %q", key)
}

func (mc *moduleCompiler) exprAt(v cue.Value, path string) (expr.Expr, error) {
	sub := v.LookupPath(cue.ParsePath(path))
	if !sub.Exists() {
		return nil, errorf(v, "%s is required", path)
	}
	return mc.expr(sub)
}

// lambda reads {lambda: "param", body: expr}.
func (mc *moduleCompiler) lambda(v cue.Value) (*expr.Lambda, error) {
	pv := v.LookupPath(cue.ParsePath("lambda"))
	if !pv.Exists() {
		return nil, errorf(v, "expected a lambda")
	}
	param, err := pv.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	body, err := mc.exprAt(v, "body")
	if err != nil {
		return nil, err
	}
	return expr.Lam(param, body), nil
}

var patternKeys = []string{"u8", "u16", "u32", "char", "tuple", "seq", "variant"}

// pattern reads a pattern: "_" is a wildcard, any other string binds a
// name and a bool matches itself.
func (mc *moduleCompiler) pattern(v cue.Value) (expr.Pattern, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	switch v.IncompleteKind() {
	case cue.StringKind:
		name, _ := v.String()
		if name == "_" {
			return expr.Wild(), nil
		}
		return expr.Bind(name), nil
	case cue.BoolKind:
		b, _ := v.Bool()
		return &expr.BoolPattern{Value: b}, nil
	}
	key, err := oneOf(v, patternKeys)
	if err != nil {
		return nil, err
	}
	arg := v.LookupPath(cue.MakePath(cue.Str(key)))

	switch key {
	case "u8":
		n, err := intIn(arg, 0, 1<<8-1)
		return &expr.U8Pattern{Value: uint8(n)}, err
	case "u16":
		n, err := intIn(arg, 0, 1<<16-1)
		return &expr.U16Pattern{Value: uint16(n)}, err
	case "u32":
		n, err := intIn(arg, 0, 1<<32-1)
		return &expr.U32Pattern{Value: uint32(n)}, err
	case "char":
		s, err := arg.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		r, size := utf8.DecodeRuneInString(s)
		if size == 0 || size != len(s) {
			return nil, errorf(arg, "char pattern must be a single character")
		}
		return &expr.CharPattern{Value: r}, nil
	case "tuple":
		elems, err := listOf(arg, mc.pattern)
		return &expr.TuplePattern{Elems: elems}, err
	case "seq":
		elems, err := listOf(arg, mc.pattern)
		return &expr.SeqPattern{Elems: elems}, err
	case "variant":
		label, err := arg.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var inner expr.Pattern = expr.Wild()
		if ov := v.LookupPath(cue.ParsePath("of")); ov.Exists() {
			if inner, err = mc.pattern(ov); err != nil {
				return nil, err
			}
		}
		return &expr.VariantPattern{Label: label, Inner: inner}, nil
	}
	return nil, errorf(v, "unsupported pattern %q", key)
}

func (mc *moduleCompiler) patternAt(v cue.Value, path string) (expr.Pattern, error) {
	sub := v.LookupPath(cue.ParsePath(path))
	if !sub.Exists() {
		return nil, errorf(v, "%s is required", path)
	}
	return mc.pattern(sub)
}

var baseTypes = map[string]ir.Base{"bool": ir.Bool, "u8": ir.U8, "u16": ir.U16, "u32": ir.U32, "char": ir.Char}

// valueType reads a parameter type: a base name, {seq: T} or {tuple: [T]}.
func valueType(v cue.Value) (ir.ValueType, error) {
	if v.IncompleteKind() == cue.StringKind {
		name, _ := v.String()
		if b, ok := baseTypes[name]; ok {
			return b, nil
		}
		return nil, errorf(v, "unknown type %q", name)
	}
	key, err := oneOf(v, []string{"seq", "tuple"})
	if err != nil {
		return nil, err
	}
	arg := v.LookupPath(cue.MakePath(cue.Str(key)))
	if key == "seq" {
		elem, err := valueType(arg)
		if err != nil {
			return nil, err
		}
		return ir.SeqType{Elem: elem}, nil
	}
	elems, err := listOf(arg, valueType)
	if err != nil {
		return nil, err
	}
	return ir.TupleOf(elems), nil
}
