package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/bingen/internal/expr"
	"github.com/roach88/bingen/internal/format"
	"github.com/roach88/bingen/internal/ir"
)

// CompileModule parses a CUE value into a format module.
// Uses the CUE SDK's Go API directly.
//
// The value holds a "formats" struct whose fields, in declaration order,
// are the module's definitions:
//
//	formats: {
//		opt: alts: {
//			none: {map: {byte: 0}, fn: {lambda: "_", body: {tuple: []}}}
//			some: {not: 0}
//		}
//		bytes: {
//			params: {n: "u8"}
//			format: {repeat_count: "n", of: {byte: "any"}}
//		}
//	}
//
// A definition is either a format or a struct with "format" and optional
// "params". References to other definitions may appear in any order;
// recursive references are rejected.
func CompileModule(v cue.Value) (*format.Module, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	formatsVal := v.LookupPath(cue.ParsePath("formats"))
	if !formatsVal.Exists() {
		return nil, &CompileError{
			Field:   "formats",
			Message: "formats is required",
			Pos:     v.Pos(),
		}
	}

	type pending struct {
		name  string
		value cue.Value
	}
	var defs []pending
	mc := &moduleCompiler{levels: make(map[string]int)}
	iter, err := formatsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		mc.levels[iter.Label()] = len(defs)
		defs = append(defs, pending{name: iter.Label(), value: iter.Value()})
	}
	if len(defs) == 0 {
		return nil, &CompileError{
			Field:   "formats",
			Message: "at least one format definition is required",
			Pos:     formatsVal.Pos(),
		}
	}

	m := format.NewModule()
	for _, d := range defs {
		params, body, err := mc.definition(d.value)
		if err != nil {
			return nil, err
		}
		m.DefineArgs(d.name, params, body)
	}
	if err := mc.checkCalls(m); err != nil {
		return nil, err
	}
	if cycles := m.Cycles(); len(cycles) > 0 {
		return nil, &CompileError{
			Field:   "formats." + cycles[0].Path[0],
			Message: cycles[0].Message,
			Pos:     formatsVal.LookupPath(cue.MakePath(cue.Str(cycles[0].Path[0]))).Pos(),
		}
	}
	return m, nil
}

// moduleCompiler converts CUE values to formats, expressions and patterns.
type moduleCompiler struct {
	levels map[string]int
	// Reference sites, checked for arity once every definition is known.
	calls []call
}

type call struct {
	name  string
	level int
	args  int
	at    cue.Value
}

func (mc *moduleCompiler) definition(v cue.Value) ([]format.Param, format.Format, error) {
	if v.IncompleteKind() != cue.StructKind || !v.LookupPath(cue.ParsePath("format")).Exists() {
		f, err := mc.format(v)
		return nil, f, err
	}
	var params []format.Param
	if pv := v.LookupPath(cue.ParsePath("params")); pv.Exists() {
		iter, err := pv.Fields()
		if err != nil {
			return nil, nil, formatCUEError(err)
		}
		for iter.Next() {
			t, err := valueType(iter.Value())
			if err != nil {
				return nil, nil, err
			}
			params = append(params, format.Param{Name: iter.Label(), Type: t})
		}
	}
	f, err := mc.format(v.LookupPath(cue.ParsePath("format")))
	return params, f, err
}

// checkCalls verifies the argument count of every reference.
func (mc *moduleCompiler) checkCalls(m *format.Module) error {
	for _, c := range mc.calls {
		def := m.Get(c.level)
		if c.args != len(def.Params) {
			return errorf(c.at, "%s expects %d arguments, got %d", c.name, len(def.Params), c.args)
		}
	}
	return nil
}

var formatKeys = []string{
	"ref", "fail", "end", "align", "byte", "not", "literal", "variant", "union", "alts",
	"nondet", "nondet_alts", "tuple", "record", "repeat", "repeat1", "repeat_count",
	"repeat_until_last", "repeat_until_seq", "peek", "peek_not", "slice", "bits",
	"offset", "map", "compute", "let", "match", "dynamic", "apply",
}

func (mc *moduleCompiler) format(v cue.Value) (format.Format, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if v.IncompleteKind() == cue.StringKind {
		name, _ := v.String()
		switch name {
		case "empty":
			return format.Empty(), nil
		case "any":
			return format.AnyByte(), nil
		}
		return mc.ref(v, name, nil)
	}
	key, err := oneOf(v, formatKeys)
	if err != nil {
		return nil, err
	}
	arg := v.LookupPath(cue.MakePath(cue.Str(key)))

	switch key {
	case "ref":
		name, err := arg.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var args []expr.Expr
		if av := v.LookupPath(cue.ParsePath("args")); av.Exists() {
			if args, err = listOf(av, mc.expr); err != nil {
				return nil, err
			}
		}
		return mc.ref(arg, name, args)
	case "fail":
		return &format.Fail{}, nil
	case "end":
		return &format.EndOfInput{}, nil
	case "align":
		n, err := intIn(arg, 1, 1<<16)
		if err != nil {
			return nil, err
		}
		return &format.Align{N: int(n)}, nil
	case "byte":
		set, err := byteSet(arg)
		if err != nil {
			return nil, err
		}
		return &format.Byte{Set: set}, nil
	case "not":
		set, err := byteSet(arg)
		if err != nil {
			return nil, err
		}
		return &format.Byte{Set: set.Complement()}, nil
	case "literal":
		s, err := arg.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		t := &format.Tuple{}
		for i := 0; i < len(s); i++ {
			t.Elems = append(t.Elems, format.Is(s[i]))
		}
		return t, nil
	case "variant":
		label, err := arg.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		inner, err := mc.formatAt(v, "of")
		if err != nil {
			return nil, err
		}
		return &format.Variant{Label: label, Inner: inner}, nil
	case "union":
		branches, err := listOf(arg, mc.format)
		if err != nil {
			return nil, err
		}
		return &format.Union{Branches: branches}, nil
	case "nondet":
		branches, err := listOf(arg, mc.format)
		if err != nil {
			return nil, err
		}
		return &format.UnionNondet{Branches: branches}, nil
	case "alts", "nondet_alts":
		labeled, err := mc.labeled(arg)
		if err != nil {
			return nil, err
		}
		if key == "alts" {
			return format.Alts(labeled...), nil
		}
		return format.NondetAlts(labeled...), nil
	case "tuple":
		elems, err := listOf(arg, mc.format)
		if err != nil {
			return nil, err
		}
		return &format.Tuple{Elems: elems}, nil
	case "record":
		labeled, err := mc.labeled(arg)
		if err != nil {
			return nil, err
		}
		return format.Rec(labeled...), nil
	case "repeat", "repeat1", "peek", "peek_not", "bits":
		inner, err := mc.format(arg)
		if err != nil {
			return nil, err
		}
		switch key {
		case "repeat":
			return &format.Repeat{Inner: inner}, nil
		case "repeat1":
			return &format.Repeat1{Inner: inner}, nil
		case "peek":
			return &format.Peek{Inner: inner}, nil
		case "peek_not":
			return &format.PeekNot{Inner: inner}, nil
		default:
			return &format.Bits{Inner: inner}, nil
		}
	case "repeat_count", "slice", "offset":
		e, err := mc.expr(arg)
		if err != nil {
			return nil, err
		}
		inner, err := mc.formatAt(v, "of")
		if err != nil {
			return nil, err
		}
		switch key {
		case "repeat_count":
			return &format.RepeatCount{Count: e, Inner: inner}, nil
		case "slice":
			return &format.Slice{Length: e, Inner: inner}, nil
		default:
			return &format.WithRelativeOffset{Offset: e, Inner: inner}, nil
		}
	case "repeat_until_last", "repeat_until_seq":
		pred, err := mc.lambda(arg)
		if err != nil {
			return nil, err
		}
		inner, err := mc.formatAt(v, "of")
		if err != nil {
			return nil, err
		}
		if key == "repeat_until_last" {
			return &format.RepeatUntilLast{Pred: pred, Inner: inner}, nil
		}
		return &format.RepeatUntilSeq{Pred: pred, Inner: inner}, nil
	case "map":
		inner, err := mc.format(arg)
		if err != nil {
			return nil, err
		}
		fv := v.LookupPath(cue.ParsePath("fn"))
		if !fv.Exists() {
			return nil, errorf(v, "map requires fn")
		}
		fn, err := mc.lambda(fv)
		if err != nil {
			return nil, err
		}
		return &format.Map{Inner: inner, Fn: fn}, nil
	case "compute":
		e, err := mc.expr(arg)
		if err != nil {
			return nil, err
		}
		return &format.Compute{Expr: e}, nil
	case "let":
		name, err := arg.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		value, err := mc.exprAt(v, "value")
		if err != nil {
			return nil, err
		}
		inner, err := mc.formatAt(v, "of")
		if err != nil {
			return nil, err
		}
		return &format.Let{Name: name, Value: value, Inner: inner}, nil
	case "match":
		head, err := mc.expr(arg)
		if err != nil {
			return nil, err
		}
		cv := v.LookupPath(cue.ParsePath("cases"))
		if !cv.Exists() {
			return nil, errorf(v, "match requires cases")
		}
		cases, err := listOf(cv, func(c cue.Value) (format.Case, error) {
			p, err := mc.patternAt(c, "pattern")
			if err != nil {
				return format.Case{}, err
			}
			f, err := mc.formatAt(c, "format")
			return format.Case{Pattern: p, Format: f}, err
		})
		if err != nil {
			return nil, err
		}
		return &format.Match{Head: head, Cases: cases}, nil
	case "dynamic":
		name, err := arg.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		lengths, err := mc.exprAt(v, "huffman.lengths")
		if err != nil {
			return nil, err
		}
		var values expr.Expr
		if vv := v.LookupPath(cue.ParsePath("huffman.values")); vv.Exists() {
			if values, err = mc.expr(vv); err != nil {
				return nil, err
			}
		}
		inner, err := mc.formatAt(v, "of")
		if err != nil {
			return nil, err
		}
		return &format.Dynamic{Name: name, Huffman: format.Huffman{Lengths: lengths, Values: values}, Inner: inner}, nil
	case "apply":
		name, err := arg.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return &format.Apply{Name: name}, nil
	}
	return nil, errorf(v, "unsupported format %q", key)
}

func (mc *moduleCompiler) ref(at cue.Value, name string, args []expr.Expr) (format.Format, error) {
	level, ok := mc.levels[name]
	if !ok {
		return nil, errorf(at, "undefined format %q", name)
	}
	mc.calls = append(mc.calls, call{name: name, level: level, args: len(args), at: at})
	return &format.ItemVar{Level: level, Args: args}, nil
}

// labeled reads an ordered struct of labelled formats.
func (mc *moduleCompiler) labeled(v cue.Value) ([]format.Labeled, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []format.Labeled
	for iter.Next() {
		f, err := mc.format(iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, format.Labeled{Label: iter.Label(), Format: f})
	}
	return out, nil
}

func (mc *moduleCompiler) formatAt(v cue.Value, path string) (format.Format, error) {
	sub := v.LookupPath(cue.ParsePath(path))
	if !sub.Exists() {
		return nil, errorf(v, "%s is required", path)
	}
	return mc.format(sub)
}

// oneOf returns the single key of v drawn from keys.
func oneOf(v cue.Value, keys []string) (string, error) {
	if v.IncompleteKind() != cue.StructKind {
		return "", errorf(v, "expected a struct, got %v", v.IncompleteKind())
	}
	var found []string
	for _, k := range keys {
		if v.LookupPath(cue.MakePath(cue.Str(k))).Exists() {
			found = append(found, k)
		}
	}
	switch len(found) {
	case 0:
		return "", errorf(v, "expected one of %v", keys)
	case 1:
		return found[0], nil
	}
	return "", errorf(v, "ambiguous node: %v", found)
}

func listOf[T any](v cue.Value, each func(cue.Value) (T, error)) ([]T, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []T
	for iter.Next() {
		x, err := each(iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

func intIn(v cue.Value, lo, hi int64) (int64, error) {
	n, err := v.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	if n < lo || n > hi {
		return 0, errorf(v, "%d out of range [%d, %d]", n, lo, hi)
	}
	return n, nil
}

// byteSet reads "any", a byte, or a list of bytes and [lo, hi] ranges.
func byteSet(v cue.Value) (ir.ByteSet, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		if s, _ := v.String(); s == "any" {
			return ir.FullByteSet(), nil
		}
		return ir.ByteSet{}, errorf(v, `byte set must be "any", a byte or a list`)
	case cue.IntKind:
		b, err := intIn(v, 0, 255)
		if err != nil {
			return ir.ByteSet{}, err
		}
		return ir.ByteSetOf(byte(b)), nil
	case cue.ListKind:
		var set ir.ByteSet
		iter, err := v.List()
		if err != nil {
			return set, formatCUEError(err)
		}
		for iter.Next() {
			el := iter.Value()
			if el.IncompleteKind() == cue.ListKind {
				bounds, err := listOf(el, func(b cue.Value) (int64, error) { return intIn(b, 0, 255) })
				if err != nil {
					return set, err
				}
				if len(bounds) != 2 || bounds[0] > bounds[1] {
					return set, errorf(el, "byte range must be [lo, hi] with lo <= hi")
				}
				set = set.Union(ir.ByteRange(byte(bounds[0]), byte(bounds[1])))
				continue
			}
			b, err := intIn(el, 0, 255)
			if err != nil {
				return set, err
			}
			set = set.Insert(byte(b))
		}
		return set, nil
	}
	return ir.ByteSet{}, errorf(v, "invalid byte set of kind %v", v.IncompleteKind())
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func errorf(v cue.Value, msg string, args ...any) *CompileError {
	return &CompileError{Field: v.Path().String(), Message: fmt.Sprintf(msg, args...), Pos: v.Pos()}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
