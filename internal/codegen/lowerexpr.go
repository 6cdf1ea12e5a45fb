package codegen

import (
	"fmt"
	"go/ast"
	"go/token"
	"strconv"

	"github.com/roach88/bingen/internal/expr"
)

var binaryTokens = map[expr.Op]token.Token{
	expr.OpBitAnd: token.AND,
	expr.OpBitOr:  token.OR,
	expr.OpEq:     token.EQL,
	expr.OpNe:     token.NEQ,
	expr.OpLt:     token.LSS,
	expr.OpGt:     token.GTR,
	expr.OpLte:    token.LEQ,
	expr.OpGte:    token.GEQ,
	expr.OpMul:    token.MUL,
	expr.OpDiv:    token.QUO,
	expr.OpRem:    token.REM,
	expr.OpShl:    token.SHL,
	expr.OpShr:    token.SHR,
	expr.OpAdd:    token.ADD,
	expr.OpSub:    token.SUB,
}

var packFuncs = map[expr.PackKind]string{
	expr.PackU16Be: "U16Be",
	expr.PackU16Le: "U16Le",
	expr.PackU32Be: "U32Be",
	expr.PackU32Le: "U32Le",
}

func typedLit(typ string, v uint64) ast.Expr {
	return call(ident(typ), &ast.BasicLit{Kind: token.INT, Value: strconv.FormatUint(v, 10)})
}

// expr lowers a pure expression to a single Go expression.
func (lw *lowerer) expr(e expr.Expr) ast.Expr {
	switch e := e.(type) {
	case *expr.Var:
		return ident(lw.local(e.Name))
	case *expr.Bool:
		return ident(strconv.FormatBool(e.Value))
	case *expr.U8:
		return typedLit("uint8", uint64(e.Value))
	case *expr.U16:
		return typedLit("uint16", uint64(e.Value))
	case *expr.U32:
		return typedLit("uint32", uint64(e.Value))

	case *expr.Tuple:
		if len(e.Elems) == 0 {
			return unitValue()
		}
		return tupleLit(lw.typeOf(e), lw.exprs(e.Elems))
	case *expr.TupleProj:
		return sel(lw.expr(e.Head), fieldName(e.Index))

	case *expr.Record:
		def := lw.typeOf(e).(*DefType)
		lit := &ast.CompositeLit{Type: ident(def.Name)}
		for i, f := range e.Fields {
			lit.Elts = append(lit.Elts, &ast.KeyValueExpr{Key: ident(def.Decl.Fields[i].GoName), Value: lw.expr(f.Value)})
		}
		return lit
	case *expr.RecordProj:
		def, ok := lw.typeOf(e.Head).(*DefType)
		if !ok {
			panic(fmt.Sprintf("codegen: projection of %q from a non-record", e.Label))
		}
		f, ok := def.Decl.Field(e.Label)
		if !ok {
			panic(fmt.Sprintf("codegen: %s has no field %q", def.Name, e.Label))
		}
		return sel(lw.expr(e.Head), f.GoName)

	case *expr.Variant:
		def := lw.enumOf(e)
		valueType := lw.typeOf(e.Value)
		value := lw.expr(e.Value)
		if lit, ok := variantValue(def, e.Label, value, valueType); ok {
			return lit
		}
		// The payload is unpacked from a tuple computed once.
		param := lw.fresh("t")
		lit, _ := variantValue(def, e.Label, ident(param), valueType)
		fn := funcLit([]*ast.Field{{Names: []*ast.Ident{ident(param)}, Type: typeExpr(valueType)}}, ident(def.Name), returns(lit))
		return call(fn, value)

	case *expr.Seq:
		return &ast.CompositeLit{Type: typeExpr(lw.typeOf(e)), Elts: lw.exprs(e.Elems)}

	case *expr.Match:
		headType := lw.typeOf(e.Head)
		m := lw.fresh("m")
		body := []ast.Stmt{varDecl(m, typeExpr(headType), lw.expr(e.Head)), blank(ident(m))}
		for _, c := range e.Cases {
			leave := lw.enter()
			lw.declarePattern(c.Pattern)
			arm := []ast.Stmt{returns(lw.expr(c.Body))}
			body = append(body, blockOf(lw.matchPattern(c.Pattern, ident(m), headType, arm)...))
			leave()
		}
		if len(e.Cases) == 0 || !irrefutable(e.Cases[len(e.Cases)-1].Pattern) {
			body = append(body, noMatch())
		}
		return call(funcLit(nil, typeExpr(lw.typeOf(e)), body...))

	case *expr.Binary:
		tok, ok := binaryTokens[e.Op]
		if !ok {
			panic(fmt.Sprintf("codegen: unknown operator %s", e.Op))
		}
		return &ast.ParenExpr{X: binary(lw.expr(e.Lhs), tok, lw.expr(e.Rhs))}
	case *expr.Cast:
		return call(ident(primName(e.To)), lw.expr(e.Value))
	case *expr.Pack:
		return lw.pack(e)
	case *expr.SeqLength:
		return call(ident("uint32"), call(ident("len"), lw.expr(e.Seq)))
	case *expr.SubSeq:
		return call(rtSel("SubSeq"), lw.expr(e.Seq), call(ident("int"), lw.expr(e.Start)), call(ident("int"), lw.expr(e.Length)))
	case *expr.FlatMap:
		return call(rtSel("FlatMap"), lw.expr(e.Seq), lw.lambda(e.Fn))
	case *expr.Dup:
		st := lw.typeOf(e).(*SeqType)
		dup := &ast.IndexExpr{X: rtSel("Dup"), Index: typeExpr(st.Elem)}
		return call(dup, call(ident("int"), lw.expr(e.Count)), lw.expr(e.Value))
	case *expr.Lambda:
		panic("codegen: lambda used as a value")
	}
	panic(fmt.Sprintf("codegen: unknown expression %T", e))
}

func (lw *lowerer) exprs(es []expr.Expr) []ast.Expr {
	out := make([]ast.Expr, len(es))
	for i, e := range es {
		out[i] = lw.expr(e)
	}
	return out
}

func (lw *lowerer) pack(e *expr.Pack) ast.Expr {
	fn := rtSel(packFuncs[e.Kind])
	bytes := lw.expr(e.Bytes)
	if elems, ok := tupleElems(bytes, e.Kind.Width()); ok {
		return call(fn, elems...)
	}
	param := lw.fresh("t")
	elems, _ := tupleElems(ident(param), e.Kind.Width())
	lit := funcLit([]*ast.Field{{Names: []*ast.Ident{ident(param)}, Type: typeExpr(lw.typeOf(e.Bytes))}},
		typeExpr(lw.typeOf(e)), returns(call(fn, elems...)))
	return call(lit, bytes)
}

func funcLit(params []*ast.Field, result ast.Expr, body ...ast.Stmt) *ast.FuncLit {
	return &ast.FuncLit{
		Type: &ast.FuncType{
			Params:  &ast.FieldList{List: params},
			Results: &ast.FieldList{List: []*ast.Field{{Type: result}}},
		},
		Body: blockOf(body...),
	}
}

// lambda renders l as a function literal. The lambda's own node carries
// its parameter type.
func (lw *lowerer) lambda(l *expr.Lambda) *ast.FuncLit {
	defer lw.enter()()
	param := &ast.Field{Names: []*ast.Ident{ident(lw.scope.declare(l.Param))}, Type: typeExpr(lw.typeOf(l))}
	return funcLit([]*ast.Field{param}, typeExpr(lw.typeOf(l.Body)), returns(lw.expr(l.Body)))
}

// matchPattern returns statements running body when subject, of type t,
// matches p. Bindings are scoped to body; when p does not match the
// statements fall through.
func (lw *lowerer) matchPattern(p expr.Pattern, subject ast.Expr, t GenType, body []ast.Stmt) []ast.Stmt {
	guard := func(cond ast.Expr) []ast.Stmt { return []ast.Stmt{ifStmt(nil, cond, body...)} }
	switch p := p.(type) {
	case *expr.WildcardPattern:
		return body
	case *expr.BindPattern:
		return append(bindLocal(lw.local(p.Name), t, subject), body...)
	case *expr.BoolPattern:
		if p.Value {
			return guard(subject)
		}
		return guard(not(subject))
	case *expr.U8Pattern:
		return guard(binary(subject, token.EQL, intLit(int(p.Value))))
	case *expr.U16Pattern:
		return guard(binary(subject, token.EQL, intLit(int(p.Value))))
	case *expr.U32Pattern:
		return guard(binary(subject, token.EQL, &ast.BasicLit{Kind: token.INT, Value: strconv.FormatUint(uint64(p.Value), 10)}))
	case *expr.CharPattern:
		return guard(binary(subject, token.EQL, &ast.BasicLit{Kind: token.CHAR, Value: strconv.QuoteRune(p.Value)}))
	case *expr.TuplePattern:
		tt := t.(*TupleType)
		subjects := make([]ast.Expr, len(p.Elems))
		for i := range p.Elems {
			subjects[i] = sel(subject, fieldName(i))
		}
		return lw.matchAll(p.Elems, subjects, tt.Elems, body)
	case *expr.SeqPattern:
		st := t.(*SeqType)
		subjects := make([]ast.Expr, len(p.Elems))
		types := make([]GenType, len(p.Elems))
		for i := range p.Elems {
			subjects[i] = &ast.IndexExpr{X: subject, Index: intLit(i)}
			types[i] = st.Elem
		}
		inner := lw.matchAll(p.Elems, subjects, types, body)
		return []ast.Stmt{ifStmt(nil, binary(call(ident("len"), subject), token.EQL, intLit(len(p.Elems))), inner...)}
	case *expr.VariantPattern:
		return lw.matchVariant(p, subject, t, body)
	}
	panic(fmt.Sprintf("codegen: unknown pattern %T", p))
}

// matchAll matches each pattern against its subject, nesting left to
// right.
func (lw *lowerer) matchAll(ps []expr.Pattern, subjects []ast.Expr, types []GenType, body []ast.Stmt) []ast.Stmt {
	for i := len(ps) - 1; i >= 0; i-- {
		body = lw.matchPattern(ps[i], subjects[i], types[i], body)
	}
	return body
}

func (lw *lowerer) matchVariant(p *expr.VariantPattern, subject ast.Expr, t GenType, body []ast.Stmt) []ast.Stmt {
	def, ok := t.(*DefType)
	if !ok || def.Decl.Kind != EnumDecl {
		panic(fmt.Sprintf("codegen: variant pattern %q against %s", p.Label, TypeString(t)))
	}
	v, found := def.Decl.Variant(p.Label)
	if !found {
		panic(fmt.Sprintf("codegen: %s has no variant %q", def.Name, p.Label))
	}
	bound, okName := lw.fresh("v"), lw.fresh("ok")
	payloadType := lw.typeOf(p.Inner)

	var inner []ast.Stmt
	fields := make([]ast.Expr, len(v.Payload))
	for i := range v.Payload {
		fields[i] = sel(ident(bound), fieldName(i))
	}
	tp, isTuplePattern := p.Inner.(*expr.TuplePattern)
	switch {
	case v.Kind == UnitVariant:
		inner = lw.matchPattern(p.Inner, unitValue(), payloadType, body)
	case isTuplePattern && len(tp.Elems) == len(v.Payload):
		// The payload fields are the tuple's elements.
		inner = lw.matchAll(tp.Elems, fields, v.Payload, body)
	case len(v.Payload) == 1 && !isTuple1(payloadType):
		inner = lw.matchPattern(p.Inner, fields[0], payloadType, body)
	default:
		inner = lw.matchPattern(p.Inner, tupleLit(payloadType, fields), payloadType, body)
	}
	inner = append([]ast.Stmt{blank(ident(bound))}, inner...)
	assert := &ast.TypeAssertExpr{X: subject, Type: ident(def.VariantType(v))}
	return []ast.Stmt{ifStmt(define([]string{bound, okName}, assert), ident(okName), inner...)}
}

func isTuple1(t GenType) bool {
	tt, ok := t.(*TupleType)
	return ok && len(tt.Elems) == 1
}
