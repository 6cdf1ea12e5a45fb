package codegen

import (
	"fmt"
	"go/ast"
	"go/token"

	"github.com/roach88/bingen/internal/decoder"
	"github.com/roach88/bingen/internal/expr"
	"github.com/roach88/bingen/internal/ir"
)

// block is lowered code: statements followed by a result expression. A
// nil tail means the statements always return.
type block struct {
	stmts []ast.Stmt
	tail  ast.Expr
}

func diverge(stmts ...ast.Stmt) block { return block{stmts: stmts} }

// body returns the statements of a closure yielding the block's value.
func (b block) body() []ast.Stmt {
	out := append([]ast.Stmt{}, b.stmts...)
	if b.tail != nil {
		out = append(out, returns(b.tail, ident("nil")))
	}
	return out
}

// lowerer lowers the CaseLogic of one decoder function. Temporaries are
// named _<kind><n>; user names never start with an underscore.
type lowerer struct {
	typed *TypedProgram
	scope *locals
	tmp   int
}

func (lw *lowerer) fresh(kind string) string {
	lw.tmp++
	return fmt.Sprintf("_%s%d", kind, lw.tmp)
}

func (lw *lowerer) typeOf(n identified) GenType { return lw.typed.TypeOf(n) }

func (lw *lowerer) enumOf(n identified) *DefType {
	def, ok := lw.typeOf(n).(*DefType)
	if !ok || def.Decl.Kind != EnumDecl {
		panic(fmt.Sprintf("codegen: node %d is not an enum", n.NodeID()))
	}
	return def
}

// bindValue declares name = value. Enum values are declared with their
// interface type so later type assertions on the name are legal.
func bindValue(name string, t GenType, value ast.Expr) ast.Stmt {
	if IsEnum(t) {
		return varDecl(name, typeExpr(t), value)
	}
	return define([]string{name}, value)
}

// bindLocal binds the identifier of a user-visible name and marks it used.
func bindLocal(local string, t GenType, value ast.Expr) []ast.Stmt {
	return []ast.Stmt{bindValue(local, t, value), blank(ident(local))}
}

// bindTemp names value unless it already is a name.
func (lw *lowerer) bindTemp(t GenType, value ast.Expr) (ast.Expr, []ast.Stmt) {
	if isIdent(value) {
		return value, nil
	}
	name := lw.fresh("t")
	return ident(name), []ast.Stmt{bindValue(name, t, value)}
}

// callResult binds the value of a fallible call to a fresh name.
func (lw *lowerer) callResult(c ast.Expr) ([]ast.Stmt, ast.Expr) {
	t := lw.fresh("t")
	return []ast.Stmt{define([]string{t, "err"}, c), checkErr()}, ident(t)
}

func (lw *lowerer) lower(cl CaseLogic) block {
	switch cl := cl.(type) {
	case *SimpleLogic:
		return lw.simple(cl.Node)
	case *DerivedLogic:
		return lw.derived(cl)
	case *SequentialLogic:
		return lw.sequential(cl)
	case *ParallelLogic:
		return lw.parallel(cl)
	case *RepeatLogic:
		return lw.repeat(cl)
	case *EngineLogic:
		return lw.engine(cl)
	case *OtherLogic:
		if cl.Kind == Descend {
			return lw.descend(cl)
		}
		return lw.exprMatch(cl)
	}
	panic(fmt.Sprintf("codegen: cannot lower %T", cl))
}

func parserCall(method string, args ...ast.Expr) *ast.CallExpr {
	return call(sel(ident("p"), method), args...)
}

func (lw *lowerer) simple(d decoder.Decoder) block {
	switch d := d.(type) {
	case *decoder.Fail:
		return diverge(fail(rtErr("Fail")))
	case *decoder.EndOfInput:
		return block{stmts: []ast.Stmt{tryRuntime(parserCall("Finish"))}, tail: unitValue()}
	case *decoder.Align:
		return block{stmts: []ast.Stmt{tryRuntime(parserCall("SkipAlign", intLit(d.N)))}, tail: unitValue()}
	case *decoder.Byte:
		if d.Set.IsEmpty() {
			return diverge(fail(rtErr("Fail")))
		}
		b := lw.fresh("b")
		stmts := []ast.Stmt{define([]string{b, "err"}, parserCall("ReadByte")), checkErr()}
		if crit := NewByteCriterion(d.Set); !crit.AlwaysTrue() {
			stmts = append(stmts, ifStmt(nil, rejectCond(crit, ident(b)), fail(rtErr("Fail"))))
		}
		return block{stmts: stmts, tail: ident(b)}
	case *decoder.Call:
		args := []ast.Expr{ident("scope"), ident("p")}
		for _, a := range d.Args {
			args = append(args, lw.expr(a.Value))
		}
		stmts, v := lw.callResult(call(ident(decoderName(d.Index)), args...))
		return block{stmts: stmts, tail: v}
	case *decoder.Compute:
		return block{tail: lw.expr(d.Expr)}
	case *decoder.Apply:
		fn := &ast.IndexExpr{X: rtSel("Apply"), Index: typeExpr(lw.typeOf(d))}
		stmts, v := lw.callResult(call(fn, ident("scope"), stringLit(d.Name), ident("p")))
		return block{stmts: stmts, tail: v}
	}
	panic(fmt.Sprintf("codegen: %T is not a simple decoder", d))
}

func byteSetLit(bs ir.ByteSet) ast.Expr {
	lit := &ast.CompositeLit{Type: rtSel("ByteSet")}
	for _, w := range bs {
		lit.Elts = append(lit.Elts, &ast.BasicLit{Kind: token.INT, Value: fmt.Sprintf("0x%016x", w)})
	}
	return &ast.ParenExpr{X: lit}
}

func acceptCond(c ByteCriterion, b ast.Expr) ast.Expr {
	switch c.Kind {
	case CritAny:
		return ident("true")
	case CritMustBe:
		return binary(b, token.EQL, hexLit(c.Byte))
	case CritOtherThan:
		return binary(b, token.NEQ, hexLit(c.Byte))
	default:
		return call(sel(byteSetLit(c.Set), "Contains"), b)
	}
}

func rejectCond(c ByteCriterion, b ast.Expr) ast.Expr {
	switch c.Kind {
	case CritMustBe:
		return binary(b, token.NEQ, hexLit(c.Byte))
	case CritOtherThan:
		return binary(b, token.EQL, hexLit(c.Byte))
	default:
		return not(acceptCond(c, b))
	}
}

func (lw *lowerer) derived(cl *DerivedLogic) block {
	switch d := cl.Node.(type) {
	case *decoder.Variant:
		inner := lw.lower(cl.Inner)
		if inner.tail == nil {
			return inner
		}
		def := lw.enumOf(d)
		innerType := lw.typeOf(d.Inner)
		stmts := inner.stmts
		value, ok := variantValue(def, d.Label, inner.tail, innerType)
		if !ok {
			name, bind := lw.bindTemp(innerType, inner.tail)
			stmts = append(stmts, bind...)
			value, _ = variantValue(def, d.Label, name, innerType)
		}
		if v, _ := def.Decl.Variant(d.Label); v.Kind == UnitVariant {
			stmts = append(stmts, blank(inner.tail))
		}
		return block{stmts: stmts, tail: value}

	case *decoder.Map:
		inner := lw.lower(cl.Inner)
		if inner.tail == nil {
			return inner
		}
		return block{stmts: inner.stmts, tail: call(lw.lambda(d.Fn), inner.tail)}

	case *decoder.Let:
		value := lw.expr(d.Value)
		leave := lw.enter()
		scoped := bindLocal(lw.scope.declare(d.Name), lw.typeOf(d.Value), value)
		inner := lw.lower(cl.Inner)
		leave()
		scoped = append(scoped, inner.stmts...)
		if inner.tail == nil {
			return diverge(blockOf(scoped...))
		}
		t := lw.fresh("t")
		scoped = append(scoped, assign([]ast.Expr{ident(t)}, inner.tail))
		return block{
			stmts: []ast.Stmt{varDecl(t, typeExpr(lw.typeOf(d)), nil), blockOf(scoped...)},
			tail:  ident(t),
		}

	case *decoder.Dynamic:
		return diverge(fail(rtErr("NotImplemented", stringLit("huffman"))))
	}
	panic(fmt.Sprintf("codegen: %T is not a derived decoder", cl.Node))
}

func (lw *lowerer) sequential(cl *SequentialLogic) block {
	if rec, ok := cl.Node.(*decoder.Record); ok {
		return lw.record(rec, cl)
	}
	tt, ok := lw.typeOf(cl.Node).(*TupleType)
	if !ok {
		panic(fmt.Sprintf("codegen: tuple node %d has type %s", cl.Node.NodeID(), TypeString(lw.typeOf(cl.Node))))
	}
	var stmts []ast.Stmt
	var vals []ast.Expr
	for i, el := range cl.Elems {
		b := lw.lower(el)
		if b.tail == nil {
			// Values decoded so far are dead once an element always fails.
			for _, v := range vals {
				stmts = append(stmts, blank(v))
			}
			return diverge(append(stmts, b.stmts...)...)
		}
		stmts = append(stmts, b.stmts...)
		v, bind := lw.bindTemp(tt.Elems[i], b.tail)
		stmts = append(stmts, bind...)
		vals = append(vals, v)
	}
	if len(vals) == 0 {
		return block{stmts: stmts, tail: unitValue()}
	}
	return block{stmts: stmts, tail: tupleLit(tt, vals)}
}

// record decodes fields in a nested scope where each field is bound to its
// label for the fields after it.
func (lw *lowerer) record(d *decoder.Record, cl *SequentialLogic) block {
	def, ok := lw.typeOf(d).(*DefType)
	if !ok || def.Decl.Kind != StructDecl {
		panic(fmt.Sprintf("codegen: record node %d is not a struct", d.NodeID()))
	}
	defer lw.enter()()
	var scoped []ast.Stmt
	lit := &ast.CompositeLit{Type: ident(def.Name)}
	for i, el := range cl.Elems {
		b := lw.lower(el)
		scoped = append(scoped, b.stmts...)
		if b.tail == nil {
			return diverge(blockOf(scoped...))
		}
		f := def.Decl.Fields[i]
		local := lw.scope.declare(cl.Labels[i])
		scoped = append(scoped, bindLocal(local, f.Type, b.tail)...)
		lit.Elts = append(lit.Elts, &ast.KeyValueExpr{Key: ident(f.GoName), Value: ident(local)})
	}
	t := lw.fresh("t")
	scoped = append(scoped, assign([]ast.Expr{ident(t)}, lit))
	return block{
		stmts: []ast.Stmt{varDecl(t, ident(def.Name), nil), blockOf(scoped...)},
		tail:  ident(t),
	}
}

// parallel tries each alternative in a closure, rewinding the parser
// between attempts. The last alternative's failure is the result.
func (lw *lowerer) parallel(cl *ParallelLogic) block {
	switch len(cl.Alts) {
	case 0:
		return diverge(fail(rtErr("Fail")))
	case 1:
		return lw.lower(cl.Alts[0])
	}
	t := typeExpr(lw.typeOf(cl.Node))
	body := []ast.Stmt{exprStmt(parserCall("StartAlt"))}
	last := len(cl.Alts) - 1
	for k, alt := range cl.Alts {
		attempt := call(closure(t, lw.lower(alt).body()))
		if k == last {
			body = append(body, returns(attempt))
			break
		}
		v := lw.fresh("v")
		body = append(body,
			ifStmt(define([]string{v, "err"}, attempt), binary(ident("err"), token.EQL, ident("nil")),
				returns(ident(v), parserCall("EndAlt"))),
			tryRuntime(parserCall("NextAlt", ident(fmt.Sprint(k == last-1)))),
		)
	}
	stmts, v := lw.callResult(call(closure(t, body)))
	return block{stmts: stmts, tail: v}
}

func (lw *lowerer) repeat(cl *RepeatLogic) block {
	seqType := lw.typeOf(cl.Node)
	st, ok := seqType.(*SeqType)
	if !ok {
		panic(fmt.Sprintf("codegen: repetition node %d has type %s", cl.Node.NodeID(), TypeString(seqType)))
	}
	acc := lw.fresh("acc")
	stmts := []ast.Stmt{varDecl(acc, typeExpr(seqType), nil)}
	brk := &ast.BranchStmt{Tok: token.BREAK}

	// Lookahead is evaluated before the element is decoded.
	var head []ast.Stmt
	if cl.Dispatch != nil {
		ix := lw.fresh("ix")
		head = []ast.Stmt{define([]string{ix, "err"}, lw.dispatchCall(cl.Dispatch)), checkErr()}
		if cl.Policy == ContinueWhileMatching {
			head = append(head, ifStmt(nil, binary(ident(ix), token.NEQ, intLit(0)), brk))
		} else {
			empty := binary(call(ident("len"), ident(acc)), token.EQL, intLit(0))
			head = append(head, ifStmt(nil, binary(ident(ix), token.EQL, intLit(0)),
				ifStmt(nil, empty, fail(rtErr("InsufficientRepeats"))),
				brk))
		}
	}

	elt := lw.lower(cl.Inner)
	body := append(head, elt.stmts...)
	var last ast.Expr
	if elt.tail != nil {
		var bind []ast.Stmt
		last, bind = lw.bindTemp(st.Elem, elt.tail)
		body = append(body, bind...)
		body = append(body, assign([]ast.Expr{ident(acc)}, call(ident("append"), ident(acc), last)))
	}

	var loop ast.Stmt
	switch cl.Policy {
	case ContinueWhileMatching:
		loop = &ast.ForStmt{Cond: binary(parserCall("Remaining"), token.GTR, intLit(0)), Body: blockOf(body...)}
	case BreakOnMatch:
		loop = &ast.ForStmt{Body: blockOf(body...)}
	case ExactCount:
		count := lw.expr(cl.Node.(*decoder.RepeatCount).Count)
		loop = &ast.RangeStmt{Tok: token.ILLEGAL, X: call(ident("int"), count), Body: blockOf(body...)}
	case ConditionTerminal, ConditionComplete:
		if last != nil {
			pred, arg := cl.predicate(), last
			if cl.Policy == ConditionComplete {
				arg = ident(acc)
			}
			stop := lw.fresh("stop")
			body = append(body,
				define([]string{stop}, call(lw.lambda(pred), arg)),
				ifStmt(nil, ident(stop), brk))
		}
		loop = &ast.ForStmt{Body: blockOf(body...)}
	}
	return block{stmts: append(stmts, loop), tail: ident(acc)}
}

func (lw *lowerer) engine(cl *EngineLogic) block {
	t := typeExpr(lw.typeOf(cl.Node))
	inner := func() *ast.FuncLit { return closure(t, lw.lower(cl.Inner).body()) }
	switch cl.Kind {
	case EngineSlice:
		length := lw.expr(cl.Node.(*decoder.Slice).Length)
		body := []ast.Stmt{
			tryRuntime(parserCall("StartSlice", call(ident("int"), length))),
			assign([]ast.Expr{ident("ret"), ident("err")}, call(inner())),
			checkErr(),
			returns(ident("ret"), parserCall("EndSlice")),
		}
		stmts, v := lw.callResult(call(closure(t, body)))
		return block{stmts: stmts, tail: v}
	case EnginePeek:
		stmts, v := lw.callResult(call(peekWrap(t, inner())))
		return block{stmts: stmts, tail: v}
	default:
		return diverge(fail(rtErr("NotImplemented", stringLit(cl.Kind.String()))))
	}
}

// peekWrap runs inner with the parser position saved, restoring it
// whether or not inner succeeds.
func peekWrap(t ast.Expr, inner *ast.FuncLit) *ast.FuncLit {
	return closure(t, []ast.Stmt{
		exprStmt(parserCall("OpenPeek")),
		assign([]ast.Expr{ident("ret"), ident("err")}, call(inner)),
		ifStmt(define([]string{"cerr"}, parserCall("ClosePeek")), binary(ident("err"), token.EQL, ident("nil")),
			assign([]ast.Expr{ident("err")}, ident("cerr"))),
		returns(ident("ret"), ident("err")),
	})
}

// dispatchCall evaluates a dispatch under a peek, yielding the selected
// alternative.
func (lw *lowerer) dispatchCall(d Dispatch) ast.Expr {
	return call(peekWrap(ident("int"), closure(ident("int"), lw.dispatch(d))))
}

func (lw *lowerer) dispatch(d Dispatch) []ast.Stmt {
	switch d := d.(type) {
	case *Leaf:
		return []ast.Stmt{returns(intLit(d.Index), ident("nil"))}
	case *Excluded:
		return []ast.Stmt{fail(rtErr("ExcludedBranch"))}
	case *Probe:
		if len(d.Arms) == 0 {
			return lw.dispatch(d.Fallback)
		}
		atEnd := binary(ident("err"), token.NEQ, ident("nil"))
		if len(d.Arms) == 1 && d.Arms[0].Criterion.AlwaysTrue() {
			read := ifStmt(define([]string{"_", "err"}, parserCall("ReadByte")), atEnd, lw.dispatch(d.OnEnd)...)
			return append([]ast.Stmt{read}, lw.dispatch(d.Arms[0].Then)...)
		}
		b := lw.fresh("b")
		stmts := []ast.Stmt{
			define([]string{b, "err"}, parserCall("ReadByte")),
			ifStmt(nil, atEnd, lw.dispatch(d.OnEnd)...),
		}
		if len(d.Arms) == 1 {
			arm := d.Arms[0]
			stmts = append(stmts, ifStmt(nil, acceptCond(arm.Criterion, ident(b)), lw.dispatch(arm.Then)...))
			return append(stmts, lw.dispatch(d.Fallback)...)
		}
		sw := &ast.SwitchStmt{Body: &ast.BlockStmt{}}
		exhaustive := false
		for _, arm := range d.Arms {
			clause := &ast.CaseClause{Body: lw.dispatch(arm.Then)}
			if arm.Criterion.AlwaysTrue() {
				exhaustive = true
			} else {
				clause.List = []ast.Expr{acceptCond(arm.Criterion, ident(b))}
			}
			sw.Body.List = append(sw.Body.List, clause)
		}
		stmts = append(stmts, sw)
		if !exhaustive {
			stmts = append(stmts, lw.dispatch(d.Fallback)...)
		}
		return stmts
	}
	panic(fmt.Sprintf("codegen: unknown dispatch %T", d))
}

func (lw *lowerer) descend(cl *OtherLogic) block {
	ix := lw.fresh("ix")
	stmts := []ast.Stmt{define([]string{ix, "err"}, lw.dispatchCall(cl.Dispatch)), checkErr()}
	sw := &ast.SwitchStmt{Tag: ident(ix), Body: &ast.BlockStmt{}}
	for i, arm := range cl.Arms {
		sw.Body.List = append(sw.Body.List, &ast.CaseClause{List: []ast.Expr{intLit(i)}, Body: lw.lower(arm).body()})
	}
	sw.Body.List = append(sw.Body.List, &ast.CaseClause{Body: []ast.Stmt{fail(rtErr("ExcludedBranch"))}})
	more, v := lw.callResult(call(closure(typeExpr(lw.typeOf(cl.Node)), []ast.Stmt{sw})))
	return block{stmts: append(stmts, more...), tail: v}
}

func (lw *lowerer) exprMatch(cl *OtherLogic) block {
	d := cl.Node.(*decoder.Match)
	headType := lw.typeOf(d.Head)
	m := lw.fresh("m")
	body := []ast.Stmt{varDecl(m, typeExpr(headType), lw.expr(d.Head)), blank(ident(m))}
	for i, c := range d.Cases {
		leave := lw.enter()
		lw.declarePattern(c.Pattern)
		arm := lw.lower(cl.Arms[i]).body()
		body = append(body, blockOf(lw.matchPattern(c.Pattern, ident(m), headType, arm)...))
		leave()
	}
	if len(d.Cases) == 0 || !irrefutable(d.Cases[len(d.Cases)-1].Pattern) {
		body = append(body, noMatch())
	}
	stmts, v := lw.callResult(call(closure(typeExpr(lw.typeOf(d)), body)))
	return block{stmts: stmts, tail: v}
}

// irrefutable reports whether p matches every value of its type, so the
// arm lowered for it always returns.
func irrefutable(p expr.Pattern) bool {
	switch p := p.(type) {
	case *expr.BindPattern, *expr.WildcardPattern:
		return true
	case *expr.TuplePattern:
		for _, el := range p.Elems {
			if !irrefutable(el) {
				return false
			}
		}
		return true
	}
	return false
}

func noMatch() ast.Stmt {
	return exprStmt(call(ident("panic"), stringLit("bingen: no case matched")))
}
