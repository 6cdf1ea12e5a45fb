package codegen

import (
	"fmt"
	"go/ast"
	"go/token"
	"strconv"
)

func ident(name string) *ast.Ident { return ast.NewIdent(name) }

func sel(x ast.Expr, name string) *ast.SelectorExpr {
	return &ast.SelectorExpr{X: x, Sel: ident(name)}
}

func rtSel(name string) *ast.SelectorExpr { return sel(ident("rt"), name) }

func call(fn ast.Expr, args ...ast.Expr) *ast.CallExpr {
	return &ast.CallExpr{Fun: fn, Args: args}
}

func intLit(n int) *ast.BasicLit {
	return &ast.BasicLit{Kind: token.INT, Value: strconv.Itoa(n)}
}

func hexLit(b byte) *ast.BasicLit {
	return &ast.BasicLit{Kind: token.INT, Value: fmt.Sprintf("0x%02x", b)}
}

func stringLit(s string) *ast.BasicLit {
	return &ast.BasicLit{Kind: token.STRING, Value: strconv.Quote(s)}
}

func binary(x ast.Expr, op token.Token, y ast.Expr) *ast.BinaryExpr {
	return &ast.BinaryExpr{X: x, Op: op, Y: y}
}

func not(x ast.Expr) ast.Expr { return &ast.UnaryExpr{Op: token.NOT, X: x} }

func define(lhs []string, rhs ast.Expr) *ast.AssignStmt {
	l := make([]ast.Expr, len(lhs))
	for i, name := range lhs {
		l[i] = ident(name)
	}
	return &ast.AssignStmt{Lhs: l, Tok: token.DEFINE, Rhs: []ast.Expr{rhs}}
}

func assign(lhs []ast.Expr, rhs ...ast.Expr) *ast.AssignStmt {
	return &ast.AssignStmt{Lhs: lhs, Tok: token.ASSIGN, Rhs: rhs}
}

func varDecl(name string, typ, value ast.Expr) *ast.DeclStmt {
	spec := &ast.ValueSpec{Names: []*ast.Ident{ident(name)}, Type: typ}
	if value != nil {
		spec.Values = []ast.Expr{value}
	}
	return &ast.DeclStmt{Decl: &ast.GenDecl{Tok: token.VAR, Specs: []ast.Spec{spec}}}
}

func blank(x ast.Expr) *ast.AssignStmt { return assign([]ast.Expr{ident("_")}, x) }

func returns(results ...ast.Expr) *ast.ReturnStmt { return &ast.ReturnStmt{Results: results} }

func exprStmt(x ast.Expr) *ast.ExprStmt { return &ast.ExprStmt{X: x} }

func blockOf(stmts ...ast.Stmt) *ast.BlockStmt { return &ast.BlockStmt{List: stmts} }

func ifStmt(init ast.Stmt, cond ast.Expr, body ...ast.Stmt) *ast.IfStmt {
	return &ast.IfStmt{Init: init, Cond: cond, Body: blockOf(body...)}
}

// fail returns from the enclosing decoder with err.
func fail(err ast.Expr) *ast.ReturnStmt { return returns(ident("ret"), err) }

// checkErr propagates a non-nil err.
func checkErr() *ast.IfStmt {
	return ifStmt(nil, binary(ident("err"), token.NEQ, ident("nil")), fail(ident("err")))
}

// tryRuntime runs a runtime call returning only an error.
func tryRuntime(c ast.Expr) *ast.IfStmt {
	return ifStmt(define([]string{"err"}, c), binary(ident("err"), token.NEQ, ident("nil")), fail(ident("err")))
}

func rtErr(name string, args ...ast.Expr) *ast.CallExpr {
	return call(rtSel(name), append([]ast.Expr{ident("p")}, args...)...)
}

// resultsOf declares the named results (ret T, err error).
func resultsOf(t ast.Expr) *ast.FieldList {
	return &ast.FieldList{List: []*ast.Field{
		{Names: []*ast.Ident{ident("ret")}, Type: t},
		{Names: []*ast.Ident{ident("err")}, Type: ident("error")},
	}}
}

// closure builds func() (ret T, err error) { body }.
func closure(t ast.Expr, body []ast.Stmt) *ast.FuncLit {
	return &ast.FuncLit{
		Type: &ast.FuncType{Params: &ast.FieldList{}, Results: resultsOf(t)},
		Body: blockOf(body...),
	}
}

func unitValue() ast.Expr {
	return &ast.CompositeLit{Type: &ast.StructType{Fields: &ast.FieldList{}}}
}

func isIdent(x ast.Expr) bool {
	_, ok := x.(*ast.Ident)
	return ok
}

func fieldName(i int) string { return "F" + strconv.Itoa(i) }
