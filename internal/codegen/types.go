package codegen

import (
	"fmt"
	"go/ast"
	"go/token"
	"strings"

	"github.com/roach88/bingen/internal/ir"
)

func primName(b ir.Base) string {
	switch b {
	case ir.Bool:
		return "bool"
	case ir.U8:
		return "uint8"
	case ir.U16:
		return "uint16"
	case ir.U32:
		return "uint32"
	case ir.Char:
		return "rune"
	}
	panic(fmt.Sprintf("codegen: no Go type for %s", b))
}

// typeExpr renders t as a Go type expression.
func typeExpr(t GenType) ast.Expr {
	switch t := t.(type) {
	case *PrimType:
		return ident(primName(t.Base))
	case *TupleType:
		fields := &ast.FieldList{}
		for i, e := range t.Elems {
			fields.List = append(fields.List, &ast.Field{Names: []*ast.Ident{ident(fieldName(i))}, Type: typeExpr(e)})
		}
		return &ast.StructType{Fields: fields}
	case *SeqType:
		return &ast.ArrayType{Elt: typeExpr(t.Elem)}
	case *FormatType:
		return &ast.IndexExpr{X: rtSel("Format"), Index: typeExpr(t.Value)}
	case *DefType:
		return ident(t.Name)
	}
	panic(fmt.Sprintf("codegen: unknown type %T", t))
}

// TypeString renders t in Go syntax on one line.
func TypeString(t GenType) string {
	switch t := t.(type) {
	case *PrimType:
		return primName(t.Base)
	case *TupleType:
		if len(t.Elems) == 0 {
			return "struct{}"
		}
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = fieldName(i) + " " + TypeString(e)
		}
		return "struct{ " + strings.Join(parts, "; ") + " }"
	case *SeqType:
		return "[]" + TypeString(t.Elem)
	case *FormatType:
		return "rt.Format[" + TypeString(t.Value) + "]"
	case *DefType:
		return t.Name
	}
	panic(fmt.Sprintf("codegen: unknown type %T", t))
}

// tupleLit builds a value of tuple type t from its element values.
func tupleLit(t GenType, elems []ast.Expr) ast.Expr {
	lit := &ast.CompositeLit{Type: typeExpr(t)}
	for i, e := range elems {
		lit.Elts = append(lit.Elts, &ast.KeyValueExpr{Key: ident(fieldName(i)), Value: e})
	}
	return lit
}

// tupleElems returns the element values of a tuple-typed expression,
// reusing the operands of a literal.
func tupleElems(x ast.Expr, n int) ([]ast.Expr, bool) {
	if lit, ok := x.(*ast.CompositeLit); ok && len(lit.Elts) == n {
		out := make([]ast.Expr, n)
		for i, el := range lit.Elts {
			kv, ok := el.(*ast.KeyValueExpr)
			if !ok {
				return nil, false
			}
			out[i] = kv.Value
		}
		return out, true
	}
	if isIdent(x) {
		out := make([]ast.Expr, n)
		for i := range out {
			out[i] = sel(x, fieldName(i))
		}
		return out, true
	}
	return nil, false
}

func markerName(def *DefType) string { return "is" + def.Name }

// declNodes renders the Go declarations for def: a struct type, or an
// interface plus one struct and marker method per variant.
func declNodes(def *DefType) []ast.Decl {
	typeDecl := func(name string, t ast.Expr) ast.Decl {
		return &ast.GenDecl{Tok: token.TYPE, Specs: []ast.Spec{&ast.TypeSpec{Name: ident(name), Type: t}}}
	}
	d := def.Decl
	if d.Kind == StructDecl {
		fields := &ast.FieldList{}
		for _, f := range d.Fields {
			fields.List = append(fields.List, &ast.Field{Names: []*ast.Ident{ident(f.GoName)}, Type: typeExpr(f.Type)})
		}
		return []ast.Decl{typeDecl(def.Name, &ast.StructType{Fields: fields})}
	}

	marker := markerName(def)
	iface := &ast.InterfaceType{Methods: &ast.FieldList{List: []*ast.Field{{
		Names: []*ast.Ident{ident(marker)},
		Type:  &ast.FuncType{Params: &ast.FieldList{}},
	}}}}
	decls := []ast.Decl{typeDecl(def.Name, iface)}
	for _, v := range d.Variants {
		name := def.VariantType(v)
		fields := &ast.FieldList{}
		for i, t := range v.Payload {
			fields.List = append(fields.List, &ast.Field{Names: []*ast.Ident{ident(fieldName(i))}, Type: typeExpr(t)})
		}
		decls = append(decls, typeDecl(name, &ast.StructType{Fields: fields}))
	}
	return decls
}

// markerMethods returns the one-line marker method of every variant of an
// enum. They are written as text: the printer splits a position-less empty
// body over two lines.
func markerMethods(def *DefType) []string {
	if def.Decl.Kind != EnumDecl {
		return nil
	}
	out := make([]string, len(def.Decl.Variants))
	for i, v := range def.Decl.Variants {
		out[i] = fmt.Sprintf("func (%s) %s() {}", def.VariantType(v), markerName(def))
	}
	return out
}

// variantValue builds the value of variant label of enum def whose payload
// is value, of type valueType. ok is false when value must first be bound
// to a name.
func variantValue(def *DefType, label string, value ast.Expr, valueType GenType) (ast.Expr, bool) {
	v, found := def.Decl.Variant(label)
	if !found {
		panic(fmt.Sprintf("codegen: %s has no variant %q", def.Name, label))
	}
	lit := &ast.CompositeLit{Type: ident(def.VariantType(v))}
	switch {
	case v.Kind == UnitVariant:
	case len(v.Payload) == 1:
		if tt, ok := valueType.(*TupleType); ok && len(tt.Elems) == 1 {
			elems, ok := tupleElems(value, 1)
			if !ok {
				return nil, false
			}
			value = elems[0]
		}
		lit.Elts = []ast.Expr{&ast.KeyValueExpr{Key: ident("F0"), Value: value}}
	default:
		elems, ok := tupleElems(value, len(v.Payload))
		if !ok {
			return nil, false
		}
		for i, e := range elems {
			lit.Elts = append(lit.Elts, &ast.KeyValueExpr{Key: ident(fieldName(i)), Value: e})
		}
	}
	return lit, true
}
