// Package codegen generates Go decoders from a compiled decoder program.
//
// Generation runs in stages. Inferred value types are lifted to Go types,
// sharing one declaration per distinct record or union shape. Every node
// of the program is then elaborated with its Go type, classified into one
// of seven CaseLogic shapes, and lowered to go/ast statements calling the
// rt runtime package.
package codegen

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/token"
	"log/slog"

	"github.com/roach88/bingen/internal/decoder"
	bfmt "github.com/roach88/bingen/internal/format"
	"github.com/roach88/bingen/internal/ir"
	"github.com/roach88/bingen/internal/typecheck"
)

// RuntimeImport is the import path of the runtime used by generated code.
const RuntimeImport = "github.com/roach88/bingen/rt"

// Func is one generated decoder function.
type Func struct {
	Index  int
	Name   string
	Entry  string
	Params []FuncParam
	Result GenType
	Logic  CaseLogic
}

// FuncParam is a parameter of a generated decoder.
type FuncParam struct {
	Name   string
	GoName string
	Type   GenType
}

// Program is a generated decoder set ready to render.
type Program struct {
	Typed *TypedProgram
	Decls []*DefType
	Funcs []*Func
}

// Options configures generation.
type Options struct {
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Generate compiles, type checks and elaborates the definition top of m.
func Generate(m *bfmt.Module, top string, opts Options) (*Program, error) {
	prog, err := decoder.Compile(m, top)
	if err != nil {
		return nil, err
	}
	return generate(prog, opts)
}

// GenerateFormat is Generate for an anonymous top format.
func GenerateFormat(m *bfmt.Module, f bfmt.Format, opts Options) (*Program, error) {
	prog, err := decoder.CompileFormat(m, f)
	if err != nil {
		return nil, err
	}
	return generate(prog, opts)
}

func generate(prog *decoder.Program, opts Options) (*Program, error) {
	table, err := typecheck.Infer(prog)
	if err != nil {
		return nil, err
	}
	out := Build(prog, table)
	opts.logger().Debug("generated decoders",
		"entries", len(out.Funcs),
		"declarations", len(out.Decls),
		"nodes", prog.IDs)
	return out, nil
}

// Build elaborates prog with the types in table and classifies every
// entry. It panics if table does not type exactly the nodes of prog.
func Build(prog *decoder.Program, table Reifier) *Program {
	lifter := NewLifter(NewNameGen())
	typed := Elaborate(prog, table, lifter)
	out := &Program{Typed: typed, Decls: lifter.Decls()}
	for i, e := range prog.Entries {
		fn := &Func{
			Index:  i,
			Name:   decoderName(i),
			Entry:  e.Name,
			Result: typed.Entries[i],
			Logic:  Classify(e.Decoder),
		}
		params := newLocals(nil)
		for j, prm := range e.Params {
			fn.Params = append(fn.Params, FuncParam{Name: prm.Name, GoName: params.declare(prm.Name), Type: typed.Params[i][j]})
		}
		out.Funcs = append(out.Funcs, fn)
	}
	return out
}

// FuncDecl lowers fn to a Go function declaration.
func (p *Program) FuncDecl(fn *Func) *ast.FuncDecl {
	lw := &lowerer{typed: p.Typed, scope: newLocals(nil)}
	params := &ast.FieldList{List: []*ast.Field{
		{Names: []*ast.Ident{ident("scope")}, Type: &ast.StarExpr{X: rtSel("Scope")}},
		{Names: []*ast.Ident{ident("p")}, Type: &ast.StarExpr{X: rtSel("Parser")}},
	}}
	for _, prm := range fn.Params {
		lw.scope.names[prm.Name] = prm.GoName
		params.List = append(params.List, &ast.Field{Names: []*ast.Ident{ident(prm.GoName)}, Type: typeExpr(prm.Type)})
	}
	return &ast.FuncDecl{
		Name: ident(fn.Name),
		Type: &ast.FuncType{Params: params, Results: resultsOf(typeExpr(fn.Result))},
		Body: blockOf(lw.lower(fn.Logic).body()...),
	}
}

// Render prints the program as a gofmt-formatted Go source file in package
// pkg.
func (p *Program) Render(pkg string) ([]byte, error) {
	fset := token.NewFileSet()
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// Code generated by bingen. DO NOT EDIT.\n\npackage %s\n\nimport rt %q\n", pkg, RuntimeImport)

	node := func(n any) error {
		buf.WriteString("\n")
		if err := format.Node(&buf, fset, n); err != nil {
			return err
		}
		buf.WriteString("\n")
		return nil
	}
	for _, def := range p.Decls {
		for _, d := range declNodes(def) {
			if err := node(d); err != nil {
				return nil, fmt.Errorf("render %s: %w", def.Name, err)
			}
		}
		for _, m := range markerMethods(def) {
			fmt.Fprintf(&buf, "\n%s\n", m)
		}
	}
	if len(p.Funcs) > 0 {
		top := p.Funcs[0]
		fmt.Fprintf(&buf, "\n// Decode parses data as %s.\nfunc Decode(data []byte) (%s, error) {\n\treturn %s(rt.NewScope(), rt.NewParser(data))\n}\n",
			top.Entry, TypeString(top.Result), top.Name)
	}
	for _, fn := range p.Funcs {
		fmt.Fprintf(&buf, "\n// %s decodes %s.", fn.Name, fn.Entry)
		if err := node(p.FuncDecl(fn)); err != nil {
			return nil, fmt.Errorf("render %s: %w", fn.Name, err)
		}
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format generated source: %w", err)
	}
	return src, nil
}

// Catalog describes the generated declarations and functions as an IR
// object, for stable golden comparison and caching.
func (p *Program) Catalog() ir.IRObject {
	decls := make(ir.IRArray, len(p.Decls))
	for i, def := range p.Decls {
		obj := ir.IRObject{"name": ir.IRString(def.Name), "kind": ir.IRString(def.Decl.Kind.String())}
		if def.Decl.Kind == StructDecl {
			fields := make(ir.IRArray, len(def.Decl.Fields))
			for j, f := range def.Decl.Fields {
				fields[j] = ir.IRObject{"label": ir.IRString(f.Label), "name": ir.IRString(f.GoName), "type": ir.IRString(TypeString(f.Type))}
			}
			obj["fields"] = fields
		} else {
			variants := make(ir.IRArray, len(def.Decl.Variants))
			for j, v := range def.Decl.Variants {
				payload := make([]string, len(v.Payload))
				for k, t := range v.Payload {
					payload[k] = TypeString(t)
				}
				variants[j] = ir.IRObject{"label": ir.IRString(v.Label), "name": ir.IRString(def.VariantType(v)), "payload": ir.StringArray(payload)}
			}
			obj["variants"] = variants
		}
		decls[i] = obj
	}
	funcs := make(ir.IRArray, len(p.Funcs))
	for i, fn := range p.Funcs {
		params := make(ir.IRArray, len(fn.Params))
		for j, prm := range fn.Params {
			params[j] = ir.IRObject{"name": ir.IRString(prm.GoName), "type": ir.IRString(TypeString(prm.Type))}
		}
		funcs[i] = ir.IRObject{
			"name":   ir.IRString(fn.Name),
			"entry":  ir.IRString(fn.Entry),
			"params": params,
			"result": ir.IRString(TypeString(fn.Result)),
			"shape":  ir.IRString(fn.Logic.Shape()),
		}
	}
	return ir.IRObject{"decls": decls, "funcs": funcs}
}

// CatalogJSON is the canonical JSON encoding of Catalog.
func (p *Program) CatalogJSON() ([]byte, error) {
	return ir.MarshalCanonical(p.Catalog())
}
