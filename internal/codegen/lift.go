package codegen

import (
	"fmt"
	"strconv"

	"github.com/roach88/bingen/internal/ir"
)

// Lifter maps inferred value types to generated types. Records and unions
// become declarations; structurally identical declarations are emitted
// once, under the name chosen when the shape was first seen.
type Lifter struct {
	names *NameGen
	decls []*DefType
	byKey map[string]*DefType
	memo  map[string]GenType
}

// NewLifter returns a lifter naming declarations with names.
func NewLifter(names *NameGen) *Lifter {
	return &Lifter{
		names: names,
		byKey: make(map[string]*DefType),
		memo:  make(map[string]GenType),
	}
}

// Decls returns the declarations lifted so far in first-seen order.
func (l *Lifter) Decls() []*DefType { return l.decls }

// Lift returns the generated type for vt.
func (l *Lifter) Lift(vt ir.ValueType) GenType {
	memoKey := vt.String()
	if t, ok := l.memo[memoKey]; ok {
		return t
	}
	t := l.lift(vt)
	l.memo[memoKey] = t
	return t
}

func (l *Lifter) lift(vt ir.ValueType) GenType {
	switch vt := vt.(type) {
	case ir.Base:
		if vt == ir.Any || vt == ir.Empty {
			return Unit
		}
		return &PrimType{Base: vt}
	case ir.TupleType:
		return &TupleType{Elems: l.liftPositional(vt.Elems)}
	case ir.SeqType:
		return &SeqType{Elem: l.Lift(vt.Elem)}
	case ir.FormatType:
		return &FormatType{Value: l.Lift(vt.Value)}
	case ir.RecordType:
		decl := &Declaration{Kind: StructDecl, Fields: make([]DeclField, len(vt.Fields))}
		for i, f := range vt.Fields {
			l.names.Push(f.Label)
			decl.Fields[i] = DeclField{Label: f.Label, Type: l.Lift(f.Type)}
			l.names.Pop()
		}
		return l.intern(decl)
	case ir.UnionType:
		decl := &Declaration{Kind: EnumDecl, Variants: make([]DeclVariant, len(vt.Variants))}
		for i, v := range vt.Variants {
			l.names.Push(v.Label)
			decl.Variants[i] = l.liftVariant(v)
			l.names.Pop()
		}
		return l.intern(decl)
	}
	panic(fmt.Sprintf("codegen: cannot lift %T", vt))
}

func (l *Lifter) liftVariant(v ir.Field) DeclVariant {
	dv := DeclVariant{Label: v.Label, Kind: TupleVariant}
	switch payload := v.Type.(type) {
	case ir.Base:
		if payload == ir.Empty || payload == ir.Any {
			dv.Kind = UnitVariant
			return dv
		}
	case ir.TupleType:
		switch len(payload.Elems) {
		case 0:
			dv.Kind = UnitVariant
		case 1:
			dv.Payload = []GenType{l.Lift(payload.Elems[0])}
		default:
			dv.Payload = l.liftPositional(payload.Elems)
		}
		return dv
	}
	dv.Payload = []GenType{l.Lift(v.Type)}
	return dv
}

// liftPositional lifts tuple elements, naming nested declarations by
// position when there is more than one.
func (l *Lifter) liftPositional(elems []ir.ValueType) []GenType {
	out := make([]GenType, len(elems))
	for i, e := range elems {
		if len(elems) > 1 {
			l.names.Push(strconv.Itoa(i))
		}
		out[i] = l.Lift(e)
		if len(elems) > 1 {
			l.names.Pop()
		}
	}
	return out
}

func (l *Lifter) intern(decl *Declaration) *DefType {
	key, err := ir.DeclHash(decl.shape())
	if err != nil {
		panic(fmt.Sprintf("codegen: hashing declaration: %v", err))
	}
	if def, ok := l.byKey[key]; ok {
		return def
	}
	taken := map[string]bool{}
	for i := range decl.Fields {
		decl.Fields[i].GoName = l.names.memberName(decl.Fields[i].Label, taken)
	}
	for i := range decl.Variants {
		decl.Variants[i].GoName = l.names.memberName(decl.Variants[i].Label, taken)
	}
	def := &DefType{Index: len(l.decls), Name: l.names.Fresh(), Decl: decl}
	l.decls = append(l.decls, def)
	l.byKey[key] = def
	return def
}
