package codegen

import (
	"fmt"
	"strings"

	"github.com/roach88/bingen/internal/ir"
)

// GenType is the type of a value in generated code: either a reference to
// an emitted declaration or an inline shape.
type GenType interface {
	isGenType()
	// key is a structural identity; two GenTypes are the same type iff
	// their keys are equal.
	key() string
}

// PrimType is a scalar: bool, uint8, uint16, uint32 or rune.
type PrimType struct {
	Base ir.Base
}

// TupleType is an anonymous struct with fields F0..Fn. With no elements it
// is the unit type struct{}.
type TupleType struct {
	Elems []GenType
}

// SeqType is a slice.
type SeqType struct {
	Elem GenType
}

// FormatType is a dynamically constructed format, rt.Format[Value].
type FormatType struct {
	Value GenType
}

// DefType refers to an emitted declaration. Identity is the pointer: the
// lifter hands out one DefType per distinct declaration.
type DefType struct {
	Index int
	Name  string
	Decl  *Declaration
}

func (*PrimType) isGenType()   {}
func (*TupleType) isGenType()  {}
func (*SeqType) isGenType()    {}
func (*FormatType) isGenType() {}
func (*DefType) isGenType()    {}

func (t *PrimType) key() string { return t.Base.String() }

func (t *TupleType) key() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.key()
	}
	return "(" + strings.Join(parts, ",") + ")"
}

func (t *SeqType) key() string    { return "[" + t.Elem.key() + "]" }
func (t *FormatType) key() string { return "format(" + t.Value.key() + ")" }
func (t *DefType) key() string    { return fmt.Sprintf("def%d", t.Index) }

// Unit is the empty tuple.
var Unit GenType = &TupleType{}

// SameType reports whether a and b denote the same generated type.
func SameType(a, b GenType) bool { return a.key() == b.key() }

// DeclKind distinguishes struct from enum declarations.
type DeclKind int

const (
	StructDecl DeclKind = iota
	EnumDecl
)

func (k DeclKind) String() string {
	if k == EnumDecl {
		return "enum"
	}
	return "struct"
}

// DeclField is one field of a struct declaration.
type DeclField struct {
	Label  string
	GoName string
	Type   GenType
}

// VariantKind is the payload shape of an enum variant.
type VariantKind int

const (
	UnitVariant VariantKind = iota
	TupleVariant
)

// DeclVariant is one variant of an enum declaration. Tuple payloads are
// stored as fields F0..Fn of the variant's struct.
type DeclVariant struct {
	Label   string
	GoName  string
	Kind    VariantKind
	Payload []GenType
}

// Declaration is a named type emitted into generated code.
type Declaration struct {
	Kind     DeclKind
	Fields   []DeclField
	Variants []DeclVariant
}

// Field returns the struct field labelled label.
func (d *Declaration) Field(label string) (DeclField, bool) {
	for _, f := range d.Fields {
		if f.Label == label {
			return f, true
		}
	}
	return DeclField{}, false
}

// Variant returns the enum variant labelled label.
func (d *Declaration) Variant(label string) (DeclVariant, bool) {
	for _, v := range d.Variants {
		if v.Label == label {
			return v, true
		}
	}
	return DeclVariant{}, false
}

// VariantType returns the Go name of the struct implementing variant v of
// enum t.
func (t *DefType) VariantType(v DeclVariant) string {
	return t.Name + "_" + v.GoName
}

// IsEnum reports whether t is an emitted enum declaration.
func IsEnum(t GenType) bool {
	d, ok := t.(*DefType)
	return ok && d.Decl.Kind == EnumDecl
}

// shape is the structural identity of a declaration: labels and member
// types, independent of the names chosen for it.
func (d *Declaration) shape() ir.IRValue {
	obj := ir.IRObject{"kind": ir.IRString(d.Kind.String())}
	if d.Kind == StructDecl {
		fields := make(ir.IRArray, len(d.Fields))
		for i, f := range d.Fields {
			fields[i] = ir.IRObject{"label": ir.IRString(f.Label), "type": ir.IRString(f.Type.key())}
		}
		obj["fields"] = fields
		return obj
	}
	variants := make(ir.IRArray, len(d.Variants))
	for i, v := range d.Variants {
		payload := make([]string, len(v.Payload))
		for j, t := range v.Payload {
			payload[j] = t.key()
		}
		variants[i] = ir.IRObject{
			"label":   ir.IRString(v.Label),
			"unit":    ir.IRBool(v.Kind == UnitVariant),
			"payload": ir.StringArray(payload),
		}
	}
	obj["variants"] = variants
	return obj
}
