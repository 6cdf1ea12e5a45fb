package ir

import (
	"fmt"
	"strings"
)

// ValueType is the abstract type of a decoded value.
// Sealed: only Base, TupleType, RecordType, UnionType, SeqType and
// FormatType implement it.
type ValueType interface {
	valueType()
	String() string
}

// Base is a scalar value type.
type Base uint8

const (
	// Any is the unresolved type; it unifies with everything.
	Any Base = iota
	// Empty is the type of a format that never produces a value.
	Empty
	Bool
	U8
	U16
	U32
	Char
)

func (Base) valueType() {}

func (b Base) String() string {
	switch b {
	case Any:
		return "any"
	case Empty:
		return "empty"
	case Bool:
		return "bool"
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	case Char:
		return "char"
	default:
		return fmt.Sprintf("base(%d)", uint8(b))
	}
}

// Field is a labelled component of a record or a union.
type Field struct {
	Label string
	Type  ValueType
}

// TupleType is a positional product.
type TupleType struct {
	Elems []ValueType
}

// Unit is the zero-element tuple.
var Unit ValueType = TupleType{}

// TupleOf builds a tuple type. Zero elements yield Unit, so every empty
// tuple compares equal with ==.
func TupleOf(elems []ValueType) ValueType {
	if len(elems) == 0 {
		return Unit
	}
	return TupleType{Elems: elems}
}

func (TupleType) valueType() {}

func (t TupleType) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// RecordType is a labelled product. Field order is significant.
type RecordType struct {
	Fields []Field
}

func (RecordType) valueType() {}

func (r RecordType) String() string {
	parts := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		parts[i] = f.Label + ": " + f.Type.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Lookup returns the type of the named field.
func (r RecordType) Lookup(label string) (ValueType, bool) {
	for _, f := range r.Fields {
		if f.Label == label {
			return f.Type, true
		}
	}
	return nil, false
}

// UnionType is a labelled sum. Variant order is first-seen order.
type UnionType struct {
	Variants []Field
}

func (UnionType) valueType() {}

func (u UnionType) String() string {
	parts := make([]string, len(u.Variants))
	for i, v := range u.Variants {
		parts[i] = v.Label + "(" + v.Type.String() + ")"
	}
	return "<" + strings.Join(parts, " | ") + ">"
}

// Lookup returns the payload type of the named variant.
func (u UnionType) Lookup(label string) (ValueType, bool) {
	for _, v := range u.Variants {
		if v.Label == label {
			return v.Type, true
		}
	}
	return nil, false
}

// SeqType is a homogeneous sequence.
type SeqType struct {
	Elem ValueType
}

func (SeqType) valueType() {}

func (s SeqType) String() string { return "[" + s.Elem.String() + "]" }

// FormatType is the type of a dynamically constructed format that yields
// values of type Value when applied.
type FormatType struct {
	Value ValueType
}

func (FormatType) valueType() {}

func (f FormatType) String() string { return "format(" + f.Value.String() + ")" }

// IsNumeric reports whether t is one of the unsigned integer types.
func IsNumeric(t ValueType) bool {
	b, ok := t.(Base)
	return ok && (b == U8 || b == U16 || b == U32)
}

// Equal reports deep structural equality, order-sensitive for records and
// unions.
func Equal(a, b ValueType) bool {
	switch a := a.(type) {
	case Base:
		b, ok := b.(Base)
		return ok && a == b
	case TupleType:
		b, ok := b.(TupleType)
		if !ok || len(a.Elems) != len(b.Elems) {
			return false
		}
		for i := range a.Elems {
			if !Equal(a.Elems[i], b.Elems[i]) {
				return false
			}
		}
		return true
	case RecordType:
		b, ok := b.(RecordType)
		return ok && fieldsEqual(a.Fields, b.Fields)
	case UnionType:
		b, ok := b.(UnionType)
		return ok && fieldsEqual(a.Variants, b.Variants)
	case SeqType:
		b, ok := b.(SeqType)
		return ok && Equal(a.Elem, b.Elem)
	case FormatType:
		b, ok := b.(FormatType)
		return ok && Equal(a.Value, b.Value)
	default:
		return false
	}
}

func fieldsEqual(a, b []Field) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Label != b[i].Label || !Equal(a[i].Type, b[i].Type) {
			return false
		}
	}
	return true
}

// Unify computes the least type compatible with both a and b.
//
// Any and Empty are both neutral: Any is an unknown awaiting resolution and
// Empty is the type of formats that never yield, so neither constrains the
// other side. Unions merge by label, keeping a's variants first.
func Unify(a, b ValueType) (ValueType, error) {
	if a == Any || a == Empty {
		if b == Any {
			return a, nil
		}
		return b, nil
	}
	if b == Any || b == Empty {
		return a, nil
	}
	switch ta := a.(type) {
	case Base:
		if tb, ok := b.(Base); ok && ta == tb {
			return a, nil
		}
	case TupleType:
		tb, ok := b.(TupleType)
		if !ok {
			break
		}
		if len(ta.Elems) != len(tb.Elems) {
			return nil, fmt.Errorf("tuples must have same length %s vs. %s", a, b)
		}
		elems := make([]ValueType, len(ta.Elems))
		for i := range ta.Elems {
			t, err := Unify(ta.Elems[i], tb.Elems[i])
			if err != nil {
				return nil, err
			}
			elems[i] = t
		}
		return TupleOf(elems), nil
	case RecordType:
		tb, ok := b.(RecordType)
		if !ok {
			break
		}
		if len(ta.Fields) != len(tb.Fields) {
			return nil, fmt.Errorf("records must have same number of fields %s vs. %s", a, b)
		}
		fields := make([]Field, len(ta.Fields))
		for i := range ta.Fields {
			if ta.Fields[i].Label != tb.Fields[i].Label {
				return nil, fmt.Errorf("record fields do not match: %s != %s", ta.Fields[i].Label, tb.Fields[i].Label)
			}
			t, err := Unify(ta.Fields[i].Type, tb.Fields[i].Type)
			if err != nil {
				return nil, err
			}
			fields[i] = Field{Label: ta.Fields[i].Label, Type: t}
		}
		return RecordType{Fields: fields}, nil
	case UnionType:
		tb, ok := b.(UnionType)
		if !ok {
			break
		}
		variants := make([]Field, 0, len(ta.Variants)+len(tb.Variants))
		variants = append(variants, ta.Variants...)
		for _, v := range tb.Variants {
			idx := -1
			for i := range variants {
				if variants[i].Label == v.Label {
					idx = i
					break
				}
			}
			if idx < 0 {
				variants = append(variants, v)
				continue
			}
			t, err := Unify(variants[idx].Type, v.Type)
			if err != nil {
				return nil, fmt.Errorf("variant %s: %w", v.Label, err)
			}
			variants[idx] = Field{Label: v.Label, Type: t}
		}
		return UnionType{Variants: variants}, nil
	case SeqType:
		tb, ok := b.(SeqType)
		if !ok {
			break
		}
		t, err := Unify(ta.Elem, tb.Elem)
		if err != nil {
			return nil, err
		}
		return SeqType{Elem: t}, nil
	case FormatType:
		tb, ok := b.(FormatType)
		if !ok {
			break
		}
		t, err := Unify(ta.Value, tb.Value)
		if err != nil {
			return nil, err
		}
		return FormatType{Value: t}, nil
	}
	return nil, fmt.Errorf("failed to unify types %s and %s", a, b)
}
