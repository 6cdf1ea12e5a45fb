package format

import (
	"fmt"

	"github.com/roach88/bingen/internal/expr"
)

// Bounds is a conservative range on the number of bytes a format consumes,
// or on the value of an expression. Max is meaningful only when Bounded.
type Bounds struct {
	Min     int
	Max     int
	Bounded bool
}

// Exact returns the bounds [n, n].
func Exact(n int) Bounds { return Bounds{Min: n, Max: n, Bounded: true} }

// AtLeast returns the unbounded range starting at n.
func AtLeast(n int) Bounds { return Bounds{Min: n} }

// Upto returns [lo, hi].
func Upto(lo, hi int) Bounds { return Bounds{Min: lo, Max: hi, Bounded: true} }

// IsExact returns n when the bounds are [n, n].
func (b Bounds) IsExact() (int, bool) {
	if b.Bounded && b.Max == b.Min {
		return b.Min, true
	}
	return 0, false
}

// Contains reports whether n lies within the bounds.
func (b Bounds) Contains(n int) bool {
	return n >= b.Min && (!b.Bounded || n <= b.Max)
}

// Union returns the smallest bounds covering both b and o.
func (b Bounds) Union(o Bounds) Bounds {
	r := Bounds{Min: min(b.Min, o.Min)}
	if b.Bounded && o.Bounded {
		r.Max, r.Bounded = max(b.Max, o.Max), true
	}
	return r
}

// Add returns the bounds of the sum.
func (b Bounds) Add(o Bounds) Bounds {
	r := Bounds{Min: b.Min + o.Min}
	if b.Bounded && o.Bounded {
		r.Max, r.Bounded = b.Max+o.Max, true
	}
	return r
}

// Mul returns the bounds of the product.
func (b Bounds) Mul(o Bounds) Bounds {
	r := Bounds{Min: b.Min * o.Min}
	if b.Bounded && o.Bounded {
		r.Max, r.Bounded = b.Max*o.Max, true
	}
	return r
}

// BitsToBytes converts a bit count range into whole bytes.
func (b Bounds) BitsToBytes() Bounds {
	r := Bounds{Min: (b.Min + 7) / 8, Bounded: b.Bounded}
	if b.Bounded {
		r.Max = (b.Max + 7) / 8
	}
	return r
}

func (b Bounds) String() string {
	if !b.Bounded {
		return fmt.Sprintf("[%d, inf)", b.Min)
	}
	return fmt.Sprintf("[%d, %d]", b.Min, b.Max)
}

// ExprBounds bounds the value of e. Only numeric literals and their sums and
// products are tracked.
func ExprBounds(e expr.Expr) Bounds {
	switch e := e.(type) {
	case *expr.U8:
		return Exact(int(e.Value))
	case *expr.U16:
		return Exact(int(e.Value))
	case *expr.U32:
		return Exact(int(e.Value))
	case *expr.Binary:
		switch e.Op {
		case expr.OpAdd:
			return ExprBounds(e.Lhs).Add(ExprBounds(e.Rhs))
		case expr.OpMul:
			return ExprBounds(e.Lhs).Mul(ExprBounds(e.Rhs))
		}
	}
	return AtLeast(0)
}

// MatchBounds bounds the number of bytes f consumes. Definitions are
// resolved through m; a recursive reference is treated as unbounded.
func (m *Module) MatchBounds(f Format) Bounds {
	return m.matchBounds(f, map[int]bool{})
}

func (m *Module) matchBounds(f Format, active map[int]bool) Bounds {
	unionOf := func(fs []Format) Bounds {
		if len(fs) == 0 {
			return Exact(0)
		}
		b := m.matchBounds(fs[0], active)
		for _, g := range fs[1:] {
			b = b.Union(m.matchBounds(g, active))
		}
		return b
	}
	switch f := f.(type) {
	case *ItemVar:
		if active[f.Level] {
			return AtLeast(0)
		}
		active[f.Level] = true
		defer delete(active, f.Level)
		return m.matchBounds(m.defs[f.Level].Format, active)
	case *Fail, *EndOfInput, *Peek, *PeekNot, *WithRelativeOffset, *Compute:
		return Exact(0)
	case *Align:
		return Upto(0, f.N-1)
	case *Byte:
		return Exact(1)
	case *Variant:
		return m.matchBounds(f.Inner, active)
	case *Union:
		return unionOf(f.Branches)
	case *UnionNondet:
		return unionOf(f.Branches)
	case *Tuple:
		b := Exact(0)
		for _, e := range f.Elems {
			b = b.Add(m.matchBounds(e, active))
		}
		return b
	case *Record:
		b := Exact(0)
		for _, fd := range f.Fields {
			b = b.Add(m.matchBounds(fd.Format, active))
		}
		return b
	case *Repeat, *RepeatUntilSeq:
		return AtLeast(0)
	case *Repeat1:
		return m.matchBounds(f.Inner, active).Mul(AtLeast(1))
	case *RepeatUntilLast:
		return m.matchBounds(f.Inner, active).Mul(AtLeast(1))
	case *RepeatCount:
		return m.matchBounds(f.Inner, active).Mul(ExprBounds(f.Count))
	case *Slice:
		return ExprBounds(f.Length)
	case *Bits:
		return m.matchBounds(f.Inner, active).BitsToBytes()
	case *Map:
		return m.matchBounds(f.Inner, active)
	case *Let:
		return m.matchBounds(f.Inner, active)
	case *Dynamic:
		return m.matchBounds(f.Inner, active)
	case *Match:
		fs := make([]Format, len(f.Cases))
		for i, c := range f.Cases {
			fs[i] = c.Format
		}
		return unionOf(fs)
	case *Apply:
		return AtLeast(1)
	default:
		panic(fmt.Sprintf("format.MatchBounds: unknown format %T", f))
	}
}

// IsNullable reports whether f could match the empty byte string.
func (m *Module) IsNullable(f Format) bool {
	return m.MatchBounds(f).Min == 0
}
