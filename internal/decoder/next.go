package decoder

import "github.com/roach88/bingen/internal/format"

type nextKind uint8

const (
	nextEmpty nextKind = iota
	nextUnion
	nextCat
	nextTuple
	nextRecord
	nextRepeat
	nextRepeatCount
	nextSlice
	nextPeek
	nextPeekNot
)

// next describes what remains to be matched after the current position:
// the continuation of a format within its enclosing formats.
//
// Nodes are interned, so two structurally equal continuations are the same
// pointer and pointer equality can stand in for structural equality. The
// struct itself is the interning key; every field is comparable.
//
//   - nextUnion: either a or b.
//   - nextCat: f, then a.
//   - nextTuple, nextRecord: elements of f from position n onwards, then a.
//   - nextRepeat: zero or more of f, then a.
//   - nextRepeatCount: exactly n more of f, then a.
//   - nextSlice: a inside a window with n bytes left, then b.
//   - nextPeek, nextPeekNot: a, guarded by b matching (or not matching).
type next struct {
	kind nextKind
	f    format.Format
	n    int
	a, b *next
}

type interner struct {
	nodes map[next]*next
	empty *next
}

func newInterner() *interner {
	in := &interner{nodes: make(map[next]*next)}
	in.empty = in.intern(next{kind: nextEmpty})
	return in
}

func (in *interner) intern(n next) *next {
	if p, ok := in.nodes[n]; ok {
		return p
	}
	p := &n
	in.nodes[n] = p
	return p
}

func (in *interner) union(a, b *next) *next {
	return in.intern(next{kind: nextUnion, a: a, b: b})
}

func (in *interner) cat(f format.Format, rest *next) *next {
	return in.intern(next{kind: nextCat, f: f, a: rest})
}

func (in *interner) tuple(t *format.Tuple, from int, rest *next) *next {
	return in.intern(next{kind: nextTuple, f: t, n: from, a: rest})
}

func (in *interner) record(r *format.Record, from int, rest *next) *next {
	return in.intern(next{kind: nextRecord, f: r, n: from, a: rest})
}

func (in *interner) repeat(f format.Format, rest *next) *next {
	return in.intern(next{kind: nextRepeat, f: f, a: rest})
}

func (in *interner) repeatCount(n int, f format.Format, rest *next) *next {
	return in.intern(next{kind: nextRepeatCount, f: f, n: n, a: rest})
}

func (in *interner) slice(n int, inside, rest *next) *next {
	return in.intern(next{kind: nextSlice, n: n, a: inside, b: rest})
}

func (in *interner) peek(a, b *next) *next {
	return in.intern(next{kind: nextPeek, a: a, b: b})
}

func (in *interner) peekNot(a, b *next) *next {
	return in.intern(next{kind: nextPeekNot, a: a, b: b})
}
