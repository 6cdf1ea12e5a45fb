package rt

import "fmt"

// ByteSet is a 256-bit membership set over byte values.
type ByteSet [4]uint64

// Contains reports whether b is in the set.
func (s ByteSet) Contains(b byte) bool {
	return s[b>>6]&(1<<(b&63)) != 0
}

// Format is a format constructed at parse time.
type Format[T any] interface {
	Parse(p *Parser) (T, error)
}

// FormatFunc adapts a function to Format.
type FormatFunc[T any] func(p *Parser) (T, error)

// Parse calls f(p).
func (f FormatFunc[T]) Parse(p *Parser) (T, error) { return f(p) }

// Scope holds the dynamic formats bound during a parse.
type Scope struct {
	parent *Scope
	name   string
	format any
}

// NewScope returns an empty scope.
func NewScope() *Scope { return nil }

// Bind returns a scope extending s with name bound to f.
func (s *Scope) Bind(name string, f any) *Scope {
	return &Scope{parent: s, name: name, format: f}
}

func (s *Scope) lookup(name string) (any, bool) {
	for ; s != nil; s = s.parent {
		if s.name == name {
			return s.format, true
		}
	}
	return nil, false
}

// Apply parses with the format bound to name.
func Apply[T any](s *Scope, name string, p *Parser) (T, error) {
	var zero T
	f, ok := s.lookup(name)
	if !ok {
		return zero, internalError(p, "format %q is not bound", name)
	}
	tf, ok := f.(Format[T])
	if !ok {
		return zero, internalError(p, "format %q has type %T", name, f)
	}
	return tf.Parse(p)
}

func U16Be(b0, b1 uint8) uint16 { return uint16(b0)<<8 | uint16(b1) }

func U16Le(b0, b1 uint8) uint16 { return uint16(b1)<<8 | uint16(b0) }

func U32Be(b0, b1, b2, b3 uint8) uint32 {
	return uint32(b0)<<24 | uint32(b1)<<16 | uint32(b2)<<8 | uint32(b3)
}

func U32Le(b0, b1, b2, b3 uint8) uint32 {
	return uint32(b3)<<24 | uint32(b2)<<16 | uint32(b1)<<8 | uint32(b0)
}

// SubSeq returns length elements of s starting at start. Out-of-range
// bounds panic, as slicing does.
func SubSeq[T any](s []T, start, length int) []T {
	if start < 0 || length < 0 || start+length > len(s) {
		panic(fmt.Sprintf("rt.SubSeq: [%d:%d] out of range for length %d", start, start+length, len(s)))
	}
	return s[start : start+length : start+length]
}

// FlatMap concatenates f(x) for every x in s.
func FlatMap[T, U any](s []T, f func(T) []U) []U {
	var out []U
	for _, x := range s {
		out = append(out, f(x)...)
	}
	return out
}

// Dup returns n copies of v.
func Dup[T any](n int, v T) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = v
	}
	return out
}
