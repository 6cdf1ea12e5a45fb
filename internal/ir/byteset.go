package ir

import (
	"fmt"
	"math/bits"
	"strings"
)

// ByteSet is a set of byte values stored as a 256-bit mask.
// The zero value is the empty set.
type ByteSet [4]uint64

// FullByteSet returns the set of all 256 byte values.
func FullByteSet() ByteSet {
	return ByteSet{^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0)}
}

// ByteSetOf returns the set containing exactly the given bytes.
func ByteSetOf(bs ...byte) ByteSet {
	var s ByteSet
	for _, b := range bs {
		s = s.Insert(b)
	}
	return s
}

// ByteRange returns the inclusive range [lo, hi].
func ByteRange(lo, hi byte) ByteSet {
	var s ByteSet
	for b := int(lo); b <= int(hi); b++ {
		s = s.Insert(byte(b))
	}
	return s
}

// Contains reports membership of b.
func (s ByteSet) Contains(b byte) bool {
	return s[b>>6]&(1<<(b&63)) != 0
}

// Insert returns s with b added.
func (s ByteSet) Insert(b byte) ByteSet {
	s[b>>6] |= 1 << (b & 63)
	return s
}

// Union returns s ∪ o.
func (s ByteSet) Union(o ByteSet) ByteSet {
	return ByteSet{s[0] | o[0], s[1] | o[1], s[2] | o[2], s[3] | o[3]}
}

// Intersection returns s ∩ o.
func (s ByteSet) Intersection(o ByteSet) ByteSet {
	return ByteSet{s[0] & o[0], s[1] & o[1], s[2] & o[2], s[3] & o[3]}
}

// Difference returns s \ o.
func (s ByteSet) Difference(o ByteSet) ByteSet {
	return ByteSet{s[0] &^ o[0], s[1] &^ o[1], s[2] &^ o[2], s[3] &^ o[3]}
}

// Complement returns the bytes not in s.
func (s ByteSet) Complement() ByteSet {
	return ByteSet{^s[0], ^s[1], ^s[2], ^s[3]}
}

// Len returns the number of members.
func (s ByteSet) Len() int {
	return bits.OnesCount64(s[0]) + bits.OnesCount64(s[1]) +
		bits.OnesCount64(s[2]) + bits.OnesCount64(s[3])
}

func (s ByteSet) IsEmpty() bool { return s == ByteSet{} }

func (s ByteSet) IsFull() bool { return s == FullByteSet() }

// Min returns the smallest member. ok is false for the empty set.
func (s ByteSet) Min() (b byte, ok bool) {
	for i, w := range s {
		if w != 0 {
			return byte(i*64 + bits.TrailingZeros64(w)), true
		}
	}
	return 0, false
}

// Bytes lists members in ascending order.
func (s ByteSet) Bytes() []byte {
	out := make([]byte, 0, s.Len())
	for b := 0; b < 256; b++ {
		if s.Contains(byte(b)) {
			out = append(out, byte(b))
		}
	}
	return out
}

// String renders the set as a list of ranges, e.g. "[0x00, 0x30-0x39]".
func (s ByteSet) String() string {
	if s.IsFull() {
		return "[*]"
	}
	var parts []string
	for b := 0; b < 256; {
		if !s.Contains(byte(b)) {
			b++
			continue
		}
		lo := b
		for b < 256 && s.Contains(byte(b)) {
			b++
		}
		if b-1 == lo {
			parts = append(parts, fmt.Sprintf("0x%02x", lo))
		} else {
			parts = append(parts, fmt.Sprintf("0x%02x-0x%02x", lo, b-1))
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
