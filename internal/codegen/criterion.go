package codegen

import (
	"fmt"

	"github.com/roach88/bingen/internal/ir"
)

// CriterionKind is the simplified form of a byte set test.
type CriterionKind int

const (
	// CritAny accepts every byte.
	CritAny CriterionKind = iota
	// CritMustBe accepts exactly Byte.
	CritMustBe
	// CritOtherThan accepts every byte except Byte.
	CritOtherThan
	// CritWithinSet accepts the bytes of Set.
	CritWithinSet
)

// ByteCriterion is the cheapest test equivalent to membership in a byte
// set.
type ByteCriterion struct {
	Kind CriterionKind
	Byte byte
	Set  ir.ByteSet
}

// NewByteCriterion simplifies membership in bs. The empty set has no
// criterion and panics.
func NewByteCriterion(bs ir.ByteSet) ByteCriterion {
	switch n := bs.Len(); {
	case n == 256:
		return ByteCriterion{Kind: CritAny}
	case n == 1:
		b, _ := bs.Min()
		return ByteCriterion{Kind: CritMustBe, Byte: b}
	case n == 255:
		b, _ := bs.Complement().Min()
		return ByteCriterion{Kind: CritOtherThan, Byte: b}
	case n > 0:
		return ByteCriterion{Kind: CritWithinSet, Set: bs}
	}
	panic("codegen: empty byte set has no criterion")
}

// AlwaysTrue reports whether the criterion accepts every byte.
func (c ByteCriterion) AlwaysTrue() bool { return c.Kind == CritAny }

// Accepts evaluates the criterion on b.
func (c ByteCriterion) Accepts(b byte) bool {
	switch c.Kind {
	case CritAny:
		return true
	case CritMustBe:
		return b == c.Byte
	case CritOtherThan:
		return b != c.Byte
	default:
		return c.Set.Contains(b)
	}
}

func (c ByteCriterion) String() string {
	switch c.Kind {
	case CritAny:
		return "any"
	case CritMustBe:
		return fmt.Sprintf("== 0x%02x", c.Byte)
	case CritOtherThan:
		return fmt.Sprintf("!= 0x%02x", c.Byte)
	default:
		return "in " + c.Set.String()
	}
}
