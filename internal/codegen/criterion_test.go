package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/bingen/internal/ir"
)

func TestNewByteCriterion(t *testing.T) {
	tests := []struct {
		name string
		set  ir.ByteSet
		kind CriterionKind
		b    byte
		str  string
	}{
		{"full", ir.FullByteSet(), CritAny, 0, "any"},
		{"single", ir.ByteSetOf(0x41), CritMustBe, 0x41, "== 0x41"},
		{"single zero", ir.ByteSetOf(0x00), CritMustBe, 0x00, "== 0x00"},
		{"all but one", ir.ByteSetOf(0x0a).Complement(), CritOtherThan, 0x0a, "!= 0x0a"},
		{"all but last", ir.ByteSetOf(0xff).Complement(), CritOtherThan, 0xff, "!= 0xff"},
		{"range", ir.ByteRange('0', '9'), CritWithinSet, 0, ""},
		{"pair", ir.ByteSetOf(1, 200), CritWithinSet, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewByteCriterion(tt.set)
			assert.Equal(t, tt.kind, c.Kind)
			assert.Equal(t, tt.kind == CritAny, c.AlwaysTrue())
			if tt.kind == CritMustBe || tt.kind == CritOtherThan {
				assert.Equal(t, tt.b, c.Byte)
			}
			if tt.str != "" {
				assert.Equal(t, tt.str, c.String())
			}
			for b := 0; b < 256; b++ {
				assert.Equal(t, tt.set.Contains(byte(b)), c.Accepts(byte(b)), "byte %#x", b)
			}
		})
	}
}

func TestNewByteCriterion_EmptyPanics(t *testing.T) {
	assert.Panics(t, func() { NewByteCriterion(ir.ByteSet{}) })
}
