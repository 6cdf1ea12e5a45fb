package format

import (
	"fmt"

	"github.com/roach88/bingen/internal/expr"
	"github.com/roach88/bingen/internal/ir"
)

// Param is a typed parameter of a format definition.
type Param struct {
	Name string
	Type ir.ValueType
}

// Definition is one named format in a Module.
type Definition struct {
	Name   string
	Params []Param
	Format Format
}

// Module is an ordered collection of format definitions. A definition is
// addressed by its level, the position at which it was defined.
type Module struct {
	defs   []Definition
	byName map[string]int
}

// NewModule returns an empty module.
func NewModule() *Module {
	return &Module{byName: make(map[string]int)}
}

// Ref is a handle on a parameterised definition.
type Ref struct {
	Level int
}

// Call references the definition with the given arguments.
func (r Ref) Call(args ...expr.Expr) *ItemVar {
	return &ItemVar{Level: r.Level, Args: args}
}

// Define adds a parameterless definition and returns a reference to it.
func (m *Module) Define(name string, f Format) *ItemVar {
	return m.DefineArgs(name, nil, f).Call()
}

// DefineArgs adds a definition taking params and returns a handle on it.
// Redefining a name panics: module construction is programmer-authored.
func (m *Module) DefineArgs(name string, params []Param, f Format) Ref {
	if _, dup := m.byName[name]; dup {
		panic(fmt.Sprintf("format %q defined twice", name))
	}
	level := len(m.defs)
	m.defs = append(m.defs, Definition{Name: name, Params: params, Format: f})
	m.byName[name] = level
	return Ref{Level: level}
}

// Len returns the number of definitions.
func (m *Module) Len() int { return len(m.defs) }

// Get returns the definition at level.
func (m *Module) Get(level int) Definition { return m.defs[level] }

// Name returns the name of the definition at level.
func (m *Module) Name(level int) string { return m.defs[level].Name }

// Lookup finds a definition by name.
func (m *Module) Lookup(name string) (int, bool) {
	level, ok := m.byName[name]
	return level, ok
}

// Definitions returns the definitions in level order.
func (m *Module) Definitions() []Definition {
	out := make([]Definition, len(m.defs))
	copy(out, m.defs)
	return out
}
