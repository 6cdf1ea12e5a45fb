// Package typecheck infers the value type of every node of a decoder
// program and exposes the result as a TypeTable indexed by node identity.
//
// Inference runs in two phases. Synthesis computes each node's type bottom
// up and iterates over the program's entries until the entry types reach a
// fixpoint. Settling then walks each entry top down, pushing the type a
// parent expects into its children, so that every variant of a union is
// typed with the whole union rather than with its own single-variant
// fragment. Calls widen their target entry's type when the caller expects
// more; settling repeats until no entry widens.
package typecheck

import (
	"fmt"

	"github.com/roach88/bingen/internal/decoder"
	"github.com/roach88/bingen/internal/ir"
)

// maxRounds caps both fixpoint iterations.
const maxRounds = 64

// TypeError reports an ill-typed program. It describes the input, unlike an
// elaboration desync, which is a defect of the compiler itself.
type TypeError struct {
	Entry   string // decoder entry being checked
	Node    ir.NodeID
	Message string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: node %d: %s", e.Entry, e.Node, e.Message)
}

// TypeTable maps node identities to settled value types.
type TypeTable struct {
	types   map[ir.NodeID]ir.ValueType
	entries []ir.ValueType
}

// Reify returns the type of the node with the given identity.
func (t *TypeTable) Reify(id ir.NodeID) (ir.ValueType, bool) {
	vt, ok := t.types[id]
	return vt, ok
}

// Len returns the number of typed nodes.
func (t *TypeTable) Len() int { return len(t.types) }

// EntryType returns the result type of program entry i.
func (t *TypeTable) EntryType(i int) ir.ValueType { return t.entries[i] }

// env is a linked scope of typed names.
type env struct {
	name   string
	t      ir.ValueType
	parent *env
}

func (e *env) bind(name string, t ir.ValueType) *env {
	return &env{name: name, t: t, parent: e}
}

func (e *env) lookup(name string) (ir.ValueType, bool) {
	for s := e; s != nil; s = s.parent {
		if s.name == name {
			return s.t, true
		}
	}
	return nil, false
}

type checker struct {
	program *decoder.Program
	entries []ir.ValueType
	table   map[ir.NodeID]ir.ValueType
	entry   string
	widened bool
}

// Infer types every node of p.
func Infer(p *decoder.Program) (*TypeTable, error) {
	c := &checker{program: p, entries: make([]ir.ValueType, len(p.Entries))}
	for i := range c.entries {
		c.entries[i] = ir.Empty
	}

	if err := c.synthesizeEntries(); err != nil {
		return nil, err
	}

	for round := 0; ; round++ {
		if round == maxRounds {
			return nil, fmt.Errorf("type settling did not converge after %d rounds", maxRounds)
		}
		c.table = make(map[ir.NodeID]ir.ValueType, p.IDs)
		c.widened = false
		for i, e := range p.Entries {
			c.entry = e.Name
			if err := c.check(e.Decoder, c.entries[i], c.paramEnv(i)); err != nil {
				return nil, err
			}
		}
		if !c.widened {
			break
		}
	}
	return &TypeTable{types: c.table, entries: c.entries}, nil
}

func (c *checker) paramEnv(i int) *env {
	var scope *env
	for _, prm := range c.program.Entries[i].Params {
		scope = scope.bind(prm.Name, prm.Type)
	}
	return scope
}

func (c *checker) synthesizeEntries() error {
	for round := 0; ; round++ {
		if round == maxRounds {
			return fmt.Errorf("type synthesis did not converge after %d rounds", maxRounds)
		}
		changed := false
		for i := len(c.program.Entries) - 1; i >= 0; i-- {
			e := c.program.Entries[i]
			c.entry = e.Name
			t, err := c.synth(e.Decoder, c.paramEnv(i))
			if err != nil {
				return err
			}
			u, err := ir.Unify(c.entries[i], t)
			if err != nil {
				return c.errorf(e.Decoder, "%v", err)
			}
			if !ir.Equal(u, c.entries[i]) {
				c.entries[i] = u
				changed = true
			}
		}
		if !changed {
			return nil
		}
	}
}

type identified interface{ NodeID() ir.NodeID }

func (c *checker) errorf(n identified, msg string, args ...any) error {
	return &TypeError{Entry: c.entry, Node: n.NodeID(), Message: fmt.Sprintf(msg, args...)}
}

func (c *checker) unify(n identified, a, b ir.ValueType) (ir.ValueType, error) {
	t, err := ir.Unify(a, b)
	if err != nil {
		return nil, c.errorf(n, "%v", err)
	}
	return t, nil
}

func (c *checker) record(n identified, t ir.ValueType) {
	c.table[n.NodeID()] = t
}
