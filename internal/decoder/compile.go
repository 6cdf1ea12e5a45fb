package decoder

import (
	"fmt"

	"github.com/roach88/bingen/internal/expr"
	"github.com/roach88/bingen/internal/format"
	"github.com/roach88/bingen/internal/ir"
)

// maxPeekNotLookahead bounds the bytes a negative lookahead may examine.
const maxPeekNotLookahead = 1024

// BuildError reports a format that cannot be compiled to decoders.
type BuildError struct {
	Definition string // enclosing definition; empty for an anonymous top format
	Kind       string // format kind at fault
	Message    string
}

func (e *BuildError) Error() string {
	if e.Definition == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Definition, e.Kind, e.Message)
}

// Entry is one compiled decoder of a Program.
type Entry struct {
	// Level is the module definition compiled, or -1 for an anonymous top
	// format.
	Level   int
	Name    string
	Params  []format.Param
	Decoder Decoder
}

// Program is a list of decoders; entry 0 decodes the top format.
type Program struct {
	Module  *format.Module
	Entries []Entry
	// IDs is the number of node identities allocated while compiling.
	IDs int
}

type entryKey struct {
	level int
	next  *next
}

type queued struct {
	f     format.Format
	next  *next
	index int
}

// Compiler lowers formats of one module into a Program.
type Compiler struct {
	module   *format.Module
	tb       *treeBuilder
	ids      ir.IDAllocator
	program  *Program
	entries  map[entryKey]int
	queue    []queued
	depends  map[format.Format]bool
	pending  map[int]bool
	building string
}

func newCompiler(m *format.Module) *Compiler {
	return &Compiler{
		module:  m,
		tb:      &treeBuilder{module: m, in: newInterner()},
		program: &Program{Module: m},
		entries: make(map[entryKey]int),
		depends: make(map[format.Format]bool),
		pending: make(map[int]bool),
	}
}

// Compile builds the program decoding the definition named top.
func Compile(m *format.Module, top string) (*Program, error) {
	level, ok := m.Lookup(top)
	if !ok {
		return nil, fmt.Errorf("format %q is not defined", top)
	}
	def := m.Get(level)
	if len(def.Params) > 0 {
		return nil, fmt.Errorf("format %q takes %d parameters and cannot be the top format", top, len(def.Params))
	}
	if err := m.CheckAcyclic(); err != nil {
		return nil, err
	}
	c := newCompiler(m)
	c.entries[entryKey{level: level, next: c.tb.in.empty}] = c.enqueue(level, def.Format, c.tb.in.empty)
	return c.run()
}

// CompileFormat builds a program whose entry 0 decodes f, which may refer
// to definitions of m.
func CompileFormat(m *format.Module, f format.Format) (*Program, error) {
	if err := m.CheckAcyclic(); err != nil {
		return nil, err
	}
	c := newCompiler(m)
	c.enqueue(-1, f, c.tb.in.empty)
	return c.run()
}

func (c *Compiler) enqueue(level int, f format.Format, n *next) int {
	idx := len(c.program.Entries)
	e := Entry{Level: level, Name: "main"}
	if level >= 0 {
		def := c.module.Get(level)
		e.Name, e.Params = def.Name, def.Params
	}
	c.program.Entries = append(c.program.Entries, e)
	c.queue = append(c.queue, queued{f: f, next: n, index: idx})
	return idx
}

func (c *Compiler) run() (*Program, error) {
	for len(c.queue) > 0 {
		q := c.queue[len(c.queue)-1]
		c.queue = c.queue[:len(c.queue)-1]
		entry := &c.program.Entries[q.index]
		if entry.Level >= 0 {
			c.building = entry.Name
		} else {
			c.building = ""
		}
		d, err := c.compile(q.f, q.next)
		if err != nil {
			return nil, err
		}
		c.program.Entries[q.index].Decoder = d
	}
	c.program.IDs = c.ids.Count()
	return c.program, nil
}

func (c *Compiler) fail(f format.Format, msg string, args ...any) error {
	return &BuildError{Definition: c.building, Kind: format.Kind(f), Message: fmt.Sprintf(msg, args...)}
}

func (c *Compiler) node() expr.Node { return expr.Node{ID: c.ids.Next()} }

func (c *Compiler) clone(e expr.Expr) expr.Expr { return expr.Clone(e, &c.ids) }

func (c *Compiler) compileAll(fs []format.Format, n *next) ([]Decoder, error) {
	ds := make([]Decoder, len(fs))
	for i, f := range fs {
		d, err := c.compile(f, n)
		if err != nil {
			return nil, err
		}
		ds[i] = d
	}
	return ds, nil
}

// compile lowers f followed by continuation n. Node identities are
// allocated in preorder: the node itself, then its fields in order.
func (c *Compiler) compile(f format.Format, n *next) (Decoder, error) {
	in := c.tb.in
	switch f := f.(type) {
	case *format.ItemVar:
		id := c.node()
		def := c.module.Get(f.Level)
		if len(f.Args) != len(def.Params) {
			return nil, c.fail(f, "%s expects %d arguments, got %d", def.Name, len(def.Params), len(f.Args))
		}
		cont := in.empty
		if c.dependsOnNext(def.Format) {
			cont = n
		}
		key := entryKey{level: f.Level, next: cont}
		idx, ok := c.entries[key]
		if !ok {
			idx = c.enqueue(f.Level, def.Format, cont)
			c.entries[key] = idx
		}
		args := make([]Arg, len(f.Args))
		for i, a := range f.Args {
			args[i] = Arg{Name: def.Params[i].Name, Value: c.clone(a)}
		}
		return &Call{Node: id, Index: idx, Args: args}, nil

	case *format.Fail:
		return &Fail{Node: c.node()}, nil
	case *format.EndOfInput:
		return &EndOfInput{Node: c.node()}, nil
	case *format.Align:
		if f.N <= 0 {
			return nil, c.fail(f, "alignment must be positive, got %d", f.N)
		}
		return &Align{Node: c.node(), N: f.N}, nil
	case *format.Byte:
		return &Byte{Node: c.node(), Set: f.Set}, nil

	case *format.Variant:
		id := c.node()
		d, err := c.compile(f.Inner, n)
		if err != nil {
			return nil, err
		}
		return &Variant{Node: id, Label: f.Label, Inner: d}, nil

	case *format.Union:
		id := c.node()
		ds, err := c.compileAll(f.Branches, n)
		if err != nil {
			return nil, err
		}
		tree, ok := c.tb.build(f.Branches, n)
		if !ok {
			return nil, c.fail(f, "cannot build match tree for %d branches", len(f.Branches))
		}
		return &Branch{Node: id, Tree: tree, Branches: ds}, nil

	case *format.UnionNondet:
		id := c.node()
		ds, err := c.compileAll(f.Branches, n)
		if err != nil {
			return nil, err
		}
		return &Parallel{Node: id, Branches: ds}, nil

	case *format.Tuple:
		id := c.node()
		ds := make([]Decoder, len(f.Elems))
		for i, e := range f.Elems {
			d, err := c.compile(e, in.tuple(f, i+1, n))
			if err != nil {
				return nil, err
			}
			ds[i] = d
		}
		return &Tuple{Node: id, Elems: ds}, nil

	case *format.Record:
		id := c.node()
		fields := make([]Field, len(f.Fields))
		for i, fd := range f.Fields {
			d, err := c.compile(fd.Format, in.record(f, i+1, n))
			if err != nil {
				return nil, err
			}
			fields[i] = Field{Label: fd.Label, Decoder: d}
		}
		return &Record{Node: id, Fields: fields}, nil

	case *format.Repeat:
		if c.module.IsNullable(f.Inner) {
			return nil, c.fail(f, "cannot repeat nullable format")
		}
		id := c.node()
		d, err := c.compile(f.Inner, in.repeat(f.Inner, n))
		if err != nil {
			return nil, err
		}
		more := &format.Tuple{Elems: []format.Format{f.Inner, &format.Repeat{Inner: f.Inner}}}
		tree, ok := c.tb.build([]format.Format{more, format.Empty()}, n)
		if !ok {
			return nil, c.fail(f, "cannot build match tree")
		}
		return &While{Node: id, Tree: tree, Inner: d}, nil

	case *format.Repeat1:
		if c.module.IsNullable(f.Inner) {
			return nil, c.fail(f, "cannot repeat nullable format")
		}
		id := c.node()
		d, err := c.compile(f.Inner, in.repeat(f.Inner, n))
		if err != nil {
			return nil, err
		}
		more := &format.Tuple{Elems: []format.Format{f.Inner, &format.Repeat{Inner: f.Inner}}}
		tree, ok := c.tb.build([]format.Format{format.Empty(), more}, n)
		if !ok {
			return nil, c.fail(f, "cannot build match tree")
		}
		return &Until{Node: id, Tree: tree, Inner: d}, nil

	case *format.RepeatCount:
		id := c.node()
		count := c.clone(f.Count)
		d, err := c.compile(f.Inner, n)
		if err != nil {
			return nil, err
		}
		return &RepeatCount{Node: id, Count: count, Inner: d}, nil

	case *format.RepeatUntilLast:
		id := c.node()
		pred := expr.CloneLambda(f.Pred, &c.ids)
		d, err := c.compile(f.Inner, n)
		if err != nil {
			return nil, err
		}
		return &RepeatUntilLast{Node: id, Pred: pred, Inner: d}, nil

	case *format.RepeatUntilSeq:
		id := c.node()
		pred := expr.CloneLambda(f.Pred, &c.ids)
		d, err := c.compile(f.Inner, n)
		if err != nil {
			return nil, err
		}
		return &RepeatUntilSeq{Node: id, Pred: pred, Inner: d}, nil

	case *format.Peek:
		id := c.node()
		d, err := c.compile(f.Inner, in.empty)
		if err != nil {
			return nil, err
		}
		return &Peek{Node: id, Inner: d}, nil

	case *format.PeekNot:
		b := c.module.MatchBounds(f.Inner)
		if !b.Bounded {
			return nil, c.fail(f, "negative lookahead cannot be unbounded")
		}
		if b.Max > maxPeekNotLookahead {
			return nil, c.fail(f, "negative lookahead cannot exceed %d bytes", maxPeekNotLookahead)
		}
		id := c.node()
		d, err := c.compile(f.Inner, in.empty)
		if err != nil {
			return nil, err
		}
		return &PeekNot{Node: id, Inner: d}, nil

	case *format.Slice:
		id := c.node()
		length := c.clone(f.Length)
		d, err := c.compile(f.Inner, in.empty)
		if err != nil {
			return nil, err
		}
		return &Slice{Node: id, Length: length, Inner: d}, nil

	case *format.Bits:
		id := c.node()
		d, err := c.compile(f.Inner, in.empty)
		if err != nil {
			return nil, err
		}
		return &Bits{Node: id, Inner: d}, nil

	case *format.WithRelativeOffset:
		id := c.node()
		offset := c.clone(f.Offset)
		d, err := c.compile(f.Inner, in.empty)
		if err != nil {
			return nil, err
		}
		return &WithRelativeOffset{Node: id, Offset: offset, Inner: d}, nil

	case *format.Map:
		id := c.node()
		d, err := c.compile(f.Inner, n)
		if err != nil {
			return nil, err
		}
		return &Map{Node: id, Inner: d, Fn: expr.CloneLambda(f.Fn, &c.ids)}, nil

	case *format.Compute:
		id := c.node()
		return &Compute{Node: id, Expr: c.clone(f.Expr)}, nil

	case *format.Let:
		id := c.node()
		value := c.clone(f.Value)
		d, err := c.compile(f.Inner, n)
		if err != nil {
			return nil, err
		}
		return &Let{Node: id, Name: f.Name, Value: value, Inner: d}, nil

	case *format.Match:
		id := c.node()
		head := c.clone(f.Head)
		cases := make([]Case, len(f.Cases))
		for i, mc := range f.Cases {
			p := expr.ClonePattern(mc.Pattern, &c.ids)
			d, err := c.compile(mc.Format, n)
			if err != nil {
				return nil, err
			}
			cases[i] = Case{Pattern: p, Decoder: d}
		}
		return &Match{Node: id, Head: head, Cases: cases}, nil

	case *format.Dynamic:
		id := c.node()
		h := Huffman{Lengths: c.clone(f.Huffman.Lengths), Values: c.clone(f.Huffman.Values)}
		d, err := c.compile(f.Inner, n)
		if err != nil {
			return nil, err
		}
		return &Dynamic{Node: id, Name: f.Name, Huffman: h, Inner: d}, nil

	case *format.Apply:
		return &Apply{Node: c.node(), Name: f.Name}, nil
	}
	panic(fmt.Sprintf("decoder: unknown format %T", f))
}

// dependsOnNext reports whether compiling f needs to know what follows it:
// unbounded repetition always does, and so does a union whose branches
// cannot be distinguished on their own.
func (c *Compiler) dependsOnNext(f format.Format) bool {
	if v, ok := c.depends[f]; ok {
		return v
	}
	v := c.computeDependsOnNext(f)
	c.depends[f] = v
	return v
}

func (c *Compiler) computeDependsOnNext(f format.Format) bool {
	switch f := f.(type) {
	case *format.ItemVar:
		if c.pending[f.Level] {
			return false
		}
		c.pending[f.Level] = true
		defer delete(c.pending, f.Level)
		return c.dependsOnNext(c.module.Get(f.Level).Format)
	case *format.Repeat, *format.Repeat1:
		return true
	case *format.Union:
		return c.unionDependsOnNext(f.Branches)
	case *format.UnionNondet:
		return c.unionDependsOnNext(f.Branches)
	case *format.Variant, *format.Tuple, *format.Record, *format.Map, *format.Let,
		*format.Match, *format.Dynamic:
		for _, child := range format.Children(f) {
			if c.dependsOnNext(child) {
				return true
			}
		}
		return false
	}
	return false
}

func (c *Compiler) unionDependsOnNext(branches []format.Format) bool {
	for _, b := range branches {
		if c.dependsOnNext(b) {
			return true
		}
	}
	_, ok := c.tb.build(branches, c.tb.in.empty)
	return !ok
}
