package decoder

import (
	"fmt"
	"strings"

	"github.com/roach88/bingen/internal/format"
	"github.com/roach88/bingen/internal/ir"
)

// MaxLookahead bounds the depth of a MatchTree, in bytes.
const MaxLookahead = 32

// MatchTree is a byte-prefix decision tree selecting one of several
// alternatives. Branch sets at each node are pairwise disjoint.
//
// Accept is the index selected when the input ends at this node or the
// next byte is in no branch; it is -1 when such input is rejected.
type MatchTree struct {
	Accept   int
	Branches []TreeBranch
}

// TreeBranch is one edge of a MatchTree.
type TreeBranch struct {
	Set  ir.ByteSet
	Tree *MatchTree
}

// Matches returns the alternative selected for input by walking the tree
// one byte at a time, taking the first branch containing each byte.
func (t *MatchTree) Matches(input []byte) (int, bool) {
	for {
		if len(input) == 0 {
			return t.Accept, t.Accept >= 0
		}
		b := input[0]
		input = input[1:]
		var child *MatchTree
		for _, br := range t.Branches {
			if br.Set.Contains(b) {
				child = br.Tree
				break
			}
		}
		if child == nil {
			return t.Accept, t.Accept >= 0
		}
		t = child
	}
}

// Leaves returns the distinct accept indices reachable in the tree, in
// ascending order.
func (t *MatchTree) Leaves() []int {
	seen := map[int]bool{}
	var walk func(*MatchTree)
	walk = func(n *MatchTree) {
		if n.Accept >= 0 {
			seen[n.Accept] = true
		}
		for _, br := range n.Branches {
			walk(br.Tree)
		}
	}
	walk(t)
	out := make([]int, 0, len(seen))
	for i := 0; len(out) < len(seen); i++ {
		if seen[i] {
			out = append(out, i)
		}
	}
	return out
}

// Depth returns the length of the longest path from the root.
func (t *MatchTree) Depth() int {
	d := 0
	for _, br := range t.Branches {
		d = max(d, 1+br.Tree.Depth())
	}
	return d
}

func (t *MatchTree) String() string {
	var sb strings.Builder
	t.write(&sb, 0)
	return sb.String()
}

func (t *MatchTree) write(sb *strings.Builder, indent int) {
	pad := strings.Repeat("  ", indent)
	if t.Accept >= 0 {
		fmt.Fprintf(sb, "%saccept %d\n", pad, t.Accept)
	}
	for _, br := range t.Branches {
		fmt.Fprintf(sb, "%s%s =>\n", pad, br.Set)
		br.Tree.write(sb, indent+1)
	}
}

// step is the set of byte-level choices available at one position of a
// single alternative.
type step struct {
	accept   bool
	branches []stepBranch
}

type stepBranch struct {
	set  ir.ByteSet
	next *next
}

func rejectStep() step { return step{} }

func acceptStep() step { return step{accept: true} }

func branchStep(bs ir.ByteSet, n *next) step {
	return step{branches: []stepBranch{{set: bs, next: n}}}
}

// unionBranch adds a branch, splitting existing branches so that sets stay
// disjoint; overlapping bytes continue with the union of both nexts.
func (s *step) unionBranch(in *interner, bs ir.ByteSet, n *next) {
	var split []stepBranch
	for i := range s.branches {
		br := &s.branches[i]
		common := br.set.Intersection(bs)
		if common.IsEmpty() {
			continue
		}
		if orig := br.set.Difference(bs); !orig.IsEmpty() {
			split = append(split, stepBranch{set: orig, next: br.next})
		}
		br.set = common
		br.next = in.union(br.next, n)
		bs = bs.Difference(common)
	}
	if !bs.IsEmpty() {
		s.branches = append(s.branches, stepBranch{set: bs, next: n})
	}
	s.branches = append(s.branches, split...)
}

func (s step) union(in *interner, o step) step {
	s.accept = s.accept || o.accept
	for _, br := range o.branches {
		s.unionBranch(in, br.set, br.next)
	}
	return s
}

// peek restricts s to input also accepted by p.
func (s step) peek(in *interner, p step) step {
	switch {
	case p.accept:
	case s.accept:
		s.accept = p.accept
		s.branches = p.branches
	default:
		var branches []stepBranch
		for _, b1 := range s.branches {
			for _, b2 := range p.branches {
				if bs := b1.set.Intersection(b2.set); !bs.IsEmpty() {
					branches = append(branches, stepBranch{set: bs, next: in.peek(b1.next, b2.next)})
				}
			}
		}
		s.branches = branches
	}
	return s
}

// peekNot restricts s to input rejected by p.
func (s step) peekNot(in *interner, p step) step {
	if p.accept {
		return rejectStep()
	}
	var branches []stepBranch
	for _, b1 := range s.branches {
		for _, b2 := range p.branches {
			if common := b1.set.Intersection(b2.set); !common.IsEmpty() {
				branches = append(branches, stepBranch{set: common, next: in.peekNot(b1.next, b2.next)})
			}
			if diff := b1.set.Difference(b2.set); !diff.IsEmpty() {
				branches = append(branches, stepBranch{set: diff, next: b1.next})
			}
		}
	}
	s.branches = branches
	return s
}

// treeBuilder expands formats and continuations into steps.
type treeBuilder struct {
	module *format.Module
	in     *interner
}

func (tb *treeBuilder) addTuple(t *format.Tuple, from int, n *next) step {
	if from >= len(t.Elems) {
		return tb.addNext(n)
	}
	return tb.add(t.Elems[from], tb.in.tuple(t, from+1, n))
}

func (tb *treeBuilder) addRecord(r *format.Record, from int, n *next) step {
	if from >= len(r.Fields) {
		return tb.addNext(n)
	}
	return tb.add(r.Fields[from].Format, tb.in.record(r, from+1, n))
}

func (tb *treeBuilder) addRepeatCount(count int, f format.Format, n *next) step {
	if count > 0 {
		return tb.add(f, tb.in.repeatCount(count-1, f, n))
	}
	return tb.addNext(n)
}

func (tb *treeBuilder) addSlice(size int, inside, n *next) step {
	if size == 0 {
		return tb.addNext(n)
	}
	s := tb.addNext(inside)
	s.accept = false
	if len(s.branches) == 0 {
		s.branches = append(s.branches, stepBranch{
			set:  ir.FullByteSet(),
			next: tb.in.slice(size-1, tb.in.empty, n),
		})
		return s
	}
	for i := range s.branches {
		s.branches[i].next = tb.in.slice(size-1, s.branches[i].next, n)
	}
	return s
}

func (tb *treeBuilder) addNext(n *next) step {
	switch n.kind {
	case nextEmpty:
		return acceptStep()
	case nextUnion:
		return tb.addNext(n.a).union(tb.in, tb.addNext(n.b))
	case nextCat:
		return tb.add(n.f, n.a)
	case nextTuple:
		return tb.addTuple(n.f.(*format.Tuple), n.n, n.a)
	case nextRecord:
		return tb.addRecord(n.f.(*format.Record), n.n, n.a)
	case nextRepeat:
		return tb.addNext(n.a).union(tb.in, tb.add(n.f, n))
	case nextRepeatCount:
		return tb.addRepeatCount(n.n, n.f, n.a)
	case nextSlice:
		return tb.addSlice(n.n, n.a, n.b)
	case nextPeek:
		return tb.addNext(n.a).peek(tb.in, tb.addNext(n.b))
	case nextPeekNot:
		return tb.addNext(n.a).peekNot(tb.in, tb.addNext(n.b))
	}
	panic(fmt.Sprintf("decoder: unknown continuation kind %d", n.kind))
}

func (tb *treeBuilder) addAll(fs []format.Format, n *next) step {
	s := rejectStep()
	for _, f := range fs {
		s = s.union(tb.in, tb.add(f, n))
	}
	return s
}

// add computes the first-byte choices of f followed by n.
func (tb *treeBuilder) add(f format.Format, n *next) step {
	switch f := f.(type) {
	case *format.ItemVar:
		return tb.add(tb.module.Get(f.Level).Format, n)
	case *format.Fail:
		return rejectStep()
	case *format.EndOfInput, *format.Align, *format.RepeatUntilLast, *format.RepeatUntilSeq,
		*format.Bits, *format.Apply:
		return acceptStep()
	case *format.Byte:
		return branchStep(f.Set, n)
	case *format.Variant:
		return tb.add(f.Inner, n)
	case *format.Union:
		return tb.addAll(f.Branches, n)
	case *format.UnionNondet:
		return tb.addAll(f.Branches, n)
	case *format.Tuple:
		return tb.addTuple(f, 0, n)
	case *format.Record:
		return tb.addRecord(f, 0, n)
	case *format.Repeat:
		return tb.addNext(n).union(tb.in, tb.add(f.Inner, tb.in.repeat(f.Inner, n)))
	case *format.Repeat1:
		return tb.add(f.Inner, tb.in.repeat(f.Inner, n))
	case *format.RepeatCount:
		b := format.ExprBounds(f.Count)
		if count, ok := b.IsExact(); ok {
			return tb.addRepeatCount(count, f.Inner, n)
		}
		return tb.addRepeatCount(b.Min, f.Inner, tb.in.empty)
	case *format.Peek:
		return tb.addNext(n).peek(tb.in, tb.add(f.Inner, tb.in.empty))
	case *format.PeekNot:
		return tb.addNext(n).peekNot(tb.in, tb.add(f.Inner, tb.in.empty))
	case *format.Slice:
		inside := tb.in.cat(f.Inner, tb.in.empty)
		b := format.ExprBounds(f.Length)
		if size, ok := b.IsExact(); ok {
			return tb.addSlice(size, inside, n)
		}
		return tb.addSlice(b.Min, inside, tb.in.empty)
	case *format.WithRelativeOffset:
		s := tb.addNext(n)
		offset, ok := format.ExprBounds(f.Offset).IsExact()
		if !ok {
			// indeterminate lookahead is ignored
			return s
		}
		target := tb.in.cat(f.Inner, tb.in.empty)
		if offset == 0 {
			return s.peek(tb.in, tb.addNext(target))
		}
		return s.peek(tb.in, tb.addSlice(offset, tb.in.empty, target))
	case *format.Map:
		return tb.add(f.Inner, n)
	case *format.Compute:
		return tb.addNext(n)
	case *format.Let:
		return tb.add(f.Inner, n)
	case *format.Dynamic:
		return tb.add(f.Inner, n)
	case *format.Match:
		s := rejectStep()
		for _, c := range f.Cases {
			s = s.union(tb.in, tb.add(c.Format, n))
		}
		return s
	}
	panic(fmt.Sprintf("decoder: unknown format %T", f))
}

// levelEntry is one alternative's continuation at a given depth.
type levelEntry struct {
	index int
	next  *next
}

// entrySet is an insertion-ordered set of level entries.
type entrySet struct {
	items []levelEntry
	seen  map[levelEntry]bool
}

func newEntrySet() *entrySet { return &entrySet{seen: make(map[levelEntry]bool)} }

func (es *entrySet) insert(e levelEntry) {
	if !es.seen[e] {
		es.seen[e] = true
		es.items = append(es.items, e)
	}
}

func (es *entrySet) clone() *entrySet {
	c := &entrySet{items: make([]levelEntry, len(es.items)), seen: make(map[levelEntry]bool, len(es.items))}
	copy(c.items, es.items)
	for k := range es.seen {
		c.seen[k] = true
	}
	return c
}

// level merges the steps of every alternative at the same depth.
type level struct {
	accept   int
	branches []levelBranch
}

type levelBranch struct {
	set     ir.ByteSet
	entries *entrySet
}

func newLevel() *level { return &level{accept: -1} }

func (l *level) mergeAccept(index int) bool {
	if l.accept < 0 {
		l.accept = index
		return true
	}
	return l.accept == index
}

func (l *level) mergeBranch(index int, bs ir.ByteSet, n *next) {
	var split []levelBranch
	for i := range l.branches {
		br := &l.branches[i]
		common := br.set.Intersection(bs)
		if common.IsEmpty() {
			continue
		}
		if orig := br.set.Difference(bs); !orig.IsEmpty() {
			split = append(split, levelBranch{set: orig, entries: br.entries.clone()})
		}
		br.set = common
		br.entries.insert(levelEntry{index: index, next: n})
		bs = bs.Difference(common)
	}
	if !bs.IsEmpty() {
		es := newEntrySet()
		es.insert(levelEntry{index: index, next: n})
		l.branches = append(l.branches, levelBranch{set: bs, entries: es})
	}
	l.branches = append(l.branches, split...)
}

// merge folds an alternative's step into the level. Two alternatives that
// both accept at the same point make the level ambiguous.
func (l *level) merge(index int, s step) bool {
	if s.accept && !l.mergeAccept(index) {
		return false
	}
	for _, br := range s.branches {
		l.mergeBranch(index, br.set, br.next)
	}
	return true
}

// accepts returns a leaf when every entry belongs to a single alternative.
func accepts(es *entrySet) (*MatchTree, bool) {
	l := newLevel()
	for _, e := range es.items {
		if !l.mergeAccept(e.index) {
			return nil, false
		}
	}
	return &MatchTree{Accept: l.accept}, true
}

func (tb *treeBuilder) grow(es *entrySet, depth int) (*MatchTree, bool) {
	if t, ok := accepts(es); ok {
		return t, true
	}
	if depth == 0 {
		return nil, false
	}
	l := newLevel()
	for _, e := range es.items {
		if !l.merge(e.index, tb.addNext(e.next)) {
			return nil, false
		}
	}
	t := &MatchTree{Accept: l.accept, Branches: make([]TreeBranch, 0, len(l.branches))}
	for _, br := range l.branches {
		sub, ok := tb.grow(br.entries, depth-1)
		if !ok {
			return nil, false
		}
		t.Branches = append(t.Branches, TreeBranch{Set: br.set, Tree: sub})
	}
	return t, true
}

// build constructs a tree choosing among branches, each followed by n. It
// reports false when the branches cannot be told apart within MaxLookahead
// bytes.
func (tb *treeBuilder) build(branches []format.Format, n *next) (*MatchTree, bool) {
	es := newEntrySet()
	for i, f := range branches {
		es.insert(levelEntry{index: i, next: tb.in.cat(f, n)})
	}
	return tb.grow(es, MaxLookahead)
}

// BuildMatchTree builds the decision tree selecting among branches with
// nothing following them.
func BuildMatchTree(m *format.Module, branches []format.Format) (*MatchTree, bool) {
	tb := &treeBuilder{module: m, in: newInterner()}
	return tb.build(branches, tb.in.empty)
}
