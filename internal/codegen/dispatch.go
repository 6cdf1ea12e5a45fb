package codegen

import (
	"fmt"
	"strings"

	"github.com/roach88/bingen/internal/decoder"
)

// Dispatch is the executable form of a match tree: nested single-byte
// probes ending in a selected alternative or an excluded branch.
type Dispatch interface {
	isDispatch()
}

// Leaf selects alternative Index.
type Leaf struct {
	Index int
}

// Excluded rejects the input.
type Excluded struct{}

// Probe reads one byte and takes the first arm whose criterion accepts it.
// At end of input it yields OnEnd; when no arm applies it yields Fallback.
type Probe struct {
	Arms     []Arm
	OnEnd    Dispatch
	Fallback Dispatch
}

// Arm is one guarded continuation of a Probe.
type Arm struct {
	Criterion ByteCriterion
	Then      Dispatch
}

func (*Leaf) isDispatch()     {}
func (*Excluded) isDispatch() {}
func (*Probe) isDispatch()    {}

// CompileDispatch converts a match tree to its dispatch form.
func CompileDispatch(t *decoder.MatchTree) Dispatch {
	if len(t.Branches) == 0 {
		return terminal(t.Accept)
	}
	// Unmatched bytes fall back to the node's accept index, as
	// MatchTree.Matches does; without one the fallback is Excluded, the
	// closing failure arm of the dispatch.
	p := &Probe{OnEnd: terminal(t.Accept), Fallback: terminal(t.Accept)}
	for _, br := range t.Branches {
		if br.Set.IsEmpty() {
			continue
		}
		crit := NewByteCriterion(br.Set)
		p.Arms = append(p.Arms, Arm{Criterion: crit, Then: CompileDispatch(br.Tree)})
		if crit.AlwaysTrue() {
			break
		}
	}
	return p
}

func terminal(accept int) Dispatch {
	if accept < 0 {
		return &Excluded{}
	}
	return &Leaf{Index: accept}
}

// Eval runs d over input, returning the selected alternative.
func Eval(d Dispatch, input []byte) (int, bool) {
	for {
		switch n := d.(type) {
		case *Leaf:
			return n.Index, true
		case *Excluded:
			return 0, false
		case *Probe:
			if len(input) == 0 {
				d = n.OnEnd
				continue
			}
			b := input[0]
			input = input[1:]
			d = n.Fallback
			for _, arm := range n.Arms {
				if arm.Criterion.Accepts(b) {
					d = arm.Then
					break
				}
			}
		default:
			panic(fmt.Sprintf("codegen: unknown dispatch %T", d))
		}
	}
}

// DispatchString renders d as an indented outline, for diagnostics.
func DispatchString(d Dispatch) string {
	var sb strings.Builder
	writeDispatch(&sb, d, 0)
	return sb.String()
}

func writeDispatch(sb *strings.Builder, d Dispatch, depth int) {
	pad := strings.Repeat("  ", depth)
	switch n := d.(type) {
	case *Leaf:
		fmt.Fprintf(sb, "%sleaf %d\n", pad, n.Index)
	case *Excluded:
		fmt.Fprintf(sb, "%sexcluded\n", pad)
	case *Probe:
		fmt.Fprintf(sb, "%sprobe\n", pad)
		for _, arm := range n.Arms {
			fmt.Fprintf(sb, "%s  %s:\n", pad, arm.Criterion)
			writeDispatch(sb, arm.Then, depth+2)
		}
		fmt.Fprintf(sb, "%s  else:\n", pad)
		writeDispatch(sb, n.Fallback, depth+2)
	}
}
