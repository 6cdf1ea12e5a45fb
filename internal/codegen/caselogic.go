package codegen

import (
	"fmt"

	"github.com/roach88/bingen/internal/decoder"
	"github.com/roach88/bingen/internal/expr"
)

// CaseLogic is a decoder node classified by the shape of code it lowers
// to. Each shape lowers to a block of statements and a result expression.
type CaseLogic interface {
	Decoder() decoder.Decoder
	Shape() string
}

// SimpleLogic is a leaf that lowers to at most one fallible runtime call:
// Fail, EndOfInput, Align, Byte, Call, Compute and Apply.
type SimpleLogic struct {
	Node decoder.Decoder
}

// DerivedLogic transforms the value of Inner: Variant, Map, Let and
// Dynamic.
type DerivedLogic struct {
	Node  decoder.Decoder
	Inner CaseLogic
}

// SequentialLogic decodes Elems in order: Tuple and Record. Labels is set
// for records.
type SequentialLogic struct {
	Node   decoder.Decoder
	Labels []string
	Elems  []CaseLogic
}

// ParallelLogic tries Alts in order with backtracking.
type ParallelLogic struct {
	Node decoder.Decoder
	Alts []CaseLogic
}

// RepeatPolicy selects how a repetition terminates.
type RepeatPolicy int

const (
	// ContinueWhileMatching loops while the dispatch selects alternative 0.
	ContinueWhileMatching RepeatPolicy = iota
	// BreakOnMatch loops until the dispatch selects alternative 0, requiring
	// at least one element.
	BreakOnMatch
	// ExactCount loops a computed number of times.
	ExactCount
	// ConditionTerminal stops once a predicate holds for the last element.
	ConditionTerminal
	// ConditionComplete stops once a predicate holds for the whole sequence.
	ConditionComplete
)

func (p RepeatPolicy) String() string {
	switch p {
	case ContinueWhileMatching:
		return "while"
	case BreakOnMatch:
		return "until"
	case ExactCount:
		return "count"
	case ConditionTerminal:
		return "until-last"
	default:
		return "until-seq"
	}
}

// RepeatLogic accumulates elements decoded by Inner. Dispatch is set for
// the two lookahead-driven policies.
type RepeatLogic struct {
	Node     decoder.Decoder
	Policy   RepeatPolicy
	Dispatch Dispatch
	Inner    CaseLogic
}

// predicate returns the termination predicate of a condition-driven
// repetition.
func (l *RepeatLogic) predicate() *expr.Lambda {
	switch d := l.Node.(type) {
	case *decoder.RepeatUntilLast:
		return d.Pred
	case *decoder.RepeatUntilSeq:
		return d.Pred
	}
	return nil
}

// EngineKind is the parser facility an EngineLogic drives.
type EngineKind int

const (
	EngineSlice EngineKind = iota
	EnginePeek
	EnginePeekNot
	EngineBits
	EngineOffsetPeek
)

func (k EngineKind) String() string {
	switch k {
	case EngineSlice:
		return "slice"
	case EnginePeek:
		return "peek"
	case EnginePeekNot:
		return "peek-not"
	case EngineBits:
		return "bits"
	default:
		return "offset-peek"
	}
}

// EngineLogic runs Inner under a parser view change.
type EngineLogic struct {
	Node  decoder.Decoder
	Kind  EngineKind
	Inner CaseLogic
}

// OtherKind distinguishes the two branching shapes.
type OtherKind int

const (
	// Descend picks an arm with a byte dispatch.
	Descend OtherKind = iota
	// ExprMatch picks an arm by matching a value against patterns.
	ExprMatch
)

// OtherLogic selects one of Arms.
type OtherLogic struct {
	Node     decoder.Decoder
	Kind     OtherKind
	Dispatch Dispatch
	Arms     []CaseLogic
}

func (l *SimpleLogic) Decoder() decoder.Decoder     { return l.Node }
func (l *DerivedLogic) Decoder() decoder.Decoder    { return l.Node }
func (l *SequentialLogic) Decoder() decoder.Decoder { return l.Node }
func (l *ParallelLogic) Decoder() decoder.Decoder   { return l.Node }
func (l *RepeatLogic) Decoder() decoder.Decoder     { return l.Node }
func (l *EngineLogic) Decoder() decoder.Decoder     { return l.Node }
func (l *OtherLogic) Decoder() decoder.Decoder      { return l.Node }

func (*SimpleLogic) Shape() string     { return "simple" }
func (*DerivedLogic) Shape() string    { return "derived" }
func (*SequentialLogic) Shape() string { return "sequential" }
func (*ParallelLogic) Shape() string   { return "parallel" }
func (*RepeatLogic) Shape() string     { return "repeat" }
func (*EngineLogic) Shape() string     { return "engine" }
func (*OtherLogic) Shape() string      { return "other" }

// Classify builds the CaseLogic tree of d.
func Classify(d decoder.Decoder) CaseLogic {
	switch d := d.(type) {
	case *decoder.Fail, *decoder.EndOfInput, *decoder.Align, *decoder.Byte,
		*decoder.Call, *decoder.Compute, *decoder.Apply:
		return &SimpleLogic{Node: d}

	case *decoder.Variant:
		return &DerivedLogic{Node: d, Inner: Classify(d.Inner)}
	case *decoder.Map:
		return &DerivedLogic{Node: d, Inner: Classify(d.Inner)}
	case *decoder.Let:
		return &DerivedLogic{Node: d, Inner: Classify(d.Inner)}
	case *decoder.Dynamic:
		return &DerivedLogic{Node: d, Inner: Classify(d.Inner)}

	case *decoder.Tuple:
		return &SequentialLogic{Node: d, Elems: classifyAll(d.Elems)}
	case *decoder.Record:
		l := &SequentialLogic{Node: d, Labels: make([]string, len(d.Fields)), Elems: make([]CaseLogic, len(d.Fields))}
		for i, f := range d.Fields {
			l.Labels[i] = f.Label
			l.Elems[i] = Classify(f.Decoder)
		}
		return l

	case *decoder.Parallel:
		return &ParallelLogic{Node: d, Alts: classifyAll(d.Branches)}

	case *decoder.While:
		return &RepeatLogic{Node: d, Policy: ContinueWhileMatching, Dispatch: CompileDispatch(d.Tree), Inner: Classify(d.Inner)}
	case *decoder.Until:
		return &RepeatLogic{Node: d, Policy: BreakOnMatch, Dispatch: CompileDispatch(d.Tree), Inner: Classify(d.Inner)}
	case *decoder.RepeatCount:
		return &RepeatLogic{Node: d, Policy: ExactCount, Inner: Classify(d.Inner)}
	case *decoder.RepeatUntilLast:
		return &RepeatLogic{Node: d, Policy: ConditionTerminal, Inner: Classify(d.Inner)}
	case *decoder.RepeatUntilSeq:
		return &RepeatLogic{Node: d, Policy: ConditionComplete, Inner: Classify(d.Inner)}

	case *decoder.Slice:
		return &EngineLogic{Node: d, Kind: EngineSlice, Inner: Classify(d.Inner)}
	case *decoder.Peek:
		return &EngineLogic{Node: d, Kind: EnginePeek, Inner: Classify(d.Inner)}
	case *decoder.PeekNot:
		return &EngineLogic{Node: d, Kind: EnginePeekNot, Inner: Classify(d.Inner)}
	case *decoder.Bits:
		return &EngineLogic{Node: d, Kind: EngineBits, Inner: Classify(d.Inner)}
	case *decoder.WithRelativeOffset:
		return &EngineLogic{Node: d, Kind: EngineOffsetPeek, Inner: Classify(d.Inner)}

	case *decoder.Branch:
		return &OtherLogic{Node: d, Kind: Descend, Dispatch: CompileDispatch(d.Tree), Arms: classifyAll(d.Branches)}
	case *decoder.Match:
		arms := make([]CaseLogic, len(d.Cases))
		for i, c := range d.Cases {
			arms[i] = Classify(c.Decoder)
		}
		return &OtherLogic{Node: d, Kind: ExprMatch, Arms: arms}
	}
	panic(fmt.Sprintf("codegen: cannot classify %T", d))
}

func classifyAll(ds []decoder.Decoder) []CaseLogic {
	out := make([]CaseLogic, len(ds))
	for i, d := range ds {
		out[i] = Classify(d)
	}
	return out
}
