package rt

import "fmt"

// ErrorKind classifies a ParseError.
type ErrorKind int

const (
	// KindFailToken is raised by a byte that is not in the expected set, or
	// by an explicit failure.
	KindFailToken ErrorKind = iota
	// KindExcludedBranch is raised when no alternative of a choice applies.
	KindExcludedBranch
	// KindIncompleteParse is raised when input remains where none should.
	KindIncompleteParse
	// KindOverrun is raised by reading past the end of the current view.
	KindOverrun
	// KindInsufficientRepeats is raised when a repetition requiring at least
	// one element ends with none.
	KindInsufficientRepeats
	// KindNotImplemented is raised by constructs the generator does not
	// support.
	KindNotImplemented
	// KindInternal reports a broken invariant of the parser itself.
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindFailToken:
		return "fail-token"
	case KindExcludedBranch:
		return "excluded-branch"
	case KindIncompleteParse:
		return "incomplete-parse"
	case KindOverrun:
		return "overrun"
	case KindInsufficientRepeats:
		return "insufficient-repeats"
	case KindNotImplemented:
		return "not-implemented"
	case KindInternal:
		return "internal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseError is the only error type returned by generated decoders.
type ParseError struct {
	Kind   ErrorKind
	Offset int
	Detail string
}

func (e *ParseError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s at offset %d", e.Kind, e.Offset)
	}
	return fmt.Sprintf("%s at offset %d: %s", e.Kind, e.Offset, e.Detail)
}

// Is matches any *ParseError of the same kind, so callers may write
// errors.Is(err, &rt.ParseError{Kind: rt.KindOverrun}).
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	return ok && t.Kind == e.Kind
}

func newError(p *Parser, kind ErrorKind, detail string) error {
	off := 0
	if p != nil {
		off = p.Offset()
	}
	return &ParseError{Kind: kind, Offset: off, Detail: detail}
}

// Fail reports an unexpected byte or an explicit failure.
func Fail(p *Parser) error { return newError(p, KindFailToken, "") }

// ExcludedBranch reports that no alternative of a choice applies.
func ExcludedBranch(p *Parser) error { return newError(p, KindExcludedBranch, "") }

// InsufficientRepeats reports an empty one-or-more repetition.
func InsufficientRepeats(p *Parser) error { return newError(p, KindInsufficientRepeats, "") }

// NotImplemented reports a construct without a generated implementation.
func NotImplemented(p *Parser, what string) error {
	return newError(p, KindNotImplemented, what)
}

func internalError(p *Parser, format string, args ...any) error {
	return newError(p, KindInternal, fmt.Sprintf(format, args...))
}
