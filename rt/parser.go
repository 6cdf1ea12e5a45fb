// Package rt is the runtime support library imported by generated decoders.
//
// A Parser reads bytes from a window of its input. Slices narrow the window,
// peeks save and restore the position, and alternations record checkpoints
// to rewind to when a branch fails. All three are frames on one stack, so a
// failed branch discards any frames it left open when its checkpoint is
// restored.
package rt

type frameKind uint8

const (
	sliceFrame frameKind = iota
	peekFrame
	altFrame
)

type frame struct {
	kind   frameKind
	offset int
	limit  int
}

// Parser is a cursor over an input buffer.
type Parser struct {
	data   []byte
	offset int
	limit  int
	frames []frame
}

// NewParser returns a parser positioned at the start of data.
func NewParser(data []byte) *Parser {
	return &Parser{data: data, limit: len(data)}
}

// Offset returns the absolute position of the next byte.
func (p *Parser) Offset() int { return p.offset }

// Remaining returns the number of unread bytes in the current view.
func (p *Parser) Remaining() int { return p.limit - p.offset }

// ReadByte consumes one byte of the current view.
func (p *Parser) ReadByte() (byte, error) {
	if p.offset >= p.limit {
		return 0, newError(p, KindOverrun, "")
	}
	b := p.data[p.offset]
	p.offset++
	return b, nil
}

// Finish requires the current view to be exhausted.
func (p *Parser) Finish() error {
	if p.Remaining() > 0 {
		return newError(p, KindIncompleteParse, "")
	}
	return nil
}

// SkipAlign advances to the next multiple of n.
func (p *Parser) SkipAlign(n int) error {
	if n <= 0 {
		return internalError(p, "alignment %d", n)
	}
	target := p.offset
	if rem := target % n; rem != 0 {
		target += n - rem
	}
	if target > p.limit {
		return newError(p, KindOverrun, "")
	}
	p.offset = target
	return nil
}

// StartSlice restricts the view to the next n bytes.
func (p *Parser) StartSlice(n int) error {
	if n < 0 || n > p.Remaining() {
		return newError(p, KindOverrun, "")
	}
	p.frames = append(p.frames, frame{kind: sliceFrame, limit: p.limit})
	p.limit = p.offset + n
	return nil
}

// EndSlice skips the unread rest of the innermost slice and restores the
// enclosing view.
func (p *Parser) EndSlice() error {
	f, err := p.pop(sliceFrame)
	if err != nil {
		return err
	}
	p.offset = p.limit
	p.limit = f.limit
	return nil
}

// OpenPeek saves the position; ClosePeek restores it.
func (p *Parser) OpenPeek() {
	p.frames = append(p.frames, frame{kind: peekFrame, offset: p.offset, limit: p.limit})
}

// ClosePeek restores the position saved by the innermost OpenPeek. Frames
// opened since then are discarded.
func (p *Parser) ClosePeek() error {
	f, err := p.unwind(peekFrame)
	if err != nil {
		return err
	}
	p.offset, p.limit = f.offset, f.limit
	return nil
}

// StartAlt records a checkpoint before the first alternative of a choice.
func (p *Parser) StartAlt() {
	p.frames = append(p.frames, frame{kind: altFrame, offset: p.offset, limit: p.limit})
}

// NextAlt rewinds to the innermost checkpoint after a failed alternative.
// When isLast is set the next alternative is the final one, so the
// checkpoint is dropped and its failure propagates unchanged.
func (p *Parser) NextAlt(isLast bool) error {
	i := p.find(altFrame)
	if i < 0 {
		return internalError(p, "no alternation to rewind")
	}
	f := p.frames[i]
	p.offset, p.limit = f.offset, f.limit
	if isLast {
		p.frames = p.frames[:i]
	} else {
		p.frames = p.frames[:i+1]
	}
	return nil
}

// EndAlt drops the innermost checkpoint after an alternative succeeded.
func (p *Parser) EndAlt() error {
	_, err := p.pop(altFrame)
	return err
}

func (p *Parser) find(kind frameKind) int {
	for i := len(p.frames) - 1; i >= 0; i-- {
		if p.frames[i].kind == kind {
			return i
		}
	}
	return -1
}

// pop removes the top frame, which must be of the given kind.
func (p *Parser) pop(kind frameKind) (frame, error) {
	n := len(p.frames)
	if n == 0 || p.frames[n-1].kind != kind {
		return frame{}, internalError(p, "unbalanced frame stack")
	}
	f := p.frames[n-1]
	p.frames = p.frames[:n-1]
	return f, nil
}

// unwind removes frames down to and including the innermost one of kind.
func (p *Parser) unwind(kind frameKind) (frame, error) {
	i := p.find(kind)
	if i < 0 {
		return frame{}, internalError(p, "unbalanced frame stack")
	}
	f := p.frames[i]
	p.frames = p.frames[:i]
	return f, nil
}
