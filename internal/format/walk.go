package format

// Children returns the immediate sub-formats of f in field order.
func Children(f Format) []Format {
	switch f := f.(type) {
	case *Variant:
		return []Format{f.Inner}
	case *Union:
		return f.Branches
	case *UnionNondet:
		return f.Branches
	case *Tuple:
		return f.Elems
	case *Record:
		out := make([]Format, len(f.Fields))
		for i, fd := range f.Fields {
			out[i] = fd.Format
		}
		return out
	case *Repeat:
		return []Format{f.Inner}
	case *Repeat1:
		return []Format{f.Inner}
	case *RepeatCount:
		return []Format{f.Inner}
	case *RepeatUntilLast:
		return []Format{f.Inner}
	case *RepeatUntilSeq:
		return []Format{f.Inner}
	case *Peek:
		return []Format{f.Inner}
	case *PeekNot:
		return []Format{f.Inner}
	case *Slice:
		return []Format{f.Inner}
	case *Bits:
		return []Format{f.Inner}
	case *WithRelativeOffset:
		return []Format{f.Inner}
	case *Map:
		return []Format{f.Inner}
	case *Let:
		return []Format{f.Inner}
	case *Dynamic:
		return []Format{f.Inner}
	case *Match:
		out := make([]Format, len(f.Cases))
		for i, c := range f.Cases {
			out[i] = c.Format
		}
		return out
	}
	return nil
}

// Walk visits f and its sub-formats in preorder. Returning false from visit
// skips the children of that node. Item references are not followed.
func Walk(f Format, visit func(Format) bool) {
	if !visit(f) {
		return
	}
	for _, c := range Children(f) {
		Walk(c, visit)
	}
}

// References returns the levels referenced directly by the definition at
// level, in first-reference order without duplicates.
func (m *Module) References(level int) []int {
	var refs []int
	seen := map[int]bool{}
	Walk(m.defs[level].Format, func(f Format) bool {
		if iv, ok := f.(*ItemVar); ok && !seen[iv.Level] {
			seen[iv.Level] = true
			refs = append(refs, iv.Level)
		}
		return true
	})
	return refs
}

// Kind names the kind of f, for diagnostics.
func Kind(f Format) string {
	switch f.(type) {
	case *ItemVar:
		return "item"
	case *Fail:
		return "fail"
	case *EndOfInput:
		return "end-of-input"
	case *Align:
		return "align"
	case *Byte:
		return "byte"
	case *Variant:
		return "variant"
	case *Union:
		return "union"
	case *UnionNondet:
		return "union-nondet"
	case *Tuple:
		return "tuple"
	case *Record:
		return "record"
	case *Repeat:
		return "repeat"
	case *Repeat1:
		return "repeat1"
	case *RepeatCount:
		return "repeat-count"
	case *RepeatUntilLast:
		return "repeat-until-last"
	case *RepeatUntilSeq:
		return "repeat-until-seq"
	case *Peek:
		return "peek"
	case *PeekNot:
		return "peek-not"
	case *Slice:
		return "slice"
	case *Bits:
		return "bits"
	case *WithRelativeOffset:
		return "with-relative-offset"
	case *Map:
		return "map"
	case *Compute:
		return "compute"
	case *Let:
		return "let"
	case *Match:
		return "match"
	case *Dynamic:
		return "dynamic"
	case *Apply:
		return "apply"
	}
	return "unknown"
}
