package ir

// NodeID is the stable identity of one node of a compiled decoder program:
// a decoder step, an expression, a pattern or a lambda parameter.
//
// IDs are assigned once, while the decoder tree is constructed, and both
// type inference and type decoration index the shared type table by them.
// Zero means "not yet assigned".
type NodeID uint32

// IDAllocator hands out NodeIDs in construction order, starting at 1.
type IDAllocator struct {
	last NodeID
}

// Next returns a fresh NodeID.
func (a *IDAllocator) Next() NodeID {
	a.last++
	return a.last
}

// Count returns how many IDs have been allocated.
func (a *IDAllocator) Count() int {
	return int(a.last)
}
