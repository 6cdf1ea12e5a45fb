package codegen

import (
	"strconv"

	"github.com/roach88/bingen/internal/expr"
)

// locals maps the user-visible names bound in one Go block to the
// identifiers chosen for them. Names that sanitize to an identifier
// already denoting a different visible name get a numeric suffix, so
// "chunk-len" and "chunk_len" become chunk_len and chunk_len2.
type locals struct {
	parent *locals
	names  map[string]string
}

func newLocals(parent *locals) *locals {
	return &locals{parent: parent, names: make(map[string]string)}
}

func (s *locals) lookup(name string) (string, bool) {
	for ; s != nil; s = s.parent {
		if local, ok := s.names[name]; ok {
			return local, true
		}
	}
	return "", false
}

// owner returns the user name that local currently denotes.
func (s *locals) owner(local string) (string, bool) {
	for ; s != nil; s = s.parent {
		for name, l := range s.names {
			if l == local {
				return name, true
			}
		}
	}
	return "", false
}

// declare binds name in s and returns its identifier. Rebinding a name
// that is already visible reuses its identifier, which Go then shadows.
func (s *locals) declare(name string) string {
	base := LocalName(name)
	local := base
	for n := 2; ; n++ {
		if owner, taken := s.owner(local); !taken || owner == name {
			break
		}
		local = base + strconv.Itoa(n)
	}
	s.names[name] = local
	return local
}

// enter opens a nested scope; the returned func closes it.
func (lw *lowerer) enter() func() {
	saved := lw.scope
	lw.scope = newLocals(saved)
	return func() { lw.scope = saved }
}

// local resolves a variable reference.
func (lw *lowerer) local(name string) string {
	if local, ok := lw.scope.lookup(name); ok {
		return local
	}
	return LocalName(name)
}

// declarePattern declares the bindings of p in preorder.
func (lw *lowerer) declarePattern(p expr.Pattern) {
	switch p := p.(type) {
	case *expr.BindPattern:
		lw.scope.declare(p.Name)
	case *expr.TuplePattern:
		for _, el := range p.Elems {
			lw.declarePattern(el)
		}
	case *expr.SeqPattern:
		for _, el := range p.Elems {
			lw.declarePattern(el)
		}
	case *expr.VariantPattern:
		lw.declarePattern(p.Inner)
	}
}
