package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/bingen/internal/ir"
)

// createTestStore creates a new temporary store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestCompilation creates a compilation keyed like the CLI keys them.
func createTestCompilation(t *testing.T, source, top string) Compilation {
	t.Helper()
	id, err := ir.ModuleHash([]byte(source), top, "decoders")
	if err != nil {
		t.Fatalf("ModuleHash() failed: %v", err)
	}
	out := []byte("package decoders\n")
	return Compilation{
		ID:          id,
		Top:         top,
		Package:     "decoders",
		Source:      out,
		Catalog:     `{"decls":[{"kind":"struct","name":"Chunk"},{"kind":"enum","name":"Opt"}],"funcs":[]}`,
		ProgramHash: ir.ProgramHash(out),
		DeclCount:   2,
		FuncCount:   1,
	}
}
