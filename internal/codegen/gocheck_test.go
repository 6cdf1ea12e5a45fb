package codegen

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	runtimeOnce sync.Once
	runtimePkg  *types.Package
	runtimeErr  error
	stdImporter types.Importer
)

// generatedImporter resolves the runtime package from the rt sources in
// this module and everything else from the standard library sources.
type generatedImporter struct{}

func (generatedImporter) Import(path string) (*types.Package, error) {
	if path == RuntimeImport {
		return runtimePkg, runtimeErr
	}
	return stdImporter.Import(path)
}

func loadRuntime() {
	fset := token.NewFileSet()
	stdImporter = importer.ForCompiler(fset, "source", nil)

	paths, err := filepath.Glob(filepath.Join("..", "..", "rt", "*.go"))
	if err != nil {
		runtimeErr = err
		return
	}
	var files []*ast.File
	for _, path := range paths {
		if strings.HasSuffix(path, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, path, nil, 0)
		if err != nil {
			runtimeErr = err
			return
		}
		files = append(files, f)
	}
	conf := types.Config{Importer: stdImporter}
	runtimePkg, runtimeErr = conf.Check(RuntimeImport, fset, files, nil)
}

// typecheckGo parses and type-checks a rendered decoder file against the
// runtime package.
func typecheckGo(t *testing.T, src []byte) {
	t.Helper()
	runtimeOnce.Do(loadRuntime)
	require.NoError(t, runtimeErr, "runtime package")

	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "decoders.go", src, parser.AllErrors)
	require.NoError(t, err, "%s", src)

	var errs []string
	conf := types.Config{
		Importer: generatedImporter{},
		Error:    func(err error) { errs = append(errs, err.Error()) },
	}
	_, _ = conf.Check(f.Name.Name, fset, []*ast.File{f}, nil)
	require.Empty(t, errs, "%s", src)
}
