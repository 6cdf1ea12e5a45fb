package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/bingen/internal/format"
)

// Load failures, distinguishable with errors.Is.
var (
	ErrNotFound    = errors.New("path not found")
	ErrScan        = errors.New("scan failed")
	ErrNoFiles     = errors.New("no module files")
	ErrLoadFailed  = errors.New("load failed")
	ErrBuildFailed = errors.New("build failed")
)

// Source is a format module read from disk.
type Source struct {
	Path  string
	Files []string
	// Data is the content of Files in order; it keys the compilation cache.
	Data  []byte
	Value cue.Value
}

// ReadSource loads the module at path: a directory of CUE files, a single
// .cue file, or a .yaml/.yml file.
func ReadSource(path string) (*Source, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	ctx := cuecontext.New()

	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
		}
		src := &Source{Path: path, Files: []string{path}, Data: data}
		switch filepath.Ext(path) {
		case ".cue":
			src.Value = ctx.CompileBytes(data, cue.Filename(path))
			if err := src.Value.Err(); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrBuildFailed, formatCUEError(err))
			}
		case ".yaml", ".yml":
			if src.Value, err = ParseYAML(ctx, path, data); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrBuildFailed, err)
			}
		default:
			return nil, fmt.Errorf("%w: %s is not a .cue or .yaml file", ErrNoFiles, path)
		}
		return src, nil
	}

	files, err := FindCUEFiles(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScan, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no CUE files found in %s", ErrNoFiles, path)
	}
	src := &Source{Path: path, Files: files}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
		}
		src.Data = append(src.Data, data...)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return nil, fmt.Errorf("%w: no CUE instances loaded", ErrLoadFailed)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("%w: loading CUE files: %v", ErrLoadFailed, inst.Err)
	}
	src.Value = ctx.BuildInstance(inst)
	if err := src.Value.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildFailed, formatCUEError(err))
	}
	return src, nil
}

// LoadModule reads and compiles the module at path.
func LoadModule(path string) (*format.Module, *Source, error) {
	src, err := ReadSource(path)
	if err != nil {
		return nil, nil, err
	}
	m, err := CompileModule(src.Value)
	if err != nil {
		return nil, src, err
	}
	return m, src, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths, sorted.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	slices.Sort(files)
	return files, err
}
