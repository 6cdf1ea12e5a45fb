package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"

	"github.com/roach88/bingen/internal/codegen"
	"github.com/roach88/bingen/internal/ir"
	"github.com/roach88/bingen/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Top     string // top-level definition
	Package string // package clause of the generated file
	Output  string // output file path
	Cache   string // compilation cache database
}

// CompilationResult describes a generated decoder file.
type CompilationResult struct {
	Top         string     `json:"top"`
	Package     string     `json:"package"`
	ProgramHash string     `json:"program_hash"`
	Cached      bool       `json:"cached"`
	RunID       string     `json:"run_id,omitempty"`
	Output      string     `json:"output,omitempty"`
	Decls       []DeclInfo `json:"decls"`
	Funcs       []FuncInfo `json:"funcs"`
	Source      string     `json:"source,omitempty"` // set when no output file is given
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <module>",
		Short: "Generate Go decoders for a format definition",
		Long: `Compile the definition named by --top to Go decoders.

The module is a directory of CUE files, a single .cue file or a .yaml file.
Without --output the generated source is written to stdout. With --cache
the result is stored in a SQLite database keyed by the module contents,
the top definition and the package name, and reused on the next run.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Top, "top", "", "top-level format definition (required)")
	cmd.Flags().StringVar(&opts.Package, "package", env.Str(EnvPackage, "decoders"), "package name of the generated file")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().StringVar(&opts.Cache, "cache", env.Str(EnvCache), "compilation cache database path")
	_ = cmd.MarkFlagRequired("top")

	return cmd
}

func runCompile(opts *CompileOptions, modulePath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}
	log := opts.logger()

	loaded, err := LoadModule(modulePath)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message, positionDetails(loadErr))
		}
		return outputCompileError(formatter, ErrCodeGeneric, err.Error(), nil)
	}
	log.Debug("loaded module", "module", modulePath, "files", loaded.FileCount, "definitions", loaded.Module.Len())

	key, err := ir.ModuleHash(loaded.Source.Data, opts.Top, opts.Package)
	if err != nil {
		return outputCompileError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	var cache *store.Store
	if opts.Cache != "" {
		cache, err = store.Open(opts.Cache)
		if err != nil {
			return outputCompileError(formatter, ErrCodeCache, err.Error(), nil)
		}
		defer cache.Close()
		if n := cache.Discarded(); n > 0 {
			log.Info("discarded compilations cached under an older key format", "count", n)
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	comp, cached, err := lookupCompilation(ctx, cache, key)
	if err != nil {
		return outputCompileError(formatter, ErrCodeCache, err.Error(), nil)
	}
	if cached {
		log.Debug("compilation cache hit", "key", key, "top", opts.Top)
	} else {
		comp, err = generateCompilation(opts, loaded, key, log)
		if err != nil {
			return outputCompileError(formatter, ErrCodeGenerate, err.Error(), nil)
		}
	}

	result := &CompilationResult{
		Top:         comp.Top,
		Package:     comp.Package,
		ProgramHash: comp.ProgramHash,
		Cached:      cached,
		Output:      opts.Output,
	}
	catalog, err := parseCatalog([]byte(comp.Catalog))
	if err != nil {
		return outputCompileError(formatter, ErrCodeGeneric, err.Error(), nil)
	}
	result.Decls = catalog.Decls
	result.Funcs = catalog.Funcs

	if cache != nil {
		if !cached {
			if _, err := cache.PutCompilation(ctx, comp); err != nil {
				return outputCompileError(formatter, ErrCodeCache, err.Error(), nil)
			}
		}
		run, err := cache.RecordRun(ctx, key, modulePath, cached)
		if err != nil {
			return outputCompileError(formatter, ErrCodeCache, err.Error(), nil)
		}
		result.RunID = run.ID
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, comp.Source, 0644); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	} else {
		result.Source = string(comp.Source)
	}

	log.Info("compiled module",
		"module", modulePath,
		"top", opts.Top,
		"decls", len(result.Decls),
		"funcs", len(result.Funcs),
		"cached", cached,
	)
	return outputCompileSuccess(formatter, result)
}

// lookupCompilation returns the cached compilation for key, if any.
func lookupCompilation(ctx context.Context, cache *store.Store, key string) (store.Compilation, bool, error) {
	if cache == nil {
		return store.Compilation{}, false, nil
	}
	return cache.GetCompilation(ctx, key)
}

// generateCompilation runs the generator and packages its output for the
// cache.
func generateCompilation(opts *CompileOptions, loaded *LoadResult, key string, log *slog.Logger) (store.Compilation, error) {
	prog, err := codegen.Generate(loaded.Module, opts.Top, codegen.Options{Logger: log})
	if err != nil {
		return store.Compilation{}, err
	}
	src, err := prog.Render(opts.Package)
	if err != nil {
		return store.Compilation{}, err
	}
	catalog, err := prog.CatalogJSON()
	if err != nil {
		return store.Compilation{}, err
	}
	log.Debug("rendered decoders", "top", opts.Top, "bytes", len(src))
	return store.Compilation{
		ID:          key,
		Top:         opts.Top,
		Package:     opts.Package,
		Source:      src,
		Catalog:     string(catalog),
		ProgramHash: ir.ProgramHash(src),
		DeclCount:   len(prog.Decls),
		FuncCount:   len(prog.Funcs),
	}, nil
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	// Without an output file stdout carries the generated source only.
	if result.Output == "" {
		_, err := fmt.Fprint(formatter.Writer, result.Source)
		return err
	}

	suffix := ""
	if result.Cached {
		suffix = " (cached)"
	}
	fmt.Fprintf(formatter.Writer, "✓ Compiled %s: %d type(s), %d decoder(s)%s\n\n",
		result.Top, len(result.Decls), len(result.Funcs), suffix)

	if len(result.Decls) > 0 {
		fmt.Fprintln(formatter.Writer, "Types:")
		for _, d := range result.Decls {
			fmt.Fprintf(formatter.Writer, "  %s (%s)\n", d.Name, d.Kind)
		}
		fmt.Fprintln(formatter.Writer)
	}

	fmt.Fprintf(formatter.Writer, "Wrote package %s to %s\n", result.Package, result.Output)
	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details any) error {
	if formatter.Format != "json" {
		fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
		fmt.Fprintln(formatter.Writer)
	}
	_ = formatter.Error(code, message, details)
	// Compilation errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// positionDetails returns the source position of a load error, or nil.
func positionDetails(err *LoadError) any {
	if !err.Pos.IsValid() {
		return nil
	}
	return &Position{File: err.Pos.Filename(), Line: err.Pos.Line(), Column: err.Pos.Column()}
}
