package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/bingen/internal/codegen"
)

// TypesOptions holds flags for the types command.
type TypesOptions struct {
	*RootOptions
	Top string
}

// NewTypesCommand creates the types command.
func NewTypesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TypesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "types <module>",
		Short: "List the types and decoders generated for a definition",
		Long: `List the Go type declarations and decoder functions that compile
would emit for --top, without rendering source.

Records and unions with the same shape share one declaration, so the
listing shows how many distinct types the format needs.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTypes(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Top, "top", "", "top-level format definition (required)")
	_ = cmd.MarkFlagRequired("top")

	return cmd
}

func runTypes(opts *TypesOptions, modulePath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	loaded, err := LoadModule(modulePath)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message, positionDetails(loadErr))
		}
		return outputCompileError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	prog, err := codegen.Generate(loaded.Module, opts.Top, codegen.Options{Logger: opts.logger()})
	if err != nil {
		return outputCompileError(formatter, ErrCodeGenerate, err.Error(), nil)
	}
	data, err := prog.CatalogJSON()
	if err != nil {
		return outputCompileError(formatter, ErrCodeGeneric, err.Error(), nil)
	}
	catalog, err := parseCatalog(data)
	if err != nil {
		return outputCompileError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(catalog)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Types (%d):\n", len(catalog.Decls))
	for _, d := range catalog.Decls {
		fmt.Fprintf(w, "  %-24s %s\n", d.Name, d.Kind)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Decoders (%d):\n", len(catalog.Funcs))
	for _, fn := range catalog.Funcs {
		fmt.Fprintf(w, "  %-12s %-16s -> %-16s %s\n", fn.Name, fn.Entry, fn.Result, fn.Shape)
	}
	return nil
}
