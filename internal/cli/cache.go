package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"

	"github.com/roach88/bingen/internal/store"
)

// CacheOptions holds flags for the cache commands.
type CacheOptions struct {
	*RootOptions
	Path    string // cache database path
	Top     string // list filter
	Package string // list filter
}

// CacheEntry summarizes one cached compilation.
type CacheEntry struct {
	Seq         int64    `json:"seq"`
	Key         string   `json:"key"`
	Top         string   `json:"top"`
	Package     string   `json:"package"`
	ProgramHash string   `json:"program_hash"`
	Decls       []string `json:"decls"`
	FuncCount   int      `json:"func_count"`
	Runs        int      `json:"runs"`
}

// NewCacheCommand creates the cache command group.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CacheOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the compilation cache",
	}
	cmd.PersistentFlags().StringVar(&opts.Path, "cache", env.Str(EnvCache), "compilation cache database path (required)")

	listCmd := &cobra.Command{
		Use:           "list",
		Short:         "List cached compilations",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheList(opts, cmd)
		},
	}
	listCmd.Flags().StringVar(&opts.Top, "top", "", "only compilations of this top-level definition")
	listCmd.Flags().StringVar(&opts.Package, "package", "", "only compilations for this package")
	cmd.AddCommand(listCmd)
	cmd.AddCommand(&cobra.Command{
		Use:           "clear",
		Short:         "Delete every cached compilation and its runs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheClear(opts, cmd)
		},
	})

	return cmd
}

// openCache opens an existing cache database. A missing file is a
// command error rather than a new empty cache.
func openCache(opts *CacheOptions) (*store.Store, error) {
	if opts.Path == "" {
		return nil, NewExitError(ExitCommandError, "--cache is required")
	}
	if _, err := os.Stat(opts.Path); os.IsNotExist(err) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("cache database not found: %s", opts.Path))
	}
	s, err := store.Open(opts.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open cache", err)
	}
	return s, nil
}

func runCacheList(opts *CacheOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	s, err := openCache(opts)
	if err != nil {
		_ = formatter.Error(ErrCodeCache, err.Error(), nil)
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	entries, err := listCacheEntries(ctx, s, store.Where("top", opts.Top, "package", opts.Package))
	if err != nil {
		_ = formatter.Error(ErrCodeCache, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list cache", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(entries)
	}

	w := formatter.Writer
	if len(entries) == 0 {
		fmt.Fprintln(w, "Cache is empty.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%4d  %s  %s/%s  %d type(s), %d decoder(s), %d run(s)\n",
			e.Seq, shortHash(e.Key), e.Package, e.Top, len(e.Decls), e.FuncCount, e.Runs)
	}
	return nil
}

func listCacheEntries(ctx context.Context, s *store.Store, where store.Predicate) ([]CacheEntry, error) {
	comps, err := s.FindCompilations(ctx, where)
	if err != nil {
		return nil, err
	}
	entries := make([]CacheEntry, 0, len(comps))
	for _, c := range comps {
		decls, err := c.DeclNames()
		if err != nil {
			return nil, fmt.Errorf("compilation %s: %w", c.ID, err)
		}
		runs, err := s.ListRuns(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, CacheEntry{
			Seq:         c.Seq,
			Key:         c.ID,
			Top:         c.Top,
			Package:     c.Package,
			ProgramHash: c.ProgramHash,
			Decls:       decls,
			FuncCount:   c.FuncCount,
			Runs:        len(runs),
		})
	}
	return entries, nil
}

func runCacheClear(opts *CacheOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	s, err := openCache(opts)
	if err != nil {
		_ = formatter.Error(ErrCodeCache, err.Error(), nil)
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	n, err := s.Clear(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeCache, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to clear cache", err)
	}
	opts.logger().Info("cleared compilation cache", "path", opts.Path, "removed", n)

	if formatter.Format == "json" {
		return formatter.Success(map[string]int64{"removed": n})
	}
	fmt.Fprintf(formatter.Writer, "✓ Removed %d compilation(s)\n", n)
	return nil
}

// shortHash abbreviates a cache key for text output.
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
