package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetCompilation returns the cached compilation with the given key.
// The boolean is false when no entry exists.
func (s *Store) GetCompilation(ctx context.Context, id string) (Compilation, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, top, package, source, catalog, program_hash, decl_count, func_count, seq
		FROM compilations
		WHERE id = ?
	`, id)
	c, err := scanCompilation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Compilation{}, false, nil
	}
	if err != nil {
		return Compilation{}, false, err
	}
	return c, true, nil
}

// ListCompilations returns every cached compilation in sequence order.
// Returns an empty slice (not nil) for an empty cache.
func (s *Store) ListCompilations(ctx context.Context) ([]Compilation, error) {
	return s.FindCompilations(ctx, nil)
}

// FindCompilations returns the cached compilations matching where, in
// sequence order. A nil predicate matches every row.
func (s *Store) FindCompilations(ctx context.Context, where Predicate) ([]Compilation, error) {
	filter, params, err := compilePredicate(where)
	if err != nil {
		return nil, fmt.Errorf("compile filter: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, top, package, source, catalog, program_hash, decl_count, func_count, seq
		FROM compilations
		WHERE `+filter+`
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, params...)
	if err != nil {
		return nil, fmt.Errorf("query compilations: %w", err)
	}
	defer rows.Close()

	compilations := []Compilation{}
	for rows.Next() {
		c, err := scanCompilation(rows)
		if err != nil {
			return nil, err
		}
		compilations = append(compilations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate compilations: %w", err)
	}
	return compilations, nil
}

// ListRuns returns the runs of a compilation in sequence order, or every
// run when compilationID is empty.
func (s *Store) ListRuns(ctx context.Context, compilationID string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, compilation_id, module_path, cached
		FROM runs
		WHERE ? = '' OR compilation_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, compilationID, compilationID)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		var cached int
		if err := rows.Scan(&r.ID, &r.Seq, &r.CompilationID, &r.ModulePath, &cached); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Cached = cached != 0
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCompilation(row scanner) (Compilation, error) {
	var c Compilation
	err := row.Scan(&c.ID, &c.Top, &c.Package, &c.Source, &c.Catalog, &c.ProgramHash, &c.DeclCount, &c.FuncCount, &c.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return c, err
	}
	if err != nil {
		return c, fmt.Errorf("scan compilation: %w", err)
	}
	return c, nil
}
