package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Compilation is one cached generator output.
type Compilation struct {
	ID          string // ir.ModuleHash of (source, top, package)
	Top         string
	Package     string
	Source      []byte
	Catalog     string
	ProgramHash string
	DeclCount   int
	FuncCount   int
	Seq         int64
}

// Run records one compile request.
type Run struct {
	ID            string
	Seq           int64
	CompilationID string
	ModulePath    string
	Cached        bool
}

// PutCompilation inserts a compilation and assigns its sequence number.
// Uses ON CONFLICT(id) DO NOTHING for idempotency: writing the same key
// twice keeps the first row and returns its sequence number.
func (s *Store) PutCompilation(ctx context.Context, c Compilation) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("put compilation: %w", err)
	}
	defer tx.Rollback()

	seq, err := nextSeq(ctx, tx, "compilations")
	if err != nil {
		return 0, fmt.Errorf("put compilation: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO compilations
		(id, top, package, source, catalog, program_hash, decl_count, func_count, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		c.ID,
		c.Top,
		c.Package,
		c.Source,
		c.Catalog,
		c.ProgramHash,
		c.DeclCount,
		c.FuncCount,
		seq,
	)
	if err != nil {
		return 0, fmt.Errorf("put compilation: %w", err)
	}
	if err := tx.QueryRowContext(ctx, `SELECT seq FROM compilations WHERE id = ?`, c.ID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("put compilation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("put compilation: %w", err)
	}
	return seq, nil
}

// RecordRun appends a run for compilationID. The run gets an ID from the
// store's IDGenerator (UUIDv7 by default) and the next logical sequence
// number.
//
// Note: The compilation referenced by compilationID must exist (foreign key constraint).
func (s *Store) RecordRun(ctx context.Context, compilationID, modulePath string, cached bool) (Run, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	defer tx.Rollback()

	seq, err := nextSeq(ctx, tx, "runs")
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	run := Run{
		ID:            s.runID.Generate(),
		Seq:           seq,
		CompilationID: compilationID,
		ModulePath:    modulePath,
		Cached:        cached,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, seq, compilation_id, module_path, cached)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.Seq, run.CompilationID, run.ModulePath, boolToInt(run.Cached))
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	return run, nil
}

// Clear deletes every compilation and run. Returns the number of
// compilations removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM compilations`)
	if err != nil {
		return 0, fmt.Errorf("clear: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear: %w", err)
	}
	return n, nil
}

// nextSeq returns one past the largest seq in table.
func nextSeq(ctx context.Context, tx *sql.Tx, table string) (int64, error) {
	var seq int64
	err := tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT COALESCE(MAX(seq), 0) + 1 FROM %s`, table)).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next seq: %w", err)
	}
	return seq, nil
}
