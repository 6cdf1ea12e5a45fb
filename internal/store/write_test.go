package store

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/roach88/bingen/internal/testutil"
)

func TestPutCompilation_AssignsSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq1, err := s.PutCompilation(ctx, createTestCompilation(t, "formats: a: \"any\"", "a"))
	if err != nil {
		t.Fatalf("PutCompilation() failed: %v", err)
	}
	seq2, err := s.PutCompilation(ctx, createTestCompilation(t, "formats: b: \"any\"", "b"))
	if err != nil {
		t.Fatalf("PutCompilation() failed: %v", err)
	}
	if seq1 != 1 || seq2 != 2 {
		t.Errorf("seqs = %d, %d, want 1, 2", seq1, seq2)
	}
}

func TestPutCompilation_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c := createTestCompilation(t, "formats: a: \"any\"", "a")
	first, err := s.PutCompilation(ctx, c)
	if err != nil {
		t.Fatalf("first PutCompilation() failed: %v", err)
	}

	c.Source = []byte("package other\n")
	second, err := s.PutCompilation(ctx, c)
	if err != nil {
		t.Fatalf("second PutCompilation() failed: %v", err)
	}
	if first != second {
		t.Errorf("duplicate key got seq %d, want %d", second, first)
	}

	got, ok, err := s.GetCompilation(ctx, c.ID)
	if err != nil || !ok {
		t.Fatalf("GetCompilation() = %v, %v", ok, err)
	}
	if string(got.Source) != "package decoders\n" {
		t.Errorf("first write should win, got %q", got.Source)
	}
}

func TestRecordRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c := createTestCompilation(t, "formats: a: \"any\"", "a")
	if _, err := s.PutCompilation(ctx, c); err != nil {
		t.Fatalf("PutCompilation() failed: %v", err)
	}

	r1, err := s.RecordRun(ctx, c.ID, "a.cue", false)
	if err != nil {
		t.Fatalf("RecordRun() failed: %v", err)
	}
	r2, err := s.RecordRun(ctx, c.ID, "a.cue", true)
	if err != nil {
		t.Fatalf("RecordRun() failed: %v", err)
	}

	if r1.Seq != 1 || r2.Seq != 2 {
		t.Errorf("run seqs = %d, %d, want 1, 2", r1.Seq, r2.Seq)
	}
	id, err := uuid.Parse(r1.ID)
	if err != nil {
		t.Fatalf("run id %q is not a UUID: %v", r1.ID, err)
	}
	if id.Version() != 7 {
		t.Errorf("run id version = %d, want 7", id.Version())
	}
	if r1.ID == r2.ID {
		t.Error("run ids must be unique")
	}
}

func TestRecordRun_UnknownCompilation(t *testing.T) {
	s := createTestStore(t)

	if _, err := s.RecordRun(context.Background(), "missing", "a.cue", false); err == nil {
		t.Error("expected foreign key error")
	}
}

func TestClear_CascadesRuns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c := createTestCompilation(t, "formats: a: \"any\"", "a")
	if _, err := s.PutCompilation(ctx, c); err != nil {
		t.Fatalf("PutCompilation() failed: %v", err)
	}
	if _, err := s.RecordRun(ctx, c.ID, "a.cue", false); err != nil {
		t.Fatalf("RecordRun() failed: %v", err)
	}

	n, err := s.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Clear() removed %d compilations, want 1", n)
	}

	runs, err := s.ListRuns(ctx, "")
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("runs survived Clear(): %v", runs)
	}
}

func TestRecordRun_InjectedIDs(t *testing.T) {
	s := createTestStore(t)
	s.SetIDGenerator(testutil.NewSequentialIDGenerator("run"))
	ctx := context.Background()

	c := createTestCompilation(t, "formats: a: \"any\"", "a")
	if _, err := s.PutCompilation(ctx, c); err != nil {
		t.Fatalf("PutCompilation() failed: %v", err)
	}
	for _, want := range []string{"run-0001", "run-0002"} {
		r, err := s.RecordRun(ctx, c.ID, "a.cue", false)
		if err != nil {
			t.Fatalf("RecordRun() failed: %v", err)
		}
		if r.ID != want {
			t.Errorf("run id = %q, want %q", r.ID, want)
		}
	}
}
