package storage

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"strata/internal/errors"
	"strata/internal/slogutil"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), ".strata", "journal.db")
	db, err := Open(dbPath, slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})
	return db
}

func TestDatabaseInitialization(t *testing.T) {
	db := setupTestDB(t)

	if _, err := os.Stat(db.Path()); os.IsNotExist(err) {
		t.Fatalf("Database file was not created at %s", db.Path())
	}

	version, err := db.getSchemaVersion()
	if err != nil {
		t.Fatalf("Failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("Expected schema version %d, got %d", currentSchemaVersion, version)
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	logger := slogutil.NewDiscardLogger()

	db, err := Open(dbPath, logger)
	if err != nil {
		t.Fatal(err)
	}
	run := &Run{ID: "r1", PlanID: "p1", PlanVersion: 1, StartedAt: time.Now(), FinishedAt: time.Now(), Outcome: "full-success", SummaryJSON: "{}"}
	if err := NewJournal(db).Record(context.Background(), run, nil); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = Open(dbPath, logger)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	runs, err := NewJournal(db).Runs(context.Background(), 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("Runs = %v, %v", runs, err)
	}
}

func TestJournal_RecordAndReverse(t *testing.T) {
	ctx := context.Background()
	j := NewJournal(setupTestDB(t))

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	first := &Run{ID: "run-1", PlanID: "plan-a", PlanVersion: 2, StartedAt: base, FinishedAt: base.Add(time.Second), Outcome: "full-success", Completed: 2, Rewrites: 4, SummaryJSON: `{"runId":"run-1"}`}
	moves := []Move{
		{Unit: "Button", Level: "atom", From: "src/components/Button.tsx", To: "src/components/atoms/Button.tsx"},
		{Unit: "Card", Level: "molecule", From: "src/components/Card", To: "src/components/molecules/Card"},
	}
	if err := j.Record(ctx, first, moves); err != nil {
		t.Fatalf("Record: %v", err)
	}
	second := &Run{ID: "run-2", PlanID: "plan-b", PlanVersion: 1, StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour), Outcome: "partial-success", Failed: 1, SummaryJSON: "{}"}
	if err := j.Record(ctx, second, nil); err != nil {
		t.Fatalf("Record: %v", err)
	}

	runs, err := j.Runs(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != "run-2" || runs[1].ID != "run-1" {
		t.Fatalf("Runs order wrong: %+v", runs)
	}
	if !runs[1].StartedAt.Equal(base) || runs[1].Rewrites != 4 {
		t.Errorf("run-1 = %+v", runs[1])
	}

	latest, err := j.Run(ctx, "")
	if err != nil || latest.ID != "run-2" {
		t.Fatalf("Run(latest) = %+v, %v", latest, err)
	}

	got, err := j.ReverseMoves(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	want := []Move{
		{Unit: "Card", Level: "molecule", From: "src/components/molecules/Card", To: "src/components/Card"},
		{Unit: "Button", Level: "atom", From: "src/components/atoms/Button.tsx", To: "src/components/Button.tsx"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReverseMoves = %+v, want %+v", got, want)
	}
}

func TestJournal_Missing(t *testing.T) {
	ctx := context.Background()
	j := NewJournal(setupTestDB(t))

	if _, err := j.Run(ctx, ""); !errors.HasCode(err, errors.PreconditionFailed) {
		t.Errorf("Run(empty journal) err = %v", err)
	}
	if _, err := j.Run(ctx, "nope"); !errors.HasCode(err, errors.PreconditionFailed) {
		t.Errorf("Run(nope) err = %v", err)
	}
}
