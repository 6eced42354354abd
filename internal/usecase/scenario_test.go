package usecase

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/rosterhub/syncledger/internal/domain"
	mockrepo "github.com/rosterhub/syncledger/internal/repository/mock"
)

// TestFullJobLifecycle walks one roster sync end to end: create, start,
// progress, a per-record error, completion, and a follow-up create after
// the key is consumed.
func TestFullJobLifecycle(t *testing.T) {
	jobs := mockrepo.NewJobRepository()
	errs := mockrepo.NewErrorRepository(jobs)
	log := zap.NewNop()
	ledger := NewJobLedger(jobs, errs, nil, log)
	errorLog := NewErrorLog(errs, log)
	summary := NewSummary(jobs, nil, log)
	ctx := context.Background()

	a, err := ledger.Create(ctx, &CreateJobInput{
		OwnerID:     "d1",
		Source:      domain.SourceSIS,
		EntityTypes: []domain.EntityType{domain.EntityUsers, domain.EntityClasses},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Status != domain.StatusPending {
		t.Fatalf("expected pending, got %s", a.Status)
	}

	running, err := ledger.Start(ctx, a.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if running.Status != domain.StatusRunning || running.StartedAt == nil {
		t.Fatal("expected running with startedAt set")
	}

	processed, created, updated := int64(100), int64(40), int64(60)
	after, err := ledger.UpdateProgress(ctx, a.ID, domain.ProgressUpdate{
		ProcessedRecords: &processed,
		CreatedRecords:   &created,
		UpdatedRecords:   &updated,
	})
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if after.ProcessedRecords != 100 || after.CreatedRecords != 40 || after.UpdatedRecords != 60 {
		t.Fatalf("unexpected counters: %+v", after)
	}
	if after.Status != domain.StatusRunning {
		t.Fatalf("progress must not change status, got %s", after.Status)
	}

	if _, err := errorLog.Record(ctx, &RecordErrorInput{
		JobID:        a.ID,
		EntityType:   "user",
		ExternalID:   "stu-1",
		ErrorType:    domain.ErrorTypeValidation,
		ErrorMessage: "bad email",
	}); err != nil {
		t.Fatalf("record error: %v", err)
	}
	withErr, _ := ledger.Get(ctx, a.ID)
	if withErr.ErrorRecords != 1 {
		t.Fatalf("expected error_records 1, got %d", withErr.ErrorRecords)
	}

	done, err := ledger.Complete(ctx, a.ID, domain.ProgressUpdate{})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != domain.StatusCompleted || done.CompletedAt == nil {
		t.Fatal("expected completed with completedAt set")
	}
	if done.ProcessedRecords != 100 || done.CreatedRecords != 40 || done.UpdatedRecords != 60 {
		t.Fatalf("completion changed counters: %+v", done)
	}

	// Same logical inputs, same day: the key is consumed, so a new job
	// appears under the original key plus a timestamp suffix.
	b, err := ledger.Create(ctx, &CreateJobInput{
		OwnerID:     "d1",
		Source:      domain.SourceSIS,
		EntityTypes: []domain.EntityType{domain.EntityUsers, domain.EntityClasses},
	})
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if b.ID == a.ID {
		t.Fatal("expected a new job after A went terminal")
	}
	if !strings.HasPrefix(b.IdempotencyKey, a.IdempotencyKey+"-") {
		t.Fatalf("expected key %q + suffix, got %q", a.IdempotencyKey, b.IdempotencyKey)
	}

	s, err := summary.Summarize(ctx, "d1")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if s.Total != 2 || s.Completed != 1 || s.Pending != 1 {
		t.Fatalf("unexpected rollup: %+v", s)
	}
	if s.TotalRecordsProcessed != 100 || s.TotalErrors != 1 {
		t.Fatalf("unexpected totals: %+v", s)
	}
}
