package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rosterhub/syncledger/internal/domain"
	mockpub "github.com/rosterhub/syncledger/internal/publisher/mock"
	"github.com/rosterhub/syncledger/internal/repository"
	mockrepo "github.com/rosterhub/syncledger/internal/repository/mock"
)

func newTestLedger() (*JobLedger, *mockrepo.JobRepository, *mockrepo.ErrorRepository, *mockpub.Publisher) {
	jobs := mockrepo.NewJobRepository()
	errs := mockrepo.NewErrorRepository(jobs)
	pub := mockpub.NewPublisher()
	ledger := NewJobLedger(jobs, errs, pub, zap.NewNop())
	return ledger, jobs, errs, pub
}

func rosterInput() *CreateJobInput {
	return &CreateJobInput{
		OwnerID:     "d1",
		Source:      domain.SourceSIS,
		EntityTypes: []domain.EntityType{domain.EntityUsers, domain.EntityClasses},
	}
}

func TestCreateJob_New(t *testing.T) {
	ledger, jobs, _, pub := newTestLedger()

	job, err := ledger.Create(context.Background(), rosterInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if job.Status != domain.StatusPending {
		t.Errorf("expected pending status, got %s", job.Status)
	}
	if !strings.HasPrefix(job.IdempotencyKey, "sync-d1-") {
		t.Errorf("unexpected idempotency key: %q", job.IdempotencyKey)
	}
	if job.TotalRecords != 0 || job.ProcessedRecords != 0 || job.ErrorRecords != 0 {
		t.Error("expected all counters at zero")
	}
	if job.StartedAt != nil || job.CompletedAt != nil {
		t.Error("expected nil startedAt and completedAt on a new job")
	}
	if len(jobs.GetAll()) != 1 {
		t.Fatalf("expected 1 stored job, got %d", len(jobs.GetAll()))
	}
	if len(pub.Published) != 1 {
		t.Errorf("expected 1 published job-created event, got %d", len(pub.Published))
	}
}

func TestCreateJob_EntityTypesNormalized(t *testing.T) {
	ledger, _, _, _ := newTestLedger()

	job, err := ledger.Create(context.Background(), rosterInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// "classes" sorts before "users"
	if job.EntityTypes[0] != domain.EntityClasses || job.EntityTypes[1] != domain.EntityUsers {
		t.Errorf("expected sorted entity types, got %v", job.EntityTypes)
	}
}

func TestCreateJob_DuplicateWhileActive(t *testing.T) {
	ledger, jobs, _, _ := newTestLedger()
	ctx := context.Background()

	first, err := ledger.Create(ctx, rosterInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Entity order differs, logical intent is the same.
	second, err := ledger.Create(ctx, &CreateJobInput{
		OwnerID:     "d1",
		Source:      domain.SourceSIS,
		EntityTypes: []domain.EntityType{domain.EntityClasses, domain.EntityUsers},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("expected duplicate create to return existing job %s, got %s", first.ID, second.ID)
	}
	if len(jobs.GetAll()) != 1 {
		t.Errorf("expected 1 stored job, got %d", len(jobs.GetAll()))
	}

	// Still suppressed once the job is running.
	if _, err := ledger.Start(ctx, first.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	third, err := ledger.Create(ctx, rosterInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if third.ID != first.ID {
		t.Error("expected duplicate create to return the running job")
	}
}

func TestCreateJob_AfterTerminalDerivesNewKey(t *testing.T) {
	ledger, jobs, _, _ := newTestLedger()
	ctx := context.Background()

	first, err := ledger.Create(ctx, rosterInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ledger.Start(ctx, first.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ledger.Complete(ctx, first.ID, domain.ProgressUpdate{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := ledger.Create(ctx, rosterInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if second.ID == first.ID {
		t.Fatal("expected a fresh job after the key was consumed by a terminal run")
	}
	if !strings.HasPrefix(second.IdempotencyKey, first.IdempotencyKey+"-") {
		t.Errorf("expected suffixed key, got %q (original %q)", second.IdempotencyKey, first.IdempotencyKey)
	}
	if second.Status != domain.StatusPending {
		t.Errorf("expected pending, got %s", second.Status)
	}
	if len(jobs.GetAll()) != 2 {
		t.Errorf("expected 2 stored jobs, got %d", len(jobs.GetAll()))
	}
}

func TestCreateJob_CustomKey(t *testing.T) {
	ledger, _, _, _ := newTestLedger()
	ctx := context.Background()

	in := rosterInput()
	in.IdempotencyKey = "d1-nightly-roster-sync"
	job, err := ledger.Create(ctx, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.IdempotencyKey != "d1-nightly-roster-sync" {
		t.Errorf("expected caller key preserved, got %q", job.IdempotencyKey)
	}

	bad := rosterInput()
	bad.IdempotencyKey = "a"
	if _, err := ledger.Create(ctx, bad); !errors.Is(err, domain.ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}

	long := rosterInput()
	long.IdempotencyKey = strings.Repeat("x", 300)
	if _, err := ledger.Create(ctx, long); !errors.Is(err, domain.ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey for oversized key, got %v", err)
	}
}

func TestCreateJob_Validation(t *testing.T) {
	ledger, _, _, _ := newTestLedger()
	ctx := context.Background()

	tests := []struct {
		name string
		in   *CreateJobInput
		want error
	}{
		{"empty owner", &CreateJobInput{Source: domain.SourceSIS, EntityTypes: []domain.EntityType{domain.EntityUsers}}, domain.ErrEmptyOwner},
		{"bad source", &CreateJobInput{OwnerID: "d1", Source: "ftp", EntityTypes: []domain.EntityType{domain.EntityUsers}}, domain.ErrInvalidSource},
		{"no entity types", &CreateJobInput{OwnerID: "d1", Source: domain.SourceSIS}, domain.ErrNoEntityTypes},
		{"bad entity type", &CreateJobInput{OwnerID: "d1", Source: domain.SourceSIS, EntityTypes: []domain.EntityType{"pets"}}, domain.ErrInvalidEntityType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ledger.Create(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateJob_InitialTotalRecords(t *testing.T) {
	ledger, _, _, _ := newTestLedger()

	total := int64(1200)
	in := rosterInput()
	in.TotalRecords = &total
	job, err := ledger.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.TotalRecords != 1200 {
		t.Errorf("expected total_records 1200, got %d", job.TotalRecords)
	}
}

func TestCreateJob_PublishFailureDoesNotFailCreate(t *testing.T) {
	ledger, jobs, _, pub := newTestLedger()
	pub.PublishFn = func(ctx context.Context, job *domain.SyncJob) error {
		return errors.New("broker unavailable")
	}

	job, err := ledger.Create(context.Background(), rosterInput())
	if err != nil {
		t.Fatalf("expected create to succeed despite publish failure, got %v", err)
	}
	if job == nil || len(jobs.GetAll()) != 1 {
		t.Error("expected job to be persisted")
	}
}

func TestCreateJob_LostRaceRetries(t *testing.T) {
	ledger, jobs, _, _ := newTestLedger()

	first := true
	jobs.CreateFunc = func(ctx context.Context, job *domain.SyncJob) error {
		if first {
			first = false
			return domain.ErrDuplicateKey
		}
		jobs.CreateFunc = nil
		return jobs.Create(ctx, job)
	}

	job, err := ledger.Create(context.Background(), rosterInput())
	if err != nil {
		t.Fatalf("expected retry after lost race, got %v", err)
	}
	if job == nil {
		t.Fatal("expected a job")
	}
}

func TestStartJob(t *testing.T) {
	ledger, _, _, _ := newTestLedger()
	ctx := context.Background()

	job, _ := ledger.Create(ctx, rosterInput())

	started, err := ledger.Start(ctx, job.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if started.Status != domain.StatusRunning {
		t.Errorf("expected running, got %s", started.Status)
	}
	if started.StartedAt == nil {
		t.Error("expected startedAt to be set")
	}

	// Start only succeeds once.
	_, err = ledger.Start(ctx, job.ID)
	var transitionErr *domain.InvalidTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if transitionErr.From != domain.StatusRunning || transitionErr.To != domain.StatusRunning {
		t.Errorf("unexpected transition detail: %+v", transitionErr)
	}
}

func TestStartJob_NotFound(t *testing.T) {
	ledger, _, _, _ := newTestLedger()

	_, err := ledger.Start(context.Background(), uuid.New())
	if !errors.Is(err, domain.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestUpdateProgress_MergeSemantics(t *testing.T) {
	ledger, _, _, _ := newTestLedger()
	ctx := context.Background()

	job, _ := ledger.Create(ctx, rosterInput())
	if _, err := ledger.Start(ctx, job.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	created, updated := int64(40), int64(60)
	if _, err := ledger.UpdateProgress(ctx, job.ID, domain.ProgressUpdate{
		CreatedRecords: &created,
		UpdatedRecords: &updated,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Supplying only processedRecords must not zero the other counters.
	processed := int64(100)
	after, err := ledger.UpdateProgress(ctx, job.ID, domain.ProgressUpdate{ProcessedRecords: &processed})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if after.ProcessedRecords != 100 {
		t.Errorf("expected processed 100, got %d", after.ProcessedRecords)
	}
	if after.CreatedRecords != 40 || after.UpdatedRecords != 60 {
		t.Errorf("merge overwrote untouched counters: created=%d updated=%d", after.CreatedRecords, after.UpdatedRecords)
	}
	if after.Status != domain.StatusRunning {
		t.Errorf("progress update must not change status, got %s", after.Status)
	}
}

func TestUpdateProgress_RequiresRunning(t *testing.T) {
	ledger, _, _, _ := newTestLedger()
	ctx := context.Background()

	job, _ := ledger.Create(ctx, rosterInput())

	n := int64(10)
	_, err := ledger.UpdateProgress(ctx, job.ID, domain.ProgressUpdate{ProcessedRecords: &n})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition on pending job, got %v", err)
	}
}

func TestCompleteJob(t *testing.T) {
	ledger, _, _, _ := newTestLedger()
	ctx := context.Background()

	job, _ := ledger.Create(ctx, rosterInput())
	if _, err := ledger.Start(ctx, job.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	processed := int64(500)
	done, err := ledger.Complete(ctx, job.ID, domain.ProgressUpdate{ProcessedRecords: &processed})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.Status != domain.StatusCompleted {
		t.Errorf("expected completed, got %s", done.Status)
	}
	if done.CompletedAt == nil {
		t.Error("expected completedAt to be set")
	}
	if done.ProcessedRecords != 500 {
		t.Errorf("expected final counters merged, got %d", done.ProcessedRecords)
	}

	// No transition out of a terminal status.
	if _, err := ledger.Complete(ctx, job.ID, domain.ProgressUpdate{}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCompleteJob_RequiresRunning(t *testing.T) {
	ledger, _, _, _ := newTestLedger()
	ctx := context.Background()

	job, _ := ledger.Create(ctx, rosterInput())
	if _, err := ledger.Complete(ctx, job.ID, domain.ProgressUpdate{}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition on pending job, got %v", err)
	}
}

func TestFailJob_WithReason(t *testing.T) {
	ledger, _, errs, _ := newTestLedger()
	ctx := context.Background()

	job, _ := ledger.Create(ctx, rosterInput())
	if _, err := ledger.Start(ctx, job.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	failed, err := ledger.Fail(ctx, job.ID, "SIS connection refused")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if failed.Status != domain.StatusFailed {
		t.Errorf("expected failed, got %s", failed.Status)
	}
	if failed.CompletedAt == nil {
		t.Error("expected completedAt to be set")
	}
	if failed.ErrorRecords != 1 {
		t.Errorf("expected error_records 1 after reason recorded, got %d", failed.ErrorRecords)
	}

	rows, err := errs.ListUnresolved(ctx, job.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 job-level error row, got %d", len(rows))
	}
	if rows[0].EntityType != domain.EntityTypeJob {
		t.Errorf("expected entity type %q, got %q", domain.EntityTypeJob, rows[0].EntityType)
	}
	if rows[0].ExternalID != job.ID.String() {
		t.Errorf("expected external id %s, got %s", job.ID, rows[0].ExternalID)
	}
	if rows[0].ErrorType != domain.ErrorTypeUnknown {
		t.Errorf("expected error type unknown, got %s", rows[0].ErrorType)
	}
	if rows[0].ErrorMessage != "SIS connection refused" {
		t.Errorf("unexpected message %q", rows[0].ErrorMessage)
	}
}

func TestFailJob_PendingAllowed(t *testing.T) {
	ledger, _, _, _ := newTestLedger()
	ctx := context.Background()

	job, _ := ledger.Create(ctx, rosterInput())
	failed, err := ledger.Fail(ctx, job.ID, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if failed.Status != domain.StatusFailed {
		t.Errorf("expected failed, got %s", failed.Status)
	}
}

func TestFailJob_TerminalRejectedWithoutSideEffects(t *testing.T) {
	ledger, _, errs, _ := newTestLedger()
	ctx := context.Background()

	job, _ := ledger.Create(ctx, rosterInput())
	if _, err := ledger.Cancel(ctx, job.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := ledger.Fail(ctx, job.ID, "late failure")
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	// The reason must not be recorded when the transition is rejected.
	if n := errs.CountForJob(job.ID); n != 0 {
		t.Errorf("expected no error rows, got %d", n)
	}
}

func TestCancelJob(t *testing.T) {
	ledger, _, _, _ := newTestLedger()
	ctx := context.Background()

	pending, _ := ledger.Create(ctx, rosterInput())
	cancelled, err := ledger.Cancel(ctx, pending.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != domain.StatusCancelled || cancelled.CompletedAt == nil {
		t.Errorf("expected cancelled with completedAt, got %s", cancelled.Status)
	}

	running, _ := ledger.Create(ctx, rosterInput())
	if _, err := ledger.Start(ctx, running.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ledger.Cancel(ctx, running.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Already terminal.
	if _, err := ledger.Cancel(ctx, running.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestListForOwner(t *testing.T) {
	ledger, _, _, _ := newTestLedger()
	ctx := context.Background()

	a, _ := ledger.Create(ctx, rosterInput())
	if _, err := ledger.Cancel(ctx, a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := ledger.Create(ctx, rosterInput())

	all, err := ledger.List(ctx, "d1", repository.JobFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(all))
	}
	// Newest first.
	if all[0].ID != b.ID || all[1].ID != a.ID {
		t.Error("expected newest-first ordering")
	}
}
