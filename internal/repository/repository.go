package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rosterhub/syncledger/internal/domain"
)

// JobFilter narrows and pages ListForOwner results.
type JobFilter struct {
	// Statuses restricts results to the given set; empty means all.
	Statuses []domain.JobStatus
	Limit    int
	Offset   int
}

// ErrorFilter narrows and pages ListForJob results.
type ErrorFilter struct {
	ErrorType *domain.ErrorType
	Limit     int
	Offset    int
}

// JobUpdate is a partial update of a sync job. Nil fields are left
// untouched; the counter fields follow ProgressUpdate merge semantics.
type JobUpdate struct {
	Status      *domain.JobStatus
	StartedAt   *time.Time
	CompletedAt *time.Time
	Progress    domain.ProgressUpdate
}

// SyncJobRepository defines persistence for sync jobs.
// Implementations must be safe for concurrent use.
type SyncJobRepository interface {
	// Create inserts a new job. Returns domain.ErrDuplicateKey if the
	// idempotency key is already taken.
	Create(ctx context.Context, job *domain.SyncJob) error

	// GetByID retrieves a job by its UUID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SyncJob, error)

	// GetByKey retrieves a job by its idempotency key.
	GetByKey(ctx context.Context, key string) (*domain.SyncJob, error)

	// ListForOwner returns an owner's jobs newest-first by creation time.
	ListForOwner(ctx context.Context, ownerID string, f JobFilter) ([]*domain.SyncJob, error)

	// UpdateGuarded applies upd only while the job's current status is in
	// expected, returning the updated job. On a guard miss it returns the
	// current job together with domain.ErrStatusConflict so callers can
	// report the actual status.
	UpdateGuarded(ctx context.Context, id uuid.UUID, expected []domain.JobStatus, upd JobUpdate) (*domain.SyncJob, error)

	// Summarize computes the per-owner status rollup.
	Summarize(ctx context.Context, ownerID string) (*domain.OwnerSummary, error)
}

// SyncErrorRepository defines persistence for per-record sync errors.
// Implementations must be safe for concurrent use.
type SyncErrorRepository interface {
	// Create inserts the error row and increments the owning job's
	// error_records counter by one; both happen atomically. Returns
	// domain.ErrJobNotFound if the job does not exist.
	Create(ctx context.Context, e *domain.SyncError) error

	// GetByID retrieves an error by its UUID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SyncError, error)

	// ListForJob returns a job's errors newest-first by creation time.
	ListForJob(ctx context.Context, jobID uuid.UUID, f ErrorFilter) ([]*domain.SyncError, error)

	// ListUnresolved returns a job's unresolved errors oldest-first, the
	// order a retry loop should consume them in.
	ListUnresolved(ctx context.Context, jobID uuid.UUID) ([]*domain.SyncError, error)

	// Resolve marks an error resolved. A second call overwrites the
	// resolution and resolver; the resolved flag never reverts.
	Resolve(ctx context.Context, id uuid.UUID, resolution domain.Resolution, resolvedBy string) (*domain.SyncError, error)
}

// SummaryCache is an optional read-through cache for owner summaries.
// A nil result with a nil error is a cache miss.
type SummaryCache interface {
	Get(ctx context.Context, ownerID string) (*domain.OwnerSummary, error)
	Set(ctx context.Context, summary *domain.OwnerSummary) error
}
