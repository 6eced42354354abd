package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rosterhub/syncledger/internal/domain"
	"github.com/rosterhub/syncledger/internal/idempotency"
	"github.com/rosterhub/syncledger/internal/metrics"
	"github.com/rosterhub/syncledger/internal/publisher"
	"github.com/rosterhub/syncledger/internal/repository"
)

// JobLedger owns the sync job record: idempotent creation, state-machine
// enforced transitions, and progress-field merging. A single worker is
// expected to drive a given job through its lifecycle; the guarded status
// updates reject anything out of order regardless.
type JobLedger struct {
	jobs   repository.SyncJobRepository
	errs   repository.SyncErrorRepository
	pub    publisher.Publisher // optional; job-created announcements
	logger *zap.Logger
}

// NewJobLedger creates a new JobLedger. pub may be nil when no broker is
// configured.
func NewJobLedger(jobs repository.SyncJobRepository, errs repository.SyncErrorRepository, pub publisher.Publisher, logger *zap.Logger) *JobLedger {
	return &JobLedger{
		jobs:   jobs,
		errs:   errs,
		pub:    pub,
		logger: logger,
	}
}

// CreateJobInput carries the parameters for Create. IdempotencyKey and
// TotalRecords are optional.
type CreateJobInput struct {
	OwnerID        string              `json:"owner_id" binding:"required"`
	Source         domain.SyncSource   `json:"source" binding:"required"`
	EntityTypes    []domain.EntityType `json:"entity_types" binding:"required"`
	IdempotencyKey string              `json:"idempotency_key,omitempty"`
	TotalRecords   *int64              `json:"total_records,omitempty"`
}

// Create registers a new sync job, or returns the already-active job for
// the same idempotency key. A key consumed by a terminal job is re-derived
// with a timestamp suffix so re-running the same logical sync succeeds as
// a fresh job.
func (l *JobLedger) Create(ctx context.Context, in *CreateJobInput) (*domain.SyncJob, error) {
	if in.OwnerID == "" {
		return nil, domain.ErrEmptyOwner
	}
	if !in.Source.IsValid() {
		return nil, domain.ErrInvalidSource
	}
	if len(in.EntityTypes) == 0 {
		return nil, domain.ErrNoEntityTypes
	}
	for _, et := range in.EntityTypes {
		if !et.IsValid() {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidEntityType, et)
		}
	}

	now := time.Now().UTC()

	key := in.IdempotencyKey
	if key != "" {
		if !idempotency.IsValid(key) {
			return nil, &domain.InvalidKeyError{Key: key, Reason: "must be 8-255 word characters or a generated key shape"}
		}
	} else {
		key = idempotency.Derive(in.OwnerID, in.Source, in.EntityTypes, now)
	}

	// Order of the entity-type set is not meaningful; store it normalized.
	entityTypes := append([]domain.EntityType(nil), in.EntityTypes...)
	sort.Slice(entityTypes, func(i, j int) bool { return entityTypes[i] < entityTypes[j] })

	// Two attempts: the second handles losing a create race for the same
	// key against a job that immediately reached a terminal status.
	for attempt := 0; attempt < 2; attempt++ {
		existing, err := l.jobs.GetByKey(ctx, key)
		switch {
		case err == nil:
			if !existing.Status.IsTerminal() {
				// Idempotency guarantee: one outstanding job per key.
				metrics.DuplicatesSuppressed.Inc()
				l.logger.Info("Duplicate create suppressed, returning active job",
					zap.String("job_id", existing.ID.String()),
					zap.String("idempotency_key", key),
				)
				return existing, nil
			}
			// The key is consumed by history; derive a fresh one.
			key = idempotency.WithSuffix(existing.IdempotencyKey, time.Now().UTC())
		case errors.Is(err, domain.ErrJobNotFound):
			// No job under this key yet.
		default:
			return nil, err
		}

		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generate UUIDv7: %w", err)
		}

		job := &domain.SyncJob{
			ID:             id,
			OwnerID:        in.OwnerID,
			Source:         in.Source,
			EntityTypes:    entityTypes,
			Status:         domain.StatusPending,
			IdempotencyKey: key,
			CreatedAt:      time.Now().UTC(),
		}
		if in.TotalRecords != nil && *in.TotalRecords > 0 {
			job.TotalRecords = *in.TotalRecords
		}

		err = l.jobs.Create(ctx, job)
		if errors.Is(err, domain.ErrDuplicateKey) {
			// Lost the race; resolve against whoever won.
			continue
		}
		if err != nil {
			l.logger.Error("Failed to create sync job", zap.Error(err), zap.String("owner_id", in.OwnerID))
			return nil, err
		}

		metrics.JobsCreated.WithLabelValues(string(job.Source)).Inc()
		l.announce(ctx, job)

		l.logger.Info("Sync job created",
			zap.String("job_id", job.ID.String()),
			zap.String("owner_id", job.OwnerID),
			zap.String("source", string(job.Source)),
			zap.String("idempotency_key", job.IdempotencyKey),
		)
		return job, nil
	}

	return nil, domain.ErrDuplicateKey
}

// announce publishes the job-created event. Best-effort: the job exists
// either way, so publish failures are logged and counted, never surfaced.
func (l *JobLedger) announce(ctx context.Context, job *domain.SyncJob) {
	if l.pub == nil {
		return
	}
	if err := l.pub.JobCreated(ctx, job); err != nil {
		l.logger.Warn("Failed to publish job-created event",
			zap.Error(err),
			zap.String("job_id", job.ID.String()),
		)
	}
}

// Start moves a pending job to running and stamps startedAt.
func (l *JobLedger) Start(ctx context.Context, id uuid.UUID) (*domain.SyncJob, error) {
	now := time.Now().UTC()
	status := domain.StatusRunning
	return l.transition(ctx, id, status, []domain.JobStatus{domain.StatusPending}, repository.JobUpdate{
		Status:    &status,
		StartedAt: &now,
	})
}

// UpdateProgress merges the supplied counters into a running job. Omitted
// counters keep their previous values.
func (l *JobLedger) UpdateProgress(ctx context.Context, id uuid.UUID, p domain.ProgressUpdate) (*domain.SyncJob, error) {
	job, err := l.jobs.UpdateGuarded(ctx, id, []domain.JobStatus{domain.StatusRunning}, repository.JobUpdate{Progress: p})
	if errors.Is(err, domain.ErrStatusConflict) {
		return nil, &domain.InvalidTransitionError{From: job.Status, To: domain.StatusRunning}
	}
	return job, err
}

// Complete moves a running job to completed, stamps completedAt, and
// merges any final counters.
func (l *JobLedger) Complete(ctx context.Context, id uuid.UUID, final domain.ProgressUpdate) (*domain.SyncJob, error) {
	now := time.Now().UTC()
	status := domain.StatusCompleted
	return l.transition(ctx, id, status, []domain.JobStatus{domain.StatusRunning}, repository.JobUpdate{
		Status:      &status,
		CompletedAt: &now,
		Progress:    final,
	})
}

// Fail moves a pending or running job to failed. A non-empty reason is
// first recorded as a job-level sync error.
func (l *JobLedger) Fail(ctx context.Context, id uuid.UUID, reason string) (*domain.SyncJob, error) {
	if reason != "" {
		job, err := l.jobs.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !job.Status.CanTransitionTo(domain.StatusFailed) {
			return nil, &domain.InvalidTransitionError{From: job.Status, To: domain.StatusFailed}
		}

		errID, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generate UUIDv7: %w", err)
		}
		jobErr := &domain.SyncError{
			ID:           errID,
			SyncJobID:    id,
			EntityType:   domain.EntityTypeJob,
			ExternalID:   id.String(),
			ErrorType:    domain.ErrorTypeUnknown,
			ErrorMessage: reason,
			CreatedAt:    time.Now().UTC(),
		}
		if err := l.errs.Create(ctx, jobErr); err != nil {
			l.logger.Error("Failed to record job failure reason", zap.Error(err), zap.String("job_id", id.String()))
			return nil, err
		}
	}

	now := time.Now().UTC()
	status := domain.StatusFailed
	return l.transition(ctx, id, status, []domain.JobStatus{domain.StatusPending, domain.StatusRunning}, repository.JobUpdate{
		Status:      &status,
		CompletedAt: &now,
	})
}

// Cancel moves a pending or running job to cancelled. This is a logical
// transition only; in-flight work noticing it will see transition failures
// and must treat them as a stop signal.
func (l *JobLedger) Cancel(ctx context.Context, id uuid.UUID) (*domain.SyncJob, error) {
	now := time.Now().UTC()
	status := domain.StatusCancelled
	return l.transition(ctx, id, status, []domain.JobStatus{domain.StatusPending, domain.StatusRunning}, repository.JobUpdate{
		Status:      &status,
		CompletedAt: &now,
	})
}

// Get retrieves a job by id.
func (l *JobLedger) Get(ctx context.Context, id uuid.UUID) (*domain.SyncJob, error) {
	return l.jobs.GetByID(ctx, id)
}

// GetByKey retrieves a job by its idempotency key.
func (l *JobLedger) GetByKey(ctx context.Context, key string) (*domain.SyncJob, error) {
	return l.jobs.GetByKey(ctx, key)
}

// List returns an owner's jobs newest-first, optionally filtered by status.
func (l *JobLedger) List(ctx context.Context, ownerID string, f repository.JobFilter) ([]*domain.SyncJob, error) {
	if ownerID == "" {
		return nil, domain.ErrEmptyOwner
	}
	return l.jobs.ListForOwner(ctx, ownerID, f)
}

func (l *JobLedger) transition(ctx context.Context, id uuid.UUID, target domain.JobStatus, expected []domain.JobStatus, upd repository.JobUpdate) (*domain.SyncJob, error) {
	job, err := l.jobs.UpdateGuarded(ctx, id, expected, upd)
	if errors.Is(err, domain.ErrStatusConflict) {
		return nil, &domain.InvalidTransitionError{From: job.Status, To: target}
	}
	if err != nil {
		return nil, err
	}

	metrics.Transitions.WithLabelValues(string(target)).Inc()
	l.logger.Info("Sync job transitioned",
		zap.String("job_id", id.String()),
		zap.String("status", string(target)),
	)
	return job, nil
}
