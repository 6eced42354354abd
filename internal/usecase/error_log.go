package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rosterhub/syncledger/internal/domain"
	"github.com/rosterhub/syncledger/internal/metrics"
	"github.com/rosterhub/syncledger/internal/repository"
)

// resolvedBySystem is recorded when no resolver identity is supplied.
const resolvedBySystem = "system"

// ErrorLog owns per-job sync errors: append-only recording, triage-ordered
// retrieval, and the resolution workflow.
type ErrorLog struct {
	errs   repository.SyncErrorRepository
	logger *zap.Logger
}

// NewErrorLog creates a new ErrorLog.
func NewErrorLog(errs repository.SyncErrorRepository, logger *zap.Logger) *ErrorLog {
	return &ErrorLog{errs: errs, logger: logger}
}

// RecordErrorInput carries the parameters for Record. RawData is optional.
type RecordErrorInput struct {
	JobID        uuid.UUID        `json:"-"`
	EntityType   string           `json:"entity_type" binding:"required"`
	ExternalID   string           `json:"external_id"`
	ErrorType    domain.ErrorType `json:"error_type" binding:"required"`
	ErrorMessage string           `json:"error_message" binding:"required"`
	RawData      []byte           `json:"raw_data,omitempty"`
}

// Record appends an error row for the job and bumps its error_records
// counter. Recording is permitted in any job status, terminal ones
// included, so late-discovered issues are still captured.
func (e *ErrorLog) Record(ctx context.Context, in *RecordErrorInput) (*domain.SyncError, error) {
	if !in.ErrorType.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidErrorType, in.ErrorType)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate UUIDv7: %w", err)
	}

	syncErr := &domain.SyncError{
		ID:           id,
		SyncJobID:    in.JobID,
		EntityType:   in.EntityType,
		ExternalID:   in.ExternalID,
		ErrorType:    in.ErrorType,
		ErrorMessage: in.ErrorMessage,
		RawData:      in.RawData,
		CreatedAt:    time.Now().UTC(),
	}

	if err := e.errs.Create(ctx, syncErr); err != nil {
		return nil, err
	}

	metrics.ErrorsRecorded.WithLabelValues(string(in.ErrorType)).Inc()
	e.logger.Debug("Sync error recorded",
		zap.String("job_id", in.JobID.String()),
		zap.String("entity_type", in.EntityType),
		zap.String("error_type", string(in.ErrorType)),
	)
	return syncErr, nil
}

// ListForJob returns a job's errors newest-first, optionally filtered by
// error type.
func (e *ErrorLog) ListForJob(ctx context.Context, jobID uuid.UUID, f repository.ErrorFilter) ([]*domain.SyncError, error) {
	return e.errs.ListForJob(ctx, jobID, f)
}

// ListUnresolved returns a job's unresolved errors oldest-first, the order
// a retry loop should replay them in.
func (e *ErrorLog) ListUnresolved(ctx context.Context, jobID uuid.UUID) ([]*domain.SyncError, error) {
	return e.errs.ListUnresolved(ctx, jobID)
}

// Resolve marks an error resolved. Resolving an already-resolved error
// overwrites the resolution and resolver; the resolved flag never reverts.
func (e *ErrorLog) Resolve(ctx context.Context, id uuid.UUID, resolution domain.Resolution, resolvedBy string) (*domain.SyncError, error) {
	if !resolution.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidResolution, resolution)
	}
	if resolvedBy == "" {
		resolvedBy = resolvedBySystem
	}

	resolved, err := e.errs.Resolve(ctx, id, resolution, resolvedBy)
	if err != nil {
		return nil, err
	}

	metrics.ErrorsResolved.WithLabelValues(string(resolution)).Inc()
	e.logger.Debug("Sync error resolved",
		zap.String("error_id", id.String()),
		zap.String("resolution", string(resolution)),
		zap.String("resolved_by", resolvedBy),
	)
	return resolved, nil
}
