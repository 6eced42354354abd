// Package mock provides in-memory repository implementations for tests.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rosterhub/syncledger/internal/domain"
	"github.com/rosterhub/syncledger/internal/repository"
)

// ---- SyncJobRepository mock ----

var _ repository.SyncJobRepository = (*JobRepository)(nil)

// JobRepository is an in-memory mock of repository.SyncJobRepository.
// Insertion order stands in for creation-time order.
type JobRepository struct {
	mu    sync.RWMutex
	jobs  map[uuid.UUID]*domain.SyncJob
	byKey map[string]uuid.UUID
	order []uuid.UUID

	// Hook functions for injecting errors.
	CreateFunc        func(ctx context.Context, job *domain.SyncJob) error
	GetByIDFunc       func(ctx context.Context, id uuid.UUID) (*domain.SyncJob, error)
	GetByKeyFunc      func(ctx context.Context, key string) (*domain.SyncJob, error)
	UpdateGuardedFunc func(ctx context.Context, id uuid.UUID, expected []domain.JobStatus, upd repository.JobUpdate) (*domain.SyncJob, error)
	SummarizeFunc     func(ctx context.Context, ownerID string) (*domain.OwnerSummary, error)
}

// NewJobRepository creates a new mock job repository.
func NewJobRepository() *JobRepository {
	return &JobRepository{
		jobs:  make(map[uuid.UUID]*domain.SyncJob),
		byKey: make(map[string]uuid.UUID),
	}
}

func (m *JobRepository) Create(ctx context.Context, job *domain.SyncJob) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, job)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byKey[job.IdempotencyKey]; exists {
		return domain.ErrDuplicateKey
	}
	stored := cloneJob(job)
	m.jobs[job.ID] = stored
	m.byKey[job.IdempotencyKey] = job.ID
	m.order = append(m.order, job.ID)
	return nil
}

func (m *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SyncJob, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return cloneJob(job), nil
}

func (m *JobRepository) GetByKey(ctx context.Context, key string) (*domain.SyncJob, error) {
	if m.GetByKeyFunc != nil {
		return m.GetByKeyFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byKey[key]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return cloneJob(m.jobs[id]), nil
}

func (m *JobRepository) ListForOwner(ctx context.Context, ownerID string, f repository.JobFilter) ([]*domain.SyncJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*domain.SyncJob
	for i := len(m.order) - 1; i >= 0; i-- { // newest first
		job := m.jobs[m.order[i]]
		if job.OwnerID != ownerID {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, job.Status) {
			continue
		}
		matched = append(matched, cloneJob(job))
	}

	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}
	return matched, nil
}

func (m *JobRepository) UpdateGuarded(ctx context.Context, id uuid.UUID, expected []domain.JobStatus, upd repository.JobUpdate) (*domain.SyncJob, error) {
	if m.UpdateGuardedFunc != nil {
		return m.UpdateGuardedFunc(ctx, id, expected, upd)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	if !containsStatus(expected, job.Status) {
		return cloneJob(job), domain.ErrStatusConflict
	}

	if upd.Status != nil {
		job.Status = *upd.Status
	}
	if upd.StartedAt != nil {
		job.StartedAt = upd.StartedAt
	}
	if upd.CompletedAt != nil {
		job.CompletedAt = upd.CompletedAt
	}
	applyProgress(job, upd.Progress)
	return cloneJob(job), nil
}

func (m *JobRepository) Summarize(ctx context.Context, ownerID string) (*domain.OwnerSummary, error) {
	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, ownerID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := &domain.OwnerSummary{OwnerID: ownerID}
	for _, id := range m.order {
		job := m.jobs[id]
		if job.OwnerID != ownerID {
			continue
		}
		s.Total++
		switch job.Status {
		case domain.StatusPending:
			s.Pending++
		case domain.StatusRunning:
			s.Running++
		case domain.StatusCompleted:
			s.Completed++
			if job.CompletedAt != nil && (s.LastCompletedAt == nil || job.CompletedAt.After(*s.LastCompletedAt)) {
				t := *job.CompletedAt
				s.LastCompletedAt = &t
			}
		case domain.StatusFailed:
			s.Failed++
		case domain.StatusCancelled:
			s.Cancelled++
		}
		s.TotalRecordsProcessed += job.ProcessedRecords
		s.TotalErrors += job.ErrorRecords
	}
	return s, nil
}

// GetAll returns all stored jobs in insertion order (for test assertions).
func (m *JobRepository) GetAll() []*domain.SyncJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.SyncJob, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, cloneJob(m.jobs[id]))
	}
	return out
}

// incrementErrorRecords is used by the error repository mock to mirror the
// transactional insert+increment of the postgres implementation.
func (m *JobRepository) incrementErrorRecords(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return false
	}
	job.ErrorRecords++
	return true
}

// ---- SyncErrorRepository mock ----

var _ repository.SyncErrorRepository = (*ErrorRepository)(nil)

// ErrorRepository is an in-memory mock of repository.SyncErrorRepository.
// It shares the job repository so Create can bump error_records the way
// the postgres transaction does.
type ErrorRepository struct {
	mu     sync.RWMutex
	jobs   *JobRepository
	errors []*domain.SyncError
	byID   map[uuid.UUID]*domain.SyncError

	CreateFunc  func(ctx context.Context, e *domain.SyncError) error
	ResolveFunc func(ctx context.Context, id uuid.UUID, resolution domain.Resolution, resolvedBy string) (*domain.SyncError, error)
}

// NewErrorRepository creates a new mock error repository backed by jobs.
func NewErrorRepository(jobs *JobRepository) *ErrorRepository {
	return &ErrorRepository{
		jobs: jobs,
		byID: make(map[uuid.UUID]*domain.SyncError),
	}
}

func (m *ErrorRepository) Create(ctx context.Context, e *domain.SyncError) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, e)
	}
	if !m.jobs.incrementErrorRecords(e.SyncJobID) {
		return domain.ErrJobNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := cloneError(e)
	m.errors = append(m.errors, stored)
	m.byID[e.ID] = stored
	return nil
}

func (m *ErrorRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SyncError, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrErrorNotFound
	}
	return cloneError(e), nil
}

func (m *ErrorRepository) ListForJob(ctx context.Context, jobID uuid.UUID, f repository.ErrorFilter) ([]*domain.SyncError, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*domain.SyncError
	for i := len(m.errors) - 1; i >= 0; i-- { // newest first
		e := m.errors[i]
		if e.SyncJobID != jobID {
			continue
		}
		if f.ErrorType != nil && e.ErrorType != *f.ErrorType {
			continue
		}
		matched = append(matched, cloneError(e))
	}

	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}
	return matched, nil
}

func (m *ErrorRepository) ListUnresolved(ctx context.Context, jobID uuid.UUID) ([]*domain.SyncError, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*domain.SyncError
	for _, e := range m.errors { // oldest first
		if e.SyncJobID == jobID && !e.Resolved {
			matched = append(matched, cloneError(e))
		}
	}
	return matched, nil
}

func (m *ErrorRepository) Resolve(ctx context.Context, id uuid.UUID, resolution domain.Resolution, resolvedBy string) (*domain.SyncError, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, id, resolution, resolvedBy)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrErrorNotFound
	}
	now := time.Now().UTC()
	e.Resolved = true
	e.ResolvedAt = &now
	e.ResolvedBy = &resolvedBy
	res := resolution
	e.Resolution = &res
	return cloneError(e), nil
}

// CountForJob returns the number of stored error rows for a job.
func (m *ErrorRepository) CountForJob(jobID uuid.UUID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.errors {
		if e.SyncJobID == jobID {
			n++
		}
	}
	return n
}

// ---- helpers ----

func containsStatus(set []domain.JobStatus, s domain.JobStatus) bool {
	for _, st := range set {
		if st == s {
			return true
		}
	}
	return false
}

func applyProgress(job *domain.SyncJob, p domain.ProgressUpdate) {
	if p.TotalRecords != nil {
		job.TotalRecords = *p.TotalRecords
	}
	if p.ProcessedRecords != nil {
		job.ProcessedRecords = *p.ProcessedRecords
	}
	if p.CreatedRecords != nil {
		job.CreatedRecords = *p.CreatedRecords
	}
	if p.UpdatedRecords != nil {
		job.UpdatedRecords = *p.UpdatedRecords
	}
	if p.ErrorRecords != nil {
		job.ErrorRecords = *p.ErrorRecords
	}
}

func cloneJob(job *domain.SyncJob) *domain.SyncJob {
	c := *job
	c.EntityTypes = append([]domain.EntityType(nil), job.EntityTypes...)
	if job.StartedAt != nil {
		t := *job.StartedAt
		c.StartedAt = &t
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func cloneError(e *domain.SyncError) *domain.SyncError {
	c := *e
	c.RawData = append([]byte(nil), e.RawData...)
	if e.ResolvedAt != nil {
		t := *e.ResolvedAt
		c.ResolvedAt = &t
	}
	if e.ResolvedBy != nil {
		s := *e.ResolvedBy
		c.ResolvedBy = &s
	}
	if e.Resolution != nil {
		r := *e.Resolution
		c.Resolution = &r
	}
	return &c
}
