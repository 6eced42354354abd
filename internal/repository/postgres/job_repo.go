package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rosterhub/syncledger/internal/domain"
	"github.com/rosterhub/syncledger/internal/repository"
)

// Ensure pgJobRepo implements repository.SyncJobRepository.
var _ repository.SyncJobRepository = (*pgJobRepo)(nil)

const uniqueViolationCode = "23505"

const jobColumns = `id, owner_id, source, entity_types, status, idempotency_key,
	total_records, processed_records, created_records, updated_records, error_records,
	started_at, completed_at, created_at`

type pgJobRepo struct {
	pool *pgxpool.Pool
}

// NewSyncJobRepository creates a PostgreSQL-backed sync job repository.
func NewSyncJobRepository(pool *pgxpool.Pool) repository.SyncJobRepository {
	return &pgJobRepo{pool: pool}
}

func (r *pgJobRepo) Create(ctx context.Context, job *domain.SyncJob) error {
	query := `
		INSERT INTO sync_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.pool.Exec(ctx, query,
		job.ID, job.OwnerID, string(job.Source), entityTypeStrings(job.EntityTypes),
		string(job.Status), job.IdempotencyKey,
		job.TotalRecords, job.ProcessedRecords, job.CreatedRecords,
		job.UpdatedRecords, job.ErrorRecords,
		job.StartedAt, job.CompletedAt, job.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.ErrDuplicateKey
		}
		return fmt.Errorf("postgres: create sync job: %w", err)
	}
	return nil
}

func (r *pgJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.SyncJob, error) {
	query := `SELECT ` + jobColumns + ` FROM sync_jobs WHERE id = $1`
	job, err := scanJob(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("postgres: get sync job by id: %w", err)
	}
	return job, nil
}

func (r *pgJobRepo) GetByKey(ctx context.Context, key string) (*domain.SyncJob, error) {
	query := `SELECT ` + jobColumns + ` FROM sync_jobs WHERE idempotency_key = $1`
	job, err := scanJob(r.pool.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("postgres: get sync job by key: %w", err)
	}
	return job, nil
}

func (r *pgJobRepo) ListForOwner(ctx context.Context, ownerID string, f repository.JobFilter) ([]*domain.SyncJob, error) {
	query := `SELECT ` + jobColumns + ` FROM sync_jobs WHERE owner_id = $1`
	args := []any{ownerID}

	if len(f.Statuses) > 0 {
		args = append(args, statusStrings(f.Statuses))
		query += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}
	query += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list sync jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.SyncJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan sync job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list sync jobs: %w", err)
	}
	return jobs, nil
}

func (r *pgJobRepo) UpdateGuarded(ctx context.Context, id uuid.UUID, expected []domain.JobStatus, upd repository.JobUpdate) (*domain.SyncJob, error) {
	query := `
		UPDATE sync_jobs SET
			status            = COALESCE($2, status),
			started_at        = COALESCE($3, started_at),
			completed_at      = COALESCE($4, completed_at),
			total_records     = COALESCE($5, total_records),
			processed_records = COALESCE($6, processed_records),
			created_records   = COALESCE($7, created_records),
			updated_records   = COALESCE($8, updated_records),
			error_records     = COALESCE($9, error_records)
		WHERE id = $1 AND status = ANY($10)
		RETURNING ` + jobColumns

	var status *string
	if upd.Status != nil {
		s := string(*upd.Status)
		status = &s
	}

	job, err := scanJob(r.pool.QueryRow(ctx, query,
		id, status, upd.StartedAt, upd.CompletedAt,
		upd.Progress.TotalRecords, upd.Progress.ProcessedRecords,
		upd.Progress.CreatedRecords, upd.Progress.UpdatedRecords,
		upd.Progress.ErrorRecords,
		statusStrings(expected),
	))
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("postgres: update sync job: %w", err)
	}

	// Guard miss or missing row; re-read to tell them apart.
	current, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return current, domain.ErrStatusConflict
}

func (r *pgJobRepo) Summarize(ctx context.Context, ownerID string) (*domain.OwnerSummary, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'running'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			MAX(completed_at) FILTER (WHERE status = 'completed'),
			COALESCE(SUM(processed_records), 0),
			COALESCE(SUM(error_records), 0)
		FROM sync_jobs
		WHERE owner_id = $1`

	s := &domain.OwnerSummary{OwnerID: ownerID}
	err := r.pool.QueryRow(ctx, query, ownerID).Scan(
		&s.Total, &s.Pending, &s.Running, &s.Completed, &s.Failed, &s.Cancelled,
		&s.LastCompletedAt, &s.TotalRecordsProcessed, &s.TotalErrors,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: summarize owner: %w", err)
	}
	return s, nil
}

func scanJob(row pgx.Row) (*domain.SyncJob, error) {
	job := &domain.SyncJob{}
	var source, status string
	var entityTypes []string

	err := row.Scan(
		&job.ID, &job.OwnerID, &source, &entityTypes, &status, &job.IdempotencyKey,
		&job.TotalRecords, &job.ProcessedRecords, &job.CreatedRecords,
		&job.UpdatedRecords, &job.ErrorRecords,
		&job.StartedAt, &job.CompletedAt, &job.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Source = domain.SyncSource(source)
	job.Status = domain.JobStatus(status)
	job.EntityTypes = make([]domain.EntityType, len(entityTypes))
	for i, et := range entityTypes {
		job.EntityTypes[i] = domain.EntityType(et)
	}
	return job, nil
}

func entityTypeStrings(types []domain.EntityType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func statusStrings(statuses []domain.JobStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
