package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rosterhub/syncledger/internal/domain"
	"github.com/rosterhub/syncledger/internal/repository"
)

// Ensure pgErrorRepo implements repository.SyncErrorRepository.
var _ repository.SyncErrorRepository = (*pgErrorRepo)(nil)

const errorColumns = `id, sync_job_id, entity_type, external_id, error_type, error_message,
	raw_data, resolved, resolved_at, resolved_by, resolution, created_at`

type pgErrorRepo struct {
	pool *pgxpool.Pool
}

// NewSyncErrorRepository creates a PostgreSQL-backed sync error repository.
func NewSyncErrorRepository(pool *pgxpool.Pool) repository.SyncErrorRepository {
	return &pgErrorRepo{pool: pool}
}

// Create inserts the error row and bumps the owning job's error_records
// counter in a single transaction, so the counter cannot drift from the
// row count if either write fails.
func (r *pgErrorRepo) Create(ctx context.Context, e *domain.SyncError) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin create sync error: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE sync_jobs SET error_records = error_records + 1 WHERE id = $1`,
		e.SyncJobID,
	)
	if err != nil {
		return fmt.Errorf("postgres: increment error_records: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO sync_errors (`+errorColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.SyncJobID, e.EntityType, e.ExternalID, string(e.ErrorType),
		e.ErrorMessage, e.RawData, e.Resolved, e.ResolvedAt, e.ResolvedBy,
		resolutionString(e.Resolution), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create sync error: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit create sync error: %w", err)
	}
	return nil
}

func (r *pgErrorRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.SyncError, error) {
	query := `SELECT ` + errorColumns + ` FROM sync_errors WHERE id = $1`
	e, err := scanError(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrErrorNotFound
		}
		return nil, fmt.Errorf("postgres: get sync error by id: %w", err)
	}
	return e, nil
}

func (r *pgErrorRepo) ListForJob(ctx context.Context, jobID uuid.UUID, f repository.ErrorFilter) ([]*domain.SyncError, error) {
	query := `SELECT ` + errorColumns + ` FROM sync_errors WHERE sync_job_id = $1`
	args := []any{jobID}

	if f.ErrorType != nil {
		args = append(args, string(*f.ErrorType))
		query += fmt.Sprintf(" AND error_type = $%d", len(args))
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

	return r.queryErrors(ctx, query, args...)
}

func (r *pgErrorRepo) ListUnresolved(ctx context.Context, jobID uuid.UUID) ([]*domain.SyncError, error) {
	// Oldest first: retry loops replay failures in original order.
	query := `SELECT ` + errorColumns + `
		FROM sync_errors
		WHERE sync_job_id = $1 AND resolved = FALSE
		ORDER BY created_at ASC, id ASC`

	return r.queryErrors(ctx, query, jobID)
}

func (r *pgErrorRepo) Resolve(ctx context.Context, id uuid.UUID, resolution domain.Resolution, resolvedBy string) (*domain.SyncError, error) {
	query := `
		UPDATE sync_errors SET
			resolved = TRUE, resolved_at = $2, resolved_by = $3, resolution = $4
		WHERE id = $1
		RETURNING ` + errorColumns

	e, err := scanError(r.pool.QueryRow(ctx, query, id, time.Now().UTC(), resolvedBy, string(resolution)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrErrorNotFound
		}
		return nil, fmt.Errorf("postgres: resolve sync error: %w", err)
	}
	return e, nil
}

func (r *pgErrorRepo) queryErrors(ctx context.Context, query string, args ...any) ([]*domain.SyncError, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list sync errors: %w", err)
	}
	defer rows.Close()

	var out []*domain.SyncError
	for rows.Next() {
		e, err := scanError(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan sync error: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list sync errors: %w", err)
	}
	return out, nil
}

func scanError(row pgx.Row) (*domain.SyncError, error) {
	e := &domain.SyncError{}
	var errorType string
	var resolution *string

	err := row.Scan(
		&e.ID, &e.SyncJobID, &e.EntityType, &e.ExternalID, &errorType,
		&e.ErrorMessage, &e.RawData, &e.Resolved, &e.ResolvedAt, &e.ResolvedBy,
		&resolution, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.ErrorType = domain.ErrorType(errorType)
	if resolution != nil {
		res := domain.Resolution(*resolution)
		e.Resolution = &res
	}
	return e, nil
}

func resolutionString(r *domain.Resolution) *string {
	if r == nil {
		return nil
	}
	s := string(*r)
	return &s
}
