package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/rosterhub/syncledger/internal/domain"
	"github.com/rosterhub/syncledger/internal/repository"
)

// Summary serves read-only per-owner rollups of sync job state, optionally
// fronted by a short-TTL cache for dashboard polling.
type Summary struct {
	jobs   repository.SyncJobRepository
	cache  repository.SummaryCache // optional
	logger *zap.Logger
}

// NewSummary creates a new Summary. cache may be nil.
func NewSummary(jobs repository.SyncJobRepository, cache repository.SummaryCache, logger *zap.Logger) *Summary {
	return &Summary{jobs: jobs, cache: cache, logger: logger}
}

// Summarize returns status counts, the most recent completion time, and
// record/error totals for one owner. Cache failures fall through to the
// store.
func (s *Summary) Summarize(ctx context.Context, ownerID string) (*domain.OwnerSummary, error) {
	if ownerID == "" {
		return nil, domain.ErrEmptyOwner
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, ownerID)
		if err != nil {
			s.logger.Warn("Summary cache read failed", zap.Error(err), zap.String("owner_id", ownerID))
		} else if cached != nil {
			return cached, nil
		}
	}

	summary, err := s.jobs.Summarize(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, summary); err != nil {
			s.logger.Warn("Summary cache write failed", zap.Error(err), zap.String("owner_id", ownerID))
		}
	}
	return summary, nil
}
