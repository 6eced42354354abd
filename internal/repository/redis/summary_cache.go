package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/rosterhub/syncledger/internal/domain"
	"github.com/rosterhub/syncledger/internal/repository"
)

var _ repository.SummaryCache = (*summaryCache)(nil)

const (
	summaryKeyPrefix = "syncledger:summary:"
	summaryTTL       = 15 * time.Second
)

type summaryCache struct {
	client *goredis.Client
}

// NewSummaryCache creates a Redis-backed cache for owner summaries.
// Summaries are rollups polled by dashboards; a short TTL keeps them
// cheap without an invalidation protocol.
func NewSummaryCache(client *goredis.Client) repository.SummaryCache {
	return &summaryCache{client: client}
}

func (c *summaryCache) Get(ctx context.Context, ownerID string) (*domain.OwnerSummary, error) {
	raw, err := c.client.Get(ctx, summaryKeyPrefix+ownerID).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get summary: %w", err)
	}

	var s domain.OwnerSummary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("redis: decode summary: %w", err)
	}
	return &s, nil
}

func (c *summaryCache) Set(ctx context.Context, summary *domain.OwnerSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("redis: encode summary: %w", err)
	}
	if err := c.client.Set(ctx, summaryKeyPrefix+summary.OwnerID, raw, summaryTTL).Err(); err != nil {
		return fmt.Errorf("redis: set summary: %w", err)
	}
	return nil
}
