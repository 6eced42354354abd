package mock

import (
	"context"
	"sync"

	"github.com/rosterhub/syncledger/internal/domain"
	"github.com/rosterhub/syncledger/internal/publisher"
)

// Ensure Publisher implements publisher.Publisher.
var _ publisher.Publisher = (*Publisher)(nil)

// Publisher is a mock job-event publisher for testing.
type Publisher struct {
	mu        sync.Mutex
	Published []*domain.SyncJob
	PublishFn func(ctx context.Context, job *domain.SyncJob) error
}

// NewPublisher creates a new mock publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

func (m *Publisher) JobCreated(ctx context.Context, job *domain.SyncJob) error {
	if m.PublishFn != nil {
		return m.PublishFn(ctx, job)
	}
	m.mu.Lock()
	m.Published = append(m.Published, job)
	m.mu.Unlock()
	return nil
}

func (m *Publisher) Close() error {
	return nil
}
