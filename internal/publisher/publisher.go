package publisher

import (
	"context"

	"github.com/rosterhub/syncledger/internal/domain"
)

// Publisher announces newly created sync jobs to the message broker so
// external extraction workers can pick them up. Delivery is best-effort:
// the ledger never fails a create because an announcement could not be
// published.
type Publisher interface {
	JobCreated(ctx context.Context, job *domain.SyncJob) error
	Close() error
}
