package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned when a sync job cannot be found by id or key.
	ErrJobNotFound = errors.New("sync job not found")

	// ErrErrorNotFound is returned when a sync error cannot be found by id.
	ErrErrorNotFound = errors.New("sync error not found")

	// ErrDuplicateKey is returned by the store when an insert violates the
	// idempotency key uniqueness constraint.
	ErrDuplicateKey = errors.New("idempotency key already exists")

	// ErrInvalidTransition is the errors.Is target for InvalidTransitionError.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStatusConflict is returned by the store when a guarded update finds
	// the job in a status outside the expected set.
	ErrStatusConflict = errors.New("job status conflicts with expected status")

	// ErrInvalidKey is the errors.Is target for InvalidKeyError.
	ErrInvalidKey = errors.New("invalid idempotency key")

	// ErrEmptyOwner is returned when a job is created without an owner.
	ErrEmptyOwner = errors.New("owner id cannot be empty")

	// ErrInvalidSource is returned for an unknown sync source.
	ErrInvalidSource = errors.New("invalid or unsupported sync source")

	// ErrNoEntityTypes is returned when a job is created with no entity types.
	ErrNoEntityTypes = errors.New("at least one entity type is required")

	// ErrInvalidEntityType is returned for an unknown entity type.
	ErrInvalidEntityType = errors.New("invalid or unsupported entity type")

	// ErrInvalidErrorType is returned for an unknown error classification.
	ErrInvalidErrorType = errors.New("invalid or unsupported error type")

	// ErrInvalidResolution is returned for an unknown resolution kind.
	ErrInvalidResolution = errors.New("invalid or unsupported resolution")
)

// InvalidTransitionError reports a status transition not permitted by the
// job state machine. It carries both statuses so callers can decide whether
// to ignore the failure (e.g. a duplicate complete racing a cancellation).
type InvalidTransitionError struct {
	From JobStatus
	To   JobStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %q to %q", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// InvalidKeyError reports a caller-supplied idempotency key that failed
// format validation. Surfaced before any write is attempted.
type InvalidKeyError struct {
	Key    string
	Reason string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("invalid idempotency key %q: %s", e.Key, e.Reason)
}

func (e *InvalidKeyError) Is(target error) bool {
	return target == ErrInvalidKey
}
