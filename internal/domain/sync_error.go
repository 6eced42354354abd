package domain

import (
	"time"

	"github.com/google/uuid"
)

// ErrorType classifies a per-record sync failure.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeMissingRef ErrorType = "missing_ref"
	ErrorTypePermission ErrorType = "permission"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// IsValid checks if the error type is a known classification.
func (e ErrorType) IsValid() bool {
	switch e {
	case ErrorTypeValidation, ErrorTypeConflict, ErrorTypeMissingRef,
		ErrorTypePermission, ErrorTypeUnknown:
		return true
	}
	return false
}

// Resolution describes how an unresolved error was dealt with.
type Resolution string

const (
	ResolutionSkipped   Resolution = "skipped"
	ResolutionManualFix Resolution = "manual_fix"
	ResolutionAutoRetry Resolution = "auto_retry"
)

// IsValid checks if the resolution is a known kind.
func (r Resolution) IsValid() bool {
	switch r {
	case ResolutionSkipped, ResolutionManualFix, ResolutionAutoRetry:
		return true
	}
	return false
}

// EntityTypeJob marks a SyncError that carries a whole-job failure reason
// rather than a single failing record.
const EntityTypeJob = "job"

// SyncError represents one failed record within a sync job, or the
// job-level failure reason. Rows are append-only; only the resolution
// workflow mutates them.
type SyncError struct {
	ID           uuid.UUID `json:"id"`
	SyncJobID    uuid.UUID `json:"sync_job_id"`
	EntityType   string    `json:"entity_type"`
	ExternalID   string    `json:"external_id"`
	ErrorType    ErrorType `json:"error_type"`
	ErrorMessage string    `json:"error_message"`
	RawData      []byte    `json:"raw_data,omitempty"`

	Resolved   bool        `json:"resolved"`
	ResolvedAt *time.Time  `json:"resolved_at,omitempty"`
	ResolvedBy *string     `json:"resolved_by,omitempty"`
	Resolution *Resolution `json:"resolution,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
