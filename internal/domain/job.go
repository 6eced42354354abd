package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a sync job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// IsTerminal returns true if the status represents a final state.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// IsValid checks if the status is a known lifecycle state.
func (s JobStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// allowedTransitions is the complete transition table. No transition is
// defined out of a terminal status.
var allowedTransitions = map[JobStatus][]JobStatus{
	StatusPending: {StatusRunning, StatusFailed, StatusCancelled},
	StatusRunning: {StatusCompleted, StatusFailed, StatusCancelled},
}

// CanTransitionTo reports whether a job in status s may move to target.
func (s JobStatus) CanTransitionTo(target JobStatus) bool {
	for _, t := range allowedTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// SyncSource represents the upstream system a sync job pulls data from.
type SyncSource string

const (
	SourceSIS       SyncSource = "sis"
	SourceVendorAPI SyncSource = "vendor_api"
	SourceCSVImport SyncSource = "csv_import"
	SourceOtherAPI  SyncSource = "other_api"
	SourceManual    SyncSource = "manual"
)

// IsValid checks if the source is supported.
func (s SyncSource) IsValid() bool {
	switch s {
	case SourceSIS, SourceVendorAPI, SourceCSVImport, SourceOtherAPI, SourceManual:
		return true
	}
	return false
}

// EntityType represents a category of roster record being synchronized.
type EntityType string

const (
	EntityUsers            EntityType = "users"
	EntitySchools          EntityType = "schools"
	EntityClasses          EntityType = "classes"
	EntityEnrollments      EntityType = "enrollments"
	EntityCourses          EntityType = "courses"
	EntityAcademicSessions EntityType = "academic_sessions"
	EntityDemographics     EntityType = "demographics"
)

// IsValid checks if the entity type is supported.
func (e EntityType) IsValid() bool {
	switch e {
	case EntityUsers, EntitySchools, EntityClasses, EntityEnrollments,
		EntityCourses, EntityAcademicSessions, EntityDemographics:
		return true
	}
	return false
}

// SyncJob represents one synchronization attempt throughout its lifecycle.
type SyncJob struct {
	ID             uuid.UUID    `json:"id"`
	OwnerID        string       `json:"owner_id"`
	Source         SyncSource   `json:"source"`
	EntityTypes    []EntityType `json:"entity_types"`
	Status         JobStatus    `json:"status"`
	IdempotencyKey string       `json:"idempotency_key"`

	TotalRecords     int64 `json:"total_records"`
	ProcessedRecords int64 `json:"processed_records"`
	CreatedRecords   int64 `json:"created_records"`
	UpdatedRecords   int64 `json:"updated_records"`
	ErrorRecords     int64 `json:"error_records"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ProgressUpdate carries a partial set of counter values. Nil fields keep
// their previous value; non-nil fields replace it (merge, not delta).
type ProgressUpdate struct {
	TotalRecords     *int64 `json:"total_records,omitempty"`
	ProcessedRecords *int64 `json:"processed_records,omitempty"`
	CreatedRecords   *int64 `json:"created_records,omitempty"`
	UpdatedRecords   *int64 `json:"updated_records,omitempty"`
	ErrorRecords     *int64 `json:"error_records,omitempty"`
}

// IsEmpty reports whether no counter is supplied.
func (p *ProgressUpdate) IsEmpty() bool {
	return p == nil || (p.TotalRecords == nil && p.ProcessedRecords == nil &&
		p.CreatedRecords == nil && p.UpdatedRecords == nil && p.ErrorRecords == nil)
}

// OwnerSummary is a read-only rollup of all sync jobs for one owner.
type OwnerSummary struct {
	OwnerID               string     `json:"owner_id"`
	Total                 int64      `json:"total"`
	Pending               int64      `json:"pending"`
	Running               int64      `json:"running"`
	Completed             int64      `json:"completed"`
	Failed                int64      `json:"failed"`
	Cancelled             int64      `json:"cancelled"`
	LastCompletedAt       *time.Time `json:"last_completed_at,omitempty"`
	TotalRecordsProcessed int64      `json:"total_records_processed"`
	TotalErrors           int64      `json:"total_errors"`
}
