package feed

import (
	"time"
)

type ImportStatus string

const (
	ImportStatusNew        ImportStatus = "new"
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusFailed     ImportStatus = "failed"
	ImportStatusCompleted  ImportStatus = "completed"
)

// ImportState tracks an item through the claim/extract/finalize pipeline.
// Exactly one of the four statuses holds at any time. LastRequestedAt is
// carried forward unchanged across every transition; LastSuccessAt is only
// set going into Completed and is preserved through later Processing/Failed
// states. States are values; callers construct the next state and persist it.
type ImportState struct {
	Status          ImportStatus
	ShouldFetch     bool
	LastRequestedAt time.Time
	StartedAt       *time.Time
	FailedAt        *time.Time
	LastSuccessAt   *time.Time
	ErrorMessage    string
}

// NewImportState is the state of a freshly created item: not yet claimed,
// eligible for fetching.
func NewImportState(requestedAt time.Time) ImportState {
	return ImportState{
		Status:          ImportStatusNew,
		ShouldFetch:     true,
		LastRequestedAt: requestedAt,
	}
}

// Processing claims the item for exactly one orchestrator run.
func (s ImportState) Processing(startedAt time.Time) ImportState {
	return ImportState{
		Status:          ImportStatusProcessing,
		ShouldFetch:     false,
		LastRequestedAt: s.LastRequestedAt,
		StartedAt:       &startedAt,
		LastSuccessAt:   s.LastSuccessAt,
	}
}

// Failed is terminal unless a user explicitly re-requests the import.
// ShouldFetch stays false so the item is never auto-retried.
func (s ImportState) Failed(message string, failedAt time.Time) ImportState {
	return ImportState{
		Status:          ImportStatusFailed,
		ShouldFetch:     false,
		LastRequestedAt: s.LastRequestedAt,
		FailedAt:        &failedAt,
		LastSuccessAt:   s.LastSuccessAt,
		ErrorMessage:    message,
	}
}

// Completed is terminal success.
func (s ImportState) Completed(completedAt time.Time) ImportState {
	return ImportState{
		Status:          ImportStatusCompleted,
		ShouldFetch:     false,
		LastRequestedAt: s.LastRequestedAt,
		LastSuccessAt:   &completedAt,
	}
}

// IsRetryable reports whether a new import attempt may claim the item.
// An item currently being processed must not be re-claimed.
func (s ImportState) IsRetryable() bool {
	return s.Status != ImportStatusProcessing
}
