package domain

import (
	"context"

	"github.com/citypd/platform/internal/shared/types"
)

// Repository defines the interface for case persistence
type Repository interface {
	// Save inserts a new case with all of its child records.
	Save(ctx context.Context, c *Case) error
	FindByID(ctx context.Context, id types.ID) (*Case, error)

	// Update locks the case, loads it, applies fn and persists the result
	// in one transaction. If fn returns an error nothing is written.
	// Concurrent updates of the same case are serialized; the later one
	// sees the committed state of the earlier.
	Update(ctx context.Context, id types.ID, fn func(c *Case) error) (*Case, error)

	// Query operations
	List(ctx context.Context, filter ListFilter) ([]Case, int, error)
	GetEvents(ctx context.Context, caseID types.ID, limit, offset int) ([]CaseEvent, error)

	// Lookups that resolve a child record to its case
	CaseIDForInterrogation(ctx context.Context, interrogationID types.ID) (types.ID, error)
	CaseIDForSubmission(ctx context.Context, submissionID types.ID) (types.ID, error)

	// Wanted list. High-alert marking goes through Update.
	ListWantedSuspects(ctx context.Context) ([]SuspectRecord, error)
}

// ListFilter defines filters for listing cases
type ListFilter struct {
	Status      *CaseStatus `json:"status,omitempty"`
	Source      *Source     `json:"source,omitempty"`
	Severity    *Severity   `json:"severity,omitempty"`
	Detective   types.ID    `json:"detective,omitempty"`
	Participant types.ID    `json:"participant,omitempty"` // creator or complainant
	Search      string      `json:"search,omitempty"`
	Limit       int         `json:"limit,omitempty"`
	Offset      int         `json:"offset,omitempty"`
}
