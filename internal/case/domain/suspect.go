package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/citypd/platform/internal/shared/errors"
	"github.com/citypd/platform/internal/shared/types"
)

// SuspectStatus defines where a suspect stands
type SuspectStatus string

const (
	SuspectWanted    SuspectStatus = "wanted"
	SuspectHighAlert SuspectStatus = "high_alert"
	SuspectArrested  SuspectStatus = "arrested"
	SuspectCleared   SuspectStatus = "cleared"
	SuspectCriminal  SuspectStatus = "criminal"
)

// IsWanted reports whether the suspect is still at large.
func (s SuspectStatus) IsWanted() bool {
	return s == SuspectWanted || s == SuspectHighAlert
}

// Suspect is a person under investigation in one case
type Suspect struct {
	ID         types.ID      `json:"id"`
	CaseID     types.ID      `json:"case_id"`
	FullName   string        `json:"full_name"`
	NationalID string        `json:"national_id,omitempty"`
	PhotoURL   string        `json:"photo_url,omitempty"`
	Person     types.ID      `json:"person,omitempty"`
	Status     SuspectStatus `json:"status"`
	MarkedAt   time.Time     `json:"marked_at"`
	AddedBy    types.ID      `json:"added_by"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// DaysWanted is the number of whole days since the suspect was marked, or
// zero once the suspect is no longer wanted.
func (s Suspect) DaysWanted(now time.Time) int {
	if !s.Status.IsWanted() || s.MarkedAt.IsZero() || now.Before(s.MarkedAt) {
		return 0
	}
	return int(now.Sub(s.MarkedAt).Hours() / 24)
}

// SubmissionStatus is the sergeant's verdict on a main-suspect submission
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// SuspectSubmission is a detective's proposal of the main suspects
type SuspectSubmission struct {
	ID              types.ID         `json:"id"`
	CaseID          types.ID         `json:"case_id"`
	Detective       types.ID         `json:"detective"`
	Sergeant        types.ID         `json:"sergeant,omitempty"`
	SuspectIDs      []types.ID       `json:"suspect_ids"`
	Status          SubmissionStatus `json:"status"`
	DetectiveReason string           `json:"detective_reason"`
	SergeantMessage string           `json:"sergeant_message,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	ReviewedAt      *time.Time       `json:"reviewed_at,omitempty"`
}

// SuspectInput carries the fields of a new suspect
type SuspectInput struct {
	FullName   string
	NationalID string
	PhotoURL   string
	Person     types.ID
}

func (c *Case) requireInvestigating() error {
	if err := c.ensureActive(); err != nil {
		return err
	}
	if c.Status != CaseStatusInvestigating {
		return errors.InvalidState("case is not under investigation")
	}
	return nil
}

// AddSuspect records a new wanted suspect.
func (c *Case) AddSuspect(actor types.ID, in SuspectInput) (*Suspect, error) {
	if err := c.requireInvestigating(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.FullName) == "" {
		return nil, errors.Validation("full_name is required", map[string]string{"full_name": "required"})
	}

	now := time.Now()
	c.Suspects = append(c.Suspects, Suspect{
		ID:         types.NewID(),
		CaseID:     c.ID,
		FullName:   strings.TrimSpace(in.FullName),
		NationalID: strings.TrimSpace(in.NationalID),
		PhotoURL:   in.PhotoURL,
		Person:     in.Person,
		Status:     SuspectWanted,
		MarkedAt:   now,
		AddedBy:    actor,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	s := &c.Suspects[len(c.Suspects)-1]
	c.UpdatedAt = now
	c.addEvent(CaseEventSuspectAdded, actor, fmt.Sprintf("Suspect added: %s", s.FullName), map[string]any{
		"suspect_id": s.ID,
	})
	return s, nil
}

// FindSuspect returns the suspect with id, or nil.
func (c *Case) FindSuspect(id types.ID) *Suspect {
	for i := range c.Suspects {
		if c.Suspects[i].ID == id {
			return &c.Suspects[i]
		}
	}
	return nil
}

// ArrestSuspect marks a wanted suspect as arrested.
func (c *Case) ArrestSuspect(actor, suspectID types.ID) (*Suspect, error) {
	if err := c.requireInvestigating(); err != nil {
		return nil, err
	}
	s := c.FindSuspect(suspectID)
	if s == nil {
		return nil, errors.NotFound("suspect", suspectID.String())
	}
	if !s.Status.IsWanted() {
		return nil, errors.InvalidState(fmt.Sprintf("suspect is %s", s.Status))
	}
	c.arrest(actor, s)
	return s, nil
}

func (c *Case) arrest(actor types.ID, s *Suspect) {
	now := time.Now()
	s.Status = SuspectArrested
	s.UpdatedAt = now
	c.UpdatedAt = now
	c.addEvent(CaseEventSuspectArrested, actor, fmt.Sprintf("Suspect arrested: %s", s.FullName), map[string]any{
		"suspect_id": s.ID,
	})
}

// SubmitMainSuspects sends the detective's chosen suspects to a sergeant.
// Only one submission may be pending at a time.
func (c *Case) SubmitMainSuspects(detective types.ID, suspectIDs []types.ID, reason string) (*SuspectSubmission, error) {
	if err := c.requireInvestigating(); err != nil {
		return nil, err
	}
	ids := types.UniqueIDs(suspectIDs)
	if len(ids) == 0 {
		return nil, errors.Validation("at least one suspect is required", map[string]string{"suspect_ids": "required"})
	}
	if strings.TrimSpace(reason) == "" {
		return nil, errors.Validation("detective_reason is required", map[string]string{"detective_reason": "required"})
	}
	for _, id := range ids {
		if c.FindSuspect(id) == nil {
			return nil, errors.Validation("suspect does not belong to this case", map[string]string{
				"suspect_ids": id.String(),
			})
		}
	}
	for _, sub := range c.SuspectSubmissions {
		if sub.Status == SubmissionPending {
			return nil, errors.InvalidState("a suspect submission is already pending review")
		}
	}

	now := time.Now()
	c.SuspectSubmissions = append(c.SuspectSubmissions, SuspectSubmission{
		ID:              types.NewID(),
		CaseID:          c.ID,
		Detective:       detective,
		SuspectIDs:      ids,
		Status:          SubmissionPending,
		DetectiveReason: strings.TrimSpace(reason),
		CreatedAt:       now,
	})
	sub := &c.SuspectSubmissions[len(c.SuspectSubmissions)-1]
	c.UpdatedAt = now
	c.addEvent(CaseEventSuspectsSubmitted, detective, "Main suspects submitted for review", map[string]any{
		"submission_id": sub.ID,
		"suspects":      len(ids),
	})
	return sub, nil
}

// FindSubmission returns the submission with id, or nil.
func (c *Case) FindSubmission(id types.ID) *SuspectSubmission {
	for i := range c.SuspectSubmissions {
		if c.SuspectSubmissions[i].ID == id {
			return &c.SuspectSubmissions[i]
		}
	}
	return nil
}

// ReviewSubmission records the sergeant's decision. Approval arrests every
// suspect of the submission that is still wanted.
func (c *Case) ReviewSubmission(sergeant, submissionID types.ID, approved bool, message string) (*SuspectSubmission, error) {
	if err := c.requireInvestigating(); err != nil {
		return nil, err
	}
	sub := c.FindSubmission(submissionID)
	if sub == nil {
		return nil, errors.NotFound("suspect submission", submissionID.String())
	}
	if sub.Status != SubmissionPending {
		return nil, errors.InvalidState(fmt.Sprintf("submission is already %s", sub.Status))
	}
	if !approved && strings.TrimSpace(message) == "" {
		return nil, errors.Validation("a message is required when rejecting", map[string]string{
			"sergeant_message": "required",
		})
	}

	now := time.Now()
	sub.Sergeant = sergeant
	sub.SergeantMessage = message
	sub.ReviewedAt = &now
	sub.Status = SubmissionRejected
	if approved {
		sub.Status = SubmissionApproved
		for _, id := range sub.SuspectIDs {
			if s := c.FindSuspect(id); s != nil && s.Status.IsWanted() {
				c.arrest(sergeant, s)
			}
		}
	}
	c.UpdatedAt = now
	c.addEvent(CaseEventSuspectsReviewed, sergeant, "Main suspects reviewed", map[string]any{
		"submission_id": sub.ID,
		"status":        sub.Status,
	})
	return sub, nil
}

// ApprovingSergeants returns the sergeants who approved a submission that
// contains suspectID.
func (c *Case) ApprovingSergeants(suspectID types.ID) []types.ID {
	var out []types.ID
	for _, sub := range c.SuspectSubmissions {
		if sub.Status == SubmissionApproved && types.ContainsID(sub.SuspectIDs, suspectID) {
			out = append(out, sub.Sergeant)
		}
	}
	return types.UniqueIDs(out)
}
