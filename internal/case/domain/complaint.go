package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/citypd/platform/internal/shared/errors"
	"github.com/citypd/platform/internal/shared/types"
)

// MaxComplaintAttempts is the number of cadet rejections after which a
// complaint is voided for good.
const MaxComplaintAttempts = 3

// Stage is the position of a complaint in its review loop
type Stage string

const (
	StageToCadet               Stage = "to_cadet"
	StageToOfficer             Stage = "to_officer"
	StageReturnedToComplainant Stage = "returned_to_complainant"
	StageReturnedToCadet       Stage = "returned_to_cadet"
	StageFormed                Stage = "formed"
	StageVoided                Stage = "voided"
)

// ComplaintSubmission tracks the review loop of a complaint case
type ComplaintSubmission struct {
	ID               types.ID  `json:"id"`
	CaseID           types.ID  `json:"case_id"`
	Complainant      types.ID  `json:"complainant"`
	Stage            Stage     `json:"stage"`
	AttemptCount     int       `json:"attempt_count"`
	InternNote       string    `json:"intern_note,omitempty"`
	OfficerNote      string    `json:"officer_note,omitempty"`
	LastErrorMessage string    `json:"last_error_message,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ComplainantStatus is the cadet's verdict on one complainant
type ComplainantStatus string

const (
	ComplainantPending  ComplainantStatus = "pending"
	ComplainantApproved ComplainantStatus = "approved"
	ComplainantRejected ComplainantStatus = "rejected"
)

// Complainant links a user to a case. Unique per (case, user).
type Complainant struct {
	ID         types.ID          `json:"id"`
	CaseID     types.ID          `json:"case_id"`
	User       types.ID          `json:"user"`
	Status     ComplainantStatus `json:"status"`
	ReviewNote string            `json:"review_note,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// ResubmitChanges carries the edits a complainant may make when resubmitting.
type ResubmitChanges struct {
	Title                  *string
	Description            *string
	Severity               *Severity
	AdditionalComplainants []types.ID
}

func (c *Case) requireComplaint() (*ComplaintSubmission, error) {
	if c.Source != SourceComplaint || c.Complaint == nil {
		return nil, errors.InvalidState("case has no complaint submission")
	}
	if err := c.ensureActive(); err != nil {
		return nil, err
	}
	if c.Complaint.Stage == StageVoided {
		return nil, errors.InvalidState("complaint is voided")
	}
	return c.Complaint, nil
}

func (c *Case) requireStage(allowed ...Stage) (*ComplaintSubmission, error) {
	sub, err := c.requireComplaint()
	if err != nil {
		return nil, err
	}
	for _, s := range allowed {
		if sub.Stage == s {
			return sub, nil
		}
	}
	return nil, errors.InvalidState(fmt.Sprintf("complaint is at stage %s", sub.Stage))
}

// CountComplainants returns how many complainants have the given status.
func (c *Case) CountComplainants(status ComplainantStatus) int {
	n := 0
	for _, cc := range c.Complainants {
		if cc.Status == status {
			n++
		}
	}
	return n
}

// InternApprove forwards a complaint from the cadet to an officer. Every
// complainant must have been reviewed first.
func (c *Case) InternApprove(actor types.ID, note string) error {
	sub, err := c.requireStage(StageToCadet, StageReturnedToCadet)
	if err != nil {
		return err
	}
	if pending := c.CountComplainants(ComplainantPending); pending > 0 {
		return errors.Validation("all complainants must be reviewed before approval", map[string]string{
			"pending_complainants": fmt.Sprintf("%d", pending),
		})
	}

	sub.Stage = StageToOfficer
	sub.InternNote = note
	sub.LastErrorMessage = ""
	sub.UpdatedAt = time.Now()
	return c.transition(CaseStatusUnderReview, actor, CaseEventInternApproved, "Cadet forwarded complaint to officer", map[string]any{
		"stage": sub.Stage,
	})
}

// InternReject returns a complaint to the complainant. The third rejection
// voids the case.
func (c *Case) InternReject(actor types.ID, note string) error {
	sub, err := c.requireStage(StageToCadet, StageReturnedToCadet)
	if err != nil {
		return err
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return errors.Validation("a rejection note is required", map[string]string{"note": "required"})
	}

	sub.AttemptCount++
	sub.InternNote = note
	sub.LastErrorMessage = note
	sub.UpdatedAt = time.Now()

	if sub.AttemptCount >= MaxComplaintAttempts {
		sub.Stage = StageVoided
		return c.transition(CaseStatusVoid, actor, CaseEventComplaintVoided, "Complaint voided after repeated rejection", map[string]any{
			"attempt_count": sub.AttemptCount,
			"note":          note,
		})
	}

	sub.Stage = StageReturnedToComplainant
	return c.transition(CaseStatusDraft, actor, CaseEventInternRejected, "Cadet returned complaint to complainant", map[string]any{
		"attempt_count": sub.AttemptCount,
		"note":          note,
	})
}

// OfficerApprove forms the case once at least one complainant is approved
// and none is pending.
func (c *Case) OfficerApprove(actor types.ID, note string) error {
	sub, err := c.requireStage(StageToOfficer)
	if err != nil {
		return err
	}
	if c.CountComplainants(ComplainantApproved) == 0 {
		return errors.Validation("at least one complainant must be approved", map[string]string{
			"complainants": "none approved",
		})
	}
	if c.CountComplainants(ComplainantPending) > 0 {
		return errors.Validation("all complainants must be reviewed before approval", map[string]string{
			"complainants": "pending review",
		})
	}

	sub.Stage = StageFormed
	sub.OfficerNote = note
	sub.LastErrorMessage = ""
	sub.UpdatedAt = time.Now()
	return c.transition(CaseStatusOpen, actor, CaseEventOfficerApproved, "Officer formed the case", map[string]any{
		"stage": sub.Stage,
	})
}

// OfficerReject sends a complaint back to the cadet.
func (c *Case) OfficerReject(actor types.ID, note string) error {
	sub, err := c.requireStage(StageToOfficer)
	if err != nil {
		return err
	}

	sub.Stage = StageReturnedToCadet
	sub.OfficerNote = note
	sub.LastErrorMessage = note
	sub.UpdatedAt = time.Now()
	return c.transition(CaseStatusUnderReview, actor, CaseEventOfficerRejected, "Officer returned complaint to cadet", map[string]any{
		"stage": sub.Stage,
		"note":  note,
	})
}

// Resubmit puts a returned complaint back in front of the cadet.
func (c *Case) Resubmit(actor types.ID, changes ResubmitChanges) error {
	sub, err := c.requireStage(StageReturnedToComplainant)
	if err != nil {
		return err
	}
	if sub.AttemptCount >= MaxComplaintAttempts {
		return errors.InvalidState("complaint has no attempts left")
	}

	details := map[string]string{}
	if changes.Title != nil && strings.TrimSpace(*changes.Title) == "" {
		details["title"] = "must not be empty"
	}
	if changes.Description != nil && strings.TrimSpace(*changes.Description) == "" {
		details["description"] = "must not be empty"
	}
	if changes.Severity != nil && !changes.Severity.Valid() {
		details["severity"] = "must be between 1 and 4"
	}
	if len(details) > 0 {
		return errors.Validation("invalid resubmission", details)
	}

	if changes.Title != nil {
		c.Title = strings.TrimSpace(*changes.Title)
	}
	if changes.Description != nil {
		c.Description = strings.TrimSpace(*changes.Description)
	}
	if changes.Severity != nil {
		c.Severity = *changes.Severity
	}

	now := time.Now()
	added := 0
	for _, id := range types.UniqueIDs(changes.AdditionalComplainants) {
		if c.IsComplainant(id) {
			continue
		}
		c.addComplainant(id, now)
		added++
	}

	sub.Stage = StageToCadet
	sub.LastErrorMessage = ""
	sub.UpdatedAt = now
	return c.transition(CaseStatusUnderReview, actor, CaseEventComplaintResubmitted, "Complaint resubmitted", map[string]any{
		"attempt_count":      sub.AttemptCount,
		"complainants_added": added,
	})
}

// AddComplainant attaches another complainant. Complaint cases accept new
// complainants only while the complaint is with the cadet or the
// complainant; scene cases accept them until the case is terminal.
func (c *Case) AddComplainant(actor, user types.ID) (*Complainant, error) {
	if user.IsZero() {
		return nil, errors.Validation("user is required", map[string]string{"user_id": "required"})
	}
	switch c.Source {
	case SourceComplaint:
		if _, err := c.requireStage(StageToCadet, StageReturnedToCadet, StageReturnedToComplainant); err != nil {
			return nil, err
		}
	default:
		if err := c.ensureActive(); err != nil {
			return nil, err
		}
	}
	if c.IsComplainant(user) {
		return nil, errors.Validation("user is already a complainant of this case", map[string]string{
			"user_id": "duplicate",
		})
	}

	now := time.Now()
	cc := c.addComplainant(user, now)
	c.UpdatedAt = now
	c.addEvent(CaseEventComplainantAdded, actor, "Complainant added", map[string]any{
		"user_id": user,
	})
	return cc, nil
}

// ReviewComplainant records the cadet's verdict on one complainant.
func (c *Case) ReviewComplainant(actor, complainantID types.ID, approved bool, note string) (*Complainant, error) {
	if _, err := c.requireStage(StageToCadet, StageReturnedToCadet); err != nil {
		return nil, err
	}
	cc := c.findComplainant(complainantID)
	if cc == nil {
		return nil, errors.NotFound("complainant", complainantID.String())
	}
	cc.Status = ComplainantRejected
	if approved {
		cc.Status = ComplainantApproved
	}
	cc.ReviewNote = note
	cc.UpdatedAt = time.Now()
	c.UpdatedAt = cc.UpdatedAt
	c.addEvent(CaseEventComplainantReviewed, actor, "Complainant reviewed", map[string]any{
		"complainant_id": complainantID,
		"status":         cc.Status,
	})
	return cc, nil
}

func (c *Case) findComplainant(id types.ID) *Complainant {
	for i := range c.Complainants {
		if c.Complainants[i].ID == id {
			return &c.Complainants[i]
		}
	}
	return nil
}

func (c *Case) addComplainant(user types.ID, at time.Time) *Complainant {
	c.Complainants = append(c.Complainants, Complainant{
		ID:        types.NewID(),
		CaseID:    c.ID,
		User:      user,
		Status:    ComplainantPending,
		CreatedAt: at,
		UpdatedAt: at,
	})
	return &c.Complainants[len(c.Complainants)-1]
}
