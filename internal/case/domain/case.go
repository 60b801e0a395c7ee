package domain

import (
	"strings"
	"time"

	"github.com/citypd/platform/internal/shared/errors"
	"github.com/citypd/platform/internal/shared/types"
)

// CaseStatus defines the status of a case
type CaseStatus string

const (
	CaseStatusDraft         CaseStatus = "draft"
	CaseStatusUnderReview   CaseStatus = "under_review"
	CaseStatusOpen          CaseStatus = "open"
	CaseStatusInvestigating CaseStatus = "investigating"
	CaseStatusSentToCourt   CaseStatus = "sent_to_court"
	CaseStatusClosed        CaseStatus = "closed"
	CaseStatusVoid          CaseStatus = "void"
)

// IsTerminal reports whether no further transition is possible.
func (s CaseStatus) IsTerminal() bool {
	return s == CaseStatusClosed || s == CaseStatusVoid
}

// Source records how a case entered the system
type Source string

const (
	SourceComplaint Source = "complaint"
	SourceScene     Source = "scene"
)

// Severity is the crime level, 1 (least severe) to 4 (critical)
type Severity int

const (
	SeverityLevel3   Severity = 1
	SeverityLevel2   Severity = 2
	SeverityLevel1   Severity = 3
	SeverityCritical Severity = 4
)

// Valid reports whether s is one of the four levels.
func (s Severity) Valid() bool {
	return s >= SeverityLevel3 && s <= SeverityCritical
}

func (s Severity) String() string {
	switch s {
	case SeverityLevel3:
		return "level_3"
	case SeverityLevel2:
		return "level_2"
	case SeverityLevel1:
		return "level_1"
	case SeverityCritical:
		return "critical"
	}
	return "unknown"
}

// Case is the aggregate root. Every child record of a case is loaded and
// saved with it, inside one locked unit of work.
type Case struct {
	ID                types.ID   `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Source            Source     `json:"source"`
	Status            CaseStatus `json:"status"`
	Severity          Severity   `json:"severity"`
	CreatedBy         types.ID   `json:"created_by"`
	AssignedDetective types.ID   `json:"assigned_detective,omitempty"`
	SceneReportedAt   *time.Time `json:"scene_reported_at,omitempty"`

	// Embedded entities
	Complaint          *ComplaintSubmission `json:"complaint,omitempty"`
	Complainants       []Complainant        `json:"complainants"`
	Witnesses          []Witness            `json:"witnesses,omitempty"`
	Suspects           []Suspect            `json:"suspects,omitempty"`
	SuspectSubmissions []SuspectSubmission  `json:"suspect_submissions,omitempty"`
	Interrogations     []Interrogation      `json:"interrogations,omitempty"`
	CourtSessions      []CourtSession       `json:"court_sessions,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`

	// Journal entries recorded since the case was loaded (not yet persisted)
	domainEvents []CaseEvent
}

// NewComplaintCase creates a case from a citizen complaint. The submitter
// becomes the first complainant; additional complainants are deduplicated.
func NewComplaintCase(creator types.ID, title, description string, severity Severity, additional []types.ID) (*Case, error) {
	if err := validateHeader(title, description, severity); err != nil {
		return nil, err
	}
	if creator.IsZero() {
		return nil, errors.Validation("creator is required", nil)
	}

	now := time.Now()
	c := &Case{
		ID:          types.NewID(),
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Source:      SourceComplaint,
		Status:      CaseStatusUnderReview,
		Severity:    severity,
		CreatedBy:   creator,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	c.Complaint = &ComplaintSubmission{
		ID:          types.NewID(),
		CaseID:      c.ID,
		Complainant: creator,
		Stage:       StageToCadet,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	c.addComplainant(creator, now)
	for _, id := range types.UniqueIDs(additional) {
		if id == creator {
			continue
		}
		c.addComplainant(id, now)
	}

	c.addEvent(CaseEventComplaintSubmitted, creator, "Complaint submitted", map[string]any{
		"complainants": len(c.Complainants),
		"severity":     severity,
	})
	return c, nil
}

func validateHeader(title, description string, severity Severity) error {
	details := map[string]string{}
	if strings.TrimSpace(title) == "" {
		details["title"] = "required"
	}
	if strings.TrimSpace(description) == "" {
		details["description"] = "required"
	}
	if !severity.Valid() {
		details["severity"] = "must be between 1 and 4"
	}
	if len(details) > 0 {
		return errors.Validation("invalid case", details)
	}
	return nil
}

// IsComplainant reports whether user is listed as a complainant.
func (c *Case) IsComplainant(user types.ID) bool {
	for _, cc := range c.Complainants {
		if cc.User == user {
			return true
		}
	}
	return false
}

// IsParticipant reports whether user created the case or complains in it.
func (c *Case) IsParticipant(user types.ID) bool {
	return c.CreatedBy == user || c.IsComplainant(user)
}

// AssignDetective puts a detective in charge and starts the investigation.
// Reassigning during an investigation is allowed.
func (c *Case) AssignDetective(actor, detective types.ID) error {
	if detective.IsZero() {
		return errors.Validation("detective is required", map[string]string{"detective_id": "required"})
	}
	if c.Status != CaseStatusOpen && c.Status != CaseStatusInvestigating {
		return errors.InvalidState("detective can only be assigned to an open or investigating case")
	}
	previous := c.AssignedDetective
	c.AssignedDetective = detective
	return c.transition(CaseStatusInvestigating, actor, CaseEventDetectiveAssigned, "Detective assigned", map[string]any{
		"detective_id": detective,
		"previous":     previous,
	})
}

// TakeCase lets a detective assign an open case to themselves.
func (c *Case) TakeCase(detective types.ID) error {
	if c.Status != CaseStatusOpen {
		return errors.InvalidState("only open cases can be taken")
	}
	c.AssignedDetective = detective
	return c.transition(CaseStatusInvestigating, detective, CaseEventDetectiveAssigned, "Detective took the case", map[string]any{
		"detective_id": detective,
	})
}

// SendToCourt hands an investigated case to the judiciary.
func (c *Case) SendToCourt(actor types.ID, reason string) error {
	if c.Status != CaseStatusInvestigating {
		return errors.InvalidState("only investigating cases can be sent to court")
	}
	return c.transition(CaseStatusSentToCourt, actor, CaseEventSentToCourt, "Case sent to court", map[string]any{
		"reason": reason,
	})
}

// PendingEvents returns journal entries not yet persisted.
func (c *Case) PendingEvents() []CaseEvent {
	return c.domainEvents
}

// GetDomainEvents returns and clears the entries recorded since load.
func (c *Case) GetDomainEvents() []CaseEvent {
	events := c.domainEvents
	c.domainEvents = nil
	return events
}

// addEvent records a journal entry
func (c *Case) addEvent(eventType CaseEventType, actor types.ID, details string, data map[string]any) {
	c.domainEvents = append(c.domainEvents, CaseEvent{
		ID:        types.NewID(),
		CaseID:    c.ID,
		Type:      eventType,
		Actor:     actor,
		Details:   details,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// Clone returns a deep copy without pending journal entries.
func (c *Case) Clone() *Case {
	out := *c
	out.domainEvents = nil
	if c.SceneReportedAt != nil {
		at := *c.SceneReportedAt
		out.SceneReportedAt = &at
	}
	if c.Complaint != nil {
		complaint := *c.Complaint
		out.Complaint = &complaint
	}
	out.Complainants = append([]Complainant(nil), c.Complainants...)
	out.Witnesses = append([]Witness(nil), c.Witnesses...)
	out.Suspects = append([]Suspect(nil), c.Suspects...)
	out.SuspectSubmissions = make([]SuspectSubmission, len(c.SuspectSubmissions))
	for i, s := range c.SuspectSubmissions {
		s.SuspectIDs = append([]types.ID(nil), s.SuspectIDs...)
		out.SuspectSubmissions[i] = s
	}
	out.Interrogations = make([]Interrogation, len(c.Interrogations))
	for i, it := range c.Interrogations {
		out.Interrogations[i] = it.clone()
	}
	out.CourtSessions = append([]CourtSession(nil), c.CourtSessions...)
	return &out
}
