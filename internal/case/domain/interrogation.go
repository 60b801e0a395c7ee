package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/citypd/platform/internal/shared/errors"
	"github.com/citypd/platform/internal/shared/types"
)

// Score bounds for detective, sergeant and captain assessments
const (
	MinScore = 1
	MaxScore = 10
)

// CaptainDecision records whether the captain has ruled
type CaptainDecision string

const (
	CaptainPending   CaptainDecision = "pending"
	CaptainSubmitted CaptainDecision = "submitted"
)

// CaptainOutcome is the captain's ruling
type CaptainOutcome string

const (
	CaptainOutcomePending  CaptainOutcome = "pending"
	CaptainOutcomeApproved CaptainOutcome = "approved"
	CaptainOutcomeRejected CaptainOutcome = "rejected"
)

// ChiefDecision is the chief's ruling on critical cases
type ChiefDecision string

const (
	ChiefPending     ChiefDecision = "pending"
	ChiefApproved    ChiefDecision = "approved"
	ChiefRejected    ChiefDecision = "rejected"
	ChiefNotRequired ChiefDecision = "not_required"
)

// Interrogation holds the assessments of one suspect in one case and the
// captain/chief approval chain that follows them.
type Interrogation struct {
	ID             types.ID          `json:"id"`
	CaseID         types.ID          `json:"case_id"`
	SuspectID      types.ID          `json:"suspect_id"`
	Detective      types.ID          `json:"detective,omitempty"`
	Sergeant       types.ID          `json:"sergeant,omitempty"`
	DetectiveScore *int              `json:"detective_score,omitempty"`
	SergeantScore  *int              `json:"sergeant_score,omitempty"`
	Notes          string            `json:"notes,omitempty"`
	Transcription  string            `json:"transcription,omitempty"`
	KeyValues      map[string]string `json:"key_values,omitempty"`

	CaptainDecision CaptainDecision `json:"captain_decision"`
	CaptainOutcome  CaptainOutcome  `json:"captain_outcome"`
	CaptainScore    *int            `json:"captain_score,omitempty"`
	CaptainNote     string          `json:"captain_note,omitempty"`
	CaptainBy       types.ID        `json:"captain_by,omitempty"`
	CaptainAt       *time.Time      `json:"captain_at,omitempty"`

	ChiefDecision ChiefDecision `json:"chief_decision"`
	ChiefNote     string        `json:"chief_note,omitempty"`
	ChiefBy       types.ID      `json:"chief_by,omitempty"`
	ChiefAt       *time.Time    `json:"chief_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReadyForCaptain reports whether both scores are in and the captain has
// not ruled yet.
func (it *Interrogation) ReadyForCaptain() bool {
	return it.DetectiveScore != nil && it.SergeantScore != nil && it.CaptainDecision == CaptainPending
}

// approvalInForce reports whether a captain approval stands (not overturned
// by the chief).
func (it *Interrogation) approvalInForce() bool {
	return it.CaptainOutcome == CaptainOutcomeApproved && it.ChiefDecision != ChiefRejected
}

func (it *Interrogation) reopen() {
	it.CaptainDecision = CaptainPending
	it.CaptainOutcome = CaptainOutcomePending
	it.CaptainScore = nil
	it.CaptainNote = ""
	it.CaptainBy = ""
	it.CaptainAt = nil
	it.ChiefDecision = ChiefNotRequired
	it.ChiefNote = ""
	it.ChiefBy = ""
	it.ChiefAt = nil
}

func (it Interrogation) clone() Interrogation {
	out := it
	out.DetectiveScore = copyInt(it.DetectiveScore)
	out.SergeantScore = copyInt(it.SergeantScore)
	out.CaptainScore = copyInt(it.CaptainScore)
	if it.CaptainAt != nil {
		at := *it.CaptainAt
		out.CaptainAt = &at
	}
	if it.ChiefAt != nil {
		at := *it.ChiefAt
		out.ChiefAt = &at
	}
	if it.KeyValues != nil {
		out.KeyValues = make(map[string]string, len(it.KeyValues))
		for k, v := range it.KeyValues {
			out.KeyValues[k] = v
		}
	}
	return out
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

// Assessment carries the fields a detective or sergeant may record. Nil
// fields are left unchanged.
type Assessment struct {
	DetectiveScore *int
	SergeantScore  *int
	Notes          *string
	Transcription  *string
	KeyValues      map[string]string
}

// HasDetectiveFields reports whether the detective's score is being set.
func (a Assessment) HasDetectiveFields() bool {
	return a.DetectiveScore != nil
}

// HasSergeantFields reports whether the sergeant's score is being set.
func (a Assessment) HasSergeantFields() bool {
	return a.SergeantScore != nil
}

// IsEmpty reports whether the assessment changes nothing.
func (a Assessment) IsEmpty() bool {
	return a.DetectiveScore == nil && a.SergeantScore == nil && a.Notes == nil &&
		a.Transcription == nil && len(a.KeyValues) == 0
}

func validScore(v int) bool {
	return v >= MinScore && v <= MaxScore
}

// InterrogationFor returns the interrogation of suspectID, or nil.
func (c *Case) InterrogationFor(suspectID types.ID) *Interrogation {
	for i := range c.Interrogations {
		if c.Interrogations[i].SuspectID == suspectID {
			return &c.Interrogations[i]
		}
	}
	return nil
}

// FindInterrogation returns the interrogation with id, or nil.
func (c *Case) FindInterrogation(id types.ID) *Interrogation {
	for i := range c.Interrogations {
		if c.Interrogations[i].ID == id {
			return &c.Interrogations[i]
		}
	}
	return nil
}

// RecordAssessment stores detective and/or sergeant scores for an arrested
// suspect, creating the interrogation on first use. The boolean result is
// true when this call completed the pair of scores the captain waits for.
func (c *Case) RecordAssessment(actor, suspectID types.ID, in Assessment) (*Interrogation, bool, error) {
	if err := c.requireInvestigating(); err != nil {
		return nil, false, err
	}
	s := c.FindSuspect(suspectID)
	if s == nil {
		return nil, false, errors.NotFound("suspect", suspectID.String())
	}
	if s.Status != SuspectArrested {
		return nil, false, errors.InvalidState("only arrested suspects can be interrogated")
	}
	if in.IsEmpty() {
		return nil, false, errors.Validation("nothing to record", nil)
	}
	details := map[string]string{}
	if in.DetectiveScore != nil && !validScore(*in.DetectiveScore) {
		details["detective_score"] = "must be between 1 and 10"
	}
	if in.SergeantScore != nil && !validScore(*in.SergeantScore) {
		details["sergeant_score"] = "must be between 1 and 10"
	}
	if len(details) > 0 {
		return nil, false, errors.Validation("invalid assessment", details)
	}

	now := time.Now()
	it := c.InterrogationFor(suspectID)
	if it == nil {
		c.Interrogations = append(c.Interrogations, Interrogation{
			ID:              types.NewID(),
			CaseID:          c.ID,
			SuspectID:       suspectID,
			CaptainDecision: CaptainPending,
			CaptainOutcome:  CaptainOutcomePending,
			ChiefDecision:   ChiefNotRequired,
			CreatedAt:       now,
		})
		it = &c.Interrogations[len(c.Interrogations)-1]
	}

	if it.CaptainDecision == CaptainSubmitted {
		if it.approvalInForce() {
			return nil, false, errors.InvalidState("interrogation has already been approved")
		}
		it.reopen()
	}

	scoreChanged := false
	if in.DetectiveScore != nil {
		it.DetectiveScore = copyInt(in.DetectiveScore)
		it.Detective = actor
		scoreChanged = true
	}
	if in.SergeantScore != nil {
		it.SergeantScore = copyInt(in.SergeantScore)
		it.Sergeant = actor
		scoreChanged = true
	}
	if in.Notes != nil {
		it.Notes = *in.Notes
	}
	if in.Transcription != nil {
		it.Transcription = *in.Transcription
	}
	if len(in.KeyValues) > 0 {
		if it.KeyValues == nil {
			it.KeyValues = make(map[string]string, len(in.KeyValues))
		}
		for k, v := range in.KeyValues {
			it.KeyValues[k] = v
		}
	}
	it.UpdatedAt = now
	c.UpdatedAt = now

	c.addEvent(CaseEventAssessmentRecorded, actor, "Interrogation assessment recorded", map[string]any{
		"interrogation_id": it.ID,
		"suspect_id":       suspectID,
	})
	return it, scoreChanged && it.ReadyForCaptain(), nil
}

// CaptainInput is the captain's ruling on an interrogation
type CaptainInput struct {
	Approved *bool
	Score    *int
	Note     string
}

// CaptainDecide records the captain's ruling. A non-critical approval sends
// the case to court; a critical approval waits for the chief.
func (c *Case) CaptainDecide(captain, interrogationID types.ID, in CaptainInput) (*Interrogation, error) {
	details := map[string]string{}
	if in.Approved == nil {
		details["approved"] = "required"
	}
	if in.Score == nil {
		details["captain_score"] = "required"
	} else if !validScore(*in.Score) {
		details["captain_score"] = "must be between 1 and 10"
	}
	if strings.TrimSpace(in.Note) == "" {
		details["captain_note"] = "required"
	}
	if len(details) > 0 {
		return nil, errors.Validation("invalid captain decision", details)
	}

	if err := c.requireInvestigating(); err != nil {
		return nil, err
	}
	it := c.FindInterrogation(interrogationID)
	if it == nil {
		return nil, errors.NotFound("interrogation", interrogationID.String())
	}
	if it.CaptainDecision != CaptainPending {
		return nil, errors.InvalidState("captain has already decided")
	}
	if it.DetectiveScore == nil || it.SergeantScore == nil {
		return nil, errors.InvalidState("detective and sergeant scores are required before the captain decides")
	}

	now := time.Now()
	approved := *in.Approved
	it.CaptainDecision = CaptainSubmitted
	it.CaptainScore = copyInt(in.Score)
	it.CaptainNote = strings.TrimSpace(in.Note)
	it.CaptainBy = captain
	it.CaptainAt = &now
	it.ChiefDecision = ChiefNotRequired
	it.CaptainOutcome = CaptainOutcomeRejected
	if approved {
		it.CaptainOutcome = CaptainOutcomeApproved
		if c.Severity == SeverityCritical {
			it.ChiefDecision = ChiefPending
		}
	}
	it.UpdatedAt = now
	c.UpdatedAt = now

	c.addEvent(CaseEventCaptainDecided, captain, fmt.Sprintf("Captain %s the interrogation", it.CaptainOutcome), map[string]any{
		"interrogation_id": it.ID,
		"outcome":          it.CaptainOutcome,
		"chief_decision":   it.ChiefDecision,
	})

	if approved && c.Severity != SeverityCritical {
		if err := c.transition(CaseStatusSentToCourt, captain, CaseEventSentToCourt, "Case sent to court after captain approval", map[string]any{
			"interrogation_id": it.ID,
		}); err != nil {
			return nil, err
		}
	}
	return it, nil
}

// ChiefInput is the chief's ruling on a critical interrogation
type ChiefInput struct {
	Approved *bool
	Note     string
}

// ChiefReview records the chief's ruling. Approval sends the case to
// court; rejection leaves the case under investigation.
func (c *Case) ChiefReview(chief, interrogationID types.ID, in ChiefInput) (*Interrogation, error) {
	if in.Approved == nil {
		return nil, errors.Validation("invalid chief review", map[string]string{"approved": "required"})
	}
	if err := c.ensureActive(); err != nil {
		return nil, err
	}
	it := c.FindInterrogation(interrogationID)
	if it == nil {
		return nil, errors.NotFound("interrogation", interrogationID.String())
	}
	if c.Severity != SeverityCritical {
		return nil, errors.InvalidState("chief review applies only to critical cases")
	}
	if it.CaptainDecision != CaptainSubmitted || it.CaptainOutcome != CaptainOutcomeApproved {
		return nil, errors.InvalidState("chief review requires a captain approval")
	}
	if it.ChiefDecision != ChiefPending {
		return nil, errors.InvalidState(fmt.Sprintf("chief decision is already %s", it.ChiefDecision))
	}
	approved := *in.Approved
	if !approved && strings.TrimSpace(in.Note) == "" {
		return nil, errors.Validation("a note is required when rejecting", map[string]string{"chief_note": "required"})
	}
	if approved && c.Status != CaseStatusInvestigating {
		return nil, errors.InvalidState("case is not under investigation")
	}

	now := time.Now()
	it.ChiefDecision = ChiefRejected
	if approved {
		it.ChiefDecision = ChiefApproved
	}
	it.ChiefNote = strings.TrimSpace(in.Note)
	it.ChiefBy = chief
	it.ChiefAt = &now
	it.UpdatedAt = now
	c.UpdatedAt = now

	c.addEvent(CaseEventChiefReviewed, chief, fmt.Sprintf("Chief %s the interrogation", it.ChiefDecision), map[string]any{
		"interrogation_id": it.ID,
		"decision":         it.ChiefDecision,
	})

	if approved {
		if err := c.transition(CaseStatusSentToCourt, chief, CaseEventSentToCourt, "Case sent to court after chief approval", map[string]any{
			"interrogation_id": it.ID,
		}); err != nil {
			return nil, err
		}
	}
	return it, nil
}
