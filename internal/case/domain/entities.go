package domain

import (
	"time"

	"github.com/citypd/platform/internal/shared/types"
)

// Witness is a person recorded at a crime scene
type Witness struct {
	ID         types.ID  `json:"id"`
	CaseID     types.ID  `json:"case_id"`
	FullName   string    `json:"full_name"`
	NationalID string    `json:"national_id,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Statement  string    `json:"statement,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// CaseEventType defines types of case journal entries
type CaseEventType string

const (
	CaseEventComplaintSubmitted   CaseEventType = "complaint_submitted"
	CaseEventSceneReported        CaseEventType = "scene_reported"
	CaseEventSceneApproved        CaseEventType = "scene_approved"
	CaseEventSceneDenied          CaseEventType = "scene_denied"
	CaseEventInternApproved       CaseEventType = "intern_approved"
	CaseEventInternRejected       CaseEventType = "intern_rejected"
	CaseEventComplaintVoided      CaseEventType = "complaint_voided"
	CaseEventOfficerApproved      CaseEventType = "officer_approved"
	CaseEventOfficerRejected      CaseEventType = "officer_rejected"
	CaseEventComplaintResubmitted CaseEventType = "complaint_resubmitted"
	CaseEventComplainantAdded     CaseEventType = "complainant_added"
	CaseEventComplainantReviewed  CaseEventType = "complainant_reviewed"
	CaseEventDetectiveAssigned    CaseEventType = "detective_assigned"
	CaseEventSentToCourt          CaseEventType = "sent_to_court"
	CaseEventSuspectAdded         CaseEventType = "suspect_added"
	CaseEventSuspectArrested      CaseEventType = "suspect_arrested"
	CaseEventSuspectHighAlert     CaseEventType = "suspect_high_alert"
	CaseEventSuspectsSubmitted    CaseEventType = "suspects_submitted"
	CaseEventSuspectsReviewed     CaseEventType = "suspects_reviewed"
	CaseEventAssessmentRecorded   CaseEventType = "assessment_recorded"
	CaseEventCaptainDecided       CaseEventType = "captain_decided"
	CaseEventChiefReviewed        CaseEventType = "chief_reviewed"
	CaseEventVerdictRecorded      CaseEventType = "verdict_recorded"
	CaseEventClosed               CaseEventType = "closed"
)

// CaseEvent is one entry of the case journal
type CaseEvent struct {
	ID        types.ID       `json:"id"`
	CaseID    types.ID       `json:"case_id"`
	Type      CaseEventType  `json:"type"`
	Actor     types.ID       `json:"actor"`
	Details   string         `json:"details"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
