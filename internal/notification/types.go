package notification

import (
	"time"

	"github.com/citypd/platform/internal/shared/types"
)

// NotificationType identifies what happened
type NotificationType string

const (
	TypeInterrogationReady   NotificationType = "interrogation_ready"
	TypeCaptainDecision      NotificationType = "captain_decision"
	TypeChiefReviewRequested NotificationType = "chief_review_requested"
	TypeChiefDecision        NotificationType = "chief_decision"
	TypeSuspectsSubmitted    NotificationType = "suspects_submitted"
	TypeSuspectsReviewed     NotificationType = "suspects_reviewed"
	TypeDetectiveAssigned    NotificationType = "detective_assigned"
	TypeComplaintReturned    NotificationType = "complaint_returned"
	TypeCaseStatusChanged    NotificationType = "case_status_changed"
	TypeHighAlert            NotificationType = "high_alert"
)

// NotificationStatus is the delivery outcome recorded in metrics
type NotificationStatus string

const (
	StatusStored  NotificationStatus = "stored"
	StatusPushed  NotificationStatus = "pushed"
	StatusFailed  NotificationStatus = "failed"
	StatusDropped NotificationStatus = "dropped"
)

// Notification is one inbox entry for one recipient
type Notification struct {
	ID        types.ID         `json:"id"`
	Recipient types.ID         `json:"recipient"`
	CaseID    types.ID         `json:"case_id,omitempty"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Data      map[string]any   `json:"data,omitempty"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// IsRead reports whether the recipient has read the notification.
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

// Request fans one message out to several recipients
type Request struct {
	Recipients []types.ID
	CaseID     types.ID
	Type       NotificationType
	Title      string
	Message    string
	Data       map[string]any
}

// notifications expands the request into one inbox entry per distinct
// recipient.
func (r Request) notifications(now time.Time) []Notification {
	recipients := types.UniqueIDs(r.Recipients)
	out := make([]Notification, 0, len(recipients))
	for _, id := range recipients {
		out = append(out, Notification{
			ID:        types.NewID(),
			Recipient: id,
			CaseID:    r.CaseID,
			Type:      r.Type,
			Title:     r.Title,
			Message:   r.Message,
			Data:      r.Data,
			CreatedAt: now,
		})
	}
	return out
}

// ListFilter narrows an inbox listing
type ListFilter struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}
