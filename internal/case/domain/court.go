package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/citypd/platform/internal/shared/errors"
	"github.com/citypd/platform/internal/shared/types"
)

// Verdict is the court's finding
type Verdict string

const (
	VerdictGuilty    Verdict = "guilty"
	VerdictNotGuilty Verdict = "not_guilty"
)

// Valid reports whether v is a known verdict.
func (v Verdict) Valid() bool {
	return v == VerdictGuilty || v == VerdictNotGuilty
}

// CourtSession records a verdict. A session with a suspect adjudicates that
// suspect; a session without one adjudicates the whole case.
type CourtSession struct {
	ID                    types.ID  `json:"id"`
	CaseID                types.ID  `json:"case_id"`
	SuspectID             types.ID  `json:"suspect_id,omitempty"`
	Judge                 types.ID  `json:"judge"`
	Verdict               Verdict   `json:"verdict"`
	PunishmentTitle       string    `json:"punishment_title,omitempty"`
	PunishmentDescription string    `json:"punishment_description,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}

// VerdictInput carries a judge's ruling
type VerdictInput struct {
	SuspectID             types.ID
	Verdict               Verdict
	PunishmentTitle       string
	PunishmentDescription string
}

// RecordVerdict stores a court session and finalizes the suspect's status.
// The case closes once no arrested suspect is left without a verdict.
func (c *Case) RecordVerdict(judge types.ID, in VerdictInput) (*CourtSession, error) {
	if !in.Verdict.Valid() {
		return nil, errors.Validation("invalid verdict", map[string]string{"verdict": "must be guilty or not_guilty"})
	}
	if err := c.ensureActive(); err != nil {
		return nil, err
	}
	if c.Status != CaseStatusSentToCourt {
		return nil, errors.InvalidState("case has not been sent to court")
	}

	var targets []*Suspect
	if in.SuspectID.IsZero() {
		for _, cs := range c.CourtSessions {
			if cs.SuspectID.IsZero() {
				return nil, errors.InvalidState("case already has a verdict")
			}
		}
		for i := range c.Suspects {
			if c.Suspects[i].Status == SuspectArrested {
				targets = append(targets, &c.Suspects[i])
			}
		}
	} else {
		s := c.FindSuspect(in.SuspectID)
		if s == nil {
			return nil, errors.NotFound("suspect", in.SuspectID.String())
		}
		if c.verdictFor(s.ID) != nil {
			return nil, errors.InvalidState("suspect already has a verdict")
		}
		if s.Status != SuspectArrested {
			return nil, errors.InvalidState(fmt.Sprintf("suspect is %s, not awaiting trial", s.Status))
		}
		targets = []*Suspect{s}
	}

	now := time.Now()
	c.CourtSessions = append(c.CourtSessions, CourtSession{
		ID:                    types.NewID(),
		CaseID:                c.ID,
		SuspectID:             in.SuspectID,
		Judge:                 judge,
		Verdict:               in.Verdict,
		PunishmentTitle:       strings.TrimSpace(in.PunishmentTitle),
		PunishmentDescription: strings.TrimSpace(in.PunishmentDescription),
		CreatedAt:             now,
	})
	session := c.CourtSessions[len(c.CourtSessions)-1]

	final := SuspectCleared
	if in.Verdict == VerdictGuilty {
		final = SuspectCriminal
	}
	for _, s := range targets {
		s.Status = final
		s.UpdatedAt = now
	}
	c.UpdatedAt = now
	c.addEvent(CaseEventVerdictRecorded, judge, fmt.Sprintf("Verdict recorded: %s", in.Verdict), map[string]any{
		"court_session_id": session.ID,
		"suspect_id":       in.SuspectID,
		"verdict":          in.Verdict,
	})

	if in.SuspectID.IsZero() || !c.awaitingTrial() {
		if err := c.transition(CaseStatusClosed, judge, CaseEventClosed, "Case closed by court", nil); err != nil {
			return nil, err
		}
	}
	return &session, nil
}

func (c *Case) verdictFor(suspectID types.ID) *CourtSession {
	for i := range c.CourtSessions {
		if c.CourtSessions[i].SuspectID == suspectID {
			return &c.CourtSessions[i]
		}
	}
	return nil
}

// awaitingTrial reports whether any arrested suspect still lacks a verdict.
func (c *Case) awaitingTrial() bool {
	for _, s := range c.Suspects {
		if s.Status == SuspectArrested {
			return true
		}
	}
	return false
}
