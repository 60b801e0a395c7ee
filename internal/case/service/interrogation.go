package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/citypd/platform/internal/auth"
	"github.com/citypd/platform/internal/case/domain"
	"github.com/citypd/platform/internal/notification"
	"github.com/citypd/platform/internal/shared/errors"
	"github.com/citypd/platform/internal/shared/metrics"
	"github.com/citypd/platform/internal/shared/types"
)

// RecordAssessment stores detective and/or sergeant scores for an arrested
// suspect. Detective fields belong to the assigned or recorded detective,
// sergeant fields to an approving or recorded sergeant.
func (s *Service) RecordAssessment(ctx context.Context, p auth.Principal, caseID, suspectID types.ID, in domain.Assessment) (*domain.Interrogation, error) {
	if err := s.authority.Authorize(p, auth.ActionInterrogationManage); err != nil {
		return nil, s.rejected("record_assessment", err)
	}
	if in.HasDetectiveFields() {
		if err := s.authority.Authorize(p, auth.ActionInvestigationBoardManage); err != nil {
			return nil, s.rejected("record_assessment", err)
		}
	}
	if in.HasSergeantFields() {
		if err := s.authority.Authorize(p, auth.ActionSuspectManage); err != nil {
			return nil, s.rejected("record_assessment", err)
		}
	}

	var (
		recorded *domain.Interrogation
		ready    bool
	)
	c, err := s.update(ctx, "record_assessment", caseID, func(c *domain.Case) error {
		if c.FindSuspect(suspectID) == nil {
			return errors.NotFound("suspect", suspectID.String())
		}
		if err := checkAssessor(p, c, suspectID, in); err != nil {
			return err
		}
		it, readyNow, err := c.RecordAssessment(p.ID, suspectID, in)
		if err != nil {
			return err
		}
		copied := *it
		recorded = &copied
		ready = readyNow
		return nil
	})
	if err != nil {
		return nil, err
	}

	if ready {
		s.notify(ctx, notification.Request{
			Recipients: s.holdersOf(ctx, auth.ActionInterrogationCaptainDecision, 0),
			CaseID:     c.ID,
			Type:       notification.TypeInterrogationReady,
			Title:      "Interrogation ready for captain decision",
			Message:    c.Title,
			Data: map[string]any{
				"interrogation_id": recorded.ID,
				"suspect_id":       recorded.SuspectID,
			},
		})
	}
	return recorded, nil
}

// checkAssessor enforces ownership of the score fields
func checkAssessor(p auth.Principal, c *domain.Case, suspectID types.ID, in domain.Assessment) error {
	if p.Superuser {
		return nil
	}

	var recordedDetective, recordedSergeant types.ID
	if it := c.InterrogationFor(suspectID); it != nil {
		recordedDetective = it.Detective
		recordedSergeant = it.Sergeant
	}
	isDetective := c.AssignedDetective == p.ID || (!recordedDetective.IsZero() && recordedDetective == p.ID)
	isSergeant := types.ContainsID(c.ApprovingSergeants(suspectID), p.ID) ||
		(!recordedSergeant.IsZero() && recordedSergeant == p.ID)

	if in.HasDetectiveFields() && !isDetective {
		return errors.Forbidden("only the assigned detective may record the detective score")
	}
	if in.HasSergeantFields() && !isSergeant {
		return errors.Forbidden("only an approving sergeant may record the sergeant score")
	}
	if !isDetective && !isSergeant {
		return errors.Forbidden("only the detective or sergeant of this suspect may edit the interrogation")
	}
	return nil
}

// CaptainDecision records the captain's ruling on an interrogation
func (s *Service) CaptainDecision(ctx context.Context, p auth.Principal, interrogationID types.ID, in domain.CaptainInput) (*domain.Interrogation, error) {
	if err := s.authority.Authorize(p, auth.ActionInterrogationCaptainDecision); err != nil {
		return nil, s.rejected("captain_decision", err)
	}
	caseID, err := s.repo.CaseIDForInterrogation(ctx, interrogationID)
	if err != nil {
		return nil, err
	}

	var decided *domain.Interrogation
	c, err := s.update(ctx, "captain_decision", caseID, func(c *domain.Case) error {
		it, err := c.CaptainDecide(p.ID, interrogationID, in)
		if err != nil {
			return err
		}
		copied := *it
		decided = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}

	approved := decided.CaptainOutcome == domain.CaptainOutcomeApproved
	metrics.RecordInterrogationDecision("captain", approved)
	s.logger.Info("captain decided interrogation",
		zap.String("case_id", c.ID.String()),
		zap.String("interrogation_id", decided.ID.String()),
		zap.String("outcome", string(decided.CaptainOutcome)),
		zap.String("chief_decision", string(decided.ChiefDecision)),
	)

	data := map[string]any{
		"interrogation_id": decided.ID,
		"outcome":          decided.CaptainOutcome,
		"case_status":      c.Status,
	}
	if decided.ChiefDecision == domain.ChiefPending {
		s.notify(ctx, notification.Request{
			Recipients: s.holdersOf(ctx, auth.ActionInterrogationChiefReview, 0),
			CaseID:     c.ID,
			Type:       notification.TypeChiefReviewRequested,
			Title:      "Critical interrogation awaits chief review",
			Message:    c.Title,
			Data:       data,
		})
		return decided, nil
	}

	s.notify(ctx, notification.Request{
		Recipients: []types.ID{decided.Detective, decided.Sergeant},
		CaseID:     c.ID,
		Type:       notification.TypeCaptainDecision,
		Title:      fmt.Sprintf("Captain %s the interrogation", decided.CaptainOutcome),
		Message:    decided.CaptainNote,
		Data:       data,
	})
	return decided, nil
}

// ChiefReview records the chief's ruling on a critical interrogation
func (s *Service) ChiefReview(ctx context.Context, p auth.Principal, interrogationID types.ID, in domain.ChiefInput) (*domain.Interrogation, error) {
	if err := s.authority.Authorize(p, auth.ActionInterrogationChiefReview); err != nil {
		return nil, s.rejected("chief_review", err)
	}
	caseID, err := s.repo.CaseIDForInterrogation(ctx, interrogationID)
	if err != nil {
		return nil, err
	}

	var reviewed *domain.Interrogation
	c, err := s.update(ctx, "chief_review", caseID, func(c *domain.Case) error {
		it, err := c.ChiefReview(p.ID, interrogationID, in)
		if err != nil {
			return err
		}
		copied := *it
		reviewed = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordInterrogationDecision("chief", reviewed.ChiefDecision == domain.ChiefApproved)
	s.notify(ctx, notification.Request{
		Recipients: []types.ID{reviewed.CaptainBy, reviewed.Detective, reviewed.Sergeant},
		CaseID:     c.ID,
		Type:       notification.TypeChiefDecision,
		Title:      fmt.Sprintf("Chief %s the interrogation", reviewed.ChiefDecision),
		Message:    reviewed.ChiefNote,
		Data: map[string]any{
			"interrogation_id": reviewed.ID,
			"decision":         reviewed.ChiefDecision,
			"case_status":      c.Status,
		},
	})
	return reviewed, nil
}
