package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/citypd/platform/internal/auth"
	"github.com/citypd/platform/internal/case/domain"
	"github.com/citypd/platform/internal/notification"
	"github.com/citypd/platform/internal/shared/errors"
	"github.com/citypd/platform/internal/shared/types"
)

// AssignDetective puts a detective in charge of an open or investigating
// case. The target must hold investigation.board.manage.
func (s *Service) AssignDetective(ctx context.Context, p auth.Principal, caseID, detectiveID types.ID) (*domain.Case, error) {
	if err := s.authority.Authorize(p, auth.ActionCaseAssignDetective); err != nil {
		return nil, s.rejected("assign_detective", err)
	}
	if detectiveID.IsZero() {
		return nil, errors.Validation("detective is required", map[string]string{"detective_id": "required"})
	}

	detective, err := s.directory.Principal(ctx, detectiveID)
	if err != nil {
		if errors.Is(err, errors.ErrUnauthenticated) {
			return nil, errors.Validation("detective is not active", map[string]string{"detective_id": "inactive"})
		}
		return nil, err
	}
	if !s.authority.HasAction(detective, auth.ActionInvestigationBoardManage) {
		return nil, s.rejected("assign_detective", errors.Validation("user cannot lead an investigation", map[string]string{
			"detective_id": "missing " + string(auth.ActionInvestigationBoardManage),
		}))
	}

	c, err := s.update(ctx, "assign_detective", caseID, func(c *domain.Case) error {
		return c.AssignDetective(p.ID, detectiveID)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notification.Request{
		Recipients: []types.ID{detectiveID},
		CaseID:     c.ID,
		Type:       notification.TypeDetectiveAssigned,
		Title:      "Case assigned",
		Message:    c.Title,
	})
	return c, nil
}

// TakeCase lets a detective assign an open case to themselves
func (s *Service) TakeCase(ctx context.Context, p auth.Principal, caseID types.ID) (*domain.Case, error) {
	if err := s.authority.Authorize(p, auth.ActionInvestigationBoardManage); err != nil {
		return nil, s.rejected("take_case", err)
	}
	return s.update(ctx, "take_case", caseID, func(c *domain.Case) error {
		return c.TakeCase(p.ID)
	})
}

// SendToCourt hands an investigating case to the judiciary
func (s *Service) SendToCourt(ctx context.Context, p auth.Principal, caseID types.ID, reason string) (*domain.Case, error) {
	if err := s.authority.Authorize(p, auth.ActionCaseSendToCourt); err != nil {
		return nil, s.rejected("send_to_court", err)
	}
	return s.update(ctx, "send_to_court", caseID, func(c *domain.Case) error {
		return c.SendToCourt(p.ID, reason)
	})
}

// AddSuspect records a wanted suspect. Only the assigned detective may add.
func (s *Service) AddSuspect(ctx context.Context, p auth.Principal, caseID types.ID, in domain.SuspectInput) (*domain.Suspect, error) {
	if err := s.authority.Authorize(p, auth.ActionSuspectManage); err != nil {
		return nil, s.rejected("add_suspect", err)
	}

	var added *domain.Suspect
	_, err := s.update(ctx, "add_suspect", caseID, func(c *domain.Case) error {
		if !p.Superuser && c.AssignedDetective != p.ID {
			return errors.Forbidden("only the assigned detective may add suspects")
		}
		suspect, err := c.AddSuspect(p.ID, in)
		if err != nil {
			return err
		}
		copied := *suspect
		added = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// ArrestSuspect marks a wanted suspect as arrested. Allowed for the
// assigned detective and for a sergeant who approved the suspect.
func (s *Service) ArrestSuspect(ctx context.Context, p auth.Principal, caseID, suspectID types.ID) (*domain.Suspect, error) {
	if err := s.authority.Authorize(p, auth.ActionSuspectManage); err != nil {
		return nil, s.rejected("arrest_suspect", err)
	}

	var arrested *domain.Suspect
	_, err := s.update(ctx, "arrest_suspect", caseID, func(c *domain.Case) error {
		if c.FindSuspect(suspectID) == nil {
			return errors.NotFound("suspect", suspectID.String())
		}
		if !p.Superuser && c.AssignedDetective != p.ID && !types.ContainsID(c.ApprovingSergeants(suspectID), p.ID) {
			return errors.Forbidden("only the assigned detective or an approving sergeant may arrest")
		}
		suspect, err := c.ArrestSuspect(p.ID, suspectID)
		if err != nil {
			return err
		}
		copied := *suspect
		arrested = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return arrested, nil
}

// SubmitMainSuspects sends the detective's chosen suspects to the sergeants
func (s *Service) SubmitMainSuspects(ctx context.Context, p auth.Principal, caseID types.ID, suspectIDs []types.ID, reason string) (*domain.SuspectSubmission, error) {
	if err := s.authority.Authorize(p, auth.ActionInvestigationBoardManage); err != nil {
		return nil, s.rejected("submit_main_suspects", err)
	}

	var submitted *domain.SuspectSubmission
	c, err := s.update(ctx, "submit_main_suspects", caseID, func(c *domain.Case) error {
		if !p.Superuser && c.AssignedDetective != p.ID {
			return errors.Forbidden("only the assigned detective may submit suspects")
		}
		sub, err := c.SubmitMainSuspects(p.ID, suspectIDs, reason)
		if err != nil {
			return err
		}
		copied := *sub
		submitted = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notification.Request{
		Recipients: s.holdersOf(ctx, auth.ActionSuspectManage, auth.RankOf(auth.RoleSergeant)),
		CaseID:     c.ID,
		Type:       notification.TypeSuspectsSubmitted,
		Title:      "Main suspects submitted",
		Message:    submitted.DetectiveReason,
		Data: map[string]any{
			"submission_id": submitted.ID,
			"suspects":      len(submitted.SuspectIDs),
		},
	})
	return submitted, nil
}

// ReviewSubmission records a sergeant's decision on a main-suspect
// submission. Approval arrests the submitted suspects.
func (s *Service) ReviewSubmission(ctx context.Context, p auth.Principal, submissionID types.ID, approved bool, message string) (*domain.SuspectSubmission, error) {
	if err := s.authority.Authorize(p, auth.ActionSuspectManage); err != nil {
		return nil, s.rejected("review_submission", err)
	}
	caseID, err := s.repo.CaseIDForSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	var reviewed *domain.SuspectSubmission
	c, err := s.update(ctx, "review_submission", caseID, func(c *domain.Case) error {
		if !p.Superuser && auth.PrincipalRank(p) < auth.RankOf(auth.RoleSergeant) {
			return errors.Forbidden("only a sergeant may review suspect submissions")
		}
		sub, err := c.ReviewSubmission(p.ID, submissionID, approved, message)
		if err != nil {
			return err
		}
		copied := *sub
		reviewed = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("suspect submission reviewed",
		zap.String("case_id", c.ID.String()),
		zap.String("submission_id", submissionID.String()),
		zap.String("status", string(reviewed.Status)),
	)
	s.notify(ctx, notification.Request{
		Recipients: []types.ID{reviewed.Detective},
		CaseID:     c.ID,
		Type:       notification.TypeSuspectsReviewed,
		Title:      "Suspect submission " + string(reviewed.Status),
		Message:    reviewed.SergeantMessage,
		Data:       map[string]any{"submission_id": reviewed.ID, "status": reviewed.Status},
	})
	return reviewed, nil
}
