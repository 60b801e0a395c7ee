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

// ComplaintInput carries a new citizen complaint
type ComplaintInput struct {
	Title                  string          `json:"title"`
	Description            string          `json:"description"`
	Severity               domain.Severity `json:"severity"`
	AdditionalComplainants []types.ID      `json:"additional_complainants,omitempty"`
}

// ResubmitInput carries the edits of a resubmitted complaint. Nil fields
// are left unchanged.
type ResubmitInput struct {
	Title                  *string          `json:"title,omitempty"`
	Description            *string          `json:"description,omitempty"`
	Severity               *domain.Severity `json:"severity,omitempty"`
	AdditionalComplainants []types.ID       `json:"additional_complainants,omitempty"`
}

// ComplaintReviewResult is the outcome of a cadet or officer review
type ComplaintReviewResult struct {
	CaseID           types.ID          `json:"case_id"`
	Status           domain.CaseStatus `json:"status"`
	Stage            domain.Stage      `json:"stage"`
	AttemptCount     int               `json:"attempt_count"`
	LastErrorMessage string            `json:"last_error_message,omitempty"`
}

func reviewResult(c *domain.Case) ComplaintReviewResult {
	res := ComplaintReviewResult{CaseID: c.ID, Status: c.Status}
	if c.Complaint != nil {
		res.Stage = c.Complaint.Stage
		res.AttemptCount = c.Complaint.AttemptCount
		res.LastErrorMessage = c.Complaint.LastErrorMessage
	}
	return res
}

// SubmitComplaint files a citizen complaint for cadet review
func (s *Service) SubmitComplaint(ctx context.Context, p auth.Principal, in ComplaintInput) (*domain.Case, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	if err := s.authority.Authorize(p, auth.ActionCaseSubmitComplaint); err != nil {
		return nil, s.rejected("submit_complaint", err)
	}
	if err := s.requireUsers(ctx, "additional_complainants", in.AdditionalComplainants); err != nil {
		return nil, s.rejected("submit_complaint", err)
	}

	c, err := domain.NewComplaintCase(p.ID, in.Title, in.Description, in.Severity, in.AdditionalComplainants)
	if err != nil {
		return nil, s.rejected("submit_complaint", err)
	}

	c, err = s.create(ctx, "submit_complaint", c)
	if err != nil {
		return nil, err
	}

	s.logger.Info("complaint submitted",
		zap.String("case_id", c.ID.String()),
		zap.String("actor_id", p.ID.String()),
		zap.Int("complainants", len(c.Complainants)),
	)
	return c, nil
}

// InternReview records the cadet's review of a complaint
func (s *Service) InternReview(ctx context.Context, p auth.Principal, caseID types.ID, approved bool, note string) (ComplaintReviewResult, error) {
	if err := s.authority.Authorize(p, auth.ActionCaseComplaintInternReview); err != nil {
		return ComplaintReviewResult{}, s.rejected("intern_review", err)
	}

	c, err := s.update(ctx, "intern_review", caseID, func(c *domain.Case) error {
		if approved {
			return c.InternApprove(p.ID, note)
		}
		return c.InternReject(p.ID, note)
	})
	if err != nil {
		return ComplaintReviewResult{}, err
	}

	if !approved {
		s.notify(ctx, notification.Request{
			Recipients: complainantUsers(c),
			CaseID:     c.ID,
			Type:       notification.TypeComplaintReturned,
			Title:      "Complaint returned",
			Message:    c.Complaint.LastErrorMessage,
			Data: map[string]any{
				"status":        c.Status,
				"attempt_count": c.Complaint.AttemptCount,
			},
		})
	}
	return reviewResult(c), nil
}

// OfficerReview records the officer's review of a complaint
func (s *Service) OfficerReview(ctx context.Context, p auth.Principal, caseID types.ID, approved bool, note string) (ComplaintReviewResult, error) {
	if err := s.authority.Authorize(p, auth.ActionCaseComplaintOfficerReview); err != nil {
		return ComplaintReviewResult{}, s.rejected("officer_review", err)
	}

	c, err := s.update(ctx, "officer_review", caseID, func(c *domain.Case) error {
		if approved {
			return c.OfficerApprove(p.ID, note)
		}
		return c.OfficerReject(p.ID, note)
	})
	if err != nil {
		return ComplaintReviewResult{}, err
	}

	if approved {
		s.notify(ctx, notification.Request{
			Recipients: []types.ID{c.CreatedBy},
			CaseID:     c.ID,
			Type:       notification.TypeCaseStatusChanged,
			Title:      "Complaint accepted",
			Message:    "Your complaint has been formed into a case",
			Data:       map[string]any{"status": c.Status},
		})
	}
	return reviewResult(c), nil
}

// ResubmitComplaint puts a returned complaint back in front of the cadet.
// Only the creator or a complainant of the case may resubmit.
func (s *Service) ResubmitComplaint(ctx context.Context, p auth.Principal, caseID types.ID, in ResubmitInput) (*domain.Case, error) {
	if err := s.authority.Authorize(p, auth.ActionCaseSubmitComplaint); err != nil {
		return nil, s.rejected("resubmit_complaint", err)
	}
	if err := s.requireUsers(ctx, "additional_complainants", in.AdditionalComplainants); err != nil {
		return nil, s.rejected("resubmit_complaint", err)
	}

	return s.update(ctx, "resubmit_complaint", caseID, func(c *domain.Case) error {
		if !p.Superuser && !c.IsParticipant(p.ID) {
			return errors.Forbidden("only the creator or a complainant may resubmit")
		}
		return c.Resubmit(p.ID, domain.ResubmitChanges{
			Title:                  in.Title,
			Description:            in.Description,
			Severity:               in.Severity,
			AdditionalComplainants: in.AdditionalComplainants,
		})
	})
}

// AddComplainant attaches a complainant to a complaint or a scene case.
// Complaint cases need the caller to be a participant; scene cases need
// case.scene.add_complainant.
func (s *Service) AddComplainant(ctx context.Context, p auth.Principal, caseID, userID types.ID) (*domain.Complainant, error) {
	if err := s.authority.AuthorizeAny(p, auth.ActionCaseSubmitComplaint, auth.ActionCaseSceneAddComplainant); err != nil {
		return nil, s.rejected("add_complainant", err)
	}
	if err := s.requireUsers(ctx, "user_id", []types.ID{userID}); err != nil {
		return nil, s.rejected("add_complainant", err)
	}

	var added *domain.Complainant
	_, err := s.update(ctx, "add_complainant", caseID, func(c *domain.Case) error {
		switch c.Source {
		case domain.SourceScene:
			if err := s.authority.Authorize(p, auth.ActionCaseSceneAddComplainant); err != nil {
				return err
			}
		default:
			if err := s.authority.Authorize(p, auth.ActionCaseSubmitComplaint); err != nil {
				return err
			}
			if !p.Superuser && !c.IsParticipant(p.ID) {
				return errors.Forbidden("only the creator or a complainant may add complainants")
			}
		}
		cc, err := c.AddComplainant(p.ID, userID)
		if err != nil {
			return err
		}
		copied := *cc
		added = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// AddSceneComplainant attaches a complainant to a scene case
func (s *Service) AddSceneComplainant(ctx context.Context, p auth.Principal, caseID, userID types.ID) (*domain.Complainant, error) {
	if err := s.authority.Authorize(p, auth.ActionCaseSceneAddComplainant); err != nil {
		return nil, s.rejected("add_scene_complainant", err)
	}
	if err := s.requireUsers(ctx, "user_id", []types.ID{userID}); err != nil {
		return nil, s.rejected("add_scene_complainant", err)
	}

	var added *domain.Complainant
	_, err := s.update(ctx, "add_scene_complainant", caseID, func(c *domain.Case) error {
		if c.Source != domain.SourceScene {
			return errors.InvalidState("case is not a scene report")
		}
		cc, err := c.AddComplainant(p.ID, userID)
		if err != nil {
			return err
		}
		copied := *cc
		added = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// requireUsers checks that every id names an active user
func (s *Service) requireUsers(ctx context.Context, field string, ids []types.ID) error {
	for _, id := range types.UniqueIDs(ids) {
		if _, err := s.directory.Principal(ctx, id); err != nil {
			switch {
			case errors.Is(err, errors.ErrNotFound):
				return errors.Validation("unknown user", map[string]string{field: id.String()})
			case errors.Is(err, errors.ErrUnauthenticated):
				return errors.Validation("user is not active", map[string]string{field: id.String()})
			}
			return err
		}
	}
	return nil
}

// ReviewComplainant records the cadet's verdict on one complainant
func (s *Service) ReviewComplainant(ctx context.Context, p auth.Principal, caseID, complainantID types.ID, approved bool, note string) (*domain.Complainant, error) {
	if err := s.authority.Authorize(p, auth.ActionCaseComplaintInternReview); err != nil {
		return nil, s.rejected("review_complainant", err)
	}

	var reviewed *domain.Complainant
	_, err := s.update(ctx, "review_complainant", caseID, func(c *domain.Case) error {
		cc, err := c.ReviewComplainant(p.ID, complainantID, approved, note)
		if err != nil {
			return err
		}
		copied := *cc
		reviewed = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reviewed, nil
}

func complainantUsers(c *domain.Case) []types.ID {
	ids := []types.ID{c.CreatedBy}
	for _, cc := range c.Complainants {
		ids = append(ids, cc.User)
	}
	return types.UniqueIDs(ids)
}
