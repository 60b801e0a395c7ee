package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/citypd/platform/internal/auth"
	"github.com/citypd/platform/internal/case/domain"
	"github.com/citypd/platform/internal/shared/errors"
	"github.com/citypd/platform/internal/shared/types"
)

// SceneReportInput carries a crime-scene report
type SceneReportInput struct {
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Severity        domain.Severity  `json:"severity"`
	SceneReportedAt *time.Time       `json:"scene_reported_at"`
	Witnesses       []domain.Witness `json:"witnesses,omitempty"`
}

// SubmitSceneReport files a scene report. Police above cadet may file
// without the explicit action. Reports by a chief or a superuser open
// immediately.
func (s *Service) SubmitSceneReport(ctx context.Context, p auth.Principal, in SceneReportInput) (*domain.Case, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	if !s.authority.HasAction(p, auth.ActionCaseSceneCreate) && !auth.IsNonCadetPolice(p) {
		return nil, s.rejected("submit_scene_report", s.authority.Authorize(p, auth.ActionCaseSceneCreate))
	}

	openNow := p.Superuser || auth.IsChief(p)
	c, err := domain.NewSceneCase(p.ID, in.Title, in.Description, in.Severity, in.SceneReportedAt, in.Witnesses, openNow)
	if err != nil {
		return nil, s.rejected("submit_scene_report", err)
	}

	c, err = s.create(ctx, "submit_scene_report", c)
	if err != nil {
		return nil, err
	}

	s.logger.Info("scene report filed",
		zap.String("case_id", c.ID.String()),
		zap.String("actor_id", p.ID.String()),
		zap.String("status", string(c.Status)),
	)
	return c, nil
}

// ApproveScene opens a scene report. The reviewer must outrank its creator.
func (s *Service) ApproveScene(ctx context.Context, p auth.Principal, caseID types.ID, note string) (*domain.Case, error) {
	return s.reviewScene(ctx, p, caseID, "approve_scene", func(c *domain.Case) error {
		return c.ApproveScene(p.ID, note)
	})
}

// DenyScene voids a scene report. The reviewer must outrank its creator.
func (s *Service) DenyScene(ctx context.Context, p auth.Principal, caseID types.ID, note string) (*domain.Case, error) {
	return s.reviewScene(ctx, p, caseID, "deny_scene", func(c *domain.Case) error {
		return c.DenyScene(p.ID, note)
	})
}

func (s *Service) reviewScene(ctx context.Context, p auth.Principal, caseID types.ID, op string, apply func(c *domain.Case) error) (*domain.Case, error) {
	if err := s.authority.AuthorizeAny(p,
		auth.ActionCaseComplaintOfficerReview,
		auth.ActionCaseSendToCourt,
		auth.ActionCaseSceneCreate,
	); err != nil {
		return nil, s.rejected(op, err)
	}

	return s.update(ctx, op, caseID, func(c *domain.Case) error {
		if err := c.RequireSceneUnderReview(); err != nil {
			return err
		}
		if err := s.checkSceneReviewer(ctx, p, c); err != nil {
			return err
		}
		return apply(c)
	})
}

// checkSceneReviewer enforces the rank rule: the creator must hold a police
// rank below chief and the reviewer must strictly outrank them.
func (s *Service) checkSceneReviewer(ctx context.Context, p auth.Principal, c *domain.Case) error {
	if p.Superuser {
		return nil
	}

	creator, err := s.directory.Principal(ctx, c.CreatedBy)
	if err != nil {
		if errors.Is(err, errors.ErrUnauthenticated) {
			return errors.Forbidden("scene report creator is no longer active")
		}
		return err
	}

	rank := auth.PrincipalRank(creator)
	if rank == 0 || rank >= auth.RankOf(auth.RoleChief) {
		return errors.Forbidden("scene report creator cannot be reviewed by rank")
	}
	if !auth.IsSuperior(p, creator) {
		return errors.Forbidden("reviewer must outrank the report creator")
	}
	return nil
}
