package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/citypd/platform/internal/auth"
	"github.com/citypd/platform/internal/case/domain"
	"github.com/citypd/platform/internal/shared/metrics"
	"github.com/citypd/platform/internal/shared/types"
)

// SubmitVerdict records a judge's ruling on a suspect, or on the whole case
// when no suspect is named
func (s *Service) SubmitVerdict(ctx context.Context, p auth.Principal, caseID types.ID, in domain.VerdictInput) (*domain.CourtSession, error) {
	if err := s.authority.Authorize(p, auth.ActionJudiciaryVerdict); err != nil {
		return nil, s.rejected("submit_verdict", err)
	}

	var session *domain.CourtSession
	c, err := s.update(ctx, "submit_verdict", caseID, func(c *domain.Case) error {
		cs, err := c.RecordVerdict(p.ID, in)
		if err != nil {
			return err
		}
		session = cs
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordVerdict(string(session.Verdict))
	s.logger.Info("verdict recorded",
		zap.String("case_id", c.ID.String()),
		zap.String("suspect_id", session.SuspectID.String()),
		zap.String("verdict", string(session.Verdict)),
		zap.String("case_status", string(c.Status)),
	)
	return session, nil
}
