package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/citypd/platform/internal/auth"
	"github.com/citypd/platform/internal/case/domain"
	"github.com/citypd/platform/internal/notification"
	"github.com/citypd/platform/internal/shared/errors"
	"github.com/citypd/platform/internal/shared/types"
)

// GetCase returns a case the principal may see. Cases outside the
// principal's view read as not found.
func (s *Service) GetCase(ctx context.Context, p auth.Principal, caseID types.ID) (*domain.Case, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	c, err := s.repo.FindByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !s.canRead(p, c) {
		return nil, errors.NotFound("case", caseID.String())
	}
	return c, nil
}

// ListCases lists the cases the principal may see
func (s *Service) ListCases(ctx context.Context, p auth.Principal, filter domain.ListFilter) ([]domain.Case, int, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, 0, err
	}
	if !s.authority.HasAction(p, auth.ActionCaseReadAll) {
		filter.Participant = p.ID
	}
	return s.repo.List(ctx, filter)
}

// Journal returns the case's journal, newest first
func (s *Service) Journal(ctx context.Context, p auth.Principal, caseID types.ID, limit, offset int) ([]domain.CaseEvent, error) {
	if _, err := s.GetCase(ctx, p, caseID); err != nil {
		return nil, err
	}
	return s.repo.GetEvents(ctx, caseID, limit, offset)
}

// errNothingMarked aborts a high-alert update whose suspects changed status
// since they were listed.
var errNothingMarked = fmt.Errorf("no suspects left to mark")

// HighAlertList ranks every wanted suspect and marks those wanted for more
// than the threshold as high alert
func (s *Service) HighAlertList(ctx context.Context, p auth.Principal) ([]domain.WantedEntry, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}

	records, err := s.repo.ListWantedSuspects(ctx)
	if err != nil {
		return nil, err
	}
	entries := domain.RankWanted(records, time.Now())

	highAlert := make(map[types.ID]bool)
	for _, e := range entries {
		if !e.HighAlert {
			continue
		}
		for _, id := range e.SuspectIDs {
			highAlert[id] = true
		}
	}

	pending := make(map[types.ID][]types.ID)
	for _, r := range records {
		if r.Suspect.Status == domain.SuspectWanted && highAlert[r.Suspect.ID] {
			pending[r.Suspect.CaseID] = append(pending[r.Suspect.CaseID], r.Suspect.ID)
		}
	}
	if len(pending) == 0 {
		return entries, nil
	}

	recipients := s.holdersOf(ctx, auth.ActionCaseSendToCourt, 0)
	now := time.Now()
	for caseID, suspectIDs := range pending {
		var marked []types.ID
		c, err := s.repo.Update(ctx, caseID, func(c *domain.Case) error {
			if marked = c.MarkHighAlert(suspectIDs, now); len(marked) == 0 {
				return errNothingMarked
			}
			return nil
		})
		if errors.Is(err, errNothingMarked) {
			continue
		}
		if err != nil {
			return nil, s.rejected("mark_high_alert", err)
		}
		s.afterCommit(ctx, c)
		s.logger.Info("suspects marked high alert",
			zap.String("case_id", caseID.String()),
			zap.Int("suspects", len(marked)),
		)

		s.notify(ctx, notification.Request{
			Recipients: recipients,
			CaseID:     caseID,
			Type:       notification.TypeHighAlert,
			Title:      "Suspect placed on high alert",
			Message:    fmt.Sprintf("A suspect of this case has been wanted for more than %d days", domain.HighAlertThresholdDays),
		})
	}
	return entries, nil
}
