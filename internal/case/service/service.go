// Package service applies case transitions on behalf of an explicit
// principal. Every operation checks the action first, then loads the case,
// then checks rank and ownership, and finally lets the aggregate validate
// its own state.
package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/citypd/platform/internal/auth"
	"github.com/citypd/platform/internal/case/domain"
	"github.com/citypd/platform/internal/notification"
	"github.com/citypd/platform/internal/shared/errors"
	"github.com/citypd/platform/internal/shared/events"
	"github.com/citypd/platform/internal/shared/metrics"
	"github.com/citypd/platform/internal/shared/types"
)

// Directory resolves users to principals and finds role holders
type Directory interface {
	Principal(ctx context.Context, id types.ID) (auth.Principal, error)
	HoldersOf(ctx context.Context, roles []auth.Role) ([]types.ID, error)
}

// Notifier queues notifications for delivery after the caller returns
type Notifier interface {
	Send(ctx context.Context, req notification.Request)
}

// Service coordinates case transitions
type Service struct {
	repo      domain.Repository
	authority *auth.Authority
	directory Directory
	notifier  Notifier
	publisher events.Publisher
	logger    *zap.Logger
}

// NewService creates a case service. notifier and publisher may be nil.
func NewService(
	repo domain.Repository,
	authority *auth.Authority,
	directory Directory,
	notifier Notifier,
	publisher events.Publisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:      repo,
		authority: authority,
		directory: directory,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
	}
}

// create persists a new case and publishes its journal
func (s *Service) create(ctx context.Context, op string, c *domain.Case) (*domain.Case, error) {
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, s.rejected(op, err)
	}
	metrics.RecordCaseCreated(string(c.Source), string(c.Status))
	s.afterCommit(ctx, c)
	return c, nil
}

// update runs fn inside the repository's unit of work
func (s *Service) update(ctx context.Context, op string, caseID types.ID, fn func(c *domain.Case) error) (*domain.Case, error) {
	c, err := s.repo.Update(ctx, caseID, fn)
	if err != nil {
		return nil, s.rejected(op, err)
	}
	s.afterCommit(ctx, c)
	return c, nil
}

func (s *Service) rejected(op string, err error) error {
	appErr, ok := errors.As(err)
	if !ok {
		s.logger.Error("case operation failed", zap.String("operation", op), zap.Error(err))
		return err
	}
	metrics.RecordTransitionRejected(op, appErr.Code)
	if errors.Is(err, errors.ErrUnauthorized) || errors.Is(err, errors.ErrForbidden) {
		s.logger.Warn("case operation denied",
			zap.String("operation", op),
			zap.String("code", appErr.Code),
			zap.String("reason", appErr.Message),
		)
	}
	return err
}

// afterCommit drains the committed journal entries, records status metrics
// and publishes the entries to the event store. Failures are logged only.
func (s *Service) afterCommit(ctx context.Context, c *domain.Case) {
	committed := c.GetDomainEvents()
	for _, change := range domain.StatusChanges(committed) {
		metrics.RecordCaseStatusChange(string(change.From), string(change.To))
	}
	for _, e := range committed {
		s.logger.Info("case transition",
			zap.String("case_id", c.ID.String()),
			zap.String("action", string(e.Type)),
			zap.String("actor", e.Actor.String()),
			zap.String("status", string(c.Status)),
			zap.Int("version", c.Version),
		)
	}
	if s.publisher == nil || len(committed) == 0 {
		return
	}

	out := make([]events.Event, 0, len(committed))
	for _, e := range committed {
		out = append(out, events.NewCaseEvent(e.CaseID, string(e.Type), e.Actor, e.Timestamp, map[string]any{
			"details": e.Details,
			"data":    e.Data,
			"status":  c.Status,
		}).WithID(e.ID.String()))
	}
	if err := s.publisher.Publish(ctx, out...); err != nil {
		s.logger.Warn("failed to publish case events",
			zap.Error(err),
			zap.String("case_id", c.ID.String()),
			zap.Int("events", len(out)),
		)
	}
}

// notify queues a notification. Recipients are deduplicated downstream.
func (s *Service) notify(ctx context.Context, req notification.Request) {
	if s.notifier == nil || len(types.UniqueIDs(req.Recipients)) == 0 {
		return
	}
	s.notifier.Send(ctx, req)
}

// holdersOf returns the users whose roles grant action. Lookup failures
// only cost a notification, so they are logged and swallowed.
func (s *Service) holdersOf(ctx context.Context, action auth.Action, minRank auth.Rank) []types.ID {
	var roles []auth.Role
	for _, role := range s.authority.RolesGranting(action) {
		if auth.RankOf(role) >= minRank {
			roles = append(roles, role)
		}
	}
	if len(roles) == 0 {
		return nil
	}
	ids, err := s.directory.HoldersOf(ctx, roles)
	if err != nil {
		s.logger.Warn("failed to resolve notification recipients",
			zap.Error(err),
			zap.String("action", string(action)),
		)
		return nil
	}
	return ids
}

// canRead reports whether p may see c. Holders of case.read_all see every
// case; anyone else sees the cases they created or complain in.
func (s *Service) canRead(p auth.Principal, c *domain.Case) bool {
	return s.authority.HasAction(p, auth.ActionCaseReadAll) || c.IsParticipant(p.ID)
}

func requirePrincipal(p auth.Principal) error {
	if p.IsZero() {
		return errors.Unauthenticated("authentication required")
	}
	return nil
}
