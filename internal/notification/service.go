package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/citypd/platform/internal/shared/metrics"
	"github.com/citypd/platform/internal/shared/types"
)

// Service fans notifications out on a worker pool. Requests are queued and
// delivered after the caller returns; a failed delivery never reaches the
// caller.
type Service struct {
	inbox Inbox
	push  PushProvider

	reqCh   chan Request
	workers int

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	config ServiceConfig
	logger *zap.Logger
}

// PushProvider delivers a stored notification to a live channel
type PushProvider interface {
	Send(ctx context.Context, notification *Notification) error
}

// ServiceConfig holds service configuration
type ServiceConfig struct {
	Workers       int
	BufferSize    int
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultServiceConfig returns default configuration
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Workers:       4,
		BufferSize:    256,
		RetryAttempts: 3,
		RetryDelay:    200 * time.Millisecond,
	}
}

// NewService creates a new notification service. push may be nil.
func NewService(inbox Inbox, push PushProvider, config ServiceConfig, logger *zap.Logger) *Service {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultServiceConfig().BufferSize
	}
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = 1
	}
	return &Service{
		inbox:   inbox,
		push:    push,
		reqCh:   make(chan Request, config.BufferSize),
		workers: config.Workers,
		stopCh:  make(chan struct{}),
		config:  config,
		logger:  logger,
	}
}

// Start starts the notification workers. They run until Stop, even after
// ctx is cancelled, so shutdown still delivers what is queued.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("service already started")
	}
	s.started = true

	ctx = context.WithoutCancel(ctx)
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}
	return nil
}

// Stop delivers what is still queued and stops the workers
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("service not running")
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	return nil
}

// Send queues a request. It never blocks: when the queue is full the
// request is dropped and logged.
func (s *Service) Send(ctx context.Context, req Request) {
	if len(types.UniqueIDs(req.Recipients)) == 0 {
		return
	}

	select {
	case s.reqCh <- req:
	default:
		metrics.RecordNotification(string(StatusDropped))
		s.logger.Error("notification buffer full, dropping request",
			zap.String("type", string(req.Type)),
			zap.String("case_id", req.CaseID.String()),
			zap.Int("recipients", len(req.Recipients)),
		)
	}
}

// worker processes requests from the channel
func (s *Service) worker(ctx context.Context, id int) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			s.drain(ctx)
			return
		case req := <-s.reqCh:
			s.process(ctx, req)
		}
	}
}

func (s *Service) drain(ctx context.Context) {
	for {
		select {
		case req := <-s.reqCh:
			s.process(ctx, req)
		default:
			return
		}
	}
}

// process stores one request in the inbox and pushes it to live channels
func (s *Service) process(ctx context.Context, req Request) {
	notifications := req.notifications(time.Now())

	var err error
	for attempt := 1; attempt <= s.config.RetryAttempts; attempt++ {
		if err = s.inbox.Save(ctx, notifications); err == nil {
			break
		}
		if attempt < s.config.RetryAttempts {
			select {
			case <-ctx.Done():
				attempt = s.config.RetryAttempts
			case <-time.After(s.config.RetryDelay):
			}
		}
	}
	if err != nil {
		metrics.RecordNotification(string(StatusFailed))
		s.logger.Error("failed to store notifications",
			zap.Error(err),
			zap.String("type", string(req.Type)),
			zap.String("case_id", req.CaseID.String()),
		)
		return
	}

	for i := range notifications {
		metrics.RecordNotification(string(StatusStored))
		if s.push == nil {
			continue
		}
		if err := s.push.Send(ctx, &notifications[i]); err != nil {
			s.logger.Warn("failed to push notification",
				zap.Error(err),
				zap.String("recipient", notifications[i].Recipient.String()),
			)
			continue
		}
		metrics.RecordNotification(string(StatusPushed))
	}
}

// List returns the caller's notifications
func (s *Service) List(ctx context.Context, recipient types.ID, filter ListFilter) ([]Notification, int, error) {
	return s.inbox.List(ctx, recipient, filter)
}

// MarkAsRead marks one of the caller's notifications as read
func (s *Service) MarkAsRead(ctx context.Context, recipient, id types.ID) (*Notification, error) {
	return s.inbox.MarkRead(ctx, recipient, id)
}
