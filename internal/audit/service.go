package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/labkeeper/internal/auth"
	"github.com/dmitrijs2005/labkeeper/internal/logging"
	"github.com/google/uuid"
)

// Recorder is what the domain services depend on.
type Recorder interface {
	Record(ctx context.Context, action, subject, detail string) error
}

type Service struct {
	repo   Repository
	logger logging.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger logging.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Record appends an event. The actor is taken from the identity in ctx,
// if any.
func (s *Service) Record(ctx context.Context, action, subject, detail string) error {
	e := &Event{
		ID:      uuid.NewString(),
		At:      s.now(),
		Action:  action,
		Subject: subject,
		Detail:  detail,
	}
	if id, ok := auth.IdentityFromContext(ctx); ok {
		e.Actor = id.Username
	}

	if err := s.repo.Insert(ctx, e); err != nil {
		s.logger.Error(ctx, "audit record failed", "action", action, "subject", subject, "error", err)
		return fmt.Errorf("record %s: %w", action, err)
	}
	return nil
}

// History returns the events about subject in chronological order.
func (s *Service) History(ctx context.Context, subject string, limit int) ([]Event, error) {
	return s.repo.ListBySubject(ctx, subject, limit)
}

// Recent returns the newest limit events.
func (s *Service) Recent(ctx context.Context, limit int) ([]Event, error) {
	return s.repo.ListRecent(ctx, limit)
}

type nop struct{}

func (nop) Record(context.Context, string, string, string) error { return nil }

// Nop is a Recorder that drops every event.
var Nop Recorder = nop{}
