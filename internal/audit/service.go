package audit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mrlokans/mycv/internal/database/audit"
	"github.com/mrlokans/mycv/internal/entities"
)

// Service provides high-level audit logging functionality.
// A nil *Service discards events, so callers need not check for it.
type Service struct {
	repo *audit.Repository
	wg   sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(ctx context.Context, event *entities.AuditEvent) error {
	if s == nil {
		return nil
	}
	return s.repo.LogEvent(ctx, event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	if s == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.LogEvent(context.Background(), event); err != nil {
			log.Error().Err(err).Str("action", event.Action).Msg("Failed to log audit event")
		}
	}()
}

// Wait blocks until every pending LogAsync write has finished.
func (s *Service) Wait() {
	if s == nil {
		return
	}
	s.wg.Wait()
}

// LogAuth records an authentication event (signup, signin, signout).
func (s *Service) LogAuth(userID uint, action, ipAddr, userAgent string, err error) {
	event := &entities.AuditEvent{
		UserID:    userID,
		EventType: entities.AuditEventAuth,
		Action:    action,
		IPAddress: ipAddr,
		UserAgent: truncate(userAgent, 500),
		Status:    entities.AuditStatusSuccess,
	}
	if userID != 0 {
		event.EntityType = "user"
		event.EntityID = &userID
	}
	markFailed(event, err)

	s.LogAsync(event)
}

// LogUser records a change made to a user account.
func (s *Service) LogUser(actorID uint, action string, targetID uint, description string) {
	event := &entities.AuditEvent{
		UserID:      actorID,
		EventType:   entities.AuditEventUser,
		Action:      action,
		Description: truncate(description, 500),
		EntityType:  "user",
		EntityID:    &targetID,
		Status:      entities.AuditStatusSuccess,
	}

	s.LogAsync(event)
}

// LogReport records report creation or moderation.
func (s *Service) LogReport(actorID uint, action string, reportID uint, description string, err error) {
	event := &entities.AuditEvent{
		UserID:      actorID,
		EventType:   entities.AuditEventReport,
		Action:      action,
		Description: truncate(description, 500),
		EntityType:  "report",
		Status:      entities.AuditStatusSuccess,
	}
	if reportID != 0 {
		event.EntityID = &reportID
	}
	markFailed(event, err)

	s.LogAsync(event)
}

// LogMaintenance records housekeeping work done by background tasks.
func (s *Service) LogMaintenance(action, description string, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventMaintenance,
		Action:      action,
		Description: truncate(description, 500),
		Status:      entities.AuditStatusSuccess,
	}
	markFailed(event, err)

	s.LogAsync(event)
}

// List retrieves paginated audit events.
func (s *Service) List(ctx context.Context, f audit.Filter) ([]entities.AuditEvent, int64, error) {
	if s == nil {
		return nil, 0, nil
	}
	return s.repo.List(ctx, f)
}

// DeleteOldEvents removes events older than the retention period.
func (s *Service) DeleteOldEvents(ctx context.Context, retention time.Duration) (int64, error) {
	if s == nil {
		return 0, nil
	}
	return s.repo.DeleteOlderThan(ctx, time.Now().Add(-retention))
}

func markFailed(event *entities.AuditEvent, err error) {
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
