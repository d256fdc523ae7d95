// Package notifier fans workflow notifications out to their audience. It is
// a fire-and-forget sink: delivery failures are recorded and logged, never
// returned to the workflow path.
package notifier

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/complyco/caseflow/internal/application/port"
	"github.com/complyco/caseflow/internal/domain/entity"
)

// Channel pushes a notification to a single recipient over one transport
type Channel interface {
	Name() string
	Send(ctx context.Context, recipient *entity.Actor, msg port.Message) error
}

// Service resolves audiences, persists every notification, and pushes them
// through the configured channels.
type Service struct {
	users    port.UserRepository
	store    port.NotificationRepository
	channels []Channel
	logger   *zap.Logger
}

// NewService creates a notifier service
func NewService(users port.UserRepository, store port.NotificationRepository, channels []Channel, logger *zap.Logger) *Service {
	return &Service{
		users:    users,
		store:    store,
		channels: channels,
		logger:   logger,
	}
}

// Notify delivers the message to every recipient selected by the audience
func (s *Service) Notify(ctx context.Context, msg port.Message, audience entity.Audience) {
	recipients, err := s.resolve(ctx, audience)
	if err != nil {
		s.logger.Error("Failed to resolve notification audience",
			zap.String("title", msg.Title),
			zap.Error(err))
		return
	}
	if len(recipients) == 0 {
		s.logger.Info("Notification has no recipients",
			zap.String("title", msg.Title),
			zap.String("user_id", audience.UserID),
			zap.String("capability", audience.Capability.String()))
		return
	}

	for _, recipient := range recipients {
		s.deliver(ctx, msg, recipient)
	}
}

func (s *Service) resolve(ctx context.Context, audience entity.Audience) ([]*entity.Actor, error) {
	if audience.UserID != "" {
		user, err := s.users.GetByID(ctx, audience.UserID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, nil
		}
		return []*entity.Actor{user}, nil
	}
	return s.users.ListByCapability(ctx, audience.Capability)
}

func (s *Service) deliver(ctx context.Context, msg port.Message, recipient *entity.Actor) {
	record := &entity.Notification{
		JobID:       msg.JobID,
		Kind:        msg.Kind,
		RecipientID: recipient.ID,
		Title:       msg.Title,
		Description: msg.Description,
		Category:    msg.Category,
		Status:      entity.NotificationStatusPending,
		CreatedAt:   time.Now(),
	}
	if err := s.store.Create(ctx, record); err != nil {
		s.logger.Error("Failed to persist notification",
			zap.String("recipient", recipient.ID),
			zap.String("title", msg.Title),
			zap.Error(err))
		return
	}

	var lastErr error
	for _, channel := range s.channels {
		if err := channel.Send(ctx, recipient, msg); err != nil {
			lastErr = err
			s.logger.Error("Notification channel failed",
				zap.String("channel", channel.Name()),
				zap.String("recipient", recipient.ID),
				zap.Error(err))
		}
	}

	if lastErr != nil {
		if err := s.store.MarkFailed(ctx, record.ID, lastErr.Error()); err != nil {
			s.logger.Error("Failed to mark notification failed", zap.Error(err))
		}
		return
	}
	if err := s.store.MarkSent(ctx, record.ID); err != nil {
		s.logger.Error("Failed to mark notification sent", zap.Error(err))
	}
}
