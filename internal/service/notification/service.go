package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/smilecare/clinic-api/internal/model"
	"github.com/smilecare/clinic-api/internal/repository"
	"github.com/smilecare/clinic-api/pkg/messaging"
)

// Service is the notification sink. Notify is fire-and-forget from the
// caller's point of view: the appointment ledger logs failures and moves on.
type Service interface {
	Notify(ctx context.Context, userID uuid.UUID, message, link string) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
}

type service struct {
	repo   repository.NotificationRepository
	broker messaging.Broker
	logger *zerolog.Logger
}

func NewService(repo repository.NotificationRepository, broker messaging.Broker, logger *zerolog.Logger) Service {
	return &service{
		repo:   repo,
		broker: broker,
		logger: logger,
	}
}

func (s *service) Notify(ctx context.Context, userID uuid.UUID, message, link string) error {
	n := &model.Notification{
		Base:      model.Base{ID: uuid.New()},
		UserID:    userID,
		Message:   message,
		Link:      link,
		IsRead:    false,
		CreatedAt: time.Now(),
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	// Fan out to the dispatch worker. Delivery is best-effort; the row is
	// the source of truth for the in-app list.
	if s.broker != nil {
		msg := model.NotificationMessage{
			UserID:  userID,
			Message: message,
			Link:    link,
		}
		if err := s.broker.Publish(ctx, messaging.NotificationChannel, msg); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("notification publish failed")
		}
	}

	return nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error) {
	notifications, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (s *service) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, userID)
}
