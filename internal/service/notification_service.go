package service

import (
	"context"
	"strings"

	"github.com/shinyyama/evolon-market/internal/model"
	"github.com/shinyyama/evolon-market/internal/repository"
)

// NotificationService serves the in-app inbox and the user's external notify token.
type NotificationService interface {
	List(ctx context.Context, userUID string, unreadOnly bool, limit int) ([]model.Notification, int64, error)
	MarkAllRead(ctx context.Context, userUID string) error
	MarkByOrder(ctx context.Context, userUID string, orderID uint64) error
	SetNotifyToken(ctx context.Context, userUID, token string) error
}

type notificationService struct {
	repo     repository.NotificationRepository
	contacts repository.ContactRepository
}

func NewNotificationService(repo repository.NotificationRepository, contacts repository.ContactRepository) NotificationService {
	return &notificationService{repo: repo, contacts: contacts}
}

func (s *notificationService) List(ctx context.Context, userUID string, unreadOnly bool, limit int) ([]model.Notification, int64, error) {
	if userUID == "" {
		return nil, 0, nil
	}
	list, err := s.repo.ListByUser(ctx, userUID, unreadOnly, limit)
	if err != nil {
		return nil, 0, err
	}
	cnt, err := s.repo.CountUnread(ctx, userUID)
	if err != nil {
		return list, 0, err
	}
	return list, cnt, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userUID string) error {
	if userUID == "" {
		return nil
	}
	return s.repo.MarkAllRead(ctx, userUID)
}

func (s *notificationService) MarkByOrder(ctx context.Context, userUID string, orderID uint64) error {
	if userUID == "" || orderID == 0 {
		return nil
	}
	return s.repo.MarkByOrder(ctx, userUID, orderID)
}

// SetNotifyToken stores the token; an empty token turns external delivery off.
func (s *notificationService) SetNotifyToken(ctx context.Context, userUID, token string) error {
	if userUID == "" {
		return validationError("user is required")
	}
	token = strings.TrimSpace(token)
	if len(token) > 255 {
		return validationError("token is too long")
	}
	return s.contacts.Upsert(ctx, userUID, token)
}
