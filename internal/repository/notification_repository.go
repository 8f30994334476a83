package repository

import (
	"context"
	"time"

	"github.com/shinyyama/evolon-market/internal/model"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userUID string, unreadOnly bool, limit int) ([]model.Notification, error)
	MarkAllRead(ctx context.Context, userUID string) error
	MarkByOrder(ctx context.Context, userUID string, orderID uint64) error
	CountUnread(ctx context.Context, userUID string) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// NormalizeLimit clamps inbox page sizes to (0, 50], defaulting to 20.
func NormalizeLimit(limit int) int {
	if limit <= 0 || limit > 50 {
		return 20
	}
	return limit
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	q, err := conn(ctx, r.db)
	if err != nil {
		return err
	}
	return q.Create(n).Error
}

func (r *notificationRepository) ListByUser(ctx context.Context, userUID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	q, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var list []model.Notification
	q = q.Model(&model.Notification{}).Where("user_uid = ?", userUID)
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}
	if err := q.Order("created_at DESC").Limit(NormalizeLimit(limit)).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userUID string) error {
	q, err := conn(ctx, r.db)
	if err != nil {
		return err
	}
	return q.
		Model(&model.Notification{}).
		Where("user_uid = ? AND read_at IS NULL", userUID).
		Update("read_at", time.Now()).Error
}

func (r *notificationRepository) MarkByOrder(ctx context.Context, userUID string, orderID uint64) error {
	q, err := conn(ctx, r.db)
	if err != nil {
		return err
	}
	return q.
		Model(&model.Notification{}).
		Where("user_uid = ? AND order_id = ? AND read_at IS NULL", userUID, orderID).
		Update("read_at", time.Now()).Error
}

func (r *notificationRepository) CountUnread(ctx context.Context, userUID string) (int64, error) {
	q, err := conn(ctx, r.db)
	if err != nil {
		return 0, err
	}
	var cnt int64
	if err := q.
		Model(&model.Notification{}).
		Where("user_uid = ? AND read_at IS NULL", userUID).
		Count(&cnt).Error; err != nil {
		return 0, err
	}
	return cnt, nil
}
