package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shinyyama/evolon-market/internal/model"
	"github.com/shinyyama/evolon-market/internal/repository"
)

type notificationRepository struct {
	s *Store
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.s.write(ctx, func() error {
		n.ID = r.s.nextID()
		n.CreatedAt = time.Now()
		r.s.notifications[n.ID] = *n
		return nil
	})
}

func (r *notificationRepository) ListByUser(ctx context.Context, userUID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	var list []model.Notification
	r.s.read(func() {
		for _, n := range r.s.notifications {
			if n.UserUID != userUID || (unreadOnly && n.ReadAt != nil) {
				continue
			}
			list = append(list, n)
		}
	})
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	if limit = repository.NormalizeLimit(limit); len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userUID string) error {
	return r.markRead(ctx, func(n model.Notification) bool { return n.UserUID == userUID })
}

func (r *notificationRepository) MarkByOrder(ctx context.Context, userUID string, orderID uint64) error {
	return r.markRead(ctx, func(n model.Notification) bool {
		return n.UserUID == userUID && n.OrderID != nil && *n.OrderID == orderID
	})
}

func (r *notificationRepository) markRead(ctx context.Context, match func(model.Notification) bool) error {
	return r.s.write(ctx, func() error {
		now := time.Now()
		for id, n := range r.s.notifications {
			if n.ReadAt == nil && match(n) {
				n.ReadAt = &now
				r.s.notifications[id] = n
			}
		}
		return nil
	})
}

func (r *notificationRepository) CountUnread(ctx context.Context, userUID string) (int64, error) {
	var cnt int64
	r.s.read(func() {
		for _, n := range r.s.notifications {
			if n.UserUID == userUID && n.ReadAt == nil {
				cnt++
			}
		}
	})
	return cnt, nil
}
