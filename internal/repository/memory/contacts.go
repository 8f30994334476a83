package memory

import (
	"context"
	"time"

	"github.com/shinyyama/evolon-market/internal/model"
	"github.com/shinyyama/evolon-market/internal/repository"
)

type contactRepository struct {
	s *Store
}

func (r *contactRepository) Upsert(ctx context.Context, uid, notifyToken string) error {
	return r.s.write(ctx, func() error {
		now := time.Now()
		c, ok := r.s.contacts[uid]
		if !ok {
			c = model.UserContact{UID: uid, CreatedAt: now}
		}
		c.NotifyToken = notifyToken
		c.UpdatedAt = now
		r.s.contacts[uid] = c
		return nil
	})
}

func (r *contactRepository) FindByUID(ctx context.Context, uid string) (*model.UserContact, error) {
	var (
		c  model.UserContact
		ok bool
	)
	r.s.read(func() { c, ok = r.s.contacts[uid] })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}
