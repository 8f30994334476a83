package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shinyyama/evolon-market/internal/model"
	"github.com/shinyyama/evolon-market/internal/repository"
)

type orderRepository struct {
	s *Store
}

func (r *orderRepository) Create(ctx context.Context, o *model.Order) error {
	return r.s.write(ctx, func() error {
		for _, existing := range r.s.orders {
			if existing.PaymentReference == o.PaymentReference {
				return repository.ErrDuplicate
			}
		}
		now := time.Now()
		o.ID = r.s.nextID()
		o.CreatedAt = now
		o.UpdatedAt = now
		r.s.orders[o.ID] = *o
		return nil
	})
}

func (r *orderRepository) FindByID(ctx context.Context, id uint64) (*model.Order, error) {
	var (
		o  model.Order
		ok bool
	)
	r.s.read(func() { o, ok = r.s.orders[id] })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (r *orderRepository) FindByPaymentReference(ctx context.Context, ref string) (*model.Order, error) {
	var found *model.Order
	r.s.read(func() {
		for _, o := range r.s.orders {
			if o.PaymentReference == ref {
				o := o
				found = &o
				return
			}
		}
	})
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r *orderRepository) Transition(ctx context.Context, id uint64, from []model.OrderState, to model.OrderState, at time.Time) (bool, error) {
	applied := false
	err := r.s.write(ctx, func() error {
		o, ok := r.s.orders[id]
		if !ok || !containsState(from, o.State) {
			return nil
		}
		o.State = to
		o.Stamp(to, at)
		o.UpdatedAt = time.Now()
		r.s.orders[id] = o
		applied = true
		return nil
	})
	return applied, err
}

func (r *orderRepository) ListByBuyer(ctx context.Context, buyerUID string) ([]model.Order, error) {
	return r.filter(func(o model.Order) bool { return o.BuyerUID == buyerUID }), nil
}

func (r *orderRepository) ListBySeller(ctx context.Context, sellerUID string) ([]model.Order, error) {
	return r.filter(func(o model.Order) bool { return o.SellerUID == sellerUID }), nil
}

func (r *orderRepository) ListBySellerCreatedBetween(ctx context.Context, sellerUID string, from, to time.Time) ([]model.Order, error) {
	return r.filter(func(o model.Order) bool {
		return o.SellerUID == sellerUID && !o.CreatedAt.Before(from) && o.CreatedAt.Before(to)
	}), nil
}

func (r *orderRepository) filter(keep func(model.Order) bool) []model.Order {
	var list []model.Order
	r.s.read(func() {
		for _, o := range r.s.orders {
			if keep(o) {
				list = append(list, o)
			}
		}
	})
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list
}

func containsState(states []model.OrderState, s model.OrderState) bool {
	for _, candidate := range states {
		if candidate == s {
			return true
		}
	}
	return false
}
