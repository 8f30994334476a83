package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shinyyama/evolon-market/internal/model"
	"github.com/shinyyama/evolon-market/internal/repository"
)

type itemRepository struct {
	s *Store
}

func (r *itemRepository) Create(ctx context.Context, item *model.Item) error {
	return r.s.write(ctx, func() error {
		now := time.Now()
		item.ID = r.s.nextID()
		item.CreatedAt = now
		item.UpdatedAt = now
		r.s.items[item.ID] = *item
		return nil
	})
}

func (r *itemRepository) FindByID(ctx context.Context, id uint64) (*model.Item, error) {
	var (
		item model.Item
		ok   bool
	)
	r.s.read(func() { item, ok = r.s.items[id] })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &item, nil
}

func (r *itemRepository) ListByStatus(ctx context.Context, status model.ItemStatus, limit, offset int) ([]model.Item, int64, error) {
	var all []model.Item
	r.s.read(func() {
		for _, it := range r.s.items {
			if it.Status == status {
				all = append(all, it)
			}
		}
	})
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	if offset >= len(all) {
		return []model.Item{}, total, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (r *itemRepository) ListBySeller(ctx context.Context, sellerUID string) ([]model.Item, error) {
	var list []model.Item
	r.s.read(func() {
		for _, it := range r.s.items {
			if it.SellerUID == sellerUID {
				list = append(list, it)
			}
		}
	})
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list, nil
}

func (r *itemRepository) CompareAndSetStatus(ctx context.Context, id uint64, from, to model.ItemStatus) (bool, error) {
	applied := false
	err := r.s.write(ctx, func() error {
		it, ok := r.s.items[id]
		if !ok || it.Status != from {
			return nil
		}
		it.Status = to
		it.UpdatedAt = time.Now()
		r.s.items[id] = it
		applied = true
		return nil
	})
	return applied, err
}
