package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shinyyama/evolon-market/internal/model"
	"github.com/shinyyama/evolon-market/internal/repository"
)

type reviewRepository struct {
	s *Store
}

func (r *reviewRepository) Create(ctx context.Context, rv *model.Review) error {
	return r.s.write(ctx, func() error {
		for _, existing := range r.s.reviews {
			if existing.OrderID == rv.OrderID {
				return repository.ErrDuplicate
			}
		}
		rv.ID = r.s.nextID()
		rv.CreatedAt = time.Now()
		r.s.reviews[rv.ID] = *rv
		return nil
	})
}

func (r *reviewRepository) FindByOrder(ctx context.Context, orderID uint64) (*model.Review, error) {
	list := r.filter(func(rv model.Review) bool { return rv.OrderID == orderID })
	if len(list) == 0 {
		return nil, repository.ErrNotFound
	}
	return &list[0], nil
}

func (r *reviewRepository) ExistsForOrder(ctx context.Context, orderID uint64) (bool, error) {
	return len(r.filter(func(rv model.Review) bool { return rv.OrderID == orderID })) > 0, nil
}

func (r *reviewRepository) ListBySeller(ctx context.Context, sellerUID string) ([]model.Review, error) {
	return r.filter(func(rv model.Review) bool { return rv.SellerUID == sellerUID }), nil
}

func (r *reviewRepository) ListByReviewer(ctx context.Context, reviewerUID string) ([]model.Review, error) {
	return r.filter(func(rv model.Review) bool { return rv.ReviewerUID == reviewerUID }), nil
}

func (r *reviewRepository) CountOutcomes(ctx context.Context, sellerUID string) (map[model.ReviewOutcome]int64, error) {
	counts := make(map[model.ReviewOutcome]int64)
	for _, rv := range r.filter(func(rv model.Review) bool { return rv.SellerUID == sellerUID }) {
		counts[rv.Outcome]++
	}
	return counts, nil
}

func (r *reviewRepository) filter(keep func(model.Review) bool) []model.Review {
	var list []model.Review
	r.s.read(func() {
		for _, rv := range r.s.reviews {
			if keep(rv) {
				list = append(list, rv)
			}
		}
	})
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list
}
