package repository

import (
	"context"

	"github.com/shinyyama/evolon-market/internal/model"
	"gorm.io/gorm"
)

type ReviewRepository interface {
	// Create fails with ErrDuplicate when the order already has a review.
	Create(ctx context.Context, rv *model.Review) error
	FindByOrder(ctx context.Context, orderID uint64) (*model.Review, error)
	ExistsForOrder(ctx context.Context, orderID uint64) (bool, error)
	ListBySeller(ctx context.Context, sellerUID string) ([]model.Review, error)
	ListByReviewer(ctx context.Context, reviewerUID string) ([]model.Review, error)
	CountOutcomes(ctx context.Context, sellerUID string) (map[model.ReviewOutcome]int64, error)
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, rv *model.Review) error {
	q, err := conn(ctx, r.db)
	if err != nil {
		return err
	}
	return translate(q.Create(rv).Error)
}

func (r *reviewRepository) FindByOrder(ctx context.Context, orderID uint64) (*model.Review, error) {
	q, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var rv model.Review
	if err := q.Where("order_id = ?", orderID).First(&rv).Error; err != nil {
		return nil, translate(err)
	}
	return &rv, nil
}

func (r *reviewRepository) ExistsForOrder(ctx context.Context, orderID uint64) (bool, error) {
	q, err := conn(ctx, r.db)
	if err != nil {
		return false, err
	}
	var cnt int64
	if err := q.Model(&model.Review{}).Where("order_id = ?", orderID).Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *reviewRepository) ListBySeller(ctx context.Context, sellerUID string) ([]model.Review, error) {
	q, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var list []model.Review
	if err := q.Where("seller_uid = ?", sellerUID).Order("id DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *reviewRepository) ListByReviewer(ctx context.Context, reviewerUID string) ([]model.Review, error) {
	q, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var list []model.Review
	if err := q.Where("reviewer_uid = ?", reviewerUID).Order("id DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *reviewRepository) CountOutcomes(ctx context.Context, sellerUID string) (map[model.ReviewOutcome]int64, error) {
	q, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Outcome model.ReviewOutcome
		Total   int64
	}
	if err := q.
		Model(&model.Review{}).
		Select("outcome, COUNT(*) AS total").
		Where("seller_uid = ?", sellerUID).
		Group("outcome").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[model.ReviewOutcome]int64, len(rows))
	for _, row := range rows {
		counts[row.Outcome] = row.Total
	}
	return counts, nil
}
