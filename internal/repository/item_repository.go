package repository

import (
	"context"

	"github.com/shinyyama/evolon-market/internal/model"
	"gorm.io/gorm"
)

type ItemRepository interface {
	Create(ctx context.Context, item *model.Item) error
	FindByID(ctx context.Context, id uint64) (*model.Item, error)
	ListByStatus(ctx context.Context, status model.ItemStatus, limit, offset int) ([]model.Item, int64, error)
	ListBySeller(ctx context.Context, sellerUID string) ([]model.Item, error)
	// CompareAndSetStatus moves the item from one status to another only if it is
	// currently in from. It reports whether the row changed.
	CompareAndSetStatus(ctx context.Context, id uint64, from, to model.ItemStatus) (bool, error)
}

type itemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) Create(ctx context.Context, item *model.Item) error {
	q, err := conn(ctx, r.db)
	if err != nil {
		return err
	}
	return translate(q.Create(item).Error)
}

func (r *itemRepository) FindByID(ctx context.Context, id uint64) (*model.Item, error) {
	q, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var item model.Item
	if err := q.First(&item, id).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *itemRepository) ListByStatus(ctx context.Context, status model.ItemStatus, limit, offset int) ([]model.Item, int64, error) {
	q, err := conn(ctx, r.db)
	if err != nil {
		return nil, 0, err
	}
	var (
		items []model.Item
		total int64
	)
	if err := q.Model(&model.Item{}).Where("status = ?", status).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.
		Where("status = ?", status).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *itemRepository) ListBySeller(ctx context.Context, sellerUID string) ([]model.Item, error) {
	q, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var items []model.Item
	if err := q.
		Where("seller_uid = ?", sellerUID).
		Order("id DESC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *itemRepository) CompareAndSetStatus(ctx context.Context, id uint64, from, to model.ItemStatus) (bool, error) {
	q, err := conn(ctx, r.db)
	if err != nil {
		return false, err
	}
	res := q.
		Model(&model.Item{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
