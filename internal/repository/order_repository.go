package repository

import (
	"context"
	"time"

	"github.com/shinyyama/evolon-market/internal/model"
	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, o *model.Order) error
	FindByID(ctx context.Context, id uint64) (*model.Order, error)
	FindByPaymentReference(ctx context.Context, ref string) (*model.Order, error)
	// Transition sets the order's state to `to` (stamping its timestamp column with at)
	// only if the current state is one of from. It reports whether the row changed.
	Transition(ctx context.Context, id uint64, from []model.OrderState, to model.OrderState, at time.Time) (bool, error)
	ListByBuyer(ctx context.Context, buyerUID string) ([]model.Order, error)
	ListBySeller(ctx context.Context, sellerUID string) ([]model.Order, error)
	ListBySellerCreatedBetween(ctx context.Context, sellerUID string, from, to time.Time) ([]model.Order, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, o *model.Order) error {
	q, err := conn(ctx, r.db)
	if err != nil {
		return err
	}
	return translate(q.Create(o).Error)
}

func (r *orderRepository) FindByID(ctx context.Context, id uint64) (*model.Order, error) {
	q, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var o model.Order
	if err := q.First(&o, id).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *orderRepository) FindByPaymentReference(ctx context.Context, ref string) (*model.Order, error) {
	q, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var o model.Order
	if err := q.Where("payment_reference = ?", ref).First(&o).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *orderRepository) Transition(ctx context.Context, id uint64, from []model.OrderState, to model.OrderState, at time.Time) (bool, error) {
	q, err := conn(ctx, r.db)
	if err != nil {
		return false, err
	}
	updates := map[string]interface{}{"state": to}
	if col := model.TimestampColumn(to); col != "" {
		updates[col] = at
	}
	res := q.
		Model(&model.Order{}).
		Where("id = ? AND state IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *orderRepository) ListByBuyer(ctx context.Context, buyerUID string) ([]model.Order, error) {
	q, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var list []model.Order
	if err := q.
		Where("buyer_uid = ?", buyerUID).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *orderRepository) ListBySeller(ctx context.Context, sellerUID string) ([]model.Order, error) {
	q, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var list []model.Order
	if err := q.
		Where("seller_uid = ?", sellerUID).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *orderRepository) ListBySellerCreatedBetween(ctx context.Context, sellerUID string, from, to time.Time) ([]model.Order, error) {
	q, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var list []model.Order
	if err := q.
		Where("seller_uid = ? AND created_at >= ? AND created_at < ?", sellerUID, from, to).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
