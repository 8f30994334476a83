package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shinyyama/evolon-market/internal/model"
	"github.com/shinyyama/evolon-market/internal/repository"
)

// Ledger owns item sellability. Every status change is a single conditional
// update, so concurrent callers never both win.
type Ledger interface {
	GetSellableItem(ctx context.Context, itemID uint64) (*model.Item, error)
	Reserve(ctx context.Context, itemID uint64) error
	MarkSold(ctx context.Context, itemID uint64) error
	Release(ctx context.Context, itemID uint64) error
	Suspend(ctx context.Context, itemID uint64) error
}

type ledger struct {
	items repository.ItemRepository
}

func NewLedger(items repository.ItemRepository) Ledger {
	return &ledger{items: items}
}

func (l *ledger) GetSellableItem(ctx context.Context, itemID uint64) (*model.Item, error) {
	item, err := l.items.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: item %d does not exist", ErrItemUnavailable, itemID)
		}
		return nil, err
	}
	if item.Status != model.ItemStatusListed {
		return nil, fmt.Errorf("%w: item %d is %s", ErrItemUnavailable, itemID, item.Status)
	}
	return item, nil
}

func (l *ledger) Reserve(ctx context.Context, itemID uint64) error {
	ok, err := l.items.CompareAndSetStatus(ctx, itemID, model.ItemStatusListed, model.ItemStatusReserved)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: item %d is no longer listed", ErrItemUnavailable, itemID)
	}
	return nil
}

func (l *ledger) MarkSold(ctx context.Context, itemID uint64) error {
	return l.move(ctx, itemID, model.ItemStatusReserved, model.ItemStatusSold)
}

func (l *ledger) Release(ctx context.Context, itemID uint64) error {
	return l.move(ctx, itemID, model.ItemStatusReserved, model.ItemStatusListed)
}

func (l *ledger) Suspend(ctx context.Context, itemID uint64) error {
	return l.move(ctx, itemID, model.ItemStatusListed, model.ItemStatusSuspended)
}

func (l *ledger) move(ctx context.Context, itemID uint64, from, to model.ItemStatus) error {
	ok, err := l.items.CompareAndSetStatus(ctx, itemID, from, to)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: item %d is not %s", ErrInvalidTransition, itemID, from)
	}
	return nil
}
