package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shinyyama/evolon-market/internal/model"
)

func TestLedgerTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.listItem(t, "seller", 1000)

	if _, err := f.ledger.GetSellableItem(ctx, item.ID); err != nil {
		t.Fatalf("listed item not sellable: %v", err)
	}
	if err := f.ledger.MarkSold(ctx, item.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("sell unreserved: expected ErrInvalidTransition, got %v", err)
	}
	if err := f.ledger.Reserve(ctx, item.ID); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := f.ledger.GetSellableItem(ctx, item.ID); !errors.Is(err, ErrItemUnavailable) {
		t.Fatalf("reserved item: expected ErrItemUnavailable, got %v", err)
	}
	if err := f.ledger.Reserve(ctx, item.ID); !errors.Is(err, ErrItemUnavailable) {
		t.Fatalf("double reserve: expected ErrItemUnavailable, got %v", err)
	}
	if err := f.ledger.Release(ctx, item.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := f.ledger.Reserve(ctx, item.ID); err != nil {
		t.Fatalf("reserve after release: %v", err)
	}
	if err := f.ledger.MarkSold(ctx, item.ID); err != nil {
		t.Fatalf("sell: %v", err)
	}
	if err := f.ledger.Release(ctx, item.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("release sold item: expected ErrInvalidTransition, got %v", err)
	}
	if got := f.itemStatus(t, item.ID); got != model.ItemStatusSold {
		t.Fatalf("status = %s, want sold", got)
	}

	other := f.listItem(t, "seller", 10)
	if err := f.ledger.Suspend(ctx, other.ID); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if err := f.ledger.Reserve(ctx, other.ID); !errors.Is(err, ErrItemUnavailable) {
		t.Fatalf("reserve suspended: expected ErrItemUnavailable, got %v", err)
	}
}
