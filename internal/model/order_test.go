package model

import (
	"testing"
	"time"
)

func TestOrderStateRankIsForward(t *testing.T) {
	lifecycle := []OrderState{
		OrderStatePendingPayment,
		OrderStatePurchased,
		OrderStateShipped,
		OrderStateDelivered,
		OrderStateCompleted,
	}
	for i := 1; i < len(lifecycle); i++ {
		if lifecycle[i].Rank() <= lifecycle[i-1].Rank() {
			t.Fatalf("%s ranks %d, not above %s (%d)", lifecycle[i], lifecycle[i].Rank(), lifecycle[i-1], lifecycle[i-1].Rank())
		}
	}
	if OrderState("cancelled").Rank() != 0 {
		t.Fatalf("unknown state should rank 0")
	}
	for _, s := range lifecycle {
		if s.Terminal() != (s == OrderStateCompleted) {
			t.Fatalf("%s terminal = %v", s, s.Terminal())
		}
	}
}

func TestLabelsAreDerived(t *testing.T) {
	if got := OrderStatePurchased.Label(); got != "Awaiting shipment" {
		t.Fatalf("purchased label = %q", got)
	}
	if got := ItemStatusReserved.Label(); got != "Awaiting payment" {
		t.Fatalf("reserved label = %q", got)
	}
	if got := OrderState("legacy").Label(); got != "legacy" {
		t.Fatalf("unknown label = %q", got)
	}
}

func TestStampMatchesTimestampColumn(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		state  OrderState
		column string
		get    func(o *Order) *time.Time
	}{
		{OrderStatePurchased, "purchased_at", func(o *Order) *time.Time { return o.PurchasedAt }},
		{OrderStateShipped, "shipped_at", func(o *Order) *time.Time { return o.ShippedAt }},
		{OrderStateDelivered, "delivered_at", func(o *Order) *time.Time { return o.DeliveredAt }},
		{OrderStateCompleted, "completed_at", func(o *Order) *time.Time { return o.CompletedAt }},
	}
	for _, tt := range tests {
		var o Order
		o.Stamp(tt.state, at)
		if got := tt.get(&o); got == nil || !got.Equal(at) {
			t.Fatalf("%s: stamp = %v", tt.state, got)
		}
		if got := TimestampColumn(tt.state); got != tt.column {
			t.Fatalf("%s: column = %q, want %q", tt.state, got, tt.column)
		}
	}
	if TimestampColumn(OrderStatePendingPayment) != "" {
		t.Fatalf("pending_payment has no timestamp column")
	}
}

func TestReviewOutcomeValid(t *testing.T) {
	for _, o := range []ReviewOutcome{ReviewOutcomeGood, ReviewOutcomeBad} {
		if !o.Valid() {
			t.Fatalf("%s should be valid", o)
		}
	}
	if ReviewOutcome("neutral").Valid() {
		t.Fatalf("neutral should be invalid")
	}
}
