package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shinyyama/evolon-market/internal/model"
	"github.com/shinyyama/evolon-market/internal/notify"
)

func TestInitiatePurchase_ConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	item := f.listItem(t, "seller", 1000)

	const buyers = 20
	var (
		wg          sync.WaitGroup
		wins        int32
		unavailable int32
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.orders.InitiatePurchase(context.Background(), item.ID, "buyer-"+string(rune('a'+i)))
			switch {
			case err == nil:
				atomic.AddInt32(&wins, 1)
			case errors.Is(err, ErrItemUnavailable):
				atomic.AddInt32(&unavailable, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one success, got %d", wins)
	}
	if unavailable != buyers-1 {
		t.Fatalf("expected %d ItemUnavailable, got %d", buyers-1, unavailable)
	}
	if got := f.itemStatus(t, item.ID); got != model.ItemStatusReserved {
		t.Fatalf("item status = %s, want reserved", got)
	}
}

func TestInitiatePurchase_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("missing item", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.orders.InitiatePurchase(ctx, 999, "buyer"); !errors.Is(err, ErrItemUnavailable) {
			t.Fatalf("expected ErrItemUnavailable, got %v", err)
		}
	})

	t.Run("own item", func(t *testing.T) {
		f := newFixture(t)
		item := f.listItem(t, "seller", 1000)
		if _, err := f.orders.InitiatePurchase(ctx, item.ID, "seller"); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
		if got := f.itemStatus(t, item.ID); got != model.ItemStatusListed {
			t.Fatalf("item status = %s, want listed", got)
		}
	})

	t.Run("gateway down releases reservation", func(t *testing.T) {
		f := newFixture(t)
		item := f.listItem(t, "seller", 1000)
		f.gateway.SetUnavailable(true)

		if _, err := f.orders.InitiatePurchase(ctx, item.ID, "buyer"); !errors.Is(err, ErrGatewayUnavailable) {
			t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
		}
		if got := f.itemStatus(t, item.ID); got != model.ItemStatusListed {
			t.Fatalf("item status = %s, want listed", got)
		}

		f.gateway.SetUnavailable(false)
		if _, err := f.orders.InitiatePurchase(ctx, item.ID, "buyer"); err != nil {
			t.Fatalf("retry after outage: %v", err)
		}
	})
}

func TestInitiatePurchase_SnapshotsPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.listItem(t, "seller", 1000)

	co, err := f.orders.InitiatePurchase(ctx, item.ID, "buyer")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if co.ClientHandle == "" || co.Order.PaymentReference == "" {
		t.Fatalf("missing payment handles: %+v", co)
	}
	if !co.Order.Price.Equal(item.Price) || co.Order.ItemTitle != item.Title {
		t.Fatalf("order did not snapshot item: %+v", co.Order)
	}
	intent, ok := f.gateway.Intent(co.Order.PaymentReference)
	if !ok || intent.Amount != 1000 || intent.Currency != "jpy" {
		t.Fatalf("unexpected intent: %+v", intent)
	}
}

func TestCompletePurchase_NotSettled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.listItem(t, "seller", 1000)
	co, err := f.orders.InitiatePurchase(ctx, item.ID, "buyer")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	if _, err := f.orders.CompletePurchase(ctx, co.Order.PaymentReference); !errors.Is(err, ErrPaymentNotConfirmed) {
		t.Fatalf("expected ErrPaymentNotConfirmed, got %v", err)
	}
	if got := f.orderState(t, co.Order.ID); got != model.OrderStatePendingPayment {
		t.Fatalf("order state = %s", got)
	}
	if got := f.itemStatus(t, item.ID); got != model.ItemStatusReserved {
		t.Fatalf("item status = %s, want reserved", got)
	}
}

func TestCompletePurchase_GatewayDownIsNotNotSettled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.listItem(t, "seller", 1000)
	co, _ := f.orders.InitiatePurchase(ctx, item.ID, "buyer")

	f.gateway.SetUnavailable(true)
	_, err := f.orders.CompletePurchase(ctx, co.Order.PaymentReference)
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
	if errors.Is(err, ErrPaymentNotConfirmed) {
		t.Fatal("outage must not be reported as not paid")
	}
}

func TestCompletePurchase_UnknownReference(t *testing.T) {
	f := newFixture(t)
	if _, err := f.orders.CompletePurchase(context.Background(), "pi_missing"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestCompletePurchase_IdempotentUnderConcurrency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.listItem(t, "seller", 1000)
	co, err := f.orders.InitiatePurchase(ctx, item.ID, "buyer")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	f.gateway.Settle(co.Order.PaymentReference)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := f.orders.CompletePurchase(ctx, co.Order.PaymentReference)
			if err != nil {
				t.Errorf("complete: %v", err)
				return
			}
			if o.State != model.OrderStatePurchased {
				t.Errorf("state = %s", o.State)
			}
		}()
	}
	wg.Wait()

	// later redeliveries must not even reach the gateway
	f.gateway.SetUnavailable(true)
	for i := 0; i < 3; i++ {
		o, err := f.orders.CompletePurchase(ctx, co.Order.PaymentReference)
		if err != nil {
			t.Fatalf("redelivery %d: %v", i, err)
		}
		if o.State != model.OrderStatePurchased || o.PurchasedAt == nil {
			t.Fatalf("redelivery %d returned %+v", i, o)
		}
	}

	if got := testutil.ToFloat64(f.metrics.Transitions.WithLabelValues("pending_payment", "purchased")); got != 1 {
		t.Fatalf("purchased transitions = %v, want 1", got)
	}
	if got := f.dispatcher.count(notify.EventOrderPurchased); got != 1 {
		t.Fatalf("seller notifications = %d, want 1", got)
	}
	if got := f.itemStatus(t, item.ID); got != model.ItemStatusSold {
		t.Fatalf("item status = %s, want sold", got)
	}
}

func TestMarkShipped_ForbiddenForNonSellerInAnyState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item := f.listItem(t, "seller", 1000)
	pending, err := f.orders.InitiatePurchase(ctx, item.ID, "buyer")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	paid := f.purchased(t, "seller", "buyer")

	for _, id := range []uint64{pending.Order.ID, paid.ID} {
		for _, actor := range []string{"buyer", "stranger", ""} {
			if _, err := f.orders.MarkShipped(ctx, id, actor); !errors.Is(err, ErrForbidden) {
				t.Fatalf("order %d actor %q: expected ErrForbidden, got %v", id, actor, err)
			}
		}
	}
	if got := f.orderState(t, paid.ID); got != model.OrderStatePurchased {
		t.Fatalf("order state changed to %s", got)
	}
}

func TestTransitions_WrongState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.listItem(t, "seller", 1000)
	co, _ := f.orders.InitiatePurchase(ctx, item.ID, "buyer")

	if _, err := f.orders.MarkShipped(ctx, co.Order.ID, "seller"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("ship pending: expected ErrInvalidTransition, got %v", err)
	}
	paid := f.purchased(t, "seller", "buyer")
	if _, err := f.orders.MarkDelivered(ctx, paid.ID, "buyer"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("deliver purchased: expected ErrInvalidTransition, got %v", err)
	}
	if _, _, err := f.orders.CompleteWithReview(ctx, paid.ID, "buyer", model.ReviewOutcomeGood, "ok"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("review purchased: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := f.orders.MarkShipped(ctx, paid.ID, "seller"); err != nil {
		t.Fatalf("ship: %v", err)
	}
	if _, err := f.orders.MarkShipped(ctx, paid.ID, "seller"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("ship twice: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := f.orders.MarkDelivered(ctx, paid.ID, "seller"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("seller confirming delivery: expected ErrForbidden, got %v", err)
	}
	if _, err := f.orders.MarkShipped(ctx, 12345, "seller"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestCompleteWithReview_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.purchased(t, "seller", "buyer")
	if _, err := f.orders.MarkShipped(ctx, o.ID, "seller"); err != nil {
		t.Fatalf("ship: %v", err)
	}

	tests := []struct {
		name    string
		actor   string
		outcome model.ReviewOutcome
		comment string
		want    error
	}{
		{"seller cannot review", "seller", model.ReviewOutcomeGood, "nice", ErrForbidden},
		{"empty comment", "buyer", model.ReviewOutcomeGood, "   ", ErrValidation},
		{"unknown outcome", "buyer", model.ReviewOutcome("meh"), "hmm", ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := f.orders.CompleteWithReview(ctx, o.ID, tt.actor, tt.outcome, tt.comment); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if got := f.orderState(t, o.ID); got != model.OrderStateShipped {
				t.Fatalf("order state = %s after rejected review", got)
			}
		})
	}

	if _, _, err := f.orders.CompleteWithReview(ctx, o.ID, "buyer", model.ReviewOutcomeBad, "late"); err != nil {
		t.Fatalf("first review: %v", err)
	}
	if _, _, err := f.orders.CompleteWithReview(ctx, o.ID, "buyer", model.ReviewOutcomeGood, "again"); !errors.Is(err, ErrAlreadyReviewed) {
		t.Fatalf("second review: expected ErrAlreadyReviewed, got %v", err)
	}
	list, _ := f.reviews.ListBySeller(ctx, "seller")
	if len(list) != 1 {
		t.Fatalf("reviews = %d, want 1", len(list))
	}
}

func TestCompleteWithReview_ConcurrentAtMostOneReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.purchased(t, "seller", "buyer")
	if _, err := f.orders.MarkShipped(ctx, o.ID, "seller"); err != nil {
		t.Fatalf("ship: %v", err)
	}

	var (
		wg   sync.WaitGroup
		wins int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.orders.CompleteWithReview(ctx, o.ID, "buyer", model.ReviewOutcomeGood, "thanks")
			switch {
			case err == nil:
				atomic.AddInt32(&wins, 1)
			case errors.Is(err, ErrAlreadyReviewed), errors.Is(err, ErrInvalidTransition):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("successful reviews = %d, want 1", wins)
	}
	sum, _ := f.reviews.SellerSummary(ctx, "seller")
	if sum.Good != 1 {
		t.Fatalf("good count = %d, want 1", sum.Good)
	}
}

func TestPurchaseLifecycleScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.listItem(t, "seller", 1000)

	var seen []model.OrderState
	observe := func(o *model.Order) {
		if n := len(seen); n > 0 && o.State.Rank() < seen[n-1].Rank() {
			t.Fatalf("state went backwards: %s -> %s", seen[n-1], o.State)
		}
		seen = append(seen, o.State)
	}

	co, err := f.orders.InitiatePurchase(ctx, item.ID, "buyer-a")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	observe(co.Order)
	if co.Order.State != model.OrderStatePendingPayment || f.itemStatus(t, item.ID) != model.ItemStatusReserved {
		t.Fatalf("after initiate: order=%s item=%s", co.Order.State, f.itemStatus(t, item.ID))
	}

	if _, err := f.orders.InitiatePurchase(ctx, item.ID, "buyer-b"); !errors.Is(err, ErrItemUnavailable) {
		t.Fatalf("second buyer: expected ErrItemUnavailable, got %v", err)
	}

	f.gateway.Settle(co.Order.PaymentReference)
	o, err := f.orders.CompletePurchase(ctx, co.Order.PaymentReference)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	observe(o)
	if o.State != model.OrderStatePurchased || f.itemStatus(t, item.ID) != model.ItemStatusSold {
		t.Fatalf("after complete: order=%s item=%s", o.State, f.itemStatus(t, item.ID))
	}

	o, err = f.orders.MarkShipped(ctx, o.ID, "seller")
	if err != nil {
		t.Fatalf("ship: %v", err)
	}
	observe(o)
	if o.ShippedAt == nil {
		t.Fatal("shippedAt not stamped")
	}

	before, _ := f.reviews.SellerSummary(ctx, "seller")
	o, rv, err := f.orders.CompleteWithReview(ctx, o.ID, "buyer-a", model.ReviewOutcomeGood, "great seller")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	observe(o)
	if o.State != model.OrderStateCompleted || rv.OrderID != o.ID || rv.SellerUID != "seller" {
		t.Fatalf("after review: order=%+v review=%+v", o, rv)
	}
	after, _ := f.reviews.SellerSummary(ctx, "seller")
	if after.Good != before.Good+1 || after.Bad != before.Bad {
		t.Fatalf("summary before=%+v after=%+v", before, after)
	}

	stored, _ := f.store.Orders().FindByID(ctx, o.ID)
	if !stored.Price.Equal(item.Price) {
		t.Fatalf("price snapshot changed: %s", stored.Price)
	}
	for _, ev := range []string{notify.EventOrderPurchased, notify.EventOrderShipped, notify.EventOrderCompleted} {
		if got := f.dispatcher.count(ev); got != 1 {
			t.Fatalf("%s notifications = %d, want 1", ev, got)
		}
	}
}

func TestGetAndLists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	paid := f.purchased(t, "seller", "buyer")
	item := f.listItem(t, "seller", 500)
	if _, err := f.orders.InitiatePurchase(ctx, item.ID, "buyer"); err != nil {
		t.Fatalf("initiate: %v", err)
	}

	if _, err := f.orders.Get(ctx, paid.ID, "stranger"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	for _, uid := range []string{"buyer", "seller"} {
		if _, err := f.orders.Get(ctx, paid.ID, uid); err != nil {
			t.Fatalf("get as %s: %v", uid, err)
		}
	}

	purchases, _ := f.orders.ListByBuyer(ctx, "buyer")
	if len(purchases) != 1 || purchases[0].ID != paid.ID {
		t.Fatalf("purchases should hide pending orders: %+v", purchases)
	}
	sales, _ := f.orders.ListBySeller(ctx, "seller")
	if len(sales) != 2 {
		t.Fatalf("sales = %d, want 2", len(sales))
	}

	sum, err := f.orders.SalesSummary(ctx, "seller", time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Orders != 1 || !sum.Totals["jpy"].Equal(paid.Price) {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if sum.ByState[model.OrderStatePendingPayment] != 1 || sum.ByState[model.OrderStatePurchased] != 1 {
		t.Fatalf("unexpected by-state: %+v", sum.ByState)
	}
	if _, err := f.orders.SalesSummary(ctx, "seller", time.Now(), time.Now().Add(-time.Hour)); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for inverted range, got %v", err)
	}
}
