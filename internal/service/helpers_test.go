package service

import (
	"context"
	"sync"
	"testing"

	"github.com/shinyyama/evolon-market/internal/metrics"
	"github.com/shinyyama/evolon-market/internal/model"
	"github.com/shinyyama/evolon-market/internal/notify"
	"github.com/shinyyama/evolon-market/internal/payment"
	"github.com/shinyyama/evolon-market/internal/repository/memory"
	"github.com/shopspring/decimal"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (d *recordingDispatcher) Dispatch(_ context.Context, msg notify.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.msgs = append(d.msgs, msg)
}

func (d *recordingDispatcher) count(event string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, m := range d.msgs {
		if m.Event == event {
			n++
		}
	}
	return n
}

type fixture struct {
	store      *memory.Store
	gateway    *payment.Sandbox
	dispatcher *recordingDispatcher
	metrics    *metrics.Metrics
	ledger     Ledger
	reviews    ReviewService
	orders     OrderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:      memory.NewStore(),
		gateway:    payment.NewSandbox(""),
		dispatcher: &recordingDispatcher{},
		metrics:    metrics.Nop(),
	}
	f.ledger = NewLedger(f.store.Items())
	f.reviews = NewReviewService(f.store.Reviews())
	f.orders = NewOrderService(
		f.store.Transactor(),
		f.store.Orders(),
		f.ledger,
		f.reviews,
		f.gateway,
		f.dispatcher,
		f.metrics,
	)
	return f
}

func (f *fixture) listItem(t *testing.T, seller string, price int64) *model.Item {
	t.Helper()
	item := &model.Item{
		SellerUID:   seller,
		Title:       "vintage lamp",
		Description: "works",
		Price:       decimal.NewFromInt(price),
		Currency:    "jpy",
		Status:      model.ItemStatusListed,
	}
	if err := f.store.Items().Create(context.Background(), item); err != nil {
		t.Fatalf("create item: %v", err)
	}
	return item
}

func (f *fixture) itemStatus(t *testing.T, id uint64) model.ItemStatus {
	t.Helper()
	item, err := f.store.Items().FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("find item: %v", err)
	}
	return item.Status
}

func (f *fixture) orderState(t *testing.T, id uint64) model.OrderState {
	t.Helper()
	o, err := f.store.Orders().FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("find order: %v", err)
	}
	return o.State
}

// purchased returns an order that has been paid for.
func (f *fixture) purchased(t *testing.T, seller, buyer string) *model.Order {
	t.Helper()
	ctx := context.Background()
	item := f.listItem(t, seller, 1000)
	co, err := f.orders.InitiatePurchase(ctx, item.ID, buyer)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	f.gateway.Settle(co.Order.PaymentReference)
	o, err := f.orders.CompletePurchase(ctx, co.Order.PaymentReference)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	return o
}

func paymentSandboxWithSecret(t *testing.T) *payment.Sandbox {
	t.Helper()
	return payment.NewSandbox("whsec_test")
}
