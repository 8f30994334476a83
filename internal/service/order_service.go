package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shinyyama/evolon-market/internal/logging"
	"github.com/shinyyama/evolon-market/internal/metrics"
	"github.com/shinyyama/evolon-market/internal/model"
	"github.com/shinyyama/evolon-market/internal/notify"
	"github.com/shinyyama/evolon-market/internal/payment"
	"github.com/shinyyama/evolon-market/internal/repository"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Checkout is what the buyer needs to pay for a freshly created order.
type Checkout struct {
	Order        *model.Order
	ClientHandle string
}

type SalesSummary struct {
	SellerUID string                     `json:"sellerUid"`
	From      time.Time                  `json:"from"`
	To        time.Time                  `json:"to"`
	Totals    map[string]decimal.Decimal `json:"totals"` // by currency, purchased-or-later orders only
	Orders    int                        `json:"orders"`
	ByState   map[model.OrderState]int   `json:"byState"`
}

// OrderService is the order state machine:
// pending_payment -> purchased -> shipped -> (delivered) -> completed.
type OrderService interface {
	InitiatePurchase(ctx context.Context, itemID uint64, buyerUID string) (*Checkout, error)
	// CompletePurchase is idempotent: once the order has left pending_payment it
	// returns the current order without calling the gateway or repeating side effects.
	CompletePurchase(ctx context.Context, paymentReference string) (*model.Order, error)
	MarkShipped(ctx context.Context, orderID uint64, sellerUID string) (*model.Order, error)
	MarkDelivered(ctx context.Context, orderID uint64, buyerUID string) (*model.Order, error)
	CompleteWithReview(ctx context.Context, orderID uint64, buyerUID string, outcome model.ReviewOutcome, comment string) (*model.Order, *model.Review, error)
	Get(ctx context.Context, orderID uint64, uid string) (*model.Order, error)
	ListByBuyer(ctx context.Context, buyerUID string) ([]model.Order, error)
	ListBySeller(ctx context.Context, sellerUID string) ([]model.Order, error)
	SalesSummary(ctx context.Context, sellerUID string, from, to time.Time) (*SalesSummary, error)
}

type orderService struct {
	tx         repository.Transactor
	orders     repository.OrderRepository
	ledger     Ledger
	reviews    ReviewService
	gateway    payment.Gateway
	dispatcher Dispatcher
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	now        func() time.Time
}

func NewOrderService(
	tx repository.Transactor,
	orders repository.OrderRepository,
	ledger Ledger,
	reviews ReviewService,
	gateway payment.Gateway,
	dispatcher Dispatcher,
	m *metrics.Metrics,
) OrderService {
	return &orderService{
		tx:         tx,
		orders:     orders,
		ledger:     ledger,
		reviews:    reviews,
		gateway:    gateway,
		dispatcher: dispatcher,
		metrics:    m,
		tracer:     otel.Tracer("marketplace.orders"),
		now:        time.Now,
	}
}

func (s *orderService) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "order."+op, trace.WithAttributes(attrs...))
}

func (s *orderService) end(span trace.Span, op string, err error) {
	code := Code(err)
	s.metrics.Operations.WithLabelValues(op, code).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, code)
	}
	span.End()
}

func (s *orderService) recordTransition(from, to model.OrderState) {
	s.metrics.Transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (s *orderService) InitiatePurchase(ctx context.Context, itemID uint64, buyerUID string) (co *Checkout, err error) {
	ctx, span := s.begin(ctx, "initiate_purchase", attribute.Int64("item.id", int64(itemID)))
	defer func() { s.end(span, "initiate_purchase", err) }()
	logger := logging.FromContext(ctx).With(zap.Uint64("item_id", itemID), zap.String("buyer_uid", buyerUID))

	if buyerUID == "" {
		return nil, validationError("buyer is required")
	}
	item, err := s.ledger.GetSellableItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.SellerUID == buyerUID {
		return nil, fmt.Errorf("%w: cannot buy your own item", ErrForbidden)
	}
	if err := s.ledger.Reserve(ctx, itemID); err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreateIntent(ctx, item.Price, item.Currency, "purchase: "+item.Title)
	if err != nil {
		s.release(ctx, logger, itemID)
		return nil, gatewayError(err)
	}

	order := &model.Order{
		ItemID:           item.ID,
		ItemTitle:        item.Title,
		BuyerUID:         buyerUID,
		SellerUID:        item.SellerUID,
		Price:            item.Price,
		Currency:         item.Currency,
		PaymentReference: intent.Reference,
		State:            model.OrderStatePendingPayment,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		s.release(ctx, logger, itemID)
		return nil, fmt.Errorf("persist order: %w", err)
	}

	s.recordTransition("none", model.OrderStatePendingPayment)
	span.SetAttributes(attribute.Int64("order.id", int64(order.ID)))
	logger.Info("order_pending",
		zap.Uint64("order_id", order.ID),
		zap.String("payment_reference", order.PaymentReference),
		zap.String("price", order.Price.String()),
	)
	return &Checkout{Order: order, ClientHandle: intent.ClientHandle}, nil
}

// release undoes a reservation whose order never came to exist.
func (s *orderService) release(ctx context.Context, logger *zap.Logger, itemID uint64) {
	if err := s.ledger.Release(ctx, itemID); err != nil {
		logger.Error("reservation_release_failed", zap.Error(err))
	}
}

func (s *orderService) CompletePurchase(ctx context.Context, paymentReference string) (order *model.Order, err error) {
	ctx, span := s.begin(ctx, "complete_purchase", attribute.String("payment.reference", paymentReference))
	defer func() { s.end(span, "complete_purchase", err) }()
	logger := logging.FromContext(ctx).With(zap.String("payment_reference", paymentReference))

	if paymentReference == "" {
		return nil, validationError("paymentReference is required")
	}
	order, err = s.orders.FindByPaymentReference(ctx, paymentReference)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.State != model.OrderStatePendingPayment {
		logger.Debug("order_completion_noop", zap.Uint64("order_id", order.ID), zap.String("state", string(order.State)))
		return order, nil
	}

	settled, err := s.gateway.IsSettled(ctx, paymentReference)
	if err != nil {
		return nil, gatewayError(err)
	}
	if !settled {
		return nil, ErrPaymentNotConfirmed
	}

	at := s.now()
	applied := false
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.orders.Transition(ctx, order.ID, []model.OrderState{model.OrderStatePendingPayment}, model.OrderStatePurchased, at)
		if err != nil || !ok {
			return err
		}
		if err := s.ledger.MarkSold(ctx, order.ItemID); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		// Another caller completed it first; report what they left behind.
		current, err := s.orders.FindByID(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		logger.Debug("order_completion_lost_race", zap.Uint64("order_id", order.ID))
		return current, nil
	}

	order.State = model.OrderStatePurchased
	order.Stamp(model.OrderStatePurchased, at)
	s.recordTransition(model.OrderStatePendingPayment, model.OrderStatePurchased)
	logger.Info("order_purchased", zap.Uint64("order_id", order.ID), zap.Uint64("item_id", order.ItemID))
	s.dispatcher.Dispatch(ctx, notify.Message{
		Event:        notify.EventOrderPurchased,
		RecipientUID: order.SellerUID,
		OrderID:      order.ID,
		ItemID:       order.ItemID,
		Title:        "Your item was purchased",
		Body:         fmt.Sprintf("%s sold for %s %s. Please ship it.", order.ItemTitle, order.Price.String(), order.Currency),
	})
	return order, nil
}

// load fetches the order for a state change.
func (s *orderService) load(ctx context.Context, orderID uint64) (*model.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return o, nil
}

// advance applies a single guarded transition and stamps the in-memory order.
func (s *orderService) advance(ctx context.Context, o *model.Order, from []model.OrderState, to model.OrderState) error {
	at := s.now()
	ok, err := s.orders.Transition(ctx, o.ID, from, to, at)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: order %d is no longer %s", ErrInvalidTransition, o.ID, o.State)
	}
	prev := o.State
	o.State = to
	o.Stamp(to, at)
	s.recordTransition(prev, to)
	return nil
}

func (s *orderService) MarkShipped(ctx context.Context, orderID uint64, sellerUID string) (o *model.Order, err error) {
	ctx, span := s.begin(ctx, "mark_shipped", attribute.Int64("order.id", int64(orderID)))
	defer func() { s.end(span, "mark_shipped", err) }()

	o, err = s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.SellerUID != sellerUID {
		return nil, ErrForbidden
	}
	if o.State != model.OrderStatePurchased {
		return nil, fmt.Errorf("%w: cannot ship an order that is %s", ErrInvalidTransition, o.State)
	}
	if err := s.advance(ctx, o, []model.OrderState{model.OrderStatePurchased}, model.OrderStateShipped); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("order_shipped", zap.Uint64("order_id", o.ID))
	s.dispatcher.Dispatch(ctx, notify.Message{
		Event:        notify.EventOrderShipped,
		RecipientUID: o.BuyerUID,
		OrderID:      o.ID,
		ItemID:       o.ItemID,
		Title:        "Your order has shipped",
		Body:         o.ItemTitle + " is on its way.",
	})
	return o, nil
}

func (s *orderService) MarkDelivered(ctx context.Context, orderID uint64, buyerUID string) (o *model.Order, err error) {
	ctx, span := s.begin(ctx, "mark_delivered", attribute.Int64("order.id", int64(orderID)))
	defer func() { s.end(span, "mark_delivered", err) }()

	o, err = s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.BuyerUID != buyerUID {
		return nil, ErrForbidden
	}
	if o.State != model.OrderStateShipped {
		return nil, fmt.Errorf("%w: cannot confirm delivery of an order that is %s", ErrInvalidTransition, o.State)
	}
	if err := s.advance(ctx, o, []model.OrderState{model.OrderStateShipped}, model.OrderStateDelivered); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("order_delivered", zap.Uint64("order_id", o.ID))
	s.dispatcher.Dispatch(ctx, notify.Message{
		Event:        notify.EventOrderDelivered,
		RecipientUID: o.SellerUID,
		OrderID:      o.ID,
		ItemID:       o.ItemID,
		Title:        "Your buyer received the item",
		Body:         o.ItemTitle + " was delivered.",
	})
	return o, nil
}

var reviewableStates = []model.OrderState{model.OrderStateShipped, model.OrderStateDelivered}

func (s *orderService) CompleteWithReview(ctx context.Context, orderID uint64, buyerUID string, outcome model.ReviewOutcome, comment string) (o *model.Order, rv *model.Review, err error) {
	ctx, span := s.begin(ctx, "complete_with_review", attribute.Int64("order.id", int64(orderID)))
	defer func() { s.end(span, "complete_with_review", err) }()

	o, err = s.load(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if o.BuyerUID != buyerUID {
		return nil, nil, ErrForbidden
	}
	switch o.State {
	case model.OrderStateShipped, model.OrderStateDelivered:
	case model.OrderStateCompleted:
		// completed is only reachable through a review
		return nil, nil, ErrAlreadyReviewed
	default:
		return nil, nil, fmt.Errorf("%w: cannot review an order that is %s", ErrInvalidTransition, o.State)
	}
	rv, err = s.reviews.Prepare(ctx, o, outcome, comment)
	if err != nil {
		return nil, nil, err
	}

	at := s.now()
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.reviews.Attach(ctx, rv); err != nil {
			return err
		}
		ok, err := s.orders.Transition(ctx, o.ID, reviewableStates, model.OrderStateCompleted, at)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: order %d changed state during review", ErrInvalidTransition, o.ID)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	prev := o.State
	o.State = model.OrderStateCompleted
	o.Stamp(model.OrderStateCompleted, at)
	s.recordTransition(prev, model.OrderStateCompleted)
	logging.FromContext(ctx).Info("order_completed",
		zap.Uint64("order_id", o.ID),
		zap.Uint64("review_id", rv.ID),
		zap.String("outcome", string(rv.Outcome)),
	)
	s.dispatcher.Dispatch(ctx, notify.Message{
		Event:        notify.EventOrderCompleted,
		RecipientUID: o.SellerUID,
		OrderID:      o.ID,
		ItemID:       o.ItemID,
		Title:        "Your buyer left a review",
		Body:         fmt.Sprintf("%s: %s", rv.Outcome, rv.Comment),
	})
	return o, rv, nil
}

func (s *orderService) Get(ctx context.Context, orderID uint64, uid string) (*model.Order, error) {
	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if uid != o.BuyerUID && uid != o.SellerUID {
		return nil, ErrForbidden
	}
	return o, nil
}

// ListByBuyer returns the buyer's orders that were actually paid for.
func (s *orderService) ListByBuyer(ctx context.Context, buyerUID string) ([]model.Order, error) {
	list, err := s.orders.ListByBuyer(ctx, buyerUID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Order, 0, len(list))
	for _, o := range list {
		if o.State != model.OrderStatePendingPayment {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *orderService) ListBySeller(ctx context.Context, sellerUID string) ([]model.Order, error) {
	return s.orders.ListBySeller(ctx, sellerUID)
}

func (s *orderService) SalesSummary(ctx context.Context, sellerUID string, from, to time.Time) (*SalesSummary, error) {
	if sellerUID == "" {
		return nil, validationError("seller is required")
	}
	if !from.Before(to) {
		return nil, validationError("from must be before to")
	}
	list, err := s.orders.ListBySellerCreatedBetween(ctx, sellerUID, from, to)
	if err != nil {
		return nil, err
	}
	sum := &SalesSummary{
		SellerUID: sellerUID,
		From:      from,
		To:        to,
		Totals:    make(map[string]decimal.Decimal),
		ByState:   make(map[model.OrderState]int),
	}
	for _, o := range list {
		sum.ByState[o.State]++
		if o.State.Rank() < model.OrderStatePurchased.Rank() {
			continue
		}
		sum.Orders++
		sum.Totals[o.Currency] = sum.Totals[o.Currency].Add(o.Price)
	}
	return sum, nil
}
