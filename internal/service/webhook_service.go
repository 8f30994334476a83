package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shinyyama/evolon-market/internal/cache"
	"github.com/shinyyama/evolon-market/internal/logging"
	"github.com/shinyyama/evolon-market/internal/metrics"
	"github.com/shinyyama/evolon-market/internal/payment"
	"go.uber.org/zap"
)

var ErrInvalidWebhook = errors.New("invalid_webhook")

type WebhookResult struct {
	EventID   string
	Reference string
	Outcome   string // processed, duplicate, ignored
}

// WebhookService turns gateway callbacks into completion attempts. The payload is
// only used to find the order; settlement is always re-checked with the gateway.
type WebhookService interface {
	Handle(ctx context.Context, payload []byte, signature string) (*WebhookResult, error)
}

type webhookService struct {
	parser  payment.WebhookParser
	events  cache.EventLog
	orders  OrderService
	metrics *metrics.Metrics
}

func NewWebhookService(parser payment.WebhookParser, events cache.EventLog, orders OrderService, m *metrics.Metrics) WebhookService {
	if events == nil {
		events = cache.NopEventLog{}
	}
	return &webhookService{parser: parser, events: events, orders: orders, metrics: m}
}

func (s *webhookService) Handle(ctx context.Context, payload []byte, signature string) (res *WebhookResult, err error) {
	defer func() {
		outcome := Code(err)
		if err == nil {
			outcome = res.Outcome
		} else if errors.Is(err, ErrInvalidWebhook) {
			outcome = ErrInvalidWebhook.Error()
		}
		s.metrics.WebhookEvents.WithLabelValues(outcome).Inc()
	}()

	ev, err := s.parser.ParseWebhook(payload, signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}
	logger := logging.FromContext(ctx).With(zap.String("event_id", ev.ID), zap.String("event_type", ev.Type))
	res = &WebhookResult{EventID: ev.ID, Reference: ev.Reference}

	if ev.Reference == "" || !strings.HasSuffix(ev.Type, ".succeeded") {
		res.Outcome = "ignored"
		logger.Debug("webhook_ignored")
		return res, nil
	}

	seen, err := s.events.Seen(ctx, ev.ID)
	if err != nil {
		logger.Warn("webhook_dedup_lookup_failed", zap.Error(err))
	} else if seen {
		res.Outcome = "duplicate"
		logger.Info("webhook_duplicate")
		return res, nil
	}

	order, err := s.orders.CompletePurchase(ctx, ev.Reference)
	if err != nil {
		logger.Warn("webhook_completion_failed", zap.String("payment_reference", ev.Reference), zap.Error(err))
		return nil, err
	}
	if err := s.events.MarkProcessed(ctx, ev.ID); err != nil {
		logger.Warn("webhook_dedup_mark_failed", zap.Error(err))
	}
	res.Outcome = "processed"
	logger.Info("webhook_processed", zap.Uint64("order_id", order.ID), zap.String("state", string(order.State)))
	return res, nil
}
