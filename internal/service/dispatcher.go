package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/shinyyama/evolon-market/internal/logging"
	"github.com/shinyyama/evolon-market/internal/metrics"
	"github.com/shinyyama/evolon-market/internal/notify"
	"go.uber.org/zap"
)

// Dispatcher hands notifications to background delivery. Dispatch never blocks
// and never reports failure to the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg notify.Message)
}

type dispatchJob struct {
	msg    notify.Message
	logger *zap.Logger
}

// AsyncDispatcher delivers each queued message to every channel from a fixed
// pool of workers. A full queue drops the message.
type AsyncDispatcher struct {
	channels []notify.Channel
	queue    chan dispatchJob
	workers  int
	timeout  time.Duration
	metrics  *metrics.Metrics
	log      *zap.Logger

	mu        sync.RWMutex
	closed    bool
	startOnce sync.Once
	wg        sync.WaitGroup
}

func NewDispatcher(channels []notify.Channel, workers, queueSize int, timeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *AsyncDispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AsyncDispatcher{
		channels: channels,
		queue:    make(chan dispatchJob, queueSize),
		workers:  workers,
		timeout:  timeout,
		metrics:  m,
		log:      logger.With(zap.String("component", "notification_dispatcher")),
	}
}

func (d *AsyncDispatcher) Start() {
	d.startOnce.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.work()
		}
		d.log.Info("dispatcher_started", zap.Int("workers", d.workers), zap.Int("channels", len(d.channels)))
	})
}

func (d *AsyncDispatcher) Dispatch(ctx context.Context, msg notify.Message) {
	logger := logging.FromContext(ctx).With(
		zap.String("event", msg.Event),
		zap.Uint64("order_id", msg.OrderID),
	)

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(logger, "closed")
		return
	}
	select {
	case d.queue <- dispatchJob{msg: msg, logger: logger}:
	default:
		d.drop(logger, "queue_full")
	}
}

func (d *AsyncDispatcher) drop(logger *zap.Logger, reason string) {
	d.metrics.NotificationsDropped.Inc()
	logger.Warn("notification_dropped", zap.String("reason", reason))
}

// Close stops intake and waits for queued messages to drain or ctx to end.
func (d *AsyncDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *AsyncDispatcher) work() {
	defer d.wg.Done()
	for job := range d.queue {
		for _, ch := range d.channels {
			d.deliver(ch, job)
		}
	}
}

func (d *AsyncDispatcher) deliver(ch notify.Channel, job dispatchJob) {
	logger := job.logger.With(zap.String("channel", ch.Name()))
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := safeSend(ctx, ch, job.msg)
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, errChannelPanic):
		outcome = "panic"
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	default:
		outcome = "error"
	}
	d.metrics.Notifications.WithLabelValues(ch.Name(), outcome).Inc()
	if err != nil {
		logger.Warn("notification_failed", zap.Error(err))
		return
	}
	logger.Debug("notification_sent")
}

var errChannelPanic = errors.New("notification channel panicked")

func safeSend(ctx context.Context, ch notify.Channel, msg notify.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", errChannelPanic, r, debug.Stack())
		}
	}()
	return ch.Send(ctx, msg)
}
