package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/shinyyama/evolon-market/internal/cache"
	"github.com/shinyyama/evolon-market/internal/config"
	"github.com/shinyyama/evolon-market/internal/metrics"
	appmw "github.com/shinyyama/evolon-market/internal/middleware"
	"github.com/shinyyama/evolon-market/internal/notify"
	"github.com/shinyyama/evolon-market/internal/payment"
	"github.com/shinyyama/evolon-market/internal/repository"
	"github.com/shinyyama/evolon-market/internal/repository/memory"
	"github.com/shinyyama/evolon-market/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App owns every long-lived component behind the HTTP server.
type App struct {
	Deps       Deps
	Dispatcher *service.AsyncDispatcher

	closers []func(context.Context) error
}

type stores struct {
	tx            repository.Transactor
	items         repository.ItemRepository
	orders        repository.OrderRepository
	reviews       repository.ReviewRepository
	notifications repository.NotificationRepository
	contacts      repository.ContactRepository
}

func gormStores(db *gorm.DB) stores {
	return stores{
		tx:            repository.NewTransactor(db),
		items:         repository.NewItemRepository(db),
		orders:        repository.NewOrderRepository(db),
		reviews:       repository.NewReviewRepository(db),
		notifications: repository.NewNotificationRepository(db),
		contacts:      repository.NewContactRepository(db),
	}
}

func memoryStores(s *memory.Store) stores {
	return stores{
		tx:            s.Transactor(),
		items:         s.Items(),
		orders:        s.Orders(),
		reviews:       s.Reviews(),
		notifications: s.Notifications(),
		contacts:      s.Contacts(),
	}
}

// Build assembles the application from cfg. gdb is required when cfg.Store is mysql.
// auth may be nil, in which case it is derived from cfg.AuthMode.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, gdb *gorm.DB, reg *prometheus.Registry, auth appmw.Authenticator) (*App, error) {
	app := &App{}
	m := metrics.New(reg)

	var st stores
	switch cfg.Store {
	case config.StoreMySQL:
		if gdb == nil {
			return nil, errors.New("server: mysql store selected without a database connection")
		}
		st = gormStores(gdb)
	default:
		st = memoryStores(memory.NewStore())
	}

	var (
		gateway payment.Gateway
		parser  payment.WebhookParser
		sandbox *payment.Sandbox
		sigHdr  string
	)
	switch cfg.PaymentGateway {
	case config.GatewayStripe:
		s := payment.NewStripe(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.GatewayTimeout)
		gateway, parser, sigHdr = s, s, payment.StripeSignatureHeader
	default:
		sandbox = payment.NewSandbox(cfg.StripeWebhookSecret)
		gateway, parser, sigHdr = sandbox, sandbox, payment.SandboxSignatureHeader
	}
	gateway = payment.NewInstrumented(gateway, m)

	var events cache.EventLog = cache.NopEventLog{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable; webhook dedup falls back to order state", zap.Error(err))
		}
		events = cache.NewRedisEventLog(rdb, cfg.WebhookDedupTTL)
		app.closers = append(app.closers, func(context.Context) error { return rdb.Close() })
	}

	channels := []notify.Channel{
		notify.NewInbox(st.notifications),
		notify.NewLine(cfg.LineNotifyURL, st.contacts, &http.Client{Timeout: cfg.NotifyTimeout}),
	}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := notify.NewKafkaProducer(cfg.KafkaBrokers)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		k := notify.NewKafka(producer, cfg.KafkaTopic)
		channels = append(channels, k)
		app.closers = append(app.closers, func(context.Context) error { return k.Close() })
	}

	dispatcher := service.NewDispatcher(channels, cfg.NotifyWorkers, cfg.NotifyQueueSize, cfg.NotifyTimeout, m, logger)
	dispatcher.Start()
	app.Dispatcher = dispatcher
	// The dispatcher drains before the sinks it writes to are closed.
	app.closers = append([]func(context.Context) error{dispatcher.Close}, app.closers...)

	if auth == nil {
		switch cfg.AuthMode {
		case config.AuthHeader:
			auth = appmw.HeaderAuth{}
		default:
			fa, err := appmw.NewAuthMiddleware(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
			if err != nil {
				_ = app.Close(ctx)
				return nil, fmt.Errorf("firebase auth: %w", err)
			}
			auth = fa
		}
	}

	reviews := service.NewReviewService(st.reviews)
	orders := service.NewOrderService(
		st.tx,
		st.orders,
		service.NewLedger(st.items),
		reviews,
		gateway,
		dispatcher,
		m,
	)

	var gatherer prometheus.Gatherer
	if reg != nil {
		gatherer = reg
	}
	app.Deps = Deps{
		Items:            service.NewItemService(st.items, cfg.PaymentCurrency),
		Orders:           orders,
		Reviews:          reviews,
		Notifications:    service.NewNotificationService(st.notifications, st.contacts),
		Webhooks:         service.NewWebhookService(parser, events, orders, m),
		Sandbox:          sandbox,
		Auth:             auth,
		Logger:           logger,
		Gatherer:         gatherer,
		CORSOriginSuffix: cfg.CORSOriginSuffix,
		SignatureHeader:  sigHdr,
	}
	return app, nil
}

// Close stops the dispatcher and releases external clients in order.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for _, c := range a.closers {
		if err := c(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
