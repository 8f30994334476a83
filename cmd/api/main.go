package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shinyyama/evolon-market/internal/config"
	"github.com/shinyyama/evolon-market/internal/db"
	"github.com/shinyyama/evolon-market/internal/logging"
	"github.com/shinyyama/evolon-market/internal/server"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	gitSHA    = "dev"
	buildTime = ""
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.NewLogger("evolon-market", cfg.Env)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var gdb *gorm.DB
	if cfg.Store == config.StoreMySQL {
		conn, err := db.Connect(cfg)
		if err != nil {
			return err
		}
		if cfg.AutoMigrate {
			if err := db.Migrate(conn); err != nil {
				return err
			}
		}
		gdb = conn
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app, err := server.Build(ctx, cfg, logger, gdb, reg, nil)
	if err != nil {
		return err
	}
	srv := server.New(app.Deps, gitSHA, buildTime)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("addr", addr),
			zap.String("store", cfg.Store),
			zap.String("gateway", cfg.PaymentGateway),
		)
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.Close(context.Background())
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := app.Close(shutdownCtx); err != nil {
		logger.Warn("component shutdown", zap.Error(err))
	}
	return nil
}
