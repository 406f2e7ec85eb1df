package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"covidstats/configs"
	"covidstats/internal/api"
	"covidstats/internal/events"
	"covidstats/internal/service"
	"covidstats/internal/storage"

	"go.uber.org/zap"
)

type closingPublisher interface {
	events.Publisher
	Close() error
}

var (
	schemaFunc = storage.EnsureSchema
	newStore   = storage.NewStore
	dialAMQP   = func(url, queue string, logger *zap.SugaredLogger) (closingPublisher, error) {
		return events.DialAMQP(url, queue, logger)
	}
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	sugar := logger.Sugar()
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Warnf("logger sync: %v", err)
		}
	}()

	cfg, err := configs.Load()
	if err != nil {
		sugar.Fatalf("config load failed: %v", err)
	}

	handler, cleanup, err := bootstrap(cfg, sql.Open, sugar)
	if err != nil {
		sugar.Fatalf("bootstrap failed: %v", err)
	}
	defer cleanup()

	sigCtx, sigCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer sigCancel()

	if err := run(sigCtx, handler, sugar, cfg.HTTPAddr, cfg.ShutdownTimeout); err != nil {
		sugar.Fatalf("server failed: %v", err)
	}
}

func run(
	ctx context.Context,
	srv http.Handler,
	logger *zap.SugaredLogger,
	addr string,
	shutdownTimeout time.Duration,
) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Infof("server listening on %s", server.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down...")
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("graceful shutdown failed: %v", err)
			return err
		}
		<-errCh
		logger.Info("server stopped")
		return nil
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	}
}

func bootstrap(
	cfg *configs.Config,
	openDB func(driverName, dsn string) (*sql.DB, error),
	logger *zap.SugaredLogger,
) (http.Handler, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := storage.Open(ctx, openDB, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, func() {}, err
	}
	if cfg.InitSchema {
		if err := schemaFunc(ctx, db, cfg.DBDriver); err != nil {
			_ = db.Close()
			return nil, func() {}, err
		}
	}

	var publisher events.Publisher = events.Nop{}
	var closePublisher func() error
	if cfg.AMQPURL != "" {
		p, err := dialAMQP(cfg.AMQPURL, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warnw("district events disabled", "err", err)
		} else {
			publisher = p
			closePublisher = p.Close
		}
	}

	store := newStore(db, logger)
	svc := service.New(store, publisher, logger)
	handler := api.NewServer(svc, logger).Routes()

	closed := false
	cleanup := func() {
		if closed {
			return
		}
		closed = true
		if closePublisher != nil {
			if err := closePublisher(); err != nil {
				logger.Warnw("close event publisher", "err", err)
			}
		}
		_ = db.Close()
	}
	return handler, cleanup, nil
}
