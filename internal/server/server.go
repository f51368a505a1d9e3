package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/1dlvb/async-bank-app/internal/audit"
	"github.com/1dlvb/async-bank-app/internal/config"
	"github.com/1dlvb/async-bank-app/internal/service"
	"github.com/1dlvb/async-bank-app/internal/store"
)

// backingStore is the full persistence surface plus the lifecycle hooks the
// server manages.
type backingStore interface {
	store.Store
	Ping(ctx context.Context) error
	Close() error
}

// Server represents the HTTP server with all its dependencies
type Server struct {
	cfg         *config.Config
	log         *zap.Logger
	httpServer  *http.Server
	store       backingStore
	redisClient *redis.Client
	producer    *audit.Producer
}

// New creates a new server instance
func New(cfg *config.Config, log *zap.Logger) (*Server, error) {
	s := &Server{
		cfg: cfg,
		log: log,
	}

	// Initialize the store (postgres or in-memory)
	switch cfg.StoreBackend {
	case "memory":
		log.Info("using in-memory store")
		s.store = store.NewMemoryStore()
	default:
		log.Info("connecting to postgres")
		pg, err := store.NewPostgresStore(context.Background(), cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres store: %w", err)
		}
		s.store = pg
	}

	// Initialize Redis client for rate limiting
	log.Info("connecting to redis", zap.String("addr", cfg.RedisAddr))
	s.redisClient = redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("redis connection failed, rate limiting disabled", zap.Error(err))
		s.redisClient = nil
	}

	// Initialize the audit producer when a broker is configured
	var publisher service.TransferPublisher
	if cfg.KafkaBroker != "" {
		s.producer = audit.NewProducer(strings.Split(cfg.KafkaBroker, ","), cfg.KafkaTopic, log)
		publisher = s.producer
	}

	// Wire the services
	accounts := service.NewAccountService(s.store, cfg.WorkerPoolSize, log)
	transfers := service.NewTransferService(s.store, s.store, log, service.TransferOptions{
		Strategy:  service.LockStrategy(cfg.LockStrategy),
		LockWait:  cfg.LockWait,
		Workers:   cfg.WorkerPoolSize,
		Publisher: publisher,
	})
	deposits := service.NewDepositService(s.store, s.store, cfg.WorkerPoolSize, log)

	router := SetupRouter(cfg, log, s.store, s.redisClient, accounts, transfers, deposits)

	s.httpServer = &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Run starts the server and handles graceful shutdown
func (s *Server) Run() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)

	go func() {
		s.log.Info("starting server",
			zap.String("port", s.cfg.HTTPPort),
			zap.String("store", s.cfg.StoreBackend),
			zap.String("lock_strategy", s.cfg.LockStrategy),
			zap.Bool("dev_mode", s.cfg.DevMode))

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.log.Info("received signal, shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Error("http server shutdown error", zap.Error(err))
	}

	if s.producer != nil {
		if err := s.producer.Close(); err != nil {
			s.log.Error("audit producer close error", zap.Error(err))
		}
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.log.Error("redis client close error", zap.Error(err))
		}
	}

	if err := s.store.Close(); err != nil {
		s.log.Error("store close error", zap.Error(err))
	}

	s.log.Info("server gracefully stopped")
	return nil
}
