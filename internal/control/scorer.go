package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/vietddude/walletscore/internal/core/config"
	"github.com/vietddude/walletscore/internal/core/retry"
	"github.com/vietddude/walletscore/internal/core/worker"
	redisclient "github.com/vietddude/walletscore/internal/infra/redis"
	"github.com/vietddude/walletscore/internal/infra/storage"
	"github.com/vietddude/walletscore/internal/infra/storage/memory"
	"github.com/vietddude/walletscore/internal/infra/storage/postgres"
	"github.com/vietddude/walletscore/internal/scoring/pipeline"
	"github.com/vietddude/walletscore/internal/service"
	"github.com/vietddude/walletscore/internal/service/api"
	"github.com/vietddude/walletscore/internal/service/consumer"
	"github.com/vietddude/walletscore/internal/service/grpcserver"
)

// Scorer is the main application struct that manages the service lifecycle.
type Scorer struct {
	cfg        Config
	engine     *pipeline.Engine
	state      *service.State
	feed       *service.Feed
	reporter   *service.Reporter
	repo       storage.ResultRepository
	apiServer  *api.Server
	grpcServer *grpcserver.Server
	pruner     *worker.Pruner
	db         *postgres.DB
	log        *slog.Logger

	mu          sync.Mutex
	redisClient *redisclient.Client
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// Config holds the application configuration.
type Config struct {
	ServiceName string
	Port        int
	GRPCPort    int
	Redis       redisclient.Config
	Queue       config.QueueConfig
	Database    postgres.Config
	Retention   time.Duration
}

// ConfigFromApp maps the file configuration onto the application config.
func ConfigFromApp(cfg *config.AppConfig) Config {
	return Config{
		ServiceName: cfg.Service.Name,
		Port:        cfg.Server.Port,
		GRPCPort:    cfg.Server.GRPCPort,
		Redis:       cfg.Redis,
		Queue:       cfg.Queue,
		Database:    cfg.Database,
		Retention:   cfg.Archive.Retention,
	}
}

// NewScorer creates a new Scorer instance with all dependencies initialized.
func NewScorer(cfg Config) (*Scorer, error) {
	s := &Scorer{
		cfg:    cfg,
		engine: pipeline.NewEngine(),
		state:  service.NewState(),
		feed:   service.NewFeed(),
		log:    slog.Default().With("component", "scorer"),
	}

	// 1. Initialize Storage
	if cfg.Database.URL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		var db *postgres.DB
		err := retry.Do(ctx, "postgres", retry.DefaultBackoff(), func(ctx context.Context) error {
			var err error
			db, err = postgres.NewDB(ctx, cfg.Database)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		s.db = db
		s.repo = postgres.NewResultRepo(db)
		s.log.Info("Using PostgreSQL storage")
	} else {
		s.repo = memory.NewResultRepo(memory.NewMemoryStorage())
		s.log.Info("Using Memory storage")
	}

	// 2. Shared reporter and transports
	s.reporter = service.NewReporter(s.state, s.repo, s.feed)
	s.apiServer = api.NewServer(api.Config{ServiceName: cfg.ServiceName, Port: cfg.Port}, s.engine, s.reporter, s.feed)
	if cfg.GRPCPort > 0 {
		s.grpcServer = grpcserver.NewServer(cfg.GRPCPort, s.engine, s.reporter)
	}

	// 3. Retention
	if cfg.Retention > 0 {
		s.pruner = worker.NewPruner(cfg.Retention, s.repo)
	}

	return s, nil
}

// Start launches every component in the background and returns immediately.
func (s *Scorer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	// Start API Server
	go func() {
		if err := s.apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("API server failed", "error", err)
		}
	}()
	s.log.Info("API server listening", "port", s.cfg.Port)

	// Start gRPC Server
	if s.grpcServer != nil {
		go func() {
			if err := s.grpcServer.Start(); err != nil {
				s.log.Error("gRPC server failed", "error", err)
			}
		}()
		s.log.Info("gRPC server listening", "port", s.cfg.GRPCPort)
	}

	// Start DB Metrics Collector
	if s.db != nil {
		s.db.StartMetricsCollector(ctx)
	}

	// Start Pruner
	if s.pruner != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.pruner.Start(ctx)
		}()
	}

	// Start Queue Consumer
	if s.cfg.Redis.URL != "" {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runConsumer(ctx)
		}()
	} else {
		s.log.Info("Redis not configured, queue consumer disabled")
	}

	return nil
}

// runConsumer connects to Redis with retries and consumes until ctx is done.
// Exhausted retries leave the service running without the consumer.
func (s *Scorer) runConsumer(ctx context.Context) {
	q := s.cfg.Queue
	var client *redisclient.Client

	err := retry.Do(ctx, "redis", retry.ConstantBackoff(q.ConnectDelay, q.ConnectAttempts), func(ctx context.Context) error {
		c, err := redisclient.NewClient(s.cfg.Redis)
		if err != nil {
			return err
		}
		client = c
		return nil
	})
	if err != nil {
		s.log.Error("Could not connect to Redis after retries", "error", err)
		return
	}

	s.mu.Lock()
	s.redisClient = client
	s.mu.Unlock()

	name := q.ConsumerName
	if name == "" {
		name = defaultConsumerName()
	}

	c := consumer.New(consumer.Config{
		InputStream:   q.InputStream,
		SuccessStream: q.SuccessStream,
		FailureStream: q.FailureStream,
		Group:         q.ConsumerGroup,
		Consumer:      name,
		BlockTimeout:  q.BlockTimeout,
		BatchSize:     q.BatchSize,
	}, client, s.engine, s.reporter)

	if err := c.Run(ctx); err != nil {
		s.log.Error("Queue consumer failed", "error", err)
	}
}

// Stop shuts every component down, waiting at most until ctx expires.
func (s *Scorer) Stop(ctx context.Context) error {
	s.log.Info("Stopping Scorer...")

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	var errs []error
	if err := s.apiServer.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop api server: %w", err))
	}
	if s.grpcServer != nil {
		if err := s.grpcServer.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop grpc server: %w", err))
		}
	}

	// Wait for background workers
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("background workers did not stop: %w", ctx.Err()))
	}

	// Close Redis
	s.mu.Lock()
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.log.Warn("Failed to close Redis", "error", err)
		}
		s.redisClient = nil
	}
	s.mu.Unlock()

	// Close DB
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Warn("Failed to close database", "error", err)
		}
	}

	return errors.Join(errs...)
}

// State returns the shared service state.
func (s *Scorer) State() *service.State {
	return s.state
}

// defaultConsumerName is stable across restarts of the same host, so the
// group keeps one consumer identity per instance.
func defaultConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "scorer"
	}
	return host
}
