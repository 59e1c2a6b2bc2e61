// Package service wires the podium components together and implements the
// dependencies required by the HTTP API and the command-line tools.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/okian/podium/internal/adapters/judge"
	"github.com/okian/podium/internal/adapters/lock"
	eventqueue "github.com/okian/podium/internal/adapters/mq/queue"
	workerpool "github.com/okian/podium/internal/adapters/mq/worker"
	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/catalog"
	"github.com/okian/podium/internal/config"
	"github.com/okian/podium/internal/domain/dedupe"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/live"
	"github.com/okian/podium/internal/rating"
	"github.com/okian/podium/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// Lock backends.
const (
	LockMemory = "memory"
	LockRedis  = "redis"
)

// Service owns every long-lived component.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     *repository.Store
	judge     *judge.Client
	redis     redis.UniversalClient
	locker    lock.Locker
	updater   *live.Updater
	scheduler *live.Scheduler
	engine    *rating.Engine
	importer  *catalog.Importer
	deduper   dedupe.Deduper
	queue     *eventqueue.InMemoryQueue
	pool      *workerpool.Pool

	// Configuration
	cfg        *config.Config
	dedupeSize int

	// State
	opened        bool
	started       bool
	stopScheduler context.CancelFunc
	schedulerDone chan struct{}

	logger logger.Logger
}

// New constructs a new Service. Components are built by Open or Start.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:        config.New(),
		dedupeSize: 4096,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects storage, the judge and the lock backend and builds every
// component without starting background loops. It is enough for one-shot
// commands. Calling Open again is a no-op.
func (s *Service) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open(ctx)
}

func (s *Service) open(ctx context.Context) error {
	if s.opened {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	cfg := s.cfg

	db, err := repository.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	store := repository.New(db,
		repository.WithLogger(s.logger.Named("repository")),
		repository.WithDefaultRating(cfg.DefaultRating),
	)
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return err
	}

	locker, rdb, err := s.openLocker(ctx)
	if err != nil {
		_ = store.Close()
		return err
	}

	s.store = store
	s.redis = rdb
	s.locker = locker
	s.judge = judge.New(
		judge.WithBaseURL(cfg.JudgeBaseURL),
		judge.WithTimeout(cfg.JudgeTimeout()),
		judge.WithRateLimit(cfg.JudgeRatePerSecond),
		judge.WithRetries(cfg.JudgeRetries),
		judge.WithLogger(s.logger.Named("judge")),
	)
	s.updater = live.NewUpdater(s.judge, store,
		live.WithWindowCap(cfg.WindowCap),
		live.WithCooldown(cfg.APICooldown()),
		live.WithLocker(locker),
		live.WithLogger(s.logger.Named("live-updater")),
	)
	s.scheduler = live.NewScheduler(store, s.updater,
		live.WithInterval(cfg.UpdateInterval()),
		live.WithConcurrency(cfg.ContestConcurrency),
		live.WithSchedulerLogger(s.logger.Named("scheduler")),
	)
	s.engine = rating.NewEngine(store,
		rating.WithLocker(locker),
		rating.WithDefaultRating(cfg.DefaultRating),
		rating.WithLogger(s.logger.Named("rating")),
	)
	s.importer = catalog.New(s.judge, store,
		catalog.WithCooldown(cfg.APICooldown()),
		catalog.WithLogger(s.logger.Named("catalog")),
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(cfg.ResyncQueueSize))
	s.pool = workerpool.NewPool(cfg.ResyncWorkers, s.queue,
		workerpool.ResyncFunc(s.updater.ResyncRequest),
		workerpool.WithLogger(s.logger.Named("resync-worker")),
		workerpool.WithDone(func(r model.ResyncRequest) {
			s.deduper.Unrecord(context.Background(), r.Key())
		}),
	)

	s.opened = true
	s.logger.Info(ctx, "podium components ready",
		logger.String("db_driver", cfg.DBDriver),
		logger.String("lock_backend", cfg.LockBackend),
		logger.String("judge", cfg.JudgeBaseURL),
	)
	return nil
}

func (s *Service) openLocker(ctx context.Context) (lock.Locker, redis.UniversalClient, error) {
	switch s.cfg.LockBackend {
	case LockRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPassword,
			DB:       s.cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("connect redis %s: %w", s.cfg.RedisAddr, err)
		}
		return lock.NewRedis(rdb, lock.WithTTL(s.cfg.LockTTL())), rdb, nil
	case LockMemory, "":
		return lock.NewMemory(), nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: lock backend %q", config.ErrInvalidConfig, s.cfg.LockBackend)
	}
}

// Start opens the service and launches the scheduler and the resync
// workers. They run until Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if err := s.open(ctx); err != nil {
		return err
	}

	s.logger.Info(ctx, "starting podium service...")
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.stopScheduler = cancel
	s.schedulerDone = make(chan struct{})
	s.pool.Start(runCtx)
	go func() {
		defer close(s.schedulerDone)
		s.scheduler.Run(runCtx)
	}()

	s.started = true
	s.logger.Info(ctx, "podium service started",
		logger.Duration("interval", s.cfg.UpdateInterval()),
		logger.Int("contest_concurrency", s.cfg.ContestConcurrency),
		logger.Int("resync_workers", s.pool.Size()),
		logger.Int("resync_queue_size", s.cfg.ResyncQueueSize),
	)
	return nil
}

// Stop waits for the running cycle and queued resyncs to finish, then
// releases connections.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping podium service...")

	if s.started {
		// Drain queued resyncs before the workers' context goes away.
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "resync pool shutdown incomplete", logger.Error(err))
		}
		s.stopScheduler()
		<-s.schedulerDone
		s.started = false
	} else if s.queue != nil {
		_ = s.queue.Close()
	}

	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Warn(ctx, "closing connections failed", logger.Error(err))
	}

	s.opened = false
	s.logger.Info(ctx, "podium service stopped")
}
