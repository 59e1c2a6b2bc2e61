// Package worker drains the resync queue and runs each request against the
// live updater.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

const (
	defaultWorkerCount  = 2
	poolShutdownTimeout = 30 * time.Second
)

// Resyncer runs one manual resync.
type Resyncer interface {
	Resync(ctx context.Context, r model.ResyncRequest) error
}

// ResyncFunc adapts a function to Resyncer.
type ResyncFunc func(ctx context.Context, r model.ResyncRequest) error

// Resync calls f.
func (f ResyncFunc) Resync(ctx context.Context, r model.ResyncRequest) error { return f(ctx, r) }

// Queue defines how workers receive requests.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.ResyncRequest
}

// Worker processes requests from a queue.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current request.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	resyncer Resyncer
	name     string
	done     func(model.ResyncRequest)

	processed atomic.Int64
	failed    atomic.Int64

	shutdown chan struct{}
	finished chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker.
func NewInMemoryWorker(queue Queue, resyncer Resyncer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		resyncer: resyncer,
		name:     "worker",
		shutdown: make(chan struct{}),
		finished: make(chan struct{}),
		logger:   logger.Get().Named("resync-worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(logger.String("worker", w.name))
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.finished)

	requests := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case r, ok := <-requests:
			if !ok {
				return
			}
			w.process(ctx, r)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.finished:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Processed counts handled requests, failures included.
func (w *InMemoryWorker) Processed() int64 { return w.processed.Load() }

// Failed counts requests whose resync returned an error or panicked.
func (w *InMemoryWorker) Failed() int64 { return w.failed.Load() }

func (w *InMemoryWorker) process(ctx context.Context, r model.ResyncRequest) {
	start := time.Now()
	outcome := "ok"
	defer func() {
		if rec := recover(); rec != nil {
			outcome = "panic"
			w.failed.Add(1)
			w.logger.Error(ctx, "resync panicked",
				logger.String("request_id", r.RequestID),
				logger.Any("panic", rec),
			)
		}
		if w.done != nil {
			w.done(r)
		}
		w.processed.Add(1)
		metrics.RecordResyncProcessed(outcome, float64(time.Since(start).Milliseconds()))
	}()

	if err := w.resyncer.Resync(ctx, r); err != nil {
		outcome = "failed"
		w.failed.Add(1)
		w.logger.Error(ctx, "resync failed",
			logger.String("request_id", r.RequestID),
			logger.Int64("contest_id", r.ContestID),
			logger.Int64("user_id", r.UserID),
			logger.Error(err),
		)
		return
	}
	w.logger.Info(ctx, "resync finished",
		logger.String("request_id", r.RequestID),
		logger.Int64("contest_id", r.ContestID),
		logger.Duration("took", time.Since(start)),
	)
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers. Options apply to every
// worker.
func NewPool(workerCount int, queue Queue, resyncer Resyncer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("resync-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(queue, resyncer, wopts...)
	}
	metrics.UpdateResyncWorkers(workerCount)
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed sums handled requests across workers.
func (p *Pool) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Failed sums failed requests across workers.
func (p *Pool) Failed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Failed()
	}
	return n
}

// Shutdown closes the queue, if it can be closed, and waits for workers
// to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	for i, w := range p.workers {
		select {
		case <-w.finished:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("pool shutdown: %w", shutdownCtx.Err())
		}
	}
	metrics.UpdateResyncWorkers(0)
	return nil
}
