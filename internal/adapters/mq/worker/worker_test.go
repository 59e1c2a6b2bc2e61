package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/podium/internal/adapters/mq/queue"
	worker "github.com/okian/podium/internal/adapters/mq/worker"
	model "github.com/okian/podium/internal/domain/model"
	logging "github.com/okian/podium/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockQueue struct {
	ch chan model.ResyncRequest
}

func newMockQueue() *mockQueue {
	return &mockQueue{ch: make(chan model.ResyncRequest, 10)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan model.ResyncRequest { return mq.ch }

func (mq *mockQueue) Close() error {
	close(mq.ch)
	return nil
}

type mockResyncer struct {
	mu    sync.Mutex
	calls []model.ResyncRequest
	fail  map[int64]error
	panic map[int64]bool
}

func newMockResyncer() *mockResyncer {
	return &mockResyncer{fail: map[int64]error{}, panic: map[int64]bool{}}
}

func (m *mockResyncer) Resync(_ context.Context, r model.ResyncRequest) error {
	m.mu.Lock()
	m.calls = append(m.calls, r)
	err, boom := m.fail[r.ContestID], m.panic[r.ContestID]
	m.mu.Unlock()
	if boom {
		panic("judge exploded")
	}
	return err
}

func (m *mockResyncer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		rs := newMockResyncer()
		var doneMu sync.Mutex
		var done []string
		w := worker.NewInMemoryWorker(q, rs,
			worker.WithName("test-worker"),
			worker.WithDone(func(r model.ResyncRequest) {
				doneMu.Lock()
				done = append(done, r.Key())
				doneMu.Unlock()
			}),
		)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a request succeeds", func() {
			q.ch <- model.ResyncRequest{RequestID: "a", ContestID: 1}

			convey.Convey("Then it is processed and marked done", func() {
				convey.So(waitFor(func() bool { return w.Processed() == 1 }), convey.ShouldBeTrue)
				convey.So(w.Failed(), convey.ShouldEqual, 0)
				doneMu.Lock()
				convey.So(done, convey.ShouldResemble, []string{"contest:1"})
				doneMu.Unlock()
			})
		})

		convey.Convey("When a request fails", func() {
			rs.fail[2] = errors.New("judge unavailable")
			q.ch <- model.ResyncRequest{RequestID: "b", ContestID: 2, UserID: 9}

			convey.Convey("Then it counts as failed and is still marked done", func() {
				convey.So(waitFor(func() bool { return w.Failed() == 1 }), convey.ShouldBeTrue)
				convey.So(waitFor(func() bool {
					doneMu.Lock()
					defer doneMu.Unlock()
					return len(done) == 1 && done[0] == "contest:2:user:9"
				}), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a resync panics", func() {
			rs.panic[3] = true
			q.ch <- model.ResyncRequest{RequestID: "c", ContestID: 3}
			q.ch <- model.ResyncRequest{RequestID: "d", ContestID: 4}

			convey.Convey("Then the worker survives and handles the next request", func() {
				convey.So(waitFor(func() bool { return w.Processed() == 2 }), convey.ShouldBeTrue)
				convey.So(w.Failed(), convey.ShouldEqual, 1)
				convey.So(rs.count(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When shutting down", func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()
			convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a worker whose queue closes", t, func() {
		_ = logging.Init()
		q := newMockQueue()
		w := worker.NewInMemoryWorker(q, newMockResyncer())
		stopped := make(chan struct{})
		go func() {
			w.Run(context.Background())
			close(stopped)
		}()
		_ = q.Close()

		convey.Convey("Then the worker stops", func() {
			select {
			case <-stopped:
				convey.So(true, convey.ShouldBeTrue)
			case <-time.After(time.Second):
				convey.So("worker still running", convey.ShouldBeEmpty)
			}
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over a real queue", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		rs := newMockResyncer()
		pool := worker.NewPool(3, q, worker.ResyncFunc(rs.Resync))
		convey.So(pool.Size(), convey.ShouldEqual, 3)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		convey.Convey("When many requests are enqueued", func() {
			for i := 0; i < 30; i++ {
				convey.So(q.Enqueue(ctx, model.ResyncRequest{ContestID: int64(i)}), convey.ShouldBeTrue)
			}

			convey.Convey("Then all of them are processed", func() {
				convey.So(waitFor(func() bool { return pool.Processed() == 30 }), convey.ShouldBeTrue)
				convey.So(pool.Failed(), convey.ShouldEqual, 0)
			})

			convey.Convey("Then shutdown drains and stops", func() {
				sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer scancel()
				convey.So(pool.Shutdown(sctx), convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
				convey.So(rs.count(), convey.ShouldEqual, 30)
			})
		})
	})

	convey.Convey("Given a non-positive worker count", t, func() {
		_ = logging.Init()
		pool := worker.NewPool(0, newMockQueue(), newMockResyncer())
		convey.So(pool.Size(), convey.ShouldEqual, 2)
	})
}
