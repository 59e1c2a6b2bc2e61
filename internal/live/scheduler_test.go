package live_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/live"
	logging "github.com/okian/podium/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// scriptedUpdater runs a callback per contest and tracks concurrency.
type scriptedUpdater struct {
	fn       func(ctx context.Context, c model.Contest) (live.Report, error)
	inFlight atomic.Int32
	peak     atomic.Int32
	mu       sync.Mutex
	seen     []int64
}

func (u *scriptedUpdater) UpdateContest(ctx context.Context, c model.Contest) (live.Report, error) {
	n := u.inFlight.Add(1)
	defer u.inFlight.Add(-1)
	for {
		p := u.peak.Load()
		if n <= p || u.peak.CompareAndSwap(p, n) {
			break
		}
	}
	u.mu.Lock()
	u.seen = append(u.seen, c.ID)
	u.mu.Unlock()
	return u.fn(ctx, c)
}

func TestRunCycle(t *testing.T) {
	Convey("Given a store with three active contests and a finished one", t, func() {
		_ = logging.Init()
		ctx := context.Background()
		s := newFakeStore()
		s.addContest(1800, "tourist")
		s.addContest(1801, "petr")
		s.addContest(1802, "jiangly")
		s.addContest(1700, "tourist")
		old := s.contests[1700]
		old.StartTime = t0.Add(-48 * time.Hour)
		old.EndTime = t0.Add(-46 * time.Hour)
		s.contests[1700] = old

		j := newFakeJudge()
		j.recent[1800] = []model.Submission{sub("A", model.VerdictOK, 90, "tourist")}
		j.recent[1700] = []model.Submission{sub("A", model.VerdictOK, 90, "tourist")}
		j.err[1802] = errors.New("503 service unavailable")
		s.panicOn = 1801

		clock := func() time.Time { return t0.Add(30 * time.Minute) }
		u := newUpdater(j, s)
		sched := live.NewScheduler(s, u, live.WithClock(clock))

		Convey("When a cycle runs", func() {
			rep := sched.RunCycle(ctx)

			Convey("Then failures stay isolated to their contest", func() {
				So(rep.Err, ShouldBeNil)
				So(rep.ID, ShouldNotBeEmpty)
				So(rep.Active, ShouldEqual, 3)
				So(rep.Processed, ShouldEqual, 3)
				So(rep.Failed, ShouldEqual, 1)
				So(rep.Skipped, ShouldEqual, 1)
				So(rep.Participants, ShouldEqual, 1)
				So(rep.Cancelled, ShouldBeFalse)
				So(s.participant(1800, "tourist").ProblemStatus, ShouldEqual, "+:0")
			})

			Convey("Then the finished contest is not touched", func() {
				So(s.participant(1700, "tourist").ProblemStatus, ShouldEqual, "")
			})

			Convey("Then the cycle is kept for the ops API", func() {
				So(sched.LastCycle().ID, ShouldEqual, rep.ID)
				stats := sched.Stats()
				So(stats["cycles"], ShouldEqual, int64(1))
				So(stats["running"], ShouldEqual, false)
				So(stats["last_cycle"], ShouldNotBeNil)
			})
		})

		Convey("When listing contests fails", func() {
			s.listErr = errors.New("too many connections")
			rep := sched.RunCycle(ctx)

			Convey("Then the cycle reports the error and does nothing else", func() {
				So(rep.Err, ShouldNotBeNil)
				So(rep.Processed, ShouldEqual, 0)
				So(j.calls, ShouldEqual, 0)
			})
		})

		Convey("When no contest is running", func() {
			sched := live.NewScheduler(s, u, live.WithClock(func() time.Time { return t0.Add(24 * time.Hour) }))
			rep := sched.RunCycle(ctx)
			So(rep.Active, ShouldEqual, 0)
			So(rep.Processed, ShouldEqual, 0)
		})
	})
}

func TestRunCycleCancellation(t *testing.T) {
	Convey("Given a cycle whose first update cancels the caller", t, func() {
		_ = logging.Init()
		s := newFakeStore()
		s.addContest(1800, "a")
		s.addContest(1801, "b")
		s.addContest(1802, "c")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var sawCancelled atomic.Bool
		up := &scriptedUpdater{fn: func(uctx context.Context, c model.Contest) (live.Report, error) {
			cancel()
			time.Sleep(10 * time.Millisecond)
			if uctx.Err() != nil {
				sawCancelled.Store(true)
			}
			return live.Report{ContestID: c.ID, Outcome: live.OutcomeUnchanged}, nil
		}}
		sched := live.NewScheduler(s, up, live.WithClock(func() time.Time { return t0 }))

		Convey("When the cycle runs", func() {
			rep := sched.RunCycle(ctx)

			Convey("Then the started update finishes and no other contest starts", func() {
				So(rep.Cancelled, ShouldBeTrue)
				So(rep.Processed, ShouldEqual, 1)
				So(len(rep.Contests), ShouldEqual, 1)
				So(up.seen, ShouldResemble, []int64{1800})
				So(sawCancelled.Load(), ShouldBeFalse)
			})
		})

		Convey("When the caller is cancelled before the cycle", func() {
			cancel()
			rep := sched.RunCycle(ctx)
			So(rep.Processed, ShouldEqual, 0)
			So(len(up.seen), ShouldEqual, 0)
		})
	})
}

func TestRunCycleConcurrency(t *testing.T) {
	Convey("Given five active contests and a concurrency of two", t, func() {
		_ = logging.Init()
		s := newFakeStore()
		for id := int64(1); id <= 5; id++ {
			s.addContest(id, "x")
		}
		up := &scriptedUpdater{fn: func(_ context.Context, c model.Contest) (live.Report, error) {
			time.Sleep(15 * time.Millisecond)
			if c.ID == 3 {
				return live.Report{}, errors.New("boom")
			}
			return live.Report{ContestID: c.ID, Outcome: live.OutcomeUpdated, Updated: 1}, nil
		}}
		sched := live.NewScheduler(s, up, live.WithConcurrency(2), live.WithClock(func() time.Time { return t0 }))

		Convey("When a cycle runs", func() {
			rep := sched.RunCycle(context.Background())

			Convey("Then every contest is updated with at most two in flight", func() {
				So(rep.Processed, ShouldEqual, 5)
				So(rep.Failed, ShouldEqual, 1)
				So(rep.Participants, ShouldEqual, 4)
				So(up.peak.Load(), ShouldBeLessThanOrEqualTo, 2)
				So(len(up.seen), ShouldEqual, 5)
			})
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a scheduler with a short interval", t, func() {
		_ = logging.Init()
		s := newFakeStore()
		s.addContest(1800, "tourist")
		var calls atomic.Int32
		up := &scriptedUpdater{fn: func(_ context.Context, c model.Contest) (live.Report, error) {
			calls.Add(1)
			return live.Report{ContestID: c.ID, Outcome: live.OutcomeUnchanged}, nil
		}}
		sched := live.NewScheduler(s, up,
			live.WithInterval(5*time.Millisecond),
			live.WithClock(func() time.Time { return t0 }),
		)

		Convey("When it runs until cancelled", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
			defer cancel()

			done := make(chan struct{})
			go func() {
				sched.Run(ctx)
				close(done)
			}()

			Convey("Then it cycles repeatedly and stops", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
				}
				So(calls.Load(), ShouldBeGreaterThan, 1)
				So(sched.Stats()["running"], ShouldEqual, false)
				So(sched.Stats()["cycles"].(int64), ShouldBeGreaterThan, 1)
			})
		})
	})
}
