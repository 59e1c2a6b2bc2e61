package live_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/podium/internal/domain/model"
)

var t0 = time.Date(2026, 3, 1, 14, 35, 0, 0, time.UTC)

const wa = model.Verdict("WRONG_ANSWER")

func sub(index string, verdict model.Verdict, elapsed int64, handles ...string) model.Submission {
	return model.Submission{
		ContestID:       1800,
		ProblemIndex:    index,
		Verdict:         verdict,
		Handles:         handles,
		CreatedAt:       t0.Add(time.Duration(elapsed) * time.Second),
		RelativeSeconds: elapsed,
	}
}

// fakeJudge serves canned submissions.
type fakeJudge struct {
	mu       sync.Mutex
	recent   map[int64][]model.Submission
	byHandle map[string][]model.Submission
	err      map[int64]error
	calls    int
	gotCap   int
}

func newFakeJudge() *fakeJudge {
	return &fakeJudge{
		recent:   map[int64][]model.Submission{},
		byHandle: map[string][]model.Submission{},
		err:      map[int64]error{},
	}
}

func (j *fakeJudge) RecentSubmissions(_ context.Context, contestID int64, maxCount int) ([]model.Submission, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls++
	j.gotCap = maxCount
	if err := j.err[contestID]; err != nil {
		return nil, err
	}
	subs := j.recent[contestID]
	if len(subs) > maxCount {
		subs = subs[:maxCount]
	}
	return subs, nil
}

func (j *fakeJudge) HandleSubmissions(_ context.Context, contestID int64, handle string) ([]model.Submission, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls++
	if err := j.err[contestID]; err != nil {
		return nil, err
	}
	if handle == "ghost" {
		return nil, errors.New("handle not found")
	}
	return j.byHandle[handle], nil
}

// fakeStore keeps contests, problems and participants in memory and records
// every batch write.
type fakeStore struct {
	mu           sync.Mutex
	contests     map[int64]model.Contest
	problems     map[int64][]model.Problem
	participants map[int64][]model.Participant
	batches      [][]model.Participant
	failWrite    error
	panicOn      int64
	listErr      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		contests:     map[int64]model.Contest{},
		problems:     map[int64][]model.Problem{},
		participants: map[int64][]model.Participant{},
	}
}

func (s *fakeStore) addContest(id int64, handles ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contests[id] = model.Contest{ID: id, Name: fmt.Sprintf("Round %d", id), StartTime: t0, EndTime: t0.Add(2 * time.Hour)}
	s.problems[id] = []model.Problem{
		{ContestID: id, Index: "A", Points: 500},
		{ContestID: id, Index: "B", Points: 1000},
	}
	for i, h := range handles {
		s.participants[id] = append(s.participants[id], model.Participant{
			ID: id*100 + int64(i), UserID: int64(i + 1), ContestID: id, Handle: h, ProblemStatus: "",
		})
	}
}

func (s *fakeStore) Contest(_ context.Context, id int64) (model.Contest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contests[id]
	if !ok {
		return model.Contest{}, fmt.Errorf("contest %d: %w", id, model.ErrNotFound)
	}
	return c, nil
}

func (s *fakeStore) ActiveContests(_ context.Context, now time.Time) ([]model.Contest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []model.Contest
	for _, c := range s.contests {
		if c.Active(now) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) Problems(_ context.Context, contestID int64) ([]model.Problem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Problem(nil), s.problems[contestID]...), nil
}

func (s *fakeStore) Participants(_ context.Context, contestID int64) ([]model.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if contestID == s.panicOn {
		panic("corrupt roster")
	}
	return append([]model.Participant(nil), s.participants[contestID]...), nil
}

func (s *fakeStore) UpdateStandings(_ context.Context, ps []model.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(ps) == 0 {
		return nil
	}
	if s.failWrite != nil {
		return s.failWrite
	}
	s.batches = append(s.batches, append([]model.Participant(nil), ps...))
	for _, p := range ps {
		rows := s.participants[p.ContestID]
		for i := range rows {
			if rows[i].ID == p.ID {
				rows[i] = p
			}
		}
	}
	return nil
}

func (s *fakeStore) participant(contestID int64, handle string) model.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.participants[contestID] {
		if p.Handle == handle {
			return p
		}
	}
	return model.Participant{}
}

func (s *fakeStore) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}
