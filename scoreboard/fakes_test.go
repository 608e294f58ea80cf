package scoreboard_test

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/programme-lv/scoreboard/scoreboard"
)

var errStoreDown = errors.New("store is down")

// inMemStore holds a single contest and counts every store call.
type inMemStore struct {
	mu sync.Mutex

	contest  scoreboard.Contest
	users    []scoreboard.User
	problems []scoreboard.Problem
	runs     []scoreboard.Run

	calls  int
	failOn string
}

func newInMemStore(contest scoreboard.Contest) *inMemStore {
	return &inMemStore{contest: contest}
}

func (s *inMemStore) addUser(id int64, username string, name string) {
	u := scoreboard.User{ID: id, Username: username}
	if name != "" {
		u.Name = &name
	}
	s.users = append(s.users, u)
}

func (s *inMemStore) addProblem(id int64, alias string) {
	s.problems = append(s.problems, scoreboard.Problem{ID: id, Alias: alias})
}

func (s *inMemStore) addRun(run scoreboard.Run) {
	if run.ID == 0 {
		run.ID = int64(len(s.runs) + 1)
	}
	if run.Status == "" {
		run.Status = scoreboard.RunStatusReady
	}
	s.runs = append(s.runs, run)
}

func (s *inMemStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *inMemStore) enter(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failOn == op {
		return errStoreDown
	}
	return nil
}

func visible(run scoreboard.Run, showAll bool) bool {
	return showAll || !run.Test
}

func (s *inMemStore) GetContest(ctx context.Context, contestID int64) (scoreboard.Contest, error) {
	if err := s.enter("GetContest"); err != nil {
		return scoreboard.Contest{}, err
	}
	if contestID != s.contest.ID {
		return scoreboard.Contest{}, scoreboard.ErrContestNotFound
	}
	return s.contest, nil
}

func (s *inMemStore) PendingRuns(ctx context.Context, contestID int64, showAll bool) (bool, error) {
	if err := s.enter("PendingRuns"); err != nil {
		return false, err
	}
	for _, run := range s.runs {
		if visible(run, showAll) && run.Status != scoreboard.RunStatusReady {
			return true, nil
		}
	}
	return false, nil
}

func (s *inMemStore) RelevantUsers(ctx context.Context, contestID int64, showAll bool, filter []string) ([]scoreboard.User, error) {
	if err := s.enter("RelevantUsers"); err != nil {
		return nil, err
	}
	res := []scoreboard.User{}
	for _, u := range s.users {
		if filter != nil && !slices.Contains(filter, u.Username) {
			continue
		}
		res = append(res, u)
	}
	return res, nil
}

func (s *inMemStore) BestRun(ctx context.Context, contestID, problemID, userID int64, cutoff time.Time, showAll bool) (*scoreboard.Run, error) {
	if err := s.enter("BestRun"); err != nil {
		return nil, err
	}
	var best *scoreboard.Run
	for i := range s.runs {
		run := s.runs[i]
		if run.ProblemID != problemID || run.UserID != userID {
			continue
		}
		if !visible(run, showAll) || run.Status != scoreboard.RunStatusReady || !run.Time.Before(cutoff) {
			continue
		}
		if best == nil || run.ContestScore > best.ContestScore {
			best = &run
		}
	}
	return best, nil
}

func (s *inMemStore) SearchRuns(ctx context.Context, contestID int64, showAll bool) ([]scoreboard.Run, error) {
	if err := s.enter("SearchRuns"); err != nil {
		return nil, err
	}
	res := []scoreboard.Run{}
	for _, run := range s.runs {
		if visible(run, showAll) && run.Status == scoreboard.RunStatusReady {
			res = append(res, run)
		}
	}
	slices.SortStableFunc(res, func(a, b scoreboard.Run) int {
		return cmp.Compare(a.SubmitDelay, b.SubmitDelay)
	})
	return res, nil
}

func (s *inMemStore) RelevantProblems(ctx context.Context, contestID int64) ([]scoreboard.Problem, error) {
	if err := s.enter("RelevantProblems"); err != nil {
		return nil, err
	}
	return slices.Clone(s.problems), nil
}

type inMemDetails map[string]scoreboard.RunDetails

func (d inMemDetails) RunDetails(ctx context.Context, guid string) (scoreboard.RunDetails, error) {
	details, ok := d[guid]
	if !ok {
		return scoreboard.RunDetails{}, errors.New("no details for " + guid)
	}
	return details, nil
}

type failingBackend struct {
	sets int
}

func (b *failingBackend) Get(ctx context.Context, key string) (scoreboard.Snapshot, bool, error) {
	return scoreboard.Snapshot{}, false, nil
}

func (b *failingBackend) Set(ctx context.Context, key string, snap scoreboard.Snapshot, ttl time.Duration) error {
	b.sets++
	return errors.New("cache is full")
}
