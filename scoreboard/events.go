package scoreboard

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/programme-lv/scoreboard/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Events replays the judged runs of the contest in submission order and
// returns one event per strictly improving (user, problem) score. Privileged
// viewers always get a freshly computed feed.
func (s *Scoreboard) Events(ctx context.Context) ([]Event, error) {
	ctx = logger.WithContest(ctx, s.contestID, s.showAll)

	useCache := !s.showAll && s.cache.Enabled(ModeEvents)
	snap, err := s.cached(ctx, ModeEvents, useCache, func(ctx context.Context) (Snapshot, bool, error) {
		return s.events(ctx, useCache)
	})
	if err != nil {
		return nil, err
	}
	s.problemCount = snap.ProblemCount
	if snap.Events == nil {
		snap.Events = []Event{}
	}
	return snap.Events, nil
}

func (s *Scoreboard) events(ctx context.Context, checkPending bool) (Snapshot, bool, error) {
	var (
		contest  Contest
		pending  bool
		users    []User
		problems []Problem
		runs     []Run
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		contest, err = s.contests.GetContest(gctx, s.contestID)
		return err
	})
	if checkPending {
		g.Go(func() (err error) {
			pending, err = s.runs.PendingRuns(gctx, s.contestID, s.showAll)
			return err
		})
	}
	g.Go(func() (err error) {
		users, err = s.runs.RelevantUsers(gctx, s.contestID, s.showAll, nil)
		return err
	})
	g.Go(func() (err error) {
		problems, err = s.problems.RelevantProblems(gctx, s.contestID)
		return err
	})
	g.Go(func() (err error) {
		runs, err = s.runs.SearchRuns(gctx, s.contestID, s.showAll)
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, false, dataAccessErr(err)
	}

	cutoff := CutoffTime(contest, s.showAll, s.now())
	logger.FromContext(ctx).Debug("replaying runs",
		"cutoff", cutoff, "runs", len(runs), "pending", pending)

	events := replay(runs, users, problems, cutoff)
	return Snapshot{ProblemCount: len(problems), Events: events}, !pending, nil
}

// replayState is owned by a single replay call and dropped afterwards.
type replayState struct {
	// user id -> problem id -> best points so far
	best map[int64]map[int64]decimal.Decimal
}

// improve records points for the pair if they beat the stored best and
// reports whether they did. Pairs without a record start at zero.
func (st *replayState) improve(userID, problemID int64, points decimal.Decimal) bool {
	problems, ok := st.best[userID]
	if !ok {
		problems = make(map[int64]decimal.Decimal)
		st.best[userID] = problems
	}
	if !points.GreaterThan(problems[problemID]) {
		return false
	}
	problems[problemID] = points
	return true
}

func (st *replayState) total(userID int64) decimal.Decimal {
	sum := decimal.Zero
	for _, points := range st.best[userID] {
		sum = sum.Add(points)
	}
	return sum
}

func replay(runs []Run, users []User, problems []Problem, cutoff time.Time) []Event {
	usersByID := make(map[int64]User, len(users))
	for _, u := range users {
		usersByID[u.ID] = u
	}
	problemsByID := make(map[int64]Problem, len(problems))
	for _, p := range problems {
		problemsByID[p.ID] = p
	}

	ordered := slices.Clone(runs)
	slices.SortStableFunc(ordered, func(a, b Run) int {
		return cmp.Compare(a.SubmitDelay, b.SubmitDelay)
	})

	st := replayState{best: make(map[int64]map[int64]decimal.Decimal)}
	events := []Event{}
	for _, run := range ordered {
		if !run.Time.Before(cutoff) {
			continue
		}
		user, ok := usersByID[run.UserID]
		if !ok {
			continue
		}
		problem, ok := problemsByID[run.ProblemID]
		if !ok {
			continue
		}

		points := round2(run.ContestScore)
		if !st.improve(run.UserID, run.ProblemID, points) {
			continue
		}

		// The feed does not model penalties: both the problem and the total
		// penalty stay zero whatever the submit delay was.
		events = append(events, Event{
			Username: user.Username,
			Name:     user.DisplayName(),
			Delta:    run.SubmitDelay,
			Problem: EventProblem{
				Alias:  problem.Alias,
				Points: points.InexactFloat64(),
			},
			Total: Score{
				Points: st.total(run.UserID).InexactFloat64(),
			},
		})
	}
	return events
}
