package scoreboard

import (
	"context"
	"time"

	"github.com/programme-lv/scoreboard/logger"
	"golang.org/x/sync/errgroup"
)

// upper bound on concurrently resolved users while building a table
const bestRunConcurrency = 8

type GenerateOptions struct {
	WithRunDetails bool
	SortByName     bool
	// nil means every relevant user
	FilterUsers []string
}

// Generate builds the aggregated scoreboard: one entry per relevant user with
// the best visible run per problem, sorted by score or by username.
func (s *Scoreboard) Generate(ctx context.Context, opts GenerateOptions) ([]Entry, error) {
	ctx = logger.WithContest(ctx, s.contestID, s.showAll)

	mode := ModeContestant
	if s.showAll {
		mode = ModeAdmin
	}
	// tables with run details are never cached, the cache key does not carry the flag
	useCache := s.cache.Enabled(mode) &&
		!opts.SortByName &&
		opts.FilterUsers == nil &&
		!opts.WithRunDetails

	snap, err := s.cached(ctx, mode, useCache, func(ctx context.Context) (Snapshot, bool, error) {
		return s.generate(ctx, opts)
	})
	if err != nil {
		return nil, err
	}
	s.problemCount = snap.ProblemCount
	// backends may drop empty slices
	if snap.Ranking == nil {
		snap.Ranking = []Entry{}
	}
	return snap.Ranking, nil
}

func (s *Scoreboard) generate(ctx context.Context, opts GenerateOptions) (Snapshot, bool, error) {
	var (
		contest  Contest
		pending  bool
		users    []User
		problems []Problem
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		contest, err = s.contests.GetContest(gctx, s.contestID)
		return err
	})
	g.Go(func() (err error) {
		pending, err = s.runs.PendingRuns(gctx, s.contestID, s.showAll)
		return err
	})
	g.Go(func() (err error) {
		users, err = s.runs.RelevantUsers(gctx, s.contestID, s.showAll, opts.FilterUsers)
		return err
	})
	g.Go(func() (err error) {
		problems, err = s.problems.RelevantProblems(gctx, s.contestID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, false, dataAccessErr(err)
	}

	cutoff := CutoffTime(contest, s.showAll, s.now())
	logger.FromContext(ctx).Debug("generating scoreboard",
		"cutoff", cutoff, "users", len(users), "problems", len(problems), "pending", pending)

	entries := make([]Entry, len(users))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(bestRunConcurrency)
	for i, user := range users {
		g.Go(func() error {
			entry, err := s.userEntry(gctx, user, problems, cutoff, opts.WithRunDetails)
			if err != nil {
				return err
			}
			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Snapshot{}, false, dataAccessErr(err)
	}

	if opts.SortByName {
		SortByName(entries)
	} else {
		SortByScore(entries)
	}

	return Snapshot{ProblemCount: len(problems), Ranking: entries}, !pending, nil
}

func (s *Scoreboard) userEntry(
	ctx context.Context,
	user User,
	problems []Problem,
	cutoff time.Time,
	withRunDetails bool,
) (Entry, error) {
	scores := make(map[string]ProblemScore, len(problems))
	for _, problem := range problems {
		run, err := s.runs.BestRun(ctx, s.contestID, problem.ID, user.ID, cutoff, s.showAll)
		if err != nil {
			return Entry{}, err
		}

		score := tableScore(run)
		if withRunDetails {
			score.RunDetails, err = s.runDetails(ctx, run)
			if err != nil {
				return Entry{}, err
			}
		}
		scores[problem.Alias] = score
	}

	return Entry{
		Username: user.Username,
		Name:     user.DisplayName(),
		Problems: scores,
		Total:    TotalScore(scores),
	}, nil
}
