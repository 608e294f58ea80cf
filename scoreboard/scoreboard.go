package scoreboard

import (
	"context"
	"time"

	"github.com/programme-lv/scoreboard/logger"
)

type ScoreboardSrvc struct {
	contests ContestStore
	runs     RunStore
	problems ProblemStore
	details  RunDetailProvider
	cache    *Cache

	now func() time.Time
}

// NewScoreboardSrvc wires the store collaborators. details and cache may be
// nil, which disables run details and caching respectively.
func NewScoreboardSrvc(
	contests ContestStore,
	runs RunStore,
	problems ProblemStore,
	details RunDetailProvider,
	cache *Cache,
) *ScoreboardSrvc {
	return &ScoreboardSrvc{
		contests: contests,
		runs:     runs,
		problems: problems,
		details:  details,
		cache:    cache,
		now:      time.Now,
	}
}

// ForContest returns a scoreboard for a single request. showAll is set for
// privileged viewers and makes practice runs and the whole contest duration
// visible.
func (s *ScoreboardSrvc) ForContest(contestID int64, showAll bool) *Scoreboard {
	return &Scoreboard{
		contestID: contestID,
		showAll:   showAll,
		contests:  s.contests,
		runs:      s.runs,
		problems:  s.problems,
		details:   s.details,
		cache:     s.cache,
		now:       s.now,
	}
}

// Scoreboard computes the ranking and the event feed of one contest for one
// viewer. It is not safe for concurrent use.
type Scoreboard struct {
	contestID int64
	showAll   bool

	contests ContestStore
	runs     RunStore
	problems ProblemStore
	details  RunDetailProvider
	cache    *Cache
	now      func() time.Time

	problemCount int
}

// ProblemCount is the number of problems used by the last Generate or Events call.
func (s *Scoreboard) ProblemCount() int {
	return s.problemCount
}

type computeFunc func(ctx context.Context) (snap Snapshot, final bool, err error)

// cached serves mode from the cache when useCache allows it. On a miss the
// snapshot is computed and written back only if compute reports it as final,
// i.e. no runs were pending. A failed write is logged and otherwise ignored.
func (s *Scoreboard) cached(ctx context.Context, mode CacheMode, useCache bool, compute computeFunc) (Snapshot, error) {
	if useCache {
		if snap, found := s.cache.Get(ctx, mode, s.contestID); found {
			return snap, nil
		}
	}

	start := time.Now()
	snap, final, err := compute(ctx)
	status := "ok"
	if err != nil {
		status = "error"
	}
	buildDuration.WithLabelValues(mode.String(), status).Observe(time.Since(start).Seconds())
	if err != nil {
		return Snapshot{}, err
	}

	if useCache && final {
		err = s.cache.Put(ctx, mode, s.contestID, snap, s.cache.TTL(mode))
		if err != nil {
			logger.FromContext(ctx).Warn("failed to cache scoreboard", "mode", mode, "error", err)
		}
	}
	return snap, nil
}
