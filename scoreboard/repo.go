package scoreboard

import (
	"context"
	"time"
)

type ContestStore interface {
	// GetContest returns ErrContestNotFound when no such contest exists.
	GetContest(ctx context.Context, contestID int64) (Contest, error)
}

type RunStore interface {
	// PendingRuns reports whether any run of the contest is not yet judged.
	PendingRuns(ctx context.Context, contestID int64, showAll bool) (bool, error)
	// RelevantUsers lists contestants with runs in the contest. A nil filter
	// means no filtering, otherwise only the listed usernames are returned.
	RelevantUsers(ctx context.Context, contestID int64, showAll bool, filter []string) ([]User, error)
	// BestRun returns the highest scoring judged run submitted strictly before
	// cutoff, or nil if the user has none. Practice runs count only with showAll.
	BestRun(ctx context.Context, contestID, problemID, userID int64, cutoff time.Time, showAll bool) (*Run, error)
	// SearchRuns lists judged runs ordered by submit delay, earliest first.
	SearchRuns(ctx context.Context, contestID int64, showAll bool) ([]Run, error)
}

type ProblemStore interface {
	RelevantProblems(ctx context.Context, contestID int64) ([]Problem, error)
}

type RunDetailProvider interface {
	RunDetails(ctx context.Context, guid string) (RunDetails, error)
}

// CacheBackend is a concurrency safe key-value store with per key expiry.
type CacheBackend interface {
	Get(ctx context.Context, key string) (Snapshot, bool, error)
	Set(ctx context.Context, key string, snap Snapshot, ttl time.Duration) error
}
