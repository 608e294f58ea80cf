package scoreboard

import (
	"maps"
	"slices"
	"time"
)

type Contest struct {
	ID         int64
	Alias      string
	StartTime  time.Time
	FinishTime time.Time
	// percentage of the contest duration whose runs are revealed to contestants
	ScoreboardPct int
	// reveal the full scoreboard once the contest has finished
	ShowScoreboardAfter bool
}

func (c Contest) HasFinished(now time.Time) bool {
	return !now.Before(c.FinishTime)
}

type Problem struct {
	ID    int64
	Alias string
}

type User struct {
	ID       int64
	Username string
	Name     *string
}

// DisplayName falls back to the username when the user has no name set.
func (u User) DisplayName() string {
	if u.Name == nil || *u.Name == "" {
		return u.Username
	}
	return *u.Name
}

const RunStatusReady = "ready"

type Run struct {
	ID        int64
	GUID      string
	UserID    int64
	ProblemID int64
	Time      time.Time
	// already normalized to contest points
	ContestScore float64
	// minutes since contest start, used as penalty
	SubmitDelay int
	Status      string
	// practice run, does not count towards the official ranking
	Test bool
}

type Score struct {
	Points  float64 `json:"points"`
	Penalty float64 `json:"penalty"`
}

type ProblemScore struct {
	Points     float64     `json:"points"`
	Penalty    float64     `json:"penalty"`
	RunDetails *RunDetails `json:"run_details,omitempty"`
}

// Entry is one row of the aggregated scoreboard.
type Entry struct {
	Username string                  `json:"username"`
	Name     string                  `json:"name"`
	Problems map[string]ProblemScore `json:"problems"`
	Total    Score                   `json:"total"`
}

type EventProblem struct {
	Alias   string  `json:"alias"`
	Points  float64 `json:"points"`
	Penalty float64 `json:"penalty"`
}

// Event is a strictly improving score change of a user on a problem.
type Event struct {
	Username string       `json:"username"`
	Name     string       `json:"name"`
	Delta    int          `json:"delta"`
	Problem  EventProblem `json:"problem"`
	Total    Score        `json:"total"`
}

// Snapshot is the unit stored in the scoreboard cache.
type Snapshot struct {
	ProblemCount int     `json:"problem_count"`
	Ranking      []Entry `json:"ranking,omitempty"`
	Events       []Event `json:"events,omitempty"`
}

// Clone returns a deep copy, so callers may modify the result without
// touching a snapshot held by a cache.
func (s Snapshot) Clone() Snapshot {
	res := Snapshot{
		ProblemCount: s.ProblemCount,
		Events:       slices.Clone(s.Events),
	}
	if s.Ranking != nil {
		res.Ranking = make([]Entry, len(s.Ranking))
		for i, e := range s.Ranking {
			e.Problems = maps.Clone(e.Problems)
			for alias, p := range e.Problems {
				if p.RunDetails != nil {
					details := *p.RunDetails
					details.Cases = slices.Clone(details.Cases)
					p.RunDetails = &details
					e.Problems[alias] = p
				}
			}
			res.Ranking[i] = e
		}
	}
	return res
}

type CaseMeta struct {
	Status string  `json:"status"`
	TimeS  float64 `json:"time,omitempty"`
	MemKiB int64   `json:"memory,omitempty"`
}

type CaseDetails struct {
	Name    string   `json:"name"`
	Meta    CaseMeta `json:"meta"`
	Score   float64  `json:"score,omitempty"`
	OutDiff *string  `json:"out_diff,omitempty"`
}

// RunDetails is the per test case report of a judged run.
type RunDetails struct {
	GUID         string        `json:"guid,omitempty"`
	Verdict      string        `json:"verdict,omitempty"`
	CompileError *string       `json:"compile_error,omitempty"`
	Cases        []CaseDetails `json:"cases,omitempty"`
	Source       string        `json:"source,omitempty"`
}
