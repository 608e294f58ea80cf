package scoreboard

import "time"

// CutoffTime returns the instant before which runs are counted on the
// scoreboard. Admins, and everyone once a contest with ShowScoreboardAfter
// has finished, see the full contest duration. Others see the first
// ScoreboardPct percent of it, truncated to whole seconds.
func CutoffTime(contest Contest, showAll bool, now time.Time) time.Time {
	start := contest.StartTime.Unix()
	finish := contest.FinishTime.Unix()

	pct := int64(contest.ScoreboardPct)
	if showAll || (contest.HasFinished(now) && contest.ShowScoreboardAfter) {
		pct = 100
	}
	pct = max(0, min(pct, 100))

	return time.Unix(start+(finish-start)*pct/100, 0)
}
