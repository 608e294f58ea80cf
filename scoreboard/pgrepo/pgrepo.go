package pgrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/programme-lv/scoreboard/logger"
	"github.com/programme-lv/scoreboard/scoreboard"
)

// pgScoreboardRepo serves contests, problems and runs to the scoreboard.
type pgScoreboardRepo struct {
	pool *pgxpool.Pool
}

func NewPgScoreboardRepo(pool *pgxpool.Pool) *pgScoreboardRepo {
	return &pgScoreboardRepo{pool: pool}
}

func (r *pgScoreboardRepo) GetContest(ctx context.Context, contestID int64) (scoreboard.Contest, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting contest", "contest_id", contestID)

	query := `
		SELECT id, alias, start_time, finish_time, scoreboard_pct, show_scoreboard_after
		FROM contests
		WHERE id = $1
	`
	var c scoreboard.Contest
	err := r.pool.QueryRow(ctx, query, contestID).Scan(
		&c.ID,
		&c.Alias,
		&c.StartTime,
		&c.FinishTime,
		&c.ScoreboardPct,
		&c.ShowScoreboardAfter,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return scoreboard.Contest{}, fmt.Errorf("contest %d: %w", contestID, scoreboard.ErrContestNotFound)
	}
	if err != nil {
		log.Debug("failed to get contest", "error", err)
		return scoreboard.Contest{}, fmt.Errorf("failed to get contest: %w", err)
	}
	return c, nil
}

func (r *pgScoreboardRepo) PendingRuns(ctx context.Context, contestID int64, showAll bool) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM runs
			WHERE contest_id = $1
			  AND status <> $2
			  AND ($3 OR NOT test)
		)
	`
	var pending bool
	err := r.pool.QueryRow(ctx, query, contestID, scoreboard.RunStatusReady, showAll).Scan(&pending)
	if err != nil {
		logger.FromContext(ctx).Debug("failed to check pending runs", "error", err)
		return false, fmt.Errorf("failed to check pending runs: %w", err)
	}
	return pending, nil
}

func (r *pgScoreboardRepo) RelevantUsers(ctx context.Context, contestID int64, showAll bool, filter []string) ([]scoreboard.User, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing relevant users", "contest_id", contestID, "filter", filter)

	query := `
		SELECT DISTINCT u.id, u.username, u.name
		FROM users u
		JOIN runs r ON r.user_id = u.id
		WHERE r.contest_id = $1
		  AND ($2 OR NOT r.test)
		  AND ($3::text[] IS NULL OR u.username = ANY($3))
		ORDER BY u.username
	`
	rows, err := r.pool.Query(ctx, query, contestID, showAll, filter)
	if err != nil {
		log.Debug("failed to query relevant users", "error", err)
		return nil, fmt.Errorf("failed to query relevant users: %w", err)
	}
	defer rows.Close()

	users := []scoreboard.User{}
	for rows.Next() {
		var u scoreboard.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Name); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

func (r *pgScoreboardRepo) RelevantProblems(ctx context.Context, contestID int64) ([]scoreboard.Problem, error) {
	query := `
		SELECT p.id, p.alias
		FROM contest_problems cp
		JOIN problems p ON p.id = cp.problem_id
		WHERE cp.contest_id = $1
		ORDER BY cp.order_idx, p.alias
	`
	rows, err := r.pool.Query(ctx, query, contestID)
	if err != nil {
		logger.FromContext(ctx).Debug("failed to query problems", "error", err)
		return nil, fmt.Errorf("failed to query problems: %w", err)
	}
	defer rows.Close()

	problems := []scoreboard.Problem{}
	for rows.Next() {
		var p scoreboard.Problem
		if err := rows.Scan(&p.ID, &p.Alias); err != nil {
			return nil, fmt.Errorf("failed to scan problem: %w", err)
		}
		problems = append(problems, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating problems: %w", err)
	}
	return problems, nil
}

const runColumns = `
	id, COALESCE(guid, ''), user_id, problem_id, time,
	COALESCE(contest_score, 0), submit_delay, status, test
`

func scanRun(row pgx.Row) (scoreboard.Run, error) {
	var run scoreboard.Run
	err := row.Scan(
		&run.ID,
		&run.GUID,
		&run.UserID,
		&run.ProblemID,
		&run.Time,
		&run.ContestScore,
		&run.SubmitDelay,
		&run.Status,
		&run.Test,
	)
	return run, err
}

// BestRun breaks score ties by the earlier submission.
func (r *pgScoreboardRepo) BestRun(
	ctx context.Context,
	contestID, problemID, userID int64,
	cutoff time.Time,
	showAll bool,
) (*scoreboard.Run, error) {
	query := `SELECT ` + runColumns + `
		FROM runs
		WHERE contest_id = $1
		  AND problem_id = $2
		  AND user_id = $3
		  AND status = $4
		  AND time < $5
		  AND ($6 OR NOT test)
		ORDER BY contest_score DESC NULLS LAST, submit_delay, id
		LIMIT 1
	`
	run, err := scanRun(r.pool.QueryRow(ctx, query,
		contestID, problemID, userID, scoreboard.RunStatusReady, cutoff, showAll))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		logger.FromContext(ctx).Debug("failed to get best run", "error", err)
		return nil, fmt.Errorf("failed to get best run: %w", err)
	}
	return &run, nil
}

func (r *pgScoreboardRepo) SearchRuns(ctx context.Context, contestID int64, showAll bool) ([]scoreboard.Run, error) {
	log := logger.FromContext(ctx)
	log.Debug("searching runs", "contest_id", contestID)

	query := `SELECT ` + runColumns + `
		FROM runs
		WHERE contest_id = $1
		  AND status = $2
		  AND ($3 OR NOT test)
		ORDER BY submit_delay, id
	`
	rows, err := r.pool.Query(ctx, query, contestID, scoreboard.RunStatusReady, showAll)
	if err != nil {
		log.Debug("failed to query runs", "error", err)
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []scoreboard.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}
