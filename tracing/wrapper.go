package tracing

import (
	"context"
	"time"

	"github.com/programme-lv/scoreboard/scoreboard"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Store is everything the scoreboard reads from its database.
type Store interface {
	scoreboard.ContestStore
	scoreboard.RunStore
	scoreboard.ProblemStore
}

// StoreTracer wraps a Store with a span per call.
type StoreTracer struct {
	store  Store
	tracer trace.Tracer
}

func NewStoreTracer(store Store) *StoreTracer {
	return &StoreTracer{
		store:  store,
		tracer: otel.Tracer(serviceName),
	}
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (t *StoreTracer) GetContest(ctx context.Context, contestID int64) (scoreboard.Contest, error) {
	ctx, span := t.tracer.Start(ctx, "GetContest")
	defer span.End()

	span.SetAttributes(attribute.Int64("contest_id", contestID))

	contest, err := t.store.GetContest(ctx, contestID)
	if err != nil {
		fail(span, err)
		return scoreboard.Contest{}, err
	}

	span.SetAttributes(attribute.String("contest_alias", contest.Alias))
	return contest, nil
}

func (t *StoreTracer) PendingRuns(ctx context.Context, contestID int64, showAll bool) (bool, error) {
	ctx, span := t.tracer.Start(ctx, "PendingRuns")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("contest_id", contestID),
		attribute.Bool("show_all", showAll),
	)

	pending, err := t.store.PendingRuns(ctx, contestID, showAll)
	if err != nil {
		fail(span, err)
		return false, err
	}

	span.SetAttributes(attribute.Bool("pending", pending))
	return pending, nil
}

func (t *StoreTracer) RelevantUsers(ctx context.Context, contestID int64, showAll bool, filter []string) ([]scoreboard.User, error) {
	ctx, span := t.tracer.Start(ctx, "RelevantUsers")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("contest_id", contestID),
		attribute.Bool("show_all", showAll),
		attribute.StringSlice("filter", filter),
	)

	users, err := t.store.RelevantUsers(ctx, contestID, showAll, filter)
	if err != nil {
		fail(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("num_users", len(users)))
	return users, nil
}

func (t *StoreTracer) BestRun(
	ctx context.Context,
	contestID, problemID, userID int64,
	cutoff time.Time,
	showAll bool,
) (*scoreboard.Run, error) {
	ctx, span := t.tracer.Start(ctx, "BestRun")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("contest_id", contestID),
		attribute.Int64("problem_id", problemID),
		attribute.Int64("user_id", userID),
		attribute.String("cutoff", cutoff.UTC().Format(time.RFC3339)),
	)

	run, err := t.store.BestRun(ctx, contestID, problemID, userID, cutoff, showAll)
	if err != nil {
		fail(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Bool("found", run != nil))
	return run, nil
}

func (t *StoreTracer) SearchRuns(ctx context.Context, contestID int64, showAll bool) ([]scoreboard.Run, error) {
	ctx, span := t.tracer.Start(ctx, "SearchRuns")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("contest_id", contestID),
		attribute.Bool("show_all", showAll),
	)

	runs, err := t.store.SearchRuns(ctx, contestID, showAll)
	if err != nil {
		fail(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("num_runs", len(runs)))
	return runs, nil
}

func (t *StoreTracer) RelevantProblems(ctx context.Context, contestID int64) ([]scoreboard.Problem, error) {
	ctx, span := t.tracer.Start(ctx, "RelevantProblems")
	defer span.End()

	span.SetAttributes(attribute.Int64("contest_id", contestID))

	problems, err := t.store.RelevantProblems(ctx, contestID)
	if err != nil {
		fail(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("num_problems", len(problems)))
	return problems, nil
}

// RunDetailTracer wraps a run detail provider.
type RunDetailTracer struct {
	provider scoreboard.RunDetailProvider
	tracer   trace.Tracer
}

func NewRunDetailTracer(provider scoreboard.RunDetailProvider) *RunDetailTracer {
	return &RunDetailTracer{
		provider: provider,
		tracer:   otel.Tracer(serviceName),
	}
}

func (t *RunDetailTracer) RunDetails(ctx context.Context, guid string) (scoreboard.RunDetails, error) {
	ctx, span := t.tracer.Start(ctx, "RunDetails")
	defer span.End()

	span.SetAttributes(attribute.String("guid", guid))

	details, err := t.provider.RunDetails(ctx, guid)
	if err != nil {
		fail(span, err)
		return scoreboard.RunDetails{}, err
	}

	span.SetAttributes(attribute.Int("num_cases", len(details.Cases)))
	return details, nil
}
