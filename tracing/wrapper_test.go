package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/programme-lv/scoreboard/scoreboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type stubStore struct {
	err error
}

func (s stubStore) GetContest(ctx context.Context, contestID int64) (scoreboard.Contest, error) {
	return scoreboard.Contest{ID: contestID, Alias: "lio"}, s.err
}

func (s stubStore) PendingRuns(ctx context.Context, contestID int64, showAll bool) (bool, error) {
	return false, s.err
}

func (s stubStore) RelevantUsers(ctx context.Context, contestID int64, showAll bool, filter []string) ([]scoreboard.User, error) {
	return []scoreboard.User{{ID: 1, Username: "alice"}}, s.err
}

func (s stubStore) BestRun(ctx context.Context, contestID, problemID, userID int64, cutoff time.Time, showAll bool) (*scoreboard.Run, error) {
	return nil, s.err
}

func (s stubStore) SearchRuns(ctx context.Context, contestID int64, showAll bool) ([]scoreboard.Run, error) {
	return nil, s.err
}

func (s stubStore) RelevantProblems(ctx context.Context, contestID int64) ([]scoreboard.Problem, error) {
	return nil, s.err
}

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func TestStoreTracer_RecordsSpans(t *testing.T) {
	rec := recordSpans(t)
	tracer := NewStoreTracer(stubStore{})
	ctx := context.Background()

	_, err := tracer.GetContest(ctx, 3)
	require.NoError(t, err)
	users, err := tracer.RelevantUsers(ctx, 3, false, nil)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	_, err = tracer.BestRun(ctx, 3, 1, 1, time.Now(), false)
	require.NoError(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "GetContest", spans[0].Name())
	assert.Equal(t, "RelevantUsers", spans[1].Name())
	assert.Equal(t, "BestRun", spans[2].Name())
}

func TestStoreTracer_MarksErrors(t *testing.T) {
	rec := recordSpans(t)
	boom := errors.New("boom")
	tracer := NewStoreTracer(stubStore{err: boom})

	_, err := tracer.SearchRuns(context.Background(), 3, true)
	require.ErrorIs(t, err, boom)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestMiddleware_SetsTraceHeader(t *testing.T) {
	rec := recordSpans(t)
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/contests/1/scoreboard", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.NotEmpty(t, w.Header().Get(TraceIDHeader))
	require.Len(t, rec.Ended(), 1)
	assert.Equal(t, "GET /contests/1/scoreboard", rec.Ended()[0].Name())
}
