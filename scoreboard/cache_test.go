package scoreboard_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/programme-lv/scoreboard/scoreboard"
	"github.com/programme-lv/scoreboard/scoreboard/cachemem"
	"github.com/programme-lv/scoreboard/scoreboard/cacheredis"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allCached() scoreboard.CacheConfig {
	return scoreboard.CacheConfig{
		Enabled:            true,
		Scoreboard:         true,
		ScoreboardTTL:      time.Minute,
		AdminScoreboard:    true,
		AdminScoreboardTTL: time.Minute,
		Events:             true,
		EventsTTL:          time.Minute,
	}
}

func cachedStore() *inMemStore {
	c := runningContest()
	store := newInMemStore(c)
	store.addUser(1, "alice", "")
	store.addUser(2, "bob", "")
	store.addProblem(10, "sum")
	store.addProblem(11, "max")
	store.addRun(scoreboard.Run{UserID: 1, ProblemID: 10, Time: at(c, 10), ContestScore: 40, SubmitDelay: 10})
	store.addRun(scoreboard.Run{UserID: 2, ProblemID: 11, Time: at(c, 20), ContestScore: 90, SubmitDelay: 20})
	store.addRun(scoreboard.Run{UserID: 2, ProblemID: 10, Time: at(c, 30), ContestScore: 15, SubmitDelay: 30, Test: true})
	return store
}

func TestCache_ContestantRoundTrip(t *testing.T) {
	store := cachedStore()
	cache := scoreboard.NewCache(cachemem.NewMemCache(time.Minute), allCached())
	srvc := newSrvc(store, nil, cache)
	ctx := context.Background()

	first, err := srvc.ForContest(contestID, false).Generate(ctx, scoreboard.GenerateOptions{})
	require.NoError(t, err)
	calls := store.callCount()
	require.NotZero(t, calls)

	sb := srvc.ForContest(contestID, false)
	second, err := sb.Generate(ctx, scoreboard.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, calls, store.callCount(), "a cached table needs no store calls")
	assert.Equal(t, 2, sb.ProblemCount())
}

func TestCache_PendingRunsAreNotCached(t *testing.T) {
	store := cachedStore()
	c := runningContest()
	store.addRun(scoreboard.Run{UserID: 1, ProblemID: 11, Time: at(c, 40), Status: "testing"})

	cache := scoreboard.NewCache(cachemem.NewMemCache(time.Minute), allCached())
	srvc := newSrvc(store, nil, cache)
	ctx := context.Background()

	_, err := srvc.ForContest(contestID, false).Generate(ctx, scoreboard.GenerateOptions{})
	require.NoError(t, err)
	calls := store.callCount()

	_, err = srvc.ForContest(contestID, false).Generate(ctx, scoreboard.GenerateOptions{})
	require.NoError(t, err)
	assert.Greater(t, store.callCount(), calls)
}

func TestCache_AdminAndContestantAreSeparate(t *testing.T) {
	store := cachedStore()
	cache := scoreboard.NewCache(cachemem.NewMemCache(time.Minute), allCached())
	srvc := newSrvc(store, nil, cache)
	ctx := context.Background()

	contestant, err := srvc.ForContest(contestID, false).Generate(ctx, scoreboard.GenerateOptions{})
	require.NoError(t, err)
	calls := store.callCount()

	admin, err := srvc.ForContest(contestID, true).Generate(ctx, scoreboard.GenerateOptions{})
	require.NoError(t, err)
	assert.Greater(t, store.callCount(), calls, "admin table is computed on its own")
	assert.NotEqual(t, contestant, admin)

	calls = store.callCount()
	again, err := srvc.ForContest(contestID, true).Generate(ctx, scoreboard.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, admin, again)
	assert.Equal(t, calls, store.callCount())
}

func TestCache_ParametrisedRequestsBypassCache(t *testing.T) {
	opts := map[string]scoreboard.GenerateOptions{
		"sorted by name": {SortByName: true},
		"filtered":       {FilterUsers: []string{"alice"}},
		"with details":   {WithRunDetails: true},
	}
	for name, o := range opts {
		t.Run(name, func(t *testing.T) {
			store := cachedStore()
			backend := cachemem.NewMemCache(time.Minute)
			srvc := newSrvc(store, inMemDetails{}, scoreboard.NewCache(backend, allCached()))
			ctx := context.Background()

			_, err := srvc.ForContest(contestID, false).Generate(ctx, o)
			require.NoError(t, err)
			calls := store.callCount()
			_, err = srvc.ForContest(contestID, false).Generate(ctx, o)
			require.NoError(t, err)
			assert.Greater(t, store.callCount(), calls)

			_, found, err := backend.Get(ctx, "scoreboard-7")
			require.NoError(t, err)
			assert.False(t, found, "parametrised tables are never stored")
		})
	}
}

func TestCache_DisabledToggles(t *testing.T) {
	conf := allCached()
	conf.Scoreboard = false
	store := cachedStore()
	srvc := newSrvc(store, nil, scoreboard.NewCache(cachemem.NewMemCache(time.Minute), conf))
	ctx := context.Background()

	_, err := srvc.ForContest(contestID, false).Generate(ctx, scoreboard.GenerateOptions{})
	require.NoError(t, err)
	calls := store.callCount()
	_, err = srvc.ForContest(contestID, false).Generate(ctx, scoreboard.GenerateOptions{})
	require.NoError(t, err)
	assert.Greater(t, store.callCount(), calls)

	conf = allCached()
	conf.Enabled = false
	cache := scoreboard.NewCache(cachemem.NewMemCache(time.Minute), conf)
	for _, mode := range []scoreboard.CacheMode{scoreboard.ModeContestant, scoreboard.ModeAdmin, scoreboard.ModeEvents} {
		assert.False(t, cache.Enabled(mode), mode.String())
	}

	var nilCache *scoreboard.Cache
	assert.False(t, nilCache.Enabled(scoreboard.ModeContestant))
}

func TestCache_StoreFailureIsNotFatal(t *testing.T) {
	store := cachedStore()
	backend := &failingBackend{}
	srvc := newSrvc(store, nil, scoreboard.NewCache(backend, allCached()))

	entries, err := srvc.ForContest(contestID, false).Generate(context.Background(), scoreboard.GenerateOptions{})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 1, backend.sets)

	events, err := srvc.ForContest(contestID, false).Events(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, 2, backend.sets)
}

func TestCache_Events(t *testing.T) {
	store := cachedStore()
	srvc := newSrvc(store, nil, scoreboard.NewCache(cachemem.NewMemCache(time.Minute), allCached()))
	ctx := context.Background()

	first, err := srvc.ForContest(contestID, false).Events(ctx)
	require.NoError(t, err)
	calls := store.callCount()

	sb := srvc.ForContest(contestID, false)
	second, err := sb.Events(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, calls, store.callCount())
	assert.Equal(t, 2, sb.ProblemCount())

	// privileged feeds are always fresh
	calls = store.callCount()
	_, err = srvc.ForContest(contestID, true).Events(ctx)
	require.NoError(t, err)
	afterFirst := store.callCount()
	assert.Greater(t, afterFirst, calls)
	_, err = srvc.ForContest(contestID, true).Events(ctx)
	require.NoError(t, err)
	assert.Greater(t, store.callCount(), afterFirst)
}

func TestCache_TableAndEventsDoNotCollide(t *testing.T) {
	store := cachedStore()
	srvc := newSrvc(store, nil, scoreboard.NewCache(cachemem.NewMemCache(time.Minute), allCached()))
	ctx := context.Background()

	entries, err := srvc.ForContest(contestID, false).Generate(ctx, scoreboard.GenerateOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	events, err := srvc.ForContest(contestID, false).Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
}

func TestCache_ReturnedTableIsNotShared(t *testing.T) {
	store := cachedStore()
	srvc := newSrvc(store, nil, scoreboard.NewCache(cachemem.NewMemCache(time.Minute), allCached()))
	ctx := context.Background()

	first, err := srvc.ForContest(contestID, false).Generate(ctx, scoreboard.GenerateOptions{})
	require.NoError(t, err)
	want := byUsername(first)["alice"]
	want.Problems = map[string]scoreboard.ProblemScore{"sum": want.Problems["sum"], "max": want.Problems["max"]}

	first[0].Username = "mallory"
	for _, e := range first {
		e.Problems["sum"] = scoreboard.ProblemScore{Points: 999}
	}

	second, err := srvc.ForContest(contestID, false).Generate(ctx, scoreboard.GenerateOptions{})
	require.NoError(t, err)
	assert.NotContains(t, byUsername(second), "mallory")
	assert.Equal(t, want, byUsername(second)["alice"])

	third, err := srvc.ForContest(contestID, false).Generate(ctx, scoreboard.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, second, third)
}

func TestCache_EmptyTableFromRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store := newInMemStore(runningContest())
	store.addProblem(10, "sum")
	cache := scoreboard.NewCache(cacheredis.NewRedisCache(rdb, "sb:"), allCached())
	srvc := newSrvc(store, nil, cache)
	ctx := context.Background()

	first, err := srvc.ForContest(contestID, false).Generate(ctx, scoreboard.GenerateOptions{})
	require.NoError(t, err)
	require.True(t, mr.Exists("sb:scoreboard-7"))
	second, err := srvc.ForContest(contestID, false).Generate(ctx, scoreboard.GenerateOptions{})
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first, second)

	firstEvents, err := srvc.ForContest(contestID, false).Events(ctx)
	require.NoError(t, err)
	require.True(t, mr.Exists("sb:scoreboard_events-7"))
	secondEvents, err := srvc.ForContest(contestID, false).Events(ctx)
	require.NoError(t, err)
	require.NotNil(t, secondEvents)
	assert.Equal(t, firstEvents, secondEvents)
}

func TestCache_ConcurrentRequests(t *testing.T) {
	store := cachedStore()
	ctx := context.Background()

	// reference results without a cache
	plain := newSrvc(store, nil, nil)
	wantTables := map[bool][]scoreboard.Entry{}
	wantEvents := map[bool][]scoreboard.Event{}
	for _, showAll := range []bool{false, true} {
		entries, err := plain.ForContest(contestID, showAll).Generate(ctx, scoreboard.GenerateOptions{})
		require.NoError(t, err)
		wantTables[showAll] = entries
		events, err := plain.ForContest(contestID, showAll).Events(ctx)
		require.NoError(t, err)
		wantEvents[showAll] = events
	}

	srvc := newSrvc(store, nil, scoreboard.NewCache(cachemem.NewMemCache(time.Minute), allCached()))

	const workers = 32
	tables := make([][]scoreboard.Entry, workers)
	feeds := make([][]scoreboard.Event, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			showAll := i%2 == 0
			tables[i], errs[i] = srvc.ForContest(contestID, showAll).Generate(ctx, scoreboard.GenerateOptions{})
			if errs[i] != nil {
				return
			}
			feeds[i], errs[i] = srvc.ForContest(contestID, showAll).Events(ctx)
		}()
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		showAll := i%2 == 0
		require.NoError(t, errs[i])
		assert.Equal(t, wantTables[showAll], tables[i], "table of worker %d", i)
		assert.Equal(t, wantEvents[showAll], feeds[i], "events of worker %d", i)
	}
}
