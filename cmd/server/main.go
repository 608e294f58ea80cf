package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/programme-lv/scoreboard/conf"
	sbhttp "github.com/programme-lv/scoreboard/http"
	"github.com/programme-lv/scoreboard/rundetail"
	"github.com/programme-lv/scoreboard/scoreboard"
	"github.com/programme-lv/scoreboard/scoreboard/cachemem"
	"github.com/programme-lv/scoreboard/scoreboard/cacheredis"
	"github.com/programme-lv/scoreboard/scoreboard/pgrepo"
	"github.com/programme-lv/scoreboard/tracing"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := conf.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Environment)

	tp, err := tracing.InitTracing(ctx, cfg.OtelEndpoint, cfg.Environment)
	if err != nil {
		return err
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			slog.Error("error shutting down tracer provider", "error", err)
		}
	}()

	connStr, err := conf.GetPgConnStrFromEnv(ctx)
	if err != nil {
		return err
	}
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := tracing.NewStoreTracer(pgrepo.NewPgScoreboardRepo(pool))

	var details scoreboard.RunDetailProvider
	if cfg.RunDetails.Bucket != "" {
		repo, err := rundetail.NewS3RunDetailRepoFromRegion(ctx, cfg.RunDetails.Region, cfg.RunDetails.Bucket)
		if err != nil {
			return err
		}
		details = tracing.NewRunDetailTracer(repo)
	}

	backend, err := newCacheBackend(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	cache := scoreboard.NewCache(backend, cfg.Cache.ScoreboardCacheConfig())

	srvc := scoreboard.NewScoreboardSrvc(store, store, store, details, cache)
	server := sbhttp.NewHttpServer(srvc, sbhttp.ServerOptions{
		Environment:    cfg.Environment,
		Version:        version,
		AllowedOrigins: cfg.AllowedOrigins,
		JwtKey:         []byte(cfg.JWTKey),
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "address", cfg.HTTPAddr, "cache_backend", cfg.Cache.Backend)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("server stopped")
	return nil
}

func newCacheBackend(ctx context.Context, c conf.CacheConf) (scoreboard.CacheBackend, error) {
	if !c.Enabled {
		return nil, nil
	}
	switch c.Backend {
	case "redis":
		rdb, err := cacheredis.Connect(ctx, c.RedisAddr)
		if err != nil {
			return nil, err
		}
		return cacheredis.NewRedisCache(rdb, "scoreboard:"), nil
	default:
		return cachemem.NewMemCache(time.Minute), nil
	}
}

func setupLogging(environment string) {
	var handler slog.Handler
	if environment == "prod" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(handler))
}
