package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/google/uuid"
	"github.com/programme-lv/scoreboard/auth"
	"github.com/programme-lv/scoreboard/logger"
	"github.com/programme-lv/scoreboard/scoreboard"
	"github.com/programme-lv/scoreboard/tracing"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServerOptions struct {
	Environment    string
	Version        string
	AllowedOrigins []string
	JwtKey         []byte
	// quiet disables request logging, used by tests
	Quiet bool
}

type HttpServer struct {
	sbSrvc *scoreboard.ScoreboardSrvc
	router *chi.Mux
}

func NewHttpServer(sbSrvc *scoreboard.ScoreboardSrvc, opts ServerOptions) *HttpServer {
	router := chi.NewRouter()

	if !opts.Quiet {
		httpLogger := httplog.NewLogger("scoreboard", httplog.Options{
			LogLevel:         slog.LevelDebug,
			Concise:          true,
			RequestHeaders:   true,
			MessageFieldName: "message",
			Tags: map[string]string{
				"version": opts.Version,
				"env":     opts.Environment,
			},
			QuietDownRoutes: []string{"/metrics"},
			QuietDownPeriod: 10 * time.Second,
		})
		router.Use(httplog.RequestLogger(httpLogger))
	}

	router.Use(requestIDMiddleware(!opts.Quiet))
	router.Use(tracing.Middleware)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link", requestIDHeader, tracing.TraceIDHeader},
		AllowCredentials: true,
		MaxAge:           3000,
	}))

	router.Use(auth.GetJwtAuthMiddleware(opts.JwtKey))

	server := &HttpServer{
		sbSrvc: sbSrvc,
		router: router,
	}

	server.routes()

	return server
}

func (httpserver *HttpServer) Handler() http.Handler {
	return httpserver.router
}

func (httpserver *HttpServer) routes() {
	r := httpserver.router
	r.Get("/contests/{contestId}/scoreboard", httpserver.getScoreboard)
	r.Get("/contests/{contestId}/scoreboard/events", httpserver.getScoreboardEvents)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

const requestIDHeader = "X-Request-Id"

// requestIDMiddleware tags the request logger with the caller's request id
// or a fresh one.
func requestIDMiddleware(requestLog bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(requestIDHeader)
			if _, err := uuid.Parse(requestID); err != nil {
				requestID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, requestID)

			ctx := r.Context()
			if requestLog {
				ctx = logger.WithLogger(ctx, httplog.LogEntry(ctx))
			}
			ctx = logger.WithRequestID(ctx, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
