package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/kanjiarena/kanji-arena/internal/account"
	"github.com/kanjiarena/kanji-arena/internal/auth"
	"github.com/kanjiarena/kanji-arena/internal/config"
	"github.com/kanjiarena/kanji-arena/internal/game"
	"github.com/kanjiarena/kanji-arena/internal/leaderboard"
	"github.com/kanjiarena/kanji-arena/internal/logging"
	"github.com/kanjiarena/kanji-arena/internal/progression"
	httperrors "github.com/kanjiarena/kanji-arena/pkg/http/errors"
)

// Pinger checks one upstream dependency.
type Pinger func(ctx context.Context) error

// Handlers groups the feature handlers mounted on the API.
type Handlers struct {
	Game        *game.HTTPHandler
	Leaderboard *leaderboard.HTTPHandler
	Progression *progression.HTTPHandler
	Account     *account.HTTPHandler
	Tokens      auth.TokenValidator
	Pingers     map[string]Pinger
}

// NewRouter mounts every route behind CORS, request logging and optional auth.
func NewRouter(cfg *config.App, logger zerolog.Logger, h Handlers) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		log := logging.FromContext(r.Context())
		for name, ping := range h.Pingers {
			if err := ping(r.Context()); err != nil {
				log.Error().Err(err).Str("dependency", name).Msg("dependency ping failed")
				httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeUpstreamError, name+" unreachable")
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	if h.Game != nil {
		mux.HandleFunc("GET /api/{lang}/games/{mode}/{grade}/start", h.Game.HandleStart)
		mux.HandleFunc("POST /api/{lang}/games/{mode}/check-answer", h.Game.HandleCheckAnswer)
	}
	if h.Leaderboard != nil {
		mux.HandleFunc("GET /api/{lang}/games/{mode}/{grade}/ranking", h.Leaderboard.HandleRanking)
		mux.HandleFunc("GET /v1/ws/leaderboards", h.Leaderboard.HandleStream)
	}
	if h.Progression != nil {
		mux.Handle("GET /api/{lang}/users/me/learning-space", auth.RequireAuth(http.HandlerFunc(h.Progression.HandleLearningSpace)))
	}
	if h.Account != nil {
		mux.Handle("GET /api/{lang}/users/me/alert-out-of-ranking", auth.RequireAuth(http.HandlerFunc(h.Account.HandleGetAlert)))
		mux.Handle("POST /api/{lang}/users/me/alert-out-of-ranking", auth.RequireAuth(http.HandlerFunc(h.Account.HandleSetAlert)))
	}

	var handler http.Handler = mux
	if h.Tokens != nil {
		handler = auth.AuthMiddleware(h.Tokens, logger)(handler)
	}
	handler = requestLogger(logger)(handler)
	return corsMiddleware(cfg.CORS)(handler)
}

// NewHTTPServer wraps the router in an http.Server.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, logger, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func corsMiddleware(cfg config.CORS) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	wildcard := false
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			wildcard = true
		}
		allowed[origin] = true
	}
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (wildcard || allowed[origin]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				if cfg.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Set("Access-Control-Allow-Methods", methods)
				w.Header().Set("Access-Control-Allow-Headers", headers)
				w.Header().Set("Access-Control-Max-Age", maxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the hijacker for WebSocket upgrades.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	logger = logger.With().Str("component", "http").Logger()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := logger.With().Str("request_id", uuid.NewString()).Logger()
			ctx := logging.IntoContext(r.Context(), reqLogger)

			if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))
			reqLogger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("elapsed", time.Since(start)).
				Msg("request served")
		})
	}
}
