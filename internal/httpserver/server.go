// internal/httpserver/server.go
//
// HTTP server wiring for the minesweeper backend.
// Responsibilities:
//   - Router + middleware (request IDs, access logs, panic recovery, CORS, timeouts, JSON).
//   - Public endpoints: "/", "/health", "/metrics", "/presets".
//   - Game endpoints (game token required): /game/new, /game/reveal, /game/flag,
//     /game/reset, /game/{id}, /game/{id}/events.
//   - Results endpoints: /leaderboard, /stats.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so the token cookie works).
//   - The websocket route is mounted outside the timeout group; its handler
//     lives as long as the connection.
//   - Commands against one game are serialized by store.Update.

package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/minesweeper/internal/config"
	"github.com/robalobadob/minesweeper/internal/game"
	"github.com/robalobadob/minesweeper/internal/results"
	"github.com/robalobadob/minesweeper/internal/store"
)

// Server bundles router, session store, and results store.
type Server struct {
	r       *chi.Mux
	cfg     config.Config
	store   store.Store
	results *results.Store // nil disables result recording and the leaderboard

	now          func() time.Time
	newGenerator func(seed string) game.Generator
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg config.Config, st store.Store, rs *results.Store) *Server {
	s := &Server{
		r:            chi.NewRouter(),
		cfg:          cfg,
		store:        st,
		results:      rs,
		now:          time.Now,
		newGenerator: defaultGenerator,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)             // add X-Request-ID
	s.r.Use(chimw.RealIP)                // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(hlog.NewHandler(log.Logger)) // request-scoped logger
	s.r.Use(hlog.AccessHandler(accessLog))
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(s.cors)          // credentials-friendly CORS

	s.r.Handle("/metrics", promhttp.Handler())

	// Long-lived websocket stream: no handler timeout.
	s.r.Get("/game/{id}/events", s.handleEvents)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Use(jsonContentType)                 // default JSON responses

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"minesweeper-go","endpoints":["/health","/presets","POST /game/new","POST /game/reveal","POST /game/flag","POST /game/reset","/game/{id}","/game/{id}/events","/leaderboard","/stats"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})

		s.mountGame(r)
		s.mountResults(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})

	return s
}

// Router exposes the internal router (useful for tests and http.Server).
func (s *Server) Router() chi.Router { return s.r }

// defaultGenerator picks a crypto-seeded generator unless the client chose a seed.
func defaultGenerator(seed string) game.Generator {
	if seed == "" {
		return game.NewRandomGenerator()
	}
	return game.NewSeededGenerator(seed)
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func accessLog(r *http.Request, status, size int, d time.Duration) {
	hlog.FromRequest(r).Info().
		Str("requestId", chimw.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", d).
		Msg("request")
}

// ------------------------------- small util --------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
