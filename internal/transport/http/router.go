// Package http wires the chi router: JSON API, page-route guard, and the
// operational endpoints.
package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	obsmw "geodash/internal/observability/middleware"
	"geodash/internal/token"
)

type Config struct {
	ProtectedPrefix string
	LoginPath       string
	CORSOrigins     string // comma-separated; empty disables CORS
}

// NewRouter assembles the full handler tree. frontend serves the page routes
// behind the guard; the pages themselves are rendered elsewhere, this side
// only decides whether the request may reach them.
func NewRouter(
	cfg Config,
	tokens *token.Manager,
	auth AuthService,
	history HistoryService,
	resolver GeoResolver,
	frontend http.Handler,
	logger *slog.Logger,
) *chi.Mux {
	h := &handlers{
		auth:     auth,
		history:  history,
		resolver: resolver,
		tokens:   tokens,
		logger:   logger,
	}

	r := chi.NewRouter()

	r.Use(obsmw.WithRequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(obsmw.WithMetrics)

	if origins := splitOrigins(cfg.CORSOrigins); len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/geolocation", h.handleGeolocation)
		r.Get("/seed", h.handleSeed)

		// Credential guessing gets throttled per IP; everything else rides
		// on the upstream providers' own limits.
		r.With(httprate.LimitByIP(20, 1*time.Minute)).Post("/login", h.handleLogin)

		r.Route("/history", func(r chi.Router) {
			r.Use(RequireSession(tokens))
			r.Get("/", h.handleHistoryList)
			r.Post("/", h.handleHistoryCreate)
			r.Delete("/", h.handleHistoryDelete)
		})
	})

	guard := NewGuard(tokens, cfg.ProtectedPrefix, cfg.LoginPath)
	r.Group(func(pr chi.Router) {
		pr.Use(guard.Middleware)
		pr.Handle(cfg.ProtectedPrefix, frontend)
		pr.Handle(cfg.ProtectedPrefix+"/*", frontend)
		pr.Handle(cfg.LoginPath, frontend)
	})

	return r
}

func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(o); s != "" {
			out = append(out, s)
		}
	}
	return out
}
