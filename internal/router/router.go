package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/FACorreiaa/inphantil-api/docs"
	"github.com/FACorreiaa/inphantil-api/internal/api"
	"github.com/FACorreiaa/inphantil-api/internal/api/auth"
)

const banner = "API Inphantil!"

// Config contains dependencies needed for the router setup
type Config struct {
	AuthHandler            *auth.HandlerImpl
	AuthenticateMiddleware func(http.Handler) http.Handler
	// Production hides the API docs.
	Production bool
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status" example:"OK"`
	Timestamp string `json:"timestamp" example:"2026-10-17T12:00:00Z"`
}

// SetupRouter initializes the application routes. Server-wide middleware
// (request id, logging, CORS) is applied by the caller.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(banner))
	})
	r.Get("/health", health)
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	if !cfg.Production {
		r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/docs/index.html", http.StatusMovedPermanently)
		})
		r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)
			r.Get("/me", cfg.AuthHandler.Me)
		})
	})

	return r
}

// health godoc
// @Summary      Health check
// @Tags         Health
// @Produce      json
// @Success      200 {object} router.HealthResponse
// @Router       /health [get]
func health(w http.ResponseWriter, r *http.Request) {
	api.WriteJSONResponse(w, r, http.StatusOK, HealthResponse{
		Status:    "OK",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
