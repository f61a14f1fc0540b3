package appMiddleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	appLogger "github.com/FACorreiaa/inphantil-api/app/logger"
)

// Options configures the server-wide middleware stack.
type Options struct {
	AllowedOrigins []string
	Timeout        time.Duration
}

// Use installs the middleware every route shares. CORS runs before any
// route-level gate so browser preflight requests never need a token.
func Use(r chi.Router, logger *slog.Logger, opts Options) {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appLogger.StructuredLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	if opts.Timeout > 0 {
		r.Use(middleware.Timeout(opts.Timeout))
	}
	r.Use(CORS(opts.AllowedOrigins))
	r.Use(AnswerOptions)
}

// AnswerOptions replies 200 to any OPTIONS request that CORS let through,
// so it never reaches a route or the auth gate.
func AnswerOptions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
