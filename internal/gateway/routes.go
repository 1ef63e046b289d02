package gateway

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/saransh1220/filebox/internal/gateway/middleware"
	auth_http "github.com/saransh1220/filebox/internal/modules/auth/interfaces/http"
	files_http "github.com/saransh1220/filebox/internal/modules/files/interfaces/http"
	notification_http "github.com/saransh1220/filebox/internal/modules/notification/interfaces/http"
	"github.com/saransh1220/filebox/internal/shared/utils"
)

// RouterConfig holds all the handlers and middleware needed for routing
type RouterConfig struct {
	AuthHandler         *auth_http.AuthHandler
	AuthMiddleware      *middleware.AuthMiddleWare
	FileHandler         *files_http.FileHandler
	NotificationHandler *notification_http.NotificationHandler

	// RateLimiter is optional; nil disables limiting.
	RateLimiter    *middleware.RateLimiter
	// TrustProxy rewrites RemoteAddr from proxy headers before logging and
	// limiting. Off, clients are keyed by their socket address.
	TrustProxy     bool
	AllowedOrigins string
	Logger         *slog.Logger
}

// SetupRoutes creates and configures all application routes
func SetupRoutes(config RouterConfig) http.Handler {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if config.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.CORS(config.AllowedOrigins))
	r.Use(middleware.PrometheusMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		utils.WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		utils.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Health and metrics stay outside the rate limit so probes never see 429
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if config.RateLimiter != nil {
			r.Use(config.RateLimiter.Middleware)
		}

		// Auth Routes
		r.Post("/register", config.AuthHandler.Register)
		r.Post("/login", config.AuthHandler.Login)
		r.Post("/login/google", config.AuthHandler.GoogleLogin)
		r.Post("/logout", config.AuthHandler.Logout)

		// File Routes
		r.Group(func(r chi.Router) {
			r.Use(config.AuthMiddleware.RequireAuth)
			r.Get("/files", config.FileHandler.List)
			r.Post("/upload", config.FileHandler.Upload)
			r.Delete("/files/{id}", config.FileHandler.Delete)
		})

		// Notification Routes
		r.With(config.AuthMiddleware.RequireAuthQuery).Get("/ws", config.NotificationHandler.Subscribe)
	})

	return r
}
