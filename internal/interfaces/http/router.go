package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/playtype/account-recovery-service/internal/domain"
	"github.com/playtype/account-recovery-service/internal/interfaces/http/handlers"
	"github.com/playtype/account-recovery-service/internal/interfaces/http/middleware/auth"
	"github.com/playtype/account-recovery-service/internal/interfaces/http/middleware/ratelimit"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Pinger reports whether a backing service is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependency is a named backing service checked by /health/ready
type Dependency struct {
	Name   string
	Pinger Pinger
}

// Options configures the router
type Options struct {
	Recovery     domain.RecoveryOrchestrator
	Session      domain.SessionOrchestrator
	Tokens       auth.AccessValidator
	Dependencies []Dependency

	Cookies    handlers.CookieConfig
	RefreshTTL time.Duration
	RateLimit  rate.Limit
	RateBurst  int
	SwaggerDoc string
}

type Router struct {
	router *chi.Mux
}

// NewRouter wires handlers and middleware. Background work started here stops when ctx is done.
func NewRouter(ctx context.Context, opts Options, logger *zap.Logger) *Router {
	authMiddleware := auth.NewAuthMiddleware(opts.Tokens, logger)

	// Initialize handlers
	recoveryHandler := handlers.NewRecoveryHandler(opts.Recovery, opts.Cookies, logger)
	sessionHandler := handlers.NewSessionHandler(opts.Session, opts.Cookies, opts.RefreshTTL, logger)

	// Create router with middleware
	router := createRouter()

	if opts.RateLimit > 0 {
		rateLimiter := ratelimit.NewRateLimiter(ctx, opts.RateLimit, opts.RateBurst, 3*time.Minute)
		router.Use(rateLimiter.Middleware)
	}

	// Health check endpoints
	router.Group(func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
		})

		r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
			for _, dep := range opts.Dependencies {
				if err := dep.Pinger.Ping(r.Context()); err != nil {
					logger.Error("Health check failed", zap.String("dependency", dep.Name), zap.Error(err))
					w.WriteHeader(http.StatusServiceUnavailable)
					_, _ = w.Write([]byte(dep.Name + " connection failed"))
					return
				}
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("Ready"))
		})

		r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("Alive"))
		})
	})

	// Swagger UI configuration
	if opts.SwaggerDoc != "" {
		router.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
			httpSwagger.DocExpansion("list"),
			httpSwagger.DomID("swagger-ui"),
			httpSwagger.DeepLinking(true),
			httpSwagger.PersistAuthorization(true),
		))

		router.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			http.ServeFile(w, r, opts.SwaggerDoc)
		})
	}

	router.Route("/api", func(r chi.Router) {
		// Public routes
		r.Group(func(r chi.Router) {
			r.Post("/code/send", recoveryHandler.SendCode)
			r.Post("/code/verify", recoveryHandler.VerifyCode)
			r.Post("/find-account", recoveryHandler.FindAccount)
			r.Post("/password/reset/request", recoveryHandler.RequestPasswordReset)
			r.Post("/password/reset/confirm", recoveryHandler.ConfirmPasswordReset)

			r.Post("/login", sessionHandler.Login)
			r.Post("/token/refresh", sessionHandler.Refresh)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticator)
			r.Post("/logout", sessionHandler.Logout)
			r.Get("/me", sessionHandler.Me)
		})
	})

	return &Router{router: router}
}

func createRouter() *chi.Mux {
	router := chi.NewRouter()

	// Add middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	return router
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
