package routes

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	blobhandlers "Memories/internal/api/handlers/blob"
	"Memories/internal/api/handlers/events"
	"Memories/internal/api/middleware"
	"Memories/internal/core/blobs"
	"Memories/internal/core/posts"
)

// RouterConfig holds what NewRouter wires together.
type RouterConfig struct {
	Controller *posts.Controller

	// BlobReader and BlobVerifier enable /blobs/{token}. Leave nil for blob
	// stores that hand out their own URLs.
	BlobReader   blobs.Reader
	BlobVerifier blobhandlers.TokenVerifier

	Logger             *slog.Logger
	AllowedOrigins     []string
	RateLimitRequests  int
	RateLimitWindow    time.Duration
	TrustedProxies     []netip.Prefix
	DisableRequestLogs bool
}

// NewRouter builds the HTTP surface over a controller.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	if !cfg.DisableRequestLogs {
		r.Use(chiMiddleware.Logger)
	}
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(corsMiddleware(cfg.AllowedOrigins))

	if cfg.RateLimitRequests > 0 && cfg.RateLimitWindow > 0 {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
		rateLimiter.TrustProxies(cfg.TrustedProxies)
		r.Use(rateLimiter.Middleware)
	}

	RegisterPostRoutes(r, cfg.Controller)
	RegisterNotificationRoutes(r, cfg.Controller)
	RegisterEventRoutes(r, events.NewHandler(cfg.Controller, cfg.AllowedOrigins, cfg.Logger))

	if cfg.BlobReader != nil && cfg.BlobVerifier != nil {
		RegisterBlobRoutes(r, blobhandlers.NewHandler(cfg.BlobReader, cfg.BlobVerifier))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}

// corsMiddleware allows the configured browser origins to call the API
func corsMiddleware(allowedOrigins []string) func(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
		},
		ExposedHeaders:   []string{"X-Sync-Outcome", "ETag"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}
