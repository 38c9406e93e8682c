package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/relnotify/pkg/domain/interfaces"
)

// config holds internal HTTP server configuration
type config struct {
	addr           string
	webhookSecret  string
	activitySecret string
	jwtKey         []byte
}

// Option is a functional option for Server configuration
type Option func(*config)

// WithAddr sets the server address
func WithAddr(addr string) Option {
	return func(c *config) {
		c.addr = addr
	}
}

// WithWebhookSecret sets the GitHub webhook secret
func WithWebhookSecret(secret string) Option {
	return func(c *config) {
		c.webhookSecret = secret
	}
}

// WithActivitySecret sets the HMAC secret of the activity API
func WithActivitySecret(secret string) Option {
	return func(c *config) {
		c.activitySecret = secret
	}
}

// WithJWTKey sets the HS256 key accepted as Bearer token on the activity API
func WithJWTKey(key []byte) Option {
	return func(c *config) {
		c.jwtKey = key
	}
}

// Server represents the HTTP server
type Server struct {
	*http.Server
}

// NewServer creates a new HTTP server. The GitHub webhook route is only
// mounted when webhookUC is not nil.
func NewServer(
	ctx context.Context,
	activityUC interfaces.ActivityUseCase,
	previewUC interfaces.PreviewUseCase,
	webhookUC interfaces.WebhookUseCase,
	opts ...Option,
) (*Server, error) {
	// Default configuration
	cfg := &config{
		addr: "localhost:8080",
	}

	// Apply options
	for _, opt := range opts {
		opt(cfg)
	}

	validator, err := NewRequestValidator()
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)

	// Health check
	router.Get("/health", handleHealth)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(limitBody(maxActivityBodySize))
		r.Use(NewAuthenticator(cfg.activitySecret, cfg.jwtKey).Middleware)
		r.Use(validator.Middleware)

		r.Post("/activities", NewActivityHandler(activityUC).Handle)
		r.Get("/projects/{project}/releases/{version}/preview", NewPreviewHandler(previewUC).Handle)
	})

	if webhookUC != nil {
		webhookHandler := NewWebhookHandler(cfg.webhookSecret, webhookUC)
		router.Post("/hooks/github", webhookHandler.Handle)
	}

	server := &Server{
		Server: &http.Server{
			Addr:              cfg.addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
	}

	return server, nil
}
