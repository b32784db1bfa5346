package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/StorefrontLabs/checkout-server/internal/config"
	"github.com/StorefrontLabs/checkout-server/internal/logger"
	"github.com/StorefrontLabs/checkout-server/internal/metrics"
	"github.com/StorefrontLabs/checkout-server/internal/payments"
	"github.com/StorefrontLabs/checkout-server/internal/ratelimit"
	"github.com/StorefrontLabs/checkout-server/internal/session"
	"github.com/StorefrontLabs/checkout-server/internal/shipping"
	"github.com/StorefrontLabs/checkout-server/internal/webhook"
)

var (
	serverStartTime = time.Now()
)

// Server wires handlers, middleware, and dependencies.
type Server struct {
	handlers
	httpServer *http.Server
}

type handlers struct {
	cfg            *config.Config
	sessions       *session.Service
	shipping       *shipping.Calculator
	payments       *payments.Client
	processor      *webhook.Processor
	sessionLimiter *ratelimit.Limiter // Per-IP session creation budget
	paymentLimiter *ratelimit.Limiter // Per-session payment intent budget
	metrics        *metrics.Metrics
	logger         zerolog.Logger
}

// New builds the HTTP server with configured router.
func New(cfg *config.Config, sessions *session.Service, shippingCalc *shipping.Calculator, paymentsClient *payments.Client, processor *webhook.Processor, sessionLimiter, paymentLimiter *ratelimit.Limiter, metricsCollector *metrics.Metrics, appLogger zerolog.Logger) *Server {
	router := chi.NewRouter()

	s := &Server{
		handlers: handlers{
			cfg:            cfg,
			sessions:       sessions,
			shipping:       shippingCalc,
			payments:       paymentsClient,
			processor:      processor,
			sessionLimiter: sessionLimiter,
			paymentLimiter: paymentLimiter,
			metrics:        metricsCollector,
			logger:         appLogger,
		},
		httpServer: &http.Server{
			Addr:         cfg.Server.Address,
			ReadTimeout:  cfg.Server.ReadTimeout.Duration,
			WriteTimeout: cfg.Server.WriteTimeout.Duration,
			IdleTimeout:  cfg.Server.IdleTimeout.Duration,
			Handler:      router,
		},
	}

	ConfigureRouter(router, cfg, sessions, shippingCalc, paymentsClient, processor, sessionLimiter, paymentLimiter, metricsCollector, appLogger)

	return s
}

// ConfigureRouter attaches checkout routes to an existing router.
func ConfigureRouter(router chi.Router, cfg *config.Config, sessions *session.Service, shippingCalc *shipping.Calculator, paymentsClient *payments.Client, processor *webhook.Processor, sessionLimiter, paymentLimiter *ratelimit.Limiter, metricsCollector *metrics.Metrics, appLogger zerolog.Logger) {
	if router == nil {
		return
	}

	h := handlers{
		cfg:            cfg,
		sessions:       sessions,
		shipping:       shippingCalc,
		payments:       paymentsClient,
		processor:      processor,
		sessionLimiter: sessionLimiter,
		paymentLimiter: paymentLimiter,
		metrics:        metricsCollector,
		logger:         appLogger,
	}

	if len(cfg.Server.CORSAllowedOrigins) > 0 {
		router.Use(cors.New(cors.Options{
			AllowedOrigins:   cfg.Server.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-CSRF-Token"},
			AllowCredentials: false,
			MaxAge:           300,
		}).Handler)
	}

	// Security headers middleware (applied first for all responses)
	router.Use(securityHeadersMiddleware)

	// Structured logging middleware (BEFORE RequestID for context propagation)
	router.Use(logger.Middleware(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	// Coarse global backstop; the per-endpoint budgets below do the real
	// accounting.
	router.Use(ratelimit.GlobalLimiter(ratelimit.Config{
		GlobalEnabled: cfg.RateLimit.GlobalEnabled,
		GlobalLimit:   cfg.RateLimit.GlobalLimit,
		GlobalWindow:  cfg.RateLimit.GlobalWindow.Duration,
		Metrics:       h.metrics,
	}))

	// Session creation is keyed by client IP; payment intent creation by the
	// already-authenticated session token.
	sessionCreateLimit := ratelimit.EndpointLimiter(h.sessionLimiter, "session_create", logger.RemoteAddr, h.metrics)
	paymentCreateLimit := ratelimit.EndpointLimiter(h.paymentLimiter, "payment_create", bearerToken, h.metrics)

	// Lightweight endpoints with 5s timeout (health checks, metrics)
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(5 * time.Second))
		r.Get("/health", h.health)
		// Prometheus metrics endpoint, protected by optional admin API key
		r.With(adminMetricsAuth(cfg.Server.AdminMetricsAPIKey)).Handle("/metrics", promhttp.Handler())
	})

	// Checkout endpoints with 60s timeout (payment provider and order
	// platform calls)
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Session lifecycle
		r.With(sessionCreateLimit).Post("/api/checkout/session", h.createSession)
		r.With(h.requireSession).Get("/api/checkout/csrf", h.csrfToken)
		r.With(h.requireSession, h.requireCSRF).Post("/api/checkout/logout", h.logout)

		// Quote endpoints
		r.With(h.requireSession, h.requireCSRF).Post("/api/calculate-shipping", h.calculateShipping)
		r.With(h.requireSession, h.requireCSRF).Post("/api/calculate-tax", h.calculateTax)

		// Payment intent creation. The per-session budget runs after auth so
		// unauthenticated probes never consume it.
		r.With(h.requireSession, h.requireCSRF, paymentCreateLimit).
			Post("/api/stripe/create-payment-intent", h.createPaymentIntent)

		// Stripe webhook endpoint (signature-authenticated, no session)
		r.Post("/webhook/stripe", h.stripeWebhook)
	})
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
