package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/StorefrontLabs/checkout-server/internal/circuitbreaker"
	"github.com/StorefrontLabs/checkout-server/internal/config"
	"github.com/StorefrontLabs/checkout-server/internal/httpserver"
	"github.com/StorefrontLabs/checkout-server/internal/lifecycle"
	"github.com/StorefrontLabs/checkout-server/internal/logger"
	"github.com/StorefrontLabs/checkout-server/internal/metrics"
	"github.com/StorefrontLabs/checkout-server/internal/orders"
	"github.com/StorefrontLabs/checkout-server/internal/payments"
	"github.com/StorefrontLabs/checkout-server/internal/ratelimit"
	"github.com/StorefrontLabs/checkout-server/internal/session"
	"github.com/StorefrontLabs/checkout-server/internal/shipping"
	"github.com/StorefrontLabs/checkout-server/internal/storage"
	"github.com/StorefrontLabs/checkout-server/internal/webhook"
)

// App wires the checkout components for reuse or standalone serving.
type App struct {
	Config    *config.Config
	Store     storage.Store
	Sessions  *session.Service
	Shipping  *shipping.Calculator
	Payments  *payments.Client
	Processor *webhook.Processor

	router           chi.Router
	resourceManager  *lifecycle.Manager
	metricsCollector *metrics.Metrics
}

// Option configures App construction.
type Option func(*options)

type options struct {
	store      storage.Store
	dispatcher webhook.Dispatcher
	router     chi.Router
}

// WithStore sets a custom storage backend. The caller owns its lifecycle.
func WithStore(store storage.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithDispatcher injects a custom order dispatcher, replacing the Shopify
// Admin API client. Useful for embedding and tests.
func WithDispatcher(dispatcher webhook.Dispatcher) Option {
	return func(o *options) {
		o.dispatcher = dispatcher
	}
}

// WithRouter allows callers to provide an existing chi.Router to register routes onto.
func WithRouter(router chi.Router) Option {
	return func(o *options) {
		o.router = router
	}
}

// NewApp assembles the checkout services for embedding or standalone serving.
func NewApp(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("checkout: config required")
	}

	optState := options{}
	for _, opt := range opts {
		opt(&optState)
	}

	app := &App{
		Config:          cfg,
		resourceManager: lifecycle.NewManager(),
	}

	if optState.store != nil {
		app.Store = optState.store
	} else {
		store, err := storage.NewStore(storage.StoreConfig{
			Backend:         cfg.Storage.Backend,
			RedisURL:        cfg.Storage.RedisURL,
			MongoDBURL:      cfg.Storage.MongoDBURL,
			MongoDBDatabase: cfg.Storage.MongoDBDatabase,
			PostgresURL:     cfg.Storage.PostgresURL,
			CleanupInterval: cfg.Storage.CleanupInterval.Duration,
		})
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		app.Store = store
		app.resourceManager.Register("storage", store)
		if cfg.Storage.Backend == "memory" || (cfg.Storage.Backend == "" && cfg.Storage.RedisURL == "" && cfg.Storage.PostgresURL == "" && cfg.Storage.MongoDBURL == "") {
			log.Warn().
				Msg("checkout: using in-memory store, sessions and replay state are lost on restart")
		}
	}

	metricsCollector := metrics.New(prometheus.DefaultRegisterer)
	app.metricsCollector = metricsCollector

	breakers := circuitbreaker.NewManagerFromConfig(cfg.CircuitBreaker)

	app.Sessions = session.NewService(app.Store, cfg.Checkout, metricsCollector)
	app.Shipping = shipping.NewCalculator(cfg.Shipping)
	app.Payments = payments.NewClient(cfg.Stripe, cfg.Checkout.Environment, breakers, metricsCollector)

	dispatcher := optState.dispatcher
	if dispatcher == nil {
		d, err := orders.NewDispatcher(cfg.Shopify, breakers, metricsCollector)
		if err != nil {
			return nil, fmt.Errorf("init order dispatcher: %w", err)
		}
		dispatcher = d
	}

	app.Processor = webhook.NewProcessor(webhook.ProcessorConfig{
		WebhookSecret: cfg.Stripe.WebhookSecret,
		Environment:   cfg.Checkout.Environment,
		Tolerance:     cfg.Stripe.WebhookTolerance.Duration,
		EventTTL:      cfg.Storage.EventTTL.Duration,
	}, app.Store, dispatcher, metricsCollector)

	sessionLimiter := newEndpointLimiter(app.resourceManager, "session-create-limiter", cfg.RateLimit.SessionCreate)
	paymentLimiter := newEndpointLimiter(app.resourceManager, "payment-create-limiter", cfg.RateLimit.PaymentCreate)

	if optState.router != nil {
		app.router = optState.router
	} else {
		app.router = chi.NewRouter()
	}

	appLogger := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Service:     "checkout-server",
		Environment: cfg.Logging.Environment,
	})

	httpserver.ConfigureRouter(app.router, cfg, app.Sessions, app.Shipping, app.Payments, app.Processor, sessionLimiter, paymentLimiter, metricsCollector, appLogger)

	return app, nil
}

// newEndpointLimiter builds one sliding-window budget and ties its lifecycle
// to the app. A disabled budget returns nil, which the route wiring treats as
// pass-through.
func newEndpointLimiter(rm *lifecycle.Manager, name string, cfg config.EndpointLimitConfig) *ratelimit.Limiter {
	if !cfg.Enabled || cfg.Limit <= 0 {
		return nil
	}
	limiter := ratelimit.NewLimiter(cfg.Limit, cfg.Window.Duration)
	rm.Register(name, limiter)
	return limiter
}

// Router returns the chi router with checkout routes registered.
func (a *App) Router() chi.Router {
	return a.router
}

// Handler exposes the router as an http.Handler.
func (a *App) Handler() http.Handler {
	return a.router
}

// Close releases resources owned by the app (store, limiters).
func (a *App) Close() error {
	return a.resourceManager.Close()
}

// NewHandler is a convenience that constructs an App and returns its handler.
func NewHandler(cfg *config.Config, opts ...Option) (http.Handler, func(context.Context) error, error) {
	app, err := NewApp(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	shutdown := func(context.Context) error {
		return app.Close()
	}
	return app.Handler(), shutdown, nil
}

// Config is an exported alias of the internal configuration struct for embedding use.
type Config = config.Config

// LoadConfig wraps the internal loader for consumers embedding the checkout server.
func LoadConfig(path string) (*config.Config, error) {
	return config.Load(path)
}
