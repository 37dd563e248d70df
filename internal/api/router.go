package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/baechuer/recsys-storefront/internal/api/handlers"
	"github.com/baechuer/recsys-storefront/internal/config"
	"github.com/baechuer/recsys-storefront/internal/logger"
	"github.com/baechuer/recsys-storefront/internal/proxy"
	"github.com/baechuer/recsys-storefront/internal/tracing"
	"github.com/baechuer/recsys-storefront/middleware"
)

// Deps are the page-view components the router serves.
type Deps struct {
	Resolver  middleware.TokenResolver
	Session   *handlers.SessionHandler
	Catalog   *handlers.CatalogHandler
	Products  *handlers.ProductHandler
	Actions   *handlers.ActionHandler
	History   *handlers.HistoryHandler
	Readiness *handlers.ReadinessHandler
	// Redis backs the action rate limiter; nil falls back to an in-process limiter.
	Redis *redis.Client
}

func NewRouter(cfg *config.Config, deps Deps) (http.Handler, error) {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Identity(deps.Resolver))
	r.Use(middleware.RequestLogger(logger.Log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Metrics)
	r.Use(middleware.Tracing(tracing.ServiceName))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.HeaderXRequestID},
		ExposedHeaders:   []string{middleware.HeaderXRequestID},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	// registration is not interpreted here: /api/auth/register -> backend /register
	registerProxy, err := proxy.New(cfg.BackendURL, "/api/auth", "")
	if err != nil {
		return nil, err
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/healthz", deps.Readiness.Healthz)
		r.Get("/readyz", deps.Readiness.Readyz)

		r.Get("/session", deps.Session.Get)
		r.Post("/session", deps.Session.Login)
		r.Delete("/session", deps.Session.Logout)
		r.Post("/auth/register", registerProxy.ServeHTTP)

		r.Get("/catalog", deps.Catalog.List)
		r.Get("/catalog/latest", deps.Catalog.Latest)

		r.Get("/recommendations/me", deps.Products.ForMe)

		r.Route("/products/{id}", func(r chi.Router) {
			r.Get("/", deps.Products.GetProductView)
			r.Get("/actions", deps.Actions.States)
			r.With(middleware.ActionRateLimit(deps.Redis, cfg.RLLimit, cfg.RLWindow)).
				Post("/actions/{kind}", deps.Actions.Record)
		})

		r.Get("/history", deps.History.Get)
	})

	logger.Log.Info().
		Str("backend", cfg.BackendURL).
		Str("register", cfg.BackendURL+"/register").
		Bool("redis", deps.Redis != nil).
		Msg("routes_mounted")

	return r, nil
}
