package api

import (
	"context"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/baechuer/recsys-storefront/internal/api/handlers"
	"github.com/baechuer/recsys-storefront/internal/catalog"
	"github.com/baechuer/recsys-storefront/internal/config"
	"github.com/baechuer/recsys-storefront/internal/downstream"
	"github.com/baechuer/recsys-storefront/internal/history"
	"github.com/baechuer/recsys-storefront/internal/identity"
	"github.com/baechuer/recsys-storefront/internal/recommend"
	"github.com/baechuer/recsys-storefront/internal/session"
	"github.com/baechuer/recsys-storefront/internal/tracker"
)

// Build wires the backend clients, the storefront components and the router. The
// returned cleanup stops the tracker's dwell timers.
func Build(cfg *config.Config, store session.TokenStore, rdb *redis.Client) (http.Handler, func(), error) {
	clientCfg := downstream.DefaultClientConfig()
	if cfg.ReadTimeout > 0 {
		clientCfg.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		clientCfg.WriteTimeout = cfg.WriteTimeout
	}
	client := downstream.NewClient(clientCfg)

	catalogClient := downstream.NewCatalogClient(cfg.BackendURL, client)
	interactionClient := downstream.NewInteractionClient(cfg.BackendURL, client)
	authClient := downstream.NewAuthClient(cfg.BackendURL, client)

	var products downstream.ProductGetter = catalogClient
	if rdb != nil {
		products = downstream.NewProductCache(catalogClient, rdb, cfg.ProductCacheTTL)
	}

	resolver := identity.NewResolver(store)
	catalogSource := catalog.NewSource(catalogClient, cfg.CatalogPageSize)
	actionTracker := tracker.New(interactionClient, cfg.ActionDwell)
	aggregator := history.NewAggregator(interactionClient, products, cfg.HistoryFetchConcurrency)
	recs := recommend.NewSource(products, catalogClient, cfg.RecommendationsTopK)

	checkers := []handlers.ReadinessChecker{
		handlers.NewHTTPReadinessChecker("backend", cfg.BackendURL+"/products/?page_size=1"),
	}
	if rdb != nil {
		checkers = append(checkers, handlers.FuncChecker{
			CheckName: "redis",
			Fn:        func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}

	router, err := NewRouter(cfg, Deps{
		Resolver:  resolver,
		Session:   handlers.NewSessionHandler(authClient, store, resolver),
		Catalog:   handlers.NewCatalogHandler(catalogSource),
		Products:  handlers.NewProductHandler(recs, actionTracker),
		Actions:   handlers.NewActionHandler(actionTracker),
		History:   handlers.NewHistoryHandler(aggregator),
		Readiness: handlers.NewReadinessHandler(checkers...),
		Redis:     rdb,
	})
	if err != nil {
		actionTracker.Close()
		return nil, nil, err
	}
	return router, actionTracker.Close, nil
}
