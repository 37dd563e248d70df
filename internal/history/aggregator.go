// Package history joins a user's interaction log with the products it references.
package history

import (
	"context"
	"errors"

	"github.com/baechuer/recsys-storefront/internal/domain"
	"github.com/baechuer/recsys-storefront/internal/logger"
	"github.com/baechuer/recsys-storefront/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const DefaultFetchConcurrency = 8

type LogReader interface {
	History(ctx context.Context, userID domain.Identity, bearerToken string) ([]domain.InteractionRecord, error)
}

type ProductGetter interface {
	GetProduct(ctx context.Context, productID int) (*domain.Product, error)
}

// Entry is one display row. Product is nil when its fetch failed or it no longer exists.
type Entry struct {
	Interaction domain.InteractionRecord `json:"interaction"`
	Product     *domain.Product          `json:"product"`
}

type Aggregator struct {
	log         LogReader
	products    ProductGetter
	concurrency int
}

func NewAggregator(log LogReader, products ProductGetter, concurrency int) *Aggregator {
	if concurrency <= 0 {
		concurrency = DefaultFetchConcurrency
	}
	return &Aggregator{log: log, products: products, concurrency: concurrency}
}

// Load returns the user's log in the order the backend gave it, each record joined to
// its product. Every distinct product is fetched once; output is produced only after
// all fetches have settled.
func (a *Aggregator) Load(ctx context.Context, id domain.Identity, bearerToken string) ([]Entry, error) {
	if id.IsZero() {
		return []Entry{}, domain.ErrLoginRequired
	}

	records, err := a.log.History(ctx, id, bearerToken)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("history_fetch_failed")
		return nil, err
	}

	ids := distinctProductIDs(records)
	resolved := a.fetchAll(ctx, ids)

	out := make([]Entry, len(records))
	for i, rec := range records {
		out[i] = Entry{Interaction: rec, Product: resolved[rec.ProductID]}
	}
	return out, nil
}

func (a *Aggregator) fetchAll(ctx context.Context, ids []int) map[int]*domain.Product {
	ctx, span := tracing.StartSpan(ctx, "history.resolve_products")
	defer span.End()
	span.SetAttributes(attribute.Int("history.distinct_products", len(ids)))

	results := make([]*domain.Product, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, productID := range ids {
		g.Go(func() error {
			p, err := a.products.GetProduct(gctx, productID)
			if err != nil {
				ev := logger.Ctx(ctx).Warn()
				if errors.Is(err, domain.ErrNotFound) {
					ev = logger.Ctx(ctx).Debug()
				}
				ev.Err(err).Int("product_id", productID).Msg("history_product_unresolved")
				return nil
			}
			results[i] = p
			return nil
		})
	}
	// per-product failures are absorbed above, Wait is only the barrier
	_ = g.Wait()

	byID := make(map[int]*domain.Product, len(ids))
	for i, productID := range ids {
		byID[productID] = results[i]
	}
	return byID
}

func distinctProductIDs(records []domain.InteractionRecord) []int {
	seen := make(map[int]struct{}, len(records))
	ids := make([]int, 0, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.ProductID]; ok {
			continue
		}
		seen[rec.ProductID] = struct{}{}
		ids = append(ids, rec.ProductID)
	}
	return ids
}
