// Package recommend loads a product page: the product itself and what to show next to it.
package recommend

import (
	"context"
	"errors"
	"sync"

	"github.com/baechuer/recsys-storefront/internal/domain"
	"github.com/baechuer/recsys-storefront/internal/logger"
	"github.com/baechuer/recsys-storefront/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

const DefaultTopK = 5

type ProductGetter interface {
	GetProduct(ctx context.Context, productID int) (*domain.Product, error)
}

type Recommender interface {
	GetRecommendations(ctx context.Context, productID, topK int) ([]domain.Product, error)
	GetUserRecommendations(ctx context.Context, userID domain.Identity, bearerToken string, topK int) ([]domain.Product, error)
}

// Degraded marks a secondary section that could not be loaded.
type Degraded struct {
	Recommendations string `json:"recommendations"`
}

type Detail struct {
	Product         *domain.Product  `json:"product"`
	Recommendations []domain.Product `json:"recommendations"`
	Degraded        *Degraded        `json:"degraded,omitempty"`
}

type Source struct {
	products    ProductGetter
	recommender Recommender
	topK        int
}

func NewSource(products ProductGetter, recommender Recommender, topK int) *Source {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Source{products: products, recommender: recommender, topK: topK}
}

// Load fetches the product and its recommendations concurrently and returns once both
// have settled. The product gates the page; a recommendations failure only degrades it.
func (s *Source) Load(ctx context.Context, productID int) (Detail, error) {
	ctx, span := tracing.StartSpan(ctx, "recommend.load")
	defer span.End()
	span.SetAttributes(attribute.Int("product.id", productID))

	var wg sync.WaitGroup
	wg.Add(2)

	var (
		product    *domain.Product
		productErr error
		recs       []domain.Product
		recsErr    error
	)

	go func() {
		defer wg.Done()
		product, productErr = s.products.GetProduct(ctx, productID)
	}()

	go func() {
		defer wg.Done()
		recs, recsErr = s.recommender.GetRecommendations(ctx, productID, s.topK)
	}()

	wg.Wait()

	if productErr != nil {
		return Detail{}, productErr
	}

	detail := Detail{Product: product, Recommendations: recs}
	if recsErr != nil {
		logger.Ctx(ctx).Warn().Err(recsErr).Int("product_id", productID).Msg("recommendations_degraded")
		detail.Recommendations = nil
		detail.Degraded = &Degraded{Recommendations: degradedReason(recsErr)}
	}
	if detail.Recommendations == nil {
		detail.Recommendations = make([]domain.Product, 0)
	}
	return detail, nil
}

// ForUser returns personalised recommendations for the signed-in user.
func (s *Source) ForUser(ctx context.Context, id domain.Identity, bearerToken string, topK int) ([]domain.Product, error) {
	if id.IsZero() {
		return []domain.Product{}, domain.ErrLoginRequired
	}
	if topK <= 0 {
		topK = s.topK
	}

	recs, err := s.recommender.GetUserRecommendations(ctx, id, bearerToken, topK)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = make([]domain.Product, 0)
	}
	return recs, nil
}

func degradedReason(err error) string {
	if errors.Is(err, domain.ErrTimeout) {
		return "timeout"
	}
	return "unavailable"
}
