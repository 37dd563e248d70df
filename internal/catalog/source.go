// Package catalog fetches filtered product pages and derives the category filter
// options from each page.
package catalog

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/baechuer/recsys-storefront/internal/domain"
	"github.com/baechuer/recsys-storefront/internal/downstream"
	"github.com/baechuer/recsys-storefront/internal/logger"
)

const DefaultPageSize = 100

type ProductLister interface {
	ListProducts(ctx context.Context, q downstream.ProductQuery) (*domain.ProductPage, error)
}

type Filters struct {
	Category string `json:"category,omitempty"`
	Search   string `json:"search,omitempty"`
}

// Result is one resolved catalog page. Categories are the distinct categories seen in
// Products, in first-seen order; categories outside this page are not offered.
type Result struct {
	Filters    Filters          `json:"filters"`
	Products   []domain.Product `json:"products"`
	Categories []string         `json:"categories"`
	Total      int              `json:"total"`
}

// View is what the catalog page renders: the most recently resolved result.
type View struct {
	Status     domain.LoadStatus `json:"status"`
	Result     Result            `json:"result"`
	Error      string            `json:"error,omitempty"`
	ResolvedAt time.Time         `json:"resolved_at,omitempty"`
	// Pending counts fetches issued but not yet resolved.
	Pending int `json:"pending"`
}

type Source struct {
	lister   ProductLister
	pageSize int

	mu       sync.Mutex
	inFlight int
	latest   View
}

func NewSource(lister ProductLister, pageSize int) *Source {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Source{
		lister:   lister,
		pageSize: pageSize,
		latest:   View{Status: domain.LoadLoading, Result: Result{Products: []domain.Product{}, Categories: []string{}}},
	}
}

// Fetch issues exactly one request for the filters. Concurrent fetches are neither
// coalesced nor cancelled: each one overwrites Latest when it resolves, so a slow
// response for an older filter can land after a newer one.
func (s *Source) Fetch(ctx context.Context, f Filters) (Result, error) {
	f.Category = strings.TrimSpace(f.Category)
	f.Search = strings.TrimSpace(f.Search)

	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()

	page, err := s.lister.ListProducts(ctx, downstream.ProductQuery{
		Category: f.Category,
		Search:   f.Search,
		PageSize: s.pageSize,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--

	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).
			Str("category", f.Category).
			Str("search", f.Search).
			Msg("catalog_fetch_failed")
		s.latest = View{
			Status:     domain.LoadFailed,
			Result:     Result{Filters: f, Products: []domain.Product{}, Categories: []string{}},
			Error:      err.Error(),
			ResolvedAt: time.Now(),
		}
		return Result{}, err
	}

	res := Result{
		Filters:    f,
		Products:   page.Products,
		Categories: Categories(page.Products),
		Total:      page.Total,
	}
	s.latest = View{Status: domain.LoadReady, Result: res, ResolvedAt: time.Now()}
	return res, nil
}

// Latest returns the most recently resolved view. Until the first fetch resolves the
// status is loading.
func (s *Source) Latest() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.latest
	v.Pending = s.inFlight
	return v
}

// Categories returns the distinct non-empty categories of products in first-seen order.
func Categories(products []domain.Product) []string {
	seen := make(map[string]struct{}, len(products))
	out := make([]string, 0)
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}
