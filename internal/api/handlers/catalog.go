package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/baechuer/recsys-storefront/internal/catalog"
	"github.com/baechuer/recsys-storefront/internal/domain"
)

type CatalogSource interface {
	Fetch(ctx context.Context, f catalog.Filters) (catalog.Result, error)
	Latest() catalog.View
}

type CatalogHandler struct {
	source CatalogSource
}

func NewCatalogHandler(source CatalogSource) *CatalogHandler {
	return &CatalogHandler{source: source}
}

type CatalogResponse struct {
	Status     domain.LoadStatus `json:"status"`
	Filters    catalog.Filters   `json:"filters"`
	Products   []domain.Product  `json:"products"`
	Categories []string          `json:"categories"`
	Total      int               `json:"total"`
}

// List fetches one page for the category and search query parameters.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	q := r.URL.Query()
	res, err := h.source.Fetch(ctx, catalog.Filters{
		Category: q.Get("category"),
		Search:   q.Get("search"),
	})
	if err != nil {
		handleDownstreamError(w, r, err, "failed to fetch catalog")
		return
	}

	sendJSON(w, http.StatusOK, CatalogResponse{
		Status:     domain.LoadReady,
		Filters:    res.Filters,
		Products:   res.Products,
		Categories: res.Categories,
		Total:      res.Total,
	})
}

// Latest returns whatever fetch resolved last, including a failed one.
func (h *CatalogHandler) Latest(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, h.source.Latest())
}
