package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/baechuer/recsys-storefront/internal/domain"
	"github.com/baechuer/recsys-storefront/internal/recommend"
	"github.com/baechuer/recsys-storefront/middleware"
)

type ProductSource interface {
	Load(ctx context.Context, productID int) (recommend.Detail, error)
	ForUser(ctx context.Context, id domain.Identity, bearerToken string, topK int) ([]domain.Product, error)
}

// ActionStates is the read side of the tracker, shown next to a product.
type ActionStates interface {
	States(productID int) []domain.ActionState
}

type ProductHandler struct {
	source  ProductSource
	actions ActionStates
}

func NewProductHandler(source ProductSource, actions ActionStates) *ProductHandler {
	return &ProductHandler{source: source, actions: actions}
}

type ProductViewResponse struct {
	Product         *domain.Product      `json:"product"`
	Recommendations []domain.Product     `json:"recommendations"`
	Actions         []domain.ActionState `json:"actions"`
	Degraded        *recommend.Degraded  `json:"degraded,omitempty"`
}

func (h *ProductHandler) GetProductView(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(r)
	if !ok {
		sendError(w, r, "validation_failed", "invalid product id", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	detail, err := h.source.Load(ctx, productID)
	if err != nil {
		handleDownstreamError(w, r, err, "product not found")
		return
	}

	sendJSON(w, http.StatusOK, ProductViewResponse{
		Product:         detail.Product,
		Recommendations: detail.Recommendations,
		Actions:         h.actions.States(productID),
		Degraded:        detail.Degraded,
	})
}

func (h *ProductHandler) ForMe(w http.ResponseWriter, r *http.Request) {
	topK := 0
	if v := r.URL.Query().Get("top_k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 50 {
			sendError(w, r, "validation_failed", "top_k must be between 1 and 50", http.StatusBadRequest)
			return
		}
		topK = n
	}

	recs, err := h.source.ForUser(r.Context(),
		middleware.GetIdentity(r.Context()),
		middleware.GetBearerToken(r.Context()),
		topK,
	)
	if err != nil {
		handleDownstreamError(w, r, err, "failed to fetch recommendations")
		return
	}

	sendJSON(w, http.StatusOK, map[string]any{"recommendations": recs})
}
