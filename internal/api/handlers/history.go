package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/baechuer/recsys-storefront/internal/domain"
	"github.com/baechuer/recsys-storefront/internal/history"
	"github.com/baechuer/recsys-storefront/middleware"
)

type HistoryLoader interface {
	Load(ctx context.Context, id domain.Identity, bearerToken string) ([]history.Entry, error)
}

type HistoryHandler struct {
	loader HistoryLoader
}

func NewHistoryHandler(loader HistoryLoader) *HistoryHandler {
	return &HistoryHandler{loader: loader}
}

type HistoryResponse struct {
	Status  domain.LoadStatus `json:"status"`
	Entries []history.Entry   `json:"entries"`
}

func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	entries, err := h.loader.Load(ctx,
		middleware.GetIdentity(r.Context()),
		middleware.GetBearerToken(r.Context()),
	)
	if errors.Is(err, domain.ErrLoginRequired) {
		sendError(w, r, "login_required", "log in to see your history", http.StatusUnauthorized)
		return
	}
	if err != nil {
		handleDownstreamError(w, r, err, "failed to fetch history")
		return
	}

	sendJSON(w, http.StatusOK, HistoryResponse{Status: domain.LoadReady, Entries: entries})
}
