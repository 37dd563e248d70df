package handlers

import (
	"context"
	"net/http"

	"github.com/baechuer/recsys-storefront/internal/domain"
	"github.com/baechuer/recsys-storefront/middleware"
	"github.com/go-chi/chi/v5"
)

type ActionTracker interface {
	Record(ctx context.Context, id domain.Identity, bearerToken string, productID int, kind domain.ActionKind) (domain.ActionState, error)
	RecordAsync(ctx context.Context, id domain.Identity, bearerToken string, productID int, kind domain.ActionKind) (domain.ActionState, error)
	StateOf(productID int, kind domain.ActionKind) domain.ActionState
	States(productID int) []domain.ActionState
}

type ActionHandler struct {
	tracker ActionTracker
}

func NewActionHandler(tracker ActionTracker) *ActionHandler {
	return &ActionHandler{tracker: tracker}
}

// Record starts recording an action. By default it answers 202 with the pending state
// and the browser polls States; ?wait=true blocks until the request has settled.
func (h *ActionHandler) Record(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(r)
	if !ok {
		sendError(w, r, "validation_failed", "invalid product id", http.StatusBadRequest)
		return
	}
	kind, err := domain.ParseActionKind(chi.URLParam(r, "kind"))
	if err != nil {
		handleDownstreamError(w, r, err, "invalid action")
		return
	}

	id := middleware.GetIdentity(r.Context())
	bearer := middleware.GetBearerToken(r.Context())

	if r.URL.Query().Get("wait") == "true" {
		st, err := h.tracker.Record(r.Context(), id, bearer, productID, kind)
		if err != nil {
			handleDownstreamError(w, r, err, "failed to record action")
			return
		}
		sendJSON(w, http.StatusOK, st)
		return
	}

	st, err := h.tracker.RecordAsync(r.Context(), id, bearer, productID, kind)
	if err != nil {
		handleDownstreamError(w, r, err, "failed to record action")
		return
	}
	sendJSON(w, http.StatusAccepted, st)
}

func (h *ActionHandler) States(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(r)
	if !ok {
		sendError(w, r, "validation_failed", "invalid product id", http.StatusBadRequest)
		return
	}

	if k := r.URL.Query().Get("kind"); k != "" {
		kind, err := domain.ParseActionKind(k)
		if err != nil {
			handleDownstreamError(w, r, err, "invalid action")
			return
		}
		sendJSON(w, http.StatusOK, h.tracker.StateOf(productID, kind))
		return
	}

	sendJSON(w, http.StatusOK, map[string]any{"actions": h.tracker.States(productID)})
}
