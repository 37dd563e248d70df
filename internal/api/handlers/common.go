package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/baechuer/recsys-storefront/internal/domain"
	"github.com/baechuer/recsys-storefront/internal/downstream"
	"github.com/baechuer/recsys-storefront/middleware"
	"github.com/go-chi/chi/v5"
)

func sendError(w http.ResponseWriter, r *http.Request, code string, message string, status int) {
	resp := domain.APIError{}
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.RequestID = middleware.GetRequestID(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// handleDownstreamError maps domain and backend errors onto the error envelope.
func handleDownstreamError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	switch {
	case errors.Is(err, domain.ErrLoginRequired):
		sendError(w, r, "login_required", "log in to continue", http.StatusUnauthorized)
		return
	case errors.Is(err, domain.ErrUnauthorized):
		sendError(w, r, "unauthorized", "session is no longer valid", http.StatusUnauthorized)
		return
	case errors.Is(err, domain.ErrNotFound):
		sendError(w, r, "resource_not_found", defaultMsg, http.StatusNotFound)
		return
	case errors.Is(err, domain.ErrTimeout):
		sendError(w, r, "upstream_timeout", "backend timeout", http.StatusGatewayTimeout)
		return
	case errors.Is(err, domain.ErrUnavailable):
		sendError(w, r, "upstream_unavailable", "backend unavailable", http.StatusBadGateway)
		return
	case errors.Is(err, domain.ErrInvalidActionKind):
		sendError(w, r, "validation_failed", "action must be one of view, like, purchase", http.StatusBadRequest)
		return
	}

	var se *downstream.StatusError
	if errors.As(err, &se) {
		status := se.StatusCode
		if status >= http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		sendError(w, r, se.Code, se.Message, status)
		return
	}
	sendError(w, r, "internal_error", defaultMsg, http.StatusBadGateway)
}

func productIDParam(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
