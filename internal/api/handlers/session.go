package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/baechuer/recsys-storefront/internal/domain"
	"github.com/baechuer/recsys-storefront/internal/logger"
	"github.com/baechuer/recsys-storefront/internal/session"
	"github.com/baechuer/recsys-storefront/middleware"
	"github.com/go-chi/render"
)

type AuthClient interface {
	Login(ctx context.Context, username, password string) (*domain.Token, error)
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,max=128"`
}

type SessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"user_id,omitempty"`
	TokenType     string `json:"token_type,omitempty"`
}

// SessionHandler owns the stored bearer token: login writes it, logout removes it.
type SessionHandler struct {
	auth     AuthClient
	store    session.TokenStore
	resolver middleware.TokenResolver
}

func NewSessionHandler(auth AuthClient, store session.TokenStore, resolver middleware.TokenResolver) *SessionHandler {
	return &SessionHandler{auth: auth, store: store, resolver: resolver}
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentity(r.Context())
	sendJSON(w, http.StatusOK, SessionResponse{
		Authenticated: !id.IsZero(),
		UserID:        id.String(),
	})
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		sendError(w, r, "validation_failed", "invalid body", http.StatusBadRequest)
		return
	}
	req.Username = strings.TrimSpace(req.Username)

	if err := validateRequest(req); err != nil {
		sendError(w, r, "validation_failed", err.Error(), http.StatusBadRequest)
		return
	}

	tok, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		logger.Ctx(r.Context()).Info().Err(err).Str("username", req.Username).Msg("login_failed")
		if errors.Is(err, domain.ErrUnauthorized) {
			sendError(w, r, "invalid_credentials", "incorrect username or password", http.StatusUnauthorized)
			return
		}
		handleDownstreamError(w, r, err, "login failed")
		return
	}

	if err := h.store.Save(tok.AccessToken); err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Msg("token_store_failed")
		sendError(w, r, "internal_error", "could not store session", http.StatusInternalServerError)
		return
	}

	id := h.resolver.FromToken(tok.AccessToken)
	logger.Ctx(r.Context()).Info().Str("user_id", id.String()).Msg("login_succeeded")

	sendJSON(w, http.StatusOK, SessionResponse{
		Authenticated: !id.IsZero(),
		UserID:        id.String(),
		TokenType:     tok.TokenType,
	})
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(); err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Msg("token_clear_failed")
		sendError(w, r, "internal_error", "could not clear session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
