package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/valoriste/valoriste/internal/auth"
	"github.com/valoriste/valoriste/internal/domain"
)

// AuthHandler serves the interactive OAuth consent flow used to bootstrap or
// recover the refresh token.
type AuthHandler struct {
	tokens *auth.Manager
}

func NewAuthHandler(tokens *auth.Manager) *AuthHandler {
	return &AuthHandler{tokens: tokens}
}

// URL returns the marketplace consent URL the operator must open in a
// browser.
func (h *AuthHandler) URL(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	writeJSON(w, http.StatusOK, map[string]any{
		"url":   h.tokens.AuthorizationURL(state),
		"state": state,
	})
}

// Callback exchanges the authorization code returned by the consent flow for
// a fresh token pair.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing code parameter")
		return
	}

	if err := h.tokens.ExchangeCode(r.Context(), code); err != nil {
		if errors.Is(err, domain.ErrRefreshFailed) {
			writeError(w, http.StatusBadGateway, "code exchange rejected by marketplace")
			return
		}
		writeError(w, http.StatusInternalServerError, "code exchange failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "authorized"})
}
