package handler

import (
	"errors"
	"net/http"

	"github.com/valoriste/valoriste/internal/domain"
	"github.com/valoriste/valoriste/internal/service"
)

// UsersHandler serves shopper profile endpoints.
type UsersHandler struct {
	users *service.UserService
}

func NewUsersHandler(users *service.UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// List returns all known shopper profiles.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing users")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users, "count": len(users)})
}

// Get returns a single shopper profile by id.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "loading user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
