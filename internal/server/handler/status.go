package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/valoriste/valoriste/internal/auth"
	"github.com/valoriste/valoriste/internal/domain"
	"github.com/valoriste/valoriste/internal/service"
)

// StatusHandler reports run mode, token state, and per-user scan recency.
type StatusHandler struct {
	mode   string
	tokens *auth.Manager
	users  *service.UserService
	deals  domain.DealStore
}

func NewStatusHandler(mode string, tokens *auth.Manager, users *service.UserService, deals domain.DealStore) *StatusHandler {
	return &StatusHandler{mode: mode, tokens: tokens, users: users, deals: deals}
}

type tokenStatus struct {
	Valid              bool       `json:"valid"`
	AccessTokenExpiry  *time.Time `json:"access_token_expiry,omitempty"`
	RefreshTokenExpiry *time.Time `json:"refresh_token_expiry,omitempty"`
}

type userStatus struct {
	UserID   string     `json:"user_id"`
	Name     string     `json:"name"`
	LastScan *time.Time `json:"last_scan,omitempty"`
}

// Status returns an operational snapshot of the service.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := time.Now()

	pair := h.tokens.Current()
	token := tokenStatus{Valid: pair.AccessValid(now)}
	if !pair.AccessTokenExpiry.IsZero() {
		token.AccessTokenExpiry = &pair.AccessTokenExpiry
	}
	if !pair.RefreshTokenExpiry.IsZero() {
		token.RefreshTokenExpiry = &pair.RefreshTokenExpiry
	}

	var userStatuses []userStatus
	users, err := h.users.List(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing users")
		return
	}
	for _, u := range users {
		us := userStatus{UserID: u.ID, Name: u.Name}
		if h.deals != nil {
			last, err := h.deals.LastScanTime(ctx, u.ID)
			if err == nil {
				us.LastScan = &last
			} else if !errors.Is(err, domain.ErrNotFound) {
				writeError(w, http.StatusInternalServerError, "reading scan history")
				return
			}
		}
		userStatuses = append(userStatuses, us)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"mode":  h.mode,
		"token": token,
		"users": userStatuses,
		"time":  now.UTC(),
	})
}
