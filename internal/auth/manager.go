package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/valoriste/valoriste/internal/domain"
)

// Manager owns the current token pair and guarantees callers never receive an
// expired access token. Concurrent callers that all observe an expired token
// trigger exactly one upstream refresh; the rest wait and reuse the result.
type Manager struct {
	endpoint *Endpoint
	cred     Credential
	authHost string
	store    domain.TokenStore  // optional, persists refreshed pairs
	locker   domain.LockManager // optional, serializes refresh across processes
	logger   *slog.Logger
	now      func() time.Time

	mu   sync.Mutex
	pair domain.TokenPair
}

// ManagerOption configures optional Manager collaborators.
type ManagerOption func(*Manager)

// WithTokenStore persists every refreshed pair so restarts resume with the
// newest tokens.
func WithTokenStore(store domain.TokenStore) ManagerOption {
	return func(m *Manager) { m.store = store }
}

// WithLockManager serializes refreshes across processes sharing the same
// refresh token.
func WithLockManager(locker domain.LockManager) ManagerOption {
	return func(m *Manager) { m.locker = locker }
}

// NewManager creates a token Manager seeded with an initial pair. The pair may
// be entirely empty when the application has never been authorized.
func NewManager(endpoint *Endpoint, cred Credential, authHost string, initial domain.TokenPair, logger *slog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		endpoint: endpoint,
		cred:     cred,
		authHost: authHost,
		logger:   logger,
		now:      time.Now,
		pair:     initial,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EnsureValidToken returns an access token guaranteed to be unexpired at the
// time of return, refreshing first when necessary. When no valid refresh
// token exists either, it returns domain.ErrAuthorizationRequired and the
// user must redo the consent flow.
func (m *Manager) EnsureValidToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.pair.AccessValid(now) {
		return m.pair.AccessToken, nil
	}
	if !m.pair.RefreshValid(now) {
		return "", fmt.Errorf("auth: access token expired and no usable refresh token: %w", domain.ErrAuthorizationRequired)
	}
	if err := m.refreshLocked(ctx); err != nil {
		return "", err
	}
	return m.pair.AccessToken, nil
}

// Refresh forces a refresh regardless of the current token's validity. Callers
// use it after an upstream 401 that suggests the token was revoked early.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.pair.RefreshValid(m.now()) {
		return fmt.Errorf("auth: no usable refresh token: %w", domain.ErrAuthorizationRequired)
	}
	return m.refreshLocked(ctx)
}

const (
	refreshLockKey   = "auth:refresh"
	refreshLockTTL   = 30 * time.Second
	lockPollInterval = 100 * time.Millisecond
)

// refreshLocked performs the upstream refresh. Caller holds m.mu, so only one
// in-process refresh runs at a time; waiters re-check the pair the lock
// protected before issuing their own.
func (m *Manager) refreshLocked(ctx context.Context) error {
	if m.locker != nil {
		unlock, err := m.acquireRefreshLock(ctx)
		if err != nil {
			return err
		}
		if unlock != nil {
			defer unlock()
		}
		// Another process may have refreshed while we waited for the lock.
		// Adopt the persisted pair and skip the upstream call if it is fresh
		// and not the token we already hold, which upstream may have just
		// rejected.
		if m.store != nil {
			stored, err := m.store.Load(ctx)
			if err == nil && stored.AccessToken != m.pair.AccessToken && stored.AccessValid(m.now()) {
				m.pair = stored
				return nil
			}
		}
	}

	pair, err := m.endpoint.Refresh(ctx, m.pair)
	if err != nil {
		m.logger.Error("auth: token refresh failed", "error", err)
		return fmt.Errorf("auth: refresh: %w", err)
	}
	m.pair = pair
	m.logger.Info("auth: access token refreshed", "expires_at", pair.AccessTokenExpiry)

	if m.store != nil {
		if err := m.store.Save(ctx, pair); err != nil {
			m.logger.Warn("auth: persisting refreshed token failed", "error", err)
		}
	}
	return nil
}

// acquireRefreshLock takes the cross-process refresh lock, polling while
// another process holds it. A held lock means a refresh is already in flight
// somewhere, so waiting is correct; issuing a second refresh would invalidate
// the winner's tokens on providers that rotate refresh tokens. Genuine lock
// backend failures degrade to a local-only refresh with a nil unlock.
func (m *Manager) acquireRefreshLock(ctx context.Context) (func(), error) {
	for {
		unlock, err := m.locker.Acquire(ctx, refreshLockKey, refreshLockTTL)
		if err == nil {
			return unlock, nil
		}
		if !errors.Is(err, domain.ErrLockHeld) {
			m.logger.Warn("auth: distributed lock unavailable, refreshing anyway", "error", err)
			return nil, nil
		}
		timer := time.NewTimer(lockPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("auth: waiting for refresh lock: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// ExchangeCode completes the consent flow: it redeems the authorization code,
// installs the new pair as current, and persists it.
func (m *Manager) ExchangeCode(ctx context.Context, code string) error {
	pair, err := m.endpoint.ExchangeCode(ctx, code)
	if err != nil {
		return fmt.Errorf("auth: exchange code: %w", err)
	}

	m.mu.Lock()
	m.pair = pair
	m.mu.Unlock()

	m.logger.Info("auth: authorization code exchanged", "expires_at", pair.AccessTokenExpiry)
	if m.store != nil {
		if err := m.store.Save(ctx, pair); err != nil {
			m.logger.Warn("auth: persisting exchanged token failed", "error", err)
		}
	}
	return nil
}

// AuthorizationURL builds the consent page URL the user visits to authorize
// the application.
func (m *Manager) AuthorizationURL(state string) string {
	q := url.Values{
		"client_id":     {m.cred.ClientID()},
		"redirect_uri":  {m.cred.RedirectURI()},
		"response_type": {"code"},
		"scope":         {m.cred.ScopeString()},
	}
	if state != "" {
		q.Set("state", state)
	}
	return m.authHost + "/oauth2/authorize?" + q.Encode()
}

// Current returns a copy of the current pair, for status reporting.
func (m *Manager) Current() domain.TokenPair {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pair
}
