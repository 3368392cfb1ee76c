package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valoriste/valoriste/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tokenServer(t *testing.T, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"access_token":"fresh","expires_in":7200}`))
	}))
}

func TestEnsureValidTokenReturnsCurrent(t *testing.T) {
	var calls atomic.Int64
	srv := tokenServer(t, &calls)
	defer srv.Close()

	ep := NewEndpoint(srv.URL, testCredential(), srv.Client())
	initial := domain.TokenPair{
		AccessToken:       "still-good",
		AccessTokenExpiry: time.Now().Add(time.Hour),
	}
	m := NewManager(ep, testCredential(), "https://auth.example", initial, discardLogger())

	tok, err := m.EnsureValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "still-good", tok)
	assert.Equal(t, int64(0), calls.Load(), "valid token must not trigger a refresh")
}

func TestEnsureValidTokenRefreshesExpired(t *testing.T) {
	var calls atomic.Int64
	srv := tokenServer(t, &calls)
	defer srv.Close()

	ep := NewEndpoint(srv.URL, testCredential(), srv.Client())
	initial := domain.TokenPair{
		AccessToken:        "stale",
		AccessTokenExpiry:  time.Now().Add(-time.Minute),
		RefreshToken:       "refresh-me",
		RefreshTokenExpiry: time.Now().Add(24 * time.Hour),
	}
	store := &memTokenStore{}
	m := NewManager(ep, testCredential(), "https://auth.example", initial, discardLogger(), WithTokenStore(store))

	tok, err := m.EnsureValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok)
	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, "fresh", store.saved().AccessToken, "refreshed pair must be persisted")
}

func TestEnsureValidTokenConcurrentSingleRefresh(t *testing.T) {
	var calls atomic.Int64
	srv := tokenServer(t, &calls)
	defer srv.Close()

	ep := NewEndpoint(srv.URL, testCredential(), srv.Client())
	initial := domain.TokenPair{
		AccessToken:        "stale",
		AccessTokenExpiry:  time.Now().Add(-time.Minute),
		RefreshToken:       "refresh-me",
		RefreshTokenExpiry: time.Now().Add(24 * time.Hour),
	}
	m := NewManager(ep, testCredential(), "https://auth.example", initial, discardLogger())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := m.EnsureValidToken(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "fresh", tok)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), calls.Load(), "concurrent callers must share one refresh")
}

func TestEnsureValidTokenNoRefreshToken(t *testing.T) {
	var calls atomic.Int64
	srv := tokenServer(t, &calls)
	defer srv.Close()

	ep := NewEndpoint(srv.URL, testCredential(), srv.Client())
	initial := domain.TokenPair{
		AccessToken:        "stale",
		AccessTokenExpiry:  time.Now().Add(-time.Minute),
		RefreshToken:       "dead",
		RefreshTokenExpiry: time.Now().Add(-time.Hour),
	}
	m := NewManager(ep, testCredential(), "https://auth.example", initial, discardLogger())

	_, err := m.EnsureValidToken(context.Background())
	require.ErrorIs(t, err, domain.ErrAuthorizationRequired)
	assert.Equal(t, int64(0), calls.Load())
}

func TestForcedRefreshAfterUpstreamReject(t *testing.T) {
	var calls atomic.Int64
	srv := tokenServer(t, &calls)
	defer srv.Close()

	ep := NewEndpoint(srv.URL, testCredential(), srv.Client())
	// Access token still looks valid locally but upstream rejected it.
	initial := domain.TokenPair{
		AccessToken:        "revoked-early",
		AccessTokenExpiry:  time.Now().Add(time.Hour),
		RefreshToken:       "refresh-me",
		RefreshTokenExpiry: time.Now().Add(24 * time.Hour),
	}
	m := NewManager(ep, testCredential(), "https://auth.example", initial, discardLogger())

	require.NoError(t, m.Refresh(context.Background()))
	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, "fresh", m.Current().AccessToken)
}

func TestRefreshFailurePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	ep := NewEndpoint(srv.URL, testCredential(), srv.Client())
	initial := domain.TokenPair{
		RefreshToken:       "bad",
		RefreshTokenExpiry: time.Now().Add(time.Hour),
	}
	m := NewManager(ep, testCredential(), "https://auth.example", initial, discardLogger())

	_, err := m.EnsureValidToken(context.Background())
	require.ErrorIs(t, err, domain.ErrRefreshFailed)
}

func TestAuthorizationURL(t *testing.T) {
	m := NewManager(nil, testCredential(), "https://auth.ebay.com", domain.TokenPair{}, discardLogger())
	u := m.AuthorizationURL("xyzzy")
	assert.Contains(t, u, "https://auth.ebay.com/oauth2/authorize?")
	assert.Contains(t, u, "client_id=client-id")
	assert.Contains(t, u, "response_type=code")
	assert.Contains(t, u, "state=xyzzy")
	assert.Contains(t, u, "scope=scope-a+scope-b")
}

type memTokenStore struct {
	mu   sync.Mutex
	pair domain.TokenPair
	ok   bool
}

func (s *memTokenStore) Load(ctx context.Context) (domain.TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ok {
		return domain.TokenPair{}, domain.ErrNotFound
	}
	return s.pair, nil
}

func (s *memTokenStore) Save(ctx context.Context, pair domain.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair, s.ok = pair, true
	return nil
}

func (s *memTokenStore) saved() domain.TokenPair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair
}

type fakeLockManager struct {
	mu       sync.Mutex
	heldFor  int // attempts that fail with ErrLockHeld before the lock frees up
	err      error
	attempts int
}

func (l *fakeLockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts++
	if l.err != nil {
		return nil, l.err
	}
	if l.attempts <= l.heldFor {
		return nil, domain.ErrLockHeld
	}
	return func() {}, nil
}

func (l *fakeLockManager) tries() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempts
}

func TestRefreshWaitsForHeldLockAndReusesStoredPair(t *testing.T) {
	var calls atomic.Int64
	srv := tokenServer(t, &calls)
	defer srv.Close()

	// Another process holds the refresh lock for the first two attempts and
	// persists a fresh pair before releasing it.
	locker := &fakeLockManager{heldFor: 2}
	store := &memTokenStore{}
	require.NoError(t, store.Save(context.Background(), domain.TokenPair{
		AccessToken:        "refreshed-elsewhere",
		AccessTokenExpiry:  time.Now().Add(time.Hour),
		RefreshToken:       "rotated",
		RefreshTokenExpiry: time.Now().Add(24 * time.Hour),
	}))

	ep := NewEndpoint(srv.URL, testCredential(), srv.Client())
	initial := domain.TokenPair{
		AccessToken:        "stale",
		AccessTokenExpiry:  time.Now().Add(-time.Minute),
		RefreshToken:       "refresh-me",
		RefreshTokenExpiry: time.Now().Add(24 * time.Hour),
	}
	m := NewManager(ep, testCredential(), "https://auth.example", initial, discardLogger(),
		WithTokenStore(store), WithLockManager(locker))

	tok, err := m.EnsureValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refreshed-elsewhere", tok, "must adopt the pair the lock holder persisted")
	assert.Equal(t, int64(0), calls.Load(), "no second upstream refresh while the lock was held")
	assert.GreaterOrEqual(t, locker.tries(), 3, "held lock must be retried, not skipped")
}

func TestForcedRefreshIgnoresOwnStoredPair(t *testing.T) {
	var calls atomic.Int64
	srv := tokenServer(t, &calls)
	defer srv.Close()

	// The store holds the same access token upstream just rejected; it must
	// not satisfy a forced refresh even though it looks valid locally.
	revoked := domain.TokenPair{
		AccessToken:        "revoked-early",
		AccessTokenExpiry:  time.Now().Add(time.Hour),
		RefreshToken:       "refresh-me",
		RefreshTokenExpiry: time.Now().Add(24 * time.Hour),
	}
	store := &memTokenStore{}
	require.NoError(t, store.Save(context.Background(), revoked))

	ep := NewEndpoint(srv.URL, testCredential(), srv.Client())
	m := NewManager(ep, testCredential(), "https://auth.example", revoked, discardLogger(),
		WithTokenStore(store), WithLockManager(&fakeLockManager{}))

	require.NoError(t, m.Refresh(context.Background()))
	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, "fresh", m.Current().AccessToken)
}

func TestRefreshHeldLockHonorsContext(t *testing.T) {
	var calls atomic.Int64
	srv := tokenServer(t, &calls)
	defer srv.Close()

	locker := &fakeLockManager{heldFor: 1 << 30}
	ep := NewEndpoint(srv.URL, testCredential(), srv.Client())
	initial := domain.TokenPair{
		RefreshToken:       "refresh-me",
		RefreshTokenExpiry: time.Now().Add(24 * time.Hour),
	}
	m := NewManager(ep, testCredential(), "https://auth.example", initial, discardLogger(),
		WithLockManager(locker))

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	_, err := m.EnsureValidToken(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int64(0), calls.Load())
}

func TestRefreshProceedsOnLockBackendError(t *testing.T) {
	var calls atomic.Int64
	srv := tokenServer(t, &calls)
	defer srv.Close()

	locker := &fakeLockManager{err: errors.New("redis: connection refused")}
	ep := NewEndpoint(srv.URL, testCredential(), srv.Client())
	initial := domain.TokenPair{
		RefreshToken:       "refresh-me",
		RefreshTokenExpiry: time.Now().Add(24 * time.Hour),
	}
	m := NewManager(ep, testCredential(), "https://auth.example", initial, discardLogger(),
		WithLockManager(locker))

	tok, err := m.EnsureValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok, "lock backend outage must not block refresh")
	assert.Equal(t, int64(1), calls.Load())
}
