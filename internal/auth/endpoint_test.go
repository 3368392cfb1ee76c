package auth

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valoriste/valoriste/internal/domain"
)

func testCredential() Credential {
	return NewCredential("client-id", "client-secret", "ru-name", []string{"scope-a", "scope-b"})
}

func TestEndpointRefresh(t *testing.T) {
	var gotAuth, gotGrant, gotRefresh string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotAuth = r.Header.Get("Authorization")
		gotGrant = r.FormValue("grant_type")
		gotRefresh = r.FormValue("refresh_token")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new-access","expires_in":7200,"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	ep := NewEndpoint(srv.URL, testCredential(), srv.Client())
	prev := domain.TokenPair{
		RefreshToken:       "old-refresh",
		RefreshTokenExpiry: time.Now().Add(24 * time.Hour),
	}
	pair, err := ep.Refresh(context.Background(), prev)
	require.NoError(t, err)

	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("client-id:client-secret"))
	assert.Equal(t, wantAuth, gotAuth)
	assert.Equal(t, "refresh_token", gotGrant)
	assert.Equal(t, "old-refresh", gotRefresh)

	assert.Equal(t, "new-access", pair.AccessToken)
	// Refresh token was not rotated, so the previous one is carried over.
	assert.Equal(t, "old-refresh", pair.RefreshToken)
	assert.Equal(t, prev.RefreshTokenExpiry, pair.RefreshTokenExpiry)
	// Expiry is skewed earlier than the advertised two hours.
	assert.True(t, pair.AccessTokenExpiry.Before(time.Now().Add(2*time.Hour)))
	assert.True(t, pair.AccessTokenExpiry.After(time.Now().Add(time.Hour)))
}

func TestEndpointRefreshRotatesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"a","expires_in":7200,"refresh_token":"rotated","refresh_token_expires_in":47304000}`))
	}))
	defer srv.Close()

	ep := NewEndpoint(srv.URL, testCredential(), srv.Client())
	pair, err := ep.Refresh(context.Background(), domain.TokenPair{RefreshToken: "old"})
	require.NoError(t, err)
	assert.Equal(t, "rotated", pair.RefreshToken)
	assert.False(t, pair.RefreshTokenExpiry.IsZero())
}

func TestEndpointRefreshError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"refresh token revoked"}`))
	}))
	defer srv.Close()

	ep := NewEndpoint(srv.URL, testCredential(), srv.Client())
	_, err := ep.Refresh(context.Background(), domain.TokenPair{RefreshToken: "dead"})
	require.ErrorIs(t, err, domain.ErrRefreshFailed)
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestEndpointExchangeCode(t *testing.T) {
	var gotGrant, gotCode, gotRedirect string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotGrant = r.FormValue("grant_type")
		gotCode = r.FormValue("code")
		gotRedirect = r.FormValue("redirect_uri")
		w.Write([]byte(`{"access_token":"a","expires_in":7200,"refresh_token":"r","refresh_token_expires_in":47304000}`))
	}))
	defer srv.Close()

	ep := NewEndpoint(srv.URL, testCredential(), srv.Client())
	pair, err := ep.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "authorization_code", gotGrant)
	assert.Equal(t, "the-code", gotCode)
	assert.Equal(t, "ru-name", gotRedirect)
	assert.Equal(t, "a", pair.AccessToken)
	assert.Equal(t, "r", pair.RefreshToken)
}

func TestEndpointMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	ep := NewEndpoint(srv.URL, testCredential(), srv.Client())
	_, err := ep.Refresh(context.Background(), domain.TokenPair{RefreshToken: "x"})
	require.Error(t, err)
}
